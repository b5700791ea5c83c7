package market

import (
	"math"
	"sort"
	"time"
)

const (
	// referenceAge is the lookback for the headline stars_gained_7d.
	referenceAge = 7 * 24 * time.Hour

	// decayHalfLife controls how fast older weekly gains stop
	// influencing the score. Two weeks halves a segment's weight.
	decayHalfLife = 14.0

	// maxRecencyBoost caps the multiplier applied for a very recent
	// push. A future-dated pushedAt gets the same cap as "pushed
	// today", never more.
	maxRecencyBoost = 0.10

	snapshotDateLayout = "2006-01-02"
)

// TrendingEngine scores repositories from their snapshot history using
// exponentially time-decayed weekly gains.
type TrendingEngine struct {
	now func() time.Time
}

// NewTrendingEngine creates an engine using the wall clock.
func NewTrendingEngine() *TrendingEngine {
	return &TrendingEngine{now: time.Now}
}

// NewTrendingEngineAt creates an engine with a fixed notion of "now".
// Used by tests.
func NewTrendingEngineAt(now time.Time) *TrendingEngine {
	return &TrendingEngine{now: func() time.Time { return now }}
}

// Score computes the trending signal for one repository. A history
// with fewer than two snapshots yields insufficient_data with all
// numeric fields zero. pushedAt may be empty or unparseable; both are
// treated as absent.
func (e *TrendingEngine) Score(history []Snapshot, currentStars int, pushedAt string) TrendingResult {
	if len(history) < 2 {
		return TrendingResult{InsufficientData: true}
	}

	now := e.now()
	snaps := parseSnapshots(history)
	if len(snaps) < 2 {
		return TrendingResult{InsufficientData: true}
	}

	ref := referenceSnapshot(snaps, now)
	gained := currentStars - ref.stars

	elapsedDays := now.Sub(ref.date).Hours() / 24
	if elapsedDays < 1 {
		elapsedDays = 1
	}
	velocity := float64(gained) / elapsedDays * 7

	score := e.decayedVelocity(snaps, currentStars, now)
	score *= recencyBoost(pushedAt, now)

	return TrendingResult{
		TrendingScore: round2(score),
		StarsGained7d: gained,
		StarsVelocity: round2(velocity),
	}
}

type snapshot struct {
	date  time.Time
	stars int
}

// parseSnapshots normalizes raw history: unparseable dates are skipped,
// duplicates on the same day keep the last value, and the result is
// sorted ascending.
func parseSnapshots(history []Snapshot) []snapshot {
	byDay := make(map[string]snapshot, len(history))
	for _, s := range history {
		d, err := time.Parse(snapshotDateLayout, s.Date)
		if err != nil {
			continue
		}
		byDay[s.Date] = snapshot{date: d, stars: s.Stars}
	}

	out := make([]snapshot, 0, len(byDay))
	for _, s := range byDay {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].date.Before(out[j].date) })
	return out
}

// referenceSnapshot picks the most recent snapshot at least seven days
// old, falling back to the oldest when every snapshot is younger.
func referenceSnapshot(snaps []snapshot, now time.Time) snapshot {
	cutoff := now.Add(-referenceAge)
	for i := len(snaps) - 1; i >= 0; i-- {
		if !snaps[i].date.After(cutoff) {
			return snaps[i]
		}
	}
	return snaps[0]
}

// decayedVelocity is the weighted mean of per-segment weekly gains,
// with weights decaying exponentially by segment age. The live segment
// from the newest snapshot to now participates at full weight.
func (e *TrendingEngine) decayedVelocity(snaps []snapshot, currentStars int, now time.Time) float64 {
	lambda := math.Ln2 / decayHalfLife

	var weightedSum, weightTotal float64
	add := func(gain float64, days float64, ageDays float64) {
		if days < 1 {
			days = 1
		}
		weekly := gain / days * 7
		w := math.Exp(-lambda * math.Max(ageDays, 0))
		weightedSum += weekly * w
		weightTotal += w
	}

	for i := 1; i < len(snaps); i++ {
		days := snaps[i].date.Sub(snaps[i-1].date).Hours() / 24
		age := now.Sub(snaps[i].date).Hours() / 24
		add(float64(snaps[i].stars-snaps[i-1].stars), days, age)
	}

	last := snaps[len(snaps)-1]
	liveDays := now.Sub(last.date).Hours() / 24
	if liveDays >= 1 {
		add(float64(currentStars-last.stars), liveDays, 0)
	}

	if weightTotal == 0 {
		return 0
	}
	return weightedSum / weightTotal
}

// recencyBoost returns a multiplier in [1, 1+maxRecencyBoost]. The
// boost scales linearly down to nothing over seven days since the last
// push. Future-dated pushes clamp to the same maximum as a push right
// now.
func recencyBoost(pushedAt string, now time.Time) float64 {
	if pushedAt == "" {
		return 1
	}
	t, err := time.Parse(time.RFC3339, pushedAt)
	if err != nil {
		return 1
	}

	ageDays := now.Sub(t).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	if ageDays >= 7 {
		return 1
	}
	return 1 + maxRecencyBoost*(1-ageDays/7)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
