package market

import (
	"sort"
	"time"
)

// retentionDays is the snapshot retention window. Older entries are
// pruned on every update.
const retentionDays = 90

// NewSignalsHistory returns an empty history.
func NewSignalsHistory() *SignalsHistory {
	return &SignalsHistory{Repos: make(map[string][]Snapshot)}
}

// RepoSignal is one repository's current observation, appended to the
// history as today's snapshot.
type RepoSignal struct {
	FullName string
	Stars    int
	Forks    int
}

// Update appends today's snapshot for every current repository,
// prunes snapshots past the retention window, and drops repositories
// absent from the current run entirely. At most one snapshot per
// repository per day; a repeat run on the same day overwrites the
// day's value.
func (h *SignalsHistory) Update(current []RepoSignal, now time.Time) {
	if h.Repos == nil {
		h.Repos = make(map[string][]Snapshot)
	}

	today := now.Format(snapshotDateLayout)
	cutoff := now.AddDate(0, 0, -retentionDays).Format(snapshotDateLayout)

	seen := make(map[string]bool, len(current))
	for _, sig := range current {
		seen[sig.FullName] = true

		snaps := h.Repos[sig.FullName]
		replaced := false
		for i := range snaps {
			if snaps[i].Date == today {
				snaps[i] = Snapshot{Date: today, Stars: sig.Stars, Forks: sig.Forks}
				replaced = true
				break
			}
		}
		if !replaced {
			snaps = append(snaps, Snapshot{Date: today, Stars: sig.Stars, Forks: sig.Forks})
		}

		kept := snaps[:0]
		for _, s := range snaps {
			if s.Date >= cutoff {
				kept = append(kept, s)
			}
		}
		sort.Slice(kept, func(i, j int) bool { return kept[i].Date < kept[j].Date })
		h.Repos[sig.FullName] = kept
	}

	for name := range h.Repos {
		if !seen[name] {
			delete(h.Repos, name)
		}
	}

	count := 0
	for _, snaps := range h.Repos {
		count += len(snaps)
	}
	h.SnapshotCount = count
	h.LastRun = now
}
