package pipeline

import (
	"context"
	"time"

	"github.com/plugdex/plugdex/pkg/market"
)

// TrendingStage scores every marketplace from the snapshot history and
// folds the result into the aggregate's signals.
type TrendingStage struct{}

func (TrendingStage) ID() string { return "trending" }

func (TrendingStage) Run(ctx context.Context, rc *RunContext, progress Progress) error {
	if rc.Aggregate == nil {
		if err := requireArtifact(rc.DataDir(), "merge", &rc.Aggregate); err != nil {
			return err
		}
	}
	if rc.History == nil {
		h, err := loadSignals(rc.DataDir())
		if err != nil {
			return err
		}
		rc.History = h
	}

	engine := market.NewTrendingEngine()
	scored, insufficient := 0, 0

	total := rc.Aggregate.Totals.TotalMarketplaces
	done := 0
	for ai := range rc.Aggregate.Authors {
		author := &rc.Aggregate.Authors[ai]
		for mi := range author.Marketplaces {
			mkt := &author.Marketplaces[mi]
			done++
			progress(done, total)

			pushedAt := ""
			if mkt.Signals.PushedAt != nil {
				pushedAt = mkt.Signals.PushedAt.Format(time.RFC3339)
			}
			res := engine.Score(rc.History.Repos[mkt.RepoFullName], mkt.Signals.Stars, pushedAt)

			mkt.Signals.TrendingScore = res.TrendingScore
			mkt.Signals.StarsGained7d = res.StarsGained7d
			mkt.Signals.StarsVelocity = res.StarsVelocity
			mkt.Signals.InsufficientData = res.InsufficientData
			if res.InsufficientData {
				insufficient++
			} else {
				scored++
			}
		}
	}

	return writeArtifact(rc.DataDir(), "trending", map[string]int{
		"scored":       scored,
		"insufficient": insufficient,
	}, rc.Aggregate)
}

func (TrendingStage) Metrics(rc *RunContext) map[string]int {
	scored, insufficient := 0, 0
	if rc.Aggregate != nil {
		for _, a := range rc.Aggregate.Authors {
			for _, m := range a.Marketplaces {
				if m.Signals.InsufficientData {
					insufficient++
				} else {
					scored++
				}
			}
		}
	}
	return map[string]int{"scored": scored, "insufficient": insufficient}
}
