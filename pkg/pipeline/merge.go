package pipeline

import (
	"context"

	"github.com/plugdex/plugdex/pkg/market"
)

// MergeStage folds the fetched datasets into the author aggregate.
type MergeStage struct{}

func (MergeStage) ID() string { return "merge" }

func (MergeStage) Run(ctx context.Context, rc *RunContext, progress Progress) error {
	if err := rc.hydrateDiscovered(); err != nil {
		return err
	}
	if err := rc.hydrateRepos(); err != nil {
		return err
	}
	if err := rc.hydrateParsed(); err != nil {
		return err
	}

	engine := market.NewMergeEngine(market.DefaultCategoryRules, rc.Logger)
	rc.Aggregate = engine.Merge(market.MergeInput{
		Discovered: rc.Discovered,
		Repos:      rc.Repos,
		Owners:     rc.Owners,
		Manifests:  rc.Manifests,
		Components: rc.Components,
		Drops:      rc.Drops(),
	})
	progress(len(rc.Discovered), len(rc.Discovered))

	return writeArtifact(rc.DataDir(), "merge", mergeCounts(rc.Aggregate), rc.Aggregate)
}

func (MergeStage) Metrics(rc *RunContext) map[string]int {
	return mergeCounts(rc.Aggregate)
}

func mergeCounts(agg *market.Aggregate) map[string]int {
	if agg == nil {
		return map[string]int{}
	}
	return map[string]int{
		"authors":      agg.Totals.TotalAuthors,
		"marketplaces": agg.Totals.TotalMarketplaces,
		"plugins":      agg.Totals.TotalPlugins,
		"dropped":      len(agg.DroppedRepos),
	}
}
