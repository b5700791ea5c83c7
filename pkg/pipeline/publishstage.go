package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/plugdex/plugdex/pkg/publish"
)

// publicDir is where the browse documents land under the data
// directory.
const publicDir = "public"

// PublishStage writes the final browse documents and runs the
// completeness check over the whole run.
type PublishStage struct {
	written int
}

func (*PublishStage) ID() string { return "publish" }

func (p *PublishStage) Run(ctx context.Context, rc *RunContext, progress Progress) error {
	if err := rc.hydrateDiscovered(); err != nil {
		return err
	}
	if rc.Aggregate == nil {
		if err := requireArtifact(rc.DataDir(), "trending", &rc.Aggregate); err != nil {
			return err
		}
	}

	writer := publish.NewWriter(filepath.Join(rc.DataDir(), publicDir), rc.Logger)
	written, err := writer.WriteAll(rc.Aggregate)
	if err != nil {
		return err
	}
	p.written = written
	progress(written, written)

	for _, v := range publish.CheckConsistency(rc.Discovered, rc.Aggregate) {
		rc.Logger.Warn("consistency violation", "detail", v)
	}
	return nil
}

func (p *PublishStage) Metrics(rc *RunContext) map[string]int {
	m := map[string]int{"documents": p.written}
	if rc.Aggregate != nil {
		m["authors"] = rc.Aggregate.Totals.TotalAuthors
		m["plugins"] = rc.Aggregate.Totals.TotalPlugins
	}
	return m
}

// DefaultSteps is the production stage order. File fetching and signal
// recording share only read access to the repo set, so they run as one
// parallel group.
func DefaultSteps() []Step {
	return []Step{
		Sequential(DiscoverStage{}),
		Sequential(FetchReposStage{}),
		Sequential(FetchTreesStage{}),
		Parallel(FetchFilesStage{}, SignalsStage{}),
		Sequential(ParseStage{}),
		Sequential(MergeStage{}),
		Sequential(TrendingStage{}),
		Sequential(&PublishStage{}),
	}
}

// SelectSteps narrows a stage order for partial runs. from drops every
// step before the one containing that stage; only reduces the order to
// that single stage. Skipped stages are reconstructed from their
// predecessors' artifacts, so a partial run needs a prior run's data
// directory. Both empty returns steps unchanged.
func SelectSteps(steps []Step, from, only string) ([]Step, error) {
	if only != "" {
		for _, step := range steps {
			for _, s := range step.Stages {
				if s.ID() == only {
					return []Step{Sequential(s)}, nil
				}
			}
		}
		return nil, fmt.Errorf("unknown stage %q", only)
	}
	if from != "" {
		for i, step := range steps {
			for _, s := range step.Stages {
				if s.ID() == from {
					return steps[i:], nil
				}
			}
		}
		return nil, fmt.Errorf("unknown stage %q", from)
	}
	return steps, nil
}
