package cli

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/plugdex/plugdex/pkg/cache"
	"github.com/plugdex/plugdex/pkg/config"
	"github.com/plugdex/plugdex/pkg/github"
	"github.com/plugdex/plugdex/pkg/observability"
	"github.com/plugdex/plugdex/pkg/pipeline"
)

// newCrawlCmd creates the "crawl" command running the full pipeline.
func newCrawlCmd(configPath *string) *cobra.Command {
	var limit int
	var noCache bool
	var fromStage, onlyStage string

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Run the full discovery → publish pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if limit > 0 {
				cfg.RepoLimit = limit
			}

			c, err := openCache(ctx, cfg, noCache)
			if err != nil {
				return fmt.Errorf("open cache: %w", err)
			}
			defer c.Close()

			client := github.NewClient(cfg.Token, logger)

			spin := newSpinnerWithContext(ctx, "starting crawl")
			observability.SetStageHooks(&spinnerStageHooks{spin: spin})
			defer observability.Reset()
			spin.Start()

			steps, err := pipeline.SelectSteps(pipeline.DefaultSteps(), fromStage, onlyStage)
			if err != nil {
				spin.Stop()
				return err
			}

			p := newProgress(logger)
			rc := pipeline.NewRunContext(cfg, client, c, logger)
			runner := pipeline.NewRunner(steps, cfg.DataDir, logger)

			runErr := runner.Run(ctx, rc)
			spin.Stop()
			if runErr != nil {
				printError("crawl failed: %v", runErr)
				printDetail("report: %s/report.json", cfg.DataDir)
				return runErr
			}

			p.done("crawl completed")
			for _, st := range runner.State().Stages {
				labels := make([]string, 0, len(st.Metrics))
				for label := range st.Metrics {
					labels = append(labels, label)
				}
				sort.Strings(labels)
				for _, label := range labels {
					d := st.Metrics[label]
					printStageStats(st.ID+" "+label, d.Current, d.Previous)
				}
			}
			if rc.Aggregate != nil {
				t := rc.Aggregate.Totals
				printSuccess("published %d authors, %d marketplaces, %d plugins",
					t.TotalAuthors, t.TotalMarketplaces, t.TotalPlugins)
				printDetail("dropped: %d repositories", len(rc.Aggregate.DroppedRepos))
			}
			printFile(cfg.DataDir + "/public/index.json")
			printNextStep("Serve the directory", "plugdex serve")
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "bound the number of repositories (0 = unlimited)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the content cache for this run")
	cmd.Flags().StringVar(&fromStage, "from", "", "start from this stage, reusing earlier artifacts")
	cmd.Flags().StringVar(&onlyStage, "only", "", "run a single stage against existing artifacts")
	return cmd
}

// spinnerStageHooks drives the terminal spinner from stage events.
type spinnerStageHooks struct {
	observability.NoopStageHooks
	spin *Spinner
}

func (h *spinnerStageHooks) OnStageStart(_ context.Context, id string) {
	h.spin.SetMessage("stage " + id)
}

func (h *spinnerStageHooks) OnStageProgress(_ context.Context, id string, current, total int) {
	h.spin.SetProgress(current, total)
}

// openCache builds the configured cache backend.
func openCache(ctx context.Context, cfg *config.Config, disabled bool) (cache.Cache, error) {
	if disabled {
		return cache.NewNullCache(), nil
	}
	switch cfg.CacheBackend {
	case config.CacheBackendNone:
		return cache.NewNullCache(), nil
	case config.CacheBackendRedis:
		return cache.NewRedisCache(ctx, cfg.RedisAddr, 30*24*time.Hour)
	default:
		fc, err := cache.NewFileCache(cfg.CacheDir)
		if err != nil {
			return nil, err
		}
		return cache.NewMemoryCache(fc, 1024)
	}
}
