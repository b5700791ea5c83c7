package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/plugdex/plugdex/pkg/config"
	"github.com/plugdex/plugdex/pkg/market"
)

// newTrendCmd creates the "trend" command. It re-scores the snapshot
// history directly, which makes it a quick way to inspect trending
// behavior without a full crawl.
func newTrendCmd(configPath *string) *cobra.Command {
	var limit int
	var repo string

	cmd := &cobra.Command{
		Use:   "trend",
		Short: "Score trending repositories from the snapshot history",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			path := filepath.Join(cfg.DataDir, "signals.json")
			data, err := os.ReadFile(path)
			if err != nil {
				if os.IsNotExist(err) {
					printError("no snapshot history at %s", path)
					printNextStep("Run a crawl first", "plugdex crawl")
					return fmt.Errorf("no snapshot history")
				}
				return err
			}

			var history market.SignalsHistory
			if err := json.Unmarshal(data, &history); err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}

			engine := market.NewTrendingEngine()
			type scored struct {
				fullName string
				signals  market.TrendingResult
			}
			var rows []scored
			for fullName, snapshots := range history.Repos {
				if repo != "" && fullName != repo {
					continue
				}
				current := 0
				if n := len(snapshots); n > 0 {
					current = snapshots[n-1].Stars
				}
				rows = append(rows, scored{
					fullName: fullName,
					signals:  engine.Score(snapshots, current, ""),
				})
			}

			sort.Slice(rows, func(i, j int) bool {
				if rows[i].signals.TrendingScore != rows[j].signals.TrendingScore {
					return rows[i].signals.TrendingScore > rows[j].signals.TrendingScore
				}
				return rows[i].fullName < rows[j].fullName
			})

			printSuccess("trending scores from %d tracked repositories", len(history.Repos))
			shown := 0
			for _, row := range rows {
				if shown >= limit && repo == "" {
					break
				}
				shown++
				fmt.Println("  " + StyleValue.Render(row.fullName))
				if row.signals.InsufficientData {
					printDetail("insufficient data (needs at least two daily snapshots)")
					continue
				}
				printKeyValue("score", fmt.Sprintf("%.2f", row.signals.TrendingScore))
				printKeyValue("velocity", fmt.Sprintf("%.2f/week", row.signals.StarsVelocity))
				printKeyValue("stars (7d)", formatGain(row.signals.StarsGained7d))
			}
			if shown == 0 {
				printWarning("no matching repositories in the snapshot history")
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "maximum entries to show")
	cmd.Flags().StringVar(&repo, "repo", "", "score a single owner/repo instead of the ranking")
	return cmd
}

func formatGain(n int) string {
	if n > 0 {
		return fmt.Sprintf("+%d", n)
	}
	return fmt.Sprintf("%d", n)
}
