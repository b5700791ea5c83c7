package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/plugdex/plugdex/pkg/market"
)

// signalsFile is the durable snapshot history. It lives beside the
// stage artifacts and survives across runs; this stage is its only
// writer.
const signalsFile = "signals.json"

// SignalsStage appends today's star/fork observation for every fetched
// repository to the snapshot history and prunes stale entries. Runs
// concurrently with file fetching; both read rc.Repos, neither writes
// the other's outputs.
type SignalsStage struct{}

func (SignalsStage) ID() string { return "signals" }

func (SignalsStage) Run(ctx context.Context, rc *RunContext, progress Progress) error {
	if err := rc.hydrateRepos(); err != nil {
		return err
	}
	history, err := loadSignals(rc.DataDir())
	if err != nil {
		rc.Logger.Warn("starting a fresh signals history", "err", err)
		history = market.NewSignalsHistory()
	}

	current := make([]market.RepoSignal, 0, len(rc.Repos))
	for name, repo := range rc.Repos {
		current = append(current, market.RepoSignal{
			FullName: name,
			Stars:    repo.Stars,
			Forks:    repo.Forks,
		})
	}
	history.Update(current, time.Now())
	progress(len(current), len(current))

	rc.History = history
	return saveSignals(rc.DataDir(), history)
}

func (SignalsStage) Metrics(rc *RunContext) map[string]int {
	if rc.History == nil {
		return map[string]int{"repositories": 0, "snapshots": 0}
	}
	return map[string]int{
		"repositories": len(rc.History.Repos),
		"snapshots":    rc.History.SnapshotCount,
	}
}

func loadSignals(dataDir string) (*market.SignalsHistory, error) {
	data, err := os.ReadFile(filepath.Join(dataDir, signalsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return market.NewSignalsHistory(), nil
		}
		return nil, err
	}
	var h market.SignalsHistory
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, err
	}
	if h.Repos == nil {
		h.Repos = make(map[string][]market.Snapshot)
	}
	return &h, nil
}

func saveSignals(dataDir string, h *market.SignalsHistory) error {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(filepath.Join(dataDir, signalsFile), data)
}
