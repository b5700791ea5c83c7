package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// metricsFile persists the metric values of the last completed run.
// Stage metrics compare against this snapshot rather than against
// whatever artifacts happen to be on disk, so a partially regenerated
// data directory cannot skew the comparison.
const metricsFile = "metrics.json"

type metricsSnapshot struct {
	RunID       string                    `json:"run_id"`
	CompletedAt time.Time                 `json:"completed_at"`
	Stages      map[string]map[string]int `json:"stages"`
}

func loadMetrics(dataDir string) metricsSnapshot {
	snap := metricsSnapshot{Stages: make(map[string]map[string]int)}
	data, err := os.ReadFile(filepath.Join(dataDir, metricsFile))
	if err != nil {
		return snap
	}
	if err := json.Unmarshal(data, &snap); err != nil || snap.Stages == nil {
		return metricsSnapshot{Stages: make(map[string]map[string]int)}
	}
	return snap
}

// saveMetrics writes the snapshot. Called only after a fully completed
// run; a failed run leaves the previous snapshot in place.
func saveMetrics(dataDir string, snap metricsSnapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(filepath.Join(dataDir, metricsFile), data)
}

func (m metricsSnapshot) previous(stageID string) map[string]int {
	return m.Stages[stageID]
}
