package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// reportFile is the status document re-materialized after every stage
// transition. It is a pure rendering of RunState; writing it never
// touches pipeline data.
const reportFile = "report.json"

// Report is the on-disk status document.
type Report struct {
	RunID       string        `json:"run_id"`
	Status      string        `json:"status"`
	GeneratedAt time.Time     `json:"generated_at"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	AutoRefresh bool          `json:"auto_refresh"`
	Stages      []StageReport `json:"stages"`
}

// StageReport is one stage's slice of the report.
type StageReport struct {
	ID         string                 `json:"id"`
	Status     Status                 `json:"status"`
	DurationMS int64                  `json:"duration_ms,omitempty"`
	Metrics    map[string]MetricDelta `json:"metrics,omitempty"`
	Error      string                 `json:"error,omitempty"`
}

// renderReport builds a Report from run state. Terminal runs are marked
// non-auto-refreshing so a viewer stops polling.
func renderReport(state *RunState, now time.Time) Report {
	rep := Report{
		RunID:       state.RunID,
		Status:      state.Status,
		GeneratedAt: now,
		StartedAt:   state.StartedAt,
		CompletedAt: state.CompletedAt,
		AutoRefresh: state.Status == RunRunning,
	}
	for _, st := range state.Stages {
		sr := StageReport{
			ID:      st.ID,
			Status:  st.Status,
			Metrics: st.Metrics,
			Error:   st.Error,
		}
		if st.StartedAt != nil && st.CompletedAt != nil {
			sr.DurationMS = st.CompletedAt.Sub(*st.StartedAt).Milliseconds()
		}
		rep.Stages = append(rep.Stages, sr)
	}
	return rep
}

func writeReport(dataDir string, rep Report) error {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(filepath.Join(dataDir, reportFile), data)
}

// writeFileAtomic writes via a temp file and rename so a reader never
// sees a half-written document.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
