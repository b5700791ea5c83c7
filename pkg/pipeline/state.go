package pipeline

import "time"

// Status is a stage's position in its lifecycle.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// Run-level statuses.
const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// MetricDelta compares a stage metric between this run and the last
// completed run.
type MetricDelta struct {
	Current  int `json:"current"`
	Previous int `json:"previous"`
}

// StageState is the per-stage bookkeeping owned by the Runner. It is
// reset on every run.
type StageState struct {
	ID          string                 `json:"id"`
	Status      Status                 `json:"status"`
	StartedAt   *time.Time             `json:"started_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	Metrics     map[string]MetricDelta `json:"metrics,omitempty"`
	Error       string                 `json:"error,omitempty"`
}

// RunState is the full run bookkeeping: one StageState per declared
// stage plus run-level status.
type RunState struct {
	RunID       string        `json:"run_id"`
	Status      string        `json:"status"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	Stages      []*StageState `json:"stages"`

	byID map[string]*StageState
}

func newRunState(runID string, stageIDs []string, now time.Time) *RunState {
	st := &RunState{
		RunID:     runID,
		Status:    RunRunning,
		StartedAt: now,
		byID:      make(map[string]*StageState, len(stageIDs)),
	}
	for _, id := range stageIDs {
		s := &StageState{ID: id, Status: StatusPending}
		st.Stages = append(st.Stages, s)
		st.byID[id] = s
	}
	return st
}

func (s *RunState) stage(id string) *StageState { return s.byID[id] }
