package pipeline

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/plugdex/plugdex/pkg/observability"
)

// Progress reports incremental stage progress as (current, total).
type Progress func(current, total int)

// Stage is one named, ordered unit of the pipeline.
//
// Run reads its inputs from the RunContext (or from its predecessor's
// artifact when the context field is empty) and writes its outputs
// back. Metrics returns the stage's summary counts after a successful
// run; the runner pairs them with the last completed run's values.
type Stage interface {
	ID() string
	Run(ctx context.Context, rc *RunContext, progress Progress) error
	Metrics(rc *RunContext) map[string]int
}

// Step is one slot in the stage order: a single stage, or a group of
// stages that run concurrently.
type Step struct {
	Stages []Stage
}

// Sequential wraps a single stage as a step.
func Sequential(s Stage) Step { return Step{Stages: []Stage{s}} }

// Parallel groups stages into one concurrent step. The step completes
// only when every member reaches a terminal state; any member failure
// fails the step, but siblings are allowed to finish first.
func Parallel(stages ...Stage) Step { return Step{Stages: stages} }

// Runner executes a declared stage order against a shared RunContext.
type Runner struct {
	steps   []Step
	dataDir string
	logger  *log.Logger

	mu    sync.Mutex
	state *RunState
	prev  metricsSnapshot
}

// NewRunner creates a runner for the given steps. logger may be nil.
func NewRunner(steps []Step, dataDir string, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Runner{steps: steps, dataDir: dataDir, logger: logger}
}

// State returns the current run state. Valid during and after Run.
func (r *Runner) State() *RunState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Run executes the pipeline. The first stage failure outside a parallel
// group aborts the run; inside a group, siblings finish before the
// group's failure is raised. A terminal report is written in every
// outcome.
func (r *Runner) Run(ctx context.Context, rc *RunContext) error {
	var ids []string
	for _, step := range r.steps {
		for _, s := range step.Stages {
			ids = append(ids, s.ID())
		}
	}

	r.mu.Lock()
	r.state = newRunState(uuid.NewString(), ids, time.Now())
	r.prev = loadMetrics(r.dataDir)
	runID := r.state.RunID
	r.mu.Unlock()

	r.logger.Info("run started", "run_id", runID, "stages", len(ids))
	r.publishReport()

	for _, step := range r.steps {
		var err error
		if len(step.Stages) == 1 {
			err = r.runStage(ctx, step.Stages[0], rc)
		} else {
			err = r.runGroup(ctx, step.Stages, rc)
		}
		if err != nil {
			r.finish(RunFailed)
			return err
		}
	}

	if err := r.saveCompletedMetrics(); err != nil {
		r.logger.Warn("could not persist metrics snapshot", "err", err)
	}
	r.finish(RunCompleted)
	return nil
}

// runGroup runs stages concurrently and waits for all of them. The
// errgroup deliberately has no derived context: a sibling failure must
// not cancel the others mid-flight.
func (r *Runner) runGroup(ctx context.Context, stages []Stage, rc *RunContext) error {
	var g errgroup.Group
	for _, s := range stages {
		s := s
		g.Go(func() error {
			return r.runStage(ctx, s, rc)
		})
	}
	return g.Wait()
}

func (r *Runner) runStage(ctx context.Context, s Stage, rc *RunContext) error {
	id := s.ID()
	r.transition(id, func(st *StageState) {
		now := time.Now()
		st.Status = StatusRunning
		st.StartedAt = &now
	})
	observability.Stage().OnStageStart(ctx, id)
	r.logger.Info("stage started", "stage", id)

	progress := func(current, total int) {
		observability.Stage().OnStageProgress(ctx, id, current, total)
	}

	start := time.Now()
	err := s.Run(ctx, rc, progress)
	elapsed := time.Since(start)

	if err != nil {
		r.transition(id, func(st *StageState) {
			now := time.Now()
			st.Status = StatusError
			st.CompletedAt = &now
			st.Error = err.Error()
		})
		observability.Stage().OnStageComplete(ctx, id, elapsed, err)
		r.logger.Error("stage failed", "stage", id, "err", err)
		return fmt.Errorf("stage %s: %w", id, err)
	}

	current := s.Metrics(rc)
	r.transition(id, func(st *StageState) {
		now := time.Now()
		st.Status = StatusCompleted
		st.CompletedAt = &now
		st.Metrics = deltas(current, r.prev.previous(id))
	})
	observability.Stage().OnStageComplete(ctx, id, elapsed, nil)
	r.logger.Info("stage completed", "stage", id, "duration", elapsed)
	return nil
}

// transition applies a state mutation under lock and re-materializes
// the report. Every stage transition produces a fresh report.
func (r *Runner) transition(stageID string, mutate func(*StageState)) {
	r.mu.Lock()
	mutate(r.state.stage(stageID))
	r.mu.Unlock()
	r.publishReport()
}

func (r *Runner) finish(status string) {
	r.mu.Lock()
	now := time.Now()
	r.state.Status = status
	r.state.CompletedAt = &now
	runID := r.state.RunID
	r.mu.Unlock()
	r.publishReport()

	if status == RunCompleted {
		r.logger.Info("run completed", "run_id", runID)
	} else {
		r.logger.Error("run failed", "run_id", runID)
	}
}

func (r *Runner) publishReport() {
	r.mu.Lock()
	rep := renderReport(r.state, time.Now())
	r.mu.Unlock()
	if err := writeReport(r.dataDir, rep); err != nil {
		r.logger.Warn("could not write report", "err", err)
	}
}

// saveCompletedMetrics snapshots this run's stage metrics for the next
// run's comparisons.
func (r *Runner) saveCompletedMetrics() error {
	r.mu.Lock()
	snap := metricsSnapshot{
		RunID:       r.state.RunID,
		CompletedAt: time.Now(),
		Stages:      make(map[string]map[string]int, len(r.state.Stages)),
	}
	for _, st := range r.state.Stages {
		if len(st.Metrics) == 0 {
			continue
		}
		vals := make(map[string]int, len(st.Metrics))
		for label, d := range st.Metrics {
			vals[label] = d.Current
		}
		snap.Stages[st.ID] = vals
	}
	r.mu.Unlock()
	return saveMetrics(r.dataDir, snap)
}

func deltas(current, previous map[string]int) map[string]MetricDelta {
	out := make(map[string]MetricDelta, len(current))
	for label, v := range current {
		out[label] = MetricDelta{Current: v, Previous: previous[label]}
	}
	return out
}
