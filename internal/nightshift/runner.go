// Package nightshift runs background maintenance tasks on a schedule:
// session-index repair, screenshot pruning, receipt compaction. Task run
// state lives in a shared JSON state file so the statusline and other
// short-lived processes can report on it without talking to the daemon.
package nightshift

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/oddrun/sidekick/internal/errors"
	"github.com/oddrun/sidekick/internal/txstate"
)

// RunStateFile is the state file recording per-task run history, relative
// to the toolkit home.
const RunStateFile = "nightshift.json"

// RunState is the persisted run history for all tasks.
type RunState struct {
	Tasks map[string]TaskRun `json:"tasks"`
}

// TaskRun records the most recent execution of one task.
type TaskRun struct {
	LastStartedAt  time.Time `json:"last_started_at"`
	LastFinishedAt time.Time `json:"last_finished_at"`
	LastOutcome    string    `json:"last_outcome"`
	LastError      string    `json:"last_error,omitempty"`
	Runs           int       `json:"runs"`
	Failures       int       `json:"failures"`
}

// Task is a named unit of background work.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Runner executes registered tasks and persists their run state.
type Runner struct {
	store   *txstate.Store
	metrics *Metrics
	tasks   map[string]Task
	order   []string
}

// NewRunner creates a runner. metrics may be nil outside daemon mode.
func NewRunner(store *txstate.Store, metrics *Metrics) *Runner {
	return &Runner{
		store:   store,
		metrics: metrics,
		tasks:   make(map[string]Task),
	}
}

// Register adds a task. Names must be unique.
func (r *Runner) Register(task Task) error {
	if task.Name == "" {
		return errors.ScheduleError("", fmt.Errorf("task has no name"))
	}
	if task.Run == nil {
		return errors.ScheduleError(task.Name, fmt.Errorf("task has no run function"))
	}
	if _, ok := r.tasks[task.Name]; ok {
		return errors.ScheduleError(task.Name, fmt.Errorf("task already registered"))
	}
	r.tasks[task.Name] = task
	r.order = append(r.order, task.Name)
	return nil
}

// TaskNames lists registered tasks in registration order.
func (r *Runner) TaskNames() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// RunOnce executes a single task by name and records the outcome.
func (r *Runner) RunOnce(ctx context.Context, name string) error {
	task, ok := r.tasks[name]
	if !ok {
		return errors.ScheduleError(name, fmt.Errorf("unknown task"))
	}

	started := time.Now()
	slog.Info("Running nightshift task", "task", name)
	taskErr := task.Run(ctx)
	finished := time.Now()

	r.metrics.TaskRan(name, finished.Sub(started), taskErr)
	r.recordRun(name, started, finished, taskErr)

	if taskErr != nil {
		slog.Error("Nightshift task failed", "task", name, "error", taskErr)
		return errors.ScheduleError(name, taskErr)
	}
	slog.Info("Nightshift task finished", "task", name, "duration", finished.Sub(started))
	return nil
}

// recordRun persists the outcome. A contended state file must not turn a
// successful task into a failure, so state errors are logged and dropped.
func (r *Runner) recordRun(name string, started, finished time.Time, taskErr error) {
	_, err := txstate.Update(r.store, RunStateFile, RunState{}, func(st RunState) (RunState, error) {
		if st.Tasks == nil {
			st.Tasks = make(map[string]TaskRun)
		}
		run := st.Tasks[name]
		run.LastStartedAt = started
		run.LastFinishedAt = finished
		run.Runs++
		if taskErr != nil {
			run.LastOutcome = "failed"
			run.LastError = taskErr.Error()
			run.Failures++
		} else {
			run.LastOutcome = "ok"
			run.LastError = ""
		}
		st.Tasks[name] = run
		return st, nil
	}, nil)
	if err != nil {
		if txstate.IsLockTimeout(err) {
			r.metrics.LockTimeout()
		}
		slog.Warn("Could not record nightshift run state", "task", name, "error", err)
	}
}
