package nightshift

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-co-op/gocron/v2"

	"github.com/oddrun/sidekick/internal/config"
	"github.com/oddrun/sidekick/internal/errors"
)

// Scheduler drives the runner from the configured task schedules.
type Scheduler struct {
	scheduler gocron.Scheduler
	runner    *Runner
}

// NewScheduler wraps a gocron scheduler around the runner.
func NewScheduler(runner *Runner) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, errors.ScheduleError("", fmt.Errorf("create scheduler: %w", err))
	}
	return &Scheduler{scheduler: s, runner: runner}, nil
}

// Add schedules one configured task. Disabled tasks are skipped silently.
func (s *Scheduler) Add(tc config.TaskConfig) error {
	if tc.Disabled {
		slog.Debug("Nightshift task disabled", "task", tc.Name)
		return nil
	}
	if _, ok := s.runner.tasks[tc.Name]; !ok {
		return errors.ScheduleError(tc.Name, fmt.Errorf("no such task registered"))
	}

	var def gocron.JobDefinition
	switch {
	case tc.Cron != "":
		def = gocron.CronJob(tc.Cron, false)
	case tc.Every > 0:
		def = gocron.DurationJob(tc.Every.Std())
	default:
		return errors.ScheduleError(tc.Name, fmt.Errorf("no schedule configured"))
	}

	_, err := s.scheduler.NewJob(
		def,
		gocron.NewTask(s.execute, tc.Name),
		gocron.WithName(tc.Name),
	)
	if err != nil {
		return errors.ScheduleError(tc.Name, err)
	}
	return nil
}

func (s *Scheduler) execute(name string) {
	// RunOnce already logs failures and records run state.
	_ = s.runner.RunOnce(context.Background(), name)
}

// Start begins executing scheduled jobs.
func (s *Scheduler) Start() {
	slog.Info("Starting nightshift scheduler")
	s.scheduler.Start()
}

// Stop shuts the scheduler down, waiting for running jobs.
func (s *Scheduler) Stop() error {
	slog.Info("Stopping nightshift scheduler")
	return s.scheduler.Shutdown()
}
