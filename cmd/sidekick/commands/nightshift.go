package commands

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/oddrun/sidekick/internal/hooks"
	"github.com/oddrun/sidekick/internal/nightshift"
	"github.com/oddrun/sidekick/internal/skills/shots"
)

// NightshiftCmd groups the background maintenance entry points.
type NightshiftCmd struct {
	Daemon  NightshiftDaemonCmd  `cmd:"" help:"Run the nightshift scheduler until interrupted"`
	RunOnce NightshiftRunOnceCmd `cmd:"" name:"run-once" help:"Execute a single task and exit"`
}

// buildRunner registers the standard maintenance tasks.
func buildRunner(g *Global, metrics *nightshift.Metrics) (*nightshift.Runner, error) {
	runner := nightshift.NewRunner(g.Store, metrics)

	err := runner.Register(nightshift.Task{
		Name: "session-repair",
		Run: func(ctx context.Context) error {
			index, err := g.openIndex()
			if err != nil {
				return err
			}
			defer index.Close() //nolint:errcheck

			report, err := index.Repair(ctx, g.Cfg.Sessions.TranscriptDir)
			if err != nil {
				return err
			}
			slog.Info("Session index repaired",
				"scanned", report.Scanned, "added", report.Added,
				"updated", report.Updated, "pruned", report.Pruned,
				"corrupt_lines", report.CorruptLines)
			return nil
		},
	})
	if err != nil {
		return nil, err
	}

	err = runner.Register(nightshift.Task{
		Name: "shots-prune",
		Run: func(context.Context) error {
			lib := shots.NewLibrary(g.Store, g.Cfg.Skills.Shots.Dir)
			removed, err := lib.Prune(g.Cfg.Skills.Shots.Retention.Std())
			if err != nil {
				return err
			}
			slog.Info("Screenshot library pruned", "removed", removed)
			return nil
		},
	})
	if err != nil {
		return nil, err
	}

	err = runner.Register(nightshift.Task{
		Name: "receipts-compact",
		Run: func(context.Context) error {
			log := hooks.NewReceiptLog(g.Store, g.Cfg.StatePath(g.Cfg.Hooks.ReceiptsFile), g.Cfg.Hooks.MaxReceipts)
			dropped, err := log.Compact()
			if err != nil {
				return err
			}
			slog.Info("Receipt log compacted", "dropped", dropped)
			return nil
		},
	})
	if err != nil {
		return nil, err
	}

	return runner, nil
}

// NightshiftDaemonCmd runs the scheduler, metrics listener, and config
// watcher until interrupted.
type NightshiftDaemonCmd struct{}

func (cmd *NightshiftDaemonCmd) Run(g *Global) error {
	metrics := nightshift.NewMetrics(nil)
	runner, err := buildRunner(g, metrics)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	daemon := nightshift.NewDaemon(g.Cfg, g.ConfigPath, runner, metrics)
	return daemon.Run(ctx)
}

// NightshiftRunOnceCmd executes one task, for cron entries and hooks.
type NightshiftRunOnceCmd struct {
	Task string `arg:"" help:"Task name (session-repair, shots-prune, receipts-compact)"`
}

func (cmd *NightshiftRunOnceCmd) Run(g *Global) error {
	runner, err := buildRunner(g, nil)
	if err != nil {
		return err
	}
	return runner.RunOnce(context.Background(), cmd.Task)
}
