package nightshift

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/oddrun/sidekick/internal/config"
	"github.com/oddrun/sidekick/internal/errors"
)

// Daemon ties the scheduler, the optional metrics listener, and the
// optional config watcher together for long-running mode.
type Daemon struct {
	configPath string
	runner     *Runner
	metrics    *Metrics

	mu         sync.Mutex
	cfg        *config.Config
	scheduler  *Scheduler
	watcher    *ConfigWatcher
	metricsSrv *http.Server
}

// NewDaemon creates a daemon. metrics may be nil to disable the listener.
func NewDaemon(cfg *config.Config, configPath string, runner *Runner, metrics *Metrics) *Daemon {
	return &Daemon{
		configPath: configPath,
		runner:     runner,
		metrics:    metrics,
		cfg:        cfg,
	}
}

// Run starts everything and blocks until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return d.stop()
}

func (d *Daemon) start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.startScheduler(d.cfg); err != nil {
		return err
	}

	if addr := d.cfg.Nightshift.MetricsAddr; addr != "" && d.metrics != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", d.metrics.Handler())
		d.metricsSrv = &http.Server{Addr: addr, Handler: mux}
		go func() {
			slog.Info("Serving nightshift metrics", "addr", addr)
			if err := d.metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("Metrics listener failed", "error", err)
			}
		}()
	}

	if d.cfg.Nightshift.WatchConfig {
		watcher, err := NewConfigWatcher(d.configPath, d.applyConfig)
		if err != nil {
			return errors.ScheduleError("config-watcher", err)
		}
		if err := watcher.Start(ctx); err != nil {
			return errors.ScheduleError("config-watcher", err)
		}
		d.watcher = watcher
	}
	return nil
}

// startScheduler replaces the current scheduler with one built from cfg.
// Caller holds d.mu.
func (d *Daemon) startScheduler(cfg *config.Config) error {
	scheduler, err := NewScheduler(d.runner)
	if err != nil {
		return err
	}
	for _, tc := range cfg.Nightshift.Tasks {
		if err := scheduler.Add(tc); err != nil {
			// An unknown or broken task entry should not take the whole
			// daemon down.
			slog.Warn("Skipping nightshift task", "task", tc.Name, "error", err)
		}
	}
	scheduler.Start()
	d.scheduler = scheduler
	d.cfg = cfg
	return nil
}

// applyConfig swaps in a new schedule after a config reload.
func (d *Daemon) applyConfig(newCfg *config.Config) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.scheduler != nil {
		if err := d.scheduler.Stop(); err != nil {
			slog.Warn("Error stopping scheduler during reload", "error", err)
		}
	}
	return d.startScheduler(newCfg)
}

func (d *Daemon) stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.watcher != nil {
		if err := d.watcher.Stop(); err != nil {
			slog.Warn("Error stopping config watcher", "error", err)
		}
	}
	if d.metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := d.metricsSrv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("Error stopping metrics listener", "error", err)
		}
	}
	if d.scheduler != nil {
		return d.scheduler.Stop()
	}
	return nil
}
