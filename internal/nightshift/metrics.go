package nightshift

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes nightshift counters on a private registry. All methods
// are safe on a nil receiver so run-once mode can skip metrics entirely.
type Metrics struct {
	registry     *prom.Registry
	runs         *prom.CounterVec
	duration     *prom.HistogramVec
	lockTimeouts prom.Counter
	lastRun      *prom.GaugeVec
}

// NewMetrics constructs and registers the nightshift metrics.
func NewMetrics(reg *prom.Registry) *Metrics {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	m := &Metrics{registry: reg}
	m.runs = prom.NewCounterVec(prom.CounterOpts{
		Namespace: "sidekick",
		Name:      "nightshift_runs_total",
		Help:      "Task runs by outcome",
	}, []string{"task", "outcome"})
	m.duration = prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: "sidekick",
		Name:      "nightshift_task_duration_seconds",
		Help:      "Duration of task executions",
		Buckets:   prom.DefBuckets,
	}, []string{"task"})
	m.lockTimeouts = prom.NewCounter(prom.CounterOpts{
		Namespace: "sidekick",
		Name:      "nightshift_state_lock_timeouts_total",
		Help:      "Run-state updates abandoned because the state file stayed locked",
	})
	m.lastRun = prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "sidekick",
		Name:      "nightshift_last_run_timestamp_seconds",
		Help:      "Unix time of the most recent run per task",
	}, []string{"task"})
	reg.MustRegister(m.runs, m.duration, m.lockTimeouts, m.lastRun)
	return m
}

func (m *Metrics) TaskRan(task string, d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "failed"
	}
	m.runs.WithLabelValues(task, outcome).Inc()
	m.duration.WithLabelValues(task).Observe(d.Seconds())
	m.lastRun.WithLabelValues(task).SetToCurrentTime()
}

func (m *Metrics) LockTimeout() {
	if m == nil {
		return
	}
	m.lockTimeouts.Inc()
}

// Handler serves the registry for the daemon's metrics listener.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
