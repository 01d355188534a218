// Package metrics collects run metrics and pushes them to a Prometheus Pushgateway.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// JobName is the Pushgateway job label.
const JobName = "github_timeline"

// DefaultPushTimeout bounds a push when no timeout is given.
const DefaultPushTimeout = 10 * time.Second

// Failure kinds for FetchFailures.
const (
	KindCompare = "compare"
	KindStats   = "commit_stats"
	KindCache   = "stats_cache"
)

// Summary outcomes for Summaries.
const (
	StatusGenerated = "generated"
	StatusFailed    = "failed"
	StatusSkipped   = "skipped"
)

// Metrics holds the collectors of a single run on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	Events          *prometheus.CounterVec
	Commits         prometheus.Counter
	FetchFailures   *prometheus.CounterVec
	Summaries       *prometheus.CounterVec
	HistoryWrites   prometheus.Counter
	RunDuration     prometheus.Gauge
	LastSuccessTime prometheus.Gauge
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "timeline_events_total",
			Help: "Events read from the GitHub feed, by type",
		}, []string{"type"}),
		Commits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "timeline_commits_total",
			Help: "Commits attributed to a day",
		}),
		FetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "timeline_fetch_failures_total",
			Help: "Recoverable per-item fetch failures",
		}, []string{"kind"}),
		Summaries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "timeline_summaries_total",
			Help: "Days processed by the summarizer, by outcome",
		}, []string{"status"}),
		HistoryWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "timeline_history_writes_total",
			Help: "Writes of the timeline file",
		}),
		RunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "timeline_run_duration_seconds",
			Help: "Duration of the last run",
		}),
		LastSuccessTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "timeline_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run",
		}),
	}
	m.registry.MustRegister(
		m.Events,
		m.Commits,
		m.FetchFailures,
		m.Summaries,
		m.HistoryWrites,
		m.RunDuration,
		m.LastSuccessTime,
	)
	return m
}

// Registry exposes the private registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRun records the duration of a run that started at start, and its success time.
func (m *Metrics) ObserveRun(start time.Time, success bool) {
	m.RunDuration.Set(time.Since(start).Seconds())
	if success {
		m.LastSuccessTime.SetToCurrentTime()
	}
}

// Push sends every collector to the Pushgateway at url within timeout. An empty url is a no-op.
func (m *Metrics) Push(url, instance string, timeout time.Duration) error {
	if url == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = DefaultPushTimeout
	}
	pusher := push.New(url, JobName).
		Gatherer(m.registry).
		Client(&http.Client{Timeout: timeout})
	if instance != "" {
		pusher = pusher.Grouping("instance", instance)
	}
	if err := pusher.Push(); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", url, err)
	}
	return nil
}
