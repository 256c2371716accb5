// Package metrics exposes Prometheus instrumentation for the scheduler,
// the sync planner and the external tools. Every method is safe to call on a
// nil *Metrics so components can run without instrumentation.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Action outcome labels.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
	StatusPanic  = "panic"
)

// Sync outcome labels.
const (
	SyncUploaded      = "uploaded"
	SyncNothingNew    = "nothing_new"
	SyncListFailed    = "list_failed"
	SyncLoadFailed    = "load_failed"
	SyncUploadFailed  = "upload_failed"
	SyncPersistFailed = "persist_failed"
)

type Metrics struct {
	triggersFired  *prometheus.CounterVec
	actionsTotal   *prometheus.CounterVec
	actionDuration *prometheus.HistogramVec
	syncRuns       *prometheus.CounterVec
	filesUploaded  prometheus.Counter
	syncedFiles    prometheus.Gauge
	toolRuns       *prometheus.CounterVec
	toolDuration   *prometheus.HistogramVec
	lastCycle      prometheus.Gauge
}

// New creates the collectors and registers them with reg
// (prometheus.DefaultRegisterer when reg is nil).
func New(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		triggersFired: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "triggers_fired_total",
				Help:      "Number of scheduler firings by trigger kind",
			},
			[]string{"kind"},
		),
		actionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "actions_total",
				Help:      "Scheduled action executions by trigger kind and outcome",
			},
			[]string{"kind", "status"},
		),
		actionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "action_duration_seconds",
				Help:      "Duration of scheduled actions",
				Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
			},
			[]string{"kind"},
		),
		syncRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sync_runs_total",
				Help:      "Sync planner runs by outcome",
			},
			[]string{"result"},
		),
		filesUploaded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "files_uploaded_total",
				Help:      "Files committed as synced after a successful upload",
			},
		),
		syncedFiles: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "synced_files",
				Help:      "Number of paths recorded as synced",
			},
		),
		toolRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tool_runs_total",
				Help:      "External tool invocations by tool and outcome",
			},
			[]string{"tool", "status"},
		),
		toolDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "tool_duration_seconds",
				Help:      "Duration of external tool invocations",
				Buckets:   []float64{.5, 1, 5, 15, 30, 60, 300, 900, 1800, 3600},
			},
			[]string{"tool"},
		),
		lastCycle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_successful_cycle_timestamp_seconds",
				Help:      "Unix time of the last pipeline cycle that finished without error",
			},
		),
	}

	reg.MustRegister(
		m.triggersFired,
		m.actionsTotal,
		m.actionDuration,
		m.syncRuns,
		m.filesUploaded,
		m.syncedFiles,
		m.toolRuns,
		m.toolDuration,
		m.lastCycle,
	)

	return m
}

func (m *Metrics) RecordTrigger(kind string) {
	if m == nil {
		return
	}
	m.triggersFired.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordAction(kind, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.actionsTotal.WithLabelValues(kind, status).Inc()
	m.actionDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordSync counts a planner run; uploaded is only added for SyncUploaded.
func (m *Metrics) RecordSync(result string, uploaded int) {
	if m == nil {
		return
	}
	m.syncRuns.WithLabelValues(result).Inc()
	if result == SyncUploaded {
		m.filesUploaded.Add(float64(uploaded))
	}
}

func (m *Metrics) SetSyncedFiles(n int) {
	if m == nil {
		return
	}
	m.syncedFiles.Set(float64(n))
}

func (m *Metrics) RecordTool(tool, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.toolRuns.WithLabelValues(tool, status).Inc()
	m.toolDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

func (m *Metrics) MarkCycleSucceeded(at time.Time) {
	if m == nil {
		return
	}
	m.lastCycle.Set(float64(at.Unix()))
}
