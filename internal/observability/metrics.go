package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "planadapt"

// Metrics owns a private registry so several instances (tests) never collide.
// Every method is safe on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	writeLatency   *prometheus.HistogramVec
	writeConflicts *prometheus.CounterVec

	matches        *prometheus.CounterVec
	skippedRecords *prometheus.CounterVec

	aggregationConfidence *prometheus.HistogramVec
	pidOutput             *prometheus.HistogramVec
	gateClamps            *prometheus.CounterVec
	triggers              *prometheus.CounterVec

	overrideTransitions *prometheus.CounterVec
	autoApplyRaces      prometheus.Counter
	notifications       *prometheus.CounterVec

	jobRuns         *prometheus.CounterVec
	jobLatency      *prometheus.HistogramVec
	jobUserFailures *prometheus.CounterVec

	httpInflight prometheus.Gauge
	httpLatency  *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		writeLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "store", Name: "write_seconds",
			Help:    "Transactional write latency by operation and outcome code.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op", "status"}),
		writeConflicts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "store", Name: "write_conflicts_total",
			Help: "Writes rejected by a uniqueness or compare-and-set guard.",
		}, []string{"op"}),
		matches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "matching", Name: "results_total",
			Help: "Logged items scored against the plan, by category and status (unmatched included).",
		}, []string{"category", "status"}),
		skippedRecords: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "matching", Name: "skipped_records_total",
			Help: "Score-zero records written by the skipped-item sweep.",
		}, []string{"category"}),
		aggregationConfidence: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "aggregator", Name: "confidence",
			Help:    "Confidence of aggregated windows by data-quality tier.",
			Buckets: []float64{0, 0.2, 0.4, 0.5, 0.7, 0.9, 1},
		}, []string{"tier"}),
		pidOutput: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "control", Name: "pid_output",
			Help:    "Controller outputs (kcal for calorie, sets for volume).",
			Buckets: []float64{-500, -250, -100, -50, -20, -10, -2, 0, 2, 10, 50, 100, 250, 500},
		}, []string{"controller"}),
		gateClamps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "safety", Name: "clamps_total",
			Help: "Safety gate clamps by rule.",
		}, []string{"rule"}),
		triggers: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "triggers", Name: "fired_total",
			Help: "Daily triggers detected.",
		}, []string{"trigger"}),
		overrideTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "approval", Name: "transitions_total",
			Help: "Day override state transitions by target status.",
		}, []string{"status"}),
		autoApplyRaces: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "approval", Name: "auto_apply_races_total",
			Help: "Grace-period auto-applies that found the override already resolved.",
		}),
		notifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "notify", Name: "sent_total",
			Help: "Notifications by delivery outcome.",
		}, []string{"status"}),
		jobRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "scheduler", Name: "runs_total",
			Help: "Scheduler job runs by job and outcome.",
		}, []string{"job", "status"}),
		jobLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "scheduler", Name: "run_seconds",
			Help:    "Scheduler job wall time.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		}, []string{"job"}),
		jobUserFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "scheduler", Name: "user_failures_total",
			Help: "Per-user failures isolated inside a sweep.",
		}, []string{"job"}),
		httpInflight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "http", Name: "inflight_requests",
			Help: "Ops HTTP requests in flight.",
		}),
		httpLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_seconds",
			Help:    "Ops HTTP latency by method, route and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

// Handler serves the registry in Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveWrite(op, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.writeLatency.WithLabelValues(op, status).Observe(dur.Seconds())
}

func (m *Metrics) IncWriteConflict(op string) {
	if m == nil {
		return
	}
	m.writeConflicts.WithLabelValues(op).Inc()
}

func (m *Metrics) IncMatch(category, status string) {
	if m == nil {
		return
	}
	m.matches.WithLabelValues(category, status).Inc()
}

func (m *Metrics) AddSkippedRecords(category string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.skippedRecords.WithLabelValues(category).Add(float64(n))
}

func (m *Metrics) ObserveAggregation(tier string, confidence float64) {
	if m == nil {
		return
	}
	m.aggregationConfidence.WithLabelValues(tier).Observe(confidence)
}

func (m *Metrics) ObservePIDOutput(controller string, v float64) {
	if m == nil {
		return
	}
	m.pidOutput.WithLabelValues(controller).Observe(v)
}

func (m *Metrics) IncGateClamp(rule string) {
	if m == nil {
		return
	}
	m.gateClamps.WithLabelValues(rule).Inc()
}

func (m *Metrics) IncTrigger(trigger string) {
	if m == nil {
		return
	}
	m.triggers.WithLabelValues(trigger).Inc()
}

func (m *Metrics) IncOverrideTransition(status string) {
	if m == nil {
		return
	}
	m.overrideTransitions.WithLabelValues(status).Inc()
}

func (m *Metrics) IncAutoApplyRace() {
	if m == nil {
		return
	}
	m.autoApplyRaces.Inc()
}

func (m *Metrics) IncNotification(status string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveJob(job, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(job, status).Inc()
	m.jobLatency.WithLabelValues(job).Observe(dur.Seconds())
}

func (m *Metrics) IncJobUserFailure(job string) {
	if m == nil {
		return
	}
	m.jobUserFailures.WithLabelValues(job).Inc()
}

func (m *Metrics) HTTPInflightInc() {
	if m == nil {
		return
	}
	m.httpInflight.Inc()
}

func (m *Metrics) HTTPInflightDec() {
	if m == nil {
		return
	}
	m.httpInflight.Dec()
}

func (m *Metrics) ObserveHTTP(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.httpLatency.WithLabelValues(method, route, status).Observe(dur.Seconds())
}
