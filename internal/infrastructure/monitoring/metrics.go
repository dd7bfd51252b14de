package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/gatewarden/gatewarden/pkg/constants"
)

// Metrics manages the engine's Prometheus metrics. It implements
// service.EngineMetrics and alert.DispatchRecorder.
type Metrics struct {
	Decisions       *prometheus.CounterVec
	DecisionLatency *prometheus.HistogramVec
	RuleTriggers    *prometheus.CounterVec
	FallbackQueries *prometheus.CounterVec
	CacheRefreshes  *prometheus.CounterVec
	AlertDispatches *prometheus.CounterVec
	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
}

// NewMetrics creates and registers the Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		Decisions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatewarden_decisions_total",
				Help: "Total request decisions by status and trigger path.",
			},
			[]string{"status", "path"},
		),
		DecisionLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gatewarden_decision_latency_seconds",
				Help:    "Latency of the decision pipeline.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"status"},
		),
		RuleTriggers: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatewarden_rule_triggers_total",
				Help: "Total rule triggers by rule name and trigger path.",
			},
			[]string{"rule", "path"},
		),
		FallbackQueries: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatewarden_fallback_queries_total",
				Help: "Total durable counter fallback queries by result.",
			},
			[]string{"result"},
		),
		CacheRefreshes: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatewarden_cache_refreshes_total",
				Help: "Total cache refreshes by cache name.",
			},
			[]string{"cache"},
		),
		AlertDispatches: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatewarden_alert_dispatches_total",
				Help: "Total alert webhook deliveries by result.",
			},
			[]string{"result"},
		),
		HTTPRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatewarden_http_requests_total",
				Help: "Total HTTP requests by method, route template and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gatewarden_http_request_duration_seconds",
				Help:    "HTTP request duration by method and route template.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}

// RecordDecision records a decision outcome and its latency.
func (m *Metrics) RecordDecision(status constants.DecisionStatus, path constants.TriggerPath, duration time.Duration) {
	m.Decisions.WithLabelValues(string(status), string(path)).Inc()
	m.DecisionLatency.WithLabelValues(string(status)).Observe(duration.Seconds())
}

// RecordRuleTrigger records a rule trigger.
func (m *Metrics) RecordRuleTrigger(ruleName string, path constants.TriggerPath) {
	m.RuleTriggers.WithLabelValues(ruleName, string(path)).Inc()
}

// RecordFallbackQuery records a durable fallback query outcome.
func (m *Metrics) RecordFallbackQuery(success bool) {
	m.FallbackQueries.WithLabelValues(resultLabel(success)).Inc()
}

// RecordCacheRefresh records a cache refresh.
func (m *Metrics) RecordCacheRefresh(cache string) {
	m.CacheRefreshes.WithLabelValues(cache).Inc()
}

// RecordAlertDispatch records an alert delivery outcome.
func (m *Metrics) RecordAlertDispatch(success bool) {
	m.AlertDispatches.WithLabelValues(resultLabel(success)).Inc()
}

func resultLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
