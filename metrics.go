package sqlgate

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// gatewayMetrics holds the Prometheus collectors for one Gateway. Each
// Gateway registers into its own registry so multiple instances in one
// process (common in tests) never collide.
type gatewayMetrics struct {
	registry *prometheus.Registry
	executed *prometheus.CounterVec
	rejected *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newGatewayMetrics() *gatewayMetrics {
	m := &gatewayMetrics{
		registry: prometheus.NewRegistry(),
		executed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sqlgate",
			Name:      "statements_total",
			Help:      "Statements that reached the database, by kind and status.",
		}, []string{"kind", "status"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sqlgate",
			Name:      "rejections_total",
			Help:      "Statements rejected by the policy engine, by rule.",
		}, []string{"rule"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sqlgate",
			Name:      "statement_duration_seconds",
			Help:      "Wall time of the execute/preview pipeline.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"mode"}),
	}
	m.registry.MustRegister(m.executed, m.rejected, m.duration)
	return m
}

func (m *gatewayMetrics) observeExecuted(kind string, success bool, mode string, elapsed time.Duration) {
	status := "ok"
	if !success {
		status = "error"
	}
	m.executed.WithLabelValues(kind, status).Inc()
	m.duration.WithLabelValues(mode).Observe(elapsed.Seconds())
}

func (m *gatewayMetrics) observeRejected(rule string, mode string, elapsed time.Duration) {
	m.rejected.WithLabelValues(rule).Inc()
	m.duration.WithLabelValues(mode).Observe(elapsed.Seconds())
}

// MetricsRegistry returns the gateway's Prometheus registry, for exposing
// through promhttp.
func (g *Gateway) MetricsRegistry() *prometheus.Registry {
	return g.metrics.registry
}
