package metrics

import (
	"time"

	"gaint-shopify-connector/internal/domain"
	"gaint-shopify-connector/internal/ports"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "connector"

// Metrics is the Prometheus implementation of ports.MetricsRecorder
type Metrics struct {
	validations        *prometheus.CounterVec
	gateRejections     *prometheus.CounterVec
	adminQueryDuration *prometheus.HistogramVec
	activeSessions     prometheus.Gauge
}

var _ ports.MetricsRecorder = (*Metrics)(nil)

// New registers the collectors on reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		validations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "channel_validations_total",
			Help:      "Channel validation attempts by outcome.",
		}, []string{"outcome"}),
		gateRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gate_rejections_total",
			Help:      "Toggle changes rejected because sync settings were locked.",
		}, []string{"field"}),
		adminQueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "admin_query_duration_seconds",
			Help:      "Latency of Shopify Admin GraphQL queries.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"query", "status"}),
		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Admin sessions currently held in memory.",
		}),
	}
}

func (m *Metrics) ObserveAdminQuery(query string, elapsed time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.adminQueryDuration.WithLabelValues(query, status).Observe(elapsed.Seconds())
}

func (m *Metrics) IncValidation(outcome domain.ResultKind) {
	m.validations.WithLabelValues(string(outcome)).Inc()
}

func (m *Metrics) IncGateRejection(field domain.ToggleField) {
	m.gateRejections.WithLabelValues(string(field)).Inc()
}

func (m *Metrics) SetActiveSessions(n int) {
	m.activeSessions.Set(float64(n))
}
