// Package metrics exposes Prometheus counters for the payment flow and the
// notification worker.  A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	PaymentsInitiated *prometheus.CounterVec
	PaymentsVerified  *prometheus.CounterVec
	GatewayLatencyMS  *prometheus.HistogramVec
	Jobs              *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.  Tests pass a
// fresh prometheus.NewRegistry() to avoid clashing with the default one.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PaymentsInitiated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "travel",
			Subsystem: "payments",
			Name:      "initiated_total",
			Help:      "Payment initiations by result.",
		}, []string{"result"}),
		PaymentsVerified: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "travel",
			Subsystem: "payments",
			Name:      "verified_total",
			Help:      "Payment verifications by result.",
		}, []string{"result"}),
		GatewayLatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "travel",
			Subsystem: "gateway",
			Name:      "request_duration_ms",
			Help:      "Payment gateway call latency in milliseconds.",
			Buckets:   []float64{25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}, []string{"op"}),
		Jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "travel",
			Subsystem: "notifications",
			Name:      "jobs_total",
			Help:      "Notification job attempts by kind and outcome.",
		}, []string{"kind", "outcome"}),
	}
	reg.MustRegister(m.PaymentsInitiated, m.PaymentsVerified, m.GatewayLatencyMS, m.Jobs)
	return m
}

func (m *Metrics) PaymentInitiated(result string) {
	if m != nil {
		m.PaymentsInitiated.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) PaymentVerified(result string) {
	if m != nil {
		m.PaymentsVerified.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) ObserveGateway(op string, since time.Time) {
	if m != nil {
		m.GatewayLatencyMS.WithLabelValues(op).Observe(float64(time.Since(since).Milliseconds()))
	}
}

func (m *Metrics) JobFinished(kind, outcome string) {
	if m != nil {
		m.Jobs.WithLabelValues(kind, outcome).Inc()
	}
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
