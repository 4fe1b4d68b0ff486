package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	OutcomeForwarded   = "forwarded"
	OutcomeFailed      = "failed"
	OutcomeInvalid     = "invalid"
	OutcomeRejected    = "rejected"
	OutcomeUnhandled   = "unhandled"
	OutcomeSkipped     = "skipped"
	OutcomeUnsigned    = "bad_signature"
	OutcomeCreated     = "created"
	OutcomeProcessorKO = "processor_error"
)

// Metrics groups the bridge's collectors.
type Metrics struct {
	Requests  *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec
	Webhooks  *prometheus.CounterVec
	Forwards  *prometheus.CounterVec
	Sessions  *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New registers the collectors on reg. Tests pass a fresh prometheus.NewRegistry().
func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bridge",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"handler", "status"}),
		LatencyMS: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bridge",
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"handler"}),
		Webhooks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bridge",
			Name:      "webhook_events_total",
			Help:      "Webhook deliveries by event type and outcome.",
		}, []string{"event", "outcome"}),
		Forwards: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bridge",
			Name:      "sheet_forwards_total",
			Help:      "Spreadsheet forwards by flow and outcome.",
		}, []string{"flow", "outcome"}),
		Sessions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bridge",
			Name:      "payment_sessions_total",
			Help:      "Payment session creations by flow and outcome.",
		}, []string{"flow", "outcome"}),
		gatherer: reg,
	}
}

// NewNop returns metrics backed by a private registry.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}

// Handler exposes the registry in Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
