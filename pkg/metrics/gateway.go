package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// GatewayMetrics records calls made to the billing gateway.
type GatewayMetrics struct {
	duration *prometheus.HistogramVec
	requests *prometheus.CounterVec
}

// NewGatewayMetrics registers the gateway metrics on the provided registerer.
func NewGatewayMetrics(reg prometheus.Registerer) *GatewayMetrics {
	if reg == nil {
		return &GatewayMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "recurly_request_duration_seconds",
		Help:    "Duration of billing gateway requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "recurly_requests_total",
		Help: "Billing gateway requests by outcome.",
	}, []string{"operation", "outcome"})
	reg.MustRegister(duration, requests)
	return &GatewayMetrics{
		duration: duration,
		requests: requests,
	}
}

// ObserveRequest records one gateway call.
func (g *GatewayMetrics) ObserveRequest(operation, outcome string, duration time.Duration) {
	if g == nil || g.duration == nil || g.requests == nil {
		return
	}
	op := normalizeLabel(operation)
	g.duration.WithLabelValues(op).Observe(duration.Seconds())
	g.requests.WithLabelValues(op, normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
