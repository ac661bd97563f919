package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Courier request outcomes.
const (
	OutcomeOK          = "ok"
	OutcomeRejected    = "rejected"
	OutcomeUnavailable = "unavailable"
	OutcomeFallback    = "fallback"
)

// CourierMetrics counts outbound courier calls per operation and outcome.
type CourierMetrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// NewCourierMetrics registers the courier metrics on the provided registerer.
func NewCourierMetrics(reg prometheus.Registerer) *CourierMetrics {
	if reg == nil {
		return &CourierMetrics{}
	}
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "courier_requests_total",
		Help: "Outbound courier API calls by operation and outcome.",
	}, []string{"operation", "outcome"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "courier_request_duration_seconds",
		Help:    "Latency of outbound courier API calls.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	reg.MustRegister(requests, latency)
	return &CourierMetrics{requests: requests, latency: latency}
}

// Observe records one courier call.
func (c *CourierMetrics) Observe(operation, outcome string, took time.Duration) {
	if c == nil || c.requests == nil {
		return
	}
	c.requests.WithLabelValues(normalizeLabel(operation), outcome).Inc()
	c.latency.WithLabelValues(normalizeLabel(operation)).Observe(took.Seconds())
}

// IncFallback records that a rate quote was served from the static table.
func (c *CourierMetrics) IncFallback(operation string) {
	if c == nil || c.requests == nil {
		return
	}
	c.requests.WithLabelValues(normalizeLabel(operation), OutcomeFallback).Inc()
}
