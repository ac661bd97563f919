package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OutboxMetrics tracks what the publisher did with each outbox row.
type OutboxMetrics struct {
	outcomes *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wolf_outbox_events_total",
		Help: "Outbox rows handled by the publisher, by event type and outcome.",
	}, []string{"event_type", "outcome"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wolf_outbox_publish_duration_seconds",
		Help:    "Time spent waiting for Pub/Sub to acknowledge a publish.",
		Buckets: prometheus.DefBuckets,
	}, []string{"topic"})
	reg.MustRegister(outcomes, latency)
	return &OutboxMetrics{outcomes: outcomes, latency: latency}
}

// Record counts one handled row. outcome is published, retry or dead_letter.
func (m *OutboxMetrics) Record(eventType, outcome string) {
	if m == nil || m.outcomes == nil {
		return
	}
	m.outcomes.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

func (m *OutboxMetrics) ObservePublish(topic string, d time.Duration) {
	if m == nil || m.latency == nil {
		return
	}
	m.latency.WithLabelValues(normalizeLabel(topic)).Observe(d.Seconds())
}
