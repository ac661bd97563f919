package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/MudassirSafi/Wolf-Backend/pkg/config"
	"github.com/MudassirSafi/Wolf-Backend/pkg/db/models"
	"github.com/MudassirSafi/Wolf-Backend/pkg/enums"
	"github.com/MudassirSafi/Wolf-Backend/pkg/logger"
	"github.com/MudassirSafi/Wolf-Backend/pkg/metrics"
	"github.com/MudassirSafi/Wolf-Backend/pkg/outbox"
	"github.com/MudassirSafi/Wolf-Backend/pkg/outbox/registry"
)

const (
	ordersTopic    = "wolf-orders"
	shipmentsTopic = "wolf-shipments"
	testAttempts   = 3
)

func TestProcessBatchSettlesEachRow(t *testing.T) {
	published := row(enums.EventOrderPaid, enums.AggregateOrder, 0)
	flaky := row(enums.EventOrderCreated, enums.AggregateOrder, 0)
	exhausted := row(enums.EventShipmentCreated, enums.AggregateShipment, testAttempts-1)
	unknown := row(enums.OutboxEventType("order_refunded"), enums.AggregateOrder, 0)

	h := newHarness(t, published, flaky, exhausted, unknown)
	h.broker.fail[flaky.ID.String()] = errors.New("deadline exceeded")
	h.broker.fail[exhausted.ID.String()] = errors.New("deadline exceeded")

	processed, err := h.svc.processBatch(context.Background())
	require.NoError(t, err)
	assert.True(t, processed)

	assert.Equal(t, map[uuid.UUID]string{
		published.ID: "published",
		flaky.ID:     "failed",
		exhausted.ID: "terminal",
		unknown.ID:   "terminal",
	}, h.repo.outcome)

	reasons := map[uuid.UUID]enums.OutboxDLQErrorReason{}
	for _, entry := range h.dlq.entries {
		reasons[entry.EventID] = entry.ErrorReason
	}
	assert.Equal(t, map[uuid.UUID]enums.OutboxDLQErrorReason{
		exhausted.ID: enums.OutboxDLQReasonMaxAttempts,
		unknown.ID:   enums.OutboxDLQReasonNonRetryable,
	}, reasons)

	assert.Len(t, h.broker.sent[ordersTopic], 2, "paid and flaky order events reach the orders topic")
	assert.Len(t, h.broker.sent[shipmentsTopic], 1)
}

func TestPublishCarriesRoutingAttributes(t *testing.T) {
	event := row(enums.EventShipmentCreated, enums.AggregateShipment, 0)
	h := newHarness(t, event)

	_, err := h.svc.processBatch(context.Background())
	require.NoError(t, err)

	require.Len(t, h.broker.sent[shipmentsTopic], 1)
	msg := h.broker.sent[shipmentsTopic][0]
	assert.JSONEq(t, string(event.Payload), string(msg.Data))
	assert.Equal(t, event.ID.String(), msg.Attributes["event_id"])
	assert.Equal(t, string(enums.EventShipmentCreated), msg.Attributes["event_type"])
	assert.Equal(t, string(enums.AggregateShipment), msg.Attributes["aggregate_type"])
	assert.Equal(t, event.AggregateID.String(), msg.Attributes["aggregate_id"])
	assert.Equal(t, event.CreatedAt.Format(time.RFC3339Nano), msg.Attributes["created_at"])
}

func TestDeadLetterKeepsOriginalPayload(t *testing.T) {
	event := row(enums.EventOrderPaid, enums.AggregateOrder, 0)
	event.Payload = json.RawMessage(`{"version":1,"event_id":"x","data":null}`)
	h := newHarness(t, event)

	_, err := h.svc.processBatch(context.Background())
	require.NoError(t, err)

	require.Len(t, h.dlq.entries, 1)
	entry := h.dlq.entries[0]
	assert.JSONEq(t, string(event.Payload), string(entry.Payload))
	assert.Equal(t, event.AggregateID, entry.AggregateID)
	require.NotNil(t, entry.ErrorMessage)
	assert.Contains(t, *entry.ErrorMessage, "no data")
	assert.Empty(t, h.broker.sent)
}

func TestMissingPublisherIsTerminal(t *testing.T) {
	event := row(enums.EventOrderCreated, enums.AggregateOrder, 0)
	h := newHarness(t, event)
	h.svc.publisherFactory = func(string) publisher { return nil }

	_, err := h.svc.processBatch(context.Background())
	require.NoError(t, err)

	require.Len(t, h.dlq.entries, 1)
	assert.Equal(t, enums.OutboxDLQReasonNonRetryable, h.dlq.entries[0].ErrorReason)
	assert.Equal(t, "terminal", h.repo.outcome[event.ID])
}

func TestRepositoryFailureAbortsBatch(t *testing.T) {
	event := row(enums.EventOrderPaid, enums.AggregateOrder, 0)
	h := newHarness(t, event)
	h.repo.markErr = errors.New("connection reset")

	_, err := h.svc.processBatch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), event.ID.String())
}

func TestProcessBatchRecordsMetrics(t *testing.T) {
	ok := row(enums.EventOrderPaid, enums.AggregateOrder, 0)
	retry := row(enums.EventOrderPaid, enums.AggregateOrder, 0)
	h := newHarness(t, ok, retry)
	h.broker.fail[retry.ID.String()] = errors.New("unavailable")
	reg := prometheus.NewRegistry()
	h.svc.metrics = metrics.NewOutboxMetrics(reg)

	_, err := h.svc.processBatch(context.Background())
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	series := map[string]int{}
	for _, mf := range families {
		series[mf.GetName()] = len(mf.GetMetric())
	}
	assert.Equal(t, 2, series["wolf_outbox_events_total"], "published and retry outcomes")
	assert.Equal(t, 1, series["wolf_outbox_publish_duration_seconds"], "one topic")
}

func TestEmptyBatchReportsIdle(t *testing.T) {
	h := newHarness(t)
	processed, err := h.svc.processBatch(context.Background())
	require.NoError(t, err)
	assert.False(t, processed)
}

func TestRunFailsFastOnUnhealthyDependency(t *testing.T) {
	h := newHarness(t)
	h.db.pingErr = errors.New("connection refused")

	err := h.svc.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database ping failed")
}

func TestBackoffAndJitter(t *testing.T) {
	assert.Equal(t, 2*time.Second, nextBackoff(0, time.Second, 10*time.Second))
	assert.Equal(t, 10*time.Second, nextBackoff(8*time.Second, time.Second, 10*time.Second))
	assert.Zero(t, withJitter(0))
	for i := 0; i < 20; i++ {
		got := withJitter(time.Second)
		assert.GreaterOrEqual(t, got, time.Second)
		assert.Less(t, got, time.Second+jitterWindow)
	}
}

type harness struct {
	svc    *Service
	repo   *memoryOutbox
	dlq    *memoryDLQ
	broker *memoryBroker
	db     *stubDB
}

func newHarness(t *testing.T, events ...models.OutboxEvent) *harness {
	t.Helper()
	events = append([]models.OutboxEvent(nil), events...)
	h := &harness{
		repo:   &memoryOutbox{events: events, outcome: map[uuid.UUID]string{}},
		dlq:    &memoryDLQ{},
		broker: &memoryBroker{sent: map[string][]*gcppubsub.Message{}, fail: map[string]error{}},
		db:     &stubDB{},
	}
	eventRegistry, err := registry.NewEventRegistry(config.PubSubConfig{
		OrdersTopic:    ordersTopic,
		ShipmentsTopic: shipmentsTopic,
	})
	require.NoError(t, err)

	h.svc, err = NewService(ServiceParams{
		Config: &config.Config{Outbox: config.OutboxConfig{
			BatchSize:      10,
			PollIntervalMS: 10,
			MaxAttempts:    testAttempts,
		}},
		Logger:           logger.New(logger.Options{ServiceName: "outbox-publisher-test", Output: io.Discard}),
		DB:               h.db,
		PubSub:           stubPubSub{},
		Repository:       h.repo,
		Registry:         eventRegistry,
		PublisherFactory: h.broker.publisherFor,
		DLQRepository:    h.dlq,
	})
	require.NoError(t, err)
	return h
}

func row(eventType enums.OutboxEventType, aggregate enums.OutboxAggregateType, attempts int) models.OutboxEvent {
	id := uuid.New()
	payload, _ := json.Marshal(outbox.PayloadEnvelope{
		Version:    outbox.EnvelopeVersion,
		EventID:    id.String(),
		OccurredAt: time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC),
		Data:       json.RawMessage(`{}`),
	})
	return models.OutboxEvent{
		ID:            id,
		EventType:     eventType,
		AggregateType: aggregate,
		AggregateID:   uuid.New(),
		Payload:       payload,
		CreatedAt:     time.Date(2026, 4, 2, 8, 0, 1, 0, time.UTC),
		AttemptCount:  attempts,
	}
}

type memoryOutbox struct {
	events  []models.OutboxEvent
	outcome map[uuid.UUID]string
	markErr error
}

func (m *memoryOutbox) FetchUnpublishedForPublish(_ *gorm.DB, limit, _ int) ([]models.OutboxEvent, error) {
	return m.events[:min(limit, len(m.events))], nil
}

func (m *memoryOutbox) MarkPublishedTx(_ *gorm.DB, id uuid.UUID) error {
	return m.mark(id, "published")
}

func (m *memoryOutbox) MarkFailedTx(_ *gorm.DB, id uuid.UUID, _ error) error {
	return m.mark(id, "failed")
}

func (m *memoryOutbox) MarkTerminalTx(_ *gorm.DB, id uuid.UUID, _ error, _ int) error {
	return m.mark(id, "terminal")
}

func (m *memoryOutbox) mark(id uuid.UUID, outcome string) error {
	if m.markErr != nil {
		return m.markErr
	}
	m.outcome[id] = outcome
	return nil
}

type memoryDLQ struct {
	entries []models.OutboxDLQ
}

func (m *memoryDLQ) InsertTx(_ *gorm.DB, entry models.OutboxDLQ) error {
	m.entries = append(m.entries, entry)
	return nil
}

// memoryBroker records messages per topic and fails the event ids in fail.
type memoryBroker struct {
	sent map[string][]*gcppubsub.Message
	fail map[string]error
}

func (b *memoryBroker) publisherFor(topic string) publisher {
	return topicPublisher{broker: b, topic: topic}
}

type topicPublisher struct {
	broker *memoryBroker
	topic  string
}

func (p topicPublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	p.broker.sent[p.topic] = append(p.broker.sent[p.topic], msg)
	return settledResult{err: p.broker.fail[msg.Attributes["event_id"]]}
}

type settledResult struct {
	err error
}

func (r settledResult) Get(context.Context) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return "server-id", nil
}

type stubDB struct {
	pingErr error
}

func (s *stubDB) Ping(context.Context) error { return s.pingErr }

func (s *stubDB) WithTx(_ context.Context, fn func(*gorm.DB) error) error { return fn(nil) }

type stubPubSub struct{}

func (stubPubSub) Ping(context.Context) error { return nil }

func (stubPubSub) Publisher(string) *gcppubsub.Publisher { return nil }
