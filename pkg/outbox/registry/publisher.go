// Package registry routes outbox rows to Pub/Sub topics and decodes their
// typed payloads before publishing.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/MudassirSafi/Wolf-Backend/pkg/config"
	"github.com/MudassirSafi/Wolf-Backend/pkg/db/models"
	"github.com/MudassirSafi/Wolf-Backend/pkg/enums"
	"github.com/MudassirSafi/Wolf-Backend/pkg/outbox"
	"github.com/MudassirSafi/Wolf-Backend/pkg/outbox/payloads"
)

// EventDescriptor links an event type to its aggregate, topic and payload.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() any
}

// ResolvedEvent is an outbox row that passed validation.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

// NonRetryableError marks a row that will never publish, however often it is
// retried.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func permanent(format string, args ...any) error {
	return NonRetryableError{Err: fmt.Errorf(format, args...)}
}

// catalog lists every event the publisher knows. Order events go to the
// orders topic and shipment events to the shipments topic.
var catalog = []struct {
	eventType enums.OutboxEventType
	aggregate enums.OutboxAggregateType
	factory   func() any
}{
	{enums.EventOrderCreated, enums.AggregateOrder, func() any { return &payloads.OrderCreatedEvent{} }},
	{enums.EventOrderStatusChanged, enums.AggregateOrder, func() any { return &payloads.OrderStatusChangedEvent{} }},
	{enums.EventOrderPaid, enums.AggregateOrder, func() any { return &payloads.OrderPaidEvent{} }},
	{enums.EventPaymentFailed, enums.AggregateOrder, func() any { return &payloads.PaymentFailedEvent{} }},
	{enums.EventPaymentRefunded, enums.AggregateOrder, func() any { return &payloads.PaymentRefundedEvent{} }},
	{enums.EventReservationReleased, enums.AggregateOrder, func() any { return &payloads.ReservationReleasedEvent{} }},
	{enums.EventShipmentCreated, enums.AggregateShipment, func() any { return &payloads.ShipmentCreatedEvent{} }},
	{enums.EventShipmentStatusChanged, enums.AggregateShipment, func() any { return &payloads.ShipmentStatusChangedEvent{} }},
	{enums.EventShipmentCancelled, enums.AggregateShipment, func() any { return &payloads.ShipmentCancelledEvent{} }},
}

// EventRegistry maps each supported event type to its descriptor.
type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NewEventRegistry binds the catalog to the configured topic names.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	topics := map[enums.OutboxAggregateType]string{
		enums.AggregateOrder:    cfg.OrdersTopic,
		enums.AggregateShipment: cfg.ShipmentsTopic,
	}
	var missing []error
	if cfg.OrdersTopic == "" {
		missing = append(missing, errors.New("orders topic is required"))
	}
	if cfg.ShipmentsTopic == "" {
		missing = append(missing, errors.New("shipments topic is required"))
	}
	if err := errors.Join(missing...); err != nil {
		return nil, err
	}

	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor, len(catalog))}
	for _, entry := range catalog {
		reg.entries[entry.eventType] = EventDescriptor{
			EventType:      entry.eventType,
			AggregateType:  entry.aggregate,
			Topic:          topics[entry.aggregate],
			PayloadFactory: entry.factory,
		}
	}
	return reg, nil
}

// Descriptor returns how eventType is routed.
func (r *EventRegistry) Descriptor(eventType enums.OutboxEventType) (EventDescriptor, bool) {
	desc, ok := r.entries[eventType]
	return desc, ok
}

// Topics lists the distinct topics, sorted.
func (r *EventRegistry) Topics() []string {
	var topics []string
	for _, desc := range r.entries {
		if !slices.Contains(topics, desc.Topic) {
			topics = append(topics, desc.Topic)
		}
	}
	slices.Sort(topics)
	return topics
}

// Resolve checks the row against its descriptor and decodes the typed
// payload. Every failure is a NonRetryableError.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	switch {
	case !ok:
		return nil, permanent("unsupported event type %s", event.EventType)
	case desc.AggregateType != event.AggregateType:
		return nil, permanent("%s belongs to %s, row says %s", event.EventType, desc.AggregateType, event.AggregateType)
	case event.AggregateID == uuid.Nil:
		return nil, permanent("%s row has no aggregate_id", event.EventType)
	}

	envelope, err := outbox.ParseEnvelope(event.Payload)
	if err != nil {
		return nil, permanent("%s: %w", event.EventType, err)
	}
	payload := desc.PayloadFactory()
	if err := json.Unmarshal(envelope.Data, payload); err != nil {
		return nil, permanent("decode %s payload: %w", event.EventType, err)
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: envelope, Payload: payload}, nil
}
