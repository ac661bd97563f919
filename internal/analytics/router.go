package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/MudassirSafi/Wolf-Backend/pkg/enums"
	"github.com/MudassirSafi/Wolf-Backend/pkg/logger"
	"github.com/MudassirSafi/Wolf-Backend/pkg/outbox/payloads"
)

var ErrUnsupportedEventType = errors.New("unsupported analytics event type")

// Writer delivers rows built from events.
type Writer interface {
	InsertOrderEvent(ctx context.Context, row OrderEventRow) error
	InsertShipmentEvent(ctx context.Context, row ShipmentEventRow) error
}

// Router turns outbox envelopes into analytics rows.
type Router struct {
	writer Writer
	logg   *logger.Logger
}

func NewRouter(writer Writer, logg *logger.Logger) (*Router, error) {
	if writer == nil {
		return nil, errors.New("writer is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Router{writer: writer, logg: logg}, nil
}

func (r *Router) Handle(ctx context.Context, env Envelope) error {
	switch env.AggregateType {
	case enums.AggregateOrder:
		row, err := orderRow(env)
		if err != nil {
			return err
		}
		return r.writer.InsertOrderEvent(r.logg.WithOrderID(ctx, row.OrderID), row)
	case enums.AggregateShipment:
		row, err := shipmentRow(env)
		if err != nil {
			return err
		}
		return r.writer.InsertShipmentEvent(r.logg.WithTrackingNumber(ctx, row.TrackingNumber), row)
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedEventType, env.EventType)
}

func decode(env Envelope, into any) error {
	if err := json.Unmarshal(env.Payload, into); err != nil {
		return fmt.Errorf("decode %s payload: %w", env.EventType, err)
	}
	return nil
}

func orderRow(env Envelope) (OrderEventRow, error) {
	row := OrderEventRow{
		EventID:    env.EventID,
		EventType:  string(env.EventType),
		OccurredAt: env.OccurredAt,
		OrderID:    env.AggregateID,
		Payload:    rawJSON(env.Payload),
	}

	switch env.EventType {
	case enums.EventOrderCreated:
		var event payloads.OrderCreatedEvent
		if err := decode(env, &event); err != nil {
			return row, err
		}
		if event.UserID != nil {
			row.UserID = nullString(event.UserID.String())
		}
		row.Status = nullString(string(enums.OrderStatusPending))
		row.PaymentStatus = nullString(string(enums.PaymentStatusPending))
		row.PaymentMethod = nullString(string(event.PaymentMethod))
		row.TotalCents = cents(event.Total)
		row.Currency = nullString(event.Currency)
		row.ItemCount = nullInt(itemCount(event.Lines))
	case enums.EventOrderStatusChanged:
		var event payloads.OrderStatusChangedEvent
		if err := decode(env, &event); err != nil {
			return row, err
		}
		row.Status = nullString(string(event.To))
		row.PaymentStatus = nullString(string(event.PaymentStatus))
		row.Reason = nullString(event.Note)
	case enums.EventOrderPaid:
		var event payloads.OrderPaidEvent
		if err := decode(env, &event); err != nil {
			return row, err
		}
		row.PaymentStatus = nullString(string(enums.PaymentStatusPaid))
		row.TotalCents = cents(event.Total)
		row.Currency = nullString(event.Currency)
		if !event.PaidAt.IsZero() {
			row.OccurredAt = event.PaidAt.UTC()
		}
	case enums.EventPaymentFailed:
		var event payloads.PaymentFailedEvent
		if err := decode(env, &event); err != nil {
			return row, err
		}
		row.PaymentStatus = nullString(string(enums.PaymentStatusFailed))
		row.Reason = nullString(event.Reason)
	case enums.EventPaymentRefunded:
		var event payloads.PaymentRefundedEvent
		if err := decode(env, &event); err != nil {
			return row, err
		}
		row.PaymentStatus = nullString(string(enums.PaymentStatusRefunded))
		row.Reason = nullString(event.Reason)
	case enums.EventReservationReleased:
		var event payloads.ReservationReleasedEvent
		if err := decode(env, &event); err != nil {
			return row, err
		}
		row.Reason = nullString(event.Reason)
		row.ItemCount = nullInt(itemCount(event.Lines))
	default:
		return row, fmt.Errorf("%w: %s", ErrUnsupportedEventType, env.EventType)
	}
	return row, nil
}

func shipmentRow(env Envelope) (ShipmentEventRow, error) {
	row := ShipmentEventRow{
		EventID:    env.EventID,
		EventType:  string(env.EventType),
		OccurredAt: env.OccurredAt,
		ShipmentID: env.AggregateID,
		Payload:    rawJSON(env.Payload),
	}

	switch env.EventType {
	case enums.EventShipmentCreated:
		var event payloads.ShipmentCreatedEvent
		if err := decode(env, &event); err != nil {
			return row, err
		}
		row.OrderID = event.OrderID.String()
		row.TrackingNumber = event.TrackingNumber
		row.ServiceType = nullString(string(event.ServiceType))
		row.ToStatus = nullString(string(enums.OrderStatusProcessing))
	case enums.EventShipmentStatusChanged:
		var event payloads.ShipmentStatusChangedEvent
		if err := decode(env, &event); err != nil {
			return row, err
		}
		row.OrderID = event.OrderID.String()
		row.TrackingNumber = event.TrackingNumber
		row.RawStatus = nullString(event.RawStatus)
		row.FromStatus = nullString(string(event.From))
		row.ToStatus = nullString(string(event.To))
		row.Location = nullString(event.Location)
		if !event.OccurredAt.IsZero() {
			row.OccurredAt = event.OccurredAt.UTC()
		}
	case enums.EventShipmentCancelled:
		var event payloads.ShipmentCancelledEvent
		if err := decode(env, &event); err != nil {
			return row, err
		}
		row.OrderID = event.OrderID.String()
		row.TrackingNumber = event.TrackingNumber
		row.ToStatus = nullString(string(enums.OrderStatusCancelled))
		row.Reason = nullString(event.Reason)
	default:
		return row, fmt.Errorf("%w: %s", ErrUnsupportedEventType, env.EventType)
	}
	return row, nil
}

func itemCount(lines []payloads.OrderLine) int64 {
	var n int64
	for _, line := range lines {
		n += int64(line.Quantity)
	}
	return n
}
