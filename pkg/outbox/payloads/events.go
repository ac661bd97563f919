package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MudassirSafi/Wolf-Backend/pkg/enums"
)

// OrderLine is the line summary carried by order events.
type OrderLine struct {
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// OrderCreatedEvent is emitted once stock is reserved and the order persisted.
type OrderCreatedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	UserID        *uuid.UUID          `json:"user_id,omitempty"`
	Total         decimal.Decimal     `json:"total"`
	Currency      string              `json:"currency"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	Lines         []OrderLine         `json:"lines"`
}

// OrderStatusChangedEvent records an admin or shipment-driven status move.
type OrderStatusChangedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	From          enums.OrderStatus   `json:"from"`
	To            enums.OrderStatus   `json:"to"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	Correction    bool                `json:"correction,omitempty"`
	Note          string              `json:"note,omitempty"`
}

// OrderPaidEvent is emitted exactly once per order when payment settles.
type OrderPaidEvent struct {
	OrderID   uuid.UUID       `json:"order_id"`
	SessionID string          `json:"session_id"`
	Total     decimal.Decimal `json:"total"`
	Currency  string          `json:"currency"`
	PaidAt    time.Time       `json:"paid_at"`
}

// PaymentFailedEvent is emitted when a checkout session expires or fails.
type PaymentFailedEvent struct {
	OrderID   uuid.UUID `json:"order_id"`
	SessionID string    `json:"session_id,omitempty"`
	Reason    string    `json:"reason"`
}

// PaymentRefundedEvent reports money returned for an order that could not
// be fulfilled.
type PaymentRefundedEvent struct {
	OrderID   uuid.UUID `json:"order_id"`
	SessionID string    `json:"session_id,omitempty"`
	RefundID  string    `json:"refund_id"`
	Reason    string    `json:"reason"`
}

// ReservationReleasedEvent reports stock returned to the catalog.
type ReservationReleasedEvent struct {
	OrderID    uuid.UUID   `json:"order_id"`
	Reason     string      `json:"reason"`
	Lines      []OrderLine `json:"lines"`
	ReleasedAt time.Time   `json:"released_at"`
}

// ShipmentCreatedEvent is emitted when the courier accepts a shipment.
type ShipmentCreatedEvent struct {
	ShipmentID        uuid.UUID         `json:"shipment_id"`
	OrderID           uuid.UUID         `json:"order_id"`
	TrackingNumber    string            `json:"tracking_number"`
	ServiceType       enums.ServiceType `json:"service_type"`
	EstimatedDelivery *time.Time        `json:"estimated_delivery,omitempty"`
}

// ShipmentStatusChangedEvent is emitted for every ingested tracking event.
type ShipmentStatusChangedEvent struct {
	ShipmentID     uuid.UUID         `json:"shipment_id"`
	OrderID        uuid.UUID         `json:"order_id"`
	TrackingNumber string            `json:"tracking_number"`
	RawStatus      string            `json:"raw_status"`
	From           enums.OrderStatus `json:"from"`
	To             enums.OrderStatus `json:"to"`
	Location       string            `json:"location,omitempty"`
	OccurredAt     time.Time         `json:"occurred_at"`
}

// ShipmentCancelledEvent is emitted after the courier confirms a cancellation.
type ShipmentCancelledEvent struct {
	ShipmentID     uuid.UUID `json:"shipment_id"`
	OrderID        uuid.UUID `json:"order_id"`
	TrackingNumber string    `json:"tracking_number"`
	Reason         string    `json:"reason"`
	CancelledAt    time.Time `json:"cancelled_at"`
}
