package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/MudassirSafi/Wolf-Backend/pkg/enums"
	"github.com/MudassirSafi/Wolf-Backend/pkg/types"
)

// Order is the customer-facing aggregate. The shipping_* columns mirror the
// authoritative shipment row for fast reads.
type Order struct {
	ID                uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	UserID            *uuid.UUID              `gorm:"column:user_id;type:uuid;index"`
	GuestEmail        *string                 `gorm:"column:guest_email"`
	Subtotal          decimal.Decimal         `gorm:"column:subtotal;type:numeric(12,2);not null"`
	ShippingFee       decimal.Decimal         `gorm:"column:shipping_fee;type:numeric(12,2);not null"`
	Tax               decimal.Decimal         `gorm:"column:tax;type:numeric(12,2);not null"`
	Total             decimal.Decimal         `gorm:"column:total;type:numeric(12,2);not null"`
	Currency          string                  `gorm:"column:currency;not null"`
	PaymentMethod     enums.PaymentMethod     `gorm:"column:payment_method;type:text;not null"`
	PaymentStatus     enums.PaymentStatus     `gorm:"column:payment_status;type:text;not null;index"`
	Status            enums.OrderStatus       `gorm:"column:status;type:text;not null;index"`
	ReservationStatus enums.ReservationStatus `gorm:"column:reservation_status;type:text;not null"`
	PaymentSessionID  *string                 `gorm:"column:payment_session_id;uniqueIndex"`
	PaidAt            *time.Time              `gorm:"column:paid_at"`
	ShippingAddress   types.ShippingAddress   `gorm:"column:shipping_address;type:jsonb;not null"`
	TotalWeight       float64                 `gorm:"column:total_weight;not null"`

	ShippingCarrier   *string            `gorm:"column:shipping_carrier"`
	TrackingNumber    *string            `gorm:"column:tracking_number"`
	ServiceType       *enums.ServiceType `gorm:"column:service_type;type:text"`
	EstimatedDelivery *time.Time         `gorm:"column:estimated_delivery"`
	ActualDelivery    *time.Time         `gorm:"column:actual_delivery"`
	CurrentLocation   *string            `gorm:"column:current_location"`
	LastTrackedAt     *time.Time         `gorm:"column:last_tracked_at"`

	CancelledAt  *time.Time `gorm:"column:cancelled_at"`
	CancelReason *string    `gorm:"column:cancel_reason"`
	CancelledBy  *string    `gorm:"column:cancelled_by"`

	CustomerNote *string `gorm:"column:customer_note"`
	AdminNote    *string `gorm:"column:admin_note"`

	LineItems []OrderLineItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
