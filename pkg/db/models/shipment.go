package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/MudassirSafi/Wolf-Backend/pkg/enums"
	"github.com/MudassirSafi/Wolf-Backend/pkg/types"
)

// Shipment is the authoritative courier record for an order.
type Shipment struct {
	ID                uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderID           uuid.UUID         `gorm:"column:order_id;type:uuid;not null;uniqueIndex:ux_shipments_order_id"`
	TrackingNumber    string            `gorm:"column:tracking_number;not null;uniqueIndex:ux_shipments_tracking_number"`
	SortingCode       *string           `gorm:"column:sorting_code"`
	PackageCode       *string           `gorm:"column:package_code"`
	InternationalCode *string           `gorm:"column:international_code"`
	ShortCode         *string           `gorm:"column:short_code"`
	Status            enums.OrderStatus `gorm:"column:status;type:text;not null;index"`
	Sender            types.Party       `gorm:"column:sender;type:jsonb;not null"`
	Receiver          types.Party       `gorm:"column:receiver;type:jsonb;not null"`
	ReceiverCountry   string            `gorm:"column:receiver_country_code;not null;index"`
	WeightKg          float64           `gorm:"column:weight_kg;not null"`
	DeclaredValue     decimal.Decimal   `gorm:"column:declared_value;type:numeric(12,2);not null"`
	CODAmount         decimal.Decimal   `gorm:"column:cod_amount;type:numeric(12,2);not null"`
	ShippingFee       decimal.Decimal   `gorm:"column:shipping_fee;type:numeric(12,2);not null"`
	Currency          string            `gorm:"column:currency;not null"`
	ServiceType       enums.ServiceType `gorm:"column:service_type;type:text;not null"`
	ItemsDescription  string            `gorm:"column:items_description;not null"`
	TotalQuantity     int               `gorm:"column:total_quantity;not null"`
	CurrentLocation   *string           `gorm:"column:current_location"`
	EstimatedDelivery *time.Time        `gorm:"column:estimated_delivery"`
	ActualDelivery    *time.Time        `gorm:"column:actual_delivery"`
	LastTrackedAt     *time.Time        `gorm:"column:last_tracked_at"`
	LabelURL          *string           `gorm:"column:label_url"`
	LabelGeneratedAt  *time.Time        `gorm:"column:label_generated_at"`
	Pickup            *types.PickupInfo `gorm:"column:pickup;type:jsonb"`
	Remark            *string           `gorm:"column:remark"`

	TrackingEvents []ShipmentTrackingEvent `gorm:"foreignKey:ShipmentID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time               `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt      time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *Shipment) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// ShipmentTrackingEvent is one append-only history entry. ID preserves receipt order.
type ShipmentTrackingEvent struct {
	ID          int64             `gorm:"column:id;primaryKey;autoIncrement"`
	ShipmentID  uuid.UUID         `gorm:"column:shipment_id;type:uuid;not null;index"`
	OccurredAt  time.Time         `gorm:"column:occurred_at;not null"`
	Location    string            `gorm:"column:location;not null;default:''"`
	Status      enums.OrderStatus `gorm:"column:status;type:text;not null"`
	RawStatus   string            `gorm:"column:raw_status;not null;default:''"`
	Description string            `gorm:"column:description;not null;default:''"`
	ScanType    string            `gorm:"column:scan_type;not null;default:''"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
}
