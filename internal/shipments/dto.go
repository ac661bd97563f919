package shipments

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MudassirSafi/Wolf-Backend/pkg/db/models"
	"github.com/MudassirSafi/Wolf-Backend/pkg/enums"
	"github.com/MudassirSafi/Wolf-Backend/pkg/pagination"
	"github.com/MudassirSafi/Wolf-Backend/pkg/types"
)

type TrackingEventDTO struct {
	OccurredAt  time.Time         `json:"occurred_at"`
	Location    string            `json:"location,omitempty"`
	Status      enums.OrderStatus `json:"status"`
	RawStatus   string            `json:"raw_status,omitempty"`
	Description string            `json:"description,omitempty"`
	ScanType    string            `json:"scan_type,omitempty"`
}

// ShipmentDTO is the shipment payload returned to buyers and admins.
type ShipmentDTO struct {
	ID                uuid.UUID          `json:"id"`
	OrderID           uuid.UUID          `json:"order_id"`
	TrackingNumber    string             `json:"tracking_number"`
	SortingCode       *string            `json:"sorting_code,omitempty"`
	Status            enums.OrderStatus  `json:"status"`
	Sender            types.Party        `json:"sender"`
	Receiver          types.Party        `json:"receiver"`
	WeightKg          float64            `json:"weight_kg"`
	DeclaredValue     decimal.Decimal    `json:"declared_value"`
	CODAmount         decimal.Decimal    `json:"cod_amount"`
	ShippingFee       decimal.Decimal    `json:"shipping_fee"`
	Currency          string             `json:"currency"`
	ServiceType       enums.ServiceType  `json:"service_type"`
	ItemsDescription  string             `json:"items_description"`
	TotalQuantity     int                `json:"total_quantity"`
	CurrentLocation   *string            `json:"current_location,omitempty"`
	EstimatedDelivery *time.Time         `json:"estimated_delivery,omitempty"`
	ActualDelivery    *time.Time         `json:"actual_delivery,omitempty"`
	LastTrackedAt     *time.Time         `json:"last_tracked_at,omitempty"`
	LabelURL          *string            `json:"label_url,omitempty"`
	Pickup            *types.PickupInfo  `json:"pickup,omitempty"`
	Remark            *string            `json:"remark,omitempty"`
	History           []TrackingEventDTO `json:"history,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

type ShipmentListResult struct {
	Items []ShipmentDTO `json:"items"`
	pagination.PageInfo
}

// LabelDTO points at the printable waybill.
type LabelDTO struct {
	TrackingNumber string    `json:"tracking_number"`
	LabelURL       string    `json:"label_url"`
	GeneratedAt    time.Time `json:"generated_at"`
}

func NewShipmentDTO(s *models.Shipment) ShipmentDTO {
	dto := ShipmentDTO{
		ID:                s.ID,
		OrderID:           s.OrderID,
		TrackingNumber:    s.TrackingNumber,
		SortingCode:       s.SortingCode,
		Status:            s.Status,
		Sender:            s.Sender,
		Receiver:          s.Receiver,
		WeightKg:          s.WeightKg,
		DeclaredValue:     s.DeclaredValue,
		CODAmount:         s.CODAmount,
		ShippingFee:       s.ShippingFee,
		Currency:          s.Currency,
		ServiceType:       s.ServiceType,
		ItemsDescription:  s.ItemsDescription,
		TotalQuantity:     s.TotalQuantity,
		CurrentLocation:   s.CurrentLocation,
		EstimatedDelivery: s.EstimatedDelivery,
		ActualDelivery:    s.ActualDelivery,
		LastTrackedAt:     s.LastTrackedAt,
		LabelURL:          s.LabelURL,
		Pickup:            s.Pickup,
		Remark:            s.Remark,
		CreatedAt:         s.CreatedAt,
		UpdatedAt:         s.UpdatedAt,
	}
	if len(s.TrackingEvents) > 0 {
		dto.History = make([]TrackingEventDTO, 0, len(s.TrackingEvents))
		for _, ev := range s.TrackingEvents {
			dto.History = append(dto.History, TrackingEventDTO{
				OccurredAt:  ev.OccurredAt,
				Location:    ev.Location,
				Status:      ev.Status,
				RawStatus:   ev.RawStatus,
				Description: ev.Description,
				ScanType:    ev.ScanType,
			})
		}
	}
	return dto
}
