package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MudassirSafi/Wolf-Backend/pkg/db/models"
	"github.com/MudassirSafi/Wolf-Backend/pkg/enums"
	"github.com/MudassirSafi/Wolf-Backend/pkg/pagination"
	"github.com/MudassirSafi/Wolf-Backend/pkg/types"
)

// ListFilter narrows order listings. A nil UserID lists every order.
type ListFilter struct {
	UserID        *uuid.UUID
	Status        *enums.OrderStatus
	PaymentStatus *enums.PaymentStatus
}

// LineItemDTO is the immutable product snapshot on an order.
type LineItemDTO struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	ImageURL  *string         `json:"image_url,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// ShippingDTO mirrors the courier shipment onto the order.
type ShippingDTO struct {
	Carrier           *string            `json:"carrier,omitempty"`
	TrackingNumber    *string            `json:"tracking_number,omitempty"`
	ServiceType       *enums.ServiceType `json:"service_type,omitempty"`
	EstimatedDelivery *time.Time         `json:"estimated_delivery,omitempty"`
	ActualDelivery    *time.Time         `json:"actual_delivery,omitempty"`
	CurrentLocation   *string            `json:"current_location,omitempty"`
	LastTrackedAt     *time.Time         `json:"last_tracked_at,omitempty"`
}

// CancellationDTO records who cancelled an order and why.
type CancellationDTO struct {
	CancelledAt time.Time `json:"cancelled_at"`
	Reason      *string   `json:"reason,omitempty"`
	CancelledBy *string   `json:"cancelled_by,omitempty"`
}

// OrderDTO is the order payload returned to buyers and admins.
type OrderDTO struct {
	ID                uuid.UUID               `json:"id"`
	UserID            *uuid.UUID              `json:"user_id,omitempty"`
	GuestEmail        *string                 `json:"guest_email,omitempty"`
	Items             []LineItemDTO           `json:"items"`
	Subtotal          decimal.Decimal         `json:"subtotal"`
	ShippingFee       decimal.Decimal         `json:"shipping_fee"`
	Tax               decimal.Decimal         `json:"tax"`
	Total             decimal.Decimal         `json:"total"`
	Currency          string                  `json:"currency"`
	PaymentMethod     enums.PaymentMethod     `json:"payment_method"`
	PaymentStatus     enums.PaymentStatus     `json:"payment_status"`
	Status            enums.OrderStatus       `json:"status"`
	ReservationStatus enums.ReservationStatus `json:"reservation_status"`
	PaymentSessionID  *string                 `json:"payment_session_id,omitempty"`
	PaidAt            *time.Time              `json:"paid_at,omitempty"`
	ShippingAddress   types.ShippingAddress   `json:"shipping_address"`
	TotalWeight       float64                 `json:"total_weight"`
	Shipping          ShippingDTO             `json:"shipping"`
	Cancellation      *CancellationDTO        `json:"cancellation,omitempty"`
	CustomerNote      *string                 `json:"customer_note,omitempty"`
	AdminNote         *string                 `json:"admin_note,omitempty"`
	CreatedAt         time.Time               `json:"created_at"`
	UpdatedAt         time.Time               `json:"updated_at"`
}

// OrderListResult is one page of orders.
type OrderListResult struct {
	Items []OrderDTO `json:"items"`
	pagination.PageInfo
}

// NewOrderDTO maps the persisted order into its API shape.
func NewOrderDTO(o *models.Order) OrderDTO {
	items := make([]LineItemDTO, 0, len(o.LineItems))
	for _, item := range o.LineItems {
		items = append(items, LineItemDTO{
			ID:        item.ID,
			ProductID: item.ProductID,
			Name:      item.Name,
			ImageURL:  item.ImageURL,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			LineTotal: item.LineTotal,
		})
	}

	dto := OrderDTO{
		ID:                o.ID,
		UserID:            o.UserID,
		GuestEmail:        o.GuestEmail,
		Items:             items,
		Subtotal:          o.Subtotal,
		ShippingFee:       o.ShippingFee,
		Tax:               o.Tax,
		Total:             o.Total,
		Currency:          o.Currency,
		PaymentMethod:     o.PaymentMethod,
		PaymentStatus:     o.PaymentStatus,
		Status:            o.Status,
		ReservationStatus: o.ReservationStatus,
		PaymentSessionID:  o.PaymentSessionID,
		PaidAt:            o.PaidAt,
		ShippingAddress:   o.ShippingAddress,
		TotalWeight:       o.TotalWeight,
		Shipping: ShippingDTO{
			Carrier:           o.ShippingCarrier,
			TrackingNumber:    o.TrackingNumber,
			ServiceType:       o.ServiceType,
			EstimatedDelivery: o.EstimatedDelivery,
			ActualDelivery:    o.ActualDelivery,
			CurrentLocation:   o.CurrentLocation,
			LastTrackedAt:     o.LastTrackedAt,
		},
		CustomerNote: o.CustomerNote,
		AdminNote:    o.AdminNote,
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
	}
	if o.CancelledAt != nil {
		dto.Cancellation = &CancellationDTO{
			CancelledAt: *o.CancelledAt,
			Reason:      o.CancelReason,
			CancelledBy: o.CancelledBy,
		}
	}
	return dto
}
