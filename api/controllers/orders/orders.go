package orders

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/MudassirSafi/Wolf-Backend/api/middleware"
	"github.com/MudassirSafi/Wolf-Backend/api/responses"
	"github.com/MudassirSafi/Wolf-Backend/api/validators"
	internalorders "github.com/MudassirSafi/Wolf-Backend/internal/orders"
	"github.com/MudassirSafi/Wolf-Backend/pkg/enums"
	pkgerrors "github.com/MudassirSafi/Wolf-Backend/pkg/errors"
	"github.com/MudassirSafi/Wolf-Backend/pkg/logger"
	"github.com/MudassirSafi/Wolf-Backend/pkg/types"
)

const maxNoteLength = 1000

// Create places an order for the caller, who may be a guest when guest
// checkout is enabled.
func Create(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		var payload CreateOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.ToInput(middleware.ActorFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// List returns the caller's own orders.
func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		actor := middleware.ActorFromContext(r.Context())
		if actor.IsGuest() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		params, err := validators.ParsePage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.List(r.Context(), actor, internalorders.ListFilter{UserID: actor.UserID}, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), middleware.ActorFromContext(r.Context()), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// AdminList pages through every order, optionally filtered by status,
// payment status or owner.
func AdminList(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		params, err := validators.ParsePage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter, err := parseListFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.List(r.Context(), middleware.ActorFromContext(r.Context()), filter, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// AdminUpdateStatus moves an order's fulfillment and/or payment status.
func AdminUpdateStatus(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput(middleware.ActorFromContext(r.Context()), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.UpdateStatus(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// ItemRequest is one requested product line.
type ItemRequest struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity" validate:"gt=0"`
}

// CreateOrderRequest is the order payload shared by order creation and
// checkout-with-items.
type CreateOrderRequest struct {
	Items           []ItemRequest         `json:"items" validate:"required,min=1,dive"`
	ShippingAddress types.ShippingAddress `json:"shipping_address"`
	PaymentMethod   string                `json:"payment_method" validate:"required"`
	CustomerNote    *string               `json:"customer_note,omitempty"`
}

// ToInput converts the payload into service input for actor.
func (p CreateOrderRequest) ToInput(actor internalorders.Actor) (internalorders.CreateOrderInput, error) {
	method, err := enums.ParsePaymentMethod(p.PaymentMethod)
	if err != nil {
		return internalorders.CreateOrderInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment_method").
			WithDetails(map[string]any{"field": "payment_method"})
	}

	items := make([]internalorders.ItemInput, 0, len(p.Items))
	for i, item := range p.Items {
		if item.ProductID == uuid.Nil {
			return internalorders.CreateOrderInput{}, pkgerrors.New(pkgerrors.CodeValidation, "product_id is required").
				WithDetails(map[string]any{"field": "items", "index": i})
		}
		items = append(items, internalorders.ItemInput{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	return internalorders.CreateOrderInput{
		Actor:           actor,
		Items:           items,
		ShippingAddress: p.ShippingAddress,
		PaymentMethod:   method,
		CustomerNote:    trimNote(p.CustomerNote),
	}, nil
}

type updateStatusRequest struct {
	Status        *string `json:"status,omitempty"`
	PaymentStatus *string `json:"payment_status,omitempty"`
	AdminNote     *string `json:"admin_note,omitempty"`
	Correction    bool    `json:"correction,omitempty"`
}

func (p updateStatusRequest) toInput(actor internalorders.Actor, orderID uuid.UUID) (internalorders.UpdateStatusInput, error) {
	input := internalorders.UpdateStatusInput{
		Actor:      actor,
		OrderID:    orderID,
		AdminNote:  trimNote(p.AdminNote),
		Correction: p.Correction,
	}
	if p.Status == nil && p.PaymentStatus == nil && input.AdminNote == nil {
		return input, pkgerrors.New(pkgerrors.CodeValidation, "status, payment_status or admin_note is required")
	}
	if p.Status != nil {
		status, err := enums.ParseOrderStatus(strings.TrimSpace(*p.Status))
		if err != nil {
			return input, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status").WithDetails(map[string]any{"field": "status"})
		}
		input.Status = &status
	}
	if p.PaymentStatus != nil {
		status, err := enums.ParsePaymentStatus(strings.TrimSpace(*p.PaymentStatus))
		if err != nil {
			return input, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment_status").WithDetails(map[string]any{"field": "payment_status"})
		}
		input.PaymentStatus = &status
	}
	return input, nil
}

func parseListFilter(r *http.Request) (internalorders.ListFilter, error) {
	var filter internalorders.ListFilter
	query := r.URL.Query()
	if raw := strings.TrimSpace(query.Get("status")); raw != "" {
		status, err := enums.ParseOrderStatus(raw)
		if err != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		filter.Status = &status
	}
	if raw := strings.TrimSpace(query.Get("payment_status")); raw != "" {
		status, err := enums.ParsePaymentStatus(raw)
		if err != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment_status filter")
		}
		filter.PaymentStatus = &status
	}
	if raw := strings.TrimSpace(query.Get("user_id")); raw != "" {
		userID, err := uuid.Parse(raw)
		if err != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user_id filter")
		}
		filter.UserID = &userID
	}
	return filter, nil
}

func trimNote(note *string) *string {
	if note == nil {
		return nil
	}
	trimmed := validators.SanitizeString(*note, maxNoteLength)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
