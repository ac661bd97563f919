package payments

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	ordercontrollers "github.com/MudassirSafi/Wolf-Backend/api/controllers/orders"
	"github.com/MudassirSafi/Wolf-Backend/api/middleware"
	"github.com/MudassirSafi/Wolf-Backend/api/responses"
	"github.com/MudassirSafi/Wolf-Backend/api/validators"
	internalorders "github.com/MudassirSafi/Wolf-Backend/internal/orders"
	internalpayments "github.com/MudassirSafi/Wolf-Backend/internal/payments"
	"github.com/MudassirSafi/Wolf-Backend/pkg/enums"
	pkgerrors "github.com/MudassirSafi/Wolf-Backend/pkg/errors"
	"github.com/MudassirSafi/Wolf-Backend/pkg/logger"
	"github.com/MudassirSafi/Wolf-Backend/pkg/types"
)

// CheckoutSession starts a hosted checkout for an existing order, or creates
// the order first when the body carries items instead of an order_id.
func CheckoutSession(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput(middleware.ActorFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.StartCheckout(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// Verify reconciles a checkout session after the buyer returns from Stripe.
func Verify(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		var payload verifyRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Confirm(r.Context(), strings.TrimSpace(payload.SessionID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

type checkoutRequest struct {
	OrderID         *uuid.UUID                     `json:"order_id,omitempty"`
	Items           []ordercontrollers.ItemRequest `json:"items,omitempty"`
	ShippingAddress *types.ShippingAddress         `json:"shipping_address,omitempty"`
	PaymentMethod   string                         `json:"payment_method,omitempty"`
	CustomerNote    *string                        `json:"customer_note,omitempty"`
}

func (p checkoutRequest) toInput(actor internalorders.Actor) (internalpayments.StartCheckoutInput, error) {
	input := internalpayments.StartCheckoutInput{Actor: actor}
	if p.OrderID != nil {
		if len(p.Items) > 0 {
			return input, pkgerrors.New(pkgerrors.CodeValidation, "send either order_id or items, not both")
		}
		input.OrderID = p.OrderID
		return input, nil
	}

	if p.ShippingAddress == nil {
		return input, pkgerrors.New(pkgerrors.CodeValidation, "shipping_address is required").
			WithDetails(map[string]any{"field": "shipping_address"})
	}
	method := p.PaymentMethod
	if strings.TrimSpace(method) == "" {
		method = string(enums.PaymentMethodStripe)
	}
	order := ordercontrollers.CreateOrderRequest{
		Items:           p.Items,
		ShippingAddress: *p.ShippingAddress,
		PaymentMethod:   method,
		CustomerNote:    p.CustomerNote,
	}
	if err := validators.ValidateStruct(&order); err != nil {
		return input, err
	}
	create, err := order.ToInput(actor)
	if err != nil {
		return input, err
	}
	input.Order = &create
	return input, nil
}

type verifyRequest struct {
	SessionID string `json:"session_id" validate:"required"`
}
