package cart

import (
	"net/http"

	"github.com/google/uuid"

	ordercontrollers "github.com/MudassirSafi/Wolf-Backend/api/controllers/orders"
	"github.com/MudassirSafi/Wolf-Backend/api/middleware"
	"github.com/MudassirSafi/Wolf-Backend/api/responses"
	"github.com/MudassirSafi/Wolf-Backend/api/validators"
	internalcart "github.com/MudassirSafi/Wolf-Backend/internal/cart"
	internalpayments "github.com/MudassirSafi/Wolf-Backend/internal/payments"
	"github.com/MudassirSafi/Wolf-Backend/pkg/enums"
	pkgerrors "github.com/MudassirSafi/Wolf-Backend/pkg/errors"
	"github.com/MudassirSafi/Wolf-Backend/pkg/logger"
	"github.com/MudassirSafi/Wolf-Backend/pkg/types"
)

// Get returns the caller's cart priced at current catalog prices.
func Get(svc internalcart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cart, err := svc.Get(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cart)
	}
}

// AddItem adjusts the quantity of one product. A negative quantity removes
// units and the line disappears once it reaches zero.
func AddItem(svc internalcart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload addItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if payload.ProductID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "product_id is required").
				WithDetails(map[string]any{"field": "product_id"}))
			return
		}

		cart, err := svc.AddItem(r.Context(), userID, internalcart.AddItemInput{
			ProductID: payload.ProductID,
			Quantity:  payload.Quantity,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cart)
	}
}

func RemoveItem(svc internalcart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cart, err := svc.RemoveItem(r.Context(), userID, productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cart)
	}
}

func Clear(svc internalcart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cart, err := svc.Clear(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cart)
	}
}

// Checkout turns the available cart lines into an order and opens a hosted
// checkout for it. The cart is left intact until the payment settles.
func Checkout(svc internalcart.Service, payments internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || payments == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout unavailable"))
			return
		}
		actor := middleware.ActorFromContext(r.Context())
		if actor.IsGuest() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := svc.OrderItems(r.Context(), *actor.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order := ordercontrollers.CreateOrderRequest{
			Items:           make([]ordercontrollers.ItemRequest, 0, len(items)),
			ShippingAddress: payload.ShippingAddress,
			PaymentMethod:   string(enums.PaymentMethodStripe),
			CustomerNote:    payload.CustomerNote,
		}
		for _, item := range items {
			order.Items = append(order.Items, ordercontrollers.ItemRequest{ProductID: item.ProductID, Quantity: item.Quantity})
		}
		if err := validators.ValidateStruct(&order); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		create, err := order.ToInput(actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := payments.StartCheckout(r.Context(), internalpayments.StartCheckoutInput{Actor: actor, Order: &create})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

type addItemRequest struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity" validate:"ne=0"`
}

type checkoutRequest struct {
	ShippingAddress types.ShippingAddress `json:"shipping_address"`
	CustomerNote    *string               `json:"customer_note,omitempty"`
}

func callerID(r *http.Request) (uuid.UUID, error) {
	actor := middleware.ActorFromContext(r.Context())
	if actor.IsGuest() {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	return *actor.UserID, nil
}
