package wishlist

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/MudassirSafi/Wolf-Backend/api/middleware"
	"github.com/MudassirSafi/Wolf-Backend/api/responses"
	"github.com/MudassirSafi/Wolf-Backend/api/validators"
	internalwishlist "github.com/MudassirSafi/Wolf-Backend/internal/wishlist"
	pkgerrors "github.com/MudassirSafi/Wolf-Backend/pkg/errors"
	"github.com/MudassirSafi/Wolf-Backend/pkg/logger"
)

// List returns a page of the caller's wishlist, newest first.
func List(svc internalwishlist.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wishlist service unavailable"))
			return
		}
		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.GetWishlist(r.Context(), userID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func IDs(svc internalwishlist.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wishlist service unavailable"))
			return
		}
		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ids, err := svc.GetWishlistIDs(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, ids)
	}
}

func Check(svc internalwishlist.Service, logg *logger.Logger) http.HandlerFunc {
	return membership(svc, logg, func(svc internalwishlist.Service, r *http.Request, userID, productID uuid.UUID) (*internalwishlist.MembershipDTO, error) {
		return svc.Check(r.Context(), userID, productID)
	})
}

// Add saves a product. Saving it twice is not an error.
func Add(svc internalwishlist.Service, logg *logger.Logger) http.HandlerFunc {
	return membership(svc, logg, func(svc internalwishlist.Service, r *http.Request, userID, productID uuid.UUID) (*internalwishlist.MembershipDTO, error) {
		return svc.AddItem(r.Context(), userID, productID)
	})
}

func Remove(svc internalwishlist.Service, logg *logger.Logger) http.HandlerFunc {
	return membership(svc, logg, func(svc internalwishlist.Service, r *http.Request, userID, productID uuid.UUID) (*internalwishlist.MembershipDTO, error) {
		return svc.RemoveItem(r.Context(), userID, productID)
	})
}

func Clear(svc internalwishlist.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wishlist service unavailable"))
			return
		}
		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Clear(r.Context(), userID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"cleared": true})
	}
}

type membershipFunc func(svc internalwishlist.Service, r *http.Request, userID, productID uuid.UUID) (*internalwishlist.MembershipDTO, error)

func membership(svc internalwishlist.Service, logg *logger.Logger, fn membershipFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wishlist service unavailable"))
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

		result, err := fn(svc, r, userID, productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func callerID(r *http.Request) (uuid.UUID, error) {
	actor := middleware.ActorFromContext(r.Context())
	if actor.IsGuest() {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	return *actor.UserID, nil
}
