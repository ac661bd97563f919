package shipping

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MudassirSafi/Wolf-Backend/api/middleware"
	"github.com/MudassirSafi/Wolf-Backend/api/responses"
	"github.com/MudassirSafi/Wolf-Backend/api/validators"
	"github.com/MudassirSafi/Wolf-Backend/internal/shipments"
	"github.com/MudassirSafi/Wolf-Backend/pkg/enums"
	pkgerrors "github.com/MudassirSafi/Wolf-Backend/pkg/errors"
	"github.com/MudassirSafi/Wolf-Backend/pkg/logger"
)

const pickupDateLayout = "2006-01-02"

func unavailable(r *http.Request, logg *logger.Logger, w http.ResponseWriter) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shipment service unavailable"))
}

// Rates quotes a delivery fee for a destination and weight.
func Rates(svc shipments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(r, logg, w)
			return
		}

		var payload rateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		serviceType, err := parseServiceType(payload.ServiceType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rate, err := svc.Rate(r.Context(), shipments.RateInput{
			CountryCode: payload.CountryCode,
			City:        payload.City,
			PostCode:    payload.PostCode,
			WeightKg:    payload.WeightKg,
			ServiceType: serviceType,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rate)
	}
}

// Track polls the courier for the shipment and returns the refreshed state.
func Track(svc shipments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(r, logg, w)
			return
		}

		trackingNumber, err := validators.PathParam(r, "trackingNumber")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		shipment, err := svc.Track(r.Context(), middleware.ActorFromContext(r.Context()), trackingNumber)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, shipment)
	}
}

func ForOrder(svc shipments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(r, logg, w)
			return
		}

		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		shipment, err := svc.GetByOrder(r.Context(), middleware.ActorFromContext(r.Context()), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, shipment)
	}
}

// AdminCreate books a courier shipment for a paid order.
func AdminCreate(svc shipments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(r, logg, w)
			return
		}

		var payload createShipmentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		serviceType, err := parseServiceType(payload.ServiceType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		shipment, err := svc.Create(r.Context(), shipments.CreateShipmentInput{
			Actor:       middleware.ActorFromContext(r.Context()),
			OrderID:     payload.OrderID,
			WeightKg:    payload.WeightKg,
			ServiceType: serviceType,
			Remark:      payload.Remark,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, shipment)
	}
}

func AdminList(svc shipments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(r, logg, w)
			return
		}

		params, err := validators.ParsePage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter := shipments.ListFilter{CountryCode: strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("country_code")))}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			filter.Status = &status
		}

		result, err := svc.List(r.Context(), middleware.ActorFromContext(r.Context()), filter, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// AdminCancel cancels the waybill with the courier and records the reason.
func AdminCancel(svc shipments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(r, logg, w)
			return
		}

		trackingNumber, err := validators.PathParam(r, "trackingNumber")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload cancelShipmentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		shipment, err := svc.Cancel(r.Context(), shipments.CancelShipmentInput{
			Actor:          middleware.ActorFromContext(r.Context()),
			TrackingNumber: trackingNumber,
			Reason:         validators.SanitizeString(payload.Reason, 255),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, shipment)
	}
}

func AdminLabel(svc shipments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(r, logg, w)
			return
		}

		trackingNumber, err := validators.PathParam(r, "trackingNumber")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		label, err := svc.Label(r.Context(), middleware.ActorFromContext(r.Context()), trackingNumber)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, label)
	}
}

// AdminPickup schedules a courier collection from the warehouse.
func AdminPickup(svc shipments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(r, logg, w)
			return
		}

		trackingNumber, err := validators.PathParam(r, "trackingNumber")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload pickupRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		date, err := time.Parse(pickupDateLayout, strings.TrimSpace(payload.Date))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "pickup date must be YYYY-MM-DD").
				WithDetails(map[string]any{"field": "date"}))
			return
		}

		shipment, err := svc.SchedulePickup(r.Context(), shipments.SchedulePickupInput{
			Actor:          middleware.ActorFromContext(r.Context()),
			TrackingNumber: trackingNumber,
			Date:           date,
			TimeWindow:     strings.TrimSpace(payload.TimeWindow),
			Remark:         validators.SanitizeString(payload.Remark, 255),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, shipment)
	}
}

type rateRequest struct {
	CountryCode string  `json:"country_code" validate:"required,country"`
	City        string  `json:"city"`
	PostCode    string  `json:"post_code"`
	WeightKg    float64 `json:"weight_kg" validate:"gt=0"`
	ServiceType string  `json:"service_type"`
}

type createShipmentRequest struct {
	OrderID     uuid.UUID `json:"order_id"`
	WeightKg    *float64  `json:"weight_kg,omitempty" validate:"omitempty,gt=0"`
	ServiceType string    `json:"service_type"`
	Remark      *string   `json:"remark,omitempty"`
}

type cancelShipmentRequest struct {
	Reason string `json:"reason" validate:"required"`
}

type pickupRequest struct {
	Date       string `json:"date" validate:"required,datetime=2006-01-02"`
	TimeWindow string `json:"time_window"`
	Remark     string `json:"remark"`
}

func parseServiceType(raw string) (enums.ServiceType, error) {
	serviceType, err := enums.ParseServiceType(strings.TrimSpace(raw))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid service_type").
			WithDetails(map[string]any{"field": "service_type"})
	}
	return serviceType, nil
}
