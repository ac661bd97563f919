package shipments

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/MudassirSafi/Wolf-Backend/internal/orders"
	"github.com/MudassirSafi/Wolf-Backend/pkg/config"
	"github.com/MudassirSafi/Wolf-Backend/pkg/db"
	"github.com/MudassirSafi/Wolf-Backend/pkg/db/models"
	"github.com/MudassirSafi/Wolf-Backend/pkg/enums"
	pkgerrors "github.com/MudassirSafi/Wolf-Backend/pkg/errors"
	"github.com/MudassirSafi/Wolf-Backend/pkg/jnt"
	"github.com/MudassirSafi/Wolf-Backend/pkg/logger"
	"github.com/MudassirSafi/Wolf-Backend/pkg/outbox"
	"github.com/MudassirSafi/Wolf-Backend/pkg/outbox/payloads"
	"github.com/MudassirSafi/Wolf-Backend/pkg/pagination"
	"github.com/MudassirSafi/Wolf-Backend/pkg/types"
)

const (
	carrierName          = "J&T Express"
	minWeightKg          = 0.1
	createdDescription   = "Shipment created"
	defaultCancelReason  = "cancelled by admin"
	pickupStatusBooked   = "scheduled"
	orphanCancelReason   = "duplicate shipment"
	pdfDataURIPrefix     = "data:application/pdf;base64,"
	rawStatusCreated     = "CREATED"
	rawStatusCancelled   = "CANCELLED"
	defaultRateWeightKg  = 1.0
	countryCodeLength    = 2
	itemDescriptionSep   = ", "
	itemDescriptionShape = "%s (x%d)"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Courier is the subset of the J&T client the shipment service drives.
type Courier interface {
	CreateOrder(ctx context.Context, req jnt.CreateOrderRequest) (*jnt.CreateOrderResult, error)
	Track(ctx context.Context, billCode string) (*jnt.TrackResult, error)
	CalculateRate(ctx context.Context, req jnt.RateRequest) jnt.Rate
	GetLabel(ctx context.Context, billCode string) (*jnt.LabelResult, error)
	SchedulePickup(ctx context.Context, req jnt.PickupRequest) (*jnt.PickupResult, error)
	Cancel(ctx context.Context, billCode, reason string) error
	VerifyWebhook(body []byte, signature string) bool
}

// Service opens courier shipments and keeps them reconciled with orders.
type Service interface {
	Create(ctx context.Context, input CreateShipmentInput) (*ShipmentDTO, error)
	Ingest(ctx context.Context, update TrackingUpdate) (*ShipmentDTO, error)
	Track(ctx context.Context, actor orders.Actor, trackingNumber string) (*ShipmentDTO, error)
	Cancel(ctx context.Context, input CancelShipmentInput) (*ShipmentDTO, error)
	HandleWebhook(ctx context.Context, body []byte, signature string) error
	Label(ctx context.Context, actor orders.Actor, trackingNumber string) (*LabelDTO, error)
	SchedulePickup(ctx context.Context, input SchedulePickupInput) (*ShipmentDTO, error)
	Rate(ctx context.Context, input RateInput) (jnt.Rate, error)
	List(ctx context.Context, actor orders.Actor, filter ListFilter, params pagination.Params) (*ShipmentListResult, error)
	GetByOrder(ctx context.Context, actor orders.Actor, orderID uuid.UUID) (*ShipmentDTO, error)
}

type CreateShipmentInput struct {
	Actor       orders.Actor
	OrderID     uuid.UUID
	WeightKg    *float64
	ServiceType enums.ServiceType
	Remark      *string
}

type CancelShipmentInput struct {
	Actor          orders.Actor
	TrackingNumber string
	Reason         string
}

type SchedulePickupInput struct {
	Actor          orders.Actor
	TrackingNumber string
	Date           time.Time
	TimeWindow     string
	Remark         string
}

// RateInput describes the destination to quote.
type RateInput struct {
	CountryCode string
	City        string
	PostCode    string
	WeightKg    float64
	ServiceType enums.ServiceType
}

// ServiceParams bundles the shipment service dependencies.
type ServiceParams struct {
	Shipments         Repository
	Orders            orders.Repository
	Reservations      *orders.Reservations
	Courier           Courier
	TransactionRunner txRunner
	Outbox            outboxPublisher
	Warehouse         config.WarehouseConfig
	Logger            *logger.Logger
}

type service struct {
	shipments    Repository
	orders       orders.Repository
	reservations *orders.Reservations
	courier      Courier
	tx           txRunner
	outbox       outboxPublisher
	warehouse    config.WarehouseConfig
	logg         *logger.Logger
	now          func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Shipments == nil {
		return nil, fmt.Errorf("shipments repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Reservations == nil {
		return nil, fmt.Errorf("reservations required")
	}
	if params.Courier == nil {
		return nil, fmt.Errorf("courier client required")
	}
	if params.TransactionRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		shipments:    params.Shipments,
		orders:       params.Orders,
		reservations: params.Reservations,
		courier:      params.Courier,
		tx:           params.TransactionRunner,
		outbox:       params.Outbox,
		warehouse:    params.Warehouse,
		logg:         params.Logger,
		now:          time.Now,
	}, nil
}

// Create opens a waybill with the courier and records the shipment together
// with the order projection in one transaction.
func (s *service) Create(ctx context.Context, input CreateShipmentInput) (*ShipmentDTO, error) {
	if !input.Actor.IsAdmin() {
		return nil, adminRequired()
	}
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order_id is required")
	}
	serviceType := input.ServiceType
	if serviceType == "" {
		serviceType = enums.ServiceTypeStandard
	}
	if !serviceType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid service type").
			WithDetails(map[string]any{"service_type": string(serviceType)})
	}

	existing, err := s.shipments.FindByOrderID(ctx, input.OrderID)
	switch {
	case err == nil:
		return nil, alreadyExists(existing.TrackingNumber)
	case !pkgerrors.HasReason(err, pkgerrors.ReasonShipmentNotFound):
		return nil, err
	}

	order, err := s.orders.FindByID(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if order.Status == enums.OrderStatusCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is cancelled")
	}
	if !order.PaymentMethod.CollectsOnDelivery() && !order.PaymentStatus.Settled() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not paid").
			WithDetails(map[string]any{"payment_status": string(order.PaymentStatus)})
	}

	weight := order.TotalWeight
	if input.WeightKg != nil && *input.WeightKg > 0 {
		weight = *input.WeightKg
	}
	weight = math.Max(minWeightKg, weight)

	codAmount := decimal.Zero
	if order.PaymentMethod.CollectsOnDelivery() {
		codAmount = order.Total
	}
	description, quantity := describeItems(order.LineItems)
	sender := s.sender()
	receiver := receiverFor(order)
	remark := ""
	if input.Remark != nil {
		remark = strings.TrimSpace(*input.Remark)
	}

	logCtx := ctx
	if s.logg != nil {
		logCtx = s.logg.WithOrderID(ctx, order.ID.String())
	}

	accepted, err := s.courier.CreateOrder(ctx, jnt.CreateOrderRequest{
		OrderID:        order.ID.String(),
		ServiceType:    serviceType,
		Sender:         sender,
		Receiver:       receiver,
		TotalQuantity:  quantity,
		WeightKg:       weight,
		ItemsName:      description,
		InsuranceValue: order.Total,
		CODAmount:      codAmount,
		Currency:       strings.ToUpper(order.Currency),
		Remark:         remark,
	})
	if err != nil {
		if s.logg != nil {
			s.logg.Error(logCtx, "courier refused shipment", err)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "create courier shipment").
			WithReason(pkgerrors.ReasonShipmentCreationFailed)
	}

	now := s.now().UTC()
	eta := jnt.EstimatedDelivery(receiver.CountryCode, now)
	shipment := &models.Shipment{
		OrderID:           order.ID,
		TrackingNumber:    accepted.BillCode,
		SortingCode:       optional(accepted.SortingCode),
		PackageCode:       optional(accepted.PackageCode),
		InternationalCode: optional(accepted.InternationalCode),
		ShortCode:         optional(accepted.ShortCode),
		Status:            enums.OrderStatusPending,
		Sender:            sender,
		Receiver:          receiver,
		ReceiverCountry:   receiver.CountryCode,
		WeightKg:          weight,
		DeclaredValue:     order.Total,
		CODAmount:         codAmount,
		ShippingFee:       order.ShippingFee,
		Currency:          order.Currency,
		ServiceType:       serviceType,
		ItemsDescription:  description,
		TotalQuantity:     quantity,
		EstimatedDelivery: &eta,
		Remark:            optional(remark),
		TrackingEvents: []models.ShipmentTrackingEvent{{
			OccurredAt:  now,
			Location:    sender.City,
			Status:      enums.OrderStatusPending,
			RawStatus:   rawStatusCreated,
			Description: createdDescription,
		}},
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.shipments.WithTx(tx).Create(ctx, shipment); err != nil {
			if db.IsUniqueViolation(err, "") {
				return alreadyExists("")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create shipment")
		}

		updates := map[string]any{
			"shipping_carrier":   carrierName,
			"tracking_number":    shipment.TrackingNumber,
			"service_type":       serviceType,
			"estimated_delivery": eta,
		}
		if order.Status.CanAdvanceTo(enums.OrderStatusProcessing) {
			updates["status"] = enums.OrderStatusProcessing
		}
		if err := s.orders.WithTx(tx).Update(ctx, order.ID, updates); err != nil {
			return err
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventShipmentCreated,
			AggregateType: enums.AggregateShipment,
			AggregateID:   shipment.ID,
			Actor:         input.Actor.Ref(),
			OccurredAt:    now,
			Data: payloads.ShipmentCreatedEvent{
				ShipmentID:        shipment.ID,
				OrderID:           order.ID,
				TrackingNumber:    shipment.TrackingNumber,
				ServiceType:       serviceType,
				EstimatedDelivery: &eta,
			},
		})
	})
	if err != nil {
		s.voidOrphan(logCtx, accepted.BillCode, err)
		if pkgerrors.HasReason(err, pkgerrors.ReasonShipmentAlreadyExists) {
			if current, lookupErr := s.shipments.FindByOrderID(ctx, order.ID); lookupErr == nil {
				return nil, alreadyExists(current.TrackingNumber)
			}
		}
		return nil, err
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithTrackingNumber(logCtx, shipment.TrackingNumber), "shipment created")
	}
	return s.load(ctx, shipment.ID)
}

// voidOrphan cancels a waybill the courier accepted but that could not be
// recorded locally.
func (s *service) voidOrphan(ctx context.Context, billCode string, cause error) {
	cancelErr := s.courier.Cancel(context.WithoutCancel(ctx), billCode, orphanCancelReason)
	if s.logg == nil {
		return
	}
	logCtx := s.logg.WithTrackingNumber(ctx, billCode)
	s.logg.Error(logCtx, "persist shipment failed", cause)
	if cancelErr != nil {
		s.logg.Error(logCtx, "void orphaned waybill failed", cancelErr)
	}
}

// Cancel voids the waybill with the courier, then cancels the shipment and
// its order.
func (s *service) Cancel(ctx context.Context, input CancelShipmentInput) (*ShipmentDTO, error) {
	if !input.Actor.IsAdmin() {
		return nil, adminRequired()
	}
	shipment, err := s.shipments.FindByTrackingNumber(ctx, strings.TrimSpace(input.TrackingNumber))
	if err != nil {
		return nil, err
	}
	if shipment.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "shipment can no longer be cancelled").
			WithDetails(map[string]any{"status": string(shipment.Status)})
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		reason = defaultCancelReason
	}

	if err := s.courier.Cancel(ctx, shipment.TrackingNumber, reason); err != nil {
		if rejected, ok := jnt.IsRejected(err); ok {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "courier refused cancellation").
				WithReason(pkgerrors.ReasonCancellationRejected).
				WithDetails(map[string]any{"courier_code": rejected.Code, "courier_message": rejected.Message})
		}
		return nil, courierUnavailable(err, "cancel courier shipment")
	}

	cancelledAt := s.now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.shipments.WithTx(tx)
		if err := repo.Update(ctx, shipment.ID, map[string]any{
			"status":          enums.OrderStatusCancelled,
			"last_tracked_at": cancelledAt,
		}); err != nil {
			return err
		}
		if err := repo.AppendEvent(ctx, &models.ShipmentTrackingEvent{
			ShipmentID:  shipment.ID,
			OccurredAt:  cancelledAt,
			Status:      enums.OrderStatusCancelled,
			RawStatus:   rawStatusCancelled,
			Description: "Cancelled: " + reason,
		}); err != nil {
			return err
		}

		orderRepo := s.orders.WithTx(tx)
		order, err := orderRepo.FindByID(ctx, shipment.OrderID)
		if err != nil {
			return err
		}
		if err := orderRepo.Update(ctx, order.ID, map[string]any{
			"status":          enums.OrderStatusCancelled,
			"cancelled_at":    cancelledAt,
			"cancel_reason":   reason,
			"cancelled_by":    input.Actor.Label(),
			"last_tracked_at": cancelledAt,
		}); err != nil {
			return err
		}
		if _, err := s.reservations.Release(ctx, tx, order, reason, input.Actor.Ref()); err != nil {
			return err
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventShipmentCancelled,
			AggregateType: enums.AggregateShipment,
			AggregateID:   shipment.ID,
			Actor:         input.Actor.Ref(),
			OccurredAt:    cancelledAt,
			Data: payloads.ShipmentCancelledEvent{
				ShipmentID:     shipment.ID,
				OrderID:        shipment.OrderID,
				TrackingNumber: shipment.TrackingNumber,
				Reason:         reason,
				CancelledAt:    cancelledAt,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithTrackingNumber(ctx, shipment.TrackingNumber), "shipment cancelled")
	}
	return s.load(ctx, shipment.ID)
}

// Label fetches the printable waybill and stores its location.
func (s *service) Label(ctx context.Context, actor orders.Actor, trackingNumber string) (*LabelDTO, error) {
	if !actor.IsAdmin() {
		return nil, adminRequired()
	}
	shipment, err := s.shipments.FindByTrackingNumber(ctx, strings.TrimSpace(trackingNumber))
	if err != nil {
		return nil, err
	}
	label, err := s.courier.GetLabel(ctx, shipment.TrackingNumber)
	if err != nil {
		return nil, courierUnavailable(err, "fetch shipping label")
	}
	labelURL := strings.TrimSpace(label.LabelURL)
	if labelURL == "" && label.LabelBase64 != "" {
		labelURL = pdfDataURIPrefix + label.LabelBase64
	}
	if labelURL == "" {
		return nil, courierUnavailable(fmt.Errorf("%w: empty label", jnt.ErrUnavailable), "fetch shipping label")
	}

	generatedAt := s.now().UTC()
	if err := s.shipments.Update(ctx, shipment.ID, map[string]any{
		"label_url":          labelURL,
		"label_generated_at": generatedAt,
	}); err != nil {
		return nil, err
	}
	return &LabelDTO{TrackingNumber: shipment.TrackingNumber, LabelURL: labelURL, GeneratedAt: generatedAt}, nil
}

// SchedulePickup books a courier collection from the warehouse.
func (s *service) SchedulePickup(ctx context.Context, input SchedulePickupInput) (*ShipmentDTO, error) {
	if !input.Actor.IsAdmin() {
		return nil, adminRequired()
	}
	if input.Date.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pickup date is required")
	}
	shipment, err := s.shipments.FindByTrackingNumber(ctx, strings.TrimSpace(input.TrackingNumber))
	if err != nil {
		return nil, err
	}
	if shipment.Status.IsTerminal() {
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "shipment is already %s", shipment.Status).
			WithDetails(map[string]any{"status": string(shipment.Status)})
	}

	booked, err := s.courier.SchedulePickup(ctx, jnt.PickupRequest{
		Date:          input.Date,
		TimeWindow:    input.TimeWindow,
		Address:       s.sender(),
		TotalQuantity: shipment.TotalQuantity,
		Remark:        input.Remark,
	})
	if err != nil {
		return nil, courierUnavailable(err, "schedule pickup")
	}

	info := &types.PickupInfo{
		Scheduled:    true,
		PickupNo:     booked.PickupNo,
		PickupDate:   booked.PickupDate,
		PickupTime:   booked.PickupTime,
		PickupStatus: pickupStatusBooked,
	}
	if err := s.shipments.Update(ctx, shipment.ID, map[string]any{"pickup": info}); err != nil {
		return nil, err
	}
	return s.load(ctx, shipment.ID)
}

// Rate quotes shipping from the warehouse. Courier failures fall back to the
// static table inside the client.
func (s *service) Rate(ctx context.Context, input RateInput) (jnt.Rate, error) {
	country := strings.ToUpper(strings.TrimSpace(input.CountryCode))
	if len(country) != countryCodeLength {
		return jnt.Rate{}, pkgerrors.New(pkgerrors.CodeValidation, "country_code must be a 2-letter code")
	}
	serviceType := input.ServiceType
	if serviceType == "" {
		serviceType = enums.ServiceTypeStandard
	}
	if !serviceType.IsValid() {
		return jnt.Rate{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid service type")
	}
	weight := input.WeightKg
	if weight <= 0 {
		weight = defaultRateWeightKg
	}
	return s.courier.CalculateRate(ctx, jnt.RateRequest{
		SenderCountry:    s.warehouse.CountryCode,
		SenderCity:       s.warehouse.City,
		SenderPostCode:   s.warehouse.PostCode,
		ReceiverCountry:  country,
		ReceiverCity:     input.City,
		ReceiverPostCode: input.PostCode,
		WeightKg:         weight,
		ServiceType:      serviceType,
	}), nil
}

func (s *service) List(ctx context.Context, actor orders.Actor, filter ListFilter, params pagination.Params) (*ShipmentListResult, error) {
	if !actor.IsAdmin() {
		return nil, adminRequired()
	}
	filter.CountryCode = strings.ToUpper(strings.TrimSpace(filter.CountryCode))
	rows, total, err := s.shipments.List(ctx, filter, params)
	if err != nil {
		return nil, err
	}
	items := make([]ShipmentDTO, 0, len(rows))
	for i := range rows {
		items = append(items, NewShipmentDTO(&rows[i]))
	}
	return &ShipmentListResult{Items: items, PageInfo: pagination.NewPageInfo(params, total)}, nil
}

func (s *service) GetByOrder(ctx context.Context, actor orders.Actor, orderID uuid.UUID) (*ShipmentDTO, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !actor.Owns(order.UserID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
	}
	shipment, err := s.shipments.FindByOrderID(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	dto := NewShipmentDTO(shipment)
	return &dto, nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*ShipmentDTO, error) {
	shipment, err := s.shipments.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := NewShipmentDTO(shipment)
	return &dto, nil
}

func (s *service) sender() types.Party {
	w := s.warehouse
	return types.Party{
		Name:        w.Name,
		Mobile:      w.Mobile,
		Phone:       w.Phone,
		Email:       w.Email,
		CountryCode: strings.ToUpper(strings.TrimSpace(w.CountryCode)),
		Country:     w.Country,
		City:        w.City,
		Area:        w.Area,
		Address:     w.Address,
		PostCode:    w.PostCode,
	}
}

func receiverFor(order *models.Order) types.Party {
	addr := order.ShippingAddress
	email := addr.Email
	if email == "" && order.GuestEmail != nil {
		email = *order.GuestEmail
	}
	return types.Party{
		Name:        addr.FullName,
		Mobile:      addr.Mobile,
		Email:       email,
		CountryCode: addr.NormalizedCountryCode(),
		Country:     addr.Country,
		City:        addr.City,
		Area:        addr.Area,
		Address:     addr.Address,
		PostCode:    addr.PostCode,
	}
}

func describeItems(items []models.OrderLineItem) (string, int) {
	parts := make([]string, 0, len(items))
	quantity := 0
	for _, item := range items {
		parts = append(parts, fmt.Sprintf(itemDescriptionShape, item.Name, item.Quantity))
		quantity += item.Quantity
	}
	return strings.Join(parts, itemDescriptionSep), quantity
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

func adminRequired() error {
	return pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
}

func alreadyExists(trackingNumber string) error {
	err := pkgerrors.New(pkgerrors.CodeConflict, "shipment already exists for order").
		WithReason(pkgerrors.ReasonShipmentAlreadyExists)
	if trackingNumber != "" {
		err = err.WithDetails(map[string]any{"tracking_number": trackingNumber})
	}
	return err
}

func courierUnavailable(err error, msg string) error {
	return pkgerrors.Wrap(pkgerrors.CodeUpstream, err, msg).WithReason(pkgerrors.ReasonCourierUnavailable)
}
