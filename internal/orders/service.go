package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/MudassirSafi/Wolf-Backend/internal/catalog"
	"github.com/MudassirSafi/Wolf-Backend/pkg/config"
	"github.com/MudassirSafi/Wolf-Backend/pkg/db/models"
	"github.com/MudassirSafi/Wolf-Backend/pkg/enums"
	pkgerrors "github.com/MudassirSafi/Wolf-Backend/pkg/errors"
	"github.com/MudassirSafi/Wolf-Backend/pkg/logger"
	"github.com/MudassirSafi/Wolf-Backend/pkg/outbox"
	"github.com/MudassirSafi/Wolf-Backend/pkg/outbox/payloads"
	"github.com/MudassirSafi/Wolf-Backend/pkg/pagination"
	"github.com/MudassirSafi/Wolf-Backend/pkg/types"
)

const (
	defaultOrderWeightKg = 1.0
	adminCancelReason    = "cancelled by admin"
	paymentClosedReason  = "payment marked %s by admin"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service defines the order aggregate operations.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput) (*OrderDTO, error)
	UpdateStatus(ctx context.Context, input UpdateStatusInput) (*OrderDTO, error)
	List(ctx context.Context, actor Actor, filter ListFilter, params pagination.Params) (*OrderListResult, error)
	Get(ctx context.Context, actor Actor, id uuid.UUID) (*OrderDTO, error)
}

// ItemInput is one requested product quantity.
type ItemInput struct {
	ProductID uuid.UUID
	Quantity  int
}

// CreateOrderInput carries a buyer's order request.
type CreateOrderInput struct {
	Actor           Actor
	Items           []ItemInput
	ShippingAddress types.ShippingAddress
	PaymentMethod   enums.PaymentMethod
	CustomerNote    *string
}

// UpdateStatusInput carries an admin status change. Correction allows moves
// that would otherwise regress the order.
type UpdateStatusInput struct {
	Actor         Actor
	OrderID       uuid.UUID
	Status        *enums.OrderStatus
	PaymentStatus *enums.PaymentStatus
	AdminNote     *string
	Correction    bool
}

type service struct {
	repo         Repository
	stock        *catalog.Repository
	reservations *Reservations
	tx           txRunner
	outbox       outboxPublisher
	cfg          config.CheckoutConfig
	logg         *logger.Logger
	now          func() time.Time
}

// NewService builds an order service with the required dependencies.
func NewService(repo Repository, stock *catalog.Repository, tx txRunner, outbox outboxPublisher, cfg config.CheckoutConfig, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	reservations, err := NewReservations(repo, stock, outbox)
	if err != nil {
		return nil, err
	}
	return &service{
		repo:         repo,
		stock:        stock,
		reservations: reservations,
		tx:           tx,
		outbox:       outbox,
		cfg:          cfg,
		logg:         logg,
		now:          time.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateOrderInput) (*OrderDTO, error) {
	if input.Actor.IsGuest() && !s.cfg.AllowGuest {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to place an order")
	}
	if err := validateAddress(input.ShippingAddress, input.Actor.IsGuest()); err != nil {
		return nil, err
	}
	method := input.PaymentMethod
	if method == "" {
		method = enums.PaymentMethodStripe
	}
	if !method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method").
			WithDetails(map[string]any{"payment_method": string(method)})
	}

	lines, err := mergeItems(input.Items)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}
	products, err := s.stock.FindActiveByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		if _, ok := products[id]; !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithReason(pkgerrors.ReasonProductNotFound).
				WithDetails(map[string]any{"product_id": id.String()})
		}
	}

	order := buildOrder(input, method, lines, products, s.cfg.Currency)

	if err := catalog.ReserveAll(ctx, s.stock, lines); err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         input.Actor.Ref(),
			Data: payloads.OrderCreatedEvent{
				OrderID:       order.ID,
				UserID:        order.UserID,
				Total:         order.Total,
				Currency:      order.Currency,
				PaymentMethod: order.PaymentMethod,
				Lines:         eventLines(order),
			},
		})
	})
	if err != nil {
		if relErr := catalog.ReleaseAll(context.WithoutCancel(ctx), s.stock, lines); relErr != nil && s.logg != nil {
			s.logg.Error(ctx, "failed to release reservation after order write failed", relErr)
		}
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithOrderID(ctx, order.ID.String())
		s.logg.Info(logCtx, "order created")
	}
	dto := NewOrderDTO(order)
	return &dto, nil
}

func (s *service) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*OrderDTO, error) {
	if !input.Actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	if input.Status == nil && input.PaymentStatus == nil && input.AdminNote == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status, payment_status or admin_note required")
	}
	if input.Status != nil && !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status")
	}
	if input.PaymentStatus != nil && !input.PaymentStatus.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment status")
	}

	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, input.OrderID)
		if err != nil {
			return err
		}

		from := order.Status
		updates := map[string]any{}
		if input.Status != nil && *input.Status != order.Status {
			if !order.Status.CanAdvanceTo(*input.Status) && !input.Correction {
				return statusRegression("status", string(order.Status), string(*input.Status))
			}
			updates["status"] = *input.Status
			order.Status = *input.Status
		}
		if input.PaymentStatus != nil && *input.PaymentStatus != order.PaymentStatus {
			if !order.PaymentStatus.CanTransitionTo(*input.PaymentStatus) && !input.Correction {
				return statusRegression("payment_status", string(order.PaymentStatus), string(*input.PaymentStatus))
			}
			updates["payment_status"] = *input.PaymentStatus
			order.PaymentStatus = *input.PaymentStatus
			if *input.PaymentStatus == enums.PaymentStatusPaid && order.PaidAt == nil {
				paidAt := s.now().UTC()
				updates["paid_at"] = paidAt
				order.PaidAt = &paidAt
			}
		}
		if input.AdminNote != nil {
			note := strings.TrimSpace(*input.AdminNote)
			updates["admin_note"] = note
			order.AdminNote = &note
		}

		cancelling := order.Status == enums.OrderStatusCancelled && from != enums.OrderStatusCancelled
		if cancelling {
			cancelledAt := s.now().UTC()
			reason := adminCancelReason
			if order.AdminNote != nil && *order.AdminNote != "" {
				reason = *order.AdminNote
			}
			by := input.Actor.Label()
			updates["cancelled_at"] = cancelledAt
			updates["cancel_reason"] = reason
			updates["cancelled_by"] = by
			order.CancelledAt = &cancelledAt
			order.CancelReason = &reason
			order.CancelledBy = &by
		}

		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return err
		}
		switch {
		case cancelling && order.ReservationStatus.Holding():
			if _, err := s.reservations.Release(ctx, tx, order, *order.CancelReason, input.Actor.Ref()); err != nil {
				return err
			}
		case order.PaymentStatus.Settled() && order.ReservationStatus.Holding():
			if _, err := s.reservations.Commit(ctx, tx, order); err != nil {
				return err
			}
		case order.PaymentStatus.Closed() && order.ReservationStatus.Holding():
			reason := fmt.Sprintf(paymentClosedReason, order.PaymentStatus)
			if _, err := s.reservations.Release(ctx, tx, order, reason, input.Actor.Ref()); err != nil {
				return err
			}
		}

		note := ""
		if order.AdminNote != nil {
			note = *order.AdminNote
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         input.Actor.Ref(),
			Data: payloads.OrderStatusChangedEvent{
				OrderID:       order.ID,
				From:          from,
				To:            order.Status,
				PaymentStatus: order.PaymentStatus,
				Correction:    input.Correction,
				Note:          note,
			},
		}); err != nil {
			return err
		}

		result, err = repo.FindByID(ctx, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_id":   result.ID.String(),
			"status":     result.Status,
			"correction": input.Correction,
		})
		s.logg.Info(logCtx, "order status updated")
	}
	dto := NewOrderDTO(result)
	return &dto, nil
}

func (s *service) List(ctx context.Context, actor Actor, filter ListFilter, params pagination.Params) (*OrderListResult, error) {
	if actor.IsGuest() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if filter.UserID == nil && !actor.IsAdmin() {
		filter.UserID = actor.UserID
	}
	if filter.UserID != nil && !actor.IsAdmin() && *filter.UserID != *actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot list another user's orders")
	}

	params = params.Normalize()
	rows, total, err := s.repo.List(ctx, filter, params)
	if err != nil {
		return nil, err
	}
	items := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		items = append(items, NewOrderDTO(&rows[i]))
	}
	return &OrderListResult{Items: items, PageInfo: pagination.NewPageInfo(params, total)}, nil
}

func (s *service) Get(ctx context.Context, actor Actor, id uuid.UUID) (*OrderDTO, error) {
	if actor.IsGuest() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !actor.Owns(order.UserID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
	}
	dto := NewOrderDTO(order)
	return &dto, nil
}

// mergeItems validates quantities and folds duplicate products into one line,
// keeping first-seen order.
func mergeItems(items []ItemInput) ([]catalog.Line, error) {
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item is required")
	}
	index := make(map[uuid.UUID]int, len(items))
	lines := make([]catalog.Line, 0, len(items))
	for _, item := range items {
		if item.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product_id is required")
		}
		if item.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1").
				WithReason(pkgerrors.ReasonInvalidQuantity).
				WithDetails(map[string]any{"product_id": item.ProductID.String(), "quantity": item.Quantity})
		}
		if pos, ok := index[item.ProductID]; ok {
			lines[pos].Quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(lines)
		lines = append(lines, catalog.Line{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return lines, nil
}

func buildOrder(input CreateOrderInput, method enums.PaymentMethod, lines []catalog.Line, products map[uuid.UUID]models.Product, currency string) *models.Order {
	order := &models.Order{
		ID:                uuid.New(),
		UserID:            input.Actor.UserID,
		ShippingFee:       decimal.Zero,
		Tax:               decimal.Zero,
		Currency:          strings.ToLower(strings.TrimSpace(currency)),
		PaymentMethod:     method,
		PaymentStatus:     enums.PaymentStatusPending,
		Status:            enums.OrderStatusPending,
		ReservationStatus: enums.ReservationStatusReserved,
		ShippingAddress:   normalizeAddress(input.ShippingAddress),
		CustomerNote:      trimmedOrNil(input.CustomerNote),
	}
	if input.Actor.IsGuest() {
		email := strings.TrimSpace(input.ShippingAddress.Email)
		order.GuestEmail = &email
	}

	subtotal := decimal.Zero
	weight := 0.0
	for _, line := range lines {
		product := products[line.ProductID]
		qty := decimal.NewFromInt(int64(line.Quantity))
		lineTotal := product.Price.Mul(qty).Round(2)
		subtotal = subtotal.Add(lineTotal)
		weight += product.WeightKg * float64(line.Quantity)
		order.LineItems = append(order.LineItems, models.OrderLineItem{
			OrderID:   order.ID,
			ProductID: product.ID,
			Name:      product.Name,
			ImageURL:  product.ImageURL,
			Quantity:  line.Quantity,
			UnitPrice: product.Price,
			LineTotal: lineTotal,
		})
	}
	if weight <= 0 {
		weight = defaultOrderWeightKg
	}
	order.Subtotal = subtotal
	order.Total = subtotal.Add(order.ShippingFee).Add(order.Tax)
	order.TotalWeight = weight
	return order
}

func validateAddress(addr types.ShippingAddress, guest bool) error {
	missing := []string{}
	for field, value := range map[string]string{
		"full_name":    addr.FullName,
		"mobile":       addr.Mobile,
		"country_code": addr.CountryCode,
		"city":         addr.City,
		"address":      addr.Address,
	} {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, field)
		}
	}
	if guest && strings.TrimSpace(addr.Email) == "" {
		missing = append(missing, "email")
	}
	if len(missing) > 0 {
		details := make(map[string]string, len(missing))
		for _, field := range missing {
			details["shipping_address."+field] = "is required"
		}
		return pkgerrors.New(pkgerrors.CodeValidation, "shipping address incomplete").WithDetails(details)
	}
	return nil
}

func normalizeAddress(addr types.ShippingAddress) types.ShippingAddress {
	addr.FullName = strings.TrimSpace(addr.FullName)
	addr.Mobile = strings.TrimSpace(addr.Mobile)
	addr.Email = strings.TrimSpace(addr.Email)
	addr.CountryCode = addr.NormalizedCountryCode()
	addr.City = strings.TrimSpace(addr.City)
	addr.Address = strings.TrimSpace(addr.Address)
	return addr
}

func statusRegression(field, from, to string) error {
	return pkgerrors.Newf(pkgerrors.CodeStateConflict, "%s cannot move from %s to %s", field, from, to).
		WithReason(pkgerrors.ReasonStatusRegression).
		WithDetails(map[string]any{"field": field, "from": from, "to": to})
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
