package payments

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/MudassirSafi/Wolf-Backend/internal/catalog"
	"github.com/MudassirSafi/Wolf-Backend/internal/orders"
	"github.com/MudassirSafi/Wolf-Backend/pkg/config"
	"github.com/MudassirSafi/Wolf-Backend/pkg/db/models"
	"github.com/MudassirSafi/Wolf-Backend/pkg/enums"
	pkgerrors "github.com/MudassirSafi/Wolf-Backend/pkg/errors"
	"github.com/MudassirSafi/Wolf-Backend/pkg/logger"
	"github.com/MudassirSafi/Wolf-Backend/pkg/metrics"
	"github.com/MudassirSafi/Wolf-Backend/pkg/outbox"
	"github.com/MudassirSafi/Wolf-Backend/pkg/outbox/payloads"
	pkgstripe "github.com/MudassirSafi/Wolf-Backend/pkg/stripe"
)

const (
	reasonSessionExpired   = "checkout session expired"
	reasonPaymentFailed    = "payment failed"
	reasonCheckoutAborted  = "checkout could not be started"
	reasonPaidAfterFailure = "payment received after order was cancelled"
	systemActorRole        = "system"

	// keeps expires_at inside Stripe's window despite request latency
	sessionExpirySlack = time.Minute
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// CheckoutGateway creates, reads and closes hosted checkout sessions.
type CheckoutGateway interface {
	CreateSession(ctx context.Context, input pkgstripe.CheckoutSessionInput) (*pkgstripe.CheckoutSession, error)
	GetSession(ctx context.Context, id string) (*pkgstripe.CheckoutSession, error)
	ExpireSession(ctx context.Context, id string) (*pkgstripe.CheckoutSession, error)
	RefundSession(ctx context.Context, session *pkgstripe.CheckoutSession) (string, error)
}

type orderCreator interface {
	Create(ctx context.Context, input orders.CreateOrderInput) (*orders.OrderDTO, error)
}

// Service starts checkout sessions and reconciles their outcome with orders.
type Service interface {
	StartCheckout(ctx context.Context, input StartCheckoutInput) (*CheckoutResult, error)
	Confirm(ctx context.Context, sessionID string) (*ConfirmResult, error)
	FailSession(ctx context.Context, session *pkgstripe.CheckoutSession, reason string) error
	CloseCheckout(ctx context.Context, order *models.Order) (bool, error)
}

// StartCheckoutInput identifies the order to pay, either an existing one or
// the items for a new one.
type StartCheckoutInput struct {
	Actor   orders.Actor
	OrderID *uuid.UUID
	Order   *orders.CreateOrderInput
}

// CheckoutResult is returned to the client to redirect to the hosted page.
type CheckoutResult struct {
	OrderID   uuid.UUID `json:"order_id"`
	SessionID string    `json:"session_id"`
	URL       string    `json:"url"`
}

// ConfirmResult reports the order state after a session was checked.
type ConfirmResult struct {
	SessionID     string              `json:"session_id"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	Paid          bool                `json:"paid"`
	Order         orders.OrderDTO     `json:"order"`
}

// ServiceParams bundles the payment service dependencies.
type ServiceParams struct {
	Orders            orders.Repository
	OrderCreator      orderCreator
	Reservations      *orders.Reservations
	Catalog           *catalog.Repository
	Gateway           CheckoutGateway
	TransactionRunner txRunner
	Outbox            outboxPublisher
	Checkout          config.CheckoutConfig
	Stripe            config.StripeConfig
	Metrics           *metrics.PaymentMetrics
	Logger            *logger.Logger
}

type service struct {
	orders       orders.Repository
	creator      orderCreator
	reservations *orders.Reservations
	catalog      *catalog.Repository
	gateway      CheckoutGateway
	tx           txRunner
	outbox       outboxPublisher
	checkout     config.CheckoutConfig
	minCharge    int64
	metrics      *metrics.PaymentMetrics
	logg         *logger.Logger
	now          func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.OrderCreator == nil {
		return nil, fmt.Errorf("order service required")
	}
	if params.Reservations == nil {
		return nil, fmt.Errorf("reservations required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("checkout gateway required")
	}
	if params.TransactionRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		orders:       params.Orders,
		creator:      params.OrderCreator,
		reservations: params.Reservations,
		catalog:      params.Catalog,
		gateway:      params.Gateway,
		tx:           params.TransactionRunner,
		outbox:       params.Outbox,
		checkout:     params.Checkout,
		minCharge:    params.Stripe.MinChargeCents,
		metrics:      params.Metrics,
		logg:         params.Logger,
		now:          time.Now,
	}, nil
}

func (s *service) StartCheckout(ctx context.Context, input StartCheckoutInput) (*CheckoutResult, error) {
	var orderID uuid.UUID
	switch {
	case input.OrderID != nil && *input.OrderID != uuid.Nil:
		orderID = *input.OrderID
	case input.Order != nil:
		if err := s.precheckAmounts(ctx, input.Order.Items); err != nil {
			return nil, err
		}
		create := *input.Order
		create.Actor = input.Actor
		created, err := s.creator.Create(ctx, create)
		if err != nil {
			return nil, err
		}
		result, err := s.startSession(ctx, input.Actor, created.ID)
		if err != nil {
			s.abandon(ctx, created.ID, err)
			return nil, err
		}
		return result, nil
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order_id or items required")
	}
	return s.startSession(ctx, input.Actor, orderID)
}

func (s *service) startSession(ctx context.Context, actor orders.Actor, orderID uuid.UUID) (*CheckoutResult, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != nil && !actor.IsAdmin() && !actor.Owns(order.UserID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
	}
	if order.PaymentStatus != enums.PaymentStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not awaiting payment").
			WithDetails(map[string]any{"payment_status": string(order.PaymentStatus)})
	}
	if err := s.revalidateStock(ctx, order); err != nil {
		return nil, err
	}

	lines, err := s.checkoutLines(order)
	if err != nil {
		return nil, err
	}

	userID := ""
	if order.UserID != nil {
		userID = order.UserID.String()
	}
	session, err := s.gateway.CreateSession(ctx, pkgstripe.CheckoutSessionInput{
		OrderID:    order.ID.String(),
		UserID:     userID,
		Currency:   order.Currency,
		SuccessURL: s.successURL(order.ID),
		CancelURL:  s.cancelURL(order.ID),
		Lines:      lines,
		ExpiresAt:  s.sessionExpiry(order),
	})
	if err != nil {
		return nil, gatewayUnavailable(err, "create checkout session")
	}

	stored, err := s.orders.SetPaymentSession(ctx, order.ID, session.ID)
	if err != nil {
		return nil, err
	}
	if !stored {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not awaiting payment")
	}

	if s.logg != nil {
		logCtx := s.logg.WithPaymentSession(ctx, order.ID.String(), session.ID)
		s.logg.Info(logCtx, "checkout session created")
	}
	return &CheckoutResult{OrderID: order.ID, SessionID: session.ID, URL: session.URL}, nil
}

// abandon cancels an order created for a checkout that could not start so
// its stock returns to the shelf.
func (s *service) abandon(ctx context.Context, orderID uuid.UUID, cause error) {
	ctx = context.WithoutCancel(ctx)
	order, err := s.orders.FindByID(ctx, orderID)
	if err == nil {
		_, err = s.failOrder(ctx, order, "", reasonCheckoutAborted)
	}
	if s.logg == nil {
		return
	}
	logCtx := s.logg.WithOrderID(ctx, orderID.String())
	if err != nil {
		s.logg.Error(logCtx, "failed to release order after checkout error", err)
		return
	}
	s.logg.Warn(s.logg.WithField(logCtx, "cause", cause.Error()), "checkout aborted, order cancelled")
}

// sessionExpiry lines the hosted session up with the reservation deadline,
// clamped to the window Stripe accepts.
func (s *service) sessionExpiry(order *models.Order) time.Time {
	now := s.now().UTC()
	deadline := now.Add(s.checkout.ReservationTTL)
	if !order.CreatedAt.IsZero() {
		deadline = order.CreatedAt.UTC().Add(s.checkout.ReservationTTL)
	}
	earliest := now.Add(pkgstripe.MinSessionLifetime + sessionExpirySlack)
	latest := now.Add(pkgstripe.MaxSessionLifetime - sessionExpirySlack)
	if deadline.Before(earliest) {
		return earliest
	}
	if deadline.After(latest) {
		return latest
	}
	return deadline
}

func (s *service) Confirm(ctx context.Context, sessionID string) (*ConfirmResult, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session_id is required")
	}

	session, err := s.gateway.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pkgstripe.ErrSessionNotFound) {
			s.metrics.IncConfirmation(metrics.ConfirmFailed)
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "checkout session not found").
				WithReason(pkgerrors.ReasonOrderNotFound)
		}
		s.metrics.IncConfirmation(metrics.ConfirmFailed)
		return nil, gatewayUnavailable(err, "retrieve checkout session")
	}

	order, err := s.orderForSession(ctx, session)
	if err != nil {
		return nil, err
	}

	if !session.Paid() {
		s.metrics.IncConfirmation(metrics.ConfirmUnpaid)
		return confirmResult(session.ID, order, false), nil
	}

	settled := false
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		paidAt := s.now().UTC()
		moved, err := repo.MarkPaid(ctx, order.ID, paidAt)
		if err != nil || !moved {
			return err
		}
		settled = true
		if order.PaymentSessionID == nil || *order.PaymentSessionID != session.ID {
			if err := repo.Update(ctx, order.ID, map[string]any{"payment_session_id": session.ID}); err != nil {
				return err
			}
		}
		if _, err := s.reservations.Commit(ctx, tx, order); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: order.UserID, Role: systemActorRole},
			OccurredAt:    paidAt,
			Data: payloads.OrderPaidEvent{
				OrderID:   order.ID,
				SessionID: session.ID,
				Total:     order.Total,
				Currency:  order.Currency,
				PaidAt:    paidAt,
			},
		})
	})
	if err != nil {
		s.metrics.IncConfirmation(metrics.ConfirmFailed)
		return nil, err
	}

	current, err := s.orders.FindByID(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	if !settled && current.PaymentStatus == enums.PaymentStatusFailed {
		return s.refundLatePayment(ctx, session, current)
	}

	outcome := metrics.ConfirmAlreadyPaid
	if settled {
		outcome = metrics.ConfirmPaid
	}
	s.metrics.IncConfirmation(outcome)
	if s.logg != nil {
		logCtx := s.logg.WithField(s.logg.WithPaymentSession(ctx, order.ID.String(), session.ID), "outcome", outcome)
		if settled || current.PaymentStatus == enums.PaymentStatusPaid {
			s.logg.Info(logCtx, "checkout session confirmed")
		} else {
			s.logg.Warn(logCtx, "paid session for order no longer awaiting payment")
		}
	}
	return confirmResult(session.ID, current, current.PaymentStatus == enums.PaymentStatusPaid), nil
}

// FailSession marks a pending order's payment failed, cancels it and returns
// its reserved stock. Orders that already settled are left untouched.
func (s *service) FailSession(ctx context.Context, session *pkgstripe.CheckoutSession, reason string) error {
	if session == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "checkout session required")
	}
	if reason == "" {
		reason = reasonPaymentFailed
	}
	order, err := s.orderForSession(ctx, session)
	if err != nil {
		return err
	}

	failed, err := s.failOrder(ctx, order, session.ID, reason)
	if err != nil {
		return err
	}
	if failed && s.logg != nil {
		logCtx := s.logg.WithPaymentSession(ctx, order.ID.String(), session.ID)
		s.logg.Info(logCtx, "checkout session failed, reservation released")
	}
	return nil
}

// failOrder moves a pending payment to failed, cancels the order and releases
// its stock in one transaction. It reports false when the order had already
// left pending.
func (s *service) failOrder(ctx context.Context, order *models.Order, sessionID, reason string) (bool, error) {
	actor := &outbox.ActorRef{UserID: order.UserID, Role: systemActorRole}
	failed := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		moved, err := repo.MarkPaymentFailed(ctx, order.ID)
		if err != nil || !moved {
			return err
		}
		failed = true

		cancelledAt := s.now().UTC()
		updates := map[string]any{
			"cancelled_at":  cancelledAt,
			"cancel_reason": reason,
			"cancelled_by":  orders.SystemActor,
		}
		if !order.Status.IsTerminal() {
			updates["status"] = enums.OrderStatusCancelled
		}
		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return err
		}
		if _, err := s.reservations.Release(ctx, tx, order, reason, actor); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentFailed,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actor,
			Data: payloads.PaymentFailedEvent{
				OrderID:   order.ID,
				SessionID: sessionID,
				Reason:    reason,
			},
		})
	})
	if err != nil {
		return false, err
	}
	return failed, nil
}

// refundLatePayment returns money captured for an order that was already
// cancelled. The refund shares an idempotency key per session, so retried
// webhooks never refund twice.
func (s *service) refundLatePayment(ctx context.Context, session *pkgstripe.CheckoutSession, order *models.Order) (*ConfirmResult, error) {
	refundID, err := s.gateway.RefundSession(ctx, session)
	if err != nil {
		s.metrics.IncConfirmation(metrics.ConfirmFailed)
		return nil, gatewayUnavailable(err, "refund late payment")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		moved, err := s.orders.WithTx(tx).MarkRefunded(ctx, order.ID, enums.PaymentStatusFailed)
		if err != nil || !moved {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentRefunded,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: order.UserID, Role: systemActorRole},
			Data: payloads.PaymentRefundedEvent{
				OrderID:   order.ID,
				SessionID: session.ID,
				RefundID:  refundID,
				Reason:    reasonPaidAfterFailure,
			},
		})
	})
	if err != nil {
		s.metrics.IncConfirmation(metrics.ConfirmFailed)
		return nil, err
	}

	current, err := s.orders.FindByID(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	s.metrics.IncConfirmation(metrics.ConfirmRefunded)
	if s.logg != nil {
		logCtx := s.logg.WithField(s.logg.WithPaymentSession(ctx, order.ID.String(), session.ID), "refund_id", refundID)
		s.logg.Warn(logCtx, "payment received for cancelled order, refunded")
	}
	return confirmResult(session.ID, current, false), nil
}

// CloseCheckout stops an order's hosted session from taking payment before
// the order is expired. It reports true when the session turned out to be
// paid, in which case the order was settled instead.
func (s *service) CloseCheckout(ctx context.Context, order *models.Order) (bool, error) {
	if order == nil || order.PaymentSessionID == nil || *order.PaymentSessionID == "" {
		return false, nil
	}
	id := *order.PaymentSessionID
	session, err := s.gateway.GetSession(ctx, id)
	if err != nil {
		if errors.Is(err, pkgstripe.ErrSessionNotFound) {
			return false, nil
		}
		return false, gatewayUnavailable(err, "retrieve checkout session")
	}
	if session.Open() {
		expired, err := s.gateway.ExpireSession(ctx, id)
		if err != nil {
			// the buyer may have completed payment between the two calls
			latest, getErr := s.gateway.GetSession(ctx, id)
			if getErr != nil || !latest.Paid() {
				return false, gatewayUnavailable(err, "expire checkout session")
			}
			expired = latest
		}
		session = expired
	}
	if !session.Paid() {
		return false, nil
	}
	result, err := s.Confirm(ctx, id)
	if err != nil {
		return false, err
	}
	return result.Paid, nil
}

func (s *service) orderForSession(ctx context.Context, session *pkgstripe.CheckoutSession) (*models.Order, error) {
	if id, err := uuid.Parse(session.OrderID); err == nil {
		return s.orders.FindByID(ctx, id)
	}
	return s.orders.FindByPaymentSessionID(ctx, session.ID)
}

// precheckAmounts rejects items priced below the minimum charge before any
// order is created. Unknown products and bad quantities are left to order
// creation, which reports them.
func (s *service) precheckAmounts(ctx context.Context, items []orders.ItemInput) error {
	ids := make([]uuid.UUID, 0, len(items))
	quantities := make(map[uuid.UUID]int, len(items))
	for _, item := range items {
		if item.ProductID == uuid.Nil || item.Quantity <= 0 {
			continue
		}
		if _, seen := quantities[item.ProductID]; !seen {
			ids = append(ids, item.ProductID)
		}
		quantities[item.ProductID] += item.Quantity
	}
	if len(ids) == 0 {
		return nil
	}
	products, err := s.catalog.FindActiveByIDs(ctx, ids)
	if err != nil {
		return err
	}
	var total int64
	for _, id := range ids {
		product, ok := products[id]
		if !ok {
			continue
		}
		unit := pkgstripe.MinorUnits(product.Price)
		if err := s.checkUnit(id, unit, quantities[id]); err != nil {
			return err
		}
		total += unit * int64(quantities[id])
	}
	if total < s.minCharge {
		return invalidAmount(total, s.minCharge)
	}
	return nil
}

func (s *service) checkUnit(productID uuid.UUID, unit int64, quantity int) error {
	if unit >= s.minCharge {
		return nil
	}
	return invalidAmount(unit, s.minCharge).WithDetails(map[string]any{
		"product_id":  productID.String(),
		"unit_amount": unit,
		"quantity":    quantity,
		"minimum":     s.minCharge,
	})
}

// revalidateStock confirms every line is still held for the order.
func (s *service) revalidateStock(ctx context.Context, order *models.Order) error {
	if !order.ReservationStatus.Holding() {
		return insufficientStock(uuid.Nil, "reservation no longer held")
	}
	ids := make([]uuid.UUID, 0, len(order.LineItems))
	for _, item := range order.LineItems {
		ids = append(ids, item.ProductID)
	}
	products, err := s.catalog.FindActiveByIDs(ctx, ids)
	if err != nil {
		return err
	}
	for _, item := range order.LineItems {
		product, ok := products[item.ProductID]
		if !ok {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithReason(pkgerrors.ReasonProductNotFound).
				WithDetails(map[string]any{"product_id": item.ProductID.String()})
		}
		if product.ReservedStock < item.Quantity {
			return insufficientStock(item.ProductID, "insufficient stock")
		}
	}
	return nil
}

func (s *service) checkoutLines(order *models.Order) ([]pkgstripe.CheckoutLine, error) {
	lines := make([]pkgstripe.CheckoutLine, 0, len(order.LineItems)+1)
	var total int64
	for _, item := range order.LineItems {
		unit := pkgstripe.MinorUnits(item.UnitPrice)
		if err := s.checkUnit(item.ProductID, unit, item.Quantity); err != nil {
			return nil, err
		}
		total += unit * int64(item.Quantity)
		lines = append(lines, pkgstripe.CheckoutLine{Name: item.Name, UnitAmount: unit, Quantity: int64(item.Quantity)})
	}
	extras := []pkgstripe.CheckoutLine{
		{Name: "Shipping", UnitAmount: pkgstripe.MinorUnits(order.ShippingFee), Quantity: 1},
		{Name: "Tax", UnitAmount: pkgstripe.MinorUnits(order.Tax), Quantity: 1},
	}
	for _, extra := range extras {
		if extra.UnitAmount > 0 {
			total += extra.UnitAmount
			lines = append(lines, extra)
		}
	}
	if total < s.minCharge {
		return nil, invalidAmount(total, s.minCharge)
	}
	return lines, nil
}

func (s *service) successURL(orderID uuid.UUID) string {
	return fmt.Sprintf("%s/order-success?session_id={CHECKOUT_SESSION_ID}&order_id=%s",
		s.frontendBase(), url.QueryEscape(orderID.String()))
}

func (s *service) cancelURL(orderID uuid.UUID) string {
	return fmt.Sprintf("%s/checkout?canceled=1&order_id=%s", s.frontendBase(), url.QueryEscape(orderID.String()))
}

func (s *service) frontendBase() string {
	return strings.TrimRight(strings.TrimSpace(s.checkout.FrontendURL), "/")
}

func confirmResult(sessionID string, order *models.Order, paid bool) *ConfirmResult {
	return &ConfirmResult{
		SessionID:     sessionID,
		PaymentStatus: order.PaymentStatus,
		Paid:          paid,
		Order:         orders.NewOrderDTO(order),
	}
}

func gatewayUnavailable(err error, msg string) error {
	return pkgerrors.Wrap(pkgerrors.CodeUpstream, err, msg).WithReason(pkgerrors.ReasonPaymentGatewayUnavailable)
}

func invalidAmount(amount, minimum int64) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeValidation, "amount below minimum charge").
		WithReason(pkgerrors.ReasonInvalidAmount).
		WithDetails(map[string]any{"amount": amount, "minimum": minimum})
}

func insufficientStock(productID uuid.UUID, msg string) error {
	err := pkgerrors.New(pkgerrors.CodeIntegrity, msg).WithReason(pkgerrors.ReasonInsufficientStock)
	if productID != uuid.Nil {
		err = err.WithDetails(map[string]any{"product_id": productID.String()})
	}
	return err
}
