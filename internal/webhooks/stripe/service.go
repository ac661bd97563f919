package stripewebhook

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/stripe/stripe-go/v84"

	"github.com/MudassirSafi/Wolf-Backend/internal/payments"
	pkgerrors "github.com/MudassirSafi/Wolf-Backend/pkg/errors"
	"github.com/MudassirSafi/Wolf-Backend/pkg/logger"
	pkgstripe "github.com/MudassirSafi/Wolf-Backend/pkg/stripe"
)

const (
	reasonExpired     = "checkout session expired"
	reasonAsyncFailed = "async payment failed"
)

type paymentReconciler interface {
	Confirm(ctx context.Context, sessionID string) (*payments.ConfirmResult, error)
	FailSession(ctx context.Context, session *pkgstripe.CheckoutSession, reason string) error
}

// Service routes verified Stripe events to payment reconciliation.
type Service struct {
	payments paymentReconciler
	logg     *logger.Logger
}

func NewService(payments paymentReconciler, logg *logger.Logger) (*Service, error) {
	if payments == nil {
		return nil, errors.New("payment service required")
	}
	return &Service{payments: payments, logg: logg}, nil
}

// HandleEvent applies a checkout session event. Event types the shop does not
// act on are acknowledged without work.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted,
		stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
		session, err := decodeSession(event)
		if err != nil {
			return err
		}
		_, err = s.payments.Confirm(ctx, session.ID)
		return err
	case stripe.EventTypeCheckoutSessionExpired:
		session, err := decodeSession(event)
		if err != nil {
			return err
		}
		return s.payments.FailSession(ctx, session, reasonExpired)
	case stripe.EventTypeCheckoutSessionAsyncPaymentFailed:
		session, err := decodeSession(event)
		if err != nil {
			return err
		}
		return s.payments.FailSession(ctx, session, reasonAsyncFailed)
	default:
		if s.logg != nil {
			logCtx := s.logg.WithField(ctx, "event_type", string(event.Type))
			s.logg.Debug(logCtx, "ignoring stripe event")
		}
		return nil
	}
}

func decodeSession(event *stripe.Event) (*pkgstripe.CheckoutSession, error) {
	var raw stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &raw); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode checkout session event")
	}
	if raw.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout session id missing")
	}
	return pkgstripe.SessionFromStripe(&raw), nil
}
