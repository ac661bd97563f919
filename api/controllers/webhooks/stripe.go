package webhooks

import (
	"context"
	"net/http"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/MudassirSafi/Wolf-Backend/api/responses"
	pkgerrors "github.com/MudassirSafi/Wolf-Backend/pkg/errors"
	"github.com/MudassirSafi/Wolf-Backend/pkg/logger"
)

const stripeSignatureHeader = "Stripe-Signature"

type StripeWebhookService interface {
	HandleEvent(ctx context.Context, event *stripe.Event) error
}

type eventGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

type stripeClient interface {
	SigningSecret() string
}

type stripeWebhook struct {
	svc    StripeWebhookService
	client stripeClient
	guard  eventGuard
	logg   *logger.Logger
}

// StripeWebhook verifies and applies checkout session events. Replayed event
// ids are acknowledged without reprocessing. A transient failure releases the
// claim and answers 5xx so Stripe redelivers; a permanent one is acknowledged.
func StripeWebhook(svc StripeWebhookService, client stripeClient, guard eventGuard, logg *logger.Logger) http.HandlerFunc {
	h := &stripeWebhook{svc: svc, client: client, guard: guard, logg: logg}
	return h.serve
}

func (h *stripeWebhook) serve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.ready(); err != nil {
		responses.WriteError(ctx, h.logg, w, err)
		return
	}

	event, err := h.verify(w, r)
	if err != nil {
		responses.WriteError(ctx, h.logg, w, err)
		return
	}
	if h.logg != nil {
		ctx = h.logg.WithFields(ctx, map[string]any{"event_id": event.ID, "event_type": string(event.Type)})
	}

	seen, err := h.guard.CheckAndMark(ctx, event.ID)
	if err != nil {
		responses.WriteError(ctx, h.logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
		return
	}
	if !seen {
		if err := h.apply(ctx, &event); err != nil {
			responses.WriteError(ctx, h.logg, w, err)
			return
		}
	}
	responses.WriteSuccess(w, received)
}

func (h *stripeWebhook) ready() error {
	switch {
	case h.svc == nil:
		return pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable")
	case h.client == nil:
		return pkgerrors.New(pkgerrors.CodeInternal, "stripe client unavailable")
	case h.guard == nil:
		return pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard unavailable")
	}
	return nil
}

func (h *stripeWebhook) verify(w http.ResponseWriter, r *http.Request) (stripe.Event, error) {
	payload, err := readPayload(w, r)
	if err != nil {
		return stripe.Event{}, err
	}
	signature := r.Header.Get(stripeSignatureHeader)
	if signature == "" {
		return stripe.Event{}, invalidSignature("stripe signature missing")
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, h.client.SigningSecret(), webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return stripe.Event{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid stripe signature").
			WithReason(pkgerrors.ReasonInvalidSignature)
	}
	return event, nil
}

// apply runs the event through the service. Only retryable failures surface;
// a permanent failure keeps the claim since redelivery would fail the same way.
func (h *stripeWebhook) apply(ctx context.Context, event *stripe.Event) error {
	err := h.svc.HandleEvent(ctx, event)
	switch {
	case err == nil:
		if h.logg != nil {
			h.logg.Info(ctx, "stripe event processed")
		}
		return nil
	case !pkgerrors.IsRetryable(err):
		if h.logg != nil {
			h.logg.Warn(h.logg.WithField(ctx, "error", err.Error()), "stripe event rejected")
		}
		return nil
	}
	if delErr := h.guard.Delete(ctx, event.ID); delErr != nil && h.logg != nil {
		h.logg.Error(ctx, "release stripe event claim", delErr)
	}
	return err
}
