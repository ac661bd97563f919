package stripe

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/checkout/session"
	"github.com/stripe/stripe-go/v84/refund"
)

// MetadataOrderID is the session metadata key carrying the order id.
const (
	MetadataOrderID = "order_id"
	MetadataUserID  = "user_id"
)

// ErrSessionNotFound is returned when Stripe has no session with the given id.
var ErrSessionNotFound = errors.New("stripe checkout session not found")

// ErrNothingToRefund is returned for sessions that never created a payment.
var ErrNothingToRefund = errors.New("checkout session has no payment to refund")

// Stripe accepts expires_at between 30 minutes and 24 hours after creation.
const (
	MinSessionLifetime = 30 * time.Minute
	MaxSessionLifetime = 24 * time.Hour
)

// CheckoutLine is one priced line on a hosted checkout page.
type CheckoutLine struct {
	Name       string
	UnitAmount int64
	Quantity   int64
}

// CheckoutSessionInput describes the hosted checkout session to create.
type CheckoutSessionInput struct {
	OrderID    string
	UserID     string
	Currency   string
	SuccessURL string
	CancelURL  string
	Lines      []CheckoutLine
	// ExpiresAt closes the session early. Zero keeps Stripe's default.
	ExpiresAt time.Time
}

// CheckoutSession is the subset of a Stripe checkout session the payment flow reads.
type CheckoutSession struct {
	ID            string
	URL           string
	Status        string
	PaymentStatus string
	OrderID         string
	PaymentIntentID string
	AmountTotal     int64
}

// Paid reports whether Stripe considers the session settled.
func (s *CheckoutSession) Paid() bool {
	return s != nil && s.PaymentStatus == string(stripe.CheckoutSessionPaymentStatusPaid)
}

// Open reports whether the session still accepts payment.
func (s *CheckoutSession) Open() bool {
	return s != nil && s.Status == string(stripe.CheckoutSessionStatusOpen)
}

// Expired reports whether the session can no longer be paid.
func (s *CheckoutSession) Expired() bool {
	return s != nil && s.Status == string(stripe.CheckoutSessionStatusExpired)
}

// CheckoutGateway creates and retrieves hosted checkout sessions.
type CheckoutGateway struct{}

// NewCheckoutGateway returns a gateway bound to the globally configured Stripe key.
func NewCheckoutGateway(api *Client) *CheckoutGateway {
	if api == nil {
		return nil
	}
	return &CheckoutGateway{}
}

// CreateSession opens a payment-mode checkout session.
func (g *CheckoutGateway) CreateSession(ctx context.Context, input CheckoutSessionInput) (*CheckoutSession, error) {
	currency := strings.ToLower(strings.TrimSpace(input.Currency))
	lines := make([]*stripe.CheckoutSessionLineItemParams, 0, len(input.Lines))
	for _, line := range input.Lines {
		lines = append(lines, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(currency),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(line.Name),
				},
				UnitAmount: stripe.Int64(line.UnitAmount),
			},
			Quantity: stripe.Int64(line.Quantity),
		})
	}

	metadata := map[string]string{MetadataOrderID: input.OrderID}
	if input.UserID != "" {
		metadata[MetadataUserID] = input.UserID
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:         lines,
		SuccessURL:        stripe.String(input.SuccessURL),
		CancelURL:         stripe.String(input.CancelURL),
		ClientReferenceID: stripe.String(input.OrderID),
		Metadata:          metadata,
	}
	if !input.ExpiresAt.IsZero() {
		params.ExpiresAt = stripe.Int64(input.ExpiresAt.Unix())
	}
	params.Context = ctx

	sess, err := session.New(params)
	if err != nil {
		return nil, err
	}
	return SessionFromStripe(sess), nil
}

// GetSession retrieves a session by id. Missing sessions yield ErrSessionNotFound.
func (g *CheckoutGateway) GetSession(ctx context.Context, id string) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	sess, err := session.Get(id, params)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return SessionFromStripe(sess), nil
}

// ExpireSession closes an open session so it can no longer be paid. Stripe
// refuses to expire sessions that already completed.
func (g *CheckoutGateway) ExpireSession(ctx context.Context, id string) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionExpireParams{}
	params.Context = ctx
	sess, err := session.Expire(id, params)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return SessionFromStripe(sess), nil
}

// RefundSession refunds the payment taken by a session in full and returns
// the refund id. Repeated calls for one session share an idempotency key.
func (g *CheckoutGateway) RefundSession(ctx context.Context, sess *CheckoutSession) (string, error) {
	if sess == nil || sess.PaymentIntentID == "" {
		return "", ErrNothingToRefund
	}
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(sess.PaymentIntentID),
		Metadata:      map[string]string{MetadataOrderID: sess.OrderID},
	}
	params.Context = ctx
	params.SetIdempotencyKey("refund-" + sess.ID)
	r, err := refund.New(params)
	if err != nil {
		return "", err
	}
	return r.ID, nil
}

// SessionFromStripe maps the SDK type, including sessions decoded from webhook payloads.
func SessionFromStripe(sess *stripe.CheckoutSession) *CheckoutSession {
	if sess == nil {
		return nil
	}
	out := &CheckoutSession{
		ID:            sess.ID,
		URL:           sess.URL,
		Status:        string(sess.Status),
		PaymentStatus: string(sess.PaymentStatus),
		AmountTotal:   sess.AmountTotal,
	}
	if sess.PaymentIntent != nil {
		out.PaymentIntentID = sess.PaymentIntent.ID
	}
	if orderID := sess.Metadata[MetadataOrderID]; orderID != "" {
		out.OrderID = orderID
	} else {
		out.OrderID = sess.ClientReferenceID
	}
	return out
}

func isNotFound(err error) bool {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return false
	}
	return stripeErr.HTTPStatusCode == http.StatusNotFound || stripeErr.Code == stripe.ErrorCodeResourceMissing
}
