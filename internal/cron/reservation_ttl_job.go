package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/MudassirSafi/Wolf-Backend/internal/orders"
	"github.com/MudassirSafi/Wolf-Backend/pkg/db/models"
	"github.com/MudassirSafi/Wolf-Backend/pkg/enums"
	"github.com/MudassirSafi/Wolf-Backend/pkg/logger"
	"github.com/MudassirSafi/Wolf-Backend/pkg/outbox"
)

const (
	defaultReservationTTL   = 30 * time.Minute
	defaultReservationBatch = 200
	reservationExpiredNote  = "payment window expired"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// checkoutCloser stops a hosted checkout from taking payment. It reports true
// when the checkout had already been paid and the order was settled instead.
type checkoutCloser interface {
	CloseCheckout(ctx context.Context, order *models.Order) (bool, error)
}

type expiredReservationReader interface {
	FindExpiredReservations(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
}

// ReservationTTLJobParams configure the reservation reaper.
type ReservationTTLJobParams struct {
	Logger       *logger.Logger
	DB           txRunner
	Orders       orders.Repository
	Reservations *orders.Reservations
	// Checkout is optional; without it open sessions are left to lapse.
	Checkout  checkoutCloser
	TTL       time.Duration
	BatchSize int
}

// NewReservationTTLJob builds the job that cancels unpaid orders whose stock
// hold outlived the payment window.
func NewReservationTTLJob(params ReservationTTLJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Reservations == nil {
		return nil, fmt.Errorf("reservations required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultReservationTTL
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultReservationBatch
	}
	return &reservationTTLJob{
		logg:         params.Logger,
		db:           params.DB,
		orders:       params.Orders,
		reader:       params.Orders,
		reservations: params.Reservations,
		checkout:     params.Checkout,
		ttl:          ttl,
		batch:        batch,
		now:          time.Now,
	}, nil
}

type reservationTTLJob struct {
	logg         *logger.Logger
	db           txRunner
	orders       orders.Repository
	reader       expiredReservationReader
	reservations *orders.Reservations
	checkout     checkoutCloser
	ttl          time.Duration
	batch        int
	now          func() time.Time
}

func (j *reservationTTLJob) Name() string { return "reservation-ttl" }

func (j *reservationTTLJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	expired, err := j.reader.FindExpiredReservations(ctx, cutoff, j.batch)
	if err != nil {
		return fmt.Errorf("query expired reservations: %w", err)
	}

	var errs error
	released := 0
	for i := range expired {
		order := expired[i]
		ok, err := j.expire(ctx, &order)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("expire order %s: %w", order.ID, err))
			continue
		}
		if ok {
			released++
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":   cutoff,
		"found":    len(expired),
		"released": released,
	})
	j.logg.Info(logCtx, "reservation expiry loop complete")
	return errs
}

// expire fails the payment, cancels the order and returns its stock. It
// reports false when the order settled after it was selected.
func (j *reservationTTLJob) expire(ctx context.Context, order *models.Order) (bool, error) {
	if j.checkout != nil {
		settled, err := j.checkout.CloseCheckout(ctx, order)
		if err != nil {
			return false, fmt.Errorf("close checkout: %w", err)
		}
		if settled {
			j.logg.Info(j.logg.WithOrderID(ctx, order.ID.String()), "order paid before its payment window closed")
			return false, nil
		}
	}

	expired := false
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := j.orders.WithTx(tx)
		moved, err := repo.MarkPaymentFailed(ctx, order.ID)
		if err != nil || !moved {
			return err
		}

		updates := map[string]any{
			"cancelled_at":  j.now().UTC(),
			"cancel_reason": reservationExpiredNote,
			"cancelled_by":  orders.SystemActor,
		}
		if !order.Status.IsTerminal() {
			updates["status"] = enums.OrderStatusCancelled
		}
		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return err
		}

		released, err := j.reservations.Release(ctx, tx, order, reservationExpiredNote, &outbox.ActorRef{Role: orders.SystemActor})
		if err != nil {
			return err
		}
		expired = released
		return nil
	})
	if err != nil {
		return false, err
	}
	if expired {
		j.logg.Info(j.logg.WithOrderID(ctx, order.ID.String()), "reservation released after payment window")
	}
	return expired, nil
}
