package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/MudassirSafi/Wolf-Backend/pkg/db/models"
	"github.com/MudassirSafi/Wolf-Backend/pkg/enums"
	pkgerrors "github.com/MudassirSafi/Wolf-Backend/pkg/errors"
	"github.com/MudassirSafi/Wolf-Backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Create inserts the order together with its line items.
func (r *repository) Create(ctx context.Context, order *models.Order) error {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}
	return nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *repository) FindByPaymentSessionID(ctx context.Context, sessionID string) (*models.Order, error) {
	return r.findOne(ctx, "payment_session_id = ?", sessionID)
}

func (r *repository) findOne(ctx context.Context, query string, arg any) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("LineItems", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC").Order("id ASC")
		}).
		Where(query, arg).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, orderNotFound()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return &order, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{})
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.PaymentStatus != nil {
		query = query.Where("payment_status = ?", *filter.PaymentStatus)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count orders")
	}

	var rows []models.Order
	if err := query.
		Preload("LineItems").
		Order("created_at DESC").
		Order("id DESC").
		Offset(params.Offset()).
		Limit(params.Limit()).
		Find(&rows).Error; err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return rows, total, nil
}

// FindExpiredReservations returns unpaid orders still holding stock that were
// created before cutoff, oldest first.
func (r *repository) FindExpiredReservations(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	query := r.db.WithContext(ctx).
		Preload("LineItems").
		Where("payment_status = ? AND reservation_status = ? AND created_at < ?",
			enums.PaymentStatusPending, enums.ReservationStatusReserved, cutoff).
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []models.Order
	if err := query.Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list expired reservations")
	}
	return rows, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "update order")
	}
	if res.RowsAffected == 0 {
		return orderNotFound()
	}
	return nil
}

// SetPaymentSession records the checkout session while the order is unpaid.
func (r *repository) SetPaymentSession(ctx context.Context, id uuid.UUID, sessionID string) (bool, error) {
	return r.compareAndSet(ctx, id,
		map[string]any{"payment_status": enums.PaymentStatusPending},
		map[string]any{"payment_session_id": sessionID})
}

// MarkPaid moves payment_status pending -> paid. It reports false when another
// caller already settled the order.
func (r *repository) MarkPaid(ctx context.Context, id uuid.UUID, paidAt time.Time) (bool, error) {
	return r.compareAndSet(ctx, id,
		map[string]any{"payment_status": enums.PaymentStatusPending},
		map[string]any{"payment_status": enums.PaymentStatusPaid, "paid_at": paidAt})
}

func (r *repository) MarkPaymentFailed(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.compareAndSet(ctx, id,
		map[string]any{"payment_status": enums.PaymentStatusPending},
		map[string]any{"payment_status": enums.PaymentStatusFailed})
}

// MarkRefunded records a refund issued by the system, which may follow a
// failure that the admin transition table treats as final.
func (r *repository) MarkRefunded(ctx context.Context, id uuid.UUID, from enums.PaymentStatus) (bool, error) {
	return r.compareAndSet(ctx, id,
		map[string]any{"payment_status": from},
		map[string]any{"payment_status": enums.PaymentStatusRefunded})
}

func (r *repository) TransitionReservation(ctx context.Context, id uuid.UUID, from, to enums.ReservationStatus) (bool, error) {
	return r.compareAndSet(ctx, id,
		map[string]any{"reservation_status": from},
		map[string]any{"reservation_status": to})
}

func (r *repository) compareAndSet(ctx context.Context, id uuid.UUID, expect, updates map[string]any) (bool, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id)
	for column, value := range expect {
		query = query.Where(column+" = ?", value)
	}
	res := query.Updates(updates)
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "update order")
	}
	return res.RowsAffected == 1, nil
}

func orderNotFound() error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "order not found").WithReason(pkgerrors.ReasonOrderNotFound)
}
