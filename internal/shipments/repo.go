package shipments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/MudassirSafi/Wolf-Backend/pkg/db/models"
	"github.com/MudassirSafi/Wolf-Backend/pkg/enums"
	pkgerrors "github.com/MudassirSafi/Wolf-Backend/pkg/errors"
	"github.com/MudassirSafi/Wolf-Backend/pkg/pagination"
)

// Repository persists shipments and their tracking history.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, shipment *models.Shipment) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Shipment, error)
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Shipment, error)
	FindByTrackingNumber(ctx context.Context, trackingNumber string) (*models.Shipment, error)
	List(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.Shipment, int64, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	Lock(ctx context.Context, id uuid.UUID) (*models.Shipment, error)
	UpdateFromStatus(ctx context.Context, id uuid.UUID, from enums.OrderStatus, updates map[string]any) (bool, error)
	StampDelivered(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	AppendEvent(ctx context.Context, event *models.ShipmentTrackingEvent) error
}

// ListFilter narrows the admin shipment listing.
type ListFilter struct {
	Status      *enums.OrderStatus
	CountryCode string
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Create inserts the shipment with any tracking events attached to it. Unique
// violations are returned unwrapped so callers can translate them.
func (r *repository) Create(ctx context.Context, shipment *models.Shipment) error {
	return r.db.WithContext(ctx).Create(shipment).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Shipment, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *repository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Shipment, error) {
	return r.findOne(ctx, "order_id = ?", orderID)
}

func (r *repository) FindByTrackingNumber(ctx context.Context, trackingNumber string) (*models.Shipment, error) {
	return r.findOne(ctx, "tracking_number = ?", trackingNumber)
}

func (r *repository) findOne(ctx context.Context, query string, arg any) (*models.Shipment, error) {
	var shipment models.Shipment
	err := r.db.WithContext(ctx).
		Preload("TrackingEvents", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		Where(query, arg).
		First(&shipment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shipmentNotFound()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shipment")
	}
	return &shipment, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.Shipment, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Shipment{})
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.CountryCode != "" {
		query = query.Where("receiver_country_code = ?", filter.CountryCode)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count shipments")
	}

	var rows []models.Shipment
	if err := query.
		Order("created_at DESC").
		Order("id DESC").
		Offset(params.Offset()).
		Limit(params.Limit()).
		Find(&rows).Error; err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list shipments")
	}
	return rows, total, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&models.Shipment{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "update shipment")
	}
	if res.RowsAffected == 0 {
		return shipmentNotFound()
	}
	return nil
}

// Lock re-reads the shipment row inside a transaction, holding a row lock on
// postgres until the transaction ends. History is not loaded.
func (r *repository) Lock(ctx context.Context, id uuid.UUID) (*models.Shipment, error) {
	query := r.db.WithContext(ctx)
	if query.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var shipment models.Shipment
	if err := query.Where("id = ?", id).First(&shipment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shipmentNotFound()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock shipment")
	}
	return &shipment, nil
}

// UpdateFromStatus applies updates only while the shipment still has status
// from. It reports false when another writer moved the status first.
func (r *repository) UpdateFromStatus(ctx context.Context, id uuid.UUID, from enums.OrderStatus, updates map[string]any) (bool, error) {
	if len(updates) == 0 {
		return true, nil
	}
	res := r.db.WithContext(ctx).Model(&models.Shipment{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "update shipment")
	}
	return res.RowsAffected == 1, nil
}

// StampDelivered sets actual_delivery once. Later calls report false.
func (r *repository) StampDelivered(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Shipment{}).
		Where("id = ? AND actual_delivery IS NULL", id).
		Update("actual_delivery", at)
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "stamp delivery")
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) AppendEvent(ctx context.Context, event *models.ShipmentTrackingEvent) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append tracking event")
	}
	return nil
}

func shipmentNotFound() error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "shipment not found").WithReason(pkgerrors.ReasonShipmentNotFound)
}
