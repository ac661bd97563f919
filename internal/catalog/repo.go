package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/MudassirSafi/Wolf-Backend/pkg/db/models"
	pkgerrors "github.com/MudassirSafi/Wolf-Backend/pkg/errors"
	"github.com/MudassirSafi/Wolf-Backend/pkg/pagination"
)

// Repository persists products and applies stock movements as single
// conditional statements so concurrent callers can never drive stock below zero.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindByID loads a product regardless of its active flag.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, productNotFound()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return &product, nil
}

// FindActiveByIDs returns the active products among ids, keyed by id.
func (r *Repository) FindActiveByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	out := make(map[uuid.UUID]models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Product
	if err := r.db.WithContext(ctx).
		Where("id IN ? AND is_active = ?", ids, true).
		Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

// ListActive returns one page of active products, newest first.
func (r *Repository) ListActive(ctx context.Context, params pagination.Params) ([]models.Product, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Product{}).Where("is_active = ?", true)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count products")
	}

	var rows []models.Product
	if err := query.
		Order("created_at DESC").
		Order("id DESC").
		Offset(params.Offset()).
		Limit(params.Limit()).
		Find(&rows).Error; err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return rows, total, nil
}

// Create inserts a new product.
func (r *Repository) Create(ctx context.Context, product *models.Product) error {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	return nil
}

// Reserve moves qty units from available to reserved stock.
func (r *Repository) Reserve(ctx context.Context, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return invalidQuantity(qty)
	}
	res := r.db.WithContext(ctx).Exec(`
		UPDATE products
		SET stock = stock - ?,
			reserved_stock = reserved_stock + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND stock >= ?
	`, qty, qty, productID, qty)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "reserve stock")
	}
	if res.RowsAffected == 0 {
		return r.explainMiss(ctx, productID, "insufficient stock")
	}
	return nil
}

// Commit consumes qty reserved units once payment settles.
func (r *Repository) Commit(ctx context.Context, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return invalidQuantity(qty)
	}
	res := r.db.WithContext(ctx).Exec(`
		UPDATE products
		SET reserved_stock = reserved_stock - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND reserved_stock >= ?
	`, qty, productID, qty)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "commit stock")
	}
	if res.RowsAffected == 0 {
		return r.explainMiss(ctx, productID, "reserved stock below commit quantity")
	}
	return nil
}

// Release returns qty reserved units to available stock.
func (r *Repository) Release(ctx context.Context, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return invalidQuantity(qty)
	}
	res := r.db.WithContext(ctx).Exec(`
		UPDATE products
		SET stock = stock + ?,
			reserved_stock = reserved_stock - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND reserved_stock >= ?
	`, qty, qty, productID, qty)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "release stock")
	}
	if res.RowsAffected == 0 {
		return r.explainMiss(ctx, productID, "reserved stock below release quantity")
	}
	return nil
}

func (r *Repository) explainMiss(ctx context.Context, productID uuid.UUID, msg string) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", productID).Count(&count).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if count == 0 {
		return productNotFound()
	}
	return pkgerrors.New(pkgerrors.CodeIntegrity, msg).
		WithReason(pkgerrors.ReasonInsufficientStock).
		WithDetails(map[string]any{"product_id": productID.String()})
}

func productNotFound() error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "product not found").WithReason(pkgerrors.ReasonProductNotFound)
}

func invalidQuantity(qty int) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1").
		WithReason(pkgerrors.ReasonInvalidQuantity).
		WithDetails(map[string]any{"quantity": qty})
}
