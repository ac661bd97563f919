package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/MudassirSafi/Wolf-Backend/pkg/db/models"
	pkgerrors "github.com/MudassirSafi/Wolf-Backend/pkg/errors"
)

// Repository manages persistent cart items.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repository to the provided DB handle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx scopes the repository to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// List returns the user's cart lines with their products, oldest first.
func (r *Repository) List(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	var items []models.CartItem
	err := r.db.WithContext(ctx).
		Preload("Product").
		Where("user_id = ?", userID).
		Order("created_at ASC").Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return items, nil
}

// Adjust adds delta to the user's quantity of a product, creating the line
// when missing, and returns the new quantity. Lines that drop to zero or
// below are removed and report 0.
func (r *Repository) Adjust(ctx context.Context, userID, productID uuid.UUID, delta int) (int, error) {
	db := r.db.WithContext(ctx)
	line := models.CartItem{UserID: userID, ProductID: productID, Quantity: delta}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]any{"quantity": gorm.Expr("cart_items.quantity + ?", delta)}),
	}).Omit(clause.Associations).Create(&line).Error
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart")
	}

	var current models.CartItem
	query := db.Where("user_id = ? AND product_id = ?", userID, productID)
	if db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := query.Take(&current).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart line")
	}
	if current.Quantity > 0 {
		return current.Quantity, nil
	}
	if err := db.Delete(&models.CartItem{}, "id = ?", current.ID).Error; err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart line")
	}
	return 0, nil
}

// Remove deletes one product line and reports whether it existed.
func (r *Repository) Remove(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&models.CartItem{})
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "remove cart line")
	}
	return res.RowsAffected > 0, nil
}

// Clear empties the user's cart.
func (r *Repository) Clear(ctx context.Context, userID uuid.UUID) error {
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.CartItem{}).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}
