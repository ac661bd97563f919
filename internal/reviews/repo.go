package reviews

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/MudassirSafi/Wolf-Backend/pkg/db"
	"github.com/MudassirSafi/Wolf-Backend/pkg/db/models"
	pkgerrors "github.com/MudassirSafi/Wolf-Backend/pkg/errors"
	"github.com/MudassirSafi/Wolf-Backend/pkg/pagination"
)

const productUserConstraint = "ux_reviews_product_user"

// Repository persists product reviews.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a review; a second review of the same product by the same
// user fails with ReasonAlreadyReviewed.
func (r *Repository) Create(ctx context.Context, review *models.Review) error {
	if err := r.db.WithContext(ctx).Create(review).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			return alreadyReviewed(review.ProductID)
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create review")
	}
	return nil
}

// FindOwned loads a review written by userID. Reviews by other users are
// reported as missing.
func (r *Repository) FindOwned(ctx context.Context, id, userID uuid.UUID) (*models.Review, error) {
	var review models.Review
	if err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Take(&review).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, reviewNotFound()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load review")
	}
	return &review, nil
}

func (r *Repository) Exists(ctx context.Context, productID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Review{}).
		Where("product_id = ? AND user_id = ?", productID, userID).
		Count(&count).Error
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check review")
	}
	return count > 0, nil
}

// ListByProduct returns a page of a product's reviews, newest first.
func (r *Repository) ListByProduct(ctx context.Context, productID uuid.UUID, params pagination.Params) ([]models.Review, int64, error) {
	base := r.db.WithContext(ctx).Model(&models.Review{}).Where("product_id = ?", productID)
	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count reviews")
	}
	var rows []models.Review
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at DESC").Order("id DESC").
		Offset(params.Offset()).
		Limit(params.Limit()).
		Find(&rows).Error
	if err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reviews")
	}
	return rows, total, nil
}

// AverageRating returns the mean rating of a product, zero when unrated.
func (r *Repository) AverageRating(ctx context.Context, productID uuid.UUID) (float64, error) {
	var avg float64
	err := r.db.WithContext(ctx).Model(&models.Review{}).
		Select("COALESCE(AVG(rating), 0)").
		Where("product_id = ?", productID).
		Scan(&avg).Error
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "average rating")
	}
	return avg, nil
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if err := r.db.WithContext(ctx).Model(&models.Review{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update review")
	}
	return nil
}

// DeleteOwned removes a review written by userID and reports whether it existed.
func (r *Repository) DeleteOwned(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.Review{})
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "delete review")
	}
	return res.RowsAffected > 0, nil
}

func alreadyReviewed(productID uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeConflict, "product already reviewed").
		WithReason(pkgerrors.ReasonAlreadyReviewed).
		WithDetails(map[string]any{"product_id": productID.String(), "constraint": productUserConstraint})
}

func reviewNotFound() error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "review not found").WithReason(pkgerrors.ReasonReviewNotFound)
}
