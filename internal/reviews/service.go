package reviews

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/MudassirSafi/Wolf-Backend/pkg/db/models"
	pkgerrors "github.com/MudassirSafi/Wolf-Backend/pkg/errors"
	"github.com/MudassirSafi/Wolf-Backend/pkg/pagination"
)

const (
	minRating        = 1
	maxRating        = 5
	maxCommentLength = 2000
)

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type userLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Service manages product reviews.
type Service interface {
	ListForProduct(ctx context.Context, productID uuid.UUID, params pagination.Params) (*ReviewListResult, error)
	Create(ctx context.Context, input CreateReviewInput) (*ReviewDTO, error)
	Update(ctx context.Context, input UpdateReviewInput) (*ReviewDTO, error)
	Delete(ctx context.Context, userID, reviewID uuid.UUID) error
}

// CreateReviewInput carries a new review from an authenticated user.
type CreateReviewInput struct {
	UserID    uuid.UUID
	ProductID uuid.UUID
	Rating    int
	Comment   string
}

// UpdateReviewInput edits a review owned by UserID.
type UpdateReviewInput struct {
	UserID   uuid.UUID
	ReviewID uuid.UUID
	Rating   int
	Comment  string
}

type service struct {
	repo     *Repository
	products productLoader
	users    userLoader
}

func NewService(repo *Repository, products productLoader, users userLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("review repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if users == nil {
		return nil, fmt.Errorf("user loader required")
	}
	return &service{repo: repo, products: products, users: users}, nil
}

func (s *service) ListForProduct(ctx context.Context, productID uuid.UUID, params pagination.Params) (*ReviewListResult, error) {
	params = params.Normalize()
	rows, total, err := s.repo.ListByProduct(ctx, productID, params)
	if err != nil {
		return nil, err
	}
	avg, err := s.repo.AverageRating(ctx, productID)
	if err != nil {
		return nil, err
	}
	items := make([]ReviewDTO, 0, len(rows))
	for i := range rows {
		items = append(items, NewReviewDTO(&rows[i]))
	}
	return &ReviewListResult{
		Items:         items,
		AverageRating: math.Round(avg*10) / 10,
		PageInfo:      pagination.NewPageInfo(params, total),
	}, nil
}

// Create stores the caller's review. The unique index settles races between
// two submissions that both pass the existence check.
func (s *service) Create(ctx context.Context, input CreateReviewInput) (*ReviewDTO, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product_id is required")
	}
	comment, err := validateReview(input.Rating, input.Comment)
	if err != nil {
		return nil, err
	}
	if _, err := s.products.FindByID(ctx, input.ProductID); err != nil {
		return nil, err
	}
	exists, err := s.repo.Exists(ctx, input.ProductID, input.UserID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, alreadyReviewed(input.ProductID)
	}

	user, err := s.users.FindByID(ctx, input.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}

	review := &models.Review{
		ProductID: input.ProductID,
		UserID:    input.UserID,
		UserName:  user.Name,
		Rating:    input.Rating,
		Comment:   comment,
	}
	if err := s.repo.Create(ctx, review); err != nil {
		return nil, err
	}
	dto := NewReviewDTO(review)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, input UpdateReviewInput) (*ReviewDTO, error) {
	comment, err := validateReview(input.Rating, input.Comment)
	if err != nil {
		return nil, err
	}
	review, err := s.repo.FindOwned(ctx, input.ReviewID, input.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, review.ID, map[string]any{"rating": input.Rating, "comment": comment}); err != nil {
		return nil, err
	}
	updated, err := s.repo.FindOwned(ctx, review.ID, input.UserID)
	if err != nil {
		return nil, err
	}
	dto := NewReviewDTO(updated)
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, userID, reviewID uuid.UUID) error {
	deleted, err := s.repo.DeleteOwned(ctx, reviewID, userID)
	if err != nil {
		return err
	}
	if !deleted {
		return reviewNotFound()
	}
	return nil
}

func validateReview(rating int, comment string) (string, error) {
	if rating < minRating || rating > maxRating {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5").
			WithReason(pkgerrors.ReasonInvalidRating).
			WithDetails(map[string]any{"rating": rating})
	}
	comment = strings.TrimSpace(comment)
	if len(comment) > maxCommentLength {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "comment is too long").
			WithDetails(map[string]any{"max": maxCommentLength})
	}
	return comment, nil
}
