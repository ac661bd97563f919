package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/MudassirSafi/Wolf-Backend/internal/orders"
	"github.com/MudassirSafi/Wolf-Backend/pkg/db/models"
	pkgerrors "github.com/MudassirSafi/Wolf-Backend/pkg/errors"
)

// MaxLineQuantity caps how many units of one product a cart may hold.
const MaxLineQuantity = 99

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// Service exposes cart persistence operations.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*CartDTO, error)
	AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*CartDTO, error)
	RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*CartDTO, error)
	Clear(ctx context.Context, userID uuid.UUID) (*CartDTO, error)
	// OrderItems turns the available cart lines into order items.
	OrderItems(ctx context.Context, userID uuid.UUID) ([]orders.ItemInput, error)
}

type service struct {
	repo     *Repository
	tx       txRunner
	products productLoader
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo *Repository, tx txRunner, products productLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	return &service{repo: repo, tx: tx, products: products}, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	return s.load(ctx, userID)
}

// AddItem adjusts one line inside a transaction so the quantity check sees
// the committed line.
func (s *service) AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*CartDTO, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product_id is required")
	}
	if input.Quantity == 0 || input.Quantity > MaxLineQuantity || input.Quantity < -MaxLineQuantity {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be a non-zero change").
			WithReason(pkgerrors.ReasonInvalidQuantity).
			WithDetails(map[string]any{"quantity": input.Quantity, "max": MaxLineQuantity})
	}

	product, err := s.products.FindByID(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}
	if input.Quantity > 0 && !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").WithReason(pkgerrors.ReasonProductNotFound)
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		quantity, err := s.repo.WithTx(tx).Adjust(ctx, userID, input.ProductID, input.Quantity)
		if err != nil || input.Quantity < 0 {
			return err
		}
		if quantity > MaxLineQuantity {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart line exceeds maximum quantity").
				WithReason(pkgerrors.ReasonInvalidQuantity).
				WithDetails(map[string]any{"product_id": input.ProductID.String(), "quantity": quantity, "max": MaxLineQuantity})
		}
		if quantity > product.Stock {
			return pkgerrors.New(pkgerrors.CodeIntegrity, "insufficient stock").
				WithReason(pkgerrors.ReasonInsufficientStock).
				WithDetails(map[string]any{"product_id": input.ProductID.String(), "requested": quantity, "available": product.Stock})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.load(ctx, userID)
}

func (s *service) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*CartDTO, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if _, err := s.repo.Remove(ctx, userID, productID); err != nil {
		return nil, err
	}
	return s.load(ctx, userID)
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if err := s.repo.Clear(ctx, userID); err != nil {
		return nil, err
	}
	return NewCartDTO(nil), nil
}

func (s *service) OrderItems(ctx context.Context, userID uuid.UUID) ([]orders.ItemInput, error) {
	cart, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	items := make([]orders.ItemInput, 0, len(cart.Items))
	for _, line := range cart.Items {
		if line.Available {
			items = append(items, orders.ItemInput{ProductID: line.Product.ID, Quantity: line.Quantity})
		}
	}
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart has no available items")
	}
	return items, nil
}

func (s *service) load(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	items, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	return NewCartDTO(items), nil
}

func requireUser(userID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	return nil
}
