package wishlist

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/MudassirSafi/Wolf-Backend/internal/catalog"
	"github.com/MudassirSafi/Wolf-Backend/pkg/db/models"
	pkgerrors "github.com/MudassirSafi/Wolf-Backend/pkg/errors"
	"github.com/MudassirSafi/Wolf-Backend/pkg/pagination"
)

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// ServiceParams groups dependencies for the wishlist service.
type ServiceParams struct {
	WishlistRepo *Repository
	ProductRepo  productLoader
}

// Service exposes business rules for wishlist management.
type Service interface {
	GetWishlist(ctx context.Context, userID uuid.UUID, params pagination.Params) (*WishlistPageDTO, error)
	GetWishlistIDs(ctx context.Context, userID uuid.UUID) (*WishlistIDsDTO, error)
	Check(ctx context.Context, userID, productID uuid.UUID) (*MembershipDTO, error)
	AddItem(ctx context.Context, userID, productID uuid.UUID) (*MembershipDTO, error)
	RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*MembershipDTO, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

type service struct {
	wishlistRepo *Repository
	productRepo  productLoader
}

// NewService builds a wishlist service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.WishlistRepo == nil {
		return nil, fmt.Errorf("wishlist repository required")
	}
	if params.ProductRepo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &service{
		wishlistRepo: params.WishlistRepo,
		productRepo:  params.ProductRepo,
	}, nil
}

// GetWishlist returns the paginated wishlist for a user.
func (s *service) GetWishlist(ctx context.Context, userID uuid.UUID, params pagination.Params) (*WishlistPageDTO, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	params = params.Normalize()
	records, total, err := s.wishlistRepo.ListItems(ctx, userID, params)
	if err != nil {
		return nil, err
	}
	items := make([]WishlistItemDTO, 0, len(records))
	for i := range records {
		items = append(items, WishlistItemDTO{
			Product: catalog.NewProductDTO(&records[i].Product),
			AddedAt: records[i].AddedAt,
		})
	}
	return &WishlistPageDTO{Items: items, PageInfo: pagination.NewPageInfo(params, total)}, nil
}

func (s *service) GetWishlistIDs(ctx context.Context, userID uuid.UUID) (*WishlistIDsDTO, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	ids, err := s.wishlistRepo.ListItemIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &WishlistIDsDTO{ProductIDs: ids}, nil
}

func (s *service) Check(ctx context.Context, userID, productID uuid.UUID) (*MembershipDTO, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	found, err := s.wishlistRepo.Contains(ctx, userID, productID)
	if err != nil {
		return nil, err
	}
	return &MembershipDTO{ProductID: productID, InWishlist: found}, nil
}

// AddItem ensures the product is listed and saves it. Saving twice is a no-op.
func (s *service) AddItem(ctx context.Context, userID, productID uuid.UUID) (*MembershipDTO, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").WithReason(pkgerrors.ReasonProductNotFound)
	}
	if err := s.wishlistRepo.AddItem(ctx, userID, productID); err != nil {
		return nil, err
	}
	return &MembershipDTO{ProductID: productID, InWishlist: true}, nil
}

// RemoveItem drops the wishlist entry regardless of prior state.
func (s *service) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*MembershipDTO, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if _, err := s.wishlistRepo.RemoveItem(ctx, userID, productID); err != nil {
		return nil, err
	}
	return &MembershipDTO{ProductID: productID, InWishlist: false}, nil
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	_, err := s.wishlistRepo.Clear(ctx, userID)
	return err
}

func requireUser(userID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	return nil
}
