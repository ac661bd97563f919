package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MudassirSafi/Wolf-Backend/pkg/db/models"
	pkgerrors "github.com/MudassirSafi/Wolf-Backend/pkg/errors"
	"github.com/MudassirSafi/Wolf-Backend/pkg/pagination"
)

const defaultWeightKg = 1.0

// Service exposes catalog reads and admin product creation.
type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	List(ctx context.Context, params pagination.Params) (*ProductListResult, error)
	Create(ctx context.Context, input CreateProductInput) (*AdminProductDTO, error)
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	Name        string
	Description string
	ImageURL    *string
	Category    string
	Price       decimal.Decimal
	Stock       int
	WeightKg    float64
	IsActive    *bool
}

type productStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ListActive(ctx context.Context, params pagination.Params) ([]models.Product, int64, error)
	Create(ctx context.Context, product *models.Product) error
}

type service struct {
	repo productStore
}

// NewService constructs a catalog service instance.
func NewService(repo productStore) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, productNotFound()
	}
	dto := NewProductDTO(product)
	return &dto, nil
}

func (s *service) List(ctx context.Context, params pagination.Params) (*ProductListResult, error) {
	params = params.Normalize()
	rows, total, err := s.repo.ListActive(ctx, params)
	if err != nil {
		return nil, err
	}
	items := make([]ProductDTO, 0, len(rows))
	for i := range rows {
		items = append(items, NewProductDTO(&rows[i]))
	}
	return &ProductListResult{
		Items:    items,
		PageInfo: pagination.NewPageInfo(params, total),
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateProductInput) (*AdminProductDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be non-negative")
	}
	if input.Stock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock must be non-negative")
	}
	weight := input.WeightKg
	if weight <= 0 {
		weight = defaultWeightKg
	}
	active := true
	if input.IsActive != nil {
		active = *input.IsActive
	}

	product := &models.Product{
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		ImageURL:    input.ImageURL,
		Category:    strings.TrimSpace(input.Category),
		Price:       input.Price.Round(2),
		Stock:       input.Stock,
		WeightKg:    weight,
		IsActive:    active,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, err
	}
	return &AdminProductDTO{ProductDTO: NewProductDTO(product), ReservedStock: product.ReservedStock}, nil
}
