package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MudassirSafi/Wolf-Backend/internal/catalog"
	"github.com/MudassirSafi/Wolf-Backend/pkg/db/models"
)

// CartItemDTO is one cart line with its current product data.
type CartItemDTO struct {
	Product   catalog.ProductDTO `json:"product"`
	Quantity  int                `json:"quantity"`
	LineTotal decimal.Decimal    `json:"line_total"`
	Available bool               `json:"available"`
}

// CartDTO is the user's cart priced at current catalog prices.
type CartDTO struct {
	Items     []CartItemDTO   `json:"items"`
	ItemCount int             `json:"item_count"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// AddItemInput changes the quantity of one product by Quantity, which may be
// negative.
type AddItemInput struct {
	ProductID uuid.UUID
	Quantity  int
}

// NewCartDTO prices items. Lines whose product went inactive or out of stock
// stay listed but count toward neither total.
func NewCartDTO(items []models.CartItem) *CartDTO {
	out := &CartDTO{Items: make([]CartItemDTO, 0, len(items)), Subtotal: decimal.Zero}
	for i := range items {
		item := &items[i]
		line := CartItemDTO{
			Product:   catalog.NewProductDTO(&item.Product),
			Quantity:  item.Quantity,
			LineTotal: item.Product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))),
			Available: item.Product.IsActive && item.Product.Stock >= item.Quantity,
		}
		if line.Available {
			out.ItemCount += item.Quantity
			out.Subtotal = out.Subtotal.Add(line.LineTotal)
		}
		out.Items = append(out.Items, line)
	}
	return out
}
