package wishlist

import (
	"time"

	"github.com/google/uuid"

	"github.com/MudassirSafi/Wolf-Backend/internal/catalog"
	"github.com/MudassirSafi/Wolf-Backend/pkg/pagination"
)

// WishlistItemDTO wraps the product saved in a wishlist row.
type WishlistItemDTO struct {
	Product catalog.ProductDTO `json:"product"`
	AddedAt time.Time          `json:"added_at"`
}

// WishlistPageDTO is one page of a user's wishlist, newest first.
type WishlistPageDTO struct {
	Items []WishlistItemDTO `json:"items"`
	pagination.PageInfo
}

// WishlistIDsDTO is a lightweight projection containing only product IDs.
type WishlistIDsDTO struct {
	ProductIDs []uuid.UUID `json:"product_ids"`
}

// MembershipDTO answers whether one product is on the wishlist.
type MembershipDTO struct {
	ProductID  uuid.UUID `json:"product_id"`
	InWishlist bool      `json:"in_wishlist"`
}
