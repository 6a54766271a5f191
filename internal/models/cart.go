package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartItem is one line of a user's cart
type CartItem struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;index:idx_cart_items_user" json:"userId"`
	ProductID uuid.UUID  `gorm:"type:uuid;not null" json:"productId"`
	VariantID *uuid.UUID `gorm:"type:uuid" json:"variantId,omitempty"`
	Quantity  int        `gorm:"not null;default:1" json:"quantity"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updatedAt"`

	Product *Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Variant *ProductVariant `gorm:"foreignKey:VariantID" json:"variant,omitempty"`
}

// TableName specifies the table name for CartItem
func (CartItem) TableName() string {
	return "cart_items"
}

// UnitPrice is the variant price when a variant is chosen, else the product price
func (c *CartItem) UnitPrice() decimal.Decimal {
	if c.Variant != nil && c.Variant.Price.IsPositive() {
		return c.Variant.Price
	}
	if c.Product != nil {
		return c.Product.Price
	}
	return decimal.Zero
}

// AvailableStock is the stock of the chosen variant, else the product stock
func (c *CartItem) AvailableStock() int {
	if c.Variant != nil {
		return c.Variant.Stock
	}
	if c.Product != nil {
		return c.Product.Stock
	}
	return 0
}

// WishlistItem is a saved product
type WishlistItem struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_wishlist_user_product,priority:1" json:"userId"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_wishlist_user_product,priority:2" json:"productId"`
	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`

	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

// TableName specifies the table name for WishlistItem
func (WishlistItem) TableName() string {
	return "wishlist_items"
}

// AddCartItemRequest adds a product (and optional variant) to the cart
type AddCartItemRequest struct {
	ProductID uuid.UUID  `json:"productId" binding:"required"`
	VariantID *uuid.UUID `json:"variantId"`
	Quantity  int        `json:"quantity"`
}

// UpdateCartItemRequest sets a line quantity; zero removes the line
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" binding:"min=0"`
}

// CartLine is a cart item with computed totals
type CartLine struct {
	CartItem
	UnitPrice decimal.Decimal `json:"unitPrice"`
	LineTotal decimal.Decimal `json:"lineTotal"`
}

// CartView is the priced cart returned to clients
type CartView struct {
	Items     []CartLine      `json:"items"`
	ItemCount int             `json:"itemCount"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Currency  string          `json:"currency"`
}
