package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// ProductStatus is the lifecycle state of a catalog product
type ProductStatus string

const (
	ProductDraft          ProductStatus = "DRAFT"
	ProductPendingMapping ProductStatus = "PENDING_MAPPING"
	ProductActive         ProductStatus = "ACTIVE"
	ProductInactive       ProductStatus = "INACTIVE"
	ProductArchived       ProductStatus = "ARCHIVED"
)

// Valid reports whether s is a known product status
func (s ProductStatus) Valid() bool {
	switch s {
	case ProductDraft, ProductPendingMapping, ProductActive, ProductInactive, ProductArchived:
		return true
	}
	return false
}

// Category is an internal storefront category
type Category struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Name        string     `gorm:"type:varchar(255);not null" json:"name"`
	Slug        string     `gorm:"type:varchar(255);not null;uniqueIndex:idx_categories_slug" json:"slug"`
	Description string     `gorm:"type:text" json:"description,omitempty"`
	ParentID    *uuid.UUID `gorm:"type:uuid;index:idx_categories_parent" json:"parentId,omitempty"`
	Level       int        `gorm:"default:0" json:"level"`
	Position    int        `gorm:"default:0" json:"position"`
	ImageURL    string     `gorm:"type:varchar(1000)" json:"imageUrl,omitempty"`
	IsActive    bool       `gorm:"default:true" json:"isActive"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updatedAt"`

	Children []*Category `gorm:"-" json:"children,omitempty"`
}

// TableName specifies the table name for Category
func (Category) TableName() string {
	return "categories"
}

// Product is a sellable catalog item, optionally imported from a supplier
type Product struct {
	ID          uuid.UUID     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Name        string        `gorm:"type:varchar(500);not null" json:"name"`
	Slug        string        `gorm:"type:varchar(255);not null;uniqueIndex:idx_products_slug" json:"slug"`
	Description string        `gorm:"type:text" json:"description,omitempty"`
	SKU         string        `gorm:"type:varchar(255);index:idx_products_sku" json:"sku,omitempty"`
	Status      ProductStatus `gorm:"type:varchar(50);not null;default:'DRAFT';index:idx_products_status" json:"status"`

	// Pricing
	Price           decimal.Decimal     `gorm:"type:numeric(12,2);not null;default:0" json:"price"`
	CompareAtPrice  decimal.NullDecimal `gorm:"type:numeric(12,2)" json:"compareAtPrice"`
	CostPrice       decimal.Decimal     `gorm:"type:numeric(12,2);not null;default:0" json:"costPrice"`
	Currency        string              `gorm:"type:varchar(3);not null;default:'USD'" json:"currency"`
	PriceOverridden bool                `gorm:"default:false" json:"priceOverridden"`

	CategoryID *uuid.UUID `gorm:"type:uuid;index:idx_products_category" json:"categoryId,omitempty"`

	// Supplier linkage
	SupplierID         *uuid.UUID     `gorm:"type:uuid;uniqueIndex:idx_products_supplier_pid,priority:1" json:"supplierId,omitempty"`
	SupplierProductID  *string        `gorm:"type:varchar(255);uniqueIndex:idx_products_supplier_pid,priority:2" json:"supplierProductId,omitempty"`
	SupplierCategoryID *string        `gorm:"type:varchar(255);index:idx_products_supplier_category" json:"supplierCategoryId,omitempty"`
	SupplierSyncedAt   *time.Time     `json:"supplierSyncedAt,omitempty"`
	SupplierRaw        datatypes.JSON `gorm:"type:jsonb" json:"-"`

	Images pq.StringArray `gorm:"type:text[]" json:"images"`
	Tags   pq.StringArray `gorm:"type:text[]" json:"tags,omitempty"`
	Weight float64        `gorm:"default:0" json:"weight"`
	Stock  int            `gorm:"default:0" json:"stock"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updatedAt"`

	Category *Category        `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Variants []ProductVariant `gorm:"foreignKey:ProductID" json:"variants,omitempty"`
}

// TableName specifies the table name for Product
func (Product) TableName() string {
	return "products"
}

// IsImported reports whether the product came from a supplier
func (p *Product) IsImported() bool {
	return p.SupplierID != nil && p.SupplierProductID != nil
}

// ProductVariant is a purchasable option of a product
type ProductVariant struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ProductID         uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_variants_product_supplier,priority:1" json:"productId"`
	SupplierVariantID *string         `gorm:"type:varchar(255);uniqueIndex:idx_variants_product_supplier,priority:2" json:"supplierVariantId,omitempty"`
	SKU               string          `gorm:"type:varchar(255)" json:"sku,omitempty"`
	Name              string          `gorm:"type:varchar(500)" json:"name"`
	Price             decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"price"`
	CostPrice         decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"costPrice"`
	Stock             int             `gorm:"default:0" json:"stock"`
	Image             string          `gorm:"type:varchar(1000)" json:"image,omitempty"`
	Attributes        JSONB           `gorm:"type:jsonb;default:'{}'" json:"attributes,omitempty"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

// TableName specifies the table name for ProductVariant
func (ProductVariant) TableName() string {
	return "product_variants"
}

// CreateCategoryRequest represents a request to create a category
type CreateCategoryRequest struct {
	Name        string     `json:"name" binding:"required"`
	Slug        string     `json:"slug"`
	Description string     `json:"description"`
	ParentID    *uuid.UUID `json:"parentId"`
	Position    int        `json:"position"`
	ImageURL    string     `json:"imageUrl"`
	IsActive    *bool      `json:"isActive"`
}

// UpdateCategoryRequest represents a partial category update
type UpdateCategoryRequest struct {
	Name        *string    `json:"name"`
	Slug        *string    `json:"slug"`
	Description *string    `json:"description"`
	ParentID    *uuid.UUID `json:"parentId"`
	Position    *int       `json:"position"`
	ImageURL    *string    `json:"imageUrl"`
	IsActive    *bool      `json:"isActive"`
}

// CreateProductRequest represents a request to create a product by hand
type CreateProductRequest struct {
	Name           string           `json:"name" binding:"required"`
	Slug           string           `json:"slug"`
	Description    string           `json:"description"`
	SKU            string           `json:"sku"`
	Price          decimal.Decimal  `json:"price"`
	CompareAtPrice *decimal.Decimal `json:"compareAtPrice"`
	CostPrice      decimal.Decimal  `json:"costPrice"`
	Currency       string           `json:"currency"`
	CategoryID     *uuid.UUID       `json:"categoryId"`
	Status         ProductStatus    `json:"status"`
	Images         []string         `json:"images"`
	Tags           []string         `json:"tags"`
	Weight         float64          `json:"weight"`
	Stock          int              `json:"stock"`
}

// UpdateProductRequest represents a partial product update. Setting Price
// marks the product as manually priced so supplier refreshes keep it.
type UpdateProductRequest struct {
	Name           *string          `json:"name"`
	Slug           *string          `json:"slug"`
	Description    *string          `json:"description"`
	Price          *decimal.Decimal `json:"price"`
	CompareAtPrice *decimal.Decimal `json:"compareAtPrice"`
	CategoryID     *uuid.UUID       `json:"categoryId"`
	Images         []string         `json:"images"`
	Tags           []string         `json:"tags"`
	Weight         *float64         `json:"weight"`
	Stock          *int             `json:"stock"`
	ResetPrice     bool             `json:"resetPrice"`
}

// UpdateStatusRequest changes a product's status
type UpdateStatusRequest struct {
	Status ProductStatus `json:"status" binding:"required"`
}
