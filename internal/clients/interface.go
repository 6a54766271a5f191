package clients

import (
	"context"
	"encoding/json"
	"time"

	"dropship-service/internal/models"
	"github.com/shopspring/decimal"
)

// SupplierClient defines the interface that all supplier clients must implement
type SupplierClient interface {
	// GetType returns the supplier type
	GetType() models.SupplierType

	// TestConnection verifies the credentials are accepted
	TestConnection(ctx context.Context) error

	// Catalog
	GetCategories(ctx context.Context) ([]ExternalCategory, error)
	SearchProducts(ctx context.Context, opts *ProductSearchOptions) (*ProductsResult, error)
	GetProduct(ctx context.Context, productID string) (*ExternalProduct, error)
	GetVariants(ctx context.Context, productID string) ([]ExternalVariant, error)
	GetVariantStock(ctx context.Context, variantID string) (*StockLevel, error)

	// Fulfilment
	CreateOrder(ctx context.Context, req *CreateOrderRequest) (*ExternalOrder, error)
	GetOrder(ctx context.Context, orderID string) (*ExternalOrder, error)
	CalculateFreight(ctx context.Context, req *FreightRequest) ([]FreightOption, error)

	// Webhooks
	RegisterWebhooks(ctx context.Context, callbackURL string) error
}

// ExternalCategory is one node of a supplier taxonomy, flattened
type ExternalCategory struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ParentID string `json:"parentId,omitempty"`
	Level    int    `json:"level"`
	Path     string `json:"path"`
}

// ProductSearchOptions filters a supplier catalog search
type ProductSearchOptions struct {
	Page       int
	PageSize   int
	CategoryID string
	Keyword    string
}

// ProductsResult contains one page of supplier products
type ProductsResult struct {
	Products []ExternalProduct `json:"products"`
	Page     int               `json:"page"`
	PageSize int               `json:"pageSize"`
	Total    int               `json:"total"`
}

// HasMore reports whether another page exists
func (r *ProductsResult) HasMore() bool {
	return r.Page*r.PageSize < r.Total
}

// ExternalProduct represents a product in a supplier catalog
type ExternalProduct struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Description  string            `json:"description,omitempty"`
	SKU          string            `json:"sku,omitempty"`
	CategoryID   string            `json:"categoryId,omitempty"`
	CategoryName string            `json:"categoryName,omitempty"`
	Images       []string          `json:"images,omitempty"`
	SellPrice    decimal.Decimal   `json:"sellPrice"`
	Weight       float64           `json:"weight,omitempty"`
	Variants     []ExternalVariant `json:"variants,omitempty"`
	UpdatedAt    time.Time         `json:"updatedAt,omitempty"`
	RawData      json.RawMessage   `json:"-"`
}

// ExternalVariant represents a purchasable option in a supplier catalog
type ExternalVariant struct {
	ID         string            `json:"id"`
	ProductID  string            `json:"productId"`
	Name       string            `json:"name"`
	SKU        string            `json:"sku,omitempty"`
	Image      string            `json:"image,omitempty"`
	SellPrice  decimal.Decimal   `json:"sellPrice"`
	Weight     float64           `json:"weight,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Stock      *int              `json:"stock,omitempty"`
}

// WarehouseStock is the inventory of one supplier warehouse
type WarehouseStock struct {
	AreaID      string `json:"areaId"`
	AreaName    string `json:"areaName"`
	CountryCode string `json:"countryCode"`
	Quantity    int    `json:"quantity"`
}

// StockLevel is the inventory of a variant across warehouses
type StockLevel struct {
	VariantID  string           `json:"variantId"`
	Total      int              `json:"total"`
	Warehouses []WarehouseStock `json:"warehouses"`
}

// OrderLine is a variant and quantity sent to a supplier
type OrderLine struct {
	VariantID string `json:"variantId"`
	Quantity  int    `json:"quantity"`
}

// CreateOrderRequest places a fulfilment order with a supplier
type CreateOrderRequest struct {
	OrderNumber     string
	ShippingName    string
	ShippingPhone   string
	Address1        string
	Address2        string
	City            string
	Province        string
	Zip             string
	CountryCode     string
	LogisticName    string
	FromCountryCode string
	Remark          string
	Lines           []OrderLine
}

// ExternalOrder represents a supplier fulfilment order
type ExternalOrder struct {
	ID             string          `json:"id"`
	OrderNumber    string          `json:"orderNumber"`
	Status         string          `json:"status"`
	TrackingNumber string          `json:"trackingNumber,omitempty"`
	LogisticName   string          `json:"logisticName,omitempty"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
}

// FreightRequest asks for shipping options
type FreightRequest struct {
	StartCountryCode string
	EndCountryCode   string
	Zip              string
	Lines            []OrderLine
}

// FreightOption is one shipping method with its price
type FreightOption struct {
	LogisticName string          `json:"logisticName"`
	Price        decimal.Decimal `json:"price"`
	AgingDays    string          `json:"agingDays,omitempty"`
}
