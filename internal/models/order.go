package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the fulfilment state of an order
type OrderStatus string

const (
	OrderPending            OrderStatus = "PENDING"
	OrderConfirmed          OrderStatus = "CONFIRMED"
	OrderPlacedWithSupplier OrderStatus = "PLACED_WITH_SUPPLIER"
	OrderShipped            OrderStatus = "SHIPPED"
	OrderDelivered          OrderStatus = "DELIVERED"
	OrderCancelled          OrderStatus = "CANCELLED"
	OrderFailed             OrderStatus = "FAILED"
)

// Valid reports whether s is a known order status
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderConfirmed, OrderPlacedWithSupplier, OrderShipped,
		OrderDelivered, OrderCancelled, OrderFailed:
		return true
	}
	return false
}

// Cancellable reports whether a customer may still cancel the order
func (s OrderStatus) Cancellable() bool {
	return s == OrderPending || s == OrderConfirmed
}

// PaymentStatus of an order
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

// ShippingAddress is embedded on orders
type ShippingAddress struct {
	ShippingName     string `gorm:"type:varchar(255)" json:"shippingName" binding:"required"`
	ShippingPhone    string `gorm:"type:varchar(50)" json:"shippingPhone"`
	ShippingAddress1 string `gorm:"type:varchar(500)" json:"shippingAddress1" binding:"required"`
	ShippingAddress2 string `gorm:"type:varchar(500)" json:"shippingAddress2,omitempty"`
	ShippingCity     string `gorm:"type:varchar(255)" json:"shippingCity" binding:"required"`
	ShippingProvince string `gorm:"type:varchar(255)" json:"shippingProvince,omitempty"`
	ShippingZip      string `gorm:"type:varchar(50)" json:"shippingZip"`
	ShippingCountry  string `gorm:"type:varchar(2)" json:"shippingCountry" binding:"required,len=2"`
}

// Order is a customer purchase
type Order struct {
	ID            uuid.UUID     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	OrderNumber   string        `gorm:"type:varchar(50);not null;uniqueIndex:idx_orders_number" json:"orderNumber"`
	UserID        uuid.UUID     `gorm:"type:uuid;not null;index:idx_orders_user" json:"userId"`
	Status        OrderStatus   `gorm:"type:varchar(50);not null;default:'PENDING';index:idx_orders_status" json:"status"`
	PaymentStatus PaymentStatus `gorm:"type:varchar(50);not null;default:'PENDING'" json:"paymentStatus"`

	Subtotal      decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"subtotal"`
	ShippingTotal decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"shippingTotal"`
	Total         decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"total"`
	Currency      string          `gorm:"type:varchar(3);not null;default:'USD'" json:"currency"`

	ShippingAddress `gorm:"embedded"`
	LogisticName    string `gorm:"type:varchar(255)" json:"logisticName,omitempty"`

	// Supplier fulfilment
	SupplierID          *uuid.UUID `gorm:"type:uuid" json:"supplierId,omitempty"`
	SupplierOrderID     *string    `gorm:"type:varchar(255);index:idx_orders_supplier_order" json:"supplierOrderId,omitempty"`
	SupplierOrderStatus string     `gorm:"type:varchar(100)" json:"supplierOrderStatus,omitempty"`
	TrackingNumber      string     `gorm:"type:varchar(255)" json:"trackingNumber,omitempty"`
	SupplierUpdatedAt   *time.Time `json:"supplierUpdatedAt,omitempty"`
	FailureReason       string     `gorm:"type:text" json:"failureReason,omitempty"`
	PlacementStartedAt  *time.Time `json:"-"`

	Notes string `gorm:"type:text" json:"notes,omitempty"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP;index:idx_orders_created" json:"createdAt"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updatedAt"`

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`
}

// TableName specifies the table name for Order
func (Order) TableName() string {
	return "orders"
}

// OrderItem is a price snapshot of one purchased line
type OrderItem struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	OrderID           uuid.UUID       `gorm:"type:uuid;not null;index:idx_order_items_order" json:"orderId"`
	ProductID         uuid.UUID       `gorm:"type:uuid;not null" json:"productId"`
	VariantID         *uuid.UUID      `gorm:"type:uuid" json:"variantId,omitempty"`
	Name              string          `gorm:"type:varchar(500);not null" json:"name"`
	SKU               string          `gorm:"type:varchar(255)" json:"sku,omitempty"`
	Quantity          int             `gorm:"not null" json:"quantity"`
	UnitPrice         decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unitPrice"`
	LineTotal         decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"lineTotal"`
	SupplierVariantID *string         `gorm:"type:varchar(255)" json:"supplierVariantId,omitempty"`
	CreatedAt         time.Time       `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
}

// TableName specifies the table name for OrderItem
func (OrderItem) TableName() string {
	return "order_items"
}

// CheckoutRequest turns the cart into an order
type CheckoutRequest struct {
	ShippingAddress
	LogisticName string `json:"logisticName"`
	Notes        string `json:"notes"`
}

// UpdateOrderStatusRequest is the admin status change payload
type UpdateOrderStatusRequest struct {
	Status         OrderStatus `json:"status" binding:"required"`
	TrackingNumber *string     `json:"trackingNumber"`
}

// PlaceSupplierOrderRequest optionally overrides the logistic line
type PlaceSupplierOrderRequest struct {
	LogisticName string `json:"logisticName"`
}

// FreightQuoteRequest asks the supplier for shipping options
type FreightQuoteRequest struct {
	StartCountryCode string             `json:"startCountryCode"`
	EndCountryCode   string             `json:"endCountryCode" binding:"required,len=2"`
	Zip              string             `json:"zip"`
	Items            []FreightQuoteItem `json:"items" binding:"required,min=1,dive"`
}

// FreightQuoteItem is one variant/quantity pair of a freight quote
type FreightQuoteItem struct {
	VariantID uuid.UUID `json:"variantId" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required,min=1"`
}
