package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// CJ webhook message types
const (
	WebhookTypeProduct  = "PRODUCT"
	WebhookTypeVariant  = "VARIANT"
	WebhookTypeStock    = "STOCK"
	WebhookTypeOrder    = "ORDER"
	WebhookTypeLogistic = "LOGISTIC"
)

// CJ webhook message actions
const (
	WebhookActionInsert = "INSERT"
	WebhookActionUpdate = "UPDATE"
	WebhookActionDelete = "DELETE"
)

// SupplierWebhookEvent represents an incoming webhook delivery from a supplier
type SupplierWebhookEvent struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	SupplierID *uuid.UUID `gorm:"type:uuid;index:idx_webhook_events_supplier" json:"supplierId,omitempty"`

	// Event details
	MessageID   string `gorm:"type:varchar(255);not null" json:"messageId"`
	EventType   string `gorm:"type:varchar(50);not null;index:idx_webhook_events_type" json:"eventType"`
	MessageType string `gorm:"type:varchar(50)" json:"messageType,omitempty"`

	Payload datatypes.JSON `gorm:"type:jsonb;not null" json:"payload"`

	// Processing
	Processed       bool       `gorm:"default:false;index:idx_webhook_events_processed" json:"processed"`
	ProcessedAt     *time.Time `json:"processedAt,omitempty"`
	ProcessingError string     `gorm:"type:text" json:"processingError,omitempty"`
	Skipped         bool       `gorm:"default:false" json:"skipped"`
	RetryCount      int        `gorm:"default:0" json:"retryCount"`

	// Idempotency
	IdempotencyKey string `gorm:"type:varchar(255);uniqueIndex:idx_webhook_events_idempotency" json:"idempotencyKey"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP;index:idx_webhook_events_created" json:"createdAt"`
}

// TableName specifies the table name for SupplierWebhookEvent
func (SupplierWebhookEvent) TableName() string {
	return "supplier_webhook_events"
}

// WebhookAck is returned to the supplier for every accepted delivery
type WebhookAck struct {
	Received  bool      `json:"received"`
	Duplicate bool      `json:"duplicate,omitempty"`
	EventID   uuid.UUID `json:"eventId,omitempty"`
}
