package models

import (
	"time"

	"github.com/google/uuid"
)

// ActorType represents the type of actor performing an action
type ActorType string

const (
	ActorUser     ActorType = "USER"
	ActorSystem   ActorType = "SYSTEM"
	ActorSupplier ActorType = "SUPPLIER"
)

// AuditAction represents the admin and supplier actions worth a trail
type AuditAction string

const (
	ActionSupplierCreate   AuditAction = "SUPPLIER_CREATE"
	ActionSupplierUpdate   AuditAction = "SUPPLIER_UPDATE"
	ActionSupplierDelete   AuditAction = "SUPPLIER_DELETE"
	ActionCredentialUpdate AuditAction = "CREDENTIAL_UPDATE"

	ActionMappingUpsert AuditAction = "MAPPING_UPSERT"
	ActionMappingDelete AuditAction = "MAPPING_DELETE"
	ActionMappingAuto   AuditAction = "MAPPING_AUTO"

	ActionProductImport AuditAction = "PRODUCT_IMPORT"
	ActionProductStatus AuditAction = "PRODUCT_STATUS"
	ActionProductPrice  AuditAction = "PRODUCT_PRICE"
	ActionDataExport    AuditAction = "DATA_EXPORT"

	ActionSyncStart  AuditAction = "SYNC_START"
	ActionSyncCancel AuditAction = "SYNC_CANCEL"

	ActionOrderStatus        AuditAction = "ORDER_STATUS"
	ActionOrderPlaceSupplier AuditAction = "ORDER_PLACE_SUPPLIER"

	ActionUserUpdate AuditAction = "USER_UPDATE"
	ActionUserDelete AuditAction = "USER_DELETE"

	ActionWebhookReplay AuditAction = "WEBHOOK_REPLAY"
)

// ResourceType represents the type of resource being audited
type ResourceType string

const (
	ResourceSupplier   ResourceType = "SUPPLIER"
	ResourceCredential ResourceType = "CREDENTIAL"
	ResourceMapping    ResourceType = "CATEGORY_MAPPING"
	ResourceProduct    ResourceType = "PRODUCT"
	ResourceSyncJob    ResourceType = "SYNC_JOB"
	ResourceOrder      ResourceType = "ORDER"
	ResourceUser       ResourceType = "USER"
	ResourceWebhook    ResourceType = "WEBHOOK"
)

// AuditLog represents an audit trail entry
type AuditLog struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`

	ActorType ActorType `gorm:"type:varchar(50);not null" json:"actorType"`
	ActorID   string    `gorm:"type:varchar(255);not null;index:idx_audit_logs_actor" json:"actorId"`
	ActorIP   *string   `gorm:"type:varchar(45)" json:"actorIp,omitempty"`

	Action       AuditAction  `gorm:"type:varchar(100);not null;index:idx_audit_logs_action" json:"action"`
	ResourceType ResourceType `gorm:"type:varchar(100);not null;index:idx_audit_logs_resource" json:"resourceType"`
	ResourceID   *string      `gorm:"type:varchar(255)" json:"resourceId,omitempty"`

	OldValue JSONB `gorm:"type:jsonb" json:"oldValue,omitempty"`
	NewValue JSONB `gorm:"type:jsonb" json:"newValue,omitempty"`
	Metadata JSONB `gorm:"type:jsonb;default:'{}'" json:"metadata,omitempty"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP;index:idx_audit_logs_created" json:"createdAt"`
}

// TableName specifies the table name for AuditLog
func (AuditLog) TableName() string {
	return "audit_logs"
}

// AuditLogBuilder helps construct audit log entries
type AuditLogBuilder struct {
	log *AuditLog
}

// NewAuditLog creates a new audit log builder
func NewAuditLog(action AuditAction, resourceType ResourceType) *AuditLogBuilder {
	return &AuditLogBuilder{
		log: &AuditLog{
			ID:           uuid.New(),
			ActorType:    ActorSystem,
			ActorID:      "system",
			Action:       action,
			ResourceType: resourceType,
			CreatedAt:    time.Now(),
		},
	}
}

// WithActor sets the actor information
func (b *AuditLogBuilder) WithActor(actorType ActorType, actorID string, actorIP *string) *AuditLogBuilder {
	b.log.ActorType = actorType
	b.log.ActorID = actorID
	b.log.ActorIP = actorIP
	return b
}

// WithResource sets the resource ID
func (b *AuditLogBuilder) WithResource(resourceID string) *AuditLogBuilder {
	b.log.ResourceID = &resourceID
	return b
}

// WithChanges sets the old and new values
func (b *AuditLogBuilder) WithChanges(oldValue, newValue JSONB) *AuditLogBuilder {
	b.log.OldValue = oldValue
	b.log.NewValue = newValue
	return b
}

// WithMetadata sets additional metadata
func (b *AuditLogBuilder) WithMetadata(metadata JSONB) *AuditLogBuilder {
	b.log.Metadata = metadata
	return b
}

// Build returns the constructed audit log
func (b *AuditLogBuilder) Build() *AuditLog {
	return b.log
}
