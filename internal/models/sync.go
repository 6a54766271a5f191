package models

import (
	"time"

	"github.com/google/uuid"
)

// SyncType represents the type of data being synchronized from a supplier
type SyncType string

const (
	SyncTypeCategories SyncType = "CATEGORIES"
	SyncTypeProducts   SyncType = "PRODUCTS"
	SyncTypeStock      SyncType = "STOCK"
)

// Valid reports whether t is a known sync type
func (t SyncType) Valid() bool {
	switch t {
	case SyncTypeCategories, SyncTypeProducts, SyncTypeStock:
		return true
	}
	return false
}

// SyncStatus represents the status of a sync job
type SyncStatus string

const (
	SyncStatusPending   SyncStatus = "PENDING"
	SyncStatusRunning   SyncStatus = "RUNNING"
	SyncStatusCompleted SyncStatus = "COMPLETED"
	SyncStatusFailed    SyncStatus = "FAILED"
	SyncStatusCancelled SyncStatus = "CANCELLED"
)

// IsTerminal reports whether the job can no longer change state
func (s SyncStatus) IsTerminal() bool {
	return s == SyncStatusCompleted || s == SyncStatusFailed || s == SyncStatusCancelled
}

// TriggerType represents what triggered the sync
type TriggerType string

const (
	TriggerManual    TriggerType = "MANUAL"
	TriggerScheduled TriggerType = "SCHEDULED"
	TriggerWebhook   TriggerType = "WEBHOOK"
)

// SyncProgress tracks the progress of a sync job
type SyncProgress struct {
	TotalItems      int     `json:"totalItems"`
	ProcessedItems  int     `json:"processedItems"`
	SuccessfulItems int     `json:"successfulItems"`
	FailedItems     int     `json:"failedItems"`
	SkippedItems    int     `json:"skippedItems"`
	Percentage      float64 `json:"percentage"`
}

// SupplierSyncJob represents one synchronization run against a supplier
type SupplierSyncJob struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	SupplierID uuid.UUID  `gorm:"type:uuid;not null;index:idx_sync_jobs_supplier;uniqueIndex:idx_sync_jobs_active,where:status = 'PENDING' OR status = 'RUNNING'" json:"supplierId"`
	SyncType   SyncType   `gorm:"type:varchar(50);not null;uniqueIndex:idx_sync_jobs_active,where:status = 'PENDING' OR status = 'RUNNING'" json:"syncType"`
	Status     SyncStatus `gorm:"type:varchar(50);not null;default:'PENDING';index:idx_sync_jobs_status" json:"status"`

	Progress JSONB `gorm:"type:jsonb;default:'{\"totalItems\":0,\"processedItems\":0,\"successfulItems\":0,\"failedItems\":0,\"skippedItems\":0,\"percentage\":0}'" json:"progress"`

	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`

	ErrorMessage string `gorm:"type:text" json:"errorMessage,omitempty"`

	TriggeredBy TriggerType `gorm:"type:varchar(50)" json:"triggeredBy,omitempty"`
	CreatedBy   string      `gorm:"type:varchar(255)" json:"createdBy,omitempty"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP;index:idx_sync_jobs_created" json:"createdAt"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updatedAt"`

	Supplier *Supplier         `gorm:"foreignKey:SupplierID" json:"supplier,omitempty"`
	Logs     []SupplierSyncLog `gorm:"foreignKey:SyncJobID" json:"logs,omitempty"`
}

// TableName specifies the table name for SupplierSyncJob
func (SupplierSyncJob) TableName() string {
	return "supplier_sync_jobs"
}

// GetProgress returns the sync progress as a structured object
func (j *SupplierSyncJob) GetProgress() *SyncProgress {
	progress := &SyncProgress{}
	if j.Progress == nil {
		return progress
	}
	progress.TotalItems = j.Progress.Int("totalItems")
	progress.ProcessedItems = j.Progress.Int("processedItems")
	progress.SuccessfulItems = j.Progress.Int("successfulItems")
	progress.FailedItems = j.Progress.Int("failedItems")
	progress.SkippedItems = j.Progress.Int("skippedItems")
	if v, ok := j.Progress["percentage"].(float64); ok {
		progress.Percentage = v
	}
	return progress
}

// SetProgress sets the sync progress from a structured object
func (j *SupplierSyncJob) SetProgress(progress *SyncProgress) {
	j.Progress = progress.JSONB()
}

// JSONB converts the progress into its column representation
func (p *SyncProgress) JSONB() JSONB {
	return JSONB{
		"totalItems":      p.TotalItems,
		"processedItems":  p.ProcessedItems,
		"successfulItems": p.SuccessfulItems,
		"failedItems":     p.FailedItems,
		"skippedItems":    p.SkippedItems,
		"percentage":      p.Percentage,
	}
}

// LogLevel represents the severity level of a sync log
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// SupplierSyncLog represents a log entry for a sync job
type SupplierSyncLog struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	SyncJobID uuid.UUID `gorm:"type:uuid;not null;index:idx_sync_logs_job" json:"syncJobId"`

	Level   LogLevel `gorm:"type:varchar(20);not null;default:'info'" json:"level"`
	Message string   `gorm:"type:text;not null" json:"message"`
	Data    JSONB    `gorm:"type:jsonb;default:'{}'" json:"data,omitempty"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
}

// TableName specifies the table name for SupplierSyncLog
func (SupplierSyncLog) TableName() string {
	return "supplier_sync_logs"
}

// CreateSyncJobRequest represents a request to start a sync job
type CreateSyncJobRequest struct {
	SupplierID uuid.UUID `json:"supplierId" binding:"required"`
	SyncType   SyncType  `json:"syncType" binding:"required"`
}
