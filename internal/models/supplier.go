package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SupplierType identifies the upstream API a supplier speaks
type SupplierType string

const (
	SupplierTypeCJ SupplierType = "CJ_DROPSHIPPING"
)

// SupplierStatus represents the connection state of a supplier
type SupplierStatus string

const (
	SupplierPending      SupplierStatus = "PENDING"
	SupplierConnected    SupplierStatus = "CONNECTED"
	SupplierDisconnected SupplierStatus = "DISCONNECTED"
	SupplierError        SupplierStatus = "ERROR"
)

// JSONB custom type for PostgreSQL JSONB
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]interface{}(j))
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = make(map[string]interface{})
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}
	return json.Unmarshal(bytes, j)
}

// Int reads a numeric key, tolerating the float64 produced by encoding/json
func (j JSONB) Int(key string) int {
	switch v := j[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	}
	return 0
}

// Supplier is an upstream dropshipping vendor the catalog is imported from
type Supplier struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Name       string         `gorm:"type:varchar(255);not null" json:"name"`
	Code       string         `gorm:"type:varchar(50);not null;uniqueIndex:idx_suppliers_code" json:"code"`
	Type       SupplierType   `gorm:"type:varchar(50);not null;default:'CJ_DROPSHIPPING'" json:"type"`
	APIBaseURL string         `gorm:"type:varchar(500)" json:"apiBaseUrl,omitempty"`
	Status     SupplierStatus `gorm:"type:varchar(50);not null;default:'PENDING';index:idx_suppliers_status" json:"status"`
	IsEnabled  bool           `gorm:"default:true" json:"isEnabled"`

	// GCP Secret Manager reference holding the supplier API key
	SecretReference string `gorm:"type:varchar(500)" json:"-"`
	HasCredentials  bool   `gorm:"-" json:"hasCredentials"`

	// Settings holds non-sensitive options such as markupPercent and defaultLogistic
	Settings JSONB `gorm:"type:jsonb;default:'{}'" json:"settings,omitempty"`

	LastSyncAt *time.Time `json:"lastSyncAt,omitempty"`
	LastError  string     `gorm:"type:text" json:"lastError,omitempty"`
	ErrorCount int        `gorm:"default:0" json:"errorCount"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updatedAt"`
	CreatedBy string    `gorm:"type:varchar(255)" json:"createdBy,omitempty"`
}

// TableName specifies the table name for Supplier
func (Supplier) TableName() string {
	return "suppliers"
}

// MarkupPercent returns the per-supplier markup override, if any
func (s *Supplier) MarkupPercent() (float64, bool) {
	if s.Settings == nil {
		return 0, false
	}
	v, ok := s.Settings["markupPercent"].(float64)
	return v, ok
}

// SupplierCredentials is the secret payload kept in Secret Manager
type SupplierCredentials struct {
	APIKey string `json:"apiKey"`
	Email  string `json:"email,omitempty"`
}

// CreateSupplierRequest represents a request to register a supplier
type CreateSupplierRequest struct {
	Name        string               `json:"name" binding:"required"`
	Code        string               `json:"code" binding:"required"`
	Type        SupplierType         `json:"type"`
	APIBaseURL  string               `json:"apiBaseUrl"`
	Settings    JSONB                `json:"settings"`
	Credentials *SupplierCredentials `json:"credentials"`
}

// UpdateSupplierRequest represents a partial supplier update
type UpdateSupplierRequest struct {
	Name       *string `json:"name"`
	APIBaseURL *string `json:"apiBaseUrl"`
	IsEnabled  *bool   `json:"isEnabled"`
	Settings   JSONB   `json:"settings"`
}
