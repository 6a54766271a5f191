package models

import (
	"time"

	"github.com/google/uuid"
)

// SupplierCategory is a node of a supplier's category taxonomy as last seen
type SupplierCategory struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	SupplierID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_supplier_categories_ext,priority:1" json:"supplierId"`
	ExternalID       string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_supplier_categories_ext,priority:2" json:"externalId"`
	Name             string    `gorm:"type:varchar(500);not null" json:"name"`
	ParentExternalID string    `gorm:"type:varchar(255)" json:"parentExternalId,omitempty"`
	Level            int       `gorm:"default:1" json:"level"`
	Path             string    `gorm:"type:varchar(1000)" json:"path"`
	LastSeenAt       time.Time `json:"lastSeenAt"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updatedAt"`

	// Populated on listing when a mapping exists
	MappedCategoryID *uuid.UUID `gorm:"-" json:"mappedCategoryId,omitempty"`
}

// TableName specifies the table name for SupplierCategory
func (SupplierCategory) TableName() string {
	return "supplier_categories"
}

// CategoryMapping maps a supplier category to an internal category
type CategoryMapping struct {
	ID                   uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	SupplierID           uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_category_mappings_ext,priority:1" json:"supplierId"`
	ExternalCategoryID   string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_category_mappings_ext,priority:2" json:"externalCategoryId"`
	ExternalCategoryName string    `gorm:"type:varchar(500)" json:"externalCategoryName,omitempty"`
	CategoryID           uuid.UUID `gorm:"type:uuid;not null;index:idx_category_mappings_category" json:"categoryId"`
	CreatedBy            string    `gorm:"type:varchar(255)" json:"createdBy,omitempty"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updatedAt"`

	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}

// TableName specifies the table name for CategoryMapping
func (CategoryMapping) TableName() string {
	return "category_mappings"
}

// UnmappedCategory tracks supplier categories seen on imports without a mapping
type UnmappedCategory struct {
	ID                   uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	SupplierID           uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_unmapped_categories_ext,priority:1" json:"supplierId"`
	ExternalCategoryID   string     `gorm:"type:varchar(255);not null;uniqueIndex:idx_unmapped_categories_ext,priority:2" json:"externalCategoryId"`
	ExternalCategoryName string     `gorm:"type:varchar(500)" json:"externalCategoryName,omitempty"`
	ProductCount         int        `gorm:"default:0" json:"productCount"`
	Resolved             bool       `gorm:"default:false;index:idx_unmapped_categories_resolved" json:"resolved"`
	ResolvedAt           *time.Time `json:"resolvedAt,omitempty"`
	FirstSeenAt          time.Time  `json:"firstSeenAt"`
	LastSeenAt           time.Time  `json:"lastSeenAt"`
}

// TableName specifies the table name for UnmappedCategory
func (UnmappedCategory) TableName() string {
	return "unmapped_categories"
}

// UpsertMappingRequest creates or replaces the mapping for one supplier category
type UpsertMappingRequest struct {
	ExternalCategoryID   string    `json:"externalCategoryId" binding:"required"`
	ExternalCategoryName string    `json:"externalCategoryName"`
	CategoryID           uuid.UUID `json:"categoryId" binding:"required"`
}

// BulkUpsertMappingsRequest is the declarative mapping table for a supplier
type BulkUpsertMappingsRequest struct {
	Mappings []UpsertMappingRequest `json:"mappings" binding:"required,min=1,dive"`
}

// MappingResult reports the outcome of applying one mapping
type MappingResult struct {
	Mapping         *CategoryMapping `json:"mapping,omitempty"`
	ProductsUpdated int64            `json:"productsUpdated"`
	Error           string           `json:"error,omitempty"`
}
