package repository

import (
	"context"
	"time"

	"dropship-service/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SupplierRepository handles database operations for suppliers
type SupplierRepository struct {
	db *gorm.DB
}

// NewSupplierRepository creates a new supplier repository
func NewSupplierRepository(db *gorm.DB) *SupplierRepository {
	return &SupplierRepository{db: db}
}

// Create creates a new supplier
func (r *SupplierRepository) Create(ctx context.Context, supplier *models.Supplier) error {
	return translate(r.db.WithContext(ctx).Create(supplier).Error)
}

// GetByID retrieves a supplier by ID
func (r *SupplierRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Supplier, error) {
	var supplier models.Supplier
	if err := r.db.WithContext(ctx).First(&supplier, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	supplier.HasCredentials = supplier.SecretReference != ""
	return &supplier, nil
}

// GetByCode retrieves a supplier by its short code (e.g. "CJ")
func (r *SupplierRepository) GetByCode(ctx context.Context, code string) (*models.Supplier, error) {
	var supplier models.Supplier
	if err := r.db.WithContext(ctx).First(&supplier, "code = ?", code).Error; err != nil {
		return nil, translate(err)
	}
	supplier.HasCredentials = supplier.SecretReference != ""
	return &supplier, nil
}

// Update updates an existing supplier
func (r *SupplierRepository) Update(ctx context.Context, supplier *models.Supplier) error {
	return translate(r.db.WithContext(ctx).Save(supplier).Error)
}

// UpdateStatus updates the supplier connection status
func (r *SupplierRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.SupplierStatus, lastError string) error {
	updates := map[string]interface{}{
		"status":     status,
		"last_error": lastError,
		"updated_at": time.Now(),
	}
	if status == models.SupplierError {
		updates["error_count"] = gorm.Expr("error_count + 1")
	} else {
		updates["error_count"] = 0
	}
	return r.db.WithContext(ctx).
		Model(&models.Supplier{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// MarkSynced records a successful sync
func (r *SupplierRepository) MarkSynced(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Supplier{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"last_sync_at": at, "updated_at": time.Now()}).Error
}

// Delete deletes a supplier
func (r *SupplierRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.Supplier{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// List retrieves suppliers with pagination and filtering
func (r *SupplierRepository) List(ctx context.Context, opts SupplierListOptions) ([]models.Supplier, int64, error) {
	var suppliers []models.Supplier
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Supplier{})

	if opts.Type != "" {
		query = query.Where("type = ?", opts.Type)
	}
	if opts.Status != "" {
		query = query.Where("status = ?", opts.Status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = paginate(query, opts.Limit, opts.Offset).Order("created_at DESC")
	if err := query.Find(&suppliers).Error; err != nil {
		return nil, 0, err
	}
	for i := range suppliers {
		suppliers[i].HasCredentials = suppliers[i].SecretReference != ""
	}

	return suppliers, total, nil
}

// SupplierListOptions contains options for listing suppliers
type SupplierListOptions struct {
	Type   string
	Status string
	Limit  int
	Offset int
}
