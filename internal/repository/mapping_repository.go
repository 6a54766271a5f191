package repository

import (
	"context"
	"encoding/json"
	"time"

	"dropship-service/internal/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	SupplierCategoryCacheTTL = time.Hour

	supplierCategoryKeyPrefix = "dropship:supplier-categories:"
)

// MappingRepository handles supplier taxonomy, category mappings and
// unmapped-category tracking
type MappingRepository struct {
	db    *gorm.DB
	redis *redis.Client
}

// NewMappingRepository creates a new mapping repository; redis may be nil
func NewMappingRepository(db *gorm.DB, redis *redis.Client) *MappingRepository {
	return &MappingRepository{db: db, redis: redis}
}

// WithTransaction runs fn with a repository bound to a single transaction
func (r *MappingRepository) WithTransaction(ctx context.Context, fn func(txRepo MappingRepositoryInterface) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&MappingRepository{db: tx, redis: r.redis})
	})
}

// UpsertSupplierCategories creates or refreshes supplier category nodes
func (r *MappingRepository) UpsertSupplierCategories(ctx context.Context, categories []models.SupplierCategory) error {
	if len(categories) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "supplier_id"}, {Name: "external_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "parent_external_id", "level", "path", "last_seen_at", "updated_at"}),
	}).CreateInBatches(&categories, 200).Error
	if err == nil && r.redis != nil {
		r.redis.Del(ctx, supplierCategoryKeyPrefix+categories[0].SupplierID.String())
	}
	return err
}

// AllSupplierCategories returns the whole taxonomy of a supplier, cached in redis
func (r *MappingRepository) AllSupplierCategories(ctx context.Context, supplierID uuid.UUID) ([]models.SupplierCategory, error) {
	cacheKey := supplierCategoryKeyPrefix + supplierID.String()
	if r.redis != nil {
		if val, err := r.redis.Get(ctx, cacheKey).Result(); err == nil {
			var cached []models.SupplierCategory
			if err := json.Unmarshal([]byte(val), &cached); err == nil {
				return cached, nil
			}
		}
	}

	var categories []models.SupplierCategory
	err := r.db.WithContext(ctx).
		Where("supplier_id = ?", supplierID).
		Order("path ASC").
		Find(&categories).Error
	if err != nil {
		return nil, err
	}

	if r.redis != nil {
		if data, err := json.Marshal(categories); err == nil {
			r.redis.Set(ctx, cacheKey, data, SupplierCategoryCacheTTL)
		}
	}
	return categories, nil
}

// ListSupplierCategories lists the stored supplier taxonomy
func (r *MappingRepository) ListSupplierCategories(ctx context.Context, opts SupplierCategoryListOptions) ([]models.SupplierCategory, int64, error) {
	var categories []models.SupplierCategory
	var total int64

	query := r.db.WithContext(ctx).Model(&models.SupplierCategory{}).Where("supplier_id = ?", opts.SupplierID)
	if opts.Level > 0 {
		query = query.Where("level = ?", opts.Level)
	}
	if opts.Search != "" {
		query = query.Where("name ILIKE ? OR path ILIKE ?", "%"+opts.Search+"%", "%"+opts.Search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = paginate(query, opts.Limit, opts.Offset).Order("path ASC")
	if err := query.Find(&categories).Error; err != nil {
		return nil, 0, err
	}
	return categories, total, nil
}

// GetSupplierCategory retrieves one supplier category node
func (r *MappingRepository) GetSupplierCategory(ctx context.Context, supplierID uuid.UUID, externalID string) (*models.SupplierCategory, error) {
	var category models.SupplierCategory
	err := r.db.WithContext(ctx).
		Where("supplier_id = ? AND external_id = ?", supplierID, externalID).
		First(&category).Error
	if err != nil {
		return nil, translate(err)
	}
	return &category, nil
}

// UpsertMapping creates or replaces the mapping for (supplier, external category)
func (r *MappingRepository) UpsertMapping(ctx context.Context, mapping *models.CategoryMapping) error {
	now := time.Now()
	mapping.UpdatedAt = now
	if mapping.CreatedAt.IsZero() {
		mapping.CreatedAt = now
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "supplier_id"}, {Name: "external_category_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"category_id", "external_category_name", "created_by", "updated_at"}),
	}).Create(mapping).Error
	if err != nil {
		return translate(err)
	}
	// The insert may have turned into an update of an existing row with a different id
	return r.db.WithContext(ctx).
		Where("supplier_id = ? AND external_category_id = ?", mapping.SupplierID, mapping.ExternalCategoryID).
		First(mapping).Error
}

// GetMapping retrieves the mapping for a supplier category
func (r *MappingRepository) GetMapping(ctx context.Context, supplierID uuid.UUID, externalCategoryID string) (*models.CategoryMapping, error) {
	var mapping models.CategoryMapping
	err := r.db.WithContext(ctx).
		Where("supplier_id = ? AND external_category_id = ?", supplierID, externalCategoryID).
		First(&mapping).Error
	if err != nil {
		return nil, translate(err)
	}
	return &mapping, nil
}

// GetMappingByID retrieves a mapping by ID
func (r *MappingRepository) GetMappingByID(ctx context.Context, id uuid.UUID) (*models.CategoryMapping, error) {
	var mapping models.CategoryMapping
	if err := r.db.WithContext(ctx).Preload("Category").First(&mapping, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &mapping, nil
}

// ListMappings retrieves the mappings of a supplier
func (r *MappingRepository) ListMappings(ctx context.Context, supplierID uuid.UUID, opts ListOptions) ([]models.CategoryMapping, int64, error) {
	var mappings []models.CategoryMapping
	var total int64

	query := r.db.WithContext(ctx).Model(&models.CategoryMapping{}).Where("supplier_id = ?", supplierID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = paginate(query, opts.Limit, opts.Offset).Order("external_category_name ASC").Preload("Category")
	if err := query.Find(&mappings).Error; err != nil {
		return nil, 0, err
	}
	return mappings, total, nil
}

// MappingIndex returns external category id -> internal category id for a supplier
func (r *MappingRepository) MappingIndex(ctx context.Context, supplierID uuid.UUID) (map[string]uuid.UUID, error) {
	var rows []struct {
		ExternalCategoryID string
		CategoryID         uuid.UUID
	}
	err := r.db.WithContext(ctx).
		Model(&models.CategoryMapping{}).
		Select("external_category_id, category_id").
		Where("supplier_id = ?", supplierID).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	index := make(map[string]uuid.UUID, len(rows))
	for _, row := range rows {
		index[row.ExternalCategoryID] = row.CategoryID
	}
	return index, nil
}

// DeleteMapping deletes a mapping; categorised products are left alone
func (r *MappingRepository) DeleteMapping(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.CategoryMapping{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ApplyMapping moves every product of the supplier category that is still
// waiting for a mapping into the internal category as a draft
func (r *MappingRepository) ApplyMapping(ctx context.Context, supplierID uuid.UUID, externalCategoryID string, categoryID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("supplier_id = ? AND supplier_category_id = ? AND category_id IS NULL AND status = ?",
			supplierID, externalCategoryID, models.ProductPendingMapping).
		Updates(map[string]interface{}{
			"category_id": categoryID,
			"status":      models.ProductDraft,
			"updated_at":  time.Now(),
		})
	return result.RowsAffected, result.Error
}

// TrackUnmapped records one more product seen in an unmapped supplier category
func (r *MappingRepository) TrackUnmapped(ctx context.Context, supplierID uuid.UUID, externalCategoryID, name string) error {
	now := time.Now()
	record := &models.UnmappedCategory{
		SupplierID:           supplierID,
		ExternalCategoryID:   externalCategoryID,
		ExternalCategoryName: name,
		ProductCount:         1,
		FirstSeenAt:          now,
		LastSeenAt:           now,
	}
	keepName := gorm.Expr("COALESCE(NULLIF(EXCLUDED.external_category_name, ''), unmapped_categories.external_category_name)")
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "supplier_id"}, {Name: "external_category_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"product_count":          gorm.Expr("unmapped_categories.product_count + 1"),
			"last_seen_at":           now,
			"resolved":               false,
			"resolved_at":            nil,
			"external_category_name": keepName,
		}),
	}).Create(record).Error
}

// ResolveUnmapped marks the unmapped record of a supplier category as resolved
func (r *MappingRepository) ResolveUnmapped(ctx context.Context, supplierID uuid.UUID, externalCategoryID string) error {
	return r.db.WithContext(ctx).
		Model(&models.UnmappedCategory{}).
		Where("supplier_id = ? AND external_category_id = ? AND resolved = ?", supplierID, externalCategoryID, false).
		Updates(map[string]interface{}{"resolved": true, "resolved_at": time.Now()}).Error
}

// ListUnmapped lists unmapped categories, unresolved first, busiest first
func (r *MappingRepository) ListUnmapped(ctx context.Context, opts UnmappedListOptions) ([]models.UnmappedCategory, int64, error) {
	var records []models.UnmappedCategory
	var total int64

	query := r.db.WithContext(ctx).Model(&models.UnmappedCategory{}).Where("supplier_id = ?", opts.SupplierID)
	if !opts.IncludeResolved {
		query = query.Where("resolved = ?", false)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = paginate(query, opts.Limit, opts.Offset).Order("resolved ASC, product_count DESC, last_seen_at DESC")
	if err := query.Find(&records).Error; err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// SupplierCategoryListOptions contains options for listing supplier categories
type SupplierCategoryListOptions struct {
	SupplierID uuid.UUID
	Level      int
	Search     string
	Limit      int
	Offset     int
}

// UnmappedListOptions contains options for listing unmapped categories
type UnmappedListOptions struct {
	SupplierID      uuid.UUID
	IncludeResolved bool
	Limit           int
	Offset          int
}
