package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"dropship-service/internal/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Cache TTL constants
const (
	CategoryCacheTTL     = 30 * time.Minute
	CategoryListCacheTTL = 15 * time.Minute

	categoryKeyPrefix = "dropship:categories:"
)

// CategoryRepository handles database operations for internal categories.
// Reads of the full category set are served from redis when available.
type CategoryRepository struct {
	db    *gorm.DB
	redis *redis.Client
}

// NewCategoryRepository creates a new category repository; redis may be nil
func NewCategoryRepository(db *gorm.DB, redis *redis.Client) *CategoryRepository {
	return &CategoryRepository{db: db, redis: redis}
}

// invalidate drops every cached category key
func (r *CategoryRepository) invalidate(ctx context.Context) {
	if r.redis == nil {
		return
	}
	keys, _ := r.redis.Keys(ctx, categoryKeyPrefix+"*").Result()
	if len(keys) > 0 {
		r.redis.Del(ctx, keys...)
	}
}

// Create creates a new category
func (r *CategoryRepository) Create(ctx context.Context, category *models.Category) error {
	err := r.db.WithContext(ctx).Create(category).Error
	if err == nil {
		r.invalidate(ctx)
	}
	return translate(err)
}

// GetByID retrieves a category by ID
func (r *CategoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	cacheKey := fmt.Sprintf("%scategory:%s", categoryKeyPrefix, id)

	if r.redis != nil {
		if val, err := r.redis.Get(ctx, cacheKey).Result(); err == nil {
			var category models.Category
			if err := json.Unmarshal([]byte(val), &category); err == nil {
				return &category, nil
			}
		}
	}

	var category models.Category
	if err := r.db.WithContext(ctx).First(&category, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}

	if r.redis != nil {
		if data, err := json.Marshal(category); err == nil {
			r.redis.Set(ctx, cacheKey, data, CategoryCacheTTL)
		}
	}
	return &category, nil
}

// GetBySlug retrieves a category by slug
func (r *CategoryRepository) GetBySlug(ctx context.Context, slug string) (*models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).First(&category, "slug = ?", slug).Error; err != nil {
		return nil, translate(err)
	}
	return &category, nil
}

// Update updates a category
func (r *CategoryRepository) Update(ctx context.Context, category *models.Category) error {
	err := r.db.WithContext(ctx).Save(category).Error
	if err == nil {
		r.invalidate(ctx)
	}
	return translate(err)
}

// Delete deletes a category
func (r *CategoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.Category{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	r.invalidate(ctx)
	return nil
}

// List retrieves categories with pagination and filtering
func (r *CategoryRepository) List(ctx context.Context, opts CategoryListOptions) ([]models.Category, int64, error) {
	var categories []models.Category
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Category{})
	if opts.ParentID != nil {
		query = query.Where("parent_id = ?", *opts.ParentID)
	}
	if opts.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	if opts.Search != "" {
		query = query.Where("name ILIKE ?", "%"+opts.Search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = paginate(query, opts.Limit, opts.Offset).Order("level ASC, position ASC, name ASC")
	if err := query.Find(&categories).Error; err != nil {
		return nil, 0, err
	}
	return categories, total, nil
}

// ListAll returns every category, cached as a whole
func (r *CategoryRepository) ListAll(ctx context.Context) ([]models.Category, error) {
	cacheKey := categoryKeyPrefix + "all"

	if r.redis != nil {
		if val, err := r.redis.Get(ctx, cacheKey).Result(); err == nil {
			var categories []models.Category
			if err := json.Unmarshal([]byte(val), &categories); err == nil {
				return categories, nil
			}
		}
	}

	var categories []models.Category
	if err := r.db.WithContext(ctx).Order("level ASC, position ASC, name ASC").Find(&categories).Error; err != nil {
		return nil, err
	}

	if r.redis != nil {
		if data, err := json.Marshal(categories); err == nil {
			r.redis.Set(ctx, cacheKey, data, CategoryListCacheTTL)
		}
	}
	return categories, nil
}

// SlugExists checks whether a slug is taken by another category
func (r *CategoryRepository) SlugExists(ctx context.Context, slug string, excludeID *uuid.UUID) (bool, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.Category{}).Where("LOWER(slug) = ?", strings.ToLower(slug))
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}
	err := query.Count(&count).Error
	return count > 0, err
}

// CountChildren counts direct subcategories
func (r *CategoryRepository) CountChildren(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Category{}).Where("parent_id = ?", id).Count(&count).Error
	return count, err
}

// CountProducts counts products assigned to the category
func (r *CategoryRepository) CountProducts(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Product{}).Where("category_id = ?", id).Count(&count).Error
	return count, err
}

// CategoryListOptions contains options for listing categories
type CategoryListOptions struct {
	ParentID   *uuid.UUID
	ActiveOnly bool
	Search     string
	Limit      int
	Offset     int
}
