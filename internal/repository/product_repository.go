package repository

import (
	"context"
	"strings"
	"time"

	"dropship-service/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductRepository handles database operations for products and variants
type ProductRepository struct {
	db *gorm.DB
}

// NewProductRepository creates a new product repository
func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// Create creates a product together with any variants attached to it
func (r *ProductRepository) Create(ctx context.Context, product *models.Product) error {
	return translate(r.db.WithContext(ctx).Create(product).Error)
}

// GetByID retrieves a product with its category and variants
func (r *ProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Category").
		Preload("Variants", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		First(&product, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &product, nil
}

// GetBySlug retrieves a product by slug
func (r *ProductRepository) GetBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Category").
		Preload("Variants", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		First(&product, "slug = ?", slug).Error
	if err != nil {
		return nil, translate(err)
	}
	return &product, nil
}

// GetBySupplierProduct retrieves the product imported from a supplier product id
func (r *ProductRepository) GetBySupplierProduct(ctx context.Context, supplierID uuid.UUID, supplierProductID string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Variants").
		Where("supplier_id = ? AND supplier_product_id = ?", supplierID, supplierProductID).
		First(&product).Error
	if err != nil {
		return nil, translate(err)
	}
	return &product, nil
}

// Update saves all product columns, leaving associations alone
func (r *ProductRepository) Update(ctx context.Context, product *models.Product) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Save(product).Error)
}

// UpdateFields updates selected columns of a product
func (r *ProductRepository) UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()
	result := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ProductCondition guards a conditional product update
type ProductCondition struct {
	ExcludeStatuses []models.ProductStatus
	Status          models.ProductStatus
	CategoryIsNull  bool
	SyncedBefore    *time.Time
}

// UpdateWhere updates a product only when the condition still holds and
// returns the number of rows changed (0 or 1)
func (r *ProductRepository) UpdateWhere(ctx context.Context, id uuid.UUID, cond ProductCondition, updates map[string]interface{}) (int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id)
	if len(cond.ExcludeStatuses) > 0 {
		query = query.Where("status NOT IN ?", cond.ExcludeStatuses)
	}
	if cond.Status != "" {
		query = query.Where("status = ?", cond.Status)
	}
	if cond.CategoryIsNull {
		query = query.Where("category_id IS NULL")
	}
	if cond.SyncedBefore != nil {
		query = query.Where("(supplier_synced_at IS NULL OR supplier_synced_at <= ?)", *cond.SyncedBefore)
	}
	updates["updated_at"] = time.Now()
	result := query.Updates(updates)
	return result.RowsAffected, translate(result.Error)
}

// UpdateStatus updates the product status
func (r *ProductRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.ProductStatus) error {
	return r.UpdateFields(ctx, id, map[string]interface{}{"status": status})
}

// Delete deletes a product and its variants
func (r *ProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.ProductVariant{}, "product_id = ?", id).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Product{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// List retrieves products with pagination and filtering
func (r *ProductRepository) List(ctx context.Context, opts ProductListOptions) ([]models.Product, int64, error) {
	var products []models.Product
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Product{})

	if opts.CategoryID != nil {
		query = query.Where("category_id = ?", *opts.CategoryID)
	}
	if opts.SupplierID != nil {
		query = query.Where("supplier_id = ?", *opts.SupplierID)
	}
	if len(opts.Statuses) > 0 {
		query = query.Where("status IN ?", opts.Statuses)
	}
	if opts.Search != "" {
		like := "%" + strings.ToLower(opts.Search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(sku) LIKE ?", like, like)
	}
	if opts.MinPrice != nil {
		query = query.Where("price >= ?", *opts.MinPrice)
	}
	if opts.MaxPrice != nil {
		query = query.Where("price <= ?", *opts.MaxPrice)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = paginate(query, opts.Limit, opts.Offset).Order(productOrder(opts.Sort))
	if opts.WithVariants {
		query = query.Preload("Variants")
	}
	if err := query.Find(&products).Error; err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func productOrder(sort string) string {
	switch sort {
	case "price_asc":
		return "price ASC"
	case "price_desc":
		return "price DESC"
	case "name":
		return "name ASC"
	default:
		return "created_at DESC"
	}
}

// ListImported pages through products imported from a supplier
func (r *ProductRepository) ListImported(ctx context.Context, supplierID uuid.UUID, limit, offset int) ([]models.Product, error) {
	var products []models.Product
	query := r.db.WithContext(ctx).
		Where("supplier_id = ? AND supplier_product_id IS NOT NULL AND status <> ?", supplierID, models.ProductArchived).
		Order("created_at ASC")
	err := paginate(query, limit, offset).Find(&products).Error
	return products, err
}

// SlugExists checks whether a slug is taken by another product
func (r *ProductRepository) SlugExists(ctx context.Context, slug string, excludeID *uuid.UUID) (bool, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.Product{}).Where("slug = ?", slug)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}
	err := query.Count(&count).Error
	return count > 0, err
}

// UpsertVariants creates or refreshes variants keyed on (product_id, supplier_variant_id)
func (r *ProductRepository) UpsertVariants(ctx context.Context, variants []models.ProductVariant) error {
	if len(variants) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "product_id"}, {Name: "supplier_variant_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"sku", "name", "price", "cost_price", "stock", "image", "attributes", "updated_at"}),
	}).Create(&variants).Error
}

// GetVariantByID retrieves a variant
func (r *ProductRepository) GetVariantByID(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error) {
	var variant models.ProductVariant
	if err := r.db.WithContext(ctx).First(&variant, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &variant, nil
}

// GetVariantBySupplierID finds a variant by the supplier's variant id
func (r *ProductRepository) GetVariantBySupplierID(ctx context.Context, supplierID uuid.UUID, supplierVariantID string) (*models.ProductVariant, error) {
	var variant models.ProductVariant
	err := r.db.WithContext(ctx).
		Joins("JOIN products ON products.id = product_variants.product_id").
		Where("products.supplier_id = ? AND product_variants.supplier_variant_id = ?", supplierID, supplierVariantID).
		First(&variant).Error
	if err != nil {
		return nil, translate(err)
	}
	return &variant, nil
}

// ListVariantsBySupplier pages through supplier-linked variants of live products
func (r *ProductRepository) ListVariantsBySupplier(ctx context.Context, supplierID uuid.UUID, limit, offset int) ([]models.ProductVariant, error) {
	var variants []models.ProductVariant
	query := r.db.WithContext(ctx).
		Joins("JOIN products ON products.id = product_variants.product_id").
		Where("products.supplier_id = ? AND product_variants.supplier_variant_id IS NOT NULL AND products.status <> ?", supplierID, models.ProductArchived).
		Order("product_variants.created_at ASC")
	err := paginate(query, limit, offset).Find(&variants).Error
	return variants, err
}

// UpdateVariant updates selected variant columns
func (r *ProductRepository) UpdateVariant(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()
	return r.db.WithContext(ctx).
		Model(&models.ProductVariant{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// RecomputeStock sets product stock to the sum of its variants' stock.
// Products without variants keep their own stock.
func (r *ProductRepository) RecomputeStock(ctx context.Context, productID uuid.UUID) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE products SET stock = v.total, updated_at = ?
		FROM (SELECT product_id, COALESCE(SUM(stock), 0) AS total
		      FROM product_variants WHERE product_id = ? GROUP BY product_id) v
		WHERE products.id = v.product_id`, time.Now(), productID).Error
}

// ProductListOptions contains options for listing products
type ProductListOptions struct {
	CategoryID   *uuid.UUID
	SupplierID   *uuid.UUID
	Statuses     []models.ProductStatus
	Search       string
	MinPrice     *decimal.Decimal
	MaxPrice     *decimal.Decimal
	Sort         string
	WithVariants bool
	Limit        int
	Offset       int
}
