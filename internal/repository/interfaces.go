package repository

import (
	"context"
	"time"

	"dropship-service/internal/models"
	"github.com/google/uuid"
)

// SupplierRepositoryInterface defines supplier persistence
type SupplierRepositoryInterface interface {
	Create(ctx context.Context, supplier *models.Supplier) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Supplier, error)
	GetByCode(ctx context.Context, code string) (*models.Supplier, error)
	Update(ctx context.Context, supplier *models.Supplier) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.SupplierStatus, lastError string) error
	MarkSynced(ctx context.Context, id uuid.UUID, at time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, opts SupplierListOptions) ([]models.Supplier, int64, error)
}

// CategoryRepositoryInterface defines internal category persistence
type CategoryRepositoryInterface interface {
	Create(ctx context.Context, category *models.Category) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
	GetBySlug(ctx context.Context, slug string) (*models.Category, error)
	Update(ctx context.Context, category *models.Category) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, opts CategoryListOptions) ([]models.Category, int64, error)
	ListAll(ctx context.Context) ([]models.Category, error)
	SlugExists(ctx context.Context, slug string, excludeID *uuid.UUID) (bool, error)
	CountChildren(ctx context.Context, id uuid.UUID) (int64, error)
	CountProducts(ctx context.Context, id uuid.UUID) (int64, error)
}

// ProductRepositoryInterface defines product and variant persistence
type ProductRepositoryInterface interface {
	Create(ctx context.Context, product *models.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	GetBySlug(ctx context.Context, slug string) (*models.Product, error)
	GetBySupplierProduct(ctx context.Context, supplierID uuid.UUID, supplierProductID string) (*models.Product, error)
	Update(ctx context.Context, product *models.Product) error
	UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error
	UpdateWhere(ctx context.Context, id uuid.UUID, cond ProductCondition, updates map[string]interface{}) (int64, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.ProductStatus) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, opts ProductListOptions) ([]models.Product, int64, error)
	ListImported(ctx context.Context, supplierID uuid.UUID, limit, offset int) ([]models.Product, error)
	SlugExists(ctx context.Context, slug string, excludeID *uuid.UUID) (bool, error)

	UpsertVariants(ctx context.Context, variants []models.ProductVariant) error
	GetVariantByID(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error)
	GetVariantBySupplierID(ctx context.Context, supplierID uuid.UUID, supplierVariantID string) (*models.ProductVariant, error)
	ListVariantsBySupplier(ctx context.Context, supplierID uuid.UUID, limit, offset int) ([]models.ProductVariant, error)
	UpdateVariant(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error
	RecomputeStock(ctx context.Context, productID uuid.UUID) error
}

// MappingRepositoryInterface defines supplier taxonomy and category mapping persistence
type MappingRepositoryInterface interface {
	UpsertSupplierCategories(ctx context.Context, categories []models.SupplierCategory) error
	ListSupplierCategories(ctx context.Context, opts SupplierCategoryListOptions) ([]models.SupplierCategory, int64, error)
	GetSupplierCategory(ctx context.Context, supplierID uuid.UUID, externalID string) (*models.SupplierCategory, error)
	AllSupplierCategories(ctx context.Context, supplierID uuid.UUID) ([]models.SupplierCategory, error)

	UpsertMapping(ctx context.Context, mapping *models.CategoryMapping) error
	GetMapping(ctx context.Context, supplierID uuid.UUID, externalCategoryID string) (*models.CategoryMapping, error)
	GetMappingByID(ctx context.Context, id uuid.UUID) (*models.CategoryMapping, error)
	ListMappings(ctx context.Context, supplierID uuid.UUID, opts ListOptions) ([]models.CategoryMapping, int64, error)
	MappingIndex(ctx context.Context, supplierID uuid.UUID) (map[string]uuid.UUID, error)
	DeleteMapping(ctx context.Context, id uuid.UUID) error
	ApplyMapping(ctx context.Context, supplierID uuid.UUID, externalCategoryID string, categoryID uuid.UUID) (int64, error)

	TrackUnmapped(ctx context.Context, supplierID uuid.UUID, externalCategoryID, name string) error
	ResolveUnmapped(ctx context.Context, supplierID uuid.UUID, externalCategoryID string) error
	ListUnmapped(ctx context.Context, opts UnmappedListOptions) ([]models.UnmappedCategory, int64, error)

	WithTransaction(ctx context.Context, fn func(txRepo MappingRepositoryInterface) error) error
}

// SyncRepositoryInterface defines sync job persistence
type SyncRepositoryInterface interface {
	CreateJob(ctx context.Context, job *models.SupplierSyncJob) error
	GetJobByID(ctx context.Context, id uuid.UUID) (*models.SupplierSyncJob, error)
	MarkJobStarted(ctx context.Context, id uuid.UUID) error
	UpdateJobStatus(ctx context.Context, id uuid.UUID, status models.SyncStatus, errorMessage string) error
	UpdateJobProgress(ctx context.Context, id uuid.UUID, progress *models.SyncProgress) error
	ListJobs(ctx context.Context, opts SyncListOptions) ([]models.SupplierSyncJob, int64, error)
	GetActiveJob(ctx context.Context, supplierID uuid.UUID, syncType models.SyncType) (*models.SupplierSyncJob, error)
	FailStaleJobs(ctx context.Context) (int64, error)
	CreateLog(ctx context.Context, log *models.SupplierSyncLog) error
	GetJobLogs(ctx context.Context, jobID uuid.UUID, opts LogListOptions) ([]models.SupplierSyncLog, error)
	GetSyncStats(ctx context.Context, supplierID *uuid.UUID) (*SyncStats, error)
}

// WebhookRepositoryInterface defines webhook event persistence
type WebhookRepositoryInterface interface {
	Create(ctx context.Context, event *models.SupplierWebhookEvent) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.SupplierWebhookEvent, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*models.SupplierWebhookEvent, error)
	MarkProcessed(ctx context.Context, id uuid.UUID, err error) error
	MarkSkipped(ctx context.Context, id uuid.UUID, reason string) error
	GetUnprocessedEvents(ctx context.Context, limit int) ([]models.SupplierWebhookEvent, error)
	List(ctx context.Context, opts WebhookListOptions) ([]models.SupplierWebhookEvent, int64, error)
}

// UserRepositoryInterface defines user persistence
type UserRepositoryInterface interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	TouchLogin(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, opts UserListOptions) ([]models.User, int64, error)
}

// CartRepositoryInterface defines cart and wishlist persistence
type CartRepositoryInterface interface {
	ListCart(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error)
	GetCartItem(ctx context.Context, userID, itemID uuid.UUID) (*models.CartItem, error)
	FindCartLine(ctx context.Context, userID, productID uuid.UUID, variantID *uuid.UUID) (*models.CartItem, error)
	CreateCartItem(ctx context.Context, item *models.CartItem) error
	UpdateCartQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error
	DeleteCartItem(ctx context.Context, userID, itemID uuid.UUID) error
	ClearCart(ctx context.Context, userID uuid.UUID) error

	ListWishlist(ctx context.Context, userID uuid.UUID) ([]models.WishlistItem, error)
	GetWishlistItem(ctx context.Context, userID, productID uuid.UUID) (*models.WishlistItem, error)
	AddWishlist(ctx context.Context, item *models.WishlistItem) error
	RemoveWishlist(ctx context.Context, userID, productID uuid.UUID) error
}

// OrderRepositoryInterface defines order persistence
type OrderRepositoryInterface interface {
	Checkout(ctx context.Context, order *models.Order, lines []StockReservation, cartItemIDs []uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetBySupplierOrderID(ctx context.Context, supplierOrderID string) (*models.Order, error)
	List(ctx context.Context, opts OrderListOptions) ([]models.Order, int64, error)
	UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error
	Cancel(ctx context.Context, order *models.Order, lines []StockReservation) error
	ClaimPlacement(ctx context.Context, id uuid.UUID) (bool, error)
}

// AuditRepositoryInterface defines audit trail persistence
type AuditRepositoryInterface interface {
	Create(ctx context.Context, log *models.AuditLog) error
	List(ctx context.Context, opts AuditListOptions) ([]models.AuditLog, int64, error)
}

var (
	_ SupplierRepositoryInterface = (*SupplierRepository)(nil)
	_ CategoryRepositoryInterface = (*CategoryRepository)(nil)
	_ ProductRepositoryInterface  = (*ProductRepository)(nil)
	_ MappingRepositoryInterface  = (*MappingRepository)(nil)
	_ SyncRepositoryInterface     = (*SyncRepository)(nil)
	_ WebhookRepositoryInterface  = (*WebhookRepository)(nil)
	_ UserRepositoryInterface     = (*UserRepository)(nil)
	_ CartRepositoryInterface     = (*CartRepository)(nil)
	_ OrderRepositoryInterface    = (*OrderRepository)(nil)
	_ AuditRepositoryInterface    = (*AuditRepository)(nil)
)
