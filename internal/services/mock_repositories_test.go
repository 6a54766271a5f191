package services

import (
	"context"
	"time"

	"dropship-service/internal/models"
	"dropship-service/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockSupplierRepository is a mock implementation of SupplierRepositoryInterface
type MockSupplierRepository struct {
	mock.Mock
}

var _ repository.SupplierRepositoryInterface = (*MockSupplierRepository)(nil)

func (m *MockSupplierRepository) Create(ctx context.Context, supplier *models.Supplier) error {
	args := m.Called(ctx, supplier)
	return args.Error(0)
}

func (m *MockSupplierRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Supplier, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Supplier), args.Error(1)
}

func (m *MockSupplierRepository) GetByCode(ctx context.Context, code string) (*models.Supplier, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Supplier), args.Error(1)
}

func (m *MockSupplierRepository) Update(ctx context.Context, supplier *models.Supplier) error {
	args := m.Called(ctx, supplier)
	return args.Error(0)
}

func (m *MockSupplierRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.SupplierStatus, lastError string) error {
	args := m.Called(ctx, id, status, lastError)
	return args.Error(0)
}

func (m *MockSupplierRepository) MarkSynced(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockSupplierRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockSupplierRepository) List(ctx context.Context, opts repository.SupplierListOptions) ([]models.Supplier, int64, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]models.Supplier), args.Get(1).(int64), args.Error(2)
}

// MockCategoryRepository is a mock implementation of CategoryRepositoryInterface
type MockCategoryRepository struct {
	mock.Mock
}

var _ repository.CategoryRepositoryInterface = (*MockCategoryRepository)(nil)

func (m *MockCategoryRepository) Create(ctx context.Context, category *models.Category) error {
	args := m.Called(ctx, category)
	return args.Error(0)
}

func (m *MockCategoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Category), args.Error(1)
}

func (m *MockCategoryRepository) GetBySlug(ctx context.Context, slug string) (*models.Category, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Category), args.Error(1)
}

func (m *MockCategoryRepository) Update(ctx context.Context, category *models.Category) error {
	args := m.Called(ctx, category)
	return args.Error(0)
}

func (m *MockCategoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockCategoryRepository) List(ctx context.Context, opts repository.CategoryListOptions) ([]models.Category, int64, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]models.Category), args.Get(1).(int64), args.Error(2)
}

func (m *MockCategoryRepository) ListAll(ctx context.Context) ([]models.Category, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Category), args.Error(1)
}

func (m *MockCategoryRepository) SlugExists(ctx context.Context, slug string, excludeID *uuid.UUID) (bool, error) {
	args := m.Called(ctx, slug, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockCategoryRepository) CountChildren(ctx context.Context, id uuid.UUID) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCategoryRepository) CountProducts(ctx context.Context, id uuid.UUID) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

// MockProductRepository is a mock implementation of ProductRepositoryInterface
type MockProductRepository struct {
	mock.Mock
}

var _ repository.ProductRepositoryInterface = (*MockProductRepository)(nil)

func (m *MockProductRepository) Create(ctx context.Context, product *models.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductRepository) GetBySlug(ctx context.Context, slug string) (*models.Product, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductRepository) GetBySupplierProduct(ctx context.Context, supplierID uuid.UUID, supplierProductID string) (*models.Product, error) {
	args := m.Called(ctx, supplierID, supplierProductID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductRepository) Update(ctx context.Context, product *models.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	args := m.Called(ctx, id, updates)
	return args.Error(0)
}

func (m *MockProductRepository) UpdateWhere(ctx context.Context, id uuid.UUID, cond repository.ProductCondition, updates map[string]interface{}) (int64, error) {
	args := m.Called(ctx, id, cond, updates)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockProductRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.ProductStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockProductRepository) List(ctx context.Context, opts repository.ProductListOptions) ([]models.Product, int64, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]models.Product), args.Get(1).(int64), args.Error(2)
}

func (m *MockProductRepository) ListImported(ctx context.Context, supplierID uuid.UUID, limit, offset int) ([]models.Product, error) {
	args := m.Called(ctx, supplierID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Product), args.Error(1)
}

func (m *MockProductRepository) SlugExists(ctx context.Context, slug string, excludeID *uuid.UUID) (bool, error) {
	args := m.Called(ctx, slug, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockProductRepository) UpsertVariants(ctx context.Context, variants []models.ProductVariant) error {
	args := m.Called(ctx, variants)
	return args.Error(0)
}

func (m *MockProductRepository) GetVariantByID(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProductVariant), args.Error(1)
}

func (m *MockProductRepository) GetVariantBySupplierID(ctx context.Context, supplierID uuid.UUID, supplierVariantID string) (*models.ProductVariant, error) {
	args := m.Called(ctx, supplierID, supplierVariantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProductVariant), args.Error(1)
}

func (m *MockProductRepository) ListVariantsBySupplier(ctx context.Context, supplierID uuid.UUID, limit, offset int) ([]models.ProductVariant, error) {
	args := m.Called(ctx, supplierID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ProductVariant), args.Error(1)
}

func (m *MockProductRepository) UpdateVariant(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	args := m.Called(ctx, id, updates)
	return args.Error(0)
}

func (m *MockProductRepository) RecomputeStock(ctx context.Context, productID uuid.UUID) error {
	args := m.Called(ctx, productID)
	return args.Error(0)
}

// MockMappingRepository is a mock implementation of MappingRepositoryInterface
type MockMappingRepository struct {
	mock.Mock
}

var _ repository.MappingRepositoryInterface = (*MockMappingRepository)(nil)

func (m *MockMappingRepository) UpsertSupplierCategories(ctx context.Context, categories []models.SupplierCategory) error {
	args := m.Called(ctx, categories)
	return args.Error(0)
}

func (m *MockMappingRepository) ListSupplierCategories(ctx context.Context, opts repository.SupplierCategoryListOptions) ([]models.SupplierCategory, int64, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]models.SupplierCategory), args.Get(1).(int64), args.Error(2)
}

func (m *MockMappingRepository) GetSupplierCategory(ctx context.Context, supplierID uuid.UUID, externalID string) (*models.SupplierCategory, error) {
	args := m.Called(ctx, supplierID, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SupplierCategory), args.Error(1)
}

func (m *MockMappingRepository) AllSupplierCategories(ctx context.Context, supplierID uuid.UUID) ([]models.SupplierCategory, error) {
	args := m.Called(ctx, supplierID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.SupplierCategory), args.Error(1)
}

func (m *MockMappingRepository) UpsertMapping(ctx context.Context, mapping *models.CategoryMapping) error {
	args := m.Called(ctx, mapping)
	return args.Error(0)
}

func (m *MockMappingRepository) GetMapping(ctx context.Context, supplierID uuid.UUID, externalCategoryID string) (*models.CategoryMapping, error) {
	args := m.Called(ctx, supplierID, externalCategoryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CategoryMapping), args.Error(1)
}

func (m *MockMappingRepository) GetMappingByID(ctx context.Context, id uuid.UUID) (*models.CategoryMapping, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CategoryMapping), args.Error(1)
}

func (m *MockMappingRepository) ListMappings(ctx context.Context, supplierID uuid.UUID, opts repository.ListOptions) ([]models.CategoryMapping, int64, error) {
	args := m.Called(ctx, supplierID, opts)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]models.CategoryMapping), args.Get(1).(int64), args.Error(2)
}

func (m *MockMappingRepository) MappingIndex(ctx context.Context, supplierID uuid.UUID) (map[string]uuid.UUID, error) {
	args := m.Called(ctx, supplierID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]uuid.UUID), args.Error(1)
}

func (m *MockMappingRepository) DeleteMapping(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockMappingRepository) ApplyMapping(ctx context.Context, supplierID uuid.UUID, externalCategoryID string, categoryID uuid.UUID) (int64, error) {
	args := m.Called(ctx, supplierID, externalCategoryID, categoryID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockMappingRepository) TrackUnmapped(ctx context.Context, supplierID uuid.UUID, externalCategoryID, name string) error {
	args := m.Called(ctx, supplierID, externalCategoryID, name)
	return args.Error(0)
}

func (m *MockMappingRepository) ResolveUnmapped(ctx context.Context, supplierID uuid.UUID, externalCategoryID string) error {
	args := m.Called(ctx, supplierID, externalCategoryID)
	return args.Error(0)
}

func (m *MockMappingRepository) ListUnmapped(ctx context.Context, opts repository.UnmappedListOptions) ([]models.UnmappedCategory, int64, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]models.UnmappedCategory), args.Get(1).(int64), args.Error(2)
}

// WithTransaction runs the callback against the mock itself
func (m *MockMappingRepository) WithTransaction(ctx context.Context, fn func(txRepo repository.MappingRepositoryInterface) error) error {
	return fn(m)
}

// MockSyncRepository is a mock implementation of SyncRepositoryInterface
type MockSyncRepository struct {
	mock.Mock
}

var _ repository.SyncRepositoryInterface = (*MockSyncRepository)(nil)

func (m *MockSyncRepository) CreateJob(ctx context.Context, job *models.SupplierSyncJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockSyncRepository) GetJobByID(ctx context.Context, id uuid.UUID) (*models.SupplierSyncJob, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SupplierSyncJob), args.Error(1)
}

func (m *MockSyncRepository) MarkJobStarted(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockSyncRepository) UpdateJobStatus(ctx context.Context, id uuid.UUID, status models.SyncStatus, errorMessage string) error {
	args := m.Called(ctx, id, status, errorMessage)
	return args.Error(0)
}

func (m *MockSyncRepository) UpdateJobProgress(ctx context.Context, id uuid.UUID, progress *models.SyncProgress) error {
	args := m.Called(ctx, id, progress)
	return args.Error(0)
}

func (m *MockSyncRepository) ListJobs(ctx context.Context, opts repository.SyncListOptions) ([]models.SupplierSyncJob, int64, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]models.SupplierSyncJob), args.Get(1).(int64), args.Error(2)
}

func (m *MockSyncRepository) GetActiveJob(ctx context.Context, supplierID uuid.UUID, syncType models.SyncType) (*models.SupplierSyncJob, error) {
	args := m.Called(ctx, supplierID, syncType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SupplierSyncJob), args.Error(1)
}

func (m *MockSyncRepository) FailStaleJobs(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSyncRepository) CreateLog(ctx context.Context, log *models.SupplierSyncLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *MockSyncRepository) GetJobLogs(ctx context.Context, jobID uuid.UUID, opts repository.LogListOptions) ([]models.SupplierSyncLog, error) {
	args := m.Called(ctx, jobID, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.SupplierSyncLog), args.Error(1)
}

func (m *MockSyncRepository) GetSyncStats(ctx context.Context, supplierID *uuid.UUID) (*repository.SyncStats, error) {
	args := m.Called(ctx, supplierID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.SyncStats), args.Error(1)
}

// MockWebhookRepository is a mock implementation of WebhookRepositoryInterface
type MockWebhookRepository struct {
	mock.Mock
}

var _ repository.WebhookRepositoryInterface = (*MockWebhookRepository)(nil)

func (m *MockWebhookRepository) Create(ctx context.Context, event *models.SupplierWebhookEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockWebhookRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.SupplierWebhookEvent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SupplierWebhookEvent), args.Error(1)
}

func (m *MockWebhookRepository) GetByIdempotencyKey(ctx context.Context, key string) (*models.SupplierWebhookEvent, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SupplierWebhookEvent), args.Error(1)
}

func (m *MockWebhookRepository) MarkProcessed(ctx context.Context, id uuid.UUID, err error) error {
	args := m.Called(ctx, id, err)
	return args.Error(0)
}

func (m *MockWebhookRepository) MarkSkipped(ctx context.Context, id uuid.UUID, reason string) error {
	args := m.Called(ctx, id, reason)
	return args.Error(0)
}

func (m *MockWebhookRepository) GetUnprocessedEvents(ctx context.Context, limit int) ([]models.SupplierWebhookEvent, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.SupplierWebhookEvent), args.Error(1)
}

func (m *MockWebhookRepository) List(ctx context.Context, opts repository.WebhookListOptions) ([]models.SupplierWebhookEvent, int64, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]models.SupplierWebhookEvent), args.Get(1).(int64), args.Error(2)
}

// MockUserRepository is a mock implementation of UserRepositoryInterface
type MockUserRepository struct {
	mock.Mock
}

var _ repository.UserRepositoryInterface = (*MockUserRepository)(nil)

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Update(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) TouchLogin(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserRepository) List(ctx context.Context, opts repository.UserListOptions) ([]models.User, int64, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]models.User), args.Get(1).(int64), args.Error(2)
}

// MockCartRepository is a mock implementation of CartRepositoryInterface
type MockCartRepository struct {
	mock.Mock
}

var _ repository.CartRepositoryInterface = (*MockCartRepository)(nil)

func (m *MockCartRepository) ListCart(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.CartItem), args.Error(1)
}

func (m *MockCartRepository) GetCartItem(ctx context.Context, userID, itemID uuid.UUID) (*models.CartItem, error) {
	args := m.Called(ctx, userID, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CartItem), args.Error(1)
}

func (m *MockCartRepository) FindCartLine(ctx context.Context, userID, productID uuid.UUID, variantID *uuid.UUID) (*models.CartItem, error) {
	args := m.Called(ctx, userID, productID, variantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CartItem), args.Error(1)
}

func (m *MockCartRepository) CreateCartItem(ctx context.Context, item *models.CartItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockCartRepository) UpdateCartQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error {
	args := m.Called(ctx, itemID, quantity)
	return args.Error(0)
}

func (m *MockCartRepository) DeleteCartItem(ctx context.Context, userID, itemID uuid.UUID) error {
	args := m.Called(ctx, userID, itemID)
	return args.Error(0)
}

func (m *MockCartRepository) ClearCart(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockCartRepository) ListWishlist(ctx context.Context, userID uuid.UUID) ([]models.WishlistItem, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.WishlistItem), args.Error(1)
}

func (m *MockCartRepository) GetWishlistItem(ctx context.Context, userID, productID uuid.UUID) (*models.WishlistItem, error) {
	args := m.Called(ctx, userID, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WishlistItem), args.Error(1)
}

func (m *MockCartRepository) AddWishlist(ctx context.Context, item *models.WishlistItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockCartRepository) RemoveWishlist(ctx context.Context, userID, productID uuid.UUID) error {
	args := m.Called(ctx, userID, productID)
	return args.Error(0)
}

// MockOrderRepository is a mock implementation of OrderRepositoryInterface
type MockOrderRepository struct {
	mock.Mock
}

var _ repository.OrderRepositoryInterface = (*MockOrderRepository)(nil)

func (m *MockOrderRepository) Checkout(ctx context.Context, order *models.Order, lines []repository.StockReservation, cartItemIDs []uuid.UUID) error {
	args := m.Called(ctx, order, lines, cartItemIDs)
	return args.Error(0)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderRepository) GetBySupplierOrderID(ctx context.Context, supplierOrderID string) (*models.Order, error) {
	args := m.Called(ctx, supplierOrderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderRepository) List(ctx context.Context, opts repository.OrderListOptions) ([]models.Order, int64, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]models.Order), args.Get(1).(int64), args.Error(2)
}

func (m *MockOrderRepository) UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	args := m.Called(ctx, id, updates)
	return args.Error(0)
}

func (m *MockOrderRepository) Cancel(ctx context.Context, order *models.Order, lines []repository.StockReservation) error {
	args := m.Called(ctx, order, lines)
	return args.Error(0)
}

func (m *MockOrderRepository) ClaimPlacement(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

// MockAuditRepository is a mock implementation of AuditRepositoryInterface
type MockAuditRepository struct {
	mock.Mock
}

var _ repository.AuditRepositoryInterface = (*MockAuditRepository)(nil)

func (m *MockAuditRepository) Create(ctx context.Context, log *models.AuditLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *MockAuditRepository) List(ctx context.Context, opts repository.AuditListOptions) ([]models.AuditLog, int64, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]models.AuditLog), args.Get(1).(int64), args.Error(2)
}
