package services

import (
	"context"
	"testing"

	"dropship-service/internal/models"
	"dropship-service/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type catalogFixture struct {
	svc        *CatalogService
	products   *MockProductRepository
	categories *MockCategoryRepository
	supplier   *models.Supplier
}

func newCatalogFixture() *catalogFixture {
	f := &catalogFixture{
		products:   new(MockProductRepository),
		categories: new(MockCategoryRepository),
		supplier:   testSupplier(),
	}
	f.svc = NewCatalogService(f.products, f.categories, &stubSuppliers{supplier: f.supplier}, NewPricer(50), nil, "USD", testLogger())
	return f
}

func importedProduct(supplierID uuid.UUID) *models.Product {
	pid := "PID-1"
	return &models.Product{
		ID:                uuid.New(),
		Name:              "Desk Lamp",
		Slug:              "desk-lamp",
		Status:            models.ProductPendingMapping,
		Price:             decimal.RequireFromString("15"),
		CostPrice:         decimal.RequireFromString("10"),
		SupplierID:        &supplierID,
		SupplierProductID: &pid,
	}
}

func TestListStorefront_ForcesActive(t *testing.T) {
	f := newCatalogFixture()
	supplierID := uuid.New()
	f.products.On("List", mock.Anything, mock.MatchedBy(func(opts repository.ProductListOptions) bool {
		return len(opts.Statuses) == 1 && opts.Statuses[0] == models.ProductActive && opts.SupplierID == nil && opts.Search == "lamp"
	})).Return([]models.Product{}, int64(0), nil)

	_, _, err := f.svc.ListStorefront(context.Background(), repository.ProductListOptions{
		Statuses:   []models.ProductStatus{models.ProductDraft},
		SupplierID: &supplierID,
		Search:     "lamp",
	})
	require.NoError(t, err)
	f.products.AssertExpectations(t)
}

func TestGetStorefrontProduct_HidesInactive(t *testing.T) {
	f := newCatalogFixture()
	product := importedProduct(f.supplier.ID)
	f.products.On("GetBySlug", mock.Anything, "desk-lamp").Return(product, nil)

	_, err := f.svc.GetStorefrontProduct(context.Background(), "desk-lamp")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCreateProduct(t *testing.T) {
	t.Run("derives slug and defaults to draft", func(t *testing.T) {
		f := newCatalogFixture()
		f.products.On("SlugExists", mock.Anything, "brass-desk-lamp", (*uuid.UUID)(nil)).Return(false, nil)
		f.products.On("Create", mock.Anything, mock.AnythingOfType("*models.Product")).Return(nil)

		product, err := f.svc.CreateProduct(context.Background(), "admin", &models.CreateProductRequest{
			Name:  "Brass Desk Lamp",
			Price: decimal.RequireFromString("39.999"),
		})
		require.NoError(t, err)
		assert.Equal(t, "brass-desk-lamp", product.Slug)
		assert.Equal(t, models.ProductDraft, product.Status)
		assert.Equal(t, "40", product.Price.String())
		assert.Equal(t, "USD", product.Currency)
	})

	t.Run("active needs a category", func(t *testing.T) {
		f := newCatalogFixture()
		_, err := f.svc.CreateProduct(context.Background(), "admin", &models.CreateProductRequest{
			Name:   "Lamp",
			Status: models.ProductActive,
		})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("slug taken", func(t *testing.T) {
		f := newCatalogFixture()
		f.products.On("SlugExists", mock.Anything, "lamp", (*uuid.UUID)(nil)).Return(true, nil)

		_, err := f.svc.CreateProduct(context.Background(), "admin", &models.CreateProductRequest{Name: "Lamp"})
		assert.ErrorIs(t, err, ErrSlugTaken)
	})

	t.Run("unknown category", func(t *testing.T) {
		f := newCatalogFixture()
		categoryID := uuid.New()
		f.categories.On("GetByID", mock.Anything, categoryID).Return(nil, repository.ErrNotFound)

		_, err := f.svc.CreateProduct(context.Background(), "admin", &models.CreateProductRequest{Name: "Lamp", CategoryID: &categoryID})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestUpdateProduct_PriceOverride(t *testing.T) {
	f := newCatalogFixture()
	product := importedProduct(f.supplier.ID)
	f.products.On("GetByID", mock.Anything, product.ID).Return(product, nil)
	f.products.On("Update", mock.Anything, product).Return(nil)

	price := decimal.RequireFromString("19.99")
	updated, err := f.svc.UpdateProduct(context.Background(), "admin", product.ID, &models.UpdateProductRequest{Price: &price})
	require.NoError(t, err)
	assert.True(t, updated.PriceOverridden)
	assert.Equal(t, "19.99", updated.Price.String())
}

func TestUpdateProduct_ResetPriceUsesMarkup(t *testing.T) {
	f := newCatalogFixture()
	product := importedProduct(f.supplier.ID)
	product.Price = decimal.RequireFromString("99")
	product.PriceOverridden = true
	f.products.On("GetByID", mock.Anything, product.ID).Return(product, nil)
	f.products.On("Update", mock.Anything, product).Return(nil)

	updated, err := f.svc.UpdateProduct(context.Background(), "admin", product.ID, &models.UpdateProductRequest{ResetPrice: true})
	require.NoError(t, err)
	assert.False(t, updated.PriceOverridden)
	assert.True(t, updated.Price.Equal(NewPricer(50).RetailPrice(product.CostPrice, f.supplier)))
}

func TestUpdateProduct_CategoryReleasesPendingProduct(t *testing.T) {
	f := newCatalogFixture()
	product := importedProduct(f.supplier.ID)
	categoryID := uuid.New()
	f.products.On("GetByID", mock.Anything, product.ID).Return(product, nil)
	f.categories.On("GetByID", mock.Anything, categoryID).Return(&models.Category{ID: categoryID}, nil)
	f.products.On("Update", mock.Anything, product).Return(nil)

	updated, err := f.svc.UpdateProduct(context.Background(), "admin", product.ID, &models.UpdateProductRequest{CategoryID: &categoryID})
	require.NoError(t, err)
	assert.Equal(t, models.ProductDraft, updated.Status)
	assert.Equal(t, categoryID, *updated.CategoryID)
}

func TestUpdateProduct_StockFollowsVariants(t *testing.T) {
	f := newCatalogFixture()
	product := importedProduct(f.supplier.ID)
	product.Variants = []models.ProductVariant{{ID: uuid.New(), Stock: 4}}
	f.products.On("GetByID", mock.Anything, product.ID).Return(product, nil)

	stock := 10
	_, err := f.svc.UpdateProduct(context.Background(), "admin", product.ID, &models.UpdateProductRequest{Stock: &stock})
	assert.ErrorIs(t, err, ErrInvalidInput)
	f.products.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestUpdateProductStatus(t *testing.T) {
	t.Run("activation needs category", func(t *testing.T) {
		f := newCatalogFixture()
		product := importedProduct(f.supplier.ID)
		f.products.On("GetByID", mock.Anything, product.ID).Return(product, nil)

		_, err := f.svc.UpdateStatus(context.Background(), "admin", product.ID, models.ProductActive)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("activates mapped product", func(t *testing.T) {
		f := newCatalogFixture()
		product := importedProduct(f.supplier.ID)
		categoryID := uuid.New()
		product.CategoryID = &categoryID
		product.Status = models.ProductDraft
		f.products.On("GetByID", mock.Anything, product.ID).Return(product, nil)
		f.products.On("UpdateStatus", mock.Anything, product.ID, models.ProductActive).Return(nil)

		updated, err := f.svc.UpdateStatus(context.Background(), "admin", product.ID, models.ProductActive)
		require.NoError(t, err)
		assert.Equal(t, models.ProductActive, updated.Status)
	})

	t.Run("hand-made products never wait for a mapping", func(t *testing.T) {
		f := newCatalogFixture()
		product := &models.Product{ID: uuid.New(), Status: models.ProductDraft}
		f.products.On("GetByID", mock.Anything, product.ID).Return(product, nil)

		_, err := f.svc.UpdateStatus(context.Background(), "admin", product.ID, models.ProductPendingMapping)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestExportProducts(t *testing.T) {
	f := newCatalogFixture()
	product := importedProduct(f.supplier.ID)
	f.products.On("List", mock.Anything, mock.MatchedBy(func(opts repository.ProductListOptions) bool {
		return opts.Limit == maxExportRows && opts.Offset == 0
	})).Return([]models.Product{*product}, int64(1), nil)

	file, err := f.svc.ExportProducts(context.Background(), "admin", repository.ProductListOptions{Limit: 20, Offset: 40})
	require.NoError(t, err)
	defer file.Close()

	rows, err := file.GetRows("Products")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Name", rows[0][1])
	assert.Equal(t, "Desk Lamp", rows[1][1])
	assert.Equal(t, "PID-1", rows[1][10])
}
