package services

import (
	"context"
	"errors"
	"testing"

	"dropship-service/internal/clients"
	"dropship-service/internal/events"
	"dropship-service/internal/models"
	"dropship-service/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type importFixture struct {
	svc         *ImportService
	products    *MockProductRepository
	mappings    *MockMappingRepository
	client      *MockSupplierClient
	publisher   *recordingPublisher
	supplier    *models.Supplier
	mappingSvc  *MappingService
	categoryRep *MockCategoryRepository
}

func newImportFixture() *importFixture {
	f := &importFixture{
		products:    new(MockProductRepository),
		mappings:    new(MockMappingRepository),
		client:      new(MockSupplierClient),
		publisher:   &recordingPublisher{},
		supplier:    testSupplier(),
		categoryRep: new(MockCategoryRepository),
	}
	suppliers := &stubSuppliers{supplier: f.supplier, client: f.client}
	f.mappingSvc = NewMappingService(f.mappings, f.categoryRep, suppliers, nil, testLogger())
	f.svc = NewImportService(f.products, f.mappingSvc, suppliers, NewPricer(50), f.publisher, nil, "USD", 2, testLogger())
	return f
}

func lampProduct() *clients.ExternalProduct {
	stock := 5
	return &clients.ExternalProduct{
		ID:           "PID-1",
		Name:         "Desk Lamp",
		SKU:          "CJLAMP",
		CategoryID:   "1234",
		CategoryName: "Desk Lamps",
		Images:       []string{"https://img/1.jpg"},
		SellPrice:    decimal.RequireFromString("10.00"),
		Variants: []clients.ExternalVariant{
			{ID: "VID-1", Name: "Black", SellPrice: decimal.RequireFromString("10.00"), Stock: &stock},
			{ID: "VID-2", Name: "White", SellPrice: decimal.RequireFromString("11.00")},
		},
	}
}

func TestImport_NewProductWithMapping(t *testing.T) {
	f := newImportFixture()
	ctx := context.Background()
	categoryID := uuid.New()

	f.client.On("GetProduct", ctx, "PID-1").Return(lampProduct(), nil)
	f.client.On("GetVariantStock", ctx, "VID-2").Return(&clients.StockLevel{VariantID: "VID-2", Total: 8}, nil)
	f.products.On("GetBySupplierProduct", ctx, f.supplier.ID, "PID-1").Return(nil, repository.ErrNotFound)
	f.mappings.On("GetMapping", ctx, f.supplier.ID, "1234").Return(&models.CategoryMapping{CategoryID: categoryID}, nil)
	f.products.On("Create", ctx, mock.MatchedBy(func(p *models.Product) bool {
		return p.Status == models.ProductDraft && p.CategoryID != nil && *p.CategoryID == categoryID &&
			p.Price.Equal(decimal.RequireFromString("15.00")) && *p.SupplierCategoryID == "1234"
	})).Return(nil)
	f.products.On("UpsertVariants", ctx, mock.MatchedBy(func(vs []models.ProductVariant) bool {
		return len(vs) == 2 && vs[0].Stock == 5 && vs[1].Stock == 8 && vs[1].Price.Equal(decimal.RequireFromString("16.50"))
	})).Return(nil)
	f.products.On("RecomputeStock", ctx, mock.Anything).Return(nil)

	result, err := f.svc.Import(ctx, "admin-1", f.supplier.ID, " PID-1 ")
	require.NoError(t, err)
	assert.Equal(t, ImportCreated, result.Outcome)
	assert.Equal(t, models.ProductDraft, result.Status)
	assert.Equal(t, []string{events.SubjectProductImported}, f.publisher.Subjects())
	f.products.AssertExpectations(t)
}

func TestImport_NewProductUnmapped(t *testing.T) {
	f := newImportFixture()
	ctx := context.Background()
	external := lampProduct()
	external.Variants = nil

	f.client.On("GetProduct", ctx, "PID-1").Return(external, nil)
	f.products.On("GetBySupplierProduct", ctx, f.supplier.ID, "PID-1").Return(nil, repository.ErrNotFound)
	f.mappings.On("GetMapping", ctx, f.supplier.ID, "1234").Return(nil, repository.ErrNotFound)
	f.mappings.On("TrackUnmapped", ctx, f.supplier.ID, "1234", "Desk Lamps").Return(nil)
	f.products.On("Create", ctx, mock.MatchedBy(func(p *models.Product) bool {
		return p.Status == models.ProductPendingMapping && p.CategoryID == nil
	})).Return(nil)

	result, err := f.svc.Import(ctx, "admin-1", f.supplier.ID, "PID-1")
	require.NoError(t, err)
	assert.Equal(t, models.ProductPendingMapping, result.Status)
	f.mappings.AssertExpectations(t)
	f.products.AssertNotCalled(t, "UpsertVariants", mock.Anything, mock.Anything)
}

func TestImport_ExistingKeepsCategoryAndStatus(t *testing.T) {
	f := newImportFixture()
	ctx := context.Background()
	categoryID := uuid.New()
	existing := &models.Product{ID: uuid.New(), Status: models.ProductActive, CategoryID: &categoryID, PriceOverridden: true}

	f.client.On("GetProduct", ctx, "PID-1").Return(lampProduct(), nil)
	f.client.On("GetVariantStock", ctx, "VID-2").Return(&clients.StockLevel{Total: 1}, nil)
	f.products.On("GetBySupplierProduct", ctx, f.supplier.ID, "PID-1").Return(existing, nil)
	f.products.On("UpdateFields", ctx, existing.ID, mock.MatchedBy(func(u map[string]interface{}) bool {
		_, hasPrice := u["price"]
		_, hasStatus := u["status"]
		_, hasCategory := u["category_id"]
		return !hasPrice && !hasStatus && !hasCategory && u["name"] == "Desk Lamp"
	})).Return(nil)
	f.products.On("UpsertVariants", ctx, mock.Anything).Return(nil)
	f.products.On("RecomputeStock", ctx, existing.ID).Return(nil)

	result, err := f.svc.Import(ctx, "admin-1", f.supplier.ID, "PID-1")
	require.NoError(t, err)
	assert.Equal(t, ImportUpdated, result.Outcome)
	assert.Equal(t, models.ProductActive, result.Status)
	assert.Equal(t, []string{events.SubjectProductUpdated}, f.publisher.Subjects())
	f.products.AssertNotCalled(t, "UpdateWhere", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.mappings.AssertNotCalled(t, "GetMapping", mock.Anything, mock.Anything, mock.Anything)
}

func TestImport_ExistingPendingPicksUpNewMapping(t *testing.T) {
	f := newImportFixture()
	ctx := context.Background()
	categoryID := uuid.New()
	existing := &models.Product{ID: uuid.New(), Status: models.ProductPendingMapping}
	external := lampProduct()
	external.Variants = nil

	f.client.On("GetProduct", ctx, "PID-1").Return(external, nil)
	f.products.On("GetBySupplierProduct", ctx, f.supplier.ID, "PID-1").Return(existing, nil)
	f.products.On("UpdateFields", ctx, existing.ID, mock.Anything).Return(nil)
	f.mappings.On("GetMapping", ctx, f.supplier.ID, "1234").Return(&models.CategoryMapping{CategoryID: categoryID}, nil)
	f.products.On("UpdateWhere", ctx, existing.ID, repository.ProductCondition{
		Status:         models.ProductPendingMapping,
		CategoryIsNull: true,
	}, map[string]interface{}{
		"category_id": categoryID,
		"status":      models.ProductDraft,
	}).Return(int64(1), nil)

	result, err := f.svc.Import(ctx, "admin-1", f.supplier.ID, "PID-1")
	require.NoError(t, err)
	assert.Equal(t, models.ProductDraft, result.Status)
	assert.Equal(t, categoryID, *result.Product.CategoryID)
}

func TestImport_StockFailureLeavesZero(t *testing.T) {
	f := newImportFixture()
	ctx := context.Background()
	external := lampProduct()
	external.Variants = external.Variants[1:]

	f.client.On("GetProduct", ctx, "PID-1").Return(external, nil)
	f.client.On("GetVariantStock", ctx, "VID-2").Return(nil, errors.New("timeout"))
	f.products.On("GetBySupplierProduct", ctx, f.supplier.ID, "PID-1").Return(nil, repository.ErrNotFound)
	f.mappings.On("GetMapping", ctx, f.supplier.ID, "1234").Return(&models.CategoryMapping{CategoryID: uuid.New()}, nil)
	f.products.On("Create", ctx, mock.Anything).Return(nil)
	f.products.On("UpsertVariants", ctx, mock.MatchedBy(func(vs []models.ProductVariant) bool {
		return len(vs) == 1 && vs[0].Stock == 0
	})).Return(nil)
	f.products.On("RecomputeStock", ctx, mock.Anything).Return(nil)

	_, err := f.svc.Import(ctx, "admin-1", f.supplier.ID, "PID-1")
	require.NoError(t, err)
	f.products.AssertExpectations(t)
}

func TestImport_EmptyPID(t *testing.T) {
	f := newImportFixture()
	_, err := f.svc.Import(context.Background(), "admin-1", f.supplier.ID, "  ")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestBulkImport_PerItemResults(t *testing.T) {
	f := newImportFixture()
	ctx := context.Background()
	external := lampProduct()
	external.Variants = nil

	f.client.On("GetProduct", ctx, "PID-1").Return(external, nil)
	f.client.On("GetProduct", ctx, "BAD").Return(nil, errors.New("product not found"))
	f.products.On("GetBySupplierProduct", ctx, f.supplier.ID, "PID-1").Return(nil, repository.ErrNotFound)
	f.mappings.On("GetMapping", ctx, f.supplier.ID, "1234").Return(&models.CategoryMapping{CategoryID: uuid.New()}, nil)
	f.products.On("Create", ctx, mock.Anything).Return(nil)

	results, err := f.svc.BulkImport(ctx, "admin-1", f.supplier.ID, &BulkImportRequest{
		ProductIDs: []string{"PID-1", "BAD", "PID-1", ""},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, ImportCreated, results[0].Outcome)
	assert.NotNil(t, results[0].ProductID)
	assert.Equal(t, ImportFailed, results[1].Outcome)
	assert.Equal(t, "BAD", results[1].SupplierProductID)
	assert.Contains(t, results[1].Error, "product not found")
	f.client.AssertNumberOfCalls(t, "GetProduct", 2)
}

func TestBulkImport_TooMany(t *testing.T) {
	f := newImportFixture()
	ids := make([]string, maxBulkImport+1)
	for i := range ids {
		ids[i] = uuid.NewString()
	}
	_, err := f.svc.BulkImport(context.Background(), "admin-1", f.supplier.ID, &BulkImportRequest{ProductIDs: ids})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSearch_SupplierNotConfigured(t *testing.T) {
	f := newImportFixture()
	svc := NewImportService(f.products, f.mappingSvc, &stubSuppliers{supplier: f.supplier, err: ErrSupplierNotConfigured},
		NewPricer(30), nil, nil, "USD", 1, testLogger())

	_, err := svc.Search(context.Background(), f.supplier.ID, &clients.ProductSearchOptions{Keyword: "lamp"})
	assert.ErrorIs(t, err, ErrSupplierNotConfigured)
}
