package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"dropship-service/internal/clients"
	"dropship-service/internal/config"
	"dropship-service/internal/models"
	"dropship-service/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type syncFixture struct {
	svc      *SyncService
	syncRepo *MockSyncRepository
	products *MockProductRepository
	mappings *MockMappingRepository
	client   *MockSupplierClient
	supplier *models.Supplier
}

func newSyncFixture() *syncFixture {
	f := &syncFixture{
		syncRepo: new(MockSyncRepository),
		products: new(MockProductRepository),
		mappings: new(MockMappingRepository),
		client:   new(MockSupplierClient),
		supplier: testSupplier(),
	}
	suppliers := &stubSuppliers{supplier: f.supplier, client: f.client}
	mappingSvc := NewMappingService(f.mappings, new(MockCategoryRepository), suppliers, nil, testLogger())
	importer := NewImportService(f.products, mappingSvc, suppliers, NewPricer(30), nil, nil, "USD", 2, testLogger())
	cfg := &config.Config{SyncBatchSize: 2, SyncTimeout: time.Minute}
	f.svc = NewSyncService(f.syncRepo, f.products, suppliers, mappingSvc, importer, nil, nil, cfg, testLogger())

	f.syncRepo.On("CreateLog", mock.Anything, mock.Anything).Return(nil)
	f.syncRepo.On("UpdateJobProgress", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	return f
}

func (f *syncFixture) expectStart(syncType models.SyncType) {
	f.syncRepo.On("GetActiveJob", mock.Anything, f.supplier.ID, syncType).Return(nil, repository.ErrNotFound)
	f.syncRepo.On("CreateJob", mock.Anything, mock.AnythingOfType("*models.SupplierSyncJob")).Return(nil)
	f.syncRepo.On("MarkJobStarted", mock.Anything, mock.Anything).Return(nil)
}

func TestStartJob_InvalidType(t *testing.T) {
	f := newSyncFixture()
	_, err := f.svc.StartJob(context.Background(), "admin-1", f.supplier.ID, models.SyncType("ORDERS"), models.TriggerManual)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestStartJob_AlreadyRunning(t *testing.T) {
	f := newSyncFixture()
	f.syncRepo.On("GetActiveJob", mock.Anything, f.supplier.ID, models.SyncTypeProducts).
		Return(&models.SupplierSyncJob{ID: uuid.New(), Status: models.SyncStatusRunning}, nil)

	_, err := f.svc.StartJob(context.Background(), "admin-1", f.supplier.ID, models.SyncTypeProducts, models.TriggerManual)
	assert.ErrorIs(t, err, ErrJobAlreadyRunning)
	f.syncRepo.AssertNotCalled(t, "CreateJob", mock.Anything, mock.Anything)
}

func TestStartJob_SupplierNotConfigured(t *testing.T) {
	f := newSyncFixture()
	f.svc.suppliers = &stubSuppliers{supplier: f.supplier, err: ErrSupplierNotConfigured}

	_, err := f.svc.StartJob(context.Background(), "admin-1", f.supplier.ID, models.SyncTypeStock, models.TriggerManual)
	assert.ErrorIs(t, err, ErrSupplierNotConfigured)
}

func TestSyncJob_Categories(t *testing.T) {
	f := newSyncFixture()
	f.expectStart(models.SyncTypeCategories)
	f.client.On("GetCategories", mock.Anything).Return([]clients.ExternalCategory{
		{ID: "1", Name: "Home", Level: 1, Path: "Home"},
		{ID: "2", Name: "Lamps", ParentID: "1", Level: 2, Path: "Home > Lamps"},
	}, nil)
	f.mappings.On("UpsertSupplierCategories", mock.Anything, mock.MatchedBy(func(nodes []models.SupplierCategory) bool {
		return len(nodes) == 2
	})).Return(nil)
	f.syncRepo.On("UpdateJobStatus", mock.Anything, mock.Anything, models.SyncStatusCompleted, "").Return(nil)

	job, err := f.svc.StartJob(context.Background(), "admin-1", f.supplier.ID, models.SyncTypeCategories, "")
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusPending, job.Status)
	assert.Equal(t, models.TriggerManual, job.TriggeredBy)

	f.svc.Wait()
	f.mappings.AssertExpectations(t)
	f.syncRepo.AssertCalled(t, "UpdateJobStatus", mock.Anything, job.ID, models.SyncStatusCompleted, "")
}

func TestSyncJob_StockUpdatesChangedVariants(t *testing.T) {
	f := newSyncFixture()
	f.expectStart(models.SyncTypeStock)
	productID := uuid.New()
	vid1, vid2, vid3 := "VID-1", "VID-2", "VID-3"
	variants := []models.ProductVariant{
		{ID: uuid.New(), ProductID: productID, SupplierVariantID: &vid1, Stock: 4},
		{ID: uuid.New(), ProductID: productID, SupplierVariantID: &vid2, Stock: 0},
	}
	failing := []models.ProductVariant{
		{ID: uuid.New(), ProductID: uuid.New(), SupplierVariantID: &vid3, Stock: 7},
	}

	f.products.On("ListVariantsBySupplier", mock.Anything, f.supplier.ID, 2, 0).Return(variants, nil)
	f.products.On("ListVariantsBySupplier", mock.Anything, f.supplier.ID, 2, 2).Return(failing, nil)
	f.client.On("GetVariantStock", mock.Anything, "VID-1").Return(&clients.StockLevel{Total: 4}, nil)
	f.client.On("GetVariantStock", mock.Anything, "VID-2").Return(&clients.StockLevel{Total: 12}, nil)
	f.client.On("GetVariantStock", mock.Anything, "VID-3").Return(nil, errors.New("rate limited"))
	f.products.On("UpdateVariant", mock.Anything, variants[1].ID, map[string]interface{}{"stock": 12}).Return(nil)
	f.products.On("RecomputeStock", mock.Anything, productID).Return(nil)
	f.syncRepo.On("UpdateJobStatus", mock.Anything, mock.Anything, models.SyncStatusCompleted, "").Return(nil)

	_, err := f.svc.StartJob(context.Background(), "system", f.supplier.ID, models.SyncTypeStock, models.TriggerScheduled)
	require.NoError(t, err)
	f.svc.Wait()

	f.products.AssertExpectations(t)
	f.products.AssertNumberOfCalls(t, "UpdateVariant", 1)
	f.products.AssertNumberOfCalls(t, "RecomputeStock", 1)
	f.syncRepo.AssertCalled(t, "UpdateJobProgress", mock.Anything, mock.Anything, mock.MatchedBy(func(p *models.SyncProgress) bool {
		return p.TotalItems == 3 && p.SuccessfulItems == 2 && p.FailedItems == 1
	}))
}

func TestSyncJob_ProductsRefreshesImported(t *testing.T) {
	f := newSyncFixture()
	f.expectStart(models.SyncTypeProducts)
	categoryID := uuid.New()
	pid := "PID-1"
	product := models.Product{
		ID:                uuid.New(),
		SupplierID:        &f.supplier.ID,
		SupplierProductID: &pid,
		Status:            models.ProductActive,
		CategoryID:        &categoryID,
	}
	external := lampProduct()
	external.Variants = nil

	f.products.On("ListImported", mock.Anything, f.supplier.ID, 2, 0).Return([]models.Product{product}, nil)
	f.client.On("GetProduct", mock.Anything, "PID-1").Return(external, nil)
	f.products.On("UpdateFields", mock.Anything, product.ID, mock.Anything).Return(nil)
	f.syncRepo.On("UpdateJobStatus", mock.Anything, mock.Anything, models.SyncStatusCompleted, "").Return(nil)

	_, err := f.svc.StartJob(context.Background(), "admin-1", f.supplier.ID, models.SyncTypeProducts, models.TriggerManual)
	require.NoError(t, err)
	f.svc.Wait()

	f.products.AssertExpectations(t)
	f.syncRepo.AssertCalled(t, "UpdateJobProgress", mock.Anything, mock.Anything, mock.MatchedBy(func(p *models.SyncProgress) bool {
		return p.TotalItems == 1 && p.SuccessfulItems == 1 && p.Percentage == 100
	}))
}

func TestSyncJob_FailureMarksFailed(t *testing.T) {
	f := newSyncFixture()
	f.expectStart(models.SyncTypeCategories)
	f.client.On("GetCategories", mock.Anything).Return(nil, errors.New("unauthorized"))
	f.syncRepo.On("UpdateJobStatus", mock.Anything, mock.Anything, models.SyncStatusFailed, mock.Anything).Return(nil)

	job, err := f.svc.StartJob(context.Background(), "admin-1", f.supplier.ID, models.SyncTypeCategories, models.TriggerManual)
	require.NoError(t, err)
	f.svc.Wait()

	f.syncRepo.AssertCalled(t, "UpdateJobStatus", mock.Anything, job.ID, models.SyncStatusFailed, mock.MatchedBy(func(msg string) bool {
		return strings.Contains(msg, "unauthorized")
	}))
}

func TestCancelJob_NotRunning(t *testing.T) {
	f := newSyncFixture()
	err := f.svc.CancelJob(context.Background(), "admin-1", uuid.New())
	assert.ErrorIs(t, err, ErrJobNotRunning)
}

func TestCancelJob_Running(t *testing.T) {
	f := newSyncFixture()
	id := uuid.New()
	cancelled := false
	f.svc.activeJobs[id] = func() { cancelled = true }
	f.syncRepo.On("UpdateJobStatus", mock.Anything, id, models.SyncStatusCancelled, "Cancelled by user").Return(nil)

	err := f.svc.CancelJob(context.Background(), "admin-1", id)
	require.NoError(t, err)
	assert.True(t, cancelled)
}

func TestRecoverStaleJobs(t *testing.T) {
	f := newSyncFixture()
	f.syncRepo.On("FailStaleJobs", mock.Anything).Return(int64(2), nil)

	f.svc.RecoverStaleJobs(context.Background())
	f.syncRepo.AssertCalled(t, "FailStaleJobs", mock.Anything)
}

// slowInsertSyncRepo only reports jobs as active once their insert has
// finished, leaving a window between the check and the insert.
type slowInsertSyncRepo struct {
	*MockSyncRepository
	mu   sync.Mutex
	jobs []*models.SupplierSyncJob
}

func (r *slowInsertSyncRepo) GetActiveJob(ctx context.Context, supplierID uuid.UUID, syncType models.SyncType) (*models.SupplierSyncJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, job := range r.jobs {
		if job.SupplierID == supplierID && job.SyncType == syncType {
			return job, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *slowInsertSyncRepo) CreateJob(ctx context.Context, job *models.SupplierSyncJob) error {
	time.Sleep(20 * time.Millisecond)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, job)
	return nil
}

func TestStartJob_ConcurrentStartsSameType(t *testing.T) {
	f := newSyncFixture()
	repo := &slowInsertSyncRepo{MockSyncRepository: f.syncRepo}
	f.svc.syncRepo = repo
	f.syncRepo.On("MarkJobStarted", mock.Anything, mock.Anything).Return(nil)
	f.syncRepo.On("UpdateJobStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.products.On("ListVariantsBySupplier", mock.Anything, f.supplier.ID, mock.Anything, mock.Anything).
		Return([]models.ProductVariant{}, nil)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = f.svc.StartJob(context.Background(), "admin-1", f.supplier.ID, models.SyncTypeStock, models.TriggerManual)
		}(i)
	}
	wg.Wait()
	f.svc.Wait()

	started := 0
	for _, err := range results {
		if err == nil {
			started++
		} else {
			assert.ErrorIs(t, err, ErrJobAlreadyRunning)
		}
	}
	assert.Equal(t, 1, started)
	assert.Len(t, repo.jobs, 1)
}

func TestStartJob_UniqueViolationMeansRunning(t *testing.T) {
	f := newSyncFixture()
	f.syncRepo.On("GetActiveJob", mock.Anything, f.supplier.ID, models.SyncTypeProducts).Return(nil, repository.ErrNotFound)
	f.syncRepo.On("CreateJob", mock.Anything, mock.Anything).Return(repository.ErrDuplicate)

	_, err := f.svc.StartJob(context.Background(), "admin-1", f.supplier.ID, models.SyncTypeProducts, models.TriggerManual)
	assert.ErrorIs(t, err, ErrJobAlreadyRunning)
}

func TestStartJob_AfterShutdown(t *testing.T) {
	f := newSyncFixture()
	f.svc.Shutdown()

	_, err := f.svc.StartJob(context.Background(), "system", f.supplier.ID, models.SyncTypeStock, models.TriggerScheduled)
	assert.ErrorIs(t, err, ErrShuttingDown)
	f.syncRepo.AssertNotCalled(t, "GetActiveJob", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunStockSchedule_StopsOnCancel(t *testing.T) {
	f := newSyncFixture()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.svc.RunStockSchedule(ctx, time.Hour)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stock schedule did not stop after cancel")
	}
}
