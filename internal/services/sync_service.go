package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"dropship-service/internal/clients"
	"dropship-service/internal/config"
	"dropship-service/internal/models"
	"dropship-service/internal/repository"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// SyncService runs background synchronization jobs against suppliers
type SyncService struct {
	syncRepo  repository.SyncRepositoryInterface
	products  repository.ProductRepositoryInterface
	suppliers SupplierProvider
	mappings  *MappingService
	importer  *ImportService
	limiter   *JobLimiter
	audit     *AuditService
	config    *config.Config
	logger    *logrus.Entry

	activeJobs map[uuid.UUID]context.CancelFunc
	mu         sync.RWMutex
	wg         sync.WaitGroup

	// startMu serializes the active-job check with the insert and guards closing
	startMu sync.Mutex
	closing bool
}

// NewSyncService creates a new sync service
func NewSyncService(
	syncRepo repository.SyncRepositoryInterface,
	products repository.ProductRepositoryInterface,
	suppliers SupplierProvider,
	mappings *MappingService,
	importer *ImportService,
	limiter *JobLimiter,
	audit *AuditService,
	cfg *config.Config,
	logger *logrus.Logger,
) *SyncService {
	if limiter == nil {
		limiter = NewJobLimiter(DefaultJobLimiterConfig())
	}
	return &SyncService{
		syncRepo:   syncRepo,
		products:   products,
		suppliers:  suppliers,
		mappings:   mappings,
		importer:   importer,
		limiter:    limiter,
		audit:      audit,
		config:     cfg,
		logger:     logger.WithField("component", "sync"),
		activeJobs: make(map[uuid.UUID]context.CancelFunc),
	}
}

// StartJob creates a job and runs it in the background. Only one job of a
// type may be pending or running per supplier.
func (s *SyncService) StartJob(ctx context.Context, actorID string, supplierID uuid.UUID, syncType models.SyncType, trigger models.TriggerType) (*models.SupplierSyncJob, error) {
	if !syncType.Valid() {
		return nil, invalid("unsupported sync type: %s", syncType)
	}

	client, _, err := s.suppliers.Client(ctx, supplierID)
	if err != nil {
		return nil, err
	}

	s.startMu.Lock()
	defer s.startMu.Unlock()
	if s.closing {
		return nil, ErrShuttingDown
	}

	active, err := s.syncRepo.GetActiveJob(ctx, supplierID, syncType)
	if err == nil && active != nil {
		return nil, fmt.Errorf("%w (job %s)", ErrJobAlreadyRunning, active.ID)
	}
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	if !s.limiter.CanAccept(supplierID.String()) {
		return nil, ErrTooManyJobs
	}

	if trigger == "" {
		trigger = models.TriggerManual
	}
	job := &models.SupplierSyncJob{
		ID:          uuid.New(),
		SupplierID:  supplierID,
		SyncType:    syncType,
		Status:      models.SyncStatusPending,
		TriggeredBy: trigger,
		CreatedBy:   actorID,
	}
	job.SetProgress(&models.SyncProgress{})

	if err := s.syncRepo.CreateJob(ctx, job); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrJobAlreadyRunning
		}
		return nil, fmt.Errorf("failed to create job: %w", err)
	}
	s.audit.LogSyncStart(ctx, actorID, job)

	timeout := 30 * time.Minute
	if s.config != nil && s.config.SyncTimeout > 0 {
		timeout = s.config.SyncTimeout
	}
	jobCtx, cancel := context.WithTimeout(context.Background(), timeout)
	s.mu.Lock()
	s.activeJobs[job.ID] = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go s.runSync(jobCtx, job, client)

	return job, nil
}

// GetJob retrieves a sync job by ID
func (s *SyncService) GetJob(ctx context.Context, id uuid.UUID) (*models.SupplierSyncJob, error) {
	return s.syncRepo.GetJobByID(ctx, id)
}

// ListJobs lists sync jobs
func (s *SyncService) ListJobs(ctx context.Context, opts repository.SyncListOptions) ([]models.SupplierSyncJob, int64, error) {
	return s.syncRepo.ListJobs(ctx, opts)
}

// CancelJob cancels a running sync job
func (s *SyncService) CancelJob(ctx context.Context, actorID string, id uuid.UUID) error {
	s.mu.Lock()
	cancel, exists := s.activeJobs[id]
	s.mu.Unlock()

	if !exists {
		return ErrJobNotRunning
	}

	cancel()
	s.audit.UserAction(ctx, actorID, models.ActionSyncCancel, models.ResourceSyncJob, id.String(), nil)
	return s.syncRepo.UpdateJobStatus(ctx, id, models.SyncStatusCancelled, "Cancelled by user")
}

// GetJobLogs retrieves logs for a sync job
func (s *SyncService) GetJobLogs(ctx context.Context, jobID uuid.UUID, opts repository.LogListOptions) ([]models.SupplierSyncLog, error) {
	if opts.Limit <= 0 {
		opts.Limit = 100
	}
	return s.syncRepo.GetJobLogs(ctx, jobID, opts)
}

// GetStats retrieves sync statistics
func (s *SyncService) GetStats(ctx context.Context, supplierID *uuid.UUID) (*repository.SyncStats, error) {
	return s.syncRepo.GetSyncStats(ctx, supplierID)
}

// LimiterStats reports job concurrency usage
func (s *SyncService) LimiterStats() map[string]interface{} {
	return s.limiter.Stats()
}

// RecoverStaleJobs fails jobs a previous process left pending or running
func (s *SyncService) RecoverStaleJobs(ctx context.Context) {
	n, err := s.syncRepo.FailStaleJobs(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to recover stale sync jobs")
		return
	}
	if n > 0 {
		s.logger.WithField("count", n).Warn("Marked interrupted sync jobs as failed")
	}
}

// RunStockSchedule starts a STOCK job for the default supplier every
// interval until ctx is done
func (s *SyncService) RunStockSchedule(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			supplier, err := s.suppliers.DefaultSupplier(ctx)
			if err != nil {
				s.logger.WithError(err).Debug("No default supplier for scheduled stock sync")
				continue
			}
			_, err = s.StartJob(ctx, "system", supplier.ID, models.SyncTypeStock, models.TriggerScheduled)
			if err != nil && !errors.Is(err, ErrJobAlreadyRunning) {
				s.logger.WithError(err).Warn("Scheduled stock sync not started")
			}
		}
	}
}

// Shutdown stops accepting jobs, cancels running ones and waits for them
// to stop. Later StartJob calls return ErrShuttingDown.
func (s *SyncService) Shutdown() {
	s.startMu.Lock()
	s.closing = true
	s.startMu.Unlock()

	s.mu.Lock()
	for _, cancel := range s.activeJobs {
		cancel()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// Wait blocks until every started job has finished
func (s *SyncService) Wait() {
	s.wg.Wait()
}

// runSync executes the sync operation
func (s *SyncService) runSync(ctx context.Context, job *models.SupplierSyncJob, client clients.SupplierClient) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		if cancel, ok := s.activeJobs[job.ID]; ok {
			cancel()
			delete(s.activeJobs, job.ID)
		}
		s.mu.Unlock()
	}()

	release, err := s.limiter.Acquire(ctx, job.SupplierID.String())
	if err != nil {
		s.failJob(job.ID, err.Error())
		return
	}
	defer release()

	if err := s.syncRepo.MarkJobStarted(ctx, job.ID); err != nil {
		s.failJob(job.ID, fmt.Sprintf("Failed to start job: %v", err))
		return
	}
	s.logEvent(ctx, job.ID, models.LogLevelInfo, "Sync started", models.JSONB{"syncType": job.SyncType})

	var syncErr error
	switch job.SyncType {
	case models.SyncTypeCategories:
		syncErr = s.syncCategories(ctx, job)
	case models.SyncTypeProducts:
		syncErr = s.syncProducts(ctx, job, client)
	case models.SyncTypeStock:
		syncErr = s.syncStock(ctx, job, client)
	default:
		syncErr = fmt.Errorf("unsupported sync type: %s", job.SyncType)
	}

	if syncErr != nil {
		if ctx.Err() != nil {
			_ = s.syncRepo.UpdateJobStatus(context.Background(), job.ID, models.SyncStatusCancelled, "Cancelled")
			s.logEvent(context.Background(), job.ID, models.LogLevelWarn, "Sync cancelled", nil)
		} else {
			s.failJob(job.ID, syncErr.Error())
		}
		return
	}

	_ = s.syncRepo.UpdateJobStatus(context.Background(), job.ID, models.SyncStatusCompleted, "")
	s.logEvent(context.Background(), job.ID, models.LogLevelInfo, "Sync completed successfully", nil)

	if err := s.suppliers.RecordSync(context.Background(), job.SupplierID, time.Now()); err != nil {
		s.logger.WithError(err).WithField("supplierId", job.SupplierID).Warn("Failed to record supplier sync time")
	}
}

// syncCategories refreshes the stored supplier taxonomy
func (s *SyncService) syncCategories(ctx context.Context, job *models.SupplierSyncJob) error {
	count, err := s.mappings.SyncCategories(ctx, job.SupplierID)
	if err != nil {
		return err
	}
	progress := &models.SyncProgress{
		TotalItems:      count,
		ProcessedItems:  count,
		SuccessfulItems: count,
		Percentage:      100,
	}
	_ = s.syncRepo.UpdateJobProgress(ctx, job.ID, progress)
	s.logEvent(ctx, job.ID, models.LogLevelInfo, "Category sync completed", models.JSONB{"total": count})
	return nil
}

// syncProducts re-imports every product already imported from the supplier
func (s *SyncService) syncProducts(ctx context.Context, job *models.SupplierSyncJob, client clients.SupplierClient) error {
	supplier, err := s.suppliers.GetSupplier(ctx, job.SupplierID)
	if err != nil {
		return err
	}

	batchSize := s.batchSize()
	progress := &models.SyncProgress{}
	offset := 0

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		products, err := s.products.ListImported(ctx, job.SupplierID, batchSize, offset)
		if err != nil {
			return fmt.Errorf("failed to list imported products: %w", err)
		}
		progress.TotalItems += len(products)

		for i := range products {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			product := &products[i]
			if _, err := s.importer.Refresh(ctx, client, supplier, product); err != nil {
				progress.FailedItems++
				s.logEvent(ctx, job.ID, models.LogLevelError, "Failed to refresh product", models.JSONB{
					"productId":         product.ID.String(),
					"supplierProductId": *product.SupplierProductID,
					"error":             err.Error(),
				})
			} else {
				progress.SuccessfulItems++
			}
			progress.ProcessedItems++
			progress.Percentage = float64(progress.ProcessedItems) / float64(progress.TotalItems) * 100

			if progress.ProcessedItems%10 == 0 {
				_ = s.syncRepo.UpdateJobProgress(ctx, job.ID, progress)
			}
		}

		if len(products) < batchSize {
			break
		}
		offset += batchSize
	}

	_ = s.syncRepo.UpdateJobProgress(ctx, job.ID, progress)
	s.logEvent(ctx, job.ID, models.LogLevelInfo, "Product sync completed", models.JSONB{
		"total":      progress.TotalItems,
		"successful": progress.SuccessfulItems,
		"failed":     progress.FailedItems,
	})
	return nil
}

// syncStock refreshes the stock of every supplier-linked variant
func (s *SyncService) syncStock(ctx context.Context, job *models.SupplierSyncJob, client clients.SupplierClient) error {
	batchSize := s.batchSize()
	progress := &models.SyncProgress{}
	offset := 0

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		variants, err := s.products.ListVariantsBySupplier(ctx, job.SupplierID, batchSize, offset)
		if err != nil {
			return fmt.Errorf("failed to list variants: %w", err)
		}
		progress.TotalItems += len(variants)

		var mu sync.Mutex
		touched := make(map[uuid.UUID]bool)
		var g errgroup.Group
		g.SetLimit(s.limiter.Workers())

		for i := range variants {
			variant := variants[i]
			g.Go(func() error {
				err := s.refreshVariantStock(ctx, client, &variant)

				mu.Lock()
				defer mu.Unlock()
				progress.ProcessedItems++
				if err != nil {
					progress.FailedItems++
					s.logEvent(ctx, job.ID, models.LogLevelWarn, "Failed to refresh variant stock", models.JSONB{
						"variantId":         variant.ID.String(),
						"supplierVariantId": *variant.SupplierVariantID,
						"error":             err.Error(),
					})
					return nil
				}
				progress.SuccessfulItems++
				touched[variant.ProductID] = true
				return nil
			})
		}
		_ = g.Wait()

		for productID := range touched {
			if err := s.products.RecomputeStock(ctx, productID); err != nil {
				s.logger.WithError(err).WithField("productId", productID).Warn("Failed to recompute product stock")
			}
		}

		if progress.TotalItems > 0 {
			progress.Percentage = float64(progress.ProcessedItems) / float64(progress.TotalItems) * 100
		}
		_ = s.syncRepo.UpdateJobProgress(ctx, job.ID, progress)

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if len(variants) < batchSize {
			break
		}
		offset += batchSize
	}

	s.logEvent(ctx, job.ID, models.LogLevelInfo, "Stock sync completed", models.JSONB{
		"total":      progress.TotalItems,
		"successful": progress.SuccessfulItems,
		"failed":     progress.FailedItems,
	})
	return nil
}

func (s *SyncService) refreshVariantStock(ctx context.Context, client clients.SupplierClient, variant *models.ProductVariant) error {
	if variant.SupplierVariantID == nil {
		return nil
	}
	level, err := client.GetVariantStock(ctx, *variant.SupplierVariantID)
	if err != nil {
		return err
	}
	if level.Total == variant.Stock {
		return nil
	}
	return s.products.UpdateVariant(ctx, variant.ID, map[string]interface{}{"stock": level.Total})
}

func (s *SyncService) batchSize() int {
	if s.config != nil && s.config.SyncBatchSize > 0 {
		return s.config.SyncBatchSize
	}
	return 50
}

// failJob marks a job as failed
func (s *SyncService) failJob(jobID uuid.UUID, message string) {
	_ = s.syncRepo.UpdateJobStatus(context.Background(), jobID, models.SyncStatusFailed, message)
	s.logEvent(context.Background(), jobID, models.LogLevelError, message, nil)
	s.logger.WithField("jobId", jobID).Error(message)
}

// logEvent creates a sync log entry
func (s *SyncService) logEvent(ctx context.Context, jobID uuid.UUID, level models.LogLevel, message string, data models.JSONB) {
	log := &models.SupplierSyncLog{
		ID:        uuid.New(),
		SyncJobID: jobID,
		Level:     level,
		Message:   message,
		Data:      data,
	}
	if err := s.syncRepo.CreateLog(ctx, log); err != nil {
		s.logger.WithError(err).WithField("jobId", jobID).Debug("Failed to persist sync log")
	}
}
