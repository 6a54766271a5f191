package repository

import (
	"context"
	"time"

	"dropship-service/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SyncRepository handles database operations for sync jobs
type SyncRepository struct {
	db *gorm.DB
}

// NewSyncRepository creates a new sync repository
func NewSyncRepository(db *gorm.DB) *SyncRepository {
	return &SyncRepository{db: db}
}

// CreateJob creates a new sync job. A second pending or running job of the
// same type for the supplier violates idx_sync_jobs_active and returns ErrDuplicate.
func (r *SyncRepository) CreateJob(ctx context.Context, job *models.SupplierSyncJob) error {
	return translate(r.db.WithContext(ctx).Create(job).Error)
}

// GetJobByID retrieves a sync job by ID
func (r *SyncRepository) GetJobByID(ctx context.Context, id uuid.UUID) (*models.SupplierSyncJob, error) {
	var job models.SupplierSyncJob
	if err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &job, nil
}

// MarkJobStarted moves a pending job to running
func (r *SyncRepository) MarkJobStarted(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&models.SupplierSyncJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     models.SyncStatusRunning,
			"started_at": &now,
			"updated_at": now,
		}).Error
}

// UpdateJobStatus updates the job status
func (r *SyncRepository) UpdateJobStatus(ctx context.Context, id uuid.UUID, status models.SyncStatus, errorMessage string) error {
	updates := map[string]interface{}{
		"status":        status,
		"error_message": errorMessage,
		"updated_at":    time.Now(),
	}
	if status.IsTerminal() {
		now := time.Now()
		updates["completed_at"] = &now
	}
	return r.db.WithContext(ctx).
		Model(&models.SupplierSyncJob{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// UpdateJobProgress updates the job progress
func (r *SyncRepository) UpdateJobProgress(ctx context.Context, id uuid.UUID, progress *models.SyncProgress) error {
	return r.db.WithContext(ctx).
		Model(&models.SupplierSyncJob{}).
		Where("id = ?", id).
		Update("progress", progress.JSONB()).Error
}

// ListJobs retrieves sync jobs with pagination and filtering
func (r *SyncRepository) ListJobs(ctx context.Context, opts SyncListOptions) ([]models.SupplierSyncJob, int64, error) {
	var jobs []models.SupplierSyncJob
	var total int64

	query := r.db.WithContext(ctx).Model(&models.SupplierSyncJob{})

	if opts.SupplierID != uuid.Nil {
		query = query.Where("supplier_id = ?", opts.SupplierID)
	}
	if opts.Status != "" {
		query = query.Where("status = ?", opts.Status)
	}
	if opts.SyncType != "" {
		query = query.Where("sync_type = ?", opts.SyncType)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = paginate(query, opts.Limit, opts.Offset).Order("created_at DESC")
	if err := query.Find(&jobs).Error; err != nil {
		return nil, 0, err
	}

	return jobs, total, nil
}

// GetActiveJob returns the pending or running job of a type for a supplier
func (r *SyncRepository) GetActiveJob(ctx context.Context, supplierID uuid.UUID, syncType models.SyncType) (*models.SupplierSyncJob, error) {
	var job models.SupplierSyncJob
	err := r.db.WithContext(ctx).
		Where("supplier_id = ? AND sync_type = ? AND status IN ?", supplierID, syncType, []models.SyncStatus{
			models.SyncStatusPending,
			models.SyncStatusRunning,
		}).
		Order("created_at DESC").
		First(&job).Error
	if err != nil {
		return nil, translate(err)
	}
	return &job, nil
}

// FailStaleJobs fails jobs left pending or running by a previous process
func (r *SyncRepository) FailStaleJobs(ctx context.Context) (int64, error) {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&models.SupplierSyncJob{}).
		Where("status IN ?", []models.SyncStatus{models.SyncStatusPending, models.SyncStatusRunning}).
		Updates(map[string]interface{}{
			"status":        models.SyncStatusFailed,
			"error_message": "interrupted by service restart",
			"completed_at":  &now,
			"updated_at":    now,
		})
	return result.RowsAffected, result.Error
}

// CreateLog creates a sync log entry
func (r *SyncRepository) CreateLog(ctx context.Context, log *models.SupplierSyncLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

// GetJobLogs retrieves logs for a sync job
func (r *SyncRepository) GetJobLogs(ctx context.Context, jobID uuid.UUID, opts LogListOptions) ([]models.SupplierSyncLog, error) {
	var logs []models.SupplierSyncLog
	query := r.db.WithContext(ctx).Where("sync_job_id = ?", jobID)

	if opts.Level != "" {
		query = query.Where("level = ?", opts.Level)
	}
	query = paginate(query, opts.Limit, opts.Offset)

	err := query.Order("created_at DESC").Find(&logs).Error
	return logs, err
}

// GetSyncStats retrieves sync statistics, optionally for a single supplier
func (r *SyncRepository) GetSyncStats(ctx context.Context, supplierID *uuid.UUID) (*SyncStats, error) {
	stats := &SyncStats{}

	scoped := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&models.SupplierSyncJob{})
		if supplierID != nil {
			q = q.Where("supplier_id = ?", *supplierID)
		}
		return q
	}

	if err := scoped().Count(&stats.TotalJobs).Error; err != nil {
		return nil, err
	}

	// Jobs by status
	var statusCounts []struct {
		Status string
		Count  int64
	}
	if err := scoped().
		Select("status, count(*) as count").
		Group("status").
		Scan(&statusCounts).Error; err != nil {
		return nil, err
	}

	for _, sc := range statusCounts {
		switch models.SyncStatus(sc.Status) {
		case models.SyncStatusCompleted:
			stats.CompletedJobs = sc.Count
		case models.SyncStatusFailed:
			stats.FailedJobs = sc.Count
		case models.SyncStatusRunning:
			stats.RunningJobs = sc.Count
		}
	}

	// Last sync time
	var lastJob models.SupplierSyncJob
	if err := scoped().
		Where("status = ?", models.SyncStatusCompleted).
		Order("completed_at DESC").
		First(&lastJob).Error; err == nil && lastJob.CompletedAt != nil {
		stats.LastSyncAt = lastJob.CompletedAt
	}

	return stats, nil
}

// SyncListOptions contains options for listing sync jobs
type SyncListOptions struct {
	SupplierID uuid.UUID
	Status     string
	SyncType   string
	Limit      int
	Offset     int
}

// LogListOptions contains options for listing logs
type LogListOptions struct {
	Level  string
	Limit  int
	Offset int
}

// SyncStats contains sync statistics
type SyncStats struct {
	TotalJobs     int64      `json:"totalJobs"`
	CompletedJobs int64      `json:"completedJobs"`
	FailedJobs    int64      `json:"failedJobs"`
	RunningJobs   int64      `json:"runningJobs"`
	LastSyncAt    *time.Time `json:"lastSyncAt,omitempty"`
}
