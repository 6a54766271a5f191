package services

import (
	"context"

	"dropship-service/internal/models"
	"dropship-service/internal/repository"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// AuditService records an audit trail for admin and supplier actions.
// A nil *AuditService is valid and records nothing.
type AuditService struct {
	repo   repository.AuditRepositoryInterface
	logger *logrus.Entry
}

// NewAuditService creates a new audit service
func NewAuditService(repo repository.AuditRepositoryInterface, logger *logrus.Logger) *AuditService {
	return &AuditService{repo: repo, logger: logger.WithField("component", "audit")}
}

// Record persists an audit entry. Failures are logged, never returned,
// so the trail cannot block the operation it describes.
func (s *AuditService) Record(ctx context.Context, log *models.AuditLog) {
	if s == nil || log == nil {
		return
	}
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	if err := s.repo.Create(ctx, log); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"action":   log.Action,
			"resource": log.ResourceType,
		}).Error("Failed to write audit log")
	}
}

// UserAction records an action performed by an authenticated admin
func (s *AuditService) UserAction(ctx context.Context, actorID string, action models.AuditAction, resourceType models.ResourceType, resourceID string, metadata models.JSONB) {
	if s == nil {
		return
	}
	builder := models.NewAuditLog(action, resourceType).WithResource(resourceID).WithMetadata(metadata)
	if actorID != "" {
		builder = builder.WithActor(models.ActorUser, actorID, nil)
	}
	s.Record(ctx, builder.Build())
}

// LogChange records a before/after diff
func (s *AuditService) LogChange(ctx context.Context, actorID string, action models.AuditAction, resourceType models.ResourceType, resourceID string, oldValues, newValues models.JSONB) {
	if s == nil {
		return
	}
	builder := models.NewAuditLog(action, resourceType).
		WithResource(resourceID).
		WithChanges(oldValues, newValues)
	if actorID != "" {
		builder = builder.WithActor(models.ActorUser, actorID, nil)
	}
	s.Record(ctx, builder.Build())
}

// LogDataExport records a spreadsheet export
func (s *AuditService) LogDataExport(ctx context.Context, actorID string, resourceType models.ResourceType, format string, recordCount int) {
	s.UserAction(ctx, actorID, models.ActionDataExport, resourceType, "", models.JSONB{
		"exportFormat": format,
		"recordCount":  recordCount,
	})
}

// LogSyncStart records a sync job start, attributing scheduled runs to the system
func (s *AuditService) LogSyncStart(ctx context.Context, actorID string, job *models.SupplierSyncJob) {
	if s == nil {
		return
	}
	builder := models.NewAuditLog(models.ActionSyncStart, models.ResourceSyncJob).
		WithResource(job.ID.String()).
		WithMetadata(models.JSONB{
			"syncType":    job.SyncType,
			"supplierId":  job.SupplierID.String(),
			"triggeredBy": job.TriggeredBy,
		})
	if actorID != "" && actorID != "system" {
		builder = builder.WithActor(models.ActorUser, actorID, nil)
	} else {
		builder = builder.WithActor(models.ActorSystem, "sync-worker", nil)
	}
	s.Record(ctx, builder.Build())
}

// List retrieves audit entries
func (s *AuditService) List(ctx context.Context, opts repository.AuditListOptions) ([]models.AuditLog, int64, error) {
	return s.repo.List(ctx, opts)
}
