package repository

import (
	"context"

	"dropship-service/internal/models"
	"gorm.io/gorm"
)

// AuditRepository handles database operations for audit logs
type AuditRepository struct {
	db *gorm.DB
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create stores an audit log entry
func (r *AuditRepository) Create(ctx context.Context, log *models.AuditLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

// List retrieves audit logs with filtering
func (r *AuditRepository) List(ctx context.Context, opts AuditListOptions) ([]models.AuditLog, int64, error) {
	var logs []models.AuditLog
	var total int64

	query := r.db.WithContext(ctx).Model(&models.AuditLog{})
	if opts.Action != "" {
		query = query.Where("action = ?", opts.Action)
	}
	if opts.ResourceType != "" {
		query = query.Where("resource_type = ?", opts.ResourceType)
	}
	if opts.ResourceID != "" {
		query = query.Where("resource_id = ?", opts.ResourceID)
	}
	if opts.ActorID != "" {
		query = query.Where("actor_id = ?", opts.ActorID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = paginate(query, opts.Limit, opts.Offset).Order("created_at DESC")
	if err := query.Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

// AuditListOptions contains options for listing audit logs
type AuditListOptions struct {
	Action       string
	ResourceType string
	ResourceID   string
	ActorID      string
	Limit        int
	Offset       int
}
