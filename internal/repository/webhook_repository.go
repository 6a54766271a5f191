package repository

import (
	"context"

	"dropship-service/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MaxWebhookRetries bounds how often a failed event is replayed
const MaxWebhookRetries = 3

// WebhookRepository handles database operations for webhook events
type WebhookRepository struct {
	db *gorm.DB
}

// NewWebhookRepository creates a new webhook repository
func NewWebhookRepository(db *gorm.DB) *WebhookRepository {
	return &WebhookRepository{db: db}
}

// Create creates a new webhook event; a repeated idempotency key yields ErrDuplicate
func (r *WebhookRepository) Create(ctx context.Context, event *models.SupplierWebhookEvent) error {
	return translate(r.db.WithContext(ctx).Create(event).Error)
}

// GetByID retrieves a webhook event by ID
func (r *WebhookRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.SupplierWebhookEvent, error) {
	var event models.SupplierWebhookEvent
	if err := r.db.WithContext(ctx).First(&event, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &event, nil
}

// GetByIdempotencyKey retrieves a webhook event by its idempotency key
func (r *WebhookRepository) GetByIdempotencyKey(ctx context.Context, key string) (*models.SupplierWebhookEvent, error) {
	var event models.SupplierWebhookEvent
	if err := r.db.WithContext(ctx).Where("idempotency_key = ?", key).First(&event).Error; err != nil {
		return nil, translate(err)
	}
	return &event, nil
}

// MarkProcessed records the outcome of processing an event. A failed event
// stays unprocessed so the replay worker picks it up again.
func (r *WebhookRepository) MarkProcessed(ctx context.Context, id uuid.UUID, err error) error {
	updates := map[string]interface{}{
		"processed":        true,
		"processed_at":     gorm.Expr("CURRENT_TIMESTAMP"),
		"processing_error": "",
	}
	if err != nil {
		updates = map[string]interface{}{
			"processed":        false,
			"processing_error": err.Error(),
			"retry_count":      gorm.Expr("retry_count + 1"),
		}
	}
	return r.db.WithContext(ctx).
		Model(&models.SupplierWebhookEvent{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// MarkSkipped closes an event that was intentionally not applied
func (r *WebhookRepository) MarkSkipped(ctx context.Context, id uuid.UUID, reason string) error {
	return r.db.WithContext(ctx).
		Model(&models.SupplierWebhookEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"processed":        true,
			"skipped":          true,
			"processed_at":     gorm.Expr("CURRENT_TIMESTAMP"),
			"processing_error": reason,
		}).Error
}

// GetUnprocessedEvents retrieves unprocessed webhook events still eligible for retry
func (r *WebhookRepository) GetUnprocessedEvents(ctx context.Context, limit int) ([]models.SupplierWebhookEvent, error) {
	var events []models.SupplierWebhookEvent
	err := r.db.WithContext(ctx).
		Where("processed = ? AND retry_count < ?", false, MaxWebhookRetries).
		Order("created_at ASC").
		Limit(limit).
		Find(&events).Error
	return events, err
}

// List retrieves webhook events with filtering
func (r *WebhookRepository) List(ctx context.Context, opts WebhookListOptions) ([]models.SupplierWebhookEvent, int64, error) {
	var events []models.SupplierWebhookEvent
	var total int64

	query := r.db.WithContext(ctx).Model(&models.SupplierWebhookEvent{})
	if opts.EventType != "" {
		query = query.Where("event_type = ?", opts.EventType)
	}
	if opts.Processed != nil {
		query = query.Where("processed = ?", *opts.Processed)
	}
	if opts.FailedOnly {
		query = query.Where("processing_error <> '' AND skipped = ?", false)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = paginate(query, opts.Limit, opts.Offset).Order("created_at DESC")
	if err := query.Find(&events).Error; err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

// WebhookListOptions contains options for listing webhook events
type WebhookListOptions struct {
	EventType  string
	Processed  *bool
	FailedOnly bool
	Limit      int
	Offset     int
}
