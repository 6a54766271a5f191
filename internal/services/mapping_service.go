package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"dropship-service/internal/export"
	"dropship-service/internal/models"
	"dropship-service/internal/repository"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

// MappingService maintains the supplier taxonomy and its mapping onto
// internal categories
type MappingService struct {
	repo       repository.MappingRepositoryInterface
	categories repository.CategoryRepositoryInterface
	suppliers  SupplierProvider
	audit      *AuditService
	logger     *logrus.Entry
	now        func() time.Time
}

// NewMappingService creates a new mapping service
func NewMappingService(repo repository.MappingRepositoryInterface, categories repository.CategoryRepositoryInterface, suppliers SupplierProvider, audit *AuditService, logger *logrus.Logger) *MappingService {
	return &MappingService{
		repo:       repo,
		categories: categories,
		suppliers:  suppliers,
		audit:      audit,
		logger:     logger.WithField("component", "mapping"),
		now:        time.Now,
	}
}

// SyncCategories fetches the supplier's category tree and stores every node
func (s *MappingService) SyncCategories(ctx context.Context, supplierID uuid.UUID) (int, error) {
	client, _, err := s.suppliers.Client(ctx, supplierID)
	if err != nil {
		return 0, err
	}

	external, err := client.GetCategories(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch supplier categories: %w", err)
	}

	now := s.now()
	nodes := make([]models.SupplierCategory, 0, len(external))
	for _, c := range external {
		nodes = append(nodes, models.SupplierCategory{
			ID:               uuid.New(),
			SupplierID:       supplierID,
			ExternalID:       c.ID,
			Name:             c.Name,
			ParentExternalID: c.ParentID,
			Level:            c.Level,
			Path:             c.Path,
			LastSeenAt:       now,
			CreatedAt:        now,
			UpdatedAt:        now,
		})
	}

	if err := s.repo.UpsertSupplierCategories(ctx, nodes); err != nil {
		return 0, fmt.Errorf("failed to store supplier categories: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"supplierId": supplierID,
		"count":      len(nodes),
	}).Info("Supplier categories synced")
	return len(nodes), nil
}

// ListSupplierCategories lists the stored taxonomy with the mapped internal category
func (s *MappingService) ListSupplierCategories(ctx context.Context, opts repository.SupplierCategoryListOptions) ([]models.SupplierCategory, int64, error) {
	categories, total, err := s.repo.ListSupplierCategories(ctx, opts)
	if err != nil {
		return nil, 0, err
	}
	index, err := s.repo.MappingIndex(ctx, opts.SupplierID)
	if err != nil {
		return nil, 0, err
	}
	for i := range categories {
		if id, ok := index[categories[i].ExternalID]; ok {
			mapped := id
			categories[i].MappedCategoryID = &mapped
		}
	}
	return categories, total, nil
}

// UpsertMapping maps a supplier category and applies it to the products
// waiting for it
func (s *MappingService) UpsertMapping(ctx context.Context, actorID string, supplierID uuid.UUID, req *models.UpsertMappingRequest) (*models.MappingResult, error) {
	externalID := strings.TrimSpace(req.ExternalCategoryID)
	if externalID == "" {
		return nil, invalid("externalCategoryId is required")
	}
	if req.CategoryID == uuid.Nil {
		return nil, invalid("categoryId is required")
	}

	if _, err := s.suppliers.GetSupplier(ctx, supplierID); err != nil {
		return nil, err
	}
	category, err := s.categories.GetByID(ctx, req.CategoryID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, invalid("category %s does not exist", req.CategoryID)
		}
		return nil, err
	}

	name := strings.TrimSpace(req.ExternalCategoryName)
	if name == "" {
		if node, err := s.repo.GetSupplierCategory(ctx, supplierID, externalID); err == nil {
			name = node.Name
		}
	}

	mapping := &models.CategoryMapping{
		ID:                   uuid.New(),
		SupplierID:           supplierID,
		ExternalCategoryID:   externalID,
		ExternalCategoryName: name,
		CategoryID:           category.ID,
		CreatedBy:            actorID,
	}

	var updated int64
	err = s.repo.WithTransaction(ctx, func(tx repository.MappingRepositoryInterface) error {
		if err := tx.UpsertMapping(ctx, mapping); err != nil {
			return err
		}
		n, err := tx.ApplyMapping(ctx, supplierID, externalID, category.ID)
		if err != nil {
			return err
		}
		updated = n
		return tx.ResolveUnmapped(ctx, supplierID, externalID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upsert mapping: %w", err)
	}
	mapping.Category = category

	s.audit.LogChange(ctx, actorID, models.ActionMappingUpsert, models.ResourceMapping, mapping.ID.String(), nil, models.JSONB{
		"supplierId":         supplierID.String(),
		"externalCategoryId": externalID,
		"categoryId":         category.ID.String(),
		"productsUpdated":    updated,
	})
	s.logger.WithFields(logrus.Fields{
		"supplierId":         supplierID,
		"externalCategoryId": externalID,
		"categoryId":         category.ID,
		"productsUpdated":    updated,
	}).Info("Category mapping applied")

	return &models.MappingResult{Mapping: mapping, ProductsUpdated: updated}, nil
}

// BulkUpsertMappings applies a declarative mapping table. Every entry is
// applied on its own; failures are reported per entry.
func (s *MappingService) BulkUpsertMappings(ctx context.Context, actorID string, supplierID uuid.UUID, req *models.BulkUpsertMappingsRequest) ([]models.MappingResult, error) {
	if len(req.Mappings) == 0 {
		return nil, invalid("mappings must not be empty")
	}
	if _, err := s.suppliers.GetSupplier(ctx, supplierID); err != nil {
		return nil, err
	}

	results := make([]models.MappingResult, 0, len(req.Mappings))
	for i := range req.Mappings {
		result, err := s.UpsertMapping(ctx, actorID, supplierID, &req.Mappings[i])
		if err != nil {
			results = append(results, models.MappingResult{
				Mapping: &models.CategoryMapping{
					SupplierID:         supplierID,
					ExternalCategoryID: req.Mappings[i].ExternalCategoryID,
					CategoryID:         req.Mappings[i].CategoryID,
				},
				Error: err.Error(),
			})
			continue
		}
		results = append(results, *result)
	}
	return results, nil
}

// ListMappings lists the mappings of a supplier
func (s *MappingService) ListMappings(ctx context.Context, supplierID uuid.UUID, opts repository.ListOptions) ([]models.CategoryMapping, int64, error) {
	return s.repo.ListMappings(ctx, supplierID, opts)
}

// DeleteMapping removes a mapping. Products already categorised keep their category.
func (s *MappingService) DeleteMapping(ctx context.Context, actorID string, id uuid.UUID) error {
	mapping, err := s.repo.GetMappingByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteMapping(ctx, id); err != nil {
		return err
	}
	s.audit.LogChange(ctx, actorID, models.ActionMappingDelete, models.ResourceMapping, id.String(), models.JSONB{
		"externalCategoryId": mapping.ExternalCategoryID,
		"categoryId":         mapping.CategoryID.String(),
	}, nil)
	return nil
}

// MappedCategory returns the internal category for a supplier category, or
// nil when none is mapped
func (s *MappingService) MappedCategory(ctx context.Context, supplierID uuid.UUID, externalCategoryID string) (*uuid.UUID, error) {
	if externalCategoryID == "" {
		return nil, nil
	}
	mapping, err := s.repo.GetMapping(ctx, supplierID, externalCategoryID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	id := mapping.CategoryID
	return &id, nil
}

// ResolveCategory returns the internal category for an imported product.
// An unmapped supplier category is tracked and ErrCategoryNotMapped returned.
func (s *MappingService) ResolveCategory(ctx context.Context, supplierID uuid.UUID, externalCategoryID, externalCategoryName string) (uuid.UUID, error) {
	if externalCategoryID == "" {
		return uuid.Nil, ErrCategoryNotMapped
	}
	categoryID, err := s.MappedCategory(ctx, supplierID, externalCategoryID)
	if err != nil {
		return uuid.Nil, err
	}
	if categoryID != nil {
		return *categoryID, nil
	}

	s.TrackUnmapped(ctx, supplierID, externalCategoryID, externalCategoryName)
	return uuid.Nil, ErrCategoryNotMapped
}

// TrackUnmapped counts a product seen in an unmapped supplier category
func (s *MappingService) TrackUnmapped(ctx context.Context, supplierID uuid.UUID, externalCategoryID, externalCategoryName string) {
	if externalCategoryID == "" {
		return
	}
	if externalCategoryName == "" {
		if node, err := s.repo.GetSupplierCategory(ctx, supplierID, externalCategoryID); err == nil {
			externalCategoryName = node.Path
		}
	}
	if err := s.repo.TrackUnmapped(ctx, supplierID, externalCategoryID, externalCategoryName); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"supplierId":         supplierID,
			"externalCategoryId": externalCategoryID,
		}).Warn("Failed to track unmapped category")
	}
}

// ListUnmapped lists unmapped supplier categories, busiest first
func (s *MappingService) ListUnmapped(ctx context.Context, opts repository.UnmappedListOptions) ([]models.UnmappedCategory, int64, error) {
	return s.repo.ListUnmapped(ctx, opts)
}

// ExportUnmapped renders the unresolved categories of a supplier as a workbook
func (s *MappingService) ExportUnmapped(ctx context.Context, actorID string, supplierID uuid.UUID) (*excelize.File, error) {
	records, _, err := s.repo.ListUnmapped(ctx, repository.UnmappedListOptions{SupplierID: supplierID})
	if err != nil {
		return nil, err
	}

	rows := make([][]interface{}, 0, len(records))
	for _, r := range records {
		rows = append(rows, []interface{}{
			r.ExternalCategoryID,
			r.ExternalCategoryName,
			r.ProductCount,
			r.FirstSeenAt.Format(time.RFC3339),
			r.LastSeenAt.Format(time.RFC3339),
		})
	}
	f, err := export.Sheet("Unmapped Categories",
		[]string{"External ID", "Name", "Products", "First Seen", "Last Seen"}, rows)
	if err != nil {
		return nil, fmt.Errorf("failed to build export: %w", err)
	}

	s.audit.LogDataExport(ctx, actorID, models.ResourceMapping, "xlsx", len(records))
	return f, nil
}

// AutoMap maps every unmapped supplier category whose name matches an
// internal category's name or slug, ignoring case
func (s *MappingService) AutoMap(ctx context.Context, actorID string, supplierID uuid.UUID) ([]models.MappingResult, error) {
	if _, err := s.suppliers.GetSupplier(ctx, supplierID); err != nil {
		return nil, err
	}

	nodes, err := s.repo.AllSupplierCategories(ctx, supplierID)
	if err != nil {
		return nil, err
	}
	index, err := s.repo.MappingIndex(ctx, supplierID)
	if err != nil {
		return nil, err
	}
	internal, err := s.categories.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]uuid.UUID, len(internal)*2)
	for _, c := range internal {
		byName[strings.ToLower(strings.TrimSpace(c.Name))] = c.ID
		byName[strings.ToLower(c.Slug)] = c.ID
	}

	var results []models.MappingResult
	for _, node := range nodes {
		if _, mapped := index[node.ExternalID]; mapped {
			continue
		}
		categoryID, ok := byName[strings.ToLower(strings.TrimSpace(node.Name))]
		if !ok {
			categoryID, ok = byName[generateSlug(node.Name)]
		}
		if !ok {
			continue
		}

		result, err := s.UpsertMapping(ctx, actorID, supplierID, &models.UpsertMappingRequest{
			ExternalCategoryID:   node.ExternalID,
			ExternalCategoryName: node.Name,
			CategoryID:           categoryID,
		})
		if err != nil {
			s.logger.WithError(err).WithField("externalCategoryId", node.ExternalID).Warn("Auto-map failed")
			continue
		}
		results = append(results, *result)
	}

	s.audit.UserAction(ctx, actorID, models.ActionMappingAuto, models.ResourceMapping, supplierID.String(), models.JSONB{
		"created": len(results),
	})
	return results, nil
}
