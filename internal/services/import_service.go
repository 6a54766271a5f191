package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"dropship-service/internal/clients"
	"dropship-service/internal/events"
	"dropship-service/internal/models"
	"dropship-service/internal/repository"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const maxBulkImport = 100

// ImportOutcome tells what an import did to the catalog
type ImportOutcome string

const (
	ImportCreated ImportOutcome = "created"
	ImportUpdated ImportOutcome = "updated"
	ImportFailed  ImportOutcome = "failed"
)

// ImportResult is the per-product outcome of an import
type ImportResult struct {
	SupplierProductID string               `json:"pid"`
	ProductID         *uuid.UUID           `json:"productId,omitempty"`
	Outcome           ImportOutcome        `json:"outcome"`
	Status            models.ProductStatus `json:"status,omitempty"`
	Error             string               `json:"error,omitempty"`

	Product *models.Product `json:"-"`
}

// BulkImportRequest lists supplier product ids to import
type BulkImportRequest struct {
	ProductIDs []string `json:"productIds" binding:"required,min=1"`
}

// ImportService brings supplier products into the catalog and keeps them fresh
type ImportService struct {
	products  repository.ProductRepositoryInterface
	mappings  *MappingService
	suppliers SupplierProvider
	pricer    *Pricer
	publisher events.Publisher
	audit     *AuditService
	currency  string
	workers   int
	logger    *logrus.Entry
}

// NewImportService creates a new import service. workers bounds the
// parallel stock reads made for one product.
func NewImportService(
	products repository.ProductRepositoryInterface,
	mappings *MappingService,
	suppliers SupplierProvider,
	pricer *Pricer,
	publisher events.Publisher,
	audit *AuditService,
	currency string,
	workers int,
	logger *logrus.Logger,
) *ImportService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if workers < 1 {
		workers = 1
	}
	return &ImportService{
		products:  products,
		mappings:  mappings,
		suppliers: suppliers,
		pricer:    pricer,
		publisher: publisher,
		audit:     audit,
		currency:  currency,
		workers:   workers,
		logger:    logger.WithField("component", "import"),
	}
}

// Search proxies a catalog search to the supplier
func (s *ImportService) Search(ctx context.Context, supplierID uuid.UUID, opts *clients.ProductSearchOptions) (*clients.ProductsResult, error) {
	client, _, err := s.suppliers.Client(ctx, supplierID)
	if err != nil {
		return nil, err
	}
	result, err := client.SearchProducts(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("supplier search failed: %w", err)
	}
	return result, nil
}

// Import fetches one supplier product and creates or refreshes it in the catalog
func (s *ImportService) Import(ctx context.Context, actorID string, supplierID uuid.UUID, supplierProductID string) (*ImportResult, error) {
	pid := strings.TrimSpace(supplierProductID)
	if pid == "" {
		return nil, invalid("supplier product id is required")
	}

	client, supplier, err := s.suppliers.Client(ctx, supplierID)
	if err != nil {
		return nil, err
	}

	external, err := client.GetProduct(ctx, pid)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch supplier product %s: %w", pid, err)
	}
	s.fillStock(ctx, client, external)

	result, err := s.apply(ctx, supplier, external)
	if err != nil {
		return nil, err
	}

	if result.Outcome == ImportCreated {
		s.audit.UserAction(ctx, actorID, models.ActionProductImport, models.ResourceProduct, result.ProductID.String(), models.JSONB{
			"supplierId":        supplier.ID.String(),
			"supplierProductId": pid,
			"status":            result.Status,
		})
	}
	return result, nil
}

// BulkImport imports a list of supplier products one by one, reporting per item
func (s *ImportService) BulkImport(ctx context.Context, actorID string, supplierID uuid.UUID, req *BulkImportRequest) ([]ImportResult, error) {
	if len(req.ProductIDs) == 0 {
		return nil, invalid("productIds must not be empty")
	}
	if len(req.ProductIDs) > maxBulkImport {
		return nil, invalid("at most %d products per request", maxBulkImport)
	}
	if _, err := s.suppliers.GetSupplier(ctx, supplierID); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(req.ProductIDs))
	results := make([]ImportResult, 0, len(req.ProductIDs))
	for _, pid := range req.ProductIDs {
		pid = strings.TrimSpace(pid)
		if pid == "" || seen[pid] {
			continue
		}
		seen[pid] = true

		if err := ctx.Err(); err != nil {
			results = append(results, ImportResult{SupplierProductID: pid, Outcome: ImportFailed, Error: err.Error()})
			continue
		}

		result, err := s.Import(ctx, actorID, supplierID, pid)
		if err != nil {
			s.logger.WithError(err).WithField("pid", pid).Warn("Bulk import item failed")
			results = append(results, ImportResult{SupplierProductID: pid, Outcome: ImportFailed, Error: err.Error()})
			continue
		}
		results = append(results, *result)
	}
	return results, nil
}

// Refresh re-reads an already imported product from the supplier
func (s *ImportService) Refresh(ctx context.Context, client clients.SupplierClient, supplier *models.Supplier, product *models.Product) (*ImportResult, error) {
	if !product.IsImported() {
		return nil, invalid("product %s was not imported from a supplier", product.ID)
	}
	external, err := client.GetProduct(ctx, *product.SupplierProductID)
	if err != nil {
		return nil, err
	}
	s.fillStock(ctx, client, external)
	return s.refresh(ctx, supplier, product, external)
}

func (s *ImportService) apply(ctx context.Context, supplier *models.Supplier, external *clients.ExternalProduct) (*ImportResult, error) {
	existing, err := s.products.GetBySupplierProduct(ctx, supplier.ID, external.ID)
	if err == nil {
		return s.refresh(ctx, supplier, existing, external)
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	var categoryID *uuid.UUID
	resolved, err := s.mappings.ResolveCategory(ctx, supplier.ID, external.CategoryID, external.CategoryName)
	switch {
	case err == nil:
		categoryID = &resolved
	case errors.Is(err, ErrCategoryNotMapped):
	default:
		return nil, err
	}

	mapper := NewProductMapper(supplier, s.pricer, s.currency)
	product := mapper.NewProduct(external, categoryID)
	if err := s.products.Create(ctx, product); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// lost a race with a concurrent import of the same product
			if existing, gerr := s.products.GetBySupplierProduct(ctx, supplier.ID, external.ID); gerr == nil {
				return s.refresh(ctx, supplier, existing, external)
			}
		}
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	if err := s.storeVariants(ctx, mapper, product.ID, external); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"productId":         product.ID,
		"supplierProductId": external.ID,
		"status":            product.Status,
	}).Info("Product imported")
	s.publish(ctx, events.SubjectProductImported, product)

	id := product.ID
	return &ImportResult{
		SupplierProductID: external.ID,
		ProductID:         &id,
		Outcome:           ImportCreated,
		Status:            product.Status,
		Product:           product,
	}, nil
}

// refresh updates supplier-owned fields. Category and status only move
// for a product still waiting for a mapping that now exists.
func (s *ImportService) refresh(ctx context.Context, supplier *models.Supplier, existing *models.Product, external *clients.ExternalProduct) (*ImportResult, error) {
	mapper := NewProductMapper(supplier, s.pricer, s.currency)
	if err := s.products.UpdateFields(ctx, existing.ID, mapper.RefreshFields(existing, external)); err != nil {
		return nil, fmt.Errorf("failed to refresh product: %w", err)
	}

	status := existing.Status
	if existing.Status == models.ProductPendingMapping && existing.CategoryID == nil {
		categoryID, err := s.mappings.MappedCategory(ctx, supplier.ID, external.CategoryID)
		if err != nil {
			return nil, err
		}
		if categoryID != nil {
			n, err := s.products.UpdateWhere(ctx, existing.ID, repository.ProductCondition{
				Status:         models.ProductPendingMapping,
				CategoryIsNull: true,
			}, map[string]interface{}{
				"category_id": *categoryID,
				"status":      models.ProductDraft,
			})
			if err != nil {
				return nil, err
			}
			if n > 0 {
				existing.CategoryID = categoryID
				existing.Status = models.ProductDraft
				status = models.ProductDraft
			}
		} else {
			s.mappings.TrackUnmapped(ctx, supplier.ID, external.CategoryID, external.CategoryName)
		}
	}

	if err := s.storeVariants(ctx, mapper, existing.ID, external); err != nil {
		return nil, err
	}
	s.publish(ctx, events.SubjectProductUpdated, existing)

	id := existing.ID
	return &ImportResult{
		SupplierProductID: external.ID,
		ProductID:         &id,
		Outcome:           ImportUpdated,
		Status:            status,
		Product:           existing,
	}, nil
}

func (s *ImportService) storeVariants(ctx context.Context, mapper *ProductMapper, productID uuid.UUID, external *clients.ExternalProduct) error {
	variants := mapper.Variants(productID, external)
	if len(variants) == 0 {
		return nil
	}
	if err := s.products.UpsertVariants(ctx, variants); err != nil {
		return fmt.Errorf("failed to store variants: %w", err)
	}
	return s.products.RecomputeStock(ctx, productID)
}

// fillStock reads stock for variants the product payload left without one.
// A failed read leaves stock at zero rather than failing the import.
func (s *ImportService) fillStock(ctx context.Context, client clients.SupplierClient, external *clients.ExternalProduct) {
	var g errgroup.Group
	g.SetLimit(s.workers)

	for i := range external.Variants {
		v := &external.Variants[i]
		if v.Stock != nil || v.ID == "" {
			continue
		}
		g.Go(func() error {
			level, err := client.GetVariantStock(ctx, v.ID)
			if err != nil {
				s.logger.WithError(err).WithField("vid", v.ID).Debug("Variant stock unavailable")
				return nil
			}
			total := level.Total
			v.Stock = &total
			return nil
		})
	}
	_ = g.Wait()
}

func (s *ImportService) publish(ctx context.Context, subject string, product *models.Product) {
	event := events.ProductEvent{
		EventType: subject,
		Timestamp: time.Now().UTC(),
		ProductID: product.ID.String(),
		Name:      product.Name,
		Price:     product.Price.StringFixed(2),
		Status:    string(product.Status),
		Stock:     product.Stock,
	}
	if product.SupplierID != nil {
		event.SupplierID = product.SupplierID.String()
	}
	if product.SupplierProductID != nil {
		event.SupplierProductID = *product.SupplierProductID
	}
	if product.CategoryID != nil {
		event.CategoryID = product.CategoryID.String()
	}
	if err := s.publisher.Publish(ctx, subject, event); err != nil {
		s.logger.WithError(err).WithField("subject", subject).Warn("Failed to publish product event")
	}
}
