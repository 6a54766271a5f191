package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"dropship-service/internal/export"
	"dropship-service/internal/models"
	"dropship-service/internal/repository"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

const maxExportRows = 10000

// CatalogService handles product catalog business logic
type CatalogService struct {
	products   repository.ProductRepositoryInterface
	categories repository.CategoryRepositoryInterface
	suppliers  SupplierProvider
	pricer     *Pricer
	audit      *AuditService
	currency   string
	logger     *logrus.Entry
}

// NewCatalogService creates a new catalog service
func NewCatalogService(
	products repository.ProductRepositoryInterface,
	categories repository.CategoryRepositoryInterface,
	suppliers SupplierProvider,
	pricer *Pricer,
	audit *AuditService,
	currency string,
	logger *logrus.Logger,
) *CatalogService {
	if currency == "" {
		currency = "USD"
	}
	return &CatalogService{
		products:   products,
		categories: categories,
		suppliers:  suppliers,
		pricer:     pricer,
		audit:      audit,
		currency:   currency,
		logger:     logger.WithField("component", "catalog"),
	}
}

// ListProducts lists products for administration
func (s *CatalogService) ListProducts(ctx context.Context, opts repository.ProductListOptions) ([]models.Product, int64, error) {
	return s.products.List(ctx, opts)
}

// ListStorefront lists products visible to shoppers. Only ACTIVE products
// are ever returned, whatever status filter the caller passed.
func (s *CatalogService) ListStorefront(ctx context.Context, opts repository.ProductListOptions) ([]models.Product, int64, error) {
	opts.Statuses = []models.ProductStatus{models.ProductActive}
	opts.SupplierID = nil
	return s.products.List(ctx, opts)
}

// GetProduct retrieves a product by ID
func (s *CatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return s.products.GetByID(ctx, id)
}

// GetProductBySlug retrieves a product by slug
func (s *CatalogService) GetProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	return s.products.GetBySlug(ctx, slug)
}

// GetStorefrontProduct retrieves an ACTIVE product by slug
func (s *CatalogService) GetStorefrontProduct(ctx context.Context, slug string) (*models.Product, error) {
	product, err := s.products.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if product.Status != models.ProductActive {
		return nil, repository.ErrNotFound
	}
	return product, nil
}

// CreateProduct creates a hand-made product
func (s *CatalogService) CreateProduct(ctx context.Context, actorID string, req *models.CreateProductRequest) (*models.Product, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalid("name is required")
	}
	if req.Price.IsNegative() || req.CostPrice.IsNegative() {
		return nil, invalid("prices must not be negative")
	}
	if req.Stock < 0 {
		return nil, invalid("stock must not be negative")
	}

	status := req.Status
	if status == "" {
		status = models.ProductDraft
	}
	if !status.Valid() {
		return nil, invalid("unknown status %q", status)
	}
	if err := s.checkCategory(ctx, req.CategoryID); err != nil {
		return nil, err
	}
	if status == models.ProductActive && req.CategoryID == nil {
		return nil, invalid("an active product needs a category")
	}

	slug := strings.TrimSpace(req.Slug)
	if slug == "" {
		slug = generateSlug(name)
	}
	if err := s.ensureSlugFree(ctx, slug, nil); err != nil {
		return nil, err
	}

	product := &models.Product{
		ID:          uuid.New(),
		Name:        name,
		Slug:        slug,
		Description: req.Description,
		SKU:         req.SKU,
		Status:      status,
		Price:       req.Price.Round(2),
		CostPrice:   req.CostPrice.Round(2),
		Currency:    defaultStr(req.Currency, s.currency),
		CategoryID:  req.CategoryID,
		Images:      pq.StringArray(req.Images),
		Tags:        pq.StringArray(req.Tags),
		Weight:      req.Weight,
		Stock:       req.Stock,
	}
	if req.CompareAtPrice != nil {
		product.CompareAtPrice = decimal.NewNullDecimal(req.CompareAtPrice.Round(2))
	}

	if err := s.products.Create(ctx, product); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrSlugTaken
		}
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	s.logger.WithFields(logrus.Fields{"productId": product.ID, "actorId": actorID}).Info("Product created")
	return product, nil
}

// UpdateProduct applies a partial update. An explicit price pins the product
// against supplier refreshes; ResetPrice reprices it from cost and unpins it.
func (s *CatalogService) UpdateProduct(ctx context.Context, actorID string, id uuid.UUID, req *models.UpdateProductRequest) (*models.Product, error) {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	oldPrice := product.Price

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, invalid("name must not be empty")
		}
		product.Name = name
	}
	if req.Slug != nil {
		slug := strings.TrimSpace(*req.Slug)
		if slug == "" {
			return nil, invalid("slug must not be empty")
		}
		if slug != product.Slug {
			if err := s.ensureSlugFree(ctx, slug, &product.ID); err != nil {
				return nil, err
			}
			product.Slug = slug
		}
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.CategoryID != nil {
		if err := s.checkCategory(ctx, req.CategoryID); err != nil {
			return nil, err
		}
		product.CategoryID = req.CategoryID
		product.Category = nil
		if product.Status == models.ProductPendingMapping {
			product.Status = models.ProductDraft
		}
	}
	if req.Images != nil {
		product.Images = limitImages(req.Images)
	}
	if req.Tags != nil {
		product.Tags = pq.StringArray(req.Tags)
	}
	if req.Weight != nil {
		product.Weight = *req.Weight
	}
	if req.Stock != nil {
		if *req.Stock < 0 {
			return nil, invalid("stock must not be negative")
		}
		if len(product.Variants) > 0 {
			return nil, invalid("stock of a product with variants follows its variants")
		}
		product.Stock = *req.Stock
	}
	if req.CompareAtPrice != nil {
		product.CompareAtPrice = decimal.NewNullDecimal(req.CompareAtPrice.Round(2))
	}

	switch {
	case req.ResetPrice:
		supplier := s.productSupplier(ctx, product)
		product.Price = s.pricer.RetailPrice(product.CostPrice, supplier)
		product.PriceOverridden = false
	case req.Price != nil:
		if req.Price.IsNegative() {
			return nil, invalid("price must not be negative")
		}
		product.Price = req.Price.Round(2)
		product.PriceOverridden = true
	}

	if err := s.products.Update(ctx, product); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrSlugTaken
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	if !oldPrice.Equal(product.Price) {
		s.audit.LogChange(ctx, actorID, models.ActionProductPrice, models.ResourceProduct, product.ID.String(),
			models.JSONB{"price": oldPrice.StringFixed(2)},
			models.JSONB{"price": product.Price.StringFixed(2), "priceOverridden": product.PriceOverridden})
	}
	return product, nil
}

// UpdateStatus changes a product's lifecycle status. A product only goes
// ACTIVE once it has a category.
func (s *CatalogService) UpdateStatus(ctx context.Context, actorID string, id uuid.UUID, status models.ProductStatus) (*models.Product, error) {
	if !status.Valid() {
		return nil, invalid("unknown status %q", status)
	}
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product.Status == status {
		return product, nil
	}
	if status == models.ProductActive && product.CategoryID == nil {
		return nil, invalid("product %s has no category and cannot be activated", id)
	}
	if status == models.ProductPendingMapping && !product.IsImported() {
		return nil, invalid("only imported products can wait for a mapping")
	}

	if err := s.products.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	s.audit.LogChange(ctx, actorID, models.ActionProductStatus, models.ResourceProduct, id.String(),
		models.JSONB{"status": product.Status}, models.JSONB{"status": status})
	product.Status = status
	return product, nil
}

// DeleteProduct removes a product and its variants
func (s *CatalogService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return s.products.Delete(ctx, id)
}

// ExportProducts renders the filtered product list as a workbook
func (s *CatalogService) ExportProducts(ctx context.Context, actorID string, opts repository.ProductListOptions) (*excelize.File, error) {
	opts.Limit = maxExportRows
	opts.Offset = 0
	products, _, err := s.products.List(ctx, opts)
	if err != nil {
		return nil, err
	}

	headers := []string{"ID", "Name", "Slug", "SKU", "Status", "Price", "Cost", "Currency", "Stock", "Category ID", "Supplier Product ID", "Created"}
	rows := make([][]interface{}, 0, len(products))
	for _, p := range products {
		categoryID := ""
		if p.CategoryID != nil {
			categoryID = p.CategoryID.String()
		}
		pid := ""
		if p.SupplierProductID != nil {
			pid = *p.SupplierProductID
		}
		rows = append(rows, []interface{}{
			p.ID.String(), p.Name, p.Slug, p.SKU, string(p.Status),
			p.Price.InexactFloat64(), p.CostPrice.InexactFloat64(), p.Currency, p.Stock,
			categoryID, pid, p.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}

	f, err := export.Sheet("Products", headers, rows)
	if err != nil {
		return nil, fmt.Errorf("failed to build product export: %w", err)
	}
	s.audit.LogDataExport(ctx, actorID, models.ResourceProduct, "xlsx", len(products))
	return f, nil
}

func (s *CatalogService) productSupplier(ctx context.Context, product *models.Product) *models.Supplier {
	if product.SupplierID == nil || s.suppliers == nil {
		return nil
	}
	supplier, err := s.suppliers.GetSupplier(ctx, *product.SupplierID)
	if err != nil {
		s.logger.WithError(err).WithField("productId", product.ID).Debug("Supplier unavailable, using default markup")
		return nil
	}
	return supplier
}

func (s *CatalogService) checkCategory(ctx context.Context, categoryID *uuid.UUID) error {
	if categoryID == nil {
		return nil
	}
	if _, err := s.categories.GetByID(ctx, *categoryID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return invalid("category %s does not exist", *categoryID)
		}
		return err
	}
	return nil
}

func (s *CatalogService) ensureSlugFree(ctx context.Context, slug string, excludeID *uuid.UUID) error {
	if slug == "" {
		return invalid("slug is required")
	}
	exists, err := s.products.SlugExists(ctx, slug, excludeID)
	if err != nil {
		return err
	}
	if exists {
		return ErrSlugTaken
	}
	return nil
}
