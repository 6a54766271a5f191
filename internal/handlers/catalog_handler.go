package handlers

import (
	"net/http"
	"strings"

	"dropship-service/internal/middleware"
	"dropship-service/internal/models"
	"dropship-service/internal/repository"
	"dropship-service/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// CatalogHandler handles product endpoints for the storefront and the admin console
type CatalogHandler struct {
	service *services.CatalogService
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(service *services.CatalogService) *CatalogHandler {
	return &CatalogHandler{service: service}
}

// productFilters reads the product list query string shared by both surfaces
func productFilters(c *gin.Context) (repository.ProductListOptions, bool) {
	limit, offset := pagination(c)
	opts := repository.ProductListOptions{
		Search: strings.TrimSpace(c.Query("q")),
		Sort:   c.Query("sort"),
		Limit:  limit,
		Offset: offset,
	}

	var ok bool
	if opts.CategoryID, ok = queryUUID(c, "categoryId"); !ok {
		return opts, false
	}
	if opts.SupplierID, ok = queryUUID(c, "supplierId"); !ok {
		return opts, false
	}
	for _, name := range []string{"minPrice", "maxPrice"} {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		value, err := decimal.NewFromString(raw)
		if err != nil || value.IsNegative() {
			badRequest(c, "invalid "+name)
			return opts, false
		}
		if name == "minPrice" {
			opts.MinPrice = &value
		} else {
			opts.MaxPrice = &value
		}
	}
	if opts.MinPrice != nil && opts.MaxPrice != nil && opts.MinPrice.GreaterThan(*opts.MaxPrice) {
		badRequest(c, "minPrice must not exceed maxPrice")
		return opts, false
	}
	if raw := c.Query("status"); raw != "" {
		for _, status := range strings.Split(raw, ",") {
			opts.Statuses = append(opts.Statuses, models.ProductStatus(strings.ToUpper(strings.TrimSpace(status))))
		}
	}
	return opts, true
}

// ListStorefront returns active products for shoppers
func (h *CatalogHandler) ListStorefront(c *gin.Context) {
	opts, ok := productFilters(c)
	if !ok {
		return
	}

	products, total, err := h.service.ListStorefront(c.Request.Context(), opts)
	if err != nil {
		respondError(c, err)
		return
	}
	listResponse(c, products, total, opts.Limit, opts.Offset)
}

// GetStorefrontProduct returns an active product by slug
func (h *CatalogHandler) GetStorefrontProduct(c *gin.Context) {
	product, err := h.service.GetStorefrontProduct(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": product})
}

// ListProducts returns products in any status
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	opts, ok := productFilters(c)
	if !ok {
		return
	}

	products, total, err := h.service.ListProducts(c.Request.Context(), opts)
	if err != nil {
		respondError(c, err)
		return
	}
	listResponse(c, products, total, opts.Limit, opts.Offset)
}

// GetProduct returns a product by ID
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	product, err := h.service.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": product})
}

// CreateProduct adds a hand-made product
func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	var req models.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	product, err := h.service.CreateProduct(c.Request.Context(), middleware.GetActorID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": product})
}

// UpdateProduct applies a partial update
func (h *CatalogHandler) UpdateProduct(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req models.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	product, err := h.service.UpdateProduct(c.Request.Context(), middleware.GetActorID(c), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": product})
}

// UpdateStatus moves a product through its lifecycle
func (h *CatalogHandler) UpdateStatus(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req models.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	product, err := h.service.UpdateStatus(c.Request.Context(), middleware.GetActorID(c), id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": product})
}

// DeleteProduct removes a product
func (h *CatalogHandler) DeleteProduct(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteProduct(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "product deleted"})
}

// ExportProducts downloads the filtered product list as a spreadsheet
func (h *CatalogHandler) ExportProducts(c *gin.Context) {
	opts, ok := productFilters(c)
	if !ok {
		return
	}

	workbook, err := h.service.ExportProducts(c.Request.Context(), middleware.GetActorID(c), opts)
	if err != nil {
		respondError(c, err)
		return
	}
	sendWorkbook(c, workbook, "products")
}
