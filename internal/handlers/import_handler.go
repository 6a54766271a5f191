package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"dropship-service/internal/clients"
	"dropship-service/internal/middleware"
	"dropship-service/internal/services"
	"github.com/gin-gonic/gin"
)

const maxSearchPageSize = 200

// ImportHandler handles supplier catalog search and product import
type ImportHandler struct {
	service   *services.ImportService
	suppliers *services.SupplierService
}

// NewImportHandler creates a new import handler
func NewImportHandler(service *services.ImportService, suppliers *services.SupplierService) *ImportHandler {
	return &ImportHandler{service: service, suppliers: suppliers}
}

// Search browses the supplier catalog
func (h *ImportHandler) Search(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		badRequest(c, "invalid page")
		return
	}
	pageSize, err := strconv.Atoi(c.DefaultQuery("pageSize", "20"))
	if err != nil || pageSize < 1 || pageSize > maxSearchPageSize {
		badRequest(c, "pageSize must be between 1 and 200")
		return
	}
	supplierID, ok := resolveSupplier(c, h.suppliers)
	if !ok {
		return
	}

	result, err := h.service.Search(c.Request.Context(), supplierID, &clients.ProductSearchOptions{
		Page:       page,
		PageSize:   pageSize,
		CategoryID: strings.TrimSpace(c.Query("categoryId")),
		Keyword:    strings.TrimSpace(c.Query("q")),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": result})
}

// Import brings one supplier product into the catalog
func (h *ImportHandler) Import(c *gin.Context) {
	pid := strings.TrimSpace(c.Param("pid"))
	if pid == "" {
		badRequest(c, "pid is required")
		return
	}
	supplierID, ok := resolveSupplier(c, h.suppliers)
	if !ok {
		return
	}

	result, err := h.service.Import(c.Request.Context(), middleware.GetActorID(c), supplierID, pid)
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusOK
	if result.Outcome == services.ImportCreated {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{
		"data":    result,
		"product": result.Product,
	})
}

// BulkImport imports several supplier products and reports per item
func (h *ImportHandler) BulkImport(c *gin.Context) {
	var req services.BulkImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	supplierID, ok := resolveSupplier(c, h.suppliers)
	if !ok {
		return
	}

	results, err := h.service.BulkImport(c.Request.Context(), middleware.GetActorID(c), supplierID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	summary := map[services.ImportOutcome]int{}
	for _, r := range results {
		summary[r.Outcome]++
	}
	c.JSON(http.StatusOK, gin.H{
		"data":    results,
		"summary": summary,
	})
}
