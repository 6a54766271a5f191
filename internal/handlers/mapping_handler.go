package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"dropship-service/internal/middleware"
	"dropship-service/internal/models"
	"dropship-service/internal/repository"
	"dropship-service/internal/services"
	"github.com/gin-gonic/gin"
)

// MappingHandler handles the supplier taxonomy and its category mappings
type MappingHandler struct {
	service   *services.MappingService
	suppliers *services.SupplierService
}

// NewMappingHandler creates a new mapping handler
func NewMappingHandler(service *services.MappingService, suppliers *services.SupplierService) *MappingHandler {
	return &MappingHandler{service: service, suppliers: suppliers}
}

// SyncCategories pulls the supplier category tree into local storage
func (h *MappingHandler) SyncCategories(c *gin.Context) {
	supplierID, ok := resolveSupplier(c, h.suppliers)
	if !ok {
		return
	}

	count, err := h.service.SyncCategories(c.Request.Context(), supplierID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"supplierId": supplierID,
		"synced":     count,
	})
}

// ListSupplierCategories returns the stored supplier taxonomy
func (h *MappingHandler) ListSupplierCategories(c *gin.Context) {
	supplierID, ok := resolveSupplier(c, h.suppliers)
	if !ok {
		return
	}
	limit, offset := pagination(c)

	opts := repository.SupplierCategoryListOptions{
		SupplierID: supplierID,
		Search:     strings.TrimSpace(c.Query("q")),
		Limit:      limit,
		Offset:     offset,
	}
	if raw := c.Query("level"); raw != "" {
		level, err := strconv.Atoi(raw)
		if err != nil || level < 1 || level > 3 {
			badRequest(c, "level must be 1, 2 or 3")
			return
		}
		opts.Level = level
	}

	categories, total, err := h.service.ListSupplierCategories(c.Request.Context(), opts)
	if err != nil {
		respondError(c, err)
		return
	}
	listResponse(c, categories, total, limit, offset)
}

// ListMappings returns the configured mappings of a supplier
func (h *MappingHandler) ListMappings(c *gin.Context) {
	supplierID, ok := resolveSupplier(c, h.suppliers)
	if !ok {
		return
	}
	limit, offset := pagination(c)

	mappings, total, err := h.service.ListMappings(c.Request.Context(), supplierID, repository.ListOptions{Limit: limit, Offset: offset})
	if err != nil {
		respondError(c, err)
		return
	}
	listResponse(c, mappings, total, limit, offset)
}

// UpsertMapping maps one supplier category to a store category
func (h *MappingHandler) UpsertMapping(c *gin.Context) {
	var req models.UpsertMappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	supplierID, ok := resolveSupplier(c, h.suppliers)
	if !ok {
		return
	}

	result, err := h.service.UpsertMapping(c.Request.Context(), middleware.GetActorID(c), supplierID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": result})
}

// BulkUpsertMappings applies a mapping table, reporting per row
func (h *MappingHandler) BulkUpsertMappings(c *gin.Context) {
	var req models.BulkUpsertMappingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	supplierID, ok := resolveSupplier(c, h.suppliers)
	if !ok {
		return
	}

	results, err := h.service.BulkUpsertMappings(c.Request.Context(), middleware.GetActorID(c), supplierID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": results, "total": len(results)})
}

// DeleteMapping removes a mapping; products keep their category
func (h *MappingHandler) DeleteMapping(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteMapping(c.Request.Context(), middleware.GetActorID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "mapping deleted"})
}

// ListUnmapped returns supplier categories seen on imports without a mapping
func (h *MappingHandler) ListUnmapped(c *gin.Context) {
	supplierID, ok := resolveSupplier(c, h.suppliers)
	if !ok {
		return
	}
	limit, offset := pagination(c)

	unmapped, total, err := h.service.ListUnmapped(c.Request.Context(), repository.UnmappedListOptions{
		SupplierID:      supplierID,
		IncludeResolved: c.Query("includeResolved") == "true",
		Limit:           limit,
		Offset:          offset,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	listResponse(c, unmapped, total, limit, offset)
}

// ExportUnmapped downloads the unmapped categories as a mapping worksheet
func (h *MappingHandler) ExportUnmapped(c *gin.Context) {
	supplierID, ok := resolveSupplier(c, h.suppliers)
	if !ok {
		return
	}

	workbook, err := h.service.ExportUnmapped(c.Request.Context(), middleware.GetActorID(c), supplierID)
	if err != nil {
		respondError(c, err)
		return
	}
	sendWorkbook(c, workbook, "unmapped-categories")
}

// AutoMap maps unmapped supplier categories to store categories with the same name
func (h *MappingHandler) AutoMap(c *gin.Context) {
	supplierID, ok := resolveSupplier(c, h.suppliers)
	if !ok {
		return
	}

	results, err := h.service.AutoMap(c.Request.Context(), middleware.GetActorID(c), supplierID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": results, "total": len(results)})
}
