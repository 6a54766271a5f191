package handlers

import (
	"net/http"
	"strings"

	"dropship-service/internal/middleware"
	"dropship-service/internal/models"
	"dropship-service/internal/repository"
	"dropship-service/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SupplierHandler handles supplier account endpoints
type SupplierHandler struct {
	service *services.SupplierService
}

// NewSupplierHandler creates a new supplier handler
func NewSupplierHandler(service *services.SupplierService) *SupplierHandler {
	return &SupplierHandler{service: service}
}

// resolveSupplier picks the supplier named by ?supplierId=, falling back to
// the default supplier
func resolveSupplier(c *gin.Context, suppliers *services.SupplierService) (uuid.UUID, bool) {
	if raw := c.Query("supplierId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			badRequest(c, "invalid supplierId")
			return uuid.Nil, false
		}
		return id, true
	}

	supplier, err := suppliers.DefaultSupplier(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return uuid.Nil, false
	}
	return supplier.ID, true
}

// List returns all suppliers
func (h *SupplierHandler) List(c *gin.Context) {
	limit, offset := pagination(c)

	suppliers, total, err := h.service.List(c.Request.Context(), repository.SupplierListOptions{
		Type:   strings.ToUpper(c.Query("type")),
		Status: strings.ToUpper(c.Query("status")),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	listResponse(c, suppliers, total, limit, offset)
}

// Create registers a supplier and stores its credentials
func (h *SupplierHandler) Create(c *gin.Context) {
	var req models.CreateSupplierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	supplier, err := h.service.Create(c.Request.Context(), middleware.GetActorID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": supplier})
}

// Get returns a single supplier
func (h *SupplierHandler) Get(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	supplier, err := h.service.GetSupplier(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": supplier})
}

// Update changes a supplier's settings
func (h *SupplierHandler) Update(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req models.UpdateSupplierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	supplier, err := h.service.Update(c.Request.Context(), middleware.GetActorID(c), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": supplier})
}

// UpdateCredentials replaces the stored API key
func (h *SupplierHandler) UpdateCredentials(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req models.SupplierCredentials
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if strings.TrimSpace(req.APIKey) == "" {
		badRequest(c, "apiKey is required")
		return
	}

	if err := h.service.UpdateCredentials(c.Request.Context(), middleware.GetActorID(c), id, &req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "credentials updated"})
}

// Delete removes a supplier
func (h *SupplierHandler) Delete(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), middleware.GetActorID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "supplier deleted"})
}

// TestConnection authenticates against the supplier API
func (h *SupplierHandler) TestConnection(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	if err := h.service.TestConnection(c.Request.Context(), id); err != nil {
		c.JSON(statusFor(err), gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "connection test successful",
	})
}
