package handlers

import (
	"net/http"
	"strings"

	"dropship-service/internal/middleware"
	"dropship-service/internal/models"
	"dropship-service/internal/repository"
	"dropship-service/internal/services"
	"github.com/gin-gonic/gin"
)

// SyncHandler handles sync job endpoints
type SyncHandler struct {
	service *services.SyncService
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(service *services.SyncService) *SyncHandler {
	return &SyncHandler{service: service}
}

// ListJobs returns sync jobs, newest first
func (h *SyncHandler) ListJobs(c *gin.Context) {
	limit, offset := pagination(c)
	opts := repository.SyncListOptions{
		Status:   strings.ToUpper(c.Query("status")),
		SyncType: strings.ToUpper(c.Query("syncType")),
		Limit:    limit,
		Offset:   offset,
	}
	supplierID, ok := queryUUID(c, "supplierId")
	if !ok {
		return
	}
	if supplierID != nil {
		opts.SupplierID = *supplierID
	}

	jobs, total, err := h.service.ListJobs(c.Request.Context(), opts)
	if err != nil {
		respondError(c, err)
		return
	}
	listResponse(c, jobs, total, limit, offset)
}

// CreateJob starts a sync job in the background
func (h *SyncHandler) CreateJob(c *gin.Context) {
	var req models.CreateSyncJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	req.SyncType = models.SyncType(strings.ToUpper(string(req.SyncType)))
	if !req.SyncType.Valid() {
		badRequest(c, "syncType must be one of CATEGORIES, PRODUCTS, STOCK")
		return
	}

	job, err := h.service.StartJob(c.Request.Context(), middleware.GetActorID(c), req.SupplierID, req.SyncType, models.TriggerManual)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"data": job})
}

// GetJob returns a single sync job
func (h *SyncHandler) GetJob(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	job, err := h.service.GetJob(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": job})
}

// CancelJob cancels a running sync job
func (h *SyncHandler) CancelJob(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	if err := h.service.CancelJob(c.Request.Context(), middleware.GetActorID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "job cancelled"})
}

// GetJobLogs returns logs for a sync job
func (h *SyncHandler) GetJobLogs(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	limit, offset := pagination(c)

	logs, err := h.service.GetJobLogs(c.Request.Context(), id, repository.LogListOptions{
		Level:  strings.ToLower(c.Query("level")),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": logs})
}

// GetStats returns job counters, optionally for one supplier
func (h *SyncHandler) GetStats(c *gin.Context) {
	supplierID, ok := queryUUID(c, "supplierId")
	if !ok {
		return
	}

	stats, err := h.service.GetStats(c.Request.Context(), supplierID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data":    stats,
		"limiter": h.service.LimiterStats(),
	})
}
