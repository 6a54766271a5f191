package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"dropship-service/internal/clients"
	"dropship-service/internal/clients/cj"
	"dropship-service/internal/export"
	"dropship-service/internal/middleware"
	"dropship-service/internal/repository"
	"dropship-service/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// statusFor maps service and repository errors to HTTP status codes
func statusFor(err error) int {
	var apiErr *cj.APIError
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, services.ErrCartEmpty),
		errors.Is(err, services.ErrProductUnavailable),
		errors.Is(err, services.ErrMissingSupplierItem),
		errors.Is(err, services.ErrCategoryNotMapped),
		errors.Is(err, services.ErrInvalidWebhookPayload):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrInvalidWebhookToken):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrAccountDisabled):
		return http.StatusForbidden
	case errors.Is(err, repository.ErrDuplicate),
		errors.Is(err, services.ErrSlugTaken),
		errors.Is(err, services.ErrEmailTaken),
		errors.Is(err, services.ErrCategoryInUse),
		errors.Is(err, services.ErrInsufficientStock),
		errors.Is(err, services.ErrOrderNotCancellable),
		errors.Is(err, services.ErrAlreadyPlaced),
		errors.Is(err, services.ErrPlacementInProgress),
		errors.Is(err, services.ErrJobAlreadyRunning),
		errors.Is(err, services.ErrJobNotRunning):
		return http.StatusConflict
	case errors.Is(err, services.ErrSupplierNotConfigured),
		errors.Is(err, services.ErrSupplierDisabled):
		return http.StatusPreconditionFailed
	case errors.Is(err, services.ErrTooManyJobs):
		return http.StatusTooManyRequests
	case errors.Is(err, clients.ErrCircuitOpen),
		errors.Is(err, services.ErrShuttingDown):
		return http.StatusServiceUnavailable
	case errors.As(err, &apiErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// respondError writes the error envelope. Internal errors are attached to
// the gin context for the request logger and never echoed to clients.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message})
}

// pagination reads limit/offset query parameters
func pagination(c *gin.Context) (int, int) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if err != nil || limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}

func paramUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func queryUUID(c *gin.Context, name string) (*uuid.UUID, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		badRequest(c, "invalid "+name)
		return nil, false
	}
	return &id, true
}

// currentUser returns the authenticated caller or writes a 401
func currentUser(c *gin.Context) (uuid.UUID, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return uuid.Nil, false
	}
	return userID, true
}

func listResponse(c *gin.Context, data interface{}, total int64, limit, offset int) {
	c.JSON(http.StatusOK, gin.H{
		"data":   data,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// sendWorkbook streams an XLSX file as an attachment
func sendWorkbook(c *gin.Context, f *excelize.File, prefix string) {
	defer f.Close()
	buf, err := f.WriteToBuffer()
	if err != nil {
		respondError(c, fmt.Errorf("failed to render workbook: %w", err))
		return
	}
	filename := fmt.Sprintf("%s-%s.xlsx", prefix, time.Now().UTC().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, export.ContentTypeXLSX, buf.Bytes())
}
