package handlers

import (
	"net/http"
	"strings"

	"dropship-service/internal/repository"
	"dropship-service/internal/services"
	"github.com/gin-gonic/gin"
)

// AuditHandler handles audit log queries for administrators
type AuditHandler struct {
	auditService *services.AuditService
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(auditService *services.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

// GetAuditLogs returns audit entries filtered by action, resource or actor
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	limit, offset := pagination(c)
	opts := repository.AuditListOptions{
		Action:       strings.ToUpper(c.Query("action")),
		ResourceType: strings.ToUpper(c.Query("resourceType")),
		ResourceID:   c.Query("resourceId"),
		ActorID:      c.Query("actorId"),
		Limit:        limit,
		Offset:       offset,
	}

	logs, total, err := h.auditService.List(c.Request.Context(), opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve audit logs"})
		return
	}
	listResponse(c, logs, total, limit, offset)
}
