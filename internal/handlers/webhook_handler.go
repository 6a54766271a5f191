package handlers

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"dropship-service/internal/middleware"
	"dropship-service/internal/repository"
	"dropship-service/internal/services"
	"github.com/gin-gonic/gin"
)

const (
	webhookTokenHeader = "CJ-Webhook-Token"
	maxWebhookBody     = 1 << 20
)

// WebhookHandler handles supplier webhook deliveries and their administration
type WebhookHandler struct {
	service *services.WebhookService
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(service *services.WebhookService) *WebhookHandler {
	return &WebhookHandler{service: service}
}

// HandleCJWebhook receives a CJ Dropshipping callback
func (h *WebhookHandler) HandleCJWebhook(c *gin.Context) {
	token := c.GetHeader(webhookTokenHeader)
	if token == "" {
		token = c.Query("token")
	}
	if err := h.service.VerifyToken(token); err != nil {
		respondError(c, err)
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		badRequest(c, "failed to read body")
		return
	}

	ack, err := h.service.Receive(c.Request.Context(), payload)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ack)
}

// ListEvents returns stored webhook events
func (h *WebhookHandler) ListEvents(c *gin.Context) {
	limit, offset := pagination(c)
	opts := repository.WebhookListOptions{
		EventType:  strings.ToUpper(c.Query("type")),
		FailedOnly: c.Query("failed") == "true",
		Limit:      limit,
		Offset:     offset,
	}
	if raw := c.Query("processed"); raw != "" {
		processed, err := strconv.ParseBool(raw)
		if err != nil {
			badRequest(c, "invalid processed")
			return
		}
		opts.Processed = &processed
	}

	events, total, err := h.service.ListEvents(c.Request.Context(), opts)
	if err != nil {
		respondError(c, err)
		return
	}
	listResponse(c, events, total, limit, offset)
}

// GetEvent returns a single webhook event with its payload
func (h *WebhookHandler) GetEvent(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	event, err := h.service.GetEvent(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": event})
}

// ReplayEvent processes a stored event again
func (h *WebhookHandler) ReplayEvent(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	event, err := h.service.Replay(c.Request.Context(), middleware.GetActorID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": event})
}
