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

// OrderHandler handles customer checkout and order administration
type OrderHandler struct {
	service   *services.OrderService
	suppliers *services.SupplierService
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(service *services.OrderService, suppliers *services.SupplierService) *OrderHandler {
	return &OrderHandler{service: service, suppliers: suppliers}
}

// Checkout turns the caller's cart into an order
func (h *OrderHandler) Checkout(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req models.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	order, err := h.service.Checkout(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": order})
}

// ListOwn returns the caller's orders
func (h *OrderHandler) ListOwn(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	limit, offset := pagination(c)

	orders, total, err := h.service.ListOwn(c.Request.Context(), userID, repository.OrderListOptions{
		Status: strings.ToUpper(c.Query("status")),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	listResponse(c, orders, total, limit, offset)
}

// GetOwn returns one of the caller's orders
func (h *OrderHandler) GetOwn(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	order, err := h.service.GetOwn(c.Request.Context(), userID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": order})
}

// CancelOwn cancels one of the caller's orders before it reaches the supplier
func (h *OrderHandler) CancelOwn(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	order, err := h.service.CancelOwn(c.Request.Context(), userID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": order})
}

// List returns all orders
func (h *OrderHandler) List(c *gin.Context) {
	limit, offset := pagination(c)
	opts := repository.OrderListOptions{
		Status: strings.ToUpper(c.Query("status")),
		Limit:  limit,
		Offset: offset,
	}
	var ok bool
	if opts.UserID, ok = queryUUID(c, "userId"); !ok {
		return
	}

	orders, total, err := h.service.List(c.Request.Context(), opts)
	if err != nil {
		respondError(c, err)
		return
	}
	listResponse(c, orders, total, limit, offset)
}

// Get returns any order by ID
func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	order, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": order})
}

// UpdateStatus changes an order's status and tracking number
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req models.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	order, err := h.service.UpdateStatus(c.Request.Context(), middleware.GetActorID(c), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": order})
}

// PlaceWithSupplier forwards an order to the dropshipping supplier
func (h *OrderHandler) PlaceWithSupplier(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req models.PlaceSupplierOrderRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
	}

	order, err := h.service.PlaceWithSupplier(c.Request.Context(), middleware.GetActorID(c), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": order})
}

// FreightQuote asks the supplier for shipping options
func (h *OrderHandler) FreightQuote(c *gin.Context) {
	var req models.FreightQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	supplierID, ok := resolveSupplier(c, h.suppliers)
	if !ok {
		return
	}

	options, err := h.service.FreightQuote(c.Request.Context(), supplierID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": options})
}
