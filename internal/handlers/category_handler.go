package handlers

import (
	"net/http"
	"strings"

	"dropship-service/internal/models"
	"dropship-service/internal/repository"
	"dropship-service/internal/services"
	"github.com/gin-gonic/gin"
)

// CategoryHandler handles store category endpoints
type CategoryHandler struct {
	service *services.CategoryService
}

// NewCategoryHandler creates a new category handler
func NewCategoryHandler(service *services.CategoryService) *CategoryHandler {
	return &CategoryHandler{service: service}
}

// Tree returns the active category tree for the storefront
func (h *CategoryHandler) Tree(c *gin.Context) {
	tree, err := h.service.Tree(c.Request.Context(), true)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": tree})
}

// GetBySlug returns an active category by slug
func (h *CategoryHandler) GetBySlug(c *gin.Context) {
	category, err := h.service.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	if !category.IsActive {
		respondError(c, repository.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": category})
}

// AdminTree returns every category including inactive branches
func (h *CategoryHandler) AdminTree(c *gin.Context) {
	tree, err := h.service.Tree(c.Request.Context(), false)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": tree})
}

// List returns a flat, paginated category list
func (h *CategoryHandler) List(c *gin.Context) {
	limit, offset := pagination(c)
	opts := repository.CategoryListOptions{
		ActiveOnly: c.Query("active") == "true",
		Search:     strings.TrimSpace(c.Query("q")),
		Limit:      limit,
		Offset:     offset,
	}
	var ok bool
	if opts.ParentID, ok = queryUUID(c, "parentId"); !ok {
		return
	}

	categories, total, err := h.service.List(c.Request.Context(), opts)
	if err != nil {
		respondError(c, err)
		return
	}
	listResponse(c, categories, total, limit, offset)
}

// Get returns a category by ID
func (h *CategoryHandler) Get(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	category, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": category})
}

// Create creates a category
func (h *CategoryHandler) Create(c *gin.Context) {
	var req models.CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	category, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": category})
}

// Update applies a partial category update
func (h *CategoryHandler) Update(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req models.UpdateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	category, err := h.service.Update(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": category})
}

// Delete removes an empty category
func (h *CategoryHandler) Delete(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "category deleted"})
}
