package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"dropship-service/internal/models"
	"dropship-service/internal/repository"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// CategoryService manages the internal storefront category tree
type CategoryService struct {
	repo   repository.CategoryRepositoryInterface
	logger *logrus.Entry
}

// NewCategoryService creates a new category service
func NewCategoryService(repo repository.CategoryRepositoryInterface, logger *logrus.Logger) *CategoryService {
	return &CategoryService{
		repo:   repo,
		logger: logger.WithField("component", "category"),
	}
}

// List returns a flat, paginated page of categories
func (s *CategoryService) List(ctx context.Context, opts repository.CategoryListOptions) ([]models.Category, int64, error) {
	return s.repo.List(ctx, opts)
}

// Get retrieves a category by ID
func (s *CategoryService) Get(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	return s.repo.GetByID(ctx, id)
}

// GetBySlug retrieves a category by slug
func (s *CategoryService) GetBySlug(ctx context.Context, slug string) (*models.Category, error) {
	return s.repo.GetBySlug(ctx, slug)
}

// Tree returns the root categories with their descendants attached
func (s *CategoryService) Tree(ctx context.Context, activeOnly bool) ([]*models.Category, error) {
	all, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return buildTree(all, activeOnly), nil
}

// buildTree links categories by parent. Children of an inactive category are
// hidden with it when activeOnly is set; orphans become roots.
func buildTree(all []models.Category, activeOnly bool) []*models.Category {
	nodes := make(map[uuid.UUID]*models.Category, len(all))
	for i := range all {
		c := all[i]
		c.Children = nil
		nodes[c.ID] = &c
	}

	var roots []*models.Category
	for i := range all {
		node := nodes[all[i].ID]
		if activeOnly && !node.IsActive {
			continue
		}
		if node.ParentID != nil {
			if parent, ok := nodes[*node.ParentID]; ok {
				if activeOnly && !parent.IsActive {
					continue
				}
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}

	sortCategories(roots)
	return roots
}

func sortCategories(list []*models.Category) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Position != list[j].Position {
			return list[i].Position < list[j].Position
		}
		return list[i].Name < list[j].Name
	})
	for _, c := range list {
		sortCategories(c.Children)
	}
}

// Create creates a category, deriving the slug from the name when empty
func (s *CategoryService) Create(ctx context.Context, req *models.CreateCategoryRequest) (*models.Category, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalid("name is required")
	}
	slug := strings.TrimSpace(req.Slug)
	if slug == "" {
		slug = generateSlug(name)
	}
	if slug == "" {
		return nil, invalid("slug cannot be derived from name %q", name)
	}
	if err := s.ensureSlugFree(ctx, slug, nil); err != nil {
		return nil, err
	}

	category := &models.Category{
		ID:          uuid.New(),
		Name:        name,
		Slug:        slug,
		Description: req.Description,
		Position:    req.Position,
		ImageURL:    req.ImageURL,
		IsActive:    true,
	}
	if req.IsActive != nil {
		category.IsActive = *req.IsActive
	}
	if req.ParentID != nil {
		parent, err := s.repo.GetByID(ctx, *req.ParentID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, invalid("parent category %s does not exist", *req.ParentID)
			}
			return nil, err
		}
		category.ParentID = &parent.ID
		category.Level = parent.Level + 1
	}

	if err := s.repo.Create(ctx, category); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrSlugTaken
		}
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	s.logger.WithFields(logrus.Fields{"categoryId": category.ID, "slug": slug}).Info("Category created")
	return category, nil
}

// Update applies a partial update to a category
func (s *CategoryService) Update(ctx context.Context, id uuid.UUID, req *models.UpdateCategoryRequest) (*models.Category, error) {
	category, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, invalid("name must not be empty")
		}
		category.Name = name
	}
	if req.Slug != nil {
		slug := strings.TrimSpace(*req.Slug)
		if slug == "" {
			slug = generateSlug(category.Name)
		}
		if slug != category.Slug {
			if err := s.ensureSlugFree(ctx, slug, &category.ID); err != nil {
				return nil, err
			}
			category.Slug = slug
		}
	}
	if req.Description != nil {
		category.Description = *req.Description
	}
	if req.Position != nil {
		category.Position = *req.Position
	}
	if req.ImageURL != nil {
		category.ImageURL = *req.ImageURL
	}
	if req.IsActive != nil {
		category.IsActive = *req.IsActive
	}
	if req.ParentID != nil {
		if err := s.reparent(ctx, category, *req.ParentID); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Update(ctx, category); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrSlugTaken
		}
		return nil, fmt.Errorf("failed to update category: %w", err)
	}
	return category, nil
}

// reparent moves a category under a new parent. uuid.Nil makes it a root.
func (s *CategoryService) reparent(ctx context.Context, category *models.Category, parentID uuid.UUID) error {
	if parentID == uuid.Nil {
		category.ParentID = nil
		category.Level = 0
		return nil
	}
	if parentID == category.ID {
		return invalid("a category cannot be its own parent")
	}

	all, err := s.repo.ListAll(ctx)
	if err != nil {
		return err
	}
	byID := make(map[uuid.UUID]models.Category, len(all))
	for _, c := range all {
		byID[c.ID] = c
	}
	parent, ok := byID[parentID]
	if !ok {
		return invalid("parent category %s does not exist", parentID)
	}
	for cur := parent.ParentID; cur != nil; {
		if *cur == category.ID {
			return invalid("moving the category under %s would create a cycle", parentID)
		}
		next, ok := byID[*cur]
		if !ok {
			break
		}
		cur = next.ParentID
	}

	category.ParentID = &parent.ID
	category.Level = parent.Level + 1
	return nil
}

// Delete removes a category that has neither products nor children
func (s *CategoryService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	children, err := s.repo.CountChildren(ctx, id)
	if err != nil {
		return err
	}
	products, err := s.repo.CountProducts(ctx, id)
	if err != nil {
		return err
	}
	if children > 0 || products > 0 {
		return fmt.Errorf("%w (%d products, %d children)", ErrCategoryInUse, products, children)
	}
	return s.repo.Delete(ctx, id)
}

func (s *CategoryService) ensureSlugFree(ctx context.Context, slug string, excludeID *uuid.UUID) error {
	exists, err := s.repo.SlugExists(ctx, slug, excludeID)
	if err != nil {
		return err
	}
	if exists {
		return ErrSlugTaken
	}
	return nil
}
