package services

import (
	"context"
	"testing"

	"dropship-service/internal/models"
	"dropship-service/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestBuildTree(t *testing.T) {
	home := models.Category{ID: uuid.New(), Name: "Home", Position: 2, IsActive: true}
	garden := models.Category{ID: uuid.New(), Name: "Garden", Position: 1, IsActive: true}
	lighting := models.Category{ID: uuid.New(), Name: "Lighting", ParentID: &home.ID, Level: 1, IsActive: true}
	hidden := models.Category{ID: uuid.New(), Name: "Clearance", ParentID: &home.ID, Level: 1, IsActive: false}
	lamps := models.Category{ID: uuid.New(), Name: "Lamps", ParentID: &hidden.ID, Level: 2, IsActive: true}

	all := []models.Category{lamps, home, lighting, hidden, garden}

	t.Run("full tree", func(t *testing.T) {
		roots := buildTree(all, false)
		require.Len(t, roots, 2)
		assert.Equal(t, "Garden", roots[0].Name)
		assert.Equal(t, "Home", roots[1].Name)
		require.Len(t, roots[1].Children, 2)
		assert.Equal(t, "Clearance", roots[1].Children[0].Name)
		require.Len(t, roots[1].Children[0].Children, 1)
	})

	t.Run("active only hides inactive branches", func(t *testing.T) {
		roots := buildTree(all, true)
		require.Len(t, roots, 2)
		require.Len(t, roots[1].Children, 1)
		assert.Equal(t, "Lighting", roots[1].Children[0].Name)
	})
}

func TestCreateCategory(t *testing.T) {
	t.Run("child of parent", func(t *testing.T) {
		repo := new(MockCategoryRepository)
		svc := NewCategoryService(repo, testLogger())
		parent := &models.Category{ID: uuid.New(), Name: "Home", Level: 0}
		repo.On("SlugExists", mock.Anything, "desk-lamps", (*uuid.UUID)(nil)).Return(false, nil)
		repo.On("GetByID", mock.Anything, parent.ID).Return(parent, nil)
		repo.On("Create", mock.Anything, mock.AnythingOfType("*models.Category")).Return(nil)

		category, err := svc.Create(context.Background(), &models.CreateCategoryRequest{Name: "Desk Lamps", ParentID: &parent.ID})
		require.NoError(t, err)
		assert.Equal(t, "desk-lamps", category.Slug)
		assert.Equal(t, 1, category.Level)
		assert.True(t, category.IsActive)
	})

	t.Run("duplicate slug", func(t *testing.T) {
		repo := new(MockCategoryRepository)
		svc := NewCategoryService(repo, testLogger())
		repo.On("SlugExists", mock.Anything, "lamps", (*uuid.UUID)(nil)).Return(true, nil)

		_, err := svc.Create(context.Background(), &models.CreateCategoryRequest{Name: "Lamps"})
		assert.ErrorIs(t, err, ErrSlugTaken)
	})

	t.Run("missing parent", func(t *testing.T) {
		repo := new(MockCategoryRepository)
		svc := NewCategoryService(repo, testLogger())
		parentID := uuid.New()
		repo.On("SlugExists", mock.Anything, "lamps", (*uuid.UUID)(nil)).Return(false, nil)
		repo.On("GetByID", mock.Anything, parentID).Return(nil, repository.ErrNotFound)

		_, err := svc.Create(context.Background(), &models.CreateCategoryRequest{Name: "Lamps", ParentID: &parentID})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestUpdateCategory_RejectsCycle(t *testing.T) {
	repo := new(MockCategoryRepository)
	svc := NewCategoryService(repo, testLogger())
	root := models.Category{ID: uuid.New(), Name: "Home"}
	child := models.Category{ID: uuid.New(), Name: "Lighting", ParentID: &root.ID, Level: 1}
	grandchild := models.Category{ID: uuid.New(), Name: "Lamps", ParentID: &child.ID, Level: 2}
	repo.On("GetByID", mock.Anything, root.ID).Return(&root, nil)
	repo.On("ListAll", mock.Anything).Return([]models.Category{root, child, grandchild}, nil)

	_, err := svc.Update(context.Background(), root.ID, &models.UpdateCategoryRequest{ParentID: &grandchild.ID})
	assert.ErrorIs(t, err, ErrInvalidInput)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestUpdateCategory_MoveToRoot(t *testing.T) {
	repo := new(MockCategoryRepository)
	svc := NewCategoryService(repo, testLogger())
	parentID := uuid.New()
	category := &models.Category{ID: uuid.New(), Name: "Lamps", Slug: "lamps", ParentID: &parentID, Level: 1}
	repo.On("GetByID", mock.Anything, category.ID).Return(category, nil)
	repo.On("Update", mock.Anything, category).Return(nil)

	nilID := uuid.Nil
	updated, err := svc.Update(context.Background(), category.ID, &models.UpdateCategoryRequest{ParentID: &nilID})
	require.NoError(t, err)
	assert.Nil(t, updated.ParentID)
	assert.Equal(t, 0, updated.Level)
}

func TestDeleteCategory(t *testing.T) {
	t.Run("in use", func(t *testing.T) {
		repo := new(MockCategoryRepository)
		svc := NewCategoryService(repo, testLogger())
		id := uuid.New()
		repo.On("GetByID", mock.Anything, id).Return(&models.Category{ID: id}, nil)
		repo.On("CountChildren", mock.Anything, id).Return(int64(0), nil)
		repo.On("CountProducts", mock.Anything, id).Return(int64(3), nil)

		err := svc.Delete(context.Background(), id)
		assert.ErrorIs(t, err, ErrCategoryInUse)
		repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("empty category", func(t *testing.T) {
		repo := new(MockCategoryRepository)
		svc := NewCategoryService(repo, testLogger())
		id := uuid.New()
		repo.On("GetByID", mock.Anything, id).Return(&models.Category{ID: id}, nil)
		repo.On("CountChildren", mock.Anything, id).Return(int64(0), nil)
		repo.On("CountProducts", mock.Anything, id).Return(int64(0), nil)
		repo.On("Delete", mock.Anything, id).Return(nil)

		require.NoError(t, svc.Delete(context.Background(), id))
		repo.AssertExpectations(t)
	})
}
