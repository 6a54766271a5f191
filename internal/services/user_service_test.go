package services

import (
	"context"
	"testing"
	"time"

	"dropship-service/internal/auth"
	"dropship-service/internal/models"
	"dropship-service/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestUserService(t *testing.T) (*UserService, *MockUserRepository, *auth.TokenManager) {
	t.Helper()
	tokens, err := auth.NewTokenManager("test-secret", "dropship-service", time.Minute, time.Hour)
	require.NoError(t, err)
	repo := new(MockUserRepository)
	return NewUserService(repo, tokens, nil, testLogger()), repo, tokens
}

func storedUser(t *testing.T, password string) *models.User {
	t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)
	return &models.User{ID: uuid.New(), Email: "ada@example.com", PasswordHash: hash, Role: models.RoleCustomer, IsActive: true}
}

func TestRegister(t *testing.T) {
	svc, repo, tokens := newTestUserService(t)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(u *models.User) bool {
		return u.Email == "ada@example.com" && u.Role == models.RoleCustomer && u.PasswordHash != "long-enough"
	})).Return(nil)

	resp, err := svc.Register(context.Background(), &models.RegisterRequest{Email: "  Ada@Example.com ", Password: "long-enough"})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", resp.User.Email)

	claims, err := tokens.ParseAndValidate(resp.AccessToken, auth.TokenTypeAccess)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)
	assert.Equal(t, models.RoleCustomer, claims.Role)
}

func TestRegister_Errors(t *testing.T) {
	t.Run("weak password", func(t *testing.T) {
		svc, _, _ := newTestUserService(t)
		_, err := svc.Register(context.Background(), &models.RegisterRequest{Email: "a@b.co", Password: "short"})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("email taken", func(t *testing.T) {
		svc, repo, _ := newTestUserService(t)
		repo.On("Create", mock.Anything, mock.Anything).Return(repository.ErrDuplicate)
		_, err := svc.Register(context.Background(), &models.RegisterRequest{Email: "a@b.co", Password: "long-enough"})
		assert.ErrorIs(t, err, ErrEmailTaken)
	})
}

func TestLogin(t *testing.T) {
	t.Run("success touches login time", func(t *testing.T) {
		svc, repo, _ := newTestUserService(t)
		user := storedUser(t, "correct-horse")
		repo.On("GetByEmail", mock.Anything, "ada@example.com").Return(user, nil)
		repo.On("TouchLogin", mock.Anything, user.ID).Return(nil)

		resp, err := svc.Login(context.Background(), &models.LoginRequest{Email: "ADA@example.com", Password: "correct-horse"})
		require.NoError(t, err)
		assert.NotEmpty(t, resp.RefreshToken)
		repo.AssertExpectations(t)
	})

	t.Run("wrong password", func(t *testing.T) {
		svc, repo, _ := newTestUserService(t)
		repo.On("GetByEmail", mock.Anything, "ada@example.com").Return(storedUser(t, "correct-horse"), nil)

		_, err := svc.Login(context.Background(), &models.LoginRequest{Email: "ada@example.com", Password: "battery-staple"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		svc, repo, _ := newTestUserService(t)
		repo.On("GetByEmail", mock.Anything, "nobody@example.com").Return(nil, repository.ErrNotFound)

		_, err := svc.Login(context.Background(), &models.LoginRequest{Email: "nobody@example.com", Password: "whatever1"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("disabled account", func(t *testing.T) {
		svc, repo, _ := newTestUserService(t)
		user := storedUser(t, "correct-horse")
		user.IsActive = false
		repo.On("GetByEmail", mock.Anything, "ada@example.com").Return(user, nil)

		_, err := svc.Login(context.Background(), &models.LoginRequest{Email: "ada@example.com", Password: "correct-horse"})
		assert.ErrorIs(t, err, ErrAccountDisabled)
	})
}

func TestRefresh(t *testing.T) {
	svc, repo, tokens := newTestUserService(t)
	user := storedUser(t, "correct-horse")
	pair, err := tokens.IssueTokenPair(user)
	require.NoError(t, err)

	t.Run("access token rejected", func(t *testing.T) {
		_, err := svc.Refresh(context.Background(), pair.AccessToken)
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("reloads role", func(t *testing.T) {
		promoted := *user
		promoted.Role = models.RoleAdmin
		repo.On("GetByID", mock.Anything, user.ID).Return(&promoted, nil).Once()

		resp, err := svc.Refresh(context.Background(), pair.RefreshToken)
		require.NoError(t, err)
		claims, err := tokens.ParseAndValidate(resp.AccessToken, auth.TokenTypeAccess)
		require.NoError(t, err)
		assert.Equal(t, models.RoleAdmin, claims.Role)
	})
}

func TestAdminUpdate_SelfProtection(t *testing.T) {
	svc, repo, _ := newTestUserService(t)
	admin := &models.User{ID: uuid.New(), Role: models.RoleAdmin, IsActive: true}
	repo.On("GetByID", mock.Anything, admin.ID).Return(admin, nil)

	customer := models.RoleCustomer
	_, err := svc.AdminUpdate(context.Background(), admin.ID, admin.ID, &models.AdminUpdateUserRequest{Role: &customer})
	assert.ErrorIs(t, err, ErrInvalidInput)

	disabled := false
	_, err = svc.AdminUpdate(context.Background(), admin.ID, admin.ID, &models.AdminUpdateUserRequest{IsActive: &disabled})
	assert.ErrorIs(t, err, ErrInvalidInput)

	assert.ErrorIs(t, svc.Delete(context.Background(), admin.ID, admin.ID), ErrInvalidInput)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestAdminUpdate_PromotesUser(t *testing.T) {
	svc, repo, _ := newTestUserService(t)
	user := &models.User{ID: uuid.New(), Role: models.RoleCustomer, IsActive: true}
	repo.On("GetByID", mock.Anything, user.ID).Return(user, nil)
	repo.On("Update", mock.Anything, user).Return(nil)

	admin := models.RoleAdmin
	updated, err := svc.AdminUpdate(context.Background(), uuid.New(), user.ID, &models.AdminUpdateUserRequest{Role: &admin})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, updated.Role)
}

func TestEnsureAdmin(t *testing.T) {
	t.Run("creates missing admin", func(t *testing.T) {
		svc, repo, _ := newTestUserService(t)
		repo.On("GetByEmail", mock.Anything, "root@example.com").Return(nil, repository.ErrNotFound)
		repo.On("Create", mock.Anything, mock.MatchedBy(func(u *models.User) bool {
			return u.Role == models.RoleAdmin && u.IsActive
		})).Return(nil)

		require.NoError(t, svc.EnsureAdmin(context.Background(), "Root@example.com", "bootstrap-pass"))
		repo.AssertExpectations(t)
	})

	t.Run("existing admin untouched", func(t *testing.T) {
		svc, repo, _ := newTestUserService(t)
		repo.On("GetByEmail", mock.Anything, "root@example.com").Return(&models.User{ID: uuid.New()}, nil)

		require.NoError(t, svc.EnsureAdmin(context.Background(), "root@example.com", "bootstrap-pass"))
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("not configured", func(t *testing.T) {
		svc, repo, _ := newTestUserService(t)
		require.NoError(t, svc.EnsureAdmin(context.Background(), "", ""))
		repo.AssertNotCalled(t, "GetByEmail", mock.Anything, mock.Anything)
	})
}
