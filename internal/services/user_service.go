package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"dropship-service/internal/auth"
	"dropship-service/internal/models"
	"dropship-service/internal/repository"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// UserService handles accounts and authentication
type UserService struct {
	repo   repository.UserRepositoryInterface
	tokens *auth.TokenManager
	audit  *AuditService
	logger *logrus.Entry
}

// NewUserService creates a new user service
func NewUserService(repo repository.UserRepositoryInterface, tokens *auth.TokenManager, audit *AuditService, logger *logrus.Logger) *UserService {
	return &UserService{
		repo:   repo,
		tokens: tokens,
		audit:  audit,
		logger: logger.WithField("component", "users"),
	}
}

// Register creates a customer account and signs it in
func (s *UserService) Register(ctx context.Context, req *models.RegisterRequest) (*models.AuthResponse, error) {
	email := normalizeEmail(req.Email)
	if email == "" {
		return nil, invalid("email is required")
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrWeakPassword) {
			return nil, invalid("password must be at least 8 characters")
		}
		return nil, err
	}

	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Phone:        strings.TrimSpace(req.Phone),
		Role:         models.RoleCustomer,
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.WithField("userId", user.ID).Info("User registered")
	return s.issue(user)
}

// Login verifies credentials and issues a token pair
func (s *UserService) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error) {
	user, err := s.repo.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !auth.VerifyPassword(user.PasswordHash, req.Password) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}

	if err := s.repo.TouchLogin(ctx, user.ID); err != nil {
		s.logger.WithError(err).WithField("userId", user.ID).Warn("Failed to record login time")
	}
	return s.issue(user)
}

// Refresh exchanges a refresh token for a new pair. The user is reloaded so
// role changes and deactivation take effect immediately.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*models.AuthResponse, error) {
	claims, err := s.tokens.ParseAndValidate(refreshToken, auth.TokenTypeRefresh)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	user, err := s.repo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}
	return s.issue(user)
}

// Me returns the caller's account
func (s *UserService) Me(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	return s.repo.GetByID(ctx, userID)
}

// UpdateProfile changes the caller's own name and phone
func (s *UserService) UpdateProfile(ctx context.Context, userID uuid.UUID, req *models.UpdateProfileRequest) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if req.FirstName != nil {
		user.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		user.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.Phone != nil {
		user.Phone = strings.TrimSpace(*req.Phone)
	}
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return user, nil
}

// List lists users for administration
func (s *UserService) List(ctx context.Context, opts repository.UserListOptions) ([]models.User, int64, error) {
	return s.repo.List(ctx, opts)
}

// Get retrieves a user by ID
func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.repo.GetByID(ctx, id)
}

// AdminUpdate changes a user's role or active flag. Admins cannot demote
// or disable themselves.
func (s *UserService) AdminUpdate(ctx context.Context, actorID uuid.UUID, id uuid.UUID, req *models.AdminUpdateUserRequest) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	old := models.JSONB{"role": user.Role, "isActive": user.IsActive}

	if req.Role != nil {
		if !req.Role.Valid() {
			return nil, invalid("unknown role %q", *req.Role)
		}
		if actorID == id && *req.Role != models.RoleAdmin {
			return nil, invalid("admins cannot remove their own admin role")
		}
		user.Role = *req.Role
	}
	if req.IsActive != nil {
		if actorID == id && !*req.IsActive {
			return nil, invalid("admins cannot disable their own account")
		}
		user.IsActive = *req.IsActive
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	s.audit.LogChange(ctx, actorID.String(), models.ActionUserUpdate, models.ResourceUser, id.String(), old,
		models.JSONB{"role": user.Role, "isActive": user.IsActive})
	return user, nil
}

// Delete removes a user with their cart and wishlist
func (s *UserService) Delete(ctx context.Context, actorID uuid.UUID, id uuid.UUID) error {
	if actorID == id {
		return invalid("admins cannot delete their own account")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.audit.UserAction(ctx, actorID.String(), models.ActionUserDelete, models.ResourceUser, id.String(), nil)
	return nil
}

// EnsureAdmin creates the bootstrap administrator when it does not exist yet
func (s *UserService) EnsureAdmin(ctx context.Context, email, password string) error {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil
	}
	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("bootstrap admin password: %w", err)
	}
	admin := &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, admin); err != nil && !errors.Is(err, repository.ErrDuplicate) {
		return err
	}
	s.logger.WithField("email", email).Info("Bootstrap admin created")
	return nil
}

func (s *UserService) issue(user *models.User) (*models.AuthResponse, error) {
	pair, err := s.tokens.IssueTokenPair(user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue tokens: %w", err)
	}
	return &models.AuthResponse{
		User:         user,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.AccessExpiresAt,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
