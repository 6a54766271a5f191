package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"dropship-service/internal/clients"
	"dropship-service/internal/clients/cj"
	"dropship-service/internal/config"
	"dropship-service/internal/models"
	"dropship-service/internal/repository"
	"dropship-service/internal/secrets"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DefaultSupplierCode is the code of the supplier bootstrapped from CJ_* settings
const DefaultSupplierCode = "CJ"

// ClientFactory builds an API client for a supplier from its stored secret
type ClientFactory func(supplier *models.Supplier, secret *secrets.SupplierSecret, tokens cj.TokenStore) (clients.SupplierClient, error)

// SupplierProvider resolves suppliers and their API clients. Catalog,
// mapping, sync, webhook and order services depend on this rather than
// on SupplierService directly.
type SupplierProvider interface {
	GetSupplier(ctx context.Context, id uuid.UUID) (*models.Supplier, error)
	Client(ctx context.Context, supplierID uuid.UUID) (clients.SupplierClient, *models.Supplier, error)
	DefaultSupplier(ctx context.Context) (*models.Supplier, error)
	RecordSync(ctx context.Context, supplierID uuid.UUID, at time.Time) error
}

// SupplierService handles supplier registration, credentials and clients
type SupplierService struct {
	repo          repository.SupplierRepositoryInterface
	store         secrets.Store
	config        *config.Config
	audit         *AuditService
	logger        *logrus.Entry
	clientFactory ClientFactory

	mu      sync.Mutex
	clients map[uuid.UUID]clients.SupplierClient
}

var _ SupplierProvider = (*SupplierService)(nil)

// NewSupplierService creates a new supplier service
func NewSupplierService(repo repository.SupplierRepositoryInterface, store secrets.Store, cfg *config.Config, audit *AuditService, logger *logrus.Logger) *SupplierService {
	return &SupplierService{
		repo:          repo,
		store:         store,
		config:        cfg,
		audit:         audit,
		logger:        logger.WithField("component", "suppliers"),
		clientFactory: newCJClientFactory(cfg),
		clients:       make(map[uuid.UUID]clients.SupplierClient),
	}
}

// SetClientFactory overrides how supplier clients are built
func (s *SupplierService) SetClientFactory(factory ClientFactory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clientFactory = factory
	s.clients = make(map[uuid.UUID]clients.SupplierClient)
}

func newCJClientFactory(cfg *config.Config) ClientFactory {
	return func(supplier *models.Supplier, secret *secrets.SupplierSecret, tokens cj.TokenStore) (clients.SupplierClient, error) {
		retry := clients.DefaultRetryConfig()
		rps := 1.0
		if cfg != nil {
			retry.MaxRetries = cfg.SyncMaxRetries
			if cfg.SyncRetryDelay > 0 {
				retry.InitialBackoff = cfg.SyncRetryDelay
			}
			if cfg.CJRateLimit > 0 {
				rps = float64(cfg.CJRateLimit)
			}
		}
		return cj.NewClient(cj.Config{
			BaseURL:           supplier.APIBaseURL,
			APIKey:            secret.APIKey,
			Email:             secret.Email,
			RequestsPerSecond: rps,
			Retry:             retry,
			TokenStore:        tokens,
		})
	}
}

// Create registers a supplier and stores its credentials
func (s *SupplierService) Create(ctx context.Context, actorID string, req *models.CreateSupplierRequest) (*models.Supplier, error) {
	supplierType := req.Type
	if supplierType == "" {
		supplierType = models.SupplierTypeCJ
	}
	if supplierType != models.SupplierTypeCJ {
		return nil, invalid("unsupported supplier type: %s", supplierType)
	}
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if code == "" || strings.TrimSpace(req.Name) == "" {
		return nil, invalid("name and code are required")
	}

	supplier := &models.Supplier{
		ID:         uuid.New(),
		Name:       strings.TrimSpace(req.Name),
		Code:       code,
		Type:       supplierType,
		APIBaseURL: req.APIBaseURL,
		Status:     models.SupplierPending,
		IsEnabled:  true,
		Settings:   req.Settings,
		CreatedBy:  actorID,
	}
	if supplier.APIBaseURL == "" && s.config != nil {
		supplier.APIBaseURL = s.config.CJBaseURL
	}

	if req.Credentials != nil {
		if err := s.storeCredentials(ctx, supplier, req.Credentials); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Create(ctx, supplier); err != nil {
		// best effort rollback of the secret
		if supplier.SecretReference != "" && s.store != nil {
			_ = s.store.DeleteSecret(ctx, supplier.SecretReference)
		}
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, invalid("supplier code %s already exists", code)
		}
		return nil, fmt.Errorf("failed to create supplier: %w", err)
	}

	s.audit.LogChange(ctx, actorID, models.ActionSupplierCreate, models.ResourceSupplier, supplier.ID.String(), nil, models.JSONB{
		"name": supplier.Name,
		"code": supplier.Code,
		"type": supplier.Type,
	})
	supplier.HasCredentials = supplier.SecretReference != ""
	return supplier, nil
}

// GetSupplier retrieves a supplier by ID
func (s *SupplierService) GetSupplier(ctx context.Context, id uuid.UUID) (*models.Supplier, error) {
	supplier, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	supplier.HasCredentials = supplier.SecretReference != ""
	return supplier, nil
}

// DefaultSupplier returns the CJ supplier bootstrapped at startup
func (s *SupplierService) DefaultSupplier(ctx context.Context) (*models.Supplier, error) {
	return s.repo.GetByCode(ctx, DefaultSupplierCode)
}

// RecordSync stamps the supplier's last successful sync
func (s *SupplierService) RecordSync(ctx context.Context, supplierID uuid.UUID, at time.Time) error {
	return s.repo.MarkSynced(ctx, supplierID, at)
}

// List retrieves suppliers
func (s *SupplierService) List(ctx context.Context, opts repository.SupplierListOptions) ([]models.Supplier, int64, error) {
	suppliers, total, err := s.repo.List(ctx, opts)
	if err != nil {
		return nil, 0, err
	}
	for i := range suppliers {
		suppliers[i].HasCredentials = suppliers[i].SecretReference != ""
	}
	return suppliers, total, nil
}

// Update updates a supplier's settings
func (s *SupplierService) Update(ctx context.Context, actorID string, id uuid.UUID, req *models.UpdateSupplierRequest) (*models.Supplier, error) {
	supplier, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	old := models.JSONB{"name": supplier.Name, "apiBaseUrl": supplier.APIBaseURL, "isEnabled": supplier.IsEnabled}

	if req.Name != nil {
		supplier.Name = strings.TrimSpace(*req.Name)
	}
	if req.APIBaseURL != nil {
		supplier.APIBaseURL = *req.APIBaseURL
	}
	if req.IsEnabled != nil {
		supplier.IsEnabled = *req.IsEnabled
	}
	if req.Settings != nil {
		supplier.Settings = req.Settings
	}

	if err := s.repo.Update(ctx, supplier); err != nil {
		return nil, err
	}
	s.forgetClient(id)

	s.audit.LogChange(ctx, actorID, models.ActionSupplierUpdate, models.ResourceSupplier, id.String(), old, models.JSONB{
		"name": supplier.Name, "apiBaseUrl": supplier.APIBaseURL, "isEnabled": supplier.IsEnabled,
	})
	supplier.HasCredentials = supplier.SecretReference != ""
	return supplier, nil
}

// UpdateCredentials replaces the stored API credentials and resets the error state
func (s *SupplierService) UpdateCredentials(ctx context.Context, actorID string, id uuid.UUID, creds *models.SupplierCredentials) error {
	if creds == nil || strings.TrimSpace(creds.APIKey) == "" {
		return invalid("apiKey is required")
	}
	supplier, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.storeCredentials(ctx, supplier, creds); err != nil {
		return err
	}

	supplier.Status = models.SupplierPending
	supplier.ErrorCount = 0
	supplier.LastError = ""
	if err := s.repo.Update(ctx, supplier); err != nil {
		return err
	}
	s.forgetClient(id)

	s.audit.UserAction(ctx, actorID, models.ActionCredentialUpdate, models.ResourceCredential, id.String(), nil)
	return nil
}

// TestConnection authenticates with the supplier and records the outcome
func (s *SupplierService) TestConnection(ctx context.Context, id uuid.UUID) error {
	client, _, err := s.Client(ctx, id)
	if err != nil {
		_ = s.repo.UpdateStatus(ctx, id, models.SupplierError, err.Error())
		return err
	}
	if err := client.TestConnection(ctx); err != nil {
		_ = s.repo.UpdateStatus(ctx, id, models.SupplierError, err.Error())
		return fmt.Errorf("connection test failed: %w", err)
	}
	return s.repo.UpdateStatus(ctx, id, models.SupplierConnected, "")
}

// Delete removes a supplier and its stored credentials
func (s *SupplierService) Delete(ctx context.Context, actorID string, id uuid.UUID) error {
	supplier, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if s.store != nil && supplier.SecretReference != "" {
		if err := s.store.DeleteSecret(ctx, supplier.SecretReference); err != nil {
			s.logger.WithError(err).WithField("supplierId", id).Warn("Failed to delete supplier secret")
		}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.forgetClient(id)

	s.audit.LogChange(ctx, actorID, models.ActionSupplierDelete, models.ResourceSupplier, id.String(), models.JSONB{
		"name": supplier.Name, "code": supplier.Code,
	}, nil)
	return nil
}

// Client returns a cached, initialized API client for a supplier
func (s *SupplierService) Client(ctx context.Context, supplierID uuid.UUID) (clients.SupplierClient, *models.Supplier, error) {
	supplier, err := s.repo.GetByID(ctx, supplierID)
	if err != nil {
		return nil, nil, err
	}
	if !supplier.IsEnabled {
		return nil, supplier, ErrSupplierDisabled
	}

	s.mu.Lock()
	if client, ok := s.clients[supplierID]; ok {
		s.mu.Unlock()
		return client, supplier, nil
	}
	factory := s.clientFactory
	s.mu.Unlock()

	if s.store == nil || supplier.SecretReference == "" {
		return nil, supplier, ErrSupplierNotConfigured
	}
	secret, err := s.store.GetSecret(ctx, supplier.SecretReference)
	if err != nil {
		if errors.Is(err, secrets.ErrSecretNotFound) {
			return nil, supplier, ErrSupplierNotConfigured
		}
		return nil, supplier, fmt.Errorf("failed to get credentials: %w", err)
	}

	client, err := factory(supplier, secret, &secretTokenStore{store: s.store, name: supplier.SecretReference})
	if err != nil {
		return nil, supplier, fmt.Errorf("failed to create supplier client: %w", err)
	}

	s.mu.Lock()
	s.clients[supplierID] = client
	s.mu.Unlock()
	return client, supplier, nil
}

// EnsureDefaultSupplier creates the CJ supplier from configuration on first start
func (s *SupplierService) EnsureDefaultSupplier(ctx context.Context) (*models.Supplier, error) {
	existing, err := s.repo.GetByCode(ctx, DefaultSupplierCode)
	if err == nil {
		if existing.SecretReference == "" && s.config.CJAPIKey != "" {
			err = s.UpdateCredentials(ctx, "system", existing.ID, &models.SupplierCredentials{APIKey: s.config.CJAPIKey, Email: s.config.CJEmail})
			if err != nil {
				return nil, err
			}
		}
		return existing, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	req := &models.CreateSupplierRequest{
		Name:       "CJ Dropshipping",
		Code:       DefaultSupplierCode,
		Type:       models.SupplierTypeCJ,
		APIBaseURL: s.config.CJBaseURL,
	}
	if s.config.CJAPIKey != "" {
		req.Credentials = &models.SupplierCredentials{APIKey: s.config.CJAPIKey, Email: s.config.CJEmail}
	}
	supplier, err := s.Create(ctx, "system", req)
	if err != nil {
		return nil, err
	}
	s.logger.WithField("supplierId", supplier.ID).Info("Registered default CJ supplier")
	return supplier, nil
}

func (s *SupplierService) storeCredentials(ctx context.Context, supplier *models.Supplier, creds *models.SupplierCredentials) error {
	if s.store == nil {
		return fmt.Errorf("secret store not configured")
	}
	name := supplier.SecretReference
	if name == "" {
		name = s.store.BuildSecretName(supplier.Code)
		if supplier.Code == DefaultSupplierCode && s.config != nil && s.config.CJSecretName != "" {
			name = s.config.CJSecretName
		}
	}

	secret := &secrets.SupplierSecret{
		SupplierCode: supplier.Code,
		APIKey:       strings.TrimSpace(creds.APIKey),
		Email:        strings.TrimSpace(creds.Email),
	}
	if err := s.store.PutSecret(ctx, name, secret); err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}
	supplier.SecretReference = name
	return nil
}

func (s *SupplierService) forgetClient(id uuid.UUID) {
	s.mu.Lock()
	delete(s.clients, id)
	s.mu.Unlock()
}

// secretTokenStore persists CJ tokens next to the credentials they were issued for
type secretTokenStore struct {
	store secrets.Store
	name  string
}

func (t *secretTokenStore) LoadToken(ctx context.Context) (*cj.Token, error) {
	secret, err := t.store.GetSecret(ctx, t.name)
	if err != nil {
		return nil, err
	}
	if secret.AccessToken == "" {
		return nil, nil
	}
	return &cj.Token{
		AccessToken:        secret.AccessToken,
		AccessTokenExpiry:  secret.AccessTokenExpiry,
		RefreshToken:       secret.RefreshToken,
		RefreshTokenExpiry: secret.RefreshTokenExpiry,
	}, nil
}

func (t *secretTokenStore) SaveToken(ctx context.Context, token *cj.Token) error {
	secret, err := t.store.GetSecret(ctx, t.name)
	if err != nil {
		return err
	}
	updated := *secret
	updated.AccessToken = token.AccessToken
	updated.AccessTokenExpiry = token.AccessTokenExpiry
	updated.RefreshToken = token.RefreshToken
	updated.RefreshTokenExpiry = token.RefreshTokenExpiry
	return t.store.PutSecret(ctx, t.name, &updated)
}
