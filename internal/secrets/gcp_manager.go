package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	secretmanagerpb "cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
)

// ErrSecretNotFound is returned when no credentials exist for a reference
var ErrSecretNotFound = errors.New("secret not found")

// SupplierSecret is the payload stored per supplier. The cached access
// token lives alongside the credentials so restarts can reuse it.
type SupplierSecret struct {
	SupplierCode       string    `json:"supplier_code"`
	APIKey             string    `json:"api_key"`
	Email              string    `json:"email,omitempty"`
	AccessToken        string    `json:"access_token,omitempty"`
	AccessTokenExpiry  time.Time `json:"access_token_expiry,omitempty"`
	RefreshToken       string    `json:"refresh_token,omitempty"`
	RefreshTokenExpiry time.Time `json:"refresh_token_expiry,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Store reads and writes supplier secrets by reference
type Store interface {
	BuildSecretName(supplierCode string) string
	GetSecret(ctx context.Context, secretName string) (*SupplierSecret, error)
	PutSecret(ctx context.Context, secretName string, secret *SupplierSecret) error
	DeleteSecret(ctx context.Context, secretName string) error
}

// cacheEntry represents a cached secret with expiration
type cacheEntry struct {
	secret    *SupplierSecret
	expiresAt time.Time
}

// GCPSecretManager manages secrets in Google Cloud Secret Manager
type GCPSecretManager struct {
	client    *secretmanager.Client
	projectID string
	prefix    string
	cache     map[string]*cacheEntry
	cacheMu   sync.RWMutex
	cacheTTL  time.Duration
}

var _ Store = (*GCPSecretManager)(nil)

// NewGCPSecretManager creates a new GCP Secret Manager client
func NewGCPSecretManager(ctx context.Context, projectID, prefix string) (*GCPSecretManager, error) {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create secret manager client: %w", err)
	}
	if prefix == "" {
		prefix = "dropship-supplier"
	}

	return &GCPSecretManager{
		client:    client,
		projectID: projectID,
		prefix:    prefix,
		cache:     make(map[string]*cacheEntry),
		cacheTTL:  5 * time.Minute,
	}, nil
}

// Close closes the Secret Manager client
func (sm *GCPSecretManager) Close() error {
	if sm.client != nil {
		return sm.client.Close()
	}
	return nil
}

// BuildSecretName constructs the secret name for a supplier
// Format: projects/{project}/secrets/{prefix}-{supplier_code}
func (sm *GCPSecretManager) BuildSecretName(supplierCode string) string {
	secretID := sanitizeSecretID(sm.prefix + "-" + strings.ToLower(supplierCode))
	return fmt.Sprintf("projects/%s/secrets/%s", sm.projectID, secretID)
}

// GetSecret retrieves a secret from GCP Secret Manager
func (sm *GCPSecretManager) GetSecret(ctx context.Context, secretName string) (*SupplierSecret, error) {
	sm.cacheMu.RLock()
	if entry, ok := sm.cache[secretName]; ok && time.Now().Before(entry.expiresAt) {
		sm.cacheMu.RUnlock()
		return entry.secret, nil
	}
	sm.cacheMu.RUnlock()

	result, err := sm.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: secretName + "/versions/latest",
	})
	if err != nil {
		if isNotFoundError(err) {
			return nil, ErrSecretNotFound
		}
		return nil, fmt.Errorf("failed to access secret: %w", err)
	}

	var secret SupplierSecret
	if err := json.Unmarshal(result.Payload.Data, &secret); err != nil {
		return nil, fmt.Errorf("failed to unmarshal secret: %w", err)
	}

	sm.cacheMu.Lock()
	sm.cache[secretName] = &cacheEntry{secret: &secret, expiresAt: time.Now().Add(sm.cacheTTL)}
	sm.cacheMu.Unlock()

	return &secret, nil
}

// PutSecret creates the secret if needed and adds a new version
func (sm *GCPSecretManager) PutSecret(ctx context.Context, secretName string, secret *SupplierSecret) error {
	stamp(secret)

	data, err := json.Marshal(secret)
	if err != nil {
		return fmt.Errorf("failed to marshal secret: %w", err)
	}

	_, err = sm.client.CreateSecret(ctx, &secretmanagerpb.CreateSecretRequest{
		Parent:   fmt.Sprintf("projects/%s", sm.projectID),
		SecretId: extractSecretID(secretName),
		Secret: &secretmanagerpb.Secret{
			Replication: &secretmanagerpb.Replication{
				Replication: &secretmanagerpb.Replication_Automatic_{
					Automatic: &secretmanagerpb.Replication_Automatic{},
				},
			},
		},
	})
	if err != nil && !isAlreadyExistsError(err) {
		return fmt.Errorf("failed to create secret: %w", err)
	}

	_, err = sm.client.AddSecretVersion(ctx, &secretmanagerpb.AddSecretVersionRequest{
		Parent:  secretName,
		Payload: &secretmanagerpb.SecretPayload{Data: data},
	})
	if err != nil {
		return fmt.Errorf("failed to add secret version: %w", err)
	}

	sm.InvalidateCache(secretName)
	return nil
}

// DeleteSecret deletes a secret from GCP Secret Manager
func (sm *GCPSecretManager) DeleteSecret(ctx context.Context, secretName string) error {
	err := sm.client.DeleteSecret(ctx, &secretmanagerpb.DeleteSecretRequest{Name: secretName})
	if err != nil && !isNotFoundError(err) {
		return fmt.Errorf("failed to delete secret: %w", err)
	}
	sm.InvalidateCache(secretName)
	return nil
}

// InvalidateCache removes a secret from the cache
func (sm *GCPSecretManager) InvalidateCache(secretName string) {
	sm.cacheMu.Lock()
	delete(sm.cache, secretName)
	sm.cacheMu.Unlock()
}

// MemoryStore keeps secrets in process. It backs deployments without
// GCP_PROJECT_ID, seeded from CJ_API_KEY / CJ_EMAIL.
type MemoryStore struct {
	mu      sync.RWMutex
	secrets map[string]*SupplierSecret
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-process store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{secrets: make(map[string]*SupplierSecret)}
}

func (m *MemoryStore) BuildSecretName(supplierCode string) string {
	return "local/" + sanitizeSecretID(strings.ToLower(supplierCode))
}

func (m *MemoryStore) GetSecret(ctx context.Context, secretName string) (*SupplierSecret, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.secrets[secretName]
	if !ok {
		return nil, ErrSecretNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MemoryStore) PutSecret(ctx context.Context, secretName string, secret *SupplierSecret) error {
	stamp(secret)
	cp := *secret
	m.mu.Lock()
	m.secrets[secretName] = &cp
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) DeleteSecret(ctx context.Context, secretName string) error {
	m.mu.Lock()
	delete(m.secrets, secretName)
	m.mu.Unlock()
	return nil
}

func stamp(secret *SupplierSecret) {
	secret.UpdatedAt = time.Now()
	if secret.CreatedAt.IsZero() {
		secret.CreatedAt = secret.UpdatedAt
	}
}

// sanitizeSecretID replaces characters GCP secret IDs do not allow
func sanitizeSecretID(input string) string {
	var result strings.Builder
	for _, r := range input {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			result.WriteRune(r)
		} else {
			result.WriteRune('-')
		}
	}
	return result.String()
}

// extractSecretID extracts the secret ID from the full secret name
func extractSecretID(secretName string) string {
	parts := strings.Split(secretName, "/")
	if len(parts) >= 4 {
		return parts[3]
	}
	return secretName
}

func isAlreadyExistsError(err error) bool {
	return strings.Contains(err.Error(), "AlreadyExists") || strings.Contains(err.Error(), "already exists")
}

func isNotFoundError(err error) bool {
	return strings.Contains(err.Error(), "NotFound") || strings.Contains(err.Error(), "not found")
}
