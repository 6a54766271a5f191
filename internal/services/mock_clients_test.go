package services

import (
	"context"
	"io"
	"sync"
	"time"

	"dropship-service/internal/clients"
	"dropship-service/internal/models"
	"dropship-service/internal/repository"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
)

// MockSupplierClient is a mock implementation of clients.SupplierClient
type MockSupplierClient struct {
	mock.Mock
}

var _ clients.SupplierClient = (*MockSupplierClient)(nil)

func (m *MockSupplierClient) GetType() models.SupplierType {
	return models.SupplierTypeCJ
}

func (m *MockSupplierClient) TestConnection(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockSupplierClient) GetCategories(ctx context.Context) ([]clients.ExternalCategory, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]clients.ExternalCategory), args.Error(1)
}

func (m *MockSupplierClient) SearchProducts(ctx context.Context, opts *clients.ProductSearchOptions) (*clients.ProductsResult, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*clients.ProductsResult), args.Error(1)
}

func (m *MockSupplierClient) GetProduct(ctx context.Context, productID string) (*clients.ExternalProduct, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*clients.ExternalProduct), args.Error(1)
}

func (m *MockSupplierClient) GetVariants(ctx context.Context, productID string) ([]clients.ExternalVariant, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]clients.ExternalVariant), args.Error(1)
}

func (m *MockSupplierClient) GetVariantStock(ctx context.Context, variantID string) (*clients.StockLevel, error) {
	args := m.Called(ctx, variantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*clients.StockLevel), args.Error(1)
}

func (m *MockSupplierClient) CreateOrder(ctx context.Context, req *clients.CreateOrderRequest) (*clients.ExternalOrder, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*clients.ExternalOrder), args.Error(1)
}

func (m *MockSupplierClient) GetOrder(ctx context.Context, orderID string) (*clients.ExternalOrder, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*clients.ExternalOrder), args.Error(1)
}

func (m *MockSupplierClient) CalculateFreight(ctx context.Context, req *clients.FreightRequest) ([]clients.FreightOption, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]clients.FreightOption), args.Error(1)
}

func (m *MockSupplierClient) RegisterWebhooks(ctx context.Context, callbackURL string) error {
	args := m.Called(ctx, callbackURL)
	return args.Error(0)
}

// stubSuppliers serves a single supplier and client
type stubSuppliers struct {
	supplier *models.Supplier
	client   clients.SupplierClient
	err      error
}

var _ SupplierProvider = (*stubSuppliers)(nil)

func (s *stubSuppliers) GetSupplier(ctx context.Context, id uuid.UUID) (*models.Supplier, error) {
	if s.supplier == nil || s.supplier.ID != id {
		return nil, repository.ErrNotFound
	}
	return s.supplier, nil
}

func (s *stubSuppliers) Client(ctx context.Context, supplierID uuid.UUID) (clients.SupplierClient, *models.Supplier, error) {
	supplier, err := s.GetSupplier(ctx, supplierID)
	if err != nil {
		return nil, nil, err
	}
	if s.err != nil {
		return nil, supplier, s.err
	}
	return s.client, supplier, nil
}

func (s *stubSuppliers) DefaultSupplier(ctx context.Context) (*models.Supplier, error) {
	if s.supplier == nil {
		return nil, repository.ErrNotFound
	}
	return s.supplier, nil
}

func (s *stubSuppliers) RecordSync(ctx context.Context, supplierID uuid.UUID, at time.Time) error {
	return nil
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testSupplier() *models.Supplier {
	return &models.Supplier{
		ID:        uuid.New(),
		Name:      "CJ Dropshipping",
		Code:      "CJ",
		Type:      models.SupplierTypeCJ,
		Status:    models.SupplierConnected,
		IsEnabled: true,
	}
}

// recordingPublisher keeps published events in memory
type recordingPublisher struct {
	mu     sync.Mutex
	Events []recordedEvent
}

type recordedEvent struct {
	Subject string
	Payload interface{}
}

func (r *recordingPublisher) Publish(ctx context.Context, subject string, payload interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, recordedEvent{Subject: subject, Payload: payload})
	return nil
}

func (r *recordingPublisher) Subjects() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.Events))
	for _, e := range r.Events {
		out = append(out, e.Subject)
	}
	return out
}
