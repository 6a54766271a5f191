package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"dropship-service/internal/events"
	"dropship-service/internal/models"
	"dropship-service/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

type webhookFixture struct {
	svc       *WebhookService
	webhooks  *MockWebhookRepository
	products  *MockProductRepository
	orders    *MockOrderRepository
	mappings  *MockMappingRepository
	publisher *recordingPublisher
	supplier  *models.Supplier
}

func newWebhookFixture(token string) *webhookFixture {
	f := &webhookFixture{
		webhooks:  new(MockWebhookRepository),
		products:  new(MockProductRepository),
		orders:    new(MockOrderRepository),
		mappings:  new(MockMappingRepository),
		publisher: &recordingPublisher{},
		supplier:  testSupplier(),
	}
	suppliers := &stubSuppliers{supplier: f.supplier}
	mappingSvc := NewMappingService(f.mappings, new(MockCategoryRepository), suppliers, nil, testLogger())
	f.svc = NewWebhookService(f.webhooks, f.products, f.orders, suppliers, mappingSvc, NewPricer(50), f.publisher, nil, token, testLogger())
	return f
}

// deliver stores a fresh event and expects it to be processed or skipped
func (f *webhookFixture) deliver(t *testing.T, payload string) *models.SupplierWebhookEvent {
	t.Helper()
	messageID := gjson.Get(payload, "messageId").String()
	f.webhooks.On("GetByIdempotencyKey", mock.Anything, "CJ-"+messageID).Return(nil, repository.ErrNotFound).Once()
	var stored *models.SupplierWebhookEvent
	f.webhooks.On("Create", mock.Anything, mock.AnythingOfType("*models.SupplierWebhookEvent")).
		Run(func(args mock.Arguments) { stored = args.Get(1).(*models.SupplierWebhookEvent) }).
		Return(nil).Once()

	ack, err := f.svc.Receive(context.Background(), []byte(payload))
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.True(t, ack.Received)
	assert.False(t, ack.Duplicate)
	assert.Equal(t, stored.ID, ack.EventID)
	return stored
}

func TestVerifyToken(t *testing.T) {
	assert.NoError(t, newWebhookFixture("").svc.VerifyToken(""))

	f := newWebhookFixture("s3cret")
	assert.NoError(t, f.svc.VerifyToken("s3cret"))
	assert.ErrorIs(t, f.svc.VerifyToken("wrong"), ErrInvalidWebhookToken)
	assert.ErrorIs(t, f.svc.VerifyToken(""), ErrInvalidWebhookToken)
}

func TestReceive_InvalidPayload(t *testing.T) {
	f := newWebhookFixture("")

	_, err := f.svc.Receive(context.Background(), []byte("{not json"))
	assert.ErrorIs(t, err, ErrInvalidWebhookPayload)

	_, err = f.svc.Receive(context.Background(), []byte(`{"type":"PRODUCT"}`))
	assert.ErrorIs(t, err, ErrInvalidWebhookPayload)
}

func TestReceive_DuplicateAcknowledged(t *testing.T) {
	f := newWebhookFixture("")
	existing := &models.SupplierWebhookEvent{ID: uuid.New()}
	f.webhooks.On("GetByIdempotencyKey", mock.Anything, "CJ-m-1").Return(existing, nil)

	ack, err := f.svc.Receive(context.Background(), []byte(`{"messageId":"m-1","type":"PRODUCT","messageType":"UPDATE","params":{}}`))
	require.NoError(t, err)
	assert.True(t, ack.Duplicate)
	assert.Equal(t, existing.ID, ack.EventID)
	f.webhooks.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestWebhook_ProductUpdateRefreshesPrice(t *testing.T) {
	f := newWebhookFixture("")
	categoryID := uuid.New()
	product := &models.Product{ID: uuid.New(), Status: models.ProductActive, CategoryID: &categoryID}
	f.products.On("GetBySupplierProduct", mock.Anything, f.supplier.ID, "PID-1").Return(product, nil)
	f.products.On("UpdateWhere", mock.Anything, product.ID, mock.MatchedBy(func(c repository.ProductCondition) bool {
		return len(c.ExcludeStatuses) == 1 && c.ExcludeStatuses[0] == models.ProductArchived && c.SyncedBefore != nil
	}), mock.MatchedBy(func(u map[string]interface{}) bool {
		price, ok := u["price"].(decimal.Decimal)
		return ok && price.Equal(decimal.RequireFromString("15.00")) && u["name"] == "New Lamp" && u["supplier_category_id"] == "1234"
	})).Return(int64(1), nil)
	f.webhooks.On("MarkProcessed", mock.Anything, mock.Anything, nil).Return(nil)

	f.deliver(t, `{"messageId":"m-2","type":"PRODUCT","messageType":"UPDATE",
		"params":{"pid":"PID-1","productNameEn":"New Lamp","productSellPrice":"10.00","categoryId":"1234"}}`)

	f.products.AssertExpectations(t)
	f.webhooks.AssertExpectations(t)
	f.mappings.AssertNotCalled(t, "GetMapping", mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, []string{events.SubjectProductUpdated}, f.publisher.Subjects())
}

func TestWebhook_ProductUpdateKeepsOverriddenPrice(t *testing.T) {
	f := newWebhookFixture("")
	categoryID := uuid.New()
	product := &models.Product{ID: uuid.New(), Status: models.ProductActive, CategoryID: &categoryID, PriceOverridden: true}
	f.products.On("GetBySupplierProduct", mock.Anything, f.supplier.ID, "PID-1").Return(product, nil)
	f.products.On("UpdateWhere", mock.Anything, product.ID, mock.Anything, mock.MatchedBy(func(u map[string]interface{}) bool {
		_, hasPrice := u["price"]
		_, hasCost := u["cost_price"]
		return !hasPrice && hasCost
	})).Return(int64(1), nil)
	f.webhooks.On("MarkProcessed", mock.Anything, mock.Anything, nil).Return(nil)

	f.deliver(t, `{"messageId":"m-3","type":"PRODUCT","messageType":"UPDATE","params":{"pid":"PID-1","productSellPrice":"12.50"}}`)
	f.products.AssertExpectations(t)
}

func TestWebhook_ProductUpdateAttachesMappedCategory(t *testing.T) {
	f := newWebhookFixture("")
	categoryID := uuid.New()
	product := &models.Product{ID: uuid.New(), Status: models.ProductPendingMapping}
	f.products.On("GetBySupplierProduct", mock.Anything, f.supplier.ID, "PID-1").Return(product, nil)
	f.products.On("UpdateWhere", mock.Anything, product.ID, mock.MatchedBy(func(c repository.ProductCondition) bool {
		return c.SyncedBefore != nil
	}), mock.Anything).Return(int64(1), nil).Once()
	f.mappings.On("GetMapping", mock.Anything, f.supplier.ID, "1234").Return(&models.CategoryMapping{CategoryID: categoryID}, nil)
	f.products.On("UpdateWhere", mock.Anything, product.ID, repository.ProductCondition{
		Status:         models.ProductPendingMapping,
		CategoryIsNull: true,
	}, map[string]interface{}{
		"category_id": categoryID,
		"status":      models.ProductDraft,
	}).Return(int64(1), nil).Once()
	f.webhooks.On("MarkProcessed", mock.Anything, mock.Anything, nil).Return(nil)

	f.deliver(t, `{"messageId":"m-4","type":"PRODUCT","messageType":"UPDATE","params":{"pid":"PID-1","categoryId":"1234"}}`)

	f.products.AssertExpectations(t)
	assert.Equal(t, models.ProductDraft, product.Status)
	assert.Equal(t, categoryID, *product.CategoryID)
}

func TestWebhook_ProductUpdateTracksUnmappedCategory(t *testing.T) {
	f := newWebhookFixture("")
	product := &models.Product{ID: uuid.New(), Status: models.ProductPendingMapping}
	f.products.On("GetBySupplierProduct", mock.Anything, f.supplier.ID, "PID-1").Return(product, nil)
	f.products.On("UpdateWhere", mock.Anything, product.ID, mock.Anything, mock.Anything).Return(int64(1), nil).Once()
	f.mappings.On("GetMapping", mock.Anything, f.supplier.ID, "999").Return(nil, repository.ErrNotFound)
	f.mappings.On("TrackUnmapped", mock.Anything, f.supplier.ID, "999", "Gadgets").Return(nil)
	f.webhooks.On("MarkProcessed", mock.Anything, mock.Anything, nil).Return(nil)

	f.deliver(t, `{"messageId":"m-5","type":"PRODUCT","messageType":"UPDATE","params":{"pid":"PID-1","categoryId":"999","categoryName":"Gadgets"}}`)

	f.mappings.AssertExpectations(t)
	f.products.AssertNumberOfCalls(t, "UpdateWhere", 1)
}

func TestWebhook_ProductUpdateSkipsArchivedAndStale(t *testing.T) {
	f := newWebhookFixture("")
	archived := &models.Product{ID: uuid.New(), Status: models.ProductArchived}
	synced := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	fresh := &models.Product{ID: uuid.New(), Status: models.ProductActive, SupplierSyncedAt: &synced}
	f.products.On("GetBySupplierProduct", mock.Anything, f.supplier.ID, "ARCH").Return(archived, nil)
	f.products.On("GetBySupplierProduct", mock.Anything, f.supplier.ID, "FRESH").Return(fresh, nil)
	f.webhooks.On("MarkSkipped", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	f.deliver(t, `{"messageId":"m-6","type":"PRODUCT","messageType":"UPDATE","params":{"pid":"ARCH","productNameEn":"X"}}`)
	f.deliver(t, `{"messageId":"m-7","type":"PRODUCT","messageType":"UPDATE","params":{"pid":"FRESH","updateTime":"2024-04-30 08:00:00"}}`)

	f.products.AssertNotCalled(t, "UpdateWhere", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.webhooks.AssertNumberOfCalls(t, "MarkSkipped", 2)
	assert.Empty(t, f.publisher.Events)
}

func TestWebhook_ProductDeleteDeactivates(t *testing.T) {
	f := newWebhookFixture("")
	product := &models.Product{ID: uuid.New(), Status: models.ProductActive}
	f.products.On("GetBySupplierProduct", mock.Anything, f.supplier.ID, "PID-1").Return(product, nil)
	f.products.On("UpdateWhere", mock.Anything, product.ID, repository.ProductCondition{
		ExcludeStatuses: []models.ProductStatus{models.ProductArchived, models.ProductInactive},
	}, map[string]interface{}{"status": models.ProductInactive}).Return(int64(1), nil)
	f.webhooks.On("MarkProcessed", mock.Anything, mock.Anything, nil).Return(nil)

	f.deliver(t, `{"messageId":"m-8","type":"PRODUCT","messageType":"DELETE","params":{"pid":"PID-1"}}`)
	assert.Equal(t, models.ProductInactive, product.Status)
}

func TestWebhook_VariantDeleteZeroesStock(t *testing.T) {
	f := newWebhookFixture("")
	variant := &models.ProductVariant{ID: uuid.New(), ProductID: uuid.New()}
	f.products.On("GetVariantBySupplierID", mock.Anything, f.supplier.ID, "VID-1").Return(variant, nil)
	f.products.On("UpdateVariant", mock.Anything, variant.ID, map[string]interface{}{"stock": 0}).Return(nil)
	f.products.On("RecomputeStock", mock.Anything, variant.ProductID).Return(nil)
	f.webhooks.On("MarkProcessed", mock.Anything, mock.Anything, nil).Return(nil)

	f.deliver(t, `{"messageId":"m-9","type":"VARIANT","messageType":"DELETE","params":{"vid":"VID-1"}}`)
	f.products.AssertExpectations(t)
}

func TestWebhook_VariantUpdatePrice(t *testing.T) {
	f := newWebhookFixture("")
	variant := &models.ProductVariant{ID: uuid.New(), ProductID: uuid.New()}
	f.products.On("GetVariantBySupplierID", mock.Anything, f.supplier.ID, "VID-1").Return(variant, nil)
	f.products.On("UpdateVariant", mock.Anything, variant.ID, mock.MatchedBy(func(u map[string]interface{}) bool {
		price, ok := u["price"].(decimal.Decimal)
		_, hasStock := u["stock"]
		return ok && price.Equal(decimal.RequireFromString("6.00")) && !hasStock
	})).Return(nil)
	f.webhooks.On("MarkProcessed", mock.Anything, mock.Anything, nil).Return(nil)

	f.deliver(t, `{"messageId":"m-10","type":"VARIANT","messageType":"UPDATE","params":{"vid":"VID-1","variantSellPrice":4}}`)
	f.products.AssertNotCalled(t, "RecomputeStock", mock.Anything, mock.Anything)
}

func TestWebhook_StockSumsStorages(t *testing.T) {
	f := newWebhookFixture("")
	variant := &models.ProductVariant{ID: uuid.New(), ProductID: uuid.New()}
	f.products.On("GetVariantBySupplierID", mock.Anything, f.supplier.ID, "VID-1").Return(variant, nil)
	f.products.On("GetVariantBySupplierID", mock.Anything, f.supplier.ID, "VID-X").Return(nil, repository.ErrNotFound)
	f.products.On("UpdateVariant", mock.Anything, variant.ID, map[string]interface{}{"stock": 17}).Return(nil)
	f.products.On("RecomputeStock", mock.Anything, variant.ProductID).Return(nil)
	f.webhooks.On("MarkProcessed", mock.Anything, mock.Anything, nil).Return(nil)

	f.deliver(t, `{"messageId":"m-11","type":"STOCK","messageType":"UPDATE","params":{
		"VID-1":[{"areaId":"1","storageNum":12},{"areaId":"2","storageNum":5}],
		"VID-X":[{"areaId":"1","storageNum":3}]}}`)
	f.products.AssertExpectations(t)
}

func TestWebhook_OrderShipped(t *testing.T) {
	f := newWebhookFixture("")
	order := &models.Order{ID: uuid.New(), OrderNumber: "ORD-1", Status: models.OrderPlacedWithSupplier}
	f.orders.On("GetBySupplierOrderID", mock.Anything, "CJ123").Return(order, nil)
	f.orders.On("UpdateFields", mock.Anything, order.ID, mock.MatchedBy(func(u map[string]interface{}) bool {
		return u["status"] == models.OrderShipped && u["tracking_number"] == "TRK9" && u["supplier_order_status"] == "SHIPPED"
	})).Return(nil)
	f.webhooks.On("MarkProcessed", mock.Anything, mock.Anything, nil).Return(nil)

	f.deliver(t, `{"messageId":"m-12","type":"ORDER","messageType":"UPDATE",
		"params":{"cjOrderId":"CJ123","orderStatus":"SHIPPED","trackNumber":"TRK9"}}`)

	f.orders.AssertExpectations(t)
	assert.Equal(t, []string{events.SubjectSupplierOrderUpdate}, f.publisher.Subjects())
}

func TestWebhook_ProcessingErrorRecorded(t *testing.T) {
	f := newWebhookFixture("")
	f.products.On("GetBySupplierProduct", mock.Anything, f.supplier.ID, "PID-1").Return(nil, errors.New("connection reset"))
	f.webhooks.On("MarkProcessed", mock.Anything, mock.Anything, mock.MatchedBy(func(err error) bool {
		return err != nil && err.Error() == "connection reset"
	})).Return(nil)

	f.deliver(t, `{"messageId":"m-13","type":"PRODUCT","messageType":"UPDATE","params":{"pid":"PID-1"}}`)
	f.webhooks.AssertExpectations(t)
}

func TestReplayPending(t *testing.T) {
	f := newWebhookFixture("")
	pending := []models.SupplierWebhookEvent{{
		ID:        uuid.New(),
		EventType: models.WebhookTypeLogistic,
		Payload:   []byte(`{"params":{"orderId":"CJ404"}}`),
		CreatedAt: time.Now(),
	}}
	f.webhooks.On("GetUnprocessedEvents", mock.Anything, webhookReplayBatch).Return(pending, nil)
	f.orders.On("GetBySupplierOrderID", mock.Anything, "CJ404").Return(nil, repository.ErrNotFound)
	f.webhooks.On("MarkSkipped", mock.Anything, pending[0].ID, mock.Anything).Return(nil)

	assert.Equal(t, 1, f.svc.ReplayPending(context.Background()))
	f.webhooks.AssertExpectations(t)
}

func TestAdvanceOrderStatus(t *testing.T) {
	tests := []struct {
		current  models.OrderStatus
		supplier string
		want     models.OrderStatus
		moved    bool
	}{
		{models.OrderPlacedWithSupplier, "SHIPPED", models.OrderShipped, true},
		{models.OrderPlacedWithSupplier, "In Transit", models.OrderShipped, true},
		{models.OrderShipped, "DELIVERED", models.OrderDelivered, true},
		{models.OrderShipped, "SHIPPED", models.OrderShipped, false},
		{models.OrderCancelled, "DELIVERED", models.OrderCancelled, false},
		{models.OrderPlacedWithSupplier, "UNPAID", models.OrderPlacedWithSupplier, false},
	}
	for _, tt := range tests {
		got, moved := advanceOrderStatus(tt.current, tt.supplier)
		assert.Equal(t, tt.want, got, tt.supplier)
		assert.Equal(t, tt.moved, moved, tt.supplier)
	}
}

func TestEventTime(t *testing.T) {
	fallback := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, fallback, eventTime(gjson.Parse(`{}`), fallback))
	assert.Equal(t, time.UnixMilli(1714557600000).UTC(), eventTime(gjson.Parse(`{"updatedAt":1714557600000}`), fallback))
	assert.Equal(t, time.Date(2024, 4, 30, 8, 0, 0, 0, time.UTC), eventTime(gjson.Parse(`{"updateDate":"2024-04-30 08:00:00"}`), fallback))
}

func TestWebhookImages(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, webhookImages(gjson.Parse(`["a","b"]`)))
	assert.Equal(t, []string{"a", "b"}, webhookImages(gjson.Parse(`"[\"a\",\"b\"]"`)))
	assert.Equal(t, []string{"a", "b"}, webhookImages(gjson.Parse(`"a, b"`)))
	assert.Nil(t, webhookImages(gjson.Result{}))
}

func TestRunReplayWorker_StopsOnCancel(t *testing.T) {
	f := newWebhookFixture("")
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.svc.RunReplayWorker(ctx, time.Hour)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("replay worker did not stop after cancel")
	}
}
