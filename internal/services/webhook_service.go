package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"dropship-service/internal/events"
	"dropship-service/internal/models"
	"dropship-service/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

const webhookReplayBatch = 50

// errSkip marks an event that was valid but intentionally not applied
type errSkip struct{ reason string }

func (e errSkip) Error() string { return e.reason }

func skip(format string, args ...interface{}) error {
	return errSkip{reason: fmt.Sprintf(format, args...)}
}

// WebhookService ingests supplier webhook deliveries and reconciles them
// against imported products, variants and orders
type WebhookService struct {
	webhookRepo repository.WebhookRepositoryInterface
	products    repository.ProductRepositoryInterface
	orders      repository.OrderRepositoryInterface
	suppliers   SupplierProvider
	mappings    *MappingService
	pricer      *Pricer
	publisher   events.Publisher
	audit       *AuditService
	token       string
	logger      *logrus.Entry
	now         func() time.Time
}

// NewWebhookService creates a new webhook service. An empty token disables
// the shared token check.
func NewWebhookService(
	webhookRepo repository.WebhookRepositoryInterface,
	products repository.ProductRepositoryInterface,
	orders repository.OrderRepositoryInterface,
	suppliers SupplierProvider,
	mappings *MappingService,
	pricer *Pricer,
	publisher events.Publisher,
	audit *AuditService,
	token string,
	logger *logrus.Logger,
) *WebhookService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &WebhookService{
		webhookRepo: webhookRepo,
		products:    products,
		orders:      orders,
		suppliers:   suppliers,
		mappings:    mappings,
		pricer:      pricer,
		publisher:   publisher,
		audit:       audit,
		token:       token,
		logger:      logger.WithField("component", "webhook"),
		now:         time.Now,
	}
}

// VerifyToken checks the shared webhook token
func (s *WebhookService) VerifyToken(presented string) error {
	if s.token == "" {
		return nil
	}
	if subtle.ConstantTimeCompare([]byte(presented), []byte(s.token)) != 1 {
		return ErrInvalidWebhookToken
	}
	return nil
}

// Receive stores a CJ delivery and processes it. Redelivered messages are
// acknowledged without being applied again.
func (s *WebhookService) Receive(ctx context.Context, payload []byte) (*models.WebhookAck, error) {
	if !gjson.ValidBytes(payload) {
		return nil, ErrInvalidWebhookPayload
	}
	body := gjson.ParseBytes(payload)
	messageID := body.Get("messageId").String()
	eventType := strings.ToUpper(body.Get("type").String())
	if messageID == "" || eventType == "" {
		return nil, fmt.Errorf("%w: messageId and type are required", ErrInvalidWebhookPayload)
	}

	key := "CJ-" + messageID
	if existing, err := s.webhookRepo.GetByIdempotencyKey(ctx, key); err == nil {
		return &models.WebhookAck{Received: true, Duplicate: true, EventID: existing.ID}, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	event := &models.SupplierWebhookEvent{
		ID:             uuid.New(),
		MessageID:      messageID,
		EventType:      eventType,
		MessageType:    strings.ToUpper(body.Get("messageType").String()),
		Payload:        append([]byte(nil), payload...),
		IdempotencyKey: key,
		CreatedAt:      s.now(),
	}
	if supplier, err := s.suppliers.DefaultSupplier(ctx); err == nil {
		event.SupplierID = &supplier.ID
	}

	if err := s.webhookRepo.Create(ctx, event); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return &models.WebhookAck{Received: true, Duplicate: true}, nil
		}
		return nil, fmt.Errorf("failed to store webhook event: %w", err)
	}

	s.process(ctx, event)
	return &models.WebhookAck{Received: true, EventID: event.ID}, nil
}

// ListEvents lists stored webhook events
func (s *WebhookService) ListEvents(ctx context.Context, opts repository.WebhookListOptions) ([]models.SupplierWebhookEvent, int64, error) {
	return s.webhookRepo.List(ctx, opts)
}

// GetEvent retrieves a stored webhook event
func (s *WebhookService) GetEvent(ctx context.Context, id uuid.UUID) (*models.SupplierWebhookEvent, error) {
	return s.webhookRepo.GetByID(ctx, id)
}

// Replay reprocesses one stored event regardless of its retry count
func (s *WebhookService) Replay(ctx context.Context, actorID string, id uuid.UUID) (*models.SupplierWebhookEvent, error) {
	event, err := s.webhookRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.audit.UserAction(ctx, actorID, models.ActionWebhookReplay, models.ResourceWebhook, id.String(), models.JSONB{
		"eventType": event.EventType,
		"messageId": event.MessageID,
	})
	s.process(ctx, event)
	return s.webhookRepo.GetByID(ctx, id)
}

// ReplayPending retries failed events still under the retry limit
func (s *WebhookService) ReplayPending(ctx context.Context) int {
	pending, err := s.webhookRepo.GetUnprocessedEvents(ctx, webhookReplayBatch)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to load unprocessed webhook events")
		return 0
	}
	for i := range pending {
		if ctx.Err() != nil {
			break
		}
		s.process(ctx, &pending[i])
	}
	return len(pending)
}

// RunReplayWorker replays pending events every interval until ctx is done
func (s *WebhookService) RunReplayWorker(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.ReplayPending(ctx); n > 0 {
				s.logger.WithField("count", n).Info("Replayed pending webhook events")
			}
		}
	}
}

// process applies an event and records the outcome on its row
func (s *WebhookService) process(ctx context.Context, event *models.SupplierWebhookEvent) {
	log := s.logger.WithFields(logrus.Fields{
		"eventId":     event.ID,
		"eventType":   event.EventType,
		"messageType": event.MessageType,
	})

	err := s.apply(ctx, event)

	var skipped errSkip
	switch {
	case errors.As(err, &skipped):
		log.WithField("reason", skipped.reason).Debug("Webhook event skipped")
		if merr := s.webhookRepo.MarkSkipped(ctx, event.ID, skipped.reason); merr != nil {
			log.WithError(merr).Warn("Failed to mark webhook event skipped")
		}
	case err != nil:
		log.WithError(err).Warn("Webhook event processing failed")
		if merr := s.webhookRepo.MarkProcessed(ctx, event.ID, err); merr != nil {
			log.WithError(merr).Warn("Failed to record webhook failure")
		}
	default:
		if merr := s.webhookRepo.MarkProcessed(ctx, event.ID, nil); merr != nil {
			log.WithError(merr).Warn("Failed to mark webhook event processed")
		}
	}
}

func (s *WebhookService) apply(ctx context.Context, event *models.SupplierWebhookEvent) error {
	body := gjson.ParseBytes(event.Payload)
	params := body.Get("params")
	if !params.Exists() {
		return skip("payload has no params")
	}

	supplier, err := s.eventSupplier(ctx, event)
	if err != nil {
		return err
	}
	at := eventTime(params, event.CreatedAt)

	switch event.EventType {
	case models.WebhookTypeProduct:
		if event.MessageType == models.WebhookActionDelete {
			return s.deactivateProduct(ctx, supplier, params)
		}
		return s.updateProduct(ctx, supplier, params, at)
	case models.WebhookTypeVariant:
		return s.updateVariant(ctx, supplier, params, event.MessageType == models.WebhookActionDelete)
	case models.WebhookTypeStock:
		return s.updateStock(ctx, supplier, params)
	case models.WebhookTypeOrder, models.WebhookTypeLogistic:
		return s.updateOrder(ctx, params, at)
	default:
		return skip("unsupported event type %s", event.EventType)
	}
}

func (s *WebhookService) eventSupplier(ctx context.Context, event *models.SupplierWebhookEvent) (*models.Supplier, error) {
	if event.SupplierID != nil {
		return s.suppliers.GetSupplier(ctx, *event.SupplierID)
	}
	supplier, err := s.suppliers.DefaultSupplier(ctx)
	if err != nil {
		return nil, fmt.Errorf("no supplier for webhook event: %w", err)
	}
	return supplier, nil
}

// updateProduct refreshes an imported product. Archived products and
// events older than the last supplier sync are left alone.
func (s *WebhookService) updateProduct(ctx context.Context, supplier *models.Supplier, params gjson.Result, at time.Time) error {
	pid := params.Get("pid").String()
	if pid == "" {
		return skip("product event without pid")
	}
	product, err := s.products.GetBySupplierProduct(ctx, supplier.ID, pid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return skip("product %s not imported", pid)
		}
		return err
	}
	if product.Status == models.ProductArchived {
		return skip("product %s is archived", pid)
	}
	if product.SupplierSyncedAt != nil && at.Before(*product.SupplierSyncedAt) {
		return skip("event older than last sync of product %s", pid)
	}

	updates := map[string]interface{}{"supplier_synced_at": at}
	if name := params.Get("productNameEn").String(); name != "" {
		updates["name"] = name
	}
	if desc := params.Get("description").String(); desc != "" {
		updates["description"] = desc
	}
	if images := webhookImages(params.Get("productImage")); len(images) > 0 {
		updates["images"] = limitImages(images)
	}
	if cost, ok := webhookDecimal(params, "productSellPrice", "sellPrice"); ok {
		updates["cost_price"] = cost.Round(2)
		if !product.PriceOverridden {
			updates["price"] = s.pricer.RetailPrice(cost, supplier)
		}
	}
	extCategory := params.Get("categoryId").String()
	if extCategory != "" {
		updates["supplier_category_id"] = extCategory
	}

	n, err := s.products.UpdateWhere(ctx, product.ID, repository.ProductCondition{
		ExcludeStatuses: []models.ProductStatus{models.ProductArchived},
		SyncedBefore:    &at,
	}, updates)
	if err != nil {
		return err
	}
	if n == 0 {
		return skip("product %s changed concurrently", pid)
	}

	if product.CategoryID == nil && extCategory != "" {
		if err := s.attachCategory(ctx, supplier, product, extCategory, params.Get("categoryName").String()); err != nil {
			return err
		}
	}

	s.publishProduct(ctx, product, supplier, pid)
	return nil
}

// attachCategory gives an uncategorized product the mapped category of its
// supplier category, or records the supplier category as unmapped
func (s *WebhookService) attachCategory(ctx context.Context, supplier *models.Supplier, product *models.Product, extCategory, extName string) error {
	categoryID, err := s.mappings.MappedCategory(ctx, supplier.ID, extCategory)
	if err != nil {
		return err
	}
	if categoryID == nil {
		s.mappings.TrackUnmapped(ctx, supplier.ID, extCategory, extName)
		return nil
	}

	cond := repository.ProductCondition{
		CategoryIsNull:  true,
		ExcludeStatuses: []models.ProductStatus{models.ProductArchived},
	}
	updates := map[string]interface{}{"category_id": *categoryID}
	if product.Status == models.ProductPendingMapping {
		cond = repository.ProductCondition{Status: models.ProductPendingMapping, CategoryIsNull: true}
		updates["status"] = models.ProductDraft
	}
	n, err := s.products.UpdateWhere(ctx, product.ID, cond, updates)
	if err != nil {
		return err
	}
	if n > 0 {
		product.CategoryID = categoryID
		if _, ok := updates["status"]; ok {
			product.Status = models.ProductDraft
		}
	}
	return nil
}

func (s *WebhookService) deactivateProduct(ctx context.Context, supplier *models.Supplier, params gjson.Result) error {
	pid := params.Get("pid").String()
	if pid == "" {
		return skip("product event without pid")
	}
	product, err := s.products.GetBySupplierProduct(ctx, supplier.ID, pid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return skip("product %s not imported", pid)
		}
		return err
	}

	n, err := s.products.UpdateWhere(ctx, product.ID, repository.ProductCondition{
		ExcludeStatuses: []models.ProductStatus{models.ProductArchived, models.ProductInactive},
	}, map[string]interface{}{"status": models.ProductInactive})
	if err != nil {
		return err
	}
	if n == 0 {
		return skip("product %s already inactive or archived", pid)
	}
	product.Status = models.ProductInactive
	s.publishProduct(ctx, product, supplier, pid)
	return nil
}

// updateVariant refreshes a variant. A removed variant keeps its row with
// no stock so order history stays intact.
func (s *WebhookService) updateVariant(ctx context.Context, supplier *models.Supplier, params gjson.Result, deleted bool) error {
	vid := params.Get("vid").String()
	if vid == "" {
		return skip("variant event without vid")
	}
	variant, err := s.products.GetVariantBySupplierID(ctx, supplier.ID, vid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return skip("variant %s not imported", vid)
		}
		return err
	}

	updates := map[string]interface{}{}
	if deleted {
		updates["stock"] = 0
	} else {
		if name := params.Get("variantNameEn").String(); name != "" {
			updates["name"] = name
		}
		if image := params.Get("variantImage").String(); image != "" {
			updates["image"] = image
		}
		if cost, ok := webhookDecimal(params, "variantSellPrice"); ok {
			updates["cost_price"] = cost.Round(2)
			updates["price"] = s.pricer.RetailPrice(cost, supplier)
		}
		if stock := params.Get("variantStock"); stock.Exists() {
			updates["stock"] = int(stock.Int())
		}
	}
	if len(updates) == 0 {
		return skip("variant event carries no changes")
	}

	if err := s.products.UpdateVariant(ctx, variant.ID, updates); err != nil {
		return err
	}
	if _, ok := updates["stock"]; ok {
		return s.products.RecomputeStock(ctx, variant.ProductID)
	}
	return nil
}

// updateStock applies CJ stock callbacks of the form
// {"<vid>": [{"storageNum": n, ...}, ...]}
func (s *WebhookService) updateStock(ctx context.Context, supplier *models.Supplier, params gjson.Result) error {
	levels := make(map[string]int)
	params.ForEach(func(key, value gjson.Result) bool {
		total := 0
		if value.IsArray() {
			value.ForEach(func(_, storage gjson.Result) bool {
				total += int(storage.Get("storageNum").Int())
				return true
			})
		} else {
			total = int(value.Get("storageNum").Int())
		}
		levels[key.String()] = total
		return true
	})
	if len(levels) == 0 {
		return skip("stock event without variants")
	}

	touched := make(map[uuid.UUID]bool)
	for vid, total := range levels {
		variant, err := s.products.GetVariantBySupplierID(ctx, supplier.ID, vid)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			return err
		}
		if err := s.products.UpdateVariant(ctx, variant.ID, map[string]interface{}{"stock": total}); err != nil {
			return err
		}
		touched[variant.ProductID] = true
	}
	if len(touched) == 0 {
		return skip("no imported variants in stock event")
	}

	for productID := range touched {
		if err := s.products.RecomputeStock(ctx, productID); err != nil {
			return err
		}
	}
	return nil
}

// updateOrder applies supplier order and logistics progress to the matching
// platform order. Shipped and delivered states advance the order status.
func (s *WebhookService) updateOrder(ctx context.Context, params gjson.Result, at time.Time) error {
	supplierOrderID := firstString(params, "cjOrderId", "orderId", "orderNum")
	if supplierOrderID == "" {
		return skip("order event without order id")
	}
	order, err := s.orders.GetBySupplierOrderID(ctx, supplierOrderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return skip("order %s not placed by this platform", supplierOrderID)
		}
		return err
	}
	if order.SupplierUpdatedAt != nil && at.Before(*order.SupplierUpdatedAt) {
		return skip("event older than last supplier update of order %s", supplierOrderID)
	}

	supplierStatus := firstString(params, "orderStatus", "trackingStatus", "logisticsStatus")
	updates := map[string]interface{}{"supplier_updated_at": at}
	if supplierStatus != "" {
		updates["supplier_order_status"] = supplierStatus
		order.SupplierOrderStatus = supplierStatus
	}
	if tracking := firstString(params, "trackNumber", "trackingNumber"); tracking != "" {
		updates["tracking_number"] = tracking
		order.TrackingNumber = tracking
	}
	if logistic := params.Get("logisticName").String(); logistic != "" {
		updates["logistic_name"] = logistic
	}
	if next, ok := advanceOrderStatus(order.Status, supplierStatus); ok {
		updates["status"] = next
		order.Status = next
	}

	if err := s.orders.UpdateFields(ctx, order.ID, updates); err != nil {
		return err
	}

	event := events.OrderEvent{
		EventType:       events.SubjectSupplierOrderUpdate,
		Timestamp:       s.now().UTC(),
		OrderID:         order.ID.String(),
		OrderNumber:     order.OrderNumber,
		UserID:          order.UserID.String(),
		Status:          string(order.Status),
		SupplierOrderID: supplierOrderID,
		SupplierStatus:  order.SupplierOrderStatus,
		TrackingNumber:  order.TrackingNumber,
	}
	if err := s.publisher.Publish(ctx, events.SubjectSupplierOrderUpdate, event); err != nil {
		s.logger.WithError(err).WithField("orderId", order.ID).Warn("Failed to publish supplier order event")
	}
	return nil
}

// advanceOrderStatus maps a supplier state onto the order lifecycle.
// Cancelled, failed and delivered orders never move.
func advanceOrderStatus(current models.OrderStatus, supplierStatus string) (models.OrderStatus, bool) {
	switch current {
	case models.OrderCancelled, models.OrderFailed, models.OrderDelivered:
		return current, false
	}
	status := strings.ToLower(supplierStatus)
	switch {
	case strings.Contains(status, "deliver"):
		return models.OrderDelivered, true
	case strings.Contains(status, "ship"), strings.Contains(status, "transit"):
		if current == models.OrderShipped {
			return current, false
		}
		return models.OrderShipped, true
	}
	return current, false
}

func (s *WebhookService) publishProduct(ctx context.Context, product *models.Product, supplier *models.Supplier, pid string) {
	event := events.ProductEvent{
		EventType:         events.SubjectProductUpdated,
		Timestamp:         s.now().UTC(),
		ProductID:         product.ID.String(),
		SupplierID:        supplier.ID.String(),
		SupplierProductID: pid,
		Status:            string(product.Status),
	}
	if product.CategoryID != nil {
		event.CategoryID = product.CategoryID.String()
	}
	if err := s.publisher.Publish(ctx, events.SubjectProductUpdated, event); err != nil {
		s.logger.WithError(err).WithField("productId", product.ID).Warn("Failed to publish product event")
	}
}

// eventTime reads the supplier timestamp of an event, falling back to the
// time it was received. CJ sends epoch milliseconds or "2006-01-02 15:04:05".
func eventTime(params gjson.Result, fallback time.Time) time.Time {
	for _, field := range []string{"updatedAt", "updateTime", "updateDate", "timestamp"} {
		v := params.Get(field)
		if !v.Exists() {
			continue
		}
		if v.Type == gjson.Number {
			return time.UnixMilli(v.Int()).UTC()
		}
		for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05"} {
			if t, err := time.Parse(layout, v.String()); err == nil {
				return t.UTC()
			}
		}
	}
	return fallback
}

func webhookDecimal(params gjson.Result, fields ...string) (decimal.Decimal, bool) {
	for _, field := range fields {
		v := params.Get(field)
		if !v.Exists() || v.String() == "" {
			continue
		}
		// ranges such as "3.10-4.25" price at the low end
		raw := strings.SplitN(v.String(), "-", 2)[0]
		d, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err == nil && !d.IsNegative() {
			return d, true
		}
	}
	return decimal.Zero, false
}

// webhookImages accepts an array of urls, a JSON-encoded array or a comma list
func webhookImages(v gjson.Result) []string {
	if !v.Exists() {
		return nil
	}
	if !v.IsArray() {
		str := strings.TrimSpace(v.String())
		if strings.HasPrefix(str, "[") && gjson.Valid(str) {
			v = gjson.Parse(str)
		} else {
			var out []string
			for _, part := range strings.Split(str, ",") {
				if part = strings.TrimSpace(part); part != "" {
					out = append(out, part)
				}
			}
			return out
		}
	}
	var out []string
	for _, item := range v.Array() {
		if url := item.String(); url != "" {
			out = append(out, url)
		}
	}
	return out
}

func firstString(params gjson.Result, fields ...string) string {
	for _, field := range fields {
		if v := params.Get(field).String(); v != "" {
			return v
		}
	}
	return ""
}
