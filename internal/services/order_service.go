package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"dropship-service/internal/clients"
	"dropship-service/internal/events"
	"dropship-service/internal/models"
	"dropship-service/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const defaultShipFrom = "CN"

// OrderService handles checkout, order lifecycle and supplier fulfilment
type OrderService struct {
	orders    repository.OrderRepositoryInterface
	carts     repository.CartRepositoryInterface
	products  repository.ProductRepositoryInterface
	suppliers SupplierProvider
	publisher events.Publisher
	audit     *AuditService
	currency  string
	logger    *logrus.Entry
	now       func() time.Time
}

// NewOrderService creates a new order service
func NewOrderService(
	orders repository.OrderRepositoryInterface,
	carts repository.CartRepositoryInterface,
	products repository.ProductRepositoryInterface,
	suppliers SupplierProvider,
	publisher events.Publisher,
	audit *AuditService,
	currency string,
	logger *logrus.Logger,
) *OrderService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if currency == "" {
		currency = "USD"
	}
	return &OrderService{
		orders:    orders,
		carts:     carts,
		products:  products,
		suppliers: suppliers,
		publisher: publisher,
		audit:     audit,
		currency:  currency,
		logger:    logger.WithField("component", "orders"),
		now:       time.Now,
	}
}

// Checkout turns the user's cart into an order. Prices are snapshotted and
// stock is reserved in the same transaction that empties the cart.
func (s *OrderService) Checkout(ctx context.Context, userID uuid.UUID, req *models.CheckoutRequest) (*models.Order, error) {
	items, err := s.carts.ListCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrCartEmpty
	}
	if err := validateAddress(&req.ShippingAddress); err != nil {
		return nil, err
	}

	order := &models.Order{
		ID:              uuid.New(),
		OrderNumber:     s.orderNumber(),
		UserID:          userID,
		Status:          models.OrderPending,
		PaymentStatus:   models.PaymentPending,
		Currency:        s.currency,
		ShippingAddress: req.ShippingAddress,
		LogisticName:    strings.TrimSpace(req.LogisticName),
		Notes:           req.Notes,
		ShippingTotal:   decimal.Zero,
	}
	order.ShippingCountry = strings.ToUpper(order.ShippingCountry)

	subtotal := decimal.Zero
	reservations := make([]repository.StockReservation, 0, len(items))
	cartItemIDs := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		if item.Product == nil || item.Product.Status != models.ProductActive {
			return nil, fmt.Errorf("%w: %s", ErrProductUnavailable, item.ProductID)
		}
		if item.Quantity > item.AvailableStock() {
			return nil, fmt.Errorf("%w: %s", ErrInsufficientStock, item.Product.Name)
		}

		unit := item.UnitPrice()
		line := unit.Mul(decimal.NewFromInt(int64(item.Quantity))).Round(2)
		orderItem := models.OrderItem{
			ID:        uuid.New(),
			OrderID:   order.ID,
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Name:      item.Product.Name,
			SKU:       item.Product.SKU,
			Quantity:  item.Quantity,
			UnitPrice: unit,
			LineTotal: line,
		}
		if item.Variant != nil {
			orderItem.Name = fmt.Sprintf("%s - %s", item.Product.Name, item.Variant.Name)
			orderItem.SKU = item.Variant.SKU
			orderItem.SupplierVariantID = item.Variant.SupplierVariantID
		}
		if order.SupplierID == nil && item.Product.SupplierID != nil {
			order.SupplierID = item.Product.SupplierID
		}
		if item.Product.Currency != "" {
			order.Currency = item.Product.Currency
		}

		order.Items = append(order.Items, orderItem)
		subtotal = subtotal.Add(line)
		reservations = append(reservations, repository.StockReservation{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
		})
		cartItemIDs = append(cartItemIDs, item.ID)
	}
	order.Subtotal = subtotal
	order.Total = subtotal.Add(order.ShippingTotal)

	if err := s.orders.Checkout(ctx, order, reservations, cartItemIDs); err != nil {
		if errors.Is(err, repository.ErrInsufficientStock) {
			return nil, ErrInsufficientStock
		}
		return nil, fmt.Errorf("checkout failed: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"orderId":     order.ID,
		"orderNumber": order.OrderNumber,
		"total":       order.Total.StringFixed(2),
	}).Info("Order placed")
	s.publish(ctx, events.SubjectOrderPlaced, order)
	return order, nil
}

// ListOwn lists the caller's orders
func (s *OrderService) ListOwn(ctx context.Context, userID uuid.UUID, opts repository.OrderListOptions) ([]models.Order, int64, error) {
	opts.UserID = &userID
	return s.orders.List(ctx, opts)
}

// GetOwn retrieves one of the caller's orders. Other users' orders read as
// not found.
func (s *OrderService) GetOwn(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, repository.ErrNotFound
	}
	return order, nil
}

// CancelOwn cancels the caller's order while it is still PENDING or CONFIRMED
func (s *OrderService) CancelOwn(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.GetOwn(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.cancel(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *OrderService) cancel(ctx context.Context, order *models.Order) error {
	if !order.Status.Cancellable() {
		return ErrOrderNotCancellable
	}
	lines := make([]repository.StockReservation, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, repository.StockReservation{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
		})
	}
	if err := s.orders.Cancel(ctx, order, lines); err != nil {
		if errors.Is(err, repository.ErrStateChanged) {
			return ErrOrderNotCancellable
		}
		return err
	}
	return nil
}

// List lists orders for administration
func (s *OrderService) List(ctx context.Context, opts repository.OrderListOptions) ([]models.Order, int64, error) {
	return s.orders.List(ctx, opts)
}

// Get retrieves any order
func (s *OrderService) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return s.orders.GetByID(ctx, id)
}

// UpdateStatus sets an order's status by hand. Cancelling goes through the
// regular cancellation so reserved stock is returned.
func (s *OrderService) UpdateStatus(ctx context.Context, actorID string, id uuid.UUID, req *models.UpdateOrderStatusRequest) (*models.Order, error) {
	if !req.Status.Valid() {
		return nil, invalid("unknown order status %q", req.Status)
	}
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	oldStatus := order.Status

	if req.Status == models.OrderCancelled {
		if err := s.cancel(ctx, order); err != nil {
			return nil, err
		}
	} else {
		if oldStatus == models.OrderCancelled {
			return nil, invalid("a cancelled order cannot be reopened")
		}
		updates := map[string]interface{}{"status": req.Status}
		if req.TrackingNumber != nil {
			updates["tracking_number"] = strings.TrimSpace(*req.TrackingNumber)
			order.TrackingNumber = strings.TrimSpace(*req.TrackingNumber)
		}
		if err := s.orders.UpdateFields(ctx, id, updates); err != nil {
			return nil, err
		}
		order.Status = req.Status
	}

	s.audit.LogChange(ctx, actorID, models.ActionOrderStatus, models.ResourceOrder, id.String(),
		models.JSONB{"status": oldStatus}, models.JSONB{"status": order.Status})
	return order, nil
}

// PlaceWithSupplier creates the supplier fulfilment order. Every item must
// carry a supplier variant id.
func (s *OrderService) PlaceWithSupplier(ctx context.Context, actorID string, id uuid.UUID, req *models.PlaceSupplierOrderRequest) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.SupplierOrderID != nil && *order.SupplierOrderID != "" {
		return nil, ErrAlreadyPlaced
	}
	if order.Status != models.OrderPending && order.Status != models.OrderConfirmed {
		return nil, invalid("order in status %s cannot be placed with the supplier", order.Status)
	}
	if len(order.Items) == 0 {
		return nil, invalid("order has no items")
	}

	lines := make([]clients.OrderLine, 0, len(order.Items))
	for _, item := range order.Items {
		if item.SupplierVariantID == nil || *item.SupplierVariantID == "" {
			return nil, fmt.Errorf("%w: %s", ErrMissingSupplierItem, item.Name)
		}
		lines = append(lines, clients.OrderLine{VariantID: *item.SupplierVariantID, Quantity: item.Quantity})
	}

	supplierID, err := s.orderSupplier(ctx, order)
	if err != nil {
		return nil, err
	}
	client, _, err := s.suppliers.Client(ctx, supplierID)
	if err != nil {
		return nil, err
	}

	logistic := order.LogisticName
	if req != nil && strings.TrimSpace(req.LogisticName) != "" {
		logistic = strings.TrimSpace(req.LogisticName)
	}

	claimed, err := s.orders.ClaimPlacement(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	if !claimed {
		current, err := s.orders.GetByID(ctx, order.ID)
		if err == nil && current.SupplierOrderID != nil && *current.SupplierOrderID != "" {
			return nil, ErrAlreadyPlaced
		}
		return nil, ErrPlacementInProgress
	}

	external, err := client.CreateOrder(ctx, &clients.CreateOrderRequest{
		OrderNumber:     order.OrderNumber,
		ShippingName:    order.ShippingName,
		ShippingPhone:   order.ShippingPhone,
		Address1:        order.ShippingAddress1,
		Address2:        order.ShippingAddress2,
		City:            order.ShippingCity,
		Province:        order.ShippingProvince,
		Zip:             order.ShippingZip,
		CountryCode:     order.ShippingCountry,
		LogisticName:    logistic,
		FromCountryCode: defaultShipFrom,
		Remark:          order.Notes,
		Lines:           lines,
	})
	if err != nil {
		released := map[string]interface{}{"failure_reason": err.Error(), "placement_started_at": nil}
		if uerr := s.orders.UpdateFields(ctx, order.ID, released); uerr != nil {
			s.logger.WithError(uerr).WithField("orderId", order.ID).Warn("Failed to record supplier order failure")
		}
		return nil, fmt.Errorf("supplier order failed: %w", err)
	}

	now := s.now()
	updates := map[string]interface{}{
		"supplier_id":           supplierID,
		"supplier_order_id":     external.ID,
		"supplier_order_status": external.Status,
		"supplier_updated_at":   now,
		"status":                models.OrderPlacedWithSupplier,
		"logistic_name":         logistic,
		"failure_reason":        "",
		"placement_started_at":  nil,
	}
	if external.TrackingNumber != "" {
		updates["tracking_number"] = external.TrackingNumber
		order.TrackingNumber = external.TrackingNumber
	}
	if err := s.orders.UpdateFields(ctx, order.ID, updates); err != nil {
		return nil, fmt.Errorf("supplier order %s created but not recorded: %w", external.ID, err)
	}

	supplierOrderID := external.ID
	order.SupplierID = &supplierID
	order.SupplierOrderID = &supplierOrderID
	order.SupplierOrderStatus = external.Status
	order.SupplierUpdatedAt = &now
	order.Status = models.OrderPlacedWithSupplier
	order.LogisticName = logistic
	order.FailureReason = ""

	s.audit.UserAction(ctx, actorID, models.ActionOrderPlaceSupplier, models.ResourceOrder, order.ID.String(), models.JSONB{
		"supplierOrderId": supplierOrderID,
		"items":           len(lines),
	})
	s.publish(ctx, events.SubjectSupplierOrderUpdate, order)
	return order, nil
}

// FreightQuote asks a supplier for shipping options for a set of variants
func (s *OrderService) FreightQuote(ctx context.Context, supplierID uuid.UUID, req *models.FreightQuoteRequest) ([]clients.FreightOption, error) {
	if len(req.Items) == 0 {
		return nil, invalid("items must not be empty")
	}

	client, _, err := s.suppliers.Client(ctx, supplierID)
	if err != nil {
		return nil, err
	}

	lines := make([]clients.OrderLine, 0, len(req.Items))
	for _, item := range req.Items {
		if item.Quantity < 1 {
			return nil, invalid("quantity must be positive")
		}
		variant, err := s.products.GetVariantByID(ctx, item.VariantID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, invalid("variant %s does not exist", item.VariantID)
			}
			return nil, err
		}
		if variant.SupplierVariantID == nil {
			return nil, fmt.Errorf("%w: variant %s", ErrMissingSupplierItem, item.VariantID)
		}
		lines = append(lines, clients.OrderLine{VariantID: *variant.SupplierVariantID, Quantity: item.Quantity})
	}

	from := strings.ToUpper(defaultStr(req.StartCountryCode, defaultShipFrom))
	options, err := client.CalculateFreight(ctx, &clients.FreightRequest{
		StartCountryCode: from,
		EndCountryCode:   strings.ToUpper(req.EndCountryCode),
		Zip:              req.Zip,
		Lines:            lines,
	})
	if err != nil {
		return nil, fmt.Errorf("freight calculation failed: %w", err)
	}
	return options, nil
}

func (s *OrderService) orderSupplier(ctx context.Context, order *models.Order) (uuid.UUID, error) {
	if order.SupplierID != nil {
		return *order.SupplierID, nil
	}
	supplier, err := s.suppliers.DefaultSupplier(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	return supplier.ID, nil
}

func (s *OrderService) publish(ctx context.Context, subject string, order *models.Order) {
	event := events.OrderEvent{
		EventType:      subject,
		Timestamp:      s.now().UTC(),
		OrderID:        order.ID.String(),
		OrderNumber:    order.OrderNumber,
		UserID:         order.UserID.String(),
		Status:         string(order.Status),
		Total:          order.Total.StringFixed(2),
		SupplierStatus: order.SupplierOrderStatus,
		TrackingNumber: order.TrackingNumber,
	}
	if order.SupplierOrderID != nil {
		event.SupplierOrderID = *order.SupplierOrderID
	}
	if err := s.publisher.Publish(ctx, subject, event); err != nil {
		s.logger.WithError(err).WithField("orderId", order.ID).Warn("Failed to publish order event")
	}
}

// orderNumber is ORD-<yyyymmdd>-<6 random base36 chars>
func (s *OrderService) orderNumber() string {
	const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	suffix := make([]byte, 6)
	for i := range suffix {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
		if err != nil {
			suffix[i] = alphabet[i]
			continue
		}
		suffix[i] = alphabet[n.Int64()]
	}
	return fmt.Sprintf("ORD-%s-%s", s.now().UTC().Format("20060102"), suffix)
}

func validateAddress(a *models.ShippingAddress) error {
	switch {
	case strings.TrimSpace(a.ShippingName) == "":
		return invalid("shipping name is required")
	case strings.TrimSpace(a.ShippingAddress1) == "":
		return invalid("shipping address is required")
	case strings.TrimSpace(a.ShippingCity) == "":
		return invalid("shipping city is required")
	case len(strings.TrimSpace(a.ShippingCountry)) != 2:
		return invalid("shipping country must be a 2-letter code")
	}
	return nil
}
