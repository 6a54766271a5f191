package repository

import (
	"context"
	"time"

	"dropship-service/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// placementClaimTTL is how long a placement claim blocks other placements
// and cancellation. A claim older than this belongs to a crashed request.
const placementClaimTTL = 5 * time.Minute

// StockReservation is the stock held by one order line
type StockReservation struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Quantity  int
}

// OrderRepository handles database operations for orders
type OrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Checkout reserves stock, stores the order with its items and removes the
// checked-out cart rows in one transaction. Cart rows added after the
// snapshot stay in the cart.
func (r *OrderRepository) Checkout(ctx context.Context, order *models.Order, lines []StockReservation, cartItemIDs []uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, line := range lines {
			if err := reserveStock(tx, line); err != nil {
				return err
			}
		}
		if err := tx.Create(order).Error; err != nil {
			return translate(err)
		}
		if len(cartItemIDs) == 0 {
			return nil
		}
		return tx.Where("user_id = ? AND id IN ?", order.UserID, cartItemIDs).Delete(&models.CartItem{}).Error
	})
}

func reserveStock(tx *gorm.DB, line StockReservation) error {
	now := time.Now()
	if line.VariantID != nil {
		result := tx.Model(&models.ProductVariant{}).
			Where("id = ? AND stock >= ?", *line.VariantID, line.Quantity).
			Updates(map[string]interface{}{"stock": gorm.Expr("stock - ?", line.Quantity), "updated_at": now})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrInsufficientStock
		}
		return tx.Model(&models.Product{}).
			Where("id = ?", line.ProductID).
			Updates(map[string]interface{}{"stock": gorm.Expr("GREATEST(stock - ?, 0)", line.Quantity), "updated_at": now}).Error
	}
	result := tx.Model(&models.Product{}).
		Where("id = ? AND stock >= ?", line.ProductID, line.Quantity).
		Updates(map[string]interface{}{"stock": gorm.Expr("stock - ?", line.Quantity), "updated_at": now})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrInsufficientStock
	}
	return nil
}

// Cancel cancels a still-cancellable order and returns its stock
func (r *OrderRepository) Cancel(ctx context.Context, order *models.Order, lines []StockReservation) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		result := tx.Model(&models.Order{}).
			Where("id = ? AND status IN ?", order.ID, []models.OrderStatus{models.OrderPending, models.OrderConfirmed}).
			Where("(placement_started_at IS NULL OR placement_started_at < ?)", now.Add(-placementClaimTTL)).
			Updates(map[string]interface{}{"status": models.OrderCancelled, "updated_at": now})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrStateChanged
		}
		for _, line := range lines {
			if line.VariantID != nil {
				if err := tx.Model(&models.ProductVariant{}).Where("id = ?", *line.VariantID).
					Update("stock", gorm.Expr("stock + ?", line.Quantity)).Error; err != nil {
					return err
				}
			}
			if err := tx.Model(&models.Product{}).Where("id = ?", line.ProductID).
				Update("stock", gorm.Expr("stock + ?", line.Quantity)).Error; err != nil {
				return err
			}
		}
		order.Status = models.OrderCancelled
		return nil
	})
}

// ClaimPlacement marks the order as being placed with its supplier. It
// reports false when the order already has a supplier order, is no longer
// pending or confirmed, or another placement holds a live claim.
func (r *OrderRepository) ClaimPlacement(ctx context.Context, id uuid.UUID) (bool, error) {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status IN ?", id, []models.OrderStatus{models.OrderPending, models.OrderConfirmed}).
		Where("(supplier_order_id IS NULL OR supplier_order_id = '')").
		Where("(placement_started_at IS NULL OR placement_started_at < ?)", now.Add(-placementClaimTTL)).
		Updates(map[string]interface{}{"placement_started_at": now, "updated_at": now})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// GetByID retrieves an order with its items
func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Preload("Items").First(&order, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

// GetBySupplierOrderID retrieves the order placed with a supplier under the given id
func (r *OrderRepository) GetBySupplierOrderID(ctx context.Context, supplierOrderID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("supplier_order_id = ?", supplierOrderID).
		First(&order).Error
	if err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

// List retrieves orders with pagination and filtering
func (r *OrderRepository) List(ctx context.Context, opts OrderListOptions) ([]models.Order, int64, error) {
	var orders []models.Order
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Order{})
	if opts.UserID != nil {
		query = query.Where("user_id = ?", *opts.UserID)
	}
	if opts.Status != "" {
		query = query.Where("status = ?", opts.Status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = paginate(query, opts.Limit, opts.Offset).Order("created_at DESC").Preload("Items")
	if err := query.Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// UpdateFields updates selected order columns
func (r *OrderRepository) UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// OrderListOptions contains options for listing orders
type OrderListOptions struct {
	UserID *uuid.UUID
	Status string
	Limit  int
	Offset int
}
