package services

import (
	"context"
	"errors"
	"fmt"

	"dropship-service/internal/models"
	"dropship-service/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// CartService manages carts and wishlists
type CartService struct {
	repo     repository.CartRepositoryInterface
	products repository.ProductRepositoryInterface
	currency string
	logger   *logrus.Entry
}

// NewCartService creates a new cart service
func NewCartService(repo repository.CartRepositoryInterface, products repository.ProductRepositoryInterface, currency string, logger *logrus.Logger) *CartService {
	if currency == "" {
		currency = "USD"
	}
	return &CartService{
		repo:     repo,
		products: products,
		currency: currency,
		logger:   logger.WithField("component", "cart"),
	}
}

// GetCart returns the priced cart
func (s *CartService) GetCart(ctx context.Context, userID uuid.UUID) (*models.CartView, error) {
	items, err := s.repo.ListCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	return priceCart(items, s.currency), nil
}

func priceCart(items []models.CartItem, currency string) *models.CartView {
	view := &models.CartView{
		Items:    make([]models.CartLine, 0, len(items)),
		Subtotal: decimal.Zero,
		Currency: currency,
	}
	for _, item := range items {
		unit := item.UnitPrice()
		line := unit.Mul(decimal.NewFromInt(int64(item.Quantity))).Round(2)
		view.Items = append(view.Items, models.CartLine{CartItem: item, UnitPrice: unit, LineTotal: line})
		view.ItemCount += item.Quantity
		view.Subtotal = view.Subtotal.Add(line)
		if item.Product != nil && item.Product.Currency != "" {
			view.Currency = item.Product.Currency
		}
	}
	return view
}

// AddItem adds a product to the cart, merging with an existing line for the
// same product and variant
func (s *CartService) AddItem(ctx context.Context, userID uuid.UUID, req *models.AddCartItemRequest) (*models.CartView, error) {
	quantity := req.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 0 {
		return nil, invalid("quantity must be positive")
	}

	_, available, err := s.purchasable(ctx, req.ProductID, req.VariantID)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindCartLine(ctx, userID, req.ProductID, req.VariantID)
	switch {
	case err == nil:
		total := existing.Quantity + quantity
		if total > available {
			return nil, fmt.Errorf("%w: %d available", ErrInsufficientStock, available)
		}
		if err := s.repo.UpdateCartQuantity(ctx, existing.ID, total); err != nil {
			return nil, err
		}
	case errors.Is(err, repository.ErrNotFound):
		if quantity > available {
			return nil, fmt.Errorf("%w: %d available", ErrInsufficientStock, available)
		}
		item := &models.CartItem{
			ID:        uuid.New(),
			UserID:    userID,
			ProductID: req.ProductID,
			VariantID: req.VariantID,
			Quantity:  quantity,
		}
		if err := s.repo.CreateCartItem(ctx, item); err != nil {
			return nil, fmt.Errorf("failed to add cart item: %w", err)
		}
	default:
		return nil, err
	}

	return s.GetCart(ctx, userID)
}

// UpdateQuantity sets a line's quantity; zero removes the line
func (s *CartService) UpdateQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*models.CartView, error) {
	if quantity < 0 {
		return nil, invalid("quantity must not be negative")
	}
	item, err := s.repo.GetCartItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}

	if quantity == 0 {
		if err := s.repo.DeleteCartItem(ctx, userID, itemID); err != nil {
			return nil, err
		}
		return s.GetCart(ctx, userID)
	}

	_, available, err := s.purchasable(ctx, item.ProductID, item.VariantID)
	if err != nil {
		return nil, err
	}
	if quantity > available {
		return nil, fmt.Errorf("%w: %d available", ErrInsufficientStock, available)
	}
	if err := s.repo.UpdateCartQuantity(ctx, itemID, quantity); err != nil {
		return nil, err
	}
	return s.GetCart(ctx, userID)
}

// RemoveItem deletes a cart line
func (s *CartService) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*models.CartView, error) {
	if err := s.repo.DeleteCartItem(ctx, userID, itemID); err != nil {
		return nil, err
	}
	return s.GetCart(ctx, userID)
}

// Clear empties the cart
func (s *CartService) Clear(ctx context.Context, userID uuid.UUID) error {
	return s.repo.ClearCart(ctx, userID)
}

// Wishlist lists saved products
func (s *CartService) Wishlist(ctx context.Context, userID uuid.UUID) ([]models.WishlistItem, error) {
	return s.repo.ListWishlist(ctx, userID)
}

// AddToWishlist saves a product; saving it again changes nothing
func (s *CartService) AddToWishlist(ctx context.Context, userID, productID uuid.UUID) (*models.WishlistItem, error) {
	if existing, err := s.repo.GetWishlistItem(ctx, userID, productID); err == nil {
		return existing, nil
	}
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.Status != models.ProductActive {
		return nil, ErrProductUnavailable
	}

	item := &models.WishlistItem{ID: uuid.New(), UserID: userID, ProductID: productID}
	if err := s.repo.AddWishlist(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to save wishlist item: %w", err)
	}
	item.Product = product
	return item, nil
}

// RemoveFromWishlist removes a saved product
func (s *CartService) RemoveFromWishlist(ctx context.Context, userID, productID uuid.UUID) error {
	return s.repo.RemoveWishlist(ctx, userID, productID)
}

// MoveToCart adds a saved product to the cart and drops it from the wishlist
func (s *CartService) MoveToCart(ctx context.Context, userID, productID uuid.UUID, variantID *uuid.UUID) (*models.CartView, error) {
	if _, err := s.repo.GetWishlistItem(ctx, userID, productID); err != nil {
		return nil, err
	}
	view, err := s.AddItem(ctx, userID, &models.AddCartItemRequest{ProductID: productID, VariantID: variantID, Quantity: 1})
	if err != nil {
		return nil, err
	}
	if err := s.repo.RemoveWishlist(ctx, userID, productID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.logger.WithError(err).WithField("productId", productID).Warn("Failed to drop moved wishlist item")
	}
	return view, nil
}

// purchasable checks that a product (and variant) can be bought and returns
// the stock available for it
func (s *CartService) purchasable(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (*models.Product, int, error) {
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, 0, err
	}
	if product.Status != models.ProductActive {
		return nil, 0, ErrProductUnavailable
	}

	if variantID == nil {
		if len(product.Variants) > 0 {
			return nil, 0, invalid("product %s requires a variant", productID)
		}
		return product, product.Stock, nil
	}
	for _, v := range product.Variants {
		if v.ID == *variantID {
			return product, v.Stock, nil
		}
	}
	return nil, 0, invalid("variant %s does not belong to product %s", *variantID, productID)
}
