package services

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrInvalidCredentials    = errors.New("invalid email or password")
	ErrEmailTaken            = errors.New("email already registered")
	ErrAccountDisabled       = errors.New("account is disabled")
	ErrSlugTaken             = errors.New("slug already in use")
	ErrCategoryInUse         = errors.New("category has products or child categories")
	ErrProductUnavailable    = errors.New("product is not available")
	ErrInsufficientStock     = errors.New("insufficient stock")
	ErrCartEmpty             = errors.New("cart is empty")
	ErrOrderNotCancellable   = errors.New("order can no longer be cancelled")
	ErrMissingSupplierItem   = errors.New("order item has no supplier variant")
	ErrAlreadyPlaced         = errors.New("order already placed with supplier")
	ErrCategoryNotMapped     = errors.New("supplier category is not mapped")
	ErrSupplierNotConfigured = errors.New("supplier credentials are not configured")
	ErrSupplierDisabled      = errors.New("supplier is disabled")
	ErrJobAlreadyRunning     = errors.New("a sync job of this type is already running for the supplier")
	ErrJobNotRunning         = errors.New("job not found or not running")
	ErrTooManyJobs           = errors.New("sync concurrency limit reached")
	ErrShuttingDown          = errors.New("service is shutting down")
	ErrPlacementInProgress   = errors.New("order placement already in progress")
	ErrInvalidWebhookToken   = errors.New("invalid webhook token")
	ErrInvalidWebhookPayload = errors.New("invalid webhook payload")
)

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
