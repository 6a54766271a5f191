package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dropship-service/internal/auth"
	"dropship-service/internal/config"
	"dropship-service/internal/database"
	"dropship-service/internal/events"
	"dropship-service/internal/handlers"
	"dropship-service/internal/middleware"
	"dropship-service/internal/models"
	"dropship-service/internal/repository"
	"dropship-service/internal/secrets"
	"dropship-service/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Local development reads a .env file; deployed environments set real variables
	_ = godotenv.Load()

	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	// Load configuration
	cfg := config.Load()
	if cfg.IsProduction() {
		logger.SetFormatter(&logrus.JSONFormatter{})
		gin.SetMode(gin.ReleaseMode)
	} else {
		logger.SetLevel(logrus.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to database
	db, err := database.Connect(cfg.DatabaseURL, cfg.Environment)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	if err := database.Ping(db); err != nil {
		logger.WithError(err).Fatal("Database is not reachable")
	}

	// Auto-migrate models
	if err := db.AutoMigrate(
		&models.User{},
		&models.Supplier{},
		&models.Category{},
		&models.Product{},
		&models.ProductVariant{},
		&models.SupplierCategory{},
		&models.CategoryMapping{},
		&models.UnmappedCategory{},
		&models.SupplierSyncJob{},
		&models.SupplierSyncLog{},
		&models.SupplierWebhookEvent{},
		&models.CartItem{},
		&models.WishlistItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.AuditLog{},
	); err != nil {
		logger.WithError(err).Warn("Auto-migration failed")
	}
	logger.Info("Database models migrated")

	// Redis caches the category trees; the service runs without it
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.WithError(err).Warn("Invalid REDIS_URL, caching disabled")
		} else {
			redisClient = redis.NewClient(opts)
			if err := redisClient.Ping(ctx).Err(); err != nil {
				logger.WithError(err).Warn("Redis not reachable, caching disabled")
				redisClient.Close()
				redisClient = nil
			} else {
				logger.Info("Redis cache connected")
			}
		}
	}

	// Domain events go to NATS JetStream when configured
	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.NATSURL != "" {
		natsPublisher, err := events.NewNATSPublisher(ctx, cfg.NATSURL, logger)
		if err != nil {
			logger.WithError(err).Warn("Failed to connect to NATS, events disabled")
		} else {
			defer natsPublisher.Close()
			publisher = natsPublisher
			logger.Info("NATS event publisher initialized")
		}
	}

	// Supplier credentials live in GCP Secret Manager, or in memory for local runs
	var secretStore secrets.Store = secrets.NewMemoryStore()
	if cfg.GCPProjectID != "" {
		secretManager, err := secrets.NewGCPSecretManager(ctx, cfg.GCPProjectID, "")
		if err != nil {
			logger.WithError(err).Warn("Failed to initialize GCP Secret Manager, using in-memory store")
		} else {
			secretStore = secretManager
			logger.Info("GCP Secret Manager initialized")
		}
	}

	tokens, err := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	if err != nil {
		logger.WithError(err).Fatal("Invalid token configuration")
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	supplierRepo := repository.NewSupplierRepository(db)
	categoryRepo := repository.NewCategoryRepository(db, redisClient)
	productRepo := repository.NewProductRepository(db)
	mappingRepo := repository.NewMappingRepository(db, redisClient)
	syncRepo := repository.NewSyncRepository(db)
	webhookRepo := repository.NewWebhookRepository(db)
	cartRepo := repository.NewCartRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	// Initialize services
	limiterConfig := services.DefaultJobLimiterConfig()
	pricer := services.NewPricer(cfg.PriceMarkupPercent)

	auditService := services.NewAuditService(auditRepo, logger)
	userService := services.NewUserService(userRepo, tokens, auditService, logger)
	supplierService := services.NewSupplierService(supplierRepo, secretStore, cfg, auditService, logger)
	categoryService := services.NewCategoryService(categoryRepo, logger)
	mappingService := services.NewMappingService(mappingRepo, categoryRepo, supplierService, auditService, logger)
	catalogService := services.NewCatalogService(productRepo, categoryRepo, supplierService, pricer, auditService, cfg.DefaultCurrency, logger)
	importService := services.NewImportService(productRepo, mappingService, supplierService, pricer, publisher, auditService, cfg.DefaultCurrency, limiterConfig.MaxImportWorkers, logger)
	syncService := services.NewSyncService(syncRepo, productRepo, supplierService, mappingService, importService, services.NewJobLimiter(limiterConfig), auditService, cfg, logger)
	webhookService := services.NewWebhookService(webhookRepo, productRepo, orderRepo, supplierService, mappingService, pricer, publisher, auditService, cfg.CJWebhookToken, logger)
	cartService := services.NewCartService(cartRepo, productRepo, cfg.DefaultCurrency, logger)
	orderService := services.NewOrderService(orderRepo, cartRepo, productRepo, supplierService, publisher, auditService, cfg.DefaultCurrency, logger)

	// Bootstrap data
	if _, err := supplierService.EnsureDefaultSupplier(ctx); err != nil {
		logger.WithError(err).Warn("Default supplier not provisioned")
	}
	if err := userService.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		logger.WithError(err).Warn("Bootstrap admin not provisioned")
	}
	syncService.RecoverStaleJobs(ctx)

	// Background workers
	var workers errgroup.Group
	workers.Go(func() error {
		syncService.RunStockSchedule(ctx, cfg.StockSyncInterval)
		return nil
	})
	workers.Go(func() error {
		webhookService.RunReplayWorker(ctx, cfg.WebhookReplayInterval)
		return nil
	})

	// Initialize handlers
	h := &routeHandlers{
		health:    handlers.NewHealthHandler(db, redisClient),
		auth:      handlers.NewAuthHandler(userService),
		users:     handlers.NewUserHandler(userService),
		catalog:   handlers.NewCatalogHandler(catalogService),
		category:  handlers.NewCategoryHandler(categoryService),
		cart:      handlers.NewCartHandler(cartService),
		orders:    handlers.NewOrderHandler(orderService, supplierService),
		suppliers: handlers.NewSupplierHandler(supplierService),
		mappings:  handlers.NewMappingHandler(mappingService, supplierService),
		imports:   handlers.NewImportHandler(importService, supplierService),
		sync:      handlers.NewSyncHandler(syncService),
		webhooks:  handlers.NewWebhookHandler(webhookService),
		audit:     handlers.NewAuditHandler(auditService),
	}

	// Setup router
	router := setupRouter(cfg, logger, tokens, h)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithFields(logrus.Fields{
			"port":        cfg.Port,
			"environment": cfg.Environment,
		}).Info("Dropship service starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("HTTP server shutdown failed")
	}

	// Workers exit on ctx; once they have, nothing else can start a sync job
	_ = workers.Wait()
	syncService.Shutdown()

	if redisClient != nil {
		redisClient.Close()
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	logger.Info("Dropship service stopped")
}

type routeHandlers struct {
	health    *handlers.HealthHandler
	auth      *handlers.AuthHandler
	users     *handlers.UserHandler
	catalog   *handlers.CatalogHandler
	category  *handlers.CategoryHandler
	cart      *handlers.CartHandler
	orders    *handlers.OrderHandler
	suppliers *handlers.SupplierHandler
	mappings  *handlers.MappingHandler
	imports   *handlers.ImportHandler
	sync      *handlers.SyncHandler
	webhooks  *handlers.WebhookHandler
	audit     *handlers.AuditHandler
}

// setupRouter configures the HTTP router
func setupRouter(cfg *config.Config, logger *logrus.Logger, tokens *auth.TokenManager, h *routeHandlers) *gin.Engine {
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	// Health check
	router.GET("/health", h.health.Health)
	router.GET("/ready", h.health.Ready)

	v1 := router.Group("/api/v1")

	// Public auth
	authGroup := v1.Group("/auth")
	{
		authGroup.POST("/register", h.auth.Register)
		authGroup.POST("/login", h.auth.Login)
		authGroup.POST("/refresh", h.auth.Refresh)
	}

	// Public storefront
	store := v1.Group("/store")
	{
		store.GET("/products", h.catalog.ListStorefront)
		store.GET("/products/:slug", h.catalog.GetStorefrontProduct)
		store.GET("/categories/tree", h.category.Tree)
		store.GET("/categories/:slug", h.category.GetBySlug)
	}

	// Supplier callbacks, guarded by the shared webhook token
	v1.POST("/webhooks/cj", h.webhooks.HandleCJWebhook)

	// Authenticated customers
	customer := v1.Group("")
	customer.Use(middleware.Authenticate(tokens))
	{
		customer.GET("/me", h.auth.Me)
		customer.PATCH("/me", h.auth.UpdateProfile)

		customer.GET("/cart", h.cart.GetCart)
		customer.DELETE("/cart", h.cart.Clear)
		customer.POST("/cart/items", h.cart.AddItem)
		customer.PATCH("/cart/items/:itemId", h.cart.UpdateItem)
		customer.DELETE("/cart/items/:itemId", h.cart.RemoveItem)

		customer.GET("/wishlist", h.cart.Wishlist)
		customer.POST("/wishlist/:productId", h.cart.AddToWishlist)
		customer.DELETE("/wishlist/:productId", h.cart.RemoveFromWishlist)
		customer.POST("/wishlist/:productId/move-to-cart", h.cart.MoveToCart)

		customer.POST("/orders", h.orders.Checkout)
		customer.GET("/orders", h.orders.ListOwn)
		customer.GET("/orders/:id", h.orders.GetOwn)
		customer.POST("/orders/:id/cancel", h.orders.CancelOwn)
	}

	// Administration
	admin := v1.Group("/admin")
	admin.Use(middleware.Authenticate(tokens), middleware.RequireRole(models.RoleAdmin))
	{
		products := admin.Group("/products")
		{
			products.GET("", h.catalog.ListProducts)
			products.POST("", h.catalog.CreateProduct)
			products.GET("/export", h.catalog.ExportProducts)
			products.GET("/:id", h.catalog.GetProduct)
			products.PATCH("/:id", h.catalog.UpdateProduct)
			products.PATCH("/:id/status", h.catalog.UpdateStatus)
			products.DELETE("/:id", h.catalog.DeleteProduct)
		}

		categories := admin.Group("/categories")
		{
			categories.GET("", h.category.List)
			categories.POST("", h.category.Create)
			categories.GET("/tree", h.category.AdminTree)
			categories.GET("/:id", h.category.Get)
			categories.PATCH("/:id", h.category.Update)
			categories.DELETE("/:id", h.category.Delete)
		}

		suppliers := admin.Group("/suppliers")
		{
			suppliers.GET("", h.suppliers.List)
			suppliers.POST("", h.suppliers.Create)
			suppliers.GET("/:id", h.suppliers.Get)
			suppliers.PATCH("/:id", h.suppliers.Update)
			suppliers.DELETE("/:id", h.suppliers.Delete)
			suppliers.POST("/:id/test", h.suppliers.TestConnection)
			suppliers.PUT("/:id/credentials", h.suppliers.UpdateCredentials)
		}

		users := admin.Group("/users")
		{
			users.GET("", h.users.List)
			users.GET("/:id", h.users.Get)
			users.PATCH("/:id", h.users.Update)
			users.DELETE("/:id", h.users.Delete)
		}

		orders := admin.Group("/orders")
		{
			orders.GET("", h.orders.List)
			orders.GET("/:id", h.orders.Get)
			orders.PATCH("/:id/status", h.orders.UpdateStatus)
			orders.POST("/:id/place", h.orders.PlaceWithSupplier)
		}

		// Supplier catalog operations; ?supplierId= selects a supplier, default otherwise
		supplier := admin.Group("/supplier")
		{
			supplier.GET("/products", h.imports.Search)
			supplier.POST("/products/import", h.imports.BulkImport)
			supplier.POST("/products/:pid/import", h.imports.Import)
			supplier.POST("/freight", h.orders.FreightQuote)

			supplier.POST("/categories/sync", h.mappings.SyncCategories)
			supplier.GET("/categories", h.mappings.ListSupplierCategories)

			supplier.GET("/mappings", h.mappings.ListMappings)
			supplier.PUT("/mappings", h.mappings.UpsertMapping)
			supplier.PUT("/mappings/bulk", h.mappings.BulkUpsertMappings)
			supplier.POST("/mappings/auto", h.mappings.AutoMap)
			supplier.DELETE("/mappings/:id", h.mappings.DeleteMapping)

			supplier.GET("/unmapped", h.mappings.ListUnmapped)
			supplier.GET("/unmapped/export", h.mappings.ExportUnmapped)

			supplier.GET("/sync/jobs", h.sync.ListJobs)
			supplier.POST("/sync/jobs", h.sync.CreateJob)
			supplier.GET("/sync/jobs/:id", h.sync.GetJob)
			supplier.POST("/sync/jobs/:id/cancel", h.sync.CancelJob)
			supplier.GET("/sync/jobs/:id/logs", h.sync.GetJobLogs)
			supplier.GET("/sync/stats", h.sync.GetStats)

			supplier.GET("/webhooks", h.webhooks.ListEvents)
			supplier.GET("/webhooks/:id", h.webhooks.GetEvent)
			supplier.POST("/webhooks/:id/replay", h.webhooks.ReplayEvent)
		}

		admin.GET("/audit-logs", h.audit.GetAuditLogs)
	}

	return router
}
