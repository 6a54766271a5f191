package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Tesseract-Nexus/go-shared/secrets"
)

// Config holds all configuration for the dropship service
type Config struct {
	// Server
	Port        string
	Environment string

	// Database
	DatabaseURL string

	// Redis (category cache)
	RedisURL string

	// NATS (domain events)
	NATSURL string

	// GCP
	GCPProjectID string

	// Auth
	JWTSecret       string
	JWTIssuer       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	AdminEmail      string
	AdminPassword   string

	// CJ Dropshipping
	CJBaseURL      string
	CJAPIKey       string
	CJEmail        string
	CJSecretName   string
	CJRateLimit    int // requests per second
	CJWebhookToken string

	// Sync Settings
	SyncBatchSize         int
	SyncMaxRetries        int
	SyncRetryDelay        time.Duration
	SyncTimeout           time.Duration
	StockSyncInterval     time.Duration
	WebhookReplayInterval time.Duration

	// Pricing
	PriceMarkupPercent float64
	DefaultCurrency    string

	// HTTP
	CORSAllowedOrigins []string

	// Pagination
	DefaultPageSize int
	MaxPageSize     int
}

// Load loads configuration from environment variables
func Load() *Config {
	// Build DATABASE_URL from components using GCP Secret Manager for password
	databaseURL := getEnv("DATABASE_URL", "")
	if databaseURL == "" {
		dbHost := getEnv("DB_HOST", "localhost")
		dbPort := getEnv("DB_PORT", "5432")
		dbUser := getEnv("DB_USER", "postgres")
		dbPassword := secrets.GetDBPassword()
		dbName := getEnv("DB_NAME", "dropship")
		dbSSLMode := getEnv("DB_SSLMODE", "disable")

		databaseURL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
			dbUser, dbPassword, dbHost, dbPort, dbName, dbSSLMode)
	}

	config := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		DatabaseURL: databaseURL,

		RedisURL: getEnv("REDIS_URL", ""),
		NATSURL:  getEnv("NATS_URL", ""),

		GCPProjectID: getEnv("GCP_PROJECT_ID", ""),

		JWTSecret:       getEnv("JWT_SECRET", ""),
		JWTIssuer:       getEnv("JWT_ISSUER", "dropship-service"),
		AccessTokenTTL:  getEnvAsDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL: getEnvAsDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),
		AdminEmail:      getEnv("ADMIN_EMAIL", ""),
		AdminPassword:   getEnv("ADMIN_PASSWORD", ""),

		CJBaseURL:      getEnv("CJ_BASE_URL", "https://developers.cjdropshipping.com/api2.0/v1"),
		CJAPIKey:       getEnv("CJ_API_KEY", ""),
		CJEmail:        getEnv("CJ_EMAIL", ""),
		CJSecretName:   getEnv("CJ_SECRET_NAME", ""),
		CJRateLimit:    getEnvAsInt("CJ_RATE_LIMIT", 1),
		CJWebhookToken: getEnv("CJ_WEBHOOK_TOKEN", ""),

		SyncBatchSize:         getEnvAsInt("SYNC_BATCH_SIZE", 50),
		SyncMaxRetries:        getEnvAsInt("SYNC_MAX_RETRIES", 3),
		SyncRetryDelay:        getEnvAsDuration("SYNC_RETRY_DELAY", 2*time.Second),
		SyncTimeout:           getEnvAsDuration("SYNC_TIMEOUT", 30*time.Minute),
		StockSyncInterval:     getEnvAsDuration("STOCK_SYNC_INTERVAL", 0),
		WebhookReplayInterval: getEnvAsDuration("WEBHOOK_REPLAY_INTERVAL", 5*time.Minute),

		PriceMarkupPercent: getEnvAsFloat("PRICE_MARKUP_PERCENT", 30),
		DefaultCurrency:    getEnv("DEFAULT_CURRENCY", "USD"),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{
			"http://localhost:3000",
			"http://localhost:3001",
		}),

		DefaultPageSize: getEnvAsInt("DEFAULT_PAGE_SIZE", 20),
		MaxPageSize:     getEnvAsInt("MAX_PAGE_SIZE", 100),
	}

	// Validate required fields
	if config.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}
	if config.JWTSecret == "" {
		if config.IsProduction() {
			log.Fatal("JWT_SECRET is required in production")
		}
		config.JWTSecret = "dev-secret-change-me"
		log.Println("Warning: JWT_SECRET not set, using development secret")
	}

	if config.GCPProjectID == "" {
		log.Println("Warning: GCP_PROJECT_ID not set, supplier credentials are read from CJ_API_KEY")
	}

	return config
}

// IsProduction reports whether the service runs in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// ClampPageSize applies the configured default and upper bound to a page size
func (c *Config) ClampPageSize(size int) int {
	if size <= 0 {
		return c.DefaultPageSize
	}
	if size > c.MaxPageSize {
		return c.MaxPageSize
	}
	return size
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

// getEnvAsFloat gets an environment variable as a float with a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return f
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}

// getEnvAsList splits a comma separated variable, trimming blanks
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
