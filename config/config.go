package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"rifei/database"
)

// Config holds all application configuration
type Config struct {
	// Environment
	Environment string `env:"ENVIRONMENT" envDefault:"development"` // "development", "production" or "test"
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP configuration
	HTTPAddr    string   `env:"HTTP_ADDR" envDefault:":8080"`
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
	AppURL      string   `env:"APP_URL" envDefault:"http://localhost:8080"` // Public base URL used for gateway callbacks

	// Database configuration
	DatabaseURL      string `env:"DATABASE_URL"`
	DatabaseName     string `env:"DATABASE_NAME"`
	DatabaseMaxConns int32  `env:"DATABASE_MAX_CONNS" envDefault:"20"`

	// Redis configuration (webhook locks); empty disables locking
	RedisURL string `env:"REDIS_URL"`

	// NATS configuration (comma-separated); empty disables event publishing
	NATSServers string `env:"NATS_SERVERS"`

	// Mercado Pago configuration
	MercadoPagoAccessToken   string `env:"MERCADOPAGO_ACCESS_TOKEN"`
	MercadoPagoWebhookSecret string `env:"MERCADOPAGO_WEBHOOK_SECRET"`
	MercadoPagoBaseURL       string `env:"MERCADOPAGO_BASE_URL" envDefault:"https://api.mercadopago.com"`

	// Settlement rules
	PlatformFeeRate       decimal.Decimal `env:"PLATFORM_FEE_RATE" envDefault:"0.05"`
	ReservationTTL        time.Duration   `env:"RESERVATION_TTL" envDefault:"15m"`
	ReservationMaxNumbers int             `env:"RESERVATION_MAX_NUMBERS" envDefault:"100"`
	PaymentTTL            time.Duration   `env:"PAYMENT_TTL" envDefault:"30m"`
	RaffleMinTotalNumbers int             `env:"RAFFLE_MIN_TOTAL_NUMBERS" envDefault:"10"`
	RaffleCancelMaxSold   int             `env:"RAFFLE_CANCEL_MAX_SOLD" envDefault:"0"`
	StorageRetryAttempts  int             `env:"STORAGE_RETRY_ATTEMPTS" envDefault:"3"`

	// Workers
	ExpirySweepInterval time.Duration `env:"EXPIRY_SWEEP_INTERVAL" envDefault:"30s"`
	WebhookLockTTL      time.Duration `env:"WEBHOOK_LOCK_TTL" envDefault:"30s"`

	// Discord draw announcements; empty token disables them
	DiscordToken     string `env:"DISCORD_TOKEN"`
	DiscordChannelID string `env:"DISCORD_CHANNEL_ID"`

	// OpenTelemetry
	OTelExporter       string        `env:"OTEL_METRICS_EXPORTER" envDefault:"none"` // "none", "console" or "otlp"
	OTelEndpoint       string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	OTelExportInterval time.Duration `env:"OTEL_METRIC_EXPORT_INTERVAL" envDefault:"60s"`
	OTelServiceName    string        `env:"OTEL_SERVICE_NAME" envDefault:"rifei"`
}

// Load reads an optional .env file and parses configuration from the environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required configuration and value ranges
func (c *Config) Validate() error {
	if c.PlatformFeeRate.IsNegative() || c.PlatformFeeRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("PLATFORM_FEE_RATE must be in [0, 1), got %s", c.PlatformFeeRate)
	}
	if c.ReservationTTL <= 0 || c.PaymentTTL <= 0 {
		return fmt.Errorf("RESERVATION_TTL and PAYMENT_TTL must be positive")
	}
	if c.ReservationMaxNumbers < 1 || c.ReservationMaxNumbers > 100 {
		return fmt.Errorf("RESERVATION_MAX_NUMBERS must be between 1 and 100, got %d", c.ReservationMaxNumbers)
	}
	if c.StorageRetryAttempts < 1 {
		return fmt.Errorf("STORAGE_RETRY_ATTEMPTS must be at least 1")
	}
	if c.RaffleCancelMaxSold < 0 {
		return fmt.Errorf("RAFFLE_CANCEL_MAX_SOLD cannot be negative")
	}

	if c.Environment == "test" {
		return nil
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	// If DatabaseName is provided, ensure it's not blank
	if c.DatabaseName != "" && strings.TrimSpace(c.DatabaseName) == "" {
		return fmt.Errorf("DATABASE_NAME cannot be blank when provided")
	}
	if c.MercadoPagoAccessToken == "" {
		return fmt.Errorf("MERCADOPAGO_ACCESS_TOKEN is required")
	}
	if c.MercadoPagoWebhookSecret == "" {
		return fmt.Errorf("MERCADOPAGO_WEBHOOK_SECRET is required")
	}
	if c.DiscordToken != "" && c.DiscordChannelID == "" {
		return fmt.Errorf("DISCORD_CHANNEL_ID is required when DISCORD_TOKEN is set")
	}
	return nil
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// IsProduction reports whether the service runs in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Environment:              "test",
		LogLevel:                 "debug",
		HTTPAddr:                 ":0",
		AppURL:                   "http://localhost:8080",
		MercadoPagoWebhookSecret: "test-webhook-secret",
		MercadoPagoBaseURL:       "http://localhost",
		PlatformFeeRate:          decimal.RequireFromString("0.05"),
		ReservationTTL:           15 * time.Minute,
		ReservationMaxNumbers:    100,
		PaymentTTL:               30 * time.Minute,
		RaffleMinTotalNumbers:    10,
		RaffleCancelMaxSold:      0,
		StorageRetryAttempts:     3,
		ExpirySweepInterval:      time.Second,
		WebhookLockTTL:           30 * time.Second,
		OTelExporter:             "none",
	}
}
