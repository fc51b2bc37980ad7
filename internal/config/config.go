package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the whole application configuration, populated from
// environment variables. Every binary (api, worker, scheduler) loads the
// same struct so defaults stay in one place.
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Gateway   GatewayConfig
	Currency  CurrencyConfig
	Reserve   ReservationConfig
	Scheduler SchedulerConfig
	Email     EmailConfig
}

type AppConfig struct {
	Name        string
	Environment string // development, staging, production
	Port        string
	FrontendURL string
	BackendURL  string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MinConns int

	// LockTimeout bounds SELECT ... FOR UPDATE waits; exceeding it surfaces
	// as a retryable LockTimeout error rather than an indefinite block.
	LockTimeout time.Duration
}

type RedisConfig struct {
	Host     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
}

// GatewayConfig configures the hosted-checkout provider (PayPro BPC).
type GatewayConfig struct {
	ShopID  string
	Secret  string
	BaseURL string
	Sandbox bool
	Timeout time.Duration
}

type CurrencyConfig struct {
	// OrderCurrency is what orders are priced and stored in.
	OrderCurrency string
	// PaymentCurrency is the currency sent to the gateway. Orders keep their
	// own currency; conversion happens on the payment attempt only.
	PaymentCurrency string
	ExchangeAPIKey  string
	FallbackRate    string // decimal string, e.g. "3.2"
	CacheTTL        time.Duration
}

type ReservationConfig struct {
	TTL time.Duration // how long a checkout holds stock before expiring
}

type SchedulerConfig struct {
	Interval     time.Duration
	HardTimeout  time.Duration // pending orders older than this get cancelled
	BatchSize    int
	StatsRetain  time.Duration // how long sweep_runs rows are kept
	ReconcileMax int           // gateway polls per sweep pass
	LockFile     string
}

type EmailConfig struct {
	SMTPHost string
	SMTPPort string
	From     string
}

// Load reads configuration from environment variables with sane defaults.
func Load() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "Commerce API"),
			Environment: getEnv("APP_ENV", "development"),
			Port:        getEnv("APP_PORT", "8080"),
			FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),
			BackendURL:  getEnv("BACKEND_URL", "http://localhost:8080"),
		},
		Database: DatabaseConfig{
			Host:        getEnv("DB_HOST", "localhost"),
			Port:        getEnvInt("DB_PORT", 5432),
			User:        getEnv("DB_USER", "postgres"),
			Password:    getEnv("DB_PASSWORD", ""),
			Database:    getEnv("DB_NAME", "commerce"),
			SSLMode:     getEnv("DB_SSLMODE", "disable"),
			MaxConns:    getEnvInt("DB_MAX_CONNS", 25),
			MinConns:    getEnvInt("DB_MIN_CONNS", 5),
			LockTimeout: time.Duration(getEnvInt("DB_LOCK_TIMEOUT_SECONDS", 10)) * time.Second,
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		},
		Gateway: GatewayConfig{
			ShopID:  getEnv("GATEWAY_SHOP_ID", ""),
			Secret:  getEnv("GATEWAY_SECRET", ""),
			BaseURL: getEnv("GATEWAY_BASE_URL", "https://checkout.paypro.by"),
			Sandbox: getEnv("GATEWAY_SANDBOX", "false") == "true",
			Timeout: time.Duration(getEnvInt("GATEWAY_TIMEOUT_SECONDS", 30)) * time.Second,
		},
		Currency: CurrencyConfig{
			OrderCurrency:   getEnv("ORDER_CURRENCY", "EUR"),
			PaymentCurrency: getEnv("PAYMENT_CURRENCY", "EUR"),
			ExchangeAPIKey:  getEnv("EXCHANGE_RATE_API_KEY", ""),
			FallbackRate:    getEnv("EUR_FALLBACK_RATE", "3.2"),
			CacheTTL:        time.Duration(getEnvInt("CURRENCY_CACHE_TTL_SECONDS", 3600)) * time.Second,
		},
		Reserve: ReservationConfig{
			TTL: time.Duration(getEnvInt("RESERVATION_TTL_MINUTES", 15)) * time.Minute,
		},
		Scheduler: SchedulerConfig{
			Interval:     time.Duration(getEnvInt("SCHEDULER_INTERVAL_MINUTES", 5)) * time.Minute,
			HardTimeout:  time.Duration(getEnvInt("HARD_TIMEOUT_MINUTES", 15)) * time.Minute,
			BatchSize:    getEnvInt("BATCH_SIZE", 100),
			StatsRetain:  time.Duration(getEnvInt("SWEEP_STATS_RETAIN_DAYS", 30)) * 24 * time.Hour,
			ReconcileMax: getEnvInt("RECONCILE_MAX_POLLS", 50),
			LockFile:     getEnv("SCHEDULER_LOCK_FILE", "expiry_scheduler.lock"),
		},
		Email: EmailConfig{
			SMTPHost: getEnv("SMTP_HOST", "localhost"),
			SMTPPort: getEnv("SMTP_PORT", "1025"),
			From:     getEnv("EMAIL_FROM", "noreply@example.com"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate rejects configurations that cannot work at all. Gateway
// credentials are only warned about because local development runs against
// the mock gateway.
func (c *Config) Validate() error {
	if c.App.Environment == "production" {
		if c.JWT.Secret == "your-secret-key-change-in-production" {
			return fmt.Errorf("JWT_SECRET must be set in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD must be set in production")
		}
		if c.Gateway.ShopID == "" || c.Gateway.Secret == "" {
			fmt.Println("WARNING: gateway credentials not set - payments will not work")
		}
	}

	if c.Reserve.TTL <= 0 {
		return fmt.Errorf("RESERVATION_TTL_MINUTES must be positive")
	}
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("SCHEDULER_INTERVAL_MINUTES must be positive")
	}
	if c.Scheduler.BatchSize <= 0 {
		return fmt.Errorf("BATCH_SIZE must be positive")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
