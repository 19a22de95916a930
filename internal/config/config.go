package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Order store backends
const (
	OrderStoreMemory   = "memory"
	OrderStorePostgres = "postgres"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Session    SessionConfig
	Resend     ResendConfig
	SMTP       SMTPConfig
	Checkout   CheckoutConfig
	Log        LogConfig
	OrderStore string
}

type ServerConfig struct {
	Port           string
	Host           string
	Env            string
	AllowedOrigins []string
}

type DatabaseConfig struct {
	URL         string // Full database URL
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	AutoMigrate bool
}

type RedisConfig struct {
	URL      string
	Addr     string
	Password string
	DB       int
}

type SessionConfig struct {
	Secret string
	MaxAge int
}

type ResendConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
}

// SMTPConfig is used for ticket email when no Resend API key is configured
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
}

// CheckoutConfig tunes the payment processor
type CheckoutConfig struct {
	Currency          string
	SideEffectTimeout time.Duration
	IdempotencyTTL    time.Duration
	// RateLimit is the number of checkout attempts allowed per client per minute; 0 disables it
	RateLimit int
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	// Load .env files if they exist (try .env.local first, then .env)
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Host: getEnv("HOST", "localhost"),
			Env:  getEnv("ENV", "development"),

			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Database: parseDatabaseConfig(),
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", ""),
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Session: SessionConfig{
			Secret: getEnv("SESSION_SECRET", "your-secret-key-change-in-production"),
			MaxAge: getEnvAsInt("SESSION_MAX_AGE", 86400),
		},
		Resend: ResendConfig{
			APIKey:    getEnv("RESEND_API_KEY", ""),
			FromEmail: getEnv("RESEND_FROM_EMAIL", "tickets@eventtickets.com"),
			FromName:  getEnv("RESEND_FROM_NAME", "Event Tickets"),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnv("SMTP_PORT", "587"),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
		},
		Checkout: CheckoutConfig{
			Currency:          strings.ToUpper(getEnv("CHECKOUT_CURRENCY", "ZAR")),
			SideEffectTimeout: getEnvAsDuration("CHECKOUT_SIDE_EFFECT_TIMEOUT", 5*time.Second),
			IdempotencyTTL:    getEnvAsDuration("CHECKOUT_IDEMPOTENCY_TTL", 24*time.Hour),
			RateLimit:         getEnvAsInt("CHECKOUT_RATE_LIMIT", 10),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		OrderStore: strings.ToLower(getEnv("ORDER_STORE", OrderStoreMemory)),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate rejects combinations the server cannot start with
func (c *Config) Validate() error {
	switch c.OrderStore {
	case OrderStoreMemory, OrderStorePostgres:
	default:
		return fmt.Errorf("ORDER_STORE must be %q or %q, got %q", OrderStoreMemory, OrderStorePostgres, c.OrderStore)
	}

	if c.Checkout.SideEffectTimeout <= 0 {
		return fmt.Errorf("CHECKOUT_SIDE_EFFECT_TIMEOUT must be positive")
	}

	if c.Checkout.RateLimit < 0 {
		return fmt.Errorf("CHECKOUT_RATE_LIMIT cannot be negative")
	}

	if len(c.Checkout.Currency) != 3 {
		return fmt.Errorf("CHECKOUT_CURRENCY must be a three letter code, got %q", c.Checkout.Currency)
	}

	if c.Server.Env == "production" && c.Session.Secret == "your-secret-key-change-in-production" {
		return fmt.Errorf("SESSION_SECRET must be set in production")
	}

	return nil
}

// Enabled reports whether a Redis server is configured
func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Addr != ""
}

// IsDevelopment reports whether the server runs in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

func parseDatabaseConfig() DatabaseConfig {
	autoMigrate := getEnvAsBool("AUTO_MIGRATE", false)

	// Check if DATABASE_URL is provided
	databaseURL := getEnv("DATABASE_URL", "")
	if databaseURL != "" {
		config := parseDatabaseURL(databaseURL)
		config.AutoMigrate = autoMigrate
		return config
	}

	// Fall back to individual environment variables
	return DatabaseConfig{
		Host:        getEnv("DB_HOST", "localhost"),
		Port:        getEnvAsInt("DB_PORT", 5432),
		User:        getEnv("DB_USER", "postgres"),
		Password:    getEnv("DB_PASSWORD", ""),
		DBName:      getEnv("DB_NAME", "event_checkout"),
		SSLMode:     getEnv("DB_SSLMODE", "disable"),
		AutoMigrate: autoMigrate,
	}
}

func parseDatabaseURL(databaseURL string) DatabaseConfig {
	config := DatabaseConfig{
		URL: databaseURL,
	}

	u, err := url.Parse(databaseURL)
	if err != nil {
		// If parsing fails, return the URL as-is
		return config
	}

	config.Host = u.Hostname()
	if u.Port() != "" {
		config.Port, _ = strconv.Atoi(u.Port())
	} else {
		config.Port = 5432
	}

	if u.User != nil {
		config.User = u.User.Username()
		config.Password, _ = u.User.Password()
	}

	config.DBName = strings.TrimPrefix(u.Path, "/")

	config.SSLMode = u.Query().Get("sslmode")
	if config.SSLMode == "" {
		config.SSLMode = "disable"
	}

	return config
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
