package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
// It is built once at startup and passed to every component.
type Config struct {
	Server   ServerConfig
	Stripe   StripeConfig
	Checkout CheckoutConfig
	Sheets   SheetsConfig
	Redis    RedisConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
}

// StripeConfig holds payment processor credentials.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	TimeoutSec    int
}

// CheckoutConfig holds the fixed parameters of every payment session.
type CheckoutConfig struct {
	Currency   string
	SuccessURL string
	CancelURL  string
	StudioName string
}

// SheetsConfig points at the spreadsheet automation endpoint (Apps Script web app).
type SheetsConfig struct {
	URL        string
	Format     string // "form" or "json"
	TimeoutSec int
}

// RedisConfig holds the optional failure sink connection. Empty Addr disables it.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Timeout returns the outbound timeout for spreadsheet calls.
func (c SheetsConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// Timeout returns the outbound timeout for processor calls.
func (c StripeConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// Enabled reports whether the failure sink should be connected.
func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()      // .env
	_ = godotenv.Load("env") // env (no leading dot)

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "3000"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 30),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
		},
		Stripe: StripeConfig{
			SecretKey:     getEnv("STRIPE_SECRET_KEY", os.Getenv("STRIPE_SECRET")),
			WebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
			TimeoutSec:    getEnvInt("STRIPE_TIMEOUT_SEC", 20),
		},
		Checkout: CheckoutConfig{
			Currency:   strings.ToLower(getEnv("CHECKOUT_CURRENCY", "eur")),
			SuccessURL: getEnv("CHECKOUT_SUCCESS_URL", "https://example.com/success"),
			CancelURL:  getEnv("CHECKOUT_CANCEL_URL", "https://example.com/cancel"),
			StudioName: getEnv("STUDIO_NAME", "Vestige Live Studio"),
		},
		Sheets: SheetsConfig{
			URL:        getEnv("GOOGLE_APPS_SCRIPT_URL", os.Getenv("GAS_ENDPOINT")),
			Format:     strings.ToLower(getEnv("SHEETS_FORMAT", "form")),
			TimeoutSec: getEnvInt("SHEETS_TIMEOUT_SEC", 10),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
	}
	return cfg, nil
}

// ValidateServer checks the settings without which no request can be served.
func (c *Config) ValidateServer() error {
	var errs []error
	if c.Stripe.SecretKey == "" {
		errs = append(errs, errors.New("STRIPE_SECRET_KEY is required"))
	}
	if c.Stripe.WebhookSecret == "" {
		errs = append(errs, errors.New("STRIPE_WEBHOOK_SECRET is required"))
	}
	errs = append(errs, c.validateSheets())
	return errors.Join(errs...)
}

// ValidateReconcile checks the settings the reconciliation CLI needs.
func (c *Config) ValidateReconcile() error {
	var errs []error
	if !c.Redis.Enabled() {
		errs = append(errs, errors.New("REDIS_ADDR is required"))
	}
	errs = append(errs, c.validateSheets())
	return errors.Join(errs...)
}

func (c *Config) validateSheets() error {
	var errs []error
	if c.Sheets.URL == "" {
		errs = append(errs, errors.New("GOOGLE_APPS_SCRIPT_URL is required"))
	}
	if c.Sheets.Format != "form" && c.Sheets.Format != "json" {
		errs = append(errs, errors.New("SHEETS_FORMAT must be form or json"))
	}
	return errors.Join(errs...)
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
