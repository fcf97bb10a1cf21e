// Package app wires configuration, storage, services, workers, and the
// HTTP server into a runnable application.
package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete application configuration, loadable from
// environment variables (SHOP_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL  string `usage:"PostgreSQL connection URL (SHOP_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	ImageBaseURL string `default:"" usage:"Base URL for product images" flag:"image-base-url"`
	APIKeyPepper string `usage:"HMAC pepper for API key hashing (SHOP_API_KEY_PEPPER)" flag:"api-key-pepper"`

	Payment   PaymentConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Graceful  GracefulConfig
	Worker    WorkerConfig
}

// PaymentConfig configures the payment gateway client and webhook
// verification.
type PaymentConfig struct {
	BaseURL       string        `usage:"Payment gateway base URL" flag:"payment-base-url"`
	SecretKey     string        `usage:"Payment gateway API secret" flag:"payment-secret-key"`
	WebhookSecret string        `usage:"Shared secret for webhook signatures" flag:"payment-webhook-secret"`
	Currency      string        `default:"inr" usage:"Checkout currency code"`
	SuccessURL    string        `usage:"Redirect after successful payment" flag:"payment-success-url"`
	CancelURL     string        `usage:"Redirect after abandoned payment" flag:"payment-cancel-url"`
	Timeout       time.Duration `default:"10s" usage:"Per-call gateway timeout"`
	Tolerance     time.Duration `default:"5m"  usage:"Webhook timestamp tolerance"`
}

// RateLimitConfig controls the per-client rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins []string `default:"*" usage:"Allowed CORS origins"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// WorkerConfig tunes the background loops.
type WorkerConfig struct {
	ReconcileInterval    time.Duration `default:"5m"  usage:"Stale payment sweep interval" flag:"reconcile-interval"`
	ReconcileMinAge      time.Duration `default:"15m" usage:"Pending session age before polling" flag:"reconcile-min-age"`
	ReconcileBatch       int           `default:"100" usage:"Orders polled per sweep" flag:"reconcile-batch"`
	ReconcileConcurrency int           `default:"4"   usage:"Concurrent gateway polls per sweep" flag:"reconcile-concurrency"`
	CouponSweepInterval  time.Duration `default:"1h"  usage:"Expired coupon sweep interval" flag:"coupon-sweep-interval"`
}

// LoadConfig loads configuration from environment variables, YAML config
// files, and applies platform-provided defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "SHOP",
		Files:     []string{"config.yaml", "/etc/shop/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set SHOP_DATABASE_URL or DATABASE_URL")
	}
	if cfg.Payment.BaseURL == "" {
		return nil, errors.New("payment gateway URL is required: set SHOP_PAYMENT_BASE_URL")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables
// (Railway, Render, etc.) with standard names like DATABASE_URL and PORT
// onto the SHOP_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
