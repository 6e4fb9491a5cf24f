package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Common errors
var (
	ErrMissingDatabaseURL = errors.New("DATABASE_URL environment variable is required")
	ErrInvalidFee         = errors.New("PLATFORM_FEE_BPS must be between 0 and 10000")
	ErrInvalidRateLimit   = errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	ErrInvalidAttempts    = errors.New("DELIVERY_CODE_MAX_ATTEMPTS must be positive")
	ErrInvalidNumber      = errors.New("malformed numeric setting")
)

// Defaults
const (
	DefaultPort            = "5050"
	DefaultPlatformFeeBps  = 500
	DefaultPendingTTL      = 72 * time.Hour
	DefaultSweepSchedule   = "@every 15m"
	DefaultRateLimitRPS    = 10
	DefaultRateLimitBurst  = 20
	DefaultMaxCodeAttempts = 5
	DefaultSessionLifetime = 6 * time.Hour
)

// DefaultCORSOrigins is used when CORS_ORIGINS is empty.
var DefaultCORSOrigins = []string{
	"http://localhost:5173",
	"http://localhost:5174",
}

// Config holds process-wide settings read from the environment.
type Config struct {
	DatabaseURL string
	Port        string
	CORSOrigins []string

	// Platform fee taken from the traveler payout, in basis points.
	PlatformFeeBps int64

	// Pending claims older than this are canceled by the sweeper.
	PendingTTL    time.Duration
	SweepSchedule string

	RateLimitRPS   int
	RateLimitBurst int

	MaxCodeAttempts int
	SessionLifetime time.Duration
	SecureCookies   bool

	// Optional directory of country YAML files overriding the embedded set.
	// Read by cmd/seed.
	GeoDataDir string

	// HMAC key for payment provider top-up webhooks; empty disables them.
	TopupWebhookSecret string

	// Values that were set but could not be parsed; reported by Validate.
	parseErrs []error
}

// LoadFromEnv loads configuration from environment variables.
//
// Environment variables:
//   - DATABASE_URL: Postgres DSN (required)
//   - PORT: listen port (default: 5050)
//   - CORS_ORIGINS: comma-separated allow-list
//   - PLATFORM_FEE_BPS: fee in basis points (default: 500)
//   - CLAIM_PENDING_TTL: e.g. "72h" (default: 72h)
//   - CLAIM_SWEEP_SCHEDULE: cron spec (default: "@every 15m")
//   - RATE_LIMIT_RPS / RATE_LIMIT_BURST (default: 10 / 20)
//   - DELIVERY_CODE_MAX_ATTEMPTS (default: 5)
//   - SECURE_COOKIES: "true" marks session cookies Secure
//   - GEO_DATA_DIR: directory of country YAML files
//   - TOPUP_WEBHOOK_SECRET: HMAC key for /webhooks/topup
//
// Malformed numbers and durations keep their defaults and are reported by
// Validate.
func LoadFromEnv() Config {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = DefaultPort
	}

	origins := splitList(os.Getenv("CORS_ORIGINS"))
	if len(origins) == 0 {
		origins = DefaultCORSOrigins
	}

	var errs []error
	cfg := Config{
		DatabaseURL:     strings.TrimSpace(os.Getenv("DATABASE_URL")),
		Port:            port,
		CORSOrigins:     origins,
		PlatformFeeBps:  int64(envInt(&errs, "PLATFORM_FEE_BPS", DefaultPlatformFeeBps)),
		PendingTTL:      envDuration(&errs, "CLAIM_PENDING_TTL", DefaultPendingTTL),
		SweepSchedule:   envString("CLAIM_SWEEP_SCHEDULE", DefaultSweepSchedule),
		RateLimitRPS:    envInt(&errs, "RATE_LIMIT_RPS", DefaultRateLimitRPS),
		RateLimitBurst:  envInt(&errs, "RATE_LIMIT_BURST", DefaultRateLimitBurst),
		MaxCodeAttempts: envInt(&errs, "DELIVERY_CODE_MAX_ATTEMPTS", DefaultMaxCodeAttempts),
		SessionLifetime: DefaultSessionLifetime,
		SecureCookies:   strings.EqualFold(strings.TrimSpace(os.Getenv("SECURE_COOKIES")), "true"),
		GeoDataDir:      strings.TrimSpace(os.Getenv("GEO_DATA_DIR")),

		TopupWebhookSecret: os.Getenv("TOPUP_WEBHOOK_SECRET"),
	}
	cfg.parseErrs = errs
	return cfg
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if len(c.parseErrs) > 0 {
		return errors.Join(c.parseErrs...)
	}
	if c.DatabaseURL == "" {
		return ErrMissingDatabaseURL
	}
	if c.PlatformFeeBps < 0 || c.PlatformFeeBps > 10000 {
		return ErrInvalidFee
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return ErrInvalidRateLimit
	}
	if c.MaxCodeAttempts <= 0 {
		return ErrInvalidAttempts
	}
	if _, err := cron.ParseStandard(c.SweepSchedule); err != nil {
		return fmt.Errorf("invalid CLAIM_SWEEP_SCHEDULE %q: %w", c.SweepSchedule, err)
	}
	return nil
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(errs *[]error, key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidNumber, key, v))
		return def
	}
	return n
}

func envDuration(errs *[]error, key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%w: %s=%q is not a duration", ErrInvalidNumber, key, v))
		return def
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
