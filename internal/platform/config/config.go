// Package config loads and validates server configuration from the environment
// and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"intakedesk/pkg/platform/middleware/metadata"
	pstrings "intakedesk/pkg/platform/strings"
)

const envProduction = "production"

// Config holds server configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on.
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// Env is the deployment environment ("development", "production", ...).
	Env       string `mapstructure:"APP_ENV"`
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	// DatabaseURL is the Postgres DSN. Empty selects the in-memory store, which is
	// refused in production.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// RedisURL enables the identity verification cache when set.
	RedisURL string `mapstructure:"REDIS_URL"`

	// IdentityURL and IdentityServiceKey locate the hosted auth service; both or neither.
	IdentityURL        string        `mapstructure:"IDENTITY_URL"`
	IdentityServiceKey string        `mapstructure:"IDENTITY_SERVICE_KEY"`
	IdentityTimeout    time.Duration `mapstructure:"IDENTITY_TIMEOUT"`
	// IdentityCacheMaxTTL caps how long a verified token is trusted without asking again.
	IdentityCacheMaxTTL time.Duration `mapstructure:"IDENTITY_CACHE_MAX_TTL"`

	// AdminEmail is the single account the bearer path admits.
	AdminEmail string `mapstructure:"ADMIN_EMAIL"`
	// AdminToken enables the X-Admin-Token bypass.
	AdminToken                string `mapstructure:"ADMIN_TOKEN"`
	AdminTokenAllowProduction bool   `mapstructure:"ADMIN_TOKEN_ALLOW_PRODUCTION"`

	// AllowedOrigins is a comma-separated CORS allow list.
	AllowedOrigins  string        `mapstructure:"ALLOWED_ORIGINS"`
	// TrustedProxies (comma-separated addresses or CIDRs) are the peers whose
	// X-Forwarded-For and X-Real-IP headers are believed.
	TrustedProxies  string        `mapstructure:"TRUSTED_PROXIES"`
	RequestTimeout  time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`

	// KafkaBrokers (comma-separated) routes audit events to Kafka when set.
	KafkaBrokers    string `mapstructure:"KAFKA_BROKERS"`
	AuditKafkaTopic string `mapstructure:"AUDIT_KAFKA_TOPIC"`
	AuditBufferSize int    `mapstructure:"AUDIT_BUFFER_SIZE"`

	// IntakeRateLimit caps public submissions per client IP within
	// IntakeRateWindow; zero disables the limit. Windows live in Redis when
	// REDIS_URL is set.
	IntakeRateLimit  int           `mapstructure:"INTAKE_RATE_LIMIT"`
	IntakeRateWindow time.Duration `mapstructure:"INTAKE_RATE_WINDOW"`

	// PDFExportEnabled turns on GET /api/admin/submissions/{id}/pdf.
	PDFExportEnabled bool `mapstructure:"PDF_EXPORT_ENABLED"`
	// ChromeControlURL attaches to a running browser; otherwise ChromeBin (or a
	// downloaded browser) is launched headless.
	ChromeControlURL string `mapstructure:"CHROME_CONTROL_URL"`
	ChromeBin        string `mapstructure:"CHROME_BIN"`
}

// Load reads .env (if present), then builds and validates Config from the environment.
// Missing .env is ignored. Env vars override .env.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HTTP_ADDR", ":3001")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("IDENTITY_URL", "")
	v.SetDefault("IDENTITY_SERVICE_KEY", "")
	v.SetDefault("IDENTITY_TIMEOUT", "5s")
	v.SetDefault("IDENTITY_CACHE_MAX_TTL", "5m")
	v.SetDefault("ADMIN_EMAIL", "")
	v.SetDefault("ADMIN_TOKEN", "")
	v.SetDefault("ADMIN_TOKEN_ALLOW_PRODUCTION", false)
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("TRUSTED_PROXIES", "")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("SHUTDOWN_TIMEOUT", "15s")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("AUDIT_KAFKA_TOPIC", "intake-audit")
	v.SetDefault("AUDIT_BUFFER_SIZE", 1024)
	v.SetDefault("INTAKE_RATE_LIMIT", 30)
	v.SetDefault("INTAKE_RATE_WINDOW", "1m")
	v.SetDefault("PDF_EXPORT_ENABLED", false)
	v.SetDefault("CHROME_CONTROL_URL", "")
	v.SetDefault("CHROME_BIN", "")
}

// Validate enforces cross-field rules.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.HTTPAddr) == "" {
		return errors.New("config: HTTP_ADDR must be set")
	}
	if c.IsProduction() && c.DatabaseURL == "" {
		return errors.New("config: DATABASE_URL must be set when APP_ENV=production")
	}
	if (c.IdentityURL == "") != (c.IdentityServiceKey == "") {
		return errors.New("config: IDENTITY_URL and IDENTITY_SERVICE_KEY must be set together")
	}
	if c.IdentityURL != "" && strings.TrimSpace(c.AdminEmail) == "" {
		return errors.New("config: ADMIN_EMAIL must be set when IDENTITY_URL is configured")
	}
	if c.AdminToken != "" && c.IsProduction() && !c.AdminTokenAllowProduction {
		return errors.New("config: ADMIN_TOKEN is refused when APP_ENV=production unless ADMIN_TOKEN_ALLOW_PRODUCTION=true")
	}
	switch c.LogFormat {
	case "", "json", "text":
	default:
		return fmt.Errorf("config: LOG_FORMAT must be json or text, got %q", c.LogFormat)
	}
	if c.AuditBufferSize < 0 {
		return errors.New("config: AUDIT_BUFFER_SIZE must not be negative")
	}
	if c.IntakeRateLimit < 0 {
		return errors.New("config: INTAKE_RATE_LIMIT must not be negative")
	}
	if c.IntakeRateLimit > 0 && c.IntakeRateWindow <= 0 {
		return errors.New("config: INTAKE_RATE_WINDOW must be positive when INTAKE_RATE_LIMIT is set")
	}
	if _, err := metadata.ParseTrustedProxies(c.TrustedProxyList()); err != nil {
		return fmt.Errorf("config: TRUSTED_PROXIES: %w", err)
	}
	if c.RequestTimeout <= 0 {
		return errors.New("config: REQUEST_TIMEOUT must be positive")
	}
	return nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Env), envProduction)
}

// AllowedOriginList returns the CORS allow list.
func (c *Config) AllowedOriginList() []string {
	return pstrings.SplitList(c.AllowedOrigins, ",")
}

// TrustedProxyList returns the configured proxy addresses and prefixes.
func (c *Config) TrustedProxyList() []string {
	if c.TrustedProxies == "" {
		return nil
	}
	return pstrings.SplitList(c.TrustedProxies, ",")
}

// KafkaBrokerList returns Kafka broker addresses; empty disables the Kafka audit sink.
func (c *Config) KafkaBrokerList() []string {
	if c == nil || c.KafkaBrokers == "" {
		return nil
	}
	return pstrings.SplitList(c.KafkaBrokers, ",")
}

// ResolvedLogFormat picks json in production and text elsewhere unless LOG_FORMAT is set.
func (c *Config) ResolvedLogFormat() string {
	if c.LogFormat != "" {
		return c.LogFormat
	}
	if c.IsProduction() {
		return "json"
	}
	return "text"
}
