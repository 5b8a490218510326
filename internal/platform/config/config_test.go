package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":3001", cfg.HTTPAddr)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOriginList())
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 5*time.Minute, cfg.IdentityCacheMaxTTL)
	assert.Equal(t, "intake-audit", cfg.AuditKafkaTopic)
	assert.Equal(t, "text", cfg.ResolvedLogFormat())
	assert.Nil(t, cfg.KafkaBrokerList())
	assert.False(t, cfg.PDFExportEnabled)
	assert.Equal(t, 30, cfg.IntakeRateLimit)
	assert.Equal(t, time.Minute, cfg.IntakeRateWindow)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("ALLOWED_ORIGINS", "https://intake.example, http://localhost:3000")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("IDENTITY_URL", "https://auth.example")
	t.Setenv("IDENTITY_SERVICE_KEY", "service-key")
	t.Setenv("ADMIN_EMAIL", "owner@example.com")
	t.Setenv("REQUEST_TIMEOUT", "10s")
	t.Setenv("PDF_EXPORT_ENABLED", "true")
	t.Setenv("INTAKE_RATE_LIMIT", "0")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, []string{"https://intake.example", "http://localhost:3000"}, cfg.AllowedOriginList())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokerList())
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.True(t, cfg.PDFExportEnabled)
	assert.Zero(t, cfg.IntakeRateLimit)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{HTTPAddr: ":3001", Env: "development", RequestTimeout: time.Second}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid development config", mutate: func(*Config) {}},
		{name: "missing addr", mutate: func(c *Config) { c.HTTPAddr = " " }, wantErr: "HTTP_ADDR"},
		{
			name:    "production needs a database",
			mutate:  func(c *Config) { c.Env = "production" },
			wantErr: "DATABASE_URL",
		},
		{
			name:    "identity url without key",
			mutate:  func(c *Config) { c.IdentityURL = "https://auth.example"; c.AdminEmail = "a@b.co" },
			wantErr: "IDENTITY_SERVICE_KEY",
		},
		{
			name: "identity without admin email",
			mutate: func(c *Config) {
				c.IdentityURL = "https://auth.example"
				c.IdentityServiceKey = "k"
			},
			wantErr: "ADMIN_EMAIL",
		},
		{
			name: "static token refused in production",
			mutate: func(c *Config) {
				c.Env = "production"
				c.DatabaseURL = "postgres://x"
				c.AdminToken = "secret"
			},
			wantErr: "ADMIN_TOKEN",
		},
		{
			name: "static token allowed in production when opted in",
			mutate: func(c *Config) {
				c.Env = "Production"
				c.DatabaseURL = "postgres://x"
				c.AdminToken = "secret"
				c.AdminTokenAllowProduction = true
			},
		},
		{name: "bad log format", mutate: func(c *Config) { c.LogFormat = "xml" }, wantErr: "LOG_FORMAT"},
		{name: "negative rate limit", mutate: func(c *Config) { c.IntakeRateLimit = -1 }, wantErr: "INTAKE_RATE_LIMIT"},
		{
			name:    "rate limit without window",
			mutate:  func(c *Config) { c.IntakeRateLimit = 5 },
			wantErr: "INTAKE_RATE_WINDOW",
		},
		{name: "bad trusted proxy", mutate: func(c *Config) { c.TrustedProxies = "10.0.0.0/8, nope" }, wantErr: "TRUSTED_PROXIES"},
		{name: "non-positive timeout", mutate: func(c *Config) { c.RequestTimeout = 0 }, wantErr: "REQUEST_TIMEOUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestResolvedLogFormat(t *testing.T) {
	assert.Equal(t, "json", (&Config{Env: "production"}).ResolvedLogFormat())
	assert.Equal(t, "text", (&Config{Env: "development"}).ResolvedLogFormat())
	assert.Equal(t, "json", (&Config{Env: "development", LogFormat: "json"}).ResolvedLogFormat())
}
