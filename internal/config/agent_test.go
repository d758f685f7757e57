package config

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgconfig "sitepulse/internal/pkg/config"
)

var testMetrics = pkgconfig.NewConfigMetrics("agent_test")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agent.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 9090, cfg.MetricsPort)
	assert.Equal(t, 10*time.Second, cfg.FlushInterval)
	assert.Equal(t, 20, cfg.MaxBatchSize)
	assert.Equal(t, "@every 30s", cfg.LiveMetricsSchedule)
	assert.Contains(t, cfg.CriticalEvents, "conversion")
	assert.False(t, cfg.DeliveryEnabled())
	assert.False(t, cfg.LiveMetricsEnabled())
	assert.NoError(t, cfg.Validate())
}

func TestAgentConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*AgentConfig)
		wantErr bool
	}{
		{name: "defaults", modify: func(*AgentConfig) {}},
		{name: "with endpoints", modify: func(c *AgentConfig) {
			c.DeliveryEndpoint = "https://collect.example.com/v1/events"
			c.LiveMetricsURL = "https://metrics.example.com/live"
		}},
		{name: "privileged port", modify: func(c *AgentConfig) { c.Port = 80 }, wantErr: true},
		{name: "same ports", modify: func(c *AgentConfig) { c.MetricsPort = c.Port }, wantErr: true},
		{name: "bad endpoint", modify: func(c *AgentConfig) { c.DeliveryEndpoint = "collect.example.com" }, wantErr: true},
		{name: "zero rate", modify: func(c *AgentConfig) { c.DeliveryRateLimit = 0 }, wantErr: true},
		{name: "interval too short", modify: func(c *AgentConfig) { c.FlushInterval = 100 * time.Millisecond }, wantErr: true},
		{name: "queue smaller than batch", modify: func(c *AgentConfig) { c.MaxQueueSize = 10 }, wantErr: true},
		{name: "attempts zero", modify: func(c *AgentConfig) { c.MaxDeliveryAttempts = 0 }, wantErr: true},
		{name: "bad schedule", modify: func(c *AgentConfig) { c.LiveMetricsSchedule = "often" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAgentConfig_ValidateCollectsAllErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Port = 1
	cfg.MaxDeliveryAttempts = 0

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "port")
	assert.Contains(t, err.Error(), "max delivery attempts")
}

func TestLoadConfigFromEnv_Defaults(t *testing.T) {
	cfg, err := LoadConfigFromEnv(discardLogger(), testMetrics)

	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), *cfg)
	assert.Equal(t, 0.0, testutil.ToFloat64(testMetrics.FallbackActive))
}

func TestLoadConfigFromEnv_Overrides(t *testing.T) {
	t.Setenv("AGENT_PORT", "8181")
	t.Setenv("DELIVERY_ENDPOINT", "https://collect.example.com/v1/events")
	t.Setenv("DELIVERY_TOKEN", "secret")
	t.Setenv("DELIVERY_RATE_LIMIT", "0.5")
	t.Setenv("FLUSH_INTERVAL", "3s")
	t.Setenv("MAX_BATCH_SIZE", "50")
	t.Setenv("CRITICAL_EVENTS", "signup, purchase")
	t.Setenv("LIVE_METRICS_URL", "https://metrics.example.com/live")
	t.Setenv("LIVE_METRICS_SCHEDULE", "*/2 * * * *")

	cfg, err := LoadConfigFromEnv(discardLogger(), testMetrics)

	require.NoError(t, err)
	assert.Equal(t, 8181, cfg.Port)
	assert.Equal(t, "https://collect.example.com/v1/events", cfg.DeliveryEndpoint)
	assert.Equal(t, "secret", cfg.DeliveryToken)
	assert.Equal(t, 0.5, cfg.DeliveryRateLimit)
	assert.Equal(t, 3*time.Second, cfg.FlushInterval)
	assert.Equal(t, 50, cfg.MaxBatchSize)
	assert.Equal(t, []string{"signup", "purchase"}, cfg.CriticalEvents)
	assert.True(t, cfg.DeliveryEnabled())
	assert.True(t, cfg.LiveMetricsEnabled())
	assert.Equal(t, "*/2 * * * *", cfg.LiveMetricsSchedule)
}

func TestLoadConfigFromEnv_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("FLUSH_INTERVAL", "forever")
	t.Setenv("MAX_BATCH_SIZE", "-1")
	t.Setenv("DELIVERY_ENDPOINT", "not a url")

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	before := testutil.ToFloat64(testMetrics.FallbacksTotal.WithLabelValues("flush_interval", "default"))

	cfg, err := LoadConfigFromEnv(logger, testMetrics)

	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, cfg.FlushInterval)
	assert.Equal(t, 20, cfg.MaxBatchSize)
	assert.Empty(t, cfg.DeliveryEndpoint)
	assert.Contains(t, buf.String(), "Configuration fallback applied")
	assert.Contains(t, buf.String(), "FLUSH_INTERVAL")
	assert.Equal(t, before+1, testutil.ToFloat64(testMetrics.FallbacksTotal.WithLabelValues("flush_interval", "default")))
	assert.Equal(t, 1.0, testutil.ToFloat64(testMetrics.FallbackActive))
}

func TestLoadConfigFromEnv_ConflictingValues(t *testing.T) {
	t.Setenv("MAX_BATCH_SIZE", "500")
	t.Setenv("MAX_QUEUE_SIZE", "100")

	_, err := LoadConfigFromEnv(discardLogger(), testMetrics)

	assert.Error(t, err)
}

func TestLoadConfigFromEnv_FileThenEnv(t *testing.T) {
	path := writeConfigFile(t, `
delivery_endpoint: https://collect.example.com/v1/events
flush_interval: 5s
max_batch_size: 40
critical_events:
  - checkout
`)
	t.Setenv("AGENT_CONFIG_FILE", path)
	t.Setenv("MAX_BATCH_SIZE", "60")

	cfg, err := LoadConfigFromEnv(discardLogger(), testMetrics)

	require.NoError(t, err)
	assert.Equal(t, "https://collect.example.com/v1/events", cfg.DeliveryEndpoint)
	assert.Equal(t, 5*time.Second, cfg.FlushInterval)
	assert.Equal(t, 60, cfg.MaxBatchSize, "environment wins over file")
	assert.Equal(t, []string{"checkout"}, cfg.CriticalEvents)
	assert.Equal(t, 1000, cfg.MaxQueueSize, "absent keys keep defaults")
}

func TestLoadConfigFromEnv_MissingFile(t *testing.T) {
	t.Setenv("AGENT_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := LoadConfigFromEnv(discardLogger(), testMetrics)

	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
		check   func(*testing.T, AgentConfig)
	}{
		{
			name:    "overlay",
			content: "keepalive_timeout: 2s\nlive_metrics_schedule: \"@every 1m\"\n",
			check: func(t *testing.T, cfg AgentConfig) {
				assert.Equal(t, 2*time.Second, cfg.KeepaliveTimeout)
				assert.Equal(t, "@every 1m", cfg.LiveMetricsSchedule)
				assert.Equal(t, 8080, cfg.Port)
			},
		},
		{
			name:    "empty file",
			content: "",
			check: func(t *testing.T, cfg AgentConfig) {
				assert.Equal(t, DefaultConfig(), cfg)
			},
		},
		{name: "unknown key", content: "flush_every: 5s\n", wantErr: true},
		{name: "malformed", content: "port: [1, 2\n", wantErr: true},
		{name: "invalid value", content: "max_delivery_attempts: 0\n", wantErr: true},
		{name: "token is not read from file", content: "delivery_token: secret\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			err := LoadFile(writeConfigFile(t, tt.content), &cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestLoadConfigFromEnv_AllowedOrigins(t *testing.T) {
	t.Run("valid list", func(t *testing.T) {
		t.Setenv("CORS_ALLOWED_ORIGINS", "https://shop.example.com, https://*.example.org")

		cfg, err := LoadConfigFromEnv(discardLogger(), testMetrics)
		require.NoError(t, err)
		assert.Equal(t, []string{"https://shop.example.com", "https://*.example.org"}, cfg.AllowedOrigins)
	})

	t.Run("invalid entry keeps default", func(t *testing.T) {
		t.Setenv("CORS_ALLOWED_ORIGINS", "https://shop.example.com,ftp://files.example.com")

		cfg, err := LoadConfigFromEnv(discardLogger(), testMetrics)
		require.NoError(t, err)
		assert.Empty(t, cfg.AllowedOrigins)
	})
}

func TestValidateOrigin(t *testing.T) {
	tests := []struct {
		origin  string
		wantErr bool
	}{
		{"*", false},
		{"https://example.com", false},
		{"http://localhost:3000", false},
		{"https://*.example.com", false},
		{"https://example.com/", true},
		{"https://example.com/path", true},
		{"example.com", true},
		{"ftp://example.com", true},
	}
	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			err := validateOrigin(tt.origin)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfigFromEnv_TraceSampleRatio(t *testing.T) {
	t.Setenv("TRACE_SAMPLE_RATIO", "1.5")

	cfg, err := LoadConfigFromEnv(discardLogger(), testMetrics)
	require.NoError(t, err)
	assert.Equal(t, 1.0, cfg.TraceSampleRatio)
}

func TestLoadConfigFromEnv_DenyPrivateIPs(t *testing.T) {
	t.Setenv("DENY_PRIVATE_IPS", "true")
	cfg, err := LoadConfigFromEnv(discardLogger(), testMetrics)
	require.NoError(t, err)
	assert.True(t, cfg.DenyPrivateIPs)

	t.Setenv("DENY_PRIVATE_IPS", "sometimes")
	cfg, err = LoadConfigFromEnv(discardLogger(), testMetrics)
	require.NoError(t, err)
	assert.False(t, cfg.DenyPrivateIPs)
}
