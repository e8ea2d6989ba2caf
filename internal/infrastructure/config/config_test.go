package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Stripe: StripeConfig{
			APIKey:   "sk_test_123",
			Endpoint: DefaultEndpoint,
		},
		Transport: TransportConfig{
			Engine:  "net/http",
			Timeout: 80 * time.Second,
			CircuitBreaker: CircuitBreakerConfig{
				Enabled:      true,
				Timeout:      30 * time.Second,
				FailureRatio: 0.6,
			},
		},
		Shell: ShellConfig{RetryAttempts: 1},
	}
}

func TestConfig_Validate_Success(t *testing.T) {
	err := validConfig().Validate()
	assert.NoError(t, err)
}

func TestConfig_Validate_MissingAPIKeyIsAllowed(t *testing.T) {
	cfg := validConfig()
	cfg.Stripe.APIKey = ""

	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"relative endpoint", func(c *Config) { c.Stripe.Endpoint = "/v1/" }, "stripe.endpoint"},
		{"unknown engine", func(c *Config) { c.Transport.Engine = "curl" }, "transport.engine"},
		{"negative timeout", func(c *Config) { c.Transport.Timeout = -time.Second }, "transport.timeout"},
		{"zero failure ratio", func(c *Config) { c.Transport.CircuitBreaker.FailureRatio = 0 }, "failure_ratio"},
		{"failure ratio above one", func(c *Config) { c.Transport.CircuitBreaker.FailureRatio = 1.5 }, "failure_ratio"},
		{"zero breaker timeout", func(c *Config) { c.Transport.CircuitBreaker.Timeout = 0 }, "circuit_breaker.timeout"},
		{"zero retry attempts", func(c *Config) { c.Shell.RetryAttempts = 0 }, "shell.retry_attempts"},
		{"tracing without endpoint", func(c *Config) {
			c.Observability.EnableTracing = true
			c.Observability.JaegerEndpoint = ""
		}, "jaeger_endpoint"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestConfig_Validate_DisabledBreakerSkipsBreakerChecks(t *testing.T) {
	cfg := validConfig()
	cfg.Transport.CircuitBreaker = CircuitBreakerConfig{Enabled: false}

	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate_MultipleErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Transport.Engine = "curl"
	cfg.Shell.RetryAttempts = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transport.engine")
	assert.Contains(t, err.Error(), "shell.retry_attempts")
}

func TestNormalizeEndpoint(t *testing.T) {
	assert.Equal(t, DefaultEndpoint, NormalizeEndpoint(""))
	assert.Equal(t, "http://localhost:12111/v1/", NormalizeEndpoint("http://localhost:12111/v1"))
	assert.Equal(t, "http://localhost:12111/v1/", NormalizeEndpoint("http://localhost:12111/v1/"))
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultEndpoint, cfg.Stripe.Endpoint)
	assert.Equal(t, "net/http", cfg.Transport.Engine)
	assert.Equal(t, 80*time.Second, cfg.Transport.Timeout)
	assert.True(t, cfg.Transport.CircuitBreaker.Enabled)
	assert.Equal(t, uint32(10), cfg.Transport.CircuitBreaker.MinRequests)
	assert.Equal(t, uint(1), cfg.Shell.RetryAttempts)
	assert.Equal(t, "info", cfg.Observability.LogLevel)
	assert.Empty(t, cfg.Observability.MetricsAddr)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("STRIPE_API_KEY", "sk_test_env")
	t.Setenv("STRIPEWRAPPER_TRANSPORT_ENGINE", "fasthttp")
	t.Setenv("STRIPEWRAPPER_SHELL_RETRY_ATTEMPTS", "3")

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "sk_test_env", cfg.Stripe.APIKey)
	assert.Equal(t, "fasthttp", cfg.Transport.Engine)
	assert.Equal(t, uint(3), cfg.Shell.RetryAttempts)
}

func TestLoad_FlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("STRIPE_API_KEY", "sk_test_env")

	fs := Flags("test")
	require.NoError(t, fs.Parse([]string{"--api-key", "sk_test_flag", "--endpoint", "http://127.0.0.1:9999/v1"}))

	cfg, err := Load(fs)
	require.NoError(t, err)

	assert.Equal(t, "sk_test_flag", cfg.Stripe.APIKey)
	assert.Equal(t, "http://127.0.0.1:9999/v1/", cfg.Stripe.Endpoint)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stripewrapper.yaml")
	content := []byte(`
stripe:
  api_key: sk_test_file
transport:
  timeout: 5s
  circuit_breaker:
    enabled: false
observability:
  log_level: debug
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	fs := Flags("test")
	require.NoError(t, fs.Parse([]string{"--config", path}))

	cfg, err := Load(fs)
	require.NoError(t, err)

	assert.Equal(t, "sk_test_file", cfg.Stripe.APIKey)
	assert.Equal(t, 5*time.Second, cfg.Transport.Timeout)
	assert.False(t, cfg.Transport.CircuitBreaker.Enabled)
	assert.Equal(t, "debug", cfg.Observability.LogLevel)
}

func TestLoad_MissingExplicitConfigFile(t *testing.T) {
	fs := Flags("test")
	require.NoError(t, fs.Parse([]string{"--config", filepath.Join(t.TempDir(), "absent.yaml")}))

	_, err := Load(fs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("STRIPEWRAPPER_TRANSPORT_ENGINE", "curl")

	_, err := Load(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}
