package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// DefaultEndpoint is the provider's API base. Resources are appended to it.
const DefaultEndpoint = "https://api.stripe.com/v1/"

type Config struct {
	Stripe        StripeConfig        `mapstructure:"stripe"`
	Transport     TransportConfig     `mapstructure:"transport"`
	Shell         ShellConfig         `mapstructure:"shell"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type StripeConfig struct {
	APIKey   string `mapstructure:"api_key"`
	Endpoint string `mapstructure:"endpoint"`
}

type TransportConfig struct {
	Engine             string               `mapstructure:"engine"`
	Timeout            time.Duration        `mapstructure:"timeout"`
	InsecureSkipVerify bool                 `mapstructure:"insecure_skip_verify"`
	CircuitBreaker     CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

type CircuitBreakerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MinRequests  uint32        `mapstructure:"min_requests"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
}

type ShellConfig struct {
	RetryAttempts uint          `mapstructure:"retry_attempts"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"`
}

type ObservabilityConfig struct {
	LogLevel       string `mapstructure:"log_level"`
	LogFormat      string `mapstructure:"log_format"`
	MetricsAddr    string `mapstructure:"metrics_addr"`
	EnableTracing  bool   `mapstructure:"enable_tracing"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
}

// Flags returns the command-line flags understood by Load.
func Flags(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("config", "", "path to a config file")
	fs.String("api-key", "", "provider API key")
	fs.String("endpoint", "", "provider API base URL")
	fs.String("engine", "", "transport engine (net/http or fasthttp)")
	fs.String("log-level", "", "log level")
	fs.String("metrics-addr", "", "address for the metrics server; empty disables it")
	return fs
}

var flagKeys = map[string]string{
	"api-key":      "stripe.api_key",
	"endpoint":     "stripe.endpoint",
	"engine":       "transport.engine",
	"log-level":    "observability.log_level",
	"metrics-addr": "observability.metrics_addr",
}

// Load reads defaults, an optional config file, environment variables and,
// when fs is non-nil, parsed flags, in increasing order of precedence.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read from environment variables
	v.SetEnvPrefix("STRIPEWRAPPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("stripe.api_key", "STRIPEWRAPPER_STRIPE_API_KEY", "STRIPE_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind env: %w", err)
	}

	configFile := ""
	if fs != nil {
		for flag, key := range flagKeys {
			if f := fs.Lookup(flag); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", flag, err)
				}
			}
		}
		configFile, _ = fs.GetString("config")
	}

	// Read from config file if exists
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/stripewrapper")
	}

	// Config file is optional unless named explicitly
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Stripe.Endpoint = NormalizeEndpoint(cfg.Stripe.Endpoint)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Validate checks everything except the API key, which the shell may still
// prompt for.
func (c *Config) Validate() error {
	var errs []error

	if u, err := url.Parse(c.Stripe.Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("stripe.endpoint must be an absolute URL, got %q", c.Stripe.Endpoint))
	}
	switch c.Transport.Engine {
	case "net/http", "fasthttp":
	default:
		errs = append(errs, fmt.Errorf("transport.engine must be net/http or fasthttp, got %q", c.Transport.Engine))
	}
	if c.Transport.Timeout < 0 {
		errs = append(errs, fmt.Errorf("transport.timeout must not be negative"))
	}
	if cb := c.Transport.CircuitBreaker; cb.Enabled {
		if cb.FailureRatio <= 0 || cb.FailureRatio > 1 {
			errs = append(errs, fmt.Errorf("transport.circuit_breaker.failure_ratio must be in (0, 1], got %v", cb.FailureRatio))
		}
		if cb.Timeout <= 0 {
			errs = append(errs, fmt.Errorf("transport.circuit_breaker.timeout must be positive"))
		}
	}
	if c.Shell.RetryAttempts < 1 {
		errs = append(errs, fmt.Errorf("shell.retry_attempts must be at least 1"))
	}
	if c.Observability.EnableTracing && c.Observability.JaegerEndpoint == "" {
		errs = append(errs, fmt.Errorf("observability.jaeger_endpoint required when tracing is enabled"))
	}

	return errors.Join(errs...)
}

// NormalizeEndpoint ensures the endpoint ends in a slash so resources can be
// appended directly.
func NormalizeEndpoint(endpoint string) string {
	if endpoint == "" {
		return DefaultEndpoint
	}
	if !strings.HasSuffix(endpoint, "/") {
		return endpoint + "/"
	}
	return endpoint
}

func setDefaults(v *viper.Viper) {
	// Provider defaults
	v.SetDefault("stripe.api_key", "")
	v.SetDefault("stripe.endpoint", DefaultEndpoint)

	// Transport defaults
	v.SetDefault("transport.engine", "net/http")
	v.SetDefault("transport.timeout", "80s")
	v.SetDefault("transport.insecure_skip_verify", false)
	v.SetDefault("transport.circuit_breaker.enabled", true)
	v.SetDefault("transport.circuit_breaker.max_requests", 10)
	v.SetDefault("transport.circuit_breaker.interval", "60s")
	v.SetDefault("transport.circuit_breaker.timeout", "30s")
	v.SetDefault("transport.circuit_breaker.min_requests", 10)
	v.SetDefault("transport.circuit_breaker.failure_ratio", 0.6)

	// Shell defaults: a single attempt per command
	v.SetDefault("shell.retry_attempts", 1)
	v.SetDefault("shell.retry_delay", "1s")

	// Observability defaults
	v.SetDefault("observability.log_level", "info")
	v.SetDefault("observability.log_format", "console")
	v.SetDefault("observability.metrics_addr", "")
	v.SetDefault("observability.enable_tracing", false)
	v.SetDefault("observability.jaeger_endpoint", "http://localhost:14268/api/traces")
}
