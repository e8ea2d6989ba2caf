package bootstrap

import (
	"context"
	"fmt"
	"io"

	"github.com/cassiomorais/stripewrapper/internal/infrastructure/config"
	"github.com/cassiomorais/stripewrapper/internal/infrastructure/observability"
	"github.com/cassiomorais/stripewrapper/internal/infrastructure/transport"
	"github.com/cassiomorais/stripewrapper/internal/stripe"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Registry *prometheus.Registry
	Metrics  *observability.Metrics
	Sender   transport.Sender
	Client   *stripe.Client

	tracer *sdktrace.TracerProvider
}

// New wires logging, tracing, metrics, the transport and the client from a
// loaded config. cfg.Stripe.APIKey must be set by now. Logs go to logOut,
// or stderr when nil. On error the tracer, if started, is already shut down.
func New(ctx context.Context, cfg *config.Config, serviceName, metricsNamespace string, logOut io.Writer) (_ *App, err error) {
	logger := observability.InitLogger(cfg.Observability.LogLevel, logOut, cfg.Observability.LogFormat == "console")
	logger.Info().Str("service", serviceName).Msg("Starting")

	app := &App{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			app.Close(ctx)
		}
	}()

	if cfg.Observability.EnableTracing {
		tp, err := observability.InitTracer(serviceName, cfg.Observability.JaegerEndpoint)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
		} else {
			app.tracer = tp
			logger.Info().Msg("Tracing enabled")
		}
	}

	app.Registry = prometheus.NewRegistry()
	app.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	app.Metrics = observability.NewMetrics(metricsNamespace, app.Registry)
	logger.Info().Msg("Metrics initialized")

	cb := cfg.Transport.CircuitBreaker
	breaker := transport.DefaultBreakerSettings()
	breaker.MaxRequests = cb.MaxRequests
	breaker.Interval = cb.Interval
	breaker.Timeout = cb.Timeout
	breaker.MinRequests = cb.MinRequests
	breaker.FailureRatio = cb.FailureRatio
	breaker.OnStateChange = func(name string, from, to gobreaker.State) {
		logger.Warn().
			Str("breaker", name).
			Str("from", from.String()).
			Str("to", to.String()).
			Msg("Circuit breaker state changed")
		app.Metrics.ObserveBreaker(name, from, to)
	}

	sender, err := transport.New(serviceName, transport.Options{
		Engine:             cfg.Transport.Engine,
		Timeout:            cfg.Transport.Timeout,
		InsecureSkipVerify: cfg.Transport.InsecureSkipVerify,
		BreakerEnabled:     cb.Enabled,
		Breaker:            breaker,
	})
	if err != nil {
		return nil, fmt.Errorf("build transport: %w", err)
	}
	app.Sender = sender
	if cfg.Transport.InsecureSkipVerify {
		logger.Warn().Msg("TLS certificate verification disabled")
	}
	logger.Info().
		Str("engine", cfg.Transport.Engine).
		Dur("timeout", cfg.Transport.Timeout).
		Bool("circuit_breaker", cb.Enabled).
		Msg("Transport initialized")

	client, err := stripe.NewClient(
		stripe.ClientConfig{APIKey: cfg.Stripe.APIKey, Endpoint: cfg.Stripe.Endpoint},
		sender,
		stripe.WithLogger(logger),
		stripe.WithMetrics(app.Metrics),
		stripe.WithTracer(observability.Tracer()),
	)
	if err != nil {
		return nil, fmt.Errorf("build client: %w", err)
	}
	app.Client = client
	logger.Info().
		Str("endpoint", client.Config().Endpoint).
		Str("api_key", observability.MaskSecret(cfg.Stripe.APIKey)).
		Msg("Client ready")

	return app, nil
}

// Close flushes pending spans.
func (a *App) Close(ctx context.Context) {
	if err := observability.Shutdown(ctx, a.tracer); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to shut down tracer")
	}
}
