// Package stripe submits charges and refunds to the provider's REST API and
// turns its responses into typed results.
package stripe

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cassiomorais/stripewrapper/internal/classify"
	domainErrors "github.com/cassiomorais/stripewrapper/internal/domain/errors"
	"github.com/cassiomorais/stripewrapper/internal/formenc"
	"github.com/cassiomorais/stripewrapper/internal/infrastructure/config"
	"github.com/cassiomorais/stripewrapper/internal/infrastructure/observability"
	"github.com/cassiomorais/stripewrapper/internal/infrastructure/transport"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	ResourceCharges = "charges"
	ResourceRefunds = "refunds"
)

// Call outcomes recorded in metrics.
const (
	outcomeSuccess           = "success"
	outcomeRejected          = "rejected"
	outcomeBusinessFailure   = "business_failure"
	outcomeTransportError    = "transport_error"
	outcomeMalformedBody     = "malformed_body"
	outcomeProtocolViolation = "protocol_violation"
	outcomeInvalidRequest    = "invalid_request"
)

// ClientConfig is fixed when the client is built.
type ClientConfig struct {
	APIKey string
	// Endpoint defaults to config.DefaultEndpoint.
	Endpoint string
}

// Client submits charges and refunds. It holds no mutable state and is safe
// for concurrent use.
type Client struct {
	cfg     ClientConfig
	sender  transport.Sender
	logger  zerolog.Logger
	metrics *observability.Metrics
	tracer  trace.Tracer
}

type Option func(*Client)

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func WithMetrics(m *observability.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

func WithTracer(t trace.Tracer) Option {
	return func(c *Client) { c.tracer = t }
}

// NewClient validates cfg and binds it to sender.
func NewClient(cfg ClientConfig, sender transport.Sender, opts ...Option) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, domainErrors.ErrMissingAPIKey
	}
	if sender == nil {
		return nil, errors.New("transport sender is required")
	}
	cfg.Endpoint = config.NormalizeEndpoint(cfg.Endpoint)

	c := &Client{
		cfg:    cfg,
		sender: sender,
		logger: zerolog.Nop(),
		tracer: observability.Tracer(),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Config returns the immutable client configuration.
func (c *Client) Config() ClientConfig {
	return c.cfg
}

// post sends fields to resource and classifies the response. The returned
// error is non-nil only for a malformed success body.
func (c *Client) post(ctx context.Context, resource string, fields *formenc.Fields) (classify.Result, error) {
	requestID := uuid.NewString()
	url := c.cfg.Endpoint + resource

	var body []byte
	if payload, ok := fields.Encode(); ok {
		body = []byte(payload)
	}

	c.logger.Debug().
		Str("method", http.MethodPost).
		Str("url", url).
		Str("request_id", requestID).
		Str("api_key", observability.MaskSecret(c.cfg.APIKey)).
		Int("bytes", len(body)).
		Msg("Sending provider request")

	start := time.Now()
	resp, sendErr := c.sender.Send(ctx, &transport.Request{
		Method:      http.MethodPost,
		URL:         url,
		ContentType: formenc.ContentType,
		Credential:  c.cfg.APIKey,
		Header:      http.Header{"X-Request-Id": []string{requestID}},
		Body:        body,
	})

	res, err := classify.Classify(resp, sendErr)
	event := c.logger.Info()
	if err != nil || !res.Succeeded() {
		event = c.logger.Warn()
	}
	event.
		Str("resource", resource).
		Str("request_id", requestID).
		Int("status", res.StatusCode).
		Str("outcome", res.Outcome.String()).
		Dur("duration", time.Since(start)).
		AnErr("transport_error", res.Err).
		AnErr("error", err).
		Msg("Provider response classified")

	return res, err
}

// begin starts the span and clock for one operation.
func (c *Client) begin(ctx context.Context, resource string) (context.Context, func(outcome string, err error)) {
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "stripe."+resource,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("stripe.resource", resource)),
	)

	return ctx, func(outcome string, err error) {
		span.SetAttributes(attribute.String("stripe.outcome", outcome))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		}
		span.End()

		if c.metrics != nil {
			c.metrics.CallsTotal.WithLabelValues(resource, outcome).Inc()
			if outcome != outcomeInvalidRequest {
				c.metrics.CallDuration.WithLabelValues(resource).Observe(time.Since(start).Seconds())
			}
		}
	}
}

func failureOutcome(f *Failure) string {
	switch f.Kind {
	case FailureTransport:
		return outcomeTransportError
	case FailureBusiness:
		return outcomeBusinessFailure
	default:
		return outcomeRejected
	}
}

func errorOutcome(err error) string {
	var f *Failure
	switch {
	case errors.As(err, &f):
		return failureOutcome(f)
	case errors.Is(err, domainErrors.ErrMalformedBody):
		return outcomeMalformedBody
	case errors.Is(err, domainErrors.ErrProtocolViolation):
		return outcomeProtocolViolation
	case domainErrors.IsValidation(err):
		return outcomeInvalidRequest
	default:
		return outcomeTransportError
	}
}
