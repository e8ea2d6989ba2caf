// Package shell is the interactive console for submitting test charges and
// refunds.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cassiomorais/stripewrapper/internal/classify"
	"github.com/cassiomorais/stripewrapper/internal/infrastructure/observability"
	"github.com/cassiomorais/stripewrapper/internal/stripe"
	"github.com/cassiomorais/stripewrapper/pkg/retry"
	"github.com/rs/zerolog"
)

const commandPrompt = "Command [charge refund quit]:"

const clearScreen = "\033[H\033[2J"

// Operations is the client surface the shell drives.
type Operations interface {
	Charge(ctx context.Context, req stripe.ChargeRequest) (*stripe.ChargeResult, error)
	Refund(ctx context.Context, chargeID string) (*stripe.RefundResult, error)
}

// Shell runs the command loop.
type Shell struct {
	ops     Operations
	prompt  *Prompter
	out     io.Writer
	logger  zerolog.Logger
	metrics *observability.Metrics
	retry   retry.Config
	now     func() time.Time
}

type Option func(*Shell)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Shell) { s.logger = l }
}

func WithMetrics(m *observability.Metrics) Option {
	return func(s *Shell) { s.metrics = m }
}

// WithRetry resends a command after transport failures, up to cfg.MaxAttempts.
func WithRetry(cfg retry.Config) Option {
	return func(s *Shell) { s.retry = cfg }
}

// WithClock overrides the clock used for the expiration year default.
func WithClock(now func() time.Time) Option {
	return func(s *Shell) { s.now = now }
}

func New(ops Operations, in io.Reader, out io.Writer, opts ...Option) *Shell {
	s := &Shell{
		ops:    ops,
		prompt: NewPrompter(in, out),
		out:    out,
		logger: zerolog.Nop(),
		retry:  retry.DefaultConfig(),
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// AskAPIKey prompts until a key is entered.
func AskAPIKey(in io.Reader, out io.Writer) (string, error) {
	return NewPrompter(in, out).Required("Stripe API key:")
}

// Run reads commands until quit, end of input, or ctx is done. End of input
// is a normal exit.
func (s *Shell) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		cmd, err := s.prompt.Required(commandPrompt)
		if errors.Is(err, ErrNoInput) {
			return nil
		}
		if err != nil {
			return err
		}

		cmd = strings.TrimSpace(cmd)
		s.count(cmd)

		switch cmd {
		case "charge":
			err = s.charge(ctx)
		case "refund":
			err = s.refund(ctx)
		case "quit", "q":
			return nil
		case "cls":
			fmt.Fprint(s.out, clearScreen)
		}

		if errors.Is(err, ErrNoInput) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (s *Shell) count(cmd string) {
	if s.metrics == nil {
		return
	}
	label := cmd
	switch cmd {
	case "charge", "refund", "quit", "cls":
	case "q":
		label = "quit"
	default:
		label = "unknown"
	}
	s.metrics.ShellCommandsTotal.WithLabelValues(label).Inc()
}

func (s *Shell) charge(ctx context.Context) error {
	req, err := s.askCharge()
	if err != nil {
		return err
	}

	res, err := withRetry(ctx, s, stripe.ResourceCharges, func() (*stripe.ChargeResult, error) {
		return s.ops.Charge(ctx, req)
	})
	if err != nil {
		s.renderError(err)
		return nil
	}

	fmt.Fprintln(s.out, "Success")
	fmt.Fprintf(s.out, "  Card ID        : %s\n", res.CardID)
	fmt.Fprintf(s.out, "  Charge Txn ID  : %s\n", res.ChargeID)
	fmt.Fprintln(s.out)
	s.renderBody(res.Body)
	return nil
}

func (s *Shell) askCharge() (stripe.ChargeRequest, error) {
	var req stripe.ChargeRequest
	p := s.prompt

	amount, err := p.Int("Amount", 100, true, false)
	if err != nil {
		return req, err
	}
	req.Amount = int64(amount)

	if req.Currency, err = p.String("Currency", "usd", false); err != nil {
		return req, err
	}
	if req.ExpMonth, err = p.Int("Expiration Month", 1, true, false); err != nil {
		return req, err
	}
	if req.ExpYear, err = p.Int("Expiration Year", s.now().Year()+1, true, false); err != nil {
		return req, err
	}
	if req.CardNumber, err = p.String("Card Number", "4242424242424242", false); err != nil {
		return req, err
	}

	optional := []struct {
		question string
		def      string
		dst      *string
	}{
		{"Street Address", "123 Some Street", &req.Billing.Address1},
		{"City", "San Jose", &req.Billing.City},
		{"State", "CA", &req.Billing.State},
		{"Zip Code", "95128", &req.Billing.Zip},
		{"CVV2", "111", &req.Billing.CVV},
		{"Name On Card", "SOME PERSON", &req.Billing.NameOnCard},
		{"Description", "Test Transaction", &req.Description},
	}
	for _, q := range optional {
		if *q.dst, err = p.String(q.question, q.def, true); err != nil {
			return req, err
		}
	}
	return req, nil
}

func (s *Shell) refund(ctx context.Context) error {
	chargeID, err := s.prompt.String("Charge Transaction ID", "", false)
	if err != nil {
		return err
	}

	res, err := withRetry(ctx, s, stripe.ResourceRefunds, func() (*stripe.RefundResult, error) {
		return s.ops.Refund(ctx, chargeID)
	})
	if err != nil {
		s.renderError(err)
		return nil
	}

	fmt.Fprintln(s.out, "Success")
	fmt.Fprintf(s.out, "  Refund Txn ID : %s\n", res.RefundID)
	fmt.Fprintln(s.out)
	s.renderBody(res.Body)
	return nil
}

// withRetry resends only transport failures.
func withRetry[T any](ctx context.Context, s *Shell, resource string, fn func() (T, error)) (T, error) {
	cfg := s.retry
	cfg.RetryIf = func(err error) bool {
		var f *stripe.Failure
		return errors.As(err, &f) && f.Retryable()
	}
	cfg.OnRetry = func(n uint, err error) {
		s.logger.Warn().
			Err(err).
			Str("resource", resource).
			Uint("attempt", n+1).
			Msg("Retrying after transport failure")
		if s.metrics != nil {
			s.metrics.CallRetries.WithLabelValues(resource).Inc()
		}
	}
	return retry.DoWithResult(ctx, cfg, fn)
}

func (s *Shell) renderError(err error) {
	var f *stripe.Failure
	if !errors.As(err, &f) {
		fmt.Fprintf(s.out, "Failed: %v\n", err)
		fmt.Fprintln(s.out)
		return
	}

	fmt.Fprintln(s.out, "Failed")
	if f.Kind != stripe.FailureRejected || f.Body == nil {
		fmt.Fprintf(s.out, "  Reason : %v\n", f)
	}
	fmt.Fprintln(s.out)
	s.renderBody(f.Body)
}

func (s *Shell) renderBody(b classify.Body) {
	fmt.Fprintln(s.out, "Response Body")
	fmt.Fprintln(s.out, b.Indent())
	fmt.Fprintln(s.out)
}
