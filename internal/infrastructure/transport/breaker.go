package transport

import (
	"context"
	"errors"
	"time"

	domainErrors "github.com/cassiomorais/stripewrapper/internal/domain/errors"
	"github.com/sony/gobreaker/v2"
)

// BreakerSettings configures the circuit breaker placed in front of a Sender.
type BreakerSettings struct {
	MaxRequests  uint32
	Interval     time.Duration
	Timeout      time.Duration
	MinRequests  uint32
	FailureRatio float64
	// OnStateChange is called when the breaker moves between states.
	OnStateChange func(name string, from, to gobreaker.State)
}

// DefaultBreakerSettings opens after 60% of at least 10 calls in a minute
// fail, and probes again after 30s.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		MaxRequests:  10,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		MinRequests:  10,
		FailureRatio: 0.6,
	}
}

// BreakerSender short-circuits calls after repeated transport failures.
// Only transport errors count against the breaker; any HTTP status,
// including 5xx, is a completed exchange.
type BreakerSender struct {
	next    Sender
	breaker *gobreaker.CircuitBreaker[*Response]
}

func NewBreakerSender(name string, next Sender, s BreakerSettings) *BreakerSender {
	return &BreakerSender{
		next: next,
		breaker: gobreaker.NewCircuitBreaker[*Response](gobreaker.Settings{
			Name:        name,
			MaxRequests: s.MaxRequests,
			Interval:    s.Interval,
			Timeout:     s.Timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				if counts.Requests == 0 {
					return false
				}
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= s.MinRequests && failureRatio >= s.FailureRatio
			},
			// Caller cancellation says nothing about provider health.
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, context.Canceled)
			},
			OnStateChange: s.OnStateChange,
		}),
	}
}

func (b *BreakerSender) Send(ctx context.Context, req *Request) (*Response, error) {
	resp, err := b.breaker.Execute(func() (*Response, error) {
		return b.next.Send(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, transportError(req, errors.Join(domainErrors.ErrCircuitOpen, err))
	}
	return resp, err
}

// State reports the breaker state.
func (b *BreakerSender) State() gobreaker.State {
	return b.breaker.State()
}
