package testutil

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	domainErrors "github.com/cassiomorais/stripewrapper/internal/domain/errors"
	"github.com/cassiomorais/stripewrapper/internal/infrastructure/transport"
)

// ErrConnectionRefused is what SpyTransport.Refuse returns.
var ErrConnectionRefused = errors.New("dial tcp 127.0.0.1:443: connect: connection refused")

// SpyTransport records every request and replies from a script.
type SpyTransport struct {
	mu       sync.Mutex
	requests []*transport.Request

	// SendFunc, when set, answers every call.
	SendFunc func(ctx context.Context, req *transport.Request) (*transport.Response, error)
}

var _ transport.Sender = (*SpyTransport)(nil)

// Respond returns a spy that always answers with status and body.
func Respond(status int, body string) *SpyTransport {
	return &SpyTransport{
		SendFunc: func(_ context.Context, _ *transport.Request) (*transport.Response, error) {
			return &transport.Response{
				StatusCode:  status,
				ContentType: "application/json",
				Header:      http.Header{"Content-Type": []string{"application/json"}},
				Body:        []byte(body),
			}, nil
		},
	}
}

// Refuse returns a spy that fails every call at the transport level.
func Refuse() *SpyTransport {
	return &SpyTransport{
		SendFunc: func(_ context.Context, req *transport.Request) (*transport.Response, error) {
			return nil, fmt.Errorf("%s %s: %w: %w", req.Method, req.URL, domainErrors.ErrTransport, ErrConnectionRefused)
		},
	}
}

func (s *SpyTransport) Send(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	if s.SendFunc == nil {
		return &transport.Response{StatusCode: http.StatusOK}, nil
	}
	return s.SendFunc(ctx, req)
}

// Calls returns the number of requests sent.
func (s *SpyTransport) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// Last returns the most recent request, or nil.
func (s *SpyTransport) Last() *transport.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return nil
	}
	return s.requests[len(s.requests)-1]
}
