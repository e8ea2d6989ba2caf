// Package transport sends one HTTP exchange to the provider over a pluggable
// engine and reports transport failures as errors wrapping ErrTransport.
package transport

import (
	"context"
	"fmt"
	"net/http"

	domainErrors "github.com/cassiomorais/stripewrapper/internal/domain/errors"
)

// Request is a single outbound HTTP exchange.
type Request struct {
	Method      string
	URL         string
	ContentType string
	// Credential is sent as the HTTP Basic auth username with an empty password.
	Credential string
	Header     http.Header
	Body       []byte
}

// Response describes what came back from the remote service.
type Response struct {
	StatusCode      int
	ContentType     string
	ContentEncoding string
	ResponseURI     string
	Header          http.Header
	Body            []byte
}

// Sender sends one request and returns the response, or an error wrapping
// ErrTransport when no response was obtained. Senders make exactly one attempt.
type Sender interface {
	Send(ctx context.Context, req *Request) (*Response, error)
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, req *Request) (*Response, error)

func (f SenderFunc) Send(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

func transportError(req *Request, err error) error {
	return fmt.Errorf("%s %s: %w: %w", req.Method, req.URL, domainErrors.ErrTransport, err)
}
