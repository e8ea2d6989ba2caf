package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"io"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// HTTPSender sends requests with net/http. Outbound calls are traced with
// otelhttp; redirects are followed.
type HTTPSender struct {
	client *http.Client
}

// NewHTTPSender builds a sender with a pooled transport. A zero timeout
// leaves the client without an overall deadline.
func NewHTTPSender(timeout time.Duration, insecureSkipVerify bool) *HTTPSender {
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        30,
		MaxIdleConnsPerHost: 30,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		ForceAttemptHTTP2:   true,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}
	if insecureSkipVerify {
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for sandboxes
	}

	return &HTTPSender{
		client: &http.Client{
			Transport: otelhttp.NewTransport(tr),
			Timeout:   timeout,
		},
	}
}

// NewHTTPSenderWithClient wraps an existing client, e.g. httptest.Server.Client().
func NewHTTPSenderWithClient(client *http.Client) *HTTPSender {
	return &HTTPSender{client: client}
}

func (s *HTTPSender) Send(ctx context.Context, req *Request) (*Response, error) {
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, transportError(req, err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}
	if req.Credential != "" {
		httpReq.SetBasicAuth(req.Credential, "")
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, transportError(req, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(req, err)
	}

	out := &Response{
		StatusCode:      resp.StatusCode,
		ContentType:     resp.Header.Get("Content-Type"),
		ContentEncoding: resp.Header.Get("Content-Encoding"),
		Header:          resp.Header,
		Body:            data,
	}
	if resp.Request != nil && resp.Request.URL != nil {
		out.ResponseURI = resp.Request.URL.String()
	}
	return out, nil
}
