package transport

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
)

// FastSender sends requests with fasthttp. It does not follow redirects.
type FastSender struct {
	timeout time.Duration
	client  *fasthttp.Client
}

// NewFastSender builds a fasthttp-backed sender. A zero timeout means the
// context deadline, if any, is the only limit.
func NewFastSender(timeout time.Duration, insecureSkipVerify bool) *FastSender {
	client := &fasthttp.Client{
		MaxConnsPerHost:     50,
		MaxIdleConnDuration: 90 * time.Second,
	}
	if insecureSkipVerify {
		client.TLSConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for sandboxes
	}
	return &FastSender{timeout: timeout, client: client}
}

func (s *FastSender) Send(ctx context.Context, req *Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, transportError(req, err)
	}

	timeout, hasTimeout := s.deadline(ctx)
	if hasTimeout && timeout <= 0 {
		return nil, transportError(req, context.DeadlineExceeded)
	}

	type result struct {
		resp *Response
		err  error
	}
	// fasthttp has no context support; the exchange runs on its own goroutine
	// and is abandoned when ctx ends first. It owns its pooled request and
	// response until it returns.
	done := make(chan result, 1)
	go func() {
		resp, err := s.do(req, timeout, hasTimeout)
		done <- result{resp, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, transportError(req, r.err)
		}
		return r.resp, nil
	case <-ctx.Done():
		return nil, transportError(req, ctx.Err())
	}
}

func (s *FastSender) do(req *Request, timeout time.Duration, hasTimeout bool) (*Response, error) {
	freq := fasthttp.AcquireRequest()
	fresp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(freq)
		fasthttp.ReleaseResponse(fresp)
	}()

	freq.SetRequestURI(req.URL)
	freq.Header.SetMethod(req.Method)
	for k, vs := range req.Header {
		for _, v := range vs {
			freq.Header.Add(k, v)
		}
	}
	if req.ContentType != "" {
		freq.Header.SetContentType(req.ContentType)
	}
	if req.Credential != "" {
		token := base64.StdEncoding.EncodeToString([]byte(req.Credential + ":"))
		freq.Header.Set("Authorization", "Basic "+token)
	}
	if len(req.Body) > 0 {
		freq.SetBody(req.Body)
	}

	var err error
	if hasTimeout {
		err = s.client.DoTimeout(freq, fresp, timeout)
	} else {
		err = s.client.Do(freq, fresp)
	}
	if err != nil {
		return nil, err
	}

	header := make(http.Header)
	fresp.Header.VisitAll(func(k, v []byte) {
		header.Add(string(k), string(v))
	})

	return &Response{
		StatusCode:      fresp.StatusCode(),
		ContentType:     string(fresp.Header.ContentType()),
		ContentEncoding: string(fresp.Header.ContentEncoding()),
		ResponseURI:     freq.URI().String(),
		Header:          header,
		// fresp is recycled after return.
		Body: append([]byte(nil), fresp.Body()...),
	}, nil
}

// deadline returns the tighter of the configured timeout and the context
// deadline.
func (s *FastSender) deadline(ctx context.Context) (time.Duration, bool) {
	d, hasDeadline := ctx.Deadline()
	switch {
	case hasDeadline && s.timeout > 0:
		return min(time.Until(d), s.timeout), true
	case hasDeadline:
		return time.Until(d), true
	case s.timeout > 0:
		return s.timeout, true
	default:
		return 0, false
	}
}
