// Package classify turns the outcome of one HTTP exchange into a binary
// success/failure result with an optional parsed JSON body.
package classify

import (
	"fmt"
	"net/http"

	domainErrors "github.com/cassiomorais/stripewrapper/internal/domain/errors"
	"github.com/cassiomorais/stripewrapper/internal/infrastructure/transport"
)

type Outcome int

const (
	Failure Outcome = iota
	Success
)

func (o Outcome) String() string {
	if o == Success {
		return "success"
	}
	return "failure"
}

// Result is the classified outcome of one exchange.
type Result struct {
	Outcome Outcome
	// StatusCode is zero when no response was received.
	StatusCode int
	// Body is nil when the response carried no body, or when a failure
	// response carried one that is not a JSON object.
	Body Body
	// Raw holds the unparsed response bytes.
	Raw []byte
	// Err is the transport error, if any.
	Err error
}

func (r Result) Succeeded() bool { return r.Outcome == Success }

// Transport reports whether the exchange failed before any response arrived.
func (r Result) Transport() bool { return r.Err != nil }

// Classify interprets a Sender's return values. Only 200 and 201 are
// success; every other status, and every transport error, is a failure.
// The returned error is non-nil only when a success response carries a body
// that is not a JSON object.
func Classify(resp *transport.Response, sendErr error) (Result, error) {
	if sendErr != nil || resp == nil {
		if sendErr == nil {
			sendErr = fmt.Errorf("%w: no response", domainErrors.ErrTransport)
		}
		return Result{Outcome: Failure, Err: sendErr}, nil
	}

	res := Result{
		Outcome:    Failure,
		StatusCode: resp.StatusCode,
		Raw:        resp.Body,
	}
	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated {
		res.Outcome = Success
	}

	if len(resp.Body) == 0 {
		return res, nil
	}

	body, err := ParseBody(resp.Body)
	if err != nil {
		if res.Outcome == Success {
			return Result{}, fmt.Errorf("status %d: %w: %w", resp.StatusCode, domainErrors.ErrMalformedBody, err)
		}
		// The provider's error payload is passed through as Raw only.
		return res, nil
	}
	res.Body = body
	return res, nil
}
