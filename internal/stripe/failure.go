package stripe

import (
	"fmt"

	"github.com/cassiomorais/stripewrapper/internal/classify"
	domainErrors "github.com/cassiomorais/stripewrapper/internal/domain/errors"
)

type FailureKind string

const (
	// FailureTransport means no response was received.
	FailureTransport FailureKind = "transport"
	// FailureRejected means the provider answered with a status other than 200 or 201.
	FailureRejected FailureKind = "rejected"
	// FailureBusiness means the exchange succeeded but the operation did not
	// complete, e.g. a refund that is still pending.
	FailureBusiness FailureKind = "business"
)

// Failure is the negative result of a charge or refund. Body carries the
// provider's response verbatim and is nil when there was none.
type Failure struct {
	Kind       FailureKind
	Resource   string
	StatusCode int
	Body       classify.Body
	Raw        []byte
	Err        error
}

func (f *Failure) Error() string {
	switch f.Kind {
	case FailureTransport:
		return fmt.Sprintf("%s: %v", f.Resource, f.Err)
	case FailureBusiness:
		return fmt.Sprintf("%s: status %d: %v", f.Resource, f.StatusCode, f.Err)
	default:
		if msg := f.Body.String("error", "message"); msg != "" {
			return fmt.Sprintf("%s: status %d: %s", f.Resource, f.StatusCode, msg)
		}
		return fmt.Sprintf("%s: status %d: %v", f.Resource, f.StatusCode, domainErrors.ErrRejected)
	}
}

func (f *Failure) Unwrap() []error {
	var kind error
	switch f.Kind {
	case FailureTransport:
		kind = domainErrors.ErrTransport
	case FailureBusiness:
		kind = domainErrors.ErrRefundNotSucceeded
	default:
		kind = domainErrors.ErrRejected
	}
	if f.Err == nil {
		return []error{kind}
	}
	return []error{kind, f.Err}
}

// Retryable reports whether a caller may resend the request. Only transport
// failures qualify; status codes are not interpreted.
func (f *Failure) Retryable() bool {
	return f.Kind == FailureTransport
}

func failureFromResult(resource string, res classify.Result) *Failure {
	kind := FailureRejected
	if res.Transport() {
		kind = FailureTransport
	}
	return &Failure{
		Kind:       kind,
		Resource:   resource,
		StatusCode: res.StatusCode,
		Body:       res.Body,
		Raw:        res.Raw,
		Err:        res.Err,
	}
}
