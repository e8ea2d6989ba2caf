package transport

import (
	"fmt"
	"time"
)

const (
	EngineNetHTTP  = "net/http"
	EngineFastHTTP = "fasthttp"
)

// Options selects and tunes the Sender built by New.
type Options struct {
	Engine             string
	Timeout            time.Duration
	InsecureSkipVerify bool
	BreakerEnabled     bool
	Breaker            BreakerSettings
}

// New builds the Sender described by opts, wrapped in a circuit breaker when
// enabled.
func New(name string, opts Options) (Sender, error) {
	var s Sender
	switch opts.Engine {
	case "", EngineNetHTTP:
		s = NewHTTPSender(opts.Timeout, opts.InsecureSkipVerify)
	case EngineFastHTTP:
		s = NewFastSender(opts.Timeout, opts.InsecureSkipVerify)
	default:
		return nil, fmt.Errorf("unknown transport engine %q", opts.Engine)
	}

	if opts.BreakerEnabled {
		s = NewBreakerSender(name, s, opts.Breaker)
	}
	return s, nil
}
