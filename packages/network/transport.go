package network

import (
	"context"
	"net/http"
)

// Descriptor is a fully resolved request ready for a Transport.
// It must not be mutated once submitted.
type Descriptor struct {
	// ID correlates log lines for one call. It is not sent on the wire.
	ID     string
	Method Method
	URL    string
	Header map[string]string
	Body   []byte
}

// ResponseMeta is the response metadata a Transport hands back.
type ResponseMeta struct {
	StatusCode int
	URL        string
	Header     http.Header
}

// Completion receives the outcome of a submitted Descriptor. Any argument may be nil.
type Completion func(body []byte, resp *ResponseMeta, err error)

// Task is a submitted request. Start begins the transfer.
type Task interface {
	Start()
}

// Transport performs requests. Implementations must invoke the Completion
// exactly once after Start, from any goroutine.
type Transport interface {
	Submit(ctx context.Context, desc *Descriptor, done Completion) Task
}

// TransportFunc adapts a function into a Transport. The function runs
// synchronously when the returned Task is started.
type TransportFunc func(ctx context.Context, desc *Descriptor) ([]byte, *ResponseMeta, error)

func (f TransportFunc) Submit(ctx context.Context, desc *Descriptor, done Completion) Task {
	return taskFunc(func() {
		body, resp, err := f(ctx, desc)
		done(body, resp, err)
	})
}

type taskFunc func()

func (t taskFunc) Start() { t() }
