package network

import (
	"context"
	"sync"
)

// promise is a single-assignment Result cell shared by Observable and Future.
type promise struct {
	once   sync.Once
	done   chan struct{}
	result Result
}

func newPromise() *promise {
	return &promise{done: make(chan struct{})}
}

// resolve stores r if the promise is still pending. Later calls are no-ops.
func (p *promise) resolve(r Result) bool {
	resolved := false
	p.once.Do(func() {
		p.result = r
		close(p.done)
		resolved = true
	})
	return resolved
}

func (p *promise) wait(ctx context.Context) (Result, error) {
	select {
	case <-p.done:
		return p.result, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Observable delivers a call's Result to any number of subscribers. The
// Result is replayed to subscribers that arrive after completion.
type Observable struct {
	p *promise
}

// Subscribe calls fn with the Result once it is available. fn runs on its own
// goroutine.
func (o *Observable) Subscribe(fn func(Result)) {
	go func() {
		<-o.p.done
		fn(o.p.result)
	}()
}

// Chan returns a channel that yields the Result once and is then closed.
// Every call returns a new channel.
func (o *Observable) Chan() <-chan Result {
	ch := make(chan Result, 1)
	go func() {
		<-o.p.done
		ch <- o.p.result
		close(ch)
	}()
	return ch
}

// Wait blocks until the Result is available or ctx is done. The returned
// error is only ever ctx.Err(); call failures are carried in the Result.
func (o *Observable) Wait(ctx context.Context) (Result, error) {
	return o.p.wait(ctx)
}

// Future resolves once with the call's data or fails with its error.
type Future struct {
	p *promise
}

// Done is closed when the Future has settled.
func (f *Future) Done() <-chan struct{} {
	return f.p.done
}

// Await blocks until the Future settles or ctx is done.
func (f *Future) Await(ctx context.Context) ([]byte, error) {
	r, err := f.p.wait(ctx)
	if err != nil {
		return nil, err
	}
	return r.Unwrap()
}

// Result returns the settled Result and whether the Future has settled.
func (f *Future) Result() (Result, bool) {
	select {
	case <-f.p.done:
		return f.p.result, true
	default:
		return Result{}, false
	}
}
