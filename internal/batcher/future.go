package batcher

import (
	"context"
	"encoding/json"
)

// Future is the pending result of a field read
type Future struct {
	done  chan struct{}
	value json.RawMessage
	err   error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Resolved returns a Future that is already complete
func Resolved(value json.RawMessage, err error) *Future {
	f := newFuture()
	f.resolve(value, err)
	return f
}

// resolve completes the future; it must be called exactly once
func (f *Future) resolve(value json.RawMessage, err error) {
	f.value = value
	f.err = err
	close(f.done)
}

// Done is closed once the result is available
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the result is available or ctx is done. Abandoning
// the wait does not withdraw the request from its window.
func (f *Future) Await(ctx context.Context) (json.RawMessage, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
