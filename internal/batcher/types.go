package batcher

import (
	"sync"

	"igloogo/internal/graphql"
)

// WindowState is the lifecycle state of a batch window
type WindowState int

const (
	WindowEmpty WindowState = iota
	WindowAccumulating
	WindowFlushing
	WindowClosed
)

// String returns the state name
func (s WindowState) String() string {
	switch s {
	case WindowAccumulating:
		return "accumulating"
	case WindowFlushing:
		return "flushing"
	case WindowClosed:
		return "closed"
	default:
		return "empty"
	}
}

// PendingRequest is one caller's read waiting on a window
type PendingRequest struct {
	Key    graphql.FieldKey
	Future *Future
}

// Window accumulates the reads issued against one entity until it is flushed.
// A window is flushed at most once and never reopens.
type Window struct {
	keys    []graphql.FieldKey            // unique keys in request order
	seen    map[graphql.FieldKey]struct{} // membership of keys
	pending []*PendingRequest
	state   WindowState
	mu      sync.Mutex
}

// NewWindow creates an empty window
func NewWindow() *Window {
	return &Window{
		seen:  make(map[graphql.FieldKey]struct{}),
		state: WindowEmpty,
	}
}

// Add registers a request for key and returns its future together with the
// number of unique keys now in the window. Returns nil if the window no
// longer accepts requests.
func (w *Window) Add(key graphql.FieldKey) (*Future, int) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != WindowEmpty && w.state != WindowAccumulating {
		return nil, len(w.keys)
	}
	w.state = WindowAccumulating

	if _, ok := w.seen[key]; !ok {
		w.seen[key] = struct{}{}
		w.keys = append(w.keys, key)
	}

	f := newFuture()
	w.pending = append(w.pending, &PendingRequest{Key: key, Future: f})
	return f, len(w.keys)
}

// Take moves the window to flushing and hands over its keys and requests.
// Returns nil if the window was already taken or holds nothing.
func (w *Window) Take() ([]graphql.FieldKey, []*PendingRequest) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != WindowAccumulating {
		return nil, nil
	}
	w.state = WindowFlushing

	keys, pending := w.keys, w.pending
	w.keys, w.pending = nil, nil
	return keys, pending
}

// Close marks the flush as complete
func (w *Window) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state = WindowClosed
}

// State returns the current state
func (w *Window) State() WindowState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Len returns the number of unique keys
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.keys)
}
