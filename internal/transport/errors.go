package transport

import (
	"errors"
	"fmt"
	"strings"

	"igloogo/internal/graphql"
)

var (
	// ErrCircuitOpen is returned while the circuit breaker rejects requests
	ErrCircuitOpen = errors.New("circuit breaker open")

	// ErrNotConnected is returned when the WebSocket connection is down
	ErrNotConnected = errors.New("websocket not connected")

	// ErrClosed is returned after the transport was closed
	ErrClosed = errors.New("transport closed")
)

// TransportError reports a connectivity or protocol failure
type TransportError struct {
	Op  string
	Err error
}

// Error implements the error interface
func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying cause
func (e *TransportError) Unwrap() error {
	return e.Err
}

// RemoteError reports that the service rejected the operation
type RemoteError struct {
	Errors []graphql.Error
}

// NewRemoteError creates a RemoteError from the errors of a response
func NewRemoteError(errs []graphql.Error) *RemoteError {
	return &RemoteError{Errors: errs}
}

// Messages returns the server-reported messages
func (e *RemoteError) Messages() []string {
	msgs := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		msgs = append(msgs, err.Message)
	}
	return msgs
}

// Error implements the error interface
func (e *RemoteError) Error() string {
	return "remote error: " + strings.Join(e.Messages(), "; ")
}

// IsTransportError returns true if err is or wraps a TransportError
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsRemoteError returns true if err is or wraps a RemoteError
func IsRemoteError(err error) bool {
	var re *RemoteError
	return errors.As(err, &re)
}

func transportErr(op string, err error) error {
	return &TransportError{Op: op, Err: err}
}
