package batcher

import (
	"errors"
	"fmt"

	"igloogo/internal/graphql"
)

var (
	// ErrClosed is returned for reads issued after the coordinator closed
	ErrClosed = errors.New("coordinator closed")

	// ErrFieldMissing is returned when a flushed response lacks a requested field
	ErrFieldMissing = errors.New("field missing from response")
)

// BatchFlushError is delivered to every request of a window whose combined
// query failed
type BatchFlushError struct {
	Entity string
	ID     string
	Fields []graphql.FieldKey
	Err    error
}

// Error implements the error interface
func (e *BatchFlushError) Error() string {
	return fmt.Sprintf("batch flush %s(%s) of %d fields: %v", e.Entity, e.ID, len(e.Fields), e.Err)
}

// Unwrap returns the transport or remote error that failed the flush
func (e *BatchFlushError) Unwrap() error {
	return e.Err
}
