package graphql

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidFieldKey is returned for selections that cannot be grouped
	ErrInvalidFieldKey = errors.New("invalid field key")

	// ErrPathNotFound is returned when a result path is missing from a response
	ErrPathNotFound = errors.New("result path not found")
)

// FieldKey is a field selection requested on an entity: either a scalar
// field ("name") or an object field with its own sub-selection ("device{id}")
type FieldKey string

// ObjectKey builds the selection of an object field's identifier
func ObjectKey(field string) FieldKey {
	return FieldKey(field + "{id}")
}

// GroupKey returns the outer field name under which the server nests the
// result of this selection
func (k FieldKey) GroupKey() string {
	s := string(k)
	if i := strings.IndexByte(s, '{'); i >= 0 {
		return s[:i]
	}
	return s
}

// Validate checks that the key has a well-formed outer name and balanced
// braces, so that grouping by the text before the first '{' is sound
func (k FieldKey) Validate() error {
	s := string(k)
	if s == "" {
		return fmt.Errorf("%w: empty", ErrInvalidFieldKey)
	}

	if !isName(k.GroupKey()) {
		return fmt.Errorf("%w: %q has no valid outer name", ErrInvalidFieldKey, s)
	}

	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth < 0 {
				return fmt.Errorf("%w: %q has unbalanced braces", ErrInvalidFieldKey, s)
			}
		case '"', '(', ')', ':', '$':
			return fmt.Errorf("%w: %q contains %q", ErrInvalidFieldKey, s, s[i])
		}
	}
	if depth != 0 {
		return fmt.Errorf("%w: %q has unbalanced braces", ErrInvalidFieldKey, s)
	}
	return nil
}

// isName reports whether s is a GraphQL name: [_A-Za-z][_0-9A-Za-z]*
func isName(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
