package graphql

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Request represents a GraphQL request body
type Request struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

// NewRequest creates a request for the given query text
func NewRequest(query string) *Request {
	return &Request{Query: query}
}

// Bytes returns the request as JSON bytes
func (r *Request) Bytes() ([]byte, error) {
	return json.Marshal(r)
}

// Error represents a single server-reported GraphQL error
type Error struct {
	Message    string          `json:"message"`
	Path       []interface{}   `json:"path,omitempty"`
	Extensions json.RawMessage `json:"extensions,omitempty"`
}

// Error implements the error interface
func (e *Error) Error() string {
	return e.Message
}

// Response represents a GraphQL response
type Response struct {
	Data   json.RawMessage `json:"data,omitempty"`
	Errors []Error         `json:"errors,omitempty"`
}

// HasErrors returns true if the server reported at least one error
func (r *Response) HasErrors() bool {
	return len(r.Errors) > 0
}

// DataIsNull returns true if the response carries no data
func (r *Response) DataIsNull() bool {
	if r == nil || len(r.Data) == 0 {
		return true
	}
	return bytes.Equal(bytes.TrimSpace(r.Data), []byte("null"))
}

// Messages returns the messages of all reported errors
func (r *Response) Messages() []string {
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, e.Message)
	}
	return msgs
}

// ParseResponse parses a GraphQL response from bytes
func ParseResponse(data []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &resp, nil
}

// ExtractPath walks the JSON object tree of data along path and returns the
// value found there. A null met on the way yields null.
func ExtractPath(data json.RawMessage, path []string) (json.RawMessage, error) {
	current := data
	for i, key := range path {
		if isNull(current) {
			return json.RawMessage("null"), nil
		}

		var obj map[string]json.RawMessage
		if err := json.Unmarshal(current, &obj); err != nil {
			return nil, fmt.Errorf("%w: %s is not an object", ErrPathNotFound, strings.Join(path[:i], "."))
		}

		next, ok := obj[key]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrPathNotFound, strings.Join(path[:i+1], "."))
		}
		current = next
	}
	return current, nil
}

func isNull(data json.RawMessage) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
