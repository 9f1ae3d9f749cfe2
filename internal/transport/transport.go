package transport

import (
	"context"
	"encoding/json"
)

// Querier executes read queries and returns the value at resultPath
type Querier interface {
	Query(ctx context.Context, query string, resultPath []string) (json.RawMessage, error)
}

// Mutator executes mutations and returns the response data
type Mutator interface {
	Mutation(ctx context.Context, mutation string) (json.RawMessage, error)
}

// Transport sends operations to the remote service
type Transport interface {
	Querier
	Mutator
	Close()
}
