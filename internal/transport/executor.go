package transport

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog"

	"igloogo/internal/graphql"
)

// sender performs one round trip. Connectivity failures are returned as
// *TransportError; server-reported errors are left in the response.
type sender interface {
	send(ctx context.Context, req *graphql.Request) (*graphql.Response, error)
}

// executor applies the breaker, query retry and error translation shared by
// all transports
type executor struct {
	sender      sender
	breaker     *CircuitBreaker
	maxAttempts int
	stats       *Stats
	logger      zerolog.Logger
}

func newExecutor(s sender, breaker *CircuitBreaker, maxAttempts int, logger zerolog.Logger) *executor {
	if breaker == nil {
		breaker = NewCircuitBreaker(BreakerConfig{})
	}
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &executor{
		sender:      s,
		breaker:     breaker,
		maxAttempts: maxAttempts,
		stats:       &Stats{},
		logger:      logger,
	}
}

// query sends a read query, retrying transport failures, and returns the
// value at resultPath
func (e *executor) query(ctx context.Context, text string, resultPath []string) (json.RawMessage, error) {
	var lastErr error
	for attempt := 0; attempt < e.maxAttempts; attempt++ {
		resp, err := e.roundTrip(ctx, "query", text)
		if err == nil {
			return extract(resp, resultPath)
		}
		lastErr = err

		if IsRemoteError(err) || errors.Is(err, ErrCircuitOpen) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, transportErr("query", ctx.Err())
		}

		e.logger.Debug().
			Err(err).
			Int("attempt", attempt+1).
			Int("maxAttempts", e.maxAttempts).
			Msg("query failed")
	}
	return nil, lastErr
}

// mutation sends a mutation exactly once
func (e *executor) mutation(ctx context.Context, text string) (json.RawMessage, error) {
	resp, err := e.roundTrip(ctx, "mutation", text)
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (e *executor) roundTrip(ctx context.Context, op, text string) (*graphql.Response, error) {
	done, err := e.breaker.Allow()
	if err != nil {
		return nil, transportErr(op, err)
	}

	if op == "mutation" {
		e.stats.incMutations()
	} else {
		e.stats.incQueries()
	}

	resp, err := e.sender.send(ctx, graphql.NewRequest(text))
	if err != nil {
		e.stats.incFailures()
		done(false)
		if !IsTransportError(err) {
			err = transportErr(op, err)
		}
		e.logger.Warn().Err(err).Str("op", op).Str("breaker", e.breaker.State()).Msg("round trip failed")
		return nil, err
	}
	done(true)

	if resp.HasErrors() {
		return nil, NewRemoteError(resp.Errors)
	}
	return resp, nil
}

func extract(resp *graphql.Response, resultPath []string) (json.RawMessage, error) {
	value, err := graphql.ExtractPath(resp.Data, resultPath)
	if err != nil {
		return nil, transportErr("decode", err)
	}
	return value, nil
}
