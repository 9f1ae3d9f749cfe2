package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"igloogo/internal/graphql"
)

// HTTPConfig for creating a new HTTPTransport
type HTTPConfig struct {
	Endpoint       string
	Token          string
	RequestTimeout time.Duration
	MaxAttempts    int
	Breaker        BreakerConfig
	Logger         zerolog.Logger
}

// HTTPTransport sends GraphQL operations as HTTP POST requests
type HTTPTransport struct {
	endpoint   string
	token      string
	httpClient *http.Client
	exec       *executor
	logger     zerolog.Logger
}

// NewHTTPTransport creates a new HTTPTransport
func NewHTTPTransport(cfg HTTPConfig) *HTTPTransport {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 100,
		IdleConnTimeout:     90 * time.Second,
	}

	t := &HTTPTransport{
		endpoint: cfg.Endpoint,
		token:    cfg.Token,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.RequestTimeout,
		},
		logger: cfg.Logger.With().Str("component", "http-transport").Logger(),
	}
	t.exec = newExecutor(t, NewCircuitBreaker(cfg.Breaker), cfg.MaxAttempts, t.logger)
	return t
}

// Query sends a read query and returns the value at resultPath
func (t *HTTPTransport) Query(ctx context.Context, query string, resultPath []string) (json.RawMessage, error) {
	return t.exec.query(ctx, query, resultPath)
}

// Mutation sends a mutation and returns the response data
func (t *HTTPTransport) Mutation(ctx context.Context, mutation string) (json.RawMessage, error) {
	return t.exec.mutation(ctx, mutation)
}

// Stats returns the operation counters
func (t *HTTPTransport) Stats() Snapshot {
	return t.exec.stats.Snapshot()
}

// Close releases idle connections
func (t *HTTPTransport) Close() {
	t.httpClient.CloseIdleConnections()
}

func (t *HTTPTransport) send(ctx context.Context, req *graphql.Request) (*graphql.Response, error) {
	reqBytes, err := req.Bytes()
	if err != nil {
		return nil, transportErr("encode", fmt.Errorf("failed to marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(reqBytes))
	if err != nil {
		return nil, transportErr("http", fmt.Errorf("failed to create HTTP request: %w", err))
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if t.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+t.token)
	}

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return nil, transportErr("http", fmt.Errorf("HTTP request failed: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportErr("http", fmt.Errorf("failed to read response: %w", err))
	}

	// GraphQL servers report validation and permission failures with a
	// non-2xx status and an errors body.
	gqlResp, parseErr := graphql.ParseResponse(body)
	if resp.StatusCode != http.StatusOK {
		if parseErr == nil && gqlResp.HasErrors() {
			return gqlResp, nil
		}
		return nil, transportErr("http", fmt.Errorf("HTTP error %d: %s", resp.StatusCode, string(body)))
	}
	if parseErr != nil {
		return nil, transportErr("decode", parseErr)
	}

	return gqlResp, nil
}
