package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igloogo/internal/graphql"
)

func newTestHTTPTransport(url string, attempts int, breaker BreakerConfig) *HTTPTransport {
	return NewHTTPTransport(HTTPConfig{
		Endpoint:       url,
		Token:          "secret",
		RequestTimeout: 2 * time.Second,
		MaxAttempts:    attempts,
		Breaker:        breaker,
		Logger:         zerolog.Nop(),
	})
}

func TestHTTPTransport_QueryExtractsPath(t *testing.T) {
	var gotQuery, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req graphql.Request
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotQuery = req.Query
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"data":{"floatValue":{"name":"Temp","device":{"id":"d1"}}}}`))
	}))
	defer srv.Close()

	tr := newTestHTTPTransport(srv.URL, 1, BreakerConfig{})
	defer tr.Close()

	q := `{ floatValue(id:"v1"){ name device{id} } }`
	value, err := tr.Query(context.Background(), q, []string{"floatValue"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Temp","device":{"id":"d1"}}`, string(value))
	assert.Equal(t, q, gotQuery)
	assert.Equal(t, "Bearer secret", gotAuth)

	value, err = tr.Query(context.Background(), q, []string{"floatValue", "device", "id"})
	require.NoError(t, err)
	assert.JSONEq(t, `"d1"`, string(value))
	assert.Equal(t, uint64(2), tr.Stats().Queries)
}

func TestHTTPTransport_RemoteError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"errors":[{"message":"You are not allowed to perform this operation"}]}`))
	}))
	defer srv.Close()

	tr := newTestHTTPTransport(srv.URL, 3, BreakerConfig{})
	_, err := tr.Query(context.Background(), `{ device(id:"d"){ name } }`, []string{"device"})
	require.Error(t, err)

	var remote *RemoteError
	require.True(t, errors.As(err, &remote))
	assert.Equal(t, []string{"You are not allowed to perform this operation"}, remote.Messages())
	assert.Equal(t, int32(1), calls.Load(), "remote errors are not retried")
}

func TestHTTPTransport_QueryRetriesTransportErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"data":{"device":{"name":"n"}}}`))
	}))
	defer srv.Close()

	tr := newTestHTTPTransport(srv.URL, 3, BreakerConfig{})
	value, err := tr.Query(context.Background(), `{ device(id:"d"){ name } }`, []string{"device", "name"})
	require.NoError(t, err)
	assert.JSONEq(t, `"n"`, string(value))
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, uint64(2), tr.Stats().Failures)
}

func TestHTTPTransport_MutationIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	tr := newTestHTTPTransport(srv.URL, 5, BreakerConfig{})
	_, err := tr.Mutation(context.Background(), `mutation{ device(id:"d", name:"x"){id} }`)
	require.Error(t, err)
	assert.True(t, IsTransportError(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPTransport_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>`))
	}))
	defer srv.Close()

	tr := newTestHTTPTransport(srv.URL, 1, BreakerConfig{})
	_, err := tr.Query(context.Background(), `{ device(id:"d"){ name } }`, []string{"device"})
	require.Error(t, err)
	assert.True(t, IsTransportError(err))
}

func TestHTTPTransport_CircuitBreakerOpens(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	tr := newTestHTTPTransport(srv.URL, 1, BreakerConfig{
		Enabled:          true,
		FailureThreshold: 2,
		RecoveryTimeout:  time.Hour,
	})

	for i := 0; i < 2; i++ {
		_, err := tr.Query(context.Background(), `{ device(id:"d"){ name } }`, []string{"device"})
		require.Error(t, err)
	}

	_, err := tr.Query(context.Background(), `{ device(id:"d"){ name } }`, []string{"device"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.True(t, IsTransportError(err))
	assert.Equal(t, int32(2), calls.Load())
}

func newTestBreaker(maxTrials int) (*CircuitBreaker, *time.Time) {
	now := time.Unix(0, 0)
	cb := NewCircuitBreaker(BreakerConfig{
		Enabled:             true,
		FailureThreshold:    1,
		RecoveryTimeout:     time.Second,
		HalfOpenMaxRequests: maxTrials,
	})
	cb.now = func() time.Time { return now }
	return cb, &now
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	cb, now := newTestBreaker(1)

	done, err := cb.Allow()
	require.NoError(t, err)
	done(false)
	assert.Equal(t, "open", cb.State())
	_, err = cb.Allow()
	assert.ErrorIs(t, err, ErrCircuitOpen)

	*now = now.Add(2 * time.Second)
	done, err = cb.Allow()
	require.NoError(t, err)
	assert.Equal(t, "half-open", cb.State())

	done(true)
	assert.Equal(t, "closed", cb.State())
}

func TestCircuitBreaker_HalfOpenLimitsConcurrentTrials(t *testing.T) {
	cb, now := newTestBreaker(2)

	done, err := cb.Allow()
	require.NoError(t, err)
	done(false)
	*now = now.Add(2 * time.Second)

	first, err := cb.Allow()
	require.NoError(t, err)
	second, err := cb.Allow()
	require.NoError(t, err)
	_, err = cb.Allow()
	assert.ErrorIs(t, err, ErrCircuitOpen)

	first(true)
	assert.Equal(t, "half-open", cb.State())
	second(true)
	assert.Equal(t, "closed", cb.State())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb, now := newTestBreaker(2)

	done, err := cb.Allow()
	require.NoError(t, err)
	done(false)
	*now = now.Add(2 * time.Second)

	first, err := cb.Allow()
	require.NoError(t, err)
	second, err := cb.Allow()
	require.NoError(t, err)

	first(false)
	assert.Equal(t, "open", cb.State())
	// admitted before the breaker reopened
	second(true)
	assert.Equal(t, "open", cb.State())
}

func TestCircuitBreaker_IgnoresResultsFromBeforeOpening(t *testing.T) {
	cb, _ := newTestBreaker(1)

	slow, err := cb.Allow()
	require.NoError(t, err)
	failing, err := cb.Allow()
	require.NoError(t, err)

	failing(false)
	slow(true)
	assert.Equal(t, "open", cb.State())
}
