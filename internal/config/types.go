package config

import "time"

// Transport selects how operations reach the service
type Transport string

const (
	TransportHTTP Transport = "http"
	TransportWS   Transport = "ws"
)

// Mode selects the read strategy of every proxy
type Mode string

const (
	// ModeAsync coalesces reads of one entity into one query per batch window
	ModeAsync Mode = "async"
	// ModeSync sends one query per read
	ModeSync Mode = "sync"
)

// Config represents the client configuration
type Config struct {
	Endpoint            string                `json:"endpoint"`
	WSEndpoint          string                `json:"wsEndpoint"`
	Token               string                `json:"token"`
	Transport           Transport             `json:"transport"`
	Mode                Mode                  `json:"mode"`
	BatchWindow         int                   `json:"batchWindow"`    // ms - how long reads accumulate before a flush
	MaxBatchFields      int                   `json:"maxBatchFields"` // 0 means unlimited
	RequestTimeout      int                   `json:"requestTimeout"` // ms
	RetryMaxAttempts    int                   `json:"retryMaxAttempts"`
	ProxyCacheSize      int                   `json:"proxyCacheSize"`
	LogLevel            string                `json:"logLevel"`
	WSMessageTimeout    int                   `json:"wsMessageTimeout"`    // ms - timeout for receiving messages from the WebSocket
	WSReconnectInterval int                   `json:"wsReconnectInterval"` // ms - interval between reconnection attempts
	CircuitBreaker      *CircuitBreakerConfig `json:"circuitBreaker,omitempty"`
}

// CircuitBreakerConfig represents circuit breaker configuration
type CircuitBreakerConfig struct {
	Enabled             bool `json:"enabled"`
	FailureThreshold    int  `json:"failureThreshold"`
	RecoveryTimeout     int  `json:"recoveryTimeout"` // ms
	HalfOpenMaxRequests int  `json:"halfOpenMaxRequests"`
}

// Default values
const (
	DefaultTransport           = TransportHTTP
	DefaultMode                = ModeAsync
	DefaultBatchWindow         = 2    // ms
	DefaultRequestTimeout      = 5000 // ms
	DefaultRetryMaxAttempts    = 3
	DefaultProxyCacheSize      = 1024
	DefaultLogLevel            = "info"
	DefaultWSMessageTimeout    = 60000 // ms
	DefaultWSReconnectInterval = 5000  // ms
	DefaultFailureThreshold    = 5
	DefaultRecoveryTimeout     = 30000 // ms
	DefaultHalfOpenMaxRequests = 2
)

// GetBatchWindowDuration returns the batch window as time.Duration
func (c *Config) GetBatchWindowDuration() time.Duration {
	return time.Duration(c.BatchWindow) * time.Millisecond
}

// GetRequestTimeoutDuration returns request timeout as time.Duration
func (c *Config) GetRequestTimeoutDuration() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Millisecond
}

// GetWSMessageTimeoutDuration returns the WebSocket message timeout as time.Duration
func (c *Config) GetWSMessageTimeoutDuration() time.Duration {
	return time.Duration(c.WSMessageTimeout) * time.Millisecond
}

// GetWSReconnectIntervalDuration returns the WebSocket reconnect interval as time.Duration
func (c *Config) GetWSReconnectIntervalDuration() time.Duration {
	return time.Duration(c.WSReconnectInterval) * time.Millisecond
}

// IsCircuitBreakerEnabled returns true if the circuit breaker is configured and enabled
func (c *Config) IsCircuitBreakerEnabled() bool {
	return c.CircuitBreaker != nil && c.CircuitBreaker.Enabled
}

// GetRecoveryTimeoutDuration returns the breaker recovery timeout as time.Duration
func (c *CircuitBreakerConfig) GetRecoveryTimeoutDuration() time.Duration {
	return time.Duration(c.RecoveryTimeout) * time.Millisecond
}
