package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
)

// Load reads, parses and validates the configuration file
func Load(path string) (*Config, error) {
	cfg, err := ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := Finalize(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ReadFile parses the configuration file without applying defaults, so that
// callers can override values before Finalize
func ReadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// Finalize applies defaults and validates a configuration built in code or
// overridden from flags
func Finalize(cfg *Config) error {
	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// applyDefaults sets default values for unset fields
func applyDefaults(cfg *Config) {
	if cfg.Transport == "" {
		cfg.Transport = DefaultTransport
	}
	if cfg.Mode == "" {
		cfg.Mode = DefaultMode
	}
	if cfg.BatchWindow == 0 {
		cfg.BatchWindow = DefaultBatchWindow
	}
	// MaxBatchFields default is 0, which means unlimited
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.RetryMaxAttempts == 0 {
		cfg.RetryMaxAttempts = DefaultRetryMaxAttempts
	}
	if cfg.ProxyCacheSize == 0 {
		cfg.ProxyCacheSize = DefaultProxyCacheSize
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	if cfg.WSMessageTimeout == 0 {
		cfg.WSMessageTimeout = DefaultWSMessageTimeout
	}
	if cfg.WSReconnectInterval == 0 {
		cfg.WSReconnectInterval = DefaultWSReconnectInterval
	}

	if cb := cfg.CircuitBreaker; cb != nil {
		if cb.FailureThreshold == 0 {
			cb.FailureThreshold = DefaultFailureThreshold
		}
		if cb.RecoveryTimeout == 0 {
			cb.RecoveryTimeout = DefaultRecoveryTimeout
		}
		if cb.HalfOpenMaxRequests == 0 {
			cb.HalfOpenMaxRequests = DefaultHalfOpenMaxRequests
		}
	}
}

// validate checks the configuration for errors
func validate(cfg *Config) error {
	switch cfg.Transport {
	case TransportHTTP:
		if cfg.Endpoint == "" {
			return errors.New("endpoint is required for the http transport")
		}
		if err := checkURL(cfg.Endpoint, "http", "https"); err != nil {
			return fmt.Errorf("endpoint: %w", err)
		}
	case TransportWS:
		if cfg.WSEndpoint == "" {
			return errors.New("wsEndpoint is required for the ws transport")
		}
		if err := checkURL(cfg.WSEndpoint, "ws", "wss"); err != nil {
			return fmt.Errorf("wsEndpoint: %w", err)
		}
	default:
		return fmt.Errorf("transport must be one of: http, ws")
	}

	if cfg.Mode != ModeAsync && cfg.Mode != ModeSync {
		return fmt.Errorf("mode must be one of: async, sync")
	}

	if cfg.BatchWindow < 0 {
		return fmt.Errorf("batchWindow must be non-negative")
	}

	if cfg.MaxBatchFields < 0 {
		return fmt.Errorf("maxBatchFields must be non-negative")
	}

	if cfg.RequestTimeout < 0 {
		return fmt.Errorf("requestTimeout must be non-negative")
	}

	if cfg.RetryMaxAttempts < 0 {
		return fmt.Errorf("retryMaxAttempts must be non-negative")
	}

	if cfg.ProxyCacheSize < 0 {
		return fmt.Errorf("proxyCacheSize must be non-negative")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[cfg.LogLevel] {
		return fmt.Errorf("logLevel must be one of: debug, info, warn, error")
	}

	if cfg.IsCircuitBreakerEnabled() {
		if cfg.CircuitBreaker.FailureThreshold < 0 {
			return fmt.Errorf("circuitBreaker.failureThreshold must be positive")
		}
		if cfg.CircuitBreaker.RecoveryTimeout < 0 {
			return fmt.Errorf("circuitBreaker.recoveryTimeout must be positive")
		}
	}

	return nil
}

func checkURL(raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	for _, s := range schemes {
		if u.Scheme == s {
			return nil
		}
	}
	return fmt.Errorf("scheme must be one of %v, got %q", schemes, u.Scheme)
}
