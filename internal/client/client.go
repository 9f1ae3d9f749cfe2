// Package client assembles a transport, a fetch strategy and the entity
// registry into the object-graph client applications use.
package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"igloogo/internal/batcher"
	"igloogo/internal/config"
	"igloogo/internal/entity"
	"igloogo/internal/graphql"
	"igloogo/internal/models"
	"igloogo/internal/transport"
)

// Client is the entry point to the remote object graph
type Client struct {
	cfg       *config.Config
	transport transport.Transport
	strategy  entity.FetchStrategy
	registry  *entity.Registry
	logger    zerolog.Logger
}

// New builds the transport selected by cfg, connecting it if needed, and
// returns a client on top of it
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Client, error) {
	tr, err := newTransport(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	c, err := NewWithTransport(cfg, tr, logger)
	if err != nil {
		tr.Close()
		return nil, err
	}
	return c, nil
}

// NewWithTransport returns a client sending its operations through tr
func NewWithTransport(cfg *config.Config, tr transport.Transport, logger zerolog.Logger) (*Client, error) {
	c := &Client{
		cfg:       cfg,
		transport: tr,
		strategy:  newStrategy(cfg, tr, logger),
		logger:    logger.With().Str("component", "client").Logger(),
	}

	registry, err := entity.NewRegistry(entity.RegistryConfig{
		Size:     cfg.ProxyCacheSize,
		Strategy: c.strategy,
		Mutator:  tr,
		Logger:   logger,
	}, models.All()...)
	if err != nil {
		return nil, err
	}
	c.registry = registry

	c.logger.Debug().
		Str("mode", string(cfg.Mode)).
		Str("strategy", c.strategy.Name()).
		Str("transport", string(cfg.Transport)).
		Msg("client ready")
	return c, nil
}

func newTransport(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (transport.Transport, error) {
	breaker := transport.BreakerConfig{}
	if cfg.IsCircuitBreakerEnabled() {
		breaker = transport.BreakerConfig{
			Enabled:             true,
			FailureThreshold:    cfg.CircuitBreaker.FailureThreshold,
			RecoveryTimeout:     cfg.CircuitBreaker.GetRecoveryTimeoutDuration(),
			HalfOpenMaxRequests: cfg.CircuitBreaker.HalfOpenMaxRequests,
		}
	}

	switch cfg.Transport {
	case config.TransportWS:
		ws := transport.NewWSTransport(transport.WSConfig{
			Endpoint:          cfg.WSEndpoint,
			Token:             cfg.Token,
			MessageTimeout:    cfg.GetWSMessageTimeoutDuration(),
			ReconnectInterval: cfg.GetWSReconnectIntervalDuration(),
			MaxAttempts:       cfg.RetryMaxAttempts,
			Breaker:           breaker,
			Logger:            logger,
		})
		if err := ws.Connect(ctx); err != nil {
			ws.Close()
			return nil, err
		}
		return ws, nil
	case config.TransportHTTP:
		return transport.NewHTTPTransport(transport.HTTPConfig{
			Endpoint:       cfg.Endpoint,
			Token:          cfg.Token,
			RequestTimeout: cfg.GetRequestTimeoutDuration(),
			MaxAttempts:    cfg.RetryMaxAttempts,
			Breaker:        breaker,
			Logger:         logger,
		}), nil
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
	}
}

func newStrategy(cfg *config.Config, q transport.Querier, logger zerolog.Logger) entity.FetchStrategy {
	if cfg.Mode == config.ModeSync {
		return &entity.Immediate{Querier: q}
	}
	return &entity.Batched{
		Querier:      q,
		Scheduler:    batcher.TimerScheduler{Wait: cfg.GetBatchWindowDuration()},
		MaxFields:    cfg.MaxBatchFields,
		FlushTimeout: cfg.GetRequestTimeoutDuration(),
		Logger:       logger,
	}
}

// Strategy returns the fetch strategy shared by every proxy
func (c *Client) Strategy() entity.FetchStrategy {
	return c.strategy
}

// Entity returns the proxy of an entity
func (c *Client) Entity(entityType, id string) (*entity.Proxy, error) {
	return c.registry.Proxy(entityType, id)
}

// Get reads one field of an entity
func (c *Client) Get(ctx context.Context, entityType, id, field string) (json.RawMessage, error) {
	p, err := c.Entity(entityType, id)
	if err != nil {
		return nil, err
	}
	return p.Get(ctx, field)
}

// Set writes one field of an entity
func (c *Client) Set(ctx context.Context, entityType, id, field string, value interface{}) error {
	p, err := c.Entity(entityType, id)
	if err != nil {
		return err
	}
	return p.Set(ctx, field, value)
}

// Mutate sends a root mutation that is not a single field write, e.g.
// creating or deleting an entity. Nil argument values are omitted.
func (c *Client) Mutate(ctx context.Context, name, selection string, args ...graphql.Arg) (json.RawMessage, error) {
	mutation, err := graphql.RootMutation(name, selection, args...)
	if err != nil {
		return nil, err
	}
	data, err := c.transport.Mutation(ctx, mutation)
	if err != nil {
		return nil, err
	}
	return graphql.ExtractPath(data, []string{name})
}

func (c *Client) FloatValue(id string) (*models.FloatValue, error) {
	p, err := c.Entity(models.TypeFloatValue, id)
	if err != nil {
		return nil, err
	}
	return models.NewFloatValue(p), nil
}

func (c *Client) CategorySeriesValue(id string) (*models.CategorySeriesValue, error) {
	p, err := c.Entity(models.TypeCategorySeriesValue, id)
	if err != nil {
		return nil, err
	}
	return models.NewCategorySeriesValue(p), nil
}

func (c *Client) Device(id string) (*models.Device, error) {
	p, err := c.Entity(models.TypeDevice, id)
	if err != nil {
		return nil, err
	}
	return models.NewDevice(p), nil
}

func (c *Client) Environment(id string) (*models.Environment, error) {
	p, err := c.Entity(models.TypeEnvironment, id)
	if err != nil {
		return nil, err
	}
	return models.NewEnvironment(p), nil
}

func (c *Client) User(id string) (*models.User, error) {
	p, err := c.Entity(models.TypeUser, id)
	if err != nil {
		return nil, err
	}
	return models.NewUser(p), nil
}

// Stats returns the transport counters, if the transport keeps any
func (c *Client) Stats() (transport.Snapshot, bool) {
	s, ok := c.transport.(interface{ Stats() transport.Snapshot })
	if !ok {
		return transport.Snapshot{}, false
	}
	return s.Stats(), true
}

// Close flushes pending reads and closes the transport
func (c *Client) Close() {
	c.registry.Close()
	c.transport.Close()
	c.logger.Debug().Msg("client closed")
}
