package entity

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"igloogo/internal/batcher"
	"igloogo/internal/graphql"
	"igloogo/internal/transport"
)

// Resolver returns the proxy of an entity, creating it if needed
type Resolver interface {
	Proxy(entityType, id string) (*Proxy, error)
	// Done is closed when the resolver shuts down; proxies handed out
	// earlier stop serving reads and writes
	Done() <-chan struct{}
}

// Proxy is a lazy handle on one remote entity. Reads go through the loader
// bound by the client's FetchStrategy; writes are sent at once.
type Proxy struct {
	meta     *Meta
	id       string
	loader   Loader
	mutator  transport.Mutator
	resolver Resolver
	logger   zerolog.Logger
}

// NewProxy creates a proxy for id bound through strategy
func NewProxy(meta *Meta, id string, strategy FetchStrategy, mutator transport.Mutator, resolver Resolver, logger zerolog.Logger) *Proxy {
	return &Proxy{
		meta:     meta,
		id:       id,
		loader:   strategy.Bind(meta, id),
		mutator:  mutator,
		resolver: resolver,
		logger:   logger.With().Str("entity", meta.Name).Str("id", id).Logger(),
	}
}

// ID returns the entity id
func (p *Proxy) ID() string {
	return p.id
}

// Type returns the entity type name
func (p *Proxy) Type() string {
	return p.meta.Name
}

// Load requests a field and returns its pending value. Object fields
// resolve to the referenced entity's {"id": ...} selection.
func (p *Proxy) Load(ctx context.Context, name string) *batcher.Future {
	if err := p.shutdown(); err != nil {
		return batcher.Resolved(nil, err)
	}
	field, err := p.meta.Field(name)
	if err != nil {
		return batcher.Resolved(nil, err)
	}
	return p.loader.Load(ctx, field.Key())
}

// Get reads a field and waits for its value
func (p *Proxy) Get(ctx context.Context, name string) (json.RawMessage, error) {
	return p.Load(ctx, name).Await(ctx)
}

// Decode reads a field into v
func (p *Proxy) Decode(ctx context.Context, name string, v interface{}) error {
	value, err := p.Get(ctx, name)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(value, v); err != nil {
		return fmt.Errorf("decode %s.%s: %w", p.meta.Name, name, err)
	}
	return nil
}

// Object follows an object field and returns the referenced entity's proxy,
// or nil if the reference is null
func (p *Proxy) Object(ctx context.Context, name string) (*Proxy, error) {
	field, err := p.meta.Field(name)
	if err != nil {
		return nil, err
	}
	if field.Kind != Object {
		return nil, fmt.Errorf("%w: %s.%s", ErrNotObject, p.meta.Name, name)
	}

	value, err := p.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	return p.Ref(name, value)
}

// Ref resolves the loaded value of object field name, as returned by Load,
// to the referenced entity's proxy. A null reference yields nil.
func (p *Proxy) Ref(name string, value json.RawMessage) (*Proxy, error) {
	field, err := p.meta.Field(name)
	if err != nil {
		return nil, err
	}
	if field.Kind != Object {
		return nil, fmt.Errorf("%w: %s.%s", ErrNotObject, p.meta.Name, name)
	}

	var ref *struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(value, &ref); err != nil {
		return nil, fmt.Errorf("decode %s.%s: %w", p.meta.Name, name, err)
	}
	if ref == nil || ref.ID == "" {
		return nil, nil
	}
	return p.resolver.Proxy(field.Target, ref.ID)
}

// Set writes a field with an immediate mutation
func (p *Proxy) Set(ctx context.Context, name string, value interface{}) error {
	if err := p.shutdown(); err != nil {
		return err
	}
	field, err := p.meta.Field(name)
	if err != nil {
		return err
	}
	if !field.Writable {
		return fmt.Errorf("%w: %s.%s", ErrReadOnlyField, p.meta.Name, name)
	}

	mutation, err := graphql.MutationQuery(p.meta.Name, p.id, name, value)
	if err != nil {
		return err
	}

	if _, err := p.mutator.Mutation(ctx, mutation); err != nil {
		p.logger.Debug().Err(err).Str("field", name).Msg("mutation failed")
		return err
	}
	return nil
}

// Flush sends pending reads without waiting for the batch window
func (p *Proxy) Flush() {
	p.loader.Flush()
}

// Close flushes pending reads and releases the loader
func (p *Proxy) Close() {
	p.loader.Close()
}

func (p *Proxy) shutdown() error {
	select {
	case <-p.resolver.Done():
		return ErrRegistryClosed
	default:
		return nil
	}
}
