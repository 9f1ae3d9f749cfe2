package entity

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"igloogo/internal/batcher"
	"igloogo/internal/graphql"
	"igloogo/internal/transport"
)

// Loader reads fields of one bound entity
type Loader interface {
	Load(ctx context.Context, key graphql.FieldKey) *batcher.Future
	// Flush sends pending reads now without ending the loader
	Flush()
	Close()
}

// FetchStrategy decides how a proxy's reads reach the service. It is chosen
// once when the client is built and shared by every proxy.
type FetchStrategy interface {
	Bind(meta *Meta, id string) Loader
	Name() string
}

// Batched coalesces the reads of each entity into one query per window
type Batched struct {
	Querier      transport.Querier
	Scheduler    batcher.Scheduler
	MaxFields    int
	FlushTimeout time.Duration
	Logger       zerolog.Logger
}

// Bind creates the entity's coordinator
func (b *Batched) Bind(meta *Meta, id string) Loader {
	return batcher.NewCoordinator(batcher.Config{
		Entity:       meta.Name,
		ID:           id,
		Scheduler:    b.Scheduler,
		MaxFields:    b.MaxFields,
		FlushTimeout: b.FlushTimeout,
		Logger:       b.Logger,
	}, b.Querier)
}

// Name implements FetchStrategy
func (b *Batched) Name() string {
	return "batched"
}

// Immediate sends one query per read and blocks until it returns
type Immediate struct {
	Querier transport.Querier
}

// Bind implements FetchStrategy
func (i *Immediate) Bind(meta *Meta, id string) Loader {
	return &immediateLoader{entity: meta.Name, id: id, querier: i.Querier}
}

// Name implements FetchStrategy
func (i *Immediate) Name() string {
	return "immediate"
}

type immediateLoader struct {
	entity  string
	id      string
	querier transport.Querier
}

// Load performs the round trip before returning an already resolved future
func (l *immediateLoader) Load(ctx context.Context, key graphql.FieldKey) *batcher.Future {
	if err := key.Validate(); err != nil {
		return batcher.Resolved(nil, err)
	}

	query := graphql.FetchQuery(l.entity, l.id, []graphql.FieldKey{key})
	value, err := l.querier.Query(ctx, query, []string{l.entity, key.GroupKey()})
	return batcher.Resolved(value, err)
}

func (l *immediateLoader) Flush() {}

func (l *immediateLoader) Close() {}
