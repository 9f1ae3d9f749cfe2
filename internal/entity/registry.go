package entity

import (
	"errors"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"igloogo/internal/transport"
)

var (
	// ErrUnknownEntity is returned for entity types not registered
	ErrUnknownEntity = errors.New("unknown entity type")

	// ErrEmptyID is returned when a proxy is requested without an id
	ErrEmptyID = errors.New("empty entity id")

	// ErrRegistryClosed is returned after Close
	ErrRegistryClosed = errors.New("registry closed")
)

// RegistryConfig for creating a new Registry
type RegistryConfig struct {
	// Size bounds the number of live proxies
	Size     int
	Strategy FetchStrategy
	Mutator  transport.Mutator
	Logger   zerolog.Logger
}

// Registry hands out one proxy per live entity so that reads of the same
// entity share a loader. Least recently used proxies are evicted and their
// pending reads flushed.
type Registry struct {
	metas    map[string]*Meta
	proxies  *lru.Cache[string, *Proxy]
	strategy FetchStrategy
	mutator  transport.Mutator
	logger   zerolog.Logger
	closing  bool
	done     chan struct{}
	mu       sync.Mutex
}

// NewRegistry creates a registry serving the given entity types
func NewRegistry(cfg RegistryConfig, metas ...*Meta) (*Registry, error) {
	r := &Registry{
		metas:    make(map[string]*Meta, len(metas)),
		strategy: cfg.Strategy,
		mutator:  cfg.Mutator,
		logger:   cfg.Logger.With().Str("component", "registry").Logger(),
		done:     make(chan struct{}),
	}

	// Eviction runs inside Add or Purge with r.mu held. An evicted proxy may
	// still be held by callers, so it is only flushed, never closed.
	proxies, err := lru.NewWithEvict[string, *Proxy](cfg.Size, func(key string, p *Proxy) {
		if r.closing {
			return
		}
		r.logger.Debug().Str("key", key).Msg("proxy evicted")
		go p.Flush()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create proxy cache: %w", err)
	}
	r.proxies = proxies
	for _, m := range metas {
		r.metas[m.Name] = m
	}
	return r, nil
}

// Meta returns the metadata of a registered entity type
func (r *Registry) Meta(entityType string) (*Meta, error) {
	m, ok := r.metas[entityType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, entityType)
	}
	return m, nil
}

// Proxy implements Resolver
func (r *Registry) Proxy(entityType, id string) (*Proxy, error) {
	if id == "" {
		return nil, ErrEmptyID
	}
	meta, err := r.Meta(entityType)
	if err != nil {
		return nil, err
	}

	key := entityType + ":" + id

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closing {
		return nil, ErrRegistryClosed
	}
	if p, ok := r.proxies.Get(key); ok {
		return p, nil
	}

	p := NewProxy(meta, id, r.strategy, r.mutator, r, r.logger)
	r.proxies.Add(key, p)
	return p, nil
}

// Len returns the number of live proxies
func (r *Registry) Len() int {
	return r.proxies.Len()
}

// Done is closed once Close has been called
func (r *Registry) Done() <-chan struct{} {
	return r.done
}

// Close flushes and releases every live proxy. Proxies evicted earlier
// reject reads and writes from now on.
func (r *Registry) Close() {
	r.mu.Lock()
	if r.closing {
		r.mu.Unlock()
		return
	}
	r.closing = true
	close(r.done)
	live := r.proxies.Values()
	r.proxies.Purge()
	r.mu.Unlock()

	for _, p := range live {
		p.Close()
	}
}
