package batcher

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"igloogo/internal/graphql"
	"igloogo/internal/transport"
)

// Config for creating a new Coordinator
type Config struct {
	// Entity is the root query name of the entity type, e.g. "floatValue"
	Entity string
	// ID identifies the entity
	ID string
	// Scheduler decides when an open window is flushed
	Scheduler Scheduler
	// MaxFields flushes a window early once it holds this many unique
	// keys. Zero means unlimited.
	MaxFields int
	// FlushTimeout bounds each combined query. Zero means no timeout.
	FlushTimeout time.Duration
	Logger       zerolog.Logger
}

// Coordinator batches the field reads of one entity
type Coordinator struct {
	entity       string
	id           string
	querier      transport.Querier
	scheduler    Scheduler
	maxFields    int
	flushTimeout time.Duration
	logger       zerolog.Logger

	current  *Window
	closed   bool
	flushing int // windows taken but not yet resolved
	idle     *sync.Cond
	mu       sync.Mutex
}

// NewCoordinator creates a new Coordinator sending its queries through q
func NewCoordinator(cfg Config, q transport.Querier) *Coordinator {
	scheduler := cfg.Scheduler
	if scheduler == nil {
		scheduler = TimerScheduler{}
	}

	c := &Coordinator{
		entity:       cfg.Entity,
		id:           cfg.ID,
		querier:      q,
		scheduler:    scheduler,
		maxFields:    cfg.MaxFields,
		flushTimeout: cfg.FlushTimeout,
		logger: cfg.Logger.With().
			Str("component", "batcher").
			Str("entity", cfg.Entity).
			Str("id", cfg.ID).
			Logger(),
	}
	c.idle = sync.NewCond(&c.mu)
	return c
}

// Request registers a read of key in the current window and returns its
// future. Repeated keys within a window share one selection in the query
// but each caller gets its own future.
func (c *Coordinator) Request(key graphql.FieldKey) *Future {
	if err := key.Validate(); err != nil {
		return Resolved(nil, err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Resolved(nil, ErrClosed)
	}

	opened := false
	if c.current == nil {
		c.current = NewWindow()
		opened = true
	}
	w := c.current

	f, unique := w.Add(key)
	var (
		keys    []graphql.FieldKey
		pending []*PendingRequest
	)
	if c.maxFields > 0 && unique >= c.maxFields {
		keys, pending = c.takeLocked(w)
	}
	c.mu.Unlock()

	if opened {
		c.scheduler.Schedule(func() {
			c.flush(w)
		})
	}
	if len(pending) > 0 {
		go c.execute(w, keys, pending)
	}

	return f
}

// Load implements the entity loader contract; ctx is not retained
func (c *Coordinator) Load(ctx context.Context, key graphql.FieldKey) *Future {
	if err := ctx.Err(); err != nil {
		return Resolved(nil, err)
	}
	return c.Request(key)
}

// Flush sends the open window now instead of waiting for its schedule.
// Later reads open a new window.
func (c *Coordinator) Flush() {
	c.mu.Lock()
	w := c.current
	c.mu.Unlock()

	if w != nil {
		c.flush(w)
	}
}

// Close flushes the open window, waits for every flush in flight and
// rejects later reads with ErrClosed
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	var (
		w       = c.current
		keys    []graphql.FieldKey
		pending []*PendingRequest
	)
	if w != nil {
		keys, pending = c.takeLocked(w)
	}
	c.mu.Unlock()

	if len(pending) > 0 {
		c.execute(w, keys, pending)
	}

	c.mu.Lock()
	for c.flushing > 0 {
		c.idle.Wait()
	}
	c.mu.Unlock()
}

// takeLocked detaches w and moves it to flushing. c.mu must be held.
func (c *Coordinator) takeLocked(w *Window) ([]graphql.FieldKey, []*PendingRequest) {
	if c.current == w {
		c.current = nil
	}
	keys, pending := w.Take()
	if len(pending) > 0 {
		c.flushing++
	}
	return keys, pending
}

// flush takes w if it is still accumulating and executes it
func (c *Coordinator) flush(w *Window) {
	c.mu.Lock()
	keys, pending := c.takeLocked(w)
	c.mu.Unlock()

	if len(pending) > 0 {
		c.execute(w, keys, pending)
	}
}

// execute sends the window's combined query and distributes the result
func (c *Coordinator) execute(w *Window, keys []graphql.FieldKey, pending []*PendingRequest) {
	defer func() {
		w.Close()
		c.mu.Lock()
		c.flushing--
		c.idle.Broadcast()
		c.mu.Unlock()
	}()

	ctx := context.Background()
	if c.flushTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.flushTimeout)
		defer cancel()
	}

	c.logger.Debug().
		Int("fields", len(keys)).
		Int("requests", len(pending)).
		Msg("executing batch")

	query := graphql.FetchQuery(c.entity, c.id, keys)
	result, err := c.querier.Query(ctx, query, []string{c.entity})
	if err != nil {
		c.reject(keys, pending, err)
		return
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(result, &fields); err != nil || fields == nil {
		if err == nil {
			err = fmt.Errorf("%s(%s) not found", c.entity, c.id)
		}
		c.reject(keys, pending, fmt.Errorf("failed to decode batch result: %w", err))
		return
	}

	for _, p := range pending {
		value, ok := fields[p.Key.GroupKey()]
		if !ok {
			p.Future.resolve(nil, fmt.Errorf("%w: %s", ErrFieldMissing, p.Key.GroupKey()))
			continue
		}
		p.Future.resolve(value, nil)
	}

	c.logger.Debug().
		Int("fields", len(keys)).
		Int("requests", len(pending)).
		Msg("batch completed")
}

func (c *Coordinator) reject(keys []graphql.FieldKey, pending []*PendingRequest, err error) {
	flushErr := &BatchFlushError{
		Entity: c.entity,
		ID:     c.id,
		Fields: keys,
		Err:    err,
	}

	c.logger.Warn().
		Err(err).
		Int("fields", len(keys)).
		Int("requests", len(pending)).
		Msg("batch failed")

	for _, p := range pending {
		p.Future.resolve(nil, flushErr)
	}
}
