package models

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"igloogo/internal/batcher"
	"igloogo/internal/entity"
)

// Pending is a typed field read that has been issued but not awaited.
// Reads issued on one entity before any of them is awaited share a batch.
type Pending[T any] struct {
	future *batcher.Future
	decode func(json.RawMessage) (T, error)
}

// Done is closed once the value is available
func (p *Pending[T]) Done() <-chan struct{} {
	return p.future.Done()
}

// Await blocks until the value is available or ctx is done
func (p *Pending[T]) Await(ctx context.Context) (T, error) {
	raw, err := p.future.Await(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	return p.decode(raw)
}

func load[T any](ctx context.Context, p *entity.Proxy, field string) *Pending[T] {
	return &Pending[T]{
		future: p.Load(ctx, field),
		decode: func(raw json.RawMessage) (T, error) {
			var v T
			if err := json.Unmarshal(raw, &v); err != nil {
				return v, fmt.Errorf("decode %s.%s: %w", p.Type(), field, err)
			}
			return v, nil
		},
	}
}

// loadTime reads an RFC 3339 timestamp; null yields the zero time
func loadTime(ctx context.Context, p *entity.Proxy, field string) *Pending[time.Time] {
	return &Pending[time.Time]{
		future: p.Load(ctx, field),
		decode: func(raw json.RawMessage) (time.Time, error) {
			var s *string
			if err := json.Unmarshal(raw, &s); err != nil {
				return time.Time{}, fmt.Errorf("decode %s.%s: %w", p.Type(), field, err)
			}
			if s == nil || *s == "" {
				return time.Time{}, nil
			}
			t, err := time.Parse(time.RFC3339, *s)
			if err != nil {
				return time.Time{}, fmt.Errorf("decode %s.%s: %w", p.Type(), field, err)
			}
			return t, nil
		},
	}
}

// loadRef reads an object field and wraps the referenced proxy; a null
// reference yields nil
func loadRef[T any](ctx context.Context, p *entity.Proxy, field string, wrap func(*entity.Proxy) *T) *Pending[*T] {
	return &Pending[*T]{
		future: p.Load(ctx, field),
		decode: func(raw json.RawMessage) (*T, error) {
			ref, err := p.Ref(field, raw)
			if err != nil || ref == nil {
				return nil, err
			}
			return wrap(ref), nil
		},
	}
}
