// Package cache keeps display data usable through backend outages:
// every resource is seeded with a representative default, refreshed in
// place on success and left untouched on failure, so consumers never
// see an empty or error state on the read path.
package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"bloodlink.org/internal/obs"
)

// Resource is one cached remote value. It is never cleared: a failed or
// timed-out fetch only marks it stale.
type Resource[T any] struct {
	mu          sync.RWMutex
	name        string
	value       T
	lastUpdated time.Time
	stale       bool
	now         func() time.Time
}

// ResourceOption configures a Resource.
type ResourceOption[T any] func(*Resource[T])

// WithClock overrides the time source (useful for tests).
func WithClock[T any](fn func() time.Time) ResourceOption[T] {
	return func(r *Resource[T]) {
		if fn != nil {
			r.now = fn
		}
	}
}

// NewResource seeds a named resource. The seed is served, flagged
// stale, until the first successful fetch.
func NewResource[T any](name string, seed T, opts ...ResourceOption[T]) *Resource[T] {
	r := &Resource[T]{
		name:  name,
		value: seed,
		stale: true,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get returns the current value, when it was last updated from the
// backend (zero if never), and whether it is stale.
func (r *Resource[T]) Get() (value T, lastUpdated time.Time, stale bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.value, r.lastUpdated, r.stale
}

// Refresh runs one fetch attempt. Success replaces the value and
// timestamps it; failure or timeout keeps the previous value, marks it
// stale and is logged and counted but intentionally not surfaced to the
// display path. The error is still returned so callers decide
// explicitly to ignore it.
func (r *Resource[T]) Refresh(ctx context.Context, fetch func(context.Context) (T, error)) error {
	start := r.now()
	value, err := fetch(ctx)
	elapsed := r.now().Sub(start)

	if err != nil {
		outcome := obs.OutcomeFailure
		if errors.Is(err, context.DeadlineExceeded) {
			outcome = obs.OutcomeTimeout
		}
		obs.ObserveFetch(r.name, outcome, elapsed)
		obs.CountFallback(r.name)
		obs.LogEvent("fetch_failed", map[string]any{"resource": r.name, "error": err.Error()})

		r.mu.Lock()
		r.stale = true
		r.mu.Unlock()
		return err
	}

	obs.ObserveFetch(r.name, obs.OutcomeSuccess, elapsed)
	r.mu.Lock()
	r.value = value
	r.lastUpdated = r.now()
	r.stale = false
	r.mu.Unlock()
	return nil
}
