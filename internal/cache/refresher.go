package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultInterval is the landing-page auto-refresh period.
const DefaultInterval = 30 * time.Second

// Task refreshes one resource. Tasks run concurrently; a failure in one
// never cancels the others, so partial success still updates the slices
// that did arrive.
type Task func(ctx context.Context)

// Refresher drives periodic and manual refreshes of a resource group.
// The gate condition is re-evaluated on every tick, not just at start,
// so a user who authenticates or navigates away stops the fetching even
// while the ticker is still alive.
type Refresher struct {
	interval  time.Duration
	condition func() bool
	tasks     []Task

	inFlight atomic.Bool
	started  atomic.Bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewRefresher builds a refresher. A nil condition always fires.
func NewRefresher(interval time.Duration, condition func() bool, tasks ...Task) *Refresher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if condition == nil {
		condition = func() bool { return true }
	}
	return &Refresher{
		interval:  interval,
		condition: condition,
		tasks:     tasks,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start launches the tick loop. It returns immediately; Stop tears the
// loop down and waits for it to exit.
func (r *Refresher) Start(ctx context.Context) {
	if !r.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer close(r.done)
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if r.condition() {
					r.RefreshNow(ctx)
				}
			case <-r.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop tears down the tick loop. Safe to call more than once.
func (r *Refresher) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
	if r.started.Load() {
		<-r.done
	}
}

// RefreshNow runs every task concurrently and waits for all of them.
// It is a no-op returning false while a refresh is already in flight.
func (r *Refresher) RefreshNow(ctx context.Context) bool {
	if !r.inFlight.CompareAndSwap(false, true) {
		return false
	}
	defer r.inFlight.Store(false)

	var wg sync.WaitGroup
	for _, task := range r.tasks {
		wg.Add(1)
		go func(t Task) {
			defer wg.Done()
			t(ctx)
		}(task)
	}
	wg.Wait()
	return true
}
