package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestResourceServesSeedUntilFirstSuccess(t *testing.T) {
	r := NewResource("inventory", []string{"seed"})
	value, updated, stale := r.Get()
	if len(value) != 1 || value[0] != "seed" {
		t.Fatalf("value = %v", value)
	}
	if !stale || !updated.IsZero() {
		t.Fatalf("fresh resource: stale=%v updated=%v", stale, updated)
	}
}

func TestRefreshSuccessReplacesValue(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	r := NewResource("stats", 0, WithClock[int](func() time.Time { return now }))

	err := r.Refresh(context.Background(), func(ctx context.Context) (int, error) {
		return 42, nil
	})
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	value, updated, stale := r.Get()
	if value != 42 || stale || !updated.Equal(now) {
		t.Fatalf("got %d, stale=%v, updated=%v", value, stale, updated)
	}
}

func TestRefreshFailureKeepsPreviousValue(t *testing.T) {
	r := NewResource("stats", 7)
	if err := r.Refresh(context.Background(), func(ctx context.Context) (int, error) {
		return 42, nil
	}); err != nil {
		t.Fatal(err)
	}

	err := r.Refresh(context.Background(), func(ctx context.Context) (int, error) {
		return 0, errors.New("backend down")
	})
	if err == nil {
		t.Fatal("expected the error back for explicit handling")
	}
	value, _, stale := r.Get()
	if value != 42 {
		t.Fatalf("failure clobbered the cached value: %d", value)
	}
	if !stale {
		t.Fatal("failed refresh must mark the resource stale")
	}
}

func TestRefreshTimeoutBehavesLikeFailure(t *testing.T) {
	r := NewResource("news", "cached")
	_ = r.Refresh(context.Background(), func(ctx context.Context) (string, error) {
		return "fresh", nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	err := r.Refresh(ctx, func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	value, _, _ := r.Get()
	if value != "fresh" {
		t.Fatalf("timeout clobbered the cached value: %q", value)
	}
}

func TestRefresherConditionReevaluatedEveryTick(t *testing.T) {
	var fetches atomic.Int64
	var allowed atomic.Bool
	allowed.Store(true)

	r := NewRefresher(10*time.Millisecond,
		func() bool { return allowed.Load() },
		func(ctx context.Context) { fetches.Add(1) },
	)
	r.Start(context.Background())
	defer r.Stop()

	deadline := time.Now().Add(time.Second)
	for fetches.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if fetches.Load() == 0 {
		t.Fatal("no fetch while condition held")
	}

	// User authenticates / navigates away: ticks keep firing but the
	// condition now gates them off.
	allowed.Store(false)
	time.Sleep(30 * time.Millisecond)
	settled := fetches.Load()
	time.Sleep(50 * time.Millisecond)
	if fetches.Load() != settled {
		t.Fatalf("fetches continued after the condition went false: %d -> %d", settled, fetches.Load())
	}
}

func TestRefresherStopTearsDown(t *testing.T) {
	var fetches atomic.Int64
	r := NewRefresher(10*time.Millisecond, nil, func(ctx context.Context) { fetches.Add(1) })
	r.Start(context.Background())

	deadline := time.Now().Add(time.Second)
	for fetches.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	r.Stop()
	settled := fetches.Load()
	time.Sleep(50 * time.Millisecond)
	if fetches.Load() != settled {
		t.Fatal("fetches continued after Stop")
	}
	// Stop is idempotent.
	r.Stop()
}

func TestRefreshNowIsNoOpWhileInFlight(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	r := NewRefresher(time.Hour, nil, func(ctx context.Context) {
		close(started)
		<-release
	})

	go r.RefreshNow(context.Background())
	<-started

	if r.RefreshNow(context.Background()) {
		t.Fatal("second refresh ran while the first was in flight")
	}
	close(release)
}

func TestRefreshNowPartialSuccess(t *testing.T) {
	good := NewResource("good", 0)
	bad := NewResource("bad", 0)

	r := NewRefresher(time.Hour, nil,
		func(ctx context.Context) {
			_ = good.Refresh(ctx, func(ctx context.Context) (int, error) { return 1, nil })
		},
		func(ctx context.Context) {
			_ = bad.Refresh(ctx, func(ctx context.Context) (int, error) { return 0, errors.New("boom") })
		},
	)
	if !r.RefreshNow(context.Background()) {
		t.Fatal("refresh did not run")
	}

	if value, _, stale := good.Get(); value != 1 || stale {
		t.Fatalf("good slice not updated: %d stale=%v", value, stale)
	}
	if _, _, stale := bad.Get(); !stale {
		t.Fatal("bad slice not marked stale")
	}
}
