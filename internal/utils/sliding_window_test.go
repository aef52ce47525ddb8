package utils

import (
	"sync"
	"testing"
	"time"
)

func TestSlidingWindowAdd(t *testing.T) {
	window := NewSlidingWindow(2 * time.Second)
	now := time.Now()
	if count := window.Add(now); count != 1 {
		t.Fatalf("expected 1, got %d", count)
	}
	window.Add(now.Add(500 * time.Millisecond))
	if count := window.Count(now.Add(1 * time.Second)); count != 2 {
		t.Fatalf("expected 2, got %d", count)
	}
	if count := window.Count(now.Add(3 * time.Second)); count != 0 {
		t.Fatalf("expected 0, got %d", count)
	}
}

func TestSlidingWindowBoundaryIsExclusive(t *testing.T) {
	window := NewSlidingWindow(10 * time.Second)
	now := time.Unix(1000, 0)
	window.Add(now)
	if count := window.Add(now.Add(10 * time.Second)); count != 1 {
		t.Fatalf("hit exactly one window old should be pruned, got %d", count)
	}
}

func TestSlidingWindowReset(t *testing.T) {
	window := NewSlidingWindow(time.Minute)
	now := time.Unix(1000, 0)
	window.Add(now)
	window.Add(now)
	window.Reset()
	if count := window.Count(now); count != 0 {
		t.Fatalf("expected 0 after reset, got %d", count)
	}
}

func TestWindowSetKeysAreIndependent(t *testing.T) {
	set := NewWindowSet(10 * time.Second)
	now := time.Unix(1000, 0)
	for i := 0; i < 3; i++ {
		set.Add("g:a", now)
	}
	set.Add("g:b", now)

	if count := set.Count("g:a", now); count != 3 {
		t.Fatalf("expected 3 for a, got %d", count)
	}
	set.Reset("g:a")
	if count := set.Count("g:a", now); count != 0 {
		t.Fatalf("expected 0 after reset, got %d", count)
	}
	if count := set.Count("g:b", now); count != 1 {
		t.Fatalf("expected b untouched, got %d", count)
	}
}

func TestWindowSetSweep(t *testing.T) {
	set := NewWindowSet(10 * time.Second)
	now := time.Unix(1000, 0)
	set.Add("old", now)
	set.Add("fresh", now.Add(15*time.Second))

	if removed := set.Sweep(now.Add(20 * time.Second)); removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if count := set.Count("fresh", now.Add(20*time.Second)); count != 1 {
		t.Fatalf("expected fresh key kept, got %d", count)
	}
}

func TestWindowSetResetKeepsWindowForSweep(t *testing.T) {
	set := NewWindowSet(10 * time.Second)
	now := time.Unix(1000, 0)
	set.Add("g:a", now)
	set.Reset("g:a")

	if count := set.Add("g:a", now); count != 1 {
		t.Fatalf("expected a fresh count after reset, got %d", count)
	}
	set.Reset("g:a")
	if removed := set.Sweep(now); removed != 1 {
		t.Fatalf("expected the emptied window swept, got %d", removed)
	}
}

func TestWindowSetAddSurvivesConcurrentSweep(t *testing.T) {
	set := NewWindowSet(time.Minute)
	now := time.Unix(1000, 0)
	const adds = 500

	stop := make(chan struct{})
	var sweeper sync.WaitGroup
	sweeper.Add(1)
	go func() {
		defer sweeper.Done()
		for {
			select {
			case <-stop:
				return
			default:
				set.Sweep(now)
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < adds; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			set.Add("g:a", now)
		}()
	}
	wg.Wait()
	close(stop)
	sweeper.Wait()

	if count := set.Count("g:a", now); count != adds {
		t.Fatalf("expected %d hits, got %d", adds, count)
	}
}
