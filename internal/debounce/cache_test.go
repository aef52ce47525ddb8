package debounce

import (
	"testing"
	"time"
)

type fakeClock struct{ now time.Time }

func (f *fakeClock) Now() time.Time { return f.now }

func TestClaimSuppressesWithinTTL(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	cache := NewCache(time.Second)
	cache.WithClock(clock)

	if !cache.Claim("1:2:3") {
		t.Fatalf("first claim should succeed")
	}
	clock.now = clock.now.Add(500 * time.Millisecond)
	if cache.Claim("1:2:3") {
		t.Fatalf("repeat inside ttl should be suppressed")
	}
	if !cache.Claim("1:2:4") {
		t.Fatalf("different key should not be suppressed")
	}
	clock.now = clock.now.Add(time.Second)
	if !cache.Claim("1:2:3") {
		t.Fatalf("claim after ttl should succeed")
	}
}

func TestSweepRemovesExpired(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	cache := NewCache(time.Second)
	cache.WithClock(clock)

	cache.Claim("a")
	clock.now = clock.now.Add(800 * time.Millisecond)
	cache.Claim("b")
	clock.now = clock.now.Add(300 * time.Millisecond)

	if removed := cache.Sweep(); removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if cache.Len() != 1 {
		t.Fatalf("expected 1 remaining, got %d", cache.Len())
	}
}

func TestForgetAndDisabledTTL(t *testing.T) {
	cache := NewCache(time.Minute)
	cache.Claim("a")
	cache.Forget("a")
	if !cache.Claim("a") {
		t.Fatalf("claim after forget should succeed")
	}

	off := NewCache(0)
	if !off.Claim("a") || !off.Claim("a") {
		t.Fatalf("zero ttl should never suppress")
	}
}
