package utils

import (
	"math/rand"
	"sync"
	"time"
)

// LockedRand is a math/rand source that is safe for concurrent use.
type LockedRand struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewRandom() *LockedRand {
	return NewSeededRandom(time.Now().UnixNano())
}

func NewSeededRandom(seed int64) *LockedRand {
	return &LockedRand{rng: rand.New(rand.NewSource(seed))}
}

func (r *LockedRand) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Intn(n)
}

func (r *LockedRand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Float64()
}
