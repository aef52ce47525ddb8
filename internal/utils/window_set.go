package utils

import (
	"sync"
	"time"
)

// WindowSet keeps one SlidingWindow per key, created on first use.
type WindowSet struct {
	mu      sync.Mutex
	window  time.Duration
	windows map[string]*SlidingWindow
}

func NewWindowSet(window time.Duration) *WindowSet {
	return &WindowSet{
		window:  window,
		windows: make(map[string]*SlidingWindow),
	}
}

// Add records a hit for key. The set lock is held across the append so a
// concurrent Sweep or Reset cannot drop the window in between.
func (s *WindowSet) Add(key string, now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	window := s.windows[key]
	if window == nil {
		window = NewSlidingWindow(s.window)
		s.windows[key] = window
	}
	return window.Add(now)
}

func (s *WindowSet) Count(key string, now time.Time) int {
	s.mu.Lock()
	window := s.windows[key]
	s.mu.Unlock()
	if window == nil {
		return 0
	}
	return window.Count(now)
}

// Reset drops every hit recorded for key. The empty window is left for Sweep.
func (s *WindowSet) Reset(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if window := s.windows[key]; window != nil {
		window.Reset()
	}
}

// Sweep forgets keys whose window is empty at now and returns how many were removed.
func (s *WindowSet) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, window := range s.windows {
		if window.Count(now) == 0 {
			delete(s.windows, key)
			removed++
		}
	}
	return removed
}
