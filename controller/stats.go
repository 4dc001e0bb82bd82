package controller

import (
	"sync"
	"sync/atomic"
	"time"
)

// Statistics tracks controller performance counters. Statistics are
// always collected; Prometheus metrics are layered on top when enabled.
type Statistics struct {
	// Atomic counters for thread-safe updates
	hits       int64
	misses     int64
	coalesced  int64
	executions int64
	failures   int64
	evictions  int64
	timeouts   int64

	// Protected by mutex
	mu          sync.RWMutex
	startTime   time.Time
	currentSize int64
	maxSize     int64
}

// NewStatistics creates a new statistics tracker.
func NewStatistics() *Statistics {
	return &Statistics{
		startTime: time.Now(),
	}
}

// Hit records a cache hit.
func (s *Statistics) Hit() {
	atomic.AddInt64(&s.hits, 1)
}

// Miss records a cache miss.
func (s *Statistics) Miss() {
	atomic.AddInt64(&s.misses, 1)
}

// Coalesced records a caller joining an in-flight execution.
func (s *Statistics) Coalesced() {
	atomic.AddInt64(&s.coalesced, 1)
}

// Execution records a chain execution.
func (s *Statistics) Execution() {
	atomic.AddInt64(&s.executions, 1)
}

// Failure records a failed chain execution.
func (s *Statistics) Failure() {
	atomic.AddInt64(&s.failures, 1)
}

// Eviction records a cache eviction.
func (s *Statistics) Eviction() {
	atomic.AddInt64(&s.evictions, 1)
}

// Timeout records a caller-local wait timeout.
func (s *Statistics) Timeout() {
	atomic.AddInt64(&s.timeouts, 1)
}

// UpdateSize updates the current cache size.
func (s *Statistics) UpdateSize(size int64) {
	s.mu.Lock()
	s.currentSize = size
	if size > s.maxSize {
		s.maxSize = size
	}
	s.mu.Unlock()
}

// Hits returns the total number of cache hits.
func (s *Statistics) Hits() int64 {
	return atomic.LoadInt64(&s.hits)
}

// Misses returns the total number of cache misses.
func (s *Statistics) Misses() int64 {
	return atomic.LoadInt64(&s.misses)
}

// CoalescedWaiters returns the number of callers served by a shared execution.
func (s *Statistics) CoalescedWaiters() int64 {
	return atomic.LoadInt64(&s.coalesced)
}

// Executions returns the total number of chain executions.
func (s *Statistics) Executions() int64 {
	return atomic.LoadInt64(&s.executions)
}

// Failures returns the total number of failed executions.
func (s *Statistics) Failures() int64 {
	return atomic.LoadInt64(&s.failures)
}

// Evictions returns the total number of evictions.
func (s *Statistics) Evictions() int64 {
	return atomic.LoadInt64(&s.evictions)
}

// Timeouts returns the total number of caller-local wait timeouts.
func (s *Statistics) Timeouts() int64 {
	return atomic.LoadInt64(&s.timeouts)
}

// CurrentSize returns the current number of cached results.
func (s *Statistics) CurrentSize() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentSize
}

// MaxSize returns the maximum number of results the cache has held.
func (s *Statistics) MaxSize() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxSize
}

// HitRatio returns the cache hit ratio (0.0 to 1.0).
func (s *Statistics) HitRatio() float64 {
	hits := s.Hits()
	misses := s.Misses()
	total := hits + misses

	if total == 0 {
		return 0.0
	}

	return float64(hits) / float64(total)
}

// Uptime returns how long the controller has been running.
func (s *Statistics) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Since(s.startTime)
}

// Summary is a snapshot of all statistics.
type Summary struct {
	Hits             int64         `json:"hits"`
	Misses           int64         `json:"misses"`
	CoalescedWaiters int64         `json:"coalesced_waiters"`
	Executions       int64         `json:"executions"`
	Failures         int64         `json:"failures"`
	Evictions        int64         `json:"evictions"`
	Timeouts         int64         `json:"timeouts"`
	CurrentSize      int64         `json:"current_size"`
	MaxSize          int64         `json:"max_size"`
	HitRatio         float64       `json:"hit_ratio"`
	Uptime           time.Duration `json:"uptime"`
}

// Summary returns a snapshot of all statistics.
func (s *Statistics) Summary() Summary {
	return Summary{
		Hits:             s.Hits(),
		Misses:           s.Misses(),
		CoalescedWaiters: s.CoalescedWaiters(),
		Executions:       s.Executions(),
		Failures:         s.Failures(),
		Evictions:        s.Evictions(),
		Timeouts:         s.Timeouts(),
		CurrentSize:      s.CurrentSize(),
		MaxSize:          s.MaxSize(),
		HitRatio:         s.HitRatio(),
		Uptime:           s.Uptime(),
	}
}
