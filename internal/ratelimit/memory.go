// Package ratelimit provides the rate-limit counter stores consumed by
// the pipeline: an in-process token bucket for single-instance
// deployments and a Redis-backed sliding window for shared counting.
package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/fundlane/edgegate/internal/pipeline"
)

// Memory is a per-identity token bucket limiter.
type Memory struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    float64 // tokens per second
	burst   int     // maximum tokens
	now     func() time.Time
}

type bucket struct {
	tokens   float64
	lastSeen time.Time
}

// NewMemory creates a Memory limiter with the given refill rate and
// burst size.
func NewMemory(rps float64, burst int) *Memory {
	m := &Memory{
		buckets: make(map[string]*bucket),
		rate:    rps,
		burst:   burst,
		now:     time.Now,
	}
	go m.cleanup()
	return m
}

// Limit consumes one token for the identity if available. The Reset
// field reports when the next token refills after a denial.
func (m *Memory) Limit(_ context.Context, identity string) (pipeline.RateLimitResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	b, exists := m.buckets[identity]
	if !exists {
		b = &bucket{tokens: float64(m.burst), lastSeen: now}
		m.buckets[identity] = b
	}

	// Refill tokens based on elapsed time.
	elapsed := now.Sub(b.lastSeen).Seconds()
	b.tokens = math.Min(float64(m.burst), b.tokens+elapsed*m.rate)
	b.lastSeen = now

	if b.tokens < 1 {
		wait := time.Duration((1 - b.tokens) / m.rate * float64(time.Second))
		return pipeline.RateLimitResult{
			Success:   false,
			Limit:     m.burst,
			Remaining: 0,
			Reset:     now.Add(wait),
		}, nil
	}

	b.tokens--
	return pipeline.RateLimitResult{
		Success:   true,
		Limit:     m.burst,
		Remaining: int(b.tokens),
		Reset:     now,
	}, nil
}

// cleanup periodically removes stale buckets to prevent unbounded
// memory growth. A bucket is stale if it hasn't been seen in 10 minutes.
func (m *Memory) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		m.mu.Lock()
		cutoff := m.now().Add(-10 * time.Minute)
		for identity, b := range m.buckets {
			if b.lastSeen.Before(cutoff) {
				delete(m.buckets, identity)
			}
		}
		m.mu.Unlock()
	}
}
