package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"workseald/internal/domain"
)

// memoryLimiter is a fixed-window counter for single-node deployments.
// Windows are tracked per key; expired windows are collected lazily when the
// key count approaches maxKeys.
type memoryLimiter struct {
	mu      sync.Mutex
	now     func() time.Time
	windows map[string]*window
	maxKeys int
}

type window struct {
	count int
	end   time.Time
}

type MemoryLimiterConfig struct {
	Now     func() time.Time
	MaxKeys int
}

func NewMemoryLimiter(cfg MemoryLimiterConfig) domain.RateLimiter {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.MaxKeys <= 0 {
		cfg.MaxKeys = 10000
	}
	return &memoryLimiter{
		now:     cfg.Now,
		windows: make(map[string]*window),
		maxKeys: cfg.MaxKeys,
	}
}

func (m *memoryLimiter) Allow(_ context.Context, key string, limit int, windowSize time.Duration) (domain.RateLimitDecision, error) {
	if limit <= 0 {
		return domain.RateLimitDecision{Allowed: true, Limit: limit, Remaining: limit}, nil
	}
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.windows[key]
	if ok && now.After(w.end) {
		delete(m.windows, key)
		ok = false
	}
	if !ok {
		if len(m.windows) >= m.maxKeys {
			m.collect(now)
		}
		if len(m.windows) >= m.maxKeys {
			return domain.RateLimitDecision{}, errors.New("rate limiter capacity exceeded")
		}
		w = &window{end: now.Add(windowSize)}
		m.windows[key] = w
	}

	if w.count < limit {
		w.count++
		return domain.RateLimitDecision{
			Allowed:   true,
			Limit:     limit,
			Remaining: limit - w.count,
			ResetAt:   w.end,
		}, nil
	}
	return domain.RateLimitDecision{
		Allowed: false,
		Limit:   limit,
		ResetAt: w.end,
	}, nil
}

func (m *memoryLimiter) collect(now time.Time) {
	for key, w := range m.windows {
		if now.After(w.end) {
			delete(m.windows, key)
		}
	}
}
