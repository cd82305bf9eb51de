package domain

import (
	"context"
	"time"
)

// ObjectStore is the storage collaborator: a key-value blob store keyed by
// name. Implementations surface I/O errors as-is; retries are the caller's
// concern.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
}

type RateLimitDecision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RateLimiter bounds request rates per key over a fixed window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (RateLimitDecision, error)
}
