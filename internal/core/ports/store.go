package ports

import (
	"context"
	"time"
)

// Store defines the minimal key-value contract a knowledge cache runs on.
// Implementations must keep absence and failure apart: a missing key is
// (nil, false, nil), an unreachable backend is a non-nil error.
type Store interface {
	// Get returns the raw bytes for key. ok=false if not found.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value for key with TTL (0 or negative means no expiration if supported),
	// overwriting any existing value.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes the key; absence is not an error.
	Delete(ctx context.Context, key string) error
}
