package ports

import (
	"context"

	"github.com/WishUponASnowflake/astrbot-plugin-angel-eye/internal/core/domain/knowledge"
)

// FetchFunc loads a value on a cache miss, typically from a remote
// knowledge source.
type FetchFunc func(ctx context.Context) (string, error)

// KnowledgeCache defines the interface for the knowledge caching logic
type KnowledgeCache interface {
	// GetKnowledge returns the cached text for key. ok=false means the key
	// is absent (counted as a miss); a non-nil error means the store could
	// not answer, and no counter moves.
	GetKnowledge(ctx context.Context, key string) (string, bool, error)
	// SetKnowledge stores text under key with the configured default TTL,
	// overwriting any existing value. Statistics are untouched.
	SetKnowledge(ctx context.Context, key, value string) error
	// DeleteKnowledge removes key; deleting an absent key is not an error.
	DeleteKnowledge(ctx context.Context, key string) error
	// GetOrFetch returns the cached value for key, loading and caching it
	// with fetch on a miss. Concurrent fetches for the same key are
	// coalesced.
	GetOrFetch(ctx context.Context, key string, fetch FetchFunc) (string, error)
	// Stats returns a consistent snapshot of the lookup counters.
	Stats() knowledge.CacheStats
	// ResetStats zeroes the counters without touching cached entries.
	ResetStats()
}
