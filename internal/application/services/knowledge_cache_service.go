package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/WishUponASnowflake/astrbot-plugin-angel-eye/internal/core/domain/knowledge"
	"github.com/WishUponASnowflake/astrbot-plugin-angel-eye/internal/core/ports"
)

// KnowledgeCacheService implements ports.KnowledgeCache over an injected
// store. Only answered lookups feed the hit/miss statistics; a store fault
// moves neither counter, so the ratio stays meaningful during outages.
type KnowledgeCacheService struct {
	store  ports.Store
	stats  *knowledge.Statistics
	ttl    time.Duration
	logger *logrus.Logger
	sf     singleflight.Group
}

func NewKnowledgeCacheService(store ports.Store, ttl time.Duration, logger *logrus.Logger) ports.KnowledgeCache {
	return &KnowledgeCacheService{
		store:  store,
		stats:  knowledge.NewStatistics(),
		ttl:    ttl,
		logger: logger,
	}
}

func (s *KnowledgeCacheService) GetKnowledge(ctx context.Context, key string) (string, bool, error) {
	value, ok, err := s.store.Get(ctx, key)
	if err != nil {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"key": key}).WithError(err).Error("knowledge lookup failed")
		}
		return "", false, fmt.Errorf("failed to get knowledge for %q: %w", key, err)
	}
	if !ok {
		s.stats.Miss()
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"key": key}).Debug("knowledge cache miss")
		}
		return "", false, nil
	}
	s.stats.Hit()
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"key": key, "bytes": len(value)}).Debug("knowledge cache hit")
	}
	return string(value), true, nil
}

func (s *KnowledgeCacheService) SetKnowledge(ctx context.Context, key, value string) error {
	if err := s.store.Set(ctx, key, []byte(value), s.ttl); err != nil {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"key": key}).WithError(err).Error("failed to store knowledge")
		}
		return fmt.Errorf("failed to store knowledge for %q: %w", key, err)
	}
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"key": key, "bytes": len(value)}).Debug("knowledge stored")
	}
	return nil
}

func (s *KnowledgeCacheService) DeleteKnowledge(ctx context.Context, key string) error {
	if err := s.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to delete knowledge for %q: %w", key, err)
	}
	return nil
}

// GetOrFetch returns the cached value for key or loads it with fetch,
// coalescing concurrent loads per key. The caller's own lookup is counted
// as usual; the re-check inside the flight is bookkeeping-free. When the
// store is unreachable the fetch path doubles as a fallback, and a fetched
// value that fails to cache is still returned.
func (s *KnowledgeCacheService) GetOrFetch(ctx context.Context, key string, fetch ports.FetchFunc) (string, error) {
	if value, ok, err := s.GetKnowledge(ctx, key); err == nil && ok {
		return value, nil
	}

	res, err, _ := s.sf.Do(key, func() (any, error) {
		// Late arrivals reuse what the flight winner cached.
		if b, ok, err := s.store.Get(ctx, key); err == nil && ok {
			return string(b), nil
		}
		value, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		if err := s.store.Set(ctx, key, []byte(value), s.ttl); err != nil {
			if s.logger != nil {
				s.logger.WithFields(logrus.Fields{"key": key}).WithError(err).Warn("failed to cache fetched knowledge")
			}
		}
		return value, nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to fetch knowledge for %q: %w", key, err)
	}
	value, ok := res.(string)
	if !ok {
		return "", fmt.Errorf("unexpected type from singleflight result")
	}
	return value, nil
}

func (s *KnowledgeCacheService) Stats() knowledge.CacheStats {
	return s.stats.Snapshot()
}

func (s *KnowledgeCacheService) ResetStats() {
	s.stats.Reset()
	if s.logger != nil {
		s.logger.Info("knowledge cache statistics reset")
	}
}
