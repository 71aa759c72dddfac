package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/WishUponASnowflake/astrbot-plugin-angel-eye/internal/application/services"
	"github.com/WishUponASnowflake/astrbot-plugin-angel-eye/internal/core/domain/knowledge"
	"github.com/WishUponASnowflake/astrbot-plugin-angel-eye/internal/infrastructure/memory"
)

type storeMock struct {
	getFn    func(ctx context.Context, key string) ([]byte, bool, error)
	setFn    func(ctx context.Context, key string, value []byte, ttl time.Duration) error
	deleteFn func(ctx context.Context, key string) error
}

func (m *storeMock) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, false, nil
}
func (m *storeMock) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value, ttl)
	}
	return nil
}
func (m *storeMock) Delete(ctx context.Context, key string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, key)
	}
	return nil
}

func TestGetKnowledgeCountsHitsAndMisses(t *testing.T) {
	entries := map[string][]byte{
		knowledge.DocKey("wikipedia", "长城"): []byte("世界文化遗产"),
	}
	store := &storeMock{getFn: func(_ context.Context, key string) ([]byte, bool, error) {
		v, ok := entries[key]
		return v, ok, nil
	}}
	svc := services.NewKnowledgeCacheService(store, time.Hour, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		value, ok, err := svc.GetKnowledge(ctx, knowledge.DocKey("wikipedia", "长城"))
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "世界文化遗产", value)
	}

	value, ok, err := svc.GetKnowledge(ctx, knowledge.FactKey("不存在"))
	require.NoError(t, err, "absence is not an error")
	assert.False(t, ok)
	assert.Empty(t, value)

	stats := svc.Stats()
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.InDelta(t, 2.0/3.0, stats.HitRate, 1e-9)
}

func TestGetKnowledgeStoreFaultMovesNoCounter(t *testing.T) {
	faultErr := errors.New("connection refused")
	store := &storeMock{getFn: func(context.Context, string) ([]byte, bool, error) {
		return nil, false, faultErr
	}}
	svc := services.NewKnowledgeCacheService(store, time.Hour, nil)

	value, ok, err := svc.GetKnowledge(context.Background(), knowledge.FactKey("any"))
	require.Error(t, err)
	require.ErrorIs(t, err, faultErr)
	assert.False(t, ok)
	assert.Empty(t, value)

	stats := svc.Stats()
	assert.Zero(t, stats.Hits, "a fault is not a hit")
	assert.Zero(t, stats.Misses, "a fault is not a miss")
	assert.Zero(t, stats.HitRate)
}

func TestSetKnowledgeRoundTripLeavesStatsAlone(t *testing.T) {
	svc := services.NewKnowledgeCacheService(memory.NewMemoryStore(), time.Hour, nil)
	ctx := context.Background()

	const value = "门票：旺季 40 元 🎫\nsecond line\n{\"json\": true}"
	key := knowledge.FactKey("长城.门票")
	require.NoError(t, svc.SetKnowledge(ctx, key, value))

	stats := svc.Stats()
	assert.Zero(t, stats.Hits, "writes never move the counters")
	assert.Zero(t, stats.Misses)

	got, ok, err := svc.GetKnowledge(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, value, got, "content must survive byte-for-byte")
}

func TestSetKnowledgeValueEdgeCases(t *testing.T) {
	svc := services.NewKnowledgeCacheService(memory.NewMemoryStore(), time.Hour, nil)
	ctx := context.Background()

	cases := map[string]string{
		"fact:empty":      "",
		"fact:crlf":       "line one\r\nline two\r\n",
		"fact:mixed":      "ASCII, 中文, עברית, 🙂",
		"fact:json-ish":   `{"nested": {"quote": "\"quoted\""}}`,
		"fact:control":    "tab\there\x00null",
		"doc:wiki:colons": "value for a key with many : colons : inside",
	}
	for key, value := range cases {
		require.NoError(t, svc.SetKnowledge(ctx, key, value))
	}
	for key, want := range cases {
		got, ok, err := svc.GetKnowledge(ctx, key)
		require.NoError(t, err)
		require.True(t, ok, "key %q should be present", key)
		assert.Equal(t, want, got, "value for %q must round-trip byte-for-byte", key)
	}
}

func TestSetKnowledgeLargeValue(t *testing.T) {
	svc := services.NewKnowledgeCacheService(memory.NewMemoryStore(), time.Hour, nil)
	ctx := context.Background()

	// ~160 KB of multibyte text
	value := strings.Repeat("知识🧠", 16384)
	key := knowledge.DocKey("wikipedia", "大文章")
	require.NoError(t, svc.SetKnowledge(ctx, key, value))

	got, ok, err := svc.GetKnowledge(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, value, got)
}

func TestSetKnowledgeOverwrites(t *testing.T) {
	svc := services.NewKnowledgeCacheService(memory.NewMemoryStore(), time.Hour, nil)
	ctx := context.Background()

	key := knowledge.DocKey("wikipedia", "页面")
	require.NoError(t, svc.SetKnowledge(ctx, key, "old"))
	require.NoError(t, svc.SetKnowledge(ctx, key, "new"))

	got, ok, err := svc.GetKnowledge(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "new", got)
}

func TestSetKnowledgePropagatesStoreError(t *testing.T) {
	faultErr := errors.New("disk full")
	store := &storeMock{setFn: func(context.Context, string, []byte, time.Duration) error {
		return faultErr
	}}
	svc := services.NewKnowledgeCacheService(store, time.Hour, nil)

	err := svc.SetKnowledge(context.Background(), knowledge.FactKey("k"), "v")
	require.Error(t, err, "write failures must surface, not vanish")
	require.ErrorIs(t, err, faultErr)
}

func TestSetKnowledgeUsesConfiguredTTL(t *testing.T) {
	var gotTTL time.Duration
	store := &storeMock{setFn: func(_ context.Context, _ string, _ []byte, ttl time.Duration) error {
		gotTTL = ttl
		return nil
	}}
	svc := services.NewKnowledgeCacheService(store, 42*time.Minute, nil)

	require.NoError(t, svc.SetKnowledge(context.Background(), knowledge.FactKey("k"), "v"))
	assert.Equal(t, 42*time.Minute, gotTTL)
}

func TestDeleteKnowledgeIdempotent(t *testing.T) {
	svc := services.NewKnowledgeCacheService(memory.NewMemoryStore(), time.Hour, nil)
	ctx := context.Background()

	key := knowledge.FactKey("k")
	require.NoError(t, svc.SetKnowledge(ctx, key, "v"))
	require.NoError(t, svc.DeleteKnowledge(ctx, key))
	require.NoError(t, svc.DeleteKnowledge(ctx, key))

	_, ok, err := svc.GetKnowledge(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	stats := svc.Stats()
	assert.Equal(t, int64(0), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses, "a lookup after delete is a plain miss")
}

func TestResetStatsLeavesEntries(t *testing.T) {
	svc := services.NewKnowledgeCacheService(memory.NewMemoryStore(), time.Hour, nil)
	ctx := context.Background()

	key := knowledge.DocKey("wikipedia", "长城")
	require.NoError(t, svc.SetKnowledge(ctx, key, "v"))
	_, _, _ = svc.GetKnowledge(ctx, key)
	_, _, _ = svc.GetKnowledge(ctx, knowledge.FactKey("absent"))

	svc.ResetStats()
	stats := svc.Stats()
	assert.Zero(t, stats.Hits)
	assert.Zero(t, stats.Misses)
	assert.Zero(t, stats.HitRate)

	// Entries survive a stats reset; counting restarts from zero.
	got, ok, err := svc.GetKnowledge(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v", got)

	stats = svc.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(0), stats.Misses)
	assert.InDelta(t, 1.0, stats.HitRate, 1e-9)
}

func TestConcurrentWritersReadTheirOwnKeys(t *testing.T) {
	svc := services.NewKnowledgeCacheService(memory.NewMemoryStore(), time.Hour, nil)
	ctx := context.Background()

	const callers = 32
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(n int) {
			defer wg.Done()
			key := knowledge.DocKey("wikipedia", fmt.Sprintf("页面-%d", n))
			value := fmt.Sprintf("内容 %d", n)
			if err := svc.SetKnowledge(ctx, key, value); err != nil {
				t.Errorf("set %q: %v", key, err)
				return
			}
			got, ok, err := svc.GetKnowledge(ctx, key)
			if err != nil || !ok {
				t.Errorf("get %q: ok=%v err=%v", key, ok, err)
				return
			}
			if got != value {
				t.Errorf("get %q = %q, want %q", key, got, value)
			}
		}(i)
	}
	wg.Wait()

	stats := svc.Stats()
	require.Equal(t, int64(callers), stats.Hits, "every caller reads back its own write")
	require.Equal(t, int64(0), stats.Misses)
	assert.InDelta(t, 1.0, stats.HitRate, 1e-9)
}

func TestGetKnowledgeConcurrentCounters(t *testing.T) {
	svc := services.NewKnowledgeCacheService(memory.NewMemoryStore(), time.Hour, nil)
	ctx := context.Background()
	require.NoError(t, svc.SetKnowledge(ctx, "doc:wiki:present", "value"))

	const workers = 16
	const perWorker = 50
	var wg sync.WaitGroup
	wg.Add(workers * 2)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				_, _, _ = svc.GetKnowledge(ctx, "doc:wiki:present")
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				_, _, _ = svc.GetKnowledge(ctx, "doc:wiki:absent")
			}
		}()
	}
	wg.Wait()

	stats := svc.Stats()
	require.Equal(t, int64(workers*perWorker), stats.Hits, "no hit increments may be lost")
	require.Equal(t, int64(workers*perWorker), stats.Misses, "no miss increments may be lost")
	assert.InDelta(t, 0.5, stats.HitRate, 1e-9)
}

func TestGetOrFetchCachesFetchedValue(t *testing.T) {
	svc := services.NewKnowledgeCacheService(memory.NewMemoryStore(), time.Hour, nil)
	ctx := context.Background()
	key := knowledge.SearchKey("wikipedia", "朱祁镇")

	calls := atomic.NewInt64(0)
	fetch := func(context.Context) (string, error) {
		calls.Inc()
		return "1. 朱祁镇\n2. 明英宗", nil
	}

	got, err := svc.GetOrFetch(ctx, key, fetch)
	require.NoError(t, err)
	assert.Equal(t, "1. 朱祁镇\n2. 明英宗", got)
	require.Equal(t, int64(1), calls.Load())

	// Second call is served from the cache.
	got, err = svc.GetOrFetch(ctx, key, fetch)
	require.NoError(t, err)
	assert.Equal(t, "1. 朱祁镇\n2. 明英宗", got)
	require.Equal(t, int64(1), calls.Load(), "cached value must not trigger another fetch")

	stats := svc.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestGetOrFetchCoalescesConcurrentFetches(t *testing.T) {
	svc := services.NewKnowledgeCacheService(memory.NewMemoryStore(), time.Hour, nil)
	ctx := context.Background()
	key := knowledge.DocKey("wikipedia", "热门条目")

	calls := atomic.NewInt64(0)
	release := make(chan struct{})
	fetch := func(context.Context) (string, error) {
		calls.Inc()
		<-release
		return "body", nil
	}

	const callers = 8
	var started, done sync.WaitGroup
	started.Add(callers)
	done.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer done.Done()
			started.Done()
			got, err := svc.GetOrFetch(ctx, key, fetch)
			assert.NoError(t, err)
			assert.Equal(t, "body", got)
		}()
	}

	started.Wait()
	// Give every caller time to join the in-flight load before it finishes.
	time.Sleep(50 * time.Millisecond)
	close(release)
	done.Wait()

	require.Equal(t, int64(1), calls.Load(), "concurrent misses must share one fetch")
}

func TestGetOrFetchErrorNotCached(t *testing.T) {
	svc := services.NewKnowledgeCacheService(memory.NewMemoryStore(), time.Hour, nil)
	ctx := context.Background()
	key := knowledge.DocKey("wikipedia", "故障页")
	upstreamErr := errors.New("upstream down")

	_, err := svc.GetOrFetch(ctx, key, func(context.Context) (string, error) {
		return "", upstreamErr
	})
	require.Error(t, err)
	require.ErrorIs(t, err, upstreamErr)

	_, ok, err := svc.GetKnowledge(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok, "a failed fetch must leave nothing behind")

	got, err := svc.GetOrFetch(ctx, key, func(context.Context) (string, error) {
		return "recovered", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "recovered", got)
}

func TestGetOrFetchSurvivesStoreOutage(t *testing.T) {
	faultErr := errors.New("store offline")
	store := &storeMock{
		getFn: func(context.Context, string) ([]byte, bool, error) {
			return nil, false, faultErr
		},
		setFn: func(context.Context, string, []byte, time.Duration) error {
			return faultErr
		},
	}
	svc := services.NewKnowledgeCacheService(store, time.Hour, nil)

	got, err := svc.GetOrFetch(context.Background(), knowledge.DocKey("wikipedia", "页面"), func(context.Context) (string, error) {
		return "fresh", nil
	})
	require.NoError(t, err, "an unreachable store must not block the fetch path")
	assert.Equal(t, "fresh", got)

	stats := svc.Stats()
	assert.Zero(t, stats.Hits, "faulted lookups count nothing")
	assert.Zero(t, stats.Misses)
}
