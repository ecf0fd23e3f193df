package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"recipe-importer/internal/infrastructure/config"
	"recipe-importer/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(maxSize int, ttl time.Duration) *CacheManager {
	return NewManager(config.CacheConfig{Enabled: true, MaxSize: maxSize, TTL: ttl})
}

func TestKey(t *testing.T) {
	k1 := Key("openrouter:model", "prompt")
	assert.Equal(t, k1, Key("openrouter:model", "prompt"))
	assert.NotEqual(t, k1, Key("proxy:x", "prompt"))
	assert.NotEqual(t, k1, Key("openrouter:model", "other"))
	assert.Contains(t, k1, "completion:openrouter:model:")
}

func TestCacheManager_GetSet(t *testing.T) {
	m := newTestManager(10, time.Minute)
	defer m.Close()
	ctx := context.Background()

	_, err := m.Get(ctx, "missing")
	assert.True(t, errors.Is(err, common.ErrCacheMiss))

	require.NoError(t, m.Set(ctx, "k", "v"))
	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	stats := m.GetStats()
	assert.Equal(t, int64(1), stats["hits"])
	assert.Equal(t, int64(1), stats["misses"])
	assert.Equal(t, 0.5, stats["hit_ratio"])
}

func TestCacheManager_Expiry(t *testing.T) {
	m := newTestManager(10, time.Millisecond)
	defer m.Close()
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k", "v"))
	time.Sleep(5 * time.Millisecond)

	_, err := m.Get(ctx, "k")
	assert.True(t, errors.Is(err, common.ErrCacheMiss))
}

func TestCacheManager_EvictsLeastUsed(t *testing.T) {
	m := newTestManager(2, time.Minute)
	defer m.Close()
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "a", "1"))
	require.NoError(t, m.Set(ctx, "b", "2"))
	_, err := m.Get(ctx, "a")
	require.NoError(t, err)

	require.NoError(t, m.Set(ctx, "c", "3"))

	_, err = m.Get(ctx, "b")
	assert.True(t, errors.Is(err, common.ErrCacheMiss))
	_, err = m.Get(ctx, "a")
	assert.NoError(t, err)
	_, err = m.Get(ctx, "c")
	assert.NoError(t, err)
}

func TestCacheManager_EmptyStats(t *testing.T) {
	m := newTestManager(1, time.Minute)
	defer m.Close()
	assert.Equal(t, 0.0, m.GetStats()["hit_ratio"])
}

func TestNew(t *testing.T) {
	store, err := New(config.CacheConfig{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, store)

	store, err = New(config.CacheConfig{Enabled: true, Backend: config.CacheBackendMemory, MaxSize: 5, TTL: time.Minute})
	require.NoError(t, err)
	require.NotNil(t, store)
	assert.IsType(t, &CacheManager{}, store)
	assert.NoError(t, store.Close())
}
