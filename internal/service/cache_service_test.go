package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/adaptive-learning-portal/internal/repository"
)

func newMemoryCache(t *testing.T) (*CacheService, *repository.MemoryCacheRepository) {
	t.Helper()
	repo := repository.NewMemoryCacheRepository()
	return NewCacheService(repo, NewMetricsService(), time.Minute, nil, true), repo
}

func TestCachedReadServesSecondReadFromCache(t *testing.T) {
	cache, _ := newMemoryCache(t)
	loads := 0
	load := func(context.Context) ([]string, error) {
		loads++
		return []string{"a", "b"}, nil
	}

	first, hit, err := cachedRead(context.Background(), cache, "q:GET:/x", load)
	require.NoError(t, err)
	assert.False(t, hit)
	second, hit, err := cachedRead(context.Background(), cache, "q:GET:/x", load)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, loads)
}

func TestCachedReadDoesNotCacheFailures(t *testing.T) {
	cache, repo := newMemoryCache(t)
	_, _, err := cachedRead(context.Background(), cache, "q:GET:/x", func(context.Context) (int, error) {
		return 0, errors.New("boom")
	})
	require.Error(t, err)
	assert.Equal(t, 0, repo.Len())
}

func TestCacheServiceDisabledIsTransparent(t *testing.T) {
	cache := NewCacheService(repository.NewMemoryCacheRepository(), nil, 0, nil, false)
	var nilCache *CacheService
	for _, c := range []*CacheService{cache, nilCache} {
		hit, err := c.Get(context.Background(), "k", new(int))
		require.NoError(t, err)
		assert.False(t, hit)
		assert.NoError(t, c.Set(context.Background(), "k", 1, 0))
		assert.NoError(t, c.Invalidate(context.Background(), "k*"))
	}
}

func TestUserQueryKeysShareAPattern(t *testing.T) {
	cache, repo := newMemoryCache(t)
	ctx := context.Background()
	require.NoError(t, cache.Set(ctx, userQueryKey(12, "GET", "/history/stats/12"), 1, 0))
	require.NoError(t, cache.Set(ctx, userQueryKey(12, "GET", "/history/trend/12"), 1, 0))
	require.NoError(t, cache.Set(ctx, userQueryKey(13, "GET", "/history/stats/13"), 1, 0))
	require.NoError(t, cache.Set(ctx, queryKey("GET", "/lessons/"), 1, 0))

	require.NoError(t, cache.Invalidate(ctx, userQueryPattern(12)))
	assert.Equal(t, 2, repo.Len())
	assert.Equal(t, "q:user:12:GET:/history/stats/12", userQueryKey(12, "GET", "/history/stats/12"))
}

func TestSetIfCurrentSkipsWritesAcrossInvalidation(t *testing.T) {
	cache, repo := newMemoryCache(t)
	ctx := context.Background()

	generation := cache.Generation()
	require.NoError(t, cache.Invalidate(ctx, queryKey("GET", "/lessons/")))
	written, err := cache.SetIfCurrent(ctx, generation, queryKey("GET", "/lessons/"), []int{1, 2}, 0)
	require.NoError(t, err)
	assert.False(t, written)
	assert.Equal(t, 0, repo.Len())

	written, err = cache.SetIfCurrent(ctx, cache.Generation(), queryKey("GET", "/lessons/"), []int{1}, 0)
	require.NoError(t, err)
	assert.True(t, written)
	assert.Equal(t, 1, repo.Len())
}
