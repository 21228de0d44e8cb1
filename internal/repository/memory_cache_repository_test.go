package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/adaptive-learning-portal/pkg/errors"
)

func TestMemoryCacheRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryCacheRepository()

	var out []string
	assert.ErrorIs(t, repo.Get(ctx, "q:GET:/lessons/", &out), appErrors.ErrCacheMiss)

	require.NoError(t, repo.Set(ctx, "q:GET:/lessons/", []string{"algebra"}, time.Minute))
	require.NoError(t, repo.Get(ctx, "q:GET:/lessons/", &out))
	assert.Equal(t, []string{"algebra"}, out)
}

func TestMemoryCacheRepositoryExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	repo := NewMemoryCacheRepository()
	repo.now = func() time.Time { return now }

	require.NoError(t, repo.Set(ctx, "k", 1, time.Second))
	now = now.Add(time.Second)
	var out int
	assert.ErrorIs(t, repo.Get(ctx, "k", &out), appErrors.ErrCacheMiss)
	assert.Equal(t, 0, repo.Len())
}

func TestMemoryCacheRepositoryDeleteByPattern(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryCacheRepository()
	for _, key := range []string{
		"q:user:12:GET:/history/stats/12",
		"q:user:12:GET:/history/summary/12",
		"q:user:13:GET:/history/stats/13",
		"q:GET:/lessons/",
	} {
		require.NoError(t, repo.Set(ctx, key, true, 0))
	}

	require.NoError(t, repo.DeleteByPattern(ctx, "q:user:12:*"))
	assert.Equal(t, 2, repo.Len())

	require.NoError(t, repo.DeleteByPattern(ctx, "q:GET:/lessons/"))
	assert.Equal(t, 1, repo.Len())
}

func TestGlobMatch(t *testing.T) {
	assert.True(t, globMatch("q:*", "q:GET:/a/b"))
	assert.True(t, globMatch("q:GET:/questions/lesson/?", "q:GET:/questions/lesson/7"))
	assert.True(t, globMatch("*stats*", "q:user:1:GET:/history/stats/1"))
	assert.False(t, globMatch("q:user:1:*", "q:user:12:GET:/x"))
	assert.False(t, globMatch("q:GET:/lessons/", "q:GET:/lessons/7"))
}
