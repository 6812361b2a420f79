package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/sma-homework-api/pkg/errors"
)

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, "homework:")
	var dest map[string]int

	err := repo.Get(context.Background(), "summary:u1", &dest)
	assert.True(t, errors.Is(err, appErrors.ErrCacheMiss))
	assert.NoError(t, repo.Set(context.Background(), "summary:u1", map[string]int{"a": 1}, time.Minute))
}

func TestRedisCacheRepository(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	repo := NewCacheRepository(client, "test:")
	ctx := context.Background()
	key := "cache-" + time.Now().Format("150405.000000")

	var dest map[string]int
	assert.True(t, errors.Is(repo.Get(ctx, key, &dest), appErrors.ErrCacheMiss))

	require.NoError(t, repo.Set(ctx, key, map[string]int{"due_today": 2}, time.Minute))
	require.NoError(t, repo.Get(ctx, key, &dest))
	assert.Equal(t, 2, dest["due_today"])
}
