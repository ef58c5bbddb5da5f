package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a test Redis client using miniredis
func setupTestRedis(t *testing.T) (*Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := &Client{
		Redis: redis.NewClient(&redis.Options{Addr: mr.Addr()}),
	}
	return client, mr
}

func TestClient_SetGet(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer mr.Close()
	defer client.Close()

	ctx := context.Background()

	err := client.Set(ctx, "incentive:rep-1", `{"tier2_unlocked":true}`, 5*time.Minute)
	require.NoError(t, err)

	val, err := client.Get(ctx, "incentive:rep-1")
	require.NoError(t, err)
	assert.Equal(t, `{"tier2_unlocked":true}`, val)
}

func TestClient_Delete(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer mr.Close()
	defer client.Close()

	ctx := context.Background()

	_ = client.Set(ctx, "incentive:rep-1", "a", time.Hour)
	_ = client.Set(ctx, "incentive:rep-2", "b", time.Hour)

	err := client.Delete(ctx, "incentive:rep-1")
	require.NoError(t, err)

	_, err = client.Get(ctx, "incentive:rep-1")
	assert.Error(t, err) // redis.Nil

	val, err := client.Get(ctx, "incentive:rep-2")
	require.NoError(t, err)
	assert.Equal(t, "b", val)
}

func TestClient_Exists(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer mr.Close()
	defer client.Close()

	ctx := context.Background()

	exists, err := client.Exists(ctx, "incentive:rep-1")
	require.NoError(t, err)
	assert.False(t, exists)

	_ = client.Set(ctx, "incentive:rep-1", "a", time.Hour)

	exists, err = client.Exists(ctx, "incentive:rep-1")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestClient_Expiration(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer mr.Close()
	defer client.Close()

	ctx := context.Background()

	_ = client.Set(ctx, "incentive:rep-1", "a", time.Minute)
	mr.FastForward(2 * time.Minute)

	_, err := client.Get(ctx, "incentive:rep-1")
	assert.Error(t, err) // expired
}
