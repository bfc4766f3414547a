package storage

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// setupTestRedis creates a miniredis server and returns a Redis store on top of it
func setupTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedis(client, zaptest.NewLogger(t)), mr
}

func TestRedis_GetMissing(t *testing.T) {
	store, _ := setupTestRedis(t)

	_, err := store.Get(context.Background(), "@RocketShoes:cart")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedis_SetThenGet(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "@RocketShoes:cart", `[{"id":7,"amount":2}]`))

	stored, err := mr.Get("@RocketShoes:cart")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":7,"amount":2}]`, stored)
	assert.Zero(t, mr.TTL("@RocketShoes:cart"), "snapshot must not expire")

	v, err := store.Get(ctx, "@RocketShoes:cart")
	require.NoError(t, err)
	assert.Equal(t, stored, v)
}

func TestRedis_SetOverwrites(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", "first"))
	require.NoError(t, store.Set(ctx, "k", "second"))

	v, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "second", v)
}

func TestRedis_ServerDown(t *testing.T) {
	store, mr := setupTestRedis(t)
	mr.Close()
	ctx := context.Background()

	_, err := store.Get(ctx, "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.ErrorContains(t, err, "redis get failed")

	assert.ErrorContains(t, store.Set(ctx, "k", "v"), "redis set failed")
}
