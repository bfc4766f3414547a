package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"

	"goflare.io/shopcart/driver"
)

func setupTestPostgres(t *testing.T) *Postgres {
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := driver.ConnectSQL(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(db.Pool.Close)

	logger := zaptest.NewLogger(t)
	store := NewPostgres(db.Pool, driver.NewTransactionManager(db.Pool, logger), logger)
	require.NoError(t, store.Migrate(ctx))
	// idempotent
	require.NoError(t, store.Migrate(ctx))

	return store
}

func TestPostgres_GetSet(t *testing.T) {
	store := setupTestPostgres(t)
	ctx := context.Background()

	_, err := store.Get(ctx, "@RocketShoes:cart")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Set(ctx, "@RocketShoes:cart", `[{"id":7,"amount":1}]`))
	require.NoError(t, store.Set(ctx, "@RocketShoes:cart", `[{"id":7,"amount":2}]`))
	require.NoError(t, store.Set(ctx, "other", `[]`))

	v, err := store.Get(ctx, "@RocketShoes:cart")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":7,"amount":2}]`, v)

	v, err = store.Get(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, `[]`, v)
}
