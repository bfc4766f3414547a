package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_GetSet(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_, err := m.Get(ctx, "cart")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, m.Set(ctx, "cart", "[]"))
	require.NoError(t, m.Set(ctx, "cart", `[{"id":1,"amount":1}]`))

	v, err := m.Get(ctx, "cart")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":1,"amount":1}]`, v)
}
