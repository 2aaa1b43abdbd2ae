package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheRoundTrip(t *testing.T) {
	c := NewMemoryCache(time.Minute)
	ctx := context.Background()

	_, found, err := c.Get(ctx, "chatrooms:1")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.SetWithTTL(ctx, "chatrooms:1", `[{"id":"a"}]`, time.Minute))
	val, found, err := c.Get(ctx, "chatrooms:1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `[{"id":"a"}]`, val)

	require.NoError(t, c.Delete(ctx, "chatrooms:1"))
	_, found, _ = c.Get(ctx, "chatrooms:1")
	assert.False(t, found)
}

func TestMemoryCacheExpires(t *testing.T) {
	c := NewMemoryCache(time.Minute)
	ctx := context.Background()

	require.NoError(t, c.SetWithTTL(ctx, "k", "v", 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	_, found, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestChatroomsKey(t *testing.T) {
	id := uuid.MustParse("7b0e6c1e-2f4b-4d55-9a43-1f0c8a3c2b10")
	assert.Equal(t, "chatrooms:7b0e6c1e-2f4b-4d55-9a43-1f0c8a3c2b10", ChatroomsKey(id))
}
