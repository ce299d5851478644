package checkpoint_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/stategraph/pkg/stategraph/checkpoint"
)

func TestRedisStore_KeyLayout(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	store, err := checkpoint.NewRedisStore(ctx, mr.Addr(), "", 0, checkpoint.WithKeyPrefix("test:"))
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Save(ctx, "thread-1", "node-a", []byte("payload")))

	assert.True(t, mr.Exists("test:thread:thread-1:data"))
	assert.True(t, mr.Exists("test:thread:thread-1:seq"))
	assert.Equal(t, "payload", mr.HGet("test:thread:thread-1:data", "node-a"))

	members, err := mr.SMembers("test:threads")
	require.NoError(t, err)
	assert.Equal(t, []string{"thread-1"}, members)
}

func TestRedisStore_TTL(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	store, err := checkpoint.NewRedisStore(ctx, mr.Addr(), "", 0, checkpoint.WithKeyTTL(time.Minute))
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Save(ctx, "thread-1", "node-a", []byte("payload")))
	assert.Equal(t, time.Minute, mr.TTL("stategraph:thread:thread-1:data"))

	mr.FastForward(2 * time.Minute)

	_, err = store.Load(ctx, "thread-1", "node-a")
	assert.ErrorIs(t, err, checkpoint.ErrNotFound)
}

func TestRedisStore_FromURL(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	store, err := checkpoint.NewRedisStoreFromURL(ctx, "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Save(ctx, "thread-1", "node-a", []byte("x")))
	data, err := store.Load(ctx, "thread-1", "node-a")
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), data)
}

func TestRedisStore_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := checkpoint.NewRedisStore(ctx, "127.0.0.1:1", "", 0)
	assert.Error(t, err)
}
