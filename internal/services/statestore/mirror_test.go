package statestore_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unifiedui/chat-bridge/internal/core/cache"
	rediscache "github.com/unifiedui/chat-bridge/internal/infrastructure/cache/redis"
	"github.com/unifiedui/chat-bridge/internal/services/statestore"
)

func newTestMirror(t *testing.T) (*miniredis.Miniredis, *statestore.Mirror) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	client, err := rediscache.NewClient(rediscache.Config{Host: mr.Host(), Port: mr.Port()})
	require.NoError(t, err)

	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})

	return mr, statestore.NewMirror(client, time.Hour, nil)
}

func TestMirror_AttachPersistsChanges(t *testing.T) {
	mr, mirror := newTestMirror(t)
	store := statestore.New()

	detach := mirror.Attach("session-1", store)
	store.Show("thread-1", []string{"FETCHED_HOTELS"})

	snap, found, err := mirror.Load(context.Background(), "session-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "thread-1", snap.CurrentThreadID)
	assert.Equal(t, []string{"FETCHED_HOTELS"}, snap.CurrentStateTags)
	assert.True(t, snap.ExplanationVisible)
	assert.Equal(t, time.Hour, mr.TTL(cache.SnapshotKey("session-1")))

	detach()
	store.Reset()

	snap, _, err = mirror.Load(context.Background(), "session-1")
	require.NoError(t, err)
	assert.Equal(t, "thread-1", snap.CurrentThreadID)
}

func TestMirror_LoadMissing(t *testing.T) {
	_, mirror := newTestMirror(t)

	_, found, err := mirror.Load(context.Background(), "unknown")

	assert.NoError(t, err)
	assert.False(t, found)
}

func TestMirror_LoadCorrupt(t *testing.T) {
	mr, mirror := newTestMirror(t)
	require.NoError(t, mr.Set(cache.SnapshotKey("session-1"), "{not json"))

	_, found, err := mirror.Load(context.Background(), "session-1")

	assert.Error(t, err)
	assert.False(t, found)
}

func TestMirror_Delete(t *testing.T) {
	mr, mirror := newTestMirror(t)
	ctx := context.Background()

	require.NoError(t, mirror.Save(ctx, "session-1", statestore.New().Snapshot()))
	require.NoError(t, mirror.Delete(ctx, "session-1"))

	assert.False(t, mr.Exists(cache.SnapshotKey("session-1")))
}

func TestMirror_NilCacheIsNoop(t *testing.T) {
	mirror := statestore.NewMirror(nil, time.Hour, nil)
	ctx := context.Background()

	assert.NoError(t, mirror.Save(ctx, "s", statestore.New().Snapshot()))
	_, found, err := mirror.Load(ctx, "s")
	assert.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, mirror.Delete(ctx, "s"))
}
