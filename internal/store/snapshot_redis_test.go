package store_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenlabs/chainflow/internal/store"
	"github.com/lumenlabs/chainflow/pkg/api"
)

func TestRedisSnapshotRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	snap := store.NewRedisSnapshotter(mr.Addr(), "", 0, "test")
	defer func() { _ = snap.Close() }()

	ctx := context.Background()
	flows := []*api.Flow{newFlow(api.FlowRunning), newFlow(api.FlowFailed)}

	require.NoError(t, snap.Save(ctx, flows))

	loaded, err := snap.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	byID := map[api.FlowID]*api.Flow{}
	for _, f := range loaded {
		byID[f.ID] = f
	}
	for _, want := range flows {
		got, ok := byID[want.ID]
		require.True(t, ok)
		assert.Equal(t, want.Status, got.Status)
		assert.Equal(t, want.Steps[0].Tx.TxHash, got.Steps[0].Tx.TxHash)
	}
}

func TestRedisSnapshotReplacesPreviousSet(t *testing.T) {
	mr := miniredis.RunT(t)
	snap := store.NewRedisSnapshotter(mr.Addr(), "", 0, "test")
	defer func() { _ = snap.Close() }()

	ctx := context.Background()
	first := newFlow(api.FlowRunning)
	second := newFlow(api.FlowRunning)

	require.NoError(t, snap.Save(ctx, []*api.Flow{first, second}))
	require.NoError(t, snap.Save(ctx, []*api.Flow{second}))

	loaded, err := snap.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, second.ID, loaded[0].ID)
}

func TestRedisSnapshotEmpty(t *testing.T) {
	mr := miniredis.RunT(t)
	snap := store.NewRedisSnapshotter(mr.Addr(), "", 0, "test")
	defer func() { _ = snap.Close() }()

	ctx := context.Background()
	require.NoError(t, snap.Save(ctx, nil))

	loaded, err := snap.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}
