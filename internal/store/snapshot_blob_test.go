package store_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "gocloud.dev/blob/memblob"

	"github.com/lumenlabs/chainflow/internal/store"
	"github.com/lumenlabs/chainflow/pkg/api"
)

func openBlobSnapshotter(t *testing.T) *store.BlobSnapshotter {
	t.Helper()
	// Unique URL per test so memblob buckets do not bleed state
	url := fmt.Sprintf("mem://%s", t.Name())
	snap, err := store.NewBlobSnapshotter(
		context.Background(), url, "flows/",
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = snap.Close() })
	return snap
}

func TestBlobSnapshotRoundTrip(t *testing.T) {
	snap := openBlobSnapshotter(t)
	ctx := context.Background()

	flows := []*api.Flow{newFlow(api.FlowRunning), newFlow(api.FlowStale)}
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
	}
}

func TestBlobSnapshotPrunesRemovedFlows(t *testing.T) {
	snap := openBlobSnapshotter(t)
	ctx := context.Background()

	kept := newFlow(api.FlowRunning)
	removed := newFlow(api.FlowCompleted)

	require.NoError(t, snap.Save(ctx, []*api.Flow{kept, removed}))
	require.NoError(t, snap.Save(ctx, []*api.Flow{kept}))

	loaded, err := snap.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, kept.ID, loaded[0].ID)
}

func TestBlobSnapshotEmptyBucket(t *testing.T) {
	snap := openBlobSnapshotter(t)

	loaded, err := snap.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, loaded)
}
