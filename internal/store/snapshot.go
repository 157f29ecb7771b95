package store

import (
	"context"

	"github.com/lumenlabs/chainflow/pkg/api"
)

// Snapshotter persists the store's flows verbatim and loads them back, the
// optional durability mechanism for surviving process restarts. The flow
// map is a plain serializable structure, so backends only need opaque
// save/load of the full set
type Snapshotter interface {
	Save(ctx context.Context, flows []*api.Flow) error
	Load(ctx context.Context) ([]*api.Flow, error)
	Close() error
}
