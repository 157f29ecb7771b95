package store

import (
	"context"
	"encoding/json"
	"io"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	_ "gocloud.dev/blob/azureblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/s3blob"

	"github.com/lumenlabs/chainflow/internal/util"
	"github.com/lumenlabs/chainflow/pkg/api"
)

// BlobSnapshotter persists flows through gocloud.dev/blob, supporting S3,
// GCS, Azure Blob Storage, and S3-compatible stores. Each flow is written
// under its own key so partial updates stay cheap
type BlobSnapshotter struct {
	bucket *blob.Bucket
	prefix string
}

var _ Snapshotter = (*BlobSnapshotter)(nil)

func NewBlobSnapshotter(
	ctx context.Context, bucketURL, prefix string,
) (*BlobSnapshotter, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, err
	}
	return &BlobSnapshotter{bucket: bucket, prefix: prefix}, nil
}

// Save writes every flow under its own key, then removes keys for flows no
// longer present so the persisted set mirrors the store exactly
func (s *BlobSnapshotter) Save(ctx context.Context, flows []*api.Flow) error {
	keep := util.Set[string]{}
	for _, flow := range flows {
		key := s.keyFor(flow.ID)
		keep.Add(key)

		data, err := json.Marshal(flow)
		if err != nil {
			return err
		}
		if err := s.bucket.WriteAll(ctx, key, data, nil); err != nil {
			return err
		}
	}

	iter := s.bucket.List(&blob.ListOptions{Prefix: s.prefix})
	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if keep.Contains(obj.Key) {
			continue
		}
		if err := s.bucket.Delete(ctx, obj.Key); err != nil &&
			gcerrors.Code(err) != gcerrors.NotFound {
			return err
		}
	}
}

// Load reads back all flows stored under the snapshot prefix
func (s *BlobSnapshotter) Load(ctx context.Context) ([]*api.Flow, error) {
	var flows []*api.Flow

	iter := s.bucket.List(&blob.ListOptions{Prefix: s.prefix})
	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			return flows, nil
		}
		if err != nil {
			return nil, err
		}

		data, err := s.bucket.ReadAll(ctx, obj.Key)
		if err != nil {
			return nil, err
		}
		var flow api.Flow
		if err := json.Unmarshal(data, &flow); err != nil {
			return nil, err
		}
		flows = append(flows, &flow)
	}
}

func (s *BlobSnapshotter) Close() error {
	return s.bucket.Close()
}

func (s *BlobSnapshotter) keyFor(id api.FlowID) string {
	return s.prefix + string(id) + ".json"
}
