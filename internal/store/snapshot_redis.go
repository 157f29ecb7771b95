package store

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/lumenlabs/chainflow/pkg/api"
)

// RedisSnapshotter persists the flow map to a single redis hash, one field
// per flow ID
type RedisSnapshotter struct {
	client *redis.Client
	key    string
}

var _ Snapshotter = (*RedisSnapshotter)(nil)

// NewRedisSnapshotter connects to redis and namespaces the snapshot hash
// under the given prefix
func NewRedisSnapshotter(
	addr, password string, db int, prefix string,
) *RedisSnapshotter {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisSnapshotter{
		client: client,
		key:    prefix + ":flows",
	}
}

// Save replaces the persisted snapshot with the given flows atomically
func (s *RedisSnapshotter) Save(
	ctx context.Context, flows []*api.Flow,
) error {
	fields := make(map[string]any, len(flows))
	for _, flow := range flows {
		data, err := json.Marshal(flow)
		if err != nil {
			return err
		}
		fields[string(flow.ID)] = data
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key)
	if len(fields) > 0 {
		pipe.HSet(ctx, s.key, fields)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Load reads back all persisted flows. A missing key yields an empty set
func (s *RedisSnapshotter) Load(ctx context.Context) ([]*api.Flow, error) {
	fields, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, err
	}

	flows := make([]*api.Flow, 0, len(fields))
	for _, data := range fields {
		var flow api.Flow
		if err := json.Unmarshal([]byte(data), &flow); err != nil {
			return nil, err
		}
		flows = append(flows, &flow)
	}
	return flows, nil
}

func (s *RedisSnapshotter) Close() error {
	return s.client.Close()
}
