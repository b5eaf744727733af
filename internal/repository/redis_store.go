package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisSnapshotStore keeps room snapshots in Redis. Same contract as the
// Postgres store; selected with STORE_BACKEND=redis for deployments that
// already run Redis and don't want snapshot traffic on the relational
// database.
type RedisSnapshotStore struct {
	client *redis.Client
}

// NewRedisSnapshotStore creates a Redis-backed snapshot store.
func NewRedisSnapshotStore(client *redis.Client) *RedisSnapshotStore {
	return &RedisSnapshotStore{client: client}
}

func (r *RedisSnapshotStore) key(dashboardID string) string {
	return "dashboard:snapshot:" + dashboardID
}

// Get reads the blob for a dashboard.
func (r *RedisSnapshotStore) Get(ctx context.Context, dashboardID string) ([]byte, error) {
	data, err := r.client.Get(ctx, r.key(dashboardID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("failed to read snapshot for %s: %w", dashboardID, err)
	}
	return data, nil
}

// Put writes the blob for a dashboard. No TTL: the snapshot is the system
// of record for rebuilding a room.
func (r *RedisSnapshotStore) Put(ctx context.Context, dashboardID string, data []byte) error {
	if err := r.client.Set(ctx, r.key(dashboardID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to persist snapshot for %s: %w", dashboardID, err)
	}
	return nil
}
