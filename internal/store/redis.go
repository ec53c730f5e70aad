package store

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const snapshotKeyPrefix = "match:snapshot:"

// RedisStore keeps one JSON snapshot per match id. TTL is refreshed on
// every put so live matches never expire mid-game; 0 disables expiry.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func snapshotKey(id string) string { return snapshotKeyPrefix + strings.TrimSpace(id) }

func (s *RedisStore) Put(ctx context.Context, id string, payload []byte) error {
	return s.rdb.Set(ctx, snapshotKey(id), payload, s.ttl).Err()
}

func (s *RedisStore) Get(ctx context.Context, id string) ([]byte, bool, error) {
	raw, err := s.rdb.Get(ctx, snapshotKey(id)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return raw, true, nil
}

func (s *RedisStore) Exists(ctx context.Context, id string) (bool, error) {
	n, err := s.rdb.Exists(ctx, snapshotKey(id)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RedisStore) ListIDs(ctx context.Context) ([]string, error) {
	var (
		ids    []string
		cursor uint64
	)
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, snapshotKeyPrefix+"*", 100).Result()
		if err != nil {
			return nil, err
		}
		for _, k := range keys {
			ids = append(ids, strings.TrimPrefix(k, snapshotKeyPrefix))
		}
		cursor = next
		if cursor == 0 {
			return ids, nil
		}
	}
}
