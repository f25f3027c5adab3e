package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/solatis/windowkeeper/internal/types"
)

// redisKV is the subset of redis.Cmdable the store uses.
type redisKV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisStore keeps JSON-encoded records under prefix+key. Records never expire.
type RedisStore struct {
	client redisKV
	prefix string
}

// NewRedisClient builds a client for addr and db.
func NewRedisClient(addr string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
}

// NewRedisStore creates a store over client. prefix namespaces the keys.
func NewRedisStore(client redisKV, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) redisKey(key types.ConditionKey) string {
	return s.prefix + key.String()
}

// Get loads and decodes the record for key.
func (s *RedisStore) Get(ctx context.Context, key types.ConditionKey) (*types.ConditionRecord, error) {
	data, err := s.client.Get(ctx, s.redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, notFound(key)
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", s.redisKey(key), err)
	}
	return decodeRecord(data)
}

// Put writes the record for key with a single SET.
func (s *RedisStore) Put(ctx context.Context, key types.ConditionKey, rec *types.ConditionRecord) error {
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.redisKey(key), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.redisKey(key), err)
	}
	return nil
}
