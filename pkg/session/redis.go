package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/pokedex-browser/pkg/browse"
	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces session keys in Redis.
const KeyPrefix = "pokedex:session:"

// RedisStore keeps sessions in Redis as JSON with a sliding TTL.
type RedisStore struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(redisClient *redis.Client, ttl time.Duration) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{
		redis: redisClient,
		ttl:   ttl,
	}
}

func key(id string) string {
	return KeyPrefix + id
}

// Load reads and decodes a session, refreshing its TTL.
func (r *RedisStore) Load(ctx context.Context, id string) (*browse.State, error) {
	data, err := r.redis.GetEx(ctx, key(id), r.ttl).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		storeErrors.WithLabelValues("redis", "load").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var st browse.State
	if err := json.Unmarshal(data, &st); err != nil {
		storeErrors.WithLabelValues("redis", "load").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	return &st, nil
}

// Save encodes st and writes it with the session TTL.
func (r *RedisStore) Save(ctx context.Context, id string, st *browse.State) error {
	if st == nil {
		return fmt.Errorf("session state cannot be nil")
	}

	data, err := json.Marshal(st)
	if err != nil {
		storeErrors.WithLabelValues("redis", "save").Inc()
		return fmt.Errorf("marshal state: %w", err)
	}

	if err := r.redis.Set(ctx, key(id), data, r.ttl).Err(); err != nil {
		storeErrors.WithLabelValues("redis", "save").Inc()
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete removes a session.
func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if err := r.redis.Del(ctx, key(id)).Err(); err != nil {
		storeErrors.WithLabelValues("redis", "delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Ping checks the Redis connection.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.redis.Ping(ctx).Err()
}
