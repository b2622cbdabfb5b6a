package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/BLKOUTUK/comms-blkout-sub001/infrastructure/clients/social"
)

// RedisStateStore backs OAuth anti-forgery state and PKCE verifiers with
// Redis so callbacks can land on any instance behind a load balancer.
type RedisStateStore struct {
	client *redis.Client
}

func NewRedisStateStore(client *redis.Client) *RedisStateStore {
	return &RedisStateStore{client: client}
}

func (s *RedisStateStore) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

// Consume reads and deletes the key in one round trip. A key can be consumed
// at most once; replayed callbacks see ErrStateNotFound.
func (s *RedisStateStore) Consume(ctx context.Context, key string) (string, error) {
	val, err := s.client.GetDel(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", social.ErrStateNotFound
	}
	if err != nil {
		return "", err
	}
	return val, nil
}
