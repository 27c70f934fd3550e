package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"taskportal/pkg/platform/sentinel"
)

const redisKeyPrefix = "taskportal:token:"

// Redis keeps the token in a shared Redis so several terminals on different
// hosts can reuse one login.
type Redis struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// RedisOption configures a Redis store.
type RedisOption func(*Redis)

// WithTTL expires the stored token after ttl. Zero keeps it until deleted.
func WithTTL(ttl time.Duration) RedisOption {
	return func(r *Redis) {
		r.ttl = ttl
	}
}

// NewRedis constructs a Redis-backed store under key. The client lifecycle is
// managed by the caller.
func NewRedis(client *redis.Client, key string, opts ...RedisOption) *Redis {
	r := &Redis{client: client, key: redisKeyPrefix + key}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

func (r *Redis) Load(ctx context.Context) (string, error) {
	token, err := r.client.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", sentinel.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: load token: %v", sentinel.ErrUnavailable, err)
	}
	return token, nil
}

func (r *Redis) Save(ctx context.Context, token string) error {
	if err := r.client.Set(ctx, r.key, token, r.ttl).Err(); err != nil {
		return fmt.Errorf("%w: save token: %v", sentinel.ErrUnavailable, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("%w: delete token: %v", sentinel.ErrUnavailable, err)
	}
	return nil
}
