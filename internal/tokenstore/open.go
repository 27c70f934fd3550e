package tokenstore

import (
	"context"
	"fmt"

	"taskportal/internal/platform/config"
	"taskportal/internal/platform/redis"
)

// Open builds the store selected by cfg.Token. The returned close function
// releases any connection the store holds and is never nil.
func Open(ctx context.Context, cfg config.Client) (Store, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Token.Kind {
	case "", "file":
		return NewFile(cfg.Token.Path), noop, nil
	case "memory":
		return NewMemory(), noop, nil
	case "sqlite":
		s, err := OpenSQLite(ctx, cfg.Token.Path, cfg.Token.Key)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	case "redis":
		client, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, noop, err
		}
		if client == nil {
			return nil, noop, fmt.Errorf("token store redis requires PORTAL_REDIS_URL")
		}
		return NewRedis(client.Client, cfg.Token.Key), client.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown token store %q", cfg.Token.Kind)
	}
}
