package locks

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/fleetsync/internal/common"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// unlockScript deletes the key only while it still carries our token.
const unlockScript = `
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	end
	return 0
`

type redisClient interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd
}

// Redis implements Locker with the SET NX EX pattern.
type Redis struct {
	client redisClient
}

// NewRedis parses a Redis URL (e.g. "redis://host:6379/0") and returns a
// locker plus the underlying client so the caller can close it.
func NewRedis(rawURL string) (*Redis, *redis.Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse redis url: %w", err)
	}
	c := redis.NewClient(opts)
	return &Redis{client: c}, c, nil
}

func (r *Redis) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.NewString()

	ok, err := r.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", key, err)
	}
	if !ok {
		return nil, common.ErrLocked
	}

	return func() {
		// the caller's context may already be cancelled
		_ = r.client.Eval(context.Background(), unlockScript, []string{key}, token).Err()
	}, nil
}
