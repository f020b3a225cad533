package guard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"

	apperrors "github.com/rajasatyajit/QuakeAlert/internal/errors"
	"github.com/rajasatyajit/QuakeAlert/internal/logger"
)

// releaseScript deletes the lock only if it still carries our lease id.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisGuard shares leases across instances. Each lease expires after ttl so
// a crashed holder cannot block a source forever.
type RedisGuard struct {
	redis  *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisGuard(redisURL, prefix string, ttl time.Duration) (*RedisGuard, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisGuard{redis: client, prefix: prefix, ttl: ttl}, nil
}

func (g *RedisGuard) Close() error { return g.redis.Close() }

func (g *RedisGuard) lockKey(key string) string {
	return fmt.Sprintf("%s:cycle:%s", g.prefix, key)
}

func (g *RedisGuard) TryAcquire(ctx context.Context, key string) (func(), error) {
	lk := g.lockKey(key)
	lease := uuid.NewString()

	ok, err := g.redis.SetNX(ctx, lk, lease, g.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", lk, err)
	}
	if !ok {
		return nil, apperrors.ErrCycleInFlight
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// The cycle context may already be done; release on a fresh one.
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			if err := releaseScript.Run(ctx, g.redis, []string{lk}, lease).Err(); err != nil {
				logger.Warn("Failed to release cycle lock", "key", lk, "error", err)
			}
		})
	}, nil
}
