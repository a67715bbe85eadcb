package locker

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultPrefix   = "pixelvault:lock"
	defaultTTL      = 10 * time.Second
	defaultInterval = 25 * time.Millisecond
)

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a SET NX PX lock. When Redis itself fails the lock degrades
// to a no-op and the in-process lock in front of it keeps the guarantee for
// this instance; row-level CAS guards stay authoritative either way.
type RedisLocker struct {
	client   redis.UniversalClient
	prefix   string
	ttl      time.Duration
	interval time.Duration
}

func NewRedis(client redis.UniversalClient, prefix string) *RedisLocker {
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &RedisLocker{
		client:   client,
		prefix:   prefix,
		ttl:      defaultTTL,
		interval: defaultInterval,
	}
}

func (r *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	fullKey := r.prefix + ":" + key
	token := uuid.NewString()

	for {
		ok, err := r.client.SetNX(ctx, fullKey, token, r.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warnf("[Locker] redis lock %s unavailable, continuing with local lock: %v", fullKey, err)
			return func() {}, nil
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.interval):
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// release even when the request context is already done
			c, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := releaseScript.Run(c, r.client, []string{fullKey}, token).Err(); err != nil {
				log.Warnf("[Locker] failed to release %s: %v", fullKey, err)
			}
		})
	}, nil
}
