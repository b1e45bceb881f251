package ratelimiter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisOpTimeout = 500 * time.Millisecond

// decrExisting never creates the key and never goes below zero, so the
// window set by the first INCR is kept.
var decrExisting = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return 0
end
local n = redis.call("DECR", KEYS[1])
if n < 0 then
	redis.call("INCR", KEYS[1])
	return 0
end
return n
`)

type Redis struct {
	client *redis.Client
	prefix string
}

func NewRedis(client *redis.Client, prefix string) GetterSetter {
	return &Redis{client: client, prefix: prefix}
}

// NewRedisClient connects and pings, the same way the mongo client is
// brought up at startup.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

func (r *Redis) key(k string) string {
	return r.prefix + k
}

func (r *Redis) Get(key string) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	val, err := r.client.Get(ctx, r.key(key)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, ErrCacheMiss
	}
	return val, err
}

func (r *Redis) Set(key string, value int) error {
	return r.SetWithExpiration(key, value, 0)
}

func (r *Redis) SetWithExpiration(key string, value int, expiration time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	return r.client.Set(ctx, r.key(key), value, expiration).Err()
}

// Incr uses INCR and sets the expiry only on the first increment, so the
// window is fixed from the first hit.
func (r *Redis) Incr(key string, expiration time.Duration) (int, time.Duration, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	k := r.key(key)
	count, err := r.client.Incr(ctx, k).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("redis incr: %w", err)
	}

	if count == 1 && expiration > 0 {
		if err := r.client.Expire(ctx, k, expiration).Err(); err != nil {
			return int(count), 0, fmt.Errorf("redis expire: %w", err)
		}
		return int(count), expiration, nil
	}

	ttl, err := r.client.TTL(ctx, k).Result()
	if err != nil {
		return int(count), 0, fmt.Errorf("redis ttl: %w", err)
	}
	if ttl < 0 && expiration > 0 {
		// Key lost its expiry (crash between INCR and EXPIRE); repair it.
		_ = r.client.Expire(ctx, k, expiration).Err()
		ttl = expiration
	}
	return int(count), ttl, nil
}

func (r *Redis) Decr(key string) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	n, err := decrExisting.Run(ctx, r.client, []string{r.key(key)}).Int()
	if err != nil {
		return 0, fmt.Errorf("redis decr: %w", err)
	}
	return n, nil
}

func (r *Redis) Close() error {
	return nil
}
