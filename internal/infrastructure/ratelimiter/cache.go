package ratelimiter

import (
	"errors"
	"time"
)

var ErrCacheMiss = errors.New("cache miss")

// GetterSetter is the counter store behind both the request limiter and
// the submission quota.
type GetterSetter interface {
	Get(key string) (int, error)
	Set(key string, value int) error
	SetWithExpiration(key string, value int, expiration time.Duration) error
	// Incr adds one to key, starting a window of length expiration when the
	// key is new, and returns the new count and the time left in the window.
	Incr(key string, expiration time.Duration) (int, time.Duration, error)
	// Decr takes one back from a live key without touching its window. A
	// missing or expired key stays missing.
	Decr(key string) (int, error)
	Close() error
}
