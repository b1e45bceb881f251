package ratelimiter

import (
	"context"
	"time"
)

// Quota counts actions per key within a fixed window, e.g. report
// submissions per reporter per day.
type Quota struct {
	store  GetterSetter
	limit  int
	window time.Duration
	prefix string
}

type QuotaResult struct {
	Allowed    bool
	Count      int
	RetryAfter time.Duration
}

func NewQuota(store GetterSetter, prefix string, limit int, window time.Duration) *Quota {
	if store == nil {
		store = NewInMemory()
	}
	return &Quota{store: store, limit: limit, window: window, prefix: prefix}
}

// Consume records one action for key. A limit of zero disables the quota.
func (q *Quota) Consume(ctx context.Context, key string) (QuotaResult, error) {
	if q.limit <= 0 {
		return QuotaResult{Allowed: true}, nil
	}
	if err := ctx.Err(); err != nil {
		return QuotaResult{}, err
	}

	count, ttl, err := q.store.Incr(q.prefix+key, q.window)
	if err != nil {
		return QuotaResult{}, err
	}

	if count > q.limit {
		return QuotaResult{Allowed: false, Count: count, RetryAfter: ttl}, nil
	}
	return QuotaResult{Allowed: true, Count: count}, nil
}

// Refund returns an action consumed for key, for work that was counted
// but never completed.
func (q *Quota) Refund(ctx context.Context, key string) error {
	if q.limit <= 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := q.store.Decr(q.prefix + key)
	return err
}

func (q *Quota) Limit() int {
	return q.limit
}
