package ratelimiter

import (
	"sync"
	"time"
)

type inMemoryEntry struct {
	value     int
	expiresAt time.Time
}

func (e inMemoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

type InMemory struct {
	cache     map[string]inMemoryEntry
	mu        sync.Mutex
	now       func() time.Time
	stopClean chan struct{}
	cleanOnce sync.Once
}

func NewInMemory() GetterSetter {
	return newInMemory(time.Now, time.Minute)
}

func newInMemory(now func() time.Time, cleanEvery time.Duration) *InMemory {
	im := &InMemory{
		cache:     make(map[string]inMemoryEntry),
		now:       now,
		stopClean: make(chan struct{}),
	}

	go im.cleanupExpired(cleanEvery)

	return im
}

func (i *InMemory) Get(key string) (int, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	entry, ok := i.cache[key]
	if !ok || entry.expired(i.now()) {
		return 0, ErrCacheMiss
	}

	return entry.value, nil
}

func (i *InMemory) Set(key string, value int) error {
	return i.SetWithExpiration(key, value, 0)
}

func (i *InMemory) SetWithExpiration(key string, value int, expiration time.Duration) error {
	var expiresAt time.Time
	if expiration > 0 {
		expiresAt = i.now().Add(expiration)
	}

	i.mu.Lock()
	i.cache[key] = inMemoryEntry{value: value, expiresAt: expiresAt}
	i.mu.Unlock()

	return nil
}

func (i *InMemory) Incr(key string, expiration time.Duration) (int, time.Duration, error) {
	now := i.now()

	i.mu.Lock()
	defer i.mu.Unlock()

	entry, ok := i.cache[key]
	if !ok || entry.expired(now) {
		entry = inMemoryEntry{}
		if expiration > 0 {
			entry.expiresAt = now.Add(expiration)
		}
	}
	entry.value++
	i.cache[key] = entry

	var ttl time.Duration
	if !entry.expiresAt.IsZero() {
		ttl = entry.expiresAt.Sub(now)
	}
	return entry.value, ttl, nil
}

func (i *InMemory) Decr(key string) (int, error) {
	now := i.now()

	i.mu.Lock()
	defer i.mu.Unlock()

	entry, ok := i.cache[key]
	if !ok || entry.expired(now) {
		return 0, nil
	}
	if entry.value > 0 {
		entry.value--
	}
	i.cache[key] = entry
	return entry.value, nil
}

func (i *InMemory) cleanupExpired(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			i.removeExpired()
		case <-i.stopClean:
			return
		}
	}
}

func (i *InMemory) removeExpired() {
	now := i.now()

	i.mu.Lock()
	defer i.mu.Unlock()

	for key, entry := range i.cache {
		if entry.expired(now) {
			delete(i.cache, key)
		}
	}
}

func (i *InMemory) Close() error {
	i.cleanOnce.Do(func() {
		close(i.stopClean)
	})
	return nil
}
