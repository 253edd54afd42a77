package cache

import (
	"context"
	"sync"
	"time"

	"github.com/Sharath05hk/Minimart/internal/usecase"
	lru "github.com/hashicorp/golang-lru/v2"
)

// In-process fallbacks used when redis.enabled is false (single instance, local runs, tests).

type memEntry struct {
	value   []byte
	expires time.Time
}

func (e *memEntry) expired(now time.Time) bool {
	return !e.expires.IsZero() && now.After(e.expires)
}

type MemoryDocumentCache struct {
	cache *lru.Cache[string, *memEntry]
	now   func() time.Time
}

func NewMemoryDocumentCache(size int) (*MemoryDocumentCache, error) {
	c, err := lru.New[string, *memEntry](size)
	if err != nil {
		return nil, err
	}
	return &MemoryDocumentCache{cache: c, now: time.Now}, nil
}

func (m *MemoryDocumentCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	e, ok := m.cache.Get(key)
	if !ok {
		return nil, false, nil
	}
	if e.expired(m.now()) {
		m.cache.Remove(key)
		return nil, false, nil
	}
	return e.value, true, nil
}

func (m *MemoryDocumentCache) Set(_ context.Context, key string, doc []byte, ttl time.Duration) error {
	e := &memEntry{value: doc}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}
	m.cache.Add(key, e)
	return nil
}

type MemoryIdempotencyStore struct {
	mu    sync.Mutex
	locks *lru.Cache[string, *memEntry]
	vals  *lru.Cache[string, *memEntry]
	ttl   time.Duration
	now   func() time.Time
}

func NewMemoryIdempotencyStore(size int, ttl time.Duration) (*MemoryIdempotencyStore, error) {
	locks, err := lru.New[string, *memEntry](size)
	if err != nil {
		return nil, err
	}
	vals, err := lru.New[string, *memEntry](size)
	if err != nil {
		return nil, err
	}
	return &MemoryIdempotencyStore{locks: locks, vals: vals, ttl: ttl, now: time.Now}, nil
}

func (m *MemoryIdempotencyStore) entry(value string) *memEntry {
	e := &memEntry{value: []byte(value)}
	if m.ttl > 0 {
		e.expires = m.now().Add(m.ttl)
	}
	return e
}

func (m *MemoryIdempotencyStore) TryLock(_ context.Context, scope, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := lockKey(scope, key)
	if e, ok := m.locks.Get(k); ok && !e.expired(m.now()) {
		return false, nil
	}
	m.locks.Add(k, m.entry("1"))
	return true, nil
}

func (m *MemoryIdempotencyStore) Remember(_ context.Context, scope, key, value string) error {
	m.vals.Add(mapKey(scope, key), m.entry(value))
	return nil
}

func (m *MemoryIdempotencyStore) Recall(_ context.Context, scope, key string) (string, bool, error) {
	e, ok := m.vals.Get(mapKey(scope, key))
	if !ok || e.expired(m.now()) {
		return "", false, nil
	}
	return string(e.value), true, nil
}

func (m *MemoryIdempotencyStore) Release(_ context.Context, scope, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locks.Remove(lockKey(scope, key))
	return nil
}

var (
	_ usecase.DocumentCache    = (*MemoryDocumentCache)(nil)
	_ usecase.IdempotencyStore = (*MemoryIdempotencyStore)(nil)
)
