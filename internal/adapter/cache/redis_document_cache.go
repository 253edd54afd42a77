package cache

import (
	"context"
	"errors"
	"time"

	"github.com/Sharath05hk/Minimart/internal/usecase"
	"github.com/redis/go-redis/v9"
)

// RedisDocumentCache keeps rendered documents (invoice PDFs) under "doc:<key>".
type RedisDocumentCache struct {
	rdb *redis.Client
}

func NewRedisDocumentCache(rdb *redis.Client) *RedisDocumentCache {
	return &RedisDocumentCache{rdb: rdb}
}

func (r *RedisDocumentCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := r.rdb.Get(ctx, "doc:"+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (r *RedisDocumentCache) Set(ctx context.Context, key string, doc []byte, ttl time.Duration) error {
	return r.rdb.Set(ctx, "doc:"+key, doc, ttl).Err()
}

var _ usecase.DocumentCache = (*RedisDocumentCache)(nil)
