package cache

import (
	"context"
	"errors"
	"time"
)

var (
	ErrCacheMiss = errors.New("cache: key not found")
)

// Service is the key/value backend behind the result cache. Values are JSON encoded.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	DeleteByPattern(ctx context.Context, pattern string) error
	Close() error
}

// Backend names accepted by New.
const (
	BackendMemory  = "memory"
	BackendRedis   = "redis"
	BackendLayered = "layered"
)

// New builds the backend named kind.
func New(kind string, redisOpts []RedisOption, memOpts ...MemoryOption) (Service, error) {
	switch kind {
	case BackendMemory, "":
		return NewMemoryCache(memOpts...), nil
	case BackendRedis:
		return NewRedisCache(redisOpts...)
	case BackendLayered:
		rc, err := NewRedisCache(redisOpts...)
		if err != nil {
			return nil, err
		}
		return NewLayeredCache(rc, memOpts...), nil
	default:
		return nil, errors.New("cache: unknown backend " + kind)
	}
}
