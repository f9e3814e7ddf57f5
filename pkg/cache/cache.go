package cache

import (
	"context"
	"errors"
	"time"
)

var (
	ErrCacheMiss = errors.New("cache: key not found")
)

// Service defines cache operations shared by all backends.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

// Through reads key from c, falling back to load on a miss. The loaded
// value is stored only when keep approves it; a nil keep stores every
// successful load. A nil cache degrades to calling load directly.
func Through[T any](ctx context.Context, c Service, key string, ttl time.Duration, load func() (T, error), keep func(T) bool) (T, error) {
	if c != nil {
		var cached T
		if err := c.Get(ctx, key, &cached); err == nil {
			return cached, nil
		}
	}

	v, err := load()
	if err != nil {
		return v, err
	}

	if c != nil && (keep == nil || keep(v)) {
		_ = c.Set(ctx, key, v, ttl)
	}
	return v, nil
}
