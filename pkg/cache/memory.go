package cache

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"FinScout/pkg/clock"
)

const defaultMemoryTTL = 7 * 24 * time.Hour

var _ Service = (*MemoryCache)(nil)

type memoryItem struct {
	value    interface{}
	expireAt time.Time
	seq      uint64
}

// MemoryCache implements Service with an in-memory TTL map and LRU
// eviction. Recency is tracked with a monotonic access counter rather
// than wall time, and expired entries are dropped lazily on access.
type MemoryCache struct {
	data    map[string]*memoryItem
	mutex   sync.Mutex
	counter uint64
	maxSize int
	clk     clock.Clock
}

// NewMemoryCache creates an in-memory cache.
func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	cfg := &MemoryConfig{
		MaxSize: 1000,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	clk := cfg.Clock
	if clk == nil {
		clk = clock.NewSystem()
	}

	return &MemoryCache{
		data:    make(map[string]*memoryItem),
		maxSize: cfg.MaxSize,
		clk:     clk,
	}
}

func (mc *MemoryCache) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	if _, exists := mc.data[key]; !exists {
		for len(mc.data) >= mc.maxSize {
			mc.evictLRU()
		}
	}

	if ttl <= 0 {
		ttl = defaultMemoryTTL
	}

	mc.counter++
	mc.data[key] = &memoryItem{
		value:    value,
		expireAt: mc.clk.Now().Add(ttl),
		seq:      mc.counter,
	}
	return nil
}

func (mc *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	item, exists := mc.data[key]
	if !exists {
		return ErrCacheMiss
	}
	if mc.clk.Now().After(item.expireAt) {
		delete(mc.data, key)
		return ErrCacheMiss
	}

	mc.counter++
	item.seq = mc.counter
	return assign(dest, item.value)
}

func (mc *MemoryCache) Delete(_ context.Context, keys ...string) error {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	for _, key := range keys {
		delete(mc.data, key)
	}
	return nil
}

// Len reports the number of stored entries, expired ones included.
func (mc *MemoryCache) Len() int {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()
	return len(mc.data)
}

// CleanupExpired removes every expired entry and reports how many were
// dropped. Expiry is otherwise lazy, so periodic sweeps keep idle keys
// from pinning memory.
func (mc *MemoryCache) CleanupExpired() int {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	now := mc.clk.Now()
	removed := 0
	for key, item := range mc.data {
		if now.After(item.expireAt) {
			delete(mc.data, key)
			removed++
		}
	}
	return removed
}

func (mc *MemoryCache) Close() error {
	return nil
}

func (mc *MemoryCache) evictLRU() {
	var oldestKey string
	var oldestSeq uint64
	first := true

	for key, item := range mc.data {
		if first || item.seq < oldestSeq {
			oldestSeq = item.seq
			oldestKey = key
			first = false
		}
	}

	if !first {
		delete(mc.data, oldestKey)
	}
}

func assign(dest, value interface{}) error {
	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Pointer || dv.IsNil() {
		return fmt.Errorf("cache: dest must be a non-nil pointer")
	}
	if value == nil {
		dv.Elem().Set(reflect.Zero(dv.Elem().Type()))
		return nil
	}
	sv := reflect.ValueOf(value)
	if !sv.Type().AssignableTo(dv.Elem().Type()) {
		return fmt.Errorf("cache: cannot assign %s to %s", sv.Type(), dv.Elem().Type())
	}
	dv.Elem().Set(sv)
	return nil
}
