package cache

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/jonwraymond/nscache/observe"
)

// StoreStats is a point-in-time view of a MemoryStore.
type StoreStats struct {
	// Entries is the number of entries currently held, including entries
	// that have expired but not yet been swept.
	Entries int

	// Expired is the number of entries removed by TTL since creation.
	Expired int64

	// Capacity is the maximum number of entries (0 = unbounded).
	Capacity uint64
}

// StoreOption configures a MemoryStore.
type StoreOption func(*storeConfig)

type storeConfig struct {
	capacity uint64
	logger   observe.Logger
}

// WithCapacity bounds the store; the least recently used entry is evicted
// when it is full. Zero means unbounded.
func WithCapacity(capacity uint64) StoreOption {
	return func(c *storeConfig) { c.capacity = capacity }
}

// WithStoreLogger sets the logger used for expiry events.
func WithStoreLogger(logger observe.Logger) StoreOption {
	return func(c *storeConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// MemoryStore is the in-process Store, backed by ttlcache.
//
// TTLs count from insertion: reads never extend an entry's lifetime.
// A background loop owned by the store removes expired entries; call Close
// to stop it.
type MemoryStore struct {
	items    *ttlcache.Cache[string, any]
	capacity uint64
	logger   observe.Logger

	expired    atomic.Int64
	closed     atomic.Bool
	done       chan struct{}
	once       sync.Once
	unsubEvict func()
}

// NewMemoryStore creates a MemoryStore and starts its expiry loop.
func NewMemoryStore(opts ...StoreOption) *MemoryStore {
	cfg := storeConfig{logger: observe.NopLogger()}
	for _, opt := range opts {
		opt(&cfg)
	}

	ttlOpts := []ttlcache.Option[string, any]{
		ttlcache.WithDisableTouchOnHit[string, any](),
	}
	if cfg.capacity > 0 {
		ttlOpts = append(ttlOpts, ttlcache.WithCapacity[string, any](cfg.capacity))
	}

	s := &MemoryStore{
		items:    ttlcache.New[string, any](ttlOpts...),
		capacity: cfg.capacity,
		logger:   cfg.logger,
		done:     make(chan struct{}),
	}

	// Eviction handlers run on their own goroutines.
	s.unsubEvict = s.items.OnEviction(func(ctx context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[string, any]) {
		if reason != ttlcache.EvictionReasonExpired {
			return
		}
		s.logger.Debug(ctx, "cache entry expired", observe.Field{Key: "key", Value: item.Key()})
		s.expired.Add(1)
	})

	go func() {
		defer close(s.done)
		s.items.Start()
	}()

	return s
}

// TrySet stores value under key. ttl <= 0 keeps the entry until removed.
func (s *MemoryStore) TrySet(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if s.closed.Load() {
		return false, ErrStoreClosed
	}
	if ttl <= 0 {
		ttl = ttlcache.NoTTL
	}
	return s.items.Set(key, value, ttl) != nil, nil
}

// TryGet returns the live value stored under key.
func (s *MemoryStore) TryGet(_ context.Context, key string) (any, bool, error) {
	if s.closed.Load() {
		return nil, false, ErrStoreClosed
	}
	item := s.items.Get(key)
	if item == nil || item.IsExpired() {
		return nil, false, nil
	}
	return item.Value(), true, nil
}

// Remove deletes key and reports whether a live entry existed.
func (s *MemoryStore) Remove(_ context.Context, key string) (bool, error) {
	if s.closed.Load() {
		return false, ErrStoreClosed
	}
	item := s.items.Get(key)
	if item == nil {
		return false, nil
	}
	s.items.Delete(key)
	return !item.IsExpired(), nil
}

// Keys returns every live key, sorted.
func (s *MemoryStore) Keys(_ context.Context) ([]string, error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}
	keys := make([]string, 0, s.items.Len())
	s.items.Range(func(item *ttlcache.Item[string, any]) bool {
		if !item.IsExpired() {
			keys = append(keys, item.Key())
		}
		return true
	})
	sort.Strings(keys)
	return keys, nil
}

// Stats returns current store statistics.
func (s *MemoryStore) Stats() StoreStats {
	return StoreStats{
		Entries:  s.items.Len(),
		Expired:  s.expired.Load(),
		Capacity: s.capacity,
	}
}

// Close stops the expiry loop. Subsequent operations return ErrStoreClosed.
// Close is idempotent.
func (s *MemoryStore) Close() error {
	s.once.Do(func() {
		s.closed.Store(true)
		s.items.Stop()
		<-s.done
		s.unsubEvict()
	})
	return nil
}

// Ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)
