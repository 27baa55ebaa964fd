package cache

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/jonwraymond/nscache/observe"
)

// Namespaced is a typed cache that owns the keys under one prefix of a
// shared store.
//
// Contract:
//   - Concurrency: safe for concurrent use. Every check-then-act sequence runs
//     under the Shared lock table, so it is atomic with respect to all other
//     Namespaced caches on the same Shared.
//   - Errors: store faults and panics never cross the API. They are logged
//     and reported as false or absent.
//   - Keys: a logical key is prefixed unless it already starts with the
//     prefix (see PrefixKeyer).
type Namespaced[T any] struct {
	shared *Shared
	keyer  *PrefixKeyer
	opts   Options
	ttl    time.Duration
	logger observe.Logger
}

// New creates a namespaced cache over shared. A negative
// defaultExpirationSeconds is treated as its absolute value; zero disables
// expiration.
func New[T any](shared *Shared, prefix string, defaultExpirationSeconds int) (*Namespaced[T], error) {
	return NewWithOptions[T](shared, Options{
		PrefixKey:                  prefix,
		DefaultExpirationInSeconds: defaultExpirationSeconds,
	})
}

// NewWithOptions creates a namespaced cache from Options.
func NewWithOptions[T any](shared *Shared, opts Options) (*Namespaced[T], error) {
	if shared == nil {
		return nil, ErrNilStore
	}
	opts = opts.Normalize()
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("cache: prefix %q: %w", opts.PrefixKey, err)
	}
	return &Namespaced[T]{
		shared: shared,
		keyer:  NewPrefixKeyer(opts.PrefixKey),
		opts:   opts,
		ttl:    opts.Expiration(),
		logger: shared.logger.WithOp(observe.OpMeta{Namespace: opts.PrefixKey}),
	}, nil
}

// Prefix returns the namespace prefix.
func (c *Namespaced[T]) Prefix() string {
	return c.opts.PrefixKey
}

// Options returns the normalized options the cache was built with.
func (c *Namespaced[T]) Options() Options {
	return c.opts
}

// PrefixKey returns "<prefix>_<key>" unconditionally.
func (c *Namespaced[T]) PrefixKey(key string) string {
	return c.keyer.Join(key)
}

// AddItem stores item under key only if no live entry exists.
// It returns false both when the key is taken and when the store fails.
func (c *Namespaced[T]) AddItem(ctx context.Context, key string, item T) bool {
	k := c.keyer.Key(key)
	mu := c.shared.locks.forKey(k)
	mu.Lock()
	defer mu.Unlock()
	return c.addLocked(ctx, k, item)
}

// GetItem returns the live value stored under key.
func (c *Namespaced[T]) GetItem(ctx context.Context, key string) (T, bool) {
	k := c.keyer.Key(key)
	mu := c.shared.locks.forKey(k)
	mu.Lock()
	defer mu.Unlock()
	return c.getLocked(ctx, k)
}

// UpdateItem replaces any entry under key with item. The removal and the
// insertion happen under one lock acquisition. It always returns true.
func (c *Namespaced[T]) UpdateItem(ctx context.Context, key string, item T) bool {
	k := c.keyer.Key(key)
	mu := c.shared.locks.forKey(k)
	mu.Lock()
	defer mu.Unlock()
	c.replaceLocked(ctx, k, item)
	return true
}

// SetItem adds item when key is absent and updates it otherwise.
func (c *Namespaced[T]) SetItem(ctx context.Context, key string, item T) bool {
	k := c.keyer.Key(key)
	mu := c.shared.locks.forKey(k)
	mu.Lock()
	defer mu.Unlock()
	if c.existsLocked(ctx, k) {
		c.replaceLocked(ctx, k, item)
		return true
	}
	return c.addLocked(ctx, k, item)
}

// RemoveItem deletes key and reports whether a live entry existed.
func (c *Namespaced[T]) RemoveItem(ctx context.Context, key string) bool {
	k := c.keyer.Key(key)
	mu := c.shared.locks.forKey(k)
	mu.Lock()
	defer mu.Unlock()
	return c.removeLocked(ctx, k)
}

// AddItems calls AddItem for every pair. There is no atomicity across the
// batch: a failed key does not roll back the others.
func (c *Namespaced[T]) AddItems(ctx context.Context, items map[string]T) {
	for _, key := range slices.Sorted(maps.Keys(items)) {
		c.AddItem(ctx, key, items[key])
	}
}

// Keys returns the stored keys under this cache's prefix, sorted.
func (c *Namespaced[T]) Keys(ctx context.Context) []string {
	c.shared.locks.lockAll()
	defer c.shared.locks.unlockAll()

	all, ok := c.storeKeys(ctx, "keys")
	if !ok {
		return []string{}
	}
	owned := make([]string, 0, len(all))
	for _, k := range all {
		if c.keyer.Owns(k) {
			owned = append(owned, k)
		}
	}
	return owned
}

// ClearAll removes every store key under "<prefix>_". No other operation on
// the shared store interleaves with the sweep.
func (c *Namespaced[T]) ClearAll(ctx context.Context) {
	c.shared.locks.lockAll()
	defer c.shared.locks.unlockAll()

	all, ok := c.storeKeys(ctx, "clear")
	if !ok {
		return
	}
	for _, k := range all {
		if c.keyer.Owns(k) {
			c.removeLocked(ctx, k)
		}
	}
}

// GetValues returns every key in the whole shared store whose type is K,
// sorted. The result is not limited to c's namespace; use Keys for that.
func GetValues[K any, T any](ctx context.Context, c *Namespaced[T]) []K {
	c.shared.locks.lockAll()
	defer c.shared.locks.unlockAll()

	all, ok := c.storeKeys(ctx, "values")
	if !ok {
		return []K{}
	}
	values := make([]K, 0, len(all))
	for _, k := range all {
		if v, ok := any(k).(K); ok {
			values = append(values, v)
		}
	}
	return values
}

func (c *Namespaced[T]) addLocked(ctx context.Context, k string, item T) (added bool) {
	defer c.recoverFault(ctx, "add", k)

	if err := ValidateKey(k); err != nil {
		c.fault(ctx, "add", k, err)
		return false
	}
	_, found, err := c.shared.store.TryGet(ctx, k)
	if err != nil {
		c.fault(ctx, "add", k, err)
		return false
	}
	if found {
		return false
	}
	ok, err := c.shared.store.TrySet(ctx, k, item, c.ttl)
	if err != nil {
		c.fault(ctx, "add", k, err)
		return false
	}
	return ok
}

func (c *Namespaced[T]) getLocked(ctx context.Context, k string) (item T, found bool) {
	defer c.recoverFault(ctx, "get", k)

	v, ok, err := c.shared.store.TryGet(ctx, k)
	if err != nil {
		c.fault(ctx, "get", k, err)
		return item, false
	}
	if !ok {
		return item, false
	}
	typed, ok := v.(T)
	if !ok {
		c.fault(ctx, "get", k, fmt.Errorf("%w: %T", ErrTypeMismatch, v))
		return item, false
	}
	return typed, true
}

func (c *Namespaced[T]) existsLocked(ctx context.Context, k string) (exists bool) {
	defer c.recoverFault(ctx, "set", k)

	_, found, err := c.shared.store.TryGet(ctx, k)
	if err != nil {
		c.fault(ctx, "set", k, err)
		return false
	}
	return found
}

func (c *Namespaced[T]) replaceLocked(ctx context.Context, k string, item T) {
	c.removeLocked(ctx, k)
	c.addLocked(ctx, k, item)
}

func (c *Namespaced[T]) removeLocked(ctx context.Context, k string) (removed bool) {
	defer c.recoverFault(ctx, "remove", k)

	existed, err := c.shared.store.Remove(ctx, k)
	if err != nil {
		c.fault(ctx, "remove", k, err)
		return false
	}
	return existed
}

func (c *Namespaced[T]) storeKeys(ctx context.Context, op string) (keys []string, ok bool) {
	defer c.recoverFault(ctx, op, "")

	keys, err := c.shared.store.Keys(ctx)
	if err != nil {
		c.fault(ctx, op, "", err)
		return nil, false
	}
	return keys, true
}

// recoverFault turns a store panic into a logged fault. Named results of the
// deferring method keep their zero values.
func (c *Namespaced[T]) recoverFault(ctx context.Context, op, key string) {
	if r := recover(); r != nil {
		c.fault(ctx, op, key, fmt.Errorf("store panic: %v", r))
	}
}

func (c *Namespaced[T]) fault(ctx context.Context, op, key string, err error) {
	c.logger.Error(ctx, "cache fault",
		observe.Field{Key: "op", Value: op},
		observe.Field{Key: "key", Value: key},
		observe.Field{Key: "error", Value: err.Error()},
	)
}
