package cache

import "context"

// Loader produces the value for a cache miss.
// The bool return reports whether a value exists; return false to signal
// "not found" without caching a zero value.
type Loader[T any] func(ctx context.Context, key string) (T, bool, error)

// GetOrLoad returns the cached value for key, or calls load on a miss.
// A found result is added under key with the default expiration and returned.
// If another caller adds key first, that value wins and is returned.
// Loader errors are propagated and never cached; a not-found result yields
// ErrNotFound. The loader runs without holding any cache lock.
func (c *Namespaced[T]) GetOrLoad(ctx context.Context, key string, load Loader[T]) (T, error) {
	if cached, ok := c.GetItem(ctx, key); ok {
		return cached, nil
	}

	var zero T
	result, found, err := load(ctx, key)
	if err != nil {
		return zero, err
	}
	if !found {
		return zero, ErrNotFound
	}

	if c.AddItem(ctx, key, result) {
		return result, nil
	}
	if winner, ok := c.GetItem(ctx, key); ok {
		return winner, nil
	}
	// The add failed on a store fault; the caller still gets its value.
	return result, nil
}
