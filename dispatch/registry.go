package dispatch

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/jonwraymond/nscache/cache"
)

// Adapter runs cache operations for one registered item type.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Scope: every call builds or addresses the namespace given by prefix.
// - Errors: cache-layer faults are absorbed by the cache; returned errors
// describe malformed input (bad prefix, undecodable payload).
type Adapter interface {
	// Tag returns the type tag the adapter was registered under.
	Tag() string

	// Add decodes payload with codec and adds it under key.
	Add(ctx context.Context, prefix, key string, payload []byte, codec Codec) (bool, error)

	// Remove deletes key.
	Remove(ctx context.Context, prefix, key string) (bool, error)

	// ListKeys returns the stored keys under prefix.
	ListKeys(ctx context.Context, prefix string) ([]string, error)
}

// AdapterFactory binds an adapter to a shared store and a default expiration.
type AdapterFactory func(shared *cache.Shared, expirationSeconds int) Adapter

// Registry is the allow-list of item types the dispatcher can resolve.
// Only tags registered here are reachable from a request.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]AdapterFactory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]AdapterFactory)}
}

// Register binds type T to tag.
func Register[T any](r *Registry, tag string) error {
	return r.RegisterFactory(tag, func(shared *cache.Shared, secs int) Adapter {
		return &typedAdapter[T]{tag: tag, shared: shared, expiration: secs}
	})
}

// MustRegister is like Register but panics on error.
func MustRegister[T any](r *Registry, tag string) {
	if err := Register[T](r, tag); err != nil {
		panic(err)
	}
}

// RegisterFactory binds tag to a custom adapter factory.
func (r *Registry) RegisterFactory(tag string, factory AdapterFactory) error {
	if tag == "" || strings.ContainsAny(tag, " \t\r\n") || factory == nil {
		return fmt.Errorf("%w: %q", ErrInvalidTypeTag, tag)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[tag]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateType, tag)
	}
	r.factories[tag] = factory
	return nil
}

// Tags returns the registered tags, sorted.
func (r *Registry) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.factories))
}

func (r *Registry) factory(tag string) (AdapterFactory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[tag]
	return f, ok
}

// typedAdapter builds a fresh Namespaced[T] per call; the namespace is
// cheap and all state lives in the shared store.
type typedAdapter[T any] struct {
	tag        string
	shared     *cache.Shared
	expiration int
}

func (a *typedAdapter[T]) Tag() string {
	return a.tag
}

func (a *typedAdapter[T]) namespace(prefix string) (*cache.Namespaced[T], error) {
	return cache.New[T](a.shared, prefix, a.expiration)
}

func (a *typedAdapter[T]) Add(ctx context.Context, prefix, key string, payload []byte, codec Codec) (bool, error) {
	c, err := a.namespace(prefix)
	if err != nil {
		return false, err
	}
	var item T
	if err := codec.Decode(payload, &item); err != nil {
		return false, fmt.Errorf("%w as %s: %v", ErrDecodePayload, a.tag, err)
	}
	return c.AddItem(ctx, key, item), nil
}

func (a *typedAdapter[T]) Remove(ctx context.Context, prefix, key string) (bool, error) {
	c, err := a.namespace(prefix)
	if err != nil {
		return false, err
	}
	return c.RemoveItem(ctx, key), nil
}

func (a *typedAdapter[T]) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	c, err := a.namespace(prefix)
	if err != nil {
		return nil, err
	}
	return c.Keys(ctx), nil
}

var _ Adapter = (*typedAdapter[string])(nil)
