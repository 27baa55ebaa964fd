package cache

import "github.com/jonwraymond/nscache/observe"

// Shared is a Store together with the lock table that every Namespaced cache
// built on it uses. Build one Shared per Store and hand it to all caches;
// two Shared values over the same Store do not exclude each other.
type Shared struct {
	store  Store
	locks  *stripedLock
	logger observe.Logger
}

// SharedOption configures a Shared store handle.
type SharedOption func(*Shared)

// WithStripes sets the number of lock stripes. WithStripes(1) gives a single
// lock serializing every operation on the store.
func WithStripes(n int) SharedOption {
	return func(s *Shared) { s.locks = newStripedLock(n) }
}

// WithLogger sets the logger that receives absorbed store faults.
func WithLogger(logger observe.Logger) SharedOption {
	return func(s *Shared) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewShared wraps store for use by namespaced caches.
func NewShared(store Store, opts ...SharedOption) (*Shared, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	s := &Shared{
		store:  store,
		locks:  newStripedLock(DefaultLockStripes),
		logger: observe.NopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Store returns the underlying store.
func (s *Shared) Store() Store {
	return s.store
}

// Stripes returns the number of lock stripes.
func (s *Shared) Stripes() int {
	return len(s.locks.stripes)
}
