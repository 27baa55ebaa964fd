package cache

import (
	"context"
	"errors"
	"strings"
	"time"
)

// MaxKeyLength is the maximum allowed length for a stored (prefixed) key.
const MaxKeyLength = 512

// NoExpiration is the TTL that keeps an entry until it is removed.
// Stores treat any non-positive TTL this way.
const NoExpiration time.Duration = 0

// Sentinel errors for cache operations.
var (
	ErrNilStore      = errors.New("cache: store is nil")
	ErrInvalidKey    = errors.New("cache: key is invalid")
	ErrKeyTooLong    = errors.New("cache: key exceeds max length")
	ErrInvalidPrefix = errors.New("cache: prefix is invalid")
	ErrStoreClosed   = errors.New("cache: store is closed")
	ErrTypeMismatch  = errors.New("cache: stored value has unexpected type")
	ErrNotFound      = errors.New("cache: item not found")
)

// Store is the expiring key/value substrate shared by namespaced caches.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Expiry: the store enforces TTLs; an expired entry must not be returned
// by TryGet or Keys. ttl <= 0 means the entry never expires.
// - Errors: a miss is (nil, false, nil), never an error.
type Store interface {
	// TrySet stores value under key, replacing any existing entry.
	// Returns true if the value was inserted or replaced.
	TrySet(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)

	// TryGet returns the live value stored under key.
	TryGet(ctx context.Context, key string) (any, bool, error)

	// Remove deletes key and reports whether an entry existed.
	Remove(ctx context.Context, key string) (bool, error)

	// Keys returns every live key in the store, sorted.
	Keys(ctx context.Context) ([]string, error)
}

// ValidateKey checks if a stored key is acceptable.
func ValidateKey(key string) error {
	if key == "" || strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	// Reject keys with newlines or carriage returns
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}

// ValidatePrefix checks if a namespace prefix is acceptable.
// An empty prefix would match every key in the store.
func ValidatePrefix(prefix string) error {
	if strings.TrimSpace(prefix) == "" || strings.ContainsAny(prefix, "\n\r") {
		return ErrInvalidPrefix
	}
	if len(prefix) >= MaxKeyLength {
		return ErrKeyTooLong
	}
	return nil
}
