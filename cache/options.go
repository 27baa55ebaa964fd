package cache

import (
	"math"
	"time"
)

// MaxExpirationSeconds is the longest TTL a time.Duration can hold.
// Larger configured values are clamped to it.
const MaxExpirationSeconds = math.MaxInt64 / int64(time.Second)

// Options configures namespaced caches.
type Options struct {
	// PrefixKey is the namespace prefix.
	PrefixKey string

	// DefaultExpirationInSeconds is the TTL applied to every added entry.
	// Zero means entries never expire. Negative values are treated as
	// their absolute value, and values above MaxExpirationSeconds are
	// clamped.
	DefaultExpirationInSeconds int
}

// DefaultOptions returns options with no prefix and no expiration.
func DefaultOptions() Options {
	return Options{
		PrefixKey:                  "",
		DefaultExpirationInSeconds: 0,
	}
}

// Normalize returns a copy with a non-negative expiration.
func (o Options) Normalize() Options {
	switch {
	case o.DefaultExpirationInSeconds == math.MinInt:
		o.DefaultExpirationInSeconds = math.MaxInt
	case o.DefaultExpirationInSeconds < 0:
		o.DefaultExpirationInSeconds = -o.DefaultExpirationInSeconds
	}
	return o
}

// Expiration returns the default TTL as a duration.
// NoExpiration is returned when the configured value is zero.
func (o Options) Expiration() time.Duration {
	secs := int64(o.Normalize().DefaultExpirationInSeconds)
	if secs == 0 {
		return NoExpiration
	}
	secs = min(secs, MaxExpirationSeconds)
	return time.Duration(secs) * time.Second
}

// Expires reports whether entries created with these options expire.
func (o Options) Expires() bool {
	return o.Expiration() > 0
}

// Validate checks that the options can build a cache.
func (o Options) Validate() error {
	return ValidatePrefix(o.PrefixKey)
}
