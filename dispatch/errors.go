package dispatch

import (
	"errors"
	"net/http"

	"github.com/jonwraymond/nscache/cache"
	"github.com/jonwraymond/nscache/resilience"
)

// Configuration errors.
var (
	// ErrMissingConfig indicates New was called without cache options.
	ErrMissingConfig = errors.New("dispatch: cache options are required")

	// ErrNilRegistry indicates New was called without a type registry.
	ErrNilRegistry = errors.New("dispatch: registry is nil")

	// ErrInvalidTypeTag indicates a type tag that cannot be registered.
	ErrInvalidTypeTag = errors.New("dispatch: invalid type tag")

	// ErrDuplicateType indicates a type tag registered twice.
	ErrDuplicateType = errors.New("dispatch: type tag already registered")
)

// Request errors.
var (
	// ErrTypeNotResolvable indicates the request's type tag is not registered.
	ErrTypeNotResolvable = errors.New("dispatch: type is not resolvable")

	// ErrMissingPrefix indicates an empty prefix parameter with no configured
	// fallback prefix.
	ErrMissingPrefix = errors.New("dispatch: prefix is required")

	// ErrMissingKey indicates an add or remove without a cache key.
	ErrMissingKey = errors.New("dispatch: cachekey is required")

	// ErrDecodePayload indicates the request body does not decode as the type.
	ErrDecodePayload = errors.New("dispatch: payload does not decode")

	// ErrBodyTooLarge indicates the request body exceeds MaxBodyBytes.
	ErrBodyTooLarge = errors.New("dispatch: request body too large")

	// ErrReadBody indicates the request body could not be read.
	ErrReadBody = errors.New("dispatch: request body unreadable")
)

// StatusFor maps a dispatcher error to its HTTP status code.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrBodyTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrTypeNotResolvable),
		errors.Is(err, ErrMissingPrefix),
		errors.Is(err, ErrMissingKey),
		errors.Is(err, ErrDecodePayload),
		errors.Is(err, ErrReadBody),
		errors.Is(err, cache.ErrInvalidPrefix),
		errors.Is(err, cache.ErrInvalidKey),
		errors.Is(err, cache.ErrKeyTooLong):
		return http.StatusBadRequest
	case errors.Is(err, resilience.ErrRateLimitExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, resilience.ErrBulkheadFull):
		return http.StatusServiceUnavailable
	case errors.Is(err, resilience.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
