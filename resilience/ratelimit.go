package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/time/rate"
)

// RateLimiterConfig configures the rate limiter.
type RateLimiterConfig struct {
	// Rate is the number of operations allowed per second.
	// Default: 100
	Rate float64

	// Burst is the maximum burst size.
	// Default: 10
	Burst int

	// WaitOnLimit waits for a token instead of returning error.
	// Default: false
	WaitOnLimit bool

	// MaxWait is the maximum time to wait for a token.
	// Default: 1 second
	MaxWait time.Duration

	// MaxKeys bounds the number of buckets kept.
	// Default: 10000
	MaxKeys uint64

	// IdleTTL drops a bucket unused for this long. It is raised to the time
	// a bucket needs to refill completely.
	// Default: 10 minutes
	IdleTTL time.Duration
}

// RateLimiter is a token bucket limiter with one bucket per rate key.
// Operations without a rate key in their context share the "" bucket.
//
// Buckets live in a bounded cache: a bucket idle for IdleTTL is dropped
// (it would be full again by then), and past MaxKeys the least recently
// used bucket is evicted.
type RateLimiter struct {
	config  RateLimiterConfig
	buckets *ttlcache.Cache[string, *rate.Limiter]
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.Rate <= 0 {
		config.Rate = 100
	}
	if config.Burst <= 0 {
		config.Burst = 10
	}
	if config.MaxWait <= 0 {
		config.MaxWait = time.Second
	}
	if config.MaxKeys <= 0 {
		config.MaxKeys = 10000
	}
	if config.IdleTTL <= 0 {
		config.IdleTTL = 10 * time.Minute
	}
	refill := time.Duration(float64(config.Burst) / config.Rate * float64(time.Second))
	config.IdleTTL = max(config.IdleTTL, refill)

	return &RateLimiter{
		config: config,
		buckets: ttlcache.New[string, *rate.Limiter](
			ttlcache.WithTTL[string, *rate.Limiter](config.IdleTTL),
			ttlcache.WithCapacity[string, *rate.Limiter](config.MaxKeys),
		),
	}
}

type rateKeyCtx struct{}

// WithRateKey returns a context whose operations draw from the bucket for key.
func WithRateKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, rateKeyCtx{}, key)
}

// RateKey returns the rate key carried by ctx, or "".
func RateKey(ctx context.Context) string {
	key, _ := ctx.Value(rateKeyCtx{}).(string)
	return key
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	if item := rl.buckets.Get(key); item != nil {
		return item.Value()
	}
	item, _ := rl.buckets.GetOrSet(key, rate.NewLimiter(rate.Limit(rl.config.Rate), rl.config.Burst))
	return item.Value()
}

// Len returns the number of live buckets.
func (rl *RateLimiter) Len() int {
	return rl.buckets.Len()
}

// Allow checks if a request is allowed under the shared bucket.
func (rl *RateLimiter) Allow() bool {
	return rl.AllowKey("")
}

// AllowKey checks if a request is allowed under the bucket for key.
func (rl *RateLimiter) AllowKey(key string) bool {
	return rl.limiter(key).Allow()
}

// Wait blocks until a token for ctx's rate key is available, MaxWait
// elapses, or ctx is cancelled.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	waitCtx, cancel := context.WithTimeout(ctx, rl.config.MaxWait)
	defer cancel()

	if err := rl.limiter(RateKey(ctx)).Wait(waitCtx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return errors.Join(ErrRateLimitExceeded, err)
	}
	return nil
}

// Execute runs the operation if allowed by the bucket for ctx's rate key.
func (rl *RateLimiter) Execute(ctx context.Context, op func(context.Context) error) error {
	if rl.config.WaitOnLimit {
		if err := rl.Wait(ctx); err != nil {
			return err
		}
	} else if !rl.AllowKey(RateKey(ctx)) {
		return ErrRateLimitExceeded
	}

	return op(ctx)
}

// Tokens returns the number of tokens available in the bucket for key.
func (rl *RateLimiter) Tokens(key string) float64 {
	return rl.limiter(key).Tokens()
}

// Reset drops every bucket; each key starts again at full burst.
func (rl *RateLimiter) Reset() {
	rl.buckets.DeleteAll()
}

// Config returns the rate limiter configuration.
func (rl *RateLimiter) Config() RateLimiterConfig {
	return rl.config
}
