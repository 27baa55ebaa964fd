// Package resilience provides the admission patterns that guard cache
// operations triggered over HTTP.
//
// # Patterns
//
//   - Rate Limiter: token buckets on golang.org/x/time/rate, one per rate
//     key. The dispatcher keys buckets by caller, so one client cannot drain
//     the budget of the others. Idle buckets expire and the bucket count is
//     capped.
//
//   - Bulkhead: limits concurrent operations.
//
//   - Timeout: bounds how long a caller waits for a cache operation.
//
// # Usage
//
//	executor := resilience.NewExecutor(
//	    resilience.WithRateLimiter(resilience.NewRateLimiter(resilience.RateLimiterConfig{
//	        Rate:  100, // requests per second
//	        Burst: 10,
//	    })),
//	    resilience.WithBulkhead(resilience.NewBulkhead(resilience.BulkheadConfig{MaxConcurrent: 32})),
//	    resilience.WithTimeout(5*time.Second),
//	)
//
//	ctx = resilience.WithRateKey(ctx, dispatch.CallerKey(r))
//	err := executor.Execute(ctx, func(ctx context.Context) error {
//	    return op(ctx)
//	})
//
// Timeout returns to the caller when the deadline passes; the operation
// itself keeps running until it observes ctx or completes.
package resilience
