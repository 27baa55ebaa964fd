// Package health provides health checks for the cache service.
//
// A Checker reports a Status: Healthy, Degraded, or Unhealthy. StoreChecker
// watches the shared cache store; it turns degraded as a bounded store fills
// up and unhealthy when the store is nearly full or closed.
//
// # Aggregating Health Checks
//
//	agg := health.NewAggregator()
//	agg.Register("store", health.NewStoreChecker(store, health.StoreCheckerConfig{}))
//
//	results := agg.CheckAll(ctx)
//	overall := agg.OverallStatus(results)
//
// # HTTP Endpoints
//
//	http.Handle("/healthz", health.LivenessHandler())
//	http.Handle("/readyz", health.ReadinessHandler(agg))
//	http.Handle("/health", health.DetailedHandler(agg))
package health
