package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonwraymond/nscache/auth"
	"github.com/jonwraymond/nscache/cache"
	"github.com/jonwraymond/nscache/dispatch"
	"github.com/jonwraymond/nscache/health"
	"github.com/jonwraymond/nscache/observe"
	"github.com/jonwraymond/nscache/resilience"
	"github.com/jonwraymond/nscache/secret"
)

const serviceName = "nscached"

func exporterEnabled(name string) bool {
	return name != "" && name != "none"
}

func (c Config) observeConfig() observe.Config {
	return observe.Config{
		ServiceName: serviceName,
		Version:     version,
		Tracing: observe.TracingConfig{
			Enabled:   exporterEnabled(c.Observe.Tracing),
			Exporter:  c.Observe.Tracing,
			SamplePct: c.Observe.SamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  exporterEnabled(c.Observe.Metrics),
			Exporter: c.Observe.Metrics,
		},
		Logging: observe.LoggingConfig{
			Enabled: true,
			Level:   c.Observe.LogLevel,
		},
	}
}

// server hosts the dispatcher behind echo together with health and metrics
// endpoints.
type server struct {
	cfg    Config
	echo   *echo.Echo
	obs    observe.Observer
	logger observe.Logger
	store  *cache.MemoryStore
}

func newServer(ctx context.Context, cfg Config) (*server, error) {
	obs, err := observe.NewObserver(ctx, cfg.observeConfig())
	if err != nil {
		return nil, fmt.Errorf("observer: %w", err)
	}
	logger := obs.Logger()

	s := &server{cfg: cfg, obs: obs, logger: logger}
	if err := s.build(ctx); err != nil {
		_ = obs.Shutdown(ctx)
		if s.store != nil {
			_ = s.store.Close()
		}
		return nil, err
	}
	return s, nil
}

func (s *server) build(ctx context.Context) error {
	cfg := s.cfg

	mw, err := observe.MiddlewareFromObserver(s.obs)
	if err != nil {
		return fmt.Errorf("observe middleware: %w", err)
	}

	s.store = cache.NewMemoryStore(
		cache.WithCapacity(cfg.Cache.Capacity),
		cache.WithStoreLogger(s.logger),
	)
	shared, err := cache.NewShared(s.store,
		cache.WithStripes(cfg.Cache.LockStripes),
		cache.WithLogger(s.logger),
	)
	if err != nil {
		return fmt.Errorf("shared cache: %w", err)
	}

	d, err := dispatch.New(&cache.Options{
		PrefixKey:                  cfg.Cache.Prefix,
		DefaultExpirationInSeconds: cfg.Cache.DefaultExpirationSeconds,
	}, shared, newRegistry(), dispatch.Config{
		MaxBodyBytes: cfg.Dispatch.MaxBodyBytes,
		Middleware:   mw,
		Executor:     newExecutor(cfg.Dispatch),
	})
	if err != nil {
		return fmt.Errorf("dispatcher: %w", err)
	}

	agg := health.NewAggregator()
	agg.Register("store", health.NewStoreChecker(s.store, health.StoreCheckerConfig{}))

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	authn, err := newAuthenticator(ctx, cfg.Auth)
	if err != nil {
		return err
	}
	if authn != nil {
		guard, err := auth.Middleware(authn, auth.MiddlewareOptions{
			Skip:   func(r *http.Request) bool { return !dispatch.IsCacheOperation(r) },
			Realm:  serviceName,
			Logger: s.logger,
		})
		if err != nil {
			return fmt.Errorf("auth middleware: %w", err)
		}
		e.Use(echo.WrapMiddleware(guard))
	} else {
		s.logger.Warn(ctx, "authentication disabled: no api keys or jwt secret configured")
	}
	e.Use(dispatch.EchoReadableBody(cfg.Dispatch.MaxBodyBytes))
	e.Use(dispatch.EchoMiddleware(d))

	e.GET("/healthz", echo.WrapHandler(health.LivenessHandler()))
	e.GET("/readyz", echo.WrapHandler(health.ReadinessHandler(agg)))
	e.GET("/health", echo.WrapHandler(health.DetailedHandler(agg)))
	if cfg.Observe.Metrics == "prometheus" {
		e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	}
	// Add and remove continue past the dispatcher; they end here when no
	// route claims the path.
	e.Any("/*", func(c echo.Context) error {
		if dispatch.IsCacheOperation(c.Request()) {
			return c.NoContent(http.StatusNoContent)
		}
		return echo.ErrNotFound
	})

	s.echo = e
	return nil
}

func newExecutor(cfg DispatchConfig) *resilience.Executor {
	var opts []resilience.ExecutorOption
	if cfg.Rate > 0 {
		opts = append(opts, resilience.WithRateLimiter(resilience.NewRateLimiter(resilience.RateLimiterConfig{
			Rate:  cfg.Rate,
			Burst: cfg.Burst,
		})))
	}
	if cfg.MaxConcurrent > 0 {
		opts = append(opts, resilience.WithBulkhead(resilience.NewBulkhead(resilience.BulkheadConfig{
			MaxConcurrent: cfg.MaxConcurrent,
		})))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, resilience.WithTimeout(cfg.Timeout))
	}
	return resilience.NewExecutor(opts...)
}

// newAuthenticator builds the credential chain. It returns nil when no
// credentials are configured.
func newAuthenticator(ctx context.Context, cfg AuthConfig) (auth.Authenticator, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	resolver := secret.DefaultResolver()
	var chain []auth.Authenticator

	if len(cfg.APIKeys) > 0 {
		keys, err := resolver.ResolveSlice(ctx, cfg.APIKeys)
		if err != nil {
			return nil, fmt.Errorf("auth.api_keys: %w", err)
		}
		store := auth.NewMemoryAPIKeyStore()
		for i, key := range keys {
			id := fmt.Sprintf("key-%d", i)
			store.AddKey(id, id, key)
		}
		chain = append(chain, auth.NewAPIKeyAuthenticator(auth.APIKeyConfig{}, store))
	}

	if cfg.JWTSecret != "" {
		jwtSecret, err := resolver.ResolveValue(ctx, cfg.JWTSecret)
		if err != nil {
			return nil, fmt.Errorf("auth.jwt_secret: %w", err)
		}
		chain = append(chain, auth.NewJWTAuthenticator(auth.JWTConfig{
			Secret: []byte(jwtSecret),
			Issuer: cfg.JWTIssuer,
		}))
	}

	return auth.NewCompositeAuthenticator(chain...), nil
}

// Handler exposes the echo router for in-process use.
func (s *server) Handler() http.Handler {
	return s.echo
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "listening", observe.Field{Key: "addr", Value: s.cfg.Server.Addr})
		errCh <- s.echo.Start(s.cfg.Server.Addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return s.Close(context.Background())
		}
		return errors.Join(err, s.Close(context.Background()))
	case <-ctx.Done():
	}

	s.logger.Info(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout())
	defer cancel()
	return s.Close(shutdownCtx)
}

func (s *server) shutdownTimeout() time.Duration {
	if s.cfg.Server.ShutdownTimeout > 0 {
		return s.cfg.Server.ShutdownTimeout
	}
	return 10 * time.Second
}

// Close stops the listener, then releases the store and telemetry.
func (s *server) Close(ctx context.Context) error {
	var errs []error
	if err := s.echo.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("store close: %w", err))
	}
	if err := s.obs.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("observer shutdown: %w", err))
	}
	return errors.Join(errs...)
}
