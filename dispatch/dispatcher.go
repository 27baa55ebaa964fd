package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/nscache/auth"
	"github.com/jonwraymond/nscache/cache"
	"github.com/jonwraymond/nscache/observe"
	"github.com/jonwraymond/nscache/resilience"
)

// Config configures a Dispatcher. Zero values select defaults.
type Config struct {
	// MaxBodyBytes bounds add payloads.
	// Default: DefaultMaxBodyBytes (1 MiB)
	MaxBodyBytes int64

	// Middleware instruments every operation.
	// Default: observe.NewNoopMiddleware()
	Middleware *observe.Middleware

	// Executor guards every operation.
	// Default: an executor with no patterns.
	Executor *resilience.Executor

	// RateKey names the rate limit bucket a request draws from.
	// Default: CallerKey
	RateKey func(*http.Request) string
}

// Dispatcher is HTTP middleware that turns query-flagged requests into
// cache operations on a type chosen per request.
//
// Contract:
//   - Concurrency: safe for concurrent use; adapters are built once per tag.
//   - Pass-through: requests that are not cache operations reach the next
//     handler untouched. Add and remove continue to the next handler after
//     running; list answers the request itself.
//   - Errors: malformed cache operations get a JSON error response and never
//     reach the next handler.
type Dispatcher struct {
	opts     cache.Options
	shared   *cache.Shared
	registry *Registry
	cfg      Config
	logger   observe.Logger

	mu       sync.RWMutex
	adapters map[string]Adapter
	group    singleflight.Group
}

// New creates a Dispatcher. opts supplies the fallback prefix and the default
// expiration of every entry the dispatcher adds; a nil opts is a
// configuration error.
func New(opts *cache.Options, shared *cache.Shared, registry *Registry, cfg Config) (*Dispatcher, error) {
	if opts == nil {
		return nil, ErrMissingConfig
	}
	if shared == nil {
		return nil, fmt.Errorf("dispatch: %w", cache.ErrNilStore)
	}
	if registry == nil {
		return nil, ErrNilRegistry
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.Middleware == nil {
		cfg.Middleware = observe.NewNoopMiddleware()
	}
	if cfg.Executor == nil {
		cfg.Executor = resilience.NewExecutor()
	}
	if cfg.RateKey == nil {
		cfg.RateKey = CallerKey
	}

	return &Dispatcher{
		opts:     opts.Normalize(),
		shared:   shared,
		registry: registry,
		cfg:      cfg,
		logger:   cfg.Middleware.Logger(),
		adapters: make(map[string]Adapter),
	}, nil
}

// Options returns the normalized cache options.
func (d *Dispatcher) Options() cache.Options {
	return d.opts
}

// Resolve returns the adapter for tag, building it on first use.
// Concurrent first uses of a tag share one build.
func (d *Dispatcher) Resolve(tag string) (Adapter, error) {
	d.mu.RLock()
	a, ok := d.adapters[tag]
	d.mu.RUnlock()
	if ok {
		return a, nil
	}

	v, err, _ := d.group.Do(tag, func() (any, error) {
		d.mu.RLock()
		a, ok := d.adapters[tag]
		d.mu.RUnlock()
		if ok {
			return a, nil
		}

		factory, ok := d.registry.factory(tag)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrTypeNotResolvable, tag)
		}
		a = factory(d.shared, d.opts.DefaultExpirationInSeconds)

		d.mu.Lock()
		d.adapters[tag] = a
		d.mu.Unlock()
		return a, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Adapter), nil
}

// Middleware wraps next with cache operation dispatch.
func (d *Dispatcher) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		op, ok := parseOperation(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		d.serve(w, r, op, next)
	})
}

func (d *Dispatcher) serve(w http.ResponseWriter, r *http.Request, op operation, next http.Handler) {
	reqID := r.Header.Get(observe.RequestIDHeader)
	if reqID == "" {
		reqID = observe.NewRequestID()
	}
	w.Header().Set(observe.RequestIDHeader, reqID)

	ctx := observe.WithRequestID(r.Context(), reqID)
	ctx = resilience.WithRateKey(ctx, d.cfg.RateKey(r))
	// An explicitly empty prefix selects the configured one.
	if op.prefix == "" {
		op.prefix = d.opts.PrefixKey
	}
	meta := observe.OpMeta{
		Operation: op.kind.String(),
		Namespace: op.prefix,
		Type:      op.tag,
		Key:       op.key,
	}

	if err := d.validate(op); err != nil {
		d.reject(ctx, w, meta, err)
		return
	}

	switch op.kind {
	case OpAdd:
		// The body is read here, outside the executor, so a timed out
		// operation never touches the request after the handler returns.
		payload, err := bufferBody(w, r, d.cfg.MaxBodyBytes)
		if err != nil {
			d.reject(ctx, w, meta, err)
			return
		}
		codec := CodecFor(r.Header.Get("Content-Type"))

		res, err := d.run(ctx, meta, func(ctx context.Context, a Adapter) (any, error) {
			return a.Add(ctx, op.prefix, op.key, payload, codec)
		})
		if err != nil {
			writeError(w, StatusFor(err), err)
			return
		}
		w.Header().Set(HeaderAdded, strconv.FormatBool(res.(bool)))
		next.ServeHTTP(w, r)

	case OpRemove:
		res, err := d.run(ctx, meta, func(ctx context.Context, a Adapter) (any, error) {
			return a.Remove(ctx, op.prefix, op.key)
		})
		if err != nil {
			writeError(w, StatusFor(err), err)
			return
		}
		w.Header().Set(HeaderRemoved, strconv.FormatBool(res.(bool)))
		next.ServeHTTP(w, r)

	case OpList:
		res, err := d.run(ctx, meta, func(ctx context.Context, a Adapter) (any, error) {
			return a.ListKeys(ctx, op.prefix)
		})
		if err != nil {
			writeError(w, StatusFor(err), err)
			return
		}
		writeKeys(w, res.([]string))
	}
}

func (d *Dispatcher) validate(op operation) error {
	if op.prefix == "" {
		return ErrMissingPrefix
	}
	if op.kind != OpList && op.key == "" {
		return ErrMissingKey
	}
	if op.tag == "" {
		return fmt.Errorf("%w: empty type", ErrTypeNotResolvable)
	}
	return nil
}

// reject answers a malformed operation that never reached the executor.
func (d *Dispatcher) reject(ctx context.Context, w http.ResponseWriter, meta observe.OpMeta, err error) {
	d.logger.WithOp(meta).Warn(ctx, "cache operation rejected",
		observe.Field{Key: "request_id", Value: observe.RequestID(ctx)},
		observe.Field{Key: "error", Value: err.Error()},
	)
	writeError(w, StatusFor(err), err)
}

// run resolves the adapter and executes fn under the instrumentation
// middleware and the resilience executor.
func (d *Dispatcher) run(ctx context.Context, meta observe.OpMeta, fn func(context.Context, Adapter) (any, error)) (any, error) {
	instrumented := d.cfg.Middleware.Wrap(func(ctx context.Context, meta observe.OpMeta) (any, error) {
		a, err := d.Resolve(meta.Type)
		if err != nil {
			return nil, err
		}

		// Buffered so a timed out operation can still finish and exit.
		results := make(chan any, 1)
		err = d.cfg.Executor.Execute(ctx, func(ctx context.Context) error {
			res, err := fn(ctx, a)
			if err != nil {
				return err
			}
			results <- res
			return nil
		})
		if err != nil {
			return nil, err
		}
		return <-results, nil
	})
	return instrumented(ctx, meta)
}

// CallerKey identifies who sent r: the authenticated principal when there
// is one, otherwise the client address.
func CallerKey(r *http.Request) string {
	if id := auth.IdentityFromContext(r.Context()); id != nil && !id.IsAnonymous() {
		return "principal:" + id.Principal
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "addr:" + host
}

func writeKeys(w http.ResponseWriter, keys []string) {
	w.Header().Set("Content-Type", MediaTypeJSON)
	w.WriteHeader(http.StatusOK)
	if len(keys) == 0 {
		_, _ = w.Write([]byte("{}"))
		return
	}
	_ = json.NewEncoder(w).Encode(keys)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", MediaTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
