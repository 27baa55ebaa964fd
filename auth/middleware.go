package auth

import (
	"encoding/json"
	"net/http"

	"github.com/jonwraymond/nscache/observe"
)

// MiddlewareOptions configures Middleware.
type MiddlewareOptions struct {
	// Skip selects requests that bypass authentication. Skipped requests
	// carry the anonymous identity.
	// Default: nil (authenticate everything)
	Skip func(*http.Request) bool

	// Realm is reported in the WWW-Authenticate header.
	// Default: "nscache"
	Realm string

	// Logger records rejected requests.
	// Default: observe.NopLogger()
	Logger observe.Logger
}

// Middleware authenticates requests with authn and stores the identity in
// the request context. Requests without valid credentials get 401; an
// authenticator error gets 500.
func Middleware(authn Authenticator, opts MiddlewareOptions) (func(http.Handler) http.Handler, error) {
	if authn == nil {
		return nil, ErrNilAuthenticator
	}
	if opts.Realm == "" {
		opts.Realm = "nscache"
	}
	if opts.Logger == nil {
		opts.Logger = observe.NopLogger()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if opts.Skip != nil && opts.Skip(r) {
				next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), AnonymousIdentity())))
				return
			}

			ctx := r.Context()
			result, err := authn.Authenticate(ctx, NewAuthRequest(r))
			if err != nil {
				opts.Logger.Error(ctx, "authentication error",
					observe.Field{Key: "path", Value: r.URL.Path},
					observe.Field{Key: "error", Value: err.Error()},
				)
				writeJSONError(w, http.StatusInternalServerError, "authentication unavailable")
				return
			}
			if !result.Authenticated {
				opts.Logger.Warn(ctx, "authentication failed",
					observe.Field{Key: "path", Value: r.URL.Path},
					observe.Field{Key: "method", Value: result.Method},
					observe.Field{Key: "error", Value: errorText(result.Error)},
				)
				w.Header().Set("WWW-Authenticate", `Bearer realm="`+opts.Realm+`"`)
				writeJSONError(w, http.StatusUnauthorized, errorText(result.Error))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, result.Identity)))
		})
	}, nil
}

func errorText(err error) string {
	if err == nil {
		return ErrInvalidCredentials.Error()
	}
	return err.Error()
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
