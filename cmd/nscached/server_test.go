package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/jonwraymond/nscache/auth"
	"github.com/jonwraymond/nscache/dispatch"
)

const (
	testAPIKey    = "test-key"
	testJWTSecret = "test-secret"
)

func newTestServer(t *testing.T, mutate func(*Config)) *server {
	t.Helper()
	cfg, err := loadConfig(viper.New())
	if err != nil {
		t.Fatal(err)
	}
	cfg.Observe.LogLevel = "error"
	if mutate != nil {
		mutate(&cfg)
	}
	srv, err := newServer(t.Context(), cfg)
	if err != nil {
		t.Fatalf("newServer() error = %v", err)
	}
	t.Cleanup(func() {
		if err := srv.Close(context.Background()); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
	return srv
}

func withAuth(c *Config) {
	c.Auth.APIKeys = []string{testAPIKey}
	c.Auth.JWTSecret = testJWTSecret
	c.Auth.JWTIssuer = serviceName
}

func do(srv *server, method, target string, body []byte, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", dispatch.MediaTypeJSON)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func apiKey() http.Header {
	return http.Header{auth.DefaultAPIKeyHeader: {testAPIKey}}
}

func TestServer_Health(t *testing.T) {
	srv := newTestServer(t, withAuth)

	for _, path := range []string{"/healthz", "/readyz", "/health"} {
		rec := do(srv, http.MethodGet, path, nil, nil)
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, body %s", path, rec.Code, rec.Body)
		}
	}

	rec := do(srv, http.MethodGet, "/health", nil, nil)
	if !strings.Contains(rec.Body.String(), `"store"`) {
		t.Errorf("GET /health body %s does not report the store check", rec.Body)
	}
}

func TestServer_CacheRoundTrip(t *testing.T) {
	srv := newTestServer(t, withAuth)

	car := Car{Make: "Audi", Model: "A4", Year: 2020, Wheels: 4, Engine: Engine{Cylinders: 4, Fuel: "petrol"}}
	body, err := json.Marshal(car)
	if err != nil {
		t.Fatal(err)
	}

	rec := do(srv, http.MethodPost, "/?"+dispatch.Query(dispatch.OpAdd, "car", "CARS", "AUDI_A4"), body, apiKey())
	if rec.Code != http.StatusNoContent || rec.Header().Get(dispatch.HeaderAdded) != "true" {
		t.Fatalf("add: status %d, %s = %q, body %s", rec.Code, dispatch.HeaderAdded, rec.Header().Get(dispatch.HeaderAdded), rec.Body)
	}

	token, err := auth.SignToken([]byte(testJWTSecret), serviceName, "reader", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	rec = do(srv, http.MethodGet, "/?"+dispatch.Query(dispatch.OpList, "car", "CARS", ""), nil,
		http.Header{"Authorization": {"Bearer " + token}})
	if rec.Code != http.StatusOK {
		t.Fatalf("list: status %d, body %s", rec.Code, rec.Body)
	}
	var keys []string
	if err := json.Unmarshal(rec.Body.Bytes(), &keys); err != nil {
		t.Fatalf("list body %s: %v", rec.Body, err)
	}
	if len(keys) != 1 || keys[0] != "CARS_AUDI_A4" {
		t.Errorf("keys = %v, want [CARS_AUDI_A4]", keys)
	}

	rec = do(srv, http.MethodDelete, "/?"+dispatch.Query(dispatch.OpRemove, "car", "CARS", "AUDI_A4"), nil, apiKey())
	if rec.Code != http.StatusNoContent || rec.Header().Get(dispatch.HeaderRemoved) != "true" {
		t.Errorf("remove: status %d, %s = %q", rec.Code, dispatch.HeaderRemoved, rec.Header().Get(dispatch.HeaderRemoved))
	}
}

func TestServer_RequiresCredentialsForCacheOperations(t *testing.T) {
	srv := newTestServer(t, withAuth)

	rec := do(srv, http.MethodGet, "/?"+dispatch.Query(dispatch.OpList, "car", "CARS", ""), nil, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if got := rec.Header().Get("WWW-Authenticate"); !strings.Contains(got, serviceName) {
		t.Errorf("WWW-Authenticate = %q", got)
	}

	rec = do(srv, http.MethodGet, "/?"+dispatch.Query(dispatch.OpList, "car", "CARS", ""), nil,
		http.Header{auth.DefaultAPIKeyHeader: {"wrong"}})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong key status = %d, want 401", rec.Code)
	}

	rec = do(srv, http.MethodGet, "/unknown", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("non-cache request status = %d, want 404", rec.Code)
	}
}

func TestServer_NoAuthConfigured(t *testing.T) {
	srv := newTestServer(t, func(c *Config) { c.Cache.Prefix = "CARS" })

	rec := do(srv, http.MethodGet, "/?"+dispatch.Query(dispatch.OpList, "string", "", ""), nil, nil)
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "{}" {
		t.Errorf("list: status %d, body %s", rec.Code, rec.Body)
	}
}

func TestServer_BodyLimit(t *testing.T) {
	srv := newTestServer(t, func(c *Config) {
		c.Cache.Prefix = "NOTES"
		c.Dispatch.MaxBodyBytes = 16
	})

	rec := do(srv, http.MethodPost, "/upload", []byte(`"well over sixteen bytes"`), nil)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("oversized body status = %d, want 413", rec.Code)
	}

	rec = do(srv, http.MethodPost, "/?"+dispatch.Query(dispatch.OpAdd, "string", "", "k"), []byte(`"short"`), nil)
	if rec.Code != http.StatusNoContent || rec.Header().Get(dispatch.HeaderAdded) != "true" {
		t.Errorf("add: status %d, %s = %q", rec.Code, dispatch.HeaderAdded, rec.Header().Get(dispatch.HeaderAdded))
	}
}

func TestServer_APIKeysFromSecretRefs(t *testing.T) {
	t.Setenv("NSCACHE_TEST_API_KEY", "from-env")
	srv := newTestServer(t, func(c *Config) {
		c.Auth.APIKeys = []string{"secretref:env:NSCACHE_TEST_API_KEY"}
	})

	rec := do(srv, http.MethodGet, "/?"+dispatch.Query(dispatch.OpList, "string", "NOTES", ""), nil,
		http.Header{auth.DefaultAPIKeyHeader: {"from-env"}})
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, body %s", rec.Code, rec.Body)
	}
}

func TestNewServer_UnresolvableSecret(t *testing.T) {
	cfg, err := loadConfig(viper.New())
	if err != nil {
		t.Fatal(err)
	}
	cfg.Observe.LogLevel = "error"
	cfg.Auth.JWTSecret = "secretref:env:NSCACHE_TEST_UNSET_SECRET"
	if _, err := newServer(t.Context(), cfg); err == nil {
		t.Fatal("newServer() error = nil for an unresolvable secret")
	}
}

func TestNewExecutor(t *testing.T) {
	e := newExecutor(DispatchConfig{MaxConcurrent: 2})
	if e.Bulkhead() == nil {
		t.Error("Bulkhead() = nil with MaxConcurrent set")
	}
	if e := newExecutor(DispatchConfig{}); e.Bulkhead() != nil || e.Timeout() != nil {
		t.Error("unset limits should leave the executor bare")
	}
	if e := newExecutor(DispatchConfig{Timeout: time.Second}); e.Timeout().Config().Timeout != time.Second {
		t.Error("Timeout() should carry the configured deadline")
	}
}

func TestRootCmd_Version(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if got := out.String(); got != serviceName+" "+version+"\n" {
		t.Errorf("version output = %q", got)
	}
}

func TestRootCmd_ConfigRedactsSecrets(t *testing.T) {
	t.Setenv("NSCACHE_AUTH_JWT_SECRET", "super-secret")
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"config", "--addr", ":6060"})
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}
	got := out.String()
	if strings.Contains(got, "super-secret") || !strings.Contains(got, "[REDACTED]") {
		t.Errorf("config output leaks secret: %s", got)
	}
	if !strings.Contains(got, ":6060") {
		t.Errorf("config output ignores --addr: %s", got)
	}
}
