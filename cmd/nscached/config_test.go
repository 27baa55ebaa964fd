package main

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/jonwraymond/nscache/cache"
	"github.com/jonwraymond/nscache/dispatch"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig(viper.New())
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("Server.Addr = %q, want :8080", cfg.Server.Addr)
	}
	if cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Errorf("Server.ShutdownTimeout = %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.Cache.LockStripes != cache.DefaultLockStripes {
		t.Errorf("Cache.LockStripes = %d", cfg.Cache.LockStripes)
	}
	if cfg.Dispatch.MaxBodyBytes != dispatch.DefaultMaxBodyBytes {
		t.Errorf("Dispatch.MaxBodyBytes = %d", cfg.Dispatch.MaxBodyBytes)
	}
	if cfg.Dispatch.Timeout != 5*time.Second {
		t.Errorf("Dispatch.Timeout = %v", cfg.Dispatch.Timeout)
	}
	if cfg.Observe.LogLevel != "info" || cfg.Observe.Tracing != "none" || cfg.Observe.Metrics != "none" {
		t.Errorf("Observe = %+v", cfg.Observe)
	}
	if cfg.Auth.Enabled() {
		t.Error("Auth.Enabled() = true with no credentials")
	}
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("NSCACHE_SERVER_ADDR", ":9090")
	t.Setenv("NSCACHE_CACHE_PREFIX", "CARS")
	t.Setenv("NSCACHE_CACHE_CAPACITY", "100")
	t.Setenv("NSCACHE_DISPATCH_TIMEOUT", "2s")
	t.Setenv("NSCACHE_AUTH_API_KEYS", "k1,k2")

	cfg, err := loadConfig(viper.New())
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("Server.Addr = %q", cfg.Server.Addr)
	}
	if cfg.Cache.Prefix != "CARS" || cfg.Cache.Capacity != 100 {
		t.Errorf("Cache = %+v", cfg.Cache)
	}
	if cfg.Dispatch.Timeout != 2*time.Second {
		t.Errorf("Dispatch.Timeout = %v", cfg.Dispatch.Timeout)
	}
	if !slices.Equal(cfg.Auth.APIKeys, []string{"k1", "k2"}) {
		t.Errorf("Auth.APIKeys = %v", cfg.Auth.APIKeys)
	}
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nscached.yaml")
	data := []byte(`
server:
  addr: ":7070"
cache:
  prefix: TRUCKS
  default_expiration_seconds: 30
  lock_stripes: 8
dispatch:
  rate: 50
  burst: 5
  max_concurrent: 16
observe:
  log_level: debug
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	v := viper.New()
	v.Set("config", path)
	cfg, err := loadConfig(v)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Server.Addr != ":7070" {
		t.Errorf("Server.Addr = %q", cfg.Server.Addr)
	}
	want := CacheConfig{Prefix: "TRUCKS", DefaultExpirationSeconds: 30, LockStripes: 8}
	if cfg.Cache != want {
		t.Errorf("Cache = %+v, want %+v", cfg.Cache, want)
	}
	if cfg.Dispatch.Rate != 50 || cfg.Dispatch.Burst != 5 || cfg.Dispatch.MaxConcurrent != 16 {
		t.Errorf("Dispatch = %+v", cfg.Dispatch)
	}
	if cfg.Observe.LogLevel != "debug" {
		t.Errorf("Observe.LogLevel = %q", cfg.Observe.LogLevel)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	v := viper.New()
	v.Set("config", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := loadConfig(v); err == nil {
		t.Fatal("loadConfig() error = nil for a missing file")
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		cfg, err := loadConfig(viper.New())
		if err != nil {
			t.Fatal(err)
		}
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"empty addr", func(c *Config) { c.Server.Addr = " " }, errInvalidAddr},
		{"blank prefix", func(c *Config) { c.Cache.Prefix = "   " }, cache.ErrInvalidPrefix},
		{"zero stripes", func(c *Config) { c.Cache.LockStripes = 0 }, errInvalidStripes},
		{"negative rate", func(c *Config) { c.Dispatch.Rate = -1 }, errInvalidLimits},
		{"negative timeout", func(c *Config) { c.Dispatch.Timeout = -time.Second }, errInvalidLimits},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}

	t.Run("bad log level", func(t *testing.T) {
		cfg := valid()
		cfg.Observe.LogLevel = "loud"
		if err := cfg.Validate(); err == nil {
			t.Error("Validate() = nil for unknown log level")
		}
	})
	t.Run("bad exporter", func(t *testing.T) {
		cfg := valid()
		cfg.Observe.Metrics = "graphite"
		if err := cfg.Validate(); err == nil {
			t.Error("Validate() = nil for unknown exporter")
		}
	})
}

func TestAuthConfig_Redacted(t *testing.T) {
	a := AuthConfig{APIKeys: []string{"k1"}, JWTSecret: "s", JWTIssuer: "iss"}
	r := a.redacted()
	if r.APIKeys[0] != "[REDACTED]" || r.JWTSecret != "[REDACTED]" || r.JWTIssuer != "iss" {
		t.Errorf("redacted() = %+v", r)
	}
	if a.APIKeys[0] != "k1" {
		t.Error("redacted() mutated the original")
	}
}
