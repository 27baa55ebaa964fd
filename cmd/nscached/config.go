package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jonwraymond/nscache/cache"
	"github.com/jonwraymond/nscache/dispatch"
)

// envPrefix namespaces environment overrides: server.addr is NSCACHE_SERVER_ADDR.
const envPrefix = "NSCACHE"

// Config is the server configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Dispatch DispatchConfig `mapstructure:"dispatch"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Observe  ObserveConfig  `mapstructure:"observe"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type CacheConfig struct {
	Prefix                   string `mapstructure:"prefix"`
	DefaultExpirationSeconds int    `mapstructure:"default_expiration_seconds"`
	Capacity                 uint64 `mapstructure:"capacity"`
	LockStripes              int    `mapstructure:"lock_stripes"`
}

type DispatchConfig struct {
	MaxBodyBytes  int64         `mapstructure:"max_body_bytes"`
	Rate          float64       `mapstructure:"rate"`
	Burst         int           `mapstructure:"burst"`
	MaxConcurrent int           `mapstructure:"max_concurrent"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// AuthConfig holds credentials. Values may be secret references such as
// secretref:file:/run/secrets/jwt.
type AuthConfig struct {
	APIKeys   []string `mapstructure:"api_keys"`
	JWTSecret string   `mapstructure:"jwt_secret"`
	JWTIssuer string   `mapstructure:"jwt_issuer"`
}

// Enabled reports whether any credential is configured.
func (a AuthConfig) Enabled() bool {
	return len(a.APIKeys) > 0 || a.JWTSecret != ""
}

func (a AuthConfig) redacted() AuthConfig {
	out := a
	out.APIKeys = make([]string, len(a.APIKeys))
	for i := range out.APIKeys {
		out.APIKeys[i] = "[REDACTED]"
	}
	if out.JWTSecret != "" {
		out.JWTSecret = "[REDACTED]"
	}
	return out
}

type ObserveConfig struct {
	LogLevel  string  `mapstructure:"log_level"`
	Tracing   string  `mapstructure:"tracing"`
	Metrics   string  `mapstructure:"metrics"`
	SamplePct float64 `mapstructure:"sample_pct"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("cache.prefix", "")
	v.SetDefault("cache.default_expiration_seconds", 0)
	v.SetDefault("cache.capacity", 0)
	v.SetDefault("cache.lock_stripes", cache.DefaultLockStripes)

	v.SetDefault("dispatch.max_body_bytes", dispatch.DefaultMaxBodyBytes)
	v.SetDefault("dispatch.rate", 0)
	v.SetDefault("dispatch.burst", 0)
	v.SetDefault("dispatch.max_concurrent", 0)
	v.SetDefault("dispatch.timeout", 5*time.Second)

	v.SetDefault("auth.api_keys", []string{})
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.jwt_issuer", "")

	v.SetDefault("observe.log_level", "info")
	v.SetDefault("observe.tracing", "none")
	v.SetDefault("observe.metrics", "none")
	v.SetDefault("observe.sample_pct", 1.0)
}

// loadConfig layers defaults, the optional config file named by the
// "config" key, NSCACHE_* environment variables and bound flags.
func loadConfig(v *viper.Viper) (Config, error) {
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %q: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var (
	errInvalidAddr    = errors.New("config: server.addr is required")
	errInvalidStripes = errors.New("config: cache.lock_stripes must be positive")
	errInvalidLimits  = errors.New("config: dispatch limits must not be negative")
)

// Validate checks the configuration before anything is built.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Server.Addr) == "" {
		return errInvalidAddr
	}
	if c.Cache.Prefix != "" {
		if err := cache.ValidatePrefix(c.Cache.Prefix); err != nil {
			return fmt.Errorf("config: cache.prefix: %w", err)
		}
	}
	if c.Cache.LockStripes <= 0 {
		return errInvalidStripes
	}
	d := c.Dispatch
	if d.MaxBodyBytes < 0 || d.Rate < 0 || d.Burst < 0 || d.MaxConcurrent < 0 || d.Timeout < 0 {
		return errInvalidLimits
	}
	oc := c.observeConfig()
	return oc.Validate()
}
