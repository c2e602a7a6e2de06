// Package config loads the service configuration from a TOML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/locktivity/ghas-metrics/internal/cache"
)

// Environment variables consulted by Load.
const (
	EnvSecurityToken = "GITHUB_SECURITY_TOKEN"
	EnvToken         = "GITHUB_TOKEN"
	EnvListen        = "GHAS_METRICS_LISTEN"
)

// Config is the complete service configuration.
type Config struct {
	Server    Server    `toml:"server"`
	GitHub    GitHub    `toml:"github"`
	Cache     Cache     `toml:"cache"`
	RateLimit RateLimit `toml:"ratelimit"`
	Log       Log       `toml:"log"`
}

// Server configures the HTTP API.
type Server struct {
	Listen          string        `toml:"listen"`
	BasePath        string        `toml:"base_path"`
	ReadTimeout     time.Duration `toml:"read_timeout"`
	WriteTimeout    time.Duration `toml:"write_timeout"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`
}

// GitHub configures API access. App credentials take precedence over a
// token when both are present.
type GitHub struct {
	Token           string   `toml:"token"`
	BaseURL         string   `toml:"base_url"`
	AppID           int64    `toml:"app_id"`
	InstallationID  int64    `toml:"installation_id"`
	PrivateKeyPath  string   `toml:"private_key_path"`
	RepoSource      string   `toml:"repo_source"`
	Organization    string   `toml:"organization"`
	IncludePatterns []string `toml:"include_patterns"`
	ExcludePatterns []string `toml:"exclude_patterns"`
}

// Cache configures the aggregate cache.
type Cache struct {
	Backend       string        `toml:"backend"`
	TTL           time.Duration `toml:"ttl"`
	RedisAddr     string        `toml:"redis_addr"`
	RedisPassword string        `toml:"redis_password"`
	RedisDB       int           `toml:"redis_db"`
}

// RateLimit configures the self-throttle applied between per-repo fetches.
type RateLimit struct {
	Threshold int           `toml:"threshold"`
	MaxWait   time.Duration `toml:"max_wait"`
}

// Log configures logging.
type Log struct {
	Level string `toml:"level"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: Server{
			Listen:          ":7007",
			BasePath:        "/api/ghas-metrics",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    10 * time.Minute,
			ShutdownTimeout: 30 * time.Second,
		},
		GitHub: GitHub{
			BaseURL:    "https://api.github.com",
			RepoSource: "rest",
		},
		Cache: Cache{
			Backend: cache.BackendMemory,
			TTL:     10 * time.Minute,
		},
		RateLimit: RateLimit{
			Threshold: 50,
			MaxWait:   60 * time.Second,
		},
		Log: Log{Level: "info"},
	}
}

// Load reads path over the defaults (an empty path skips the file), applies
// environment overrides and validates the result. Unknown keys are errors.
func Load(path string) (*Config, error) {
	return load(path, os.Getenv)
}

func load(path string, getenv func(string) string) (*Config, error) {
	cfg := Default()
	if path != "" {
		md, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, 0, len(undecoded))
			for _, k := range undecoded {
				keys = append(keys, k.String())
			}
			return nil, fmt.Errorf("config %s: unknown keys: %s", path, strings.Join(keys, ", "))
		}
	}
	cfg.applyEnv(getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	c.GitHub.Token = ResolveToken(getenv, c.GitHub.Token)
	if listen := getenv(EnvListen); listen != "" {
		c.Server.Listen = listen
	}
}

// ResolveToken applies the token precedence GITHUB_SECURITY_TOKEN, then
// GITHUB_TOKEN, then the configured value, then none. Empty environment
// values count as unset.
func ResolveToken(getenv func(string) string, configured string) string {
	if t := getenv(EnvSecurityToken); t != "" {
		return t
	}
	if t := getenv(EnvToken); t != "" {
		return t
	}
	return configured
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	var errs []error
	switch c.GitHub.RepoSource {
	case "", "rest", "graphql":
	default:
		errs = append(errs, fmt.Errorf("github.repo_source: unknown source %q", c.GitHub.RepoSource))
	}
	switch c.Cache.Backend {
	case "", cache.BackendMemory, cache.BackendNone:
	case cache.BackendRedis:
		if c.Cache.RedisAddr == "" {
			errs = append(errs, errors.New("cache.redis_addr is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("cache.backend: unknown backend %q", c.Cache.Backend))
	}
	if c.GitHub.AppID != 0 {
		if c.GitHub.InstallationID == 0 {
			errs = append(errs, errors.New("github.installation_id is required with github.app_id"))
		}
		if c.GitHub.PrivateKeyPath == "" {
			errs = append(errs, errors.New("github.private_key_path is required with github.app_id"))
		}
	}
	if c.Server.BasePath != "" && !strings.HasPrefix(c.Server.BasePath, "/") {
		errs = append(errs, fmt.Errorf("server.base_path must start with /: %q", c.Server.BasePath))
	}
	return errors.Join(errs...)
}

// PrivateKey reads the GitHub App private key, or returns "" when no App is
// configured.
func (c *Config) PrivateKey() (string, error) {
	if c.GitHub.AppID == 0 || c.GitHub.PrivateKeyPath == "" {
		return "", nil
	}
	data, err := os.ReadFile(c.GitHub.PrivateKeyPath)
	if err != nil {
		return "", fmt.Errorf("reading GitHub App private key: %w", err)
	}
	return string(data), nil
}

// CacheConfig converts the cache section for cache.Open.
func (c *Config) CacheConfig() cache.Config {
	return cache.Config{
		Backend:       c.Cache.Backend,
		RedisAddr:     c.Cache.RedisAddr,
		RedisPassword: c.Cache.RedisPassword,
		RedisDB:       c.Cache.RedisDB,
	}
}
