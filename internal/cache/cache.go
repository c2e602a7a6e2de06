// Package cache provides TTL caches for aggregated GitHub results.
//
// Every aggregator owns its own Cache (or its own key prefix on a shared
// backend). Entries are valid only while their age is below the TTL they were
// stored with; expired entries are treated as absent and dropped on read.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Cache is a byte-oriented TTL store.
type Cache interface {
	// Get returns the cached value and whether it was a live hit.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data for ttl. A non-positive ttl stores nothing.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key if present.
	Delete(ctx context.Context, key string) error
	// Close releases backend resources.
	Close() error
}

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendNone   = "none"
)

// Config selects and configures a backend.
type Config struct {
	Backend       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Open creates the configured backend. An empty backend selects memory.
func Open(ctx context.Context, cfg Config) (Cache, error) {
	switch cfg.Backend {
	case "", BackendMemory:
		return NewMemory(nil), nil
	case BackendNone:
		return NewNull(), nil
	case BackendRedis:
		return NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// GetJSON decodes a cached JSON value into v. Undecodable entries are
// reported as a miss.
func GetJSON(ctx context.Context, c Cache, key string, v any) (bool, error) {
	data, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		_ = c.Delete(ctx, key)
		return false, nil
	}
	return true, nil
}

// SetJSON encodes v as JSON and stores it for ttl.
func SetJSON(ctx context.Context, c Cache, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Set(ctx, key, data, ttl)
}

// Key joins an operation, organization and optional parameters into a key.
func Key(operation, org string, params ...string) string {
	key := operation + ":" + org
	for _, p := range params {
		key += ":" + p
	}
	return key
}
