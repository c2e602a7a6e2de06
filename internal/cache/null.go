package cache

import (
	"context"
	"time"
)

// Null is a no-op cache that never stores anything.
type Null struct{}

// NewNull creates a null cache.
func NewNull() *Null {
	return &Null{}
}

// Get always returns a cache miss.
func (Null) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, nil
}

// Set does nothing.
func (Null) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return nil
}

// Delete does nothing.
func (Null) Delete(ctx context.Context, key string) error {
	return nil
}

// Close does nothing.
func (Null) Close() error {
	return nil
}

// Ensure Null implements Cache.
var _ Cache = (*Null)(nil)
