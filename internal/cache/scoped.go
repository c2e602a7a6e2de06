package cache

import (
	"context"
	"time"
)

// Scoped prefixes every key so that several aggregators can share one
// backend without colliding.
type Scoped struct {
	inner  Cache
	prefix string
}

// WithPrefix returns a view of c whose keys are prefixed with prefix + ":".
// Closing the view does not close c.
func WithPrefix(c Cache, prefix string) *Scoped {
	return &Scoped{inner: c, prefix: prefix + ":"}
}

func (s *Scoped) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return s.inner.Get(ctx, s.prefix+key)
}

func (s *Scoped) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return s.inner.Set(ctx, s.prefix+key, data, ttl)
}

func (s *Scoped) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, s.prefix+key)
}

func (s *Scoped) Close() error {
	return nil
}

var _ Cache = (*Scoped)(nil)
