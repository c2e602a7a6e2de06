package cache

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestMemory_TTL(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewMemory(clock.Now)

	if err := c.Set(ctx, "dependabot:acme", []byte("v1"), 10*time.Minute); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	tests := []struct {
		name    string
		advance time.Duration
		wantHit bool
	}{
		{"fresh", 0, true},
		{"just before expiry", 10*time.Minute - time.Second, true},
		{"at expiry", time.Second, false},
	}

	for _, tt := range tests {
		clock.Advance(tt.advance)
		data, ok, err := c.Get(ctx, "dependabot:acme")
		if err != nil {
			t.Fatalf("%s: Get() error: %v", tt.name, err)
		}
		if ok != tt.wantHit {
			t.Errorf("%s: hit = %v, want %v", tt.name, ok, tt.wantHit)
		}
		if ok && string(data) != "v1" {
			t.Errorf("%s: data = %q, want v1", tt.name, data)
		}
	}

	if c.Len() != 0 {
		t.Errorf("expired entry not evicted on read, Len() = %d", c.Len())
	}
}

func TestMemory_OverwriteRestartsTTL(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	c := NewMemory(clock.Now)

	_ = c.Set(ctx, "k", []byte("old"), time.Minute)
	clock.Advance(50 * time.Second)
	_ = c.Set(ctx, "k", []byte("new"), time.Minute)
	clock.Advance(50 * time.Second)

	data, ok, _ := c.Get(ctx, "k")
	if !ok || string(data) != "new" {
		t.Errorf("Get() = %q, %v; want new, true", data, ok)
	}
}

func TestMemory_NonPositiveTTL(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(nil)

	_ = c.Set(ctx, "k", []byte("v"), 0)
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Error("zero TTL entry should not be stored")
	}
}

func TestMemory_Delete(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(nil)

	_ = c.Set(ctx, "k", []byte("v"), time.Hour)
	_ = c.Delete(ctx, "k")
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Error("deleted entry still present")
	}
}

func TestNull(t *testing.T) {
	ctx := context.Background()
	c := NewNull()

	_ = c.Set(ctx, "k", []byte("v"), time.Hour)
	if _, ok, err := c.Get(ctx, "k"); ok || err != nil {
		t.Errorf("Get() = %v, %v; want miss", ok, err)
	}
}

func TestScoped(t *testing.T) {
	ctx := context.Background()
	shared := NewMemory(nil)
	a := WithPrefix(shared, "a")
	b := WithPrefix(shared, "b")

	_ = a.Set(ctx, "acme", []byte("from-a"), time.Hour)

	if _, ok, _ := b.Get(ctx, "acme"); ok {
		t.Error("scope b sees scope a's entry")
	}
	data, ok, _ := shared.Get(ctx, "a:acme")
	if !ok || string(data) != "from-a" {
		t.Errorf("underlying key = %q, %v; want from-a", data, ok)
	}

	_ = a.Close()
	if _, ok, _ := shared.Get(ctx, "a:acme"); !ok {
		t.Error("closing a scope should not affect the shared cache")
	}
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(nil)

	type payload struct {
		Total int `json:"total"`
	}

	if err := SetJSON(ctx, c, "k", payload{Total: 7}, time.Hour); err != nil {
		t.Fatalf("SetJSON() error: %v", err)
	}

	var got payload
	ok, err := GetJSON(ctx, c, "k", &got)
	if err != nil || !ok {
		t.Fatalf("GetJSON() = %v, %v", ok, err)
	}
	if got.Total != 7 {
		t.Errorf("Total = %d, want 7", got.Total)
	}

	_ = c.Set(ctx, "bad", []byte("{not json"), time.Hour)
	ok, err = GetJSON(ctx, c, "bad", &got)
	if ok || err != nil {
		t.Errorf("GetJSON(bad) = %v, %v; want miss", ok, err)
	}
	if _, present, _ := c.Get(ctx, "bad"); present {
		t.Error("undecodable entry should be dropped")
	}
}

func TestKey(t *testing.T) {
	tests := []struct {
		op, org string
		params  []string
		want    string
	}{
		{"dependabot", "acme", nil, "dependabot:acme"},
		{"mttr", "acme", []string{"2026-01-01"}, "mttr:acme:2026-01-01"},
	}
	for _, tt := range tests {
		if got := Key(tt.op, tt.org, tt.params...); got != tt.want {
			t.Errorf("Key() = %q, want %q", got, tt.want)
		}
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		backend string
		wantErr bool
	}{
		{"", false},
		{BackendMemory, false},
		{BackendNone, false},
		{"memcached", true},
	}
	for _, tt := range tests {
		c, err := Open(ctx, Config{Backend: tt.backend})
		if (err != nil) != tt.wantErr {
			t.Errorf("Open(%q) error = %v, wantErr %v", tt.backend, err, tt.wantErr)
		}
		if c != nil {
			_ = c.Close()
		}
	}

	if _, err := Open(ctx, Config{Backend: BackendRedis}); err == nil {
		t.Error("Open(redis) without address should fail")
	}
}

func TestRedis(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()

	c, err := NewRedis(ctx, addr, "", 0)
	if err != nil {
		t.Fatalf("NewRedis() error: %v", err)
	}
	defer c.Close()

	key := "ghas-metrics-test:" + t.Name()
	defer c.Delete(ctx, key)

	if _, ok, err := c.Get(ctx, key); ok || err != nil {
		t.Fatalf("Get(missing) = %v, %v", ok, err)
	}
	if err := c.Set(ctx, key, []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	data, ok, err := c.Get(ctx, key)
	if err != nil || !ok || string(data) != "v" {
		t.Errorf("Get() = %q, %v, %v", data, ok, err)
	}
}

func TestRedis_Unreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 100 * time.Millisecond,
	})
	c := NewRedisWithClient(client)
	defer c.Close()

	_, ok, err := c.Get(context.Background(), "k")
	if ok || err == nil {
		t.Fatalf("Get() = %v, %v, want backend error", ok, err)
	}
	if !strings.Contains(err.Error(), "redis get k") {
		t.Errorf("error = %q, want key context", err)
	}
}
