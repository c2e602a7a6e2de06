package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func env(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ghas-metrics.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestResolveToken(t *testing.T) {
	tests := []struct {
		name       string
		env        map[string]string
		configured string
		want       string
	}{
		{"security token wins", map[string]string{EnvSecurityToken: "sec", EnvToken: "gh"}, "cfg", "sec"},
		{"github token next", map[string]string{EnvToken: "gh"}, "cfg", "gh"},
		{"config value next", nil, "cfg", "cfg"},
		{"empty string last", nil, "", ""},
		{"empty env counts as unset", map[string]string{EnvSecurityToken: "", EnvToken: ""}, "cfg", "cfg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveToken(env(tt.env), tt.configured); got != tt.want {
				t.Errorf("ResolveToken() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load("", env(nil))
	if err != nil {
		t.Fatalf("load() error: %v", err)
	}
	if cfg.Server.BasePath != "/api/ghas-metrics" {
		t.Errorf("BasePath = %q", cfg.Server.BasePath)
	}
	if cfg.Cache.TTL != 10*time.Minute {
		t.Errorf("Cache.TTL = %v, want 10m", cfg.Cache.TTL)
	}
	if cfg.RateLimit.Threshold != 50 || cfg.RateLimit.MaxWait != time.Minute {
		t.Errorf("RateLimit = %+v", cfg.RateLimit)
	}
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
[server]
listen = "127.0.0.1:9000"

[github]
token = "from-file"
organization = "acme"
exclude_patterns = ["*-archive"]
repo_source = "graphql"

[cache]
ttl = "5m"

[ratelimit]
threshold = 100
max_wait = "30s"

[log]
level = "debug"
`)

	cfg, err := load(path, env(map[string]string{EnvListen: ":8080"}))
	if err != nil {
		t.Fatalf("load() error: %v", err)
	}

	if cfg.Server.Listen != ":8080" {
		t.Errorf("Listen = %q, want env override", cfg.Server.Listen)
	}
	if cfg.GitHub.Token != "from-file" {
		t.Errorf("Token = %q, want from-file", cfg.GitHub.Token)
	}
	if cfg.GitHub.RepoSource != "graphql" || cfg.GitHub.Organization != "acme" {
		t.Errorf("GitHub = %+v", cfg.GitHub)
	}
	if len(cfg.GitHub.ExcludePatterns) != 1 {
		t.Errorf("ExcludePatterns = %v", cfg.GitHub.ExcludePatterns)
	}
	if cfg.Cache.TTL != 5*time.Minute {
		t.Errorf("Cache.TTL = %v, want 5m", cfg.Cache.TTL)
	}
	if cfg.Cache.Backend != "memory" {
		t.Errorf("Cache.Backend = %q, want default memory", cfg.Cache.Backend)
	}
	if cfg.RateLimit.Threshold != 100 || cfg.RateLimit.MaxWait != 30*time.Second {
		t.Errorf("RateLimit = %+v", cfg.RateLimit)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
}

func TestLoad_EnvTokenOverridesFile(t *testing.T) {
	path := writeConfig(t, "[github]\ntoken = \"from-file\"\n")

	cfg, err := load(path, env(map[string]string{EnvToken: "from-env"}))
	if err != nil {
		t.Fatalf("load() error: %v", err)
	}
	if cfg.GitHub.Token != "from-env" {
		t.Errorf("Token = %q, want from-env", cfg.GitHub.Token)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"unknown key", "[github]\ntokn = \"x\"\n", "unknown keys"},
		{"bad syntax", "[github\n", "reading config"},
		{"unknown repo source", "[github]\nrepo_source = \"svn\"\n", "repo_source"},
		{"unknown cache backend", "[cache]\nbackend = \"memcached\"\n", "cache.backend"},
		{"redis without address", "[cache]\nbackend = \"redis\"\n", "redis_addr"},
		{"app without installation", "[github]\napp_id = 1\nprivate_key_path = \"k.pem\"\n", "installation_id"},
		{"relative base path", "[server]\nbase_path = \"api\"\n", "base_path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(writeConfig(t, tt.content), env(nil))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want to contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestPrivateKey(t *testing.T) {
	dir := t.TempDir()
	keyPath := filepath.Join(dir, "app.pem")
	if err := os.WriteFile(keyPath, []byte("PEM"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := Default()
	if key, err := cfg.PrivateKey(); err != nil || key != "" {
		t.Errorf("PrivateKey() without app = %q, %v", key, err)
	}

	cfg.GitHub.AppID = 1
	cfg.GitHub.PrivateKeyPath = keyPath
	if key, err := cfg.PrivateKey(); err != nil || key != "PEM" {
		t.Errorf("PrivateKey() = %q, %v", key, err)
	}

	cfg.GitHub.PrivateKeyPath = filepath.Join(dir, "missing.pem")
	if _, err := cfg.PrivateKey(); err == nil {
		t.Error("expected error for missing key file")
	}
}
