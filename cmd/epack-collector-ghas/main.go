// epack-collector-ghas collects GitHub Advanced Security metrics for an
// organization.
//
// This binary is designed to be executed by the epack collector runner.
// It uses the epack Component SDK for protocol compliance.
package main

import (
	"github.com/locktivity/epack/componentsdk"

	"github.com/locktivity/ghas-metrics/internal/collector"
	"github.com/locktivity/ghas-metrics/internal/config"
)

// Version is set at build time via -ldflags
var Version = "dev"

func main() {
	componentsdk.RunCollector(componentsdk.CollectorSpec{
		Name:        "ghas",
		Version:     Version,
		Description: "Collects GitHub Advanced Security metrics: Dependabot alerts, coverage, push protection, MTTR and committers",
	}, run)
}

func run(ctx componentsdk.CollectorContext) error {
	cfg := ctx.Config()
	opts := collector.Config{
		Organization:    getString(cfg, "organization"),
		GitHubToken:     config.ResolveToken(ctx.Secret, ""),
		AppID:           getInt64(cfg, "app_id"),
		InstallationID:  getInt64(cfg, "installation_id"),
		PrivateKey:      ctx.Secret("GITHUB_APP_PRIVATE_KEY"),
		BaseURL:         getString(cfg, "base_url"),
		RepoSource:      getString(cfg, "repo_source"),
		IncludePatterns: getStringSlice(cfg, "include_patterns"),
		ExcludePatterns: getStringSlice(cfg, "exclude_patterns"),
		Since:           getString(cfg, "since"),
	}

	if opts.Organization == "" {
		return componentsdk.NewConfigError("organization is required")
	}
	if _, err := collector.ParseSince(opts.Since); err != nil {
		return componentsdk.NewConfigError("%v", err)
	}

	hasAppAuth := opts.AppID != 0 && opts.PrivateKey != ""
	hasTokenAuth := opts.GitHubToken != ""
	if !hasAppAuth && !hasTokenAuth {
		return componentsdk.NewConfigError("authentication required: provide GITHUB_SECURITY_TOKEN, GITHUB_TOKEN or app_id + GITHUB_APP_PRIVATE_KEY")
	}

	c, err := collector.New(opts)
	if err != nil {
		return componentsdk.NewConfigError("creating collector: %v", err)
	}
	metrics, err := c.Collect(ctx.Context())
	if err != nil {
		return componentsdk.NewNetworkError("collecting GHAS metrics: %v", err)
	}

	return ctx.Emit(metrics)
}

func getString(cfg map[string]any, key string) string {
	if v, ok := cfg[key].(string); ok {
		return v
	}
	return ""
}

// getInt64 accepts the numeric types a JSON or YAML config decodes to.
func getInt64(cfg map[string]any, key string) int64 {
	switch v := cfg[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

func getStringSlice(cfg map[string]any, key string) []string {
	v, ok := cfg[key].([]any)
	if !ok {
		return nil
	}
	result := make([]string, 0, len(v))
	for _, item := range v {
		if s, ok := item.(string); ok {
			result = append(result, s)
		}
	}
	return result
}
