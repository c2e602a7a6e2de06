// Package collector aggregates GitHub Advanced Security metrics for an
// organization: Dependabot alert summaries, per-repository GHAS coverage,
// push protection statistics, mean time to remediate and GHAS committers.
package collector

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/locktivity/ghas-metrics/internal/cache"
)

// SchemaVersion is the version of the snapshot schema.
const SchemaVersion = "1.0.0"

// StatusFunc is called to report indeterminate status updates.
type StatusFunc func(message string)

// ProgressFunc is called to report determinate progress (current/total).
type ProgressFunc func(current, total int64, message string)

// Config holds the collector configuration.
type Config struct {
	Organization    string   `json:"organization"`
	GitHubToken     string   `json:"github_token"`    // Classic PAT
	AppID           int64    `json:"app_id"`          // GitHub App ID
	InstallationID  int64    `json:"installation_id"` // GitHub App installation ID
	PrivateKey      string   `json:"private_key"`     // GitHub App private key (PEM)
	BaseURL         string   `json:"base_url"`        // GitHub Enterprise Server REST root
	RepoSource      string   `json:"repo_source"`     // "rest" (default) or "graphql"
	IncludePatterns []string `json:"include_patterns"`
	ExcludePatterns []string `json:"exclude_patterns"`
	// Since bounds the MTTR window of a snapshot. Empty means all time.
	Since string `json:"since"`

	CacheTTL      time.Duration `json:"-"`
	RateThreshold int           `json:"-"`
	MaxRateWait   time.Duration `json:"-"`

	// Cache is a shared backend. Nil gives every aggregator its own
	// in-memory cache.
	Cache  cache.Cache      `json:"-"`
	Logger *log.Logger      `json:"-"`
	Now    func() time.Time `json:"-"`

	// Progress callbacks (optional, set by main to report status)
	OnStatus   StatusFunc   `json:"-"`
	OnProgress ProgressFunc `json:"-"`
}

// OrgMetrics is a point-in-time snapshot of an organization's GHAS metrics.
type OrgMetrics struct {
	SchemaVersion  string               `json:"schema_version"`
	CollectedAt    string               `json:"collected_at"`
	Organization   string               `json:"organization"`
	Scope          Scope                `json:"scope"`
	CoverageRates  CoverageRates        `json:"coverage_rates"`
	Dependabot     *DependabotSummary   `json:"dependabot"`
	Coverage       []RepoCoverage       `json:"coverage"`
	PushProtection *PushProtectionStats `json:"push_protection"`
	MTTR           *MttrResult          `json:"mttr"`
	Committers     *GhasCommitters      `json:"committers"`
}

// Scope describes what was included and excluded from collection.
type Scope struct {
	IncludePatterns []string `json:"include_patterns"`
	ExcludePatterns []string `json:"exclude_patterns"`
	Since           string   `json:"since,omitempty"`
}

// CoverageRates contains per-feature coverage percentages over the scanned
// repositories.
type CoverageRates struct {
	Repositories   int `json:"repositories"`
	CodeScanning   int `json:"code_scanning"`
	SecretScanning int `json:"secret_scanning"`
	Dependabot     int `json:"dependabot"`
	PushProtection int `json:"push_protection"`
	Overall        int `json:"overall"`
}

// NewOrgMetrics creates an empty snapshot stamped with now.
func NewOrgMetrics(org string, now time.Time) *OrgMetrics {
	return &OrgMetrics{
		SchemaVersion: SchemaVersion,
		CollectedAt:   now.UTC().Format(time.RFC3339),
		Organization:  org,
	}
}

// coverageRates converts per-repository coverage into percentages.
func coverageRates(repos []RepoCoverage) CoverageRates {
	var code, secret, dependabot, push int
	for _, r := range repos {
		if r.CodeScanning {
			code++
		}
		if r.SecretScanning {
			secret++
		}
		if r.Dependabot {
			dependabot++
		}
		if r.PushProtection {
			push++
		}
	}
	total := len(repos)
	rates := CoverageRates{
		Repositories:   total,
		CodeScanning:   percent(code, total),
		SecretScanning: percent(secret, total),
		Dependabot:     percent(dependabot, total),
		PushProtection: percent(push, total),
	}
	rates.Overall = percent(code+secret+dependabot+push, total*NumSecurityFeatures)
	return rates
}

// percent calculates the percentage of count over total, returning 0 if total is 0.
func percent(count, total int) int {
	if total == 0 {
		return 0
	}
	return (count * MaxPercentage) / total
}
