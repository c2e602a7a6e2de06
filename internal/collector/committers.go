package collector

import (
	"context"

	"github.com/locktivity/ghas-metrics/internal/cache"
	"github.com/locktivity/ghas-metrics/internal/github"
)

// GhasCommitters is the GHAS billing view of an organization.
type GhasCommitters struct {
	Total        int                  `json:"total_advanced_security_committers"`
	Maximum      int                  `json:"maximum_advanced_security_committers"`
	Repositories []RepoCommitterCount `json:"repositories"`
}

// RepoCommitterCount is one repository's active committer count.
type RepoCommitterCount struct {
	Name       string `json:"name"`
	Committers int    `json:"advanced_security_committers"`
}

// CommittersAggregator reports GHAS active committers.
type CommittersAggregator struct {
	aggregator
}

// NewCommittersAggregator creates an aggregator backed by client.
func NewCommittersAggregator(client github.GitHubClient, opts Options) *CommittersAggregator {
	return &CommittersAggregator{aggregator: newAggregator(client, opts)}
}

// Committers returns the organization's billing committers. Fetch failures
// (commonly a token without billing scope) yield a zero result.
func (c *CommittersAggregator) Committers(ctx context.Context, org string) *GhasCommitters {
	key := cache.Key(opCommitters, org)

	var cached GhasCommitters
	if c.loadCached(ctx, key, &cached) {
		if cached.Repositories == nil {
			cached.Repositories = []RepoCommitterCount{}
		}
		return &cached
	}

	result := &GhasCommitters{Repositories: []RepoCommitterCount{}}
	billing, _, err := c.client.GetAdvancedSecurityCommitters(ctx, org)
	if err != nil {
		c.logger.Warn("GHAS committers fetch failed", "org", org, "err", err)
		return result
	}

	result.Total = billing.TotalAdvancedSecurityCommitters
	result.Maximum = billing.MaximumAdvancedSecurityCommitters
	for _, r := range billing.Repositories {
		result.Repositories = append(result.Repositories, RepoCommitterCount{
			Name:       r.Name,
			Committers: r.AdvancedSecurityCommitters,
		})
	}

	c.storeCached(ctx, key, result)
	return result
}
