package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/locktivity/ghas-metrics/internal/cache"
	"github.com/locktivity/ghas-metrics/internal/github"
	"github.com/locktivity/ghas-metrics/internal/logging"
)

// Collector owns the aggregators for one GitHub installation and serves
// both single-metric requests and full organization snapshots.
type Collector struct {
	client github.GitHubClient
	config Config

	dependabot     *DependabotAggregator
	coverage       *CoverageScanner
	pushProtection *PushProtectionAggregator
	mttr           *MttrCalculator
	committers     *CommittersAggregator

	mu sync.Mutex // serializes status and progress callbacks
}

// status reports an indeterminate status update.
func (c *Collector) status(message string) {
	if c.config.OnStatus == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.config.OnStatus(message)
}

// progress reports a determinate progress update.
func (c *Collector) progress(current, total int64, message string) {
	if c.config.OnProgress == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.config.OnProgress(current, total, message)
}

// New creates a new Collector with the given configuration.
// It supports three authentication methods:
//   - GitHub App: Set AppID, InstallationID, and PrivateKey
//   - Personal access token: Set GitHubToken
//   - Anonymous: neither, limited to public data and low rate limits
func New(config Config) (*Collector, error) {
	var client github.GitHubClient

	if config.AppID != 0 && config.PrivateKey != "" {
		if config.InstallationID == 0 {
			return nil, fmt.Errorf("installation_id is required when using GitHub App authentication")
		}
		appClient, err := github.NewClientFromApp(
			config.AppID,
			config.InstallationID,
			[]byte(config.PrivateKey),
			config.BaseURL,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create GitHub App client: %w", err)
		}
		client = appClient
	} else {
		client = github.NewClient(config.GitHubToken, config.BaseURL)
	}

	return NewWithClient(config, client)
}

// NewWithClient creates a Collector with a custom client (for testing).
func NewWithClient(config Config, client github.GitHubClient) (*Collector, error) {
	switch config.RepoSource {
	case "", RepoSourceREST, RepoSourceGraphQL:
	default:
		return nil, fmt.Errorf("unknown repo_source %q", config.RepoSource)
	}

	filter, err := NewRepoFilter(config.IncludePatterns, config.ExcludePatterns)
	if err != nil {
		return nil, err
	}
	if config.Logger == nil {
		config.Logger = logging.Discard()
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	c := &Collector{client: client, config: config}

	opts := func(component string) Options {
		return Options{
			Cache:      c.cacheFor(),
			TTL:        config.CacheTTL,
			Throttle:   github.NewThrottle(config.RateThreshold, config.MaxRateWait),
			Filter:     filter,
			RepoSource: config.RepoSource,
			Logger:     config.Logger.With("component", component),
			Now:        config.Now,
			OnProgress: c.progress,
		}
	}
	c.dependabot = NewDependabotAggregator(client, opts("dependabot"))
	c.coverage = NewCoverageScanner(client, opts("coverage"))
	c.pushProtection = NewPushProtectionAggregator(client, opts("push-protection"))
	c.mttr = NewMttrCalculator(client, opts("mttr"))
	c.committers = NewCommittersAggregator(client, opts("committers"))

	return c, nil
}

// cacheFor returns the cache of one aggregator: a private memory cache, or
// a namespaced view of the shared backend.
func (c *Collector) cacheFor() cache.Cache {
	if c.config.Cache == nil {
		return cache.NewMemory(c.config.Now)
	}
	return cache.WithPrefix(c.config.Cache, CachePrefix)
}

// DependabotSummary aggregates open Dependabot alerts for org.
func (c *Collector) DependabotSummary(ctx context.Context, org string) (*DependabotSummary, error) {
	return c.dependabot.Summary(ctx, org)
}

// Coverage scans the GHAS coverage of every repository in org.
func (c *Collector) Coverage(ctx context.Context, org string) ([]RepoCoverage, error) {
	return c.coverage.Coverage(ctx, org)
}

// PushProtection summarizes push protection events for org.
func (c *Collector) PushProtection(ctx context.Context, org string) *PushProtectionStats {
	return c.pushProtection.Stats(ctx, org)
}

// MTTR computes remediation times for org since the given time.
func (c *Collector) MTTR(ctx context.Context, org string, since time.Time) *MttrResult {
	return c.mttr.Compute(ctx, org, since)
}

// Committers reports GHAS active committers for org.
func (c *Collector) Committers(ctx context.Context, org string) *GhasCommitters {
	return c.committers.Committers(ctx, org)
}

// Collect gathers every metric for the configured organization concurrently.
// Dependabot and coverage scan failures fail the snapshot; the org-level
// metrics degrade to zero values instead.
func (c *Collector) Collect(ctx context.Context) (*OrgMetrics, error) {
	org := c.config.Organization
	if org == "" {
		return nil, errors.New("organization is required")
	}
	since, err := ParseSince(c.config.Since)
	if err != nil {
		return nil, err
	}

	metrics := NewOrgMetrics(org, c.config.Now())
	metrics.Scope = c.scope()

	c.status(fmt.Sprintf("Connecting to GitHub org %s...", org))
	done := logging.NewProgress(c.config.Logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c.status("Aggregating Dependabot alerts...")
		summary, err := c.DependabotSummary(gctx, org)
		if err != nil {
			return fmt.Errorf("dependabot summary: %w", err)
		}
		metrics.Dependabot = summary
		return nil
	})
	g.Go(func() error {
		c.status("Scanning repository coverage...")
		coverage, err := c.Coverage(gctx, org)
		if err != nil {
			return fmt.Errorf("coverage scan: %w", err)
		}
		metrics.Coverage = coverage
		return nil
	})
	g.Go(func() error {
		metrics.PushProtection = c.PushProtection(gctx, org)
		return nil
	})
	g.Go(func() error {
		metrics.MTTR = c.MTTR(gctx, org, since)
		return nil
	})
	g.Go(func() error {
		metrics.Committers = c.Committers(gctx, org)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	metrics.CoverageRates = coverageRates(metrics.Coverage)

	done.Done("collection complete", "org", org, "repositories", len(metrics.Coverage))
	c.status("Collection complete")

	return metrics, nil
}

func (c *Collector) scope() Scope {
	include := c.config.IncludePatterns
	if len(include) == 0 {
		include = []string{DefaultIncludePattern}
	}
	exclude := c.config.ExcludePatterns
	if exclude == nil {
		exclude = []string{}
	}
	return Scope{
		IncludePatterns: include,
		ExcludePatterns: exclude,
		Since:           c.config.Since,
	}
}
