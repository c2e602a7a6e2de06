package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/locktivity/ghas-metrics/internal/cache"
	"github.com/locktivity/ghas-metrics/internal/github"
	"github.com/locktivity/ghas-metrics/internal/logging"
)

// Repository sources.
const (
	RepoSourceREST    = "rest"
	RepoSourceGraphQL = "graphql"
)

// Options holds the dependencies of an aggregator. Zero values select
// defaults: a private in-memory cache, DefaultCacheTTL, the default rate
// throttle, a discarding logger and REST repository listing.
type Options struct {
	Cache      cache.Cache
	TTL        time.Duration
	Throttle   *github.Throttle
	Filter     *RepoFilter
	RepoSource string
	Logger     *log.Logger
	Now        func() time.Time
	OnProgress ProgressFunc
}

// aggregator is the state shared by every aggregator type.
type aggregator struct {
	client     github.GitHubClient
	cache      cache.Cache
	ttl        time.Duration
	throttle   *github.Throttle
	filter     *RepoFilter
	repoSource string
	logger     *log.Logger
	onProgress ProgressFunc
}

func newAggregator(client github.GitHubClient, opts Options) aggregator {
	a := aggregator{
		client:     client,
		cache:      opts.Cache,
		ttl:        opts.TTL,
		throttle:   opts.Throttle,
		filter:     opts.Filter,
		repoSource: opts.RepoSource,
		logger:     opts.Logger,
		onProgress: opts.OnProgress,
	}
	if a.cache == nil {
		a.cache = cache.NewMemory(opts.Now)
	}
	if a.ttl <= 0 {
		a.ttl = DefaultCacheTTL
	}
	if a.throttle == nil {
		a.throttle = github.NewThrottle(github.DefaultRateThreshold, github.DefaultMaxRateWait)
	}
	if a.logger == nil {
		a.logger = logging.Discard()
	}
	return a
}

// loadCached decodes a live cache entry into v. Backend failures are logged
// and count as a miss.
func (a *aggregator) loadCached(ctx context.Context, key string, v any) bool {
	ok, err := cache.GetJSON(ctx, a.cache, key, v)
	if err != nil {
		a.logger.Warn("cache read failed", "key", key, "err", err)
		return false
	}
	if ok {
		a.logger.Debug("cache hit", "key", key)
	}
	return ok
}

func (a *aggregator) storeCached(ctx context.Context, key string, v any) {
	if err := cache.SetJSON(ctx, a.cache, key, v, a.ttl); err != nil {
		a.logger.Warn("cache write failed", "key", key, "err", err)
	}
}

func (a *aggregator) progress(current, total int, message string) {
	if a.onProgress != nil {
		a.onProgress(int64(current), int64(total), message)
	}
}

// listRepos enumerates the organization's repositories in listing order.
//
// The REST source requests pages of MaxPerPage and stops at an empty page, a
// short page or a non-2xx page. A transport failure aborts the listing.
func (a *aggregator) listRepos(ctx context.Context, org string, state *github.RateState) ([]github.Repository, error) {
	if a.repoSource == RepoSourceGraphQL {
		var repos []github.Repository
		err := a.client.FetchRepositories(ctx, org, func(page []github.Repository) error {
			repos = append(repos, page...)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("listing repositories of %s: %w", org, err)
		}
		return repos, nil
	}

	var repos []github.Repository
	for page := 1; ; page++ {
		batch, resp, err := a.client.ListOrgRepos(ctx, org, page)
		state.Observe(resp)
		if err != nil {
			if github.IsHTTPError(err) {
				a.logger.Warn("repository listing stopped", "org", org, "page", page, "err", err)
				break
			}
			return nil, fmt.Errorf("listing repositories of %s: %w", org, err)
		}
		repos = append(repos, batch...)
		if len(batch) < github.MaxPerPage {
			break
		}
	}
	return repos, nil
}

// SkipReason explains why a repository was left out of a multi-repo scan.
type SkipReason string

const (
	SkipExcluded              SkipReason = "excluded"
	SkipDependabotUnavailable SkipReason = "dependabot_unavailable"
	SkipMetadataUnavailable   SkipReason = "metadata_unavailable"
	SkipTransportError        SkipReason = "transport_error"
)

// skipReason classifies a per-repository fetch failure. HTTP answers mean the
// feature or data is unavailable; anything else is a transport failure.
func skipReason(err error, unavailable SkipReason) SkipReason {
	if github.IsHTTPError(err) {
		return unavailable
	}
	return SkipTransportError
}

func (a *aggregator) skip(org, repo string, reason SkipReason, err error) {
	if reason == SkipExcluded {
		a.logger.Debug("skipping repository", "org", org, "repo", repo, "reason", reason)
		return
	}
	a.logger.Warn("skipping repository", "org", org, "repo", repo, "reason", reason, "err", err)
}

// aborted reports whether a per-repository failure came from the caller's
// context rather than GitHub, in which case the scan must stop.
func aborted(ctx context.Context, err error) bool {
	return ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded))
}
