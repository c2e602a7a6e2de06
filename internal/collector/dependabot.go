package collector

import (
	"context"
	"fmt"

	"github.com/locktivity/ghas-metrics/internal/cache"
	"github.com/locktivity/ghas-metrics/internal/github"
)

// DependabotAggregator summarizes open Dependabot alerts across an
// organization.
type DependabotAggregator struct {
	aggregator
}

// NewDependabotAggregator creates an aggregator backed by client.
func NewDependabotAggregator(client github.GitHubClient, opts Options) *DependabotAggregator {
	return &DependabotAggregator{aggregator: newAggregator(client, opts)}
}

// Summary returns the cached summary for org while it is fresh, otherwise
// walks every repository sequentially and caches the result.
//
// Repositories whose alerts cannot be fetched are skipped. Only a failure
// to list the organization's repositories is returned as an error.
func (d *DependabotAggregator) Summary(ctx context.Context, org string) (*DependabotSummary, error) {
	key := cache.Key(opDependabot, org)

	var cached DependabotSummary
	if d.loadCached(ctx, key, &cached) {
		return &cached, nil
	}

	state := github.NewRateState()
	repos, err := d.listRepos(ctx, org, state)
	if err != nil {
		return nil, err
	}

	tally := newAlertTally()
	for i, repo := range repos {
		d.progress(i+1, len(repos), fmt.Sprintf("Fetching Dependabot alerts for %s", repo.Name))

		if !d.filter.Includes(repo.Name) {
			d.skip(org, repo.Name, SkipExcluded, nil)
			continue
		}
		if _, err := d.throttle.Wait(ctx, state); err != nil {
			return nil, err
		}

		alerts, resp, err := d.client.ListDependabotAlerts(ctx, org, repo.Name, github.AlertListOptions{
			State:   github.StateOpen,
			PerPage: github.MaxPerPage,
		})
		state.Observe(resp)
		if err != nil {
			if aborted(ctx, err) {
				return nil, err
			}
			d.skip(org, repo.Name, skipReason(err, SkipDependabotUnavailable), err)
			continue
		}
		tally.addRepo(repo.Name, alerts)
	}

	summary := tally.summary()
	d.storeCached(ctx, key, summary)
	return summary, nil
}
