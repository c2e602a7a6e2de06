package collector

import (
	"context"
	"fmt"

	"github.com/locktivity/ghas-metrics/internal/cache"
	"github.com/locktivity/ghas-metrics/internal/github"
)

// RepoCoverage is the GHAS feature coverage of one repository.
type RepoCoverage struct {
	Name           string `json:"name"`
	CodeScanning   bool   `json:"codeScanning"`
	SecretScanning bool   `json:"secretScanning"`
	Dependabot     bool   `json:"dependabot"`
	PushProtection bool   `json:"pushProtection"`
	OpenAlerts     int    `json:"openAlerts"`
}

// CoverageScanner checks every repository of an organization for its
// enabled GHAS features.
type CoverageScanner struct {
	aggregator
}

// NewCoverageScanner creates a scanner backed by client.
func NewCoverageScanner(client github.GitHubClient, opts Options) *CoverageScanner {
	return &CoverageScanner{aggregator: newAggregator(client, opts)}
}

// Coverage returns one entry per scanned repository in listing order.
//
// Any failed fetch for a repository, metadata or Dependabot alerts, leaves
// that repository out of the result entirely.
func (s *CoverageScanner) Coverage(ctx context.Context, org string) ([]RepoCoverage, error) {
	key := cache.Key(opCoverage, org)

	var cached []RepoCoverage
	if s.loadCached(ctx, key, &cached) {
		return cached, nil
	}

	state := github.NewRateState()
	repos, err := s.listRepos(ctx, org, state)
	if err != nil {
		return nil, err
	}

	result := []RepoCoverage{}
	for i, repo := range repos {
		s.progress(i+1, len(repos), fmt.Sprintf("Checking GHAS coverage for %s", repo.Name))

		if !s.filter.Includes(repo.Name) {
			s.skip(org, repo.Name, SkipExcluded, nil)
			continue
		}
		cov, reason, err := s.scanRepo(ctx, org, repo.Name, state)
		if err != nil {
			if aborted(ctx, err) {
				return nil, err
			}
			s.skip(org, repo.Name, reason, err)
			continue
		}
		result = append(result, *cov)
	}

	s.storeCached(ctx, key, result)
	return result, nil
}

func (s *CoverageScanner) scanRepo(ctx context.Context, org, name string, state *github.RateState) (*RepoCoverage, SkipReason, error) {
	if _, err := s.throttle.Wait(ctx, state); err != nil {
		return nil, SkipTransportError, err
	}
	security, resp, err := s.client.GetRepoSecurity(ctx, org, name)
	state.Observe(resp)
	if err != nil {
		return nil, skipReason(err, SkipMetadataUnavailable), err
	}

	cov := &RepoCoverage{
		Name:           name,
		CodeScanning:   security.AdvancedSecurity,
		SecretScanning: security.SecretScanning,
		PushProtection: security.SecretScanningPushProtection,
	}

	if _, err := s.throttle.Wait(ctx, state); err != nil {
		return nil, SkipTransportError, err
	}
	alerts, resp, err := s.client.ListDependabotAlerts(ctx, org, name, github.AlertListOptions{
		State:   github.StateOpen,
		PerPage: 1,
	})
	state.Observe(resp)
	if err != nil {
		return nil, skipReason(err, SkipDependabotUnavailable), err
	}
	cov.Dependabot = true
	cov.OpenAlerts = len(alerts)
	if resp != nil && resp.LastPage > 0 {
		cov.OpenAlerts = resp.LastPage
	}
	return cov, "", nil
}
