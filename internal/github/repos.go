package github

import (
	"context"
	"fmt"
	"net/url"

	"github.com/shurcooL/githubv4"
)

// ListOrgRepos fetches one page (1-based) of the organization's repositories
// with the maximum page size.
func (c *Client) ListOrgRepos(ctx context.Context, org string, page int) ([]Repository, *Response, error) {
	path := fmt.Sprintf("/orgs/%s/repos?type=all&per_page=%d&page=%d", url.PathEscape(org), MaxPerPage, page)
	var repos []Repository
	resp, err := c.Get(ctx, path, &repos)
	if err != nil {
		return nil, resp, err
	}
	return repos, resp, nil
}

// FetchRepositories fetches all repositories for an organization through
// GraphQL cursor pagination, one page at a time via the callback.
func (c *Client) FetchRepositories(ctx context.Context, org string, callback func([]Repository) error) error {
	var cursor *githubv4.String

	for {
		var query RepositoriesQuery
		variables := map[string]interface{}{
			"org":    githubv4.String(org),
			"cursor": cursor,
		}

		if err := c.graphql.Query(ctx, &query, variables); err != nil {
			return err
		}

		if err := callback(query.Organization.Repositories.Nodes); err != nil {
			return err
		}

		if !query.Organization.Repositories.PageInfo.HasNextPage {
			break
		}
		cursor = &query.Organization.Repositories.PageInfo.EndCursor
	}

	return nil
}

// RepoSecurity holds the security_and_analysis settings of a repository.
type RepoSecurity struct {
	AdvancedSecurity             bool
	SecretScanning               bool
	SecretScanningPushProtection bool
}

type featureStatus struct {
	Status string `json:"status"`
}

func (f *featureStatus) enabled() bool {
	return f != nil && f.Status == StatusEnabled
}

// GetRepoSecurity fetches repository metadata and reads its
// security_and_analysis settings. Unlike the per-feature alert checks it reports
// failures so callers can decide whether to skip the repository.
func (c *Client) GetRepoSecurity(ctx context.Context, owner, repo string) (*RepoSecurity, *Response, error) {
	path := fmt.Sprintf("/repos/%s/%s", url.PathEscape(owner), url.PathEscape(repo))

	var result struct {
		SecurityAndAnalysis *struct {
			AdvancedSecurity             *featureStatus `json:"advanced_security"`
			SecretScanning               *featureStatus `json:"secret_scanning"`
			SecretScanningPushProtection *featureStatus `json:"secret_scanning_push_protection"`
		} `json:"security_and_analysis"`
	}
	resp, err := c.Get(ctx, path, &result)
	if err != nil {
		return nil, resp, err
	}

	settings := &RepoSecurity{}
	if sa := result.SecurityAndAnalysis; sa != nil {
		settings.AdvancedSecurity = sa.AdvancedSecurity.enabled()
		settings.SecretScanning = sa.SecretScanning.enabled()
		settings.SecretScanningPushProtection = sa.SecretScanningPushProtection.enabled()
	}
	return settings, resp, nil
}
