package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	gogithub "github.com/google/go-github/v75/github"
)

// ActiveCommitters is the GHAS billing view of an organization.
type ActiveCommitters struct {
	TotalAdvancedSecurityCommitters   int                          `json:"total_advanced_security_committers"`
	MaximumAdvancedSecurityCommitters int                          `json:"maximum_advanced_security_committers"`
	Repositories                      []RepositoryActiveCommitters `json:"repositories"`
}

// RepositoryActiveCommitters is the per-repository committer count.
type RepositoryActiveCommitters struct {
	Name                       string `json:"name"`
	AdvancedSecurityCommitters int    `json:"advanced_security_committers"`
}

// GetAdvancedSecurityCommitters fetches the organization's GHAS active
// committers through the go-github request plumbing.
func (c *Client) GetAdvancedSecurityCommitters(ctx context.Context, org string) (*ActiveCommitters, *Response, error) {
	path := fmt.Sprintf("orgs/%s/settings/billing/advanced-security", url.PathEscape(org))
	req, err := c.rest.NewRequest(http.MethodGet, path, nil)
	if err != nil {
		return nil, nil, err
	}
	setAPIHeaders(req)

	var out ActiveCommitters
	resp, err := c.rest.Do(ctx, req, &out)

	var response *Response
	if resp != nil && resp.Response != nil {
		response = newResponse(resp.Response)
	}
	if err != nil {
		if response != nil && (response.StatusCode < 200 || response.StatusCode > 299) {
			return nil, response, &HTTPError{StatusCode: response.StatusCode, Path: "/" + path, Message: errorMessage(err)}
		}
		return nil, response, fmt.Errorf("GET /%s: %w", path, err)
	}
	return &out, response, nil
}

// errorMessage extracts the API message from a go-github error.
func errorMessage(err error) string {
	if er, ok := err.(*gogithub.ErrorResponse); ok {
		return er.Message
	}
	return ""
}
