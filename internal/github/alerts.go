package github

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// AlertListOptions filters alert listings.
type AlertListOptions struct {
	State   string
	Sort    string
	PerPage int
	Page    int
}

func (o AlertListOptions) encode() string {
	q := url.Values{}
	if o.State != "" {
		q.Set("state", o.State)
	}
	if o.Sort != "" {
		q.Set("sort", o.Sort)
	}
	perPage := o.PerPage
	if perPage <= 0 || perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	q.Set("per_page", strconv.Itoa(perPage))
	if o.Page > 0 {
		q.Set("page", strconv.Itoa(o.Page))
	}
	return q.Encode()
}

// DependabotAlert is a repository Dependabot alert.
type DependabotAlert struct {
	Number           int        `json:"number"`
	State            string     `json:"state"`
	CreatedAt        time.Time  `json:"created_at"`
	FixedAt          *time.Time `json:"fixed_at"`
	DismissedAt      *time.Time `json:"dismissed_at"`
	SecurityAdvisory *struct {
		Severity string `json:"severity"`
	} `json:"security_advisory"`
	Dependency *struct {
		Package *struct {
			Ecosystem string `json:"ecosystem"`
			Name      string `json:"name"`
		} `json:"package"`
	} `json:"dependency"`
}

// Severity returns the advisory severity, or "" when absent.
func (a DependabotAlert) Severity() string {
	if a.SecurityAdvisory == nil {
		return ""
	}
	return a.SecurityAdvisory.Severity
}

// Ecosystem returns the dependency's package ecosystem, or "" when absent.
func (a DependabotAlert) Ecosystem() string {
	if a.Dependency == nil || a.Dependency.Package == nil {
		return ""
	}
	return a.Dependency.Package.Ecosystem
}

// CodeScanningAlert is an organization code scanning alert.
type CodeScanningAlert struct {
	Number    int        `json:"number"`
	State     string     `json:"state"`
	CreatedAt time.Time  `json:"created_at"`
	FixedAt   *time.Time `json:"fixed_at"`
	Rule      struct {
		Severity string `json:"severity"`
	} `json:"rule"`
	Tool struct {
		Name string `json:"name"`
	} `json:"tool"`
}

// SecretScanningAlert is an organization secret scanning alert.
type SecretScanningAlert struct {
	Number                 int        `json:"number"`
	State                  string     `json:"state"`
	SecretType             string     `json:"secret_type"`
	CreatedAt              time.Time  `json:"created_at"`
	ResolvedAt             *time.Time `json:"resolved_at"`
	PushProtectionBypassed bool       `json:"push_protection_bypassed"`
}

// ListDependabotAlerts lists a repository's Dependabot alerts.
func (c *Client) ListDependabotAlerts(ctx context.Context, owner, repo string, opts AlertListOptions) ([]DependabotAlert, *Response, error) {
	path := fmt.Sprintf("/repos/%s/%s/dependabot/alerts?%s", url.PathEscape(owner), url.PathEscape(repo), opts.encode())
	var alerts []DependabotAlert
	resp, err := c.Get(ctx, path, &alerts)
	if err != nil {
		return nil, resp, err
	}
	return alerts, resp, nil
}

// ListOrgCodeScanningAlerts lists code scanning alerts across an organization.
func (c *Client) ListOrgCodeScanningAlerts(ctx context.Context, org string, opts AlertListOptions) ([]CodeScanningAlert, *Response, error) {
	path := fmt.Sprintf("/orgs/%s/code-scanning/alerts?%s", url.PathEscape(org), opts.encode())
	var alerts []CodeScanningAlert
	resp, err := c.Get(ctx, path, &alerts)
	if err != nil {
		return nil, resp, err
	}
	return alerts, resp, nil
}

// ListOrgSecretScanningAlerts lists secret scanning alerts across an organization.
func (c *Client) ListOrgSecretScanningAlerts(ctx context.Context, org string, opts AlertListOptions) ([]SecretScanningAlert, *Response, error) {
	path := fmt.Sprintf("/orgs/%s/secret-scanning/alerts?%s", url.PathEscape(org), opts.encode())
	var alerts []SecretScanningAlert
	resp, err := c.Get(ctx, path, &alerts)
	if err != nil {
		return nil, resp, err
	}
	return alerts, resp, nil
}
