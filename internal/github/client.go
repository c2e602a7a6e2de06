package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/bradleyfalzon/ghinstallation/v2"
	gogithub "github.com/google/go-github/v75/github"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"
)

// GitHubClient defines the GitHub API operations the aggregators depend on.
// This interface allows for easy mocking in tests.
type GitHubClient interface {
	ListOrgRepos(ctx context.Context, org string, page int) ([]Repository, *Response, error)
	FetchRepositories(ctx context.Context, org string, callback func([]Repository) error) error
	GetRepoSecurity(ctx context.Context, owner, repo string) (*RepoSecurity, *Response, error)
	ListDependabotAlerts(ctx context.Context, owner, repo string, opts AlertListOptions) ([]DependabotAlert, *Response, error)
	ListOrgCodeScanningAlerts(ctx context.Context, org string, opts AlertListOptions) ([]CodeScanningAlert, *Response, error)
	ListOrgSecretScanningAlerts(ctx context.Context, org string, opts AlertListOptions) ([]SecretScanningAlert, *Response, error)
	GetAdvancedSecurityCommitters(ctx context.Context, org string) (*ActiveCommitters, *Response, error)
}

// Client wraps the GitHub REST and GraphQL clients.
type Client struct {
	graphql    *githubv4.Client
	rest       *gogithub.Client
	httpClient *http.Client
	baseURL    string
}

// Ensure Client implements GitHubClient.
var _ GitHubClient = (*Client)(nil)

// NewClient creates a client authenticated with a personal access token.
// An empty token produces an unauthenticated client.
func NewClient(token, baseURL string) *Client {
	httpClient := &http.Client{}
	if token != "" {
		src := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: token},
		)
		httpClient = oauth2.NewClient(context.Background(), src)
	}
	return newClient(httpClient, baseURL)
}

// NewClientWithHTTP creates a client with a custom HTTP client and base URL (for testing).
func NewClientWithHTTP(httpClient *http.Client, baseURL string) *Client {
	return newClient(httpClient, baseURL)
}

// NewClientWithGraphQL creates a client with custom HTTP client, base URL, and GraphQL endpoint (for testing).
func NewClientWithGraphQL(httpClient *http.Client, baseURL, graphqlURL string) *Client {
	c := newClient(httpClient, baseURL)
	c.graphql = githubv4.NewEnterpriseClient(graphqlURL, httpClient)
	return c
}

// NewClientFromApp creates a client using GitHub App installation authentication.
func NewClientFromApp(appID, installationID int64, privateKey []byte, baseURL string) (*Client, error) {
	itr, err := ghinstallation.New(http.DefaultTransport, appID, installationID, privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub App transport: %w", err)
	}
	if baseURL != "" && baseURL != DefaultBaseURL {
		itr.BaseURL = strings.TrimSuffix(baseURL, "/")
	}
	return newClient(&http.Client{Transport: itr}, baseURL), nil
}

func newClient(httpClient *http.Client, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	rest := gogithub.NewClient(httpClient)
	if u, err := url.Parse(baseURL + "/"); err == nil {
		rest.BaseURL = u
	}

	var gql *githubv4.Client
	if baseURL == DefaultBaseURL {
		gql = githubv4.NewClient(httpClient)
	} else {
		gql = githubv4.NewEnterpriseClient(graphqlURL(baseURL), httpClient)
	}

	return &Client{
		graphql:    gql,
		rest:       rest,
		httpClient: httpClient,
		baseURL:    baseURL,
	}
}

// graphqlURL derives the GraphQL endpoint from a REST base URL.
// GitHub Enterprise Server serves REST at /api/v3 and GraphQL at /api/graphql.
func graphqlURL(baseURL string) string {
	if strings.HasSuffix(baseURL, "/api/v3") {
		return strings.TrimSuffix(baseURL, "/v3") + "/graphql"
	}
	return baseURL + "/graphql"
}

// Response carries the metadata of a REST response that callers act on.
type Response struct {
	StatusCode int
	Rate       Rate
	// LastPage is the page number of the rel="last" Link, or 0 when absent.
	LastPage int
}

func newResponse(resp *http.Response) *Response {
	return &Response{
		StatusCode: resp.StatusCode,
		Rate:       parseRate(resp.Header),
		LastPage:   parseLastPage(resp.Header.Get("Link")),
	}
}

// HTTPError is returned for non-2xx REST responses.
type HTTPError struct {
	StatusCode int
	Path       string
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("GET %s: status %d: %s", e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("GET %s: status %d", e.Path, e.StatusCode)
}

// IsHTTPError reports whether err is (or wraps) an *HTTPError.
func IsHTTPError(err error) bool {
	var he *HTTPError
	return errors.As(err, &he)
}

// maxErrorBody bounds how much of an error body is read for its message.
const maxErrorBody = 64 << 10

func newHTTPError(path string, resp *http.Response) *HTTPError {
	he := &HTTPError{StatusCode: resp.StatusCode, Path: path}
	var body struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxErrorBody)).Decode(&body); err == nil {
		he.Message = body.Message
	}
	return he
}

// Get performs an authenticated GET of path (relative to the base URL) and
// decodes a 2xx JSON body into v. Non-2xx statuses return an *HTTPError
// together with the response so rate-limit headers can still be observed.
func (c *Client) Get(ctx context.Context, path string, v any) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	setAPIHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	response := newResponse(resp)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return response, newHTTPError(path, resp)
	}
	if v == nil {
		return response, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return response, fmt.Errorf("decoding %s: %w", path, err)
	}
	return response, nil
}

// setAPIHeaders sets the standard GitHub API headers on a request.
func setAPIHeaders(req *http.Request) {
	req.Header.Set("Accept", AcceptHeader)
	req.Header.Set("X-GitHub-Api-Version", APIVersion)
}

var lastLinkPattern = regexp.MustCompile(`<([^>]+)>;\s*rel="last"`)

// parseLastPage extracts the page query parameter of the rel="last" link.
func parseLastPage(link string) int {
	m := lastLinkPattern.FindStringSubmatch(link)
	if len(m) != 2 {
		return 0
	}
	u, err := url.Parse(m[1])
	if err != nil {
		return 0
	}
	page, err := strconv.Atoi(u.Query().Get("page"))
	if err != nil {
		return 0
	}
	return page
}
