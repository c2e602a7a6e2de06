package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/locktivity/ghas-metrics/internal/github"
)

// mockGitHubClient implements github.GitHubClient for testing.
type mockGitHubClient struct {
	mu sync.Mutex

	repoPages   map[int][]github.Repository // REST listing, 1-based pages
	repoPageErr map[int]error
	graphql     [][]github.Repository
	graphqlErr  error

	security    map[string]*github.RepoSecurity // key: repo name
	securityErr map[string]error

	dependabot     map[string][]github.DependabotAlert
	dependabotErr  map[string]error
	dependabotLast map[string]int // Link rel="last" page per repo

	codeScanning      []github.CodeScanningAlert
	codeScanningErr   error
	secretScanning    []github.SecretScanningAlert
	secretScanningErr error

	committers    *github.ActiveCommitters
	committersErr error

	// rate is attached to every response when set.
	rate *github.Rate

	calls          map[string]int
	dependabotOpts []github.AlertListOptions
	codeOpts       github.AlertListOptions
	secretOpts     github.AlertListOptions
}

var _ github.GitHubClient = (*mockGitHubClient)(nil)

var errTransport = errors.New("connection reset by peer")

func httpError(status int) error {
	return &github.HTTPError{StatusCode: status, Path: "/mock", Message: "mock"}
}

func (m *mockGitHubClient) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[call]++
}

func (m *mockGitHubClient) callCount(call string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[call]
}

func (m *mockGitHubClient) totalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.calls {
		total += n
	}
	return total
}

func (m *mockGitHubClient) response(lastPage int) *github.Response {
	resp := &github.Response{StatusCode: 200, LastPage: lastPage}
	if m.rate != nil {
		resp.Rate = *m.rate
	}
	return resp
}

func (m *mockGitHubClient) ListOrgRepos(ctx context.Context, org string, page int) ([]github.Repository, *github.Response, error) {
	m.record("ListOrgRepos")
	if err := m.repoPageErr[page]; err != nil {
		return nil, m.response(0), err
	}
	return m.repoPages[page], m.response(0), nil
}

func (m *mockGitHubClient) FetchRepositories(ctx context.Context, org string, callback func([]github.Repository) error) error {
	m.record("FetchRepositories")
	if m.graphqlErr != nil {
		return m.graphqlErr
	}
	for _, page := range m.graphql {
		if err := callback(page); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockGitHubClient) GetRepoSecurity(ctx context.Context, owner, repo string) (*github.RepoSecurity, *github.Response, error) {
	m.record("GetRepoSecurity")
	if err := m.securityErr[repo]; err != nil {
		return nil, m.response(0), err
	}
	if s, ok := m.security[repo]; ok {
		return s, m.response(0), nil
	}
	return &github.RepoSecurity{}, m.response(0), nil
}

func (m *mockGitHubClient) ListDependabotAlerts(ctx context.Context, owner, repo string, opts github.AlertListOptions) ([]github.DependabotAlert, *github.Response, error) {
	m.record("ListDependabotAlerts")
	m.mu.Lock()
	m.dependabotOpts = append(m.dependabotOpts, opts)
	m.mu.Unlock()

	if err := m.dependabotErr[repo]; err != nil {
		return nil, m.response(0), err
	}
	alerts := m.dependabot[repo]
	if opts.PerPage > 0 && len(alerts) > opts.PerPage {
		alerts = alerts[:opts.PerPage]
	}
	return alerts, m.response(m.dependabotLast[repo]), nil
}

func (m *mockGitHubClient) ListOrgCodeScanningAlerts(ctx context.Context, org string, opts github.AlertListOptions) ([]github.CodeScanningAlert, *github.Response, error) {
	m.record("ListOrgCodeScanningAlerts")
	m.mu.Lock()
	m.codeOpts = opts
	m.mu.Unlock()
	if m.codeScanningErr != nil {
		return nil, m.response(0), m.codeScanningErr
	}
	return m.codeScanning, m.response(0), nil
}

func (m *mockGitHubClient) ListOrgSecretScanningAlerts(ctx context.Context, org string, opts github.AlertListOptions) ([]github.SecretScanningAlert, *github.Response, error) {
	m.record("ListOrgSecretScanningAlerts")
	m.mu.Lock()
	m.secretOpts = opts
	m.mu.Unlock()
	if m.secretScanningErr != nil {
		return nil, m.response(0), m.secretScanningErr
	}
	return m.secretScanning, m.response(0), nil
}

func (m *mockGitHubClient) GetAdvancedSecurityCommitters(ctx context.Context, org string) (*github.ActiveCommitters, *github.Response, error) {
	m.record("GetAdvancedSecurityCommitters")
	if m.committersErr != nil {
		return nil, m.response(0), m.committersErr
	}
	if m.committers == nil {
		return &github.ActiveCommitters{}, m.response(0), nil
	}
	return m.committers, m.response(0), nil
}

// repos returns a single REST listing page holding the named repositories.
func repos(names ...string) map[int][]github.Repository {
	page := make([]github.Repository, 0, len(names))
	for _, n := range names {
		page = append(page, github.Repository{Name: n})
	}
	return map[int][]github.Repository{1: page}
}

// numberedRepos returns n repositories named repo-000, repo-001, ...
func numberedRepos(n int) []github.Repository {
	out := make([]github.Repository, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, github.Repository{Name: fmt.Sprintf("repo-%03d", i)})
	}
	return out
}

// dependabotAlert builds an alert the way the API would encode it; empty
// severity or ecosystem leaves the field absent.
func dependabotAlert(state, severity, ecosystem string) github.DependabotAlert {
	raw := map[string]any{"number": 1, "state": state}
	if severity != "" {
		raw["security_advisory"] = map[string]any{"severity": severity}
	}
	if ecosystem != "" {
		raw["dependency"] = map[string]any{"package": map[string]any{"ecosystem": ecosystem, "name": "pkg"}}
	}
	data, err := json.Marshal(raw)
	if err != nil {
		panic(err)
	}
	var a github.DependabotAlert
	if err := json.Unmarshal(data, &a); err != nil {
		panic(err)
	}
	return a
}

func openAlert(severity, ecosystem string) github.DependabotAlert {
	return dependabotAlert(github.StateOpen, severity, ecosystem)
}

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// noSleepThrottle records requested waits without sleeping.
func noSleepThrottle(now func() time.Time, slept *[]time.Duration) *github.Throttle {
	return &github.Throttle{
		Now: now,
		Sleep: func(ctx context.Context, d time.Duration) error {
			*slept = append(*slept, d)
			return nil
		},
	}
}
