package collector

import (
	"cmp"
	"slices"

	"github.com/locktivity/ghas-metrics/internal/github"
)

// DependabotSummary is the organization-wide view of open Dependabot alerts.
type DependabotSummary struct {
	Total       int              `json:"total"`
	BySeverity  map[string]int   `json:"by_severity"`
	ByEcosystem map[string]int   `json:"by_ecosystem"`
	Repos       []RepoAlertCount `json:"repos"`
}

// RepoAlertCount is one repository's open alert count.
type RepoAlertCount struct {
	Name     string `json:"name"`
	Count    int    `json:"count"`
	Critical int    `json:"critical"`
}

// alertTally buckets open Dependabot alerts during a repository scan.
type alertTally struct {
	total       int
	bySeverity  map[string]int
	byEcosystem map[string]int
	repos       []RepoAlertCount
}

func newAlertTally() *alertTally {
	return &alertTally{
		bySeverity:  make(map[string]int),
		byEcosystem: make(map[string]int),
	}
}

// addRepo counts the open alerts of one repository. Repositories without
// open alerts are not recorded.
func (t *alertTally) addRepo(name string, alerts []github.DependabotAlert) {
	entry := RepoAlertCount{Name: name}
	for _, alert := range alerts {
		if alert.State != github.StateOpen {
			continue
		}
		severity := orUnknown(alert.Severity())
		t.total++
		t.bySeverity[severity]++
		t.byEcosystem[orUnknown(alert.Ecosystem())]++
		entry.Count++
		if severity == "critical" {
			entry.Critical++
		}
	}
	if entry.Count > 0 {
		t.repos = append(t.repos, entry)
	}
}

// summary returns the tally with repositories sorted by descending count.
// Ties keep scan order.
func (t *alertTally) summary() *DependabotSummary {
	repos := slices.Clone(t.repos)
	if repos == nil {
		repos = []RepoAlertCount{}
	}
	slices.SortStableFunc(repos, func(a, b RepoAlertCount) int {
		return cmp.Compare(b.Count, a.Count)
	})
	return &DependabotSummary{
		Total:       t.total,
		BySeverity:  t.bySeverity,
		ByEcosystem: t.byEcosystem,
		Repos:       repos,
	}
}

func orUnknown(s string) string {
	if s == "" {
		return UnknownBucket
	}
	return s
}
