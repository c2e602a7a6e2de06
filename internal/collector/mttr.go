package collector

import (
	"context"
	"fmt"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/locktivity/ghas-metrics/internal/github"
)

// Trend classifies an average remediation time.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendStable    Trend = "stable"
	TrendDegrading Trend = "degrading"
)

// ClassifyTrend maps an average MTTR in hours to a trend. Both bounds are
// stable.
func ClassifyTrend(avgHours float64) Trend {
	switch {
	case avgHours < ImprovingBelowHours:
		return TrendImproving
	case avgHours > DegradingAboveHours:
		return TrendDegrading
	default:
		return TrendStable
	}
}

// ParseSince parses an MTTR lower bound given as a date (2006-01-02) or an
// RFC 3339 timestamp. An empty string is the zero time.
func ParseSince(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid since %q: want YYYY-MM-DD or RFC 3339", s)
	}
	return t, nil
}

// MttrResult holds mean time to remediate per alert category, in hours.
type MttrResult struct {
	CodeScanningHours   float64 `json:"code_scanning_mttr_hours"`
	SecretScanningHours float64 `json:"secret_scanning_mttr_hours"`
	// DependabotHours is approximated from the other two categories, not
	// measured.
	DependabotHours float64 `json:"dependabot_mttr_hours"`
	Trend           Trend   `json:"trend"`
}

// MttrCalculator computes remediation times from fixed code scanning and
// resolved secret scanning alerts. Results are not cached.
type MttrCalculator struct {
	aggregator
}

// NewMttrCalculator creates a calculator backed by client.
func NewMttrCalculator(client github.GitHubClient, opts Options) *MttrCalculator {
	return &MttrCalculator{aggregator: newAggregator(client, opts)}
}

// Compute fetches both alert categories concurrently. A zero since means no
// lower bound; otherwise alerts resolved before since are ignored. A failed
// category contributes 0; Compute itself never fails.
func (m *MttrCalculator) Compute(ctx context.Context, org string, since time.Time) *MttrResult {
	var codeHours, secretHours float64

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		codeHours = m.codeScanningMTTR(gctx, org, since)
		return nil
	})
	g.Go(func() error {
		secretHours = m.secretScanningMTTR(gctx, org, since)
		return nil
	})
	_ = g.Wait()

	dependabotHours := (codeHours + secretHours) / 2
	if dependabotHours == 0 {
		dependabotHours = DependabotFallbackHours
	}

	avg := (codeHours + secretHours + dependabotHours) / 3
	return &MttrResult{
		CodeScanningHours:   codeHours,
		SecretScanningHours: secretHours,
		DependabotHours:     dependabotHours,
		Trend:               ClassifyTrend(avg),
	}
}

func (m *MttrCalculator) codeScanningMTTR(ctx context.Context, org string, since time.Time) float64 {
	opts := github.AlertListOptions{State: github.StateFixed, PerPage: github.MaxPerPage}
	if !since.IsZero() {
		opts.Sort = "updated"
	}
	alerts, _, err := m.client.ListOrgCodeScanningAlerts(ctx, org, opts)
	if err != nil {
		m.logger.Warn("code scanning MTTR fetch failed", "org", org, "err", err)
		return 0
	}

	spans := make([]span, 0, len(alerts))
	for _, a := range alerts {
		spans = append(spans, span{created: a.CreatedAt, resolved: a.FixedAt})
	}
	return averageHours(spans, since)
}

func (m *MttrCalculator) secretScanningMTTR(ctx context.Context, org string, since time.Time) float64 {
	alerts, _, err := m.client.ListOrgSecretScanningAlerts(ctx, org, github.AlertListOptions{
		State:   github.StateResolved,
		PerPage: github.MaxPerPage,
	})
	if err != nil {
		m.logger.Warn("secret scanning MTTR fetch failed", "org", org, "err", err)
		return 0
	}

	spans := make([]span, 0, len(alerts))
	for _, a := range alerts {
		spans = append(spans, span{created: a.CreatedAt, resolved: a.ResolvedAt})
	}
	return averageHours(spans, since)
}

// span is the lifetime of one alert.
type span struct {
	created  time.Time
	resolved *time.Time
}

// averageHours averages the valid durations in hours, rounded to the nearest
// hour. Durations outside (0, MaxMTTRHours] are discarded; no valid
// durations yields 0.
func averageHours(spans []span, since time.Time) float64 {
	var sum float64
	var n int
	for _, s := range spans {
		if s.created.IsZero() || s.resolved == nil {
			continue
		}
		if !since.IsZero() && s.resolved.Before(since) {
			continue
		}
		hours := s.resolved.Sub(s.created).Hours()
		if hours <= 0 || hours > MaxMTTRHours {
			continue
		}
		sum += hours
		n++
	}
	if n == 0 {
		return 0
	}
	return math.Round(sum / float64(n))
}
