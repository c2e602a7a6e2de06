package collector

import (
	"context"

	"github.com/locktivity/ghas-metrics/internal/cache"
	"github.com/locktivity/ghas-metrics/internal/github"
)

// PushProtectionStats counts secret scanning alerts blocked or bypassed by
// push protection.
type PushProtectionStats struct {
	Blocked       int            `json:"blocked"`
	Bypassed      int            `json:"bypassed"`
	BypassReasons map[string]int `json:"bypassReasons"`
}

// PushProtectionAggregator summarizes organization push protection events.
type PushProtectionAggregator struct {
	aggregator
}

// NewPushProtectionAggregator creates an aggregator backed by client.
func NewPushProtectionAggregator(client github.GitHubClient, opts Options) *PushProtectionAggregator {
	return &PushProtectionAggregator{aggregator: newAggregator(client, opts)}
}

// Stats partitions the first page of open secret scanning alerts by whether
// push protection was bypassed. Fetch failures yield an all-zero result.
func (p *PushProtectionAggregator) Stats(ctx context.Context, org string) *PushProtectionStats {
	key := cache.Key(opPushProtection, org)

	var cached PushProtectionStats
	if p.loadCached(ctx, key, &cached) {
		if cached.BypassReasons == nil {
			cached.BypassReasons = map[string]int{}
		}
		return &cached
	}

	stats := &PushProtectionStats{BypassReasons: map[string]int{}}
	alerts, _, err := p.client.ListOrgSecretScanningAlerts(ctx, org, github.AlertListOptions{
		State:   github.StateOpen,
		PerPage: github.MaxPerPage,
	})
	if err != nil {
		p.logger.Warn("push protection fetch failed", "org", org, "err", err)
		return stats
	}

	for _, alert := range alerts {
		if alert.PushProtectionBypassed {
			stats.Bypassed++
			stats.BypassReasons[ReasonManualBypass]++
		} else {
			stats.Blocked++
		}
	}

	p.storeCached(ctx, key, stats)
	return stats
}
