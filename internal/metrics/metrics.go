// Package metrics aggregates per-tier storage counters.
//
// Counters are atomic and updated on the hot path; derived values (hit
// rates, average latencies) are computed lazily on snapshot so request
// handling never pays for a division.
package metrics

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/Strob0t/TierVault/internal/domain/record"
)

// Recorder mirrors counter updates into an external metrics system.
// All methods must be cheap and non-blocking.
type Recorder interface {
	Hit(ctx context.Context, tier record.Tier)
	Miss(ctx context.Context, tier record.Tier)
	Store(ctx context.Context, tier record.Tier, bytes int)
	Evictions(ctx context.Context, tier record.Tier, n int)
	TierError(ctx context.Context, tier record.Tier)
	Latency(ctx context.Context, tier record.Tier, d time.Duration)
}

type tierCounters struct {
	hits         atomic.Int64
	misses       atomic.Int64
	stores       atomic.Int64
	evictions    atomic.Int64
	errors       atomic.Int64
	bytes        atomic.Int64
	size         atomic.Int64
	latencyNanos atomic.Int64
	latencyCount atomic.Int64
}

// Aggregator owns the counters for all four tiers.
type Aggregator struct {
	tiers [4]tierCounters
	rec   Recorder // optional
}

// New creates an Aggregator. rec may be nil.
func New(rec Recorder) *Aggregator {
	return &Aggregator{rec: rec}
}

func (a *Aggregator) Hit(ctx context.Context, t record.Tier) {
	a.tiers[t].hits.Add(1)
	if a.rec != nil {
		a.rec.Hit(ctx, t)
	}
}

func (a *Aggregator) Miss(ctx context.Context, t record.Tier) {
	a.tiers[t].misses.Add(1)
	if a.rec != nil {
		a.rec.Miss(ctx, t)
	}
}

func (a *Aggregator) Store(ctx context.Context, t record.Tier, bytes int) {
	a.tiers[t].stores.Add(1)
	a.tiers[t].bytes.Add(int64(bytes))
	if a.rec != nil {
		a.rec.Store(ctx, t, bytes)
	}
}

func (a *Aggregator) Evictions(ctx context.Context, t record.Tier, n int) {
	if n == 0 {
		return
	}
	a.tiers[t].evictions.Add(int64(n))
	if a.rec != nil {
		a.rec.Evictions(ctx, t, n)
	}
}

func (a *Aggregator) TierError(ctx context.Context, t record.Tier) {
	a.tiers[t].errors.Add(1)
	if a.rec != nil {
		a.rec.TierError(ctx, t)
	}
}

func (a *Aggregator) Latency(ctx context.Context, t record.Tier, d time.Duration) {
	a.tiers[t].latencyNanos.Add(int64(d))
	a.tiers[t].latencyCount.Add(1)
	if a.rec != nil {
		a.rec.Latency(ctx, t, d)
	}
}

// SetSize records the current entry count of a tier. Only the tiers that can
// enumerate cheaply (L1) report this; others keep the last written value.
func (a *Aggregator) SetSize(t record.Tier, n int64) {
	a.tiers[t].size.Store(n)
}

// CacheTier is the snapshot of one cache tier (L1, L2).
type CacheTier struct {
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Stores    int64   `json:"stores"`
	Evictions int64   `json:"evictions"`
	Errors    int64   `json:"errors"`
	Size      int64   `json:"size"`
	HitRate   float64 `json:"hit_rate"`
}

// RelationalTier is the snapshot of the relational tier (L3).
type RelationalTier struct {
	Queries       int64   `json:"queries"`
	Errors        int64   `json:"errors"`
	AvgResponseMs float64 `json:"avg_response_time_ms"`
	Size          int64   `json:"size"`
}

// ArchiveTier is the snapshot of the cold archive tier (L4).
type ArchiveTier struct {
	Retrievals    int64   `json:"retrievals"`
	Stores        int64   `json:"stores"`
	Errors        int64   `json:"errors"`
	AvgResponseMs float64 `json:"avg_response_time_ms"`
	TotalBytes    int64   `json:"total_bytes"`
}

// Snapshot is a point-in-time view of all tier counters with derived fields
// computed.
type Snapshot struct {
	L1 CacheTier      `json:"l1"`
	L2 CacheTier      `json:"l2"`
	L3 RelationalTier `json:"l3"`
	L4 ArchiveTier    `json:"l4"`
}

// Snapshot computes derived values and returns a consistent-enough view:
// individual counters are read atomically, not as one transaction.
func (a *Aggregator) Snapshot() Snapshot {
	return Snapshot{
		L1: a.cacheTier(record.TierMemory),
		L2: a.cacheTier(record.TierDistributed),
		L3: a.relationalTier(),
		L4: a.archiveTier(),
	}
}

func (a *Aggregator) cacheTier(t record.Tier) CacheTier {
	c := &a.tiers[t]
	hits, misses := c.hits.Load(), c.misses.Load()
	return CacheTier{
		Hits:      hits,
		Misses:    misses,
		Stores:    c.stores.Load(),
		Evictions: c.evictions.Load(),
		Errors:    c.errors.Load(),
		Size:      c.size.Load(),
		HitRate:   hitRate(hits, misses),
	}
}

func (a *Aggregator) relationalTier() RelationalTier {
	c := &a.tiers[record.TierRelational]
	return RelationalTier{
		Queries:       c.hits.Load() + c.misses.Load() + c.stores.Load(),
		Errors:        c.errors.Load(),
		AvgResponseMs: avgMs(c.latencyNanos.Load(), c.latencyCount.Load()),
		Size:          c.stores.Load(),
	}
}

func (a *Aggregator) archiveTier() ArchiveTier {
	c := &a.tiers[record.TierArchive]
	return ArchiveTier{
		Retrievals:    c.hits.Load(),
		Stores:        c.stores.Load(),
		Errors:        c.errors.Load(),
		AvgResponseMs: avgMs(c.latencyNanos.Load(), c.latencyCount.Load()),
		TotalBytes:    c.bytes.Load(),
	}
}

// hitRate is hits/(hits+misses), 0 when there has been no traffic.
func hitRate(hits, misses int64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

func avgMs(nanos, count int64) float64 {
	if count == 0 {
		return 0
	}
	return float64(nanos) / float64(count) / 1e6
}
