// Package service implements the tiered storage core: the coordinator that
// routes reads and writes across the four tiers, the access pattern tracker,
// and the background lifecycle manager.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Strob0t/TierVault/internal/config"
	"github.com/Strob0t/TierVault/internal/domain/access"
	"github.com/Strob0t/TierVault/internal/domain/record"
	"github.com/Strob0t/TierVault/internal/metrics"
	"github.com/Strob0t/TierVault/internal/port/tier"
)

// Sizer is implemented by tier stores that can report their entry count
// cheaply (the in-process L1).
type Sizer interface {
	Len() int
}

// Tiers bundles the four tier stores in read order for coordinator wiring.
type Tiers struct {
	L1 tier.Store
	L2 tier.Store
	L3 tier.Store
	L4 tier.Store
}

func (t Tiers) byTier(tr record.Tier) tier.Store {
	switch tr {
	case record.TierMemory:
		return t.L1
	case record.TierDistributed:
		return t.L2
	case record.TierRelational:
		return t.L3
	default:
		return t.L4
	}
}

// Coordinator is the façade over the storage hierarchy. Reads walk the tiers
// cheapest-first and promote on the way back; writes fan out concurrently to
// a priority-selected subset of tiers.
type Coordinator struct {
	tiers   Tiers
	tracker *Tracker
	metrics *metrics.Aggregator

	defaultTTL    time.Duration
	promoteL2Freq float64
	promoteL1Freq float64

	now func() time.Time
}

// NewCoordinator wires the coordinator. No background work starts here; the
// lifecycle manager is constructed and started separately.
func NewCoordinator(cfg config.Cache, tiers Tiers, tracker *Tracker, agg *metrics.Aggregator) *Coordinator {
	return &Coordinator{
		tiers:         tiers,
		tracker:       tracker,
		metrics:       agg,
		defaultTTL:    cfg.DefaultTTL,
		promoteL2Freq: cfg.PromoteL2Freq,
		promoteL1Freq: cfg.PromoteL1Freq,
		now:           time.Now,
	}
}

// SetNow overrides the clock. Test use only.
func (c *Coordinator) SetNow(now func() time.Time) { c.now = now }

// Retrieve walks the tiers in increasing-latency order and returns the first
// hit. A tier error counts as a miss for that tier: the read path degrades
// through the hierarchy rather than failing. Returns record.ErrNotFound when
// every tier missed or errored.
func (c *Coordinator) Retrieve(ctx context.Context, key record.Key) ([]byte, error) {
	for _, t := range record.ReadOrder {
		store := c.tiers.byTier(t)

		start := c.now()
		val, ok, err := store.Get(ctx, key)
		c.metrics.Latency(ctx, t, c.now().Sub(start))

		if err != nil {
			c.metrics.TierError(ctx, t)
			slog.Warn("tier read failed, falling through",
				"tier", t.String(), "key", key.String(), "error", err)
			continue
		}
		if !ok {
			c.metrics.Miss(ctx, t)
			continue
		}

		c.metrics.Hit(ctx, t)
		pattern := c.tracker.Observe(key.RecordID)
		c.promote(ctx, key, val, t, pattern)
		return val, nil
	}

	return nil, fmt.Errorf("retrieve %s: %w", key, record.ErrNotFound)
}

// promote copies a value resolved from a slow tier into faster ones.
// Promotion failures only cost future latency, so they are logged and
// swallowed.
func (c *Coordinator) promote(ctx context.Context, key record.Key, val []byte, hitTier record.Tier, pattern access.Pattern) {
	switch hitTier {
	case record.TierMemory:
		// Already in the fastest tier.

	case record.TierDistributed:
		c.promoteTo(ctx, record.TierMemory, key, val)

	case record.TierRelational:
		freq := pattern.Frequency(c.now())
		if freq > c.promoteL2Freq {
			c.promoteTo(ctx, record.TierDistributed, key, val)
		}
		if freq > c.promoteL1Freq {
			c.promoteTo(ctx, record.TierMemory, key, val)
		}

	case record.TierArchive:
		// Restore the row into the relational tier and warm the
		// distributed cache so the next read stops far earlier.
		c.promoteTo(ctx, record.TierRelational, key, val)
		c.promoteTo(ctx, record.TierDistributed, key, val)
	}
}

func (c *Coordinator) promoteTo(ctx context.Context, t record.Tier, key record.Key, val []byte) {
	if err := c.tiers.byTier(t).Put(ctx, key, val, c.defaultTTL); err != nil {
		c.metrics.TierError(ctx, t)
		slog.Warn("promotion failed", "tier", t.String(), "key", key.String(), "error", err)
		return
	}
	c.metrics.Store(ctx, t, len(val))
	slog.Debug("promoted", "tier", t.String(), "key", key.String())
}

// Store fans the write out concurrently to every tier the options select and
// waits for all of them to settle. It returns true iff at least one tier
// accepted the write. Partial failures are logged, never rolled back:
// availability is deliberately favored over cross-tier consistency, and
// callers needing strict durability must verify separately.
func (c *Coordinator) Store(ctx context.Context, key record.Key, data []byte, opts record.StoreOptions) bool {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	targets := opts.Placement()
	results := make([]error, len(targets))

	var g errgroup.Group
	for i, t := range targets {
		g.Go(func() error {
			start := c.now()
			err := c.tiers.byTier(t).Put(ctx, key, data, ttl)
			c.metrics.Latency(ctx, t, c.now().Sub(start))
			results[i] = err
			return nil
		})
	}
	_ = g.Wait()

	c.tracker.Observe(key.RecordID)

	stored := false
	for i, err := range results {
		t := targets[i]
		if err != nil {
			c.metrics.TierError(ctx, t)
			slog.Warn("tier write failed",
				"tier", t.String(), "key", key.String(), "error", err)
			continue
		}
		c.metrics.Store(ctx, t, len(data))
		stored = true
	}
	return stored
}

// Delete removes the key from every tier, best effort. The first error is
// returned after all tiers have been attempted.
func (c *Coordinator) Delete(ctx context.Context, key record.Key) error {
	var firstErr error
	for _, t := range record.ReadOrder {
		if err := c.tiers.byTier(t).Delete(ctx, key); err != nil {
			c.metrics.TierError(ctx, t)
			slog.Warn("tier delete failed", "tier", t.String(), "key", key.String(), "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Metrics returns a snapshot of the per-tier counters.
func (c *Coordinator) Metrics() metrics.Snapshot {
	if sizer, ok := c.tiers.L1.(Sizer); ok {
		c.metrics.SetSize(record.TierMemory, int64(sizer.Len()))
	}
	return c.metrics.Snapshot()
}

// PatternAnalysis returns the temperature histogram of tracked records.
func (c *Coordinator) PatternAnalysis() access.Analysis {
	return c.tracker.Analysis()
}

// Close flushes the access-pattern state to the relational tier. The caller
// must stop the lifecycle manager first so no maintenance pass races the
// flush.
func (c *Coordinator) Close(ctx context.Context) error {
	return c.tracker.Flush(ctx)
}
