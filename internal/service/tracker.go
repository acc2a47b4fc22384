package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Strob0t/TierVault/internal/domain/access"
	"github.com/Strob0t/TierVault/internal/port/database"
)

// Tracker maintains the in-memory access pattern for every record the
// coordinator has seen. Patterns are loaded from the relational tier at
// startup and flushed back in one transaction at shutdown; between those
// points the map here is authoritative.
type Tracker struct {
	mu       sync.Mutex
	patterns map[string]*access.Pattern

	db  database.Store
	now func() time.Time
}

// NewTracker creates an empty Tracker over the given persistence store.
func NewTracker(db database.Store) *Tracker {
	return &Tracker{
		patterns: make(map[string]*access.Pattern),
		db:       db,
		now:      time.Now,
	}
}

// SetNow overrides the clock. Test use only.
func (t *Tracker) SetNow(now func() time.Time) { t.now = now }

// Observe records one access. The first observation creates the pattern;
// later ones increment the counter and move the recency timestamp.
// Returns a copy of the updated pattern.
func (t *Tracker) Observe(recordID string) access.Pattern {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	p, ok := t.patterns[recordID]
	if !ok {
		p = &access.Pattern{
			RecordID:        recordID,
			FirstAccessedAt: now,
		}
		t.patterns[recordID] = p
	}
	p.AccessCount++
	p.LastAccessedAt = now
	return *p
}

// Frequency returns the access frequency for a record, 0 if never observed.
func (t *Tracker) Frequency(recordID string) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.patterns[recordID]
	if !ok {
		return 0
	}
	return p.Frequency(t.now())
}

// Temperature classifies a record. Records with no tracked pattern classify
// by the fallback timestamp alone (typically the catalog row's update time).
func (t *Tracker) Temperature(recordID string, fallback time.Time) access.Temperature {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if p, ok := t.patterns[recordID]; ok {
		return access.Classify(p.AccessCount, p.LastAccessedAt, now)
	}
	return access.Classify(0, fallback, now)
}

// Analysis buckets every tracked record by temperature.
func (t *Tracker) Analysis() access.Analysis {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	var a access.Analysis
	for _, p := range t.patterns {
		switch access.Classify(p.AccessCount, p.LastAccessedAt, now) {
		case access.Hot:
			a.Hot++
		case access.Warm:
			a.Warm++
		case access.Cool:
			a.Cool++
		case access.Cold:
			a.Cold++
		}
		a.Total++
	}
	return a
}

// Load restores the persisted pattern snapshot. Called once at startup,
// before request traffic.
func (t *Tracker) Load(ctx context.Context) error {
	patterns, err := t.db.LoadPatterns(ctx)
	if err != nil {
		return fmt.Errorf("load access patterns: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, p := range patterns {
		p := p
		t.patterns[p.RecordID] = &p
	}
	slog.Info("access patterns restored", "count", len(patterns))
	return nil
}

// Flush persists every tracked pattern in one transaction. Called at
// graceful shutdown, after the lifecycle manager has stopped.
func (t *Tracker) Flush(ctx context.Context) error {
	t.mu.Lock()
	snapshot := make([]access.Pattern, 0, len(t.patterns))
	for _, p := range t.patterns {
		snapshot = append(snapshot, *p)
	}
	t.mu.Unlock()

	if len(snapshot) == 0 {
		return nil
	}
	if err := t.db.SavePatterns(ctx, snapshot); err != nil {
		return fmt.Errorf("flush access patterns: %w", err)
	}
	slog.Info("access patterns flushed", "count", len(snapshot))
	return nil
}
