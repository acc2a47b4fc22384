package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Strob0t/TierVault/internal/config"
	"github.com/Strob0t/TierVault/internal/domain/access"
	"github.com/Strob0t/TierVault/internal/domain/record"
	"github.com/Strob0t/TierVault/internal/metrics"
	"github.com/Strob0t/TierVault/internal/port/archive"
	"github.com/Strob0t/TierVault/internal/port/database"
	"github.com/Strob0t/TierVault/internal/port/tier"
)

// Sweeper is the L1 maintenance surface: evict expired entries, report the
// count.
type Sweeper interface {
	Sweep() int
}

// Report summarizes one lifecycle run.
type Report struct {
	Evicted  int `json:"evicted"`
	Expired  int `json:"expired"`
	Migrated int `json:"migrated"`
}

// Lifecycle runs the periodic maintenance passes: the L1 expiry sweep, the
// stale-row cleanup and the cold migration. It runs on its own goroutine and
// shares the database pool with request traffic, which is why every scan is
// batch-bounded.
type Lifecycle struct {
	sweeper Sweeper
	l2      tier.Store
	db      database.Store
	archive archive.Store
	tracker *Tracker
	metrics *metrics.Aggregator

	interval  time.Duration
	retention time.Duration
	cutoff    time.Duration
	batchSize int

	now func() time.Time

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	done      chan struct{}
}

// NewLifecycle wires the lifecycle manager. Call Start to begin the timer.
func NewLifecycle(cfg config.Lifecycle, sweeper Sweeper, l2 tier.Store, db database.Store, ar archive.Store, tracker *Tracker, agg *metrics.Aggregator) *Lifecycle {
	return &Lifecycle{
		sweeper:   sweeper,
		l2:        l2,
		db:        db,
		archive:   ar,
		tracker:   tracker,
		metrics:   agg,
		interval:  cfg.Interval,
		retention: cfg.Retention,
		cutoff:    cfg.MigrationCutoff,
		batchSize: cfg.BatchSize,
		now:       time.Now,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// SetNow overrides the clock. Test use only.
func (l *Lifecycle) SetNow(now func() time.Time) { l.now = now }

// Start launches the maintenance timer on its own goroutine. Idempotent.
func (l *Lifecycle) Start() {
	l.startOnce.Do(func() {
		go l.loop()
		slog.Info("lifecycle manager started", "interval", l.interval)
	})
}

// Stop halts the timer and waits for any in-flight run to finish. Idempotent.
func (l *Lifecycle) Stop() {
	l.stopOnce.Do(func() {
		close(l.stop)
		<-l.done
		slog.Info("lifecycle manager stopped")
	})
}

func (l *Lifecycle) loop() {
	defer close(l.done)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			if _, err := l.Run(context.Background()); err != nil {
				slog.Error("lifecycle run failed", "error", err)
			}
		}
	}
}

// Run executes one full maintenance cycle: sweep, cleanup, migrate. Each
// pass is isolated so one failing record (or one failing pass) never aborts
// the rest; the joined error reports pass-level failures only.
func (l *Lifecycle) Run(ctx context.Context) (Report, error) {
	runID := uuid.NewString()
	log := slog.With("lifecycle_run", runID)

	var rep Report
	var errs []error

	rep.Evicted = l.sweepMemory(ctx, log)

	expired, err := l.cleanupExpired(ctx, log)
	rep.Expired = expired
	if err != nil {
		errs = append(errs, fmt.Errorf("cleanup expired: %w", err))
	}

	migrated, err := l.migrateCold(ctx, log)
	rep.Migrated = migrated
	if err != nil {
		errs = append(errs, fmt.Errorf("migrate cold: %w", err))
	}

	log.Info("lifecycle run complete",
		"evicted", rep.Evicted, "expired", rep.Expired, "migrated", rep.Migrated)
	return rep, errors.Join(errs...)
}

// sweepMemory evicts expired L1 entries.
func (l *Lifecycle) sweepMemory(ctx context.Context, log *slog.Logger) int {
	evicted := l.sweeper.Sweep()
	l.metrics.Evictions(ctx, record.TierMemory, evicted)
	if evicted > 0 {
		log.Debug("memory sweep", "evicted", evicted)
	}
	return evicted
}

// cleanupExpired deletes relational rows past the retention window and
// purges the matching distributed-cache keys best effort. The distributed
// tier additionally ages entries out on its own bucket TTL.
func (l *Lifecycle) cleanupExpired(ctx context.Context, log *slog.Logger) (int, error) {
	cutoff := l.now().Add(-l.retention)
	keys, err := l.db.DeleteCatalogOlderThan(ctx, record.TierRelational, cutoff, l.batchSize)
	if err != nil {
		return 0, err
	}

	for _, key := range keys {
		if err := l.l2.Delete(ctx, key); err != nil {
			log.Warn("distributed cache purge failed", "key", key.String(), "error", err)
		}
	}

	if len(keys) > 0 {
		log.Info("expired rows removed", "count", len(keys))
	}
	return len(keys), nil
}

// migrateCold moves cold relational rows down to the archive. The order is
// strict: upload, record the archive row, and only then delete the source
// row. A crash mid-record can duplicate archived bytes but never lose them,
// and content addressing makes re-uploads idempotent.
func (l *Lifecycle) migrateCold(ctx context.Context, log *slog.Logger) (int, error) {
	cutoff := l.now().Add(-l.cutoff)
	rows, err := l.db.ListCatalogOlderThan(ctx, record.TierRelational, cutoff, l.batchSize)
	if err != nil {
		return 0, err
	}

	migrated := 0
	for _, row := range rows {
		if temp := l.tracker.Temperature(row.Key.RecordID, row.UpdatedAt); temp != access.Cold {
			continue
		}

		hash, stored, err := l.archive.Upload(ctx, row.Payload, row.Key.String())
		if err != nil {
			l.metrics.TierError(ctx, record.TierArchive)
			log.Warn("archive upload failed, keeping row", "key", row.Key.String(), "error", err)
			continue
		}

		if err := l.db.UpsertCatalogRow(ctx, record.CatalogRow{
			Key:         row.Key,
			Tier:        record.TierArchive,
			ArchiveHash: hash,
		}); err != nil {
			log.Warn("archive row record failed, keeping source", "key", row.Key.String(), "error", err)
			continue
		}

		if err := l.db.DeleteCatalogRow(ctx, row.Key, record.TierRelational); err != nil {
			// The row migrates again next run; the duplicate upload is a
			// no-op thanks to content addressing.
			log.Warn("source row delete failed", "key", row.Key.String(), "error", err)
			continue
		}

		// Deduplicated uploads are not new archive stores.
		if stored {
			l.metrics.Store(ctx, record.TierArchive, len(row.Payload))
		}
		migrated++
	}

	if migrated > 0 {
		log.Info("cold rows migrated to archive", "count", migrated)
	}
	return migrated, nil
}
