// Package database defines the relational persistence port (interface).
package database

import (
	"context"
	"time"

	"github.com/Strob0t/TierVault/internal/domain/access"
	"github.com/Strob0t/TierVault/internal/domain/record"
)

// Store is the port interface for the catalog table and the persisted
// access-pattern snapshots.
type Store interface {
	// Catalog
	GetCatalogRow(ctx context.Context, key record.Key, tier record.Tier) (*record.CatalogRow, error)
	UpsertCatalogRow(ctx context.Context, row record.CatalogRow) error
	DeleteCatalogRow(ctx context.Context, key record.Key, tier record.Tier) error

	// Maintenance scans, bounded and ordered oldest-first.
	ListCatalogOlderThan(ctx context.Context, tier record.Tier, cutoff time.Time, limit int) ([]record.CatalogRow, error)
	DeleteCatalogOlderThan(ctx context.Context, tier record.Tier, cutoff time.Time, limit int) ([]record.Key, error)

	// Access patterns, loaded at startup and flushed transactionally at shutdown.
	LoadPatterns(ctx context.Context) ([]access.Pattern, error)
	SavePatterns(ctx context.Context, patterns []access.Pattern) error
}
