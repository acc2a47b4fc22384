package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Strob0t/TierVault/internal/domain/access"
	"github.com/Strob0t/TierVault/internal/domain/record"
)

// Store implements database.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// --- Catalog ---

func (s *Store) GetCatalogRow(ctx context.Context, key record.Key, tier record.Tier) (*record.CatalogRow, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT record_id, data_type, tier, payload, archive_hash, created_at, updated_at
		 FROM catalog_entries WHERE record_id = $1 AND data_type = $2 AND tier = $3`,
		key.RecordID, key.Type.String(), tier.String())

	r, err := scanCatalogRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get catalog row %s/%s: %w", key, tier, record.ErrNotFound)
		}
		return nil, fmt.Errorf("get catalog row %s/%s: %w", key, tier, err)
	}
	return &r, nil
}

func (s *Store) UpsertCatalogRow(ctx context.Context, row record.CatalogRow) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO catalog_entries (record_id, data_type, tier, payload, archive_hash, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, now(), now())
		 ON CONFLICT (record_id, data_type, tier)
		 DO UPDATE SET payload = EXCLUDED.payload, archive_hash = EXCLUDED.archive_hash, updated_at = now()`,
		row.Key.RecordID, row.Key.Type.String(), row.Tier.String(), row.Payload, row.ArchiveHash)
	if err != nil {
		return fmt.Errorf("upsert catalog row %s/%s: %w", row.Key, row.Tier, err)
	}
	return nil
}

func (s *Store) DeleteCatalogRow(ctx context.Context, key record.Key, tier record.Tier) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM catalog_entries WHERE record_id = $1 AND data_type = $2 AND tier = $3`,
		key.RecordID, key.Type.String(), tier.String())
	if err != nil {
		return fmt.Errorf("delete catalog row %s/%s: %w", key, tier, err)
	}
	return nil
}

// ListCatalogOlderThan returns up to limit rows in tier last updated before
// cutoff, oldest first. Used by the cold-migration scan.
func (s *Store) ListCatalogOlderThan(ctx context.Context, tier record.Tier, cutoff time.Time, limit int) ([]record.CatalogRow, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT record_id, data_type, tier, payload, archive_hash, created_at, updated_at
		 FROM catalog_entries WHERE tier = $1 AND updated_at < $2
		 ORDER BY updated_at ASC LIMIT $3`,
		tier.String(), cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("list catalog older than: %w", err)
	}
	defer rows.Close()

	var out []record.CatalogRow
	for rows.Next() {
		r, err := scanCatalogRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan catalog row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteCatalogOlderThan deletes up to limit rows in tier last updated before
// cutoff and returns the keys it removed, so cache tiers can be purged too.
func (s *Store) DeleteCatalogOlderThan(ctx context.Context, tier record.Tier, cutoff time.Time, limit int) ([]record.Key, error) {
	rows, err := s.pool.Query(ctx,
		`DELETE FROM catalog_entries WHERE (record_id, data_type, tier) IN (
		     SELECT record_id, data_type, tier FROM catalog_entries
		     WHERE tier = $1 AND updated_at < $2
		     ORDER BY updated_at ASC LIMIT $3)
		 RETURNING record_id, data_type`,
		tier.String(), cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("delete catalog older than: %w", err)
	}
	defer rows.Close()

	var keys []record.Key
	for rows.Next() {
		var id, dt string
		if err := rows.Scan(&id, &dt); err != nil {
			return nil, fmt.Errorf("scan deleted key: %w", err)
		}
		typ, err := record.ParseDataType(dt)
		if err != nil {
			return nil, err
		}
		keys = append(keys, record.Key{RecordID: id, Type: typ})
	}
	return keys, rows.Err()
}

// --- Access patterns ---

func (s *Store) LoadPatterns(ctx context.Context) ([]access.Pattern, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT record_id, access_count, first_accessed_at, last_accessed_at FROM access_patterns`)
	if err != nil {
		return nil, fmt.Errorf("load patterns: %w", err)
	}
	defer rows.Close()

	var out []access.Pattern
	for rows.Next() {
		var p access.Pattern
		var count int64
		if err := rows.Scan(&p.RecordID, &count, &p.FirstAccessedAt, &p.LastAccessedAt); err != nil {
			return nil, fmt.Errorf("scan pattern: %w", err)
		}
		p.AccessCount = uint64(count)
		out = append(out, p)
	}
	return out, rows.Err()
}

// SavePatterns replaces the persisted snapshot for every given pattern in a
// single transaction, so a crash mid-flush never leaves a half-written set.
func (s *Store) SavePatterns(ctx context.Context, patterns []access.Pattern) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin pattern flush: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, p := range patterns {
		_, err := tx.Exec(ctx,
			`INSERT INTO access_patterns (record_id, access_count, first_accessed_at, last_accessed_at)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (record_id)
			 DO UPDATE SET access_count = EXCLUDED.access_count,
			               first_accessed_at = EXCLUDED.first_accessed_at,
			               last_accessed_at = EXCLUDED.last_accessed_at`,
			p.RecordID, int64(p.AccessCount), p.FirstAccessedAt, p.LastAccessedAt)
		if err != nil {
			return fmt.Errorf("save pattern %s: %w", p.RecordID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit pattern flush: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCatalogRow(row rowScanner) (record.CatalogRow, error) {
	var r record.CatalogRow
	var dt, tier string
	if err := row.Scan(&r.Key.RecordID, &dt, &tier, &r.Payload, &r.ArchiveHash, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return r, err
	}
	typ, err := record.ParseDataType(dt)
	if err != nil {
		return r, err
	}
	tr, err := record.ParseTier(tier)
	if err != nil {
		return r, err
	}
	r.Key.Type = typ
	r.Tier = tr
	return r, nil
}
