package service

import (
	"context"
	"errors"
	"time"

	"github.com/Strob0t/TierVault/internal/domain/record"
	"github.com/Strob0t/TierVault/internal/port/archive"
	"github.com/Strob0t/TierVault/internal/port/database"
	"github.com/Strob0t/TierVault/internal/port/tier"
	"github.com/Strob0t/TierVault/internal/resilience"
)

// RelationalStore exposes the catalog's relational rows through the uniform
// tier interface: payloads are stored inline in the catalog table.
type RelationalStore struct {
	db database.Store
}

// NewRelationalStore creates the L3 tier store over the database port.
func NewRelationalStore(db database.Store) *RelationalStore {
	return &RelationalStore{db: db}
}

func (s *RelationalStore) Get(ctx context.Context, key record.Key) ([]byte, bool, error) {
	row, err := s.db.GetCatalogRow(ctx, key, record.TierRelational)
	if err != nil {
		if errors.Is(err, record.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return row.Payload, true, nil
}

func (s *RelationalStore) Put(ctx context.Context, key record.Key, value []byte, _ time.Duration) error {
	return s.db.UpsertCatalogRow(ctx, record.CatalogRow{
		Key:     key,
		Tier:    record.TierRelational,
		Payload: value,
	})
}

func (s *RelationalStore) Delete(ctx context.Context, key record.Key) error {
	return s.db.DeleteCatalogRow(ctx, key, record.TierRelational)
}

// ArchiveStore exposes the cold archive through the uniform tier interface.
// Reads resolve the content hash from the catalog row, then fetch the
// payload from the archive; writes upload first, then record the hash.
type ArchiveStore struct {
	db      database.Store
	archive archive.Store
}

// NewArchiveStore creates the L4 tier store over the database and archive ports.
func NewArchiveStore(db database.Store, ar archive.Store) *ArchiveStore {
	return &ArchiveStore{db: db, archive: ar}
}

func (s *ArchiveStore) Get(ctx context.Context, key record.Key) ([]byte, bool, error) {
	row, err := s.db.GetCatalogRow(ctx, key, record.TierArchive)
	if err != nil {
		if errors.Is(err, record.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return s.archive.Download(ctx, row.ArchiveHash)
}

func (s *ArchiveStore) Put(ctx context.Context, key record.Key, value []byte, _ time.Duration) error {
	hash, _, err := s.archive.Upload(ctx, value, key.String())
	if err != nil {
		return err
	}
	return s.db.UpsertCatalogRow(ctx, record.CatalogRow{
		Key:         key,
		Tier:        record.TierArchive,
		ArchiveHash: hash,
	})
}

// Delete removes the catalog row only. Archive objects are content-addressed
// and may back other keys, so they are never deleted here.
func (s *ArchiveStore) Delete(ctx context.Context, key record.Key) error {
	return s.db.DeleteCatalogRow(ctx, key, record.TierArchive)
}

// GuardedStore wraps a remote tier store with a circuit breaker. While the
// breaker is open every call fails fast with ErrCircuitOpen, which the
// coordinator treats like any other tier error: a miss.
type GuardedStore struct {
	inner   tier.Store
	breaker *resilience.Breaker
}

// NewGuardedStore wraps inner with the given breaker.
func NewGuardedStore(inner tier.Store, breaker *resilience.Breaker) *GuardedStore {
	return &GuardedStore{inner: inner, breaker: breaker}
}

func (s *GuardedStore) Get(ctx context.Context, key record.Key) ([]byte, bool, error) {
	var (
		val []byte
		ok  bool
	)
	err := s.breaker.Execute(func() error {
		var err error
		val, ok, err = s.inner.Get(ctx, key)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return val, ok, nil
}

func (s *GuardedStore) Put(ctx context.Context, key record.Key, value []byte, ttl time.Duration) error {
	return s.breaker.Execute(func() error {
		return s.inner.Put(ctx, key, value, ttl)
	})
}

func (s *GuardedStore) Delete(ctx context.Context, key record.Key) error {
	return s.breaker.Execute(func() error {
		return s.inner.Delete(ctx, key)
	})
}
