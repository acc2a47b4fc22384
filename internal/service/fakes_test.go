package service_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Strob0t/TierVault/internal/domain/access"
	"github.com/Strob0t/TierVault/internal/domain/record"
)

// fakeTier is an in-memory tier store that counts calls and can be forced
// to fail.
type fakeTier struct {
	mu      sync.Mutex
	data    map[string][]byte
	gets    int
	puts    int
	deletes int
	failAll bool
}

func newFakeTier() *fakeTier {
	return &fakeTier{data: make(map[string][]byte)}
}

var errTierDown = errors.New("backend unavailable")

func (f *fakeTier) Get(_ context.Context, key record.Key) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.failAll {
		return nil, false, errTierDown
	}
	v, ok := f.data[key.CacheKey()]
	return v, ok, nil
}

func (f *fakeTier) Put(_ context.Context, key record.Key, value []byte, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	if f.failAll {
		return errTierDown
	}
	f.data[key.CacheKey()] = value
	return nil
}

func (f *fakeTier) Delete(_ context.Context, key record.Key) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	if f.failAll {
		return errTierDown
	}
	delete(f.data, key.CacheKey())
	return nil
}

func (f *fakeTier) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gets + f.puts + f.deletes
}

func (f *fakeTier) has(key record.Key) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.data[key.CacheKey()]
	return ok
}

// fakeDB implements database.Store in memory with an injectable clock so
// tests can age catalog rows.
type fakeDB struct {
	mu       sync.Mutex
	rows     map[string]record.CatalogRow
	patterns []access.Pattern
	now      func() time.Time
}

func newFakeDB(now func() time.Time) *fakeDB {
	return &fakeDB{rows: make(map[string]record.CatalogRow), now: now}
}

func rowKey(key record.Key, tier record.Tier) string {
	return key.String() + "/" + tier.String()
}

func (f *fakeDB) GetCatalogRow(_ context.Context, key record.Key, tier record.Tier) (*record.CatalogRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[rowKey(key, tier)]
	if !ok {
		return nil, record.ErrNotFound
	}
	return &row, nil
}

func (f *fakeDB) UpsertCatalogRow(_ context.Context, row record.CatalogRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := f.now()
	if existing, ok := f.rows[rowKey(row.Key, row.Tier)]; ok {
		row.CreatedAt = existing.CreatedAt
	} else {
		row.CreatedAt = now
	}
	row.UpdatedAt = now
	f.rows[rowKey(row.Key, row.Tier)] = row
	return nil
}

func (f *fakeDB) DeleteCatalogRow(_ context.Context, key record.Key, tier record.Tier) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, rowKey(key, tier))
	return nil
}

func (f *fakeDB) ListCatalogOlderThan(_ context.Context, tier record.Tier, cutoff time.Time, limit int) ([]record.CatalogRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []record.CatalogRow
	for _, row := range f.rows {
		if row.Tier == tier && row.UpdatedAt.Before(cutoff) {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeDB) DeleteCatalogOlderThan(ctx context.Context, tier record.Tier, cutoff time.Time, limit int) ([]record.Key, error) {
	rows, err := f.ListCatalogOlderThan(ctx, tier, cutoff, limit)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]record.Key, 0, len(rows))
	for _, row := range rows {
		delete(f.rows, rowKey(row.Key, row.Tier))
		keys = append(keys, row.Key)
	}
	return keys, nil
}

func (f *fakeDB) LoadPatterns(context.Context) ([]access.Pattern, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]access.Pattern(nil), f.patterns...), nil
}

func (f *fakeDB) SavePatterns(_ context.Context, patterns []access.Pattern) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patterns = append([]access.Pattern(nil), patterns...)
	return nil
}

func (f *fakeDB) countRows(tier record.Tier) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, row := range f.rows {
		if row.Tier == tier {
			n++
		}
	}
	return n
}

// fakeArchive is a content-addressed in-memory archive that counts the
// uploads that actually wrote.
type fakeArchive struct {
	mu          sync.Mutex
	objects     map[string][]byte
	uploads     int
	failPayload string // uploads of this payload fail
}

func newFakeArchive() *fakeArchive {
	return &fakeArchive{objects: make(map[string][]byte)}
}

func (f *fakeArchive) Upload(_ context.Context, payload []byte, _ string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPayload != "" && string(payload) == f.failPayload {
		return "", false, errTierDown
	}
	sum := sha256.Sum256(payload)
	hash := hex.EncodeToString(sum[:])
	if _, ok := f.objects[hash]; ok {
		return hash, false, nil
	}
	f.uploads++
	f.objects[hash] = append([]byte(nil), payload...)
	return hash, true, nil
}

func (f *fakeArchive) Download(_ context.Context, hash string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.objects[hash]
	return v, ok, nil
}

func (f *fakeArchive) uploadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uploads
}
