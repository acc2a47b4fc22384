// Package natskv implements the tier port using NATS JetStream KV as the
// L2 distributed cache.
package natskv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/Strob0t/TierVault/internal/domain/record"
)

// Cache wraps a NATS JetStream KeyValue bucket as the L2 cache tier.
type Cache struct {
	kv jetstream.KeyValue
}

// Open creates or updates the KV bucket and returns a Cache over it.
// Expiry is bucket-level: every entry lives at most ttl.
func Open(ctx context.Context, js jetstream.JetStream, bucket string, ttl time.Duration) (*Cache, error) {
	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket: bucket,
		TTL:    ttl,
	})
	if err != nil {
		return nil, fmt.Errorf("kv bucket %s: %w", bucket, err)
	}
	return &Cache{kv: kv}, nil
}

// New wraps an existing KeyValue bucket.
func New(kv jetstream.KeyValue) *Cache {
	return &Cache{kv: kv}
}

// Get retrieves a value from the KV bucket.
func (c *Cache) Get(ctx context.Context, key record.Key) ([]byte, bool, error) {
	entry, err := c.kv.Get(ctx, key.CacheKey())
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return entry.Value(), true, nil
}

// Put stores a value in the KV bucket. The per-call TTL is ignored; expiry
// is managed at bucket level (see Open).
func (c *Cache) Put(ctx context.Context, key record.Key, value []byte, _ time.Duration) error {
	_, err := c.kv.Put(ctx, key.CacheKey(), value)
	return err
}

// Delete removes a value from the KV bucket.
func (c *Cache) Delete(ctx context.Context, key record.Key) error {
	err := c.kv.Delete(ctx, key.CacheKey())
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil
	}
	return err
}
