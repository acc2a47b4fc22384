// Package tier defines the capability interface every storage tier exposes.
package tier

import (
	"context"
	"time"

	"github.com/Strob0t/TierVault/internal/domain/record"
)

// Store is the uniform get/put/delete surface over one storage backend.
// Get reports absence as (nil, false, nil); errors are backend failures.
// Backends without per-entry expiry may ignore the TTL argument.
type Store interface {
	Get(ctx context.Context, key record.Key) ([]byte, bool, error)
	Put(ctx context.Context, key record.Key, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key record.Key) error
}
