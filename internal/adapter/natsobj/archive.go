// Package natsobj implements the archive port using NATS JetStream
// ObjectStore as the content-addressed cold archive.
//
// Objects are named by the sha256 hex digest of their payload, so the same
// bytes always map to the same object: re-uploading an already-archived
// payload is a no-op and migration re-runs cannot duplicate entries.
package natsobj

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
)

// Archive wraps a JetStream ObjectStore bucket as the cold archive.
type Archive struct {
	obj jetstream.ObjectStore
}

// Open creates or updates the object bucket and returns an Archive over it.
func Open(ctx context.Context, js jetstream.JetStream, bucket string) (*Archive, error) {
	obj, err := js.CreateOrUpdateObjectStore(ctx, jetstream.ObjectStoreConfig{
		Bucket: bucket,
	})
	if err != nil {
		return nil, fmt.Errorf("object bucket %s: %w", bucket, err)
	}
	return &Archive{obj: obj}, nil
}

// New wraps an existing ObjectStore bucket.
func New(obj jetstream.ObjectStore) *Archive {
	return &Archive{obj: obj}
}

// Upload stores payload under its content hash and returns the hash.
// If an object with the same hash already exists the upload is skipped and
// stored is false.
func (a *Archive) Upload(ctx context.Context, payload []byte, label string) (string, bool, error) {
	sum := sha256.Sum256(payload)
	hash := hex.EncodeToString(sum[:])

	if _, err := a.obj.GetInfo(ctx, hash); err == nil {
		return hash, false, nil
	} else if !errors.Is(err, jetstream.ErrObjectNotFound) {
		return "", false, fmt.Errorf("archive stat %s: %w", hash, err)
	}

	_, err := a.obj.Put(ctx, jetstream.ObjectMeta{
		Name:        hash,
		Description: label,
	}, bytes.NewReader(payload))
	if err != nil {
		return "", false, fmt.Errorf("archive upload %s: %w", hash, err)
	}
	return hash, true, nil
}

// Download retrieves the payload stored under hash.
func (a *Archive) Download(ctx context.Context, hash string) ([]byte, bool, error) {
	data, err := a.obj.GetBytes(ctx, hash)
	if err != nil {
		if errors.Is(err, jetstream.ErrObjectNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("archive download %s: %w", hash, err)
	}
	return data, true, nil
}
