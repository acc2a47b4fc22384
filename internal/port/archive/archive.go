// Package archive defines the content-addressed cold archive port (interface).
package archive

import "context"

// Store is the port interface for the cold archive. Upload is addressed by
// content: uploading the same payload twice returns the same hash and must
// not create a second archive entry. The stored result reports whether the
// call actually wrote (false when the content was already archived).
type Store interface {
	Upload(ctx context.Context, payload []byte, label string) (hash string, stored bool, err error)
	Download(ctx context.Context, hash string) ([]byte, bool, error)
}
