// Package imagestore persists uploaded images in S3-compatible object
// storage.
package imagestore

import (
	"context"
	"io"
)

// Store uploads objects under a storage key.
type Store interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader) error
}
