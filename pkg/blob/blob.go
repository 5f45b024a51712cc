// Package blob defines the durable key->bytes store the catalog points
// at. Originals live under (owner_id, object_id); thumbnails live in a
// separate namespace with the same key so the cache can be wiped without
// touching originals.
package blob

import (
	"context"
	"errors"
	"io"
)

var ErrNotFound = errors.New("blob: not found")

type Store interface {
	// Put streams the object's raw bytes and returns the stored size.
	Put(ctx context.Context, ownerID, objectID int64, r io.Reader, contentType string) (int64, error)
	Get(ctx context.Context, ownerID, objectID int64) ([]byte, error)
	Delete(ctx context.Context, ownerID, objectID int64) error

	PutThumb(ctx context.Context, ownerID, objectID int64, data []byte, contentType string) error
	GetThumb(ctx context.Context, ownerID, objectID int64) ([]byte, error)
}
