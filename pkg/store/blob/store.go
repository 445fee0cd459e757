// Package blob declares the storage contract for large binary payloads
// (audio memos and pictures) that are kept apart from their owning records.
package blob

import (
	"context"

	"github.com/de-tools/site-report/pkg/models/store"
)

// Store persists blobs by their synthetic ID. Get returns nil, nil for a
// missing blob and Delete of a missing blob is a no-op.
type Store interface {
	Get(ctx context.Context, id string) (*store.Blob, error)
	Put(ctx context.Context, blob *store.Blob) error
	Delete(ctx context.Context, id string) error
}
