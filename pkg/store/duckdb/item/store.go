package item

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/de-tools/site-report/pkg/models/store"
	"github.com/de-tools/site-report/pkg/store/blob"
	"github.com/de-tools/site-report/pkg/store/duckdb"
)

// Store is a flat table of complaint items keyed by item ID. Binary payloads
// are written to the blob store and referenced by blob_id.
type Store interface {
	Get(ctx context.Context, id string) (*store.ComplaintItem, error)
	Put(ctx context.Context, item store.ComplaintItem) error
	Delete(ctx context.Context, id string) error
}

type itemStore struct {
	provider duckdb.Provider
	blobs    blob.Store
}

func NewStore(provider duckdb.Provider, blobs blob.Store) (Store, error) {
	if provider == nil {
		return nil, fmt.Errorf("database provider is nil")
	}
	if blobs == nil {
		return nil, fmt.Errorf("blob store is nil")
	}
	return &itemStore{
		provider: provider,
		blobs:    blobs,
	}, nil
}

// Get returns nil, nil when the item does not exist.
func (s *itemStore) Get(ctx context.Context, id string) (*store.ComplaintItem, error) {
	db, err := s.provider.Database(ctx)
	if err != nil {
		return nil, err
	}

	var (
		item   = store.ComplaintItem{ID: id}
		blobID sql.NullString
	)
	err = duckdb.Conn(ctx, db).QueryRowContext(ctx,
		`SELECT type, position, text, blob_id FROM complaint_items WHERE id = ?`, id,
	).Scan(&item.Type, &item.Order, &item.Text, &blobID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get complaint item %s: %w", id, err)
	}

	if blobID.Valid {
		item.BlobID = &blobID.String
		b, err := s.blobs.Get(ctx, blobID.String)
		if err != nil {
			return nil, err
		}
		item.Blob = b
	}

	return &item, nil
}

// Put inserts or replaces the item. The blob, if any, is written first so a
// stored item never points at a payload that was not saved. A blob the item
// no longer references is removed afterwards.
func (s *itemStore) Put(ctx context.Context, item store.ComplaintItem) error {
	db, err := s.provider.Database(ctx)
	if err != nil {
		return err
	}

	conn := duckdb.Conn(ctx, db)

	var previous sql.NullString
	err = conn.QueryRowContext(ctx, `SELECT blob_id FROM complaint_items WHERE id = ?`, item.ID).Scan(&previous)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("lookup complaint item %s: %w", item.ID, err)
	}

	if item.Blob != nil {
		if item.Blob.ID == "" && item.BlobID != nil {
			item.Blob.ID = *item.BlobID
		}
		if err := s.blobs.Put(ctx, item.Blob); err != nil {
			return err
		}
		item.BlobID = &item.Blob.ID
	}

	var blobID interface{}
	if item.BlobID != nil {
		blobID = *item.BlobID
	}

	_, err = conn.ExecContext(ctx,
		`INSERT OR REPLACE INTO complaint_items (id, type, position, text, blob_id) VALUES (?, ?, ?, ?, ?)`,
		item.ID, item.Type, item.Order, item.Text, blobID,
	)
	if err != nil {
		return fmt.Errorf("put complaint item %s: %w", item.ID, err)
	}

	if previous.Valid && (item.BlobID == nil || *item.BlobID != previous.String) {
		return s.blobs.Delete(ctx, previous.String)
	}
	return nil
}

// Delete removes the item and its blob. Missing items are ignored.
func (s *itemStore) Delete(ctx context.Context, id string) error {
	db, err := s.provider.Database(ctx)
	if err != nil {
		return err
	}

	conn := duckdb.Conn(ctx, db)

	var blobID sql.NullString
	err = conn.QueryRowContext(ctx, `SELECT blob_id FROM complaint_items WHERE id = ?`, id).Scan(&blobID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup complaint item %s: %w", id, err)
	}

	if _, err := conn.ExecContext(ctx, `DELETE FROM complaint_items WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete complaint item %s: %w", id, err)
	}

	if blobID.Valid {
		return s.blobs.Delete(ctx, blobID.String)
	}
	return nil
}
