package blob

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/de-tools/site-report/pkg/models/store"
	storeblob "github.com/de-tools/site-report/pkg/store/blob"
	"github.com/de-tools/site-report/pkg/store/duckdb"
)

type blobStore struct {
	provider duckdb.Provider
}

func NewStore(provider duckdb.Provider) (storeblob.Store, error) {
	if provider == nil {
		return nil, fmt.Errorf("database provider is nil")
	}
	return &blobStore{provider: provider}, nil
}

func (s *blobStore) Get(ctx context.Context, id string) (*store.Blob, error) {
	db, err := s.provider.Database(ctx)
	if err != nil {
		return nil, err
	}

	b := store.Blob{ID: id}
	err = duckdb.Conn(ctx, db).
		QueryRowContext(ctx, `SELECT content_type, data FROM blobs WHERE id = ?`, id).
		Scan(&b.ContentType, &b.Data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get blob %s: %w", id, err)
	}
	return &b, nil
}

func (s *blobStore) Put(ctx context.Context, b *store.Blob) error {
	if b == nil || b.ID == "" {
		return fmt.Errorf("blob id is required")
	}

	db, err := s.provider.Database(ctx)
	if err != nil {
		return err
	}

	_, err = duckdb.Conn(ctx, db).ExecContext(ctx,
		`INSERT OR REPLACE INTO blobs (id, content_type, data) VALUES (?, ?, ?)`,
		b.ID, b.ContentType, b.Data,
	)
	if err != nil {
		return fmt.Errorf("put blob %s: %w", b.ID, err)
	}
	return nil
}

func (s *blobStore) Delete(ctx context.Context, id string) error {
	db, err := s.provider.Database(ctx)
	if err != nil {
		return err
	}

	if _, err := duckdb.Conn(ctx, db).ExecContext(ctx, `DELETE FROM blobs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete blob %s: %w", id, err)
	}
	return nil
}
