package blob

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/de-tools/site-report/pkg/models/store"
	"github.com/de-tools/site-report/pkg/store/duckdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) *blobStore {
	g := duckdb.NewGateway(duckdb.Settings{DbPath: ":memory:"})
	t.Cleanup(func() { _ = g.Close() })

	s, err := NewStore(g)
	require.NoError(t, err)
	return s.(*blobStore)
}

func TestNewStore(t *testing.T) {
	s, err := NewStore(nil)
	assert.Error(t, err)
	assert.Nil(t, s)
}

func TestBlobStore_RoundTrip(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	b := &store.Blob{ID: "blob-1", ContentType: "image/png", Data: []byte{0x89, 'P', 'N', 'G'}}
	require.NoError(t, s.Put(ctx, b))
	require.NoError(t, s.Put(ctx, b))

	got, err := s.Get(ctx, "blob-1")
	require.NoError(t, err)
	assert.Equal(t, b, got)

	require.NoError(t, s.Delete(ctx, "blob-1"))
	require.NoError(t, s.Delete(ctx, "blob-1"))

	got, err = s.Get(ctx, "blob-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestBlobStore_PutRequiresID(t *testing.T) {
	s := setupStore(t)
	assert.Error(t, s.Put(context.Background(), &store.Blob{}))
	assert.Error(t, s.Put(context.Background(), nil))
}

func TestBlobStore_EngineFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s, err := NewStore(duckdb.Static{DB: db})
	require.NoError(t, err)

	mock.ExpectQuery("SELECT content_type, data FROM blobs").
		WithArgs("blob-1").
		WillReturnError(errors.New("io error"))

	_, err = s.Get(context.Background(), "blob-1")
	assert.ErrorContains(t, err, "io error")
	assert.NoError(t, mock.ExpectationsWereMet())
}
