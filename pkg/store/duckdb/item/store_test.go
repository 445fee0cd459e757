package item

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/de-tools/site-report/pkg/models/store"
	"github.com/de-tools/site-report/pkg/store/duckdb"
	duckdbblob "github.com/de-tools/site-report/pkg/store/duckdb/blob"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	gateway *duckdb.Gateway
	store   Store
}

func setupFixture(t *testing.T) *fixture {
	g := duckdb.NewGateway(duckdb.Settings{DbPath: ":memory:"})
	blobs, err := duckdbblob.NewStore(g)
	require.NoError(t, err)
	s, err := NewStore(g, blobs)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = g.Close()
	})

	return &fixture{gateway: g, store: s}
}

func TestNewStore(t *testing.T) {
	t.Run("nil provider", func(t *testing.T) {
		s, err := NewStore(nil, nil)
		assert.Error(t, err)
		assert.Nil(t, s)
	})

	t.Run("nil blob store", func(t *testing.T) {
		s, err := NewStore(duckdb.Static{}, nil)
		assert.Error(t, err)
		assert.Nil(t, s)
	})
}

func TestItemStore_PutGet(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	t.Run("text item", func(t *testing.T) {
		item := store.ComplaintItem{ID: "item-text", Type: "text", Order: 0, Text: "crack in wall"}
		require.NoError(t, f.store.Put(ctx, item))

		got, err := f.store.Get(ctx, "item-text")
		require.NoError(t, err)
		assert.Equal(t, &item, got)
	})

	t.Run("image item keeps payload in blob table", func(t *testing.T) {
		item := store.ComplaintItem{
			ID:    "item-image",
			Type:  "image",
			Order: 2,
			Blob:  &store.Blob{ID: "blob-image", ContentType: "image/png", Data: []byte{1, 2, 3}},
		}
		require.NoError(t, f.store.Put(ctx, item))
		require.NoError(t, f.store.Put(ctx, item))

		got, err := f.store.Get(ctx, "item-image")
		require.NoError(t, err)
		require.NotNil(t, got.Blob)
		require.NotNil(t, got.BlobID)
		assert.Equal(t, "blob-image", *got.BlobID)
		assert.Equal(t, []byte{1, 2, 3}, got.Blob.Data)

		db, err := f.gateway.Database(ctx)
		require.NoError(t, err)
		var count int
		require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM blobs`).Scan(&count))
		assert.Equal(t, 1, count)
	})

	t.Run("missing item", func(t *testing.T) {
		got, err := f.store.Get(ctx, "nope")
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestItemStore_PutReplacesPayload(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	item := store.ComplaintItem{
		ID:   "photo",
		Type: "image",
		Blob: &store.Blob{ID: "first", ContentType: "image/png", Data: []byte{1}},
	}
	require.NoError(t, f.store.Put(ctx, item))

	item.Blob = &store.Blob{ID: "second", ContentType: "image/png", Data: []byte{2}}
	item.BlobID = nil
	require.NoError(t, f.store.Put(ctx, item))

	got, err := f.store.Get(ctx, "photo")
	require.NoError(t, err)
	require.NotNil(t, got.Blob)
	assert.Equal(t, []byte{2}, got.Blob.Data)

	db, err := f.gateway.Database(ctx)
	require.NoError(t, err)
	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM blobs WHERE id = 'first'`).Scan(&count))
	assert.Zero(t, count)
}

func TestItemStore_Delete(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	item := store.ComplaintItem{
		ID:   "memo",
		Type: "recording",
		Text: "railing loose",
		Blob: &store.Blob{ID: "memo-audio", ContentType: "audio/webm", Data: []byte("a")},
	}
	require.NoError(t, f.store.Put(ctx, item))

	require.NoError(t, f.store.Delete(ctx, "memo"))
	require.NoError(t, f.store.Delete(ctx, "memo"))

	got, err := f.store.Get(ctx, "memo")
	require.NoError(t, err)
	assert.Nil(t, got)

	db, err := f.gateway.Database(ctx)
	require.NoError(t, err)
	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM blobs WHERE id = 'memo-audio'`).Scan(&count))
	assert.Zero(t, count)
}

func TestItemStore_EngineFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	blobs, err := duckdbblob.NewStore(duckdb.Static{DB: db})
	require.NoError(t, err)
	s, err := NewStore(duckdb.Static{DB: db}, blobs)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT blob_id FROM complaint_items").
		WithArgs("x").
		WillReturnRows(sqlmock.NewRows([]string{"blob_id"}))
	mock.ExpectExec("INSERT OR REPLACE INTO complaint_items").
		WillReturnError(errors.New("constraint failed"))

	err = s.Put(context.Background(), store.ComplaintItem{ID: "x", Type: "text", Text: "t"})
	assert.ErrorContains(t, err, "constraint failed")
	assert.NoError(t, mock.ExpectationsWereMet())
}
