package complaint

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/de-tools/site-report/pkg/models/store"
	"github.com/de-tools/site-report/pkg/store/duckdb"
	duckdbblob "github.com/de-tools/site-report/pkg/store/duckdb/blob"
	"github.com/de-tools/site-report/pkg/store/duckdb/item"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	items item.Store
	store Store
}

func setupFixture(t *testing.T) *fixture {
	g := duckdb.NewGateway(duckdb.Settings{DbPath: ":memory:"})
	blobs, err := duckdbblob.NewStore(g)
	require.NoError(t, err)
	items, err := item.NewStore(g, blobs)
	require.NoError(t, err)
	s, err := NewStore(g, items)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = g.Close()
	})

	return &fixture{items: items, store: s}
}

type mockItemStore struct {
	mock.Mock
}

func (m *mockItemStore) Get(ctx context.Context, id string) (*store.ComplaintItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.ComplaintItem), args.Error(1)
}

func (m *mockItemStore) Put(ctx context.Context, it store.ComplaintItem) error {
	return m.Called(ctx, it).Error(0)
}

func (m *mockItemStore) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func TestNewStore(t *testing.T) {
	s, err := NewStore(nil, nil)
	assert.Error(t, err)
	assert.Nil(t, s)

	s, err = NewStore(duckdb.Static{}, nil)
	assert.Error(t, err)
	assert.Nil(t, s)
}

func TestComplaintStore_PutGet(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	items := []store.ComplaintItem{
		{ID: "i2", Type: "text", Order: 2, Text: "third"},
		{ID: "i0", Type: "text", Order: 0, Text: "first"},
		{ID: "i1", Type: "image", Order: 1, Blob: &store.Blob{ID: "b1", ContentType: "image/png", Data: []byte{9}}},
	}
	for _, it := range items {
		require.NoError(t, f.items.Put(ctx, it))
	}

	c := store.Complaint{ID: "c1", Type: "finding", Title: "Finding 1", Order: 0, Items: items}
	require.NoError(t, f.store.Put(ctx, c))
	require.NoError(t, f.store.Put(ctx, c))

	got, err := f.store.Get(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "finding", got.Type)
	assert.Equal(t, "Finding 1", got.Title)
	assert.Equal(t, []string{"i2", "i0", "i1"}, got.ItemIDs)
	require.Len(t, got.Items, 3)
	assert.Equal(t, "i0", got.Items[0].ID)
	assert.Equal(t, "i1", got.Items[1].ID)
	assert.Equal(t, "i2", got.Items[2].ID)
	assert.Equal(t, []byte{9}, got.Items[1].Blob.Data)
}

func TestComplaintStore_GetDropsDanglingItems(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	require.NoError(t, f.items.Put(ctx, store.ComplaintItem{ID: "kept", Type: "text", Text: "ok"}))
	require.NoError(t, f.store.Put(ctx, store.Complaint{ID: "c1", Type: "action", ItemIDs: []string{"kept", "gone"}}))

	got, err := f.store.Get(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "kept", got.Items[0].ID)
}

func TestComplaintStore_Missing(t *testing.T) {
	f := setupFixture(t)

	got, err := f.store.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.NoError(t, f.store.Delete(context.Background(), "missing"))
}

func TestComplaintStore_DeleteKeepsItems(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	it := store.ComplaintItem{ID: "i1", Type: "text", Text: "a"}
	require.NoError(t, f.items.Put(ctx, it))
	require.NoError(t, f.store.Put(ctx, store.Complaint{ID: "c1", Type: "finding", Items: []store.ComplaintItem{it}}))

	require.NoError(t, f.store.Delete(ctx, "c1"))

	got, err := f.store.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Nil(t, got)

	stillThere, err := f.items.Get(ctx, "i1")
	require.NoError(t, err)
	assert.NotNil(t, stillThere)
}

func TestComplaintStore_ListByType(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.Put(ctx, store.Complaint{ID: "a", Type: "finding", Order: 1}))
	require.NoError(t, f.store.Put(ctx, store.Complaint{ID: "b", Type: "action", Order: 0}))
	require.NoError(t, f.store.Put(ctx, store.Complaint{ID: "c", Type: "finding", Order: 0}))

	ids, err := f.store.ListByType(ctx, "finding")
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, ids)

	ids, err = f.store.ListByType(ctx, "unknown")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestComplaintStore_ItemLookupFailure(t *testing.T) {
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	items := new(mockItemStore)
	items.On("Get", mock.Anything, "i1").Return(&store.ComplaintItem{ID: "i1", Type: "text", Text: "x"}, nil)
	items.On("Get", mock.Anything, "i2").Return(nil, errors.New("storage offline"))

	s, err := NewStore(duckdb.Static{DB: db}, items)
	require.NoError(t, err)

	sqlMock.ExpectQuery("SELECT type, title, position, item_ids FROM complaints").
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"type", "title", "position", "item_ids"}).
			AddRow("finding", "", 0, `["i1","i2"]`))

	got, err := s.Get(context.Background(), "c1")
	assert.ErrorContains(t, err, "storage offline")
	assert.Nil(t, got)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}
