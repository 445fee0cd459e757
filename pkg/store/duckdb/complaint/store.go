package complaint

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/de-tools/site-report/pkg/models/store"
	"github.com/de-tools/site-report/pkg/store/duckdb"
	"github.com/de-tools/site-report/pkg/store/duckdb/item"
	"golang.org/x/sync/errgroup"
)

// Store keeps complaint metadata together with the IDs of the items it owns.
// Item bodies live in the item store and are resolved on read.
//
// Delete only removes the complaint row; removing the owned items is up to
// the caller.
type Store interface {
	Get(ctx context.Context, id string) (*store.Complaint, error)
	Put(ctx context.Context, complaint store.Complaint) error
	Delete(ctx context.Context, id string) error
	ListByType(ctx context.Context, complaintType string) ([]string, error)
}

type complaintStore struct {
	provider duckdb.Provider
	items    item.Store
}

func NewStore(provider duckdb.Provider, items item.Store) (Store, error) {
	if provider == nil {
		return nil, fmt.Errorf("database provider is nil")
	}
	if items == nil {
		return nil, fmt.Errorf("item store is nil")
	}
	return &complaintStore{
		provider: provider,
		items:    items,
	}, nil
}

func (s *complaintStore) Put(ctx context.Context, c store.Complaint) error {
	db, err := s.provider.Database(ctx)
	if err != nil {
		return err
	}

	itemIDs, err := json.Marshal(c.CollectItemIDs())
	if err != nil {
		return fmt.Errorf("marshal item ids: %w", err)
	}

	_, err = duckdb.Conn(ctx, db).ExecContext(ctx,
		`INSERT OR REPLACE INTO complaints (id, type, title, position, item_ids) VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.Type, c.Title, c.Order, string(itemIDs),
	)
	if err != nil {
		return fmt.Errorf("put complaint %s: %w", c.ID, err)
	}
	return nil
}

// Get returns nil, nil when the complaint does not exist. Item references
// that no longer resolve are dropped from the result.
func (s *complaintStore) Get(ctx context.Context, id string) (*store.Complaint, error) {
	db, err := s.provider.Database(ctx)
	if err != nil {
		return nil, err
	}

	var (
		c       = store.Complaint{ID: id}
		itemIDs string
	)
	err = duckdb.Conn(ctx, db).QueryRowContext(ctx,
		`SELECT type, title, position, item_ids FROM complaints WHERE id = ?`, id,
	).Scan(&c.Type, &c.Title, &c.Order, &itemIDs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get complaint %s: %w", id, err)
	}

	if err := json.Unmarshal([]byte(itemIDs), &c.ItemIDs); err != nil {
		return nil, fmt.Errorf("decode item ids of complaint %s: %w", id, err)
	}

	c.Items, err = s.resolveItems(ctx, c.ItemIDs)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *complaintStore) resolveItems(ctx context.Context, ids []string) ([]store.ComplaintItem, error) {
	resolved := make([]*store.ComplaintItem, len(ids))

	g, gCtx := errgroup.WithContext(ctx)
	for i, id := range ids {
		g.Go(func() error {
			it, err := s.items.Get(gCtx, id)
			if err != nil {
				return err
			}
			resolved[i] = it
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	items := make([]store.ComplaintItem, 0, len(ids))
	for _, it := range resolved {
		if it != nil {
			items = append(items, *it)
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Order < items[j].Order
	})
	return items, nil
}

func (s *complaintStore) Delete(ctx context.Context, id string) error {
	db, err := s.provider.Database(ctx)
	if err != nil {
		return err
	}

	if _, err := duckdb.Conn(ctx, db).ExecContext(ctx, `DELETE FROM complaints WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete complaint %s: %w", id, err)
	}
	return nil
}

func (s *complaintStore) ListByType(ctx context.Context, complaintType string) ([]string, error) {
	db, err := s.provider.Database(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := duckdb.Conn(ctx, db).QueryContext(ctx,
		`SELECT id FROM complaints WHERE type = ? ORDER BY position, id`, complaintType,
	)
	if err != nil {
		return nil, fmt.Errorf("list complaints by type: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
