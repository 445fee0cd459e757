package report

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/de-tools/site-report/pkg/models/store"
	"github.com/de-tools/site-report/pkg/store/duckdb"
	"github.com/de-tools/site-report/pkg/store/duckdb/complaint"
	"golang.org/x/sync/errgroup"
)

// Store keeps report metadata and the IDs of the complaints it owns.
// Reads resolve the whole graph: complaints concurrently, and within each
// complaint its items concurrently.
type Store interface {
	Get(ctx context.Context, id string) (*store.Report, error)
	GetAll(ctx context.Context) ([]store.Report, error)
	Put(ctx context.Context, report store.Report) error
	Delete(ctx context.Context, id string) error
}

type reportStore struct {
	provider   duckdb.Provider
	complaints complaint.Store
}

func NewStore(provider duckdb.Provider, complaints complaint.Store) (Store, error) {
	if provider == nil {
		return nil, fmt.Errorf("database provider is nil")
	}
	if complaints == nil {
		return nil, fmt.Errorf("complaint store is nil")
	}
	return &reportStore{
		provider:   provider,
		complaints: complaints,
	}, nil
}

func (s *reportStore) Put(ctx context.Context, r store.Report) error {
	db, err := s.provider.Database(ctx)
	if err != nil {
		return err
	}

	complaintIDs, err := json.Marshal(r.CollectComplaintIDs())
	if err != nil {
		return fmt.Errorf("marshal complaint ids: %w", err)
	}

	_, err = duckdb.Conn(ctx, db).ExecContext(ctx,
		`INSERT OR REPLACE INTO reports (id, name, created_at, last_modified, complaint_ids) VALUES (?, ?, ?, ?, ?)`,
		r.ID, r.Name, r.CreatedAt.UTC(), r.LastModified.UTC(), string(complaintIDs),
	)
	if err != nil {
		return fmt.Errorf("put report %s: %w", r.ID, err)
	}
	return nil
}

// Get fails with store.ErrNotFound when the report does not exist.
func (s *reportStore) Get(ctx context.Context, id string) (*store.Report, error) {
	db, err := s.provider.Database(ctx)
	if err != nil {
		return nil, err
	}

	row := duckdb.Conn(ctx, db).QueryRowContext(ctx,
		`SELECT id, name, created_at, last_modified, complaint_ids FROM reports WHERE id = ?`, id,
	)
	r, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("report with id %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get report %s: %w", id, err)
	}

	if err := s.resolve(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// GetAll returns every report in storage order with its graph resolved.
func (s *reportStore) GetAll(ctx context.Context) ([]store.Report, error) {
	db, err := s.provider.Database(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := duckdb.Conn(ctx, db).QueryContext(ctx,
		`SELECT id, name, created_at, last_modified, complaint_ids FROM reports ORDER BY rowid`,
	)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}

	reports := make([]store.Report, 0)
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan report: %w", err)
		}
		reports = append(reports, *r)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	g, gCtx := errgroup.WithContext(ctx)
	for i := range reports {
		g.Go(func() error {
			return s.resolve(gCtx, &reports[i])
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

func (s *reportStore) Delete(ctx context.Context, id string) error {
	db, err := s.provider.Database(ctx)
	if err != nil {
		return err
	}

	if _, err := duckdb.Conn(ctx, db).ExecContext(ctx, `DELETE FROM reports WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete report %s: %w", id, err)
	}
	return nil
}

func (s *reportStore) resolve(ctx context.Context, r *store.Report) error {
	resolved := make([]*store.Complaint, len(r.ComplaintIDs))

	g, gCtx := errgroup.WithContext(ctx)
	for i, id := range r.ComplaintIDs {
		g.Go(func() error {
			c, err := s.complaints.Get(gCtx, id)
			if err != nil {
				return err
			}
			resolved[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	r.Complaints = make([]store.Complaint, 0, len(resolved))
	for _, c := range resolved {
		if c != nil {
			r.Complaints = append(r.Complaints, *c)
		}
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanReport(row scanner) (*store.Report, error) {
	var (
		r            store.Report
		createdAt    time.Time
		lastModified time.Time
		complaintIDs string
	)
	if err := row.Scan(&r.ID, &r.Name, &createdAt, &lastModified, &complaintIDs); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(complaintIDs), &r.ComplaintIDs); err != nil {
		return nil, fmt.Errorf("decode complaint ids of report %s: %w", r.ID, err)
	}
	r.CreatedAt = createdAt.UTC()
	r.LastModified = lastModified.UTC()
	return &r, nil
}
