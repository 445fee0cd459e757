package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/marcboeker/go-duckdb/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// SchemaVersion is the version the gateway upgrades every database to.
// Bump it together with a new entry in migrations.
const SchemaVersion = 2

const (
	ReportsTable        = "reports"
	ComplaintsTable     = "complaints"
	ComplaintItemsTable = "complaint_items"
	BlobsTable          = "blobs"
)

const schemaVersionTable = `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER NOT NULL
	);
`

type migration struct {
	version    int
	statements []string
}

// migrations only ever add tables. Existing tables and their rows are kept
// across upgrades.
var migrations = []migration{
	{
		version: 1,
		statements: []string{
			`CREATE TABLE IF NOT EXISTS reports (
				id VARCHAR PRIMARY KEY,
				name VARCHAR NOT NULL,
				created_at TIMESTAMP NOT NULL,
				last_modified TIMESTAMP NOT NULL,
				complaint_ids VARCHAR NOT NULL DEFAULT '[]'
			);`,
			`CREATE TABLE IF NOT EXISTS complaints (
				id VARCHAR PRIMARY KEY,
				type VARCHAR NOT NULL,
				title VARCHAR NOT NULL DEFAULT '',
				position INTEGER NOT NULL DEFAULT 0,
				item_ids VARCHAR NOT NULL DEFAULT '[]'
			);`,
			`CREATE TABLE IF NOT EXISTS complaint_items (
				id VARCHAR PRIMARY KEY,
				type VARCHAR NOT NULL,
				position INTEGER NOT NULL DEFAULT 0,
				text VARCHAR NOT NULL DEFAULT '',
				blob_id VARCHAR
			);`,
		},
	},
	{
		version: 2,
		statements: []string{
			`CREATE TABLE IF NOT EXISTS blobs (
				id VARCHAR PRIMARY KEY,
				content_type VARCHAR NOT NULL DEFAULT '',
				data BLOB NOT NULL
			);`,
		},
	},
}

var ErrDatabaseUnavailable = errors.New("embedded database is not available")

type Settings struct {
	DbPath  string
	Threads int
}

// Provider hands out the shared database handle.
type Provider interface {
	Database(ctx context.Context) (*sql.DB, error)
}

// Gateway owns the single database handle. The database is opened and
// upgraded on first use; concurrent first callers share one open.
type Gateway struct {
	settings Settings
	open     func(ctx context.Context, settings Settings) (*sql.DB, error)

	group singleflight.Group
	mu    sync.RWMutex
	db    *sql.DB
}

func NewGateway(settings Settings) *Gateway {
	return &Gateway{
		settings: settings,
		open:     openDB,
	}
}

func (g *Gateway) Database(ctx context.Context) (*sql.DB, error) {
	if db := g.current(); db != nil {
		return db, nil
	}

	v, err, _ := g.group.Do("open", func() (interface{}, error) {
		if db := g.current(); db != nil {
			return db, nil
		}

		db, err := g.open(context.WithoutCancel(ctx), g.settings)
		if err != nil {
			return nil, err
		}

		g.mu.Lock()
		g.db = db
		g.mu.Unlock()
		return db, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*sql.DB), nil
}

func (g *Gateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.db == nil {
		return nil
	}
	err := g.db.Close()
	g.db = nil
	return err
}

func (g *Gateway) current() *sql.DB {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.db
}

// Static wraps an already opened handle, e.g. a sqlmock connection.
type Static struct {
	DB *sql.DB
}

func (s Static) Database(_ context.Context) (*sql.DB, error) {
	if s.DB == nil {
		return nil, ErrDatabaseUnavailable
	}
	return s.DB, nil
}

func NewDB(settings Settings) (*sql.DB, error) {
	return openDB(context.Background(), settings)
}

func openDB(ctx context.Context, settings Settings) (*sql.DB, error) {
	if settings.DbPath == "" {
		return nil, fmt.Errorf("%w: no database path configured", ErrDatabaseUnavailable)
	}

	threads := settings.Threads
	if threads <= 0 {
		threads = 4
	}

	c, err := duckdb.NewConnector(fmt.Sprintf("%s?threads=%d", settings.DbPath, threads), nil)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", settings.DbPath, err)
	}

	db := sql.OpenDB(c)
	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	zerolog.Ctx(ctx).Info().
		Str("path", settings.DbPath).
		Int("version", SchemaVersion).
		Msg("database ready")
	return db, nil
}

// Migrate brings the schema up to SchemaVersion by applying every migration
// newer than the stored version.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaVersionTable); err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}

	var current int
	if err := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	if current >= SchemaVersion {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer tx.Rollback()

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		for _, stmt := range m.statements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("migration %d: %w", m.version, err)
			}
		}
		zerolog.Ctx(ctx).Debug().
			Int("from", current).
			Int("to", m.version).
			Msg("schema upgraded")
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM schema_version`); err != nil {
		return fmt.Errorf("reset schema version: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_version (version) VALUES (?)`, SchemaVersion); err != nil {
		return fmt.Errorf("write schema version: %w", err)
	}

	return tx.Commit()
}
