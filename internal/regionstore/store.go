// Package regionstore persists navgraph.CachedRegion fragments to SQLite so
// the offline router survives a process restart without a network fetch.
package regionstore

import (
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"nightpath/internal/geo"
	"nightpath/internal/navgraph"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// pragmas run once at Open, regardless of how the database file was
// created: WAL for concurrent reads during a write, a busy timeout so a
// momentarily-locked file doesn't surface as an immediate caller error.
// journal_mode is stored in the database file; synchronous and
// busy_timeout are per-connection and reach only the pooled connection
// that executed them.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("apply pragma %q: %w", p, err)
		}
	}
	return nil
}

// Store is a SQLite-backed table of CachedRegion rows keyed by region ID.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite database at path and brings
// its schema up to the latest migration.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open region store: %w", err)
	}
	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}

	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("region store migration driver: %w", err)
	}
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("region store migration source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", driver)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("region store migrator: %w", err)
	}
	// Note: we don't call m.Close() here because the sqlite driver's Close
	// would close the underlying db, which the Store still owns.
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		db.Close()
		return nil, fmt.Errorf("region store migrate up: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put inserts region, or replaces the row with a matching ID. If
// region.ID is empty, a new UUID is generated and written back.
func (s *Store) Put(region *navgraph.CachedRegion) error {
	if region.ID == "" {
		region.ID = uuid.New().String()
	}

	graphJSON, err := json.Marshal(region.Graph)
	if err != nil {
		return fmt.Errorf("marshal cached region graph: %w", err)
	}

	const query = `
		INSERT INTO regions (id, bounds_n, bounds_s, bounds_e, bounds_w, graph_json, timestamp_ms, source)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			bounds_n = excluded.bounds_n,
			bounds_s = excluded.bounds_s,
			bounds_e = excluded.bounds_e,
			bounds_w = excluded.bounds_w,
			graph_json = excluded.graph_json,
			timestamp_ms = excluded.timestamp_ms,
			source = excluded.source
	`
	_, err = s.db.Exec(query,
		region.ID,
		region.Bounds.North, region.Bounds.South, region.Bounds.East, region.Bounds.West,
		graphJSON,
		region.Timestamp.UnixMilli(),
		nullString(region.Source),
	)
	if err != nil {
		return fmt.Errorf("put cached region %s: %w", region.ID, err)
	}
	return nil
}

// Get fetches a single region by ID. The second return value is false when
// no row matches.
func (s *Store) Get(id string) (navgraph.CachedRegion, bool, error) {
	const query = `
		SELECT id, bounds_n, bounds_s, bounds_e, bounds_w, graph_json, timestamp_ms, source
		FROM regions WHERE id = ?
	`
	row := s.db.QueryRow(query, id)
	region, err := scanRegion(row)
	if err == sql.ErrNoRows {
		return navgraph.CachedRegion{}, false, nil
	}
	if err != nil {
		return navgraph.CachedRegion{}, false, fmt.Errorf("get cached region %s: %w", id, err)
	}
	return region, true, nil
}

// ListIntersecting returns every stored region whose bounds intersect
// bounds, the set the offline router needs to merge for a route spanning
// that area.
func (s *Store) ListIntersecting(bounds geo.Bounds) ([]navgraph.CachedRegion, error) {
	const query = `
		SELECT id, bounds_n, bounds_s, bounds_e, bounds_w, graph_json, timestamp_ms, source
		FROM regions
		WHERE bounds_s <= ? AND bounds_n >= ? AND bounds_w <= ? AND bounds_e >= ?
	`
	rows, err := s.db.Query(query, bounds.North, bounds.South, bounds.East, bounds.West)
	if err != nil {
		return nil, fmt.Errorf("list intersecting regions: %w", err)
	}
	defer rows.Close()

	var out []navgraph.CachedRegion
	for rows.Next() {
		region, err := scanRegion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cached region: %w", err)
		}
		out = append(out, region)
	}
	return out, rows.Err()
}

// All returns every stored region, used to warm an in-memory offline
// router cache at startup.
func (s *Store) All() ([]navgraph.CachedRegion, error) {
	const query = `
		SELECT id, bounds_n, bounds_s, bounds_e, bounds_w, graph_json, timestamp_ms, source
		FROM regions
	`
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("list all regions: %w", err)
	}
	defer rows.Close()

	var out []navgraph.CachedRegion
	for rows.Next() {
		region, err := scanRegion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cached region: %w", err)
		}
		out = append(out, region)
	}
	return out, rows.Err()
}

// Delete removes a region by ID. It is not an error to delete an ID that
// does not exist.
func (s *Store) Delete(id string) error {
	if _, err := s.db.Exec("DELETE FROM regions WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete cached region %s: %w", id, err)
	}
	return nil
}

type scannable interface {
	Scan(dest ...interface{}) error
}

func scanRegion(row scannable) (navgraph.CachedRegion, error) {
	var region navgraph.CachedRegion
	var graphJSON []byte
	var timestampMs int64
	var source sql.NullString
	var north, south, east, west float64

	if err := row.Scan(&region.ID, &north, &south, &east, &west, &graphJSON, &timestampMs, &source); err != nil {
		return navgraph.CachedRegion{}, err
	}
	region.Bounds = geo.Bounds{North: north, South: south, East: east, West: west}
	region.Timestamp = time.UnixMilli(timestampMs)
	if source.Valid {
		region.Source = source.String
	}
	if err := json.Unmarshal(graphJSON, &region.Graph); err != nil {
		return navgraph.CachedRegion{}, fmt.Errorf("unmarshal cached region graph: %w", err)
	}
	return region, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
