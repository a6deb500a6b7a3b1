// Package store keeps rule sources and rule entries in a SQLite database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/munichmade/hostsctl/internal/hostsfile"
)

// ErrNotFound is returned when a source or entry id does not exist.
var ErrNotFound = errors.New("not found")

// Source is a rule source, usually a remote hosts list.
type Source struct {
	ID              int64      `json:"id"`
	URL             string     `json:"url"`
	Enabled         bool       `json:"enabled"`
	LastInstalledAt *time.Time `json:"last_installed_at,omitempty"`
}

const schema = `
CREATE TABLE IF NOT EXISTS sources (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	url TEXT NOT NULL UNIQUE,
	enabled INTEGER NOT NULL DEFAULT 1,
	last_installed_at INTEGER
);
CREATE TABLE IF NOT EXISTS entries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	host TEXT NOT NULL,
	kind TEXT NOT NULL CHECK (kind IN ('block', 'allow', 'redirect')),
	redirect TEXT,
	enabled INTEGER NOT NULL DEFAULT 1
);
CREATE INDEX IF NOT EXISTS idx_entries_kind ON entries(kind, enabled);
`

// Store is the rule repository.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite serializes writers anyway
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// AddSource registers an enabled source.
func (s *Store) AddSource(ctx context.Context, url string) (Source, error) {
	if err := validateSourceURL(url); err != nil {
		return Source{}, err
	}

	res, err := s.db.ExecContext(ctx, `INSERT INTO sources (url, enabled) VALUES (?, 1)`, url)
	if err != nil {
		return Source{}, fmt.Errorf("insert source: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Source{}, fmt.Errorf("insert source: %w", err)
	}
	return Source{ID: id, URL: url, Enabled: true}, nil
}

// Sources lists every source in insertion order.
func (s *Store) Sources(ctx context.Context) ([]Source, error) {
	return s.querySources(ctx, `SELECT id, url, enabled, last_installed_at FROM sources ORDER BY id`)
}

func (s *Store) querySources(ctx context.Context, query string) ([]Source, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var (
			src       Source
			installed sql.NullInt64
		)
		if err := rows.Scan(&src.ID, &src.URL, &src.Enabled, &installed); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		if installed.Valid {
			ts := time.Unix(installed.Int64, 0)
			src.LastInstalledAt = &ts
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

// SetSourceEnabled enables or disables a source.
func (s *Store) SetSourceEnabled(ctx context.Context, id int64, enabled bool) error {
	return s.execOne(ctx, `UPDATE sources SET enabled = ? WHERE id = ?`, enabled, id)
}

// RemoveSource deletes a source.
func (s *Store) RemoveSource(ctx context.Context, id int64) error {
	return s.execOne(ctx, `DELETE FROM sources WHERE id = ?`, id)
}

// EnabledSources returns the enabled sources as provenance for generation.
func (s *Store) EnabledSources(ctx context.Context) ([]hostsfile.Source, error) {
	sources, err := s.querySources(ctx, `SELECT id, url, enabled, last_installed_at FROM sources WHERE enabled = 1 ORDER BY id`)
	if err != nil {
		return nil, err
	}
	out := make([]hostsfile.Source, 0, len(sources))
	for _, src := range sources {
		out = append(out, hostsfile.Source{URL: src.URL, Enabled: src.Enabled})
	}
	return out, nil
}

// MarkInstalled stamps every enabled source as installed at now.
func (s *Store) MarkInstalled(ctx context.Context, now time.Time) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE sources SET last_installed_at = ? WHERE enabled = 1`, now.Unix()); err != nil {
		return fmt.Errorf("mark sources installed: %w", err)
	}
	return nil
}

// ClearInstalled clears the install timestamp of every source.
func (s *Store) ClearInstalled(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE sources SET last_installed_at = NULL`); err != nil {
		return fmt.Errorf("clear source install dates: %w", err)
	}
	return nil
}

// execOne runs a statement that must touch exactly one row.
func (s *Store) execOne(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
