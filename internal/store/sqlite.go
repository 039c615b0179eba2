// Package store is the entity store behind the calendar sync service: a
// table-scoped Select/Insert/Update/Delete API over SQLite or Postgres.
//
// Every call is one statement. No transactions are exposed, so callers that
// touch several tables must order their writes themselves.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLite is the SQLite-backed entity store.
type SQLite struct {
	db *sql.DB
}

// DefaultDBPath returns the default path for the SQLite database:
// ~/.local/share/lifesync/lifesync.db
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "lifesync", "lifesync.db"), nil
}

// OpenSQLite opens (or creates) the database at path, applies the schema, and
// configures WAL mode.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database %q: %w", path, err)
	}

	// Single writer to avoid SQLITE_BUSY under WAL.
	db.SetMaxOpenConns(1)

	if err := pingUntilReady(ctx, db.PingContext); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging database %q: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, schemaDDL(sqliteDialect)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close releases the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Select returns every row of table matching all filters.
func (s *SQLite) Select(ctx context.Context, table string, filters ...Filter) ([]Row, error) {
	q, args, err := sqliteDialect.selectQuery(table, filters)
	if err != nil {
		return nil, wrapErr("select", table, err)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, wrapErr("select", table, err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, wrapErr("select", table, err)
	}

	var out []Row
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, wrapErr("select", table, fmt.Errorf("scanning row: %w", err))
		}
		row := make(Row, len(cols))
		for i, c := range cols {
			row[c] = scanValue(vals[i])
		}
		out = append(out, row)
	}
	return out, wrapErr("select", table, rows.Err())
}

// Insert writes one row and returns it with its id populated. A missing or
// empty id is generated.
func (s *SQLite) Insert(ctx context.Context, table string, row Row) (Row, error) {
	row = withID(row)
	q, args, err := sqliteDialect.insertQuery(table, row)
	if err != nil {
		return nil, wrapErr("insert", table, err)
	}
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return nil, wrapErr("insert", table, err)
	}
	return row, nil
}

// Update sets fields on every row matching all filters and returns the number
// of rows changed.
func (s *SQLite) Update(ctx context.Context, table string, fields Row, filters ...Filter) (int64, error) {
	q, args, err := sqliteDialect.updateQuery(table, fields, filters)
	if err != nil {
		return 0, wrapErr("update", table, err)
	}
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, wrapErr("update", table, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Delete removes every row matching all filters and returns how many went.
func (s *SQLite) Delete(ctx context.Context, table string, filters ...Filter) (int64, error) {
	q, args, err := sqliteDialect.deleteQuery(table, filters)
	if err != nil {
		return 0, wrapErr("delete", table, err)
	}
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, wrapErr("delete", table, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// withID copies row, assigning a fresh UUID when id is missing or empty.
func withID(row Row) Row {
	out := make(Row, len(row)+1)
	for k, v := range row {
		out[k] = v
	}
	if id, _ := out["id"].(string); id == "" {
		out["id"] = uuid.NewString()
	}
	return out
}
