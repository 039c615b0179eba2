package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres is the entity store backed by a hosted Postgres database.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to dsn, verifies the connection, and applies the
// schema.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pingUntilReady(ctx, pool.Ping); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	// Exec without arguments uses the simple protocol, which accepts
	// several statements at once.
	if _, err := pool.Exec(ctx, schemaDDL(postgresDialect)); err != nil {
		pool.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

// Close releases every pooled connection.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

// Select returns every row of table matching all filters.
func (p *Postgres) Select(ctx context.Context, table string, filters ...Filter) ([]Row, error) {
	q, args, err := postgresDialect.selectQuery(table, filters)
	if err != nil {
		return nil, wrapErr("select", table, err)
	}
	rows, err := p.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, wrapErr("select", table, err)
	}
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, wrapErr("select", table, err)
	}
	out := make([]Row, len(maps))
	for i, m := range maps {
		row := make(Row, len(m))
		for k, v := range m {
			row[k] = scanValue(v)
		}
		out[i] = row
	}
	return out, nil
}

// Insert writes one row and returns it with its id populated.
func (p *Postgres) Insert(ctx context.Context, table string, row Row) (Row, error) {
	row = withID(row)
	q, args, err := postgresDialect.insertQuery(table, row)
	if err != nil {
		return nil, wrapErr("insert", table, err)
	}
	if _, err := p.pool.Exec(ctx, q, args...); err != nil {
		return nil, wrapErr("insert", table, err)
	}
	return row, nil
}

// Update sets fields on every row matching all filters.
func (p *Postgres) Update(ctx context.Context, table string, fields Row, filters ...Filter) (int64, error) {
	q, args, err := postgresDialect.updateQuery(table, fields, filters)
	if err != nil {
		return 0, wrapErr("update", table, err)
	}
	tag, err := p.pool.Exec(ctx, q, args...)
	if err != nil {
		return 0, wrapErr("update", table, err)
	}
	return tag.RowsAffected(), nil
}

// Delete removes every row matching all filters.
func (p *Postgres) Delete(ctx context.Context, table string, filters ...Filter) (int64, error) {
	q, args, err := postgresDialect.deleteQuery(table, filters)
	if err != nil {
		return 0, wrapErr("delete", table, err)
	}
	tag, err := p.pool.Exec(ctx, q, args...)
	if err != nil {
		return 0, wrapErr("delete", table, err)
	}
	return tag.RowsAffected(), nil
}
