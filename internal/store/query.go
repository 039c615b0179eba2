package store

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Row is one record keyed by column name.
type Row map[string]any

// String returns the column as a string, or "" if absent or NULL.
func (r Row) String(col string) string {
	switch v := r[col].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// Bool returns the column as a bool. SQLite may hand back integers.
func (r Row) Bool(col string) bool {
	switch v := r[col].(type) {
	case bool:
		return v
	case int64:
		return v != 0
	default:
		return false
	}
}

// Filter is a comparison predicate on one column. The zero Op is "=".
type Filter struct {
	Column string
	Op     string
	Value  any
}

// Eq builds a Filter matching rows where column = value.
func Eq(column string, value any) Filter {
	return Filter{Column: column, Value: value}
}

// Lt matches rows where column < value. On the text timestamp columns this
// is chronological because every timestamp is stored as fixed-width UTC.
func Lt(column string, value any) Filter {
	return Filter{Column: column, Op: "<", Value: value}
}

// Gt matches rows where column > value.
func Gt(column string, value any) Filter {
	return Filter{Column: column, Op: ">", Value: value}
}

// op returns the SQL operator, rejecting anything outside the known set.
func (f Filter) op() (string, error) {
	switch f.Op {
	case "", "=":
		return "=", nil
	case "<", ">":
		return f.Op, nil
	default:
		return "", fmt.Errorf("unsupported filter operator %q on %s", f.Op, f.Column)
	}
}

var (
	// ErrNotFound is returned by lookups that expect exactly one row.
	ErrNotFound = errors.New("not found")

	errNoFilters = errors.New("refusing to touch every row: no filters given")
)

// OpError records which verb and table a store failure came from.
type OpError struct {
	Op    string
	Table string
	Err   error
}

func (e *OpError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Table, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

func wrapErr(op, table string, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: op, Table: table, Err: err}
}

// dialect captures the differences between SQLite and Postgres that matter
// to the statement builders.
type dialect struct {
	name        string
	placeholder func(n int) string
	typeName    func(k kind) string
}

var sqliteDialect = dialect{
	name:        "sqlite",
	placeholder: func(int) string { return "?" },
	typeName: func(k kind) string {
		switch k {
		case kindReal:
			return "REAL"
		case kindBool:
			return "BOOLEAN NOT NULL DEFAULT 0"
		default:
			return "TEXT"
		}
	},
}

var postgresDialect = dialect{
	name:        "postgres",
	placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
	typeName: func(k kind) string {
		switch k {
		case kindReal:
			return "DOUBLE PRECISION"
		case kindBool:
			return "BOOLEAN NOT NULL DEFAULT FALSE"
		default:
			return "TEXT"
		}
	},
}

// sortedKeys gives statements a deterministic column order.
func sortedKeys(r Row) []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func filterColumns(filters []Filter) []string {
	cols := make([]string, len(filters))
	for i, f := range filters {
		cols[i] = f.Column
	}
	return cols
}

// where renders "WHERE a = $n AND b < $n+1", numbering from start.
func (d dialect) where(filters []Filter, start int) (string, []any, error) {
	if len(filters) == 0 {
		return "", nil, nil
	}
	parts := make([]string, len(filters))
	args := make([]any, len(filters))
	for i, f := range filters {
		op, err := f.op()
		if err != nil {
			return "", nil, err
		}
		parts[i] = f.Column + " " + op + " " + d.placeholder(start+i)
		args[i] = bindValue(f.Value)
	}
	return " WHERE " + strings.Join(parts, " AND "), args, nil
}

func (d dialect) selectQuery(table string, filters []Filter) (string, []any, error) {
	if err := checkColumns(table, filterColumns(filters)...); err != nil {
		return "", nil, err
	}
	cols := columnsOf(table)
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.name
	}
	where, args, err := d.where(filters, 1)
	if err != nil {
		return "", nil, err
	}
	return "SELECT " + strings.Join(names, ", ") + " FROM " + table + where, args, nil
}

func (d dialect) insertQuery(table string, row Row) (string, []any, error) {
	keys := sortedKeys(row)
	if err := checkColumns(table, keys...); err != nil {
		return "", nil, err
	}
	ph := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, k := range keys {
		ph[i] = d.placeholder(i + 1)
		args[i] = bindValue(row[k])
	}
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(keys, ", "), strings.Join(ph, ", "))
	return q, args, nil
}

func (d dialect) updateQuery(table string, fields Row, filters []Filter) (string, []any, error) {
	if len(filters) == 0 {
		return "", nil, errNoFilters
	}
	if len(fields) == 0 {
		return "", nil, errors.New("no fields to update")
	}
	keys := sortedKeys(fields)
	if err := checkColumns(table, append(keys, filterColumns(filters)...)...); err != nil {
		return "", nil, err
	}
	sets := make([]string, len(keys))
	args := make([]any, 0, len(keys)+len(filters))
	for i, k := range keys {
		sets[i] = k + " = " + d.placeholder(i+1)
		args = append(args, bindValue(fields[k]))
	}
	where, wargs, err := d.where(filters, len(keys)+1)
	if err != nil {
		return "", nil, err
	}
	return "UPDATE " + table + " SET " + strings.Join(sets, ", ") + where, append(args, wargs...), nil
}

func (d dialect) deleteQuery(table string, filters []Filter) (string, []any, error) {
	if len(filters) == 0 {
		return "", nil, errNoFilters
	}
	if err := checkColumns(table, filterColumns(filters)...); err != nil {
		return "", nil, err
	}
	where, args, err := d.where(filters, 1)
	if err != nil {
		return "", nil, err
	}
	return "DELETE FROM " + table + where, args, nil
}

// bindValue converts values the drivers would otherwise store in their own
// formats.
func bindValue(v any) any {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return nil
		}
		return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
	case *time.Time:
		if t == nil {
			return nil
		}
		return bindValue(*t)
	default:
		return v
	}
}

// scanValue normalises driver output.
func scanValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
