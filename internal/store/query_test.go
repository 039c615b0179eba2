package store

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestSelectQuery_Postgres(t *testing.T) {
	q, args, err := postgresDialect.selectQuery(TableCalendarEvents, []Filter{Eq("source", "workout"), Eq("source_id", "w1")})
	if err != nil {
		t.Fatalf("selectQuery: %v", err)
	}
	want := "SELECT id, user_id, title, description, start_time, end_time, source, source_id FROM calendar_events WHERE source = $1 AND source_id = $2"
	if q != want {
		t.Errorf("query =\n%s\nwant\n%s", q, want)
	}
	if !reflect.DeepEqual(args, []any{"workout", "w1"}) {
		t.Errorf("args = %v", args)
	}
}

func TestSelectQuery_RangeFilters(t *testing.T) {
	q, args, err := sqliteDialect.selectQuery(TableCalendarEvents, []Filter{
		Eq("user_id", "u1"),
		Lt("start_time", "2024-01-16T00:00:00.000Z"),
		Gt("end_time", "2024-01-15T00:00:00.000Z"),
	})
	if err != nil {
		t.Fatalf("selectQuery: %v", err)
	}
	if !strings.HasSuffix(q, " WHERE user_id = ? AND start_time < ? AND end_time > ?") {
		t.Errorf("query = %q", q)
	}
	if len(args) != 3 {
		t.Errorf("args = %v", args)
	}

	if _, _, err := sqliteDialect.selectQuery(TableCalendarEvents, []Filter{{Column: "id", Op: "LIKE", Value: "%"}}); err == nil {
		t.Error("expected unknown operator to be rejected")
	}
}

func TestUpdateQuery_NumbersFiltersAfterFields(t *testing.T) {
	q, args, err := postgresDialect.updateQuery("fitness_workouts",
		Row{"status": "completed", "in_progress": false},
		[]Filter{Eq("id", "w1"), Eq("user_id", "u1")},
	)
	if err != nil {
		t.Fatalf("updateQuery: %v", err)
	}
	want := "UPDATE fitness_workouts SET in_progress = $1, status = $2 WHERE id = $3 AND user_id = $4"
	if q != want {
		t.Errorf("query = %q, want %q", q, want)
	}
	if !reflect.DeepEqual(args, []any{false, "completed", "w1", "u1"}) {
		t.Errorf("args = %v", args)
	}
}

func TestInsertQuery_SQLite(t *testing.T) {
	q, args, err := sqliteDialect.insertQuery("expenses", Row{"id": "e1", "user_id": "u1", "amount": 12.5})
	if err != nil {
		t.Fatalf("insertQuery: %v", err)
	}
	if q != "INSERT INTO expenses (amount, id, user_id) VALUES (?, ?, ?)" {
		t.Errorf("query = %q", q)
	}
	if len(args) != 3 || args[0] != 12.5 {
		t.Errorf("args = %v", args)
	}
}

func TestQueries_RejectUnknownIdentifiers(t *testing.T) {
	if _, _, err := sqliteDialect.selectQuery("users", nil); err == nil {
		t.Error("expected error for unknown table")
	}
	if _, _, err := sqliteDialect.updateQuery(TableCalendarEvents, Row{"title; DROP TABLE meals": "x"}, []Filter{Eq("id", "1")}); err == nil {
		t.Error("expected error for injected column name")
	}
	if _, _, err := sqliteDialect.updateQuery("meals", Row{"start_time": "x"}, []Filter{Eq("id", "1")}); err == nil {
		t.Error("expected error for column the table lacks")
	}
}

func TestQueries_RequireFilters(t *testing.T) {
	if _, _, err := sqliteDialect.deleteQuery(TableCalendarEvents, nil); !errors.Is(err, errNoFilters) {
		t.Errorf("delete without filters: err = %v, want errNoFilters", err)
	}
	if _, _, err := sqliteDialect.updateQuery(TableCalendarEvents, Row{"title": "x"}, nil); !errors.Is(err, errNoFilters) {
		t.Errorf("update without filters: err = %v, want errNoFilters", err)
	}
}

func TestBindValue_Time(t *testing.T) {
	ts := time.Date(2024, 1, 15, 1, 0, 0, 0, time.UTC)
	if got := bindValue(ts); got != "2024-01-15T01:00:00.000Z" {
		t.Errorf("bindValue(time) = %v", got)
	}
	if got := bindValue(time.Time{}); got != nil {
		t.Errorf("bindValue(zero) = %v, want nil", got)
	}
	var nilPtr *time.Time
	if got := bindValue(nilPtr); got != nil {
		t.Errorf("bindValue(nil ptr) = %v, want nil", got)
	}
}

func TestSchemaDDL(t *testing.T) {
	pg := schemaDDL(postgresDialect)
	for _, want := range []string{
		"CREATE TABLE IF NOT EXISTS calendar_events",
		"CREATE TABLE IF NOT EXISTS fitness_cardio",
		"amount DOUBLE PRECISION",
		"in_progress BOOLEAN NOT NULL DEFAULT FALSE",
		"idx_calendar_events_source",
	} {
		if !strings.Contains(pg, want) {
			t.Errorf("postgres DDL missing %q", want)
		}
	}
	if !strings.Contains(schemaDDL(sqliteDialect), "amount REAL") {
		t.Error("sqlite DDL missing REAL amount")
	}
}

func TestRowAccessors(t *testing.T) {
	r := Row{"s": "x", "b": []byte("y"), "n": nil, "t": true, "i": int64(1), "f": 2.5}
	if r.String("s") != "x" || r.String("b") != "y" || r.String("n") != "" || r.String("missing") != "" {
		t.Errorf("String accessors wrong: %q %q %q", r.String("s"), r.String("b"), r.String("n"))
	}
	if r.String("f") != "2.5" {
		t.Errorf("String(f) = %q", r.String("f"))
	}
	if !r.Bool("t") || !r.Bool("i") || r.Bool("s") {
		t.Error("Bool accessors wrong")
	}
}

func TestOpError(t *testing.T) {
	cause := errors.New("boom")
	err := wrapErr("delete", "meals", cause)
	if !errors.Is(err, cause) {
		t.Error("OpError does not unwrap to cause")
	}
	if err.Error() != "delete meals: boom" {
		t.Errorf("Error() = %q", err.Error())
	}
	if wrapErr("delete", "meals", nil) != nil {
		t.Error("wrapErr(nil) should be nil")
	}
}
