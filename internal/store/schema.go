package store

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// kind is the logical column type; each dialect maps it to a concrete type.
type kind int

const (
	kindText kind = iota
	kindReal
	kindBool
)

type column struct {
	name string
	kind kind
}

// Tables known to the store. calendar_events first, then one table per
// source entity.
const (
	TableCalendarEvents = "calendar_events"
)

var tables = map[string][]column{
	TableCalendarEvents: {
		{"title", kindText},
		{"description", kindText},
		{"start_time", kindText},
		{"end_time", kindText},
		{"source", kindText},
		{"source_id", kindText},
	},
	"meals": {
		{"name", kindText},
		{"meal_time", kindText},
		{"description", kindText},
		{"date", kindText},
	},
	"planned_meals": {
		{"meal_name", kindText},
		{"name", kindText},
		{"meal_time", kindText},
		{"description", kindText},
		{"planned_date", kindText},
	},
	"fitness_workouts": sessionColumns(
		column{"title", kindText},
	),
	"fitness_cardio": sessionColumns(
		column{"activity_type", kindText},
	),
	"fitness_sports": sessionColumns(
		column{"activity_type", kindText},
		column{"performance_notes", kindText},
	),
	"fitness_stretching": {
		{"title", kindText},
		{"description", kindText},
		{"date", kindText},
		{"start_time", kindText},
		{"status", kindText},
		{"in_progress", kindBool},
	},
	"expenses": {
		{"name", kindText},
		{"amount", kindReal},
		{"notes", kindText},
		{"date", kindText},
	},
}

func sessionColumns(extra ...column) []column {
	cols := []column{
		{"date", kindText},
		{"start_time", kindText},
		{"end_time", kindText},
		{"notes", kindText},
		{"status", kindText},
		{"in_progress", kindBool},
	}
	return append(cols, extra...)
}

// columnsOf returns every column of table including id and user_id, in
// declaration order.
func columnsOf(table string) []column {
	cols := []column{{"id", kindText}, {"user_id", kindText}}
	return append(cols, tables[table]...)
}

var identRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// checkColumns rejects unknown tables and columns before any SQL is built.
// Identifiers are interpolated into statement text unescaped.
func checkColumns(table string, names ...string) error {
	if _, ok := tables[table]; !ok {
		return fmt.Errorf("unknown table %q", table)
	}
	for _, n := range names {
		if !identRe.MatchString(n) {
			return fmt.Errorf("invalid column name %q", n)
		}
		if !hasColumn(table, n) {
			return fmt.Errorf("table %s has no column %q", table, n)
		}
	}
	return nil
}

func hasColumn(table, name string) bool {
	for _, c := range columnsOf(table) {
		if c.name == name {
			return true
		}
	}
	return false
}

// schemaDDL renders CREATE TABLE/INDEX statements for a dialect.
func schemaDDL(d dialect) string {
	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", name)
		b.WriteString("    id      TEXT PRIMARY KEY,\n")
		b.WriteString("    user_id TEXT NOT NULL")
		for _, c := range tables[name] {
			fmt.Fprintf(&b, ",\n    %s %s", c.name, d.typeName(c.kind))
		}
		b.WriteString("\n);\n")
		fmt.Fprintf(&b, "CREATE INDEX IF NOT EXISTS idx_%s_user ON %s (user_id);\n", name, name)
	}
	b.WriteString("CREATE INDEX IF NOT EXISTS idx_calendar_events_source ON calendar_events (source, source_id);\n")
	return b.String()
}
