package calsync

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/njoerd114/lifesync/internal/store"
)

// --- Mock Entity Store -------------------------------------------------------

// call is one recorded store invocation.
type call struct {
	op      string
	table   string
	fields  store.Row
	filters []store.Filter
}

// mockStore is an in-memory EntityStore. Rows are matched on their filter
// columns by comparing string forms. Errors can be injected per (op, table).
type mockStore struct {
	mu     sync.Mutex
	rows   map[string][]store.Row // table → rows
	calls  []call
	fail   map[string]error // "op table" → error
	nextID int
}

func newMockStore() *mockStore {
	return &mockStore{
		rows: make(map[string][]store.Row),
		fail: make(map[string]error),
	}
}

var errInjected = errors.New("injected store failure")

func (m *mockStore) failOn(op, table string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail[op+" "+table] = errInjected
}

func (m *mockStore) seed(table string, rows ...store.Row) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rows {
		m.rows[table] = append(m.rows[table], copyRow(r))
	}
}

func (m *mockStore) record(c call) error {
	m.calls = append(m.calls, c)
	if err := m.fail[c.op+" "+c.table]; err != nil {
		return &store.OpError{Op: c.op, Table: c.table, Err: err}
	}
	return nil
}

func (m *mockStore) Select(_ context.Context, table string, filters ...store.Filter) ([]store.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(call{op: "select", table: table, filters: filters}); err != nil {
		return nil, err
	}
	var out []store.Row
	for _, r := range m.rows[table] {
		if matches(r, filters) {
			out = append(out, copyRow(r))
		}
	}
	return out, nil
}

func (m *mockStore) Insert(_ context.Context, table string, row store.Row) (store.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(call{op: "insert", table: table, fields: copyRow(row)}); err != nil {
		return nil, err
	}
	cp := copyRow(row)
	if id, _ := cp["id"].(string); id == "" {
		m.nextID++
		cp["id"] = fmt.Sprintf("id-%d", m.nextID)
	}
	m.rows[table] = append(m.rows[table], cp)
	return copyRow(cp), nil
}

func (m *mockStore) Update(_ context.Context, table string, fields store.Row, filters ...store.Filter) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(call{op: "update", table: table, fields: copyRow(fields), filters: filters}); err != nil {
		return 0, err
	}
	var n int64
	for _, r := range m.rows[table] {
		if matches(r, filters) {
			for k, v := range fields {
				r[k] = v
			}
			n++
		}
	}
	return n, nil
}

func (m *mockStore) Delete(_ context.Context, table string, filters ...store.Filter) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(call{op: "delete", table: table, filters: filters}); err != nil {
		return 0, err
	}
	var kept []store.Row
	var n int64
	for _, r := range m.rows[table] {
		if matches(r, filters) {
			n++
			continue
		}
		kept = append(kept, r)
	}
	m.rows[table] = kept
	return n, nil
}

func (m *mockStore) get(table string) []store.Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.Row, len(m.rows[table]))
	for i, r := range m.rows[table] {
		out[i] = copyRow(r)
	}
	return out
}

// writes returns the recorded non-select calls.
func (m *mockStore) writes() []call {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []call
	for _, c := range m.calls {
		if c.op != "select" {
			out = append(out, c)
		}
	}
	return out
}

func matches(r store.Row, filters []store.Filter) bool {
	for _, f := range filters {
		got, want := fmt.Sprint(r[f.Column]), fmt.Sprint(f.Value)
		switch f.Op {
		case "<":
			if !(got < want) {
				return false
			}
		case ">":
			if !(got > want) {
				return false
			}
		default:
			if got != want {
				return false
			}
		}
	}
	return true
}

func copyRow(r store.Row) store.Row {
	if r == nil {
		return nil
	}
	cp := make(store.Row, len(r))
	for k, v := range r {
		cp[k] = v
	}
	return cp
}
