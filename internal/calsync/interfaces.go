// Package calsync keeps the calendar_events table consistent with the source
// entities it projects: meals, planned meals, fitness sessions, and expenses.
//
// The package exposes one [Service] whose methods cover the full lifecycle of
// a calendar projection:
//
//   - creation from an entity ([Service.CreateEventForEntity]) or a raw
//     event ([Service.AddEvent]),
//   - propagation in both directions ([Service.UpdateLinkedEntity],
//     [Service.UpdateEventFromSource], [Service.UpdateEvent]),
//   - deletion and completion cleanup ([Service.DeleteEventForEntity],
//     [Service.CleanupPlannedSession]).
//
// The store offers no transactions. Multi-step operations run their writes
// strictly in sequence and report how far they got through an [Outcome].
package calsync

import (
	"context"

	"github.com/njoerd114/lifesync/internal/store"
)

// EntityStore is the table-scoped CRUD store the service writes through.
// Implemented by [store.SQLite] and [store.Postgres].
type EntityStore interface {
	Select(ctx context.Context, table string, filters ...store.Filter) ([]store.Row, error)
	Insert(ctx context.Context, table string, row store.Row) (store.Row, error)
	Update(ctx context.Context, table string, fields store.Row, filters ...store.Filter) (int64, error)
	Delete(ctx context.Context, table string, filters ...store.Filter) (int64, error)
}
