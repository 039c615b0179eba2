package calsync

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/njoerd114/lifesync/internal/model"
	"github.com/njoerd114/lifesync/internal/store"
)

// GetEvent returns the user's event with the given id, or an error wrapping
// [store.ErrNotFound].
func (s *Service) GetEvent(ctx context.Context, userID, id string) (*model.CalendarEvent, error) {
	return s.getEvent(ctx, userID, id)
}

func (s *Service) getEvent(ctx context.Context, userID, id string) (*model.CalendarEvent, error) {
	rows, err := s.store.Select(ctx, store.TableCalendarEvents, store.Eq("id", id), store.Eq("user_id", userID))
	if err != nil {
		return nil, fmt.Errorf("reading calendar event %q: %w", id, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("calendar event %q: %w", id, store.ErrNotFound)
	}
	ev, err := eventFromRow(rows[0])
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// FindEvents returns the user's events projected from (source, sourceID).
// Given the one-event-per-entity convention this is zero or one event.
func (s *Service) FindEvents(ctx context.Context, source model.Source, sourceID, userID string) ([]model.CalendarEvent, error) {
	rows, err := s.store.Select(ctx, store.TableCalendarEvents,
		store.Eq("source", string(source)), store.Eq("source_id", sourceID), store.Eq("user_id", userID))
	if err != nil {
		return nil, fmt.Errorf("reading calendar events for %s %q: %w", source, sourceID, err)
	}
	return eventsFromRows(rows)
}

// ListEvents returns the user's events overlapping [from, to), ordered by
// start time. Zero bounds are open.
func (s *Service) ListEvents(ctx context.Context, userID string, from, to time.Time) (evs []model.CalendarEvent, err error) {
	ctx, span := s.start(ctx, "list_events")
	defer func() {
		span.SetAttributes(attribute.Int(attrEventCount, len(evs)))
		s.finish(ctx, span, "list_events", outcomeOf(err), err)
	}()

	filters := []store.Filter{store.Eq("user_id", userID)}
	if !to.IsZero() {
		filters = append(filters, store.Lt("start_time", model.FormatTimestamp(to)))
	}
	if !from.IsZero() {
		filters = append(filters, store.Gt("end_time", model.FormatTimestamp(from)))
	}
	rows, err := s.store.Select(ctx, store.TableCalendarEvents, filters...)
	if err != nil {
		return nil, fmt.Errorf("listing calendar events: %w", err)
	}
	if evs, err = eventsFromRows(rows); err != nil {
		return nil, err
	}
	sort.SliceStable(evs, func(i, j int) bool {
		if evs[i].StartTime.Equal(evs[j].StartTime) {
			return evs[i].ID < evs[j].ID
		}
		return evs[i].StartTime.Before(evs[j].StartTime)
	})
	return evs, nil
}

// Audit returns the user's calendar events whose source entity no longer
// exists. These are left behind when a source delete succeeds but the
// calendar delete does not.
func (s *Service) Audit(ctx context.Context, userID string) (orphans []model.CalendarEvent, err error) {
	ctx, span := s.start(ctx, "audit")
	defer func() {
		span.SetAttributes(attribute.Int(attrEventCount, len(orphans)))
		s.finish(ctx, span, "audit", outcomeOf(err), err)
	}()

	evs, err := s.ListEvents(ctx, userID, time.Time{}, time.Time{})
	if err != nil {
		return nil, err
	}
	return s.orphans(ctx, evs)
}

// orphans returns the events in evs whose source row is missing. Notes and
// events without a source id are never orphans.
func (s *Service) orphans(ctx context.Context, evs []model.CalendarEvent) ([]model.CalendarEvent, error) {
	var out []model.CalendarEvent
	for _, ev := range evs {
		table := ev.Source.Table()
		if table == "" || ev.SourceID == "" {
			continue
		}
		rows, err := s.store.Select(ctx, table, store.Eq("id", ev.SourceID), store.Eq("user_id", ev.UserID))
		if err != nil {
			return nil, fmt.Errorf("checking %s %q: %w", ev.Source, ev.SourceID, err)
		}
		if len(rows) == 0 {
			out = append(out, ev)
		}
	}
	return out, nil
}
