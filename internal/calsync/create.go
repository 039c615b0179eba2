package calsync

import (
	"context"
	"fmt"
	"time"

	"github.com/njoerd114/lifesync/internal/model"
	"github.com/njoerd114/lifesync/internal/store"
)

// NewEvent is the input to [Service.AddEvent] for forms that build an event
// directly rather than projecting an entity.
type NewEvent struct {
	UserID      string
	Title       string
	Description string
	StartTime   time.Time
	EndTime     *time.Time
	// Source is the raw tag; it is validated before anything is written.
	Source   string
	SourceID string
}

// CreateEventForEntity projects e onto a new calendar event and inserts it.
// When the entity yields no end time the event lasts [model.DefaultDuration].
// The store error, if any, is returned as-is; the caller decides whether to
// roll back the entity.
func (s *Service) CreateEventForEntity(ctx context.Context, e model.Entity) (ev *model.CalendarEvent, err error) {
	ref := e.Key()
	ctx, span := s.start(ctx, "create_event", sourceAttrs(string(e.Source()), ref.ID)...)
	defer func() { s.finish(ctx, span, "create_event", outcomeOf(err), err) }()

	return s.createEvent(ctx, e)
}

func (s *Service) createEvent(ctx context.Context, e model.Entity) (*model.CalendarEvent, error) {
	ref := e.Key()
	p := e.Project(s.now().UTC())
	ev := &model.CalendarEvent{
		UserID:      ref.UserID,
		Title:       p.Title,
		Description: p.Description,
		StartTime:   p.Start,
		EndTime:     model.EndOrDefault(p.Start, p.End),
		Source:      e.Source(),
		SourceID:    ref.ID,
	}
	if err := s.insertEvent(ctx, ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// AddEvent validates and inserts a raw event. An unknown source is rejected
// with a [ValidationError] and nothing is written.
func (s *Service) AddEvent(ctx context.Context, in NewEvent) (ev *model.CalendarEvent, err error) {
	ctx, span := s.start(ctx, "add_event", sourceAttrs(in.Source, in.SourceID)...)
	defer func() { s.finish(ctx, span, "add_event", outcomeOf(err), err) }()

	src, ok := model.ParseSource(in.Source)
	if !ok {
		return nil, invalid("Invalid source value: %s", in.Source)
	}
	if in.UserID == "" {
		return nil, invalid("user_id is required")
	}
	if in.StartTime.IsZero() {
		return nil, invalid("start_time is required")
	}

	ev = &model.CalendarEvent{
		UserID:      in.UserID,
		Title:       in.Title,
		Description: in.Description,
		StartTime:   in.StartTime.UTC(),
		EndTime:     model.EndOrDefault(in.StartTime.UTC(), in.EndTime),
		Source:      src,
		SourceID:    in.SourceID,
	}
	if err := s.insertEvent(ctx, ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// CreateEntity inserts the entity's source row, then its calendar event.
// If the event insert fails the source row stays and the outcome is
// [SourceOnly].
func (s *Service) CreateEntity(ctx context.Context, e model.Entity) (outcome Outcome, ev *model.CalendarEvent, err error) {
	ref := e.Key()
	ctx, span := s.start(ctx, "create_entity", sourceAttrs(string(e.Source()), ref.ID)...)
	defer func() { s.finish(ctx, span, "create_entity", outcome, err) }()

	if ref.UserID == "" {
		return Failed, nil, invalid("user_id is required")
	}

	if row := e.Row(); row != nil {
		table := e.Source().Table()
		inserted, err := s.store.Insert(ctx, table, row)
		if err != nil {
			return Failed, nil, fmt.Errorf("inserting %s: %w", e.Source(), err)
		}
		e.SetID(inserted.String("id"))
		s.log.Debug("source entity inserted", "source", e.Source(), "id", e.Key().ID)
	}

	ev, err = s.createEvent(ctx, e)
	if err != nil {
		if e.Row() == nil {
			return Failed, nil, err
		}
		s.log.Warn("entity created without calendar event",
			"source", e.Source(), "id", e.Key().ID, "error", err)
		return SourceOnly, nil, err
	}
	return FullySynced, ev, nil
}

// insertEvent writes ev and records the store-assigned id on it.
func (s *Service) insertEvent(ctx context.Context, ev *model.CalendarEvent) error {
	row, err := s.store.Insert(ctx, store.TableCalendarEvents, eventRow(ev))
	if err != nil {
		return fmt.Errorf("inserting calendar event for %s %q: %w", ev.Source, ev.SourceID, err)
	}
	ev.ID = row.String("id")
	s.cntCreated.Add(ctx, 1)
	s.log.Debug("calendar event inserted",
		"id", ev.ID, "source", ev.Source, "source_id", ev.SourceID,
		"start", ev.StartTime, "end", ev.EndTime)
	return nil
}
