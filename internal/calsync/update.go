package calsync

import (
	"context"
	"fmt"
	"time"

	"github.com/njoerd114/lifesync/internal/model"
	"github.com/njoerd114/lifesync/internal/store"
)

// UpdateRequest describes a calendar-side reschedule, typically a
// drag-and-drop in the calendar view.
type UpdateRequest struct {
	ID       string
	UserID   string
	NewStart time.Time
	// NewEnd is optional. Without it the event keeps its current end time,
	// or gets NewStart + [model.DefaultDuration] if it had none.
	NewEnd *time.Time
	// UpdateLinkedEntity also reschedules the event's source entity.
	UpdateLinkedEntity bool
}

// UpdateResult is the result of [Service.UpdateEvent].
type UpdateResult struct {
	Event               *model.CalendarEvent `json:"event"`
	LinkedEntityUpdated bool                 `json:"linkedEntityUpdated"`
	Outcome             Outcome              `json:"outcome"`
}

// UpdateEvent reschedules a calendar event and, if requested, its source
// entity. A failure to update the source entity is not an error: the result
// reports LinkedEntityUpdated=false with outcome [CalendarOnly] so the caller
// can surface it.
func (s *Service) UpdateEvent(ctx context.Context, req UpdateRequest) (res *UpdateResult, err error) {
	ctx, span := s.start(ctx, "update_event")
	outcome := Failed
	defer func() { s.finish(ctx, span, "update_event", outcome, err) }()

	if req.NewStart.IsZero() {
		return nil, invalid("new start time is required")
	}

	current, err := s.getEvent(ctx, req.UserID, req.ID)
	if err != nil {
		return nil, err
	}

	start := req.NewStart.UTC()
	end := req.NewEnd
	if end == nil && !current.EndTime.IsZero() {
		end = &current.EndTime
	}
	finalEnd := model.EndOrDefault(start, end)

	fields := store.Row{
		"start_time": model.FormatTimestamp(start),
		"end_time":   model.FormatTimestamp(finalEnd),
	}
	_, err = s.store.Update(ctx, store.TableCalendarEvents, fields,
		store.Eq("id", req.ID), store.Eq("user_id", req.UserID))
	if err != nil {
		return nil, fmt.Errorf("updating calendar event %q: %w", req.ID, err)
	}
	s.cntUpdated.Add(ctx, 1)

	updated := *current
	updated.StartTime = start
	updated.EndTime = finalEnd
	res = &UpdateResult{Event: &updated, Outcome: FullySynced}

	if req.UpdateLinkedEntity {
		if linkErr := s.updateLinkedEntity(ctx, &updated); linkErr != nil {
			s.log.Warn("calendar event moved but source entity was not",
				"event_id", updated.ID, "source", updated.Source,
				"source_id", updated.SourceID, "error", linkErr)
			span.RecordError(linkErr)
			res.Outcome = CalendarOnly
		} else {
			res.LinkedEntityUpdated = true
		}
	}

	outcome = res.Outcome
	return res, nil
}

// UpdateLinkedEntity writes the event's new day (and, for fitness sessions,
// its start and end times) back onto the source entity. Sources without a
// table are a no-op.
func (s *Service) UpdateLinkedEntity(ctx context.Context, ev *model.CalendarEvent) (err error) {
	ctx, span := s.start(ctx, "update_linked_entity", sourceAttrs(string(ev.Source), ev.SourceID)...)
	defer func() { s.finish(ctx, span, "update_linked_entity", outcomeOf(err), err) }()

	return s.updateLinkedEntity(ctx, ev)
}

func (s *Service) updateLinkedEntity(ctx context.Context, ev *model.CalendarEvent) error {
	table := ev.Source.Table()
	if table == "" || ev.SourceID == "" {
		s.log.Debug("no linked entity to update", "source", ev.Source, "source_id", ev.SourceID)
		return nil
	}

	fields := store.Row{ev.Source.DateColumn(): model.FormatDate(ev.StartTime)}
	// Tables with only a date column drop the time fields. Stretching keeps a
	// start_time without an end.
	if ev.Source.HasTimeColumns() && !ev.EndTime.IsZero() {
		fields["start_time"] = model.FormatTimestamp(ev.StartTime)
		fields["end_time"] = model.FormatTimestamp(ev.EndTime)
	} else if ev.Source == model.SourceStretching {
		fields["start_time"] = model.FormatTimestamp(ev.StartTime)
	}

	_, err := s.store.Update(ctx, table, fields,
		store.Eq("id", ev.SourceID), store.Eq("user_id", ev.UserID))
	if err != nil {
		return fmt.Errorf("updating %s %q from calendar: %w", ev.Source, ev.SourceID, err)
	}
	s.cntUpdated.Add(ctx, 1)
	s.log.Debug("linked entity rescheduled", "source", ev.Source, "source_id", ev.SourceID, "fields", fields)
	return nil
}

// UpdateEventFromSource applies fields verbatim to the user's calendar event
// of (source, sourceID). The caller builds the column names; this is the
// source editor → calendar direction.
func (s *Service) UpdateEventFromSource(ctx context.Context, source model.Source, sourceID, userID string, fields map[string]any) (err error) {
	ctx, span := s.start(ctx, "update_event_from_source", sourceAttrs(string(source), sourceID)...)
	defer func() { s.finish(ctx, span, "update_event_from_source", outcomeOf(err), err) }()

	_, err = s.store.Update(ctx, store.TableCalendarEvents, store.Row(fields),
		store.Eq("source", string(source)), store.Eq("source_id", sourceID), store.Eq("user_id", userID))
	if err != nil {
		return fmt.Errorf("updating calendar event for %s %q: %w", source, sourceID, err)
	}
	s.cntUpdated.Add(ctx, 1)
	return nil
}
