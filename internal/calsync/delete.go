package calsync

import (
	"context"
	"fmt"

	"github.com/njoerd114/lifesync/internal/model"
	"github.com/njoerd114/lifesync/internal/store"
)

// DeleteEventForEntity removes every calendar event the user owns that was
// projected from (source, sourceID). Zero matching rows is not an error.
func (s *Service) DeleteEventForEntity(ctx context.Context, source model.Source, sourceID, userID string) (err error) {
	ctx, span := s.start(ctx, "delete_event_for_entity", sourceAttrs(string(source), sourceID)...)
	defer func() { s.finish(ctx, span, "delete_event_for_entity", outcomeOf(err), err) }()

	_, err = s.deleteEventForEntity(ctx, source, sourceID, userID)
	return err
}

func (s *Service) deleteEventForEntity(ctx context.Context, source model.Source, sourceID, userID string) (int64, error) {
	n, err := s.store.Delete(ctx, store.TableCalendarEvents,
		store.Eq("source", string(source)), store.Eq("source_id", sourceID), store.Eq("user_id", userID))
	if err != nil {
		return 0, fmt.Errorf("deleting calendar event for %s %q: %w", source, sourceID, err)
	}
	s.cntDeleted.Add(ctx, n)
	s.log.Debug("calendar events deleted", "source", source, "source_id", sourceID, "count", n)
	return n, nil
}

// UpdateEventForCompletedEntity drops the calendar projection of a completed
// entity. The calendar only shows pending and planned items, so completion
// deletes rather than updates.
func (s *Service) UpdateEventForCompletedEntity(ctx context.Context, source model.Source, sourceID, userID string) error {
	return s.DeleteEventForEntity(ctx, source, sourceID, userID)
}

// CleanupPlannedSession finishes a fitness session that was planned on the
// calendar: its calendar event is deleted first, then the session is marked
// completed and no longer in progress.
//
// A session with no calendar event of the user's is left untouched and
// reports success. If the event is deleted but the status update fails or
// matches no session of the user's, the outcome is [CalendarOnly].
func (s *Service) CleanupPlannedSession(ctx context.Context, source model.Source, sessionID, userID string) (outcome Outcome, err error) {
	ctx, span := s.start(ctx, "cleanup_planned_session", sourceAttrs(string(source), sessionID)...)
	defer func() { s.finish(ctx, span, "cleanup_planned_session", outcome, err) }()

	if !source.IsFitness() {
		return Failed, fmt.Errorf("%w: %q", ErrUnknownFitnessType, source)
	}

	rows, err := s.store.Select(ctx, store.TableCalendarEvents,
		store.Eq("source", string(source)), store.Eq("source_id", sessionID), store.Eq("user_id", userID))
	if err != nil {
		return Failed, fmt.Errorf("looking up calendar event for %s %q: %w", source, sessionID, err)
	}
	if len(rows) == 0 {
		s.log.Debug("session was not planned, nothing to clean up", "source", source, "id", sessionID)
		return FullySynced, nil
	}

	if _, err := s.deleteEventForEntity(ctx, source, sessionID, userID); err != nil {
		return Failed, err
	}

	n, err := s.store.Update(ctx, source.Table(),
		store.Row{"status": string(model.StatusCompleted), "in_progress": false},
		store.Eq("id", sessionID), store.Eq("user_id", userID))
	if err == nil && n == 0 {
		err = store.ErrNotFound
	}
	if err != nil {
		s.log.Warn("planned session left in progress after calendar cleanup",
			"source", source, "id", sessionID, "error", err)
		return CalendarOnly, fmt.Errorf("completing %s %q: %w", source, sessionID, err)
	}
	s.cntUpdated.Add(ctx, 1)
	return FullySynced, nil
}

// DeleteEvent removes one calendar event by id, scoped to its owner.
func (s *Service) DeleteEvent(ctx context.Context, userID, id string) (err error) {
	ctx, span := s.start(ctx, "delete_event")
	defer func() { s.finish(ctx, span, "delete_event", outcomeOf(err), err) }()

	n, err := s.store.Delete(ctx, store.TableCalendarEvents, store.Eq("id", id), store.Eq("user_id", userID))
	if err != nil {
		return fmt.Errorf("deleting calendar event %q: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("calendar event %q: %w", id, store.ErrNotFound)
	}
	s.cntDeleted.Add(ctx, n)
	return nil
}

// DeleteEntity removes an entity's calendar event, then the entity itself,
// both scoped to userID. If the entity delete fails after the event is gone
// the outcome is [CalendarOnly]. An entity the user does not own is reported
// as [store.ErrNotFound].
func (s *Service) DeleteEntity(ctx context.Context, source model.Source, id, userID string) (outcome Outcome, err error) {
	ctx, span := s.start(ctx, "delete_entity", sourceAttrs(string(source), id)...)
	defer func() { s.finish(ctx, span, "delete_entity", outcome, err) }()

	table := source.Table()
	if table == "" {
		return Failed, invalid("Invalid source value: %s", source)
	}

	events, err := s.deleteEventForEntity(ctx, source, id, userID)
	if err != nil {
		return Failed, err
	}
	n, err := s.store.Delete(ctx, table, store.Eq("id", id), store.Eq("user_id", userID))
	if err != nil {
		s.log.Warn("calendar event deleted but source entity remains",
			"source", source, "id", id, "error", err)
		return CalendarOnly, fmt.Errorf("deleting %s %q: %w", source, id, err)
	}
	if n == 0 {
		outcome = Failed
		if events > 0 {
			outcome = CalendarOnly
		}
		return outcome, fmt.Errorf("%s %q: %w", source, id, store.ErrNotFound)
	}
	return FullySynced, nil
}
