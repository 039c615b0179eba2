package calsync

import (
	"fmt"

	"github.com/njoerd114/lifesync/internal/model"
	"github.com/njoerd114/lifesync/internal/store"
)

// eventRow renders an event for insertion. The id is left to the store.
func eventRow(ev *model.CalendarEvent) store.Row {
	return store.Row{
		"user_id":     ev.UserID,
		"title":       ev.Title,
		"description": ev.Description,
		"start_time":  model.FormatTimestamp(ev.StartTime),
		"end_time":    model.FormatTimestamp(ev.EndTime),
		"source":      string(ev.Source),
		"source_id":   ev.SourceID,
	}
}

// eventFromRow parses a calendar_events row.
func eventFromRow(row store.Row) (model.CalendarEvent, error) {
	ev := model.CalendarEvent{
		ID:          row.String("id"),
		UserID:      row.String("user_id"),
		Title:       row.String("title"),
		Description: row.String("description"),
		Source:      model.Source(row.String("source")),
		SourceID:    row.String("source_id"),
	}
	var err error
	if ev.StartTime, err = model.ParseTimestamp(row.String("start_time")); err != nil {
		return ev, fmt.Errorf("event %s start_time: %w", ev.ID, err)
	}
	if ev.EndTime, err = model.ParseTimestamp(row.String("end_time")); err != nil {
		return ev, fmt.Errorf("event %s end_time: %w", ev.ID, err)
	}
	return ev, nil
}

func eventsFromRows(rows []store.Row) ([]model.CalendarEvent, error) {
	out := make([]model.CalendarEvent, 0, len(rows))
	for _, row := range rows {
		ev, err := eventFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, nil
}
