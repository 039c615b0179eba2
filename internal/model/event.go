package model

import "time"

// CalendarEvent is the unified calendar record. Every (Source, SourceID)
// pair maps to at most one event.
type CalendarEvent struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Source      Source    `json:"source"`
	SourceID    string    `json:"source_id"`
}

// Projection is the derived calendar view of a source entity: what its
// event's title, description and time span should be.
type Projection struct {
	Title       string
	Description string
	Start       time.Time
	// End is nil when the entity carries no end time of its own.
	End *time.Time
}

// EndOrDefault returns the explicit end if present and not before start,
// otherwise start plus DefaultDuration.
func EndOrDefault(start time.Time, end *time.Time) time.Time {
	if end != nil && !end.IsZero() && !end.Before(start) {
		return *end
	}
	return start.Add(DefaultDuration)
}
