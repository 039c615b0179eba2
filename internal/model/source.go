// Package model defines the calendar event record, the source entities it is
// projected from, and the pure mappings (title, route, style) shared by the
// sync service, the HTTP layer, and the ICS feed.
package model

// Source identifies which domain entity a calendar event was projected from.
// The string values are the ones persisted in calendar_events.source.
type Source string

const (
	SourceMeal        Source = "meal"
	SourcePlannedMeal Source = "planned_meal"
	SourceWorkout     Source = "workout"
	SourceCardio      Source = "cardio"
	SourceSport       Source = "sport"
	SourceStretching  Source = "stretching"
	SourceExpense     Source = "expense"
	// SourceNote marks free-standing events that have no backing table.
	SourceNote Source = "note"
)

// Sources lists every known source in a stable order.
var Sources = []Source{
	SourceMeal,
	SourcePlannedMeal,
	SourceWorkout,
	SourceCardio,
	SourceSport,
	SourceStretching,
	SourceExpense,
	SourceNote,
}

// String returns the persisted tag.
func (s Source) String() string { return string(s) }

// Valid reports whether s is one of the known source tags.
func (s Source) Valid() bool {
	switch s {
	case SourceMeal, SourcePlannedMeal, SourceWorkout, SourceCardio,
		SourceSport, SourceStretching, SourceExpense, SourceNote:
		return true
	default:
		return false
	}
}

// ParseSource converts a raw tag into a Source. ok is false for anything
// outside the known set.
func ParseSource(raw string) (s Source, ok bool) {
	s = Source(raw)
	return s, s.Valid()
}

// IsFitness reports whether the source is a trackable fitness session with a
// planned → in progress → completed lifecycle.
func (s Source) IsFitness() bool {
	switch s {
	case SourceWorkout, SourceCardio, SourceSport:
		return true
	default:
		return false
	}
}

// Table returns the name of the table that holds rows for this source, or ""
// when the source has no backing table (notes, unknown tags).
func (s Source) Table() string {
	switch s {
	case SourceMeal:
		return "meals"
	case SourcePlannedMeal:
		return "planned_meals"
	case SourceWorkout:
		return "fitness_workouts"
	case SourceCardio:
		return "fitness_cardio"
	case SourceSport:
		return "fitness_sports"
	case SourceStretching:
		return "fitness_stretching"
	case SourceExpense:
		return "expenses"
	default:
		return ""
	}
}

// DateColumn returns the column of the source table that carries the
// entity's calendar day.
func (s Source) DateColumn() string {
	switch s {
	case SourcePlannedMeal:
		return "planned_date"
	case SourceMeal, SourceWorkout, SourceCardio, SourceSport, SourceStretching, SourceExpense:
		return "date"
	default:
		return ""
	}
}

// HasTimeColumns reports whether the source table stores start_time and
// end_time in addition to its date column.
func (s Source) HasTimeColumns() bool {
	return s.IsFitness()
}
