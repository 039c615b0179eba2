package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
	"unicode"
	"unicode/utf8"
)

// SessionStatus is the lifecycle state of a fitness session.
type SessionStatus string

const (
	StatusPlanned   SessionStatus = "planned"
	StatusCompleted SessionStatus = "completed"
)

// Ref identifies an entity row and its owner.
type Ref struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
}

// Key returns the reference itself; embedding Ref gives every variant the
// method.
func (r Ref) Key() Ref { return r }

// SetID records the identifier assigned by the store on insert.
func (r *Ref) SetID(id string) { r.ID = id }

// SetOwner assigns the owning user.
func (r *Ref) SetOwner(userID string) { r.UserID = userID }

// Entity is one source record that can be projected onto the calendar. Each
// variant carries exactly the fields its projection needs.
type Entity interface {
	Source() Source
	Key() Ref
	SetID(id string)
	SetOwner(userID string)
	// Project derives the calendar title, description and times. now is
	// used when the entity has no date of its own.
	Project(now time.Time) Projection
	// Row returns the columns to persist in the source table, or nil when
	// the source has no table.
	Row() map[string]any
}

// Meal is a logged meal.
type Meal struct {
	Ref
	Name        string    `json:"name"`
	MealTime    string    `json:"meal_time,omitempty"`
	Description string    `json:"description,omitempty"`
	Date        Timestamp `json:"date"`
}

// Source reports [SourceMeal].
func (m *Meal) Source() Source { return SourceMeal }

// Project titles the event "Meal: <name>" on the meal's date.
func (m *Meal) Project(now time.Time) Projection {
	return Projection{
		Title:       "Meal: " + m.Name,
		Description: m.Description,
		Start:       orNow(m.Date, now),
	}
}

// Row returns the meals columns.
func (m *Meal) Row() map[string]any {
	return map[string]any{
		"id":          m.ID,
		"user_id":     m.UserID,
		"name":        m.Name,
		"meal_time":   m.MealTime,
		"description": m.Description,
		"date":        dateValue(m.Date),
	}
}

// PlannedMeal is a meal scheduled by the meal planner.
type PlannedMeal struct {
	Ref
	MealName    string    `json:"meal_name,omitempty"`
	Name        string    `json:"name,omitempty"`
	MealTime    string    `json:"meal_time"`
	Description string    `json:"description,omitempty"`
	PlannedDate Timestamp `json:"planned_date"`
}

// Source reports [SourcePlannedMeal].
func (p *PlannedMeal) Source() Source { return SourcePlannedMeal }

// Project titles the event by the capitalized meal time and the meal name.
func (p *PlannedMeal) Project(now time.Time) Projection {
	name := p.MealName
	if name == "" {
		name = p.Name
	}
	return Projection{
		Title:       capitalize(p.MealTime, "Meal") + ": " + name,
		Description: p.Description,
		Start:       orNow(p.PlannedDate, now),
	}
}

// Row returns the planned_meals columns.
func (p *PlannedMeal) Row() map[string]any {
	return map[string]any{
		"id":           p.ID,
		"user_id":      p.UserID,
		"meal_name":    p.MealName,
		"name":         p.Name,
		"meal_time":    p.MealTime,
		"description":  p.Description,
		"planned_date": dateValue(p.PlannedDate),
	}
}

// Session holds the fields shared by trackable fitness activities.
type Session struct {
	Date       Timestamp     `json:"date"`
	StartTime  Timestamp     `json:"start_time"`
	EndTime    Timestamp     `json:"end_time"`
	Notes      string        `json:"notes,omitempty"`
	Status     SessionStatus `json:"status,omitempty"`
	InProgress bool          `json:"in_progress"`
}

func (s *Session) row(ref Ref) map[string]any {
	status := s.Status
	if status == "" {
		status = StatusPlanned
	}
	return map[string]any{
		"id":          ref.ID,
		"user_id":     ref.UserID,
		"date":        dateValue(s.Date),
		"start_time":  timeValue(s.StartTime),
		"end_time":    timeValue(s.EndTime),
		"notes":       s.Notes,
		"status":      string(status),
		"in_progress": s.InProgress,
	}
}

// Workout is a strength or general training session.
type Workout struct {
	Ref
	Session
	Title string `json:"title"`
}

// Source reports [SourceWorkout].
func (w *Workout) Source() Source { return SourceWorkout }

// Project titles the event "Workout: <title>", keeping an explicit end time.
func (w *Workout) Project(now time.Time) Projection {
	return Projection{
		Title:       "Workout: " + w.Title,
		Description: w.Notes,
		Start:       orNow(w.Date, now),
		End:         w.EndTime.Ptr(),
	}
}

// Row returns the fitness_workouts columns.
func (w *Workout) Row() map[string]any {
	row := w.Session.row(w.Ref)
	row["title"] = w.Title
	return row
}

// Cardio is a cardio session such as a run or a ride.
type Cardio struct {
	Ref
	Session
	ActivityType string `json:"activity_type"`
}

// Source reports [SourceCardio].
func (c *Cardio) Source() Source { return SourceCardio }

// Project titles the event "Cardio: <activity>", keeping an explicit end time.
func (c *Cardio) Project(now time.Time) Projection {
	return Projection{
		Title:       "Cardio: " + c.ActivityType,
		Description: c.Notes,
		Start:       orNow(c.Date, now),
		End:         c.EndTime.Ptr(),
	}
}

// Row returns the fitness_cardio columns.
func (c *Cardio) Row() map[string]any {
	row := c.Session.row(c.Ref)
	row["activity_type"] = c.ActivityType
	return row
}

// Sport is a sports session.
type Sport struct {
	Ref
	Session
	ActivityType     string `json:"activity_type"`
	PerformanceNotes string `json:"performance_notes,omitempty"`
}

// Source reports [SourceSport].
func (s *Sport) Source() Source { return SourceSport }

// Project prefers performance notes over plain notes for the description.
func (s *Sport) Project(now time.Time) Projection {
	desc := s.PerformanceNotes
	if desc == "" {
		desc = s.Notes
	}
	return Projection{
		Title:       "Sport: " + s.ActivityType,
		Description: desc,
		Start:       orNow(s.Date, now),
		End:         s.EndTime.Ptr(),
	}
}

// Row returns the fitness_sports columns.
func (s *Sport) Row() map[string]any {
	row := s.Session.row(s.Ref)
	row["activity_type"] = s.ActivityType
	row["performance_notes"] = s.PerformanceNotes
	return row
}

// Stretching is a stretching routine. It has no dedicated title template
// and projects like a generic event: start_time first, then date.
type Stretching struct {
	Ref
	Title       string        `json:"title,omitempty"`
	Description string        `json:"description,omitempty"`
	Date        Timestamp     `json:"date"`
	StartTime   Timestamp     `json:"start_time"`
	Status      SessionStatus `json:"status,omitempty"`
	InProgress  bool          `json:"in_progress"`
}

// Source reports [SourceStretching].
func (s *Stretching) Source() Source { return SourceStretching }

// Project titles the routine by its own title, or "Event".
func (s *Stretching) Project(now time.Time) Projection {
	start := s.StartTime
	if start.IsZero() {
		start = s.Date
	}
	return Projection{
		Title:       orDefault(s.Title, "Event"),
		Description: s.Description,
		Start:       orNow(start, now),
	}
}

// Row returns the fitness_stretching columns.
func (s *Stretching) Row() map[string]any {
	status := s.Status
	if status == "" {
		status = StatusPlanned
	}
	return map[string]any{
		"id":          s.ID,
		"user_id":     s.UserID,
		"title":       s.Title,
		"description": s.Description,
		"date":        dateValue(s.Date),
		"start_time":  timeValue(s.StartTime),
		"status":      string(status),
		"in_progress": s.InProgress,
	}
}

// Expense is a recorded expense.
type Expense struct {
	Ref
	Name   string    `json:"name"`
	Amount float64   `json:"amount"`
	Notes  string    `json:"notes,omitempty"`
	Date   Timestamp `json:"date"`
}

// Source reports [SourceExpense].
func (e *Expense) Source() Source { return SourceExpense }

// Project titles the event "Expense: <name> - $<amount>".
func (e *Expense) Project(now time.Time) Projection {
	return Projection{
		Title:       fmt.Sprintf("Expense: %s - $%s", e.Name, strconv.FormatFloat(e.Amount, 'f', -1, 64)),
		Description: e.Notes,
		Start:       orNow(e.Date, now),
	}
}

// Row returns the expenses columns.
func (e *Expense) Row() map[string]any {
	return map[string]any{
		"id":      e.ID,
		"user_id": e.UserID,
		"name":    e.Name,
		"amount":  e.Amount,
		"notes":   e.Notes,
		"date":    dateValue(e.Date),
	}
}

// Note is a free-standing calendar entry with no source table.
type Note struct {
	Ref
	Title       string    `json:"title,omitempty"`
	Description string    `json:"description,omitempty"`
	StartTime   Timestamp `json:"start_time"`
}

// Source reports [SourceNote].
func (n *Note) Source() Source { return SourceNote }

// Project titles the note by its own title, or "Event".
func (n *Note) Project(now time.Time) Projection {
	return Projection{
		Title:       orDefault(n.Title, "Event"),
		Description: n.Description,
		Start:       orNow(n.StartTime, now),
	}
}

// Row is nil: notes live only on the calendar.
func (n *Note) Row() map[string]any { return nil }

// DecodeEntity decodes a JSON payload into the variant for source.
func DecodeEntity(source Source, data []byte) (Entity, error) {
	var e Entity
	switch source {
	case SourceMeal:
		e = &Meal{}
	case SourcePlannedMeal:
		e = &PlannedMeal{}
	case SourceWorkout:
		e = &Workout{}
	case SourceCardio:
		e = &Cardio{}
	case SourceSport:
		e = &Sport{}
	case SourceStretching:
		e = &Stretching{}
	case SourceExpense:
		e = &Expense{}
	case SourceNote:
		e = &Note{}
	default:
		return nil, fmt.Errorf("unknown source %q", source)
	}
	if err := json.Unmarshal(data, e); err != nil {
		return nil, fmt.Errorf("decoding %s entity: %w", source, err)
	}
	return e, nil
}

// --- helpers -----------------------------------------------------------------

func orNow(ts Timestamp, now time.Time) time.Time {
	if ts.IsZero() {
		return now
	}
	return ts.Time
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// capitalize upper-cases the first rune of s, leaving the rest unchanged.
func capitalize(s, def string) string {
	if s == "" {
		return def
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}

func dateValue(ts Timestamp) any {
	if ts.IsZero() {
		return nil
	}
	return FormatDate(ts.Time)
}

func timeValue(ts Timestamp) any {
	if ts.IsZero() {
		return nil
	}
	return FormatTimestamp(ts.Time)
}
