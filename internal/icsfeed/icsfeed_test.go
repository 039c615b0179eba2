package icsfeed

import (
	"strings"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/njoerd114/lifesync/internal/model"
)

func TestRender_RoundTrip(t *testing.T) {
	start := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	events := []model.CalendarEvent{
		{ID: "e1", Title: "Workout: Push Day", Description: "felt strong", StartTime: start, EndTime: start.Add(time.Hour), Source: model.SourceWorkout, SourceID: "w1"},
		{ID: "e2", Title: "Dentist", StartTime: start.Add(3 * time.Hour), Source: model.SourceNote},
	}

	out := Render(events, Options{
		BaseURL: "https://x.io/",
		Now:     func() time.Time { return start },
	})

	cal, err := ical.ParseCalendar(strings.NewReader(out))
	if err != nil {
		t.Fatalf("ParseCalendar: %v", err)
	}
	got := cal.Events()
	if len(got) != 2 {
		t.Fatalf("events = %d, want 2", len(got))
	}

	first := got[0]
	if first.Id() != "e1@lifesync" {
		t.Errorf("UID = %q", first.Id())
	}
	if p := first.GetProperty(ical.ComponentPropertySummary); p == nil || p.Value != "Workout: Push Day" {
		t.Errorf("SUMMARY = %v", p)
	}
	if p := first.GetProperty(ical.ComponentPropertyCategories); p == nil || p.Value != "workout" {
		t.Errorf("CATEGORIES = %v", p)
	}
	if !strings.Contains(out, "URL:https://x.io/fitness/workouts/w1") {
		t.Errorf("feed missing workout URL:\n%s", out)
	}
	if !strings.Contains(out, "URL:https://x.io/calendar?event=e2") {
		t.Errorf("feed missing note URL:\n%s", out)
	}

	end, err := got[1].GetEndAt()
	if err != nil {
		t.Fatalf("GetEndAt: %v", err)
	}
	if !end.Equal(start.Add(4 * time.Hour)) {
		t.Errorf("note end = %v, want start+1h", end)
	}
}

func TestRender_Empty(t *testing.T) {
	out := Render(nil, Options{})
	if !strings.Contains(out, "BEGIN:VCALENDAR") || strings.Contains(out, "BEGIN:VEVENT") {
		t.Errorf("unexpected feed:\n%s", out)
	}
}
