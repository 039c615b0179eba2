package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/njoerd114/lifesync/internal/calsync"
	"github.com/njoerd114/lifesync/internal/store"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	db, err := store.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := calsync.NewService(db, logger)
	return NewServer(svc, logger, Options{BaseURL: "https://life.example"}).Handler()
}

func do(t *testing.T, h http.Handler, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if user != "" {
		req.Header.Set(HeaderUserID, user)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decoding %q: %v", rec.Body.String(), err)
	}
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestServer(t), http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("health = %d %q", rec.Code, rec.Body.String())
	}
}

func TestMissingUser(t *testing.T) {
	rec := do(t, newTestServer(t), http.MethodGet, "/api/events", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAddEvent_InvalidSource(t *testing.T) {
	h := newTestServer(t)
	rec := do(t, h, http.MethodPost, "/api/events", "u1", map[string]any{
		"title": "x", "start_time": "2024-01-15T09:00:00Z", "source": "bogus_type",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var body errorBody
	decodeBody(t, rec, &body)
	if body.Error != "Invalid source value: bogus_type" {
		t.Errorf("error = %q", body.Error)
	}

	list := do(t, h, http.MethodGet, "/api/events", "u1", nil)
	var evs []eventView
	decodeBody(t, list, &evs)
	if len(evs) != 0 {
		t.Errorf("events = %d, want 0", len(evs))
	}
}

func TestAddAndDeleteEvent(t *testing.T) {
	h := newTestServer(t)
	rec := do(t, h, http.MethodPost, "/api/events", "u1", map[string]any{
		"title": "Dentist", "start_time": "2024-01-15T09:00:00Z", "source": "note",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var ev eventView
	decodeBody(t, rec, &ev)
	if ev.Route != "/calendar?event="+ev.ID {
		t.Errorf("route = %q", ev.Route)
	}
	if ev.Style.Icon == "" {
		t.Error("style not populated")
	}

	if rec := do(t, h, http.MethodDelete, "/api/events/"+ev.ID, "u2", nil); rec.Code != http.StatusNotFound {
		t.Errorf("delete as other user = %d, want 404", rec.Code)
	}
	if rec := do(t, h, http.MethodDelete, "/api/events/"+ev.ID, "u1", nil); rec.Code != http.StatusNoContent {
		t.Errorf("delete = %d, want 204", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/events/"+ev.ID, "u1", nil); rec.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", rec.Code)
	}
}

func TestWorkoutLifecycle(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/api/entities/workout", "u1", map[string]any{
		"title": "Push Day", "date": "2024-01-15", "notes": "felt strong",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create = %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Outcome string `json:"outcome"`
		Entity  struct {
			ID     string `json:"id"`
			UserID string `json:"user_id"`
		} `json:"entity"`
		Event struct {
			ID       string `json:"id"`
			Title    string `json:"title"`
			SourceID string `json:"source_id"`
		} `json:"event"`
	}
	decodeBody(t, rec, &created)
	if created.Outcome != "fully_synced" || created.Event.Title != "Workout: Push Day" {
		t.Errorf("created = %+v", created)
	}
	if created.Entity.UserID != "u1" || created.Event.SourceID != created.Entity.ID {
		t.Errorf("entity/event link = %+v", created)
	}

	list := do(t, h, http.MethodGet, "/api/events?from=2024-01-15&to=2024-01-16", "u1", nil)
	var evs []eventView
	decodeBody(t, list, &evs)
	if len(evs) != 1 || evs[0].Route != "/fitness/workouts/"+created.Entity.ID {
		t.Fatalf("events = %+v", evs)
	}

	rec = do(t, h, http.MethodPatch, "/api/events/"+created.Event.ID, "u1", map[string]any{
		"newStart": "2024-02-01T10:00:00Z", "updateLinkedEntity": true,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("patch = %d: %s", rec.Code, rec.Body.String())
	}
	var upd struct {
		Event struct {
			EndTime string `json:"end_time"`
		} `json:"event"`
		LinkedEntityUpdated bool   `json:"linkedEntityUpdated"`
		Outcome             string `json:"outcome"`
	}
	decodeBody(t, rec, &upd)
	if !upd.LinkedEntityUpdated || upd.Outcome != "fully_synced" {
		t.Errorf("update = %+v", upd)
	}
	if upd.Event.EndTime != "2024-02-01T11:00:00Z" {
		t.Errorf("end_time = %q, want newStart+1h", upd.Event.EndTime)
	}

	rec = do(t, h, http.MethodPost, "/api/sessions/workout/"+created.Entity.ID+"/complete", "u1", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "fully_synced") {
		t.Fatalf("complete = %d: %s", rec.Code, rec.Body.String())
	}
	if rec := do(t, h, http.MethodGet, "/api/events/"+created.Event.ID, "u1", nil); rec.Code != http.StatusNotFound {
		t.Errorf("event after completion = %d, want 404", rec.Code)
	}
}

func TestCompleteSession_NotFitness(t *testing.T) {
	rec := do(t, newTestServer(t), http.MethodPost, "/api/sessions/meal/m1/complete", "u1", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestEntities_InvalidSource(t *testing.T) {
	h := newTestServer(t)
	rec := do(t, h, http.MethodDelete, "/api/entities/bogus/x1", "u1", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("delete = %d, want 400", rec.Code)
	}
	rec = do(t, h, http.MethodPost, "/api/entities/bogus", "u1", map[string]any{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("create = %d, want 400", rec.Code)
	}
}

func TestUpdateFromSource(t *testing.T) {
	h := newTestServer(t)
	rec := do(t, h, http.MethodPost, "/api/entities/expense", "u1", map[string]any{
		"name": "Rent", "amount": 900, "date": "2024-01-01",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create = %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Entity struct {
			ID string `json:"id"`
		} `json:"entity"`
		Event struct {
			ID string `json:"id"`
		} `json:"event"`
	}
	decodeBody(t, rec, &created)

	path := "/api/entities/expense/" + created.Entity.ID + "/calendar"
	if rec := do(t, h, http.MethodPatch, path, "u1", map[string]any{"amount": "1"}); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown field = %d, want 400", rec.Code)
	}
	rec = do(t, h, http.MethodPatch, path, "u1", map[string]any{
		"title": "Expense: Rent - $950", "start_time": "2024-01-02",
	})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("patch = %d: %s", rec.Code, rec.Body.String())
	}

	rec = do(t, h, http.MethodPatch, path, "u2", map[string]any{"title": "not yours"})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("patch as u2 = %d: %s", rec.Code, rec.Body.String())
	}
	if rec := do(t, h, http.MethodDelete, "/api/entities/expense/"+created.Entity.ID, "u2", nil); rec.Code != http.StatusNotFound {
		t.Errorf("delete as u2 = %d, want 404", rec.Code)
	}

	rec = do(t, h, http.MethodGet, "/api/events/"+created.Event.ID, "u1", nil)
	var ev eventView
	decodeBody(t, rec, &ev)
	if ev.Title != "Expense: Rent - $950" || ev.StartTime.Format("2006-01-02") != "2024-01-02" {
		t.Errorf("event = %+v", ev)
	}
}

func TestCalendarFeed(t *testing.T) {
	h := newTestServer(t)
	do(t, h, http.MethodPost, "/api/entities/planned_meal", "u1", map[string]any{
		"meal_name": "Tacos", "meal_time": "dinner", "planned_date": "2024-01-15",
	})

	if rec := do(t, h, http.MethodGet, "/api/calendar.ics", "", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous feed = %d, want 401", rec.Code)
	}

	rec := do(t, h, http.MethodGet, "/api/calendar.ics?user=u1", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("feed = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("Content-Type = %q", ct)
	}
	out := rec.Body.String()
	if !strings.Contains(out, "SUMMARY:Dinner: Tacos") || !strings.Contains(out, "CATEGORIES:planned_meal") {
		t.Errorf("feed missing planned meal:\n%s", out)
	}
}

func TestStatusFor(t *testing.T) {
	if got := statusFor(calsync.ErrUnknownFitnessType); got != http.StatusBadRequest {
		t.Errorf("unknown fitness = %d", got)
	}
	if got := statusFor(store.ErrNotFound); got != http.StatusNotFound {
		t.Errorf("not found = %d", got)
	}
	if got := statusFor(io.ErrUnexpectedEOF); got != http.StatusInternalServerError {
		t.Errorf("other = %d", got)
	}
}
