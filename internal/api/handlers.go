package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/njoerd114/lifesync/internal/calsync"
	"github.com/njoerd114/lifesync/internal/icsfeed"
	"github.com/njoerd114/lifesync/internal/model"
)

// eventView is an event plus what the calendar UI needs to render and link it.
type eventView struct {
	model.CalendarEvent
	Route string      `json:"route"`
	Style model.Style `json:"style"`
}

func viewOf(ev model.CalendarEvent) eventView {
	return eventView{CalendarEvent: ev, Route: ev.Route(), Style: model.EventStyle(ev.Source)}
}

// --- Events ------------------------------------------------------------------

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request, userID string) {
	from, err := model.ParseTimestamp(r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid from: "+err.Error())
		return
	}
	to, err := model.ParseTimestamp(r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid to: "+err.Error())
		return
	}

	evs, err := s.cal.ListEvents(r.Context(), userID, from, to)
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	views := make([]eventView, len(evs))
	for i, ev := range evs {
		views[i] = viewOf(ev)
	}
	writeJSON(w, http.StatusOK, views)
}

type addEventRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	StartTime   model.Timestamp `json:"start_time"`
	EndTime     model.Timestamp `json:"end_time"`
	Source      string          `json:"source"`
	SourceID    string          `json:"source_id"`
}

func (s *Server) handleAddEvent(w http.ResponseWriter, r *http.Request, userID string) {
	var req addEventRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	ev, err := s.cal.AddEvent(r.Context(), calsync.NewEvent{
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
		StartTime:   req.StartTime.Time,
		EndTime:     req.EndTime.Ptr(),
		Source:      req.Source,
		SourceID:    req.SourceID,
	})
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusCreated, viewOf(*ev))
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request, userID string) {
	ev, err := s.cal.GetEvent(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(*ev))
}

type updateEventRequest struct {
	NewStart           model.Timestamp `json:"newStart"`
	NewEnd             model.Timestamp `json:"newEnd"`
	UpdateLinkedEntity bool            `json:"updateLinkedEntity"`
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request, userID string) {
	var req updateEventRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	res, err := s.cal.UpdateEvent(r.Context(), calsync.UpdateRequest{
		ID:                 r.PathValue("id"),
		UserID:             userID,
		NewStart:           req.NewStart.Time,
		NewEnd:             req.NewEnd.Ptr(),
		UpdateLinkedEntity: req.UpdateLinkedEntity,
	})
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request, userID string) {
	if err := s.cal.DeleteEvent(r.Context(), userID, r.PathValue("id")); err != nil {
		s.fail(w, r, err, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Entities ----------------------------------------------------------------

// pathSource parses the {source} path segment, writing a 400 on failure.
func pathSource(w http.ResponseWriter, r *http.Request) (model.Source, bool) {
	raw := r.PathValue("source")
	src, ok := model.ParseSource(raw)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid source value: "+raw)
	}
	return src, ok
}

type entityResponse struct {
	Outcome calsync.Outcome      `json:"outcome"`
	Entity  model.Entity         `json:"entity"`
	Event   *model.CalendarEvent `json:"event,omitempty"`
}

func (s *Server) handleCreateEntity(w http.ResponseWriter, r *http.Request, userID string) {
	src, ok := pathSource(w, r)
	if !ok {
		return
	}
	body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading body: "+err.Error())
		return
	}
	e, err := model.DecodeEntity(src, body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	e.SetOwner(userID)

	outcome, ev, err := s.cal.CreateEntity(r.Context(), e)
	if err != nil {
		s.fail(w, r, err, &outcome)
		return
	}
	writeJSON(w, http.StatusCreated, entityResponse{Outcome: outcome, Entity: e, Event: ev})
}

func (s *Server) handleDeleteEntity(w http.ResponseWriter, r *http.Request, userID string) {
	src, ok := pathSource(w, r)
	if !ok {
		return
	}
	outcome, err := s.cal.DeleteEntity(r.Context(), src, r.PathValue("id"), userID)
	if err != nil {
		s.fail(w, r, err, &outcome)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// calendarFields are the event columns a source editor may set.
var calendarFields = map[string]bool{
	"title":       true,
	"description": true,
	"start_time":  true,
	"end_time":    true,
}

func (s *Server) handleUpdateFromSource(w http.ResponseWriter, r *http.Request, userID string) {
	src, ok := pathSource(w, r)
	if !ok {
		return
	}
	var raw map[string]any
	if err := decode(r, &raw); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	fields, err := normaliseFields(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.cal.UpdateEventFromSource(r.Context(), src, r.PathValue("id"), userID, fields); err != nil {
		s.fail(w, r, err, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// normaliseFields checks column names and rewrites timestamps in the
// stored layout.
func normaliseFields(raw map[string]any) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("no fields to update")
	}
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		if !calendarFields[k] {
			return nil, fmt.Errorf("field %q cannot be set from a source entity", k)
		}
		str, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("field %q must be a string", k)
		}
		if k == "start_time" || k == "end_time" {
			t, err := model.ParseTimestamp(str)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", k, err)
			}
			str = model.FormatTimestamp(t)
		}
		out[k] = str
	}
	return out, nil
}

type completeResponse struct {
	Outcome calsync.Outcome `json:"outcome"`
}

func (s *Server) handleCompleteSession(w http.ResponseWriter, r *http.Request, userID string) {
	src, ok := pathSource(w, r)
	if !ok {
		return
	}
	outcome, err := s.cal.CleanupPlannedSession(r.Context(), src, r.PathValue("id"), userID)
	if err != nil {
		s.fail(w, r, err, &outcome)
		return
	}
	writeJSON(w, http.StatusOK, completeResponse{Outcome: outcome})
}

// --- Feed --------------------------------------------------------------------

func (s *Server) handleCalendarFeed(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(HeaderUserID)
	if userID == "" {
		userID = r.URL.Query().Get("user")
	}
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing "+HeaderUserID+" header or user parameter")
		return
	}

	evs, err := s.cal.ListEvents(r.Context(), userID, time.Time{}, time.Time{})
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(icsfeed.Render(evs, icsfeed.Options{BaseURL: s.opts.BaseURL})))
}
