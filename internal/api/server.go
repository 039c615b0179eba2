// Package api exposes the calendar sync service over HTTP/JSON.
//
// The caller's identity arrives in the X-User-ID header; authentication
// happens upstream. The ICS feed additionally accepts ?user= since calendar
// clients cannot set headers.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/njoerd114/lifesync/internal/calsync"
	"github.com/njoerd114/lifesync/internal/model"
)

// HeaderUserID carries the authenticated user's id.
const HeaderUserID = "X-User-ID"

// Calendar is the subset of [calsync.Service] the handlers call.
type Calendar interface {
	AddEvent(ctx context.Context, in calsync.NewEvent) (*model.CalendarEvent, error)
	GetEvent(ctx context.Context, userID, id string) (*model.CalendarEvent, error)
	ListEvents(ctx context.Context, userID string, from, to time.Time) ([]model.CalendarEvent, error)
	UpdateEvent(ctx context.Context, req calsync.UpdateRequest) (*calsync.UpdateResult, error)
	DeleteEvent(ctx context.Context, userID, id string) error
	CreateEntity(ctx context.Context, e model.Entity) (calsync.Outcome, *model.CalendarEvent, error)
	DeleteEntity(ctx context.Context, source model.Source, id, userID string) (calsync.Outcome, error)
	UpdateEventFromSource(ctx context.Context, source model.Source, sourceID, userID string, fields map[string]any) error
	CleanupPlannedSession(ctx context.Context, source model.Source, sessionID, userID string) (calsync.Outcome, error)
}

// Options configures a Server.
type Options struct {
	// BaseURL is prefixed to event routes in the ICS feed.
	BaseURL string
}

// Server provides the HTTP API. Create one with [NewServer].
type Server struct {
	cal  Calendar
	log  *slog.Logger
	opts Options
	mux  *http.ServeMux
}

// NewServer constructs a Server and registers its routes.
func NewServer(cal Calendar, logger *slog.Logger, opts Options) *Server {
	s := &Server{
		cal:  cal,
		log:  logger,
		opts: opts,
		mux:  http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the root handler, instrumented with OTel HTTP spans and
// metrics.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.mux, "lifesync.api")
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("GET /api/events", s.withUser(s.handleListEvents))
	s.mux.HandleFunc("POST /api/events", s.withUser(s.handleAddEvent))
	s.mux.HandleFunc("GET /api/events/{id}", s.withUser(s.handleGetEvent))
	s.mux.HandleFunc("PATCH /api/events/{id}", s.withUser(s.handleUpdateEvent))
	s.mux.HandleFunc("DELETE /api/events/{id}", s.withUser(s.handleDeleteEvent))

	s.mux.HandleFunc("POST /api/entities/{source}", s.withUser(s.handleCreateEntity))
	s.mux.HandleFunc("DELETE /api/entities/{source}/{id}", s.withUser(s.handleDeleteEntity))
	s.mux.HandleFunc("PATCH /api/entities/{source}/{id}/calendar", s.withUser(s.handleUpdateFromSource))

	s.mux.HandleFunc("POST /api/sessions/{source}/{id}/complete", s.withUser(s.handleCompleteSession))

	s.mux.HandleFunc("GET /api/calendar.ics", s.handleCalendarFeed)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

type userHandler func(w http.ResponseWriter, r *http.Request, userID string)

// withUser rejects requests without a user id.
func (s *Server) withUser(h userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get(HeaderUserID)
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "missing "+HeaderUserID+" header")
			return
		}
		h(w, r, userID)
	}
}
