package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/njoerd114/lifesync/internal/calsync"
	"github.com/njoerd114/lifesync/internal/store"
)

// maxBody bounds request bodies.
const maxBody = 1 << 20

type errorBody struct {
	Error   string           `json:"error"`
	Outcome *calsync.Outcome `json:"outcome,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// statusFor maps service errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case calsync.IsValidation(err), errors.Is(err, calsync.ErrUnknownFitnessType):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err. Server-side failures are logged and their detail hidden,
// except for the outcome, which tells the client what was written.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, outcome *calsync.Outcome) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		msg = "internal error"
		if outcome != nil && outcome.Partial() {
			msg = "partially applied: " + outcome.String()
		}
	}
	writeJSON(w, status, errorBody{Error: msg, Outcome: outcome})
}

// decode reads a JSON body into v, rejecting unknown fields.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// readBody returns the raw body for variant-specific decoding.
func readBody(r *http.Request) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r.Body, maxBody))
}
