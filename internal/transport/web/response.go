package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/avstrong/stays/internal/apperror"
)

type errorBody struct {
	Error  string              `json:"error"`
	Fields map[string][]string `json:"fields,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.l.LogErrorf("Could not encode response: %v", err.Error())
	}
}

// writeError maps the error taxonomy onto status codes.
func (s *Server) writeError(w http.ResponseWriter, op string, err error) {
	if rangeErr := apperror.IsInvalidRangeError(err); rangeErr != nil {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: rangeErr.Error(), Fields: rangeErr.Fields()})

		return
	}

	if incomplete := apperror.IsIncompleteBookingError(err); incomplete != nil {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: incomplete.Error(), Fields: incomplete.Fields()})

		return
	}

	if validationErr := apperror.IsValidationError(err); validationErr != nil {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: validationErr.Error(), Fields: validationErr.Fields()})

		return
	}

	if errors.Is(err, apperror.ErrIdempotencyKey) {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "Idempotency-Key header is missing"}) //nolint:exhaustruct

		return
	}

	if notFound := apperror.IsNotFoundError(err); notFound != nil {
		s.writeJSON(w, http.StatusNotFound, errorBody{Error: notFound.Error()}) //nolint:exhaustruct

		return
	}

	if stateErr := apperror.IsStateError(err); stateErr != nil {
		s.writeJSON(w, http.StatusConflict, errorBody{Error: stateErr.Error()}) //nolint:exhaustruct

		return
	}

	if persistenceErr := apperror.IsPersistenceError(err); persistenceErr != nil {
		s.l.LogErrorf("Could not %s: %v", op, err.Error())
		s.writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "please try again"}) //nolint:exhaustruct

		return
	}

	s.l.LogErrorf("Could not %s: %v", op, err.Error())
	s.writeJSON(w, http.StatusInternalServerError, errorBody{Error: http.StatusText(http.StatusInternalServerError)}) //nolint:exhaustruct
}
