package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"mercator-hq/riskctl/pkg/assessment"
	"mercator-hq/riskctl/pkg/history"
	"mercator-hq/riskctl/pkg/model"
	"mercator-hq/riskctl/pkg/server/middleware"
	"mercator-hq/riskctl/pkg/workspace"
)

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	var qe *history.QueryError
	var mbe *http.MaxBytesError
	switch {
	case errors.As(err, &mbe):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, model.ErrModelLoad), errors.Is(err, model.ErrInvalidRef), errors.Is(err, model.ErrNoRepository):
		return http.StatusUnprocessableEntity
	case errors.Is(err, workspace.ErrSystemNotFound):
		return http.StatusNotFound
	case errors.Is(err, workspace.ErrSystemExists):
		return http.StatusConflict
	case errors.Is(err, workspace.ErrInvalidSystem):
		return http.StatusUnprocessableEntity
	case errors.As(err, &qe):
		return http.StatusBadRequest
	case errors.Is(err, assessment.ErrHistoryDisabled), errors.Is(err, assessment.ErrNoWorkspace):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, middleware.ErrorBody{Error: msg})
}

// fail writes err with its mapped status. Internal errors are logged and
// replaced by a generic message.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeError(w, code, "internal server error")
		return
	}
	writeError(w, code, err.Error())
}
