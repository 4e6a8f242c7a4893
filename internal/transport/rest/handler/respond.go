package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"surveyengine/internal/repository"
	"surveyengine/internal/service"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeServiceError maps service errors to status codes. Infrastructure errors are
// logged and hidden from the client.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError
	var nerr *service.NavigationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":  "validation failed",
			"fields": verr.Fields,
		})
	case errors.As(err, &nerr):
		writeError(w, http.StatusConflict, nerr.Message)
	case errors.Is(err, service.ErrSurveyNotFound), errors.Is(err, service.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidSurvey):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrConcurrentUpdate):
		writeError(w, http.StatusConflict, "the response was changed by another request, reload and try again")
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		slog.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
