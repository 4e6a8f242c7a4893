package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"surveyengine/internal/model"
	"surveyengine/internal/repository"
	"surveyengine/internal/transport/rest/middleware"
)

// SurveyStore is the host-facing side of the survey service
type SurveyStore interface {
	Create(ctx context.Context, survey *model.Survey) (string, error)
	GetByID(ctx context.Context, id string) (*model.Survey, error)
	GetByHostID(ctx context.Context, hostID string) ([]*model.Survey, error)
	Update(ctx context.Context, survey *model.Survey) error
	Delete(ctx context.Context, id string) error
}

// StatisticsReader streams statistic buckets
type StatisticsReader interface {
	Scan(ctx context.Context, q repository.StatisticQuery, fn func(*model.QuestionStatistic) error) error
}

// ResponseScanner streams the stored responses of a survey
type ResponseScanner interface {
	Scan(ctx context.Context, surveyID string, fn func(*model.Response) error) error
}

// SurveyHandler handles survey, statistics and export endpoints
type SurveyHandler struct {
	surveys    SurveyStore
	statistics StatisticsReader
	responses  ResponseScanner
}

// NewSurveyHandler creates a new survey handler
func NewSurveyHandler(surveys SurveyStore, statistics StatisticsReader, responses ResponseScanner) *SurveyHandler {
	return &SurveyHandler{
		surveys:    surveys,
		statistics: statistics,
		responses:  responses,
	}
}

const (
	defaultStatisticsLimit = 1000
	maxStatisticsLimit     = 10000
)

// Create handles POST /v1/surveys
func (h *SurveyHandler) Create(w http.ResponseWriter, r *http.Request) {
	hostID := middleware.GetHostID(r.Context())
	if hostID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var survey model.Survey
	if err := json.NewDecoder(r.Body).Decode(&survey); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	survey.ID = ""
	survey.HostID = hostID

	id, err := h.surveys.Create(r.Context(), &survey)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"surveyId": id})
}

// Update handles PUT /v1/surveys/{surveyId}
func (h *SurveyHandler) Update(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.owned(w, r)
	if !ok {
		return
	}

	var survey model.Survey
	if err := json.NewDecoder(r.Body).Decode(&survey); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	survey.ID = existing.ID
	survey.HostID = existing.HostID
	survey.CreatedAt = existing.CreatedAt

	if err := h.surveys.Update(r.Context(), &survey); err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, survey)
}

// Delete handles DELETE /v1/surveys/{surveyId}
func (h *SurveyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	survey, ok := h.owned(w, r)
	if !ok {
		return
	}
	if err := h.surveys.Delete(r.Context(), survey.ID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Get handles GET /v1/surveys/{surveyId}
func (h *SurveyHandler) Get(w http.ResponseWriter, r *http.Request) {
	survey, ok := h.owned(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, survey)
}

// List handles GET /v1/surveys
func (h *SurveyHandler) List(w http.ResponseWriter, r *http.Request) {
	hostID := middleware.GetHostID(r.Context())
	if hostID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	surveys, err := h.surveys.GetByHostID(r.Context(), hostID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if surveys == nil {
		surveys = []*model.Survey{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"surveys": surveys})
}

// Statistics handles GET /v1/surveys/{surveyId}/statistics?item=&from=&to=&limit=
func (h *SurveyHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	survey, ok := h.owned(w, r)
	if !ok {
		return
	}

	q := repository.StatisticQuery{
		Survey: survey.ID,
		Item:   r.URL.Query().Get("item"),
		Limit:  defaultStatisticsLimit,
	}
	var err error
	if q.From, err = parseTime(r.URL.Query().Get("from")); err != nil {
		writeError(w, http.StatusBadRequest, "invalid from, expected RFC 3339")
		return
	}
	if q.To, err = parseTime(r.URL.Query().Get("to")); err != nil {
		writeError(w, http.StatusBadRequest, "invalid to, expected RFC 3339")
		return
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 || n > maxStatisticsLimit {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		q.Limit = n
	}

	buckets := []*model.QuestionStatistic{}
	err = h.statistics.Scan(r.Context(), q, func(s *model.QuestionStatistic) error {
		buckets = append(buckets, s)
		return nil
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"buckets": buckets})
}

// Responses handles GET /v1/surveys/{surveyId}/responses as newline-delimited JSON
func (h *SurveyHandler) Responses(w http.ResponseWriter, r *http.Request) {
	survey, ok := h.owned(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	enc := json.NewEncoder(w)
	flusher, _ := w.(http.Flusher)
	wrote := false
	err := h.responses.Scan(r.Context(), survey.ID, func(res *model.Response) error {
		wrote = true
		if err := enc.Encode(res); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	})
	if err != nil {
		if !wrote {
			writeServiceError(w, r, err)
			return
		}
		// headers are gone; the client sees a truncated stream
		slog.ErrorContext(r.Context(), "response export aborted", "survey", survey.ID, "error", err)
	}
}

// owned loads the path survey and checks it belongs to the calling host
func (h *SurveyHandler) owned(w http.ResponseWriter, r *http.Request) (*model.Survey, bool) {
	hostID := middleware.GetHostID(r.Context())
	if hostID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}

	survey, err := h.surveys.GetByID(r.Context(), mux.Vars(r)["surveyId"])
	if err != nil {
		writeServiceError(w, r, err)
		return nil, false
	}
	if survey == nil || survey.HostID != hostID {
		writeError(w, http.StatusNotFound, "survey not found")
		return nil, false
	}
	return survey, true
}

func parseTime(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, v)
}
