package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"surveyengine/internal/model"
	"surveyengine/internal/transport/rest/middleware"
)

// ResponseProcessor is the respondent-facing side of the response service
type ResponseProcessor interface {
	StartSession(ctx context.Context, surveyID string, req *model.StartSessionRequest) (*model.StartSessionResponse, error)
	Show(ctx context.Context, sess *model.Session) (*model.Fragment, error)
	SubmitAnswer(ctx context.Context, sess *model.Session, req *model.SubmitAnswerRequest) (*model.Fragment, error)
	StepBack(ctx context.Context, sess *model.Session) (*model.Fragment, error)
	Restart(ctx context.Context, sess *model.Session) (*model.Fragment, error)
}

// SessionHandler handles respondent endpoints
type SessionHandler struct {
	responses ResponseProcessor
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(responses ResponseProcessor) *SessionHandler {
	return &SessionHandler{responses: responses}
}

// Start handles POST /v1/surveys/{surveyId}/sessions
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req model.StartSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Language == "" {
		req.Language = r.Header.Get("Accept-Language")
	}

	resp, err := h.responses.StartSession(r.Context(), mux.Vars(r)["surveyId"], &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// Show handles GET /v1/session
func (h *SessionHandler) Show(w http.ResponseWriter, r *http.Request) {
	sess := middleware.GetSession(r.Context())
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	frag, err := h.responses.Show(r.Context(), sess)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, frag)
}

// SubmitAnswer handles POST /v1/session/answers
func (h *SessionHandler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	sess := middleware.GetSession(r.Context())
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req model.SubmitAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	frag, err := h.responses.SubmitAnswer(r.Context(), sess, &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, frag)
}

// StepBack handles POST /v1/session/back
func (h *SessionHandler) StepBack(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, h.responses.StepBack)
}

// Restart handles POST /v1/session/restart
func (h *SessionHandler) Restart(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, h.responses.Restart)
}

func (h *SessionHandler) move(w http.ResponseWriter, r *http.Request, fn func(context.Context, *model.Session) (*model.Fragment, error)) {
	sess := middleware.GetSession(r.Context())
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	frag, err := fn(r.Context(), sess)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, frag)
}
