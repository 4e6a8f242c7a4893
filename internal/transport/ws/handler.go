package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"surveyengine/internal/model"
	"surveyengine/internal/service"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// SurveyLookup resolves the survey a dashboard asks for
type SurveyLookup interface {
	GetByID(ctx context.Context, id string) (*model.Survey, error)
}

// Handler handles WebSocket connections
type Handler struct {
	hub      *Hub
	authSvc  *service.AuthService
	surveys  SurveyLookup
	upgrader websocket.Upgrader
}

// NewHandler creates a new WebSocket handler. An empty origin list allows every origin.
func NewHandler(hub *Hub, authSvc *service.AuthService, surveys SurveyLookup, allowedOrigins []string) *Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &Handler{
		hub:     hub,
		authSvc: authSvc,
		surveys: surveys,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(allowed) == 0 || allowed["*"] || origin == "" || allowed[origin]
			},
		},
	}
}

// DashboardWS handles GET /v1/ws/surveys/{surveyId}/live
func (h *Handler) DashboardWS(w http.ResponseWriter, r *http.Request) {
	surveyID := mux.Vars(r)["surveyId"]
	token := r.URL.Query().Get("token")

	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	claims, err := h.authSvc.ValidateHostToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	survey, err := h.surveys.GetByID(r.Context(), surveyID)
	if err != nil {
		http.Error(w, "failed to load survey", http.StatusInternalServerError)
		return
	}
	if survey == nil || survey.HostID != claims.HostID {
		http.Error(w, "survey not found", http.StatusNotFound)
		return
	}

	wsConn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "survey", surveyID, "error", err)
		return
	}

	conn := &Connection{
		SurveyID: surveyID,
		HostID:   claims.HostID,
		Send:     make(chan []byte, 256),
	}
	hello, _ := json.Marshal(&Message{
		Type:    MsgConnected,
		Payload: json.RawMessage(`{"survey":` + quote(surveyID) + `}`),
	})
	conn.Send <- hello

	h.hub.Register(conn)

	go h.writePump(wsConn, conn)
	go h.readPump(wsConn, conn)
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func (h *Handler) readPump(wsConn *websocket.Conn, conn *Connection) {
	defer func() {
		h.hub.Unregister(conn)
		wsConn.Close()
	}()

	wsConn.SetReadLimit(maxMessageSize)
	wsConn.SetReadDeadline(time.Now().Add(pongWait))
	wsConn.SetPongHandler(func(string) error {
		wsConn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, _, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("websocket read failed", "survey", conn.SurveyID, "error", err)
			}
			break
		}
		// dashboards only listen
	}
}

func (h *Handler) writePump(wsConn *websocket.Conn, conn *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		wsConn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				wsConn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := wsConn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := wsConn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
