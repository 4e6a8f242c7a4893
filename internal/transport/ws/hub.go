package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Dashboard message types not produced by services
const (
	MsgConnected MessageType = "connected"
	MsgError     MessageType = "error"
)

// Message is the WebSocket envelope format
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Hub fans survey events out to the connected dashboards of each survey
type Hub struct {
	conns map[string]map[*Connection]bool // surveyID -> dashboards
	mu    sync.RWMutex

	register   chan *Connection
	unregister chan *Connection
	broadcast  chan *BroadcastMessage
	disconnect chan string
	done       chan struct{}

	// onEmpty is called when the last dashboard of a survey leaves
	onEmpty func(surveyID string)
	log     *slog.Logger
}

// Connection represents one dashboard WebSocket
type Connection struct {
	SurveyID string
	HostID   string
	Send     chan []byte
}

// BroadcastMessage is a message to broadcast
type BroadcastMessage struct {
	SurveyID string
	Message  *Message
}

// NewHub creates a new WebSocket hub. Call Run to start it; a hub is not restartable.
func NewHub() *Hub {
	return &Hub{
		conns:      make(map[string]map[*Connection]bool),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		broadcast:  make(chan *BroadcastMessage, 256),
		disconnect: make(chan string),
		done:       make(chan struct{}),
		log:        slog.Default().With("component", "ws"),
	}
}

// OnEmpty sets the callback for surveys left without dashboards
func (h *Hub) OnEmpty(fn func(surveyID string)) {
	h.onEmpty = fn
}

// Run serves the hub until ctx is cancelled, then closes every connection
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for survey, conns := range h.conns {
				for conn := range conns {
					close(conn.Send)
				}
				delete(h.conns, survey)
			}
			h.mu.Unlock()
			return nil

		case conn := <-h.register:
			h.mu.Lock()
			if h.conns[conn.SurveyID] == nil {
				h.conns[conn.SurveyID] = make(map[*Connection]bool)
			}
			h.conns[conn.SurveyID][conn] = true
			h.mu.Unlock()
			h.log.Info("dashboard connected", "survey", conn.SurveyID, "host", conn.HostID)

		case conn := <-h.unregister:
			h.remove(conn)

		case survey := <-h.disconnect:
			h.mu.Lock()
			conns := h.conns[survey]
			delete(h.conns, survey)
			for conn := range conns {
				close(conn.Send)
			}
			h.mu.Unlock()
			if len(conns) > 0 && h.onEmpty != nil {
				h.onEmpty(survey)
			}

		case msg := <-h.broadcast:
			data, err := json.Marshal(msg.Message)
			if err != nil {
				h.log.Error("failed to encode message", "type", msg.Message.Type, "error", err)
				continue
			}
			h.mu.RLock()
			for conn := range h.conns[msg.SurveyID] {
				select {
				case conn.Send <- data:
				default:
					// Drop message if buffer full
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) remove(conn *Connection) {
	h.mu.Lock()
	conns, ok := h.conns[conn.SurveyID]
	if !ok || !conns[conn] {
		h.mu.Unlock()
		return
	}
	delete(conns, conn)
	close(conn.Send)
	empty := len(conns) == 0
	if empty {
		delete(h.conns, conn.SurveyID)
	}
	h.mu.Unlock()

	h.log.Info("dashboard disconnected", "survey", conn.SurveyID, "host", conn.HostID)
	if empty && h.onEmpty != nil {
		h.onEmpty(conn.SurveyID)
	}
}

// Register adds a connection
func (h *Hub) Register(conn *Connection) {
	select {
	case h.register <- conn:
	case <-h.done:
	}
}

// Unregister removes a connection
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// Count returns the number of dashboards watching a survey
func (h *Hub) Count(surveyID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[surveyID])
}

// BroadcastToSurvey sends a message to every dashboard of a survey (implements service.Broadcaster)
func (h *Hub) BroadcastToSurvey(surveyID string, msgType string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.Error("failed to encode payload", "type", msgType, "error", err)
		return
	}
	msg := &BroadcastMessage{
		SurveyID: surveyID,
		Message:  &Message{Type: MessageType(msgType), Payload: data},
	}
	select {
	case h.broadcast <- msg:
	default:
		h.log.Warn("broadcast buffer full, dropping message", "survey", surveyID, "type", msgType)
	}
}

// DisconnectSurvey closes every dashboard of a survey (implements service.Broadcaster)
func (h *Hub) DisconnectSurvey(surveyID string) {
	select {
	case h.disconnect <- surveyID:
	case <-h.done:
	}
}
