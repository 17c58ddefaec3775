package ws

import (
	"encoding/json"

	"go.uber.org/zap"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Session message types, pushed to the learner driving the session
const (
	MsgQuestionPresented  MessageType = "question_presented"
	MsgDifficultyAdjusted MessageType = "difficulty_adjusted"
	MsgBreakRecommended   MessageType = "break_recommended"
	MsgRecalibrated       MessageType = "recalibrated"
	MsgSessionTerminated  MessageType = "session_terminated"
)

// Watcher message types, pushed to instructors observing a learner
const (
	MsgMasteryVerified MessageType = "mastery_verified"
	MsgError           MessageType = "error"
)

// Message is the WebSocket envelope format
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Hub manages WebSocket connections. A session has at most one learner
// connection; any number of instructors can watch one learner.
type Hub struct {
	sessionConns map[string]*Connection
	watcherConns map[string]map[*Connection]struct{} // userID -> watcher conns

	logger *zap.Logger

	register   chan *Connection
	unregister chan *Connection
	broadcast  chan *broadcastMessage
	disconnect chan string
}

// Connection represents a WebSocket connection. SessionID is set for
// learner connections, UserID for watcher connections.
type Connection struct {
	SessionID string
	UserID    string
	IsWatcher bool
	Send      chan []byte
	Hub       *Hub
}

type broadcastMessage struct {
	sessionID string
	userID    string
	message   *Message
}

// NewHub creates a new WebSocket hub and starts its event loop
func NewHub(logger *zap.Logger) *Hub {
	h := &Hub{
		sessionConns: make(map[string]*Connection),
		watcherConns: make(map[string]map[*Connection]struct{}),
		logger:       logger,
		register:     make(chan *Connection),
		unregister:   make(chan *Connection),
		broadcast:    make(chan *broadcastMessage, 256),
		disconnect:   make(chan string),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case conn := <-h.register:
			if conn.IsWatcher {
				if h.watcherConns[conn.UserID] == nil {
					h.watcherConns[conn.UserID] = make(map[*Connection]struct{})
				}
				h.watcherConns[conn.UserID][conn] = struct{}{}
				h.logger.Info("watcher connected", zap.String("userId", conn.UserID))
			} else {
				// A reconnect replaces the previous connection.
				if existing, ok := h.sessionConns[conn.SessionID]; ok {
					close(existing.Send)
				}
				h.sessionConns[conn.SessionID] = conn
				h.logger.Info("learner connected", zap.String("sessionId", conn.SessionID))
			}

		case conn := <-h.unregister:
			if conn.IsWatcher {
				if watchers, ok := h.watcherConns[conn.UserID]; ok {
					if _, ok := watchers[conn]; ok {
						delete(watchers, conn)
						close(conn.Send)
						if len(watchers) == 0 {
							delete(h.watcherConns, conn.UserID)
						}
						h.logger.Info("watcher disconnected", zap.String("userId", conn.UserID))
					}
				}
			} else {
				if existing, ok := h.sessionConns[conn.SessionID]; ok && existing == conn {
					delete(h.sessionConns, conn.SessionID)
					close(conn.Send)
					h.logger.Info("learner disconnected", zap.String("sessionId", conn.SessionID))
				}
			}

		case msg := <-h.broadcast:
			data, _ := json.Marshal(msg.message)

			if msg.sessionID != "" {
				if conn, ok := h.sessionConns[msg.sessionID]; ok {
					select {
					case conn.Send <- data:
					default:
						// Drop message if buffer full
					}
				}
			}
			if msg.userID != "" {
				for conn := range h.watcherConns[msg.userID] {
					select {
					case conn.Send <- data:
					default:
					}
				}
			}

		case sessionID := <-h.disconnect:
			if conn, ok := h.sessionConns[sessionID]; ok {
				delete(h.sessionConns, sessionID)
				close(conn.Send)
				h.logger.Info("session connection closed", zap.String("sessionId", sessionID))
			}
		}
	}
}

// Register adds a connection
func (h *Hub) Register(conn *Connection) {
	h.register <- conn
}

// Unregister removes a connection
func (h *Hub) Unregister(conn *Connection) {
	h.unregister <- conn
}

// BroadcastToSession sends a message to the learner driving the session
// (implements service.Broadcaster)
func (h *Hub) BroadcastToSession(sessionID string, msgType string, payload interface{}) {
	data, _ := json.Marshal(payload)
	h.broadcast <- &broadcastMessage{
		sessionID: sessionID,
		message: &Message{
			Type:    MessageType(msgType),
			Payload: data,
		},
	}
}

// BroadcastToWatchers sends a message to every instructor watching the
// learner (implements service.Broadcaster)
func (h *Hub) BroadcastToWatchers(userID string, msgType string, payload interface{}) {
	data, _ := json.Marshal(payload)
	h.broadcast <- &broadcastMessage{
		userID: userID,
		message: &Message{
			Type:    MessageType(msgType),
			Payload: data,
		},
	}
}

// DisconnectSession closes the learner connection for a terminated
// session (implements service.Broadcaster)
func (h *Hub) DisconnectSession(sessionID string) {
	h.disconnect <- sessionID
}
