package realtime

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/traintrack/backend/internal/models"
)

const (
	// PingInterval and PongWait are used for heartbeat, in seconds.
	PingInterval = 30
	PongWait     = 60
)

// SessionLogger is called when a client joins or leaves a session room, so
// participant intervals can be persisted outside the hub.
type SessionLogger struct {
	OnJoin  func(sessionID, userID uuid.UUID)
	OnLeave func(sessionID, userID uuid.UUID)
}

// ChatRecorder persists an accepted chat message.
type ChatRecorder func(msg models.ChatMessage)

// QuestionRecorder persists a closed question with its final stats.
type QuestionRecorder func(ended EndedQuestion)

// RedisPublisher is the interface for publishing to Redis (for cross-instance broadcast).
type RedisPublisher interface {
	PublishSessionEvent(sessionID uuid.UUID, event string, payload []byte) error
}

// RedisSubscriber subscribes to session channels and invokes handler for incoming events.
type RedisSubscriber interface {
	SubscribeSession(sessionID uuid.UUID, handler func(event string, payload []byte)) (cancel func(), err error)
}

// Hub maintains sessionID -> set of connections and broadcasts messages.
// Uses Redis pub/sub for horizontal scaling: local broadcast + publish to Redis.
type Hub struct {
	// sessionID -> map[clientID]*Client
	sessions map[uuid.UUID]map[string]*Client
	subs     map[uuid.UUID]func() // cancel Redis subscription per session
	mu       sync.RWMutex
	logger   *zap.Logger
	redis    RedisPublisher
	redisSub RedisSubscriber
	tracker  *QuestionTracker

	sessionLog     SessionLogger
	recordChat     ChatRecorder
	recordQuestion QuestionRecorder
}

// NewHub creates a new WebSocket hub.
func NewHub(logger *zap.Logger, redisPub RedisPublisher, redisSub RedisSubscriber, tracker *QuestionTracker) *Hub {
	if tracker == nil {
		tracker = NewQuestionTracker()
	}
	return &Hub{
		sessions: make(map[uuid.UUID]map[string]*Client),
		subs:     make(map[uuid.UUID]func()),
		logger:   logger,
		redis:    redisPub,
		redisSub: redisSub,
		tracker:  tracker,
	}
}

// SetSessionLogger sets the join/leave persistence callbacks.
func (h *Hub) SetSessionLogger(sl SessionLogger) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessionLog = sl
}

// SetChatRecorder sets the chat persistence callback.
func (h *Hub) SetChatRecorder(fn ChatRecorder) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.recordChat = fn
}

// SetQuestionRecorder sets the closed-question persistence callback.
func (h *Hub) SetQuestionRecorder(fn QuestionRecorder) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.recordQuestion = fn
}

// Tracker exposes the hub's question tracker.
func (h *Hub) Tracker() *QuestionTracker { return h.tracker }

// Register adds a client to a session room. Starts the Redis subscription for
// this session if it is the first client.
func (h *Hub) Register(c *Client, sessionID uuid.UUID) {
	h.mu.Lock()
	c.SessionID = sessionID
	if h.sessions[sessionID] == nil {
		h.sessions[sessionID] = make(map[string]*Client)
		if h.redisSub != nil {
			cancel, err := h.redisSub.SubscribeSession(sessionID, func(event string, payload []byte) {
				h.routeLocal(sessionID, event, json.RawMessage(payload))
			})
			if err == nil {
				h.subs[sessionID] = cancel
			} else {
				h.logger.Warn("session subscribe failed", zap.Error(err), zap.String("session_id", sessionID.String()))
			}
		}
	}
	h.sessions[sessionID][c.ID] = c
	onJoin := h.sessionLog.OnJoin
	h.mu.Unlock()

	if onJoin != nil {
		onJoin(sessionID, c.UserID)
	}
	h.BroadcastToSessionAndPublish(sessionID, EventParticipantCount, ParticipantCountPayload{Count: h.ParticipantCount(sessionID)})
	h.logger.Debug("client joined session", zap.String("client_id", c.ID), zap.String("session_id", sessionID.String()))
}

// Unregister removes a client from its session room. Cancels the Redis
// subscription when the last client leaves. Safe to call for clients that
// never joined a session.
func (h *Hub) Unregister(c *Client) {
	sessionID := c.SessionID
	if sessionID == uuid.Nil {
		return
	}
	h.mu.Lock()
	removed := false
	emptied := false
	if m, ok := h.sessions[sessionID]; ok {
		if _, ok := m[c.ID]; ok {
			delete(m, c.ID)
			removed = true
		}
		if len(m) == 0 {
			delete(h.sessions, sessionID)
			emptied = true
			if cancel, ok := h.subs[sessionID]; ok {
				cancel()
				delete(h.subs, sessionID)
			}
		}
	}
	onLeave := h.sessionLog.OnLeave
	h.mu.Unlock()

	if !removed {
		return
	}
	c.SessionID = uuid.Nil
	if onLeave != nil {
		onLeave(sessionID, c.UserID)
	}
	if emptied {
		// The presenter is gone, flush the open question so its history row
		// is written and the tracker entry is freed.
		h.CloseSession(sessionID)
	}
	h.BroadcastToSessionAndPublish(sessionID, EventParticipantCount, ParticipantCountPayload{Count: h.ParticipantCount(sessionID)})
	h.logger.Debug("client left session", zap.String("client_id", c.ID), zap.String("session_id", sessionID.String()))
}

// routeLocal delivers an event from Redis to local clients. Response stats go
// to presenters only; everything else goes to the whole room.
func (h *Hub) routeLocal(sessionID uuid.UUID, event string, payload interface{}) {
	if event == EventResponseStats {
		h.BroadcastToPresenters(sessionID, event, payload)
		return
	}
	h.BroadcastToSession(sessionID, event, payload)
}

func marshalPayload(payload interface{}) []byte {
	switch v := payload.(type) {
	case []byte:
		return v
	case json.RawMessage:
		return v
	default:
		data, _ := json.Marshal(payload)
		return data
	}
}

// BroadcastToSession sends a message to all clients in a session (local only).
func (h *Hub) BroadcastToSession(sessionID uuid.UUID, event string, payload interface{}) {
	msg := WSMessage{Event: event, Data: marshalPayload(payload)}

	h.mu.RLock()
	clients := h.sessions[sessionID]
	h.mu.RUnlock()

	for _, c := range clients {
		select {
		case c.send <- msg:
		default:
			// buffer full, skip
		}
	}
}

// BroadcastToPresenters sends a message to presenter-capable clients only
// (local only). Used for response stats, which participants must not see.
func (h *Hub) BroadcastToPresenters(sessionID uuid.UUID, event string, payload interface{}) {
	msg := WSMessage{Event: event, Data: marshalPayload(payload)}

	h.mu.RLock()
	clients := h.sessions[sessionID]
	h.mu.RUnlock()

	for _, c := range clients {
		if !c.Role.CanPresent() {
			continue
		}
		select {
		case c.send <- msg:
		default:
		}
	}
}

// BroadcastToSessionAndPublish sends to local clients and publishes to Redis
// for other instances. The subscriber drops messages it published itself, so
// every participant, sender included, receives each event exactly once.
func (h *Hub) BroadcastToSessionAndPublish(sessionID uuid.UUID, event string, payload interface{}) {
	data := marshalPayload(payload)
	h.routeLocal(sessionID, event, data)
	if h.redis != nil {
		_ = h.redis.PublishSessionEvent(sessionID, event, data)
	}
}

// CloseSession ends the session's open question, if any, persisting its final
// stats and telling the room. Called from the end-question intent, when a
// session is ended over REST, and when the room empties, so an open question
// never outlives its session.
func (h *Hub) CloseSession(sessionID uuid.UUID) {
	ended := h.tracker.End(sessionID)
	if ended == nil {
		return
	}
	if rec := h.questionRecorder(); rec != nil {
		rec(*ended)
	}
	h.BroadcastToSessionAndPublish(sessionID, EventQuestionEnded, map[string]string{"questionId": ended.Question.ID})
}

// SendToClient sends a message to a single client in a session.
func (h *Hub) SendToClient(sessionID uuid.UUID, clientID string, event string, payload interface{}) {
	msg := WSMessage{Event: event, Data: marshalPayload(payload)}
	h.mu.RLock()
	c, ok := h.sessions[sessionID][clientID]
	h.mu.RUnlock()
	if !ok || c == nil {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

// ParticipantCount returns the number of connected clients in a session.
func (h *Hub) ParticipantCount(sessionID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}

// chatRecorder returns the configured chat recorder, if any.
func (h *Hub) chatRecorder() ChatRecorder {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.recordChat
}

// questionRecorder returns the configured question recorder, if any.
func (h *Hub) questionRecorder() QuestionRecorder {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.recordQuestion
}
