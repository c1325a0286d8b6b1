package realtime

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/traintrack/backend/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // allow all origins in dev; restrict in production
	},
}

// Identity is the authenticated principal behind a connection.
type Identity struct {
	UserID      uuid.UUID
	Role        models.Role
	DisplayName string
}

// SessionGate checks that a session exists and is live before a client may
// join its room.
type SessionGate func(sessionID uuid.UUID) bool

// Client represents a single WebSocket connection.
type Client struct {
	ID          string
	SessionID   uuid.UUID // uuid.Nil until a join-session intent succeeds
	UserID      uuid.UUID
	Role        models.Role
	DisplayName string
	JoinedAt    time.Time
	hub         *Hub
	conn        *websocket.Conn
	send        chan WSMessage
	logger      *zap.Logger
	gate        SessionGate
}

// ServeWs handles the WebSocket upgrade and runs the client loop. The client
// is authenticated at upgrade time but joins a session room only when it
// sends a join-session intent.
func ServeWs(hub *Hub, logger *zap.Logger, validate func(token string) (Identity, error), gate SessionGate) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "token required"})
			return
		}
		ident, err := validate(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			ID:          uuid.New().String(),
			UserID:      ident.UserID,
			Role:        ident.Role,
			DisplayName: ident.DisplayName,
			JoinedAt:    time.Now(),
			hub:         hub,
			conn:        conn,
			send:        make(chan WSMessage, 256),
			logger:      logger,
			gate:        gate,
		}
		go client.writePump()
		client.readPump()
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(65536)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
		return nil
	})

	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			break
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
		c.handle(msg)
	}
}

// sendError delivers an error event directly on the send channel so it works
// before the client has joined a room.
func (c *Client) sendError(text string) {
	select {
	case c.send <- WSMessage{Event: EventError, Data: marshalPayload(ErrorPayload{Message: text})}:
	default:
	}
}

func (c *Client) sendDirect(event string, payload interface{}) {
	select {
	case c.send <- WSMessage{Event: event, Data: marshalPayload(payload)}:
	default:
	}
}

func (c *Client) handle(msg WSMessage) {
	switch msg.Event {
	case EventJoinSession:
		c.handleJoinSession(msg)
	case EventChatMessage:
		c.handleChatMessage(msg)
	case EventSubmitQuestion:
		c.handleSubmitQuestion(msg)
	case EventEndQuestion:
		c.handleEndQuestion()
	case EventSubmitAnswer:
		c.handleSubmitAnswer(msg)
	default:
		// ignore
	}
}

func (c *Client) handleJoinSession(msg WSMessage) {
	if c.SessionID != uuid.Nil {
		c.sendError("already in a session")
		return
	}
	var payload JoinSessionPayload
	if err := json.Unmarshal(msg.Data, &payload); err != nil || payload.SessionID == uuid.Nil {
		c.sendError("sessionId required")
		return
	}
	sessionID := payload.SessionID
	if c.gate != nil && !c.gate(sessionID) {
		c.sendError("session not live")
		return
	}

	c.hub.Register(c, sessionID)

	// Sync the new client with the room's current state so a reconnect or
	// late join converges without waiting for the next event.
	sync := SyncPayload{ParticipantCount: c.hub.ParticipantCount(sessionID)}
	if q, stats := c.hub.tracker.Active(sessionID); q != nil {
		sync.Question = q
		if c.Role.CanPresent() {
			sync.Stats = stats
		}
	}
	c.sendDirect(EventSync, sync)
}

func (c *Client) handleChatMessage(msg WSMessage) {
	if c.SessionID == uuid.Nil {
		c.sendError("join a session first")
		return
	}
	var payload models.ChatMessage
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		c.sendError("invalid chat message")
		return
	}
	text := strings.TrimSpace(payload.Text)
	if text == "" {
		return
	}
	out := models.ChatMessage{
		ID:        payload.ID,
		SessionID: c.SessionID,
		UserID:    c.UserID,
		Username:  c.DisplayName,
		Text:      text,
		Timestamp: time.Now().UTC(),
	}
	if out.ID == "" {
		out.ID = uuid.New().String()
	}
	if rec := c.hub.chatRecorder(); rec != nil {
		rec(out)
	}
	// Local broadcast plus publish; the subscriber drops self-published
	// messages, so every participant (sender included) gets exactly one echo.
	c.hub.BroadcastToSessionAndPublish(c.SessionID, EventChatMessage, out)
}

// normalizeQuestion trims the draft, drops blank options and clamps the
// correct-option index. A question needs a title and at least two options to
// be launchable.
func normalizeQuestion(q models.LiveQuestion) (models.LiveQuestion, bool) {
	q.Title = strings.TrimSpace(q.Title)
	options := make([]string, 0, len(q.Options))
	for _, opt := range q.Options {
		if trimmed := strings.TrimSpace(opt); trimmed != "" {
			options = append(options, trimmed)
		}
	}
	q.Options = options
	if q.Title == "" || len(q.Options) < 2 {
		return models.LiveQuestion{}, false
	}
	if q.CorrectOption < 0 || q.CorrectOption >= len(q.Options) {
		q.CorrectOption = 0
	}
	if q.ID == "" {
		q.ID = uuid.New().String()
	}
	return q, true
}

func (c *Client) handleSubmitQuestion(msg WSMessage) {
	if c.SessionID == uuid.Nil {
		c.sendError("join a session first")
		return
	}
	if !c.Role.CanPresent() {
		c.sendError("not allowed")
		return
	}
	var payload SubmitQuestionPayload
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		c.sendError("invalid question")
		return
	}
	q, ok := normalizeQuestion(payload.Question)
	if !ok {
		c.sendError("a question needs a title and at least two options")
		return
	}

	replaced := c.hub.tracker.Launch(c.SessionID, q)
	if replaced != nil {
		if rec := c.hub.questionRecorder(); rec != nil {
			rec(*replaced)
		}
	}
	c.hub.BroadcastToSessionAndPublish(c.SessionID, EventQuestion, q)
}

func (c *Client) handleEndQuestion() {
	if c.SessionID == uuid.Nil {
		c.sendError("join a session first")
		return
	}
	if !c.Role.CanPresent() {
		c.sendError("not allowed")
		return
	}
	c.hub.CloseSession(c.SessionID)
}

func (c *Client) handleSubmitAnswer(msg WSMessage) {
	if c.SessionID == uuid.Nil {
		c.sendError("join a session first")
		return
	}
	var payload SubmitAnswerPayload
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		c.sendError("invalid answer")
		return
	}
	stats, ok := c.hub.tracker.RecordAnswer(c.SessionID, c.UserID, payload.QuestionID, payload.Answer)
	if !ok {
		return
	}
	// Stats go to presenters only, on every instance.
	c.hub.BroadcastToSessionAndPublish(c.SessionID, EventResponseStats, stats)
}

func (c *Client) writePump() {
	ticker := time.NewTicker(PingInterval * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
