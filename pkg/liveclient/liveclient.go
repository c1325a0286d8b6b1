// Package liveclient is the client side of the live training session
// protocol: one connection per session, join/leave, question broadcast,
// answer submission and chat. All operations validate their local
// preconditions and return a typed Result; an OK result means the intent was
// sent, never that the server applied it.
package liveclient

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/traintrack/backend/internal/models"
)

// State is the connection state of a client.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "disconnected"
	}
}

// EchoMode selects how the sender's own chat messages reach its message list.
type EchoMode int

const (
	// EchoServer suppresses the local insert; the single server echo is the
	// only copy. This is the default.
	EchoServer EchoMode = iota
	// EchoOptimistic inserts locally on send and drops the server echo for
	// the same message id.
	EchoOptimistic
)

// Identity is the authenticated user behind a client.
type Identity struct {
	UserID      uuid.UUID
	DisplayName string
	Role        models.Role
	Token       string
}

// Handlers are optional callbacks for inbound events and state transitions.
// Callbacks run on the transport's delivery goroutine; they must not block.
type Handlers struct {
	OnStateChange      func(State)
	OnQuestion         func(models.LiveQuestion)
	OnQuestionEnded    func()
	OnStats            func(models.ResponseStats)
	OnChatMessage      func(models.ChatMessage)
	OnParticipantCount func(int)
}

// Options configure a Client.
type Options struct {
	Transport Transport
	EchoMode  EchoMode
	Logger    *zap.Logger
	Handlers  Handlers

	// Reconnect policy: bounded exponential backoff after an unexpected
	// disconnect while in a session. Zero values take the defaults.
	ReconnectAttempts int
	ReconnectBase     time.Duration
	ReconnectMax      time.Duration
}

const (
	defaultReconnectAttempts = 5
	defaultReconnectBase     = 500 * time.Millisecond
	defaultReconnectMax      = 8 * time.Second
)

type joinSessionPayload struct {
	SessionID uuid.UUID `json:"sessionId"`
}

type submitQuestionPayload struct {
	SessionID uuid.UUID           `json:"sessionId"`
	Question  models.LiveQuestion `json:"question"`
}

type endQuestionPayload struct {
	SessionID uuid.UUID `json:"sessionId"`
}

type submitAnswerPayload struct {
	SessionID  uuid.UUID `json:"sessionId"`
	QuestionID string    `json:"questionId"`
	Answer     int       `json:"answer"`
}

type participantCountPayload struct {
	Count int `json:"count"`
}

type syncPayload struct {
	Question         *models.LiveQuestion  `json:"question"`
	Stats            *models.ResponseStats `json:"stats"`
	ParticipantCount int                   `json:"participantCount"`
}

// Client manages one live-session connection and the session-scoped state
// derived from its event stream. All methods are safe for concurrent use.
type Client struct {
	mu       sync.Mutex
	opts     Options
	logger   *zap.Logger
	identity *Identity

	state     State
	sessionID uuid.UUID
	closing   bool // explicit leave in progress, suppress reconnect

	// participant poll state
	question *models.LiveQuestion
	selected int
	answered bool

	// presenter stats
	stats *models.ResponseStats

	participantCount int

	// chat
	messages []models.ChatMessage
	seen     map[string]struct{}
}

// New creates a client. The transport is required.
func New(opts Options) *Client {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.ReconnectAttempts <= 0 {
		opts.ReconnectAttempts = defaultReconnectAttempts
	}
	if opts.ReconnectBase <= 0 {
		opts.ReconnectBase = defaultReconnectBase
	}
	if opts.ReconnectMax <= 0 {
		opts.ReconnectMax = defaultReconnectMax
	}
	return &Client{
		opts:     opts,
		logger:   opts.Logger,
		selected: -1,
		seen:     make(map[string]struct{}),
	}
}

// Connect records the identity whose credential later joins will use. It does
// not dial; the connection is opened by the first JoinSession.
func (c *Client) Connect(identity Identity) Result {
	if identity.Token == "" {
		return fail(ReasonNoIdentity)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.identity = &identity
	return ok()
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SessionID returns the joined session id, or uuid.Nil.
func (c *Client) SessionID() uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// JoinSession opens the connection if needed and emits a join intent. It
// fails without dialing when no identity was supplied, and rejects a second
// join while a session is active.
func (c *Client) JoinSession(ctx context.Context, sessionID uuid.UUID) Result {
	c.mu.Lock()
	if c.identity == nil {
		c.mu.Unlock()
		return fail(ReasonNoIdentity)
	}
	if c.opts.Transport == nil {
		c.mu.Unlock()
		return fail(ReasonNoTransport)
	}
	if c.sessionID != uuid.Nil {
		c.mu.Unlock()
		return fail(ReasonAlreadyInSession)
	}
	token := c.identity.Token
	connected := c.state == StateConnected
	c.closing = false
	if !connected {
		c.setStateLocked(StateConnecting)
	}
	c.mu.Unlock()

	if !connected {
		if err := c.opts.Transport.Connect(ctx, token, c.handleEvent, c.handleClose); err != nil {
			c.logger.Warn("connect failed", zap.Error(err))
			c.mu.Lock()
			c.setStateLocked(StateDisconnected)
			c.mu.Unlock()
			return fail(ReasonTransport)
		}
		c.mu.Lock()
		c.setStateLocked(StateConnected)
		c.mu.Unlock()
	}

	if err := c.opts.Transport.Send(envelope(EventJoinSession, joinSessionPayload{SessionID: sessionID})); err != nil {
		c.logger.Warn("join intent failed", zap.Error(err))
		return fail(ReasonTransport)
	}
	c.mu.Lock()
	c.sessionID = sessionID
	c.mu.Unlock()
	return ok()
}

// LeaveSession tears the connection down unconditionally. Idempotent.
func (c *Client) LeaveSession() {
	c.mu.Lock()
	c.closing = true
	c.sessionID = uuid.Nil
	c.resetSessionStateLocked()
	wasDisconnected := c.state == StateDisconnected
	c.setStateLocked(StateDisconnected)
	transport := c.opts.Transport
	c.mu.Unlock()

	if transport != nil && !wasDisconnected {
		_ = transport.Close()
	}
}

// SubmitQuestion validates the draft and broadcasts it. Presenter roles only;
// other roles are rejected locally with no emission.
func (c *Client) SubmitQuestion(q models.LiveQuestion) Result {
	c.mu.Lock()
	if c.identity == nil || !c.identity.Role.CanPresent() {
		c.mu.Unlock()
		return fail(ReasonNotPresenter)
	}
	if c.sessionID == uuid.Nil || c.state != StateConnected {
		c.mu.Unlock()
		return fail(ReasonNotInSession)
	}
	sessionID := c.sessionID
	c.mu.Unlock()

	clean, valid := normalizeQuestion(q)
	if !valid {
		return fail(ReasonInvalidQuestion)
	}
	if err := c.opts.Transport.Send(envelope(EventSubmitQuestion, submitQuestionPayload{SessionID: sessionID, Question: clean})); err != nil {
		c.logger.Warn("submit question failed", zap.Error(err))
		return fail(ReasonTransport)
	}
	return ok()
}

// EndQuestion emits an end intent for the active session. Presenter roles only.
func (c *Client) EndQuestion() Result {
	c.mu.Lock()
	if c.identity == nil || !c.identity.Role.CanPresent() {
		c.mu.Unlock()
		return fail(ReasonNotPresenter)
	}
	if c.sessionID == uuid.Nil || c.state != StateConnected {
		c.mu.Unlock()
		return fail(ReasonNotInSession)
	}
	sessionID := c.sessionID
	c.mu.Unlock()

	if err := c.opts.Transport.Send(envelope(EventEndQuestion, endQuestionPayload{SessionID: sessionID})); err != nil {
		c.logger.Warn("end question failed", zap.Error(err))
		return fail(ReasonTransport)
	}
	return ok()
}

// SubmitAnswer sends the caller's answer to the active question. Any role may
// answer; one answer per question.
func (c *Client) SubmitAnswer(questionID string, option int) Result {
	c.mu.Lock()
	if c.sessionID == uuid.Nil || c.state != StateConnected {
		c.mu.Unlock()
		return fail(ReasonNotInSession)
	}
	if c.question == nil || c.question.ID != questionID ||
		option < 0 || option >= len(c.question.Options) {
		c.mu.Unlock()
		return fail(ReasonInvalidAnswer)
	}
	if c.answered {
		c.mu.Unlock()
		return fail(ReasonAlreadyAnswered)
	}
	sessionID := c.sessionID
	c.mu.Unlock()

	if err := c.opts.Transport.Send(envelope(EventSubmitAnswer, submitAnswerPayload{SessionID: sessionID, QuestionID: questionID, Answer: option})); err != nil {
		c.logger.Warn("submit answer failed", zap.Error(err))
		return fail(ReasonTransport)
	}
	c.mu.Lock()
	c.answered = true
	c.selected = option
	c.mu.Unlock()
	return ok()
}

// SendChat sends a chat message. Under EchoOptimistic the message is inserted
// locally before sending and the server echo is dropped by id; under
// EchoServer the server echo is the only copy.
func (c *Client) SendChat(text string) Result {
	text = strings.TrimSpace(text)
	if text == "" {
		return fail(ReasonEmptyMessage)
	}
	c.mu.Lock()
	if c.identity == nil {
		c.mu.Unlock()
		return fail(ReasonNoIdentity)
	}
	if c.sessionID == uuid.Nil || c.state != StateConnected {
		c.mu.Unlock()
		return fail(ReasonNotInSession)
	}
	msg := models.ChatMessage{
		ID:        uuid.New().String(),
		SessionID: c.sessionID,
		UserID:    c.identity.UserID,
		Username:  c.identity.DisplayName,
		Text:      text,
		Timestamp: time.Now().UTC(),
	}
	optimistic := c.opts.EchoMode == EchoOptimistic
	if optimistic {
		c.messages = append(c.messages, msg)
		c.seen[msg.ID] = struct{}{}
	}
	c.mu.Unlock()

	if err := c.opts.Transport.Send(envelope(EventChatMessage, msg)); err != nil {
		c.logger.Warn("chat send failed", zap.Error(err))
		if optimistic {
			c.retractMessage(msg.ID)
		}
		return fail(ReasonTransport)
	}
	return ok()
}

// retractMessage removes an optimistically inserted message that never made
// it onto the wire.
func (c *Client) retractMessage(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.seen, id)
	for i, m := range c.messages {
		if m.ID == id {
			c.messages = append(c.messages[:i], c.messages[i+1:]...)
			return
		}
	}
}

// ActiveQuestion returns a copy of the active question, or nil.
func (c *Client) ActiveQuestion() *models.LiveQuestion {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.question == nil {
		return nil
	}
	q := *c.question
	q.Options = append([]string(nil), c.question.Options...)
	return &q
}

// Answered reports whether the caller already answered the active question,
// and the selected option (-1 when none).
func (c *Client) Answered() (bool, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.answered, c.selected
}

// Stats returns the latest response statistics snapshot, or nil. Pushed to
// presenters only.
func (c *Client) Stats() *models.ResponseStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stats == nil {
		return nil
	}
	s := *c.stats
	return &s
}

// ParticipantCount returns the last observed audience size.
func (c *Client) ParticipantCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.participantCount
}

// Messages returns a copy of the session's chat messages in arrival order.
func (c *Client) Messages() []models.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.ChatMessage(nil), c.messages...)
}

// handleEvent processes one inbound envelope. Events of the same type apply
// in arrival order; nothing is buffered across a disconnect.
func (c *Client) handleEvent(env Envelope) {
	switch env.Event {
	case EventQuestion:
		var q models.LiveQuestion
		if json.Unmarshal(env.Data, &q) != nil {
			return
		}
		c.applyQuestion(&q)
	case EventQuestionEnded:
		c.mu.Lock()
		c.question = nil
		c.selected = -1
		c.answered = false
		c.stats = nil
		onEnded := c.opts.Handlers.OnQuestionEnded
		c.mu.Unlock()
		if onEnded != nil {
			onEnded()
		}
	case EventResponseStats:
		var s models.ResponseStats
		if json.Unmarshal(env.Data, &s) != nil {
			return
		}
		c.mu.Lock()
		c.stats = &s
		onStats := c.opts.Handlers.OnStats
		c.mu.Unlock()
		if onStats != nil {
			onStats(s)
		}
	case EventChatMessage:
		var m models.ChatMessage
		if json.Unmarshal(env.Data, &m) != nil || m.ID == "" {
			return
		}
		c.mu.Lock()
		if _, dup := c.seen[m.ID]; dup {
			c.mu.Unlock()
			return
		}
		c.seen[m.ID] = struct{}{}
		c.messages = append(c.messages, m)
		onChat := c.opts.Handlers.OnChatMessage
		c.mu.Unlock()
		if onChat != nil {
			onChat(m)
		}
	case EventParticipantCount:
		var p participantCountPayload
		if json.Unmarshal(env.Data, &p) != nil {
			return
		}
		c.mu.Lock()
		c.participantCount = p.Count
		onCount := c.opts.Handlers.OnParticipantCount
		c.mu.Unlock()
		if onCount != nil {
			onCount(p.Count)
		}
	case EventSync:
		var s syncPayload
		if json.Unmarshal(env.Data, &s) != nil {
			return
		}
		c.applySync(s)
	case EventError:
		c.logger.Warn("server rejected intent", zap.ByteString("data", env.Data))
	}
}

// applyQuestion installs a broadcast question. A question with a different id
// resets the selection and answered flag even without an intervening
// question-ended event.
func (c *Client) applyQuestion(q *models.LiveQuestion) {
	c.mu.Lock()
	if c.question == nil || c.question.ID != q.ID {
		c.selected = -1
		c.answered = false
		c.stats = nil
	}
	c.question = q
	onQuestion := c.opts.Handlers.OnQuestion
	c.mu.Unlock()
	if onQuestion != nil {
		onQuestion(*q)
	}
}

// applySync resynchronizes with a server snapshot after a join or reconnect.
func (c *Client) applySync(s syncPayload) {
	c.mu.Lock()
	c.participantCount = s.ParticipantCount
	onCount := c.opts.Handlers.OnParticipantCount
	c.mu.Unlock()
	if onCount != nil {
		onCount(s.ParticipantCount)
	}

	if s.Question == nil {
		c.mu.Lock()
		hadQuestion := c.question != nil
		c.question = nil
		c.selected = -1
		c.answered = false
		c.stats = nil
		onEnded := c.opts.Handlers.OnQuestionEnded
		c.mu.Unlock()
		if hadQuestion && onEnded != nil {
			onEnded()
		}
		return
	}

	c.applyQuestion(s.Question)
	if s.Stats != nil {
		c.mu.Lock()
		c.stats = s.Stats
		onStats := c.opts.Handlers.OnStats
		c.mu.Unlock()
		if onStats != nil {
			onStats(*s.Stats)
		}
	}
}

// handleClose runs when the transport drops unexpectedly. While in a session
// it starts the bounded reconnect loop; otherwise the client just goes
// disconnected.
func (c *Client) handleClose(err error) {
	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		return
	}
	sessionID := c.sessionID
	if sessionID == uuid.Nil {
		c.setStateLocked(StateDisconnected)
		c.mu.Unlock()
		return
	}
	c.setStateLocked(StateReconnecting)
	c.mu.Unlock()

	c.logger.Warn("connection lost, reconnecting", zap.Error(err))
	go c.reconnect(sessionID)
}

// reconnect retries the connection with exponential backoff and rejoins the
// session; the server replies with a sync snapshot that resynchronizes the
// question, stats and participant count.
func (c *Client) reconnect(sessionID uuid.UUID) {
	backoff := c.opts.ReconnectBase
	for attempt := 1; attempt <= c.opts.ReconnectAttempts; attempt++ {
		time.Sleep(backoff)
		backoff *= 2
		if backoff > c.opts.ReconnectMax {
			backoff = c.opts.ReconnectMax
		}

		c.mu.Lock()
		if c.closing || c.sessionID != sessionID {
			c.mu.Unlock()
			return
		}
		token := ""
		if c.identity != nil {
			token = c.identity.Token
		}
		c.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := c.opts.Transport.Connect(ctx, token, c.handleEvent, c.handleClose)
		cancel()
		if err != nil {
			c.logger.Warn("reconnect attempt failed", zap.Int("attempt", attempt), zap.Error(err))
			continue
		}
		if err := c.opts.Transport.Send(envelope(EventJoinSession, joinSessionPayload{SessionID: sessionID})); err != nil {
			c.logger.Warn("rejoin failed", zap.Int("attempt", attempt), zap.Error(err))
			continue
		}

		c.mu.Lock()
		c.setStateLocked(StateConnected)
		c.mu.Unlock()
		c.logger.Info("reconnected", zap.String("session_id", sessionID.String()), zap.Int("attempt", attempt))
		return
	}

	c.logger.Warn("reconnect attempts exhausted", zap.String("session_id", sessionID.String()))
	c.mu.Lock()
	c.sessionID = uuid.Nil
	c.resetSessionStateLocked()
	c.setStateLocked(StateDisconnected)
	c.mu.Unlock()
}

// resetSessionStateLocked clears everything scoped to the joined session.
// Caller holds c.mu.
func (c *Client) resetSessionStateLocked() {
	c.question = nil
	c.selected = -1
	c.answered = false
	c.stats = nil
	c.participantCount = 0
	c.messages = nil
	c.seen = make(map[string]struct{})
}

func (c *Client) setStateLocked(s State) {
	if c.state == s {
		return
	}
	c.state = s
	if fn := c.opts.Handlers.OnStateChange; fn != nil {
		go fn(s)
	}
}

// normalizeQuestion trims the draft, drops blank options and clamps the
// correct-option index to 0 when it points past the filtered list. A draft
// needs a title and at least two options; an id is generated when missing.
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
