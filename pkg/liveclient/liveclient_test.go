package liveclient

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/traintrack/backend/internal/models"
)

// fakeTransport is a scripted in-memory transport.
type fakeTransport struct {
	mu           sync.Mutex
	connectErr   error
	sendErr      error
	connectCalls int
	sent         []Envelope
	onEvent      func(Envelope)
	onClose      func(error)
}

func (f *fakeTransport) Connect(_ context.Context, _ string, onEvent func(Envelope), onClose func(error)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connectCalls++
	if f.connectErr != nil {
		return f.connectErr
	}
	f.onEvent = onEvent
	f.onClose = onClose
	return nil
}

func (f *fakeTransport) Send(env Envelope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, env)
	return nil
}

func (f *fakeTransport) Close() error { return nil }

func (f *fakeTransport) deliver(event string, payload interface{}) {
	data, _ := json.Marshal(payload)
	f.mu.Lock()
	onEvent := f.onEvent
	f.mu.Unlock()
	onEvent(Envelope{Event: event, Data: data})
}

func (f *fakeTransport) drop(err error) {
	f.mu.Lock()
	onClose := f.onClose
	f.mu.Unlock()
	onClose(err)
}

func (f *fakeTransport) sentEvents() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.sent))
	for i, env := range f.sent {
		out[i] = env.Event
	}
	return out
}

func (f *fakeTransport) lastSent() Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[len(f.sent)-1]
}

func trainee() Identity {
	return Identity{UserID: uuid.New(), DisplayName: "Ana Cole", Role: models.RoleTrainee, Token: "tok"}
}

func trainer() Identity {
	return Identity{UserID: uuid.New(), DisplayName: "Bo Reed", Role: models.RoleTrainer, Token: "tok"}
}

func joined(t *testing.T, identity Identity, mode EchoMode) (*Client, *fakeTransport) {
	t.Helper()
	ft := &fakeTransport{}
	c := New(Options{Transport: ft, EchoMode: mode})
	require.True(t, c.Connect(identity).OK)
	require.True(t, c.JoinSession(context.Background(), uuid.New()).OK)
	require.Equal(t, StateConnected, c.State())
	return c, ft
}

func TestJoinWithoutIdentity(t *testing.T) {
	ft := &fakeTransport{}
	c := New(Options{Transport: ft})

	res := c.JoinSession(context.Background(), uuid.New())
	require.False(t, res.OK)
	require.Equal(t, ReasonNoIdentity, res.Reason)
	require.Zero(t, ft.connectCalls, "must not dial without identity")
	require.Empty(t, ft.sent)
}

func TestJoinTwiceRejected(t *testing.T) {
	c, _ := joined(t, trainee(), EchoServer)

	res := c.JoinSession(context.Background(), uuid.New())
	require.False(t, res.OK)
	require.Equal(t, ReasonAlreadyInSession, res.Reason)
}

func TestLeaveIsIdempotent(t *testing.T) {
	c, _ := joined(t, trainee(), EchoServer)

	c.LeaveSession()
	c.LeaveSession()
	require.Equal(t, StateDisconnected, c.State())
	require.Equal(t, uuid.Nil, c.SessionID())
}

func TestNonPresenterCannotSubmitOrEnd(t *testing.T) {
	c, ft := joined(t, trainee(), EchoServer)
	before := len(ft.sentEvents())

	res := c.SubmitQuestion(models.LiveQuestion{Title: "Q1", Options: []string{"A", "B"}})
	require.False(t, res.OK)
	require.Equal(t, ReasonNotPresenter, res.Reason)

	res = c.EndQuestion()
	require.False(t, res.OK)
	require.Equal(t, ReasonNotPresenter, res.Reason)

	require.Len(t, ft.sentEvents(), before, "rejected intents must not reach the wire")
}

func TestDraftNeedsTwoNonEmptyOptions(t *testing.T) {
	c, ft := joined(t, trainer(), EchoServer)
	before := len(ft.sentEvents())

	res := c.SubmitQuestion(models.LiveQuestion{Title: "Q1", Options: []string{"A", "  ", ""}})
	require.False(t, res.OK)
	require.Equal(t, ReasonInvalidQuestion, res.Reason)
	require.Len(t, ft.sentEvents(), before)

	res = c.SubmitQuestion(models.LiveQuestion{Title: "   ", Options: []string{"A", "B"}})
	require.False(t, res.OK)
	require.Equal(t, ReasonInvalidQuestion, res.Reason)
}

func TestCorrectOptionClampedToZero(t *testing.T) {
	c, ft := joined(t, trainer(), EchoServer)

	res := c.SubmitQuestion(models.LiveQuestion{
		Title:         "Q1",
		Options:       []string{"A", "", "B"},
		CorrectOption: 2, // past the filtered list
	})
	require.True(t, res.OK)

	var payload submitQuestionPayload
	require.NoError(t, json.Unmarshal(ft.lastSent().Data, &payload))
	require.Equal(t, []string{"A", "B"}, payload.Question.Options)
	require.Equal(t, 0, payload.Question.CorrectOption)
	require.NotEmpty(t, payload.Question.ID, "client generates an id when the draft has none")
}

func TestWaitingStateThenQuestion(t *testing.T) {
	c, ft := joined(t, trainee(), EchoServer)
	require.Nil(t, c.ActiveQuestion(), "no question active yet")

	ft.deliver(EventQuestion, models.LiveQuestion{ID: "q1", Title: "Q1", Options: []string{"A", "B"}, CorrectOption: 0})

	q := c.ActiveQuestion()
	require.NotNil(t, q)
	require.Equal(t, []string{"A", "B"}, q.Options)
	answered, selected := c.Answered()
	require.False(t, answered)
	require.Equal(t, -1, selected, "no option pre-selected")
}

func TestQuestionEndedResetsParticipantState(t *testing.T) {
	c, ft := joined(t, trainee(), EchoServer)

	ft.deliver(EventQuestion, models.LiveQuestion{ID: "q1", Title: "Q1", Options: []string{"A", "B"}})
	require.True(t, c.SubmitAnswer("q1", 1).OK)
	answered, selected := c.Answered()
	require.True(t, answered)
	require.Equal(t, 1, selected)

	ft.deliver(EventQuestionEnded, map[string]string{"questionId": "q1"})

	require.Nil(t, c.ActiveQuestion())
	answered, selected = c.Answered()
	require.False(t, answered)
	require.Equal(t, -1, selected)
	require.Nil(t, c.Stats())
}

func TestReplacementQuestionResetsSelection(t *testing.T) {
	c, ft := joined(t, trainee(), EchoServer)

	ft.deliver(EventQuestion, models.LiveQuestion{ID: "q1", Title: "Q1", Options: []string{"A", "B"}})
	require.True(t, c.SubmitAnswer("q1", 0).OK)

	// q2 arrives with no question-ended in between.
	ft.deliver(EventQuestion, models.LiveQuestion{ID: "q2", Title: "Q2", Options: []string{"X", "Y"}})

	answered, selected := c.Answered()
	require.False(t, answered)
	require.Equal(t, -1, selected)
	require.Equal(t, "q2", c.ActiveQuestion().ID)
}

func TestAnswerOncePerQuestion(t *testing.T) {
	c, ft := joined(t, trainee(), EchoServer)
	ft.deliver(EventQuestion, models.LiveQuestion{ID: "q1", Title: "Q1", Options: []string{"A", "B"}})

	require.True(t, c.SubmitAnswer("q1", 0).OK)
	res := c.SubmitAnswer("q1", 1)
	require.False(t, res.OK)
	require.Equal(t, ReasonAlreadyAnswered, res.Reason)

	res = c.SubmitAnswer("nope", 0)
	require.Equal(t, ReasonInvalidAnswer, res.Reason)
	res = c.SubmitAnswer("q1", 7)
	require.Equal(t, ReasonInvalidAnswer, res.Reason)
}

func TestChatEchoServerMode(t *testing.T) {
	c, ft := joined(t, trainee(), EchoServer)

	require.True(t, c.SendChat("hello").OK)
	require.Empty(t, c.Messages(), "no local insert in server-echo mode")

	var sent models.ChatMessage
	require.NoError(t, json.Unmarshal(ft.lastSent().Data, &sent))

	ft.deliver(EventChatMessage, sent)
	require.Len(t, c.Messages(), 1)

	// A duplicate echo must not double-insert.
	ft.deliver(EventChatMessage, sent)
	require.Len(t, c.Messages(), 1)
}

func TestChatEchoOptimisticMode(t *testing.T) {
	c, ft := joined(t, trainee(), EchoOptimistic)

	require.True(t, c.SendChat("hello").OK)
	require.Len(t, c.Messages(), 1, "optimistic insert on send")

	var sent models.ChatMessage
	require.NoError(t, json.Unmarshal(ft.lastSent().Data, &sent))

	ft.deliver(EventChatMessage, sent)
	require.Len(t, c.Messages(), 1, "server echo for the same id is dropped")

	// Another participant's message still lands.
	ft.deliver(EventChatMessage, models.ChatMessage{ID: uuid.New().String(), Username: "Bo Reed", Text: "hi"})
	require.Len(t, c.Messages(), 2)
}

func TestOptimisticInsertRolledBackOnSendFailure(t *testing.T) {
	c, ft := joined(t, trainee(), EchoOptimistic)

	ft.mu.Lock()
	ft.sendErr = errors.New("wire down")
	ft.mu.Unlock()

	res := c.SendChat("hello")
	require.False(t, res.OK)
	require.Equal(t, ReasonTransport, res.Reason)
	require.Empty(t, c.Messages(), "failed send leaves no phantom message")

	ft.mu.Lock()
	ft.sendErr = nil
	ft.mu.Unlock()

	require.True(t, c.SendChat("hello again").OK)
	require.Len(t, c.Messages(), 1)

	// The retracted id is no longer marked seen, so a later server copy of a
	// message with a fresh id is not confused with it.
	var sent models.ChatMessage
	require.NoError(t, json.Unmarshal(ft.lastSent().Data, &sent))
	ft.deliver(EventChatMessage, sent)
	require.Len(t, c.Messages(), 1)
}

func TestStatsSnapshotTracked(t *testing.T) {
	c, ft := joined(t, trainer(), EchoServer)

	ft.deliver(EventQuestion, models.LiveQuestion{ID: "q1", Title: "Q1", Options: []string{"A", "B"}})
	ft.deliver(EventResponseStats, models.ResponseStats{ResponseCount: 3, AnswerDistribution: map[int]int{0: 2, 1: 1}})

	stats := c.Stats()
	require.NotNil(t, stats)
	require.Equal(t, 3, stats.ResponseCount)

	ft.deliver(EventQuestionEnded, map[string]string{"questionId": "q1"})
	require.Nil(t, c.Stats(), "stats clear when the question ends")
}

func TestReconnectRejoinsAndResyncs(t *testing.T) {
	ft := &fakeTransport{}
	c := New(Options{
		Transport:         ft,
		ReconnectAttempts: 3,
		ReconnectBase:     time.Millisecond,
		ReconnectMax:      4 * time.Millisecond,
	})
	require.True(t, c.Connect(trainee()).OK)
	sessionID := uuid.New()
	require.True(t, c.JoinSession(context.Background(), sessionID).OK)

	ft.drop(context.DeadlineExceeded)

	require.Eventually(t, func() bool {
		return c.State() == StateConnected
	}, time.Second, 5*time.Millisecond, "client should reconnect")

	events := ft.sentEvents()
	joins := 0
	for _, e := range events {
		if e == EventJoinSession {
			joins++
		}
	}
	require.Equal(t, 2, joins, "initial join plus rejoin")
	require.Equal(t, sessionID, c.SessionID())

	// Server sync snapshot restores room state.
	ft.deliver(EventSync, syncPayload{
		Question:         &models.LiveQuestion{ID: "q1", Title: "Q1", Options: []string{"A", "B"}},
		ParticipantCount: 4,
	})
	require.Equal(t, 4, c.ParticipantCount())
	require.Equal(t, "q1", c.ActiveQuestion().ID)
}

func TestReconnectGivesUpAfterBoundedAttempts(t *testing.T) {
	ft := &fakeTransport{}
	c := New(Options{
		Transport:         ft,
		ReconnectAttempts: 2,
		ReconnectBase:     time.Millisecond,
		ReconnectMax:      2 * time.Millisecond,
	})
	require.True(t, c.Connect(trainee()).OK)
	require.True(t, c.JoinSession(context.Background(), uuid.New()).OK)

	ft.mu.Lock()
	ft.connectErr = context.DeadlineExceeded
	ft.mu.Unlock()
	ft.drop(context.DeadlineExceeded)

	require.Eventually(t, func() bool {
		return c.State() == StateDisconnected
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, uuid.Nil, c.SessionID(), "session cleared after exhausting retries")
}

func TestExplicitLeaveSuppressesReconnect(t *testing.T) {
	c, ft := joined(t, trainee(), EchoServer)

	c.LeaveSession()
	require.Equal(t, StateDisconnected, c.State())

	// A late close notification from the old connection must not revive it.
	if ft.onClose != nil {
		ft.drop(context.Canceled)
	}
	time.Sleep(10 * time.Millisecond)
	require.Equal(t, StateDisconnected, c.State())
}
