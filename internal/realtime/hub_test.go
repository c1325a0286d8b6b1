package realtime

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/traintrack/backend/internal/models"
)

// fakeBus fans published events out to every endpoint except the publisher,
// mirroring the origin filtering the Redis bridge does for its own messages.
type fakeBus struct {
	mu        sync.Mutex
	endpoints []*busEndpoint
}

func (b *fakeBus) endpoint() *busEndpoint {
	e := &busEndpoint{bus: b, handlers: make(map[uuid.UUID]func(string, []byte))}
	b.mu.Lock()
	b.endpoints = append(b.endpoints, e)
	b.mu.Unlock()
	return e
}

type busEndpoint struct {
	bus       *fakeBus
	mu        sync.Mutex
	handlers  map[uuid.UUID]func(event string, payload []byte)
	published []string
}

func (e *busEndpoint) PublishSessionEvent(sessionID uuid.UUID, event string, payload []byte) error {
	e.mu.Lock()
	e.published = append(e.published, event)
	e.mu.Unlock()

	e.bus.mu.Lock()
	peers := append([]*busEndpoint(nil), e.bus.endpoints...)
	e.bus.mu.Unlock()
	for _, p := range peers {
		if p == e {
			continue
		}
		p.mu.Lock()
		h := p.handlers[sessionID]
		p.mu.Unlock()
		if h != nil {
			h(event, payload)
		}
	}
	return nil
}

func (e *busEndpoint) SubscribeSession(sessionID uuid.UUID, handler func(event string, payload []byte)) (func(), error) {
	e.mu.Lock()
	e.handlers[sessionID] = handler
	e.mu.Unlock()
	return func() {
		e.mu.Lock()
		delete(e.handlers, sessionID)
		e.mu.Unlock()
	}, nil
}

func newTestHub(bus *fakeBus) *Hub {
	e := bus.endpoint()
	return NewHub(zap.NewNop(), e, e, NewQuestionTracker())
}

func newTestClient(role models.Role) *Client {
	return &Client{
		ID:     uuid.New().String(),
		UserID: uuid.New(),
		Role:   role,
		send:   make(chan WSMessage, 16),
	}
}

// drain empties a client's send buffer and returns what was queued.
func drain(c *Client) []WSMessage {
	var out []WSMessage
	for {
		select {
		case m := <-c.send:
			out = append(out, m)
		default:
			return out
		}
	}
}

func countEvents(msgs []WSMessage, event string) int {
	n := 0
	for _, m := range msgs {
		if m.Event == event {
			n++
		}
	}
	return n
}

func TestResponseStatsReachPresentersOnly(t *testing.T) {
	hub := newTestHub(&fakeBus{})
	sessionID := uuid.New()

	presenter := newTestClient(models.RoleTrainer)
	participant := newTestClient(models.RoleTrainee)
	hub.Register(presenter, sessionID)
	hub.Register(participant, sessionID)
	drain(presenter)
	drain(participant)

	stats := models.ResponseStats{ResponseCount: 3, AnswerDistribution: map[int]int{0: 2, 1: 1}}
	hub.BroadcastToSessionAndPublish(sessionID, EventResponseStats, stats)

	require.Equal(t, 1, countEvents(drain(presenter), EventResponseStats))
	require.Empty(t, drain(participant), "stats must not reach participants")
}

func TestResponseStatsFilterHoldsAcrossInstances(t *testing.T) {
	bus := &fakeBus{}
	hubA := newTestHub(bus)
	hubB := newTestHub(bus)
	sessionID := uuid.New()

	remotePresenter := newTestClient(models.RoleManager)
	remoteParticipant := newTestClient(models.RoleTrainee)
	hubB.Register(remotePresenter, sessionID)
	hubB.Register(remoteParticipant, sessionID)
	drain(remotePresenter)
	drain(remoteParticipant)

	stats := models.ResponseStats{ResponseCount: 1, AnswerDistribution: map[int]int{0: 1}}
	hubA.BroadcastToSessionAndPublish(sessionID, EventResponseStats, stats)

	require.Equal(t, 1, countEvents(drain(remotePresenter), EventResponseStats))
	require.Empty(t, drain(remoteParticipant))
}

func TestChatReachesEveryMemberExactlyOnce(t *testing.T) {
	bus := &fakeBus{}
	hubA := newTestHub(bus)
	hubB := newTestHub(bus)
	sessionID := uuid.New()

	sender := newTestClient(models.RoleTrainee)
	localPeer := newTestClient(models.RoleTrainer)
	remotePeer := newTestClient(models.RoleTrainee)
	hubA.Register(sender, sessionID)
	hubA.Register(localPeer, sessionID)
	hubB.Register(remotePeer, sessionID)
	drain(sender)
	drain(localPeer)
	drain(remotePeer)

	msg := models.ChatMessage{ID: uuid.New().String(), SessionID: sessionID, UserID: sender.UserID, Text: "hello"}
	hubA.BroadcastToSessionAndPublish(sessionID, EventChatMessage, msg)

	require.Equal(t, 1, countEvents(drain(sender), EventChatMessage), "sender gets a single echo")
	require.Equal(t, 1, countEvents(drain(localPeer), EventChatMessage))
	require.Equal(t, 1, countEvents(drain(remotePeer), EventChatMessage))
}

func TestCloseSessionFlushesOpenQuestion(t *testing.T) {
	hub := newTestHub(&fakeBus{})
	sessionID := uuid.New()

	var recorded []EndedQuestion
	hub.SetQuestionRecorder(func(ended EndedQuestion) { recorded = append(recorded, ended) })

	presenter := newTestClient(models.RoleTrainer)
	hub.Register(presenter, sessionID)
	drain(presenter)

	hub.Tracker().Launch(sessionID, question("q1", "A", "B"))
	_, accepted := hub.Tracker().RecordAnswer(sessionID, uuid.New(), "q1", 1)
	require.True(t, accepted)

	hub.CloseSession(sessionID)

	require.Len(t, recorded, 1)
	require.Equal(t, "q1", recorded[0].Question.ID)
	require.Equal(t, 1, recorded[0].Stats.ResponseCount)
	require.Equal(t, 1, countEvents(drain(presenter), EventQuestionEnded))

	active, _ := hub.Tracker().Active(sessionID)
	require.Nil(t, active)

	// Closing again is a no-op.
	hub.CloseSession(sessionID)
	require.Len(t, recorded, 1)
}

func TestLastClientLeavingFlushesOpenQuestion(t *testing.T) {
	hub := newTestHub(&fakeBus{})
	sessionID := uuid.New()

	var recorded []EndedQuestion
	hub.SetQuestionRecorder(func(ended EndedQuestion) { recorded = append(recorded, ended) })

	presenter := newTestClient(models.RoleTrainer)
	hub.Register(presenter, sessionID)
	hub.Tracker().Launch(sessionID, question("q1", "A", "B"))

	hub.Unregister(presenter)

	require.Len(t, recorded, 1)
	require.Equal(t, "q1", recorded[0].Question.ID)
	active, _ := hub.Tracker().Active(sessionID)
	require.Nil(t, active)
}
