package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fathima-sithara/realtime-service/internal/domain"
	"github.com/fathima-sithara/realtime-service/internal/hub"
	"github.com/fathima-sithara/realtime-service/internal/presence"
	"github.com/fathima-sithara/realtime-service/internal/repository"
	"github.com/fathima-sithara/realtime-service/internal/rooms"
	"github.com/fathima-sithara/realtime-service/internal/service"
	"github.com/gofiber/websocket/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// pipeConn feeds frames from in and records text frames written.
type pipeConn struct {
	in     chan []byte
	closed chan struct{}
	once   sync.Once

	mu  sync.Mutex
	out []hub.Envelope
}

func newPipeConn() *pipeConn {
	return &pipeConn{in: make(chan []byte, 16), closed: make(chan struct{})}
}

func (p *pipeConn) ReadMessage() (int, []byte, error) {
	select {
	case b, ok := <-p.in:
		if !ok {
			return 0, nil, errors.New("eof")
		}
		return websocket.TextMessage, b, nil
	case <-p.closed:
		return 0, nil, errors.New("closed")
	}
}

func (p *pipeConn) WriteMessage(mt int, data []byte) error {
	if mt != websocket.TextMessage {
		return nil
	}
	var env hub.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.out = append(p.out, env)
	return nil
}

func (p *pipeConn) SetReadLimit(int64)                {}
func (p *pipeConn) SetReadDeadline(time.Time) error   { return nil }
func (p *pipeConn) SetWriteDeadline(time.Time) error  { return nil }
func (p *pipeConn) SetPongHandler(func(string) error) {}

func (p *pipeConn) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}

func (p *pipeConn) send(typ string, payload any) {
	raw, _ := json.Marshal(payload)
	b, _ := json.Marshal(hub.Envelope{Type: typ, Payload: raw})
	p.in <- b
}

func (p *pipeConn) received() []hub.Envelope {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]hub.Envelope(nil), p.out...)
}

func (p *pipeConn) waitFor(t *testing.T, typ string) hub.Envelope {
	t.Helper()
	var found hub.Envelope
	require.Eventually(t, func() bool {
		for _, e := range p.received() {
			if e.Type == typ {
				found = e
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond, "no %s frame", typ)
	return found
}

type testEnv struct {
	store   *repository.MemoryStore
	hub     *hub.Hub
	tracker *presence.Tracker
	handler *Handler
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	log := zap.NewNop().Sugar()
	s := repository.NewMemoryStore()
	s.PutUser(&domain.User{ID: "alice", Username: "alice"})
	s.PutUser(&domain.User{ID: "bob", Username: "bob"})
	s.PutUser(&domain.User{ID: "carol", Username: "carol"})
	require.NoError(t, s.PutConversation(&domain.Conversation{ID: "c1", MemberIDs: []string{"alice", "bob"}}))

	h := hub.NewHub(log)
	tr := presence.NewTracker(presence.NewMemoryCounter(), s, log)
	rm := rooms.NewManager(h, s, log)
	svc := service.NewMessageService(s, h, log)
	typing := service.NewTypingRelay(h, h, log)
	return &testEnv{
		store:   s,
		hub:     h,
		tracker: tr,
		handler: NewHandler(tr, rm, svc, typing, Options{SendBuffer: 32, RateLimitPerSec: 100}, log),
	}
}

func (e *testEnv) connect(t *testing.T, userID string) (*pipeConn, chan struct{}) {
	t.Helper()
	u, err := e.store.FindUserByID(context.Background(), userID)
	require.NoError(t, err)
	convs, err := e.store.FindConversationsForUser(context.Background(), userID)
	require.NoError(t, err)
	rooms := []string{hub.UserRoom(userID)}
	for _, c := range convs {
		rooms = append(rooms, hub.ConversationRoom(c.ID))
	}
	before := make(map[string]int, len(rooms))
	for _, r := range rooms {
		before[r] = e.hub.Size(r)
	}

	conn := newPipeConn()
	done := make(chan struct{})
	go func() {
		e.handler.Serve(conn, u.Profile())
		close(done)
	}()
	// auto-join has finished once every room of the user gained this connection
	require.Eventually(t, func() bool {
		for _, r := range rooms {
			if e.hub.Size(r) != before[r]+1 {
				return false
			}
		}
		return true
	}, time.Second, 5*time.Millisecond)
	return conn, done
}

func TestSendMessageOverSocket(t *testing.T) {
	e := newEnv(t)
	a, _ := e.connect(t, "alice")
	b, _ := e.connect(t, "bob")
	require.Eventually(t, func() bool { return e.hub.Size(hub.ConversationRoom("c1")) == 2 }, time.Second, 5*time.Millisecond)

	a.send(EventSendMessage, map[string]string{"conversationId": "c1", "content": "hi bob"})

	got := b.waitFor(t, hub.EventMessageReceived)
	var m domain.Message
	require.NoError(t, json.Unmarshal(got.Payload, &m))
	assert.Equal(t, "hi bob", m.Content)
	assert.Equal(t, "alice", m.SenderID)

	a.waitFor(t, hub.EventMessageReceived)
	b.waitFor(t, hub.EventConversationUpdated)
}

func TestSendMessageErrorGoesToSenderOnly(t *testing.T) {
	e := newEnv(t)
	c, _ := e.connect(t, "carol")

	c.send(EventSendMessage, map[string]string{"conversationId": "c1", "content": "let me in"})

	got := c.waitFor(t, hub.EventError)
	var p errorPayload
	require.NoError(t, json.Unmarshal(got.Payload, &p))
	assert.Equal(t, "conversation not found or unauthorized", p.Message)
}

func TestJoinAndLeave(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.store.PutConversation(&domain.Conversation{ID: "c2", MemberIDs: []string{"alice", "carol"}}))
	a, _ := e.connect(t, "alice")

	a.send(EventLeaveConversation, "c1")
	require.Eventually(t, func() bool { return e.hub.Size(hub.ConversationRoom("c1")) == 0 }, time.Second, 5*time.Millisecond)

	a.send(EventJoinConversation, map[string]string{"conversationId": "c1"})
	require.Eventually(t, func() bool { return e.hub.Size(hub.ConversationRoom("c1")) == 1 }, time.Second, 5*time.Millisecond)
}

func TestJoinRejectedForNonMember(t *testing.T) {
	e := newEnv(t)
	e.connect(t, "alice")
	c, _ := e.connect(t, "carol")
	require.Equal(t, 1, e.hub.Size(hub.ConversationRoom("c1")))

	c.send(EventJoinConversation, "c1")
	// frames are handled in order, so this error means the join was processed
	c.in <- []byte("{not json")
	c.waitFor(t, hub.EventError)

	assert.Equal(t, 1, e.hub.Size(hub.ConversationRoom("c1")))
	errs := 0
	for _, env := range c.received() {
		if env.Type == hub.EventError {
			errs++
		}
	}
	assert.Equal(t, 1, errs, "the rejected join must not produce an error event")
}

func TestDisconnectCleansUp(t *testing.T) {
	e := newEnv(t)
	a, done := e.connect(t, "alice")
	ctx := context.Background()

	n, err := e.tracker.Connections(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	u, _ := e.store.FindUserByID(ctx, "alice")
	assert.True(t, u.IsOnline)

	close(a.in)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("serve did not return")
	}

	assert.Equal(t, 0, e.hub.Size(hub.UserRoom("alice")))
	assert.Equal(t, 0, e.hub.Size(hub.ConversationRoom("c1")))
	u, _ = e.store.FindUserByID(ctx, "alice")
	assert.False(t, u.IsOnline)
}

func TestTypingOverSocket(t *testing.T) {
	e := newEnv(t)
	a, _ := e.connect(t, "alice")
	b, _ := e.connect(t, "bob")
	require.Eventually(t, func() bool { return e.hub.Size(hub.ConversationRoom("c1")) == 2 }, time.Second, 5*time.Millisecond)

	a.send(EventStartTyping, map[string]string{"conversationId": "c1"})
	got := b.waitFor(t, hub.EventUserTyping)
	assert.JSONEq(t, `{"userId":"alice","username":"alice","conversationId":"c1"}`, string(got.Payload))
}

func TestMalformedFrame(t *testing.T) {
	e := newEnv(t)
	a, _ := e.connect(t, "alice")
	a.in <- []byte("{not json")
	a.waitFor(t, hub.EventError)
}

func TestConversationIDForms(t *testing.T) {
	assert.Equal(t, "c1", conversationID(json.RawMessage(`"c1"`)))
	assert.Equal(t, "c1", conversationID(json.RawMessage(`{"conversationId":"c1"}`)))
	assert.Equal(t, "", conversationID(json.RawMessage(`42`)))
}

func TestEnqueueAfterClose(t *testing.T) {
	c := NewClient(newPipeConn(), domain.UserProfile{ID: "u1"}, Options{SendBuffer: 1})
	assert.True(t, c.Enqueue([]byte("a")))
	assert.False(t, c.Enqueue([]byte("b")))
	c.Close()
	c.Close()
	assert.False(t, c.Enqueue([]byte("c")))
}
