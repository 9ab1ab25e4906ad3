package hub

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClient struct {
	id, user string
	cap      int

	mu     sync.Mutex
	frames [][]byte
	closed bool
}

func newFake(id, user string) *fakeClient { return &fakeClient{id: id, user: user, cap: 16} }

func (f *fakeClient) ID() string     { return f.id }
func (f *fakeClient) UserID() string { return f.user }

func (f *fakeClient) Enqueue(msg []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed || len(f.frames) >= f.cap {
		return false
	}
	f.frames = append(f.frames, msg)
	return true
}

func (f *fakeClient) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeClient) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

func newHub() *Hub { return NewHub(zap.NewNop().Sugar()) }

func TestRoomIsolation(t *testing.T) {
	h := newHub()
	a, b := newFake("a", "u1"), newFake("b", "u2")
	h.Join(a, ConversationRoom("c1"))
	h.Join(b, ConversationRoom("c2"))

	h.Emit(ConversationRoom("c1"), []byte("x"), "")

	assert.Equal(t, 1, a.count())
	assert.Equal(t, 0, b.count())
}

func TestEmitExcludesConnection(t *testing.T) {
	h := newHub()
	a, b := newFake("a", "u1"), newFake("b", "u1")
	h.Join(a, ConversationRoom("c1"))
	h.Join(b, ConversationRoom("c1"))

	h.Emit(ConversationRoom("c1"), []byte("x"), "a")

	assert.Equal(t, 0, a.count())
	assert.Equal(t, 1, b.count())
}

func TestJoinLeaveIdempotent(t *testing.T) {
	h := newHub()
	a := newFake("a", "u1")
	room := ConversationRoom("c1")

	h.Join(a, room)
	h.Join(a, room)
	assert.Equal(t, 1, h.Size(room))

	h.Leave(a, room)
	h.Leave(a, room)
	assert.Equal(t, 0, h.Size(room))
	assert.False(t, h.InRoom(a, room))
	assert.Empty(t, h.Rooms(a))

	h.Leave(newFake("z", "u9"), "never-joined")
}

func TestLeaveAll(t *testing.T) {
	h := newHub()
	a := newFake("a", "u1")
	h.Join(a, UserRoom("u1"))
	h.Join(a, ConversationRoom("c1"))
	h.Join(a, ConversationRoom("c2"))
	require.Len(t, h.Rooms(a), 3)

	h.LeaveAll(a)
	assert.Empty(t, h.Rooms(a))
	assert.Equal(t, 0, h.Size(ConversationRoom("c1")))
}

func TestSlowClientClosed(t *testing.T) {
	h := newHub()
	slow := &fakeClient{id: "s", user: "u1", cap: 1}
	h.Join(slow, ConversationRoom("c1"))

	h.Emit(ConversationRoom("c1"), []byte("1"), "")
	h.Emit(ConversationRoom("c1"), []byte("2"), "")

	slow.mu.Lock()
	defer slow.mu.Unlock()
	assert.True(t, slow.closed)
}

func TestRelayFromOtherInstance(t *testing.T) {
	h := newHub()
	a := newFake("a", "u1")
	h.Join(a, ConversationRoom("c1"))
	log := zap.NewNop().Sugar()

	own, _ := json.Marshal(Relay{Origin: "me", Room: ConversationRoom("c1"), Data: json.RawMessage(`{}`)})
	deliver(h, "me", own, log)
	assert.Equal(t, 0, a.count())

	other, _ := json.Marshal(Relay{Origin: "peer", Room: ConversationRoom("c1"), Data: json.RawMessage(`{}`)})
	deliver(h, "me", other, log)
	assert.Equal(t, 1, a.count())

	deliver(h, "me", []byte("garbage"), log)
	assert.Equal(t, 1, a.count())
}

func TestEncodeEnvelope(t *testing.T) {
	b, err := Encode(EventUserTyping, map[string]string{"userId": "u1"})
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(b, &env))
	assert.Equal(t, EventUserTyping, env.Type)
	assert.JSONEq(t, `{"userId":"u1"}`, string(env.Payload))
}

func TestHubIsBroadcaster(t *testing.T) {
	var _ Broadcaster = newHub()
	h := newHub()
	a := newFake("a", "u1")
	h.Join(a, UserRoom("u1"))
	require.NoError(t, h.Broadcast(context.Background(), UserRoom("u1"), []byte("x"), ""))
	assert.Equal(t, 1, a.count())
}
