package hub

import (
	"context"
	"sync"

	"github.com/fathima-sithara/realtime-service/internal/metrics"
	"go.uber.org/zap"
)

// Client is one live connection as the hub sees it.
type Client interface {
	ID() string
	UserID() string
	// Enqueue must not block. It returns false when the connection
	// cannot take more frames.
	Enqueue(msg []byte) bool
	Close()
}

// Hub is the in-process room registry. A client can be in any number of
// rooms; rooms with no members are dropped.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[Client]struct{}
	joined map[Client]map[string]struct{}
	log    *zap.SugaredLogger
}

func NewHub(log *zap.SugaredLogger) *Hub {
	return &Hub{
		rooms:  make(map[string]map[Client]struct{}),
		joined: make(map[Client]map[string]struct{}),
		log:    log,
	}
}

func (h *Hub) Join(c Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[Client]struct{})
	}
	h.rooms[room][c] = struct{}{}
	if h.joined[c] == nil {
		h.joined[c] = make(map[string]struct{})
	}
	h.joined[c][room] = struct{}{}
}

func (h *Hub) Leave(c Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(c, room)
}

func (h *Hub) leaveLocked(c Client, room string) {
	if set, ok := h.rooms[room]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.rooms, room)
		}
	}
	if set, ok := h.joined[c]; ok {
		delete(set, room)
		if len(set) == 0 {
			delete(h.joined, c)
		}
	}
}

func (h *Hub) LeaveAll(c Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for room := range h.joined[c] {
		h.leaveLocked(c, room)
	}
}

func (h *Hub) InRoom(c Client, room string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.rooms[room][c]
	return ok
}

func (h *Hub) Rooms(c Client) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.joined[c]))
	for room := range h.joined[c] {
		out = append(out, room)
	}
	return out
}

func (h *Hub) Size(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Emit delivers msg to every local member of room except the connection
// with id exceptID. Slow members are closed.
func (h *Hub) Emit(room string, msg []byte, exceptID string) {
	var slow []Client

	h.mu.RLock()
	for c := range h.rooms[room] {
		if exceptID != "" && c.ID() == exceptID {
			continue
		}
		if !c.Enqueue(msg) {
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.log.Warnw("closing slow client", "conn_id", c.ID(), "user_id", c.UserID(), "room", room)
		metrics.SlowClients.Inc()
		c.Close()
	}
}

// Broadcast makes Hub a Broadcaster for single-instance deployments.
func (h *Hub) Broadcast(_ context.Context, room string, msg []byte, exceptID string) error {
	h.Emit(room, msg, exceptID)
	return nil
}
