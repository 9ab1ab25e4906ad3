package rooms

import (
	"context"

	"github.com/fathima-sithara/realtime-service/internal/domain"
	"github.com/fathima-sithara/realtime-service/internal/hub"
	"go.uber.org/zap"
)

type MembershipStore interface {
	FindConversationsForUser(ctx context.Context, userID string) ([]*domain.Conversation, error)
	IsMember(ctx context.Context, conversationID, userID string) (bool, error)
}

// Manager decides which rooms a connection belongs to.
type Manager struct {
	hub   *hub.Hub
	store MembershipStore
	log   *zap.SugaredLogger
}

func NewManager(h *hub.Hub, store MembershipStore, log *zap.SugaredLogger) *Manager {
	return &Manager{hub: h, store: store, log: log}
}

// OnConnect joins the user's personal room and every conversation the user
// is a member of. A store failure leaves the connection in its user room only.
func (m *Manager) OnConnect(ctx context.Context, c hub.Client) {
	m.hub.Join(c, hub.UserRoom(c.UserID()))

	convs, err := m.store.FindConversationsForUser(ctx, c.UserID())
	if err != nil {
		m.log.Warnw("auto-join failed", "user_id", c.UserID(), "conn_id", c.ID(), "err", err)
		return
	}
	for _, conv := range convs {
		m.hub.Join(c, hub.ConversationRoom(conv.ID))
	}
	m.log.Debugw("auto-joined", "user_id", c.UserID(), "conversations", len(convs))
}

// Join adds c to the conversation room when the user is a member.
// Non-members are ignored without telling the client.
func (m *Manager) Join(ctx context.Context, c hub.Client, conversationID string) {
	if conversationID == "" {
		return
	}
	ok, err := m.store.IsMember(ctx, conversationID, c.UserID())
	if err != nil {
		m.log.Warnw("membership check failed", "user_id", c.UserID(), "conversation_id", conversationID, "err", err)
		return
	}
	if !ok {
		return
	}
	m.hub.Join(c, hub.ConversationRoom(conversationID))
}

func (m *Manager) Leave(c hub.Client, conversationID string) {
	m.hub.Leave(c, hub.ConversationRoom(conversationID))
}

func (m *Manager) OnDisconnect(c hub.Client) {
	m.hub.LeaveAll(c)
}

// Joined reports whether c is currently in the conversation room.
func (m *Manager) Joined(c hub.Client, conversationID string) bool {
	return m.hub.InRoom(c, hub.ConversationRoom(conversationID))
}
