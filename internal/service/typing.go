package service

import (
	"context"

	"github.com/fathima-sithara/realtime-service/internal/hub"
	"go.uber.org/zap"
)

// Typist is a connection that can send typing signals.
type Typist interface {
	hub.Client
	Username() string
}

type typingPayload struct {
	UserID         string `json:"userId"`
	Username       string `json:"username,omitempty"`
	ConversationID string `json:"conversationId"`
}

// TypingRelay forwards typing signals to the other members of a room.
// Nothing is stored.
type TypingRelay struct {
	hub *hub.Hub
	bc  hub.Broadcaster
	log *zap.SugaredLogger
}

func NewTypingRelay(h *hub.Hub, bc hub.Broadcaster, log *zap.SugaredLogger) *TypingRelay {
	return &TypingRelay{hub: h, bc: bc, log: log}
}

func (t *TypingRelay) Start(ctx context.Context, c Typist, conversationID string) {
	t.relay(ctx, c, conversationID, hub.EventUserTyping, typingPayload{
		UserID:         c.UserID(),
		Username:       c.Username(),
		ConversationID: conversationID,
	})
}

func (t *TypingRelay) Stop(ctx context.Context, c Typist, conversationID string) {
	t.relay(ctx, c, conversationID, hub.EventUserStoppedTyping, typingPayload{
		UserID:         c.UserID(),
		ConversationID: conversationID,
	})
}

func (t *TypingRelay) relay(ctx context.Context, c Typist, conversationID, event string, p typingPayload) {
	room := hub.ConversationRoom(conversationID)
	if conversationID == "" || !t.hub.InRoom(c, room) {
		return
	}
	frame, err := hub.Encode(event, p)
	if err != nil {
		t.log.Errorw("encode typing event", "err", err)
		return
	}
	if err := t.bc.Broadcast(ctx, room, frame, c.ID()); err != nil {
		t.log.Warnw("typing broadcast failed", "room", room, "err", err)
	}
}
