package ws

import (
	"context"
	"encoding/json"

	"github.com/fathima-sithara/realtime-service/internal/apperr"
	"github.com/fathima-sithara/realtime-service/internal/domain"
	"github.com/fathima-sithara/realtime-service/internal/hub"
	"github.com/fathima-sithara/realtime-service/internal/metrics"
	"github.com/fathima-sithara/realtime-service/internal/presence"
	"github.com/fathima-sithara/realtime-service/internal/rooms"
	"github.com/fathima-sithara/realtime-service/internal/service"
	"go.uber.org/zap"
)

// Handler runs the lifetime of one authenticated connection.
type Handler struct {
	presence *presence.Tracker
	rooms    *rooms.Manager
	messages *service.MessageService
	typing   *service.TypingRelay
	opts     Options
	log      *zap.SugaredLogger
}

func NewHandler(p *presence.Tracker, r *rooms.Manager, m *service.MessageService, t *service.TypingRelay, opts Options, log *zap.SugaredLogger) *Handler {
	return &Handler{presence: p, rooms: r, messages: m, typing: t, opts: opts, log: log}
}

// Serve blocks until the connection ends. The profile must already be
// authenticated.
func (h *Handler) Serve(conn Conn, profile domain.UserProfile) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := NewClient(conn, profile, h.opts)
	metrics.Connections.Inc()
	defer metrics.Connections.Dec()
	h.log.Infow("ws connected", "conn_id", c.ID(), "user_id", c.UserID())

	h.presence.Connect(ctx, c.UserID())
	h.rooms.OnConnect(ctx, c)

	go c.writePump()
	c.readPump(func(data []byte, limited bool) {
		if limited {
			h.sendError(c, "rate limit exceeded")
			return
		}
		h.dispatch(ctx, c, data)
	})

	h.rooms.OnDisconnect(c)
	h.presence.Disconnect(ctx, c.UserID())
	c.Close()
	h.log.Infow("ws disconnected", "conn_id", c.ID(), "user_id", c.UserID())
}

func (h *Handler) dispatch(ctx context.Context, c *Client, data []byte) {
	var env hub.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		h.sendError(c, "invalid payload")
		return
	}

	switch env.Type {
	case EventJoinConversation:
		h.rooms.Join(ctx, c, conversationID(env.Payload))
	case EventLeaveConversation:
		h.rooms.Leave(c, conversationID(env.Payload))
	case EventSendMessage:
		var p sendMessagePayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			h.sendError(c, "invalid payload")
			return
		}
		_, err := h.messages.Send(ctx, service.SendCommand{
			SenderID:       c.UserID(),
			ConversationID: p.ConversationID,
			Content:        p.Content,
			Type:           domain.MessageType(p.Type),
			ReplyToID:      p.ReplyToID,
			Source:         "ws",
		})
		if err != nil {
			h.log.Debugw("send rejected", "conn_id", c.ID(), "user_id", c.UserID(), "err", err)
			h.sendError(c, apperr.Public(err))
		}
	case EventStartTyping:
		h.typing.Start(ctx, c, conversationID(env.Payload))
	case EventStopTyping:
		h.typing.Stop(ctx, c, conversationID(env.Payload))
	default:
		h.log.Debugw("unknown event", "type", env.Type, "conn_id", c.ID())
	}
}

// sendError reports to the originating connection only.
func (h *Handler) sendError(c *Client, msg string) {
	frame, err := hub.Encode(hub.EventError, errorPayload{Message: msg})
	if err != nil {
		return
	}
	if !c.Enqueue(frame) {
		c.Close()
	}
}
