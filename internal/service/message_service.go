package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fathima-sithara/realtime-service/internal/apperr"
	"github.com/fathima-sithara/realtime-service/internal/domain"
	"github.com/fathima-sithara/realtime-service/internal/hub"
	"github.com/fathima-sithara/realtime-service/internal/kafka"
	"github.com/fathima-sithara/realtime-service/internal/metrics"
	"github.com/fathima-sithara/realtime-service/internal/repository"
	"github.com/fathima-sithara/realtime-service/internal/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

type EventPublisher interface {
	PublishMessage(ctx context.Context, eventType string, m *domain.Message) error
}

type SendCommand struct {
	SenderID       string             `validate:"required"`
	ConversationID string             `validate:"required"`
	Content        string             `validate:"required"`
	Type           domain.MessageType
	ReplyToID      string

	// Source labels the entry point in metrics: rest or ws.
	Source string `validate:"-"`
}

type EditCommand struct {
	UserID    string `validate:"required"`
	MessageID string `validate:"required"`
	Content   string `validate:"required"`
}

type DeleteCommand struct {
	UserID    string
	MessageID string
}

// MessageService is the single path every message takes, whichever
// transport it arrived on.
type MessageService struct {
	store      repository.Store
	bc         hub.Broadcaster
	events     EventPublisher
	log        *zap.SugaredLogger
	stripes    *utils.Stripes
	editWindow time.Duration
	now        func() time.Time
}

type Option func(*MessageService)

// WithEvents publishes message events after fanout.
func WithEvents(p EventPublisher) Option {
	return func(s *MessageService) { s.events = p }
}

// WithClock replaces the time source used for message and conversation
// timestamps.
func WithClock(now utils.Clock) Option {
	return func(s *MessageService) { s.now = now }
}

// WithEditWindow limits how long after sending a message can be edited.
// Zero means no limit.
func WithEditWindow(d time.Duration) Option {
	return func(s *MessageService) { s.editWindow = d }
}

func NewMessageService(store repository.Store, bc hub.Broadcaster, log *zap.SugaredLogger, opts ...Option) *MessageService {
	s := &MessageService{
		store:   store,
		bc:      bc,
		log:     log,
		stripes: utils.NewStripes(256),
		now:     utils.NowUTC,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", apperr.ErrValidation, msg)
}

func checkContent(content string) error {
	if n := domain.ContentLength(content); n > domain.MaxContentLength {
		return invalid(fmt.Sprintf("content must be at most %d characters", domain.MaxContentLength))
	}
	return nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", apperr.ErrStoreUnavailable, op, err)
}

// Send validates, persists and fans out one message. Errors are only
// returned for failures before the message is stored.
func (s *MessageService) Send(ctx context.Context, cmd SendCommand) (*domain.Message, error) {
	start := time.Now()

	cmd.Content = strings.TrimSpace(cmd.Content)
	if cmd.Type == "" {
		cmd.Type = domain.MessageText
	}
	if err := utils.ValidateStruct(cmd); err != nil {
		return nil, invalid(utils.ValidationMessage(err))
	}
	if err := checkContent(cmd.Content); err != nil {
		return nil, err
	}
	if !cmd.Type.Valid() {
		return nil, invalid(fmt.Sprintf("type %q is not supported", cmd.Type))
	}

	ok, err := s.store.IsMember(ctx, cmd.ConversationID, cmd.SenderID)
	if err != nil {
		return nil, unavailable("membership", err)
	}
	if !ok {
		return nil, apperr.ErrNotFoundOrUnauthorized
	}

	var reply *domain.Message
	if cmd.ReplyToID != "" {
		reply, err = s.store.FindMessageByID(ctx, cmd.ReplyToID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, invalid("invalid reply message")
		case err != nil:
			return nil, unavailable("reply lookup", err)
		case reply.ConversationID != cmd.ConversationID || reply.IsDeleted:
			return nil, invalid("invalid reply message")
		}
	}

	sender, err := s.store.FindUserByID(ctx, cmd.SenderID)
	if err != nil {
		return nil, unavailable("sender lookup", err)
	}

	m := &domain.Message{
		ID:             uuid.NewString(),
		Content:        cmd.Content,
		Type:           cmd.Type,
		SenderID:       cmd.SenderID,
		ConversationID: cmd.ConversationID,
		ReplyToID:      cmd.ReplyToID,
	}
	if err := s.commit(ctx, m, sender, reply); err != nil {
		return nil, err
	}

	source := cmd.Source
	if source == "" {
		source = "rest"
	}
	metrics.MessagesSent.WithLabelValues(source).Inc()
	metrics.SendDuration.Observe(time.Since(start).Seconds())

	s.publish(ctx, kafka.MessageSent, m)
	return m, nil
}

// commit runs the ordered part of Send. Messages of one conversation go
// through here one at a time, so broadcasts leave in commit order.
func (s *MessageService) commit(ctx context.Context, m *domain.Message, sender *domain.User, reply *domain.Message) error {
	unlock := s.stripes.Lock(m.ConversationID)
	defer unlock()

	now := s.now()
	m.CreatedAt, m.UpdatedAt = now, now
	if err := s.store.CreateMessage(ctx, m); err != nil {
		s.log.Errorw("create message failed", "conversation_id", m.ConversationID, "sender_id", m.SenderID, "err", err)
		return unavailable("create message", err)
	}

	snd := sender.Sender()
	m.Sender = &snd
	if reply != nil {
		m.ReplyTo = s.hydrateReply(ctx, reply)
	}

	if err := s.store.TouchConversation(ctx, m.ConversationID, now); err != nil {
		s.fanoutFailed("touch", m, err)
	}

	room := hub.ConversationRoom(m.ConversationID)
	s.emit(ctx, room, hub.EventMessageReceived, m, "broadcast_message")

	sum, err := s.store.ConversationSummary(ctx, m.ConversationID)
	if err != nil {
		s.fanoutFailed("summary", m, err)
		return nil
	}
	s.emit(ctx, room, hub.EventConversationUpdated, sum, "broadcast_summary")
	return nil
}

func (s *MessageService) hydrateReply(ctx context.Context, reply *domain.Message) *domain.Message {
	r := *reply
	r.ReplyTo = nil
	if u, err := s.store.FindUserByID(ctx, r.SenderID); err == nil {
		snd := u.Sender()
		r.Sender = &snd
	}
	return &r
}

func (s *MessageService) emit(ctx context.Context, room, event string, payload any, step string) {
	frame, err := hub.Encode(event, payload)
	if err != nil {
		s.log.Errorw("encode event", "event", event, "err", err)
		metrics.FanoutFailures.WithLabelValues(step).Inc()
		return
	}
	if err := s.bc.Broadcast(ctx, room, frame, ""); err != nil {
		err = fmt.Errorf("%w: %s to %s: %v", apperr.ErrTransport, event, room, err)
		s.log.Warnw("broadcast failed", "event", event, "room", room, "err", err)
		metrics.FanoutFailures.WithLabelValues(step).Inc()
	}
}

func (s *MessageService) fanoutFailed(step string, m *domain.Message, err error) {
	s.log.Warnw("post-commit step failed", "step", step, "message_id", m.ID, "conversation_id", m.ConversationID, "err", err)
	metrics.FanoutFailures.WithLabelValues(step).Inc()
}

func (s *MessageService) publish(ctx context.Context, eventType string, m *domain.Message) {
	if s.events == nil {
		return
	}
	cp := *m
	go func() {
		if err := s.events.PublishMessage(context.WithoutCancel(ctx), eventType, &cp); err != nil {
			s.log.Warnw("publish message event failed", "type", eventType, "message_id", cp.ID, "err", err)
			metrics.FanoutFailures.WithLabelValues("publish").Inc()
		}
	}()
}

// loadOwned fetches a message the caller is allowed to change.
func (s *MessageService) loadOwned(ctx context.Context, userID, messageID string) (*domain.Message, error) {
	m, err := s.store.FindMessageByID(ctx, messageID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: message not found", apperr.ErrNotFound)
	}
	if err != nil {
		return nil, unavailable("message lookup", err)
	}
	if m.SenderID != userID {
		return nil, apperr.ErrForbidden
	}
	return m, nil
}

// lockOwned takes the conversation lock of a message and returns a copy read
// under that lock, so checks and the write that follows see the same state.
func (s *MessageService) lockOwned(ctx context.Context, userID, messageID string) (*domain.Message, func(), error) {
	m, err := s.loadOwned(ctx, userID, messageID)
	if err != nil {
		return nil, nil, err
	}
	unlock := s.stripes.Lock(m.ConversationID)
	m, err = s.loadOwned(ctx, userID, messageID)
	if err != nil {
		unlock()
		return nil, nil, err
	}
	return m, unlock, nil
}

// Edit replaces the content of the caller's own message and tells the room.
func (s *MessageService) Edit(ctx context.Context, cmd EditCommand) (*domain.Message, error) {
	cmd.Content = strings.TrimSpace(cmd.Content)
	if err := utils.ValidateStruct(cmd); err != nil {
		return nil, invalid(utils.ValidationMessage(err))
	}
	if err := checkContent(cmd.Content); err != nil {
		return nil, err
	}

	m, unlock, err := s.lockOwned(ctx, cmd.UserID, cmd.MessageID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if m.IsDeleted {
		return nil, invalid("cannot edit a deleted message")
	}
	now := s.now()
	if s.editWindow > 0 && now.Sub(m.CreatedAt) > s.editWindow {
		return nil, fmt.Errorf("%w: edit window has passed", apperr.ErrForbidden)
	}
	m.Content = cmd.Content
	m.IsEdited = true
	m.UpdatedAt = now
	if err := s.store.UpdateMessage(ctx, m); err != nil {
		return nil, unavailable("update message", err)
	}
	if u, err := s.store.FindUserByID(ctx, m.SenderID); err == nil {
		snd := u.Sender()
		m.Sender = &snd
	}

	s.emit(ctx, hub.ConversationRoom(m.ConversationID), hub.EventMessageUpdated, m, "broadcast_update")
	s.publish(ctx, kafka.MessageUpdated, m)
	return m, nil
}

// Delete soft-deletes the caller's own message. Deleting twice is a no-op.
func (s *MessageService) Delete(ctx context.Context, cmd DeleteCommand) (*domain.Message, error) {
	m, unlock, err := s.lockOwned(ctx, cmd.UserID, cmd.MessageID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if m.IsDeleted {
		return m, nil
	}
	m.SoftDelete(s.now())
	if err := s.store.UpdateMessage(ctx, m); err != nil {
		return nil, unavailable("delete message", err)
	}

	payload := map[string]string{"id": m.ID, "conversationId": m.ConversationID}
	s.emit(ctx, hub.ConversationRoom(m.ConversationID), hub.EventMessageDeleted, payload, "broadcast_delete")
	s.publish(ctx, kafka.MessageDeleted, m)
	return m, nil
}

// History returns one page of a conversation the caller belongs to.
func (s *MessageService) History(ctx context.Context, userID, conversationID string, page, limit int) (*domain.Page, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	ok, err := s.store.IsMember(ctx, conversationID, userID)
	if err != nil {
		return nil, unavailable("membership", err)
	}
	if !ok {
		return nil, apperr.ErrNotFoundOrUnauthorized
	}

	msgs, total, err := s.store.ListMessages(ctx, conversationID, page, limit)
	if err != nil {
		return nil, unavailable("list messages", err)
	}

	senders := map[string]*domain.Sender{}
	for _, m := range msgs {
		snd, seen := senders[m.SenderID]
		if !seen {
			if u, err := s.store.FindUserByID(ctx, m.SenderID); err == nil {
				p := u.Sender()
				snd = &p
			}
			senders[m.SenderID] = snd
		}
		m.Sender = snd
	}
	return &domain.Page{Messages: msgs, Pagination: domain.NewPagination(page, limit, total)}, nil
}
