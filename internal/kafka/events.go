package kafka

import (
	"context"
	"time"

	"github.com/fathima-sithara/realtime-service/internal/domain"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const (
	MessageSent    = "message.sent"
	MessageUpdated = "message.updated"
	MessageDeleted = "message.deleted"
)

// MessageEvent is consumed by the search indexer.
type MessageEvent struct {
	Type           string    `json:"type"`
	MessageID      string    `json:"message_id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Content        string    `json:"content"`
	MessageType    string    `json:"message_type"`
	OccurredAt     time.Time `json:"occurred_at"`
}

type Writer interface {
	Publish(ctx context.Context, key string, payload any) error
}

// EventPublisher sends message events through a circuit breaker so a dead
// broker does not add latency to every send.
type EventPublisher struct {
	w   Writer
	cb  *gobreaker.CircuitBreaker
	log *zap.SugaredLogger
}

func NewEventPublisher(w Writer, maxFailures uint32, openFor time.Duration, log *zap.SugaredLogger) *EventPublisher {
	st := gobreaker.Settings{
		Name:        "message-events",
		MaxRequests: 1,
		Timeout:     openFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Infow("circuit breaker state", "name", name, "from", from.String(), "to", to.String())
		},
	}
	return &EventPublisher{w: w, cb: gobreaker.NewCircuitBreaker(st), log: log}
}

func (p *EventPublisher) PublishMessage(ctx context.Context, eventType string, m *domain.Message) error {
	ev := MessageEvent{
		Type:           eventType,
		MessageID:      m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Content:        m.Content,
		MessageType:    string(m.Type),
		OccurredAt:     time.Now().UTC(),
	}
	_, err := p.cb.Execute(func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return nil, p.w.Publish(ctx, m.ConversationID, ev)
	})
	return err
}
