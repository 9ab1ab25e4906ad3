package repository

import (
	"context"
	"time"

	"github.com/fathima-sithara/realtime-service/internal/apperr"
	"github.com/fathima-sithara/realtime-service/internal/domain"
)

var ErrNotFound = apperr.ErrNotFound

// Store is everything the realtime core reads and writes. Implementations
// must be safe for concurrent use.
type Store interface {
	FindUserByID(ctx context.Context, id string) (*domain.User, error)
	UpdateUserPresence(ctx context.Context, id string, online bool, lastSeen time.Time) error

	FindConversationsForUser(ctx context.Context, userID string) ([]*domain.Conversation, error)
	IsMember(ctx context.Context, conversationID, userID string) (bool, error)
	TouchConversation(ctx context.Context, conversationID string, at time.Time) error
	ConversationSummary(ctx context.Context, conversationID string) (*domain.ConversationSummary, error)

	CreateMessage(ctx context.Context, m *domain.Message) error
	FindMessageByID(ctx context.Context, id string) (*domain.Message, error)
	UpdateMessage(ctx context.Context, m *domain.Message) error
	// ListMessages returns one page of non-deleted messages, newest page first,
	// oldest-first inside the page, plus the total non-deleted count.
	ListMessages(ctx context.Context, conversationID string, page, limit int) ([]*domain.Message, int64, error)
}
