package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fathima-sithara/realtime-service/internal/domain"
)

// MemoryStore keeps everything in process. Used by tests and by the
// memory store driver for local runs.
type MemoryStore struct {
	mu            sync.RWMutex
	users         map[string]domain.User
	conversations map[string]domain.Conversation
	messages      map[string]domain.Message
	byConv        map[string][]string // conversationID -> message ids in insert order
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:         make(map[string]domain.User),
		conversations: make(map[string]domain.Conversation),
		messages:      make(map[string]domain.Message),
		byConv:        make(map[string][]string),
	}
}

func (s *MemoryStore) PutUser(u *domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = *u
}

func (s *MemoryStore) PutConversation(c *domain.Conversation) error {
	if err := c.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	cp.MemberIDs = append([]string(nil), c.MemberIDs...)
	s.conversations[c.ID] = cp
	return nil
}

func (s *MemoryStore) FindUserByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *MemoryStore) UpdateUserPresence(_ context.Context, id string, online bool, lastSeen time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	u.IsOnline = online
	u.LastSeen = lastSeen
	s.users[id] = u
	return nil
}

func (s *MemoryStore) FindConversationsForUser(_ context.Context, userID string) ([]*domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*domain.Conversation{}
	for _, c := range s.conversations {
		if c.HasMember(userID) {
			cp := c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (s *MemoryStore) IsMember(_ context.Context, conversationID, userID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conversations[conversationID]
	if !ok {
		return false, nil
	}
	return c.HasMember(userID), nil
}

func (s *MemoryStore) TouchConversation(_ context.Context, conversationID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[conversationID]
	if !ok {
		return ErrNotFound
	}
	c.UpdatedAt = at
	s.conversations[conversationID] = c
	return nil
}

func (s *MemoryStore) ConversationSummary(_ context.Context, conversationID string) (*domain.ConversationSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conversations[conversationID]
	if !ok {
		return nil, ErrNotFound
	}
	sum := &domain.ConversationSummary{
		ID:        c.ID,
		Name:      c.Name,
		IsGroup:   c.IsGroup,
		UpdatedAt: c.UpdatedAt,
		Members:   make([]domain.MemberPresence, 0, len(c.MemberIDs)),
	}
	for _, id := range c.MemberIDs {
		if u, ok := s.users[id]; ok {
			sum.Members = append(sum.Members, u.Member())
		}
	}
	ids := s.byConv[conversationID]
	for i := len(ids) - 1; i >= 0; i-- {
		m := s.messages[ids[i]]
		if m.IsDeleted {
			continue
		}
		if u, ok := s.users[m.SenderID]; ok {
			snd := u.Sender()
			m.Sender = &snd
		}
		sum.LastMessage = &m
		break
	}
	return sum, nil
}

func (s *MemoryStore) CreateMessage(_ context.Context, m *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.messages[m.ID]; ok {
		return nil
	}
	cp := *m
	cp.Sender, cp.ReplyTo = nil, nil
	s.messages[m.ID] = cp
	s.byConv[m.ConversationID] = append(s.byConv[m.ConversationID], m.ID)
	return nil
}

func (s *MemoryStore) FindMessageByID(_ context.Context, id string) (*domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.messages[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &m, nil
}

func (s *MemoryStore) UpdateMessage(_ context.Context, m *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.messages[m.ID]
	if !ok {
		return ErrNotFound
	}
	cur.Content = m.Content
	cur.IsEdited = m.IsEdited
	cur.IsDeleted = m.IsDeleted
	cur.UpdatedAt = m.UpdatedAt
	s.messages[m.ID] = cur
	return nil
}

func (s *MemoryStore) ListMessages(_ context.Context, conversationID string, page, limit int) ([]*domain.Message, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// newest first, like the mongo sort on created_at desc
	live := []domain.Message{}
	ids := s.byConv[conversationID]
	for i := len(ids) - 1; i >= 0; i-- {
		if m := s.messages[ids[i]]; !m.IsDeleted {
			live = append(live, m)
		}
	}
	total := int64(len(live))

	start := (page - 1) * limit
	if start >= len(live) {
		return []*domain.Message{}, total, nil
	}
	end := start + limit
	if end > len(live) {
		end = len(live)
	}
	out := make([]*domain.Message, 0, end-start)
	for i := end - 1; i >= start; i-- {
		m := live[i]
		out = append(out, &m)
	}
	return out, total, nil
}
