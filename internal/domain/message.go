package domain

import (
	"time"
	"unicode/utf8"
)

type MessageType string

const (
	MessageText   MessageType = "TEXT"
	MessageImage  MessageType = "IMAGE"
	MessageFile   MessageType = "FILE"
	MessageSystem MessageType = "SYSTEM"
)

const (
	MaxContentLength   = 2000
	DeletedPlaceholder = "[Message deleted]"
)

func (t MessageType) Valid() bool {
	switch t {
	case MessageText, MessageImage, MessageFile, MessageSystem:
		return true
	}
	return false
}

type Message struct {
	ID             string      `bson:"_id" json:"id"`
	Content        string      `bson:"content" json:"content"`
	Type           MessageType `bson:"type" json:"type"`
	SenderID       string      `bson:"sender_id" json:"senderId"`
	ConversationID string      `bson:"conversation_id" json:"conversationId"`
	ReplyToID      string      `bson:"reply_to_id,omitempty" json:"replyToId,omitempty"`
	IsEdited       bool        `bson:"is_edited" json:"isEdited"`
	IsDeleted      bool        `bson:"is_deleted" json:"isDeleted"`
	CreatedAt      time.Time   `bson:"created_at" json:"createdAt"`
	UpdatedAt      time.Time   `bson:"updated_at" json:"updatedAt"`

	// hydrated on read, never stored
	Sender  *Sender  `bson:"-" json:"sender,omitempty"`
	ReplyTo *Message `bson:"-" json:"replyTo,omitempty"`
}

// SoftDelete replaces the content with the placeholder and flags the row.
func (m *Message) SoftDelete(now time.Time) {
	m.IsDeleted = true
	m.Content = DeletedPlaceholder
	m.UpdatedAt = now
}

func ContentLength(s string) int { return utf8.RuneCountInString(s) }

// Page is one page of conversation history.
type Page struct {
	Messages   []*Message `json:"messages"`
	Pagination Pagination `json:"pagination"`
}

type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
	HasNext    bool  `json:"hasNext"`
	HasPrev    bool  `json:"hasPrev"`
}

func NewPagination(page, limit int, total int64) Pagination {
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: pages,
		HasNext:    page < pages,
		HasPrev:    page > 1,
	}
}
