package domain

import (
	"errors"
	"time"
)

const MaxGroupMembers = 50

var (
	ErrDirectMembers = errors.New("direct conversation needs exactly 2 members")
	ErrGroupMembers  = errors.New("group conversation needs 1 to 50 members")
	ErrGroupName     = errors.New("group conversation needs a name")
)

type Conversation struct {
	ID        string    `bson:"_id" json:"id"`
	IsGroup   bool      `bson:"is_group" json:"isGroup"`
	Name      string    `bson:"name,omitempty" json:"name,omitempty"`
	MemberIDs []string  `bson:"member_ids" json:"memberIds"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// Validate checks the membership shape. Uniqueness of direct pairs is a store concern.
func (c *Conversation) Validate() error {
	if c.IsGroup {
		if c.Name == "" {
			return ErrGroupName
		}
		if len(c.MemberIDs) < 1 || len(c.MemberIDs) > MaxGroupMembers {
			return ErrGroupMembers
		}
		return nil
	}
	if len(c.MemberIDs) != 2 || c.MemberIDs[0] == c.MemberIDs[1] {
		return ErrDirectMembers
	}
	return nil
}

func (c *Conversation) HasMember(userID string) bool {
	for _, id := range c.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// ConversationSummary is the conversation-list view pushed after every new message.
type ConversationSummary struct {
	ID          string           `json:"id"`
	Name        string           `json:"name,omitempty"`
	IsGroup     bool             `json:"isGroup"`
	UpdatedAt   time.Time        `json:"updatedAt"`
	Members     []MemberPresence `json:"members"`
	LastMessage *Message         `json:"lastMessage"`
}
