package domain

import "time"

// User is the persisted account as seen by the realtime core.
// Presence fields are written by the presence tracker only.
type User struct {
	ID          string    `bson:"_id" json:"id"`
	Email       string    `bson:"email" json:"email"`
	Username    string    `bson:"username" json:"username"`
	DisplayName string    `bson:"display_name,omitempty" json:"displayName,omitempty"`
	Avatar      string    `bson:"avatar,omitempty" json:"avatar,omitempty"`
	IsOnline    bool      `bson:"is_online" json:"isOnline"`
	LastSeen    time.Time `bson:"last_seen" json:"lastSeen"`
}

// UserProfile is attached to an authenticated connection for its lifetime.
type UserProfile struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName,omitempty"`
	Avatar      string `json:"avatar,omitempty"`
	IsOnline    bool   `json:"isOnline"`
}

// Sender is the display projection embedded in broadcast messages.
type Sender struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName,omitempty"`
	Avatar      string `json:"avatar,omitempty"`
}

// MemberPresence is a conversation member as shown in conversation lists.
type MemberPresence struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"displayName,omitempty"`
	Avatar      string    `json:"avatar,omitempty"`
	IsOnline    bool      `json:"isOnline"`
	LastSeen    time.Time `json:"lastSeen"`
}

func (u *User) Profile() UserProfile {
	return UserProfile{
		ID:          u.ID,
		Email:       u.Email,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Avatar:      u.Avatar,
		IsOnline:    u.IsOnline,
	}
}

func (u *User) Sender() Sender {
	return Sender{ID: u.ID, Username: u.Username, DisplayName: u.DisplayName, Avatar: u.Avatar}
}

func (u *User) Member() MemberPresence {
	return MemberPresence{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Avatar:      u.Avatar,
		IsOnline:    u.IsOnline,
		LastSeen:    u.LastSeen,
	}
}
