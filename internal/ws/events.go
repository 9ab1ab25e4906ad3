package ws

import (
	"encoding/json"
	"strings"
)

// client -> server event names
const (
	EventJoinConversation  = "join_conversation"
	EventLeaveConversation = "leave_conversation"
	EventSendMessage       = "send_message"
	EventStartTyping       = "start_typing"
	EventStopTyping        = "stop_typing"
)

type conversationRef struct {
	ConversationID string `json:"conversationId"`
}

type sendMessagePayload struct {
	ConversationID string `json:"conversationId"`
	Content        string `json:"content"`
	Type           string `json:"type,omitempty"`
	ReplyToID      string `json:"replyToId,omitempty"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// conversationID accepts either a bare JSON string or {"conversationId": "..."}.
func conversationID(raw json.RawMessage) string {
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return strings.TrimSpace(id)
	}
	var ref conversationRef
	if err := json.Unmarshal(raw, &ref); err == nil {
		return strings.TrimSpace(ref.ConversationID)
	}
	return ""
}
