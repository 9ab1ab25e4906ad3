package hub

import "encoding/json"

// Envelope is the wire format for ws frames in both directions.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// server -> client event names
const (
	EventMessageReceived     = "message_received"
	EventConversationUpdated = "conversation_updated"
	EventMessageUpdated      = "message_updated"
	EventMessageDeleted      = "message_deleted"
	EventUserTyping          = "user_typing"
	EventUserStoppedTyping   = "user_stopped_typing"
	EventError               = "error"
)

// Encode marshals payload into an envelope frame.
func Encode(eventType string, payload any) ([]byte, error) {
	p, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: eventType, Payload: p})
}

func ConversationRoom(conversationID string) string { return "conversation:" + conversationID }

func UserRoom(userID string) string { return "user:" + userID }
