package event

import (
	"encoding/json"
	"time"

	"Ripple/internal/model"
)

// Outbound event tags pushed over the socket.
const (
	EventNewMessage             = "new-message"
	EventMessageUpdated         = "message-updated"
	EventMessageRecalled        = "message-recalled"
	EventNotification           = "notification"
	EventFriendRequestCancelled = "friend-request-cancelled"
	EventFriendRequestDeclined  = "friend-request-declined"
	EventFriendRequestAccepted  = "friend-request-accepted"
	EventOnlineRoster           = "online-roster"
	EventPresenceChanged        = "presence-changed"
	EventNewConversation        = "new-conversation"
)

// WsEvent is the envelope every socket frame carries. Payload is encoded
// once at construction time so fan-out to many connections marshals nothing.
type WsEvent struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// New builds an envelope from a typed payload.
func New(tag string, payload any) (WsEvent, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return WsEvent{}, err
	}
	return WsEvent{Event: tag, Payload: raw}, nil
}

// MessagePayload carries a full message for new-message / message-updated.
type MessagePayload struct {
	ConversationID string        `json:"conversationId"`
	Message        model.Message `json:"message"`
}

// RecallPayload carries the id of a recalled message.
type RecallPayload struct {
	ConversationID string `json:"conversationId"`
	MessageID      string `json:"messageId"`
}

// FriendRequestPayload identifies a friend request whose lifecycle changed.
type FriendRequestPayload struct {
	RequestID string `json:"requestId"`
}

// ConversationPayload carries a newly created conversation.
type ConversationPayload struct {
	Conversation model.Conversation `json:"conversation"`
}

// RosterPayload is the deduplicated set of currently online users.
type RosterPayload struct {
	UserIDs []string `json:"userIds"`
}

// PresencePayload announces one user's online/offline transition.
type PresencePayload struct {
	UserID   string     `json:"userId"`
	Status   string     `json:"status"`
	LastSeen *time.Time `json:"lastSeen,omitempty"`
}
