package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Conversation types.
const (
	ConversationDirect = "direct"
	ConversationGroup  = "group"
)

// Conversation represents a chat conversation (direct or group) in MongoDB
type Conversation struct {
	ID            primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	Type          string               `json:"type" bson:"type"`
	Participants  []Participant        `json:"participants" bson:"participants"`
	Group         *GroupInfo           `json:"group,omitempty" bson:"group,omitempty"`
	LastMessage   *LastMessage         `json:"lastMessage" bson:"last_message"`
	LastMessageAt time.Time            `json:"lastMessageAt" bson:"last_message_at"`
	SeenBy        []primitive.ObjectID `json:"seenBy" bson:"seen_by"`
	UnreadCounts  map[string]int64     `json:"-" bson:"unread_counts"`
	CreatedAt     time.Time            `json:"createdAt" bson:"created_at"`
	UpdatedAt     time.Time            `json:"updatedAt" bson:"updated_at"`
}

// Participant represents a user's membership in a conversation
type Participant struct {
	UserID   primitive.ObjectID `json:"userId" bson:"user_id"`
	JoinedAt time.Time          `json:"joinedAt" bson:"joined_at"`
}

// GroupInfo holds group-only attributes
type GroupInfo struct {
	Name           string             `json:"name" bson:"name"`
	NormalizedName string             `json:"-" bson:"normalized_name"`
	CreatedBy      primitive.ObjectID `json:"createdBy" bson:"created_by"`
	AvatarURL      string             `json:"avatarUrl" bson:"avatar_url"`
}

// LastMessage stores the most recent message preview
type LastMessage struct {
	MessageID primitive.ObjectID `json:"messageId" bson:"message_id"`
	Content   string             `json:"content" bson:"content"`
	SenderID  primitive.ObjectID `json:"senderId" bson:"sender_id"`
	CreatedAt time.Time          `json:"createdAt" bson:"created_at"`
}

// HasParticipant reports whether the user is a member of the conversation.
func (c *Conversation) HasParticipant(userID primitive.ObjectID) bool {
	for _, p := range c.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

// ParticipantIDs returns the hex ids of every member. This is the recipient
// set used for fan-out; it is always computed from the durable document.
func (c *Conversation) ParticipantIDs() []string {
	ids := make([]string, 0, len(c.Participants))
	for _, p := range c.Participants {
		ids = append(ids, p.UserID.Hex())
	}
	return ids
}

// UnreadFor returns the unread counter for a user, zero when absent.
func (c *Conversation) UnreadFor(userID primitive.ObjectID) int64 {
	if c.UnreadCounts == nil {
		return 0
	}
	return c.UnreadCounts[userID.Hex()]
}
