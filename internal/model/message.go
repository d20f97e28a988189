package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EditWindow is how long a sender may edit a message after sending it.
const EditWindow = 15 * time.Minute

// Message represents a chat message in MongoDB
type Message struct {
	ID             primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	ConversationID primitive.ObjectID  `json:"conversationId" bson:"conversation_id"`
	SenderID       primitive.ObjectID  `json:"senderId" bson:"sender_id"`
	Content        string              `json:"content" bson:"content"`
	ImageURL       string              `json:"imageUrl,omitempty" bson:"image_url,omitempty"`
	IsRecalled     bool                `json:"isRecalled" bson:"is_recalled"`
	Reactions      []Reaction          `json:"reactions" bson:"reactions"`
	ReplyTo        *primitive.ObjectID `json:"replyTo,omitempty" bson:"reply_to,omitempty"`
	CreatedAt      time.Time           `json:"createdAt" bson:"created_at"`
	EditedAt       *time.Time          `json:"editedAt,omitempty" bson:"edited_at,omitempty"`
}

// Reaction represents one user's emoji reaction on a message
type Reaction struct {
	UserID    primitive.ObjectID `json:"userId" bson:"user_id"`
	Emoji     string             `json:"emoji" bson:"emoji"`
	CreatedAt time.Time          `json:"createdAt" bson:"created_at"`
}

// Editable reports whether the message can still be edited by its sender.
func (m *Message) Editable(now time.Time) bool {
	return !m.IsRecalled && now.Sub(m.CreatedAt) <= EditWindow
}
