package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification types.
const (
	NotificationFriendRequest = "friend_request"
	NotificationFriendAccept  = "friend_accept"
	NotificationMessage       = "message"
	NotificationGroupInvite   = "group_invite"
)

// Notification represents a persisted notification for one user
type Notification struct {
	ID          primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	UserID      primitive.ObjectID  `json:"userId" bson:"user_id"`
	Type        string              `json:"type" bson:"type"`
	Title       string              `json:"title" bson:"title"`
	Content     string              `json:"content" bson:"content"`
	RelatedID   *primitive.ObjectID `json:"relatedId,omitempty" bson:"related_id,omitempty"`
	RelatedUser *primitive.ObjectID `json:"relatedUser,omitempty" bson:"related_user,omitempty"`
	IsRead      bool                `json:"isRead" bson:"is_read"`
	CreatedAt   time.Time           `json:"createdAt" bson:"created_at"`
}
