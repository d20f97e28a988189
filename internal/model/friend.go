package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Friend represents an established friendship. The pair is stored in
// canonical order (UserA < UserB by hex) so one unique index covers both
// directions.
type Friend struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserA     primitive.ObjectID `json:"userA" bson:"user_a"`
	UserB     primitive.ObjectID `json:"userB" bson:"user_b"`
	CreatedAt time.Time          `json:"createdAt" bson:"created_at"`
}

// Involves reports whether the user is one of the two parties.
func (f *Friend) Involves(userID primitive.ObjectID) bool {
	return f.UserA == userID || f.UserB == userID
}

// OtherParty returns the counterpart of the given user in the friendship.
func (f *Friend) OtherParty(userID primitive.ObjectID) primitive.ObjectID {
	if f.UserA == userID {
		return f.UserB
	}
	return f.UserA
}

// CanonicalPair orders two user ids so friendship lookups are direction-free.
func CanonicalPair(a, b primitive.ObjectID) (primitive.ObjectID, primitive.ObjectID) {
	if a.Hex() > b.Hex() {
		return b, a
	}
	return a, b
}

// FriendRequest represents a pending friend request
type FriendRequest struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	From      primitive.ObjectID `json:"from" bson:"from"`
	To        primitive.ObjectID `json:"to" bson:"to"`
	Message   string             `json:"message" bson:"message"`
	CreatedAt time.Time          `json:"createdAt" bson:"created_at"`
}

// Relationship status values reported by user search.
const (
	RelationNone     = "none"
	RelationFriend   = "friend"
	RelationSent     = "sent"
	RelationReceived = "received"
)
