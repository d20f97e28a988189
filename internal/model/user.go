package model

import (
	"strings"
	"time"
	"unicode"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Presence status values stored on the user document.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
	StatusAway    = "away"
)

// User represents a user document in MongoDB
type User struct {
	ID                    primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserName              string             `json:"userName" bson:"user_name"`
	Email                 string             `json:"email" bson:"email"`
	HashPassword          string             `json:"-" bson:"hash_password"`
	DisplayName           string             `json:"displayName" bson:"display_name"`
	NormalizedDisplayName string             `json:"-" bson:"normalized_display_name"`
	AvatarURL             string             `json:"avatarUrl" bson:"avatar_url"`
	Bio                   string             `json:"bio" bson:"bio"`
	Phone                 string             `json:"phone" bson:"phone,omitempty"`
	Status                string             `json:"status" bson:"status"`
	LastSeen              time.Time          `json:"lastSeen" bson:"last_seen"`
	ResetOTP              string             `json:"-" bson:"reset_otp,omitempty"`
	ResetOTPExpires       *time.Time         `json:"-" bson:"reset_otp_expires,omitempty"`
	ResetToken            string             `json:"-" bson:"reset_token,omitempty"`
	ResetTokenExpires     *time.Time         `json:"-" bson:"reset_token_expires,omitempty"`
	CreatedAt             time.Time          `json:"createdAt" bson:"created_at"`
	UpdatedAt             time.Time          `json:"updatedAt" bson:"updated_at"`
}

// UserProfile is the public projection returned to other users.
type UserProfile struct {
	ID          primitive.ObjectID `json:"id" bson:"_id"`
	UserName    string             `json:"userName" bson:"user_name"`
	DisplayName string             `json:"displayName" bson:"display_name"`
	AvatarURL   string             `json:"avatarUrl" bson:"avatar_url"`
	Bio         string             `json:"bio" bson:"bio"`
	Status      string             `json:"status" bson:"status"`
	LastSeen    time.Time          `json:"lastSeen" bson:"last_seen"`
}

func (u *User) Profile() UserProfile {
	return UserProfile{
		ID:          u.ID,
		UserName:    u.UserName,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
		Bio:         u.Bio,
		Status:      u.Status,
		LastSeen:    u.LastSeen,
	}
}

var accentStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeName folds case and strips combining accents so searches match
// both accented and unaccented spellings of the same name.
func NormalizeName(s string) string {
	stripped, _, err := transform.String(accentStripper, s)
	if err != nil {
		stripped = s
	}
	stripped = strings.ReplaceAll(stripped, "đ", "d")
	stripped = strings.ReplaceAll(stripped, "Đ", "D")
	return strings.ToLower(stripped)
}
