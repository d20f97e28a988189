package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"Ripple/internal/db"
	"Ripple/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) (primitive.ObjectID, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*model.User, error)
	FindByLogin(ctx context.Context, usernameOrEmail string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	ExistsByNameOrEmail(ctx context.Context, userName, email string) (bool, error)
	Search(ctx context.Context, query string, exclude primitive.ObjectID, limit int64) ([]model.User, error)
	UpdateProfile(ctx context.Context, id primitive.ObjectID, patch bson.M) error
	UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string) error
	SetPresence(ctx context.Context, userID string, status string, lastSeen time.Time) error
	SetResetOTP(ctx context.Context, id primitive.ObjectID, otp string, expires time.Time) error
	FindByOTP(ctx context.Context, email, otp string) (*model.User, error)
	SetResetToken(ctx context.Context, id primitive.ObjectID, token string, expires time.Time) error
	FindByResetToken(ctx context.Context, token string) (*model.User, error)
	ClearReset(ctx context.Context, id primitive.ObjectID) error
}

type userRepository struct {
	con       *mongo.Database
	mongoRepo *db.Repository[model.User]
	logger    *zap.Logger
}

func NewUserRepository(con *mongo.Database, repo *db.Repository[model.User], logger *zap.Logger) UserRepository {
	return &userRepository{con: con, mongoRepo: repo, logger: logger}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) (primitive.ObjectID, error) {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	now := time.Now()
	user.UserName = strings.ToLower(strings.TrimSpace(user.UserName))
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.NormalizedDisplayName = model.NormalizeName(user.DisplayName)
	user.Status = model.StatusOffline
	user.LastSeen = now
	user.CreatedAt = now
	user.UpdatedAt = now

	id, err := r.mongoRepo.Create(ctx, *user)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("insert user: %w", err)
	}
	user.ID = id
	return id, nil
}

func (r *userRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*model.User, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	user, err := r.mongoRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

func (r *userRepository) FindByLogin(ctx context.Context, usernameOrEmail string) (*model.User, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	login := strings.ToLower(strings.TrimSpace(usernameOrEmail))
	filter := db.NewFilter().Or(
		bson.M{"user_name": login},
		bson.M{"email": login},
	).Build()

	user, err := r.mongoRepo.FindOne(ctx, filter)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user by login: %w", err)
	}
	return user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	user, err := r.mongoRepo.FindOne(ctx, db.NewFilter().Eq("email", strings.ToLower(email)).Build())
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return user, nil
}

func (r *userRepository) ExistsByNameOrEmail(ctx context.Context, userName, email string) (bool, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.NewFilter().Or(
		bson.M{"user_name": strings.ToLower(userName)},
		bson.M{"email": strings.ToLower(email)},
	).Build()
	return r.mongoRepo.Exists(ctx, filter)
}

func (r *userRepository) Search(ctx context.Context, query string, exclude primitive.ObjectID, limit int64) ([]model.User, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	normalized := model.NormalizeName(query)
	filter := db.NewFilter().
		Ne("_id", exclude).
		Or(
			bson.M{"user_name": bson.M{"$regex": normalized, "$options": "i"}},
			bson.M{"normalized_display_name": bson.M{"$regex": normalized, "$options": "i"}},
		).Build()

	result, err := r.mongoRepo.FindWithPagination(ctx, filter, db.PaginationParams{
		Page:     1,
		PageSize: limit,
		SortBy:   "display_name",
	})
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	return result.Data, nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, id primitive.ObjectID, patch bson.M) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	if name, ok := patch["display_name"].(string); ok {
		patch["normalized_display_name"] = model.NormalizeName(name)
	}
	patch["updated_at"] = time.Now()

	_, err := r.mongoRepo.Set(ctx, bson.M{"_id": id}, patch)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}

func (r *userRepository) UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	_, err := r.mongoRepo.Set(ctx, bson.M{"_id": id}, bson.M{
		"hash_password": hash,
		"updated_at":    time.Now(),
	})
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// SetPresence implements hub.PresenceStore.
func (r *userRepository) SetPresence(ctx context.Context, userID string, status string, lastSeen time.Time) error {
	id, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return ErrInvalidID
	}

	_, err = r.mongoRepo.Set(ctx, bson.M{"_id": id}, bson.M{
		"status":    status,
		"last_seen": lastSeen,
	})
	if err != nil {
		return fmt.Errorf("set presence: %w", err)
	}
	return nil
}

func (r *userRepository) SetResetOTP(ctx context.Context, id primitive.ObjectID, otp string, expires time.Time) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	_, err := r.mongoRepo.Set(ctx, bson.M{"_id": id}, bson.M{
		"reset_otp":         otp,
		"reset_otp_expires": expires,
	})
	return err
}

func (r *userRepository) FindByOTP(ctx context.Context, email, otp string) (*model.User, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.NewFilter().
		Eq("email", strings.ToLower(email)).
		Eq("reset_otp", otp).
		Gt("reset_otp_expires", time.Now()).
		Build()

	user, err := r.mongoRepo.FindOne(ctx, filter)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user by otp: %w", err)
	}
	return user, nil
}

func (r *userRepository) SetResetToken(ctx context.Context, id primitive.ObjectID, token string, expires time.Time) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	_, err := r.mongoRepo.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set":   bson.M{"reset_token": token, "reset_token_expires": expires},
		"$unset": bson.M{"reset_otp": "", "reset_otp_expires": ""},
	})
	return err
}

func (r *userRepository) FindByResetToken(ctx context.Context, token string) (*model.User, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.NewFilter().
		Eq("reset_token", token).
		Gt("reset_token_expires", time.Now()).
		Build()

	user, err := r.mongoRepo.FindOne(ctx, filter)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user by reset token: %w", err)
	}
	return user, nil
}

func (r *userRepository) ClearReset(ctx context.Context, id primitive.ObjectID) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	_, err := r.mongoRepo.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$unset": bson.M{
			"reset_otp":           "",
			"reset_otp_expires":   "",
			"reset_token":         "",
			"reset_token_expires": "",
		},
	})
	return err
}
