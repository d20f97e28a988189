package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"Ripple/internal/db"
	"Ripple/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type NotificationRepository interface {
	Insert(ctx context.Context, n *model.Notification) (primitive.ObjectID, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*model.Notification, error)
	ListForUser(ctx context.Context, userID primitive.ObjectID, unreadOnly bool, params db.PaginationParams) (*db.PaginatedResult[model.Notification], error)
	UnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error)
	SetRead(ctx context.Context, id, userID primitive.ObjectID, read bool) error
	SetAllRead(ctx context.Context, userID primitive.ObjectID) error
	Delete(ctx context.Context, id, userID primitive.ObjectID) error
}

type notificationRepository struct {
	con       *mongo.Database
	mongoRepo *db.Repository[model.Notification]
	logger    *zap.Logger
}

func NewNotificationRepository(con *mongo.Database, repo *db.Repository[model.Notification], logger *zap.Logger) NotificationRepository {
	return &notificationRepository{con: con, mongoRepo: repo, logger: logger}
}

func (r *notificationRepository) Insert(ctx context.Context, n *model.Notification) (primitive.ObjectID, error) {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	n.CreatedAt = time.Now()
	id, err := r.mongoRepo.Create(ctx, *n)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("insert notification: %w", err)
	}
	n.ID = id
	return id, nil
}

func (r *notificationRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*model.Notification, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	n, err := r.mongoRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find notification: %w", err)
	}
	return n, nil
}

func (r *notificationRepository) ListForUser(ctx context.Context, userID primitive.ObjectID, unreadOnly bool, params db.PaginationParams) (*db.PaginatedResult[model.Notification], error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	builder := db.NewFilter().Eq("user_id", userID)
	if unreadOnly {
		builder = builder.Eq("is_read", false)
	}
	if params.SortBy == "" {
		params.SortBy = "created_at"
		params.SortDesc = true
	}
	return r.mongoRepo.FindWithPagination(ctx, builder.Build(), params)
}

func (r *notificationRepository) UnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	return r.mongoRepo.Count(ctx, db.NewFilter().Eq("user_id", userID).Eq("is_read", false).Build())
}

func (r *notificationRepository) SetRead(ctx context.Context, id, userID primitive.ObjectID, read bool) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	res, err := r.mongoRepo.Set(ctx,
		db.NewFilter().Eq("_id", id).Eq("user_id", userID).Build(),
		bson.M{"is_read": read},
	)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *notificationRepository) SetAllRead(ctx context.Context, userID primitive.ObjectID) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	_, err := r.mongoRepo.SetMany(ctx,
		db.NewFilter().Eq("user_id", userID).Eq("is_read", false).Build(),
		bson.M{"is_read": true},
	)
	if err != nil {
		return fmt.Errorf("mark all notifications read: %w", err)
	}
	return nil
}

func (r *notificationRepository) Delete(ctx context.Context, id, userID primitive.ObjectID) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	res, err := r.mongoRepo.Delete(ctx, db.NewFilter().Eq("_id", id).Eq("user_id", userID).Build())
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
