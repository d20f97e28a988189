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

type FriendRepository interface {
	Create(ctx context.Context, a, b primitive.ObjectID) (*model.Friend, error)
	FindPair(ctx context.Context, a, b primitive.ObjectID) (*model.Friend, error)
	ListForUser(ctx context.Context, userID primitive.ObjectID) ([]model.Friend, error)
	DeletePair(ctx context.Context, a, b primitive.ObjectID) error
}

type friendRepository struct {
	con       *mongo.Database
	mongoRepo *db.Repository[model.Friend]
	logger    *zap.Logger
}

func NewFriendRepository(con *mongo.Database, repo *db.Repository[model.Friend], logger *zap.Logger) FriendRepository {
	return &friendRepository{con: con, mongoRepo: repo, logger: logger}
}

func pairFilter(a, b primitive.ObjectID) bson.M {
	first, second := model.CanonicalPair(a, b)
	return db.NewFilter().Eq("user_a", first).Eq("user_b", second).Build()
}

func (r *friendRepository) Create(ctx context.Context, a, b primitive.ObjectID) (*model.Friend, error) {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	first, second := model.CanonicalPair(a, b)
	friend := model.Friend{
		UserA:     first,
		UserB:     second,
		CreatedAt: time.Now(),
	}
	id, err := r.mongoRepo.Create(ctx, friend)
	if err != nil {
		return nil, fmt.Errorf("insert friend pair: %w", err)
	}
	friend.ID = id
	return &friend, nil
}

func (r *friendRepository) FindPair(ctx context.Context, a, b primitive.ObjectID) (*model.Friend, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	friend, err := r.mongoRepo.FindOne(ctx, pairFilter(a, b))
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find friend pair: %w", err)
	}
	return friend, nil
}

func (r *friendRepository) ListForUser(ctx context.Context, userID primitive.ObjectID) ([]model.Friend, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.NewFilter().Or(
		bson.M{"user_a": userID},
		bson.M{"user_b": userID},
	).Build()
	friends, err := r.mongoRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list friends: %w", err)
	}
	return friends, nil
}

func (r *friendRepository) DeletePair(ctx context.Context, a, b primitive.ObjectID) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	res, err := r.mongoRepo.Delete(ctx, pairFilter(a, b))
	if err != nil {
		return fmt.Errorf("delete friend pair: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

type FriendRequestRepository interface {
	Create(ctx context.Context, req *model.FriendRequest) (primitive.ObjectID, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*model.FriendRequest, error)
	FindBetween(ctx context.Context, a, b primitive.ObjectID) (*model.FriendRequest, error)
	ListSent(ctx context.Context, from primitive.ObjectID, params db.PaginationParams) (*db.PaginatedResult[model.FriendRequest], error)
	ListReceived(ctx context.Context, to primitive.ObjectID, params db.PaginationParams) (*db.PaginatedResult[model.FriendRequest], error)
	DeleteByID(ctx context.Context, id primitive.ObjectID) error
}

type friendRequestRepository struct {
	con       *mongo.Database
	mongoRepo *db.Repository[model.FriendRequest]
	logger    *zap.Logger
}

func NewFriendRequestRepository(con *mongo.Database, repo *db.Repository[model.FriendRequest], logger *zap.Logger) FriendRequestRepository {
	return &friendRequestRepository{con: con, mongoRepo: repo, logger: logger}
}

func (r *friendRequestRepository) Create(ctx context.Context, req *model.FriendRequest) (primitive.ObjectID, error) {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	req.CreatedAt = time.Now()
	id, err := r.mongoRepo.Create(ctx, *req)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("insert friend request: %w", err)
	}
	req.ID = id
	return id, nil
}

func (r *friendRequestRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*model.FriendRequest, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	req, err := r.mongoRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find friend request: %w", err)
	}
	return req, nil
}

// FindBetween matches a pending request in either direction.
func (r *friendRequestRepository) FindBetween(ctx context.Context, a, b primitive.ObjectID) (*model.FriendRequest, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.NewFilter().Or(
		bson.M{"from": a, "to": b},
		bson.M{"from": b, "to": a},
	).Build()
	req, err := r.mongoRepo.FindOne(ctx, filter)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find friend request between: %w", err)
	}
	return req, nil
}

func (r *friendRequestRepository) ListSent(ctx context.Context, from primitive.ObjectID, params db.PaginationParams) (*db.PaginatedResult[model.FriendRequest], error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	return r.mongoRepo.FindWithPagination(ctx, db.NewFilter().Eq("from", from).Build(), params)
}

func (r *friendRequestRepository) ListReceived(ctx context.Context, to primitive.ObjectID, params db.PaginationParams) (*db.PaginatedResult[model.FriendRequest], error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	return r.mongoRepo.FindWithPagination(ctx, db.NewFilter().Eq("to", to).Build(), params)
}

func (r *friendRequestRepository) DeleteByID(ctx context.Context, id primitive.ObjectID) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	res, err := r.mongoRepo.DeleteByID(ctx, id)
	if err != nil {
		return fmt.Errorf("delete friend request: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
