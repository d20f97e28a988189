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
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

type MessageQuery struct {
	Before time.Time
	db.PaginationParams
}

type MessageRepository interface {
	Insert(ctx context.Context, msg *model.Message) (primitive.ObjectID, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*model.Message, error)
	ListByConversation(ctx context.Context, convID primitive.ObjectID, query MessageQuery) (*db.PaginatedResult[model.Message], error)
	SetContent(ctx context.Context, id primitive.ObjectID, content string) (*model.Message, error)
	MarkRecalled(ctx context.Context, id primitive.ObjectID) (*model.Message, error)
	LatestActive(ctx context.Context, convID primitive.ObjectID) (*model.Message, error)
	ToggleReaction(ctx context.Context, id, userID primitive.ObjectID, emoji string) (*model.Message, error)
	SearchInConversations(ctx context.Context, convIDs []primitive.ObjectID, text string, params db.PaginationParams) (*db.PaginatedResult[model.Message], error)
	DeleteByConversation(ctx context.Context, convID primitive.ObjectID) error
}

type messageRepository struct {
	con       *mongo.Database
	mongoRepo *db.Repository[model.Message]
	logger    *zap.Logger
}

func NewMessageRepository(con *mongo.Database, repo *db.Repository[model.Message], logger *zap.Logger) MessageRepository {
	return &messageRepository{con: con, mongoRepo: repo, logger: logger}
}

func (r *messageRepository) Insert(ctx context.Context, msg *model.Message) (primitive.ObjectID, error) {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	msg.CreatedAt = time.Now()
	id, err := r.mongoRepo.Create(ctx, *msg)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("insert message: %w", err)
	}
	msg.ID = id
	return id, nil
}

func (r *messageRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*model.Message, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	msg, err := r.mongoRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find message: %w", err)
	}
	return msg, nil
}

func (r *messageRepository) ListByConversation(ctx context.Context, convID primitive.ObjectID, query MessageQuery) (*db.PaginatedResult[model.Message], error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	builder := db.NewFilter().Eq("conversation_id", convID)
	if !query.Before.IsZero() {
		builder = builder.Lt("created_at", query.Before)
	}
	params := query.PaginationParams
	if params.SortBy == "" {
		params.SortBy = "created_at"
		params.SortDesc = true
	}
	return r.mongoRepo.FindWithPagination(ctx, builder.Build(), params)
}

func (r *messageRepository) SetContent(ctx context.Context, id primitive.ObjectID, content string) (*model.Message, error) {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	msg, err := r.mongoRepo.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"content": content, "edited_at": time.Now()},
	})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("set message content: %w", err)
	}
	return msg, nil
}

func (r *messageRepository) MarkRecalled(ctx context.Context, id primitive.ObjectID) (*model.Message, error) {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	msg, err := r.mongoRepo.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"is_recalled": true,
			"content":     "",
			"image_url":   "",
		},
	})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("mark recalled: %w", err)
	}
	return msg, nil
}

// LatestActive returns the newest message in the conversation that has
// not been recalled, used to recompute the preview after a recall.
func (r *messageRepository) LatestActive(ctx context.Context, convID primitive.ObjectID) (*model.Message, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.NewFilter().
		Eq("conversation_id", convID).
		Ne("is_recalled", true).
		Build()
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})

	msg, err := r.mongoRepo.FindOne(ctx, filter, opts)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("latest active message: %w", err)
	}
	return msg, nil
}

// withoutReactionBy matches the message only while it holds no reaction
// from the user. Using it as the push filter keeps the invariant of at
// most one reaction per user per message under concurrent toggles.
func withoutReactionBy(id, userID primitive.ObjectID) bson.M {
	return bson.M{
		"_id":       id,
		"reactions": bson.M{"$not": bson.M{"$elemMatch": bson.M{"user_id": userID}}},
	}
}

// ToggleReaction removes the user's existing reaction first, then adds
// the new one unless the same emoji was already present. The push is
// guarded by withoutReactionBy, so two concurrent toggles by the same
// user never duplicate an entry.
func (r *messageRepository) ToggleReaction(ctx context.Context, id, userID primitive.ObjectID, emoji string) (*model.Message, error) {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	before, err := r.mongoRepo.Pull(ctx,
		bson.M{"_id": id},
		"reactions", bson.M{"user_id": userID},
		options.FindOneAndUpdate().SetReturnDocument(options.Before),
	)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("pull reaction: %w", err)
	}

	same := false
	for _, re := range before.Reactions {
		if re.UserID == userID && re.Emoji == emoji {
			same = true
			break
		}
	}
	if same {
		// Toggling the identical emoji off: the pull already did it.
		return r.FindByID(ctx, id)
	}

	msg, err := r.mongoRepo.Push(ctx,
		withoutReactionBy(id, userID),
		"reactions", model.Reaction{
			UserID:    userID,
			Emoji:     emoji,
			CreatedAt: time.Now(),
		},
	)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// A concurrent toggle re-added a reaction between the two
			// steps. Theirs stands; report the current document.
			return r.FindByID(ctx, id)
		}
		return nil, fmt.Errorf("push reaction: %w", err)
	}
	return msg, nil
}

func (r *messageRepository) SearchInConversations(ctx context.Context, convIDs []primitive.ObjectID, text string, params db.PaginationParams) (*db.PaginatedResult[model.Message], error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	ids := make([]interface{}, 0, len(convIDs))
	for _, id := range convIDs {
		ids = append(ids, id)
	}
	filter := db.NewFilter().
		In("conversation_id", ids...).
		Ne("is_recalled", true).
		Contains("content", text).
		Build()
	if params.SortBy == "" {
		params.SortBy = "created_at"
		params.SortDesc = true
	}
	return r.mongoRepo.FindWithPagination(ctx, filter, params)
}

func (r *messageRepository) DeleteByConversation(ctx context.Context, convID primitive.ObjectID) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	_, err := r.mongoRepo.DeleteMany(ctx, db.NewFilter().Eq("conversation_id", convID).Build())
	if err != nil {
		return fmt.Errorf("delete conversation messages: %w", err)
	}
	return nil
}
