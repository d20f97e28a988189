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

type ConversationQuery struct {
	Type   string
	Search string
	db.PaginationParams
}

type ConversationRepository interface {
	Create(ctx context.Context, conv *model.Conversation) (primitive.ObjectID, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*model.Conversation, error)
	FindDirectBetween(ctx context.Context, a, b primitive.ObjectID) (*model.Conversation, error)
	ListForUser(ctx context.Context, userID primitive.ObjectID, query ConversationQuery) (*db.PaginatedResult[model.Conversation], error)
	IDsForUser(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error)
	SetLastMessage(ctx context.Context, id primitive.ObjectID, last *model.LastMessage, sender primitive.ObjectID, recipients []primitive.ObjectID) error
	PatchLastMessage(ctx context.Context, id, messageID primitive.ObjectID, content string) error
	ReplaceLastMessage(ctx context.Context, id primitive.ObjectID, last *model.LastMessage) error
	MarkRead(ctx context.Context, id, userID primitive.ObjectID) error
	UpdateGroupInfo(ctx context.Context, id primitive.ObjectID, patch bson.M) error
	AddParticipants(ctx context.Context, id primitive.ObjectID, userIDs []primitive.ObjectID) error
	RemoveParticipant(ctx context.Context, id, userID primitive.ObjectID) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type conversationRepository struct {
	con       *mongo.Database
	mongoRepo *db.Repository[model.Conversation]
	logger    *zap.Logger
}

func NewConversationRepository(con *mongo.Database, repo *db.Repository[model.Conversation], logger *zap.Logger) ConversationRepository {
	return &conversationRepository{con: con, mongoRepo: repo, logger: logger}
}

func (r *conversationRepository) Create(ctx context.Context, conv *model.Conversation) (primitive.ObjectID, error) {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	now := time.Now()
	conv.CreatedAt = now
	conv.UpdatedAt = now
	conv.LastMessageAt = now
	if conv.Group != nil {
		conv.Group.NormalizedName = model.NormalizeName(conv.Group.Name)
	}
	if conv.UnreadCounts == nil {
		conv.UnreadCounts = make(map[string]int64, len(conv.Participants))
	}

	id, err := r.mongoRepo.Create(ctx, *conv)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("insert conversation: %w", err)
	}
	conv.ID = id
	return id, nil
}

func (r *conversationRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*model.Conversation, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	conv, err := r.mongoRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find conversation: %w", err)
	}
	return conv, nil
}

func (r *conversationRepository) FindDirectBetween(ctx context.Context, a, b primitive.ObjectID) (*model.Conversation, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.NewFilter().
		Eq("type", model.ConversationDirect).
		All("participants.user_id", a, b).
		Build()

	conv, err := r.mongoRepo.FindOne(ctx, filter)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find direct conversation: %w", err)
	}
	return conv, nil
}

func (r *conversationRepository) ListForUser(ctx context.Context, userID primitive.ObjectID, query ConversationQuery) (*db.PaginatedResult[model.Conversation], error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	builder := db.NewFilter().Eq("participants.user_id", userID)
	if query.Type != "" {
		builder = builder.Eq("type", query.Type)
	}
	if query.Search != "" {
		builder = builder.Eq("group.normalized_name",
			bson.M{"$regex": model.NormalizeName(query.Search), "$options": "i"})
	}

	params := query.PaginationParams
	if params.SortBy == "" {
		params.SortBy = "last_message_at"
		params.SortDesc = true
	}
	return r.mongoRepo.FindWithPagination(ctx, builder.Build(), params)
}

func (r *conversationRepository) IDsForUser(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	convs, err := r.mongoRepo.FindAll(ctx, db.NewFilter().Eq("participants.user_id", userID).Build())
	if err != nil {
		return nil, fmt.Errorf("list conversation ids: %w", err)
	}
	ids := make([]primitive.ObjectID, 0, len(convs))
	for _, c := range convs {
		ids = append(ids, c.ID)
	}
	return ids, nil
}

// SetLastMessage records a new latest message, resets the sender's seen
// state to just itself, and bumps unread counters for everyone else.
func (r *conversationRepository) SetLastMessage(ctx context.Context, id primitive.ObjectID, last *model.LastMessage, sender primitive.ObjectID, recipients []primitive.ObjectID) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	set := bson.M{
		"last_message":    last,
		"last_message_at": last.CreatedAt,
		"seen_by":         []primitive.ObjectID{sender},
		"updated_at":      time.Now(),
	}
	inc := bson.M{}
	for _, rid := range recipients {
		if rid == sender {
			continue
		}
		inc["unread_counts."+rid.Hex()] = 1
	}
	set["unread_counts."+sender.Hex()] = 0

	update := bson.M{"$set": set}
	if len(inc) > 0 {
		update["$inc"] = inc
	}
	_, err := r.mongoRepo.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("set last message: %w", err)
	}
	return nil
}

// PatchLastMessage rewrites the preview content only when the edited
// message is still the latest one.
func (r *conversationRepository) PatchLastMessage(ctx context.Context, id, messageID primitive.ObjectID, content string) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	filter := db.NewFilter().
		Eq("_id", id).
		Eq("last_message.message_id", messageID).
		Build()
	_, err := r.mongoRepo.Set(ctx, filter, bson.M{
		"last_message.content": content,
		"updated_at":           time.Now(),
	})
	if err != nil {
		return fmt.Errorf("patch last message: %w", err)
	}
	return nil
}

func (r *conversationRepository) ReplaceLastMessage(ctx context.Context, id primitive.ObjectID, last *model.LastMessage) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	set := bson.M{
		"last_message": last,
		"updated_at":   time.Now(),
	}
	if last != nil {
		set["last_message_at"] = last.CreatedAt
	}
	_, err := r.mongoRepo.Set(ctx, bson.M{"_id": id}, set)
	if err != nil {
		return fmt.Errorf("replace last message: %w", err)
	}
	return nil
}

func (r *conversationRepository) MarkRead(ctx context.Context, id, userID primitive.ObjectID) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	_, err := r.mongoRepo.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$addToSet": bson.M{"seen_by": userID},
		"$set":      bson.M{"unread_counts." + userID.Hex(): 0},
	})
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	return nil
}

func (r *conversationRepository) UpdateGroupInfo(ctx context.Context, id primitive.ObjectID, patch bson.M) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	if name, ok := patch["group.name"].(string); ok {
		patch["group.normalized_name"] = model.NormalizeName(name)
	}
	patch["updated_at"] = time.Now()
	_, err := r.mongoRepo.Set(ctx, bson.M{"_id": id}, patch)
	if err != nil {
		return fmt.Errorf("update group info: %w", err)
	}
	return nil
}

func (r *conversationRepository) AddParticipants(ctx context.Context, id primitive.ObjectID, userIDs []primitive.ObjectID) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	now := time.Now()
	members := make([]model.Participant, 0, len(userIDs))
	for _, uid := range userIDs {
		members = append(members, model.Participant{UserID: uid, JoinedAt: now})
	}
	_, err := r.mongoRepo.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$push": bson.M{"participants": bson.M{"$each": members}},
		"$set":  bson.M{"updated_at": now},
	})
	if err != nil {
		return fmt.Errorf("add participants: %w", err)
	}
	return nil
}

func (r *conversationRepository) RemoveParticipant(ctx context.Context, id, userID primitive.ObjectID) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	_, err := r.mongoRepo.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$pull":  bson.M{"participants": bson.M{"user_id": userID}},
		"$set":   bson.M{"updated_at": time.Now()},
		"$unset": bson.M{"unread_counts." + userID.Hex(): ""},
	})
	if err != nil {
		return fmt.Errorf("remove participant: %w", err)
	}
	return nil
}

func (r *conversationRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	res, err := r.mongoRepo.DeleteByID(ctx, id)
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
