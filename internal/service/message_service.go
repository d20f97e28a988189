package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"Ripple/internal/db"
	"Ripple/internal/event"
	"Ripple/internal/model"
	"Ripple/internal/repo"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type SendMessageInput struct {
	ConversationID string `json:"conversationId"`
	RecipientID    string `json:"recipientId"`
	Content        string `json:"content"`
	ImageURL       string `json:"imageUrl"`
	ReplyTo        string `json:"replyTo"`
}

type MessageService interface {
	List(ctx context.Context, userID, convID primitive.ObjectID, query repo.MessageQuery) ([]model.Message, int64, error)
	Send(ctx context.Context, senderID primitive.ObjectID, in SendMessageInput) (*model.Message, error)
	Edit(ctx context.Context, userID, messageID primitive.ObjectID, content string) (*model.Message, error)
	Recall(ctx context.Context, userID, messageID primitive.ObjectID) error
	ToggleReaction(ctx context.Context, userID, messageID primitive.ObjectID, emoji string) (*model.Message, error)
	Search(ctx context.Context, userID primitive.ObjectID, text string, params db.PaginationParams) ([]model.Message, int64, error)
}

type messageService struct {
	messages      repo.MessageRepository
	conversations repo.ConversationRepository
	friends       repo.FriendRepository
	deliverer     Deliverer
	logger        *zap.Logger
}

func NewMessageService(
	messages repo.MessageRepository,
	conversations repo.ConversationRepository,
	friends repo.FriendRepository,
	deliverer Deliverer,
	logger *zap.Logger,
) MessageService {
	return &messageService{
		messages:      messages,
		conversations: conversations,
		friends:       friends,
		deliverer:     deliverer,
		logger:        logger,
	}
}

func (s *messageService) List(ctx context.Context, userID, convID primitive.ObjectID, query repo.MessageQuery) ([]model.Message, int64, error) {
	if _, err := s.memberConversation(ctx, userID, convID); err != nil {
		return nil, 0, err
	}
	page, err := s.messages.ListByConversation(ctx, convID, query)
	if err != nil {
		return nil, 0, err
	}
	return page.Data, page.Total, nil
}

func (s *messageService) Send(ctx context.Context, senderID primitive.ObjectID, in SendMessageInput) (*model.Message, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" && in.ImageURL == "" {
		return nil, fmt.Errorf("%w: message needs content or an image", ErrInvalidInput)
	}

	conv, err := s.resolveConversation(ctx, senderID, in)
	if err != nil {
		return nil, err
	}

	msg := &model.Message{
		ConversationID: conv.ID,
		SenderID:       senderID,
		Content:        content,
		ImageURL:       in.ImageURL,
	}
	if in.ReplyTo != "" {
		replyID, err := parseID(in.ReplyTo)
		if err != nil {
			return nil, err
		}
		msg.ReplyTo = &replyID
	}
	if _, err := s.messages.Insert(ctx, msg); err != nil {
		return nil, err
	}

	last := &model.LastMessage{
		MessageID: msg.ID,
		Content:   previewContent(msg),
		SenderID:  senderID,
		CreatedAt: msg.CreatedAt,
	}
	participantIDs := Map(conv.Participants, func(p model.Participant) primitive.ObjectID { return p.UserID })
	if err := s.conversations.SetLastMessage(ctx, conv.ID, last, senderID, participantIDs); err != nil {
		s.logger.Warn("last message update failed", zap.String("conversationId", conv.ID.Hex()), zap.Error(err))
	}

	s.fanOut(ctx, conv.ID, event.EventNewMessage, event.MessagePayload{
		ConversationID: conv.ID.Hex(),
		Message:        *msg,
	})
	return msg, nil
}

func (s *messageService) Edit(ctx context.Context, userID, messageID primitive.ObjectID, content string) (*model.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: content cannot be empty", ErrInvalidInput)
	}

	msg, err := s.loadMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.SenderID != userID {
		return nil, fmt.Errorf("%w: only the sender may edit", ErrForbidden)
	}
	if msg.IsRecalled {
		return nil, fmt.Errorf("%w: recalled messages cannot be edited", ErrConflict)
	}
	if !msg.Editable(time.Now()) {
		return nil, fmt.Errorf("%w: edit window has closed", ErrConflict)
	}

	updated, err := s.messages.SetContent(ctx, messageID, content)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := s.conversations.PatchLastMessage(ctx, msg.ConversationID, messageID, content); err != nil {
		s.logger.Warn("last message patch failed", zap.String("messageId", messageID.Hex()), zap.Error(err))
	}

	s.fanOut(ctx, msg.ConversationID, event.EventMessageUpdated, event.MessagePayload{
		ConversationID: msg.ConversationID.Hex(),
		Message:        *updated,
	})
	return updated, nil
}

func (s *messageService) Recall(ctx context.Context, userID, messageID primitive.ObjectID) error {
	msg, err := s.loadMessage(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.SenderID != userID {
		return fmt.Errorf("%w: only the sender may recall", ErrForbidden)
	}
	if msg.IsRecalled {
		return fmt.Errorf("%w: already recalled", ErrConflict)
	}

	if _, err := s.messages.MarkRecalled(ctx, messageID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	s.recomputeLastMessage(ctx, msg.ConversationID)

	s.fanOut(ctx, msg.ConversationID, event.EventMessageRecalled, event.RecallPayload{
		ConversationID: msg.ConversationID.Hex(),
		MessageID:      messageID.Hex(),
	})
	return nil
}

func (s *messageService) ToggleReaction(ctx context.Context, userID, messageID primitive.ObjectID, emoji string) (*model.Message, error) {
	emoji = strings.TrimSpace(emoji)
	if emoji == "" {
		return nil, fmt.Errorf("%w: emoji required", ErrInvalidInput)
	}

	msg, err := s.loadMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.IsRecalled {
		return nil, fmt.Errorf("%w: recalled messages cannot be reacted to", ErrConflict)
	}
	if _, err := s.memberConversation(ctx, userID, msg.ConversationID); err != nil {
		return nil, err
	}

	updated, err := s.messages.ToggleReaction(ctx, messageID, userID, emoji)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	s.fanOut(ctx, msg.ConversationID, event.EventMessageUpdated, event.MessagePayload{
		ConversationID: msg.ConversationID.Hex(),
		Message:        *updated,
	})
	return updated, nil
}

func (s *messageService) Search(ctx context.Context, userID primitive.ObjectID, text string, params db.PaginationParams) ([]model.Message, int64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return []model.Message{}, 0, nil
	}
	convIDs, err := s.conversations.IDsForUser(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	if len(convIDs) == 0 {
		return []model.Message{}, 0, nil
	}
	page, err := s.messages.SearchInConversations(ctx, convIDs, text, params)
	if err != nil {
		return nil, 0, err
	}
	return page.Data, page.Total, nil
}

// resolveConversation finds the target conversation for a send: either an
// existing one the sender belongs to, or an implicit direct conversation
// with a friend, created on first message.
func (s *messageService) resolveConversation(ctx context.Context, senderID primitive.ObjectID, in SendMessageInput) (*model.Conversation, error) {
	if in.ConversationID != "" {
		convID, err := parseID(in.ConversationID)
		if err != nil {
			return nil, err
		}
		return s.memberConversation(ctx, senderID, convID)
	}
	if in.RecipientID == "" {
		return nil, fmt.Errorf("%w: conversationId or recipientId required", ErrInvalidInput)
	}

	recipientID, err := parseID(in.RecipientID)
	if err != nil {
		return nil, err
	}
	if recipientID == senderID {
		return nil, fmt.Errorf("%w: cannot message yourself", ErrInvalidInput)
	}
	if _, err := s.friends.FindPair(ctx, senderID, recipientID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, fmt.Errorf("%w: not friends", ErrForbidden)
		}
		return nil, err
	}

	conv, err := s.conversations.FindDirectBetween(ctx, senderID, recipientID)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	now := time.Now()
	conv = &model.Conversation{
		Type: model.ConversationDirect,
		Participants: []model.Participant{
			{UserID: senderID, JoinedAt: now},
			{UserID: recipientID, JoinedAt: now},
		},
	}
	if _, err := s.conversations.Create(ctx, conv); err != nil {
		return nil, err
	}
	if ev, err := event.New(event.EventNewConversation, event.ConversationPayload{Conversation: *conv}); err == nil {
		s.deliverer.Deliver(conv.ParticipantIDs(), ev)
	}
	return conv, nil
}

func (s *messageService) loadMessage(ctx context.Context, messageID primitive.ObjectID) (*model.Message, error) {
	msg, err := s.messages.FindByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return msg, nil
}

func (s *messageService) memberConversation(ctx context.Context, userID, convID primitive.ObjectID) (*model.Conversation, error) {
	conv, err := s.conversations.FindByID(ctx, convID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !conv.HasParticipant(userID) {
		return nil, fmt.Errorf("%w: not a participant", ErrForbidden)
	}
	return conv, nil
}

// recomputeLastMessage resets the conversation preview to the newest message
// that is still visible after a recall.
func (s *messageService) recomputeLastMessage(ctx context.Context, convID primitive.ObjectID) {
	latest, err := s.messages.LatestActive(ctx, convID)
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			s.logger.Warn("latest message lookup failed", zap.String("conversationId", convID.Hex()), zap.Error(err))
			return
		}
		if err := s.conversations.ReplaceLastMessage(ctx, convID, nil); err != nil {
			s.logger.Warn("clear last message failed", zap.String("conversationId", convID.Hex()), zap.Error(err))
		}
		return
	}

	last := &model.LastMessage{
		MessageID: latest.ID,
		Content:   previewContent(latest),
		SenderID:  latest.SenderID,
		CreatedAt: latest.CreatedAt,
	}
	if err := s.conversations.ReplaceLastMessage(ctx, convID, last); err != nil {
		s.logger.Warn("replace last message failed", zap.String("conversationId", convID.Hex()), zap.Error(err))
	}
}

// fanOut reloads the membership right before delivery so late joins and
// leaves between commit and push are respected.
func (s *messageService) fanOut(ctx context.Context, convID primitive.ObjectID, tag string, payload any) {
	conv, err := s.conversations.FindByID(ctx, convID)
	if err != nil {
		s.logger.Warn("recipient resolve failed", zap.String("conversationId", convID.Hex()), zap.Error(err))
		return
	}
	ev, err := event.New(tag, payload)
	if err != nil {
		s.logger.Warn("event encode failed", zap.String("event", tag), zap.Error(err))
		return
	}
	s.deliverer.Deliver(conv.ParticipantIDs(), ev)
}

func previewContent(msg *model.Message) string {
	if msg.Content != "" {
		return msg.Content
	}
	if msg.ImageURL != "" {
		return "[image]"
	}
	return ""
}
