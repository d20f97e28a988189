package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"Ripple/internal/event"
	"Ripple/internal/model"
	"Ripple/internal/repo"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ConversationView is a conversation hydrated for one viewer: participant
// profiles attached and the viewer's own unread counter extracted.
type ConversationView struct {
	model.Conversation
	Members     []model.UserProfile `json:"members"`
	UnreadCount int64               `json:"unreadCount"`
}

type CreateGroupInput struct {
	Name      string   `json:"name" binding:"required,max=64"`
	MemberIDs []string `json:"memberIds" binding:"required,min=2"`
	AvatarURL string   `json:"avatarUrl"`
}

type ConversationService interface {
	List(ctx context.Context, userID primitive.ObjectID, query repo.ConversationQuery) ([]ConversationView, int64, error)
	Get(ctx context.Context, userID, convID primitive.ObjectID) (*ConversationView, error)
	GetOrCreateDirect(ctx context.Context, userID primitive.ObjectID, otherHex string) (*ConversationView, error)
	CreateGroup(ctx context.Context, creatorID primitive.ObjectID, in CreateGroupInput) (*ConversationView, error)
	RenameGroup(ctx context.Context, userID, convID primitive.ObjectID, name string) error
	AddMembers(ctx context.Context, userID, convID primitive.ObjectID, memberHexIDs []string) error
	RemoveMember(ctx context.Context, userID, convID primitive.ObjectID, memberHex string) error
	MarkRead(ctx context.Context, userID, convID primitive.ObjectID) error
	DeleteOrLeave(ctx context.Context, userID, convID primitive.ObjectID) error
}

type conversationService struct {
	conversations repo.ConversationRepository
	messages      repo.MessageRepository
	users         repo.UserRepository
	friends       repo.FriendRepository
	notifications repo.NotificationRepository
	deliverer     Deliverer
	logger        *zap.Logger
}

func NewConversationService(
	conversations repo.ConversationRepository,
	messages repo.MessageRepository,
	users repo.UserRepository,
	friends repo.FriendRepository,
	notifications repo.NotificationRepository,
	deliverer Deliverer,
	logger *zap.Logger,
) ConversationService {
	return &conversationService{
		conversations: conversations,
		messages:      messages,
		users:         users,
		friends:       friends,
		notifications: notifications,
		deliverer:     deliverer,
		logger:        logger,
	}
}

func (s *conversationService) List(ctx context.Context, userID primitive.ObjectID, query repo.ConversationQuery) ([]ConversationView, int64, error) {
	page, err := s.conversations.ListForUser(ctx, userID, query)
	if err != nil {
		return nil, 0, err
	}
	views := make([]ConversationView, 0, len(page.Data))
	for i := range page.Data {
		view, err := s.hydrate(ctx, &page.Data[i], userID)
		if err != nil {
			return nil, 0, err
		}
		views = append(views, *view)
	}
	return views, page.Total, nil
}

func (s *conversationService) Get(ctx context.Context, userID, convID primitive.ObjectID) (*ConversationView, error) {
	conv, err := s.loadMember(ctx, userID, convID)
	if err != nil {
		return nil, err
	}
	return s.hydrate(ctx, conv, userID)
}

func (s *conversationService) GetOrCreateDirect(ctx context.Context, userID primitive.ObjectID, otherHex string) (*ConversationView, error) {
	otherID, err := parseID(otherHex)
	if err != nil {
		return nil, err
	}
	if otherID == userID {
		return nil, fmt.Errorf("%w: cannot open a conversation with yourself", ErrInvalidInput)
	}
	if _, err := s.friends.FindPair(ctx, userID, otherID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, fmt.Errorf("%w: not friends", ErrForbidden)
		}
		return nil, err
	}

	conv, err := s.conversations.FindDirectBetween(ctx, userID, otherID)
	if err == nil {
		return s.hydrate(ctx, conv, userID)
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	now := time.Now()
	conv = &model.Conversation{
		Type: model.ConversationDirect,
		Participants: []model.Participant{
			{UserID: userID, JoinedAt: now},
			{UserID: otherID, JoinedAt: now},
		},
	}
	if _, err := s.conversations.Create(ctx, conv); err != nil {
		return nil, err
	}
	s.pushConversation(conv)
	return s.hydrate(ctx, conv, userID)
}

func (s *conversationService) CreateGroup(ctx context.Context, creatorID primitive.ObjectID, in CreateGroupInput) (*ConversationView, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: group name cannot be empty", ErrInvalidInput)
	}

	seen := map[primitive.ObjectID]bool{creatorID: true}
	members := []primitive.ObjectID{creatorID}
	for _, hex := range in.MemberIDs {
		id, err := parseID(hex)
		if err != nil {
			return nil, err
		}
		if seen[id] {
			continue
		}
		if _, err := s.friends.FindPair(ctx, creatorID, id); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return nil, fmt.Errorf("%w: can only invite friends", ErrForbidden)
			}
			return nil, err
		}
		seen[id] = true
		members = append(members, id)
	}
	if len(members) < 3 {
		return nil, fmt.Errorf("%w: a group needs at least two invited friends", ErrInvalidInput)
	}

	now := time.Now()
	participants := Map(members, func(id primitive.ObjectID) model.Participant {
		return model.Participant{UserID: id, JoinedAt: now}
	})
	conv := &model.Conversation{
		Type:         model.ConversationGroup,
		Participants: participants,
		Group: &model.GroupInfo{
			Name:      name,
			CreatedBy: creatorID,
			AvatarURL: in.AvatarURL,
		},
	}
	if _, err := s.conversations.Create(ctx, conv); err != nil {
		return nil, err
	}

	s.pushConversation(conv)
	for _, id := range members[1:] {
		s.notifyInvite(ctx, id, creatorID, conv)
	}
	return s.hydrate(ctx, conv, creatorID)
}

func (s *conversationService) RenameGroup(ctx context.Context, userID, convID primitive.ObjectID, name string) error {
	conv, err := s.loadMember(ctx, userID, convID)
	if err != nil {
		return err
	}
	if conv.Type != model.ConversationGroup {
		return fmt.Errorf("%w: direct conversations have no name", ErrInvalidInput)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: group name cannot be empty", ErrInvalidInput)
	}
	return s.conversations.UpdateGroupInfo(ctx, convID, bson.M{"group.name": name})
}

func (s *conversationService) AddMembers(ctx context.Context, userID, convID primitive.ObjectID, memberHexIDs []string) error {
	conv, err := s.loadMember(ctx, userID, convID)
	if err != nil {
		return err
	}
	if conv.Type != model.ConversationGroup {
		return fmt.Errorf("%w: cannot add members to a direct conversation", ErrInvalidInput)
	}

	var added []primitive.ObjectID
	for _, hex := range memberHexIDs {
		id, err := parseID(hex)
		if err != nil {
			return err
		}
		if conv.HasParticipant(id) {
			continue
		}
		added = append(added, id)
	}
	if len(added) == 0 {
		return nil
	}
	if err := s.conversations.AddParticipants(ctx, convID, added); err != nil {
		return err
	}

	fresh, err := s.conversations.FindByID(ctx, convID)
	if err != nil {
		s.logger.Warn("reload after add members failed", zap.Error(err))
		return nil
	}
	s.pushConversation(fresh)
	for _, id := range added {
		s.notifyInvite(ctx, id, userID, fresh)
	}
	return nil
}

func (s *conversationService) RemoveMember(ctx context.Context, userID, convID primitive.ObjectID, memberHex string) error {
	conv, err := s.loadMember(ctx, userID, convID)
	if err != nil {
		return err
	}
	if conv.Type != model.ConversationGroup {
		return fmt.Errorf("%w: cannot remove members from a direct conversation", ErrInvalidInput)
	}
	memberID, err := parseID(memberHex)
	if err != nil {
		return err
	}
	if conv.Group != nil && conv.Group.CreatedBy != userID {
		return fmt.Errorf("%w: only the group creator may remove members", ErrForbidden)
	}
	if !conv.HasParticipant(memberID) {
		return ErrNotFound
	}
	return s.conversations.RemoveParticipant(ctx, convID, memberID)
}

func (s *conversationService) MarkRead(ctx context.Context, userID, convID primitive.ObjectID) error {
	if _, err := s.loadMember(ctx, userID, convID); err != nil {
		return err
	}
	return s.conversations.MarkRead(ctx, convID, userID)
}

// DeleteOrLeave removes a direct conversation outright, or takes the caller
// out of a group, dissolving the group once nobody is left.
func (s *conversationService) DeleteOrLeave(ctx context.Context, userID, convID primitive.ObjectID) error {
	conv, err := s.loadMember(ctx, userID, convID)
	if err != nil {
		return err
	}

	if conv.Type == model.ConversationDirect {
		return s.dissolve(ctx, convID)
	}

	if err := s.conversations.RemoveParticipant(ctx, convID, userID); err != nil {
		return err
	}
	if len(conv.Participants) <= 1 {
		return s.dissolve(ctx, convID)
	}
	return nil
}

func (s *conversationService) dissolve(ctx context.Context, convID primitive.ObjectID) error {
	if err := s.messages.DeleteByConversation(ctx, convID); err != nil {
		return err
	}
	if err := s.conversations.Delete(ctx, convID); err != nil && !errors.Is(err, repo.ErrNotFound) {
		return err
	}
	return nil
}

func (s *conversationService) loadMember(ctx context.Context, userID, convID primitive.ObjectID) (*model.Conversation, error) {
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

func (s *conversationService) hydrate(ctx context.Context, conv *model.Conversation, viewerID primitive.ObjectID) (*ConversationView, error) {
	members := make([]model.UserProfile, 0, len(conv.Participants))
	for _, p := range conv.Participants {
		u, err := s.users.FindByID(ctx, p.UserID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				continue
			}
			return nil, err
		}
		members = append(members, u.Profile())
	}
	return &ConversationView{
		Conversation: *conv,
		Members:      members,
		UnreadCount:  conv.UnreadFor(viewerID),
	}, nil
}

func (s *conversationService) pushConversation(conv *model.Conversation) {
	ev, err := event.New(event.EventNewConversation, event.ConversationPayload{Conversation: *conv})
	if err != nil {
		s.logger.Warn("conversation event encode failed", zap.Error(err))
		return
	}
	s.deliverer.Deliver(conv.ParticipantIDs(), ev)
}

func (s *conversationService) notifyInvite(ctx context.Context, userID, byID primitive.ObjectID, conv *model.Conversation) {
	name := ""
	if conv.Group != nil {
		name = conv.Group.Name
	}
	n := &model.Notification{
		UserID:      userID,
		Type:        model.NotificationGroupInvite,
		Title:       "Added to a group",
		Content:     name,
		RelatedID:   &conv.ID,
		RelatedUser: &byID,
	}
	if _, err := s.notifications.Insert(ctx, n); err != nil {
		s.logger.Warn("invite notification insert failed", zap.Error(err))
		return
	}
	if ev, err := event.New(event.EventNotification, n); err == nil {
		s.deliverer.Deliver([]string{userID.Hex()}, ev)
	}
}
