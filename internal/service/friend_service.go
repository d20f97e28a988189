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

// FriendRequestView is a request hydrated with both parties' profiles.
type FriendRequestView struct {
	ID        primitive.ObjectID `json:"id"`
	From      model.UserProfile  `json:"from"`
	To        model.UserProfile  `json:"to"`
	Message   string             `json:"message"`
	CreatedAt time.Time          `json:"createdAt"`
}

type FriendService interface {
	SendRequest(ctx context.Context, fromID primitive.ObjectID, toHex, message string) (*model.FriendRequest, error)
	CancelRequest(ctx context.Context, callerID, requestID primitive.ObjectID) error
	DeclineRequest(ctx context.Context, callerID, requestID primitive.ObjectID) error
	AcceptRequest(ctx context.Context, callerID, requestID primitive.ObjectID) (*model.Friend, error)
	ListSent(ctx context.Context, userID primitive.ObjectID, params db.PaginationParams) ([]FriendRequestView, int64, error)
	ListReceived(ctx context.Context, userID primitive.ObjectID, params db.PaginationParams) ([]FriendRequestView, int64, error)
	ListFriends(ctx context.Context, userID primitive.ObjectID, search string) ([]model.UserProfile, error)
	CheckFriendship(ctx context.Context, userID primitive.ObjectID, otherHex string) (bool, error)
	Unfriend(ctx context.Context, userID primitive.ObjectID, otherHex string) error
}

type friendService struct {
	friends       repo.FriendRepository
	requests      repo.FriendRequestRepository
	users         repo.UserRepository
	conversations repo.ConversationRepository
	notifications repo.NotificationRepository
	deliverer     Deliverer
	logger        *zap.Logger
}

func NewFriendService(
	friends repo.FriendRepository,
	requests repo.FriendRequestRepository,
	users repo.UserRepository,
	conversations repo.ConversationRepository,
	notifications repo.NotificationRepository,
	deliverer Deliverer,
	logger *zap.Logger,
) FriendService {
	return &friendService{
		friends:       friends,
		requests:      requests,
		users:         users,
		conversations: conversations,
		notifications: notifications,
		deliverer:     deliverer,
		logger:        logger,
	}
}

func (s *friendService) SendRequest(ctx context.Context, fromID primitive.ObjectID, toHex, message string) (*model.FriendRequest, error) {
	toID, err := parseID(toHex)
	if err != nil {
		return nil, err
	}
	if toID == fromID {
		return nil, fmt.Errorf("%w: cannot befriend yourself", ErrInvalidInput)
	}

	if _, err := s.users.FindByID(ctx, toID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if _, err := s.friends.FindPair(ctx, fromID, toID); err == nil {
		return nil, fmt.Errorf("%w: already friends", ErrConflict)
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}
	if _, err := s.requests.FindBetween(ctx, fromID, toID); err == nil {
		return nil, fmt.Errorf("%w: a request is already pending", ErrConflict)
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	req := &model.FriendRequest{From: fromID, To: toID, Message: strings.TrimSpace(message)}
	if _, err := s.requests.Create(ctx, req); err != nil {
		return nil, err
	}

	s.notifyUser(ctx, toID, &model.Notification{
		UserID:      toID,
		Type:        model.NotificationFriendRequest,
		Title:       "New friend request",
		Content:     req.Message,
		RelatedID:   &req.ID,
		RelatedUser: &fromID,
	})
	return req, nil
}

func (s *friendService) CancelRequest(ctx context.Context, callerID, requestID primitive.ObjectID) error {
	req, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if req.From != callerID {
		return fmt.Errorf("%w: only the sender may cancel", ErrForbidden)
	}
	if err := s.requests.DeleteByID(ctx, requestID); err != nil {
		return err
	}
	s.pushRequestEvent(event.EventFriendRequestCancelled, requestID, req.To)
	return nil
}

func (s *friendService) DeclineRequest(ctx context.Context, callerID, requestID primitive.ObjectID) error {
	req, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if req.To != callerID {
		return fmt.Errorf("%w: only the recipient may decline", ErrForbidden)
	}
	if err := s.requests.DeleteByID(ctx, requestID); err != nil {
		return err
	}
	s.pushRequestEvent(event.EventFriendRequestDeclined, requestID, req.From)
	return nil
}

func (s *friendService) AcceptRequest(ctx context.Context, callerID, requestID primitive.ObjectID) (*model.Friend, error) {
	req, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.To != callerID {
		return nil, fmt.Errorf("%w: only the recipient may accept", ErrForbidden)
	}

	friend, err := s.friends.Create(ctx, req.From, req.To)
	if err != nil {
		return nil, err
	}
	if err := s.requests.DeleteByID(ctx, requestID); err != nil && !errors.Is(err, repo.ErrNotFound) {
		s.logger.Warn("accepted request cleanup failed", zap.String("requestId", requestID.Hex()), zap.Error(err))
	}

	s.ensureDirectConversation(ctx, req.From, req.To)

	s.pushRequestEvent(event.EventFriendRequestAccepted, requestID, req.From, req.To)
	s.notifyUser(ctx, req.From, &model.Notification{
		UserID:      req.From,
		Type:        model.NotificationFriendAccept,
		Title:       "Friend request accepted",
		RelatedUser: &callerID,
	})
	return friend, nil
}

// ensureDirectConversation opens the direct channel between new friends so
// either side can message immediately. Failure is logged, not surfaced; the
// message path creates the conversation lazily anyway.
func (s *friendService) ensureDirectConversation(ctx context.Context, a, b primitive.ObjectID) {
	if _, err := s.conversations.FindDirectBetween(ctx, a, b); err == nil {
		return
	} else if !errors.Is(err, repo.ErrNotFound) {
		s.logger.Warn("direct conversation lookup failed", zap.Error(err))
		return
	}

	now := time.Now()
	conv := &model.Conversation{
		Type: model.ConversationDirect,
		Participants: []model.Participant{
			{UserID: a, JoinedAt: now},
			{UserID: b, JoinedAt: now},
		},
	}
	if _, err := s.conversations.Create(ctx, conv); err != nil {
		s.logger.Warn("direct conversation create failed", zap.Error(err))
		return
	}
	if ev, err := event.New(event.EventNewConversation, event.ConversationPayload{Conversation: *conv}); err == nil {
		s.deliverer.Deliver(conv.ParticipantIDs(), ev)
	}
}

func (s *friendService) ListSent(ctx context.Context, userID primitive.ObjectID, params db.PaginationParams) ([]FriendRequestView, int64, error) {
	page, err := s.requests.ListSent(ctx, userID, params)
	if err != nil {
		return nil, 0, err
	}
	views, err := s.hydrateRequests(ctx, page.Data)
	return views, page.Total, err
}

func (s *friendService) ListReceived(ctx context.Context, userID primitive.ObjectID, params db.PaginationParams) ([]FriendRequestView, int64, error) {
	page, err := s.requests.ListReceived(ctx, userID, params)
	if err != nil {
		return nil, 0, err
	}
	views, err := s.hydrateRequests(ctx, page.Data)
	return views, page.Total, err
}

func (s *friendService) ListFriends(ctx context.Context, userID primitive.ObjectID, search string) ([]model.UserProfile, error) {
	friends, err := s.friends.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	profiles := make([]model.UserProfile, 0, len(friends))
	for i := range friends {
		other, err := s.users.FindByID(ctx, friends[i].OtherParty(userID))
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				continue
			}
			return nil, err
		}
		profiles = append(profiles, other.Profile())
	}

	if search = strings.TrimSpace(search); search != "" {
		needle := model.NormalizeName(search)
		profiles = Filter(profiles, func(p model.UserProfile) bool {
			return strings.Contains(model.NormalizeName(p.DisplayName), needle) ||
				strings.Contains(p.UserName, needle)
		})
	}
	return profiles, nil
}

func (s *friendService) CheckFriendship(ctx context.Context, userID primitive.ObjectID, otherHex string) (bool, error) {
	otherID, err := parseID(otherHex)
	if err != nil {
		return false, err
	}
	if _, err := s.friends.FindPair(ctx, userID, otherID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *friendService) Unfriend(ctx context.Context, userID primitive.ObjectID, otherHex string) error {
	otherID, err := parseID(otherHex)
	if err != nil {
		return err
	}
	if err := s.friends.DeletePair(ctx, userID, otherID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *friendService) loadRequest(ctx context.Context, requestID primitive.ObjectID) (*model.FriendRequest, error) {
	req, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return req, nil
}

func (s *friendService) hydrateRequests(ctx context.Context, reqs []model.FriendRequest) ([]FriendRequestView, error) {
	views := make([]FriendRequestView, 0, len(reqs))
	for i := range reqs {
		from, err := s.users.FindByID(ctx, reqs[i].From)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				continue
			}
			return nil, err
		}
		to, err := s.users.FindByID(ctx, reqs[i].To)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				continue
			}
			return nil, err
		}
		views = append(views, FriendRequestView{
			ID:        reqs[i].ID,
			From:      from.Profile(),
			To:        to.Profile(),
			Message:   reqs[i].Message,
			CreatedAt: reqs[i].CreatedAt,
		})
	}
	return views, nil
}

// notifyUser persists the notification and pushes it out. Neither step
// failing aborts the mutation that triggered it.
func (s *friendService) notifyUser(ctx context.Context, userID primitive.ObjectID, n *model.Notification) {
	if _, err := s.notifications.Insert(ctx, n); err != nil {
		s.logger.Warn("notification insert failed", zap.String("userId", userID.Hex()), zap.Error(err))
		return
	}
	ev, err := event.New(event.EventNotification, n)
	if err != nil {
		s.logger.Warn("notification encode failed", zap.Error(err))
		return
	}
	s.deliverer.Deliver([]string{userID.Hex()}, ev)
}

func (s *friendService) pushRequestEvent(tag string, requestID primitive.ObjectID, recipients ...primitive.ObjectID) {
	ev, err := event.New(tag, event.FriendRequestPayload{RequestID: requestID.Hex()})
	if err != nil {
		s.logger.Warn("event encode failed", zap.String("event", tag), zap.Error(err))
		return
	}
	ids := Map(recipients, func(id primitive.ObjectID) string { return id.Hex() })
	s.deliverer.Deliver(ids, ev)
}
