package service

import (
	"context"
	"errors"

	"Ripple/internal/db"
	"Ripple/internal/event"
	"Ripple/internal/model"
	"Ripple/internal/repo"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// NotificationPage bundles a page of notifications with the total unread
// count, which clients show as a badge.
type NotificationPage struct {
	Notifications []model.Notification `json:"notifications"`
	Total         int64                `json:"total"`
	UnreadCount   int64                `json:"unreadCount"`
}

type NotificationService interface {
	List(ctx context.Context, userID primitive.ObjectID, unreadOnly bool, params db.PaginationParams) (*NotificationPage, error)
	SetRead(ctx context.Context, userID, notificationID primitive.ObjectID, read bool) error
	MarkAllRead(ctx context.Context, userID primitive.ObjectID) error
	Delete(ctx context.Context, userID, notificationID primitive.ObjectID) error
	Create(ctx context.Context, n *model.Notification) error
}

type notificationService struct {
	notifications repo.NotificationRepository
	deliverer     Deliverer
	logger        *zap.Logger
}

func NewNotificationService(notifications repo.NotificationRepository, deliverer Deliverer, logger *zap.Logger) NotificationService {
	return &notificationService{notifications: notifications, deliverer: deliverer, logger: logger}
}

func (s *notificationService) List(ctx context.Context, userID primitive.ObjectID, unreadOnly bool, params db.PaginationParams) (*NotificationPage, error) {
	page, err := s.notifications.ListForUser(ctx, userID, unreadOnly, params)
	if err != nil {
		return nil, err
	}
	unread, err := s.notifications.UnreadCount(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &NotificationPage{
		Notifications: page.Data,
		Total:         page.Total,
		UnreadCount:   unread,
	}, nil
}

func (s *notificationService) SetRead(ctx context.Context, userID, notificationID primitive.ObjectID, read bool) error {
	if err := s.notifications.SetRead(ctx, notificationID, userID, read); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID primitive.ObjectID) error {
	return s.notifications.SetAllRead(ctx, userID)
}

func (s *notificationService) Delete(ctx context.Context, userID, notificationID primitive.ObjectID) error {
	if err := s.notifications.Delete(ctx, notificationID, userID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// Create persists a notification and pushes it to its target. Used by other
// services; the push is best effort.
func (s *notificationService) Create(ctx context.Context, n *model.Notification) error {
	if _, err := s.notifications.Insert(ctx, n); err != nil {
		return err
	}
	ev, err := event.New(event.EventNotification, n)
	if err != nil {
		s.logger.Warn("notification encode failed", zap.Error(err))
		return nil
	}
	s.deliverer.Deliver([]string{n.UserID.Hex()}, ev)
	return nil
}
