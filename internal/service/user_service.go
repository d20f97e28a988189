package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"Ripple/internal/model"
	"Ripple/internal/repo"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type ProfilePatch struct {
	DisplayName *string `json:"displayName" binding:"omitempty,max=64"`
	Bio         *string `json:"bio" binding:"omitempty,max=280"`
	AvatarURL   *string `json:"avatarUrl" binding:"omitempty,url"`
	Phone       *string `json:"phone" binding:"omitempty,max=20"`
}

// SearchResult pairs a public profile with the caller's relationship to it.
type SearchResult struct {
	model.UserProfile
	Relation string `json:"relation"`
}

type UserService interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*model.User, error)
	GetProfile(ctx context.Context, viewerID, targetID primitive.ObjectID) (*SearchResult, error)
	UpdateProfile(ctx context.Context, userID primitive.ObjectID, patch ProfilePatch) (*model.User, error)
	ChangePassword(ctx context.Context, userID primitive.ObjectID, current, next string) error
	Search(ctx context.Context, viewerID primitive.ObjectID, query string, limit int64) ([]SearchResult, error)
}

type userService struct {
	users    repo.UserRepository
	friends  repo.FriendRepository
	requests repo.FriendRequestRepository
	logger   *zap.Logger
}

func NewUserService(users repo.UserRepository, friends repo.FriendRepository, requests repo.FriendRequestRepository, logger *zap.Logger) UserService {
	return &userService{users: users, friends: friends, requests: requests, logger: logger}
}

func (s *userService) GetByID(ctx context.Context, id primitive.ObjectID) (*model.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *userService) GetProfile(ctx context.Context, viewerID, targetID primitive.ObjectID) (*SearchResult, error) {
	user, err := s.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	relation, err := s.relationTo(ctx, viewerID, targetID)
	if err != nil {
		return nil, err
	}
	return &SearchResult{UserProfile: user.Profile(), Relation: relation}, nil
}

func (s *userService) UpdateProfile(ctx context.Context, userID primitive.ObjectID, patch ProfilePatch) (*model.User, error) {
	set := bson.M{}
	if patch.DisplayName != nil {
		name := strings.TrimSpace(*patch.DisplayName)
		if name == "" {
			return nil, fmt.Errorf("%w: display name cannot be empty", ErrInvalidInput)
		}
		set["display_name"] = name
	}
	if patch.Bio != nil {
		set["bio"] = *patch.Bio
	}
	if patch.AvatarURL != nil {
		set["avatar_url"] = *patch.AvatarURL
	}
	if patch.Phone != nil {
		set["phone"] = *patch.Phone
	}
	if len(set) == 0 {
		return nil, fmt.Errorf("%w: nothing to update", ErrInvalidInput)
	}

	if err := s.users.UpdateProfile(ctx, userID, set); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, userID)
}

func (s *userService) ChangePassword(ctx context.Context, userID primitive.ObjectID, current, next string) error {
	if len(next) < 8 {
		return fmt.Errorf("%w: password too short", ErrInvalidInput)
	}
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.HashPassword), []byte(current)) != nil {
		return fmt.Errorf("%w: current password is wrong", ErrUnauthenticated)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.users.UpdatePassword(ctx, userID, string(hash))
}

func (s *userService) Search(ctx context.Context, viewerID primitive.ObjectID, query string, limit int64) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []SearchResult{}, nil
	}
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	users, err := s.users.Search(ctx, query, viewerID, limit)
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(users))
	for i := range users {
		relation, err := s.relationTo(ctx, viewerID, users[i].ID)
		if err != nil {
			return nil, err
		}
		results = append(results, SearchResult{UserProfile: users[i].Profile(), Relation: relation})
	}
	return results, nil
}

func (s *userService) relationTo(ctx context.Context, viewerID, targetID primitive.ObjectID) (string, error) {
	if viewerID == targetID {
		return model.RelationNone, nil
	}
	if _, err := s.friends.FindPair(ctx, viewerID, targetID); err == nil {
		return model.RelationFriend, nil
	} else if !errors.Is(err, repo.ErrNotFound) {
		return "", err
	}

	req, err := s.requests.FindBetween(ctx, viewerID, targetID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return model.RelationNone, nil
		}
		return "", err
	}
	if req.From == viewerID {
		return model.RelationSent, nil
	}
	return model.RelationReceived, nil
}
