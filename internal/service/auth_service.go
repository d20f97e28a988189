package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"Ripple/internal/mail"
	"Ripple/internal/model"
	"Ripple/internal/repo"
	"Ripple/internal/session"
	"Ripple/internal/token"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	otpLifetime        = 10 * time.Minute
	resetTokenLifetime = 15 * time.Minute
)

type RegisterInput struct {
	UserName    string `json:"userName" binding:"required,min=3,max=32"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	DisplayName string `json:"displayName" binding:"required,max=64"`
}

type LoginInput struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthResult is what a successful login or refresh yields.
type AuthResult struct {
	User         *model.User
	AccessToken  string
	RefreshToken string
}

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*model.User, error)
	Login(ctx context.Context, in LoginInput) (*AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*AuthResult, error)
	Logout(ctx context.Context, refreshToken string) error
	ForgotPassword(ctx context.Context, email string) error
	VerifyOTP(ctx context.Context, email, otp string) (string, error)
	ResetPassword(ctx context.Context, resetToken, newPassword string) error
}

type authService struct {
	users    repo.UserRepository
	tokens   *token.Manager
	sessions *session.Store
	mailer   mail.Mailer
	logger   *zap.Logger
}

func NewAuthService(users repo.UserRepository, tokens *token.Manager, sessions *session.Store, mailer mail.Mailer, logger *zap.Logger) AuthService {
	return &authService{users: users, tokens: tokens, sessions: sessions, mailer: mailer, logger: logger}
}

func (s *authService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	exists, err := s.users.ExistsByNameOrEmail(ctx, in.UserName, in.Email)
	if err != nil {
		return nil, fmt.Errorf("check existing account: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: username or email already taken", ErrConflict)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		UserName:     in.UserName,
		Email:        in.Email,
		HashPassword: string(hash),
		DisplayName:  strings.TrimSpace(in.DisplayName),
	}
	if _, err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("account registered", zap.String("userId", user.ID.Hex()), zap.String("userName", user.UserName))
	return user, nil
}

func (s *authService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	user, err := s.users.FindByLogin(ctx, in.Login)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, fmt.Errorf("%w: bad credentials", ErrUnauthenticated)
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.HashPassword), []byte(in.Password)) != nil {
		return nil, fmt.Errorf("%w: bad credentials", ErrUnauthenticated)
	}
	return s.issueTokens(ctx, user)
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	userID, err := s.sessions.Resolve(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, fmt.Errorf("%w: refresh session expired", ErrUnauthenticated)
		}
		return nil, err
	}

	id, err := parseID(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed session", ErrUnauthenticated)
	}
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, fmt.Errorf("%w: account gone", ErrUnauthenticated)
		}
		return nil, err
	}

	access, err := s.tokens.Issue(user.ID.Hex())
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, AccessToken: access, RefreshToken: refreshToken}, nil
}

func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.sessions.Delete(ctx, refreshToken)
}

// ForgotPassword always succeeds from the caller's point of view so the
// endpoint does not reveal which addresses have accounts.
func (s *authService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil
		}
		return err
	}

	otp, err := generateOTP()
	if err != nil {
		return fmt.Errorf("generate otp: %w", err)
	}
	if err := s.users.SetResetOTP(ctx, user.ID, otp, time.Now().Add(otpLifetime)); err != nil {
		return fmt.Errorf("store otp: %w", err)
	}
	if err := s.mailer.SendOTP(user.Email, otp); err != nil {
		s.logger.Warn("otp mail failed", zap.String("email", user.Email), zap.Error(err))
	}
	return nil
}

func (s *authService) VerifyOTP(ctx context.Context, email, otp string) (string, error) {
	user, err := s.users.FindByOTP(ctx, email, otp)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return "", fmt.Errorf("%w: wrong or expired code", ErrUnauthenticated)
		}
		return "", err
	}

	resetToken, err := generateHexToken()
	if err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	if err := s.users.SetResetToken(ctx, user.ID, resetToken, time.Now().Add(resetTokenLifetime)); err != nil {
		return "", fmt.Errorf("store reset token: %w", err)
	}
	return resetToken, nil
}

func (s *authService) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	if len(newPassword) < 8 {
		return fmt.Errorf("%w: password too short", ErrInvalidInput)
	}
	user, err := s.users.FindByResetToken(ctx, resetToken)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("%w: wrong or expired reset token", ErrUnauthenticated)
		}
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return err
	}
	if err := s.users.ClearReset(ctx, user.ID); err != nil {
		s.logger.Warn("clear reset state failed", zap.String("userId", user.ID.Hex()), zap.Error(err))
	}
	if err := s.mailer.SendResetSuccess(user.Email); err != nil {
		s.logger.Warn("reset confirmation mail failed", zap.String("email", user.Email), zap.Error(err))
	}
	s.logger.Info("password reset", zap.String("userId", user.ID.Hex()))
	return nil
}

func (s *authService) issueTokens(ctx context.Context, user *model.User) (*AuthResult, error) {
	access, err := s.tokens.Issue(user.ID.Hex())
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := s.sessions.Create(ctx, user.ID.Hex())
	if err != nil {
		return nil, fmt.Errorf("create refresh session: %w", err)
	}
	return &AuthResult{User: user, AccessToken: access, RefreshToken: refresh}, nil
}

func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func generateHexToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", buf), nil
}
