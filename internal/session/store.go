// Package session keeps refresh-token sessions in Redis. Each session is a
// single TTL key, so expiry needs no sweeper and revocation is one delete.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "session:"

var ErrNotFound = errors.New("session not found")

// Store maps refresh tokens to user ids with a sliding lifetime.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

// Create mints a fresh refresh token for the user and stores it with the
// configured TTL.
func (s *Store) Create(ctx context.Context, userID string) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	token := hex.EncodeToString(buf)

	if err := s.rdb.Set(ctx, keyPrefix+token, userID, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return token, nil
}

// Resolve returns the user a refresh token belongs to and renews its TTL.
func (s *Store) Resolve(ctx context.Context, token string) (string, error) {
	userID, err := s.rdb.GetEx(ctx, keyPrefix+token, s.ttl).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("resolve session: %w", err)
	}
	return userID, nil
}

// Delete revokes a refresh token. Deleting an unknown token is a no-op.
func (s *Store) Delete(ctx context.Context, token string) error {
	if err := s.rdb.Del(ctx, keyPrefix+token).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
