package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"backend/internal/providers/redis"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const cachePrefix = "sessions:user"

type Service interface {
	CreateSessionAndUser(ctx context.Context, username, userAgent string) (*Session, *User, error)
	GetUserBySessionKey(ctx context.Context, sessionKey string) (*User, error)
	EndSession(ctx context.Context, sessionKey string) error
}

type service struct {
	repo   Repository
	redisP *redis.RedisProvider
	logger *zap.SugaredLogger
}

func NewService(repo Repository, redisP *redis.RedisProvider, logger *zap.Logger) Service {
	return &service{
		repo:   repo,
		redisP: redisP,
		logger: logger.Sugar(),
	}
}

func (s *service) CreateSessionAndUser(ctx context.Context, username, userAgent string) (*Session, *User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		username = "Anonymous"
	}
	if utf8.RuneCountInString(username) > 32 {
		return nil, nil, fmt.Errorf("username must be at most 32 characters")
	}

	user := &User{
		ID:       uuid.NewString(),
		Username: username,
	}
	if err := s.repo.CreateUser(user); err != nil {
		return nil, nil, fmt.Errorf("failed to create user: %w", err)
	}

	sessionKey, err := generateSessionKey()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate session key: %w", err)
	}

	session := &Session{
		SessionKey: sessionKey,
		UserAgent:  &userAgent,
		UserID:     user.ID,
		StartedAt:  time.Now().UTC(),
	}
	if err := s.repo.CreateSession(session); err != nil {
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.cacheUser(ctx, sessionKey, user)

	return session, user, nil
}

// GetUserBySessionKey resolves the user behind a session key, consulting the
// redis cache before the database. This is the validate step every websocket
// join goes through.
func (s *service) GetUserBySessionKey(ctx context.Context, sessionKey string) (*User, error) {
	if cached := s.cachedUser(ctx, sessionKey); cached != nil {
		return cached, nil
	}

	session, err := s.repo.GetSessionByKey(sessionKey)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	if session.EndedAt != nil {
		return nil, fmt.Errorf("session has ended")
	}

	user, err := s.repo.GetUserByID(session.UserID)
	if err != nil {
		return nil, fmt.Errorf("user not found: %w", err)
	}

	s.cacheUser(ctx, sessionKey, user)
	return user, nil
}

func (s *service) EndSession(ctx context.Context, sessionKey string) error {
	session, err := s.repo.GetSessionByKey(sessionKey)
	if err != nil {
		return fmt.Errorf("session not found: %w", err)
	}
	if err := s.repo.UpdateSessionEndedAt(session.ID); err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}
	if s.redisP != nil {
		s.redisP.Del(ctx, cacheKey(sessionKey))
	}
	return nil
}

func (s *service) cacheUser(ctx context.Context, sessionKey string, user *User) {
	if s.redisP == nil {
		return
	}
	data, err := json.Marshal(user)
	if err != nil {
		return
	}
	if err := s.redisP.SetWithDefaultTTL(ctx, cacheKey(sessionKey), data, 0).Err(); err != nil {
		s.logger.Debugw("Failed to cache session user", "error", err)
	}
}

func (s *service) cachedUser(ctx context.Context, sessionKey string) *User {
	if s.redisP == nil {
		return nil
	}
	data, err := s.redisP.Get(ctx, cacheKey(sessionKey)).Bytes()
	if err != nil {
		return nil
	}
	var user User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil
	}
	return &user
}

func cacheKey(sessionKey string) string {
	return cachePrefix + ":" + sessionKey
}

func generateSessionKey() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
