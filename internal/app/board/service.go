package board

import (
	"context"
	"errors"
	"fmt"

	"backend/internal/app/session"
	"backend/internal/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrNotOwner = errors.New("board does not belong to this user")

type Service interface {
	CreateBoard(ctx context.Context, sessionKey string) (*Board, error)
	GetBoard(ctx context.Context, id string) (*Board, error)
	ListOwnBoards(ctx context.Context, sessionKey string) ([]*Board, error)
	DeleteBoard(ctx context.Context, sessionKey, id string) error
}

type service struct {
	repo       Repository
	sessionSvc session.Service
	eventBus   *utils.EventBus
	logger     *zap.SugaredLogger
}

func NewService(repo Repository, sessionSvc session.Service, eventBus *utils.EventBus, logger *zap.Logger) Service {
	return &service{
		repo:       repo,
		sessionSvc: sessionSvc,
		eventBus:   eventBus,
		logger:     logger.Sugar(),
	}
}

func (s *service) CreateBoard(ctx context.Context, sessionKey string) (*Board, error) {
	user, err := s.sessionSvc.GetUserBySessionKey(ctx, sessionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	b := &Board{
		ID:        uuid.NewString(),
		OwnerID:   user.ID,
		OwnerName: user.Username,
	}
	if err := s.repo.CreateBoard(ctx, b); err != nil {
		return nil, fmt.Errorf("failed to create board: %w", err)
	}

	s.logger.Infow("Board created", "board_id", b.ID, "owner_id", b.OwnerID)
	return b, nil
}

func (s *service) GetBoard(ctx context.Context, id string) (*Board, error) {
	return s.repo.GetBoardWithContent(ctx, id)
}

func (s *service) ListOwnBoards(ctx context.Context, sessionKey string) ([]*Board, error) {
	user, err := s.sessionSvc.GetUserBySessionKey(ctx, sessionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return s.repo.ListBoardsByOwner(ctx, user.ID)
}

func (s *service) DeleteBoard(ctx context.Context, sessionKey, id string) error {
	user, err := s.sessionSvc.GetUserBySessionKey(ctx, sessionKey)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}

	b, err := s.repo.GetBoardWithContent(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return fmt.Errorf("failed to load board: %w", err)
	}
	if b.OwnerID != user.ID {
		return ErrNotOwner
	}

	if err := s.repo.DeleteBoard(ctx, id); err != nil {
		return fmt.Errorf("failed to delete board: %w", err)
	}

	// Let the websocket hub evict live members of the deleted board.
	s.eventBus.Publish("board_deleted", map[string]interface{}{
		"board_id": id,
	})

	s.logger.Infow("Board deleted", "board_id", id, "owner_id", user.ID)
	return nil
}
