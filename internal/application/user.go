package app

import (
	"context"

	"ocular-torsion/internal/domain/entity"
	"ocular-torsion/internal/domain/port"
)

type UserService struct {
	repo port.UserRepository
}

func NewUserService(repo port.UserRepository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) Get(ctx context.Context, userID, chatID int64) (*entity.User, error) {
	return s.repo.Get(ctx, userID, chatID)
}

func (s *UserService) SetState(ctx context.Context, userID, chatID int64, state entity.UserState) (*entity.User, error) {
	user, err := s.repo.Get(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateState(ctx, user.ID, state); err != nil {
		return nil, err
	}
	user.SetState(state)

	return user, nil
}

// StartProcessing занимает пользователя под анализ, если он свободен.
func (s *UserService) StartProcessing(ctx context.Context, userID, chatID int64) (*entity.User, bool, error) {
	return s.repo.TryBegin(ctx, userID, chatID)
}

// BeginAnalysis переводит пользователя в ожидание видео.
func (s *UserService) BeginAnalysis(ctx context.Context, userID, chatID int64) (*entity.User, error) {
	return s.SetState(ctx, userID, chatID, entity.StateAwaitingVideo)
}

func (s *UserService) Cancel(ctx context.Context, userID, chatID int64) (*entity.User, error) {
	return s.SetState(ctx, userID, chatID, entity.StateMainMenu)
}

// Finish возвращает пользователя в меню и запоминает ID результата.
func (s *UserService) Finish(ctx context.Context, userID, chatID int64, resultID string) (*entity.User, error) {
	user, err := s.repo.Get(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}

	user.SetState(entity.StateMainMenu)
	user.LastResultID = resultID
	if err := s.repo.Save(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}
