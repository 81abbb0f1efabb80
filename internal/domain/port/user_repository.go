package port

import (
	"context"

	"ocular-torsion/internal/domain/entity"
)

// UserRepository хранит диалоговое состояние пользователей бота.
// Реализация отдаёт копии: фоновый анализ и обработчик сообщений
// не должны делить один *entity.User.
type UserRepository interface {
	// Get возвращает пользователя, создавая нового при первом обращении
	Get(ctx context.Context, userID, chatID int64) (*entity.User, error)

	// Save перезаписывает пользователя целиком, вместе с LastResultID
	Save(ctx context.Context, user *entity.User) error

	// UpdateState меняет только состояние; неизвестный пользователь игнорируется
	UpdateState(ctx context.Context, userID int64, state entity.UserState) error

	// TryBegin атомарно переводит пользователя в StateProcessing.
	// Если анализ уже идёт, состояние не меняется и возвращается false.
	TryBegin(ctx context.Context, userID, chatID int64) (*entity.User, bool, error)
}
