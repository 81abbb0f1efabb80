package port

import (
	"context"

	"ocular-torsion/internal/domain/entity"
)

// ResultRepository интерфейс хранилища результатов анализа
type ResultRepository interface {
	// Save сохраняет результат, присваивая ID, если он пуст
	Save(ctx context.Context, result *entity.TorsionResult) error

	// Load возвращает результат без полярных изображений.
	// Возвращает entity.ErrResultNotFound, если ID неизвестен.
	Load(ctx context.Context, id string) (*entity.TorsionResult, error)
}

// ResultRenderer превращает результат в файл для пользователя (график, таблица)
type ResultRenderer interface {
	Render(ctx context.Context, result *entity.TorsionResult) ([]byte, error)
}
