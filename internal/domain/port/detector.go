package port

import (
	"context"

	"gonum.org/v1/gonum/mat"

	"ocular-torsion/internal/domain/entity"
)

// PupilDetector интерфейс детектора зрачка
type PupilDetector interface {
	// Detect находит зрачок на кадре пороговым преобразованием.
	// Возвращает entity.ErrNoPupil, если область зрачка не найдена.
	Detect(ctx context.Context, frame *mat.Dense, threshold float64) (entity.Pupil, error)
}

// BlinkDetector интерфейс детектора моргания
type BlinkDetector interface {
	// Blink классифицирует кадр. pupil всегда не nil.
	Blink(ctx context.Context, index int, frame *mat.Dense, pupil *entity.Pupil) (entity.BlinkState, error)
}
