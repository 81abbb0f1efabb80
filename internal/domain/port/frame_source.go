package port

import (
	"context"

	"gonum.org/v1/gonum/mat"
)

// FrameSource интерфейс источника кадров в оттенках серого
type FrameSource interface {
	// Len возвращает число кадров.
	Len() int

	// FPS возвращает частоту кадров.
	FPS() float64

	// Frame возвращает кадр по индексу. Ошибка чтения не восстановима.
	Frame(ctx context.Context, index int) (*mat.Dense, error)

	Close() error
}

// VideoOpener открывает видеофайл как источник кадров
type VideoOpener interface {
	Open(ctx context.Context, path string) (FrameSource, error)
}
