package vision

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"ocular-torsion/internal/domain/entity"
	"ocular-torsion/internal/domain/port"
)

// MemorySource отдаёт кадры, уже загруженные в память.
type MemorySource struct {
	frames []*mat.Dense
	fps    float64
}

// NewMemorySource создаёт источник из готовых кадров.
func NewMemorySource(fps float64, frames ...*mat.Dense) *MemorySource {
	return &MemorySource{frames: frames, fps: fps}
}

func (s *MemorySource) Len() int     { return len(s.frames) }
func (s *MemorySource) FPS() float64 { return s.fps }
func (s *MemorySource) Close() error { return nil }

// Frame возвращает кадр без копирования.
func (s *MemorySource) Frame(ctx context.Context, index int) (*mat.Dense, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if index < 0 || index >= len(s.frames) || s.frames[index] == nil {
		return nil, fmt.Errorf("%w: index %d of %d", entity.ErrFrameUnreadable, index, len(s.frames))
	}
	return s.frames[index], nil
}

// MemoryOpener открывает заранее зарегистрированные источники по пути.
type MemoryOpener map[string]port.FrameSource

func (o MemoryOpener) Open(ctx context.Context, path string) (port.FrameSource, error) {
	src, ok := o[path]
	if !ok {
		return nil, fmt.Errorf("video %q is not registered", path)
	}
	return src, nil
}

var (
	_ port.FrameSource = (*MemorySource)(nil)
	_ port.VideoOpener = MemoryOpener(nil)
)
