package app

import (
	"context"
	"errors"
	"fmt"
	"log"

	"ocular-torsion/internal/domain/entity"
	"ocular-torsion/internal/domain/port"
)

// PupilService находит зрачок на каждом кадре диапазона.
type PupilService struct {
	detector port.PupilDetector
	logger   *log.Logger
}

// NewPupilService создаёт сервис поиска зрачка.
func NewPupilService(detector port.PupilDetector, logger *log.Logger) *PupilService {
	if logger == nil {
		logger = log.Default()
	}
	return &PupilService{detector: detector, logger: logger}
}

// Locate возвращает зрачки кадров [start, end) и дополнительных кадров extra.
// Кадры без зрачка получают nil.
func (s *PupilService) Locate(ctx context.Context, frames port.FrameSource, start, end int, threshold float64, extra ...int) (map[int]*entity.Pupil, error) {
	if s.detector == nil {
		return nil, errors.New("pupil detector is not configured")
	}

	indices := make([]int, 0, end-start+len(extra))
	for i := start; i < end; i++ {
		indices = append(indices, i)
	}
	for _, i := range extra {
		if i < start || i >= end {
			indices = append(indices, i)
		}
	}

	pupils := make(map[int]*entity.Pupil, len(indices))
	missing := 0
	for _, i := range indices {
		if _, done := pupils[i]; done {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		frame, err := frames.Frame(ctx, i)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}

		p, err := s.detector.Detect(ctx, frame, threshold)
		switch {
		case errors.Is(err, entity.ErrNoPupil):
			pupils[i] = nil
			missing++
		case err != nil:
			return nil, fmt.Errorf("frame %d: %w", i, err)
		default:
			pupils[i] = &p
		}
	}

	if missing > 0 {
		s.logger.Printf("WARNING: no pupil found in %d of %d frames", missing, len(pupils))
	}
	return pupils, nil
}
