package vision

import (
	"context"

	"gonum.org/v1/gonum/mat"

	"ocular-torsion/internal/domain/entity"
	"ocular-torsion/internal/domain/iris"
	"ocular-torsion/internal/domain/port"
)

// StaticBlinks содержит заранее размеченные моргания по индексу кадра.
// Неразмеченные кадры считаются открытыми.
type StaticBlinks map[int]entity.BlinkState

func (b StaticBlinks) Blink(_ context.Context, index int, _ *mat.Dense, _ *entity.Pupil) (entity.BlinkState, error) {
	return b[index], nil
}

// LidBandDetector считает веками полосы фиксированной высоты сверху и
// снизу кадра. Если контур зрачка заходит в полосу, это моргание.
type LidBandDetector struct {
	UpperRows int
	LowerRows int
}

func (d LidBandDetector) Blink(ctx context.Context, _ int, frame *mat.Dense, pupil *entity.Pupil) (entity.BlinkState, error) {
	if err := ctx.Err(); err != nil {
		return entity.BlinkUnknown, err
	}
	if len(pupil.Contour) == 0 {
		return entity.BlinkUnknown, nil
	}
	return iris.PupilObstructed(d.mask(frame.Dims()), pupil.Contour), nil
}

func (d LidBandDetector) mask(rows, cols int) *mat.Dense {
	m := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		if i < d.UpperRows || i >= rows-d.LowerRows {
			continue
		}
		for j := 0; j < cols; j++ {
			m.Set(i, j, 1)
		}
	}
	return m
}

var (
	_ port.BlinkDetector = StaticBlinks(nil)
	_ port.BlinkDetector = LidBandDetector{}
)
