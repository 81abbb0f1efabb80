package vision

import (
	"context"
	"fmt"
	"image"
	"math"

	"gonum.org/v1/gonum/mat"

	"ocular-torsion/internal/domain/entity"
	"ocular-torsion/internal/domain/port"
)

// ThresholdDetector ищет зрачок без OpenCV: пиксели не ярче порога,
// наибольшая 4-связная область, эллипс по центральным моментам.
type ThresholdDetector struct {
	MinAreaRatio float64 // области меньше доли кадра отбрасываются
}

// NewThresholdDetector создаёт детектор с порогом площади по умолчанию.
func NewThresholdDetector() *ThresholdDetector {
	return &ThresholdDetector{MinAreaRatio: 0.0005}
}

// Detect находит зрачок на кадре.
func (d *ThresholdDetector) Detect(ctx context.Context, frame *mat.Dense, threshold float64) (entity.Pupil, error) {
	if err := ctx.Err(); err != nil {
		return entity.Pupil{}, err
	}

	rows, cols := frame.Dims()
	label := make([]int32, rows*cols)
	var best []image.Point
	var queue []image.Point
	next := int32(0)

	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if label[r*cols+c] != 0 || frame.At(r, c) > threshold {
				continue
			}

			next++
			label[r*cols+c] = next
			queue = append(queue[:0], image.Pt(c, r))
			for k := 0; k < len(queue); k++ {
				p := queue[k]
				for _, n := range [4]image.Point{{p.X + 1, p.Y}, {p.X - 1, p.Y}, {p.X, p.Y + 1}, {p.X, p.Y - 1}} {
					if n.X < 0 || n.Y < 0 || n.X >= cols || n.Y >= rows {
						continue
					}
					idx := n.Y*cols + n.X
					if label[idx] != 0 || frame.At(n.Y, n.X) > threshold {
						continue
					}
					label[idx] = next
					queue = append(queue, n)
				}
			}
			if len(queue) > len(best) {
				best = append(best[:0:0], queue...)
			}
		}
	}

	if len(best) == 0 || float64(len(best)) < d.MinAreaRatio*float64(rows*cols) {
		return entity.Pupil{}, entity.ErrNoPupil
	}
	return fitMoments(best, label, rows, cols)
}

// fitMoments оценивает эллипс области по её вторым центральным моментам.
func fitMoments(region []image.Point, label []int32, rows, cols int) (entity.Pupil, error) {
	n := float64(len(region))
	var sr, sc float64
	for _, p := range region {
		sr += float64(p.Y)
		sc += float64(p.X)
	}
	cr, cc := sr/n, sc/n

	var mrr, mcc, mrc float64
	for _, p := range region {
		dr, dc := float64(p.Y)-cr, float64(p.X)-cc
		mrr += dr * dr
		mcc += dc * dc
		mrc += dr * dc
	}
	cov := mat.NewSymDense(2, []float64{mcc / n, mrc / n, mrc / n, mrr / n})

	var eig mat.EigenSym
	if !eig.Factorize(cov, false) {
		return entity.Pupil{}, fmt.Errorf("%w: moment factorization failed", entity.ErrNoPupil)
	}
	values := eig.Values(nil)
	// для сплошного эллипса дисперсия вдоль оси равна (ось/4)²
	minor := 4 * math.Sqrt(math.Max(values[0], 0))
	major := 4 * math.Sqrt(math.Max(values[1], 0))

	id := label[region[0].Y*cols+region[0].X]
	var contour []image.Point
	for _, p := range region {
		if onBoundary(p, id, label, rows, cols) {
			contour = append(contour, p)
		}
	}

	p, err := entity.NewPupil(cr, cc, major, minor, contour)
	if err != nil {
		return entity.Pupil{}, fmt.Errorf("%w: %v", entity.ErrNoPupil, err)
	}
	return p, nil
}

func onBoundary(p image.Point, id int32, label []int32, rows, cols int) bool {
	for _, n := range [4]image.Point{{p.X + 1, p.Y}, {p.X - 1, p.Y}, {p.X, p.Y + 1}, {p.X, p.Y - 1}} {
		if n.X < 0 || n.Y < 0 || n.X >= cols || n.Y >= rows || label[n.Y*cols+n.X] != id {
			return true
		}
	}
	return false
}

var _ port.PupilDetector = (*ThresholdDetector)(nil)
