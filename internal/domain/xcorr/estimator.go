package xcorr

import (
	"fmt"
	"log"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"ocular-torsion/internal/domain/entity"
)

// Regime задаёт способ сдвига окна при поиске корреляции.
type Regime string

const (
	// RegimeFull: опорное окно расширено, по нему скользит весь кандидат.
	RegimeFull Regime = "full"
	// RegimeSubset: по кандидату скользит узкое опорное окно.
	RegimeSubset Regime = "subset"
)

// RegimeOf выбирает режим по ширине изображений.
func RegimeOf(candidate, reference mat.Matrix) Regime {
	_, cc := candidate.Dims()
	_, rc := reference.Dims()
	if rc > cc {
		return RegimeFull
	}
	return RegimeSubset
}

// Estimator оценивает поворот кандидата относительно опорного окна.
type Estimator struct {
	Logger *log.Logger
}

// NewEstimator создаёт оценщик со стандартным логгером.
func NewEstimator() *Estimator {
	return &Estimator{Logger: log.Default()}
}

// Estimate возвращает поворот в градусах.
//
// start указывает столбец, соответствующий нулевому повороту. В режиме full он
// вычисляется по разнице ширин и переданное значение игнорируется.
func (e *Estimator) Estimate(candidate, reference *mat.Dense, start int, cfg entity.CorrelationConfig) (float64, error) {
	if err := cfg.Validate(); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidParameter, err)
	}

	rows, cc := candidate.Dims()
	refRows, rc := reference.Dims()
	if rows != refRows {
		return 0, fmt.Errorf("%w: candidate has %d rows, reference %d", ErrLengthMismatch, rows, refRows)
	}
	maxShift := int(cfg.MaxAngle / cfg.UpsampleFactor())
	regime := RegimeOf(candidate, reference)

	var window int
	switch regime {
	case RegimeFull:
		window = cc
		shifts := rc - cc
		start = shifts / 2
		if maxShift != start {
			e.logf("WARNING: 2 * max angle (%d) does not match reference extension (%d), using %d", 2*maxShift, shifts, start)
			maxShift = start
		}
	default:
		if start < maxShift {
			return 0, fmt.Errorf("%w: start %d is closer than max angle %d", ErrInvalidParameter, start, maxShift)
		}
		window = rc
		if need := start + maxShift - 1 + window; need > cc {
			return 0, fmt.Errorf("%w: candidate has %d columns, search needs %d", ErrLengthMismatch, cc, need)
		}
	}

	lb := start - maxShift
	ub := start + maxShift
	corrs := make([]float64, 0, ub-lb)
	for j := lb; j < ub; j++ {
		var a, b mat.Matrix
		if regime == RegimeFull {
			a, b = candidate, reference.Slice(0, rows, j, j+window)
		} else {
			a, b = candidate.Slice(0, rows, j, j+window), reference
		}
		c, err := Corr2Coeff(a, b)
		if err != nil {
			return 0, err
		}
		corrs = append(corrs, c)
	}

	x, y, err := ReducedCorr(corrs, cfg.Threshold, 0, len(corrs), lb)
	if err != nil {
		return 0, err
	}

	var deg float64
	switch cfg.Mode {
	case entity.ModeUpsample:
		deg = UpsamplePeak(x, y, start, cfg.Resolution)
	default:
		deg, err = InterpPeak(x, y, start, cfg.Resolution)
		if err != nil {
			return 0, err
		}
	}

	if regime == RegimeFull {
		deg = -deg
	}
	return deg, nil
}

func (e *Estimator) logf(format string, args ...any) {
	if e.Logger == nil {
		log.Printf(format, args...)
		return
	}
	e.Logger.Printf(format, args...)
}

// InterpPeak интерполирует коэффициенты квадратичным сплайном на сетке с
// шагом resolution и возвращает положение максимума относительно start.
func InterpPeak(x []int, y []float64, start int, resolution float64) (float64, error) {
	if len(y) <= 3 {
		return 0, fmt.Errorf("%w: only %d points", ErrLackingInterpPoints, len(y))
	}

	xs := make([]float64, len(x))
	for i, v := range x {
		xs[i] = float64(v)
	}
	s, err := newQuadSpline(xs, y)
	if err != nil {
		return 0, err
	}

	x0, x1 := xs[0], xs[len(xs)-1]
	n := int(math.Ceil((x1 - x0) / resolution))
	fine := make([]float64, n)
	for i := range fine {
		fine[i] = s.At(x0 + float64(i)*resolution)
	}
	best := floats.MaxIdx(fine)
	return x0 + float64(best)*resolution - float64(start), nil
}

// UpsamplePeak возвращает (позиция максимума - start) * resolution.
func UpsamplePeak(x []int, y []float64, start int, resolution float64) float64 {
	best := floats.MaxIdx(y)
	return float64(x[best]-start) * resolution
}
