package xcorr

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Corr2Coeff вычисляет двумерный коэффициент корреляции двух матриц одного
// размера. Если одна из матриц постоянна, коэффициент равен 0.
func Corr2Coeff(a, b mat.Matrix) (float64, error) {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ar != br || ac != bc {
		return 0, fmt.Errorf("%w: %dx%d vs %dx%d", ErrLengthMismatch, ar, ac, br, bc)
	}

	n := float64(ar * ac)
	ma := mat.Sum(a) / n
	mb := mat.Sum(b) / n

	var ab, aa, bb float64
	for i := 0; i < ar; i++ {
		for j := 0; j < ac; j++ {
			da := a.At(i, j) - ma
			db := b.At(i, j) - mb
			ab += da * db
			aa += da * da
			bb += db * db
		}
	}
	if aa == 0 || bb == 0 {
		return 0, nil
	}
	return ab / math.Sqrt(aa*bb), nil
}

// ReducedCorr отбирает коэффициенты corrs[lb:ub], строго большие порога.
// Возвращает их позиции, сдвинутые на offset, и значения.
func ReducedCorr(corrs []float64, threshold float64, lb, ub, offset int) ([]int, []float64, error) {
	if lb < 0 || ub > len(corrs) || lb > ub {
		return nil, nil, fmt.Errorf("%w: bounds [%d, %d) of %d", ErrInvalidParameter, lb, ub, len(corrs))
	}

	var x []int
	var y []float64
	for i := lb; i < ub; i++ {
		if corrs[i] > threshold {
			x = append(x, i+offset)
			y = append(y, corrs[i])
		}
	}
	if len(x) == 0 {
		return nil, nil, fmt.Errorf("%w: threshold %.3f", ErrBelowThreshold, threshold)
	}
	return x, y, nil
}
