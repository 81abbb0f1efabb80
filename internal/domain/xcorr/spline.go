package xcorr

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
)

const splineDegree = 2

// quadSpline: интерполяционный квадратичный B-сплайн.
type quadSpline struct {
	knots  []float64
	coeffs []float64
}

// newQuadSpline строит квадратичный сплайн через точки (x, y).
// Узлы: крайние точки с кратностью 3 и середины отрезков без первой и
// последней, как у условия not-a-knot для чётной степени.
func newQuadSpline(x, y []float64) (*quadSpline, error) {
	n := len(x)
	if n < splineDegree+1 || len(y) != n {
		return nil, fmt.Errorf("%w: %d nodes for %d values", ErrLackingInterpPoints, n, len(y))
	}

	knots := make([]float64, 0, n+splineDegree+1)
	for i := 0; i <= splineDegree; i++ {
		knots = append(knots, x[0])
	}
	for i := 1; i < n-2; i++ {
		knots = append(knots, (x[i]+x[i+1])/2)
	}
	for i := 0; i <= splineDegree; i++ {
		knots = append(knots, x[n-1])
	}

	s := &quadSpline{knots: knots}
	colloc := mat.NewDense(n, n, nil)
	for i, xi := range x {
		span := s.span(xi)
		for k, v := range s.basis(span, xi) {
			colloc.Set(i, span-splineDegree+k, v)
		}
	}

	var c mat.VecDense
	if err := c.SolveVec(colloc, mat.NewVecDense(n, append([]float64(nil), y...))); err != nil {
		return nil, fmt.Errorf("spline collocation: %w", err)
	}
	s.coeffs = c.RawVector().Data
	return s, nil
}

// span возвращает индекс m, для которого knots[m] <= x < knots[m+1].
func (s *quadSpline) span(x float64) int {
	n := len(s.knots) - splineDegree - 1
	if x >= s.knots[n] {
		return n - 1
	}
	if x <= s.knots[splineDegree] {
		return splineDegree
	}
	m := sort.Search(len(s.knots), func(i int) bool { return s.knots[i] > x }) - 1
	return min(max(m, splineDegree), n-1)
}

// basis — ненулевые базисные функции на отрезке span (алгоритм Кокса — де Бура).
func (s *quadSpline) basis(span int, x float64) []float64 {
	var left, right [splineDegree + 1]float64
	out := make([]float64, splineDegree+1)
	out[0] = 1
	for j := 1; j <= splineDegree; j++ {
		left[j] = x - s.knots[span+1-j]
		right[j] = s.knots[span+j] - x
		saved := 0.0
		for r := 0; r < j; r++ {
			tmp := out[r] / (right[r+1] + left[j-r])
			out[r] = saved + right[r+1]*tmp
			saved = left[j-r] * tmp
		}
		out[j] = saved
	}
	return out
}

// At вычисляет значение сплайна в точке x.
func (s *quadSpline) At(x float64) float64 {
	span := s.span(x)
	var v float64
	for k, b := range s.basis(span, x) {
		v += b * s.coeffs[span-splineDegree+k]
	}
	return v
}
