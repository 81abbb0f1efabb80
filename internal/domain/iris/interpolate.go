package iris

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Interpolator возвращает значение кадра в дробной точке (строка, столбец).
// Точки вне кадра дают 0.
type Interpolator func(frame *mat.Dense, row, col float64) float64

// Cubic — кубическая свёртка Keys (a = -0.5).
func Cubic(frame *mat.Dense, row, col float64) float64 {
	rows, cols := frame.Dims()
	if !inside(row, col, rows, cols) {
		return 0
	}

	r0 := int(math.Floor(row))
	c0 := int(math.Floor(col))
	wr := keysWeights(row - float64(r0))
	wc := keysWeights(col - float64(c0))

	var v float64
	for i := 0; i < 4; i++ {
		ri := clamp(r0-1+i, rows)
		var line float64
		for j := 0; j < 4; j++ {
			line += wc[j] * frame.At(ri, clamp(c0-1+j, cols))
		}
		v += wr[i] * line
	}
	return v
}

// Bilinear — билинейная интерполяция.
func Bilinear(frame *mat.Dense, row, col float64) float64 {
	rows, cols := frame.Dims()
	if !inside(row, col, rows, cols) {
		return 0
	}

	r0 := int(math.Floor(row))
	c0 := int(math.Floor(col))
	tr := row - float64(r0)
	tc := col - float64(c0)
	r1 := clamp(r0+1, rows)
	c1 := clamp(c0+1, cols)
	r0 = clamp(r0, rows)
	c0 = clamp(c0, cols)

	top := frame.At(r0, c0)*(1-tc) + frame.At(r0, c1)*tc
	bottom := frame.At(r1, c0)*(1-tc) + frame.At(r1, c1)*tc
	return top*(1-tr) + bottom*tr
}

func keysWeights(t float64) [4]float64 {
	t2 := t * t
	t3 := t2 * t
	return [4]float64{
		-0.5*t3 + t2 - 0.5*t,
		1.5*t3 - 2.5*t2 + 1,
		-1.5*t3 + 2*t2 + 0.5*t,
		0.5*t3 - 0.5*t2,
	}
}

func inside(row, col float64, rows, cols int) bool {
	const eps = 1e-9
	return row >= -eps && col >= -eps &&
		row <= float64(rows-1)+eps && col <= float64(cols-1)+eps
}

func clamp(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
