package entity

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ThetaWindow — угловой диапазон в градусах [Lo, Hi).
type ThetaWindow struct {
	Lo float64
	Hi float64
}

// Span возвращает ширину окна в градусах.
func (w ThetaWindow) Span() float64 {
	return w.Hi - w.Lo
}

// Around возвращает окно ±half вокруг угла theta.
func Around(theta, half float64) ThetaWindow {
	return ThetaWindow{Lo: theta - half, Hi: theta + half}
}

// FullTurn задаёт окно полного оборота для режима full.
var FullTurn = ThetaWindow{Lo: 0, Hi: 360}

// PolarImage — развёртка радужки: строки соответствуют радиусу, столбцы — углу.
type PolarImage struct {
	Data             *mat.Dense
	MinRadius        float64
	MaxRadius        float64
	Window           ThetaWindow
	ThetaResolution  float64
	RadiusResolution float64
}

// Dims возвращает количество строк (радиус) и столбцов (угол).
func (p *PolarImage) Dims() (rows, cols int) {
	return p.Data.Dims()
}

// Clone делает глубокую копию изображения.
func (p *PolarImage) Clone() *PolarImage {
	cp := *p
	cp.Data = mat.DenseCopyOf(p.Data)
	return &cp
}

// Mean возвращает среднюю интенсивность по всему изображению.
func (p *PolarImage) Mean() float64 {
	rows, cols := p.Dims()
	if rows == 0 || cols == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < rows; i++ {
		sum += floats.Sum(p.Data.RawRowView(i))
	}
	return sum / float64(rows*cols)
}

// ColumnOf переводит угол в индекс столбца.
// Для окна в полный оборот отрицательные углы заворачиваются на 360°.
func (p *PolarImage) ColumnOf(theta float64) int {
	col := int(math.Trunc((theta - p.Window.Lo) / p.ThetaResolution))
	if col < 0 && p.Window.Span() >= 360 {
		col += int(360 / p.ThetaResolution)
	}
	return col
}

// Columns возвращает копию столбцов [from, to) с соответствующим окном.
func (p *PolarImage) Columns(from, to int) *PolarImage {
	rows, _ := p.Dims()
	cp := *p
	cp.Data = mat.DenseCopyOf(p.Data.Slice(0, rows, from, to))
	cp.Window = ThetaWindow{
		Lo: p.Window.Lo + float64(from)*p.ThetaResolution,
		Hi: p.Window.Lo + float64(to)*p.ThetaResolution,
	}
	return &cp
}

// ColumnSums возвращает сумму интенсивности по радиусу для каждого угла.
func (p *PolarImage) ColumnSums() []float64 {
	rows, cols := p.Dims()
	sums := make([]float64, cols)
	for i := 0; i < rows; i++ {
		floats.Add(sums, p.Data.RawRowView(i))
	}
	return sums
}

// OcclusionBounds описывает угловые сектора, закрытые верхним и нижним веком.
// Вычисляются один раз на опорном кадре и не меняются.
type OcclusionBounds struct {
	Upper ThetaWindow
	Lower ThetaWindow
}
