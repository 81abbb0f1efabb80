package entity

import (
	"fmt"
	"image"
	"math"
)

// Point задаёт координату в пикселях кадра (строка, столбец).
type Point struct {
	Row float64
	Col float64
}

// Pupil представляет найденный зрачок на одном кадре.
// Создаётся внешним детектором и после этого не изменяется.
type Pupil struct {
	CenterRow float64       // строка центра эллипса
	CenterCol float64       // столбец центра эллипса
	Major     float64       // большая ось эллипса
	Minor     float64       // малая ось эллипса
	Radius    float64       // эффективный радиус, (Major+Minor)/4
	Contour   []image.Point // контур зрачка, X столбец, Y строка
}

// NewPupil создаёт зрачок и вычисляет эффективный радиус.
func NewPupil(centerRow, centerCol, major, minor float64, contour []image.Point) (Pupil, error) {
	if minor > major {
		major, minor = minor, major
	}
	if minor <= 0 || math.IsNaN(major) || math.IsNaN(minor) {
		return Pupil{}, fmt.Errorf("invalid pupil axes %.2fx%.2f", major, minor)
	}

	return Pupil{
		CenterRow: centerRow,
		CenterCol: centerCol,
		Major:     major,
		Minor:     minor,
		Radius:    (major + minor) / 4,
		Contour:   contour,
	}, nil
}

// Center возвращает центр зрачка.
func (p Pupil) Center() Point {
	return Point{Row: p.CenterRow, Col: p.CenterCol}
}

// AxisRatio возвращает отношение малой оси к большой.
// Для кругового зрачка равно 1.
func (p Pupil) AxisRatio() float64 {
	if p.Major == 0 {
		return 1
	}
	return p.Minor / p.Major
}

// Displacement возвращает смещение центра относительно опорного зрачка.
func (p Pupil) Displacement(ref Pupil) (dRow, dCol float64) {
	return p.CenterRow - ref.CenterRow, p.CenterCol - ref.CenterCol
}
