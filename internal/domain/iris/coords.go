package iris

import (
	"math"

	"ocular-torsion/internal/domain/entity"
)

const degPerRad = 180 / math.Pi

// PolarCoord переводит точку кадра в полярные координаты относительно центра зрачка.
//
// Угол отсчитывается против часовой стрелки от оси столбцов. Квадранты
// разбираются явно: при Δcol >= 0 угол лежит в [-90, 90], при Δcol < 0 —
// в (90, 180] для верхней полуплоскости и в (180, 270) для нижней.
// Расчёт секторов век опирается именно на это представление.
func PolarCoord(row, col float64, pupil entity.Pupil) (radius, theta float64) {
	dCol := col - pupil.CenterCol
	dRow := -(row - pupil.CenterRow) // строки растут вниз
	radius = math.Hypot(dCol, dRow)
	if radius == 0 {
		return 0, 0
	}

	switch {
	case dCol >= 0:
		theta = math.Asin(dRow/radius) * degPerRad
	case dRow >= 0:
		theta = 180 - math.Asin(dRow/radius)*degPerRad
	default:
		theta = 180 + math.Atan(dRow/dCol)*degPerRad
	}
	return radius, theta
}

// CartesianCoord обращает PolarCoord.
func CartesianCoord(radius, theta float64, pupil entity.Pupil) (row, col float64) {
	rad := theta / degPerRad
	col = pupil.CenterCol + radius*math.Cos(rad)
	row = pupil.CenterRow - radius*math.Sin(rad)
	return row, col
}
