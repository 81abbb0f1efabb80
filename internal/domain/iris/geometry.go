package iris

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"ocular-torsion/internal/domain/entity"
)

// ErrCalibration — по выборке невозможно оценить радиус глаза.
var ErrCalibration = errors.New("eye radius calibration failed")

// LateralAngle возвращает угол поворота глаза в градусах по отношению осей зрачка.
// Базовый угол acos(ratio) поправлен эмпирическим полиномом a·φ⁴ + b·φ².
func LateralAngle(ratio float64, g entity.GeometryConstants) float64 {
	ratio = math.Max(-1, math.Min(1, ratio))
	phi := math.Acos(ratio) * degPerRad
	phi2 := phi * phi
	return phi + g.AngleA*phi2*phi2 + g.AngleB*phi2
}

// EyeRadius оценивает радиус глазного яблока по смещению зрачка и его эллиптичности.
func EyeRadius(pupil, ref entity.Pupil, g entity.GeometryConstants) (float64, error) {
	dRow, dCol := pupil.Displacement(ref)
	d := math.Hypot(dRow, dCol)
	s := math.Sin(LateralAngle(pupil.AxisRatio(), g) / degPerRad)
	if d == 0 || s <= 0 {
		return 0, fmt.Errorf("%w: displacement %.2f, lateral sine %.4f", entity.ErrGeometryDomain, d, s)
	}
	return d / s, nil
}

// CalibrateEyeRadius оценивает радиус глаза линейной регрессией смещения
// зрачка на синус бокового угла (прямая через начало координат).
func CalibrateEyeRadius(ref entity.Pupil, samples []entity.Pupil, g entity.GeometryConstants) (float64, error) {
	xs := make([]float64, 0, len(samples))
	ys := make([]float64, 0, len(samples))
	for _, p := range samples {
		dRow, dCol := p.Displacement(ref)
		s := math.Sin(LateralAngle(p.AxisRatio(), g) / degPerRad)
		if s <= 0 {
			continue
		}
		xs = append(xs, s)
		ys = append(ys, math.Hypot(dRow, dCol))
	}
	if len(xs) < 2 {
		return 0, fmt.Errorf("%w: need at least 2 off-axis samples, got %d", ErrCalibration, len(xs))
	}

	_, beta := stat.LinearRegression(xs, ys, nil, true)
	if beta <= 0 || math.IsNaN(beta) {
		return 0, fmt.Errorf("%w: slope %.3f", ErrCalibration, beta)
	}
	return beta, nil
}
