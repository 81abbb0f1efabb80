package iris

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"ocular-torsion/internal/domain/entity"
)

// InnerRadiusBuffer — отступ от края зрачка до начала развёртки, пиксели.
const InnerRadiusBuffer = 5

// UnwrapOptions задаёт параметры полярной развёртки.
type UnwrapOptions struct {
	Thickness        float64
	Window           entity.ThetaWindow
	ThetaResolution  float64
	RadiusResolution float64

	// ReferencePupil включает геометрическую коррекцию для заметно
	// эллиптичного зрачка. EyeRadius задаёт радиус глазного яблока в пикселях,
	// 0 означает вывести его из отношения осей.
	ReferencePupil *entity.Pupil
	EyeRadius      float64
}

// Unwrapper разворачивает кольцо радужки в прямоугольник угол×радиус.
type Unwrapper struct {
	Geometry entity.GeometryConstants
	Direct   Interpolator // по умолчанию Cubic
	Remap    Interpolator // по умолчанию Bilinear
}

// NewUnwrapper создаёт развёртку с заданными калибровочными константами.
func NewUnwrapper(geometry entity.GeometryConstants) *Unwrapper {
	return &Unwrapper{Geometry: geometry, Direct: Cubic, Remap: Bilinear}
}

// Unwrap строит полярное изображение радужки.
//
// Возвращает entity.ErrNoPupil, если зрачка нет, и entity.ErrGeometryDomain,
// если геометрическая коррекция выходит за область определения.
func (u *Unwrapper) Unwrap(frame *mat.Dense, pupil *entity.Pupil, opts UnwrapOptions) (*entity.PolarImage, error) {
	if pupil == nil {
		return nil, entity.ErrNoPupil
	}
	if opts.RadiusResolution == 0 {
		opts.RadiusResolution = 1
	}
	if opts.ThetaResolution <= 0 || opts.RadiusResolution < 0 {
		return nil, fmt.Errorf("%w: non-positive polar resolution", entity.ErrInvalidSettings)
	}

	minR := pupil.Radius + InnerRadiusBuffer
	maxR := minR + opts.Thickness
	nR := int(math.Round(opts.Thickness / opts.RadiusResolution))
	nT := int(math.Round(opts.Window.Span() / opts.ThetaResolution))
	if nR <= 0 || nT <= 0 {
		return nil, fmt.Errorf("%w: empty polar grid %dx%d", entity.ErrInvalidSettings, nR, nT)
	}

	img := &entity.PolarImage{
		Data:             mat.NewDense(nR, nT, nil),
		MinRadius:        minR,
		MaxRadius:        maxR,
		Window:           opts.Window,
		ThetaResolution:  opts.ThetaResolution,
		RadiusResolution: opts.RadiusResolution,
	}

	ref := opts.ReferencePupil
	if ref == nil || pupil.AxisRatio() >= u.Geometry.AxisRatioThreshold || pupil.Center() == ref.Center() {
		u.direct(frame, pupil, img)
		return img, nil
	}

	if err := u.corrected(frame, pupil, ref, opts.EyeRadius, img); err != nil {
		return nil, err
	}
	return img, nil
}

func (u *Unwrapper) direct(frame *mat.Dense, pupil *entity.Pupil, img *entity.PolarImage) {
	sample := u.Direct
	if sample == nil {
		sample = Cubic
	}

	nR, nT := img.Dims()
	for j := 0; j < nT; j++ {
		sin, cos := math.Sincos((img.Window.Lo + float64(j)*img.ThetaResolution) / degPerRad)
		for i := 0; i < nR; i++ {
			r := img.MinRadius + float64(i)*img.RadiusResolution
			img.Data.Set(i, j, sample(frame, -r*sin+pupil.CenterRow, r*cos+pupil.CenterCol))
		}
	}
}

// corrected проецирует сетку текущего зрачка на сферу глаза и
// выбирает соответствующие точки относительно опорного зрачка.
func (u *Unwrapper) corrected(frame *mat.Dense, pupil, ref *entity.Pupil, eyeRadius float64, img *entity.PolarImage) error {
	sample := u.Remap
	if sample == nil {
		sample = Bilinear
	}

	if eyeRadius <= 0 {
		var err error
		eyeRadius, err = EyeRadius(*pupil, *ref, u.Geometry)
		if err != nil {
			return err
		}
	}

	hMove, vMove := pupil.Displacement(*ref)
	hShrink, err := foreshortening(hMove, eyeRadius)
	if err != nil {
		return err
	}
	vShrink, err := foreshortening(vMove, eyeRadius)
	if err != nil {
		return err
	}

	nR, nT := img.Dims()
	for j := 0; j < nT; j++ {
		sin, cos := math.Sincos((img.Window.Lo + float64(j)*img.ThetaResolution) / degPerRad)
		for i := 0; i < nR; i++ {
			r := img.MinRadius + float64(i)*img.RadiusResolution
			hDist := -r * sin
			vDist := r * cos

			hArc, err := foreshortening(hDist, eyeRadius)
			if err != nil {
				return err
			}
			vArc, err := foreshortening(vDist, eyeRadius)
			if err != nil {
				return err
			}

			row := ref.CenterRow + hMove*hArc + hShrink*hDist
			col := ref.CenterCol + vMove*vArc + vShrink*vDist
			img.Data.Set(i, j, sample(frame, row, col))
		}
	}
	return nil
}

// foreshortening возвращает sqrt(1 - (d/R)²).
func foreshortening(d, eyeRadius float64) (float64, error) {
	x := d / eyeRadius
	if math.IsNaN(x) || math.Abs(x) > 1 {
		return 0, fmt.Errorf("%w: |%.2f / %.2f| > 1", entity.ErrGeometryDomain, d, eyeRadius)
	}
	return math.Sqrt(1 - x*x), nil
}
