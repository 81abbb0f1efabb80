package iris

import (
	"errors"
	"fmt"
	"image"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"ocular-torsion/internal/domain/entity"
)

// ErrExtensionRange — запрошенное расширение шире самого изображения.
var ErrExtensionRange = errors.New("iris extension out of range")

// ReplaceWithNoise заменяет секторы век равномерным шумом со средним
// изображения. Изменяет img на месте и возвращает его же.
func ReplaceWithNoise(img *entity.PolarImage, upper, lower entity.ThetaWindow, src rand.Source) *entity.PolarImage {
	noise := distuv.Uniform{Min: 0, Max: math.Max(img.Mean(), 0), Src: src}
	fillBand(img, upper, noise)
	fillBand(img, lower, noise)
	return img
}

func fillBand(img *entity.PolarImage, band entity.ThetaWindow, noise distuv.Uniform) {
	rows, cols := img.Dims()
	lo := img.ColumnOf(band.Lo)
	hi := img.ColumnOf(band.Hi)

	var spans [][2]int
	if lo > hi && img.Window.Span() >= 360 {
		// сектор пересекает разрез
		spans = [][2]int{{lo, cols}, {0, hi}}
	} else {
		spans = [][2]int{{lo, hi}}
	}

	for _, s := range spans {
		from := max(s[0], 0)
		to := min(s[1], cols)
		for i := 0; i < rows; i++ {
			for j := from; j < to; j++ {
				img.Data.Set(i, j, noise.Rand())
			}
		}
	}
}

// Extend дописывает к изображению хвостовые столбцы спереди и начальные
// столбцы сзади, считая угол периодическим. Ширина растёт на
// (lowerTheta+upperTheta)/thetaResolution, исходные данные не меняются.
func Extend(img *entity.PolarImage, thetaResolution, lowerTheta, upperTheta float64) (*entity.PolarImage, error) {
	rows, cols := img.Dims()
	nLower := int(math.Round(lowerTheta / thetaResolution))
	nUpper := int(math.Round(upperTheta / thetaResolution))
	if nLower < 0 || nUpper < 0 || nLower > cols || nUpper > cols {
		return nil, fmt.Errorf("%w: extend %d+%d columns of %d", ErrExtensionRange, nLower, nUpper, cols)
	}

	out := mat.NewDense(rows, cols+nLower+nUpper, nil)
	if nLower > 0 {
		out.Slice(0, rows, 0, nLower).(*mat.Dense).Copy(img.Data.Slice(0, rows, cols-nLower, cols))
	}
	out.Slice(0, rows, nLower, nLower+cols).(*mat.Dense).Copy(img.Data)
	if nUpper > 0 {
		out.Slice(0, rows, nLower+cols, nLower+cols+nUpper).(*mat.Dense).Copy(img.Data.Slice(0, rows, 0, nUpper))
	}

	ext := *img
	ext.Data = out
	ext.Window = entity.ThetaWindow{
		Lo: img.Window.Lo - float64(nLower)*thetaResolution,
		Hi: img.Window.Hi + float64(nUpper)*thetaResolution,
	}
	return &ext, nil
}

// MirrorOcclusion строит секторы век по двум точкам на границе открытой
// радужки, отражая их относительно вертикальной оси.
func MirrorOcclusion(points entity.OcclusionPoints, pupil entity.Pupil) entity.OcclusionBounds {
	_, upper := PolarCoord(points.Upper.Row, points.Upper.Col, pupil)
	_, lower := PolarCoord(points.Lower.Row, points.Lower.Col, pupil)

	du := math.Abs(upper - 90)
	bounds := entity.OcclusionBounds{
		Upper: entity.ThetaWindow{Lo: 90 - du, Hi: 90 + du},
	}

	// разрез на 270°
	var dl float64
	if lower < 0 {
		dl = math.Abs(lower + 90)
	} else {
		dl = math.Abs(lower - 270)
	}
	bounds.Lower = entity.ThetaWindow{Lo: -90 - dl, Hi: -90 + dl}
	return bounds
}

// PupilObstructed определяет моргание по маске век: нулевые пиксели маски
// закрыты веком. Контур зрачка, задевающий веко, означает моргание.
func PupilObstructed(eyelidMask *mat.Dense, contour []image.Point) entity.BlinkState {
	if eyelidMask == nil || contour == nil {
		return entity.BlinkUnknown
	}

	rows, cols := eyelidMask.Dims()
	covered := false
	for i := 0; i < rows && !covered; i++ {
		for _, v := range eyelidMask.RawRowView(i) {
			if v == 0 {
				covered = true
				break
			}
		}
	}
	if !covered {
		// век не найдено вовсе, маска ненадёжна
		return entity.Blink
	}

	for _, pt := range contour {
		if pt.Y < 0 || pt.Y >= rows || pt.X < 0 || pt.X >= cols {
			continue
		}
		if eyelidMask.At(pt.Y, pt.X) == 0 {
			return entity.Blink
		}
	}
	return entity.BlinkNone
}
