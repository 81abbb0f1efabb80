//go:build gocv
// +build gocv

package vision

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/mat"

	"ocular-torsion/internal/domain/entity"
	"ocular-torsion/internal/domain/port"
)

// GoCVPupilDetector ищет зрачок через OpenCV: инвертированный порог,
// внешние контуры, наибольшая площадь, эллипс по контуру.
type GoCVPupilDetector struct {
	MinAreaRatio         float64
	MaxUnderexposedRatio float64
	BlurKernel           int
}

// NewPupilDetector создаёт детектор зрачка на OpenCV.
func NewPupilDetector() port.PupilDetector {
	return &GoCVPupilDetector{
		MinAreaRatio:         0.0005,
		MaxUnderexposedRatio: 0.6,
		BlurKernel:           0,
	}
}

// Detect находит зрачок на кадре.
func (d *GoCVPupilDetector) Detect(ctx context.Context, frame *mat.Dense, threshold float64) (entity.Pupil, error) {
	if err := ctx.Err(); err != nil {
		return entity.Pupil{}, err
	}

	gray, err := denseToMat(frame)
	if err != nil {
		return entity.Pupil{}, err
	}
	defer gray.Close()

	if d.BlurKernel > 1 {
		gocv.GaussianBlur(gray, &gray, image.Pt(d.BlurKernel, d.BlurKernel), 0, 0, gocv.BorderDefault)
	}

	bin := gocv.NewMat()
	defer bin.Close()
	gocv.Threshold(gray, &bin, float32(threshold), 255, gocv.ThresholdBinaryInv)

	// почти весь кадр тёмный: глаз закрыт или порог слишком высокий
	total := bin.Rows() * bin.Cols()
	if total == 0 {
		return entity.Pupil{}, errors.New("empty frame")
	}
	if ratio := float64(gocv.CountNonZero(bin)) / float64(total); ratio > d.MaxUnderexposedRatio {
		return entity.Pupil{}, fmt.Errorf("%w: dark ratio %.3f", entity.ErrNoPupil, ratio)
	}

	contours := gocv.FindContours(bin, gocv.RetrievalExternal, gocv.ChainApproxNone)
	defer contours.Close()

	best, bestArea := -1, 0.0
	for i := 0; i < contours.Size(); i++ {
		if area := gocv.ContourArea(contours.At(i)); area > bestArea {
			best, bestArea = i, area
		}
	}
	if best < 0 || bestArea < d.MinAreaRatio*float64(total) || contours.At(best).Size() < 5 {
		return entity.Pupil{}, entity.ErrNoPupil
	}

	contour := contours.At(best)
	ellipse := gocv.FitEllipse(contour)

	// центр по моментам залитого контура точнее целочисленного центра эллипса
	mask := gocv.NewMatWithSize(bin.Rows(), bin.Cols(), gocv.MatTypeCV8U)
	defer mask.Close()
	gocv.DrawContours(&mask, contours, best, color.RGBA{R: 255, G: 255, B: 255, A: 255}, -1)
	m := gocv.Moments(mask, true)
	if m["m00"] == 0 {
		return entity.Pupil{}, entity.ErrNoPupil
	}

	p, err := entity.NewPupil(m["m01"]/m["m00"], m["m10"]/m["m00"],
		float64(ellipse.Height), float64(ellipse.Width), contour.ToPoints())
	if err != nil {
		return entity.Pupil{}, fmt.Errorf("%w: %v", entity.ErrNoPupil, err)
	}
	return p, nil
}

// denseToMat переводит матрицу яркостей в 8-битный gocv.Mat.
func denseToMat(frame *mat.Dense) (gocv.Mat, error) {
	img := ToGray(frame)
	b := img.Bounds()
	view, err := gocv.NewMatFromBytes(b.Dy(), b.Dx(), gocv.MatTypeCV8U, img.Pix)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer view.Close()
	// view ссылается на память Go, копируем в память OpenCV
	return view.Clone(), nil
}

// matToDense переводит 8-битный gocv.Mat в матрицу яркостей.
func matToDense(m gocv.Mat) *mat.Dense {
	rows, cols := m.Rows(), m.Cols()
	out := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		row := out.RawRowView(i)
		for j := 0; j < cols; j++ {
			row[j] = float64(m.GetUCharAt(i, j))
		}
	}
	return out
}
