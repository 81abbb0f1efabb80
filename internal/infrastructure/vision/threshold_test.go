package vision

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"ocular-torsion/internal/domain/entity"
)

// eyeFrame рисует тёмный эллипс на светлом фоне.
func eyeFrame(rows, cols int, cr, cc, semiRows, semiCols float64) *mat.Dense {
	f := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			dr := (float64(i) - cr) / semiRows
			dc := (float64(j) - cc) / semiCols
			if dr*dr+dc*dc <= 1 {
				f.Set(i, j, 5)
			} else {
				f.Set(i, j, 180)
			}
		}
	}
	return f
}

func TestThresholdDetector_Circle(t *testing.T) {
	d := NewThresholdDetector()
	frame := eyeFrame(120, 160, 60, 90, 20, 20)

	p, err := d.Detect(context.Background(), frame, 30)
	require.NoError(t, err)
	require.InDelta(t, 60, p.CenterRow, 0.5)
	require.InDelta(t, 90, p.CenterCol, 0.5)
	require.InDelta(t, 40, p.Major, 2)
	require.InDelta(t, 40, p.Minor, 2)
	require.InDelta(t, 20, p.Radius, 1)
	require.NotEmpty(t, p.Contour)
	for _, pt := range p.Contour {
		require.Equal(t, 5.0, frame.At(pt.Y, pt.X))
	}
}

func TestThresholdDetector_Ellipse(t *testing.T) {
	d := NewThresholdDetector()
	frame := eyeFrame(120, 160, 50, 70, 15, 30)

	p, err := d.Detect(context.Background(), frame, 30)
	require.NoError(t, err)
	require.InDelta(t, 60, p.Major, 2)
	require.InDelta(t, 30, p.Minor, 2)
	require.InDelta(t, 0.5, p.AxisRatio(), 0.05)
}

func TestThresholdDetector_LargestRegion(t *testing.T) {
	d := NewThresholdDetector()
	frame := eyeFrame(100, 100, 50, 50, 12, 12)
	// мелкое тёмное пятно (ресница) не должно победить
	for i := 5; i < 8; i++ {
		for j := 5; j < 8; j++ {
			frame.Set(i, j, 0)
		}
	}

	p, err := d.Detect(context.Background(), frame, 30)
	require.NoError(t, err)
	require.InDelta(t, 50, p.CenterRow, 0.5)
	require.InDelta(t, 50, p.CenterCol, 0.5)
}

func TestThresholdDetector_NoPupil(t *testing.T) {
	d := NewThresholdDetector()
	frame := mat.NewDense(50, 50, nil)
	frame.Apply(func(_, _ int, _ float64) float64 { return 200 }, frame)

	_, err := d.Detect(context.Background(), frame, 30)
	require.ErrorIs(t, err, entity.ErrNoPupil)
}
