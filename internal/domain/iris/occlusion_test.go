package iris

import (
	"image"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"ocular-torsion/internal/domain/entity"
)

func numberedPolar(rows, cols int) *entity.PolarImage {
	data := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			data.Set(i, j, float64(i*cols+j+1))
		}
	}
	return &entity.PolarImage{
		Data:            data,
		Window:          entity.ThetaWindow{Lo: 0, Hi: float64(cols)},
		ThetaResolution: 1,
	}
}

func TestExtend_PadsCyclically(t *testing.T) {
	img := numberedPolar(4, 360)

	ext, err := Extend(img, 1, 25, 25)
	require.NoError(t, err)

	rows, cols := ext.Dims()
	require.Equal(t, 4, rows)
	require.Equal(t, 410, cols)
	require.True(t, mat.Equal(img.Data, ext.Data.Slice(0, 4, 25, 385)))
	require.True(t, mat.Equal(img.Data.Slice(0, 4, 335, 360), ext.Data.Slice(0, 4, 0, 25)))
	require.True(t, mat.Equal(img.Data.Slice(0, 4, 0, 25), ext.Data.Slice(0, 4, 385, 410)))
	require.Equal(t, entity.ThetaWindow{Lo: -25, Hi: 385}, ext.Window)

	// исходник не изменился
	require.Equal(t, 1.0, img.Data.At(0, 0))
}

func TestExtend_UpsampledAndAsymmetric(t *testing.T) {
	img := numberedPolar(2, 100)
	img.ThetaResolution = 0.1

	ext, err := Extend(img, 0.1, 0.5, 1.2)
	require.NoError(t, err)
	_, cols := ext.Dims()
	require.Equal(t, 100+5+12, cols)
	require.True(t, mat.Equal(img.Data, ext.Data.Slice(0, 2, 5, 105)))
}

func TestExtend_OutOfRange(t *testing.T) {
	_, err := Extend(numberedPolar(2, 10), 1, 11, 0)
	require.ErrorIs(t, err, ErrExtensionRange)

	_, err = Extend(numberedPolar(2, 10), 1, -1, 0)
	require.ErrorIs(t, err, ErrExtensionRange)
}

func TestReplaceWithNoise(t *testing.T) {
	img := numberedPolar(3, 360)
	orig := mat.DenseCopyOf(img.Data)
	mean := img.Mean()

	out := ReplaceWithNoise(img,
		entity.ThetaWindow{Lo: 60, Hi: 120},
		entity.ThetaWindow{Lo: -120, Hi: -60},
		rand.NewPCG(1, 2))
	require.Same(t, img, out)

	inBand := func(j int) bool {
		return (j >= 60 && j < 120) || (j >= 240 && j < 300)
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 360; j++ {
			v := img.Data.At(i, j)
			if inBand(j) {
				require.GreaterOrEqual(t, v, 0.0)
				require.Less(t, v, mean)
				continue
			}
			require.Equal(t, orig.At(i, j), v)
		}
	}
}

func TestReplaceWithNoise_BandAcrossCut(t *testing.T) {
	img := numberedPolar(1, 360)
	orig := mat.DenseCopyOf(img.Data)

	ReplaceWithNoise(img,
		entity.ThetaWindow{Lo: -10, Hi: 10},
		entity.ThetaWindow{Lo: 200, Hi: 200},
		rand.NewPCG(3, 4))

	require.NotEqual(t, orig.At(0, 355), img.Data.At(0, 355))
	require.NotEqual(t, orig.At(0, 5), img.Data.At(0, 5))
	require.Equal(t, orig.At(0, 10), img.Data.At(0, 10))
	require.Equal(t, orig.At(0, 200), img.Data.At(0, 200))
}

func TestMirrorOcclusion(t *testing.T) {
	p := testPupil(t, 100, 100, 20, 20)
	bounds := MirrorOcclusion(entity.OcclusionPoints{
		Upper: entity.Point{Row: 60, Col: 130},
		Lower: entity.Point{Row: 140, Col: 130},
	}, p)

	require.InDelta(t, 53.1301, bounds.Upper.Lo, 1e-3)
	require.InDelta(t, 126.8699, bounds.Upper.Hi, 1e-3)
	require.InDelta(t, -126.8699, bounds.Lower.Lo, 1e-3)
	require.InDelta(t, -53.1301, bounds.Lower.Hi, 1e-3)

	// точка нижнего века слева от зрачка: угол по ветке (180, 270)
	bounds = MirrorOcclusion(entity.OcclusionPoints{
		Upper: entity.Point{Row: 60, Col: 130},
		Lower: entity.Point{Row: 140, Col: 70},
	}, p)
	require.InDelta(t, -126.8699, bounds.Lower.Lo, 1e-3)
	require.InDelta(t, -53.1301, bounds.Lower.Hi, 1e-3)
}

func TestPupilObstructed(t *testing.T) {
	mask := mat.NewDense(10, 10, nil)
	mask.Apply(func(i, _ int, _ float64) float64 {
		if i < 3 {
			return 0
		}
		return 255
	}, mask)

	clear := []image.Point{{X: 5, Y: 5}, {X: 6, Y: 6}}
	touching := []image.Point{{X: 5, Y: 5}, {X: 5, Y: 2}}

	require.Equal(t, entity.BlinkNone, PupilObstructed(mask, clear))
	require.Equal(t, entity.Blink, PupilObstructed(mask, touching))
	require.Equal(t, entity.BlinkUnknown, PupilObstructed(nil, clear))

	open := mat.NewDense(4, 4, []float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1})
	require.Equal(t, entity.Blink, PupilObstructed(open, clear))
}
