package entity

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestPolarImage_ColumnOfWrapsFullTurn(t *testing.T) {
	p := &PolarImage{
		Data:            mat.NewDense(2, 360, nil),
		Window:          FullTurn,
		ThetaResolution: 1,
	}
	require.Equal(t, 60, p.ColumnOf(60))
	require.Equal(t, 240, p.ColumnOf(-120))

	narrow := &PolarImage{
		Data:            mat.NewDense(2, 100, nil),
		Window:          ThetaWindow{Lo: 20, Hi: 120},
		ThetaResolution: 1,
	}
	require.Equal(t, -5, narrow.ColumnOf(15))
}

func TestPolarImage_MeanAndColumnSums(t *testing.T) {
	p := &PolarImage{
		Data:            mat.NewDense(2, 3, []float64{1, 2, 3, 5, 6, 7}),
		Window:          ThetaWindow{Lo: 0, Hi: 3},
		ThetaResolution: 1,
	}
	require.InDelta(t, 4.0, p.Mean(), 1e-12)
	require.Equal(t, []float64{6, 8, 10}, p.ColumnSums())

	cp := p.Clone()
	cp.Data.Set(0, 0, 100)
	require.Equal(t, 1.0, p.Data.At(0, 0))
}

func TestPolarImage_Columns(t *testing.T) {
	p := &PolarImage{
		Data:            mat.NewDense(2, 8, []float64{0, 1, 2, 3, 4, 5, 6, 7, 10, 11, 12, 13, 14, 15, 16, 17}),
		Window:          ThetaWindow{Lo: 40, Hi: 44},
		ThetaResolution: 0.5,
	}

	mid := p.Columns(2, 6)
	require.Equal(t, ThetaWindow{Lo: 41, Hi: 43}, mid.Window)
	require.Equal(t, []float64{2, 3, 4, 5}, mid.Data.RawRowView(0))
	require.Equal(t, []float64{12, 13, 14, 15}, mid.Data.RawRowView(1))

	mid.Data.Set(0, 0, -1)
	require.Equal(t, 2.0, p.Data.At(0, 2))
}
