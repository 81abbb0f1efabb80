package xcorr

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestCorr2Coeff_Self(t *testing.T) {
	a := mat.NewDense(2, 3, []float64{1, 5, 2, 8, 3, 4})
	c, err := Corr2Coeff(a, a)
	require.NoError(t, err)
	require.InDelta(t, 1, c, 1e-12)

	neg := mat.NewDense(2, 3, nil)
	neg.Scale(-2, a)
	c, err = Corr2Coeff(a, neg)
	require.NoError(t, err)
	require.InDelta(t, -1, c, 1e-12)
}

func TestCorr2Coeff_Flat(t *testing.T) {
	a := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	flat := mat.NewDense(2, 2, []float64{7, 7, 7, 7})

	c, err := Corr2Coeff(a, flat)
	require.NoError(t, err)
	require.Zero(t, c)

	c, err = Corr2Coeff(flat, flat)
	require.NoError(t, err)
	require.Zero(t, c)
}

func TestCorr2Coeff_ShapeMismatch(t *testing.T) {
	_, err := Corr2Coeff(mat.NewDense(2, 3, nil), mat.NewDense(3, 2, nil))
	require.ErrorIs(t, err, ErrLengthMismatch)
}

func TestReducedCorr(t *testing.T) {
	corrs := []float64{0.9, 0.2, 0.5, 0.8, 0.3, 0.95}

	x, y, err := ReducedCorr(corrs, 0.4, 1, 5, 0)
	require.NoError(t, err)
	require.Equal(t, []int{2, 3}, x)
	require.Equal(t, []float64{0.5, 0.8}, y)

	x, _, err = ReducedCorr(corrs, 0.4, 0, len(corrs), 10)
	require.NoError(t, err)
	require.Equal(t, []int{10, 12, 13, 15}, x)
}

func TestReducedCorr_StrictThreshold(t *testing.T) {
	_, _, err := ReducedCorr([]float64{0.5, 0.5, 0.1}, 0.5, 0, 3, 0)
	require.ErrorIs(t, err, ErrBelowThreshold)

	// вне диапазона значения выше порога не учитываются
	_, _, err = ReducedCorr([]float64{0.9, 0.1, 0.2, 0.9}, 0.5, 1, 3, 0)
	require.ErrorIs(t, err, ErrBelowThreshold)
}

func TestReducedCorr_Bounds(t *testing.T) {
	_, _, err := ReducedCorr([]float64{1, 2}, 0, 0, 3, 0)
	require.ErrorIs(t, err, ErrInvalidParameter)

	_, _, err = ReducedCorr([]float64{1, 2}, 0, 2, 1, 0)
	require.ErrorIs(t, err, ErrInvalidParameter)
}
