package vision

import (
	"context"
	"image"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"ocular-torsion/internal/domain/entity"
)

func TestStaticBlinks(t *testing.T) {
	b := StaticBlinks{3: entity.Blink, 4: entity.BlinkUnknown}
	ctx := context.Background()

	state, err := b.Blink(ctx, 3, nil, nil)
	require.NoError(t, err)
	require.Equal(t, entity.Blink, state)

	state, err = b.Blink(ctx, 4, nil, nil)
	require.NoError(t, err)
	require.Equal(t, entity.BlinkUnknown, state)

	state, err = b.Blink(ctx, 5, nil, nil)
	require.NoError(t, err)
	require.Equal(t, entity.BlinkNone, state)
}

func TestLidBandDetector(t *testing.T) {
	d := LidBandDetector{UpperRows: 20, LowerRows: 10}
	frame := mat.NewDense(100, 100, nil)
	ctx := context.Background()

	open := &entity.Pupil{Contour: []image.Point{{X: 50, Y: 30}, {X: 50, Y: 70}}}
	state, err := d.Blink(ctx, 0, frame, open)
	require.NoError(t, err)
	require.Equal(t, entity.BlinkNone, state)

	upper := &entity.Pupil{Contour: []image.Point{{X: 50, Y: 19}, {X: 50, Y: 70}}}
	state, err = d.Blink(ctx, 0, frame, upper)
	require.NoError(t, err)
	require.Equal(t, entity.Blink, state)

	lower := &entity.Pupil{Contour: []image.Point{{X: 50, Y: 90}}}
	state, err = d.Blink(ctx, 0, frame, lower)
	require.NoError(t, err)
	require.Equal(t, entity.Blink, state)

	state, err = d.Blink(ctx, 0, frame, &entity.Pupil{})
	require.NoError(t, err)
	require.Equal(t, entity.BlinkUnknown, state)
}
