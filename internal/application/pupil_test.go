package app

import (
	"bytes"
	"context"
	"errors"
	"log"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"ocular-torsion/internal/domain/entity"
	"ocular-torsion/internal/infrastructure/vision"
)

func TestPupilService_Locate(t *testing.T) {
	frames := []*mat.Dense{eyeFrame(0), eyeFrame(1), eyeFrame(2), eyeFrame(3), eyeFrame(4)}
	src := vision.NewMemorySource(30, frames...)
	p := *eyePupilAt(t)
	detector := &fakeDetector{pupils: map[*mat.Dense]entity.Pupil{
		frames[1]: p, frames[3]: p, frames[4]: p,
	}}

	var buf bytes.Buffer
	svc := NewPupilService(detector, log.New(&buf, "", 0))
	pupils, err := svc.Locate(context.Background(), src, 1, 3, 50, 4, 2)
	require.NoError(t, err)

	require.Len(t, pupils, 3)
	require.NotNil(t, pupils[1])
	require.Nil(t, pupils[2])
	require.NotNil(t, pupils[4])
	_, ok := pupils[3]
	require.False(t, ok)
	require.Equal(t, 3, detector.calls)
	require.Contains(t, buf.String(), "WARNING: no pupil found in 1 of 3 frames")
}

type failingDetector struct{}

func (failingDetector) Detect(context.Context, *mat.Dense, float64) (entity.Pupil, error) {
	return entity.Pupil{}, errors.New("camera on fire")
}

func TestPupilService_Errors(t *testing.T) {
	src := vision.NewMemorySource(30, eyeFrame(0), nil)
	ctx := context.Background()

	_, err := NewPupilService(nil, nil).Locate(ctx, src, 0, 1, 50)
	require.Error(t, err)

	_, err = NewPupilService(failingDetector{}, nil).Locate(ctx, src, 0, 1, 50)
	require.ErrorContains(t, err, "camera on fire")

	_, err = NewPupilService(&fakeDetector{}, nil).Locate(ctx, src, 0, 2, 50)
	require.ErrorIs(t, err, entity.ErrFrameUnreadable)

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	_, err = NewPupilService(&fakeDetector{}, nil).Locate(cctx, src, 0, 1, 50)
	require.ErrorIs(t, err, context.Canceled)
}
