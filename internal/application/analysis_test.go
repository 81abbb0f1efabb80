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
	"ocular-torsion/internal/domain/port"
	"ocular-torsion/internal/infrastructure/report"
	"ocular-torsion/internal/infrastructure/storage"
	"ocular-torsion/internal/infrastructure/vision"
)

type analysisFixture struct {
	svc     *AnalysisService
	users   *UserService
	results *storage.SQLiteResultRepository
	logs    *bytes.Buffer
}

func newAnalysisFixture(t *testing.T, rotations ...float64) *analysisFixture {
	t.Helper()

	frames := make([]*mat.Dense, len(rotations))
	detector := &fakeDetector{pupils: map[*mat.Dense]entity.Pupil{}}
	for i, rot := range rotations {
		frames[i] = eyeFrame(rot)
		detector.pupils[frames[i]] = *eyePupilAt(t)
	}

	results, err := storage.NewSQLiteResultRepository(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { results.Close() })

	var buf bytes.Buffer
	users := NewUserService(storage.NewMemoryUserRepository())
	svc := NewAnalysisService(AnalysisDeps{
		Users:    users,
		Opener:   vision.MemoryOpener{"eye.avi": vision.NewMemorySource(25, frames...)},
		Detector: detector,
		Results:  results,
		Chart:    report.NewChartRenderer(),
		Table:    report.TableRenderer{},
		Logger:   log.New(&buf, "", 0),
	}, baseSettings(entity.FullTransform{}, 10))

	return &analysisFixture{svc: svc, users: users, results: results, logs: &buf}
}

func TestAnalysisService_Analyze(t *testing.T) {
	f := newAnalysisFixture(t, 0, 3, 6)
	ctx := context.Background()

	out, err := f.svc.Analyze(ctx, "eye.avi", f.svc.Settings())
	require.NoError(t, err)
	require.NotEmpty(t, out.Result.ID)
	require.Equal(t, "eye.avi", out.Result.VideoPath)
	require.Equal(t, 3, out.Result.End)
	require.NotEmpty(t, out.Chart)
	require.Contains(t, string(out.Table), "frame,time_s,torsion_deg")

	stored, err := f.results.Load(ctx, out.Result.ID)
	require.NoError(t, err)
	require.Equal(t, out.Result.ByReference.Values(), stored.ByReference.Values())
	e, _ := stored.ByReference.At(2)
	require.Equal(t, entity.Measured(6), e)

	require.Contains(t, f.logs.String(), "Analysis of eye.avi: 3/3 frames measured")
}

func TestAnalysisService_AnalyzeErrors(t *testing.T) {
	f := newAnalysisFixture(t, 0, 1)
	ctx := context.Background()

	_, err := f.svc.Analyze(ctx, "missing.avi", f.svc.Settings())
	require.Error(t, err)

	settings := f.svc.Settings()
	settings.StartFrame = 2
	settings.EndFrame = 1
	_, err = f.svc.Analyze(ctx, "eye.avi", settings)
	require.ErrorIs(t, err, entity.ErrInvalidSettings)
}

func TestAnalysisService_AnalyzeForUser(t *testing.T) {
	f := newAnalysisFixture(t, 0, 2)
	ctx := context.Background()

	_, err := f.svc.Last(ctx, 7, 70)
	require.ErrorIs(t, err, entity.ErrResultNotFound)

	out, err := f.svc.AnalyzeForUser(ctx, 7, 70, "eye.avi")
	require.NoError(t, err)

	user, err := f.users.Get(ctx, 7, 70)
	require.NoError(t, err)
	require.Equal(t, entity.StateMainMenu, user.State)
	require.Equal(t, out.Result.ID, user.LastResultID)

	last, err := f.svc.Last(ctx, 7, 70)
	require.NoError(t, err)
	require.Equal(t, out.Result.ID, last.ID)
}

func TestAnalysisService_AnalyzeForUserFailureResetsState(t *testing.T) {
	f := newAnalysisFixture(t, 0, 2)
	ctx := context.Background()

	_, err := f.svc.AnalyzeForUser(ctx, 7, 70, "missing.avi")
	require.Error(t, err)

	user, err := f.users.Get(ctx, 7, 70)
	require.NoError(t, err)
	require.Equal(t, entity.StateMainMenu, user.State)
	require.Empty(t, user.LastResultID)
}

func TestAnalysisService_Busy(t *testing.T) {
	f := newAnalysisFixture(t, 0, 2)
	ctx := context.Background()

	_, err := f.users.SetState(ctx, 7, 70, entity.StateProcessing)
	require.NoError(t, err)

	_, err = f.svc.AnalyzeForUser(ctx, 7, 70, "eye.avi")
	require.True(t, errors.Is(err, ErrAnalysisInProgress))

	// отказ не сбрасывает идущий анализ
	user, err := f.users.Get(ctx, 7, 70)
	require.NoError(t, err)
	require.Equal(t, entity.StateProcessing, user.State)
}

func TestAnalysisService_WithoutStorage(t *testing.T) {
	src := vision.NewMemorySource(25, eyeFrame(0))
	svc := NewAnalysisService(AnalysisDeps{
		Users:    NewUserService(storage.NewMemoryUserRepository()),
		Opener:   vision.MemoryOpener{"one.avi": src},
		Detector: &fakeDetector{pupils: map[*mat.Dense]entity.Pupil{}},
		Logger:   log.New(&bytes.Buffer{}, "", 0),
	}, baseSettings(entity.FullTransform{}, 10))

	// зрачка нет на начальном кадре
	_, err := svc.Analyze(context.Background(), "one.avi", svc.Settings())
	require.ErrorIs(t, err, entity.ErrNoPupil)

	_, err = svc.Last(context.Background(), 1, 1)
	require.ErrorIs(t, err, entity.ErrResultNotFound)
}

var _ port.PupilDetector = (*fakeDetector)(nil)
