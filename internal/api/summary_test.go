package telegram

import (
	"testing"

	"github.com/stretchr/testify/require"

	"ocular-torsion/internal/domain/entity"
)

func TestSummary(t *testing.T) {
	res := &entity.TorsionResult{
		ID:    "run-1",
		Start: 0,
		End:   4,
		Settings: entity.AnalysisSettings{
			Transform:   entity.FullTransform{},
			Correlation: entity.CorrelationConfig{Mode: entity.ModeInterp},
		},
		ByReference: entity.NewIndexed[entity.Estimate](0, 4),
	}
	for i, e := range []entity.Estimate{
		entity.Measured(0), entity.Measured(-1.5), entity.Missing(entity.ReasonBlink), entity.Measured(2.25),
	} {
		require.NoError(t, res.ByReference.Append(i, e))
	}

	got := Summary(res)
	require.Contains(t, got, "кадры 0–3, опорный кадр 0")
	require.Contains(t, got, "Режим: full, interp")
	require.Contains(t, got, "Измерено: 3 из 4")
	require.Contains(t, got, "-1.50° … 2.25°")
	require.Contains(t, got, "blink=1")
	require.Contains(t, got, "🆔 run-1")
}

func TestSummary_NothingMeasured(t *testing.T) {
	res := &entity.TorsionResult{
		Start:       5,
		End:         6,
		Reference:   5,
		Settings:    entity.AnalysisSettings{Transform: entity.SubsetTransform{}, Correlation: entity.CorrelationConfig{Mode: entity.ModeUpsample}},
		ByReference: entity.NewIndexed[entity.Estimate](5, 1),
	}
	require.NoError(t, res.ByReference.Append(5, entity.Missing(entity.ReasonNoPupil)))

	got := Summary(res)
	require.Contains(t, got, "Измерено: 0 из 1")
	require.NotContains(t, got, "Диапазон")
	require.Contains(t, got, "no_pupil=1")
	require.NotContains(t, got, "🆔")
}
