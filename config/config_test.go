package config

import (
	"testing"

	"github.com/stretchr/testify/require"

	"ocular-torsion/internal/domain/entity"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "token")
	t.Setenv("RESULTS_DB", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "token", cfg.TelegramToken)
	require.Equal(t, "torsion.db", cfg.ResultsDB)

	s, err := cfg.Settings()
	require.NoError(t, err)
	require.Equal(t, entity.ModeInterp, s.Correlation.Mode)
	require.Equal(t, entity.FullTransform{}, s.Transform)
	require.Equal(t, 0, s.EndFrame)
}

func TestLoad_Subset(t *testing.T) {
	t.Setenv("TRANSFORM_MODE", "subset")
	t.Setenv("TORSION_MODE", "upsample")
	t.Setenv("RESOLUTION", "0.5")
	t.Setenv("MAX_ANGLE", "10")
	t.Setenv("WINDOW_THETA", "20")
	t.Setenv("SEGMENT_THETA", "35")
	t.Setenv("FEATURE_ROW", "120")
	t.Setenv("FEATURE_COL", "200.5")
	t.Setenv("GEOMETRIC_CORRECTION", "true")

	cfg, err := Load()
	require.NoError(t, err)
	s, err := cfg.Settings()
	require.NoError(t, err)

	require.Equal(t, entity.SubsetTransform{
		Feature:      entity.Point{Row: 120, Col: 200.5},
		WindowTheta:  20,
		SegmentTheta: 35,
	}, s.Transform)
	require.Equal(t, 0.5, s.Correlation.UpsampleFactor())
	require.True(t, s.GeometricCorrection)
}

func TestLoad_Occlusion(t *testing.T) {
	t.Setenv("TRANSFORM_MODE", "full")
	t.Setenv("UPPER_IRIS_ROW", "40")
	t.Setenv("UPPER_IRIS_COL", "90")
	t.Setenv("LOWER_IRIS_ROW", "160")
	t.Setenv("LOWER_IRIS_COL", "95")

	cfg, err := Load()
	require.NoError(t, err)
	s, err := cfg.Settings()
	require.NoError(t, err)

	full, ok := s.Transform.(entity.FullTransform)
	require.True(t, ok)
	require.NotNil(t, full.Occlusion)
	require.Equal(t, entity.Point{Row: 160, Col: 95}, full.Occlusion.Lower)
}

func TestLoad_Errors(t *testing.T) {
	t.Setenv("MAX_ANGLE", "wide")
	t.Setenv("START_FRAME", "1.5")

	_, err := Load()
	require.ErrorContains(t, err, "MAX_ANGLE")
	require.ErrorContains(t, err, "START_FRAME")
}

func TestSettings_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown transform":   {"TRANSFORM_MODE": "spiral"},
		"unknown mode":        {"TORSION_MODE": "magic"},
		"subset too narrow":   {"TRANSFORM_MODE": "subset", "WINDOW_THETA": "20", "SEGMENT_THETA": "30", "MAX_ANGLE": "25"},
		"alternate no window": {"TRANSFORM_MODE": "alternate"},
	}
	for name, vars := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range vars {
				t.Setenv(k, v)
			}
			cfg, err := Load()
			require.NoError(t, err)
			_, err = cfg.Settings()
			require.ErrorIs(t, err, entity.ErrInvalidSettings)
		})
	}
}
