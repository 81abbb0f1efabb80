package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"ocular-torsion/internal/domain/entity"
)

type Config struct {
	TelegramToken string
	VideoPath     string
	ResultsDB     string
	PlotPath      string
	CSVPath       string
	FramesFPS     float64 // частота кадров для каталога изображений

	WindowRadius   float64
	Resolution     float64
	TorsionMode    string
	TransformMode  string
	StartFrame     int
	EndFrame       int
	ReferenceFrame int
	PupilThreshold float64
	MaxAngle       float64
	CorrThreshold  float64

	WindowTheta  float64
	SegmentTheta float64
	Feature      entity.Point

	// точки на границе радужки, не закрытой веками; при нулевых секторы не заменяются
	UpperIris entity.Point
	LowerIris entity.Point

	EyeRadius           float64
	GeometricCorrection bool

	BlinkUpperRows int
	BlinkLowerRows int
}

func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	e := env{}
	cfg := &Config{
		TelegramToken: os.Getenv("TELEGRAM_TOKEN"),
		VideoPath:     os.Getenv("VIDEO_PATH"),
		ResultsDB:     e.text("RESULTS_DB", "torsion.db"),
		PlotPath:      e.text("PLOT_PATH", "torsion.png"),
		CSVPath:       e.text("CSV_PATH", "torsion.csv"),
		FramesFPS:     e.number("FRAMES_FPS", 30),

		WindowRadius:   e.number("WINDOW_RADIUS", 50),
		Resolution:     e.number("RESOLUTION", 0.1),
		TorsionMode:    e.text("TORSION_MODE", string(entity.ModeInterp)),
		TransformMode:  e.text("TRANSFORM_MODE", entity.FullTransform{}.Name()),
		StartFrame:     e.integer("START_FRAME", 0),
		EndFrame:       e.integer("END_FRAME", 0),
		ReferenceFrame: e.integer("REFERENCE_FRAME", 0),
		PupilThreshold: e.number("PUPIL_THRESHOLD", 50),
		MaxAngle:       e.number("MAX_ANGLE", 25),
		CorrThreshold:  e.number("CORR_THRESHOLD", 0.1),

		WindowTheta:  e.number("WINDOW_THETA", 0),
		SegmentTheta: e.number("SEGMENT_THETA", 0),
		Feature:      entity.Point{Row: e.number("FEATURE_ROW", 0), Col: e.number("FEATURE_COL", 0)},
		UpperIris:    entity.Point{Row: e.number("UPPER_IRIS_ROW", 0), Col: e.number("UPPER_IRIS_COL", 0)},
		LowerIris:    entity.Point{Row: e.number("LOWER_IRIS_ROW", 0), Col: e.number("LOWER_IRIS_COL", 0)},

		EyeRadius:           e.number("EYE_RADIUS", 0),
		GeometricCorrection: e.flag("GEOMETRIC_CORRECTION", false),

		BlinkUpperRows: e.integer("BLINK_UPPER_ROWS", 0),
		BlinkLowerRows: e.integer("BLINK_LOWER_ROWS", 0),
	}

	if len(e.errs) > 0 {
		return nil, fmt.Errorf("config: %s", strings.Join(e.errs, "; "))
	}
	return cfg, nil
}

// Settings собирает параметры анализа и проверяет их.
func (c *Config) Settings() (entity.AnalysisSettings, error) {
	mode, err := entity.ParseTorsionMode(c.TorsionMode)
	if err != nil {
		return entity.AnalysisSettings{}, err
	}

	var transform entity.TransformMode
	switch c.TransformMode {
	case entity.FullTransform{}.Name():
		full := entity.FullTransform{}
		if c.UpperIris != (entity.Point{}) && c.LowerIris != (entity.Point{}) {
			full.Occlusion = &entity.OcclusionPoints{Upper: c.UpperIris, Lower: c.LowerIris}
		}
		transform = full
	case entity.SubsetTransform{}.Name():
		if transform, err = entity.NewSubsetTransform(c.Feature, c.WindowTheta, c.SegmentTheta); err != nil {
			return entity.AnalysisSettings{}, err
		}
	case entity.AlternateTransform{}.Name():
		if transform, err = entity.NewAlternateTransform(c.Feature, c.WindowTheta); err != nil {
			return entity.AnalysisSettings{}, err
		}
	default:
		return entity.AnalysisSettings{}, fmt.Errorf("%w: transform mode %q, want full, subset or alternate",
			entity.ErrInvalidSettings, c.TransformMode)
	}

	s := entity.AnalysisSettings{
		WindowRadius: c.WindowRadius,
		Correlation: entity.CorrelationConfig{
			Mode:       mode,
			Resolution: c.Resolution,
			Threshold:  c.CorrThreshold,
			MaxAngle:   c.MaxAngle,
		},
		Transform:           transform,
		StartFrame:          c.StartFrame,
		EndFrame:            c.EndFrame,
		ReferenceFrame:      c.ReferenceFrame,
		PupilThreshold:      c.PupilThreshold,
		EyeRadius:           c.EyeRadius,
		GeometricCorrection: c.GeometricCorrection,
		Geometry:            entity.DefaultGeometry(),
	}
	if err := s.Validate(); err != nil {
		return entity.AnalysisSettings{}, err
	}
	return s, nil
}

// env читает переменные окружения и копит ошибки разбора.
type env struct {
	errs []string
}

func (e *env) text(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func (e *env) number(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Sprintf("%s=%q is not a number", key, v))
		return def
	}
	return f
}

func (e *env) integer(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Sprintf("%s=%q is not an integer", key, v))
		return def
	}
	return n
}

func (e *env) flag(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Sprintf("%s=%q is not a boolean", key, v))
		return def
	}
	return b
}
