package entity

import "fmt"

// TorsionMode — способ уточнения сдвига до долей градуса.
type TorsionMode string

const (
	ModeInterp   TorsionMode = "interp"   // интерполяция коэффициентов корреляции
	ModeUpsample TorsionMode = "upsample" // развёртка с повышенным угловым разрешением
)

// ParseTorsionMode разбирает строковое имя режима.
func ParseTorsionMode(s string) (TorsionMode, error) {
	switch TorsionMode(s) {
	case ModeInterp, ModeUpsample:
		return TorsionMode(s), nil
	}
	return "", fmt.Errorf("%w: torsion mode %q, want interp or upsample", ErrInvalidSettings, s)
}

// CorrelationConfig содержит параметры поиска корреляции.
type CorrelationConfig struct {
	Mode       TorsionMode
	Resolution float64 // шаг интерполяции либо угловое разрешение развёртки
	Threshold  float64 // коэффициенты не выше порога отбрасываются
	MaxAngle   float64 // максимальный торсион в градусах
}

// UpsampleFactor возвращает угловое разрешение развёртки.
func (c CorrelationConfig) UpsampleFactor() float64 {
	if c.Mode == ModeUpsample {
		return c.Resolution
	}
	return 1
}

// Validate проверяет параметры корреляции.
func (c CorrelationConfig) Validate() error {
	if _, err := ParseTorsionMode(string(c.Mode)); err != nil {
		return err
	}
	if c.Resolution <= 0 || c.Resolution > 1 {
		return fmt.Errorf("%w: resolution %.4f must be in (0, 1]", ErrInvalidSettings, c.Resolution)
	}
	if c.MaxAngle <= 0 || c.MaxAngle >= 180 {
		return fmt.Errorf("%w: max angle %.2f must be in (0, 180)", ErrInvalidSettings, c.MaxAngle)
	}
	if c.Threshold < 0 || c.Threshold >= 1 {
		return fmt.Errorf("%w: threshold %.2f must be in [0, 1)", ErrInvalidSettings, c.Threshold)
	}
	return nil
}

// GeometryConstants — калибровочные константы геометрической коррекции.
// Подобраны эмпирически, не выведены из физики глаза.
type GeometryConstants struct {
	AxisRatioThreshold float64 // ниже этого отношения осей включается коррекция
	AngleA             float64 // коэффициент при φ⁴
	AngleB             float64 // коэффициент при φ²
}

// DefaultGeometry возвращает константы по умолчанию.
func DefaultGeometry() GeometryConstants {
	return GeometryConstants{
		AxisRatioThreshold: 0.9,
		AngleA:             1.8698e-9,
		AngleB:             -1.0947e-4,
	}
}

// AnalysisSettings — полный набор параметров одного прогона.
type AnalysisSettings struct {
	WindowRadius        float64 // толщина развёртки по радиусу, пиксели
	Correlation         CorrelationConfig
	Transform           TransformMode
	StartFrame          int
	EndFrame            int // не включительно, 0 — до конца видео
	ReferenceFrame      int
	PupilThreshold      float64
	EyeRadius           float64 // 0: выводится из отношения осей
	GeometricCorrection bool
	Geometry            GeometryConstants
}

// Validate проверяет согласованность параметров.
func (s AnalysisSettings) Validate() error {
	if s.WindowRadius <= 0 {
		return fmt.Errorf("%w: window radius must be positive", ErrInvalidSettings)
	}
	if err := s.Correlation.Validate(); err != nil {
		return err
	}
	if s.Transform == nil {
		return fmt.Errorf("%w: transform mode is required", ErrInvalidSettings)
	}
	if err := s.Transform.Validate(); err != nil {
		return err
	}
	if s.StartFrame < 0 || (s.EndFrame != 0 && s.EndFrame <= s.StartFrame) {
		return fmt.Errorf("%w: frame range [%d, %d) is empty", ErrInvalidSettings, s.StartFrame, s.EndFrame)
	}
	if s.ReferenceFrame < 0 {
		return fmt.Errorf("%w: reference frame %d is negative", ErrInvalidSettings, s.ReferenceFrame)
	}
	if s.EyeRadius < 0 {
		return fmt.Errorf("%w: eye radius %.2f is negative", ErrInvalidSettings, s.EyeRadius)
	}
	if sub, ok := s.Transform.(SubsetTransform); ok {
		// окно поиска должно вмещать ±MaxAngle
		if sub.SegmentTheta-sub.WindowTheta < s.Correlation.MaxAngle {
			return fmt.Errorf("%w: segment theta %.1f - window theta %.1f is less than max angle %.1f",
				ErrInvalidSettings, sub.SegmentTheta, sub.WindowTheta, s.Correlation.MaxAngle)
		}
	}
	return nil
}

// Resolve подставляет длину видео вместо нулевого конца диапазона.
func (s AnalysisSettings) Resolve(frameCount int) AnalysisSettings {
	if s.EndFrame == 0 {
		s.EndFrame = frameCount
	}
	return s
}

// TransformMode выбирает участок радужки для корреляции.
type TransformMode interface {
	Name() string
	Validate() error
}

// OcclusionPoints — две точки на границе радужки, не закрытой веками.
type OcclusionPoints struct {
	Upper Point
	Lower Point
}

// FullTransform коррелирует всю радужку.
type FullTransform struct {
	Occlusion *OcclusionPoints // если задано, закрытые веками сектора заменяются шумом
}

func (FullTransform) Name() string    { return "full" }
func (FullTransform) Validate() error { return nil }

// SubsetTransform — корреляция в окрестности отслеживаемой детали радужки.
type SubsetTransform struct {
	Feature      Point
	WindowTheta  float64 // полуширина опорного окна вокруг детали
	SegmentTheta float64 // полуширина сегмента текущего кадра
}

func (SubsetTransform) Name() string { return "subset" }

func (m SubsetTransform) Validate() error {
	if m.WindowTheta <= 0 || m.SegmentTheta <= 0 {
		return fmt.Errorf("%w: subset mode needs window and segment theta", ErrInvalidSettings)
	}
	if m.SegmentTheta <= m.WindowTheta {
		return fmt.Errorf("%w: segment theta %.1f must exceed window theta %.1f", ErrInvalidSettings, m.SegmentTheta, m.WindowTheta)
	}
	return nil
}

// NewSubsetTransform создаёт режим subset с проверкой параметров.
func NewSubsetTransform(feature Point, windowTheta, segmentTheta float64) (SubsetTransform, error) {
	m := SubsetTransform{Feature: feature, WindowTheta: windowTheta, SegmentTheta: segmentTheta}
	return m, m.Validate()
}

// AlternateTransform — окно вокруг детали сравнивается с опорой, расширенной на ±MaxAngle.
type AlternateTransform struct {
	Feature     Point
	WindowTheta float64
}

func (AlternateTransform) Name() string { return "alternate" }

func (m AlternateTransform) Validate() error {
	if m.WindowTheta <= 0 {
		return fmt.Errorf("%w: alternate mode needs window theta", ErrInvalidSettings)
	}
	return nil
}

// NewAlternateTransform создаёт режим alternate с проверкой параметров.
func NewAlternateTransform(feature Point, windowTheta float64) (AlternateTransform, error) {
	m := AlternateTransform{Feature: feature, WindowTheta: windowTheta}
	return m, m.Validate()
}
