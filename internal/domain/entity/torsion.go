package entity

import (
	"fmt"
	"time"
)

// FailureReason объясняет, почему оценка кадра отсутствует.
type FailureReason string

const (
	ReasonNone           FailureReason = ""
	ReasonNoPupil        FailureReason = "no_pupil"        // зрачок не найден
	ReasonBlink          FailureReason = "blink"           // моргание
	ReasonBlinkUnknown   FailureReason = "blink_unknown"   // состояние века неизвестно
	ReasonGeometry       FailureReason = "geometry_domain" // геометрическая коррекция невозможна
	ReasonBelowThreshold FailureReason = "below_threshold" // корреляция ниже порога
	ReasonLackingInterp  FailureReason = "lacking_interp"  // мало точек для интерполяции
	ReasonNoPrevious     FailureReason = "no_previous"     // нет развёртки предыдущего кадра
)

// Estimate — оценка торсиона в градусах либо пропуск с причиной.
type Estimate struct {
	Degrees float64
	Valid   bool
	Reason  FailureReason
}

// Measured создаёт валидную оценку.
func Measured(deg float64) Estimate {
	return Estimate{Degrees: deg, Valid: true}
}

// Missing создаёт пропуск.
func Missing(reason FailureReason) Estimate {
	return Estimate{Reason: reason}
}

func (e Estimate) String() string {
	if !e.Valid {
		return fmt.Sprintf("missing(%s)", e.Reason)
	}
	return fmt.Sprintf("%.3f°", e.Degrees)
}

// FrameState описывает состояние кадра в последовательности.
type FrameState string

const (
	StateReference  FrameState = "reference"  // опорный кадр, торсион 0 по определению
	StateNormal     FrameState = "normal"     // зрачок есть, кадр обработан
	StateDegenerate FrameState = "degenerate" // зрачка нет или моргание
)

// BlinkState — трёхзначный признак моргания.
type BlinkState int

const (
	BlinkNone BlinkState = iota
	Blink
	BlinkUnknown
)

func (b BlinkState) String() string {
	switch b {
	case BlinkNone:
		return "no_blink"
	case Blink:
		return "blink"
	default:
		return "unknown"
	}
}

// Indexed — плотная последовательность значений по индексу кадра.
// Значения добавляются строго по возрастанию индекса, без пропусков.
type Indexed[T any] struct {
	start  int
	values []T
}

// NewIndexed создаёт пустую последовательность, начинающуюся с кадра start.
func NewIndexed[T any](start, capacity int) *Indexed[T] {
	return &Indexed[T]{start: start, values: make([]T, 0, capacity)}
}

// Append добавляет значение для следующего кадра.
func (s *Indexed[T]) Append(index int, v T) error {
	if want := s.start + len(s.values); index != want {
		return fmt.Errorf("series append out of order: got frame %d, want %d", index, want)
	}
	s.values = append(s.values, v)
	return nil
}

// At возвращает значение для кадра index.
func (s *Indexed[T]) At(index int) (T, bool) {
	var zero T
	i := index - s.start
	if i < 0 || i >= len(s.values) {
		return zero, false
	}
	return s.values[i], true
}

// Start возвращает первый индекс кадра.
func (s *Indexed[T]) Start() int { return s.start }

// End возвращает индекс после последнего кадра.
func (s *Indexed[T]) End() int { return s.start + len(s.values) }

// Len возвращает количество кадров.
func (s *Indexed[T]) Len() int { return len(s.values) }

// Values возвращает копию значений.
func (s *Indexed[T]) Values() []T {
	out := make([]T, len(s.values))
	copy(out, s.values)
	return out
}

// Series хранит временной ряд торсиона.
type Series = Indexed[Estimate]

// TransformSeries хранит развёртку радужки для каждого кадра (nil, если не получена).
type TransformSeries = Indexed[*PolarImage]

// TorsionResult хранит итог анализа видео.
type TorsionResult struct {
	ID          string
	VideoPath   string
	FPS         float64
	CreatedAt   time.Time
	Settings    AnalysisSettings
	Start       int
	End         int
	Reference   int
	ByReference *Series          // торсион относительно опорного окна
	ByPrevious  *Series          // торсион относительно предыдущего кадра
	Transforms  *TransformSeries // развёртки по кадрам
	States      []FrameState
	Pupils      map[int]*Pupil
}

// FrameTime возвращает время кадра в секундах.
func (r *TorsionResult) FrameTime(index int) float64 {
	if r.FPS <= 0 {
		return 0
	}
	return float64(index) / r.FPS
}

// ValidCount возвращает число кадров с валидной оценкой относительно опорного окна.
func (r *TorsionResult) ValidCount() int {
	n := 0
	for _, e := range r.ByReference.Values() {
		if e.Valid {
			n++
		}
	}
	return n
}
