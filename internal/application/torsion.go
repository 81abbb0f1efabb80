package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"ocular-torsion/internal/domain/entity"
	"ocular-torsion/internal/domain/iris"
	"ocular-torsion/internal/domain/port"
	"ocular-torsion/internal/domain/xcorr"
)

// TorsionRequest содержит входные данные одного прогона.
type TorsionRequest struct {
	Frames   port.FrameSource
	Pupils   map[int]*entity.Pupil // nil, если зрачок на кадре не найден
	Blinks   port.BlinkDetector    // необязателен
	Settings entity.AnalysisSettings
}

// TorsionService последовательно измеряет торсион по кадрам видео.
//
// Сервис не хранит состояния прогона: развёртчик и источник шума создаются
// на каждый вызов Quantify, поэтому один экземпляр обслуживает параллельные анализы.
type TorsionService struct {
	detector  port.PupilDetector
	estimator *xcorr.Estimator
	seed      *[2]uint64
	logger    *log.Logger
}

// NewTorsionService создаёт сервис. detector нужен, только если опорный
// кадр отличается от начального и его зрачок не передан в запросе.
func NewTorsionService(detector port.PupilDetector, logger *log.Logger) *TorsionService {
	if logger == nil {
		logger = log.Default()
	}
	return &TorsionService{
		detector:  detector,
		estimator: &xcorr.Estimator{Logger: logger},
		logger:    logger,
	}
}

// WithNoiseSeed фиксирует зерно шума для секторов век: каждый прогон
// получает свой генератор с этим зерном и повторяет один и тот же шум.
func (s *TorsionService) WithNoiseSeed(seed1, seed2 uint64) *TorsionService {
	s.seed = &[2]uint64{seed1, seed2}
	return s
}

func (s *TorsionService) noiseSource() rand.Source {
	if s.seed != nil {
		return rand.NewPCG(s.seed[0], s.seed[1])
	}
	return rand.NewPCG(rand.Uint64(), rand.Uint64())
}

// windowPlan описывает, какие участки радужки сравниваются в выбранном режиме.
type windowPlan struct {
	reference *entity.PolarImage // опорное окно, уже расширенное
	unwrap    entity.ThetaWindow // окно развёртки каждого кадра
	start     int                // столбец нулевого поворота

	// candidate выделяет из развёртки кадра сравниваемое окно
	candidate func(img *entity.PolarImage) *entity.PolarImage
	// previous строит опорное окно из развёртки предыдущего кадра
	previous func(img *entity.PolarImage) (*entity.PolarImage, error)
}

// Quantify измеряет торсион на кадрах [StartFrame, EndFrame).
//
// Ошибки отдельных кадров (нет зрачка, моргание, корреляция ниже порога,
// геометрия) превращаются в пропуски, в том числе на начальном кадре.
// Ошибка чтения кадра, отмена контекста, неверные параметры и отсутствие
// зрачка на опорном кадре прерывают прогон.
func (s *TorsionService) Quantify(ctx context.Context, req TorsionRequest) (*entity.TorsionResult, error) {
	if req.Frames == nil {
		return nil, errors.New("frame source is not configured")
	}
	cfg := req.Settings.Resolve(req.Frames.Len())
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	req.Settings = cfg
	if n := req.Frames.Len(); cfg.EndFrame > n || cfg.ReferenceFrame >= n {
		return nil, fmt.Errorf("%w: frames [%d, %d) and reference %d exceed video length %d",
			entity.ErrInvalidSettings, cfg.StartFrame, cfg.EndFrame, cfg.ReferenceFrame, n)
	}
	if cfg.Geometry == (entity.GeometryConstants{}) {
		cfg.Geometry = entity.DefaultGeometry()
	}
	unwrapper := iris.NewUnwrapper(cfg.Geometry)

	refPupil, err := s.referencePupil(ctx, req)
	if err != nil {
		return nil, err
	}

	// по начальному кадру отмечаются особенность и веки; без зрачка на нём
	// берётся зрачок опорного кадра
	featurePupil := req.Pupils[cfg.StartFrame]
	if featurePupil == nil {
		featurePupil = refPupil
	}

	plan, err := s.plan(ctx, req, unwrapper, featurePupil, refPupil)
	if err != nil {
		return nil, err
	}

	count := cfg.EndFrame - cfg.StartFrame
	result := &entity.TorsionResult{
		FPS:         req.Frames.FPS(),
		Settings:    cfg,
		Start:       cfg.StartFrame,
		End:         cfg.EndFrame,
		Reference:   cfg.ReferenceFrame,
		ByReference: entity.NewIndexed[entity.Estimate](cfg.StartFrame, count),
		ByPrevious:  entity.NewIndexed[entity.Estimate](cfg.StartFrame, count),
		Transforms:  entity.NewIndexed[*entity.PolarImage](cfg.StartFrame, count),
		States:      make([]entity.FrameState, 0, count),
		Pupils:      make(map[int]*entity.Pupil, count),
	}

	var correction *entity.Pupil
	if cfg.GeometricCorrection {
		correction = refPupil
	}

	// развёртка предыдущего кадра, nil если её нет
	var previous *entity.PolarImage

	for i := cfg.StartFrame; i < cfg.EndFrame; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		frame, err := req.Frames.Frame(ctx, i)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}

		pupil := req.Pupils[i]
		result.Pupils[i] = pupil

		state, reason, err := s.classify(ctx, req.Blinks, i, frame, pupil, cfg.ReferenceFrame)
		if err != nil {
			return nil, err
		}

		var byRef, byPrev entity.Estimate
		var current *entity.PolarImage

		switch state {
		case entity.StateDegenerate:
			s.logger.Printf("WARNING: frame %d: torsion cannot be calculated: %s", i, reason)
			byRef, byPrev = entity.Missing(reason), entity.Missing(reason)

		default:
			current, err = unwrapper.Unwrap(frame, pupil, s.unwrapOptions(cfg, plan.unwrap, correction))
			if err != nil {
				reason, ok := failureReason(err)
				if !ok {
					return nil, fmt.Errorf("frame %d: %w", i, err)
				}
				s.logger.Printf("WARNING: frame %d: unwrap failed: %s", i, reason)
				state = entity.StateDegenerate
				byRef, byPrev = entity.Missing(reason), entity.Missing(reason)
				break
			}

			if state == entity.StateReference {
				byRef, byPrev = entity.Measured(0), entity.Measured(0)
				break
			}

			candidate := plan.candidate(current)
			byRef, err = s.estimate(i, "reference", candidate, plan.reference, plan.start, cfg.Correlation)
			if err != nil {
				return nil, err
			}

			if previous == nil {
				byPrev = entity.Missing(entity.ReasonNoPrevious)
				break
			}
			prevRef, err := plan.previous(previous)
			if err != nil {
				return nil, fmt.Errorf("frame %d: previous window: %w", i, err)
			}
			byPrev, err = s.estimate(i, "previous", candidate, prevRef, plan.start, cfg.Correlation)
			if err != nil {
				return nil, err
			}
		}

		if err := result.ByReference.Append(i, byRef); err != nil {
			return nil, err
		}
		if err := result.ByPrevious.Append(i, byPrev); err != nil {
			return nil, err
		}
		if err := result.Transforms.Append(i, current); err != nil {
			return nil, err
		}
		result.States = append(result.States, state)
		previous = current
	}

	return result, nil
}

// referencePupil возвращает зрачок опорного кадра, при необходимости находя его детектором.
func (s *TorsionService) referencePupil(ctx context.Context, req TorsionRequest) (*entity.Pupil, error) {
	cfg := req.Settings
	if p := req.Pupils[cfg.ReferenceFrame]; p != nil {
		return p, nil
	}
	if cfg.ReferenceFrame == cfg.StartFrame || s.detector == nil {
		return nil, fmt.Errorf("reference frame %d: %w", cfg.ReferenceFrame, entity.ErrNoPupil)
	}

	frame, err := req.Frames.Frame(ctx, cfg.ReferenceFrame)
	if err != nil {
		return nil, fmt.Errorf("reference frame %d: %w", cfg.ReferenceFrame, err)
	}
	p, err := s.detector.Detect(ctx, frame, cfg.PupilThreshold)
	if err != nil {
		return nil, fmt.Errorf("reference frame %d: %w", cfg.ReferenceFrame, err)
	}
	return &p, nil
}

// plan строит опорное окно один раз на весь прогон.
//
// Запасы по краям окон задаются целым числом столбцов margin, тем же,
// что и максимальный сдвиг в оценщике.
func (s *TorsionService) plan(ctx context.Context, req TorsionRequest, unwrapper *iris.Unwrapper, featurePupil, refPupil *entity.Pupil) (*windowPlan, error) {
	cfg := req.Settings
	res := cfg.Correlation.UpsampleFactor()
	margin := int(cfg.Correlation.MaxAngle / res)
	pad := float64(margin) * res

	frame, err := req.Frames.Frame(ctx, cfg.ReferenceFrame)
	if err != nil {
		return nil, fmt.Errorf("reference frame %d: %w", cfg.ReferenceFrame, err)
	}
	unwrapReference := func(window entity.ThetaWindow) (*entity.PolarImage, error) {
		img, err := unwrapper.Unwrap(frame, refPupil, s.unwrapOptions(cfg, window, nil))
		if err != nil {
			return nil, fmt.Errorf("reference window: %w", err)
		}
		return img, nil
	}
	identity := func(img *entity.PolarImage) *entity.PolarImage { return img }

	switch mode := cfg.Transform.(type) {
	case entity.FullTransform:
		ref, err := unwrapReference(entity.FullTurn)
		if err != nil {
			return nil, err
		}
		if mode.Occlusion != nil {
			bounds := iris.MirrorOcclusion(*mode.Occlusion, *featurePupil)
			ref = iris.ReplaceWithNoise(ref, bounds.Upper, bounds.Lower, s.noiseSource())
		}
		ref, err = iris.Extend(ref, res, pad, pad)
		if err != nil {
			return nil, err
		}
		return &windowPlan{
			reference: ref,
			unwrap:    entity.FullTurn,
			start:     margin,
			candidate: identity,
			previous: func(img *entity.PolarImage) (*entity.PolarImage, error) {
				return iris.Extend(img, res, pad, pad)
			},
		}, nil

	case entity.SubsetTransform:
		_, theta := iris.PolarCoord(mode.Feature.Row, mode.Feature.Col, *featurePupil)
		ref, err := unwrapReference(entity.Around(theta, mode.WindowTheta))
		if err != nil {
			return nil, err
		}
		start := int((mode.SegmentTheta - mode.WindowTheta) / res)
		_, width := ref.Dims()
		return &windowPlan{
			reference: ref,
			unwrap:    entity.Around(theta, mode.SegmentTheta),
			start:     start,
			candidate: identity,
			previous: func(img *entity.PolarImage) (*entity.PolarImage, error) {
				return img.Columns(start, start+width), nil
			},
		}, nil

	case entity.AlternateTransform:
		_, theta := iris.PolarCoord(mode.Feature.Row, mode.Feature.Col, *featurePupil)
		width := int(math.Round(2 * mode.WindowTheta / res))
		ref, err := unwrapReference(entity.Around(theta, float64(width)*res/2+pad))
		if err != nil {
			return nil, err
		}
		return &windowPlan{
			reference: ref,
			unwrap:    ref.Window,
			start:     margin,
			candidate: func(img *entity.PolarImage) *entity.PolarImage {
				return img.Columns(margin, margin+width)
			},
			previous: func(img *entity.PolarImage) (*entity.PolarImage, error) {
				return img, nil
			},
		}, nil
	}

	return nil, fmt.Errorf("%w: unknown transform mode %q", entity.ErrInvalidSettings, cfg.Transform.Name())
}

func (s *TorsionService) unwrapOptions(cfg entity.AnalysisSettings, window entity.ThetaWindow, correction *entity.Pupil) iris.UnwrapOptions {
	return iris.UnwrapOptions{
		Thickness:       cfg.WindowRadius,
		Window:          window,
		ThetaResolution: cfg.Correlation.UpsampleFactor(),
		ReferencePupil:  correction,
		EyeRadius:       cfg.EyeRadius,
	}
}

// classify определяет состояние кадра по наличию зрачка и детектору моргания.
func (s *TorsionService) classify(ctx context.Context, blinks port.BlinkDetector, index int, frame *mat.Dense, pupil *entity.Pupil, reference int) (entity.FrameState, entity.FailureReason, error) {
	if pupil == nil {
		return entity.StateDegenerate, entity.ReasonNoPupil, nil
	}
	if blinks != nil {
		blink, err := blinks.Blink(ctx, index, frame, pupil)
		if err != nil {
			return "", "", fmt.Errorf("frame %d: blink detection: %w", index, err)
		}
		switch blink {
		case entity.Blink:
			return entity.StateDegenerate, entity.ReasonBlink, nil
		case entity.BlinkUnknown:
			return entity.StateDegenerate, entity.ReasonBlinkUnknown, nil
		}
	}
	if index == reference {
		return entity.StateReference, entity.ReasonNone, nil
	}
	return entity.StateNormal, entity.ReasonNone, nil
}

// estimate запускает корреляцию и переводит восстановимые ошибки в пропуск.
func (s *TorsionService) estimate(index int, against string, candidate, reference *entity.PolarImage, start int, cfg entity.CorrelationConfig) (entity.Estimate, error) {
	deg, err := s.estimator.Estimate(candidate.Data, reference.Data, start, cfg)
	if err == nil {
		return entity.Measured(deg), nil
	}
	reason, ok := failureReason(err)
	if !ok {
		return entity.Estimate{}, fmt.Errorf("frame %d: correlation against %s: %w", index, against, err)
	}
	s.logger.Printf("WARNING: frame %d: torsion against %s is missing: %s", index, against, reason)
	return entity.Missing(reason), nil
}

// failureReason сопоставляет восстановимой ошибке причину пропуска.
func failureReason(err error) (entity.FailureReason, bool) {
	switch {
	case errors.Is(err, entity.ErrNoPupil):
		return entity.ReasonNoPupil, true
	case errors.Is(err, entity.ErrGeometryDomain):
		return entity.ReasonGeometry, true
	case errors.Is(err, xcorr.ErrBelowThreshold):
		return entity.ReasonBelowThreshold, true
	case errors.Is(err, xcorr.ErrLackingInterpPoints):
		return entity.ReasonLackingInterp, true
	}
	return entity.ReasonNone, false
}
