package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"ocular-torsion/internal/domain/entity"
	"ocular-torsion/internal/domain/port"
)

// AnalysisService проводит видео через весь конвейер: кадры, зрачки,
// торсион, сохранение и отчёты.
type AnalysisService struct {
	users    *UserService
	opener   port.VideoOpener
	pupils   *PupilService
	torsion  *TorsionService
	blinks   port.BlinkDetector
	results  port.ResultRepository
	chart    port.ResultRenderer
	table    port.ResultRenderer
	settings entity.AnalysisSettings
	logger   *log.Logger
}

// AnalysisOutput содержит результат и отчёты для пользователя.
type AnalysisOutput struct {
	Result *entity.TorsionResult
	Chart  []byte // PNG
	Table  []byte // CSV
}

// AnalysisDeps перечисляет зависимости сервиса анализа. Blinks, Results, Chart и
// Table необязательны.
type AnalysisDeps struct {
	Users    *UserService
	Opener   port.VideoOpener
	Detector port.PupilDetector
	Blinks   port.BlinkDetector
	Results  port.ResultRepository
	Chart    port.ResultRenderer
	Table    port.ResultRenderer
	Logger   *log.Logger
}

// NewAnalysisService создаёт сервис анализа с настройками по умолчанию.
func NewAnalysisService(deps AnalysisDeps, settings entity.AnalysisSettings) *AnalysisService {
	logger := deps.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &AnalysisService{
		users:    deps.Users,
		opener:   deps.Opener,
		pupils:   NewPupilService(deps.Detector, logger),
		torsion:  NewTorsionService(deps.Detector, logger),
		blinks:   deps.Blinks,
		results:  deps.Results,
		chart:    deps.Chart,
		table:    deps.Table,
		settings: settings,
		logger:   logger,
	}
}

// Settings возвращает настройки по умолчанию.
func (s *AnalysisService) Settings() entity.AnalysisSettings {
	return s.settings
}

// Analyze обрабатывает видеофайл с заданными настройками.
func (s *AnalysisService) Analyze(ctx context.Context, path string, settings entity.AnalysisSettings) (*AnalysisOutput, error) {
	if s.opener == nil {
		return nil, errors.New("video opener is not configured")
	}

	frames, err := s.opener.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("open video: %w", err)
	}
	defer frames.Close()

	settings = settings.Resolve(frames.Len())
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	started := time.Now()
	pupils, err := s.pupils.Locate(ctx, frames, settings.StartFrame, settings.EndFrame, settings.PupilThreshold, settings.ReferenceFrame)
	if err != nil {
		return nil, fmt.Errorf("locate pupils: %w", err)
	}

	result, err := s.torsion.Quantify(ctx, TorsionRequest{
		Frames:   frames,
		Pupils:   pupils,
		Blinks:   s.blinks,
		Settings: settings,
	})
	if err != nil {
		return nil, fmt.Errorf("quantify torsion: %w", err)
	}
	result.VideoPath = path
	result.CreatedAt = started.UTC()

	s.logger.Printf("Analysis of %s: %d/%d frames measured in %s",
		path, result.ValidCount(), result.End-result.Start, time.Since(started).Round(time.Millisecond))

	if s.results != nil {
		if err := s.results.Save(ctx, result); err != nil {
			return nil, fmt.Errorf("save result: %w", err)
		}
	}

	out := &AnalysisOutput{Result: result}
	if s.chart != nil {
		if out.Chart, err = s.chart.Render(ctx, result); err != nil {
			return nil, fmt.Errorf("render chart: %w", err)
		}
	}
	if s.table != nil {
		if out.Table, err = s.table.Render(ctx, result); err != nil {
			return nil, fmt.Errorf("render table: %w", err)
		}
	}
	return out, nil
}

// AnalyzeForUser запускает анализ от имени пользователя бота.
// Пока анализ идёт, пользователь находится в состоянии StateProcessing.
func (s *AnalysisService) AnalyzeForUser(ctx context.Context, userID, chatID int64, path string) (*AnalysisOutput, error) {
	_, started, err := s.users.StartProcessing(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}
	if !started {
		return nil, ErrAnalysisInProgress
	}

	out, err := s.Analyze(ctx, path, s.settings)
	if err != nil {
		if _, resetErr := s.users.Cancel(ctx, userID, chatID); resetErr != nil {
			s.logger.Printf("Error resetting user %d: %v", userID, resetErr)
		}
		return nil, err
	}

	if _, err := s.users.Finish(ctx, userID, chatID, out.Result.ID); err != nil {
		return nil, err
	}
	return out, nil
}

// Last возвращает последний сохранённый результат пользователя.
func (s *AnalysisService) Last(ctx context.Context, userID, chatID int64) (*entity.TorsionResult, error) {
	if s.results == nil {
		return nil, entity.ErrResultNotFound
	}
	user, err := s.users.Get(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}
	if user.LastResultID == "" {
		return nil, entity.ErrResultNotFound
	}
	return s.results.Load(ctx, user.LastResultID)
}

// ErrAnalysisInProgress: у пользователя уже идёт анализ.
var ErrAnalysisInProgress = errors.New("analysis already in progress")
