package container

import (
	"log"

	app "ocular-torsion/internal/application"
	"ocular-torsion/internal/domain/entity"
	"ocular-torsion/internal/domain/port"
)

type Container struct {
	UserService     *app.UserService
	AnalysisService *app.AnalysisService
}

// Deps собирает внешние реализации портов.
type Deps struct {
	Users    port.UserRepository
	Opener   port.VideoOpener
	Detector port.PupilDetector
	Blinks   port.BlinkDetector
	Results  port.ResultRepository
	Chart    port.ResultRenderer
	Table    port.ResultRenderer
	Logger   *log.Logger
}

func New(deps Deps, settings entity.AnalysisSettings) *Container {
	userService := app.NewUserService(deps.Users)
	analysisService := app.NewAnalysisService(app.AnalysisDeps{
		Users:    userService,
		Opener:   deps.Opener,
		Detector: deps.Detector,
		Blinks:   deps.Blinks,
		Results:  deps.Results,
		Chart:    deps.Chart,
		Table:    deps.Table,
		Logger:   deps.Logger,
	}, settings)

	return &Container{
		UserService:     userService,
		AnalysisService: analysisService,
	}
}
