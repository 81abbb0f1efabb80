package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"ocular-torsion/config"
	telegram "ocular-torsion/internal/api"
	"ocular-torsion/internal/container"
	"ocular-torsion/internal/domain/port"
	"ocular-torsion/internal/infrastructure/report"
	"ocular-torsion/internal/infrastructure/storage"
	"ocular-torsion/internal/infrastructure/vision"
)

func main() {
	videoPath := flag.String("video", "", "analyse a video file or frame directory and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *videoPath != "" {
		cfg.VideoPath = *videoPath
	}

	settings, err := cfg.Settings()
	if err != nil {
		log.Fatalf("Invalid analysis settings: %v", err)
	}

	results, err := storage.NewSQLiteResultRepository(cfg.ResultsDB)
	if err != nil {
		log.Fatalf("Failed to open results database: %v", err)
	}
	defer results.Close()

	var blinks port.BlinkDetector
	if cfg.BlinkUpperRows > 0 || cfg.BlinkLowerRows > 0 {
		blinks = vision.LidBandDetector{UpperRows: cfg.BlinkUpperRows, LowerRows: cfg.BlinkLowerRows}
	}

	// Собираем сервисы приложения
	appContainer := container.New(container.Deps{
		Users:    storage.NewMemoryUserRepository(),
		Opener:   vision.NewVideoOpener(cfg.FramesFPS),
		Detector: vision.NewPupilDetector(),
		Blinks:   blinks,
		Results:  results,
		Chart:    report.NewChartRenderer(),
		Table:    report.TableRenderer{},
	}, settings)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.VideoPath != "" {
		if err := runBatch(ctx, appContainer, cfg); err != nil {
			log.Fatalf("Analysis failed: %v", err)
		}
		return
	}

	if cfg.TelegramToken == "" {
		log.Fatal("TELEGRAM_TOKEN is required")
	}

	// Создаём бота
	bot, err := telegram.NewBot(cfg.TelegramToken, appContainer)
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}

	log.Println("Bot is running...")
	if err := bot.Run(ctx); err != nil {
		log.Fatalf("Bot error: %v", err)
	}
}

// runBatch анализирует одно видео и записывает график и таблицу на диск.
func runBatch(ctx context.Context, c *container.Container, cfg *config.Config) error {
	svc := c.AnalysisService
	out, err := svc.Analyze(ctx, cfg.VideoPath, svc.Settings())
	if err != nil {
		return err
	}

	if err := os.WriteFile(cfg.PlotPath, out.Chart, 0o644); err != nil {
		return err
	}
	if err := os.WriteFile(cfg.CSVPath, out.Table, 0o644); err != nil {
		return err
	}

	log.Printf("Result %s saved, chart %s, table %s", out.Result.ID, cfg.PlotPath, cfg.CSVPath)
	log.Println(telegram.Summary(out.Result))
	return nil
}
