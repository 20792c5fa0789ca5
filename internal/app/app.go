package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/sherrrrryzeng/dictation-trainer/internal/config"
	"github.com/sherrrrryzeng/dictation-trainer/internal/health"
	"github.com/sherrrrryzeng/dictation-trainer/internal/monitor"
	"github.com/sherrrrryzeng/dictation-trainer/internal/playback"
	"github.com/sherrrrryzeng/dictation-trainer/internal/segmentsource"
	"github.com/sherrrrryzeng/dictation-trainer/internal/server"
	"github.com/sherrrrryzeng/dictation-trainer/internal/service/practice_svc"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// PracticeServiceName is the name the practice API registers under with the
// gRPC health protocol.
const PracticeServiceName = "dictation.v1.Practice"

type Application struct {
	Config        config.Config
	Logger        *slog.Logger
	Server        *server.PracticeServer
	HealthChecker *health.HealthChecker
	practiceSvc   practice_svc.PracticeService
	loadMonitor   monitor.LoadMonitor
}

func New(ctx context.Context, configPath string) (*Application, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	loadMonitor := monitor.NewSemaphoreLoadMonitor(
		int64(cfg.Transcribe.MaxConcurrency),
		cfg.Health.LoadThreshold,
	)

	source, err := BuildSource(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	svc := practice_svc.NewPracticeService(
		source,
		log,
		loadMonitor,
		practice_svc.WithMaxAudioBytes(cfg.Upload.MaxBytes),
	)

	var healthChecker *health.HealthChecker
	if cfg.Health.Enabled {
		healthChecker = health.NewHealthChecker(loadMonitor)
		healthChecker.SetServingStatus(
			PracticeServiceName,
			grpc_health_v1.HealthCheckResponse_SERVING,
		)
	}

	httpServer := server.NewPracticeServer(
		log,
		svc,
		loadMonitor,
		PlaybackOptions(cfg)...,
	)

	return &Application{
		Config:        cfg,
		Logger:        log,
		Server:        httpServer,
		HealthChecker: healthChecker,
		practiceSvc:   svc,
		loadMonitor:   loadMonitor,
	}, nil
}

// BuildSource constructs the configured transcription collaborator.
func BuildSource(ctx context.Context, cfg config.Config, log *slog.Logger) (segmentsource.Source, error) {
	apiKey := os.Getenv(cfg.Source.APIKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("missing api key: set %s", cfg.Source.APIKeyEnv)
	}

	switch cfg.Source.Backend {
	case "gemini":
		return segmentsource.NewGeminiSource(ctx, apiKey, cfg.Source.Model, log)
	case "whisper_api":
		if cfg.Source.BaseURL == "" {
			return nil, fmt.Errorf("source.base_url is required for the whisper_api backend")
		}
		return segmentsource.NewWhisperAPISource(cfg.Source.BaseURL, apiKey, cfg.Source.Model, log), nil
	default:
		return nil, fmt.Errorf("unknown source backend %q", cfg.Source.Backend)
	}
}

// PlaybackOptions translates config into playback controller options.
func PlaybackOptions(cfg config.Config) []playback.Option {
	var opts []playback.Option
	if cfg.Playback.PollIntervalMs > 0 {
		opts = append(opts, playback.WithPollInterval(time.Duration(cfg.Playback.PollIntervalMs)*time.Millisecond))
	}
	if cfg.Playback.EndPaddingMs != nil {
		opts = append(opts, playback.WithEndPadding(time.Duration(*cfg.Playback.EndPaddingMs)*time.Millisecond))
	}
	return opts
}
