package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"voice-player/config"
	"voice-player/internal/application"
	"voice-player/internal/infra/audio"
	"voice-player/internal/infra/player"
	"voice-player/internal/infra/transcribe"
	"voice-player/internal/infra/web"
	"voice-player/internal/ingest"
	"voice-player/internal/registry"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	reg, err := registry.Load(cfg.Videos.Dir, cfg.Videos.Commands)
	if err != nil {
		logger.Error("loading command registry", "error", err)
		os.Exit(1)
	}
	logger.Info("command registry loaded", "dir", cfg.Videos.Dir, "commands", reg.Len())

	transcriber := transcribe.NewService(transcribe.Config{
		Engine:         cfg.Transcriber.Engine,
		Model:          cfg.Transcriber.Model,
		BaseURL:        cfg.Transcriber.BaseURL,
		APIKey:         cfg.Transcriber.APIKey,
		Language:       cfg.Transcriber.Language,
		Binary:         cfg.Transcriber.Binary,
		ModelDir:       cfg.Transcriber.ModelDir,
		LoadTimeout:    parseTimeout(cfg.Transcriber.LoadTimeout, 10*time.Minute, logger),
		RequestTimeout: parseTimeout(cfg.Transcriber.RequestTimeout, 30*time.Second, logger),
	}, logger)
	defer transcriber.Close()

	decoder := ingest.NewDecoder(cfg.Audio.SampleRate)
	pipeline := application.NewPipeline(decoder, transcriber, reg, logger)

	var dispatcher application.Dispatcher
	if cfg.Playback.Enabled {
		dispatcher = player.New(cfg.Playback.Command, logger)
	} else {
		dispatcher = &application.NoopDispatcher{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutting down")
		cancel()
	}()

	logger.Info("starting voice player",
		"engine", cfg.Transcriber.Engine,
		"http_addr", cfg.Audio.HTTPAddr,
		"capture_source", cfg.Audio.Source,
	)

	g, ctx := errgroup.WithContext(ctx)

	server := web.NewServer(cfg.Audio.HTTPAddr, cfg.Audio.AuthToken, pipeline, reg, logger)
	g.Go(func() error {
		return server.Run(ctx)
	})

	if source := createCaptureSource(cfg.Audio, logger); source != nil {
		capture := application.NewPlayer(source, pipeline, dispatcher, logger)
		g.Go(func() error {
			return capture.Run(ctx)
		})
	}

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Error("voice player error", "error", err)
		os.Exit(1)
	}
}

// createCaptureSource returns nil when no background capture loop is
// configured; the HTTP endpoint still serves requests in that case.
func createCaptureSource(cfg config.AudioConfig, logger *slog.Logger) application.Source {
	switch cfg.Source {
	case "microphone":
		return audio.NewMicrophoneSource(cfg.SampleRate, logger)
	case "file":
		return audio.NewFileSource(cfg.FileDir)
	default:
		return nil
	}
}

func parseTimeout(value string, fallback time.Duration, logger *slog.Logger) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		logger.Warn("invalid timeout, using default", "error", err, "value", value, "default", fallback.String())
		return fallback
	}
	return d
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
