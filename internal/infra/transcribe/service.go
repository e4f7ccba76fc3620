// Package transcribe owns the speech-to-text capability. A Service wraps
// one lazily constructed engine: the first request pays the model
// acquisition cost under an extended timeout, and the outcome, good or bad,
// holds for the rest of the process.
package transcribe

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"voice-player/internal/domain"
	"voice-player/internal/ingest"
)

const (
	EngineOpenAI     = "openai"
	EngineWhisperCLI = "whispercli"
)

const (
	defaultLoadTimeout    = 10 * time.Minute
	defaultRequestTimeout = 30 * time.Second
)

type Config struct {
	Engine   string
	Model    string
	BaseURL  string
	APIKey   string
	Language string

	// whispercli engine only.
	Binary   string
	ModelDir string

	// LoadTimeout bounds one-time model acquisition, RequestTimeout bounds
	// each transcription call.
	LoadTimeout    time.Duration
	RequestTimeout time.Duration
}

// Engine is one transcription backend behind the Service.
type Engine interface {
	Transcribe(ctx context.Context, clip *domain.Clip) (string, error)
	Close() error
}

type Service struct {
	cfg    Config
	logger *slog.Logger

	once   sync.Once
	engine Engine
	err    error

	newEngine func(ctx context.Context, cfg Config, logger *slog.Logger) (Engine, error)
}

func NewService(cfg Config, logger *slog.Logger) *Service {
	if cfg.LoadTimeout <= 0 {
		cfg.LoadTimeout = defaultLoadTimeout
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	return &Service{
		cfg:       cfg,
		logger:    logger,
		newEngine: newEngine,
	}
}

func (s *Service) Transcribe(ctx context.Context, clip *domain.Clip) (string, error) {
	engine, err := s.ensureLoaded()
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	text, err := engine.Transcribe(ctx, clip)
	if err != nil {
		return "", domain.Wrap(domain.KindInference, "transcribe.Service", "transcribing clip", err)
	}
	return text, nil
}

// ensureLoaded constructs the engine exactly once. Concurrent first callers
// block on the same construction and share its outcome.
func (s *Service) ensureLoaded() (Engine, error) {
	s.once.Do(s.load)
	if s.err != nil {
		return nil, s.err
	}
	if s.engine == nil {
		return nil, domain.New(domain.KindModelLoad, "transcribe.Service", "transcriber closed before first use")
	}
	return s.engine, nil
}

// load runs under its own timeout, detached from whichever request
// triggered it.
func (s *Service) load() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.LoadTimeout)
	defer cancel()

	s.logger.Info("loading transcription model",
		"engine", s.cfg.Engine,
		"model", s.cfg.Model,
		"timeout", s.cfg.LoadTimeout,
	)
	start := time.Now()

	engine, err := s.newEngine(ctx, s.cfg, s.logger)
	if err != nil {
		s.err = domain.Wrap(domain.KindModelLoad, "transcribe.Service",
			fmt.Sprintf("loading model %q", s.cfg.Model), err)
		s.logger.Error("transcription model unavailable until restart", "error", s.err)
		return
	}

	s.engine = engine
	s.logger.Info("transcription model ready", "elapsed", time.Since(start).Round(time.Millisecond))
}

// Close seals the service: an engine that never loaded stays unloaded.
func (s *Service) Close() error {
	s.once.Do(func() {})
	if s.engine != nil {
		return s.engine.Close()
	}
	return nil
}

func newEngine(ctx context.Context, cfg Config, logger *slog.Logger) (Engine, error) {
	switch cfg.Engine {
	case EngineOpenAI, "":
		return newOpenAIEngine(ctx, cfg, logger)
	case EngineWhisperCLI:
		return newWhisperCLIEngine(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown transcription engine %q (supported: %s, %s)",
			cfg.Engine, EngineOpenAI, EngineWhisperCLI)
	}
}

// tempWAV writes the clip to a temporary WAV file for engines whose
// backends want a container on disk. The cleanup func must run on every
// path.
func tempWAV(clip *domain.Clip) (string, func(), error) {
	f, err := os.CreateTemp("", "voice-player-*.wav")
	if err != nil {
		return "", nil, fmt.Errorf("creating temp audio file: %w", err)
	}
	path := f.Name()
	cleanup := func() { os.Remove(path) }

	if err := ingest.WriteWAV(f, clip); err != nil {
		f.Close()
		cleanup()
		return "", nil, fmt.Errorf("writing temp audio file: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("closing temp audio file: %w", err)
	}
	return path, cleanup, nil
}
