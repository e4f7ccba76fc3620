package transcribe

import (
	"context"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	"voice-player/internal/domain"
)

// openaiEngine talks to an OpenAI-compatible transcription endpoint. With a
// base URL override this also covers local servers speaking the same API.
type openaiEngine struct {
	client   *openai.Client
	model    string
	language string
	logger   *slog.Logger
}

func newOpenAIEngine(ctx context.Context, cfg Config, logger *slog.Logger) (Engine, error) {
	if cfg.APIKey == "" && cfg.BaseURL == "" {
		return nil, fmt.Errorf("openai engine needs transcriber.api_key, or transcriber.base_url for a local server")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	client := openai.NewClientWithConfig(clientConfig)

	// Compatible servers may pull the model on first reference, which can
	// take minutes. The probe therefore runs under the load timeout.
	if _, err := client.GetModel(ctx, cfg.Model); err != nil {
		return nil, fmt.Errorf("probing model %q: %w", cfg.Model, err)
	}
	logger.Info("transcription endpoint ready", "model", cfg.Model)

	return &openaiEngine{
		client:   client,
		model:    cfg.Model,
		language: cfg.Language,
		logger:   logger,
	}, nil
}

func (e *openaiEngine) Transcribe(ctx context.Context, clip *domain.Clip) (string, error) {
	path, cleanup, err := tempWAV(clip)
	if err != nil {
		return "", err
	}
	defer cleanup()

	resp, err := e.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    e.model,
		FilePath: path,
		Language: e.language,
	})
	if err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}
	return resp.Text, nil
}

func (e *openaiEngine) Close() error { return nil }
