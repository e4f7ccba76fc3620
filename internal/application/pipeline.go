package application

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"voice-player/internal/domain"
	"voice-player/internal/ingest"
	"voice-player/internal/normalize"
)

// Resolver matches canonical tokens against the command registry.
type Resolver interface {
	Resolve(token string) (*domain.Resource, bool)
	Tokens() []string
}

// Pipeline runs one utterance through decoding, transcription,
// normalization and command matching. Every input produces exactly one
// terminal Result; failures are results too, never retried.
type Pipeline struct {
	decoder     *ingest.Decoder
	transcriber Transcriber
	resolver    Resolver
	logger      *slog.Logger
}

func NewPipeline(decoder *ingest.Decoder, transcriber Transcriber, resolver Resolver, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		decoder:     decoder,
		transcriber: transcriber,
		resolver:    resolver,
		logger:      logger,
	}
}

func (p *Pipeline) Run(ctx context.Context, raw []byte) *domain.Result {
	res := &domain.Result{RequestID: uuid.NewString()}
	log := p.logger.With("request_id", res.RequestID)

	clip, err := p.decoder.Decode(raw)
	if err != nil {
		return p.fail(log, res, err)
	}
	log.Debug("audio decoded",
		"samples", len(clip.Samples),
		"sample_rate", clip.SampleRate,
		"duration", clip.Duration(),
	)

	text, err := p.transcriber.Transcribe(ctx, clip)
	if err != nil {
		return p.fail(log, res, err)
	}
	res.Text = text

	res.Token = normalize.Canonical(text)
	if res.Token == "" {
		res.Status = domain.StatusUnmatched
		res.Available = p.resolver.Tokens()
		log.Info("nothing recognized", "text", text)
		return res
	}

	if resource, ok := p.resolver.Resolve(res.Token); ok {
		res.Status = domain.StatusMatched
		res.Resource = resource
		log.Info("command matched", "token", res.Token, "video", resource.Path)
		return res
	}

	res.Status = domain.StatusUnmatched
	res.Available = p.resolver.Tokens()
	log.Info("no video for command", "token", res.Token)
	return res
}

func (p *Pipeline) fail(log *slog.Logger, res *domain.Result, err error) *domain.Result {
	res.Status = domain.StatusFailed
	res.Err = err
	res.ErrKind = domain.KindOf(err)
	log.Error("recognition failed", "kind", res.ErrKind, "error", err)
	return res
}
