package application

import (
	"context"
	"fmt"
	"log/slog"
)

// Player drives recognition from a capture source: it pulls clips, runs
// each through the pipeline, and hands the terminal result to the
// dispatcher.
type Player struct {
	source     Source
	pipeline   *Pipeline
	dispatcher Dispatcher
	logger     *slog.Logger
}

func NewPlayer(source Source, pipeline *Pipeline, dispatcher Dispatcher, logger *slog.Logger) *Player {
	return &Player{
		source:     source,
		pipeline:   pipeline,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

func (p *Player) Run(ctx context.Context) error {
	p.logger.Info("starting audio source", "source", p.source.Name())
	if err := p.source.Start(ctx); err != nil {
		return fmt.Errorf("starting audio: %w", err)
	}
	defer p.source.Stop()

	p.logger.Info("listening for commands")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if err := p.processOneClip(ctx); err != nil {
				p.logger.Error("processing clip", "error", err)
			}
		}
	}
}

func (p *Player) processOneClip(ctx context.Context) error {
	raw, err := p.source.NextClip(ctx)
	if err != nil {
		return fmt.Errorf("getting audio: %w", err)
	}
	if len(raw) == 0 {
		return nil
	}

	p.logger.Info("received audio", "bytes", len(raw))

	result := p.pipeline.Run(ctx, raw)
	if err := p.dispatcher.Dispatch(ctx, result); err != nil {
		p.logger.Error("dispatching result", "error", err)
	}
	return nil
}
