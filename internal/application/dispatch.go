package application

import (
	"context"

	"voice-player/internal/domain"
)

// Dispatcher receives every terminal result from the capture loop.
// Implementations decide what a match means: launching a video player,
// logging, or nothing at all.
type Dispatcher interface {
	Dispatch(ctx context.Context, result *domain.Result) error
}

type NoopDispatcher struct{}

func (n *NoopDispatcher) Dispatch(_ context.Context, _ *domain.Result) error {
	return nil
}
