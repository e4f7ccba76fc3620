package application

import "context"

// Source delivers complete utterances, one clip of encoded audio per call.
// Implementations block in NextClip until a clip is ready or ctx is done.
type Source interface {
	Start(ctx context.Context) error
	Stop() error
	NextClip(ctx context.Context) ([]byte, error)
	Name() string
}
