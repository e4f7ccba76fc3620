package application

import (
	"context"

	"voice-player/internal/domain"
)

// Transcriber converts a decoded clip into the model's verbatim text.
// No text cleanup happens here; normalization is a separate stage.
type Transcriber interface {
	Transcribe(ctx context.Context, clip *domain.Clip) (string, error)
}
