package transcode

import (
	"context"

	"github.com/streamhive/live-backend/internal/models"
)

// TranscodeResult is the artifact produced by one quality step.
type TranscodeResult struct {
	OutputPath string
	Size       int64
}

// Transcoder converts a recording into one delivery quality at a time.
// Implementations block until the conversion finishes or ctx is cancelled.
type Transcoder interface {
	Transcode(ctx context.Context, inputPath string, profile models.QualityProfile) (*TranscodeResult, error)
	GenerateThumbnail(ctx context.Context, inputPath string) (string, error)
	Probe(ctx context.Context, inputPath string) (*models.MediaInfo, error)
}
