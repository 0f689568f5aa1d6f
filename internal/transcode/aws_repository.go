package transcode

import (
	"context"

	"github.com/streamhive/live-backend/internal/models"
)

// AWSRepository is the blob store for transcoded outputs and thumbnails.
type AWSRepository interface {
	// PutObject uploads a local file and returns its public URL.
	PutObject(ctx context.Context, input *models.UploadInput) (string, error)
	GetPresignedURL(ctx context.Context, bucket, key string) (string, error)
	RemoveObject(ctx context.Context, bucket, key string) error
}
