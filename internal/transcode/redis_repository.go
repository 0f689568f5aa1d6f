package transcode

import (
	"context"

	"github.com/streamhive/live-backend/internal/models"
)

// RedisRepository is the fast cache for job records, keyed by job id.
type RedisRepository interface {
	SetJob(ctx context.Context, job *models.TranscodeJob) error
	GetJob(ctx context.Context, jobID string) (*models.TranscodeJob, error)
	DeleteJob(ctx context.Context, jobID string) error
}
