package transcode

import (
	"context"
	"time"

	"github.com/streamhive/live-backend/internal/models"
	"github.com/streamhive/live-backend/pkg/utils"
)

// UseCase is the transcode job queue: durable, restart-safe execution of
// multi-quality transcoding with a global concurrency cap.
type UseCase interface {
	// AddJob persists a pending job and wakes the scheduler.
	AddJob(ctx context.Context, ownerID string, inputPath string, options models.JobOptions) (string, error)

	GetJob(ctx context.Context, jobID string) (*models.TranscodeJob, error)
	ListJobs(ctx context.Context, ownerID string, pagination *utils.Pagination) (*models.JobList, error)

	// Retry moves a failed job back to pending, discarding prior outputs.
	Retry(ctx context.Context, jobID string) error

	// Cancel marks a job failed with error "cancelled". In-flight jobs stop
	// cooperatively at the next quality step.
	Cancel(ctx context.Context, jobID string) error

	// Cleanup removes terminal jobs older than the retention window.
	Cleanup(ctx context.Context, retentionWindow time.Duration) int

	// Start launches the scheduler and cleanup loops; Stop drains them and
	// waits for in-flight job bodies.
	Start(ctx context.Context) error
	Stop()
}
