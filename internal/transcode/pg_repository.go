package transcode

import (
	"context"
	"time"

	"github.com/streamhive/live-backend/internal/models"
	"github.com/streamhive/live-backend/pkg/utils"
)

// Repository is the durable store for transcode jobs.
type Repository interface {
	CreateJob(ctx context.Context, job *models.TranscodeJob) error
	UpdateJob(ctx context.Context, job *models.TranscodeJob) error
	GetJobByID(ctx context.Context, jobID string) (*models.TranscodeJob, error)
	GetJobs(ctx context.Context, ownerID string, pq *utils.Pagination) (*models.JobList, error)
	GetAllJobs(ctx context.Context) ([]*models.TranscodeJob, error)
	DeleteJob(ctx context.Context, jobID string) error
	DeleteTerminalJobsBefore(ctx context.Context, cutoff time.Time) ([]string, error)
}
