package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/streamhive/live-backend/internal/models"
	"github.com/streamhive/live-backend/internal/transcode"
	"github.com/streamhive/live-backend/pkg/utils"
)

type jobRepo struct {
	db *sqlx.DB
}

func NewJobRepo(db *sqlx.DB) transcode.Repository {
	return &jobRepo{
		db: db,
	}
}

func (r *jobRepo) CreateJob(ctx context.Context, job *models.TranscodeJob) error {
	options, outputs, thumbnail, source, err := marshalJobBlobs(job)
	if err != nil {
		return errors.Wrap(err, "jobRepo.CreateJob.Marshal")
	}
	if _, err := r.db.ExecContext(
		ctx,
		createJobQuery,
		job.JobID,
		job.OwnerID,
		job.InputPath,
		options,
		job.Status,
		job.Progress,
		outputs,
		thumbnail,
		job.Error,
		source,
		job.CreatedAt,
		job.UpdatedAt,
		job.CompletedAt,
	); err != nil {
		return errors.Wrap(err, "jobRepo.CreateJob")
	}
	return nil
}

func (r *jobRepo) UpdateJob(ctx context.Context, job *models.TranscodeJob) error {
	_, outputs, thumbnail, source, err := marshalJobBlobs(job)
	if err != nil {
		return errors.Wrap(err, "jobRepo.UpdateJob.Marshal")
	}
	res, err := r.db.ExecContext(
		ctx,
		updateJobQuery,
		job.Status,
		job.Progress,
		outputs,
		thumbnail,
		job.Error,
		source,
		job.UpdatedAt,
		job.CompletedAt,
		job.JobID,
	)
	if err != nil {
		return errors.Wrap(err, "jobRepo.UpdateJob")
	}
	count, _ := res.RowsAffected()
	if count == 0 {
		return models.ErrJobNotFound
	}
	return nil
}

func (r *jobRepo) GetJobByID(ctx context.Context, jobID string) (*models.TranscodeJob, error) {
	row := r.db.QueryRowxContext(ctx, getJobByIDQuery, jobID)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrJobNotFound
		}
		return nil, errors.Wrap(err, "jobRepo.GetJobByID")
	}
	return job, nil
}

func (r *jobRepo) GetJobs(ctx context.Context, ownerID string, pq *utils.Pagination) (*models.JobList, error) {
	var totalCount int
	if err := r.db.GetContext(ctx, &totalCount, getTotalJobsByOwnerQuery, ownerID); err != nil {
		return nil, errors.Wrap(err, "jobRepo.GetJobs.Count")
	}
	if totalCount == 0 {
		return &models.JobList{
			Jobs:       make([]*models.TranscodeJob, 0),
			TotalCount: 0,
			Page:       pq.GetPage(),
			PageSize:   pq.GetSize(),
			HasMore:    false,
		}, nil
	}

	rows, err := r.db.QueryxContext(ctx, getJobsByOwnerQuery, ownerID, pq.GetOffset(), pq.GetLimit())
	if err != nil {
		return nil, errors.Wrap(err, "jobRepo.GetJobs")
	}
	defer rows.Close()

	jobs := make([]*models.TranscodeJob, 0, pq.GetSize())
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, errors.Wrap(err, "jobRepo.GetJobs.Scan")
		}
		jobs = append(jobs, job)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "jobRepo.GetJobs.Rows")
	}
	return &models.JobList{
		Jobs:       jobs,
		TotalCount: totalCount,
		Page:       pq.GetPage(),
		PageSize:   pq.GetSize(),
		HasMore:    utils.GetHasMore(pq.GetPage(), totalCount, pq.GetSize()),
	}, nil
}

func (r *jobRepo) GetAllJobs(ctx context.Context) ([]*models.TranscodeJob, error) {
	rows, err := r.db.QueryxContext(ctx, getAllJobsQuery)
	if err != nil {
		return nil, errors.Wrap(err, "jobRepo.GetAllJobs")
	}
	defer rows.Close()

	var jobs []*models.TranscodeJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, errors.Wrap(err, "jobRepo.GetAllJobs.Scan")
		}
		jobs = append(jobs, job)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "jobRepo.GetAllJobs.Rows")
	}
	return jobs, nil
}

func (r *jobRepo) DeleteJob(ctx context.Context, jobID string) error {
	if _, err := r.db.ExecContext(ctx, deleteJobQuery, jobID); err != nil {
		return errors.Wrap(err, "jobRepo.DeleteJob")
	}
	return nil
}

func (r *jobRepo) DeleteTerminalJobsBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := r.db.QueryxContext(ctx, deleteTerminalJobsQuery, cutoff)
	if err != nil {
		return nil, errors.Wrap(err, "jobRepo.DeleteTerminalJobsBefore")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "jobRepo.DeleteTerminalJobsBefore.Scan")
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "jobRepo.DeleteTerminalJobsBefore.Rows")
	}
	return ids, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*models.TranscodeJob, error) {
	job := &models.TranscodeJob{}
	var options, outputs, thumbnail, source []byte
	if err := row.Scan(
		&job.JobID,
		&job.OwnerID,
		&job.InputPath,
		&options,
		&job.Status,
		&job.Progress,
		&outputs,
		&thumbnail,
		&job.Error,
		&source,
		&job.CreatedAt,
		&job.UpdatedAt,
		&job.CompletedAt,
	); err != nil {
		return nil, err
	}
	if len(options) > 0 {
		if err := json.Unmarshal(options, &job.Options); err != nil {
			return nil, err
		}
	}
	if len(outputs) > 0 {
		if err := json.Unmarshal(outputs, &job.Outputs); err != nil {
			return nil, err
		}
	}
	if len(thumbnail) > 0 {
		if err := json.Unmarshal(thumbnail, &job.Thumbnail); err != nil {
			return nil, err
		}
	}
	if len(source) > 0 {
		if err := json.Unmarshal(source, &job.Source); err != nil {
			return nil, err
		}
	}
	return job, nil
}

func marshalJobBlobs(job *models.TranscodeJob) (options, outputs, thumbnail, source []byte, err error) {
	if options, err = json.Marshal(job.Options); err != nil {
		return nil, nil, nil, nil, err
	}
	if outputs, err = json.Marshal(job.Outputs); err != nil {
		return nil, nil, nil, nil, err
	}
	if job.Thumbnail != nil {
		if thumbnail, err = json.Marshal(job.Thumbnail); err != nil {
			return nil, nil, nil, nil, err
		}
	}
	if job.Source != nil {
		if source, err = json.Marshal(job.Source); err != nil {
			return nil, nil, nil, nil, err
		}
	}
	return options, outputs, thumbnail, source, nil
}
