package repository

import (
	"context"
	"encoding/json"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/streamhive/live-backend/internal/models"
	"github.com/streamhive/live-backend/internal/transcode"
)

const (
	jobKeyPrefix = "job:"
)

type jobRedisRepo struct {
	redisClient *redis.Client
}

func NewJobRedisRepo(redisClient *redis.Client) transcode.RedisRepository {
	return &jobRedisRepo{
		redisClient: redisClient,
	}
}

func (r *jobRedisRepo) SetJob(ctx context.Context, job *models.TranscodeJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return errors.Wrap(err, "jobRedisRepo.SetJob.Marshal")
	}
	if err := r.redisClient.Set(ctx, jobKeyPrefix+job.JobID, data, 0).Err(); err != nil {
		return errors.Wrap(err, "jobRedisRepo.SetJob")
	}
	return nil
}

func (r *jobRedisRepo) GetJob(ctx context.Context, jobID string) (*models.TranscodeJob, error) {
	data, err := r.redisClient.Get(ctx, jobKeyPrefix+jobID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, models.ErrJobNotFound
		}
		return nil, errors.Wrap(err, "jobRedisRepo.GetJob")
	}
	job := &models.TranscodeJob{}
	if err = json.Unmarshal([]byte(data), job); err != nil {
		return nil, errors.Wrap(err, "jobRedisRepo.GetJob.Unmarshal")
	}
	return job, nil
}

func (r *jobRedisRepo) DeleteJob(ctx context.Context, jobID string) error {
	if err := r.redisClient.Del(ctx, jobKeyPrefix+jobID).Err(); err != nil {
		return errors.Wrap(err, "jobRedisRepo.DeleteJob")
	}
	return nil
}
