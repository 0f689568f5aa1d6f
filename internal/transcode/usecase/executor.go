package usecase

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/streamhive/live-backend/internal/models"
)

const thumbnailProgress = 20

// runJob executes one job body: thumbnail first, then every quality in
// order. Each state change is persisted before the next step proceeds, so a
// crash leaves the job in its last durable state.
func (q *transcodeQueue) runJob(ctx context.Context, st *jobState) {
	st.mu.Lock()
	jobID := st.job.JobID
	inputPath := st.job.InputPath
	options := st.job.Options
	st.mu.Unlock()

	q.logger.Infof("job %s started for %s", jobID, inputPath)

	if info, err := q.transcoder.Probe(ctx, inputPath); err != nil {
		q.logger.Warnf("job %s: probe failed: %v", jobID, err)
	} else {
		st.mu.Lock()
		st.job.Source = info
		st.mu.Unlock()
	}

	if options.GenerateThumbnail {
		if q.aborted(st) {
			return
		}
		thumbPath, err := q.transcoder.GenerateThumbnail(ctx, inputPath)
		if err != nil {
			q.failJob(ctx, st, &models.TranscodeStepError{Quality: "thumbnail", Err: err})
			return
		}
		thumb := &models.Thumbnail{Path: thumbPath}
		if options.UploadToBlobStore {
			url, err := q.uploadArtifact(ctx, st, thumbPath, "image/jpeg")
			if err != nil {
				q.failJob(ctx, st, &models.TranscodeStepError{Quality: "thumbnail", Err: err})
				return
			}
			thumb.URL = url
		}
		q.advance(ctx, st, func(job *models.TranscodeJob) {
			job.Thumbnail = thumb
			job.Progress = thumbnailProgress
		})
	}

	total := len(options.Qualities)
	for i, name := range options.Qualities {
		if q.aborted(st) {
			return
		}
		profile := q.profileForName(name)
		result, err := q.transcoder.Transcode(ctx, inputPath, profile)
		if err != nil {
			q.failJob(ctx, st, &models.TranscodeStepError{Quality: name, Err: err})
			return
		}

		output := models.JobOutput{
			Quality: name,
			Path:    result.OutputPath,
			Size:    result.Size,
		}
		if options.UploadToBlobStore {
			url, err := q.uploadArtifact(ctx, st, result.OutputPath, "video/mp4")
			if err != nil {
				q.failJob(ctx, st, &models.TranscodeStepError{Quality: name, Err: err})
				return
			}
			output.URL = url
		}

		progress := thumbnailProgress + int(math.Round(70*float64(i+1)/float64(total)))
		q.advance(ctx, st, func(job *models.TranscodeJob) {
			job.Outputs = append(job.Outputs, output)
			if progress > job.Progress {
				job.Progress = progress
			}
		})
	}

	q.completeJob(ctx, st)
}

// completeJob makes the final transition to completed. Like advance, a cancel
// that landed after the last step wins: a terminal state is never overwritten.
func (q *transcodeQueue) completeJob(ctx context.Context, st *jobState) {
	now := time.Now()
	st.mu.Lock()
	if st.cancelled || st.job.Status != models.JobStatusProcessing {
		st.mu.Unlock()
		return
	}
	st.job.Status = models.JobStatusCompleted
	st.job.Progress = 100
	st.job.CompletedAt = &now
	st.job.UpdatedAt = now
	snapshot := cloneJob(st.job)
	st.mu.Unlock()
	q.persistJob(ctx, snapshot)

	q.publish(ctx, models.Event{
		Type:     models.EventJobCompleted,
		JobID:    snapshot.JobID,
		OwnerID:  snapshot.OwnerID,
		Progress: 100,
	})
	q.logger.Infof("job %s completed with %d outputs", snapshot.JobID, len(snapshot.Outputs))

	if snapshot.Options.DeleteOriginal {
		// Best-effort: the recording is gone from the ingest host either way.
		if err := os.Remove(snapshot.InputPath); err != nil {
			q.logger.Warnf("job %s: failed to delete original %s: %v", snapshot.JobID, snapshot.InputPath, err)
		}
	}
}

// aborted reports whether the job was cancelled (or otherwise moved off
// in_progress) between steps. Cancel already persisted the terminal state.
func (q *transcodeQueue) aborted(st *jobState) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.cancelled {
		q.logger.Infof("job %s aborting: cancelled", st.job.JobID)
		return true
	}
	return st.job.Status != models.JobStatusProcessing
}

// advance applies a mutation under the job lock, persists the snapshot and
// emits a progress event. Cancelled jobs are left untouched.
func (q *transcodeQueue) advance(ctx context.Context, st *jobState, mutate func(job *models.TranscodeJob)) {
	st.mu.Lock()
	if st.cancelled || st.job.Status != models.JobStatusProcessing {
		st.mu.Unlock()
		return
	}
	mutate(st.job)
	st.job.UpdatedAt = time.Now()
	snapshot := cloneJob(st.job)
	st.mu.Unlock()

	q.persistJob(ctx, snapshot)
	q.publish(ctx, models.Event{
		Type:     models.EventJobProgress,
		JobID:    snapshot.JobID,
		OwnerID:  snapshot.OwnerID,
		Progress: snapshot.Progress,
	})
}

// failJob records the failing step and stops the job. Outputs produced so
// far stay attached for diagnostics.
func (q *transcodeQueue) failJob(ctx context.Context, st *jobState, stepErr error) {
	st.mu.Lock()
	if st.cancelled || st.job.Status != models.JobStatusProcessing {
		st.mu.Unlock()
		return
	}
	now := time.Now()
	st.job.Status = models.JobStatusFailed
	st.job.Error = stepErr.Error()
	st.job.UpdatedAt = now
	st.job.CompletedAt = &now
	snapshot := cloneJob(st.job)
	st.mu.Unlock()

	q.persistJob(ctx, snapshot)
	q.publish(ctx, models.Event{
		Type:    models.EventJobFailed,
		JobID:   snapshot.JobID,
		OwnerID: snapshot.OwnerID,
		Error:   snapshot.Error,
	})
	q.logger.Errorf("job %s failed: %v", snapshot.JobID, stepErr)
}

func (q *transcodeQueue) uploadArtifact(ctx context.Context, st *jobState, localPath, mimeType string) (string, error) {
	st.mu.Lock()
	ownerID := st.job.OwnerID
	jobID := st.job.JobID
	st.mu.Unlock()

	key := fmt.Sprintf("outputs/%s/%s/%s", ownerID, jobID, filepath.Base(localPath))
	url, err := q.awsRepo.PutObject(ctx, &models.UploadInput{
		LocalPath:  localPath,
		Key:        key,
		MimeType:   mimeType,
		BucketName: q.cfg.S3.OutputBucket,
		Metadata: map[string]string{
			"job_id":   jobID,
			"owner_id": ownerID,
		},
	})
	if err != nil {
		return "", fmt.Errorf("upload of %s failed: %w", localPath, err)
	}
	return url, nil
}
