package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/streamhive/live-backend/internal/config"
	"github.com/streamhive/live-backend/internal/events"
	"github.com/streamhive/live-backend/internal/models"
	"github.com/streamhive/live-backend/internal/transcode"
	"github.com/streamhive/live-backend/pkg/logger"
	"github.com/streamhive/live-backend/pkg/utils"
)

// jobState pairs a job with its runtime bookkeeping. The mutex serializes
// every status/progress mutation for that job; the cancelled flag is checked
// cooperatively between quality steps.
type jobState struct {
	mu        sync.Mutex
	job       *models.TranscodeJob
	cancelled bool
}

type transcodeQueue struct {
	cfg        *config.Config
	jobRepo    transcode.Repository
	redisRepo  transcode.RedisRepository
	awsRepo    transcode.AWSRepository
	transcoder transcode.Transcoder
	publisher  events.Publisher
	logger     logger.Logger

	mu   sync.RWMutex
	jobs map[string]*jobState

	sem    *semaphore.Weighted
	wake   chan struct{}
	quit   chan struct{}
	loopWG sync.WaitGroup
	jobWG  sync.WaitGroup
}

func NewTranscodeQueue(
	cfg *config.Config,
	jobRepo transcode.Repository,
	redisRepo transcode.RedisRepository,
	awsRepo transcode.AWSRepository,
	transcoder transcode.Transcoder,
	publisher events.Publisher,
	log logger.Logger,
) transcode.UseCase {
	return &transcodeQueue{
		cfg:        cfg,
		jobRepo:    jobRepo,
		redisRepo:  redisRepo,
		awsRepo:    awsRepo,
		transcoder: transcoder,
		publisher:  publisher,
		logger:     log,
		jobs:       make(map[string]*jobState),
		sem:        semaphore.NewWeighted(int64(cfg.Transcode.MaxConcurrentJobs)),
		wake:       make(chan struct{}, 1),
		quit:       make(chan struct{}),
	}
}

func (q *transcodeQueue) AddJob(ctx context.Context, ownerID string, inputPath string, options models.JobOptions) (string, error) {
	if len(options.Qualities) == 0 {
		for _, p := range q.defaultProfiles() {
			options.Qualities = append(options.Qualities, p.Name)
		}
	}
	now := time.Now()
	job := &models.TranscodeJob{
		JobID:     uuid.New().String(),
		OwnerID:   ownerID,
		InputPath: inputPath,
		Options:   options,
		Status:    models.JobStatusPending,
		Progress:  0,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := utils.ValidateStruct(ctx, job); err != nil {
		return "", fmt.Errorf("invalid job: %w", err)
	}

	// The job must survive a crash before it is ever scheduled.
	if err := q.jobRepo.CreateJob(ctx, job); err != nil {
		q.logger.Errorf("AddJob - CreateJob error: %v", err)
		return "", &models.PersistenceError{Op: "create job", Err: err}
	}
	if err := q.redisRepo.SetJob(ctx, job); err != nil {
		q.logger.Warnf("AddJob - fast cache write failed for job %s: %v", job.JobID, err)
	}

	q.mu.Lock()
	q.jobs[job.JobID] = &jobState{job: job}
	q.mu.Unlock()

	q.signalWake()
	q.logger.Infof("job %s queued for %s (%d qualities)", job.JobID, inputPath, len(options.Qualities))
	return job.JobID, nil
}

func (q *transcodeQueue) GetJob(ctx context.Context, jobID string) (*models.TranscodeJob, error) {
	q.mu.RLock()
	st, ok := q.jobs[jobID]
	q.mu.RUnlock()
	if !ok {
		return nil, models.ErrJobNotFound
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return cloneJob(st.job), nil
}

func (q *transcodeQueue) ListJobs(ctx context.Context, ownerID string, pagination *utils.Pagination) (*models.JobList, error) {
	if pagination == nil {
		pagination = &utils.Pagination{Page: 1, Size: 10}
	}
	list, err := q.jobRepo.GetJobs(ctx, ownerID, pagination)
	if err != nil {
		q.logger.Errorf("ListJobs - GetJobs error: %v", err)
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return list, nil
}

func (q *transcodeQueue) Retry(ctx context.Context, jobID string) error {
	q.mu.RLock()
	st, ok := q.jobs[jobID]
	q.mu.RUnlock()
	if !ok {
		return models.ErrJobNotFound
	}

	st.mu.Lock()
	if st.job.Status != models.JobStatusFailed {
		st.mu.Unlock()
		return models.ErrInvalidState
	}
	st.job.Status = models.JobStatusPending
	st.job.Progress = 0
	st.job.Error = ""
	st.job.Outputs = nil
	st.job.Thumbnail = nil
	st.job.CompletedAt = nil
	st.job.UpdatedAt = time.Now()
	st.cancelled = false
	snapshot := cloneJob(st.job)
	st.mu.Unlock()

	q.persistJob(ctx, snapshot)
	q.signalWake()
	q.logger.Infof("job %s reset for retry", jobID)
	return nil
}

func (q *transcodeQueue) Cancel(ctx context.Context, jobID string) error {
	q.mu.RLock()
	st, ok := q.jobs[jobID]
	q.mu.RUnlock()
	if !ok {
		return models.ErrJobNotFound
	}

	st.mu.Lock()
	if st.job.Status == models.JobStatusCompleted {
		st.mu.Unlock()
		return models.ErrInvalidState
	}
	now := time.Now()
	st.job.Status = models.JobStatusFailed
	st.job.Error = "cancelled"
	st.job.UpdatedAt = now
	st.job.CompletedAt = &now
	st.cancelled = true
	snapshot := cloneJob(st.job)
	st.mu.Unlock()

	q.persistJob(ctx, snapshot)
	q.publish(ctx, models.Event{
		Type:    models.EventJobFailed,
		JobID:   jobID,
		OwnerID: snapshot.OwnerID,
		Error:   snapshot.Error,
	})
	q.logger.Infof("job %s cancelled", jobID)
	return nil
}

func (q *transcodeQueue) Cleanup(ctx context.Context, retentionWindow time.Duration) int {
	cutoff := time.Now().Add(-retentionWindow)
	removed := 0

	q.mu.Lock()
	var stale []string
	for id, st := range q.jobs {
		st.mu.Lock()
		terminal := st.job.Status.Terminal()
		ref := st.job.UpdatedAt
		if st.job.CompletedAt != nil {
			ref = *st.job.CompletedAt
		}
		st.mu.Unlock()
		if terminal && ref.Before(cutoff) {
			stale = append(stale, id)
		}
	}
	for _, id := range stale {
		delete(q.jobs, id)
	}
	q.mu.Unlock()

	for _, id := range stale {
		if err := q.redisRepo.DeleteJob(ctx, id); err != nil {
			q.logger.Warnf("cleanup - fast cache delete failed for job %s: %v", id, err)
		}
		if err := q.jobRepo.DeleteJob(ctx, id); err != nil {
			q.logger.Warnf("cleanup - durable delete failed for job %s: %v", id, err)
			continue
		}
		removed++
	}

	// Terminal rows that predate this process (or whose in-memory entry was
	// lost) are swept straight from the durable store.
	if ids, err := q.jobRepo.DeleteTerminalJobsBefore(ctx, cutoff); err != nil {
		q.logger.Warnf("cleanup - terminal sweep failed: %v", err)
	} else {
		for _, id := range ids {
			if err := q.redisRepo.DeleteJob(ctx, id); err != nil {
				q.logger.Warnf("cleanup - fast cache delete failed for job %s: %v", id, err)
			}
			removed++
		}
	}
	return removed
}

// Start rebuilds the in-memory index from the durable store and launches the
// scheduler and cleanup loops. Jobs found mid-flight from a previous process
// are requeued from scratch.
func (q *transcodeQueue) Start(ctx context.Context) error {
	jobs, err := q.jobRepo.GetAllJobs(ctx)
	if err != nil {
		return fmt.Errorf("failed to load jobs: %w", err)
	}
	q.mu.Lock()
	for _, job := range jobs {
		if job.Status == models.JobStatusProcessing {
			job.Status = models.JobStatusPending
			job.Progress = 0
			job.Outputs = nil
			job.Thumbnail = nil
			job.UpdatedAt = time.Now()
			q.persistJob(ctx, cloneJob(job))
			q.logger.Warnf("job %s was mid-flight at shutdown, requeued", job.JobID)
		}
		q.jobs[job.JobID] = &jobState{job: job}
	}
	total := len(q.jobs)
	q.mu.Unlock()
	q.logger.Infof("transcode queue started with %d jobs (max concurrent %d)", total, q.cfg.Transcode.MaxConcurrentJobs)

	q.loopWG.Add(1)
	go q.schedulerLoop(ctx)
	if q.cfg.Transcode.CleanupInterval > 0 && q.cfg.Transcode.RetentionWindow > 0 {
		q.loopWG.Add(1)
		go q.cleanupLoop(ctx)
	}
	return nil
}

// Stop drains the scheduler and waits for in-flight job bodies to persist
// their final state.
func (q *transcodeQueue) Stop() {
	close(q.quit)
	q.loopWG.Wait()
	q.jobWG.Wait()
	q.logger.Info("transcode queue stopped")
}

func (q *transcodeQueue) schedulerLoop(ctx context.Context) {
	defer q.loopWG.Done()
	ticker := time.NewTicker(q.cfg.Transcode.PollInterval)
	defer ticker.Stop()
	for {
		q.dispatchPending(ctx)
		select {
		case <-ctx.Done():
			return
		case <-q.quit:
			return
		case <-q.wake:
		case <-ticker.C:
		}
	}
}

// dispatchPending hands out pending jobs oldest-first until the concurrency
// cap is hit. It never blocks on a job body.
func (q *transcodeQueue) dispatchPending(ctx context.Context) {
	for {
		if q.cfg.Transcode.MaxCPUUsage > 0 {
			if ok, usage := utils.CheckCPUUsage(q.cfg.Transcode.MaxCPUUsage); !ok {
				q.logger.Infof("CPU usage %.2f%% too high, deferring dispatch", usage)
				return
			}
		}
		if !q.sem.TryAcquire(1) {
			return
		}
		st := q.claimOldestPending()
		if st == nil {
			q.sem.Release(1)
			return
		}

		st.mu.Lock()
		snapshot := cloneJob(st.job)
		st.mu.Unlock()
		// The transition to in_progress is durable before any work begins.
		q.persistJob(ctx, snapshot)

		q.jobWG.Add(1)
		go func(st *jobState) {
			defer q.jobWG.Done()
			defer q.sem.Release(1)
			q.runJob(ctx, st)
			q.signalWake()
		}(st)
	}
}

// claimOldestPending flips the oldest pending job to in_progress and returns
// it. Only the scheduler loop calls this.
func (q *transcodeQueue) claimOldestPending() *jobState {
	q.mu.RLock()
	defer q.mu.RUnlock()

	var oldest *jobState
	var oldestAt time.Time
	for _, st := range q.jobs {
		st.mu.Lock()
		if st.job.Status == models.JobStatusPending {
			if oldest == nil || st.job.CreatedAt.Before(oldestAt) {
				oldest = st
				oldestAt = st.job.CreatedAt
			}
		}
		st.mu.Unlock()
	}
	if oldest == nil {
		return nil
	}

	oldest.mu.Lock()
	defer oldest.mu.Unlock()
	if oldest.job.Status != models.JobStatusPending {
		return nil
	}
	oldest.job.Status = models.JobStatusProcessing
	oldest.job.UpdatedAt = time.Now()
	oldest.cancelled = false
	return oldest
}

func (q *transcodeQueue) cleanupLoop(ctx context.Context) {
	defer q.loopWG.Done()
	ticker := time.NewTicker(q.cfg.Transcode.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-q.quit:
			return
		case <-ticker.C:
			if n := q.Cleanup(ctx, q.cfg.Transcode.RetentionWindow); n > 0 {
				q.logger.Infof("cleanup removed %d terminal jobs", n)
			}
		}
	}
}

func (q *transcodeQueue) signalWake() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// persistJob writes the snapshot to both stores, retrying with backoff. After
// the retry budget the in-memory state still stands so the job is never
// stuck, but the stores may lag until the next write.
func (q *transcodeQueue) persistJob(ctx context.Context, job *models.TranscodeJob) {
	var lastErr error
	for attempt := 0; attempt <= q.cfg.Transcode.PersistRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(q.cfg.Transcode.PersistBackoff * time.Duration(attempt))
		}
		if lastErr = q.writeStores(ctx, job); lastErr == nil {
			return
		}
	}
	q.logger.Errorf("job %s advanced to %s in memory but stores lag behind: %v",
		job.JobID, job.Status, &models.PersistenceError{Op: "update job", Err: lastErr})
}

func (q *transcodeQueue) writeStores(ctx context.Context, job *models.TranscodeJob) error {
	if err := q.jobRepo.UpdateJob(ctx, job); err != nil {
		return err
	}
	return q.redisRepo.SetJob(ctx, job)
}

func (q *transcodeQueue) defaultProfiles() []models.QualityProfile {
	if len(q.cfg.Transcode.Qualities) == 0 {
		return utils.GetDefaultQualities()
	}
	profiles := make([]models.QualityProfile, 0, len(q.cfg.Transcode.Qualities))
	for _, qc := range q.cfg.Transcode.Qualities {
		profiles = append(profiles, models.QualityProfile(qc))
	}
	return profiles
}

func (q *transcodeQueue) profileForName(name string) models.QualityProfile {
	for _, qc := range q.cfg.Transcode.Qualities {
		if qc.Name == name {
			return models.QualityProfile(qc)
		}
	}
	return utils.ProfileForName(name)
}

func (q *transcodeQueue) publish(ctx context.Context, event models.Event) {
	if err := q.publisher.Publish(ctx, event); err != nil {
		q.logger.Warnf("failed to publish %s event: %v", event.Type, err)
	}
}

func cloneJob(job *models.TranscodeJob) *models.TranscodeJob {
	copied := *job
	if job.Outputs != nil {
		copied.Outputs = make([]models.JobOutput, len(job.Outputs))
		copy(copied.Outputs, job.Outputs)
	}
	if job.Thumbnail != nil {
		thumb := *job.Thumbnail
		copied.Thumbnail = &thumb
	}
	if job.CompletedAt != nil {
		at := *job.CompletedAt
		copied.CompletedAt = &at
	}
	if job.Source != nil {
		src := *job.Source
		copied.Source = &src
	}
	return &copied
}
