package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamhive/live-backend/internal/config"
	"github.com/streamhive/live-backend/internal/events"
	"github.com/streamhive/live-backend/internal/models"
	"github.com/streamhive/live-backend/internal/transcode"
	"github.com/streamhive/live-backend/pkg/logger"
	"github.com/streamhive/live-backend/pkg/utils"
)

type fakeJobRepo struct {
	mu        sync.Mutex
	jobs      map[string]*models.TranscodeJob
	createErr error
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{jobs: make(map[string]*models.TranscodeJob)}
}

func (r *fakeJobRepo) CreateJob(_ context.Context, job *models.TranscodeJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.jobs[job.JobID] = cloneJob(job)
	return nil
}

func (r *fakeJobRepo) UpdateJob(_ context.Context, job *models.TranscodeJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[job.JobID]; !ok {
		return models.ErrJobNotFound
	}
	r.jobs[job.JobID] = cloneJob(job)
	return nil
}

func (r *fakeJobRepo) GetJobByID(_ context.Context, jobID string) (*models.TranscodeJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return nil, models.ErrJobNotFound
	}
	return cloneJob(job), nil
}

func (r *fakeJobRepo) GetJobs(_ context.Context, ownerID string, pq *utils.Pagination) (*models.JobList, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := &models.JobList{Page: pq.Page, PageSize: pq.Size}
	for _, job := range r.jobs {
		if job.OwnerID == ownerID {
			list.Jobs = append(list.Jobs, cloneJob(job))
			list.TotalCount++
		}
	}
	return list, nil
}

func (r *fakeJobRepo) GetAllJobs(_ context.Context) ([]*models.TranscodeJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]*models.TranscodeJob, 0, len(r.jobs))
	for _, job := range r.jobs {
		all = append(all, cloneJob(job))
	}
	return all, nil
}

func (r *fakeJobRepo) DeleteJob(_ context.Context, jobID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, jobID)
	return nil
}

func (r *fakeJobRepo) DeleteTerminalJobsBefore(_ context.Context, cutoff time.Time) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for id, job := range r.jobs {
		if !job.Status.Terminal() {
			continue
		}
		ref := job.UpdatedAt
		if job.CompletedAt != nil {
			ref = *job.CompletedAt
		}
		if ref.Before(cutoff) {
			delete(r.jobs, id)
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *fakeJobRepo) get(jobID string) *models.TranscodeJob {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return nil
	}
	return cloneJob(job)
}

type fakeJobRedisRepo struct {
	mu   sync.Mutex
	jobs map[string]*models.TranscodeJob
}

func newFakeJobRedisRepo() *fakeJobRedisRepo {
	return &fakeJobRedisRepo{jobs: make(map[string]*models.TranscodeJob)}
}

func (r *fakeJobRedisRepo) SetJob(_ context.Context, job *models.TranscodeJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.JobID] = cloneJob(job)
	return nil
}

func (r *fakeJobRedisRepo) GetJob(_ context.Context, jobID string) (*models.TranscodeJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return nil, models.ErrJobNotFound
	}
	return cloneJob(job), nil
}

func (r *fakeJobRedisRepo) DeleteJob(_ context.Context, jobID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, jobID)
	return nil
}

type fakeAWSRepo struct{}

func (fakeAWSRepo) PutObject(_ context.Context, input *models.UploadInput) (string, error) {
	return "https://cdn.test/" + input.Key, nil
}

func (fakeAWSRepo) GetPresignedURL(_ context.Context, bucket, key string) (string, error) {
	return fmt.Sprintf("https://cdn.test/%s/%s?signed", bucket, key), nil
}

func (fakeAWSRepo) RemoveObject(_ context.Context, _, _ string) error { return nil }

type fakeTranscoder struct {
	mu          sync.Mutex
	failQuality string
	gate        chan struct{}
	delay       time.Duration
	active      int
	maxActive   int
}

func (f *fakeTranscoder) Transcode(_ context.Context, _ string, profile models.QualityProfile) (*transcode.TranscodeResult, error) {
	f.mu.Lock()
	f.active++
	if f.active > f.maxActive {
		f.maxActive = f.active
	}
	fail := f.failQuality == profile.Name
	gate := f.gate
	delay := f.delay
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if delay > 0 {
		time.Sleep(delay)
	}

	f.mu.Lock()
	f.active--
	f.mu.Unlock()

	if fail {
		return nil, errors.New("encoder exited with status 1")
	}
	return &transcode.TranscodeResult{OutputPath: "/tmp/out/" + profile.Name + ".mp4", Size: 1024}, nil
}

func (f *fakeTranscoder) GenerateThumbnail(_ context.Context, _ string) (string, error) {
	return "/tmp/out/thumb.jpg", nil
}

func (f *fakeTranscoder) Probe(_ context.Context, _ string) (*models.MediaInfo, error) {
	return &models.MediaInfo{Codec: "h264", Width: 1920, Height: 1080, Duration: 60}, nil
}

func (f *fakeTranscoder) setFailQuality(name string) {
	f.mu.Lock()
	f.failQuality = name
	f.mu.Unlock()
}

func (f *fakeTranscoder) peakConcurrency() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxActive
}

func testConfig() *config.Config {
	return &config.Config{
		Transcode: config.TranscodeConfig{
			MaxConcurrentJobs: 2,
			PollInterval:      10 * time.Millisecond,
			PersistRetries:    1,
			PersistBackoff:    time.Millisecond,
			Qualities: []config.QualityConfig{
				{Name: "720p", Width: 1280, Height: 720, Bitrate: 2800},
				{Name: "480p", Width: 854, Height: 480, Bitrate: 1400},
			},
		},
		S3: config.S3Config{OutputBucket: "vod-outputs"},
	}
}

func testLogger() logger.Logger {
	apiLogger := logger.NewApiLogger(&config.Config{Logger: config.Logger{Level: "error"}})
	apiLogger.InitLogger()
	return apiLogger
}

type queueFixture struct {
	queue      transcode.UseCase
	jobRepo    *fakeJobRepo
	redisRepo  *fakeJobRedisRepo
	transcoder *fakeTranscoder
	cfg        *config.Config
}

func newQueueFixture(cfg *config.Config) *queueFixture {
	jobRepo := newFakeJobRepo()
	redisRepo := newFakeJobRedisRepo()
	transcoder := &fakeTranscoder{}
	q := NewTranscodeQueue(cfg, jobRepo, redisRepo, fakeAWSRepo{}, transcoder, events.NopPublisher{}, testLogger())
	return &queueFixture{queue: q, jobRepo: jobRepo, redisRepo: redisRepo, transcoder: transcoder, cfg: cfg}
}

func (f *queueFixture) waitForStatus(t *testing.T, jobID string, status models.JobStatus) *models.TranscodeJob {
	t.Helper()
	var job *models.TranscodeJob
	require.Eventually(t, func() bool {
		got, err := f.queue.GetJob(context.Background(), jobID)
		if err != nil {
			return false
		}
		job = got
		return got.Status == status
	}, 5*time.Second, 5*time.Millisecond, "job %s never reached %s", jobID, status)
	return job
}

func TestQueue_AddJobIsDurableBeforeScheduling(t *testing.T) {
	f := newQueueFixture(testConfig())

	jobID, err := f.queue.AddJob(context.Background(), "owner-1", "/rec/a.flv", models.JobOptions{Qualities: []string{"720p"}})
	require.NoError(t, err)

	stored := f.jobRepo.get(jobID)
	require.NotNil(t, stored)
	assert.Equal(t, models.JobStatusPending, stored.Status)
	assert.Equal(t, 0, stored.Progress)
}

func TestQueue_AddJobFailsWhenStoreRejects(t *testing.T) {
	f := newQueueFixture(testConfig())
	f.jobRepo.createErr = errors.New("connection refused")

	jobID, err := f.queue.AddJob(context.Background(), "owner-1", "/rec/a.flv", models.JobOptions{Qualities: []string{"720p"}})
	require.Error(t, err)
	var persistErr *models.PersistenceError
	assert.ErrorAs(t, err, &persistErr)
	assert.Empty(t, jobID)
}

func TestQueue_AddJobAppliesDefaultQualities(t *testing.T) {
	f := newQueueFixture(testConfig())

	jobID, err := f.queue.AddJob(context.Background(), "owner-1", "/rec/a.flv", models.JobOptions{})
	require.NoError(t, err)

	job, err := f.queue.GetJob(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, []string{"720p", "480p"}, job.Options.Qualities)
}

func TestQueue_RunsJobToCompletion(t *testing.T) {
	f := newQueueFixture(testConfig())
	require.NoError(t, f.queue.Start(context.Background()))
	defer f.queue.Stop()

	jobID, err := f.queue.AddJob(context.Background(), "owner-1", "/rec/a.flv", models.JobOptions{
		Qualities:         []string{"720p", "480p"},
		GenerateThumbnail: true,
		UploadToBlobStore: true,
	})
	require.NoError(t, err)

	job := f.waitForStatus(t, jobID, models.JobStatusCompleted)
	assert.Equal(t, 100, job.Progress)
	require.Len(t, job.Outputs, 2)
	assert.Equal(t, "720p", job.Outputs[0].Quality)
	assert.Contains(t, job.Outputs[0].URL, "outputs/owner-1/"+jobID)
	require.NotNil(t, job.Thumbnail)
	assert.NotEmpty(t, job.Thumbnail.URL)
	require.NotNil(t, job.CompletedAt)
	require.NotNil(t, job.Source)
	assert.Equal(t, "h264", job.Source.Codec)

	stored := f.jobRepo.get(jobID)
	require.NotNil(t, stored)
	assert.Equal(t, models.JobStatusCompleted, stored.Status)
	assert.Equal(t, 100, stored.Progress)
}

func TestQueue_QualityFailureMarksJobFailed(t *testing.T) {
	f := newQueueFixture(testConfig())
	f.transcoder.setFailQuality("480p")
	require.NoError(t, f.queue.Start(context.Background()))
	defer f.queue.Stop()

	jobID, err := f.queue.AddJob(context.Background(), "owner-1", "/rec/a.flv", models.JobOptions{
		Qualities: []string{"720p", "480p"},
	})
	require.NoError(t, err)

	job := f.waitForStatus(t, jobID, models.JobStatusFailed)
	assert.Contains(t, job.Error, "480p")
	// The quality that finished stays attached for diagnostics.
	require.Len(t, job.Outputs, 1)
	assert.Equal(t, "720p", job.Outputs[0].Quality)
	require.NotNil(t, job.CompletedAt)
}

func TestQueue_RetryResetsFailedJob(t *testing.T) {
	f := newQueueFixture(testConfig())
	f.transcoder.setFailQuality("720p")
	require.NoError(t, f.queue.Start(context.Background()))
	defer f.queue.Stop()

	jobID, err := f.queue.AddJob(context.Background(), "owner-1", "/rec/a.flv", models.JobOptions{
		Qualities: []string{"720p"},
	})
	require.NoError(t, err)
	f.waitForStatus(t, jobID, models.JobStatusFailed)

	f.transcoder.setFailQuality("")
	require.NoError(t, f.queue.Retry(context.Background(), jobID))

	job := f.waitForStatus(t, jobID, models.JobStatusCompleted)
	assert.Equal(t, 100, job.Progress)
	assert.Empty(t, job.Error)

	// Completed jobs are not retryable.
	assert.ErrorIs(t, f.queue.Retry(context.Background(), jobID), models.ErrInvalidState)
	assert.ErrorIs(t, f.queue.Retry(context.Background(), "missing"), models.ErrJobNotFound)
}

func TestQueue_CancelStopsInFlightJob(t *testing.T) {
	f := newQueueFixture(testConfig())
	gate := make(chan struct{})
	f.transcoder.gate = gate
	require.NoError(t, f.queue.Start(context.Background()))
	defer f.queue.Stop()

	jobID, err := f.queue.AddJob(context.Background(), "owner-1", "/rec/a.flv", models.JobOptions{
		Qualities: []string{"720p", "480p"},
	})
	require.NoError(t, err)
	f.waitForStatus(t, jobID, models.JobStatusProcessing)

	require.NoError(t, f.queue.Cancel(context.Background(), jobID))
	close(gate)

	job := f.waitForStatus(t, jobID, models.JobStatusFailed)
	assert.Equal(t, "cancelled", job.Error)
	// The step in flight at cancel time is discarded, and no further ones run.
	assert.Empty(t, job.Outputs)

	assert.ErrorIs(t, f.queue.Cancel(context.Background(), "missing"), models.ErrJobNotFound)
}

func TestQueue_CancelCompletedJobIsRejected(t *testing.T) {
	f := newQueueFixture(testConfig())
	require.NoError(t, f.queue.Start(context.Background()))
	defer f.queue.Stop()

	jobID, err := f.queue.AddJob(context.Background(), "owner-1", "/rec/a.flv", models.JobOptions{
		Qualities: []string{"720p"},
	})
	require.NoError(t, err)
	f.waitForStatus(t, jobID, models.JobStatusCompleted)

	assert.ErrorIs(t, f.queue.Cancel(context.Background(), jobID), models.ErrInvalidState)
}

func TestQueue_CancelAfterLastStepIsNotOverwritten(t *testing.T) {
	f := newQueueFixture(testConfig())
	q := f.queue.(*transcodeQueue)

	jobID, err := f.queue.AddJob(context.Background(), "owner-1", "/rec/a.flv", models.JobOptions{
		Qualities: []string{"720p"},
	})
	require.NoError(t, err)

	st := q.claimOldestPending()
	require.NotNil(t, st)

	// The cancel lands after the executor's last between-step check; the
	// final transition must leave the terminal state alone.
	require.NoError(t, f.queue.Cancel(context.Background(), jobID))
	q.completeJob(context.Background(), st)

	job, err := f.queue.GetJob(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, job.Status)
	assert.Equal(t, "cancelled", job.Error)

	stored := f.jobRepo.get(jobID)
	require.NotNil(t, stored)
	assert.Equal(t, models.JobStatusFailed, stored.Status)
}

func TestQueue_HonorsConcurrencyLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Transcode.MaxConcurrentJobs = 1
	f := newQueueFixture(cfg)
	f.transcoder.delay = 20 * time.Millisecond
	require.NoError(t, f.queue.Start(context.Background()))
	defer f.queue.Stop()

	var ids []string
	for i := 0; i < 3; i++ {
		jobID, err := f.queue.AddJob(context.Background(), "owner-1", fmt.Sprintf("/rec/%d.flv", i), models.JobOptions{
			Qualities: []string{"720p"},
		})
		require.NoError(t, err)
		ids = append(ids, jobID)
	}
	for _, jobID := range ids {
		f.waitForStatus(t, jobID, models.JobStatusCompleted)
	}
	assert.Equal(t, 1, f.transcoder.peakConcurrency())
}

func TestQueue_StartRequeuesMidFlightJobs(t *testing.T) {
	f := newQueueFixture(testConfig())

	// Simulate a crash that left one job mid-flight and one finished.
	now := time.Now()
	midFlight := &models.TranscodeJob{
		JobID:     "job-midflight",
		OwnerID:   "owner-1",
		InputPath: "/rec/a.flv",
		Options:   models.JobOptions{Qualities: []string{"720p"}},
		Status:    models.JobStatusProcessing,
		Progress:  55,
		Outputs:   []models.JobOutput{{Quality: "720p", Path: "/tmp/out/720p.mp4"}},
		CreatedAt: now.Add(-time.Hour),
		UpdatedAt: now.Add(-time.Hour),
	}
	done := &models.TranscodeJob{
		JobID:       "job-done",
		OwnerID:     "owner-1",
		InputPath:   "/rec/b.flv",
		Options:     models.JobOptions{Qualities: []string{"720p"}},
		Status:      models.JobStatusCompleted,
		Progress:    100,
		CreatedAt:   now.Add(-2 * time.Hour),
		UpdatedAt:   now.Add(-2 * time.Hour),
		CompletedAt: &now,
	}
	require.NoError(t, f.jobRepo.CreateJob(context.Background(), midFlight))
	require.NoError(t, f.jobRepo.CreateJob(context.Background(), done))

	require.NoError(t, f.queue.Start(context.Background()))
	defer f.queue.Stop()

	// The mid-flight job restarts from scratch and finishes.
	job := f.waitForStatus(t, "job-midflight", models.JobStatusCompleted)
	assert.Equal(t, 100, job.Progress)

	unchanged, err := f.queue.GetJob(context.Background(), "job-done")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, unchanged.Status)
}

func TestQueue_CleanupRemovesExpiredTerminalJobs(t *testing.T) {
	f := newQueueFixture(testConfig())

	now := time.Now()
	old := now.Add(-48 * time.Hour)
	expired := &models.TranscodeJob{
		JobID:       "job-expired",
		OwnerID:     "owner-1",
		InputPath:   "/rec/a.flv",
		Options:     models.JobOptions{Qualities: []string{"720p"}},
		Status:      models.JobStatusCompleted,
		Progress:    100,
		CreatedAt:   old,
		UpdatedAt:   old,
		CompletedAt: &old,
	}
	fresh := &models.TranscodeJob{
		JobID:       "job-fresh",
		OwnerID:     "owner-1",
		InputPath:   "/rec/b.flv",
		Options:     models.JobOptions{Qualities: []string{"720p"}},
		Status:      models.JobStatusFailed,
		Error:       "encoder exited with status 1",
		CreatedAt:   now,
		UpdatedAt:   now,
		CompletedAt: &now,
	}
	require.NoError(t, f.jobRepo.CreateJob(context.Background(), expired))
	require.NoError(t, f.jobRepo.CreateJob(context.Background(), fresh))

	require.NoError(t, f.queue.Start(context.Background()))
	defer f.queue.Stop()

	removed := f.queue.Cleanup(context.Background(), 24*time.Hour)
	assert.Equal(t, 1, removed)

	_, err := f.queue.GetJob(context.Background(), "job-expired")
	assert.ErrorIs(t, err, models.ErrJobNotFound)
	assert.Nil(t, f.jobRepo.get("job-expired"))

	still, err := f.queue.GetJob(context.Background(), "job-fresh")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, still.Status)
}

func TestQueue_ListJobsPaginatesByOwner(t *testing.T) {
	f := newQueueFixture(testConfig())

	_, err := f.queue.AddJob(context.Background(), "owner-1", "/rec/a.flv", models.JobOptions{Qualities: []string{"720p"}})
	require.NoError(t, err)
	_, err = f.queue.AddJob(context.Background(), "owner-2", "/rec/b.flv", models.JobOptions{Qualities: []string{"720p"}})
	require.NoError(t, err)

	list, err := f.queue.ListJobs(context.Background(), "owner-1", &utils.Pagination{Page: 1, Size: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, list.TotalCount)
	require.Len(t, list.Jobs, 1)
	assert.Equal(t, "owner-1", list.Jobs[0].OwnerID)
}
