package models

import "time"

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "in_progress"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether no further automatic transition occurs.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// JobOutput is one successfully transcoded rendition of the input recording.
type JobOutput struct {
	Quality string `json:"quality" db:"quality" redis:"quality"`
	Path    string `json:"path" db:"path" redis:"path"`
	URL     string `json:"url,omitempty" db:"url" redis:"url"`
	Size    int64  `json:"size" db:"size" redis:"size"`
}

type Thumbnail struct {
	Path string `json:"path" redis:"path"`
	URL  string `json:"url,omitempty" redis:"url"`
}

// JobOptions control how a single transcode job is executed.
type JobOptions struct {
	Qualities         []string `json:"qualities" validate:"required,min=1,dive,required"`
	GenerateThumbnail bool     `json:"generate_thumbnail"`
	UploadToBlobStore bool     `json:"upload_to_blob_store"`
	DeleteOriginal    bool     `json:"delete_original_on_success"`
}

// TranscodeJob covers all requested quality profiles for one input recording.
// The queue owns the job exclusively once enqueued.
type TranscodeJob struct {
	JobID       string      `json:"job_id" db:"job_id" redis:"job_id" validate:"omitempty"`
	OwnerID     string      `json:"owner_id" db:"owner_id" redis:"owner_id" validate:"required"`
	InputPath   string      `json:"input_path" db:"input_path" redis:"input_path" validate:"required"`
	Options     JobOptions  `json:"options" db:"options" redis:"options"`
	Status      JobStatus   `json:"status" db:"status" redis:"status" validate:"required"`
	Progress    int         `json:"progress" db:"progress" redis:"progress" validate:"gte=0,lte=100"`
	Outputs     []JobOutput `json:"outputs" db:"outputs" redis:"outputs"`
	Thumbnail   *Thumbnail  `json:"thumbnail,omitempty" db:"thumbnail" redis:"thumbnail"`
	Error       string      `json:"error,omitempty" db:"error_message" redis:"error_message"`
	Source      *MediaInfo  `json:"source,omitempty" db:"source" redis:"source"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at" redis:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at" db:"updated_at" redis:"updated_at"`
	CompletedAt *time.Time  `json:"completed_at,omitempty" db:"completed_at" redis:"completed_at"`
}

// MediaInfo is what ffprobe reports about the input recording.
type MediaInfo struct {
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	FPS      float64 `json:"fps"`
	Codec    string  `json:"codec"`
	Bitrate  int     `json:"bitrate"`
	Duration float64 `json:"duration"`
}

type JobList struct {
	Jobs       []*TranscodeJob `json:"jobs"`
	TotalCount int             `json:"total_count"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
	HasMore    bool            `json:"has_more"`
}
