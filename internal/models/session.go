package models

import (
	"time"

	"github.com/google/uuid"
)

type SessionState string

const (
	SessionStateLive  SessionState = "live"
	SessionStateEnded SessionState = "ended"
)

// StreamSession tracks one continuous live broadcast under a stream key.
// Once Ended the record is immutable and kept for history.
type StreamSession struct {
	SessionID      uuid.UUID    `json:"session_id" db:"session_id" redis:"session_id" validate:"omitempty"`
	StreamKey      string       `json:"stream_key" db:"stream_key" redis:"stream_key" validate:"required,lte=128"`
	OwnerID        uuid.UUID    `json:"owner_id" db:"owner_id" redis:"owner_id" validate:"required"`
	Title          string       `json:"title" db:"title" redis:"title" validate:"omitempty,lte=255"`
	Category       string       `json:"category" db:"category" redis:"category" validate:"omitempty,lte=64"`
	State          SessionState `json:"state" db:"state" redis:"state" validate:"required"`
	ViewerCount    int          `json:"viewer_count" db:"viewer_count" redis:"viewer_count" validate:"gte=0"`
	PeakViewers    int          `json:"peak_viewers" db:"peak_viewers" redis:"peak_viewers" validate:"gte=0"`
	StartedAt      time.Time    `json:"started_at" db:"started_at" redis:"started_at"`
	EndedAt        *time.Time   `json:"ended_at,omitempty" db:"ended_at" redis:"ended_at"`
	Duration       int64        `json:"duration_seconds" db:"duration_seconds" redis:"duration_seconds"`
	RecordingPath  string       `json:"recording_path,omitempty" db:"recording_path" redis:"recording_path"`
	TranscodeJobID string       `json:"transcode_job_id,omitempty" db:"transcode_job_id" redis:"transcode_job_id"`

	// Unverified marks a session reloaded from the durable store after a
	// restart. The ingest connection cannot be reconstructed, so the session
	// stays flagged until a fresh publish signal arrives or the janitor
	// expires it.
	Unverified bool `json:"-" db:"-" redis:"-"`
}

type SessionMetadata struct {
	Title    string `json:"title" validate:"omitempty,lte=255"`
	Category string `json:"category" validate:"omitempty,lte=64"`
}

type StreamKeyRecord struct {
	StreamKey string    `json:"stream_key" db:"stream_key"`
	OwnerID   uuid.UUID `json:"owner_id" db:"owner_id"`
	Active    bool      `json:"active" db:"active"`
}
