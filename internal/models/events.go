package models

import "time"

type EventType string

const (
	EventStreamStarted      EventType = "stream_started"
	EventStreamEnded        EventType = "stream_ended"
	EventViewerCountChanged EventType = "viewer_count_changed"
	EventJobProgress        EventType = "job_progress"
	EventJobCompleted       EventType = "job_completed"
	EventJobFailed          EventType = "job_failed"
)

// Event is the outbound, fire-and-forget notification payload.
type Event struct {
	Type        EventType `json:"type"`
	StreamKey   string    `json:"stream_key,omitempty"`
	SessionID   string    `json:"session_id,omitempty"`
	OwnerID     string    `json:"owner_id,omitempty"`
	JobID       string    `json:"job_id,omitempty"`
	ViewerCount int       `json:"viewer_count,omitempty"`
	Progress    int       `json:"progress,omitempty"`
	Error       string    `json:"error,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}
