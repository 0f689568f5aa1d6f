package models

import (
	"errors"
	"fmt"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrJobNotFound     = errors.New("job not found")
	ErrInvalidState    = errors.New("operation not allowed in current state")
)

// AuthorizationError covers unknown/inactive stream keys and duplicate
// publish attempts for a key or owner that is already live.
type AuthorizationError struct {
	StreamKey string
	Reason    string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("authorization failed for stream key %q: %s", e.StreamKey, e.Reason)
}

// TranscodeStepError wraps a transcoder failure and carries the quality step
// that failed.
type TranscodeStepError struct {
	Quality string
	Err     error
}

func (e *TranscodeStepError) Error() string {
	return fmt.Sprintf("transcode step %s failed: %v", e.Quality, e.Err)
}

func (e *TranscodeStepError) Unwrap() error {
	return e.Err
}

// PersistenceError marks a durable store or fast cache write that kept
// failing after retries.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
