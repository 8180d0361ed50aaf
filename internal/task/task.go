package task

import (
	"context"
	"errors"
	"fmt"
	"io"

	"videoscribe/internal/transcript"
)

// Status is the backend-reported state of a transcription task. It
// only ever moves forward: pending -> processing -> completed|failed.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether a status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Phase is the local lifecycle state wrapped around the backend task:
// idle -> submitting -> polling -> completed|failed.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseSubmitting Phase = "submitting"
	PhasePolling    Phase = "polling"
	PhaseCompleted  Phase = "completed"
	PhaseFailed     Phase = "failed"
)

// SourceKind identifies where the submitted video comes from.
type SourceKind string

const (
	SourceYouTube SourceKind = "youtube"
	SourceUpload  SourceKind = "upload"
)

// DefaultLanguage is assumed when a submission carries no language hint.
const DefaultLanguage = "en"

// Submission describes one transcription request. URL is required for
// SourceYouTube; File and FileName are required for SourceUpload.
type Submission struct {
	Kind     SourceKind
	URL      string
	FileName string
	File     io.Reader
	Language string
}

// Task is one transcription job from submission to terminal status.
// Once Status is terminal the task is never mutated again; a new
// submission creates a fresh Task.
type Task struct {
	ID          string
	Status      Status
	VideoTitle  string
	Summary     string
	VideoSource string
	Language    string
	Segments    []transcript.Segment
}

// PollResult is one status response from the backend. Segments are
// populated only when Status is StatusCompleted.
type PollResult struct {
	Status      Status
	VideoTitle  string
	Summary     string
	VideoSource string
	Segments    []transcript.Segment
}

// Backend is the transcription service as the lifecycle sees it:
// submit once, then poll by id until terminal.
type Backend interface {
	Submit(ctx context.Context, sub Submission) (taskID string, err error)
	Poll(ctx context.Context, taskID string) (PollResult, error)
}

// Input validation failures, raised before any network call is made.
// All of them unwrap to ErrInput.
var (
	ErrInput     = errors.New("invalid submission")
	ErrNoURL     = fmt.Errorf("%w: url is required", ErrInput)
	ErrNoFile    = fmt.Errorf("%w: file is required", ErrInput)
	ErrBadSource = fmt.Errorf("%w: unknown source kind", ErrInput)
)

// Terminal polling failures.
var (
	// ErrTranscriptionFailed is the backend's own terminal failed
	// status, not a transport problem.
	ErrTranscriptionFailed = errors.New("transcription failed")
	// ErrPollBudgetExceeded is returned after too many consecutive
	// transport failures while polling.
	ErrPollBudgetExceeded = errors.New("poll failure budget exceeded")
	// ErrPollDeadlineExceeded is returned when the backend never
	// reached a terminal status within the allowed duration.
	ErrPollDeadlineExceeded = errors.New("poll deadline exceeded")
)

// Validate checks a submission before it is sent anywhere.
func (s Submission) Validate() error {
	switch s.Kind {
	case SourceYouTube:
		if s.URL == "" {
			return ErrNoURL
		}
	case SourceUpload:
		if s.File == nil || s.FileName == "" {
			return ErrNoFile
		}
	default:
		return ErrBadSource
	}
	return nil
}
