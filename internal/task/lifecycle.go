package task

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"videoscribe/internal/transcript"
)

// Default polling parameters. The interval matches the reference
// client; the failure budget and deadline bound a backend that never
// reaches a terminal status.
const (
	DefaultPollInterval    = 2 * time.Second
	DefaultMaxPollFailures = 30
	DefaultMaxPollDuration = 30 * time.Minute
)

// Snapshot is a consistent copy of the lifecycle state delivered to
// the change observer and returned by Current.
type Snapshot struct {
	Phase    Phase
	Task     Task
	Progress string
	Err      error
}

// Options configures a Lifecycle. Zero values fall back to defaults.
type Options struct {
	PollInterval    time.Duration
	MaxPollFailures int
	MaxPollDuration time.Duration
	Log             *logrus.Logger
	// OnChange, when set, is invoked after every observable state
	// change with a snapshot. Calls are serialized.
	OnChange func(Snapshot)
}

// Lifecycle drives one transcription task at a time from submission
// through polling to a terminal status. Submitting while a previous
// task is still polling cancels the old poll loop before the new
// submission starts, so at most one poll loop is ever live.
type Lifecycle struct {
	backend  Backend
	log      *logrus.Logger
	interval time.Duration
	budget   int
	deadline time.Duration
	onChange func(Snapshot)

	mu       sync.Mutex
	notifyMu sync.Mutex
	gen      uint64
	phase    Phase
	current  Task
	progress string
	err      error
	cancel   context.CancelFunc
}

// NewLifecycle creates an idle lifecycle over the given backend.
func NewLifecycle(backend Backend, opts Options) *Lifecycle {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.MaxPollFailures <= 0 {
		opts.MaxPollFailures = DefaultMaxPollFailures
	}
	if opts.MaxPollDuration <= 0 {
		opts.MaxPollDuration = DefaultMaxPollDuration
	}
	if opts.Log == nil {
		opts.Log = logrus.New()
	}

	return &Lifecycle{
		backend:  backend,
		log:      opts.Log,
		interval: opts.PollInterval,
		budget:   opts.MaxPollFailures,
		deadline: opts.MaxPollDuration,
		onChange: opts.OnChange,
		phase:    PhaseIdle,
	}
}

// Current returns a snapshot of the lifecycle state.
func (l *Lifecycle) Current() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

// Submit starts a new transcription task. Any poll loop belonging to a
// previous task is cancelled first. Validation failures (ErrInput) are
// returned before anything is sent to the backend and leave the
// previous task untouched; a submit transport or server failure moves
// the new task straight to PhaseFailed since there is no id to poll.
func (l *Lifecycle) Submit(ctx context.Context, sub Submission) error {
	if sub.Language == "" {
		sub.Language = DefaultLanguage
	}
	if err := sub.Validate(); err != nil {
		return err
	}

	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.gen++
	gen := l.gen
	l.phase = PhaseSubmitting
	l.err = nil
	l.progress = "submitting"
	l.current = Task{
		Status:      StatusPending,
		VideoSource: string(sub.Kind),
		Language:    sub.Language,
	}
	if sub.Kind == SourceUpload {
		l.current.VideoTitle = sub.FileName
	}
	snap := l.snapshotLocked()
	l.mu.Unlock()
	l.notify(snap)

	taskID, err := l.backend.Submit(ctx, sub)
	if err != nil {
		l.fail(gen, fmt.Errorf("submit: %w", err))
		return err
	}

	l.mu.Lock()
	if gen != l.gen {
		// A newer submission replaced this one mid-flight.
		l.mu.Unlock()
		return nil
	}
	l.current.ID = taskID
	l.phase = PhasePolling
	l.progress = string(StatusPending)
	pollCtx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	snap = l.snapshotLocked()
	l.mu.Unlock()
	l.notify(snap)

	l.log.WithFields(logrus.Fields{"task_id": taskID, "source": sub.Kind}).
		Info("Transcription task submitted, polling started")

	go l.pollLoop(pollCtx, gen, taskID)
	return nil
}

// pollLoop queries the backend at a fixed interval until the task is
// terminal, the failure budget or deadline runs out, or the context is
// cancelled by a newer submission.
func (l *Lifecycle) pollLoop(ctx context.Context, gen uint64, taskID string) {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	deadline := time.Now().Add(l.deadline)
	failures := 0

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		result, err := l.backend.Poll(ctx, taskID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			// Transient poll errors are tolerated: one dropped
			// response must not abandon a long-running job.
			failures++
			l.log.WithFields(logrus.Fields{"task_id": taskID, "failures": failures}).
				WithError(err).Warn("Poll tick failed")
			if failures >= l.budget {
				l.fail(gen, fmt.Errorf("%w after %d attempts: %v", ErrPollBudgetExceeded, failures, err))
				return
			}
			continue
		}
		failures = 0

		switch result.Status {
		case StatusCompleted:
			l.complete(gen, taskID, result)
			return
		case StatusFailed:
			l.fail(gen, ErrTranscriptionFailed)
			return
		default:
			l.mu.Lock()
			if gen == l.gen {
				l.current.Status = result.Status
				l.progress = string(result.Status)
				snap := l.snapshotLocked()
				l.mu.Unlock()
				l.notify(snap)
			} else {
				l.mu.Unlock()
			}
		}

		if time.Now().After(deadline) {
			l.fail(gen, ErrPollDeadlineExceeded)
			return
		}
	}
}

// complete materializes the finished task. The generation check makes
// the transition exactly-once even if a stale loop races a new submit.
func (l *Lifecycle) complete(gen uint64, taskID string, result PollResult) {
	l.mu.Lock()
	if gen != l.gen {
		l.mu.Unlock()
		return
	}
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.phase = PhaseCompleted
	l.current.Status = StatusCompleted
	l.current.VideoTitle = result.VideoTitle
	l.current.Summary = result.Summary
	if result.VideoSource != "" {
		l.current.VideoSource = result.VideoSource
	}
	l.current.Segments = transcript.Normalize(result.Segments)
	l.progress = string(StatusCompleted)
	snap := l.snapshotLocked()
	l.mu.Unlock()

	l.log.WithFields(logrus.Fields{"task_id": taskID, "segments": len(result.Segments)}).
		Info("Transcription completed")
	l.notify(snap)
}

func (l *Lifecycle) fail(gen uint64, err error) {
	l.mu.Lock()
	if gen != l.gen {
		l.mu.Unlock()
		return
	}
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.phase = PhaseFailed
	l.current.Status = StatusFailed
	l.err = err
	l.progress = string(StatusFailed)
	snap := l.snapshotLocked()
	l.mu.Unlock()

	l.log.WithField("task_id", snap.Task.ID).WithError(err).Error("Transcription task failed")
	l.notify(snap)
}

// Reset cancels any live poll loop and returns the lifecycle to idle,
// discarding the current task.
func (l *Lifecycle) Reset() {
	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.gen++
	l.phase = PhaseIdle
	l.current = Task{}
	l.progress = ""
	l.err = nil
	snap := l.snapshotLocked()
	l.mu.Unlock()
	l.notify(snap)
}

func (l *Lifecycle) snapshotLocked() Snapshot {
	t := l.current
	if t.Segments != nil {
		segs := make([]transcript.Segment, len(t.Segments))
		copy(segs, t.Segments)
		t.Segments = segs
	}
	return Snapshot{
		Phase:    l.phase,
		Task:     t,
		Progress: l.progress,
		Err:      l.err,
	}
}

// notify delivers a snapshot to the observer outside the state lock.
// notifyMu keeps deliveries in order.
func (l *Lifecycle) notify(snap Snapshot) {
	if l.onChange == nil {
		return
	}
	l.notifyMu.Lock()
	defer l.notifyMu.Unlock()
	l.onChange(snap)
}
