// Package workspace owns the state of one review session: the current
// transcription task, its segment store, and the playback sync
// controller. This is the single place that wires the task lifecycle's
// output into the store and the player selection.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"videoscribe/internal/export"
	"videoscribe/internal/playback"
	"videoscribe/internal/task"
	"videoscribe/internal/transcript"
)

var (
	// ErrNoTask is returned by operations that need a completed task
	// (save, export download naming) when none is loaded.
	ErrNoTask = errors.New("no completed task loaded")
	// ErrSegmentOutOfRange reports an edit against an index that does
	// not exist in the loaded transcript.
	ErrSegmentOutOfRange = errors.New("segment index out of range")
	// ErrNoSaver is returned when saving without a configured sink.
	ErrNoSaver = errors.New("no save sink configured")
)

// Saver is the opaque "save segments" sink. The HTTP backend client
// and the Supabase archive both satisfy it.
type Saver interface {
	SaveSegments(ctx context.Context, taskID string, segments []transcript.Segment) error
}

// Options configures a workspace.
type Options struct {
	Log             *logrus.Logger
	PollInterval    time.Duration
	MaxPollFailures int
	MaxPollDuration time.Duration
	SyncWindow      float64
	Saver           Saver
	// PlayerFactory supplies the player capability for a mode; a nil
	// factory or nil return leaves sync in highlight-only operation.
	PlayerFactory func(playback.Mode) playback.Player
	// OnChange receives lifecycle snapshots after the workspace has
	// applied them, for a UI layer to subscribe to.
	OnChange func(task.Snapshot)
}

// Workspace is the cohesive owner of the current task id, segment
// store, poll loop, and player reference.
type Workspace struct {
	log        *logrus.Logger
	store      *transcript.Store
	lifecycle  *task.Lifecycle
	controller *playback.Controller
	saver      Saver
	players    func(playback.Mode) playback.Player
	onChange   func(task.Snapshot)
}

// New creates a workspace over the given transcription backend.
func New(backend task.Backend, opts Options) *Workspace {
	if opts.Log == nil {
		opts.Log = logrus.New()
	}

	store := transcript.NewStore()
	w := &Workspace{
		log:        opts.Log,
		store:      store,
		controller: playback.NewController(store, opts.SyncWindow),
		saver:      opts.Saver,
		players:    opts.PlayerFactory,
		onChange:   opts.OnChange,
	}

	w.lifecycle = task.NewLifecycle(backend, task.Options{
		PollInterval:    opts.PollInterval,
		MaxPollFailures: opts.MaxPollFailures,
		MaxPollDuration: opts.MaxPollDuration,
		Log:             opts.Log,
		OnChange:        w.applyChange,
	})
	return w
}

// Submit starts a new transcription task, discarding the previous task
// and its segments.
func (w *Workspace) Submit(ctx context.Context, sub task.Submission) error {
	return w.lifecycle.Submit(ctx, sub)
}

// Status returns the current lifecycle snapshot.
func (w *Workspace) Status() task.Snapshot {
	return w.lifecycle.Current()
}

// Transcript returns the current task metadata and a segment snapshot.
func (w *Workspace) Transcript() (task.Task, []transcript.Segment) {
	snap := w.lifecycle.Current()
	return snap.Task, w.store.Snapshot()
}

// EditSegment replaces one segment's text. The store itself tolerates
// stale indexes silently; the workspace reports them so callers can
// surface a not-found instead of acking a dropped edit.
func (w *Workspace) EditSegment(index int, text string) error {
	if index < 0 || index >= w.store.Len() {
		return fmt.Errorf("%w: %d", ErrSegmentOutOfRange, index)
	}
	w.store.SetText(index, text)
	return nil
}

// Save pushes the current segment snapshot to the save sink. Edits
// stay in the store whether or not the save succeeds, so a failed save
// can simply be retried.
func (w *Workspace) Save(ctx context.Context) error {
	if w.saver == nil {
		return ErrNoSaver
	}
	snap := w.lifecycle.Current()
	if snap.Phase != task.PhaseCompleted || snap.Task.ID == "" {
		return ErrNoTask
	}
	return w.saver.SaveSegments(ctx, snap.Task.ID, w.store.Snapshot())
}

// Export renders the current transcript in the requested format.
func (w *Workspace) Export(format export.Format) ([]byte, string, error) {
	return export.Render(w.store.Snapshot(), format)
}

// Seek drives playback to t and returns the resulting active segment.
func (w *Workspace) Seek(t float64) (int, bool) {
	return w.controller.Seek(t)
}

// ActiveSegment returns the current highlight.
func (w *Workspace) ActiveSegment() (int, bool) {
	return w.controller.Active()
}

// PlaybackMode reports how the loaded video is being played back.
func (w *Workspace) PlaybackMode() playback.Mode {
	return w.controller.Mode()
}

// Reset clears the workspace: cancels polling, discards the task and
// its segments, and drops the playback highlight.
func (w *Workspace) Reset() {
	w.lifecycle.Reset()
}

// applyChange reacts to lifecycle transitions before the external
// observer sees them: a completed task loads the store and selects the
// playback mode; a new submission clears both.
func (w *Workspace) applyChange(snap task.Snapshot) {
	switch snap.Phase {
	case task.PhaseCompleted:
		w.store.ReplaceAll(snap.Task.Segments)
		w.controller.Reset()
		mode := playback.SelectMode(snap.Task.VideoSource, snap.Task.VideoTitle)
		var player playback.Player
		if w.players != nil {
			player = w.players(mode)
		}
		w.controller.Attach(mode, player)
	case task.PhaseSubmitting, task.PhaseIdle:
		w.store.Clear()
		w.controller.Reset()
	}

	if w.onChange != nil {
		w.onChange(snap)
	}
}
