// Package playback keeps the transcript view in step with video
// playback: it resolves which segment is active for a given playback
// position and forwards seek requests to whatever player is attached.
package playback

import (
	"strings"
	"sync"

	"videoscribe/internal/transcript"
)

// DefaultWindow is the active-speech window in seconds. A segment is
// considered active while playback sits within [start, start+window);
// end times from the backend can be imprecise or missing, so matching
// against them would drop highlights mid-sentence.
const DefaultWindow = 5.0

// Player is the capability the controller drives. A real embedded
// player seeks the video; in simulated mode no player is attached and
// only the highlight moves.
type Player interface {
	Seek(seconds float64)
}

// Mode selects how the loaded video is played back.
type Mode string

const (
	// ModeEmbedded plays through an embeddable player.
	ModeEmbedded Mode = "embedded"
	// ModeSimulated has no real playback; sync highlighting still runs.
	ModeSimulated Mode = "simulated"
)

// SelectMode chooses the playback mode for a completed task. The
// explicit source hint from the backend wins; when it is absent the
// original title heuristic (untitled or "Unknown" means a YouTube
// download we can embed) is kept as a best-effort fallback.
func SelectMode(videoSource, videoTitle string) Mode {
	switch videoSource {
	case "youtube":
		return ModeEmbedded
	case "upload":
		return ModeSimulated
	}

	if videoTitle == "" || strings.Contains(videoTitle, "Unknown") {
		return ModeEmbedded
	}
	return ModeSimulated
}

// ActiveSegment returns the index of the first segment whose window
// [start, start+window) contains t. Segments are scanned in order, so
// the earliest match wins. window <= 0 falls back to DefaultWindow.
func ActiveSegment(segments []transcript.Segment, t, window float64) (int, bool) {
	if window <= 0 {
		window = DefaultWindow
	}

	for i, seg := range segments {
		if t >= seg.Start && t < seg.Start+window {
			return i, true
		}
	}
	return 0, false
}

// Controller tracks the active segment highlight and relays seeks to
// the attached player, if any. The highlight is updated on every seek
// regardless of whether a player is attached, so the observable state
// is the same in embedded and simulated mode.
type Controller struct {
	mu     sync.Mutex
	store  *transcript.Store
	window float64
	player Player
	mode   Mode
	active int
	hasOne bool
}

// NewController creates a controller reading segments from store.
func NewController(store *transcript.Store, window float64) *Controller {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Controller{
		store:  store,
		window: window,
		mode:   ModeSimulated,
	}
}

// Attach installs the player for the given mode. A nil player leaves
// the controller in highlight-only operation.
func (c *Controller) Attach(mode Mode, player Player) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mode = mode
	c.player = player
}

// Mode reports the current playback mode.
func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Seek moves playback to t and recomputes the active segment. It
// returns the active segment index and whether any segment matched.
func (c *Controller) Seek(t float64) (int, bool) {
	c.mu.Lock()
	player := c.player
	window := c.window
	c.mu.Unlock()

	if player != nil {
		player.Seek(t)
	}

	index, ok := ActiveSegment(c.store.Snapshot(), t, window)

	c.mu.Lock()
	c.active = index
	c.hasOne = ok
	c.mu.Unlock()

	return index, ok
}

// Active returns the most recently computed active segment index.
func (c *Controller) Active() (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active, c.hasOne
}

// Reset clears the highlight and detaches the player, for use when a
// new task replaces the workspace contents.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.player = nil
	c.mode = ModeSimulated
	c.active = 0
	c.hasOne = false
}
