package transcript

import "sync"

// Store holds the ordered segments of the currently loaded transcript.
// Order is chronological because the backend emits segments in start
// order; the store trusts that and never reorders.
//
// The store is the one piece of state mutated from both the task
// lifecycle (bulk load) and edit handlers, and read by export and
// sync, so all access goes through the mutex and readers only ever get
// copies.
type Store struct {
	mu       sync.RWMutex
	segments []Segment
}

// NewStore creates an empty segment store.
func NewStore() *Store {
	return &Store{}
}

// ReplaceAll atomically swaps in a new transcript, discarding the
// previous segments and any unsaved edits to them. The input slice is
// copied so the caller cannot mutate the store afterwards.
func (s *Store) ReplaceAll(segments []Segment) {
	copied := make([]Segment, len(segments))
	copy(copied, segments)

	s.mu.Lock()
	s.segments = copied
	s.mu.Unlock()
}

// SetText replaces the text of the segment at index. An out-of-range
// index is a silent no-op: an edit landing after the store was reset
// for a new task must not corrupt state.
func (s *Store) SetText(index int, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.segments) {
		return
	}
	s.segments[index].Text = text
}

// Snapshot returns an independent copy of the current segments for
// export, save, and sync reads.
func (s *Store) Snapshot() []Segment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Segment, len(s.segments))
	copy(out, s.segments)
	return out
}

// Len reports the number of loaded segments.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.segments)
}

// Clear discards all segments, returning the store to its unloaded state.
func (s *Store) Clear() {
	s.mu.Lock()
	s.segments = nil
	s.mu.Unlock()
}
