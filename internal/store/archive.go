// Package store persists edited transcripts to Supabase so a review
// session can be reloaded after the backend task itself is long gone.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/supabase-community/postgrest-go"
	supa "github.com/supabase-community/supabase-go"

	"videoscribe/internal/transcript"
)

const segmentsTable = "transcript_segments"

// archivedSegment is the transcript_segments row shape.
type archivedSegment struct {
	ID        uuid.UUID `json:"id"`
	TaskID    string    `json:"task_id"`
	Position  int       `json:"position"`
	StartTime float64   `json:"start_time"`
	EndTime   float64   `json:"end_time"`
	Speaker   string    `json:"speaker"`
	Text      string    `json:"text"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SegmentArchive stores transcript snapshots in Supabase, keyed by
// backend task id and segment position.
type SegmentArchive struct {
	client *supa.Client
	log    *logrus.Logger
}

// NewSegmentArchive connects to Supabase at the given URL/key.
func NewSegmentArchive(supabaseURL, supabaseKey string, log *logrus.Logger) (*SegmentArchive, error) {
	if log == nil {
		log = logrus.New()
	}
	client, err := supa.NewClient(supabaseURL, supabaseKey, nil)
	if err != nil {
		return nil, fmt.Errorf("initialize supabase client: %w", err)
	}
	return &SegmentArchive{client: client, log: log}, nil
}

// SaveSegments upserts the full snapshot for a task. Positions are
// stable (segments are never inserted or removed after load), so an
// upsert on (task_id, position) replaces earlier saves of the same
// transcript.
func (a *SegmentArchive) SaveSegments(ctx context.Context, taskID string, segments []transcript.Segment) error {
	now := time.Now().UTC()
	rows := make([]archivedSegment, len(segments))
	for i, seg := range segments {
		rows[i] = archivedSegment{
			ID:        uuid.New(),
			TaskID:    taskID,
			Position:  i,
			StartTime: seg.Start,
			EndTime:   seg.End,
			Speaker:   seg.Speaker,
			Text:      seg.Text,
			UpdatedAt: now,
		}
	}

	_, _, err := a.client.From(segmentsTable).
		Insert(rows, true, "task_id,position", "minimal", "").
		Execute()
	if err != nil {
		a.log.WithField("task_id", taskID).WithError(err).Error("Failed to archive segments")
		return fmt.Errorf("archive segments for task %s: %w", taskID, err)
	}

	a.log.WithFields(logrus.Fields{"task_id": taskID, "segments": len(rows)}).
		Info("Archived transcript snapshot")
	return nil
}

// LoadSegments returns the archived snapshot for a task in position
// order, or an empty slice when nothing was saved.
func (a *SegmentArchive) LoadSegments(ctx context.Context, taskID string) ([]transcript.Segment, error) {
	body, _, err := a.client.From(segmentsTable).
		Select("*", "", false).
		Eq("task_id", taskID).
		Order("position", &postgrest.OrderOpts{Ascending: true}).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("load archived segments for task %s: %w", taskID, err)
	}

	var rows []archivedSegment
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode archived segments for task %s: %w", taskID, err)
	}

	segments := make([]transcript.Segment, len(rows))
	for i, row := range rows {
		segments[i] = transcript.Segment{
			Start:   row.StartTime,
			End:     row.EndTime,
			Speaker: row.Speaker,
			Text:    row.Text,
		}
	}
	return segments, nil
}
