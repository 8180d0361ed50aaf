package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"videoscribe/internal/task"
	"videoscribe/internal/transcript"
	"videoscribe/internal/workspace"
)

// fakeBackend completes every submitted task on the first poll.
type fakeBackend struct {
	mu     sync.Mutex
	nextID int
	result task.PollResult
}

func (b *fakeBackend) Submit(ctx context.Context, sub task.Submission) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	return "42", nil
}

func (b *fakeBackend) Poll(ctx context.Context, taskID string) (task.PollResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.result, nil
}

func completedResult() task.PollResult {
	return task.PollResult{
		Status:      task.StatusCompleted,
		VideoTitle:  "A Talk",
		Summary:     "about things",
		VideoSource: "youtube",
		Segments: []transcript.Segment{
			{Start: 0, End: 4, Speaker: "Speaker 1", Text: "hello there"},
			{Start: 5, End: 9, Speaker: "Speaker 2", Text: "general remark"},
		},
	}
}

func newTestApp(t *testing.T) (*fiber.App, *workspace.Workspace, chan task.Snapshot) {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	ch := make(chan task.Snapshot, 64)
	ws := workspace.New(&fakeBackend{result: completedResult()}, workspace.Options{
		Log:          log,
		PollInterval: 5 * time.Millisecond,
		OnChange:     func(s task.Snapshot) { ch <- s },
	})

	app := fiber.New()
	NewHandler(ws, nil, log).Register(app)
	return app, ws, ch
}

func waitForPhase(t *testing.T, ch chan task.Snapshot, phase task.Phase) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap := <-ch:
			if snap.Phase == phase {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for phase %s", phase)
		}
	}
}

func loadCompletedTask(t *testing.T, app *fiber.App, ch chan task.Snapshot) {
	t.Helper()
	form := strings.NewReader("url=https://youtube.com/watch?v=abc&language=en")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transcribe/youtube", form)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := app.Test(req, 2000)
	if err != nil {
		t.Fatalf("submit request: %v", err)
	}
	if resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("submit status = %d: %s", resp.StatusCode, body)
	}
	waitForPhase(t, ch, task.PhaseCompleted)
}

func decodeEnvelope(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	var envelope struct {
		Status string                 `json:"status"`
		Data   map[string]interface{} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return envelope.Data
}

// TestHealth checks the liveness route.
func TestHealth(t *testing.T) {
	app, _, _ := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

// TestSubmitYouTubeRequiresURL checks input validation happens before
// the lifecycle is touched.
func TestSubmitYouTubeRequiresURL(t *testing.T) {
	app, ws, _ := newTestApp(t)

	form := strings.NewReader("language=en")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transcribe/youtube", form)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if got := ws.Status().Phase; got != task.PhaseIdle {
		t.Fatalf("phase = %s, want idle", got)
	}
}

// TestStatusAndTranscriptFlow submits, waits for completion through the
// status route, and reads the transcript.
func TestStatusAndTranscriptFlow(t *testing.T) {
	app, _, ch := newTestApp(t)

	// Transcript before any task is loaded.
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/transcript", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("transcript before load status = %d, want 404", resp.StatusCode)
	}

	loadCompletedTask(t, app, ch)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))
	if err != nil {
		t.Fatalf("status request: %v", err)
	}
	data := decodeEnvelope(t, resp)
	if data["phase"] != string(task.PhaseCompleted) {
		t.Fatalf("status data = %v", data)
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/transcript", nil))
	if err != nil {
		t.Fatalf("transcript request: %v", err)
	}
	data = decodeEnvelope(t, resp)
	if data["video_title"] != "A Talk" {
		t.Fatalf("transcript data = %v", data)
	}
	segments, ok := data["segments"].([]interface{})
	if !ok || len(segments) != 2 {
		t.Fatalf("segments = %v", data["segments"])
	}
}

// TestEditSegment covers a valid edit and the stale-index 404.
func TestEditSegment(t *testing.T) {
	app, ws, ch := newTestApp(t)
	loadCompletedTask(t, app, ch)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/segments/0",
		strings.NewReader(`{"text": "corrected words"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("edit request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("edit status = %d", resp.StatusCode)
	}

	_, segs := ws.Transcript()
	if segs[0].Text != "corrected words" {
		t.Fatalf("segment text = %q", segs[0].Text)
	}

	req = httptest.NewRequest(http.MethodPut, "/api/v1/segments/9",
		strings.NewReader(`{"text": "stale"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("stale edit request: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("stale edit status = %d, want 404", resp.StatusCode)
	}
}

// TestExport checks the download headers and that exports reflect
// edits.
func TestExport(t *testing.T) {
	app, ws, ch := newTestApp(t)
	loadCompletedTask(t, app, ch)

	if err := ws.EditSegment(0, "edited line"); err != nil {
		t.Fatalf("edit: %v", err)
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/export/txt", nil))
	if err != nil {
		t.Fatalf("export request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export status = %d", resp.StatusCode)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "transcript.txt") {
		t.Fatalf("content-disposition = %q", cd)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "edited line") {
		t.Fatalf("export body missing edit:\n%s", body)
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/export/vtt", nil))
	if err != nil {
		t.Fatalf("vtt export request: %v", err)
	}
	body, _ = io.ReadAll(resp.Body)
	if !strings.HasPrefix(string(body), "WEBVTT\n\n") {
		t.Fatalf("vtt body = %q", body)
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/export/pdf", nil))
	if err != nil {
		t.Fatalf("bad format request: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad format status = %d, want 400", resp.StatusCode)
	}
}

// TestSeek checks the active-segment response shape.
func TestSeek(t *testing.T) {
	app, _, ch := newTestApp(t)
	loadCompletedTask(t, app, ch)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/seek", strings.NewReader(`{"time": 6}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("seek request: %v", err)
	}
	data := decodeEnvelope(t, resp)
	if data["active"] != true || data["index"] != float64(1) {
		t.Fatalf("seek data = %v", data)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/seek", strings.NewReader(`{"time": 40}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("seek request: %v", err)
	}
	data = decodeEnvelope(t, resp)
	if data["active"] != false {
		t.Fatalf("out-of-window seek data = %v", data)
	}
}

// TestArchiveUnconfigured checks the archive route degrades cleanly
// when no archive is wired.
func TestArchiveUnconfigured(t *testing.T) {
	app, _, _ := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/archive/42", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
}
