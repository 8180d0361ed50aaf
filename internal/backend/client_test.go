package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"videoscribe/internal/task"
	"videoscribe/internal/transcript"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// TestClientSubmitYouTube checks form encoding and task id extraction.
func TestClientSubmitYouTube(t *testing.T) {
	var gotURL, gotLang, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotURL = r.PostFormValue("url")
		gotLang = r.PostFormValue("language")
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"task_id": 42, "status": "pending"}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, testLogger())
	id, err := c.Submit(context.Background(), task.Submission{
		Kind:     task.SourceYouTube,
		URL:      "https://youtube.com/watch?v=abc",
		Language: "en",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if id != "42" {
		t.Fatalf("task id = %q, want 42", id)
	}
	if gotPath != "/api/transcribe/youtube" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotURL != "https://youtube.com/watch?v=abc" || gotLang != "en" {
		t.Fatalf("form = url %q lang %q", gotURL, gotLang)
	}
}

// TestClientSubmitUpload checks the multipart request carries the file
// content and language.
func TestClientSubmitUpload(t *testing.T) {
	var gotName, gotContent, gotLang string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		gotLang = r.FormValue("language")
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
		} else {
			defer file.Close()
			gotName = header.Filename
			data, _ := io.ReadAll(file)
			gotContent = string(data)
		}
		io.WriteString(w, `{"task_id": "7", "status": "pending"}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, testLogger())
	id, err := c.Submit(context.Background(), task.Submission{
		Kind:     task.SourceUpload,
		FileName: "lecture.mp4",
		File:     strings.NewReader("fake video bytes"),
		Language: "hi",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if id != "7" {
		t.Fatalf("task id = %q", id)
	}
	if gotName != "lecture.mp4" || gotContent != "fake video bytes" || gotLang != "hi" {
		t.Fatalf("upload = name %q content %q lang %q", gotName, gotContent, gotLang)
	}
}

// TestClientSubmitServerError checks non-2xx maps to ServerError.
func TestClientSubmitServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unsupported media", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, testLogger())
	_, err := c.Submit(context.Background(), task.Submission{
		Kind: task.SourceYouTube, URL: "https://youtube.com/watch?v=abc", Language: "en",
	})

	var serverErr *ServerError
	if !errors.As(err, &serverErr) {
		t.Fatalf("err = %v, want ServerError", err)
	}
	if serverErr.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", serverErr.StatusCode)
	}
}

// TestClientSubmitTransportError checks an unreachable server maps to
// TransportError.
func TestClientSubmitTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // immediately unreachable

	c := NewClient(srv.URL, nil, testLogger())
	_, err := c.Submit(context.Background(), task.Submission{
		Kind: task.SourceYouTube, URL: "https://youtube.com/watch?v=abc", Language: "en",
	})

	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("err = %v, want TransportError", err)
	}
}

// TestClientPoll checks status decoding for processing and completed
// payloads.
func TestClientPoll(t *testing.T) {
	responses := map[string]string{
		"/api/status/41": `{"id": 41, "status": "processing", "video_title": null}`,
		"/api/status/42": `{
			"id": 42,
			"status": "completed",
			"video_title": "A Talk",
			"summary": "about things",
			"video_source": "youtube",
			"transcript": [
				{"start": 0, "end": 4.5, "speaker": "Speaker 1", "text": "hello"}
			]
		}`,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := responses[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, body)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, testLogger())

	res, err := c.Poll(context.Background(), "41")
	if err != nil {
		t.Fatalf("poll 41: %v", err)
	}
	if res.Status != task.StatusProcessing || len(res.Segments) != 0 {
		t.Fatalf("poll 41 = %+v", res)
	}

	res, err = c.Poll(context.Background(), "42")
	if err != nil {
		t.Fatalf("poll 42: %v", err)
	}
	if res.Status != task.StatusCompleted || res.VideoTitle != "A Talk" {
		t.Fatalf("poll 42 = %+v", res)
	}
	if len(res.Segments) != 1 || res.Segments[0].End != 4.5 {
		t.Fatalf("segments = %+v", res.Segments)
	}

	if _, err := c.Poll(context.Background(), "999"); err == nil {
		t.Fatal("poll of unknown task did not fail")
	}
}

// TestClientPollMalformedBody checks a parse failure surfaces as a
// TransportError so the lifecycle treats it as a transient tick error.
func TestClientPollMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"status": `)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, testLogger())
	_, err := c.Poll(context.Background(), "1")

	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("err = %v, want TransportError", err)
	}
}

// TestClientSaveSegments checks the update payload shape.
func TestClientSaveSegments(t *testing.T) {
	var gotPath string
	var gotPayload map[string][]transcript.Segment
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Errorf("decode save payload: %v", err)
		}
		io.WriteString(w, `{"status": "success"}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, testLogger())
	segs := []transcript.Segment{{Start: 0, End: 4, Speaker: "Speaker 1", Text: "edited"}}
	if err := c.SaveSegments(context.Background(), "42", segs); err != nil {
		t.Fatalf("save: %v", err)
	}

	if gotPath != "/api/update/42" {
		t.Fatalf("path = %q", gotPath)
	}
	if len(gotPayload["segments"]) != 1 || gotPayload["segments"][0].Text != "edited" {
		t.Fatalf("payload = %+v", gotPayload)
	}
}
