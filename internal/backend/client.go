// Package backend is the HTTP client for the external transcription
// service: submit a video by URL or upload, poll the task status, and
// push edited segments back.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"videoscribe/internal/task"
	"videoscribe/internal/transcript"
)

// Client talks to the transcription service. It implements
// task.Backend plus the segment save sink.
type Client struct {
	baseURL string
	http    *http.Client
	log     *logrus.Logger
}

// NewClient creates a client for the service at baseURL. A nil
// httpClient gets a default with a 60s request timeout; the long-haul
// waiting happens through polling, not one long request.
func NewClient(baseURL string, httpClient *http.Client, log *logrus.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	if log == nil {
		log = logrus.New()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		log:     log,
	}
}

// submitResponse is the submission acknowledgment. The service issues
// numeric task ids; json.Number keeps them opaque on our side.
type submitResponse struct {
	TaskID json.Number `json:"task_id"`
	Status string      `json:"status"`
}

// statusResponse is one poll payload. Transcript is present only when
// the task completed.
type statusResponse struct {
	ID          json.Number          `json:"id"`
	Status      string               `json:"status"`
	VideoTitle  string               `json:"video_title"`
	Summary     string               `json:"summary"`
	VideoSource string               `json:"video_source"`
	Transcript  []transcript.Segment `json:"transcript"`
}

// Submit sends one transcription request and returns the backend task
// id. YouTube submissions go as a url-encoded form, uploads as
// multipart with the file content streamed in.
func (c *Client) Submit(ctx context.Context, sub task.Submission) (string, error) {
	var (
		req *http.Request
		err error
		op  string
	)

	switch sub.Kind {
	case task.SourceYouTube:
		op = "submit youtube"
		form := url.Values{}
		form.Set("url", sub.URL)
		form.Set("language", sub.Language)
		req, err = http.NewRequestWithContext(ctx, http.MethodPost,
			c.baseURL+"/api/transcribe/youtube", strings.NewReader(form.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	case task.SourceUpload:
		op = "submit upload"
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		if werr := mw.WriteField("language", sub.Language); werr != nil {
			return "", &TransportError{Op: op, Err: werr}
		}
		fw, werr := mw.CreateFormFile("file", sub.FileName)
		if werr != nil {
			return "", &TransportError{Op: op, Err: werr}
		}
		if _, werr := io.Copy(fw, sub.File); werr != nil {
			return "", &TransportError{Op: op, Err: werr}
		}
		if werr := mw.Close(); werr != nil {
			return "", &TransportError{Op: op, Err: werr}
		}
		req, err = http.NewRequestWithContext(ctx, http.MethodPost,
			c.baseURL+"/api/transcribe/upload", &body)
		if err == nil {
			req.Header.Set("Content-Type", mw.FormDataContentType())
		}
	default:
		return "", fmt.Errorf("submit: %w", task.ErrBadSource)
	}
	if err != nil {
		return "", &TransportError{Op: op, Err: err}
	}

	var ack submitResponse
	if err := c.do(req, op, &ack); err != nil {
		return "", err
	}
	if ack.TaskID.String() == "" {
		return "", &ServerError{Op: op, StatusCode: http.StatusOK, Body: "response missing task_id"}
	}

	c.log.WithFields(logrus.Fields{"task_id": ack.TaskID.String(), "kind": sub.Kind}).
		Debug("Submission accepted by transcription service")
	return ack.TaskID.String(), nil
}

// Poll fetches the current status of a task.
func (c *Client) Poll(ctx context.Context, taskID string) (task.PollResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/status/"+url.PathEscape(taskID), nil)
	if err != nil {
		return task.PollResult{}, &TransportError{Op: "poll", Err: err}
	}

	var status statusResponse
	if err := c.do(req, "poll", &status); err != nil {
		return task.PollResult{}, err
	}

	return task.PollResult{
		Status:      task.Status(status.Status),
		VideoTitle:  status.VideoTitle,
		Summary:     status.Summary,
		VideoSource: status.VideoSource,
		Segments:    status.Transcript,
	}, nil
}

// SaveSegments pushes the edited transcript back to the service. It is
// fire-and-forget from the caller's perspective: a failure is reported
// but nothing is rolled back.
func (c *Client) SaveSegments(ctx context.Context, taskID string, segments []transcript.Segment) error {
	payload, err := json.Marshal(map[string][]transcript.Segment{"segments": segments})
	if err != nil {
		return &TransportError{Op: "save", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/update/"+url.PathEscape(taskID), bytes.NewReader(payload))
	if err != nil {
		return &TransportError{Op: "save", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, "save", nil)
}

// do executes a request, maps failures onto the transport/server error
// split, and decodes a JSON body into out when provided.
func (c *Client) do(req *http.Request, op string, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &ServerError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
