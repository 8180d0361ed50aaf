// Package api is the HTTP surface of the review workspace: submit a
// video, watch the task status, edit and save segments, export the
// transcript, and drive playback sync.
package api

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"videoscribe/internal/backend"
	"videoscribe/internal/export"
	"videoscribe/internal/task"
	"videoscribe/internal/transcript"
	"videoscribe/internal/workspace"
)

// Archive reads previously saved transcript snapshots. Optional; nil
// disables the archive routes' backing store.
type Archive interface {
	LoadSegments(ctx context.Context, taskID string) ([]transcript.Segment, error)
}

// Handler holds shared dependencies for all routes.
type Handler struct {
	Workspace *workspace.Workspace
	Archive   Archive
	Log       *logrus.Logger
	validate  *validator.Validate
}

// NewHandler creates the handler set over a workspace. archive may be
// nil when no Supabase credentials are configured.
func NewHandler(ws *workspace.Workspace, archive Archive, log *logrus.Logger) *Handler {
	if log == nil {
		log = logrus.New()
	}
	return &Handler{
		Workspace: ws,
		Archive:   archive,
		Log:       log,
		validate:  validator.New(),
	}
}

// Register mounts all routes on the app.
func (h *Handler) Register(app *fiber.App) {
	app.Get("/health", h.Health)

	apiV1 := app.Group("/api/v1")
	apiV1.Post("/transcribe/youtube", h.SubmitYouTube)
	apiV1.Post("/transcribe/upload", h.SubmitUpload)
	apiV1.Get("/status", h.Status)
	apiV1.Get("/transcript", h.Transcript)
	apiV1.Put("/segments/:index", h.EditSegment)
	apiV1.Post("/save", h.Save)
	apiV1.Get("/export/:format", h.Export)
	apiV1.Post("/seek", h.Seek)
	apiV1.Post("/reset", h.Reset)
	apiV1.Get("/archive/:taskId", h.ArchivedSegments)
}

// Health reports service liveness.
func (h *Handler) Health(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":  "ok",
		"message": "videoscribe is healthy",
	})
}

// SubmitYouTubePayload is the form body for a YouTube submission.
type SubmitYouTubePayload struct {
	URL      string `form:"url" json:"url" validate:"required,url"`
	Language string `form:"language" json:"language"`
}

// SubmitYouTube starts a transcription task for a YouTube URL.
// POST /api/v1/transcribe/youtube
func (h *Handler) SubmitYouTube(c *fiber.Ctx) error {
	var payload SubmitYouTubePayload
	if err := c.BodyParser(&payload); err != nil {
		return RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Cannot parse request: %v", err))
	}
	if err := h.validate.Struct(payload); err != nil {
		return RespondWithError(c, fiber.StatusBadRequest, strings.Join(FormatValidationErrors(err), ", "))
	}

	sub := task.Submission{
		Kind:     task.SourceYouTube,
		URL:      payload.URL,
		Language: payload.Language,
	}
	return h.submit(c, sub)
}

// SubmitUpload starts a transcription task for an uploaded video file.
// POST /api/v1/transcribe/upload
func (h *Handler) SubmitUpload(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return RespondWithError(c, fiber.StatusBadRequest, "No file selected")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Cannot read uploaded file: %v", err))
	}
	defer file.Close()

	sub := task.Submission{
		Kind:     task.SourceUpload,
		FileName: fileHeader.Filename,
		File:     file,
		Language: c.FormValue("language"),
	}
	return h.submit(c, sub)
}

func (h *Handler) submit(c *fiber.Ctx, sub task.Submission) error {
	if err := h.Workspace.Submit(c.Context(), sub); err != nil {
		switch {
		case errors.Is(err, task.ErrInput):
			return RespondWithError(c, fiber.StatusBadRequest, err.Error())
		default:
			var serverErr *backend.ServerError
			if errors.As(err, &serverErr) {
				return RespondWithError(c, fiber.StatusBadGateway,
					fmt.Sprintf("Transcription service rejected the submission: %s", serverErr.Body))
			}
			h.Log.WithError(err).Error("Submission failed")
			return RespondWithError(c, fiber.StatusBadGateway, "Could not reach the transcription service")
		}
	}

	snap := h.Workspace.Status()
	return RespondWithJSON(c, fiber.StatusAccepted, fiber.Map{
		"task_id": snap.Task.ID,
		"phase":   snap.Phase,
	})
}

// Status returns the current task lifecycle state.
// GET /api/v1/status
func (h *Handler) Status(c *fiber.Ctx) error {
	snap := h.Workspace.Status()

	body := fiber.Map{
		"phase":    snap.Phase,
		"progress": snap.Progress,
	}
	if snap.Task.ID != "" {
		body["task_id"] = snap.Task.ID
		body["task_status"] = snap.Task.Status
	}
	if snap.Err != nil {
		body["error"] = snap.Err.Error()
	}
	return RespondWithJSON(c, fiber.StatusOK, body)
}

// Transcript returns the loaded task metadata and segment snapshot.
// GET /api/v1/transcript
func (h *Handler) Transcript(c *fiber.Ctx) error {
	meta, segments := h.Workspace.Transcript()
	if meta.Status != task.StatusCompleted {
		return RespondWithError(c, fiber.StatusNotFound, "No completed transcript loaded")
	}

	summary := meta.Summary
	if summary == "" {
		summary = "No summary available."
	}

	return RespondWithJSON(c, fiber.StatusOK, fiber.Map{
		"task_id":       meta.ID,
		"video_title":   meta.VideoTitle,
		"summary":       summary,
		"video_source":  meta.VideoSource,
		"playback_mode": h.Workspace.PlaybackMode(),
		"segments":      segments,
	})
}

// EditSegmentPayload carries one segment text edit.
type EditSegmentPayload struct {
	Text string `json:"text" validate:"required"`
}

// EditSegment replaces the text of one segment.
// PUT /api/v1/segments/:index
func (h *Handler) EditSegment(c *fiber.Ctx) error {
	index, err := strconv.Atoi(c.Params("index"))
	if err != nil {
		return RespondWithError(c, fiber.StatusBadRequest, "Invalid segment index")
	}

	var payload EditSegmentPayload
	if err := c.BodyParser(&payload); err != nil {
		return RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Cannot parse request: %v", err))
	}
	if err := h.validate.Struct(payload); err != nil {
		return RespondWithError(c, fiber.StatusBadRequest, strings.Join(FormatValidationErrors(err), ", "))
	}

	if err := h.Workspace.EditSegment(index, payload.Text); err != nil {
		if errors.Is(err, workspace.ErrSegmentOutOfRange) {
			return RespondWithError(c, fiber.StatusNotFound, err.Error())
		}
		return RespondWithError(c, fiber.StatusInternalServerError, err.Error())
	}
	return RespondWithJSON(c, fiber.StatusOK, fiber.Map{"index": index})
}

// Save pushes the current transcript snapshot to the save sink.
// POST /api/v1/save
func (h *Handler) Save(c *fiber.Ctx) error {
	if err := h.Workspace.Save(c.Context()); err != nil {
		switch {
		case errors.Is(err, workspace.ErrNoTask):
			return RespondWithError(c, fiber.StatusConflict, err.Error())
		case errors.Is(err, workspace.ErrNoSaver):
			return RespondWithError(c, fiber.StatusServiceUnavailable, err.Error())
		default:
			h.Log.WithError(err).Error("Save failed")
			return RespondWithError(c, fiber.StatusBadGateway, "Could not save segments; edits are kept, retry later")
		}
	}
	return RespondWithJSON(c, fiber.StatusOK, fiber.Map{"saved": true})
}

// Export downloads the transcript in the requested format.
// GET /api/v1/export/:format
func (h *Handler) Export(c *fiber.Ctx) error {
	format, err := export.ParseFormat(c.Params("format"))
	if err != nil {
		return RespondWithError(c, fiber.StatusBadRequest, err.Error())
	}

	content, filename, err := h.Workspace.Export(format)
	if err != nil {
		return RespondWithError(c, fiber.StatusInternalServerError, err.Error())
	}

	c.Set(fiber.HeaderContentType, "text/plain; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Status(fiber.StatusOK).Send(content)
}

// SeekPayload carries a playback position in seconds.
type SeekPayload struct {
	Time float64 `json:"time" validate:"gte=0"`
}

// Seek drives playback to a position and reports the active segment.
// POST /api/v1/seek
func (h *Handler) Seek(c *fiber.Ctx) error {
	var payload SeekPayload
	if err := c.BodyParser(&payload); err != nil {
		return RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Cannot parse request: %v", err))
	}
	if err := h.validate.Struct(payload); err != nil {
		return RespondWithError(c, fiber.StatusBadRequest, strings.Join(FormatValidationErrors(err), ", "))
	}

	index, ok := h.Workspace.Seek(payload.Time)
	body := fiber.Map{"active": ok}
	if ok {
		body["index"] = index
	}
	return RespondWithJSON(c, fiber.StatusOK, body)
}

// Reset clears the workspace and cancels any in-flight polling.
// POST /api/v1/reset
func (h *Handler) Reset(c *fiber.Ctx) error {
	h.Workspace.Reset()
	return RespondWithJSON(c, fiber.StatusOK, fiber.Map{"reset": true})
}

// ArchivedSegments returns a previously saved snapshot from the
// archive.
// GET /api/v1/archive/:taskId
func (h *Handler) ArchivedSegments(c *fiber.Ctx) error {
	if h.Archive == nil {
		return RespondWithError(c, fiber.StatusServiceUnavailable, "Segment archive is not configured")
	}

	taskID := c.Params("taskId")
	segments, err := h.Archive.LoadSegments(c.Context(), taskID)
	if err != nil {
		h.Log.WithField("task_id", taskID).WithError(err).Error("Archive read failed")
		return RespondWithError(c, fiber.StatusInternalServerError, "Could not load archived segments")
	}
	if len(segments) == 0 {
		return RespondWithError(c, fiber.StatusNotFound, "No archived segments for this task")
	}
	return RespondWithJSON(c, fiber.StatusOK, fiber.Map{
		"task_id":  taskID,
		"segments": segments,
	})
}
