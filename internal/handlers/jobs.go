package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cast"

	"media-library/internal/jobs"
	"media-library/internal/logging"
	"media-library/internal/transcoder"
)

// defaultCustomThumbnailOffset is used when create_at_time gets no timestamp.
const defaultCustomThumbnailOffset = 10.0

type scanRequest struct {
	FullScan bool `json:"full_scan"`
}

// StartScan triggers a library scan. Only new files are probed unless
// full_scan is set.
func (h *Handlers) StartScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if _, err := h.jobs.StartScan(req.FullScan, true); err != nil {
		h.writeJobError(w, err, "Scan already in progress.")
		return
	}
	logging.Info("scan triggered via API (full=%v)", req.FullScan)
	writeJSONMessage(w, "Scan started in background.", http.StatusAccepted)
}

// GenerateMissingThumbnails triggers the thumbnail fill. A fill that is
// already running is not an error for this endpoint.
func (h *Handlers) GenerateMissingThumbnails(w http.ResponseWriter, r *http.Request) {
	if started, _ := h.jobs.StartThumbnails(); !started {
		writeJSONMessage(w, "Thumbnail generation is already in progress.", http.StatusOK)
		return
	}
	writeJSONMessage(w, "Thumbnail generation started.", http.StatusAccepted)
}

// StartCleanup starts the prune-only job: catalog rows whose source file is
// gone are removed along with their cached thumbnails and transcodes.
func (h *Handlers) StartCleanup(w http.ResponseWriter, r *http.Request) {
	if _, err := h.jobs.StartCleanup(); err != nil {
		h.writeJobError(w, err, "Cleanup already in progress.")
		return
	}
	writeJSONMessage(w, "Library cleanup started.", http.StatusAccepted)
}

// StartTranscode starts building the optimized copy of one video.
func (h *Handlers) StartTranscode(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if _, err := h.jobs.StartTranscode(r.Context(), id); err != nil {
		h.writeJobError(w, err, "A transcode is already in progress.")
		return
	}
	writeJSONMessage(w, "Transcode started.", http.StatusAccepted)
}

// DeleteTranscode removes the optimized copy.
func (h *Handlers) DeleteTranscode(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	it, err := h.jobs.DeleteTranscode(r.Context(), id)
	if err != nil {
		if errors.Is(err, jobs.ErrNoTranscode) {
			writeJSONError(w, "No transcode found for this video.", http.StatusNotFound)
			return
		}
		writeStoreError(w, "delete transcode", err)
		return
	}
	writeJSONCode(w, http.StatusOK, NewArticle(it))
}

type customThumbnailRequest struct {
	Timestamp interface{} `json:"timestamp"`
}

// CreateCustomThumbnail grabs a frame at the posted timestamp (seconds) and
// makes it the item's thumbnail. It runs synchronously.
func (h *Handlers) CreateCustomThumbnail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req customThumbnailRequest
	if !decodeBody(w, r, &req) {
		return
	}

	seconds := defaultCustomThumbnailOffset
	if req.Timestamp != nil {
		v, err := cast.ToFloat64E(req.Timestamp)
		if err != nil {
			writeJSONError(w, "timestamp must be a number", http.StatusBadRequest)
			return
		}
		seconds = v
	}

	it, err := h.jobs.CreateCustomThumbnail(r.Context(), id, time.Duration(seconds*float64(time.Second)))
	if err != nil {
		var toolErr *transcoder.ToolError
		if errors.As(err, &toolErr) {
			writeJSONError(w, "FFmpeg failed: "+toolErr.Error(), http.StatusInternalServerError)
			return
		}
		writeStoreError(w, "create custom thumbnail", err)
		return
	}
	writeJSONCode(w, http.StatusOK, NewArticle(it))
}

// DeleteCustomThumbnail drops the custom thumbnail so the generated one is
// used again.
func (h *Handlers) DeleteCustomThumbnail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	it, err := h.jobs.DeleteCustomThumbnail(r.Context(), id)
	if err != nil {
		if errors.Is(err, jobs.ErrNoCustomThumbnail) {
			writeJSONError(w, "No custom thumbnail found.", http.StatusNotFound)
			return
		}
		writeStoreError(w, "delete custom thumbnail", err)
		return
	}
	writeJSONCode(w, http.StatusOK, NewArticle(it))
}

// JobStatus returns a handler reporting the latest snapshot of one job kind.
func (h *Handlers) JobStatus(kind jobs.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSONCode(w, http.StatusOK, h.jobs.Status(kind))
	}
}

// GetJobs reports every job kind at once.
func (h *Handlers) GetJobs(w http.ResponseWriter, r *http.Request) {
	writeJSONCode(w, http.StatusOK, h.jobs.Statuses())
}

func (h *Handlers) writeJobError(w http.ResponseWriter, err error, busy string) {
	switch {
	case errors.Is(err, jobs.ErrAlreadyRunning):
		writeJSONMessage(w, busy, http.StatusConflict)
	case errors.Is(err, jobs.ErrNotVideo):
		writeJSONError(w, "Only videos can be transcoded.", http.StatusBadRequest)
	default:
		writeStoreError(w, "start job", err)
	}
}
