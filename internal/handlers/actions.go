package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cast"

	"media-library/internal/database"
)

// ToggleFavorite flips the favorite flag.
func (h *Handlers) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	on, err := h.db.ToggleFavorite(r.Context(), id)
	if err != nil {
		writeStoreError(w, "toggle favorite", err)
		return
	}
	writeJSONCode(w, http.StatusOK, map[string]bool{"is_favorite": on})
}

// ToggleWatchLater flips the watch-later flag.
func (h *Handlers) ToggleWatchLater(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	on, err := h.db.ToggleWatchLater(r.Context(), id)
	if err != nil {
		writeStoreError(w, "toggle watch later", err)
		return
	}
	writeJSONCode(w, http.StatusOK, map[string]bool{"is_read_later": on})
}

type progressRequest struct {
	DurationWatched interface{} `json:"duration_watched"`
}

// UpdateProgress records the playback position in seconds. Players post
// floats, so the value is truncated.
func (h *Handlers) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req progressRequest
	if !decodeBody(w, r, &req) {
		return
	}
	seconds, err := cast.ToIntE(req.DurationWatched)
	if err != nil || req.DurationWatched == nil {
		writeJSONError(w, "duration_watched must be a number", http.StatusBadRequest)
		return
	}

	it, err := h.db.RecordProgress(r.Context(), id, seconds, time.Now())
	if err != nil {
		writeStoreError(w, "record progress", err)
		return
	}
	writeJSONCode(w, http.StatusOK, map[string]interface{}{
		"success":          true,
		"watched_duration": it.WatchedDuration,
		"last_watched":     isoTime(it.LastWatched),
	})
}

type tagRequest struct {
	Tag string `json:"tag"`
}

// SetTag applies a manual content tag (short, vr180, vr360 or none).
func (h *Handlers) SetTag(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req tagRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.db.SetTag(r.Context(), id, orDefault(req.Tag, database.TagNone)); err != nil {
		if errors.Is(err, database.ErrInvalidTag) {
			writeJSONError(w, "Invalid tag", http.StatusBadRequest)
			return
		}
		writeStoreError(w, "set tag", err)
		return
	}
	h.writeArticle(w, r, id)
}

// writeArticle re-reads an item and writes it in the article shape.
func (h *Handlers) writeArticle(w http.ResponseWriter, r *http.Request, id int64) {
	it, err := h.db.GetItem(r.Context(), id)
	if err != nil {
		writeStoreError(w, "get item", err)
		return
	}
	writeJSONCode(w, http.StatusOK, NewArticle(it))
}
