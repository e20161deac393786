package handlers

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"media-library/internal/database"
	"media-library/internal/filesystem"
	"media-library/internal/logging"
	"media-library/internal/mediatypes"
	"media-library/internal/subtitle"
)

// serveFile streams a file with range support. A non-empty download name
// makes the browser save it instead of playing it.
func serveFile(w http.ResponseWriter, r *http.Request, path, contentType, download string) {
	f, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		logging.Warn("failed to open %s: %v", path, err)
		writeJSONError(w, "File not found", http.StatusNotFound)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		writeJSONError(w, "Failed to access file", http.StatusInternalServerError)
		return
	}

	if contentType == "" {
		contentType = mediatypes.GetMimeType(mediatypes.Ext(path))
	}
	w.Header().Set("Content-Type", contentType)
	if download != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", download))
	}
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

// item loads the item named by the {id} route variable, writing the error
// response itself when it cannot.
func (h *Handlers) item(w http.ResponseWriter, r *http.Request) (*database.MediaItem, bool) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return nil, false
	}
	it, err := h.db.GetItem(r.Context(), id)
	if err != nil {
		writeStoreError(w, "get item", err)
		return nil, false
	}
	return it, true
}

// StreamVideo serves the original file. Images use the same endpoint.
func (h *Handlers) StreamVideo(w http.ResponseWriter, r *http.Request) {
	it, ok := h.item(w, r)
	if !ok {
		return
	}
	if !filesystem.Exists(it.Path) {
		writeJSONError(w, "Video file not found", http.StatusNotFound)
		return
	}
	serveFile(w, r, it.Path, "", "")
}

// GetThumbnail serves the custom thumbnail if there is one, else the
// generated one.
func (h *Handlers) GetThumbnail(w http.ResponseWriter, r *http.Request) {
	it, ok := h.item(w, r)
	if !ok {
		return
	}

	var path string
	switch {
	case it.CustomThumbnailPath != "" && filesystem.Exists(it.CustomThumbnailPath):
		path = it.CustomThumbnailPath
	case it.ThumbnailPath != "" && filesystem.Exists(it.ThumbnailPath):
		path = it.ThumbnailPath
	default:
		writeJSONError(w, "Thumbnail not found", http.StatusNotFound)
		return
	}

	// URLs carry the file's mtime, so a changed thumbnail gets a new URL.
	w.Header().Set("Cache-Control", "public, max-age=86400")
	serveFile(w, r, path, "", "")
}

// GetShowPoster serves the poster found for the item's show.
func (h *Handlers) GetShowPoster(w http.ResponseWriter, r *http.Request) {
	it, ok := h.item(w, r)
	if !ok {
		return
	}
	if it.ShowPosterPath == "" || !filesystem.Exists(it.ShowPosterPath) {
		writeJSONError(w, "Show poster not found", http.StatusNotFound)
		return
	}
	serveFile(w, r, it.ShowPosterPath, "", "")
}

// GetSubtitle serves the item's SRT subtitle converted to WebVTT.
func (h *Handlers) GetSubtitle(w http.ResponseWriter, r *http.Request) {
	it, ok := h.item(w, r)
	if !ok {
		return
	}
	if it.SubtitlePath == "" || !filesystem.Exists(it.SubtitlePath) {
		writeJSONError(w, "Subtitle file not found", http.StatusNotFound)
		return
	}

	srt, err := subtitle.ReadSRT(it.SubtitlePath)
	if err != nil {
		logging.Error("failed to read subtitle file %s: %v", it.SubtitlePath, err)
		writeJSONError(w, "Could not read subtitle file", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/vtt; charset=utf-8")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if _, err := w.Write([]byte(subtitle.SRTToVTT(srt))); err != nil {
		logging.Debug("subtitle write aborted: %v", err)
	}
}

// StreamTranscoded serves the optimized copy for playback.
func (h *Handlers) StreamTranscoded(w http.ResponseWriter, r *http.Request) {
	h.serveTranscoded(w, r, false)
}

// DownloadTranscoded serves the optimized copy as an attachment named after
// the original file.
func (h *Handlers) DownloadTranscoded(w http.ResponseWriter, r *http.Request) {
	h.serveTranscoded(w, r, true)
}

func (h *Handlers) serveTranscoded(w http.ResponseWriter, r *http.Request, download bool) {
	it, ok := h.item(w, r)
	if !ok {
		return
	}
	if it.TranscodedPath == "" || !filesystem.Exists(it.TranscodedPath) {
		writeJSONError(w, "Transcoded file not found", http.StatusNotFound)
		return
	}

	name := ""
	if download {
		name = strings.TrimSuffix(it.Filename, filepath.Ext(it.Filename)) + "_Optimized.mp4"
	}
	serveFile(w, r, it.TranscodedPath, "video/mp4", name)
}
