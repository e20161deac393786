package handlers

import (
	"net/http"

	"media-library/internal/database"
	"media-library/internal/logging"
	"media-library/internal/query"
)

// VideosResponse is one page of query results.
type VideosResponse struct {
	Articles    []Article `json:"articles"`
	TotalItems  int       `json:"total_items"`
	TotalPages  int       `json:"total_pages"`
	CurrentPage int       `json:"current_page"`
	HasNextPage bool      `json:"has_next_page"`
}

// GetVideos runs a catalog query described by the URL parameters.
func (h *Handlers) GetVideos(w http.ResponseWriter, r *http.Request) {
	req, err := query.ParseRequest(r.URL.Query())
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := h.engine.Run(r.Context(), req)
	if err != nil {
		writeStoreError(w, "query", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, VideosResponse{
		Articles:    NewArticles(res.Items),
		TotalItems:  res.TotalItems,
		TotalPages:  res.TotalPages,
		CurrentPage: res.CurrentPage,
		HasNextPage: res.HasNextPage,
	})
}

// GetAllVideos returns every cataloged item, unpaginated. The smart playlist
// editor uses it to build its author list.
func (h *Handlers) GetAllVideos(w http.ResponseWriter, r *http.Request) {
	items, err := h.db.ListSelection(r.Context(), database.Selection{OrderBy: "id ASC"}, 0, 0)
	if err != nil {
		writeStoreError(w, "list all items", err)
		return
	}

	logging.Debug("videos_all: %d items", len(items))
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string][]Article{"articles": NewArticles(items)})
}

// GetMetadata returns the folder tree, per-show counts and both playlist
// lists.
func (h *Handlers) GetMetadata(w http.ResponseWriter, r *http.Request) {
	md, err := h.db.LibraryMetadata(r.Context())
	if err != nil {
		writeStoreError(w, "library metadata", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, md)
}
