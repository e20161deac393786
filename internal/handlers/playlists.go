package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/spf13/cast"

	"media-library/internal/query"
)

type playlistNameRequest struct {
	Name string `json:"name"`
}

// CreateSmartPlaylist creates an empty smart playlist.
func (h *Handlers) CreateSmartPlaylist(w http.ResponseWriter, r *http.Request) {
	var req playlistNameRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeJSONError(w, "Playlist name is required", http.StatusBadRequest)
		return
	}

	p, err := h.db.CreateSmartPlaylist(r.Context(), req.Name)
	if err != nil {
		writeStoreError(w, "create smart playlist", err)
		return
	}
	writeJSONCode(w, http.StatusCreated, p)
}

// DeleteSmartPlaylist removes a smart playlist.
func (h *Handlers) DeleteSmartPlaylist(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.db.DeleteSmartPlaylist(r.Context(), id); err != nil {
		writeStoreError(w, "delete smart playlist", err)
		return
	}
	writeJSONCode(w, http.StatusOK, map[string]bool{"success": true})
}

// RenameSmartPlaylist changes a smart playlist's name.
func (h *Handlers) RenameSmartPlaylist(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req playlistNameRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeJSONError(w, "Playlist name is required", http.StatusBadRequest)
		return
	}

	if err := h.db.RenameSmartPlaylist(r.Context(), id, req.Name); err != nil {
		writeStoreError(w, "rename smart playlist", err)
		return
	}
	h.writeSmartPlaylist(w, r, id)
}

// UpdateSmartPlaylistFilters validates and stores a new rule array. Rules are
// stored in their canonical form so later reads never meet a value the
// query engine would reject.
func (h *Handlers) UpdateSmartPlaylistFilters(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Filters json.RawMessage `json:"filters"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if !isJSONArray(req.Filters) {
		writeJSONError(w, "A valid 'filters' array is required", http.StatusBadRequest)
		return
	}

	rules, err := query.ParseRules(req.Filters)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	canonical, err := json.Marshal(rules)
	if err != nil {
		writeStoreError(w, "encode rules", err)
		return
	}

	if err := h.db.UpdateSmartPlaylistFilters(r.Context(), id, canonical); err != nil {
		writeStoreError(w, "update smart playlist", err)
		return
	}
	h.writeSmartPlaylist(w, r, id)
}

func (h *Handlers) writeSmartPlaylist(w http.ResponseWriter, r *http.Request, id int64) {
	p, err := h.db.GetSmartPlaylist(r.Context(), id)
	if err != nil {
		writeStoreError(w, "get smart playlist", err)
		return
	}
	writeJSONCode(w, http.StatusOK, p)
}

func isJSONArray(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return strings.HasPrefix(s, "[")
}

// standardPlaylistRequest accepts ids as numbers or numeric strings.
type standardPlaylistRequest struct {
	Name       string `json:"name"`
	PlaylistID any    `json:"playlist_id"`
	VideoID    any    `json:"video_id"`
}

// CreateStandardPlaylist creates a playlist, optionally containing one item,
// and returns every playlist with membership flags for that item.
func (h *Handlers) CreateStandardPlaylist(w http.ResponseWriter, r *http.Request) {
	var req standardPlaylistRequest
	if !decodeBody(w, r, &req) {
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeJSONError(w, "Playlist name is required", http.StatusBadRequest)
		return
	}
	itemID := cast.ToInt64(req.VideoID)

	if _, err := h.db.CreateStandardPlaylist(r.Context(), name, itemID); err != nil {
		writeStoreError(w, "create standard playlist", err)
		return
	}
	h.writePlaylistMembership(w, r, itemID, http.StatusCreated)
}

// ToggleVideoInPlaylist adds or removes an item from a standard playlist.
func (h *Handlers) ToggleVideoInPlaylist(w http.ResponseWriter, r *http.Request) {
	var req standardPlaylistRequest
	if !decodeBody(w, r, &req) {
		return
	}
	playlistID, errP := cast.ToInt64E(req.PlaylistID)
	itemID, errV := cast.ToInt64E(req.VideoID)
	if errP != nil || errV != nil || playlistID <= 0 || itemID <= 0 {
		writeJSONError(w, "playlist_id and video_id are required", http.StatusBadRequest)
		return
	}

	if _, err := h.db.TogglePlaylistItem(r.Context(), playlistID, itemID); err != nil {
		writeStoreError(w, "toggle playlist item", err)
		return
	}
	h.writePlaylistMembership(w, r, itemID, http.StatusOK)
}

// GetVideoPlaylists lists standard playlists marked by membership of the
// item in the URL.
func (h *Handlers) GetVideoPlaylists(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	h.writePlaylistMembership(w, r, id, http.StatusOK)
}

// DeleteStandardPlaylist removes a standard playlist.
func (h *Handlers) DeleteStandardPlaylist(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.db.DeleteStandardPlaylist(r.Context(), id); err != nil {
		writeStoreError(w, "delete standard playlist", err)
		return
	}
	writeJSONCode(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handlers) writePlaylistMembership(w http.ResponseWriter, r *http.Request, itemID int64, code int) {
	lists, err := h.db.ListStandardPlaylists(r.Context(), itemID)
	if err != nil {
		writeStoreError(w, "list standard playlists", err)
		return
	}
	writeJSONCode(w, code, lists)
}
