package handlers

import (
	"github.com/gorilla/mux"

	"media-library/internal/jobs"
)

// RegisterRoutes mounts the health probes and the library API on r.
func (h *Handlers) RegisterRoutes(r *mux.Router) {
	// Health and version
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// Catalog
	api.HandleFunc("/metadata", h.GetMetadata).Methods("GET")
	api.HandleFunc("/videos", h.GetVideos).Methods("GET")
	api.HandleFunc("/videos_all", h.GetAllVideos).Methods("GET")

	// Smart playlists
	api.HandleFunc("/playlist/smart/create", h.CreateSmartPlaylist).Methods("POST")
	api.HandleFunc("/playlist/smart/{id:[0-9]+}/delete", h.DeleteSmartPlaylist).Methods("POST")
	api.HandleFunc("/playlist/smart/{id:[0-9]+}/update_filters", h.UpdateSmartPlaylistFilters).Methods("POST")
	api.HandleFunc("/playlist/smart/{id:[0-9]+}/rename", h.RenameSmartPlaylist).Methods("POST")

	// Standard playlists
	api.HandleFunc("/playlist/standard/create", h.CreateStandardPlaylist).Methods("POST")
	api.HandleFunc("/playlist/standard/{id:[0-9]+}/delete", h.DeleteStandardPlaylist).Methods("POST")
	api.HandleFunc("/playlist/toggle_video", h.ToggleVideoInPlaylist).Methods("POST")
	api.HandleFunc("/video/{id:[0-9]+}/playlists", h.GetVideoPlaylists).Methods("GET")

	// Files
	api.HandleFunc("/video/{id:[0-9]+}", h.StreamVideo).Methods("GET", "HEAD")
	api.HandleFunc("/thumbnail/{id:[0-9]+}", h.GetThumbnail).Methods("GET", "HEAD")
	api.HandleFunc("/show_poster/{id:[0-9]+}", h.GetShowPoster).Methods("GET", "HEAD")
	api.HandleFunc("/subtitle/{id:[0-9]+}", h.GetSubtitle).Methods("GET")
	api.HandleFunc("/video/{id:[0-9]+}/stream_transcoded", h.StreamTranscoded).Methods("GET", "HEAD")
	api.HandleFunc("/video/{id:[0-9]+}/download_transcoded", h.DownloadTranscoded).Methods("GET")

	// Per-item actions
	api.HandleFunc("/article/{id:[0-9]+}/favorite", h.ToggleFavorite).Methods("POST")
	api.HandleFunc("/article/{id:[0-9]+}/bookmark", h.ToggleWatchLater).Methods("POST")
	api.HandleFunc("/video/{id:[0-9]+}/progress", h.UpdateProgress).Methods("POST")
	api.HandleFunc("/video/{id:[0-9]+}/set_tag", h.SetTag).Methods("POST")
	api.HandleFunc("/video/{id:[0-9]+}/transcode/start", h.StartTranscode).Methods("POST")
	api.HandleFunc("/video/{id:[0-9]+}/transcode/delete", h.DeleteTranscode).Methods("POST")
	api.HandleFunc("/video/{id:[0-9]+}/thumbnail/create_at_time", h.CreateCustomThumbnail).Methods("POST")
	api.HandleFunc("/video/{id:[0-9]+}/thumbnail/delete_custom", h.DeleteCustomThumbnail).Methods("POST")

	// Background jobs
	api.HandleFunc("/scan_videos", h.StartScan).Methods("POST")
	api.HandleFunc("/thumbnails/generate_missing", h.GenerateMissingThumbnails).Methods("POST")
	api.HandleFunc("/library/cleanup", h.StartCleanup).Methods("POST")
	api.HandleFunc("/scan/status", h.JobStatus(jobs.KindScan)).Methods("GET")
	api.HandleFunc("/thumbnails/status", h.JobStatus(jobs.KindThumbnails)).Methods("GET")
	api.HandleFunc("/transcode/status", h.JobStatus(jobs.KindTranscode)).Methods("GET")
	api.HandleFunc("/library/cleanup/status", h.JobStatus(jobs.KindCleanup)).Methods("GET")
	api.HandleFunc("/jobs", h.GetJobs).Methods("GET")
}
