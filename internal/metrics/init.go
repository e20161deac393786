package metrics

// Label values pre-populated at startup. They mirror the job kinds, view
// names and outcomes used by the rest of the service.
var (
	jobKinds   = []string{"scan", "thumbnails", "transcode", "cleanup"}
	jobResults = []string{"success", "error"}
	fileOps    = []string{"create", "move", "delete"}
	scanResult = []string{"added", "updated", "skipped", "failed"}
	views      = []string{"all", "favorites", "watchLater", "history", "shorts", "optimized",
		"VR180", "VR360", "author", "folder", "standard_playlist", "smart_playlist", "video"}
)

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, kind := range jobKinds {
		JobRejectedTotal.WithLabelValues(kind)
		JobRunning.WithLabelValues(kind).Set(0)
		JobLastDuration.WithLabelValues(kind)
		for _, outcome := range jobResults {
			JobRunsTotal.WithLabelValues(kind, outcome)
		}
	}

	for _, op := range fileOps {
		JobEventsTotal.WithLabelValues(op)
	}

	for _, r := range scanResult {
		ScannerFilesTotal.WithLabelValues(r)
	}

	for _, s := range []string{"success", "error"} {
		ThumbnailGenerationsTotal.WithLabelValues(s)
		for _, p := range []string{"software", "hardware"} {
			TranscodeJobsTotal.WithLabelValues(p, s)
		}
	}

	for _, v := range views {
		QueryDuration.WithLabelValues(v)
		QueryResultSize.WithLabelValues(v)
	}

	for _, k := range []string{"video", "image"} {
		CatalogItemsTotal.WithLabelValues(k)
	}
	for _, t := range []string{"smart", "standard"} {
		CatalogPlaylistsTotal.WithLabelValues(t)
	}

	for _, o := range []string{"commit", "rollback"} {
		DBTransactionDuration.WithLabelValues(o)
	}

	for _, vol := range []string{"media", "data", "unknown"} {
		FilesystemRetryAttempts.WithLabelValues("stat", vol)
		FilesystemRetrySuccess.WithLabelValues("stat", vol)
		FilesystemRetryFailures.WithLabelValues("stat", vol)
		FilesystemStaleErrors.WithLabelValues("stat", vol)
	}
}
