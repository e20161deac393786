package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_library_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_library_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_library_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_library_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_library_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBTransactionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_library_db_transaction_duration_seconds",
			Help:    "Duration of write transactions by outcome",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		},
		[]string{"outcome"},
	)

	DBWriteLockWait = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_library_db_write_lock_wait_seconds",
			Help:    "Time spent waiting for the process-wide catalog write lock",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 0.5, 1, 5, 30},
		},
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_library_db_connections_open",
			Help: "Number of open database connections",
		},
	)
)

// Catalog metrics
var (
	CatalogItemsTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_library_catalog_items",
			Help: "Number of cataloged items by media kind",
		},
		[]string{"kind"},
	)

	CatalogFavoritesTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_library_catalog_favorites",
			Help: "Number of items marked favorite",
		},
	)

	CatalogPlaylistsTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_library_catalog_playlists",
			Help: "Number of playlists by type",
		},
		[]string{"type"},
	)
)

// Job metrics
var (
	JobRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_library_job_runs_total",
			Help: "Total number of background job runs by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	JobRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_library_job_rejected_total",
			Help: "Job triggers rejected because a job of the same kind was running",
		},
		[]string{"kind"},
	)

	JobRunning = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_library_job_running",
			Help: "Whether a job of the kind is currently running (1 = running, 0 = idle)",
		},
		[]string{"kind"},
	)

	JobLastDuration = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_library_job_last_duration_seconds",
			Help: "Duration of the last finished run by kind",
		},
		[]string{"kind"},
	)

	JobEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_library_job_file_events_total",
			Help: "Filesystem events received by the coordinator by operation",
		},
		[]string{"op"},
	)
)

// Scanner metrics
var (
	ScannerFilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_library_scanner_files_total",
			Help: "Files seen by the scanner by result (added, updated, skipped, failed)",
		},
		[]string{"result"},
	)

	ScannerPrunedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_library_scanner_pruned_total",
			Help: "Catalog rows removed because their source file vanished",
		},
	)

	ScannerProbeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_library_scanner_probe_duration_seconds",
			Help:    "Duration of technical probe calls",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	ScannerProbeFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_library_scanner_probe_failures_total",
			Help: "Technical probe calls that failed or timed out",
		},
	)

	ScannerLastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_library_scanner_last_run_timestamp",
			Help: "Timestamp of the last completed scan",
		},
	)
)

// Asset generation metrics
var (
	ThumbnailGenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_library_thumbnail_generations_total",
			Help: "Thumbnail generations by status",
		},
		[]string{"status"},
	)

	ThumbnailGenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_library_thumbnail_generation_duration_seconds",
			Help:    "Duration of a single frame extraction and encode",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	TranscodeJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_library_transcode_jobs_total",
			Help: "Transcode runs by profile and status",
		},
		[]string{"profile", "status"},
	)

	TranscodeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_library_transcode_duration_seconds",
			Help:    "Duration of transcode runs",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		},
	)
)

// Query metrics
var (
	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_library_query_duration_seconds",
			Help:    "Catalog query duration by view",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"view"},
	)

	QueryResultSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_library_query_result_items",
			Help:    "Number of items returned per catalog query by view",
			Buckets: []float64{0, 1, 5, 10, 30, 100, 500, 1000},
		},
		[]string{"view"},
	)
)

// Filesystem metrics
var (
	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_library_filesystem_retry_attempts_total",
			Help: "Retries of filesystem operations after stale handle errors",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_library_filesystem_retry_success_total",
			Help: "Filesystem operations that succeeded after retrying",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_library_filesystem_retry_failures_total",
			Help: "Filesystem operations that failed after exhausting retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_library_filesystem_stale_errors_total",
			Help: "Stale file handle errors observed",
		},
		[]string{"operation", "volume"},
	)

	FilesystemWatchedDirectories = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_library_filesystem_watched_directories",
			Help: "Number of directories registered with the change watcher",
		},
	)

	FilesystemWatcherErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_library_filesystem_watcher_errors_total",
			Help: "Errors reported by the change watcher",
		},
	)
)

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_library_memory_usage_ratio",
			Help: "Heap in use as a fraction of the Go memory limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_library_memory_paused",
			Help: "Whether thumbnail work is paused for memory pressure (1 = paused, 0 = running)",
		},
	)
)
