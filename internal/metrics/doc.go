// Package metrics provides Prometheus instrumentation for the media library service.
//
// All metrics are registered through promauto at package initialisation and are
// prefixed with "media_library_". The metrics server in main.go exposes them via
// promhttp on METRICS_PORT.
//
// # Metric Categories
//
// ## HTTP Metrics
//
//   - HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight
//
// ## Database Metrics
//
//   - DBQueryTotal / DBQueryDuration: per-operation counts and latency
//   - DBTransactionDuration: write transactions by commit/rollback outcome
//   - DBWriteLockWait: time spent waiting on the process-wide write lock
//
// ## Job Metrics
//
//   - JobRunsTotal, JobRejectedTotal, JobRunning, JobLastDuration per job kind
//   - JobEventsTotal: filesystem events fed to the coordinator
//
// ## Scanner and Asset Metrics
//
//   - ScannerFilesTotal, ScannerPrunedTotal, ScannerProbeDuration, ScannerProbeFailures
//   - ThumbnailGenerationsTotal, ThumbnailGenerationDuration
//   - TranscodeJobsTotal, TranscodeDuration
//
// ## Query Metrics
//
//   - QueryDuration, QueryResultSize per view
//
// ## Catalog Gauges
//
// Refreshed periodically by [Collector] from a [StatsProvider]:
//   - CatalogItemsTotal, CatalogFavoritesTotal, CatalogPlaylistsTotal
//
// Call [InitializeMetrics] once at startup so every label combination is
// exported from the first scrape.
package metrics
