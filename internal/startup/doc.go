// Package startup loads configuration and writes the startup and shutdown
// log sections.
//
// # Configuration
//
// All configuration comes from environment variables via [LoadConfig]:
//
//   - MEDIA_DIR: media root, walked recursively (default: /media, VIDEO_DIR is accepted)
//   - DATA_DIR: catalog database plus thumbnails/ and optimized/ (default: /data)
//   - PORT: HTTP API port (default: 8080)
//   - METRICS_PORT, METRICS_ENABLED: Prometheus endpoint (default: 9090, true)
//   - HW_ACCEL_TYPE: none, qsv or vaapi (default: none)
//   - VAAPI_DEVICE: render node for the hardware encode path
//   - PROBE_TIMEOUT: bound on each probe or frame extraction (default: 30s)
//   - SCAN_SCHEDULE: cron expression for scheduled full scans (default: disabled)
//   - WATCH_ENABLED, WATCH_DEBOUNCE: filesystem notifications (default: true, 2s)
//   - HIDE_SENTINEL: file name that hides its directory subtree (default: vd21_hide)
//   - THUMBNAIL_WORKERS: frame extraction pool size (default: auto)
//   - LOG_LEVEL, DEBUG, LOG_STATIC_FILES: logging
//
// The data directory must be writable. A missing media directory is
// created and only produces a warning.
//
// # Example Usage
//
//	cfg, err := startup.LoadConfig()
//	if err != nil {
//	    startup.LogFatal("Configuration error: %v", err)
//	}
//	startup.LogDatabaseInit(time.Since(t0), count)
//	startup.LogServerStarted(startup.ServerConfig{Port: cfg.Port})
package startup
