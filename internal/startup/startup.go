package startup

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"media-library/internal/logging"

	"github.com/gorilla/mux"
	"github.com/robfig/cron/v3"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// Config holds all application configuration
type Config struct {
	MediaDir         string
	DataDir          string
	Port             string
	MetricsPort      string
	MetricsEnabled   bool
	HWAccel          string
	VAAPIDevice      string
	ProbeTimeout     time.Duration
	ScanSchedule     string
	WatchEnabled     bool
	WatchDebounce    time.Duration
	HideSentinel     string
	ThumbnailWorkers int
	LogStaticFiles   bool
	LogHealthChecks  bool

	// Derived paths
	DatabasePath string
	ThumbnailDir string
	TranscodeDir string
}

// LoadConfig loads and validates configuration from environment variables
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	logSection("CONFIGURATION")

	mediaDir := getEnv("MEDIA_DIR", getEnv("VIDEO_DIR", "/media"))
	dataDir := getEnv("DATA_DIR", "/data")
	port := getEnv("PORT", "8080")
	metricsPort := getEnv("METRICS_PORT", "9090")
	metricsEnabled := getEnvBool("METRICS_ENABLED", true)
	hwAccel := strings.ToLower(getEnv("HW_ACCEL_TYPE", "none"))
	vaapiDevice := getEnv("VAAPI_DEVICE", "/dev/dri/renderD128")
	probeTimeout := getEnvDuration("PROBE_TIMEOUT", 30*time.Second)
	scanSchedule := strings.TrimSpace(os.Getenv("SCAN_SCHEDULE"))
	watchEnabled := getEnvBool("WATCH_ENABLED", true)
	watchDebounce := getEnvDuration("WATCH_DEBOUNCE", 2*time.Second)
	hideSentinel := getEnv("HIDE_SENTINEL", "vd21_hide")
	thumbnailWorkers := getEnvInt("THUMBNAIL_WORKERS", 0)
	logStaticFiles := getEnvBool("LOG_STATIC_FILES", false)
	logHealthChecks := getEnvBool("LOG_HEALTH_CHECKS", false)

	logging.Info("  MEDIA_DIR:           %s", mediaDir)
	logging.Info("  DATA_DIR:            %s", dataDir)
	logging.Info("  PORT:                %s", port)
	logging.Info("  METRICS_PORT:        %s", metricsPort)
	logging.Info("  METRICS_ENABLED:     %v", metricsEnabled)
	logging.Info("  HW_ACCEL_TYPE:       %s", hwAccel)
	logging.Info("  PROBE_TIMEOUT:       %v", probeTimeout)
	logging.Info("  SCAN_SCHEDULE:       %s", orDisabled(scanSchedule))
	logging.Info("  WATCH_ENABLED:       %v", watchEnabled)
	logging.Info("  WATCH_DEBOUNCE:      %v", watchDebounce)
	logging.Info("  HIDE_SENTINEL:       %s", hideSentinel)
	if thumbnailWorkers > 0 {
		logging.Info("  THUMBNAIL_WORKERS:   %d", thumbnailWorkers)
	} else {
		logging.Info("  THUMBNAIL_WORKERS:   auto")
	}
	logging.Info("  LOG_STATIC_FILES:    %v", logStaticFiles)
	logging.Info("  LOG_LEVEL:           %s", logging.GetLevel())

	if scanSchedule != "" {
		if _, err := cron.ParseStandard(scanSchedule); err != nil {
			logging.Warn("  Invalid SCAN_SCHEDULE %q (%v), scheduled scans disabled", scanSchedule, err)
			scanSchedule = ""
		}
	}

	logging.Info("")
	logSection("DIRECTORY SETUP")

	var err error
	mediaDir, err = filepath.Abs(mediaDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve media directory path: %w", err)
	}
	logging.Info("  Media directory (absolute): %s", mediaDir)

	dataDir, err = filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	logging.Info("  Data directory (absolute):  %s", dataDir)

	// The media root is usually a mount; a missing one is not fatal.
	if err := ensureDirectory(mediaDir, "media"); err != nil {
		logging.Warn("  Media directory issue: %v", err)
	}

	if err := ensureDirectory(dataDir, "data"); err != nil {
		return nil, fmt.Errorf("data directory error: %w", err)
	}

	logging.Debug("  Testing data directory write access...")
	if err := testWriteAccess(dataDir); err != nil {
		return nil, fmt.Errorf("data directory is not writable (required for catalog): %w", err)
	}
	logging.Info("  [OK] Data directory is writable")

	cfg := &Config{
		MediaDir:         mediaDir,
		DataDir:          dataDir,
		Port:             port,
		MetricsPort:      metricsPort,
		MetricsEnabled:   metricsEnabled,
		HWAccel:          hwAccel,
		VAAPIDevice:      vaapiDevice,
		ProbeTimeout:     probeTimeout,
		ScanSchedule:     scanSchedule,
		WatchEnabled:     watchEnabled,
		WatchDebounce:    watchDebounce,
		HideSentinel:     hideSentinel,
		ThumbnailWorkers: thumbnailWorkers,
		LogStaticFiles:   logStaticFiles,
		LogHealthChecks:  logHealthChecks,
		DatabasePath:     filepath.Join(dataDir, "videos.db"),
		ThumbnailDir:     filepath.Join(dataDir, "thumbnails"),
		TranscodeDir:     filepath.Join(dataDir, "optimized"),
	}

	thumbs := setupCacheDir(cfg.ThumbnailDir, "thumbnails")
	optimized := setupCacheDir(cfg.TranscodeDir, "optimized")

	logging.Info("")
	logging.Info("  Feature availability:")
	logging.Info("    Catalog:          ENABLED (required)")
	logging.Info("    Thumbnails:       %s", enabledString(thumbs))
	logging.Info("    Transcoding:      %s", enabledString(optimized))
	logging.Info("    Watcher:          %s", enabledString(cfg.WatchEnabled))
	logging.Info("    Scheduled scans:  %s", enabledString(cfg.ScanSchedule != ""))
	logging.Info("    Metrics:          %s", enabledString(cfg.MetricsEnabled))

	return cfg, nil
}

func setupCacheDir(path, name string) bool {
	logging.Debug("  Setting up %s directory: %s", name, path)

	if err := os.MkdirAll(path, 0o755); err != nil {
		logging.Warn("    Failed to create %s directory: %v", name, err)
		return false
	}
	if err := testWriteAccess(path); err != nil {
		logging.Warn("    %s directory is not writable: %v", name, err)
		return false
	}

	logging.Debug("    [OK] %s directory ready", name)
	return true
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

func orDisabled(s string) string {
	if s == "" {
		return "(disabled)"
	}
	return s
}

func logSection(title string) {
	logging.Info("------------------------------------------------------------")
	logging.Info("%s", title)
	logging.Info("------------------------------------------------------------")
}

// LogDatabaseInit logs catalog initialization
func LogDatabaseInit(duration time.Duration, items int) {
	logging.Info("")
	logSection("CATALOG INITIALIZATION")
	logging.Info("  [OK] Catalog opened in %v", duration)
	if items == 0 {
		logging.Info("  Catalog is empty, a full scan will run")
	} else {
		logging.Info("  Items cataloged: %d", items)
	}
}

// LogTranscoderInit checks the external media tools and logs the encode path.
func LogTranscoderInit(profile string) {
	logging.Info("")
	logSection("MEDIA TOOLS")

	for _, tool := range []string{"ffmpeg", "ffprobe"} {
		if err := checkTool(tool); err != nil {
			logging.Warn("  %s check failed: %v", tool, err)
			logging.Warn("  Probing, thumbnails and transcoding may not work")
		} else {
			logging.Info("  [OK] %s is available", tool)
		}
	}
	logging.Info("  Transcode profile: %s", profile)
}

// LogJobsInit logs the background job configuration.
func LogJobsInit(cfg *Config, workers int) {
	logging.Info("")
	logSection("JOB COORDINATOR")
	logging.Info("  Thumbnail workers: %d", workers)
	if cfg.ScanSchedule != "" {
		logging.Info("  Scheduled full scan: %s", cfg.ScanSchedule)
	}
}

// LogWatcherStarted logs the filesystem watcher registration.
func LogWatcherStarted(root string, debounce time.Duration) {
	logging.Info("  [OK] Watching %s (debounce %v)", root, debounce)
}

// LogWatcherDisabled logs why no watcher is running.
func LogWatcherDisabled(reason string) {
	logging.Warn("  Filesystem watcher disabled: %s", reason)
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
		}

		methods, err := route.GetMethods()
		if err != nil {
			// Prefix routes such as file servers have no method matcher.
			methods = []string{"*"}
		}

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   route.GetName(),
			})
		}
		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs all registered HTTP routes grouped by prefix (debug level)
func LogHTTPRoutes(router *mux.Router, logStaticFiles bool) {
	logging.Info("")
	logSection("HTTP SERVER SETUP")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}

		logging.Debug("  Registered routes (%d total):", len(routes))

		groups := make(map[string][]RouteInfo)
		for _, route := range routes {
			g := getRouteGroup(route.Path)
			groups[g] = append(groups[g], route)
		}

		keys := make([]string, 0, len(groups))
		for k := range groups {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, g := range keys {
			label := g
			if label == "" {
				label = "root"
			}
			logging.Debug("  [%s]", label)
			for _, route := range groups[g] {
				logging.Debug("    %-6s %s", route.Method, route.Path)
			}
		}
	}

	if logStaticFiles {
		logging.Info("  Asset request logging: ON")
	} else {
		logging.Info("  Asset request logging: OFF (set LOG_STATIC_FILES=true to enable)")
	}
}

// getRouteGroup returns "api/<resource>" for API routes, else the first segment.
func getRouteGroup(path string) string {
	parts := strings.SplitN(strings.TrimPrefix(path, "/"), "/", 3)
	if parts[0] == "api" && len(parts) > 1 {
		return "api/" + parts[1]
	}
	return parts[0]
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs successful server start with all endpoint information
func LogServerStarted(config ServerConfig) {
	logging.Info("")
	logSection("SERVER STARTED")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	logging.Info("")
	logging.Info("  Endpoints:")
	logging.Info("    API:           http://0.0.0.0:%s/api", config.Port)
	if config.MetricsEnabled {
		logging.Info("    Metrics:       http://0.0.0.0:%s/metrics", config.MetricsPort)
	} else {
		logging.Info("    Metrics:       DISABLED")
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logSection(fmt.Sprintf("SHUTDOWN INITIATED (received %s)", signal))
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

func printBanner() {
	banner := `
------------------------------------------------------------
   __  ___        ___         __   _ __
  /  |/  /__ ____/ (_)__ _   / /  (_) /  _______ _______ __
 / /|_/ / -_) _  / / _ '/  / /__/ / _ \/ __/ _ '/ __/ // /
/_/  /_/\__/\_,_/_/\_,_/  /____/_/_.__/_/  \_,_/_/  \_, /
                                                  /___/
------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logSection("SYSTEM INFORMATION")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if logging.IsDebugEnabled() {
		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}
		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}
	logging.Info("")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}

func checkTool(name string) error {
	path, err := exec.LookPath(name)
	if err != nil {
		return fmt.Errorf("%s not found in PATH", name)
	}
	logging.Debug("  %s path: %s", name, path)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	output, err := exec.CommandContext(ctx, name, "-version").Output()
	if err != nil {
		return fmt.Errorf("failed to get %s version: %w", name, err)
	}
	if first, _, _ := strings.Cut(string(output), "\n"); first != "" {
		logging.Debug("  %s version: %s", name, strings.TrimSpace(first))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		logging.Warn("Invalid duration for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
