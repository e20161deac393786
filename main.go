package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"media-library/internal/database"
	"media-library/internal/filesystem"
	"media-library/internal/handlers"
	"media-library/internal/indexer"
	"media-library/internal/jobs"
	"media-library/internal/logging"
	"media-library/internal/mediatypes"
	"media-library/internal/memory"
	"media-library/internal/metrics"
	"media-library/internal/middleware"
	"media-library/internal/pathkeys"
	"media-library/internal/startup"
	"media-library/internal/transcoder"
	"media-library/internal/workers"
)

const watchQueueSize = 1024

func main() {
	startTime := time.Now()

	memory.ConfigureFromEnv()

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics.InitializeMetrics()
	filesystem.SetObserver(metrics.NewFilesystemObserver())
	filesystem.SetDefaultVolumeResolver(filesystem.NewVolumeResolver(map[string]string{
		"media": config.MediaDir,
		"data":  config.DataDir,
	}))

	// Initialize catalog
	dbStart := time.Now()
	db, err := database.New(ctx, config.DatabasePath)
	if err != nil {
		startup.LogFatal("Failed to initialize catalog: %v", err)
	}
	items, err := db.CountItems(ctx)
	if err != nil {
		startup.LogFatal("Failed to read catalog: %v", err)
	}
	startup.LogDatabaseInit(time.Since(dbStart), items)

	collector := metrics.NewCollector(db, time.Minute)
	collector.Start()

	// Initialize media tools
	trans := transcoder.New(transcoder.Config{
		ProbeTimeout: config.ProbeTimeout,
		HWAccel:      config.HWAccel,
		VAAPIDevice:  config.VAAPIDevice,
	})
	startup.LogTranscoderInit(trans.Profile())

	// Initialize scanner and job coordinator
	keys := pathkeys.New(config.DataDir)
	scanner := indexer.New(db, trans, keys, indexer.Config{
		MediaDir:     config.MediaDir,
		HideSentinel: config.HideSentinel,
	})
	monitor := memory.NewMonitor(memory.DefaultConfig())
	monitor.Start()
	coord := jobs.NewCoordinator(ctx, scanner, db, trans, trans, keys, jobs.Config{
		ThumbnailWorkers: config.ThumbnailWorkers,
		Debounce:         config.WatchDebounce,
		Pressure:         monitor,
	})
	startup.LogJobsInit(config, workers.ForIO(config.ThumbnailWorkers, 8))

	if config.ScanSchedule != "" {
		if err := coord.Schedule(config.ScanSchedule); err != nil {
			logging.Warn("Scheduled scans disabled: %v", err)
		}
	}

	watcher := startWatcher(ctx, config, coord)

	if err := coord.Bootstrap(ctx); err != nil {
		logging.Warn("Initial scan not started: %v", err)
	}

	// Setup router
	h := handlers.New(db, coord, config)
	router := mux.NewRouter()
	router.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))
	h.RegisterRoutes(router)
	router.PathPrefix("/").Handler(http.FileServer(http.Dir("./static")))

	startup.LogHTTPRoutes(router, config.LogStaticFiles)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogStaticFiles = config.LogStaticFiles
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	handler := middleware.Compress(middleware.DefaultCompressionConfig())(
		middleware.Logger(loggingConfig)(router))

	// Create servers
	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // streams run as long as playback
		IdleTimeout:  60 * time.Second,
	}

	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsSrv = startMetricsServer(config.MetricsPort, h)
	}

	go handleShutdown(cancel, srv, metricsSrv, coord, watcher, collector, monitor, trans, db)

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		startup.LogFatal("Server error: %v", err)
	}
	select {}
}

// startWatcher hands filesystem changes under the media root to the
// coordinator. A watcher that cannot start leaves scheduled and manual scans
// working.
func startWatcher(ctx context.Context, config *startup.Config, coord *jobs.Coordinator) *filesystem.Watcher {
	if !config.WatchEnabled {
		startup.LogWatcherDisabled("WATCH_ENABLED=false")
		return nil
	}

	watcher, err := filesystem.NewWatcher(config.MediaDir, mediatypes.IsMedia, watchQueueSize)
	if err != nil {
		startup.LogWatcherDisabled(err.Error())
		return nil
	}
	if err := watcher.Start(); err != nil {
		_ = watcher.Close()
		startup.LogWatcherDisabled(err.Error())
		return nil
	}

	go coord.HandleEvents(ctx, watcher.Events())
	startup.LogWatcherStarted(config.MediaDir, config.WatchDebounce)
	return watcher
}

func startMetricsServer(port string, h *handlers.Handlers) *http.Server {
	sm := http.NewServeMux()
	sm.Handle("/metrics", h.MetricsHandler())

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           sm,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Metrics server error: %v", err)
		}
	}()
	return srv
}

func handleShutdown(
	cancel context.CancelFunc,
	srv, metricsSrv *http.Server,
	coord *jobs.Coordinator,
	watcher *filesystem.Watcher,
	collector *metrics.Collector,
	monitor *memory.Monitor,
	trans *transcoder.Transcoder,
	db *database.Database,
) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, stop := context.WithTimeout(context.Background(), 30*time.Second)
	defer stop()

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(ctx)
	}

	if watcher != nil {
		startup.LogShutdownStep("Stopping watcher")
		if err := watcher.Close(); err != nil {
			logging.Warn("Watcher close error: %v", err)
		}
		startup.LogShutdownStepComplete("Watcher stopped")
	}

	startup.LogShutdownStep("Stopping background jobs")
	cancel()
	monitor.Stop()
	trans.Cleanup()
	coord.Stop()
	startup.LogShutdownStepComplete("Background jobs stopped")

	collector.Stop()

	startup.LogShutdownStep("Closing catalog")
	if err := db.Close(); err != nil {
		logging.Warn("Catalog close error: %v", err)
	} else {
		startup.LogShutdownStepComplete("Catalog closed")
	}

	startup.LogShutdownComplete()
	os.Exit(0)
}
