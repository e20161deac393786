package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"media-library/internal/database"
	"media-library/internal/indexer"
	"media-library/internal/logging"
	"media-library/internal/media"
	"media-library/internal/pathkeys"
)

// Scanner is the library scanner as seen by the coordinator.
type Scanner interface {
	Scan(ctx context.Context, mode indexer.Mode) (indexer.ScanResult, error)
	Cleanup(ctx context.Context) (int, error)
	SetProgressFunc(fn func(indexer.Stage, indexer.ScanResult))
}

// Store is the part of the catalog the jobs read and write.
type Store interface {
	CountItems(ctx context.Context) (int, error)
	GetItem(ctx context.Context, id int64) (*database.MediaItem, error)
	ThumbnailCandidates(ctx context.Context) ([]database.ThumbnailCandidate, error)
	SetThumbnailPaths(ctx context.Context, paths map[int64]string) error
	SetCustomThumbnail(ctx context.Context, id int64, path string) error
	ClearCustomThumbnail(ctx context.Context, id int64) error
	SetTranscodedPath(ctx context.Context, id int64, path string) error
	ClearTranscode(ctx context.Context, id int64) error
	SetLastRun(ctx context.Context, kind string, t time.Time) error
}

// FrameExtractor grabs a single encoded frame from a video.
type FrameExtractor interface {
	ExtractFrame(ctx context.Context, path string, offset time.Duration) ([]byte, error)
}

// Encoder produces the optimized copy of a video. Implementations must never
// leave a partial file at dst.
type Encoder interface {
	Transcode(ctx context.Context, src, dst string) error
	Profile() string
}

// Defaults for Config.
const (
	DefaultFrameOffset        = 10 * time.Second
	DefaultThumbnailBatchSize = 50
)

// Config tunes the coordinator.
type Config struct {
	// ThumbnailWorkers sizes the frame-extraction pool; 0 picks a value
	// from the CPU count.
	ThumbnailWorkers   int
	ThumbnailBatchSize int
	FrameOffset        time.Duration
	Debounce           time.Duration
	// Pressure, when set, is consulted before each thumbnail batch.
	Pressure Gate
}

// Gate blocks while the process should not take on more work.
type Gate interface {
	Wait(ctx context.Context) error
}

// Coordinator owns every background job and the triggers that start them.
type Coordinator struct {
	reg     *Registry
	scanner Scanner
	store   Store
	frames  FrameExtractor
	encoder Encoder
	thumbs  *media.Thumbnailer
	keys    *pathkeys.Keys
	cfg     Config
	log     *logging.Logger

	cron *cron.Cron
}

// NewCoordinator wires the jobs together. Runs are cancelled when ctx is.
func NewCoordinator(ctx context.Context, scanner Scanner, store Store, frames FrameExtractor, encoder Encoder, keys *pathkeys.Keys, cfg Config) *Coordinator {
	if cfg.FrameOffset <= 0 {
		cfg.FrameOffset = DefaultFrameOffset
	}
	if cfg.ThumbnailBatchSize <= 0 {
		cfg.ThumbnailBatchSize = DefaultThumbnailBatchSize
	}
	return &Coordinator{
		reg:     NewRegistry(ctx),
		scanner: scanner,
		store:   store,
		frames:  frames,
		encoder: encoder,
		thumbs:  media.NewThumbnailer(),
		keys:    keys,
		cfg:     cfg,
		log:     logging.New("jobs"),
	}
}

// Status returns the latest snapshot for kind.
func (c *Coordinator) Status(kind Kind) Status {
	return c.reg.Status(kind)
}

// Statuses returns a snapshot of every kind.
func (c *Coordinator) Statuses() map[Kind]Status {
	out := make(map[Kind]Status, len(Kinds))
	for _, k := range Kinds {
		out[k] = c.reg.Status(k)
	}
	return out
}

// StartScan starts a scan. A full scan reprocesses every file and prunes; a
// chained scan starts the thumbnail fill afterwards if it changed anything.
func (c *Coordinator) StartScan(full, chained bool) (Status, error) {
	mode := indexer.ModeIncremental
	message := "New-only scan started."
	if full {
		mode = indexer.ModeFull
		message = "Full scan started."
	}

	return c.reg.Start(KindScan, message, func(ctx context.Context, run *Run) (string, error) {
		c.scanner.SetProgressFunc(func(stage indexer.Stage, res indexer.ScanResult) {
			processed := res.Added + res.Updated + res.Unchanged + res.Failed
			if stage == indexer.StagePruning {
				run.Report("Pruning deleted videos...", processed, 0)
				return
			}
			run.Report(fmt.Sprintf("Scanning... %d new.", res.Added), processed, 0)
		})

		res, err := c.scanner.Scan(ctx, mode)
		if err != nil {
			return "", err
		}
		c.recordLastRun(ctx, KindScan)

		if chained && res.Changed() {
			if started, _ := c.StartThumbnails(); started {
				c.log.Info("scan changed %d items, thumbnail fill started", res.Added+res.Updated)
			} else {
				c.log.Debug("thumbnail fill already running, not chaining")
			}
		}
		return "Scan complete.", nil
	})
}

// StartCleanup starts the prune-only walk.
func (c *Coordinator) StartCleanup() (Status, error) {
	return c.reg.Start(KindCleanup, "Starting cleanup...", func(ctx context.Context, run *Run) (string, error) {
		run.Report("Finding all video files...", 0, 0)
		removed, err := c.scanner.Cleanup(ctx)
		if err != nil {
			return "", err
		}
		c.recordLastRun(ctx, KindCleanup)
		return fmt.Sprintf("Cleanup complete. Removed %d items.", removed), nil
	})
}

// Bootstrap starts a full chained scan when the catalog is empty.
func (c *Coordinator) Bootstrap(ctx context.Context) error {
	n, err := c.store.CountItems(ctx)
	if err != nil {
		return fmt.Errorf("failed to count catalog items: %w", err)
	}
	if n > 0 {
		c.log.Info("catalog has %d items, skipping initial scan", n)
		return nil
	}

	c.log.Info("catalog is empty, starting initial scan")
	if _, err := c.StartScan(true, true); err != nil && !errors.Is(err, ErrAlreadyRunning) {
		return err
	}
	return nil
}

// Schedule runs a full chained scan on a cron spec such as "@every 6h" or
// "0 3 * * *".
func (c *Coordinator) Schedule(spec string) error {
	if c.cron == nil {
		c.cron = cron.New()
	}
	_, err := c.cron.AddFunc(spec, func() {
		if _, err := c.StartScan(true, true); errors.Is(err, ErrAlreadyRunning) {
			c.log.Info("scheduled scan skipped, a scan is already running")
		} else if err != nil {
			c.log.Error("scheduled scan failed to start: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid scan schedule %q: %w", spec, err)
	}
	c.cron.Start()
	c.log.Info("scheduled full scans: %s", spec)
	return nil
}

// Stop halts the scheduler and waits for running jobs to return. Jobs only
// return early if the context given to NewCoordinator was cancelled.
func (c *Coordinator) Stop() {
	if c.cron != nil {
		<-c.cron.Stop().Done()
	}
	c.reg.Wait()
}

func (c *Coordinator) recordLastRun(ctx context.Context, kind Kind) {
	if err := c.store.SetLastRun(ctx, string(kind), time.Now()); err != nil {
		c.log.Warn("failed to record last %s run: %v", kind, err)
	}
}
