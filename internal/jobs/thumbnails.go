package jobs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"media-library/internal/database"
	"media-library/internal/filesystem"
	"media-library/internal/metrics"
	"media-library/internal/workers"
)

var (
	// ErrNoCustomThumbnail is returned when deleting a custom thumbnail that
	// was never created.
	ErrNoCustomThumbnail = errors.New("no custom thumbnail to delete")

	errSourceMissing = errors.New("source file not found")
)

// StartThumbnails starts the thumbnail fill. It reports false, without an
// error, when a fill is already running.
func (c *Coordinator) StartThumbnails() (bool, Status) {
	st, err := c.reg.Start(KindThumbnails, "Initializing task...", c.fillThumbnails)
	if err != nil {
		return false, c.reg.Status(KindThumbnails)
	}
	return true, st
}

type fillCounts struct {
	generated int
	skipped   int
	failed    int
}

func (c *Coordinator) fillThumbnails(ctx context.Context, run *Run) (string, error) {
	candidates, err := c.store.ThumbnailCandidates(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list thumbnail candidates: %w", err)
	}

	var todo []database.ThumbnailCandidate
	for _, cand := range candidates {
		if cand.ThumbnailPath != "" && filesystem.Exists(cand.ThumbnailPath) {
			continue
		}
		todo = append(todo, cand)
	}
	total := len(todo)
	run.Report(fmt.Sprintf("Found %d videos to process.", total), 0, total)

	n := workers.ForIO(c.cfg.ThumbnailWorkers, 8)
	var counts fillCounts
	done := 0

	for start := 0; start < total; start += c.cfg.ThumbnailBatchSize {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if c.cfg.Pressure != nil {
			if err := c.cfg.Pressure.Wait(ctx); err != nil {
				return "", err
			}
		}
		end := min(start+c.cfg.ThumbnailBatchSize, total)

		var mu sync.Mutex
		paths := make(map[int64]string, end-start)
		workers.Each(ctx, n, todo[start:end], func(ctx context.Context, cand database.ThumbnailCandidate) {
			path, err := c.generateThumbnail(ctx, cand)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				paths[cand.ID] = path
				counts.generated++
			case errors.Is(err, errSourceMissing):
				c.log.Debug("skipping %s: %v", cand.Filename, err)
				counts.skipped++
			default:
				c.log.Warn("thumbnail failed for %s: %v", cand.Filename, err)
				counts.failed++
			}
			done++
			run.Report(fmt.Sprintf("Found %d videos to process.", total), done, total)
		})

		if err := c.store.SetThumbnailPaths(ctx, paths); err != nil {
			return "", fmt.Errorf("failed to record thumbnails: %w", err)
		}
	}

	c.recordLastRun(ctx, KindThumbnails)
	return fmt.Sprintf("Done. %d generated, %d skipped, %d failed.", counts.generated, counts.skipped, counts.failed), nil
}

func (c *Coordinator) generateThumbnail(ctx context.Context, cand database.ThumbnailCandidate) (string, error) {
	if !filesystem.Exists(cand.Path) {
		metrics.ThumbnailGenerationsTotal.WithLabelValues("skipped").Inc()
		return "", errSourceMissing
	}

	start := time.Now()
	path, err := c.writeFrame(ctx, cand.Path, c.cfg.FrameOffset, c.keys.Thumbnail)
	metrics.ThumbnailGenerationDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ThumbnailGenerationsTotal.WithLabelValues("error").Inc()
		return "", err
	}
	metrics.ThumbnailGenerationsTotal.WithLabelValues("success").Inc()
	return path, nil
}

// writeFrame extracts the frame at offset, fits it and writes it to the path
// dest derives from the source.
func (c *Coordinator) writeFrame(ctx context.Context, source string, offset time.Duration, dest func(string) (string, error)) (string, error) {
	frame, err := c.frames.ExtractFrame(ctx, source, offset)
	if err != nil {
		return "", err
	}
	path, err := dest(source)
	if err != nil {
		return "", err
	}
	if err := c.thumbs.WriteFile(path, frame); err != nil {
		return "", err
	}
	return path, nil
}

// CreateCustomThumbnail grabs the frame at the given offset and links it as
// the item's custom thumbnail, replacing any previous one. It runs in the
// caller's goroutine; tool failures come back verbatim.
func (c *Coordinator) CreateCustomThumbnail(ctx context.Context, id int64, at time.Duration) (*database.MediaItem, error) {
	item, err := c.store.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if at < 0 {
		at = 0
	}

	path, err := c.writeFrame(ctx, item.Path, at, c.keys.CustomThumbnail)
	if err != nil {
		c.log.Warn("custom thumbnail failed for %s at %v: %v", item.Filename, at, err)
		return nil, err
	}
	if err := c.store.SetCustomThumbnail(ctx, id, path); err != nil {
		return nil, err
	}
	c.log.Info("custom thumbnail created for %s at %v", item.Filename, at)
	return c.store.GetItem(ctx, id)
}

// DeleteCustomThumbnail removes the custom thumbnail file and unlinks it.
func (c *Coordinator) DeleteCustomThumbnail(ctx context.Context, id int64) (*database.MediaItem, error) {
	item, err := c.store.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.CustomThumbnailPath == "" {
		return nil, ErrNoCustomThumbnail
	}

	if err := os.Remove(item.CustomThumbnailPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to remove custom thumbnail: %w", err)
	}
	if err := c.store.ClearCustomThumbnail(ctx, id); err != nil {
		return nil, err
	}
	return c.store.GetItem(ctx, id)
}
