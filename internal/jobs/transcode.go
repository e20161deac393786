package jobs

import (
	"context"
	"errors"
	"fmt"
	"os"

	"media-library/internal/database"
	"media-library/internal/filesystem"
	"media-library/internal/mediatypes"
	"media-library/internal/transcoder"
)

var (
	// ErrNoTranscode is returned when deleting an optimized copy that does
	// not exist.
	ErrNoTranscode = errors.New("no transcode to delete")

	// ErrNotVideo is returned when a video-only operation targets an image.
	ErrNotVideo = errors.New("item is not a video")
)

// StartTranscode starts building the optimized copy of one item. Unknown
// items are rejected before any lock is taken.
func (c *Coordinator) StartTranscode(ctx context.Context, id int64) (Status, error) {
	item, err := c.store.GetItem(ctx, id)
	if err != nil {
		return Status{}, err
	}
	if item.MediaType != mediatypes.KindVideo {
		return Status{}, ErrNotVideo
	}

	initial := Status{
		Kind:    KindTranscode,
		Message: "Starting optimization for: " + item.Filename,
		ItemID:  id,
	}
	return c.reg.start(initial, func(ctx context.Context, _ *Run) (string, error) {
		return c.transcode(ctx, item)
	})
}

func (c *Coordinator) transcode(ctx context.Context, item *database.MediaItem) (string, error) {
	out, err := c.keys.Transcode(item.Path)
	if err != nil {
		return "", err
	}

	if filesystem.Exists(out) {
		c.log.Info("optimized copy already exists: %s", out)
	} else {
		c.log.Info("transcoding %s with the %s profile", item.Filename, c.encoder.Profile())
		if err := c.encoder.Transcode(ctx, item.Path, out); err != nil {
			var toolErr *transcoder.ToolError
			if errors.As(err, &toolErr) {
				return "FFmpeg failed.", err
			}
			return "", err
		}
	}

	if err := c.store.SetTranscodedPath(ctx, item.ID, out); err != nil {
		return "", fmt.Errorf("failed to link optimized copy: %w", err)
	}
	c.recordLastRun(ctx, KindTranscode)
	return "Transcode complete.", nil
}

// DeleteTranscode removes the optimized copy and unlinks it.
func (c *Coordinator) DeleteTranscode(ctx context.Context, id int64) (*database.MediaItem, error) {
	item, err := c.store.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.TranscodedPath == "" {
		return nil, ErrNoTranscode
	}

	if err := os.Remove(item.TranscodedPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to remove optimized copy: %w", err)
	}
	if err := c.store.ClearTranscode(ctx, id); err != nil {
		return nil, err
	}
	c.log.Info("deleted optimized copy of %s", item.Filename)
	return c.store.GetItem(ctx, id)
}
