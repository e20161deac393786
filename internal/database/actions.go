package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidTag is returned by SetTag for an unknown tag name.
var ErrInvalidTag = errors.New("invalid tag")

// execItem runs a single-row write against media_items and maps a missing id
// to ErrNotFound.
func (d *Database) execItem(ctx context.Context, op string, id int64, query string, args ...any) error {
	return d.withWrite(ctx, op, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, query, append(args, id)...)
		if err != nil {
			return err
		}
		n, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (d *Database) toggleFlag(ctx context.Context, op, column string, id int64) (bool, error) {
	var value bool
	err := d.withWrite(ctx, op, func(tx *sql.Tx) error {
		q := fmt.Sprintf("UPDATE media_items SET %s = NOT %s WHERE id = ? RETURNING %s", column, column, column)
		err := tx.QueryRowContext(ctx, q, id).Scan(&value)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	})
	return value, err
}

// ToggleFavorite flips the favorite flag and returns the new value.
func (d *Database) ToggleFavorite(ctx context.Context, id int64) (bool, error) {
	return d.toggleFlag(ctx, "toggle_favorite", "is_favorite", id)
}

// ToggleWatchLater flips the watch-later flag and returns the new value.
func (d *Database) ToggleWatchLater(ctx context.Context, id int64) (bool, error) {
	return d.toggleFlag(ctx, "toggle_watch_later", "is_watch_later", id)
}

// RecordProgress stores the watch position and stamps last_watched. Positions
// under MinWatchSeconds are ignored. The current row is returned either way.
func (d *Database) RecordProgress(ctx context.Context, id int64, seconds int, now time.Time) (*MediaItem, error) {
	if seconds >= MinWatchSeconds {
		err := d.execItem(ctx, "record_progress", id,
			"UPDATE media_items SET watched_duration = ?, last_watched = ? WHERE id = ?",
			seconds, now.Unix())
		if err != nil {
			return nil, err
		}
	}
	return d.GetItem(ctx, id)
}

// SetTag assigns a manual content tag and locks it against rescans.
func (d *Database) SetTag(ctx context.Context, id int64, tag string) error {
	var isShort bool
	var videoType any

	switch tag {
	case TagShort:
		isShort = true
	case TagVR180:
		videoType = VideoTypeVR180SBS
	case TagVR360:
		videoType = VideoTypeVR360
	case TagNone, "":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidTag, tag)
	}

	return d.execItem(ctx, "set_tag", id,
		"UPDATE media_items SET is_short = ?, video_type = ?, tag_locked = 1 WHERE id = ?",
		isShort, videoType)
}

// SetCustomThumbnail records a user-chosen thumbnail.
func (d *Database) SetCustomThumbnail(ctx context.Context, id int64, path string) error {
	return d.execItem(ctx, "set_custom_thumbnail", id,
		"UPDATE media_items SET custom_thumbnail_path = ? WHERE id = ?", nullString(path))
}

// ClearCustomThumbnail unlinks the custom thumbnail.
func (d *Database) ClearCustomThumbnail(ctx context.Context, id int64) error {
	return d.SetCustomThumbnail(ctx, id, "")
}

// SetTranscodedPath links an optimized copy.
func (d *Database) SetTranscodedPath(ctx context.Context, id int64, path string) error {
	return d.execItem(ctx, "set_transcoded_path", id,
		"UPDATE media_items SET transcoded_path = ? WHERE id = ?", nullString(path))
}

// ClearTranscode unlinks the optimized copy.
func (d *Database) ClearTranscode(ctx context.Context, id int64) error {
	return d.SetTranscodedPath(ctx, id, "")
}
