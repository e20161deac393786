package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"media-library/internal/logging"
	"media-library/internal/mediatypes"
)

const itemColumns = `id, video_path, filename, relative_path, media_type, is_associated_thumbnail,
	title, show_title, summary, youtube_id, aired, uploaded_date, has_nfo,
	file_size, file_format, width, height, dimensions, duration, video_codec, is_short,
	thumbnail_path, custom_thumbnail_path, transcoded_path, show_poster_path,
	subtitle_path, subtitle_label, subtitle_lang,
	is_favorite, is_watch_later, last_watched, watched_duration, video_type, tag_locked,
	created_at, updated_at`

// scannedColumns are overwritten on every rescan. thumbnail_path and
// is_short have their own rules and user-state columns are never listed.
var scannedColumns = []string{
	"filename", "relative_path", "media_type", "is_associated_thumbnail",
	"title", "show_title", "summary", "youtube_id", "aired", "uploaded_date", "has_nfo",
	"file_size", "file_format", "width", "height", "dimensions", "duration", "video_codec",
	"custom_thumbnail_path", "transcoded_path", "show_poster_path",
	"subtitle_path", "subtitle_label", "subtitle_lang",
}

func scannedValues(it *MediaItem) []any {
	return []any{
		it.Filename, nullString(it.RelativePath), string(it.MediaType), it.IsAssociatedThumbnail,
		it.Title, it.ShowTitle, it.Summary, nullString(it.UniqueID), nullTime(it.Aired), nullTime(it.Uploaded), it.HasNFO,
		it.FileSize, it.FileFormat, it.Width, it.Height, nullString(it.Dimensions), it.Duration, nullString(it.VideoCodec),
		nullString(it.CustomThumbnailPath), nullString(it.TranscodedPath), nullString(it.ShowPosterPath),
		nullString(it.SubtitlePath), nullString(it.SubtitleLabel), nullString(it.SubtitleLang),
	}
}

// upsertItemSQL inserts a row or refreshes its scanned fields. The WHERE on
// the update makes an unchanged rescan a no-op, so RowsAffected is 0.
var upsertItemSQL = buildUpsertSQL()

func buildUpsertSQL() string {
	cols := append([]string{"video_path", "thumbnail_path", "is_short"}, scannedColumns...)

	var set, changed []string
	for _, c := range scannedColumns {
		set = append(set, fmt.Sprintf("%s = excluded.%s", c, c))
		changed = append(changed, fmt.Sprintf("media_items.%s IS NOT excluded.%s", c, c))
	}
	set = append(set,
		"thumbnail_path = COALESCE(excluded.thumbnail_path, media_items.thumbnail_path)",
		"is_short = CASE WHEN media_items.tag_locked THEN media_items.is_short ELSE excluded.is_short END",
		"updated_at = strftime('%s', 'now')",
	)
	changed = append(changed,
		"(excluded.thumbnail_path IS NOT NULL AND media_items.thumbnail_path IS NOT excluded.thumbnail_path)",
		"(NOT media_items.tag_locked AND media_items.is_short IS NOT excluded.is_short)",
	)

	return fmt.Sprintf(`INSERT INTO media_items (%s) VALUES (%s)
	ON CONFLICT(video_path) DO UPDATE SET %s
	WHERE %s`,
		strings.Join(cols, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "),
		strings.Join(set, ",\n\t\t"),
		strings.Join(changed, "\n\t\tOR "),
	)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*MediaItem, error) {
	var (
		it                                                   MediaItem
		relPath, showTitle, summary, uniqueID, dims, codec   sql.NullString
		thumb, custom, transcoded, poster, subPath, subLabel sql.NullString
		subLang, videoType, filename, format, mediaType      sql.NullString
		aired, uploaded, lastWatched, size                   sql.NullInt64
		created, updated                                     int64
	)

	err := row.Scan(
		&it.ID, &it.Path, &filename, &relPath, &mediaType, &it.IsAssociatedThumbnail,
		&it.Title, &showTitle, &summary, &uniqueID, &aired, &uploaded, &it.HasNFO,
		&size, &format, &it.Width, &it.Height, &dims, &it.Duration, &codec, &it.IsShort,
		&thumb, &custom, &transcoded, &poster,
		&subPath, &subLabel, &subLang,
		&it.IsFavorite, &it.IsWatchLater, &lastWatched, &it.WatchedDuration, &videoType, &it.TagLocked,
		&created, &updated,
	)
	if err != nil {
		return nil, err
	}

	it.Filename = filename.String
	it.RelativePath = relPath.String
	it.MediaType = mediatypes.Kind(mediaType.String)
	it.ShowTitle = showTitle.String
	it.Summary = summary.String
	it.UniqueID = uniqueID.String
	it.Aired = fromUnix(aired)
	it.Uploaded = fromUnix(uploaded)
	it.FileSize = size.Int64
	it.FileFormat = format.String
	it.Dimensions = dims.String
	it.VideoCodec = codec.String
	it.ThumbnailPath = thumb.String
	it.CustomThumbnailPath = custom.String
	it.TranscodedPath = transcoded.String
	it.ShowPosterPath = poster.String
	it.SubtitlePath = subPath.String
	it.SubtitleLabel = subLabel.String
	it.SubtitleLang = subLang.String
	it.LastWatched = fromUnix(lastWatched)
	it.VideoType = videoType.String
	it.CreatedAt = time.Unix(created, 0)
	it.UpdatedAt = time.Unix(updated, 0)
	return &it, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Unix()
}

func fromUnix(v sql.NullInt64) time.Time {
	if !v.Valid {
		return time.Time{}
	}
	return time.Unix(v.Int64, 0)
}

// GetItem returns one item by id.
func (d *Database) GetItem(ctx context.Context, id int64) (item *MediaItem, err error) {
	start := time.Now()
	defer func() { recordQuery("get_item", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row := d.db.QueryRowContext(ctx, "SELECT "+itemColumns+" FROM media_items WHERE id = ?", id)
	item, err = scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return item, err
}

// GetItemByPath returns one item by its source path.
func (d *Database) GetItemByPath(ctx context.Context, path string) (*MediaItem, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	item, err := scanItem(d.db.QueryRowContext(ctx, "SELECT "+itemColumns+" FROM media_items WHERE video_path = ?", path))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return item, err
}

// CountItems returns the number of cataloged rows.
func (d *Database) CountItems(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var n int
	err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM media_items").Scan(&n)
	return n, err
}

// CatalogEntries returns every row's path and derived asset paths, keyed by
// source path.
func (d *Database) CatalogEntries(ctx context.Context) (entries map[string]ItemRef, err error) {
	start := time.Now()
	defer func() { recordQuery("catalog_entries", start, err) }()

	rows, err := d.db.QueryContext(ctx, `
		SELECT id, video_path, thumbnail_path, custom_thumbnail_path, transcoded_path
		FROM media_items
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries = make(map[string]ItemRef)
	for rows.Next() {
		var ref ItemRef
		var thumb, custom, transcoded sql.NullString
		if err := rows.Scan(&ref.ID, &ref.Path, &thumb, &custom, &transcoded); err != nil {
			return nil, err
		}
		ref.ThumbnailPath = thumb.String
		ref.CustomThumbnailPath = custom.String
		ref.TranscodedPath = transcoded.String
		entries[ref.Path] = ref
	}
	return entries, rows.Err()
}

// UpsertItems writes one batch of scanned items in a single transaction.
// Each row runs under its own savepoint, so a failing row is rolled back and
// counted without losing the rest of the batch.
func (d *Database) UpsertItems(ctx context.Context, items []*MediaItem) (res UpsertResult, err error) {
	if len(items) == 0 {
		return res, nil
	}

	err = d.withWrite(ctx, "upsert_items", func(tx *sql.Tx) error {
		for _, it := range items {
			if _, err := tx.ExecContext(ctx, "SAVEPOINT item"); err != nil {
				return err
			}

			added, changed, rowErr := upsertItem(ctx, tx, it)
			if rowErr != nil {
				logging.Warn("catalog write failed for %s: %v", it.Path, rowErr)
				if _, err := tx.ExecContext(ctx, "ROLLBACK TO item"); err != nil {
					return errors.Join(rowErr, err)
				}
				res.Failed++
			} else {
				switch {
				case added:
					res.Added++
				case changed:
					res.Updated++
				default:
					res.Unchanged++
				}
			}

			if _, err := tx.ExecContext(ctx, "RELEASE item"); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return UpsertResult{Failed: len(items)}, err
	}
	return res, nil
}

func upsertItem(ctx context.Context, tx *sql.Tx, it *MediaItem) (added, changed bool, err error) {
	var existingID int64
	err = tx.QueryRowContext(ctx, "SELECT id FROM media_items WHERE video_path = ?", it.Path).Scan(&existingID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		added = true
	case err != nil:
		return false, false, err
	}

	args := append([]any{it.Path, nullString(it.ThumbnailPath), it.IsShort}, scannedValues(it)...)
	result, err := tx.ExecContext(ctx, upsertItemSQL, args...)
	if err != nil {
		return false, false, err
	}

	if added {
		if id, err := result.LastInsertId(); err == nil {
			it.ID = id
		}
		return true, true, nil
	}
	it.ID = existingID

	n, err := result.RowsAffected()
	if err != nil {
		return false, false, err
	}
	return false, n > 0, nil
}

// PruneItems deletes the given rows and their playlist memberships in one
// transaction. It returns the number of rows removed.
func (d *Database) PruneItems(ctx context.Context, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	var removed int64
	err := d.withWrite(ctx, "prune_items", func(tx *sql.Tx) error {
		for _, chunk := range chunkIDs(ids, 500) {
			in, args := inClause(chunk)
			if _, err := tx.ExecContext(ctx, "DELETE FROM playlist_items WHERE item_id IN "+in, args...); err != nil {
				return fmt.Errorf("failed to remove playlist memberships: %w", err)
			}
			result, err := tx.ExecContext(ctx, "DELETE FROM media_items WHERE id IN "+in, args...)
			if err != nil {
				return fmt.Errorf("failed to delete items: %w", err)
			}
			n, _ := result.RowsAffected()
			removed += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int(removed), nil
}

// ThumbnailCandidates returns every video row; callers decide whether the
// recorded thumbnail still exists.
func (d *Database) ThumbnailCandidates(ctx context.Context) (out []ThumbnailCandidate, err error) {
	start := time.Now()
	defer func() { recordQuery("thumbnail_candidates", start, err) }()

	rows, err := d.db.QueryContext(ctx, `
		SELECT id, video_path, COALESCE(filename, ''), thumbnail_path
		FROM media_items
		WHERE media_type = ?
		ORDER BY id
	`, string(mediatypes.KindVideo))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var c ThumbnailCandidate
		var thumb sql.NullString
		if err := rows.Scan(&c.ID, &c.Path, &c.Filename, &thumb); err != nil {
			return nil, err
		}
		c.ThumbnailPath = thumb.String
		out = append(out, c)
	}
	return out, rows.Err()
}

// SetThumbnailPaths records generated thumbnails, keyed by item id.
func (d *Database) SetThumbnailPaths(ctx context.Context, paths map[int64]string) error {
	if len(paths) == 0 {
		return nil
	}
	return d.withWrite(ctx, "set_thumbnail_paths", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, "UPDATE media_items SET thumbnail_path = ? WHERE id = ?")
		if err != nil {
			return err
		}
		defer stmt.Close()

		for id, path := range paths {
			if _, err := stmt.ExecContext(ctx, path, id); err != nil {
				return err
			}
		}
		return nil
	})
}

// CountSelection counts rows matching sel.
func (d *Database) CountSelection(ctx context.Context, sel Selection) (n int, err error) {
	start := time.Now()
	defer func() { recordQuery("count_selection", start, err) }()

	err = d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM media_items"+whereSQL(sel), sel.Args...).Scan(&n)
	return n, err
}

// ListSelection returns rows matching sel in its order. A limit of 0 returns
// every match.
func (d *Database) ListSelection(ctx context.Context, sel Selection, limit, offset int) (items []MediaItem, err error) {
	start := time.Now()
	defer func() { recordQuery("list_selection", start, err) }()

	q := "SELECT " + itemColumns + " FROM media_items" + whereSQL(sel)
	if sel.OrderBy != "" {
		q += " ORDER BY " + sel.OrderBy
	}
	args := sel.Args
	if limit > 0 {
		q += " LIMIT ? OFFSET ?"
		args = append(append([]any{}, args...), limit, offset)
	}

	rows, err := d.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items = []MediaItem{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *it)
	}
	return items, rows.Err()
}

func whereSQL(sel Selection) string {
	if sel.Where == "" {
		return ""
	}
	return " WHERE " + sel.Where
}

func chunkIDs(ids []int64, size int) [][]int64 {
	var chunks [][]int64
	for size < len(ids) {
		ids, chunks = ids[size:], append(chunks, ids[:size])
	}
	return append(chunks, ids)
}

func inClause(ids []int64) (string, []any) {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return "(" + strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",") + ")", args
}
