package database

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"media-library/internal/mediatypes"
	"media-library/internal/metadata"
	"media-library/internal/metrics"
)

// GetMetadata returns a bookkeeping value, or "" when the key is unset.
func (d *Database) GetMetadata(ctx context.Context, key string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var value sql.NullString
	err := d.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value.String, err
}

// SetMetadata sets a bookkeeping key-value pair.
func (d *Database) SetMetadata(ctx context.Context, key, value string) error {
	return d.withWrite(ctx, "set_metadata", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO metadata (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value
		`, key, value)
		return err
	})
}

// LastRun returns when a job kind last finished, or the zero time.
func (d *Database) LastRun(ctx context.Context, kind string) (time.Time, error) {
	value, err := d.GetMetadata(ctx, "last_run_"+kind)
	if err != nil || value == "" {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, value)
}

// SetLastRun stores when a job kind last finished.
func (d *Database) SetLastRun(ctx context.Context, kind string, t time.Time) error {
	return d.SetMetadata(ctx, "last_run_"+kind, t.UTC().Format(time.RFC3339))
}

// LibraryMetadata returns the folder tree, per-show item counts and both
// playlist lists.
func (d *Database) LibraryMetadata(ctx context.Context) (md *LibraryMetadata, err error) {
	start := time.Now()
	defer func() { recordQuery("library_metadata", start, err) }()

	md = &LibraryMetadata{FolderTree: FolderTree{}, AuthorCounts: map[string]int{}}

	paths, err := d.db.QueryContext(ctx, "SELECT DISTINCT relative_path FROM media_items WHERE relative_path IS NOT NULL")
	if err != nil {
		return nil, err
	}
	for paths.Next() {
		var p string
		if err := paths.Scan(&p); err != nil {
			paths.Close()
			return nil, err
		}
		md.FolderTree.add(p)
	}
	paths.Close()
	if err := paths.Err(); err != nil {
		return nil, err
	}

	counts, err := d.db.QueryContext(ctx, "SELECT show_title, COUNT(id) FROM media_items GROUP BY show_title")
	if err != nil {
		return nil, err
	}
	for counts.Next() {
		var show sql.NullString
		var n int
		if err := counts.Scan(&show, &n); err != nil {
			counts.Close()
			return nil, err
		}
		key := show.String
		if key == "" {
			key = metadata.UnknownShow
		}
		md.AuthorCounts[key] += n
	}
	counts.Close()
	if err := counts.Err(); err != nil {
		return nil, err
	}

	if md.SmartPlaylists, err = d.ListSmartPlaylists(ctx); err != nil {
		return nil, err
	}
	if md.StandardPlaylists, err = d.ListStandardPlaylists(ctx, 0); err != nil {
		return nil, err
	}
	return md, nil
}

func (t FolderTree) add(path string) {
	level := t
	for _, part := range strings.Split(strings.ReplaceAll(path, `\`, "/"), "/") {
		if part == "" || part == "." {
			continue
		}
		next, ok := level[part]
		if !ok {
			next = FolderTree{}
			level[part] = next
		}
		level = next
	}
}

// CatalogStats implements metrics.StatsProvider.
func (d *Database) CatalogStats(ctx context.Context) (metrics.Stats, error) {
	var s metrics.Stats
	err := d.db.QueryRowContext(ctx, `
		SELECT
			COUNT(CASE WHEN media_type = ? THEN 1 END),
			COUNT(CASE WHEN media_type = ? THEN 1 END),
			COUNT(CASE WHEN is_favorite THEN 1 END),
			(SELECT COUNT(*) FROM smart_playlists),
			(SELECT COUNT(*) FROM standard_playlists)
		FROM media_items
	`, string(mediatypes.KindVideo), string(mediatypes.KindImage)).Scan(
		&s.Videos, &s.Images, &s.Favorites, &s.SmartPlaylists, &s.StandardPlaylists,
	)
	return s, err
}
