package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"
)

// CreateSmartPlaylist creates an empty smart playlist.
func (d *Database) CreateSmartPlaylist(ctx context.Context, name string) (*SmartPlaylist, error) {
	p := &SmartPlaylist{Name: strings.TrimSpace(name), Filters: json.RawMessage("[]")}
	err := d.withWrite(ctx, "create_smart_playlist", func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, "INSERT INTO smart_playlists (name, filters) VALUES (?, ?)", p.Name, string(p.Filters))
		if err != nil {
			return err
		}
		p.ID, err = result.LastInsertId()
		return err
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetSmartPlaylist returns a smart playlist and its stored rules.
func (d *Database) GetSmartPlaylist(ctx context.Context, id int64) (p *SmartPlaylist, err error) {
	start := time.Now()
	defer func() { recordQuery("get_smart_playlist", start, err) }()

	var filters string
	p = &SmartPlaylist{ID: id}
	err = d.db.QueryRowContext(ctx, "SELECT name, filters FROM smart_playlists WHERE id = ?", id).Scan(&p.Name, &filters)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.Filters = rawFilters(filters)
	return p, nil
}

// ListSmartPlaylists returns all smart playlists in creation order.
func (d *Database) ListSmartPlaylists(ctx context.Context) ([]SmartPlaylist, error) {
	rows, err := d.db.QueryContext(ctx, "SELECT id, name, filters FROM smart_playlists ORDER BY id ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []SmartPlaylist{}
	for rows.Next() {
		var p SmartPlaylist
		var filters string
		if err := rows.Scan(&p.ID, &p.Name, &filters); err != nil {
			return nil, err
		}
		p.Filters = rawFilters(filters)
		out = append(out, p)
	}
	return out, rows.Err()
}

func rawFilters(s string) json.RawMessage {
	if strings.TrimSpace(s) == "" {
		return json.RawMessage("[]")
	}
	return json.RawMessage(s)
}

// RenameSmartPlaylist changes a smart playlist's display name.
func (d *Database) RenameSmartPlaylist(ctx context.Context, id int64, name string) error {
	return d.execPlaylist(ctx, "rename_smart_playlist", "UPDATE smart_playlists SET name = ? WHERE id = ?", strings.TrimSpace(name), id)
}

// UpdateSmartPlaylistFilters replaces the stored rule array. Callers
// validate the rules first.
func (d *Database) UpdateSmartPlaylistFilters(ctx context.Context, id int64, filters json.RawMessage) error {
	return d.execPlaylist(ctx, "update_smart_playlist", "UPDATE smart_playlists SET filters = ? WHERE id = ?", string(filters), id)
}

// DeleteSmartPlaylist removes a smart playlist.
func (d *Database) DeleteSmartPlaylist(ctx context.Context, id int64) error {
	return d.execPlaylist(ctx, "delete_smart_playlist", "DELETE FROM smart_playlists WHERE id = ?", id)
}

func (d *Database) execPlaylist(ctx context.Context, op, query string, args ...any) error {
	return d.withWrite(ctx, op, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// CreateStandardPlaylist creates a playlist, optionally seeded with one item.
// A taken name returns ErrDuplicateName. An unknown seed item is ignored.
func (d *Database) CreateStandardPlaylist(ctx context.Context, name string, itemID int64) (int64, error) {
	var id int64
	err := d.withWrite(ctx, "create_standard_playlist", func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, "INSERT INTO standard_playlists (name) VALUES (?)", strings.TrimSpace(name))
		if err != nil {
			var sqliteErr sqlite3.Error
			if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
				return ErrDuplicateName
			}
			return err
		}
		if id, err = result.LastInsertId(); err != nil {
			return err
		}

		if itemID > 0 {
			_, err = tx.ExecContext(ctx, `
				INSERT OR IGNORE INTO playlist_items (playlist_id, item_id)
				SELECT ?, id FROM media_items WHERE id = ?
			`, id, itemID)
		}
		return err
	})
	return id, err
}

// TogglePlaylistItem adds the item to the playlist, or removes it if it is
// already a member. It reports whether the item is now a member.
func (d *Database) TogglePlaylistItem(ctx context.Context, playlistID, itemID int64) (bool, error) {
	var member bool
	err := d.withWrite(ctx, "toggle_playlist_item", func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, "DELETE FROM playlist_items WHERE playlist_id = ? AND item_id = ?", playlistID, itemID)
		if err != nil {
			return err
		}
		if n, _ := result.RowsAffected(); n > 0 {
			return nil
		}

		result, err = tx.ExecContext(ctx, `
			INSERT INTO playlist_items (playlist_id, item_id)
			SELECT p.id, m.id FROM standard_playlists p, media_items m
			WHERE p.id = ? AND m.id = ?
		`, playlistID, itemID)
		if err != nil {
			return err
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		member = true
		return nil
	})
	return member, err
}

// ListStandardPlaylists returns all standard playlists by name, marking the
// ones itemID belongs to. Pass 0 to mark none.
func (d *Database) ListStandardPlaylists(ctx context.Context, itemID int64) ([]StandardPlaylist, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT p.id, p.name, EXISTS (
			SELECT 1 FROM playlist_items i WHERE i.playlist_id = p.id AND i.item_id = ?
		)
		FROM standard_playlists p
		ORDER BY p.name ASC
	`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []StandardPlaylist{}
	for rows.Next() {
		var p StandardPlaylist
		if err := rows.Scan(&p.ID, &p.Name, &p.IsInPlaylist); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeleteStandardPlaylist removes a playlist and its memberships.
func (d *Database) DeleteStandardPlaylist(ctx context.Context, id int64) error {
	return d.withWrite(ctx, "delete_standard_playlist", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM playlist_items WHERE playlist_id = ?", id); err != nil {
			return err
		}
		result, err := tx.ExecContext(ctx, "DELETE FROM standard_playlists WHERE id = ?", id)
		if err != nil {
			return err
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// PlaylistItemIDs returns the member item ids of a standard playlist.
func (d *Database) PlaylistItemIDs(ctx context.Context, playlistID int64) (ids []int64, err error) {
	start := time.Now()
	defer func() { recordQuery("playlist_item_ids", start, err) }()

	rows, err := d.db.QueryContext(ctx, "SELECT item_id FROM playlist_items WHERE playlist_id = ? ORDER BY id", playlistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
