package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"media-library/internal/logging"
	"media-library/internal/metrics"
)

// Default timeout for database operations
const defaultTimeout = 5 * time.Second

var (
	// ErrNotFound is returned when an item or playlist id does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateName is returned when a standard playlist name is taken.
	ErrDuplicateName = errors.New("a playlist with this name already exists")
)

// Database is the catalog store. Every write transaction holds writeMu for
// its whole lifetime; reads go straight to the pool.
type Database struct {
	db      *sql.DB
	dbPath  string
	writeMu sync.Mutex
	txStart time.Time // guarded by writeMu
}

// New opens (creating if needed) the catalog at dbPath. The parent directory
// must already exist and be writable.
func New(ctx context.Context, dbPath string) (*Database, error) {
	logging.Info("Catalog path: %s", dbPath)

	if err := diagnoseDatabasePermissions(dbPath); err != nil {
		logging.Warn("Catalog permission diagnostics: %v", err)
	}

	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=10000&_temp_store=MEMORY&_busy_timeout=5000&_foreign_keys=1", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)

	d := newWithDB(db, dbPath)

	if err := d.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after initialization failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	logging.Info("Catalog initialized successfully at %s", dbPath)
	return d, nil
}

func newWithDB(db *sql.DB, dbPath string) *Database {
	return &Database{db: db, dbPath: dbPath}
}

func (d *Database) initialize(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS media_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		video_path TEXT NOT NULL UNIQUE,
		filename TEXT,
		relative_path TEXT,
		media_type TEXT NOT NULL DEFAULT 'video',
		is_associated_thumbnail INTEGER NOT NULL DEFAULT 0,
		title TEXT NOT NULL,
		show_title TEXT,
		summary TEXT,
		youtube_id TEXT,
		aired INTEGER,
		uploaded_date INTEGER,
		has_nfo INTEGER NOT NULL DEFAULT 0,
		file_size INTEGER,
		file_format TEXT,
		width INTEGER NOT NULL DEFAULT 0,
		height INTEGER NOT NULL DEFAULT 0,
		dimensions TEXT,
		duration INTEGER NOT NULL DEFAULT 0,
		video_codec TEXT,
		is_short INTEGER NOT NULL DEFAULT 0,
		thumbnail_path TEXT,
		custom_thumbnail_path TEXT,
		transcoded_path TEXT,
		show_poster_path TEXT,
		subtitle_path TEXT,
		subtitle_label TEXT,
		subtitle_lang TEXT,
		is_favorite INTEGER NOT NULL DEFAULT 0,
		is_watch_later INTEGER NOT NULL DEFAULT 0,
		last_watched INTEGER,
		watched_duration INTEGER NOT NULL DEFAULT 0,
		video_type TEXT,
		tag_locked INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	CREATE INDEX IF NOT EXISTS idx_items_show_title ON media_items(show_title);
	CREATE INDEX IF NOT EXISTS idx_items_relative_path ON media_items(relative_path);
	CREATE INDEX IF NOT EXISTS idx_items_media_type ON media_items(media_type, is_associated_thumbnail);
	CREATE INDEX IF NOT EXISTS idx_items_aired ON media_items(aired);
	CREATE INDEX IF NOT EXISTS idx_items_uploaded ON media_items(uploaded_date);
	CREATE INDEX IF NOT EXISTS idx_items_duration ON media_items(duration);
	CREATE INDEX IF NOT EXISTS idx_items_favorite ON media_items(is_favorite);
	CREATE INDEX IF NOT EXISTS idx_items_watch_later ON media_items(is_watch_later);
	CREATE INDEX IF NOT EXISTS idx_items_last_watched ON media_items(last_watched);
	CREATE INDEX IF NOT EXISTS idx_items_is_short ON media_items(is_short);
	CREATE INDEX IF NOT EXISTS idx_items_video_type ON media_items(video_type);
	CREATE INDEX IF NOT EXISTS idx_items_transcoded ON media_items(transcoded_path);

	CREATE TABLE IF NOT EXISTS smart_playlists (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		filters TEXT NOT NULL DEFAULT '[]'
	);

	CREATE TABLE IF NOT EXISTS standard_playlists (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE
	);

	CREATE TABLE IF NOT EXISTS playlist_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		playlist_id INTEGER NOT NULL,
		item_id INTEGER NOT NULL,
		FOREIGN KEY (playlist_id) REFERENCES standard_playlists(id) ON DELETE CASCADE,
		FOREIGN KEY (item_id) REFERENCES media_items(id) ON DELETE CASCADE,
		UNIQUE(playlist_id, item_id)
	);

	CREATE INDEX IF NOT EXISTS idx_playlist_items_item ON playlist_items(item_id);

	CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT
	);
	`

	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return err
	}

	return d.runMigrations(ctx)
}

// runMigrations brings catalogs created by earlier releases up to date.
func (d *Database) runMigrations(ctx context.Context) error {
	migrations := []struct {
		table, column, ddl string
	}{
		{"media_items", "tag_locked", "ALTER TABLE media_items ADD COLUMN tag_locked INTEGER NOT NULL DEFAULT 0"},
		{"media_items", "media_type", "ALTER TABLE media_items ADD COLUMN media_type TEXT NOT NULL DEFAULT 'video'"},
		{"media_items", "is_associated_thumbnail", "ALTER TABLE media_items ADD COLUMN is_associated_thumbnail INTEGER NOT NULL DEFAULT 0"},
	}

	for _, m := range migrations {
		var exists bool
		err := d.db.QueryRowContext(ctx, `
			SELECT COUNT(*) > 0
			FROM pragma_table_info(?)
			WHERE name = ?
		`, m.table, m.column).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check for %s.%s column: %w", m.table, m.column, err)
		}
		if exists {
			continue
		}

		logging.Info("Migrating catalog: adding %s column to %s", m.column, m.table)
		if _, err := d.db.ExecContext(ctx, m.ddl); err != nil {
			return fmt.Errorf("failed to add %s column: %w", m.column, err)
		}
	}
	return nil
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// BeginBatch takes the catalog write lock and starts a transaction. The lock
// is held until EndBatch.
func (d *Database) BeginBatch(ctx context.Context) (*sql.Tx, error) {
	waitStart := time.Now()
	d.writeMu.Lock()
	metrics.DBWriteLockWait.Observe(time.Since(waitStart).Seconds())

	d.txStart = time.Now()
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		d.writeMu.Unlock()
		return nil, err
	}
	return tx, nil
}

// EndBatch commits the transaction, or rolls it back when err is non-nil,
// and releases the write lock.
func (d *Database) EndBatch(tx *sql.Tx, err error) error {
	defer d.writeMu.Unlock()

	duration := time.Since(d.txStart).Seconds()

	if err != nil {
		metrics.DBTransactionDuration.WithLabelValues("rollback").Observe(duration)
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback also failed: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		metrics.DBTransactionDuration.WithLabelValues("rollback").Observe(duration)
		return fmt.Errorf("commit failed: %w", err)
	}
	metrics.DBTransactionDuration.WithLabelValues("commit").Observe(duration)
	return nil
}

// withWrite runs fn inside a write transaction and records it under op.
func (d *Database) withWrite(ctx context.Context, op string, fn func(tx *sql.Tx) error) (err error) {
	start := time.Now()
	defer func() { recordQuery(op, start, err) }()

	tx, err := d.BeginBatch(ctx)
	if err != nil {
		return err
	}
	return d.EndBatch(tx, fn(tx))
}

// recordQuery records database query metrics
func recordQuery(operation string, start time.Time, err error) {
	status := "success"
	if err != nil && !errors.Is(err, ErrNotFound) {
		status = "error"
	}
	metrics.DBQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.DBQueryDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// UpdateDBMetrics updates database connection metrics
func (d *Database) UpdateDBMetrics() {
	metrics.DBConnectionsOpen.Set(float64(d.db.Stats().OpenConnections))
}

// diagnoseDatabasePermissions logs the state of the catalog files and repairs
// read-only WAL/SHM files left behind by a different container user.
func diagnoseDatabasePermissions(dbPath string) error {
	dir := filepath.Dir(dbPath)

	dirInfo, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("cannot stat database directory: %w", err)
	}
	logging.Debug("Catalog directory: %s (mode: %v)", dir, dirInfo.Mode())

	if dbInfo, err := os.Stat(dbPath); err == nil {
		logging.Debug("Catalog file exists: %s (mode: %v, size: %d bytes)", dbPath, dbInfo.Mode(), dbInfo.Size())
		if dbInfo.Mode().Perm()&0o200 == 0 {
			logging.Warn("Catalog file is read-only! Mode: %v", dbInfo.Mode())
		}
	}

	for _, suffix := range []string{"-wal", "-shm"} {
		path := dbPath + suffix
		info, err := os.Stat(path)
		if err != nil || info.Mode().Perm()&0o200 != 0 {
			continue
		}
		logging.Warn("%s is read-only! Mode: %v - this will cause write failures", path, info.Mode())
		if chmodErr := os.Chmod(path, 0o600); chmodErr != nil {
			logging.Error("Failed to fix %s permissions: %v", path, chmodErr)
		} else {
			logging.Info("Fixed %s permissions", path)
		}
	}

	return nil
}
