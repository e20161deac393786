package database

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"media-library/internal/mediatypes"
)

func setupTestDB(t testing.TB) *Database {
	t.Helper()

	db, err := New(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testItem(path string) *MediaItem {
	mod := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return &MediaItem{
		Path:       path,
		Filename:   filepath.Base(path),
		MediaType:  mediatypes.KindVideo,
		Title:      filepath.Base(path),
		ShowTitle:  "Show",
		Aired:      mod,
		Uploaded:   mod,
		FileSize:   1024,
		FileFormat: "mp4",
		Width:      1920,
		Height:     1080,
		Dimensions: "1920x1080",
		Duration:   60,
		VideoCodec: "H264",
	}
}

func mustUpsert(t *testing.T, db *Database, items ...*MediaItem) UpsertResult {
	t.Helper()
	res, err := db.UpsertItems(context.Background(), items)
	if err != nil {
		t.Fatalf("UpsertItems() error = %v", err)
	}
	return res
}

func TestNewIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	for i := 0; i < 2; i++ {
		db, err := New(context.Background(), path)
		if err != nil {
			t.Fatalf("New() run %d error = %v", i, err)
		}
		db.Close()
	}
}

func TestUpsertItemsCounts(t *testing.T) {
	db := setupTestDB(t)

	a, b := testItem("/media/a.mp4"), testItem("/media/b.mp4")
	if res := mustUpsert(t, db, a, b); res.Added != 2 {
		t.Errorf("first upsert = %+v, want 2 added", res)
	}
	if a.ID == 0 || b.ID == 0 {
		t.Error("expected ids to be assigned on insert")
	}

	if res := mustUpsert(t, db, testItem("/media/a.mp4"), testItem("/media/b.mp4")); res.Unchanged != 2 || res.Updated != 0 {
		t.Errorf("unchanged rescan = %+v, want 2 unchanged", res)
	}

	changed := testItem("/media/a.mp4")
	changed.Title = "Renamed"
	if res := mustUpsert(t, db, changed); res.Updated != 1 {
		t.Errorf("changed rescan = %+v, want 1 updated", res)
	}

	n, _ := db.CountItems(context.Background())
	if n != 2 {
		t.Errorf("CountItems() = %d, want 2", n)
	}
}

func TestUpsertPreservesUserState(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	item := testItem("/media/clip.mp4")
	mustUpsert(t, db, item)

	if _, err := db.ToggleFavorite(ctx, item.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := db.ToggleWatchLater(ctx, item.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := db.RecordProgress(ctx, item.ID, 42, time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := db.SetTag(ctx, item.ID, TagShort); err != nil {
		t.Fatal(err)
	}

	rescan := testItem("/media/clip.mp4")
	rescan.IsShort = false
	rescan.Summary = "new plot"
	mustUpsert(t, db, rescan)

	got, err := db.GetItem(ctx, item.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.IsFavorite || !got.IsWatchLater {
		t.Error("rescan clobbered favorite or watch-later")
	}
	if got.WatchedDuration != 42 || got.LastWatched.IsZero() {
		t.Errorf("rescan clobbered progress: %d %v", got.WatchedDuration, got.LastWatched)
	}
	if !got.IsShort || !got.TagLocked {
		t.Error("rescan overwrote a manually assigned tag")
	}
	if got.Summary != "new plot" {
		t.Errorf("scanned field not refreshed: %q", got.Summary)
	}
}

func TestUpsertKeepsRecordedThumbnail(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	item := testItem("/media/clip.mp4")
	mustUpsert(t, db, item)
	if err := db.SetThumbnailPaths(ctx, map[int64]string{item.ID: "/data/thumbnails/x.jpg"}); err != nil {
		t.Fatal(err)
	}

	if res := mustUpsert(t, db, testItem("/media/clip.mp4")); res.Unchanged != 1 {
		t.Errorf("rescan without a sidecar thumbnail = %+v, want unchanged", res)
	}

	got, _ := db.GetItem(ctx, item.ID)
	if got.ThumbnailPath != "/data/thumbnails/x.jpg" {
		t.Errorf("ThumbnailPath = %q", got.ThumbnailPath)
	}
}

func TestGetItemNotFound(t *testing.T) {
	db := setupTestDB(t)
	if _, err := db.GetItem(context.Background(), 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetItem() error = %v, want ErrNotFound", err)
	}
	if _, err := db.ToggleFavorite(context.Background(), 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("ToggleFavorite() error = %v, want ErrNotFound", err)
	}
}

func TestPruneItemsRemovesMemberships(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	keep, gone := testItem("/media/keep.mp4"), testItem("/media/gone.mp4")
	mustUpsert(t, db, keep, gone)

	pl, err := db.CreateStandardPlaylist(ctx, "Mix", gone.ID)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.TogglePlaylistItem(ctx, pl, keep.ID); err != nil {
		t.Fatal(err)
	}

	n, err := db.PruneItems(ctx, []int64{gone.ID})
	if err != nil || n != 1 {
		t.Fatalf("PruneItems() = %d, %v", n, err)
	}

	ids, _ := db.PlaylistItemIDs(ctx, pl)
	if len(ids) != 1 || ids[0] != keep.ID {
		t.Errorf("playlist members after prune = %v, want [%d]", ids, keep.ID)
	}

	entries, _ := db.CatalogEntries(ctx)
	if _, ok := entries["/media/gone.mp4"]; ok {
		t.Error("pruned row still cataloged")
	}
}

func TestRecordProgressThreshold(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	item := testItem("/media/a.mp4")
	mustUpsert(t, db, item)

	got, err := db.RecordProgress(ctx, item.ID, 3, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if got.WatchedDuration != 0 || !got.LastWatched.IsZero() {
		t.Error("progress below the threshold must be ignored")
	}

	now := time.Unix(1700000000, 0)
	got, _ = db.RecordProgress(ctx, item.ID, 4, now)
	if got.WatchedDuration != 4 || !got.LastWatched.Equal(now) {
		t.Errorf("progress = %d at %v", got.WatchedDuration, got.LastWatched)
	}
}

func TestSetTag(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	item := testItem("/media/a.mp4")
	mustUpsert(t, db, item)

	tests := []struct {
		tag       string
		wantShort bool
		wantType  string
	}{
		{TagShort, true, ""},
		{TagVR180, false, VideoTypeVR180SBS},
		{TagVR360, false, VideoTypeVR360},
		{TagNone, false, ""},
	}

	for _, tt := range tests {
		if err := db.SetTag(ctx, item.ID, tt.tag); err != nil {
			t.Fatalf("SetTag(%q) error = %v", tt.tag, err)
		}
		got, _ := db.GetItem(ctx, item.ID)
		if got.IsShort != tt.wantShort || got.VideoType != tt.wantType {
			t.Errorf("SetTag(%q): short=%v type=%q", tt.tag, got.IsShort, got.VideoType)
		}
	}

	if err := db.SetTag(ctx, item.ID, "vr720"); !errors.Is(err, ErrInvalidTag) {
		t.Errorf("SetTag(invalid) error = %v", err)
	}
}

func TestStandardPlaylists(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	item := testItem("/media/a.mp4")
	mustUpsert(t, db, item)

	id, err := db.CreateStandardPlaylist(ctx, " Road Trip ", 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.CreateStandardPlaylist(ctx, "Road Trip", 0); !errors.Is(err, ErrDuplicateName) {
		t.Errorf("duplicate name error = %v", err)
	}

	member, err := db.TogglePlaylistItem(ctx, id, item.ID)
	if err != nil || !member {
		t.Fatalf("toggle on = %v, %v", member, err)
	}

	lists, _ := db.ListStandardPlaylists(ctx, item.ID)
	if len(lists) != 1 || !lists[0].IsInPlaylist || lists[0].Name != "Road Trip" {
		t.Errorf("ListStandardPlaylists() = %+v", lists)
	}

	member, _ = db.TogglePlaylistItem(ctx, id, item.ID)
	if member {
		t.Error("second toggle should remove the item")
	}

	if _, err := db.TogglePlaylistItem(ctx, id, 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("toggle unknown item error = %v", err)
	}

	if err := db.DeleteStandardPlaylist(ctx, id); err != nil {
		t.Fatal(err)
	}
	if err := db.DeleteStandardPlaylist(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete error = %v", err)
	}
}

func TestSmartPlaylists(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	p, err := db.CreateSmartPlaylist(ctx, "Long ones")
	if err != nil {
		t.Fatal(err)
	}

	rules := json.RawMessage(`[{"type":"duration","operator":"gt","value":600}]`)
	if err := db.UpdateSmartPlaylistFilters(ctx, p.ID, rules); err != nil {
		t.Fatal(err)
	}
	if err := db.RenameSmartPlaylist(ctx, p.ID, "Epics"); err != nil {
		t.Fatal(err)
	}

	got, err := db.GetSmartPlaylist(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Epics" || string(got.Filters) != string(rules) {
		t.Errorf("GetSmartPlaylist() = %+v", got)
	}

	if err := db.DeleteSmartPlaylist(ctx, p.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := db.GetSmartPlaylist(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("after delete error = %v", err)
	}
}

func TestLibraryMetadata(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	root := testItem("/media/root.mp4")
	root.ShowTitle = ""
	a := testItem("/media/Shows/Alpha/e1.mp4")
	a.RelativePath, a.ShowTitle = "Shows/Alpha", "Alpha"
	b := testItem("/media/Shows/Beta/e1.mp4")
	b.RelativePath, b.ShowTitle = "Shows/Beta", "Beta"
	c := testItem("/media/Shows/Beta/e2.mp4")
	c.RelativePath, c.ShowTitle = "Shows/Beta", "Beta"
	mustUpsert(t, db, root, a, b, c)

	md, err := db.LibraryMetadata(ctx)
	if err != nil {
		t.Fatal(err)
	}

	shows, ok := md.FolderTree["Shows"]
	if !ok || len(shows) != 2 {
		t.Errorf("FolderTree = %v", md.FolderTree)
	}
	if md.AuthorCounts["Beta"] != 2 || md.AuthorCounts["Unknown Show"] != 1 {
		t.Errorf("AuthorCounts = %v", md.AuthorCounts)
	}
	if md.SmartPlaylists == nil || md.StandardPlaylists == nil {
		t.Error("playlist lists should be empty, not nil")
	}
}

func TestListSelection(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	for i, d := range []int{30, 10, 20} {
		it := testItem(filepath.Join("/media", string(rune('a'+i))+".mp4"))
		it.Duration = d
		mustUpsert(t, db, it)
	}

	sel := Selection{Where: "duration >= ?", Args: []any{15}, OrderBy: "duration DESC"}
	n, err := db.CountSelection(ctx, sel)
	if err != nil || n != 2 {
		t.Fatalf("CountSelection() = %d, %v", n, err)
	}

	items, err := db.ListSelection(ctx, sel, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].Duration != 20 {
		t.Errorf("second page = %+v", items)
	}

	all, _ := db.ListSelection(ctx, Selection{OrderBy: "duration ASC"}, 0, 0)
	if len(all) != 3 || all[0].Duration != 10 {
		t.Errorf("unlimited list = %d items", len(all))
	}
}

func TestThumbnailCandidatesSkipImages(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	img := testItem("/media/cover.jpg")
	img.MediaType = mediatypes.KindImage
	mustUpsert(t, db, testItem("/media/a.mp4"), img)

	cands, err := db.ThumbnailCandidates(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(cands) != 1 || cands[0].Path != "/media/a.mp4" {
		t.Errorf("ThumbnailCandidates() = %+v", cands)
	}
}

func TestCatalogStatsAndLastRun(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	item := testItem("/media/a.mp4")
	mustUpsert(t, db, item)
	db.ToggleFavorite(ctx, item.ID)
	db.CreateSmartPlaylist(ctx, "x")

	s, err := db.CatalogStats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if s.Videos != 1 || s.Favorites != 1 || s.SmartPlaylists != 1 {
		t.Errorf("CatalogStats() = %+v", s)
	}

	if last, err := db.LastRun(ctx, "scan"); err != nil || !last.IsZero() {
		t.Errorf("LastRun() before any run = %v, %v", last, err)
	}
	when := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := db.SetLastRun(ctx, "scan", when); err != nil {
		t.Fatal(err)
	}
	if last, _ := db.LastRun(ctx, "scan"); !last.Equal(when) {
		t.Errorf("LastRun() = %v, want %v", last, when)
	}
}

func newMockDB(t *testing.T) (*Database, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })
	return newWithDB(sqlDB, "mock.db"), mock
}

func expectRow(mock sqlmock.Sqlmock, insertErr error) {
	mock.ExpectExec("SAVEPOINT item").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM media_items WHERE video_path = ?")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	if insertErr != nil {
		mock.ExpectExec("INSERT INTO media_items").WillReturnError(insertErr)
		mock.ExpectExec("ROLLBACK TO item").WillReturnResult(sqlmock.NewResult(0, 0))
	} else {
		mock.ExpectExec("INSERT INTO media_items").WillReturnResult(sqlmock.NewResult(7, 1))
	}
	mock.ExpectExec("RELEASE item").WillReturnResult(sqlmock.NewResult(0, 0))
}

func TestUpsertItemsRowFailureRollsBackRowOnly(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	expectRow(mock, errors.New("constraint failed"))
	expectRow(mock, nil)
	mock.ExpectCommit()

	res, err := db.UpsertItems(context.Background(), []*MediaItem{testItem("/media/bad.mp4"), testItem("/media/good.mp4")})
	if err != nil {
		t.Fatalf("UpsertItems() error = %v", err)
	}
	if res.Failed != 1 || res.Added != 1 {
		t.Errorf("result = %+v, want 1 failed and 1 added", res)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestUpsertItemsCommitFailureReleasesLock(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	expectRow(mock, nil)
	mock.ExpectCommit().WillReturnError(errors.New("database is locked"))

	res, err := db.UpsertItems(context.Background(), []*MediaItem{testItem("/media/a.mp4")})
	if err == nil {
		t.Fatal("expected commit error")
	}
	if res.Failed != 1 {
		t.Errorf("result = %+v, want whole batch failed", res)
	}

	if !db.writeMu.TryLock() {
		t.Fatal("write lock still held after failed commit")
	}
	db.writeMu.Unlock()

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
