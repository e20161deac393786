package query

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"media-library/internal/database"
	"media-library/internal/mediatypes"
)

func setupTestDB(t *testing.T) *database.Database {
	db, _ := setupTestDBAt(t)
	return db
}

// setupTestDBAt also returns the database file, for seeding columns that
// have no write path of their own.
func setupTestDBAt(t *testing.T) (*database.Database, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := database.New(context.Background(), path)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, path
}

// setVideoTypes writes video_type directly, covering values such as
// VR180_TB that SetTag never assigns.
func setVideoTypes(t *testing.T, dbPath string, ids map[string]int64, types map[string]string) {
	t.Helper()
	raw, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		t.Fatal(err)
	}
	defer raw.Close()
	for name, vt := range types {
		if _, err := raw.Exec("UPDATE media_items SET video_type = ? WHERE id = ?", vt, ids[name]); err != nil {
			t.Fatal(err)
		}
	}
}

type seed struct {
	name     string
	show     string
	summary  string
	relDir   string
	duration int
	short    bool
	favorite bool
	later    bool
	image    bool
	assoc    bool
	aired    time.Time
}

// seedCatalog inserts items and returns their ids by name.
func seedCatalog(t *testing.T, db *database.Database, seeds []seed) map[string]int64 {
	t.Helper()
	ctx := context.Background()

	items := make([]*database.MediaItem, len(seeds))
	for i, s := range seeds {
		kind := mediatypes.KindVideo
		if s.image {
			kind = mediatypes.KindImage
		}
		items[i] = &database.MediaItem{
			Path:                  filepath.Join("/media", s.relDir, s.name),
			Filename:              s.name,
			RelativePath:          s.relDir,
			MediaType:             kind,
			IsAssociatedThumbnail: s.assoc,
			Title:                 s.name,
			ShowTitle:             s.show,
			Summary:               s.summary,
			Duration:              s.duration,
			IsShort:               s.short,
			Aired:                 s.aired,
		}
	}
	if _, err := db.UpsertItems(ctx, items); err != nil {
		t.Fatal(err)
	}

	ids := make(map[string]int64, len(seeds))
	for i, s := range seeds {
		ids[s.name] = items[i].ID
		if s.favorite {
			if _, err := db.ToggleFavorite(ctx, items[i].ID); err != nil {
				t.Fatal(err)
			}
		}
		if s.later {
			if _, err := db.ToggleWatchLater(ctx, items[i].ID); err != nil {
				t.Fatal(err)
			}
		}
	}
	return ids
}

func names(items []database.MediaItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Filename
	}
	return out
}

func sortedNames(items []database.MediaItem) []string {
	out := names(items)
	sort.Strings(out)
	return out
}

func TestFavoritesHideShorts(t *testing.T) {
	db := setupTestDB(t)
	seedCatalog(t, db, []seed{
		{name: "fav-long.mp4", favorite: true},
		{name: "fav-short.mp4", favorite: true, short: true},
		{name: "plain.mp4"},
	})

	res, err := NewEngine(db).Run(context.Background(), Request{View: ViewFavorites, FilterShorts: ToggleHide})
	if err != nil {
		t.Fatal(err)
	}
	if got := names(res.Items); len(got) != 1 || got[0] != "fav-long.mp4" {
		t.Errorf("items = %v, want [fav-long.mp4]", got)
	}
}

func TestShortsViewIgnoresOwnSolo(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	ids := seedCatalog(t, db, []seed{
		{name: "short-a.mp4", short: true},
		{name: "short-b.mp4", short: true},
		{name: "long.mp4"},
	})
	if err := db.SetTranscodedPath(ctx, ids["short-b.mp4"], "/data/optimized/b.mp4"); err != nil {
		t.Fatal(err)
	}

	res, err := NewEngine(db).Run(ctx, Request{View: ViewShorts, FilterShorts: ToggleSolo, FilterOptimized: ToggleHide})
	if err != nil {
		t.Fatal(err)
	}
	if got := names(res.Items); len(got) != 1 || got[0] != "short-a.mp4" {
		t.Errorf("items = %v, want [short-a.mp4]", got)
	}
}

func TestSmartPlaylistAuthorAndDuration(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	seedCatalog(t, db, []seed{
		{name: "a-long.mp4", show: "A", duration: 900},
		{name: "b-long.mp4", show: "B", duration: 601},
		{name: "a-short.mp4", show: "A", duration: 300},
		{name: "c-long.mp4", show: "C", duration: 900},
	})

	p, err := db.CreateSmartPlaylist(ctx, "Long A/B")
	if err != nil {
		t.Fatal(err)
	}
	if err := db.UpdateSmartPlaylistFilters(ctx, p.ID, []byte(`[{"type":"author","value":["A","B"]},{"type":"duration","operator":"gt","value":600}]`)); err != nil {
		t.Fatal(err)
	}

	engine := NewEngine(db)
	res, err := engine.Run(ctx, Request{View: ViewSmartPlaylist, ViewID: fmt.Sprint(p.ID)})
	if err != nil {
		t.Fatal(err)
	}
	if got := sortedNames(res.Items); len(got) != 2 || got[0] != "a-long.mp4" || got[1] != "b-long.mp4" {
		t.Errorf("stored rules: items = %v", got)
	}

	// Rules on the request win over the stored ones.
	res, _ = engine.Run(ctx, Request{View: ViewSmartPlaylist, ViewID: fmt.Sprint(p.ID), Rules: RuleSet{AuthorRule{Authors: []string{"C"}}}})
	if got := names(res.Items); len(got) != 1 || got[0] != "c-long.mp4" {
		t.Errorf("request rules: items = %v", got)
	}

	// No rules means no extra filtering.
	res, _ = engine.Run(ctx, Request{View: ViewSmartPlaylist, ViewID: fmt.Sprint(p.ID), Rules: RuleSet{}})
	if res.TotalItems != 4 {
		t.Errorf("empty rules: total = %d, want 4", res.TotalItems)
	}

	if _, err := engine.Run(ctx, Request{View: ViewSmartPlaylist, ViewID: "999"}); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("unknown smart playlist error = %v", err)
	}
}

func TestStandardPlaylistView(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	ids := seedCatalog(t, db, []seed{{name: "a.mp4"}, {name: "b.mp4"}})

	empty, err := db.CreateStandardPlaylist(ctx, "Empty", 0)
	if err != nil {
		t.Fatal(err)
	}
	one, err := db.CreateStandardPlaylist(ctx, "One", ids["b.mp4"])
	if err != nil {
		t.Fatal(err)
	}

	engine := NewEngine(db)
	res, err := engine.Run(ctx, Request{View: ViewStandardPlaylist, ViewID: fmt.Sprint(empty)})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Items) != 0 || res.TotalItems != 0 {
		t.Errorf("empty playlist returned %v", names(res.Items))
	}

	res, _ = engine.Run(ctx, Request{View: ViewStandardPlaylist, ViewID: fmt.Sprint(one), Page: 5})
	if got := names(res.Items); len(got) != 1 || got[0] != "b.mp4" {
		t.Errorf("items = %v", got)
	}
	if res.TotalPages != 1 || res.CurrentPage != 1 || res.HasNextPage {
		t.Errorf("flat view paging = %+v", res)
	}
}

func TestPagination(t *testing.T) {
	db := setupTestDB(t)
	var seeds []seed
	for i := 0; i < 65; i++ {
		seeds = append(seeds, seed{name: fmt.Sprintf("v%02d.mp4", i), duration: i})
	}
	seedCatalog(t, db, seeds)

	engine := NewEngine(db)
	tests := []struct {
		page     int
		wantLen  int
		wantNext bool
		wantHead string
	}{
		{1, 30, true, "v64.mp4"},
		{2, 30, true, "v34.mp4"},
		{3, 5, false, "v04.mp4"},
		{4, 0, false, ""},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("page %d", tt.page), func(t *testing.T) {
			res, err := engine.Run(context.Background(), Request{Sort: SortDurationLongest, Page: tt.page})
			if err != nil {
				t.Fatal(err)
			}
			if len(res.Items) != tt.wantLen || res.HasNextPage != tt.wantNext {
				t.Errorf("len = %d next = %v", len(res.Items), res.HasNextPage)
			}
			if res.TotalItems != 65 || res.TotalPages != 3 || res.CurrentPage != tt.page {
				t.Errorf("paging = %+v", res)
			}
			if tt.wantHead != "" && res.Items[0].Filename != tt.wantHead {
				t.Errorf("first item = %s, want %s", res.Items[0].Filename, tt.wantHead)
			}
		})
	}
}

func TestAiredSortNulls(t *testing.T) {
	db := setupTestDB(t)
	seedCatalog(t, db, []seed{
		{name: "undated.mp4"},
		{name: "old.mp4", aired: time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)},
		{name: "new.mp4", aired: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)},
	})

	engine := NewEngine(db)
	res, _ := engine.Run(context.Background(), Request{Sort: SortAiredNewest})
	if got := names(res.Items); fmt.Sprint(got) != "[new.mp4 old.mp4 undated.mp4]" {
		t.Errorf("newest first = %v", got)
	}
	res, _ = engine.Run(context.Background(), Request{Sort: SortAiredOldest})
	if got := names(res.Items); fmt.Sprint(got) != "[undated.mp4 old.mp4 new.mp4]" {
		t.Errorf("oldest first = %v", got)
	}
}

func TestImagesAndFolders(t *testing.T) {
	db := setupTestDB(t)
	seedCatalog(t, db, []seed{
		{name: "e1.mp4", relDir: "Shows/Alpha"},
		{name: "e1.jpg", relDir: "Shows/Alpha", image: true, assoc: true},
		{name: "art.png", relDir: "Shows/Alpha/Extras", image: true},
		{name: "x.mp4", relDir: "Shows/Alphabet"},
	})

	engine := NewEngine(db)
	tests := []struct {
		name string
		req  Request
		want string
	}{
		{"videos only by default", Request{View: ViewFolder, ViewID: "Shows/Alpha"}, "[e1.mp4]"},
		{"images without thumbnails", Request{View: ViewFolder, ViewID: "Shows/Alpha", ShowImages: true}, "[art.png e1.mp4]"},
		{"images with thumbnails", Request{View: ViewFolder, ViewID: "Shows/Alpha", ShowImages: true, ShowThumbnails: true}, "[art.png e1.jpg e1.mp4]"},
		{"prefix matches nested folders", Request{View: ViewFolder, ViewID: "Shows"}, "[e1.mp4 x.mp4]"},
		{"search", Request{Search: "alphabet"}, "[]"},
		{"search by title", Request{Search: "X."}, "[x.mp4]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := engine.Run(context.Background(), tt.req)
			if err != nil {
				t.Fatal(err)
			}
			if got := fmt.Sprint(sortedNames(res.Items)); got != tt.want {
				t.Errorf("items = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestHistoryView(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	ids := seedCatalog(t, db, []seed{{name: "a.mp4"}, {name: "b.mp4"}, {name: "c.mp4"}})

	now := time.Now()
	db.RecordProgress(ctx, ids["a.mp4"], 100, now.Add(-time.Hour))
	db.RecordProgress(ctx, ids["b.mp4"], 50, now)
	db.RecordProgress(ctx, ids["c.mp4"], 3, now)

	res, err := NewEngine(db).Run(ctx, Request{View: ViewHistory, Sort: SortAiredOldest})
	if err != nil {
		t.Fatal(err)
	}
	if got := fmt.Sprint(names(res.Items)); got != "[b.mp4 a.mp4]" {
		t.Errorf("history = %s", got)
	}
}

func TestSearchFields(t *testing.T) {
	db := setupTestDB(t)
	seedCatalog(t, db, []seed{
		{name: "by-title-Volcano.mp4", show: "Geo"},
		{name: "by-summary.mp4", show: "Geo", summary: "A trip up an active VOLCANO."},
		{name: "by-show.mp4", show: "Volcano Watch"},
		{name: "unrelated.mp4", show: "Cooking", summary: "Bread."},
	})

	engine := NewEngine(db)
	tests := []struct {
		search string
		want   string
	}{
		{"volcano", "[by-show.mp4 by-summary.mp4 by-title-Volcano.mp4]"},
		{"ACTIVE", "[by-summary.mp4]"},
		{"watch", "[by-show.mp4]"},
		{"cook", "[unrelated.mp4]"},
		{"100%", "[]"},
	}

	for _, tt := range tests {
		t.Run(tt.search, func(t *testing.T) {
			res, err := engine.Run(context.Background(), Request{Search: tt.search})
			if err != nil {
				t.Fatal(err)
			}
			if got := fmt.Sprint(sortedNames(res.Items)); got != tt.want {
				t.Errorf("search %q = %s, want %s", tt.search, got, tt.want)
			}
		})
	}
}

func TestViewsAndVRToggle(t *testing.T) {
	ctx := context.Background()
	db, path := setupTestDBAt(t)
	ids := seedCatalog(t, db, []seed{
		{name: "sbs.mp4", show: "Alpha"},
		{name: "tb.mp4", show: "Beta"},
		{name: "sphere.mp4", show: "Alpha"},
		{name: "flat.mp4", show: "Alpha", later: true},
		{name: "short.mp4", show: "Beta", short: true, later: true},
	})
	setVideoTypes(t, path, ids, map[string]string{
		"sbs.mp4":    database.VideoTypeVR180SBS,
		"tb.mp4":     database.VideoTypeVR180TB,
		"sphere.mp4": database.VideoTypeVR360,
	})

	engine := NewEngine(db)
	tests := []struct {
		name string
		req  Request
		want string
	}{
		{"VR180 includes both layouts", Request{View: ViewVR180}, "[sbs.mp4 tb.mp4]"},
		{"VR360", Request{View: ViewVR360}, "[sphere.mp4]"},
		{"VR toggle solo", Request{FilterVR: ToggleSolo}, "[sbs.mp4 sphere.mp4 tb.mp4]"},
		{"VR toggle hide", Request{FilterVR: ToggleHide}, "[flat.mp4 short.mp4]"},
		{"VR toggle hide ignored in a VR view", Request{View: ViewVR180, FilterVR: ToggleHide}, "[sbs.mp4 tb.mp4]"},
		{"solo shorts or VR", Request{FilterVR: ToggleSolo, FilterShorts: ToggleSolo}, "[sbs.mp4 short.mp4 sphere.mp4 tb.mp4]"},
		{"solo suppresses hide", Request{FilterVR: ToggleSolo, FilterShorts: ToggleHide}, "[sbs.mp4 sphere.mp4 tb.mp4]"},
		{"watch later", Request{View: ViewWatchLater}, "[flat.mp4 short.mp4]"},
		{"watch later hiding shorts", Request{View: ViewWatchLater, FilterShorts: ToggleHide}, "[flat.mp4]"},
		{"author", Request{View: ViewAuthor, ViewAuthor: "Alpha"}, "[flat.mp4 sbs.mp4 sphere.mp4]"},
		{"author with VR hidden", Request{View: ViewAuthor, ViewAuthor: "Alpha", FilterVR: ToggleHide}, "[flat.mp4]"},
		{"unknown author", Request{View: ViewAuthor, ViewAuthor: "Gamma"}, "[]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := engine.Run(ctx, tt.req)
			if err != nil {
				t.Fatal(err)
			}
			if got := fmt.Sprint(sortedNames(res.Items)); got != tt.want {
				t.Errorf("items = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSingleItemView(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	ids := seedCatalog(t, db, []seed{{name: "a.mp4"}, {name: "b.mp4", short: true}, {name: "c.mp4"}})

	engine := NewEngine(db)
	tests := []struct {
		name string
		req  Request
		want string
	}{
		{"matching id", Request{View: ViewVideo, ViewID: fmt.Sprint(ids["b.mp4"]), Page: 4}, "[b.mp4]"},
		{"unknown id", Request{View: ViewVideo, ViewID: "9999"}, "[]"},
		{"non-numeric id", Request{View: ViewVideo, ViewID: "abc"}, "[]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := engine.Run(ctx, tt.req)
			if err != nil {
				t.Fatal(err)
			}
			if got := fmt.Sprint(names(res.Items)); got != tt.want {
				t.Errorf("items = %s, want %s", got, tt.want)
			}
			if res.TotalPages != 1 || res.CurrentPage != 1 || res.HasNextPage {
				t.Errorf("flat view paging = %+v", res)
			}
		})
	}
}
