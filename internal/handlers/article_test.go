package handlers

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"media-library/internal/database"
	"media-library/internal/mediatypes"
)

func touch(t *testing.T, path string, mtime time.Time) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatal(err)
	}
}

func TestNewArticleImageURL(t *testing.T) {
	dir := t.TempDir()
	auto := filepath.Join(dir, "auto.jpg")
	custom := filepath.Join(dir, "custom.jpg")
	touch(t, auto, time.Unix(1700000000, 0))
	touch(t, custom, time.Unix(1700000500, 0))

	tests := []struct {
		name string
		item database.MediaItem
		want string
	}{
		{
			name: "image streams itself",
			item: database.MediaItem{ID: 3, MediaType: mediatypes.KindImage, ThumbnailPath: auto},
			want: "/api/video/3",
		},
		{
			name: "custom thumbnail wins",
			item: database.MediaItem{ID: 4, MediaType: mediatypes.KindVideo, ThumbnailPath: auto, CustomThumbnailPath: custom},
			want: "/api/thumbnail/4?v=1700000500",
		},
		{
			name: "generated thumbnail",
			item: database.MediaItem{ID: 5, MediaType: mediatypes.KindVideo, ThumbnailPath: auto},
			want: "/api/thumbnail/5?v=1700000000",
		},
		{
			name: "custom thumbnail missing on disk",
			item: database.MediaItem{ID: 6, MediaType: mediatypes.KindVideo, ThumbnailPath: auto, CustomThumbnailPath: filepath.Join(dir, "gone.jpg")},
			want: "/api/thumbnail/6?v=1700000000",
		},
		{
			name: "no thumbnail",
			item: database.MediaItem{ID: 7, MediaType: mediatypes.KindVideo, ThumbnailPath: filepath.Join(dir, "gone.jpg")},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewArticle(&tt.item)
			got := ""
			if a.ImageURL != nil {
				got = *a.ImageURL
			}
			if got != tt.want {
				t.Errorf("image_url = %q, want %q", got, tt.want)
			}
			if a.HasThumbnail != (tt.want != "") {
				t.Errorf("has_thumbnail = %v for image_url %q", a.HasThumbnail, got)
			}
		})
	}
}

func TestNewArticleDates(t *testing.T) {
	aired := time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC)
	uploaded := time.Date(2023, 5, 6, 7, 8, 9, 0, time.UTC)

	a := NewArticle(&database.MediaItem{ID: 1, Aired: aired, Uploaded: uploaded})
	if a.Published != "2021-03-04T00:00:00" {
		t.Errorf("published = %q, want aired date", a.Published)
	}
	if a.AiredDate == nil || *a.AiredDate != "2021-03-04T00:00:00" {
		t.Errorf("aired_date = %v", a.AiredDate)
	}
	if a.Uploaded != "2023-05-06T07:08:09" {
		t.Errorf("uploaded = %q", a.Uploaded)
	}

	b := NewArticle(&database.MediaItem{ID: 2, Uploaded: uploaded})
	if b.Published != b.Uploaded || b.AiredDate != nil {
		t.Errorf("Expected published to fall back to uploaded, got %q (aired %v)", b.Published, b.AiredDate)
	}

	c := NewArticle(&database.MediaItem{ID: 3})
	if _, err := time.Parse(isoLayout, c.Published); err != nil {
		t.Errorf("Expected a timestamp for items without dates, got %q", c.Published)
	}
}

func TestNewArticleDefaultsAndLinks(t *testing.T) {
	a := NewArticle(&database.MediaItem{
		ID:             9,
		Filename:       "ep.mkv",
		FileFormat:     "mkv",
		UniqueID:       "dQw4w9WgXcQ",
		SubtitlePath:   "/media/ep.en.srt",
		ShowPosterPath: "/media/poster.jpg",
		TranscodedPath: "/data/transcodes/x_opt.mp4",
		VideoType:      database.VideoTypeVR360,
	})

	checks := []struct {
		name string
		got  string
		want string
	}{
		{"author", a.Author, "Unknown Show"},
		{"feed_title", a.FeedTitle, "Local Media"},
		{"relative_path", a.RelativePath, "."},
		{"file_format", a.FileFormat, "MKV"},
		{"subtitle_label", a.SubtitleLabel, "Subtitles"},
		{"subtitle_lang", a.SubtitleLang, "en"},
		{"video_url", a.VideoURL, "/api/video/9"},
		{"subtitle_url", deref(a.SubtitleURL), "/api/subtitle/9"},
		{"show_poster_url", deref(a.ShowPosterURL), "/api/show_poster/9"},
		{"transcode_url", deref(a.TranscodeURL), "/api/video/9/stream_transcoded"},
		{"transcode_download_url", deref(a.TranscodeDownloadURL), "/api/video/9/download_transcoded"},
		{"youtube_id", deref(a.YoutubeID), "dQw4w9WgXcQ"},
		{"video_type", deref(a.VideoType), database.VideoTypeVR360},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %q, want %q", c.name, c.got, c.want)
		}
	}
	if !a.HasSubtitle || !a.HasTranscode {
		t.Error("Expected subtitle and transcode flags")
	}
}

func TestArticleNullFields(t *testing.T) {
	b, err := json.Marshal(NewArticle(&database.MediaItem{ID: 1}))
	if err != nil {
		t.Fatal(err)
	}
	for _, field := range []string{"image_url", "subtitle_url", "youtube_id", "last_watched", "video_type", "transcode_url"} {
		if !strings.Contains(string(b), fmt.Sprintf("%q:null", field)) {
			t.Errorf("Expected %s to encode as null in %s", field, b)
		}
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
