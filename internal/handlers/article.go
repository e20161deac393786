package handlers

import (
	"fmt"
	"os"
	"strings"
	"time"

	"media-library/internal/database"
	"media-library/internal/mediatypes"
	"media-library/internal/metadata"
)

const isoLayout = "2006-01-02T15:04:05"

// Article is the client-facing shape of a catalog item. Field names follow
// the feed-reader vocabulary the browser UI was built around.
type Article struct {
	ID                    int64   `json:"id"`
	Title                 string  `json:"title"`
	Summary               string  `json:"summary"`
	Author                string  `json:"author"`
	Published             string  `json:"published"`
	AiredDate             *string `json:"aired_date"`
	Uploaded              string  `json:"uploaded"`
	IsFavorite            bool    `json:"is_favorite"`
	IsReadLater           bool    `json:"is_read_later"`
	VideoURL              string  `json:"video_url"`
	ImageURL              *string `json:"image_url"`
	ShowPosterURL         *string `json:"show_poster_url"`
	SubtitleURL           *string `json:"subtitle_url"`
	SubtitleLabel         string  `json:"subtitle_label"`
	SubtitleLang          string  `json:"subtitle_lang"`
	YoutubeID             *string `json:"youtube_id"`
	FeedTitle             string  `json:"feed_title"`
	FeedID                int64   `json:"feed_id"`
	Link                  string  `json:"link"`
	RelativePath          string  `json:"relative_path"`
	LastWatched           *string `json:"last_watched"`
	WatchedDuration       int     `json:"watched_duration"`
	Filename              string  `json:"filename"`
	FileSize              int64   `json:"file_size"`
	FileFormat            string  `json:"file_format"`
	HasNFO                bool    `json:"has_nfo"`
	HasThumbnail          bool    `json:"has_thumbnail"`
	HasSubtitle           bool    `json:"has_subtitle"`
	HasCustomThumb        bool    `json:"has_custom_thumb"`
	IsShort               bool    `json:"is_short"`
	Dimensions            string  `json:"dimensions"`
	Duration              int     `json:"duration"`
	VideoCodec            string  `json:"video_codec"`
	HasTranscode          bool    `json:"has_transcode"`
	TranscodeURL          *string `json:"transcode_url"`
	TranscodeDownloadURL  *string `json:"transcode_download_url"`
	VideoType             *string `json:"video_type"`
	MediaType             string  `json:"media_type"`
	IsAssociatedThumbnail bool    `json:"is_associated_thumbnail"`
}

func ptr(s string) *string { return &s }

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func isoTime(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	return ptr(t.Format(isoLayout))
}

// existingMtime returns the file's modification time in unix seconds and
// whether it exists.
func existingMtime(path string) (int64, bool) {
	if path == "" {
		return 0, false
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0, false
	}
	return info.ModTime().Unix(), true
}

// NewArticle converts a catalog item. Thumbnail presence is checked on disk,
// so a deleted cache file shows up as missing immediately.
func NewArticle(it *database.MediaItem) Article {
	base := fmt.Sprintf("/api/video/%d", it.ID)

	var imageURL *string
	customMtime, hasCustom := existingMtime(it.CustomThumbnailPath)
	switch {
	case it.MediaType == mediatypes.KindImage:
		imageURL = ptr(base)
	case hasCustom:
		imageURL = ptr(fmt.Sprintf("/api/thumbnail/%d?v=%d", it.ID, customMtime))
	default:
		if mtime, ok := existingMtime(it.ThumbnailPath); ok {
			imageURL = ptr(fmt.Sprintf("/api/thumbnail/%d?v=%d", it.ID, mtime))
		}
	}

	uploaded := it.Uploaded
	if uploaded.IsZero() {
		uploaded = time.Now()
	}
	published := uploaded
	if !it.Aired.IsZero() {
		published = it.Aired
	}

	a := Article{
		ID:                    it.ID,
		Title:                 it.Title,
		Summary:               it.Summary,
		Author:                orDefault(it.ShowTitle, metadata.UnknownShow),
		Published:             published.Format(isoLayout),
		AiredDate:             isoTime(it.Aired),
		Uploaded:              uploaded.Format(isoLayout),
		IsFavorite:            it.IsFavorite,
		IsReadLater:           it.IsWatchLater,
		VideoURL:              base,
		ImageURL:              imageURL,
		SubtitleLabel:         orDefault(it.SubtitleLabel, "Subtitles"),
		SubtitleLang:          orDefault(it.SubtitleLang, "en"),
		YoutubeID:             optional(it.UniqueID),
		FeedTitle:             orDefault(it.ShowTitle, "Local Media"),
		FeedID:                it.ID,
		Link:                  base,
		RelativePath:          orDefault(it.RelativePath, "."),
		LastWatched:           isoTime(it.LastWatched),
		WatchedDuration:       it.WatchedDuration,
		Filename:              it.Filename,
		FileSize:              it.FileSize,
		FileFormat:            orDefault(strings.ToUpper(it.FileFormat), "Unknown"),
		HasNFO:                it.HasNFO,
		HasThumbnail:          imageURL != nil,
		HasSubtitle:           it.SubtitlePath != "",
		HasCustomThumb:        hasCustom,
		IsShort:               it.IsShort,
		Dimensions:            it.Dimensions,
		Duration:              it.Duration,
		VideoCodec:            it.VideoCodec,
		HasTranscode:          it.TranscodedPath != "",
		VideoType:             optional(it.VideoType),
		MediaType:             string(it.MediaType),
		IsAssociatedThumbnail: it.IsAssociatedThumbnail,
	}
	if it.ShowPosterPath != "" {
		a.ShowPosterURL = ptr(fmt.Sprintf("/api/show_poster/%d", it.ID))
	}
	if it.SubtitlePath != "" {
		a.SubtitleURL = ptr(fmt.Sprintf("/api/subtitle/%d", it.ID))
	}
	if it.TranscodedPath != "" {
		a.TranscodeURL = ptr(base + "/stream_transcoded")
		a.TranscodeDownloadURL = ptr(base + "/download_transcoded")
	}
	return a
}

// NewArticles converts a page of items. The result is never nil so it
// encodes as [].
func NewArticles(items []database.MediaItem) []Article {
	out := make([]Article, 0, len(items))
	for i := range items {
		out = append(out, NewArticle(&items[i]))
	}
	return out
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
