package database

import (
	"encoding/json"
	"time"

	"media-library/internal/mediatypes"
)

// Content tags a user can assign to an item.
const (
	TagShort = "short"
	TagVR180 = "vr180"
	TagVR360 = "vr360"
	TagNone  = "none"
)

// Stored video_type values.
const (
	VideoTypeVR180SBS = "VR180_SBS"
	VideoTypeVR180TB  = "VR180_TB"
	VideoTypeVR360    = "VR360"
)

// MinWatchSeconds is the minimum progress that counts as watched.
const MinWatchSeconds = 4

// MediaItem is one cataloged file. Empty strings and zero times are stored
// as NULL.
type MediaItem struct {
	ID                    int64           `json:"id"`
	Path                  string          `json:"path"`
	Filename              string          `json:"filename"`
	RelativePath          string          `json:"relativePath,omitempty"`
	MediaType             mediatypes.Kind `json:"mediaType"`
	IsAssociatedThumbnail bool            `json:"isAssociatedThumbnail"`

	Title     string    `json:"title"`
	ShowTitle string    `json:"showTitle"`
	Summary   string    `json:"summary"`
	UniqueID  string    `json:"uniqueId,omitempty"`
	Aired     time.Time `json:"aired"`
	Uploaded  time.Time `json:"uploaded"`
	HasNFO    bool      `json:"hasNfo"`

	FileSize   int64  `json:"fileSize"`
	FileFormat string `json:"fileFormat"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Dimensions string `json:"dimensions,omitempty"`
	Duration   int    `json:"duration"`
	VideoCodec string `json:"videoCodec,omitempty"`
	IsShort    bool   `json:"isShort"`

	ThumbnailPath       string `json:"-"`
	CustomThumbnailPath string `json:"-"`
	TranscodedPath      string `json:"-"`
	ShowPosterPath      string `json:"-"`
	SubtitlePath        string `json:"-"`
	SubtitleLabel       string `json:"subtitleLabel,omitempty"`
	SubtitleLang        string `json:"subtitleLang,omitempty"`

	IsFavorite      bool      `json:"isFavorite"`
	IsWatchLater    bool      `json:"isWatchLater"`
	LastWatched     time.Time `json:"lastWatched"`
	WatchedDuration int       `json:"watchedDuration"`
	VideoType       string    `json:"videoType,omitempty"`
	TagLocked       bool      `json:"tagLocked"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ItemRef is the subset of a row needed to prune it.
type ItemRef struct {
	ID                  int64
	Path                string
	ThumbnailPath       string
	CustomThumbnailPath string
	TranscodedPath      string
}

// ThumbnailCandidate is a video row considered by the thumbnail fill.
type ThumbnailCandidate struct {
	ID            int64
	Path          string
	Filename      string
	ThumbnailPath string
}

// UpsertResult counts what a batch write did.
type UpsertResult struct {
	Added     int
	Updated   int
	Unchanged int
	Failed    int
}

// SmartPlaylist stores its rules as the raw JSON array the client sent.
type SmartPlaylist struct {
	ID      int64           `json:"id"`
	Name    string          `json:"name"`
	Filters json.RawMessage `json:"filters"`
}

// StandardPlaylist is an explicit membership list. IsInPlaylist is relative
// to the item the listing was requested for.
type StandardPlaylist struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	IsInPlaylist bool   `json:"is_in_playlist"`
}

// FolderTree maps each directory name to its children.
type FolderTree map[string]FolderTree

// LibraryMetadata is everything the browser needs besides the items.
type LibraryMetadata struct {
	FolderTree        FolderTree         `json:"folder_tree"`
	SmartPlaylists    []SmartPlaylist    `json:"smartPlaylists"`
	StandardPlaylists []StandardPlaylist `json:"standardPlaylists"`
	AuthorCounts      map[string]int     `json:"author_counts"`
}

// Selection is a WHERE/ORDER BY pair over media_items built by the query
// engine. Where and OrderBy are SQL fragments; user input only travels in Args.
type Selection struct {
	Where   string
	Args    []any
	OrderBy string
}
