package query

import (
	"net/url"
	"strings"

	"github.com/spf13/cast"
)

// View selects the base set of items a query runs over.
type View string

const (
	ViewAll              View = "all"
	ViewFavorites        View = "favorites"
	ViewWatchLater       View = "watchLater"
	ViewHistory          View = "history"
	ViewShorts           View = "shorts"
	ViewOptimized        View = "optimized"
	ViewVR180            View = "VR180"
	ViewVR360            View = "VR360"
	ViewAuthor           View = "author"
	ViewFolder           View = "folder"
	ViewStandardPlaylist View = "standard_playlist"
	ViewSmartPlaylist    View = "smart_playlist"
	ViewVideo            View = "video"
)

var knownViews = map[View]bool{
	ViewAll: true, ViewFavorites: true, ViewWatchLater: true, ViewHistory: true,
	ViewShorts: true, ViewOptimized: true, ViewVR180: true, ViewVR360: true,
	ViewAuthor: true, ViewFolder: true, ViewStandardPlaylist: true,
	ViewSmartPlaylist: true, ViewVideo: true,
}

// Flat reports whether the view returns its whole result set on one page.
func (v View) Flat() bool {
	return v == ViewStandardPlaylist || v == ViewVideo
}

func (v View) isVR() bool {
	return v == ViewVR180 || v == ViewVR360
}

// Toggle is the state of a global category filter.
type Toggle string

const (
	ToggleNormal Toggle = "normal"
	ToggleHide   Toggle = "hide"
	ToggleSolo   Toggle = "solo"
)

func parseToggle(s string) Toggle {
	switch t := Toggle(strings.ToLower(strings.TrimSpace(s))); t {
	case ToggleHide, ToggleSolo:
		return t
	default:
		return ToggleNormal
	}
}

// Sort is a result ordering key.
type Sort string

const (
	SortAiredNewest      Sort = "aired_newest"
	SortAiredOldest      Sort = "aired_oldest"
	SortUploadedNewest   Sort = "uploaded_newest"
	SortUploadedOldest   Sort = "uploaded_oldest"
	SortDurationLongest  Sort = "duration_longest"
	SortDurationShortest Sort = "duration_shortest"
)

// Request is one catalog query.
type Request struct {
	View       View
	ViewID     string
	ViewAuthor string
	Search     string
	Sort       Sort
	Page       int

	FilterShorts    Toggle
	FilterVR        Toggle
	FilterOptimized Toggle

	ShowImages     bool
	ShowThumbnails bool

	// Rules overrides a smart playlist's stored rules when non-nil.
	Rules RuleSet

	// PlaylistItems is the membership of a standard playlist view. The engine
	// fills it in before building.
	PlaylistItems []int64
}

// ParseRequest reads a Request from the query-string parameters of
// GET /api/videos. Missing or malformed values fall back to defaults; only a
// bad smart_filters payload is an error.
func ParseRequest(v url.Values) (Request, error) {
	req := Request{
		View:            View(v.Get("viewType")),
		ViewID:          strings.TrimSpace(v.Get("viewId")),
		ViewAuthor:      v.Get("viewAuthor"),
		Search:          strings.TrimSpace(v.Get("searchQuery")),
		Sort:            Sort(v.Get("sortOrder")),
		FilterShorts:    parseToggle(v.Get("filterShorts")),
		FilterVR:        parseToggle(v.Get("filterVR")),
		FilterOptimized: parseToggle(v.Get("filterOptimized")),
		ShowImages:      cast.ToBool(v.Get("showImages")),
		ShowThumbnails:  cast.ToBool(v.Get("showThumbnails")),
	}

	if !knownViews[req.View] {
		req.View = ViewAll
	}
	if req.Sort == "" {
		req.Sort = SortAiredNewest
	}

	req.Page = cast.ToInt(v.Get("page"))
	if req.Page < 1 {
		req.Page = 1
	}

	if v.Has("smart_filters") {
		rules, err := ParseRules([]byte(v.Get("smart_filters")))
		if err != nil {
			return req, err
		}
		req.Rules = rules
	}
	return req, nil
}
