package query

import (
	"strings"

	"github.com/spf13/cast"

	"media-library/internal/database"
	"media-library/internal/mediatypes"
)

const (
	isShortSQL     = "is_short = 1"
	notShortSQL    = "is_short = 0"
	isVRSQL        = "video_type IS NOT NULL"
	notVRSQL       = "video_type IS NULL"
	optimizedSQL   = "transcoded_path IS NOT NULL"
	unoptimizedSQL = "transcoded_path IS NULL"
)

type builder struct {
	where []string
	args  []any
}

func (b *builder) add(clause string, args ...any) {
	b.where = append(b.where, clause)
	b.args = append(b.args, args...)
}

// Build turns a request into a catalog selection. Smart playlist rules and
// standard playlist membership must already be resolved onto req.
func Build(req Request) database.Selection {
	var b builder

	b.addMediaKinds(req)
	b.addView(req)
	b.addToggles(req)

	if req.Search != "" {
		p := contains(req.Search)
		b.add(`(title LIKE ? ESCAPE '\' OR summary LIKE ? ESCAPE '\' OR show_title LIKE ? ESCAPE '\')`, p, p, p)
	}

	return database.Selection{
		Where:   strings.Join(b.where, " AND "),
		Args:    b.args,
		OrderBy: orderBy(req),
	}
}

// addMediaKinds limits results to videos unless images are requested. Images
// that only serve as a sibling video's thumbnail stay hidden unless asked for.
func (b *builder) addMediaKinds(req Request) {
	video, image := string(mediatypes.KindVideo), string(mediatypes.KindImage)
	switch {
	case !req.ShowImages:
		b.add("media_type = ?", video)
	case req.ShowThumbnails:
		b.add("(media_type = ? OR media_type = ?)", video, image)
	default:
		b.add("(media_type = ? OR (media_type = ? AND is_associated_thumbnail = 0))", video, image)
	}
}

func (b *builder) addView(req Request) {
	switch req.View {
	case ViewFavorites:
		b.add("is_favorite = 1")
	case ViewWatchLater:
		b.add("is_watch_later = 1")
	case ViewHistory:
		b.add("watched_duration >= ?", database.MinWatchSeconds)
	case ViewShorts:
		b.add(isShortSQL)
	case ViewOptimized:
		b.add(optimizedSQL)
	case ViewVR180:
		b.add("video_type IN (?, ?)", database.VideoTypeVR180SBS, database.VideoTypeVR180TB)
	case ViewVR360:
		b.add("video_type = ?", database.VideoTypeVR360)
	case ViewAuthor:
		if req.ViewAuthor != "" {
			b.add("show_title = ?", req.ViewAuthor)
		}
	case ViewFolder:
		if req.ViewID != "" {
			b.add(`(relative_path = ? OR relative_path LIKE ? ESCAPE '\')`, req.ViewID, likeEscaper.Replace(req.ViewID)+"/%")
		}
	case ViewStandardPlaylist:
		if req.ViewID == "" {
			return
		}
		if len(req.PlaylistItems) == 0 {
			// An empty playlist shows nothing, never everything.
			b.add("0 = 1")
			return
		}
		ids := make([]any, len(req.PlaylistItems))
		for i, id := range req.PlaylistItems {
			ids[i] = id
		}
		b.add("id IN ("+placeholders(len(ids))+")", ids...)
	case ViewSmartPlaylist:
		if req.ViewID == "" {
			return
		}
		where, args := req.Rules.clauses()
		if len(where) > 0 {
			b.add(strings.Join(where, " AND "), args...)
		}
	case ViewVideo:
		if req.ViewID != "" {
			id, err := cast.ToInt64E(req.ViewID)
			if err != nil {
				id = -1
			}
			b.add("id = ?", id)
		}
	}
}

// addToggles applies the shorts, VR and optimized filters. A toggle is
// ignored when the view already is its category. Any solo toggle turns the
// pass into an OR of the solo categories and suppresses every hide.
func (b *builder) addToggles(req Request) {
	shortsSolo := req.FilterShorts == ToggleSolo && req.View != ViewShorts
	vrSolo := req.FilterVR == ToggleSolo && !req.View.isVR()
	optimizedSolo := req.FilterOptimized == ToggleSolo && req.View != ViewOptimized

	if shortsSolo || vrSolo || optimizedSolo {
		var solo []string
		if shortsSolo {
			solo = append(solo, isShortSQL)
		}
		if vrSolo {
			solo = append(solo, isVRSQL)
		}
		if optimizedSolo {
			solo = append(solo, optimizedSQL)
		}
		b.add("(" + strings.Join(solo, " OR ") + ")")
		return
	}

	if req.FilterShorts == ToggleHide && req.View != ViewShorts {
		b.add(notShortSQL)
	}
	if req.FilterVR == ToggleHide && !req.View.isVR() {
		b.add(notVRSQL)
	}
	if req.FilterOptimized == ToggleHide && req.View != ViewOptimized {
		b.add(unoptimizedSQL)
	}
}

func orderBy(req Request) string {
	if req.View == ViewHistory {
		return "last_watched DESC NULLS LAST"
	}
	switch req.Sort {
	case SortAiredOldest:
		return "aired ASC NULLS FIRST"
	case SortUploadedNewest:
		return "uploaded_date DESC NULLS LAST"
	case SortUploadedOldest:
		return "uploaded_date ASC NULLS FIRST"
	case SortDurationLongest:
		return "duration DESC NULLS LAST"
	case SortDurationShortest:
		return "duration ASC NULLS FIRST"
	default:
		return "aired DESC NULLS LAST"
	}
}
