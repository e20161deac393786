package query

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/spf13/cast"

	"media-library/internal/database"
	"media-library/internal/logging"
	"media-library/internal/metrics"
)

// DefaultPageSize is the number of items per page for paginated views.
const DefaultPageSize = 30

// Store is the part of the catalog the engine reads.
type Store interface {
	CountSelection(ctx context.Context, sel database.Selection) (int, error)
	ListSelection(ctx context.Context, sel database.Selection, limit, offset int) ([]database.MediaItem, error)
	PlaylistItemIDs(ctx context.Context, playlistID int64) ([]int64, error)
	GetSmartPlaylist(ctx context.Context, id int64) (*database.SmartPlaylist, error)
}

// Result is one page of a query.
type Result struct {
	Items       []database.MediaItem
	TotalItems  int
	TotalPages  int
	CurrentPage int
	HasNextPage bool
}

// Engine answers catalog queries.
type Engine struct {
	store    Store
	pageSize int
}

// NewEngine returns an Engine reading from store.
func NewEngine(store Store) *Engine {
	return &Engine{store: store, pageSize: DefaultPageSize}
}

// Run resolves any playlist the view refers to, then counts and fetches the
// requested page. Flat views return every match on a single page.
func (e *Engine) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	if req.View == "" {
		req.View = ViewAll
	}

	if err := e.resolve(ctx, &req); err != nil {
		return nil, err
	}
	sel := Build(req)

	var res *Result
	var err error
	if req.View.Flat() {
		res, err = e.runFlat(ctx, sel)
	} else {
		res, err = e.runPaged(ctx, sel, req.Page)
	}
	if err != nil {
		return nil, err
	}

	view := string(req.View)
	metrics.QueryDuration.WithLabelValues(view).Observe(time.Since(start).Seconds())
	metrics.QueryResultSize.WithLabelValues(view).Observe(float64(len(res.Items)))
	logging.Debug("query view=%s page=%d: %d of %d items in %v", view, res.CurrentPage, len(res.Items), res.TotalItems, time.Since(start))
	return res, nil
}

func (e *Engine) resolve(ctx context.Context, req *Request) error {
	if req.ViewID == "" {
		return nil
	}

	switch req.View {
	case ViewStandardPlaylist:
		id, err := cast.ToInt64E(req.ViewID)
		if err != nil {
			req.PlaylistItems = nil
			return nil
		}
		ids, err := e.store.PlaylistItemIDs(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to load playlist %d: %w", id, err)
		}
		req.PlaylistItems = ids

	case ViewSmartPlaylist:
		id, err := cast.ToInt64E(req.ViewID)
		if err != nil {
			return database.ErrNotFound
		}
		playlist, err := e.store.GetSmartPlaylist(ctx, id)
		if err != nil {
			return err
		}
		if req.Rules == nil {
			rules, err := ParseRules(playlist.Filters)
			if err != nil {
				logging.Warn("smart playlist %d has unreadable rules, showing unfiltered: %v", id, err)
				rules = RuleSet{}
			}
			req.Rules = rules
		}
	}
	return nil
}

func (e *Engine) runFlat(ctx context.Context, sel database.Selection) (*Result, error) {
	items, err := e.store.ListSelection(ctx, sel, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("list query failed: %w", err)
	}
	return &Result{
		Items:       items,
		TotalItems:  len(items),
		TotalPages:  1,
		CurrentPage: 1,
	}, nil
}

func (e *Engine) runPaged(ctx context.Context, sel database.Selection, page int) (*Result, error) {
	if page < 1 {
		page = 1
	}

	total, err := e.store.CountSelection(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("count query failed: %w", err)
	}

	totalPages := int(math.Ceil(float64(total) / float64(e.pageSize)))

	items := []database.MediaItem{}
	if offset := (page - 1) * e.pageSize; offset < total {
		items, err = e.store.ListSelection(ctx, sel, e.pageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("list query failed: %w", err)
		}
	}

	return &Result{
		Items:       items,
		TotalItems:  total,
		TotalPages:  totalPages,
		CurrentPage: page,
		HasNextPage: page < totalPages,
	}, nil
}
