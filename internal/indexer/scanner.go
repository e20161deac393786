package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"media-library/internal/database"
	"media-library/internal/filesystem"
	"media-library/internal/logging"
	"media-library/internal/media"
	"media-library/internal/mediatypes"
	"media-library/internal/metadata"
	"media-library/internal/metrics"
	"media-library/internal/pathkeys"
	"media-library/internal/transcoder"
)

// DefaultBatchSize is the number of processed items committed together.
const DefaultBatchSize = 50

// Mode selects how much work a scan does for files already in the catalog.
type Mode int

const (
	// ModeIncremental skips files the catalog already knows.
	ModeIncremental Mode = iota
	// ModeFull reprocesses every file and prunes rows whose file is gone.
	ModeFull
)

func (m Mode) String() string {
	if m == ModeFull {
		return "full"
	}
	return "incremental"
}

// Prober reads technical metadata from a video file.
type Prober interface {
	Probe(ctx context.Context, path string) (*transcoder.ProbeResult, error)
}

// Catalog is the part of the store the scanner writes to.
type Catalog interface {
	CatalogEntries(ctx context.Context) (map[string]database.ItemRef, error)
	UpsertItems(ctx context.Context, items []*database.MediaItem) (database.UpsertResult, error)
	PruneItems(ctx context.Context, ids []int64) (int, error)
}

// Stage is the part of a scan a progress report comes from.
type Stage int

const (
	StageScanning Stage = iota
	StagePruning
)

// ScanResult counts what a scan did.
type ScanResult struct {
	Added     int `json:"added"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
	Pruned    int `json:"pruned"`
	Found     int `json:"found"`
}

// Changed reports whether the scan added or modified any row.
func (r ScanResult) Changed() bool {
	return r.Added+r.Updated > 0
}

// Config holds scanner settings.
type Config struct {
	MediaDir     string
	HideSentinel string
	BatchSize    int
}

// Scanner reconciles the catalog with the media tree. A Scanner is not safe
// for concurrent scans; the job coordinator runs at most one at a time.
type Scanner struct {
	catalog   Catalog
	prober    Prober
	keys      *pathkeys.Keys
	root      string
	sentinel  string
	batchSize int
	retry     filesystem.RetryConfig
	log       *logging.Logger

	onProgress func(Stage, ScanResult)
	posters    map[string]string
}

// New creates a Scanner over cfg.MediaDir.
func New(catalog Catalog, prober Prober, keys *pathkeys.Keys, cfg Config) *Scanner {
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	return &Scanner{
		catalog:   catalog,
		prober:    prober,
		keys:      keys,
		root:      filepath.Clean(cfg.MediaDir),
		sentinel:  cfg.HideSentinel,
		batchSize: batch,
		retry:     filesystem.DefaultRetryConfig(),
		log:       logging.New("scan"),
	}
}

// SetProgressFunc registers a callback invoked after every committed batch
// and once before pruning starts.
func (s *Scanner) SetProgressFunc(fn func(Stage, ScanResult)) {
	s.onProgress = fn
}

// Root returns the media root.
func (s *Scanner) Root() string {
	return s.root
}

// Scan walks the media tree and writes what it finds to the catalog. Per-file
// problems are logged and counted; only an unreadable root or catalog, or a
// cancelled context, returns an error. A full scan finishes by pruning rows
// whose file was not found.
func (s *Scanner) Scan(ctx context.Context, mode Mode) (ScanResult, error) {
	start := time.Now()
	var res ScanResult

	known, err := s.catalog.CatalogEntries(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to load catalog: %w", err)
	}
	s.log.Info("starting %s scan of %s (%d items cataloged)", mode, s.root, len(known))

	s.posters = make(map[string]string)
	defer func() { s.posters = nil }()

	found := make(map[string]struct{}, len(known))
	batch := make([]*database.MediaItem, 0, s.batchSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		r, err := s.catalog.UpsertItems(ctx, batch)
		if err != nil {
			s.log.Error("batch of %d rolled back: %v", len(batch), err)
		}
		res.Added += r.Added
		res.Updated += r.Updated
		res.Unchanged += r.Unchanged
		res.Failed += r.Failed
		batch = batch[:0]

		s.report(StageScanning, res)
	}

	err = s.Walk(ctx, func(e Entry) error {
		found[e.Path] = struct{}{}

		if mode == ModeIncremental {
			if _, ok := known[e.Path]; ok {
				res.Skipped++
				return nil
			}
		}

		item, err := s.describe(ctx, e)
		if err != nil {
			s.log.Warn("skipping %s: %v", e.Path, err)
			res.Failed++
			return nil
		}

		batch = append(batch, item)
		if len(batch) >= s.batchSize {
			flush()
		}
		return nil
	})
	flush()
	res.Found = len(found)

	if err != nil {
		s.recordMetrics(res)
		return res, fmt.Errorf("scan aborted: %w", err)
	}

	if mode == ModeFull {
		s.report(StagePruning, res)
		res.Pruned, err = s.prune(ctx, known, found)
		if err != nil {
			s.recordMetrics(res)
			return res, err
		}
	}

	s.recordMetrics(res)
	metrics.ScannerLastRunTimestamp.Set(float64(time.Now().Unix()))
	s.log.Info("scan finished in %v. Added: %d, Updated: %d, Unchanged: %d, Skipped: %d, Failed: %d, Pruned: %d",
		time.Since(start).Round(time.Millisecond), res.Added, res.Updated, res.Unchanged, res.Skipped, res.Failed, res.Pruned)
	return res, nil
}

// Cleanup walks the tree without extracting anything and prunes rows whose
// file is gone. It returns the number of rows removed.
func (s *Scanner) Cleanup(ctx context.Context) (int, error) {
	known, err := s.catalog.CatalogEntries(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load catalog: %w", err)
	}

	found := make(map[string]struct{}, len(known))
	err = s.Walk(ctx, func(e Entry) error {
		found[e.Path] = struct{}{}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("cleanup walk failed: %w", err)
	}
	s.log.Info("cleanup found %d items on disk", len(found))

	return s.prune(ctx, known, found)
}

func (s *Scanner) report(stage Stage, res ScanResult) {
	if s.onProgress != nil {
		s.onProgress(stage, res)
	}
}

func (s *Scanner) recordMetrics(res ScanResult) {
	for result, n := range map[string]int{
		"added":     res.Added,
		"updated":   res.Updated,
		"unchanged": res.Unchanged,
		"skipped":   res.Skipped,
		"failed":    res.Failed,
	} {
		metrics.ScannerFilesTotal.WithLabelValues(result).Add(float64(n))
	}
}

// describe builds the catalog row for one file.
func (s *Scanner) describe(ctx context.Context, e Entry) (*database.MediaItem, error) {
	info, err := filesystem.StatWithRetry(e.Path, s.retry)
	if err != nil {
		return nil, err
	}

	relDir := s.relativeDir(e.Dir)
	item := &database.MediaItem{
		Path:         e.Path,
		Filename:     e.Name,
		RelativePath: relDir,
		MediaType:    e.Kind,
		FileSize:     info.Size(),
		FileFormat:   strings.TrimPrefix(mediatypes.Ext(e.Name), "."),
		Uploaded:     info.ModTime(),
		Dimensions:   "0x0",
		VideoCodec:   strings.ToUpper(transcoder.UnknownCodec),
	}

	desc, err := metadata.Describe(e.Path, relDir, info.ModTime())
	if err != nil {
		s.log.Warn("unreadable NFO for %s: %v", e.Path, err)
	}
	item.Title = desc.Title
	item.ShowTitle = desc.ShowTitle
	item.Summary = desc.Summary
	item.UniqueID = desc.UniqueID
	item.Aired = desc.Aired
	item.HasNFO = desc.HasNFO

	if e.Kind == mediatypes.KindImage {
		item.IsAssociatedThumbnail = hasSiblingVideo(e)
		if dims, err := media.GetImageDimensions(e.Path); err == nil {
			item.Width, item.Height = dims.Width, dims.Height
			item.Dimensions = dims.String()
		} else {
			s.log.Debug("no dimensions for %s: %v", e.Path, err)
		}
		return item, nil
	}

	s.probe(ctx, item)
	s.attachSidecars(item, e)
	return item, nil
}

// probe fills technical fields. Failures leave the defaults in place.
func (s *Scanner) probe(ctx context.Context, item *database.MediaItem) {
	if s.prober == nil {
		return
	}

	p, err := s.prober.Probe(ctx, item.Path)
	if err != nil {
		s.log.Warn("probe failed for %s: %v", item.Path, err)
		return
	}

	item.Width, item.Height = p.EffectiveDimensions()
	item.Dimensions = p.Dimensions()
	item.IsShort = p.IsShort()
	item.Duration = p.Duration
	item.VideoCodec = p.Codec
}

// relativeDir returns dir relative to the media root with forward slashes,
// or "" for the root itself.
func (s *Scanner) relativeDir(dir string) string {
	rel, err := filepath.Rel(s.root, dir)
	if err != nil || rel == "." {
		return ""
	}
	return filepath.ToSlash(rel)
}

// prune removes every cataloged row whose path was not found, after deleting
// its cached assets.
func (s *Scanner) prune(ctx context.Context, known map[string]database.ItemRef, found map[string]struct{}) (int, error) {
	var gone []database.ItemRef
	for path, ref := range known {
		if _, ok := found[path]; !ok {
			gone = append(gone, ref)
		}
	}
	if len(gone) == 0 {
		s.log.Debug("prune: nothing to remove")
		return 0, nil
	}
	sort.Slice(gone, func(i, j int) bool { return gone[i].ID < gone[j].ID })
	s.log.Info("prune: %d items no longer on disk", len(gone))

	ids := make([]int64, len(gone))
	for i, ref := range gone {
		ids[i] = ref.ID
		s.removeAssets(ref)
	}

	n, err := s.catalog.PruneItems(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("prune failed: %w", err)
	}
	metrics.ScannerPrunedTotal.Add(float64(n))
	return n, nil
}

// removeAssets deletes the cached files of a pruned row. Only files inside
// the cache directories are touched; a companion image in the media tree
// belongs to the user.
func (s *Scanner) removeAssets(ref database.ItemRef) {
	paths := append(s.keys.All(ref.Path), ref.TranscodedPath, ref.ThumbnailPath, ref.CustomThumbnailPath)

	seen := make(map[string]bool, len(paths))
	for _, p := range paths {
		if p == "" || seen[p] || !s.isCached(p) {
			continue
		}
		seen[p] = true

		if err := os.Remove(p); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				s.log.Warn("failed to delete %s: %v", p, err)
			}
			continue
		}
		s.log.Debug("deleted %s", p)
	}
}

func (s *Scanner) isCached(path string) bool {
	return within(s.keys.ThumbnailDir(), path) || within(s.keys.TranscodeDir(), path)
}
