package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInitializeMetricsPopulatesLabels(t *testing.T) {
	InitializeMetrics()

	tests := []struct {
		name  string
		count int
		min   int
	}{
		{"JobRunsTotal", testutil.CollectAndCount(JobRunsTotal), len(jobKinds) * len(jobResults)},
		{"JobRunning", testutil.CollectAndCount(JobRunning), len(jobKinds)},
		{"QueryDuration", testutil.CollectAndCount(QueryDuration), len(views)},
		{"ScannerFilesTotal", testutil.CollectAndCount(ScannerFilesTotal), len(scanResult)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.count < tt.min {
				t.Errorf("%s exported %d series, want at least %d", tt.name, tt.count, tt.min)
			}
		})
	}
}

type fakeStats struct {
	stats Stats
	err   error
}

func (f fakeStats) CatalogStats(context.Context) (Stats, error) {
	return f.stats, f.err
}

func TestCollectorUpdatesGauges(t *testing.T) {
	c := NewCollector(fakeStats{stats: Stats{Videos: 12, Images: 3, Favorites: 2, SmartPlaylists: 1, StandardPlaylists: 4}}, time.Hour)
	c.collect()

	if got := testutil.ToFloat64(CatalogItemsTotal.WithLabelValues("video")); got != 12 {
		t.Errorf("video gauge = %v, want 12", got)
	}
	if got := testutil.ToFloat64(CatalogItemsTotal.WithLabelValues("image")); got != 3 {
		t.Errorf("image gauge = %v, want 3", got)
	}
	if got := testutil.ToFloat64(CatalogFavoritesTotal); got != 2 {
		t.Errorf("favorites gauge = %v, want 2", got)
	}
	if got := testutil.ToFloat64(CatalogPlaylistsTotal.WithLabelValues("standard")); got != 4 {
		t.Errorf("standard playlists gauge = %v, want 4", got)
	}
}

func TestCollectorKeepsGaugesOnError(t *testing.T) {
	CatalogFavoritesTotal.Set(7)

	c := NewCollector(fakeStats{err: errors.New("db closed")}, time.Hour)
	c.collect()

	if got := testutil.ToFloat64(CatalogFavoritesTotal); got != 7 {
		t.Errorf("favorites gauge changed on error: %v", got)
	}
}

func TestCollectorNilProvider(t *testing.T) {
	c := NewCollector(nil, time.Hour)
	c.collect()
}

func TestCollectorStartStop(t *testing.T) {
	c := NewCollector(fakeStats{}, 10*time.Millisecond)
	c.Start()
	time.Sleep(25 * time.Millisecond)
	c.Stop()
}
