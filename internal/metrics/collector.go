package metrics

import (
	"context"
	"time"

	"media-library/internal/logging"
)

// StatsProvider reports catalog totals for the gauges refreshed by Collector.
type StatsProvider interface {
	CatalogStats(ctx context.Context) (Stats, error)
}

// Stats holds catalog totals
type Stats struct {
	Videos            int
	Images            int
	Favorites         int
	SmartPlaylists    int
	StandardPlaylists int
}

// Collector periodically collects and updates catalog gauges
type Collector struct {
	statsProvider StatsProvider
	interval      time.Duration
	stopChan      chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		interval:      interval,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection
func (c *Collector) Stop() {
	close(c.stopChan)
}

func (c *Collector) collectLoop() {
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.statsProvider == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stats, err := c.statsProvider.CatalogStats(ctx)
	if err != nil {
		logging.Warn("Metrics collection failed: %v", err)
		return
	}

	CatalogItemsTotal.WithLabelValues("video").Set(float64(stats.Videos))
	CatalogItemsTotal.WithLabelValues("image").Set(float64(stats.Images))
	CatalogFavoritesTotal.Set(float64(stats.Favorites))
	CatalogPlaylistsTotal.WithLabelValues("smart").Set(float64(stats.SmartPlaylists))
	CatalogPlaylistsTotal.WithLabelValues("standard").Set(float64(stats.StandardPlaylists))

	logging.Debug("Metrics collected: videos=%d, images=%d, favorites=%d",
		stats.Videos, stats.Images, stats.Favorites)
}
