/*
Package workers sizes and runs the bounded goroutine pools used by background
jobs.

Sizing is based on GOMAXPROCS rather than runtime.NumCPU, so a container
limited to 2 CPUs on a 64-core node gets 2 (or 4 for I/O-bound work), not 64:

	n := workers.ForIO(cfg.ThumbnailWorkers, 8)
	workers.Each(ctx, n, items, func(ctx context.Context, it Item) {
	    // extract one frame
	})

A positive override (the THUMBNAIL_WORKERS setting) replaces the computed
value but is still capped by the limit.
*/
package workers
