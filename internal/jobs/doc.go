// Package jobs runs the library's background work: scans, the thumbnail
// fill, single-item transcodes and the prune-only cleanup.
//
// Each kind has one lock. Triggers (HTTP actions, filesystem events, the
// cron schedule, the empty-catalog bootstrap) try the lock without blocking
// and are rejected when it is held. The job body runs on its own goroutine
// and always leaves the kind in an idle or error state, even if it panics.
//
// Status snapshots are published through an atomic pointer, so readers
// polling the status endpoints never observe a half-updated record.
package jobs
