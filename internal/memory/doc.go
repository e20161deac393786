// Package memory sizes the Go heap for a container and pauses bulk work
// under memory pressure.
//
// [ConfigureFromEnv] derives GOMEMLIMIT from MEMORY_LIMIT (or the cgroup v2
// limit) times MEMORY_RATIO, leaving headroom for the ffmpeg processes the
// service spawns. A [Monitor] samples the heap against that limit; the
// thumbnail fill calls [Monitor.Wait] between batches so decoding frames
// cannot push the process over it.
package memory
