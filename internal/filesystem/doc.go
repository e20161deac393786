/*
Package filesystem wraps the filesystem operations the library scanner relies on.

# Retries

[StatWithRetry] and [OpenWithRetry] retry ESTALE (stale file handle) errors
with exponential backoff. Media roots are frequently NFS mounts, where a
handle can go stale while the server reorganises files. Other errors are
returned immediately.

# Change notifications

[Watcher] wraps fsnotify for a directory tree. Raw notifications are
filtered (hidden entries, non-media files) and delivered as [Event] values on
a buffered queue. The queue is the only coupling between notification source
and the job coordinator, which applies its own coalescing policy.

# Metrics

Both halves report through an [Observer] installed with [SetObserver]; the
metrics package provides the Prometheus-backed implementation. Without one,
recording is skipped.
*/
package filesystem
