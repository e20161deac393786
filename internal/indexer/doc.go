// Package indexer reconciles the catalog with the media tree.
//
// A [Scanner] walks the media root depth-first, classifies files by
// extension, and builds a catalog row for each: descriptive fields from the
// NFO sidecar (with filename and folder fallbacks), technical fields from a
// [Prober], and asset paths from sidecar naming conventions and the derived
// cache locations in [pathkeys].
//
// Incremental scans skip files already cataloged. Full scans reprocess
// everything and then prune rows whose file was not found. [Scanner.Cleanup]
// only prunes.
//
// Hidden entries (leading dot) are ignored, and a directory holding the hide
// sentinel file is skipped with its whole subtree.
package indexer
