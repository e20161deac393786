// Package mediatypes holds the extension tables that decide what the library
// catalogs.
//
// It is a dependency-free leaf so the scanner, the filesystem watcher and the
// HTTP layer can share one definition of "media file" without import cycles.
//
//	switch mediatypes.Classify(path) {
//	case mediatypes.KindVideo:
//	    // probe, look for sidecars
//	case mediatypes.KindImage:
//	    // maybe an associated thumbnail
//	}
package mediatypes
