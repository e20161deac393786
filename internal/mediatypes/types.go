package mediatypes

import (
	"path/filepath"
	"strings"
)

// Kind is the media kind of a cataloged file.
type Kind string

const (
	// KindVideo is a playable video file.
	KindVideo Kind = "video"
	// KindImage is a still image, either standalone or a video's companion thumbnail.
	KindImage Kind = "image"
	// KindOther is any file the scanner ignores.
	KindOther Kind = "other"
)

// VideoExtensions lists the extensions cataloged as videos.
var VideoExtensions = map[string]bool{
	".mkv":  true,
	".mp4":  true,
	".avi":  true,
	".mov":  true,
	".wmv":  true,
	".flv":  true,
	".webm": true,
}

// ImageExtensions lists the extensions cataloged as images. ".tbn" is the
// Kodi thumbnail extension and is a JPEG in practice.
var ImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".tbn":  true,
	".gif":  true,
	".webp": true,
	".bmp":  true,
	".tiff": true,
}

// MimeTypes maps file extensions to their MIME types.
var MimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".tbn":  "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".bmp":  "image/bmp",
	".tiff": "image/tiff",

	".mp4":  "video/mp4",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".mov":  "video/quicktime",
	".wmv":  "video/x-ms-wmv",
	".flv":  "video/x-flv",
	".webm": "video/webm",

	".vtt": "text/vtt",
	".srt": "application/x-subrip",
}

// Ext returns the lower-cased extension of path, including the dot.
func Ext(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

// KindOf classifies an extension (lower-case, with dot).
func KindOf(ext string) Kind {
	switch {
	case VideoExtensions[ext]:
		return KindVideo
	case ImageExtensions[ext]:
		return KindImage
	default:
		return KindOther
	}
}

// Classify returns the media kind of a path by its extension.
func Classify(path string) Kind {
	return KindOf(Ext(path))
}

// IsMedia reports whether path has a cataloged extension.
func IsMedia(path string) bool {
	return Classify(path) != KindOther
}

// IsVideo reports whether path has a video extension.
func IsVideo(path string) bool {
	return Classify(path) == KindVideo
}

// GetMimeType returns the MIME type for an extension, or
// "application/octet-stream" if it is not recognized.
func GetMimeType(ext string) string {
	if mime, ok := MimeTypes[strings.ToLower(ext)]; ok {
		return mime
	}
	return "application/octet-stream"
}
