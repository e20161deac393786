package indexer

import (
	"os"
	"path/filepath"
	"strings"

	"media-library/internal/database"
	"media-library/internal/filesystem"
	"media-library/internal/mediatypes"
	"media-library/internal/subtitle"
)

// thumbnailExts is the lookup order for companion images.
var thumbnailExts = []string{".jpg", ".jpeg", ".png", ".tbn", ".gif", ".webp", ".bmp", ".tiff"}

// thumbnailSuffixes decorate the base name of a companion image, tried after
// the bare name.
var thumbnailSuffixes = []string{"-thumb", " thumbnail", " folder"}

var posterNames = map[string]bool{
	"poster.jpg":  true,
	"poster.jpeg": true,
	"poster.png":  true,
	"poster.gif":  true,
}

func baseName(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// hasSiblingVideo reports whether an image shares its base name with a video
// in the same directory, which makes it that video's thumbnail.
func hasSiblingVideo(e Entry) bool {
	base := baseName(e.Name)
	for ext := range mediatypes.VideoExtensions {
		if e.has(base + ext) {
			return true
		}
	}
	return false
}

// companionThumbnail finds "name.jpg", then decorated names like
// "name-thumb.jpg".
func companionThumbnail(e Entry) string {
	base := baseName(e.Name)
	for _, ext := range thumbnailExts {
		if e.has(base + ext) {
			return filepath.Join(e.Dir, base+ext)
		}
	}
	for _, suffix := range thumbnailSuffixes {
		for _, ext := range thumbnailExts {
			if name := base + suffix + ext; e.has(name) {
				return filepath.Join(e.Dir, name)
			}
		}
	}
	return ""
}

// attachSidecars fills the asset fields of a video item.
func (s *Scanner) attachSidecars(item *database.MediaItem, e Entry) {
	item.ThumbnailPath = companionThumbnail(e)
	if item.ThumbnailPath == "" {
		if p := s.keys.ThumbnailPath(e.Path); filesystem.Exists(p) {
			item.ThumbnailPath = p
		}
	}

	if track := subtitle.Find(e.Dir, e.Name, e.names); track != nil {
		item.SubtitlePath = track.Path
		item.SubtitleLang = track.Lang
		item.SubtitleLabel = track.Label
	}

	item.ShowPosterPath = s.findPoster(e.Dir)

	if p := s.keys.TranscodePath(e.Path); filesystem.Exists(p) {
		item.TranscodedPath = p
	}
	if p := s.keys.CustomThumbnailPath(e.Path); filesystem.Exists(p) {
		item.CustomThumbnailPath = p
	}
}

// findPoster walks from dir up to the media root and returns the first
// poster image found. Results are cached per directory for the scan.
func (s *Scanner) findPoster(dir string) string {
	var visited []string
	found := ""

	for {
		if p, ok := s.posters[dir]; ok {
			found = p
			break
		}
		visited = append(visited, dir)

		if p := posterIn(dir); p != "" {
			found = p
			break
		}
		if dir == s.root {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir || !within(s.root, parent) {
			break
		}
		dir = parent
	}

	for _, d := range visited {
		s.posters[d] = found
	}
	return found
}

func posterIn(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	for _, de := range entries {
		if !de.IsDir() && posterNames[strings.ToLower(de.Name())] {
			return filepath.Join(dir, de.Name())
		}
	}
	return ""
}

// within reports whether path is root or below it.
func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
