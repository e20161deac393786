// Package pathkeys derives the on-disk names of an item's cached assets from
// its source path alone, so no catalog lookup is needed to find them.
//
// The key is the hex MD5 of the path string, not of the file contents. A
// rename therefore produces a new key; the old assets are removed when the
// old row is pruned.
package pathkeys

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

const (
	thumbnailDir = "thumbnails"
	transcodeDir = "optimized"
)

// Keys derives asset paths under a data directory.
type Keys struct {
	dataDir string
}

// New returns Keys rooted at dataDir.
func New(dataDir string) *Keys {
	return &Keys{dataDir: dataDir}
}

// Key returns the cache key for a source path.
func Key(sourcePath string) string {
	sum := md5.Sum([]byte(sourcePath))
	return hex.EncodeToString(sum[:])
}

// ThumbnailDir is the directory holding generated and custom thumbnails.
func (k *Keys) ThumbnailDir() string {
	return filepath.Join(k.dataDir, thumbnailDir)
}

// TranscodeDir is the directory holding optimized copies.
func (k *Keys) TranscodeDir() string {
	return filepath.Join(k.dataDir, transcodeDir)
}

// ThumbnailPath is the generated thumbnail location. It does not touch the filesystem.
func (k *Keys) ThumbnailPath(sourcePath string) string {
	return filepath.Join(k.ThumbnailDir(), Key(sourcePath)+".jpg")
}

// CustomThumbnailPath is the user-chosen-timestamp thumbnail location.
func (k *Keys) CustomThumbnailPath(sourcePath string) string {
	return filepath.Join(k.ThumbnailDir(), Key(sourcePath)+"_custom.jpg")
}

// TranscodePath is the optimized copy location.
func (k *Keys) TranscodePath(sourcePath string) string {
	return filepath.Join(k.TranscodeDir(), Key(sourcePath)+"_opt.mp4")
}

// Thumbnail returns ThumbnailPath after ensuring its directory exists.
func (k *Keys) Thumbnail(sourcePath string) (string, error) {
	return ensure(k.ThumbnailPath(sourcePath))
}

// CustomThumbnail returns CustomThumbnailPath after ensuring its directory exists.
func (k *Keys) CustomThumbnail(sourcePath string) (string, error) {
	return ensure(k.CustomThumbnailPath(sourcePath))
}

// Transcode returns TranscodePath after ensuring its directory exists.
func (k *Keys) Transcode(sourcePath string) (string, error) {
	return ensure(k.TranscodePath(sourcePath))
}

// All returns every derived path for a source, in the order pruning removes them.
func (k *Keys) All(sourcePath string) []string {
	return []string{
		k.TranscodePath(sourcePath),
		k.ThumbnailPath(sourcePath),
		k.CustomThumbnailPath(sourcePath),
	}
}

func ensure(path string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create cache directory: %w", err)
	}
	return path, nil
}
