package media

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

const (
	// DefaultThumbnailWidth and DefaultThumbnailHeight bound generated
	// thumbnails; the aspect ratio is kept.
	DefaultThumbnailWidth  = 640
	DefaultThumbnailHeight = 360

	// DefaultThumbnailQuality is the JPEG quality of generated thumbnails.
	DefaultThumbnailQuality = 85
)

// ErrEmptyFrame is returned when there is no image data to encode.
var ErrEmptyFrame = errors.New("empty frame")

// Thumbnailer turns extracted video frames into cached JPEG thumbnails.
type Thumbnailer struct {
	MaxWidth  int
	MaxHeight int
	Quality   int
}

// NewThumbnailer returns a Thumbnailer with the default box and quality.
func NewThumbnailer() *Thumbnailer {
	return &Thumbnailer{
		MaxWidth:  DefaultThumbnailWidth,
		MaxHeight: DefaultThumbnailHeight,
		Quality:   DefaultThumbnailQuality,
	}
}

// Encode decodes a frame (any registered format), fits it inside the
// thumbnail box and re-encodes it as JPEG. Frames already inside the box are
// not upscaled.
func (t *Thumbnailer) Encode(frame []byte) ([]byte, error) {
	if len(frame) == 0 {
		return nil, ErrEmptyFrame
	}

	img, err := imaging.Decode(bytes.NewReader(frame), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}

	b := img.Bounds()
	if b.Dx() > t.MaxWidth || b.Dy() > t.MaxHeight {
		img = imaging.Fit(img, t.MaxWidth, t.MaxHeight, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(t.Quality)); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteFile encodes frame and writes it to path. The file is written next to
// its destination and renamed into place, so readers never see a partial
// thumbnail.
func (t *Thumbnailer) WriteFile(path string, frame []byte) error {
	data, err := t.Encode(frame)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".thumb-*")
	if err != nil {
		return fmt.Errorf("failed to create thumbnail file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write thumbnail: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write thumbnail: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
