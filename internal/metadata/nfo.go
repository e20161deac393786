package metadata

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/encoding/ianaindex"
)

// UnknownShow is the show name given to items directly under the media root.
const UnknownShow = "Unknown Show"

const airedLayout = "2006-01-02"

// nfoDocument matches any root element (episodedetails, movie, musicvideo, ...).
type nfoDocument struct {
	Title     string   `xml:"title"`
	ShowTitle string   `xml:"showtitle"`
	Plot      string   `xml:"plot"`
	Aired     string   `xml:"aired"`
	UniqueIDs []string `xml:"uniqueid"`
}

// NFO holds the descriptive fields read from a Kodi-style sidecar.
// Absent or unparsable fields are left at their zero value.
type NFO struct {
	Title     string
	ShowTitle string
	Plot      string
	UniqueID  string
	Aired     time.Time
}

// NFOPath returns the sidecar location for a media file: same base name, ".nfo".
func NFOPath(mediaPath string) string {
	return strings.TrimSuffix(mediaPath, filepath.Ext(mediaPath)) + ".nfo"
}

// ParseNFO reads and decodes an NFO file.
func ParseNFO(path string) (*NFO, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc nfoDocument
	dec := xml.NewDecoder(bytes.NewReader(b))
	dec.CharsetReader = charsetReader
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("invalid nfo %s: %w", path, err)
	}

	n := &NFO{
		Title:     strings.TrimSpace(doc.Title),
		ShowTitle: strings.TrimSpace(doc.ShowTitle),
		Plot:      strings.TrimSpace(doc.Plot),
		Aired:     parseAired(doc.Aired),
	}
	if len(doc.UniqueIDs) > 0 {
		n.UniqueID = strings.TrimSpace(doc.UniqueIDs[0])
	}
	return n, nil
}

// charsetReader decodes NFO files that declare a non-UTF-8 encoding, which
// Kodi exports often do (ISO-8859-1, windows-1252).
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil {
		return nil, fmt.Errorf("unknown charset %q: %w", label, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported charset %q", label)
	}
	return enc.NewDecoder().Reader(input), nil
}

// parseAired accepts "YYYY-MM-DD" optionally followed by a space and a time.
func parseAired(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	if i := strings.IndexByte(s, ' '); i >= 0 {
		s = s[:i]
	}
	t, err := time.Parse(airedLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Descriptive is the resolved descriptive metadata of a media item.
type Descriptive struct {
	Title     string
	ShowTitle string
	Summary   string
	UniqueID  string
	Aired     time.Time
	HasNFO    bool
}

// Describe reads the sidecar NFO of mediaPath, if any, and fills every
// missing field with its fallback:
//   - title: file base name with dots replaced by spaces
//   - show: name of the containing directory, or UnknownShow at the root
//   - aired: the file modification time
//
// relDir is the item's directory relative to the media root ("" at the root).
// A non-nil error reports an unreadable NFO; the returned value is still
// fully populated from fallbacks.
func Describe(mediaPath, relDir string, modTime time.Time) (Descriptive, error) {
	d := Descriptive{}

	var parseErr error
	nfoPath := NFOPath(mediaPath)
	if _, err := os.Stat(nfoPath); err == nil {
		d.HasNFO = true
		if n, err := ParseNFO(nfoPath); err != nil {
			parseErr = err
		} else {
			d.Title = n.Title
			d.ShowTitle = n.ShowTitle
			d.Summary = n.Plot
			d.UniqueID = n.UniqueID
			d.Aired = n.Aired
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		parseErr = err
	}

	if d.Title == "" {
		base := strings.TrimSuffix(filepath.Base(mediaPath), filepath.Ext(mediaPath))
		d.Title = strings.ReplaceAll(base, ".", " ")
	}
	if d.ShowTitle == "" {
		if relDir == "" {
			d.ShowTitle = UnknownShow
		} else {
			d.ShowTitle = filepath.Base(filepath.FromSlash(relDir))
		}
	}
	if d.Aired.IsZero() {
		d.Aired = modTime
	}

	return d, parseErr
}
