// Package subtitle locates SRT sidecars for a video and converts them to
// WebVTT for browser playback.
package subtitle

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// DefaultLang is assumed for a bare "name.srt".
const DefaultLang = "en"

// Track is a discovered subtitle sidecar.
type Track struct {
	Path  string
	Lang  string
	Label string
}

// Find picks the subtitle for a video among the file names of its directory.
// Accepted names, for video "Clip.mp4":
//
//	Clip.srt          language "en"
//	Clip.<lang>.srt
//	Clip.mp4.<lang>.srt
//
// An English track wins; otherwise the first match in names order.
func Find(dir, videoFile string, names []string) *Track {
	base := strings.TrimSuffix(videoFile, filepath.Ext(videoFile))

	var found []Track
	for _, name := range names {
		if !strings.HasSuffix(name, ".srt") {
			continue
		}
		stem := strings.TrimSuffix(name, ".srt")

		var lang string
		switch {
		case stem == videoFile:
			continue
		case strings.HasPrefix(stem, videoFile+"."):
			lang = stem[len(videoFile)+1:]
		case stem == base:
			lang = DefaultLang
		case strings.HasPrefix(stem, base+"."):
			lang = stem[len(base)+1:]
		}
		if lang == "" {
			continue
		}
		found = append(found, Track{Path: filepath.Join(dir, name), Lang: lang})
	}
	if len(found) == 0 {
		return nil
	}

	best := found[0]
	for _, t := range found {
		if t.Lang == DefaultLang {
			best = t
			break
		}
	}

	// "en.forced" -> "en"
	if i := strings.IndexByte(best.Lang, '.'); i >= 0 {
		best.Lang = best.Lang[:i]
	}
	best.Label = Label(best.Lang)
	return &best
}

// Label is the display name for a language code.
func Label(lang string) string {
	if lang == DefaultLang {
		return "English"
	}
	if lang == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(lang)
	return string(unicode.ToUpper(r)) + strings.ToLower(lang[size:])
}

// ReadSRT reads a subtitle file as text. Files that are not valid UTF-8 are
// decoded as ISO-8859-1, the usual encoding of older rips.
func ReadSRT(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if utf8.Valid(b) {
		return strings.TrimPrefix(string(b), "\ufeff"), nil
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return string(decoded), nil
}

// SRTToVTT converts SubRip text to WebVTT: numeric cue counters are dropped
// and timing lines use '.' as the millisecond separator.
func SRTToVTT(srt string) string {
	srt = strings.ReplaceAll(srt, "\r\n", "\n")
	lines := strings.Split(strings.TrimSpace(srt), "\n")

	out := []string{"WEBVTT", ""}
	i := 0
	for i < len(lines) {
		if isCounter(lines[i]) {
			i++
			if i >= len(lines) {
				break
			}
		}
		if strings.Contains(lines[i], "-->") {
			out = append(out, strings.ReplaceAll(lines[i], ",", "."))
			i++
		}
		for i < len(lines) && strings.TrimSpace(lines[i]) != "" {
			out = append(out, lines[i])
			i++
		}
		out = append(out, "")
		i++
	}
	return strings.Join(out, "\n")
}

func isCounter(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
