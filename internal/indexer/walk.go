package indexer

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"media-library/internal/mediatypes"
)

// Entry is a media file found by Walk.
type Entry struct {
	Path string
	Dir  string
	Name string
	Kind mediatypes.Kind

	// names is the listing of Dir, used for sidecar lookups without extra
	// stat calls.
	names []string
	index map[string]bool
}

// has reports whether Dir contains a file called name.
func (e Entry) has(name string) bool {
	return e.index[name]
}

// Walk visits every catalogable file under the media root depth-first. Files
// of a directory come before its subdirectories, both in name order. Hidden
// entries are skipped, and a directory holding the hide sentinel is skipped
// together with its whole subtree.
//
// An unreadable root is an error. Unreadable subdirectories are logged and
// skipped.
func (s *Scanner) Walk(ctx context.Context, fn func(Entry) error) error {
	if _, err := os.ReadDir(s.root); err != nil {
		return err
	}
	return s.walkDir(ctx, s.root, fn)
}

func (s *Scanner) walkDir(ctx context.Context, dir string, fn func(Entry) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		s.log.Warn("skipping unreadable directory %s: %v", dir, err)
		return nil
	}

	var names, subdirs []string
	index := make(map[string]bool, len(dirEntries))
	for _, de := range dirEntries {
		name := de.Name()
		if de.IsDir() {
			if !strings.HasPrefix(name, ".") {
				subdirs = append(subdirs, name)
			}
			continue
		}
		names = append(names, name)
		index[name] = true
	}

	if s.sentinel != "" && index[s.sentinel] {
		s.log.Debug("hidden by %s: %s", s.sentinel, dir)
		return nil
	}

	for _, name := range names {
		if strings.HasPrefix(name, ".") {
			continue
		}
		kind := mediatypes.Classify(name)
		if kind == mediatypes.KindOther {
			continue
		}
		e := Entry{
			Path:  filepath.Clean(filepath.Join(dir, name)),
			Dir:   dir,
			Name:  name,
			Kind:  kind,
			names: names,
			index: index,
		}
		if err := fn(e); err != nil {
			return err
		}
	}

	for _, sub := range subdirs {
		if err := s.walkDir(ctx, filepath.Join(dir, sub), fn); err != nil {
			return err
		}
	}
	return nil
}
