package filesystem

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func waitForEvent(t *testing.T, ch <-chan Event, want EventOp, path string) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				t.Fatalf("event queue closed waiting for %s %s", want, path)
			}
			if ev.Op == want && ev.Path == path {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s %s", want, path)
		}
	}
}

func acceptVideos(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".mp4")
}

func TestWatcherDeliversFilteredEvents(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping watcher test in short mode")
	}

	root := t.TempDir()
	w, err := NewWatcher(root, acceptVideos, 16)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Close()

	if err := w.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// Ignored: not a video, and hidden.
	if err := os.WriteFile(filepath.Join(root, "notes.txt"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, ".hidden.mp4"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	video := filepath.Join(root, "clip.mp4")
	if err := os.WriteFile(video, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	waitForEvent(t, w.Events(), OpCreate, video)

	if err := os.Remove(video); err != nil {
		t.Fatal(err)
	}
	waitForEvent(t, w.Events(), OpDelete, video)
}

func TestWatcherFollowsNewDirectories(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping watcher test in short mode")
	}

	root := t.TempDir()
	w, err := NewWatcher(root, acceptVideos, 16)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Close()

	if err := w.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	sub := filepath.Join(root, "Show")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	waitForEvent(t, w.Events(), OpCreate, sub)

	// Give the new watch a moment to register before writing into it.
	time.Sleep(50 * time.Millisecond)

	video := filepath.Join(sub, "ep1.mp4")
	if err := os.WriteFile(video, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	waitForEvent(t, w.Events(), OpCreate, video)
}

func TestEventOpString(t *testing.T) {
	tests := map[EventOp]string{
		OpCreate:   "create",
		OpMove:     "move",
		OpDelete:   "delete",
		EventOp(9): "op(9)",
	}
	for op, want := range tests {
		if got := op.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", int(op), got, want)
		}
	}
}

func TestWatcherCloseIsIdempotent(t *testing.T) {
	w, err := NewWatcher(t.TempDir(), nil, 0)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("first Close() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}
