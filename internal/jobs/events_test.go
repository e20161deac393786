package jobs

import (
	"context"
	"testing"
	"time"

	"media-library/internal/filesystem"
)

func TestPolicyDecide(t *testing.T) {
	ev := func(op filesystem.EventOp) filesystem.Event {
		return filesystem.Event{Op: op, Path: "/media/a.mp4"}
	}

	tests := []struct {
		name  string
		batch []filesystem.Event
		want  Decision
	}{
		{"empty", nil, Decision{}},
		{"create", []filesystem.Event{ev(filesystem.OpCreate)}, Decision{Scan: true}},
		{"move", []filesystem.Event{ev(filesystem.OpMove)}, Decision{Scan: true, Cleanup: true}},
		{"move among creates", []filesystem.Event{ev(filesystem.OpCreate), ev(filesystem.OpMove)}, Decision{Scan: true, Cleanup: true}},
		{"delete", []filesystem.Event{ev(filesystem.OpDelete)}, Decision{Cleanup: true}},
		{"burst of creates", []filesystem.Event{ev(filesystem.OpCreate), ev(filesystem.OpCreate), ev(filesystem.OpCreate)}, Decision{Scan: true}},
		{"mixed", []filesystem.Event{ev(filesystem.OpDelete), ev(filesystem.OpCreate)}, Decision{Scan: true, Cleanup: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := (Policy{}).Decide(tt.batch); got != tt.want {
				t.Errorf("Decide() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestHandleEventsCoalescesBurst(t *testing.T) {
	env := newTestEnv(t)
	env.coord.cfg.Debounce = 50 * time.Millisecond

	events := make(chan filesystem.Event, 10)
	done := make(chan struct{})
	go func() {
		env.coord.HandleEvents(context.Background(), events)
		close(done)
	}()

	for i := 0; i < 5; i++ {
		events <- filesystem.Event{Op: filesystem.OpCreate, Path: "/media/new.mp4"}
	}
	events <- filesystem.Event{Op: filesystem.OpDelete, Path: "/media/old.mp4"}

	time.Sleep(200 * time.Millisecond)
	close(events)
	<-done
	env.coord.reg.Wait()

	scans, cleanups := env.scanner.counts()
	if scans != 1 || cleanups != 1 {
		t.Errorf("scans = %d cleanups = %d, want 1 and 1", scans, cleanups)
	}
}

func TestHandleEventsWithoutDebounce(t *testing.T) {
	env := newTestEnv(t)

	events := make(chan filesystem.Event, 1)
	events <- filesystem.Event{Op: filesystem.OpMove, Path: "/media/renamed.mp4"}
	close(events)

	env.coord.HandleEvents(context.Background(), events)
	env.coord.reg.Wait()

	if scans, cleanups := env.scanner.counts(); scans != 1 || cleanups != 1 {
		t.Errorf("scans = %d cleanups = %d, want 1 and 1", scans, cleanups)
	}
}

func TestHandleEventsStopsOnCancel(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		env.coord.HandleEvents(ctx, make(chan filesystem.Event))
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("HandleEvents did not return after cancel")
	}
}
