package jobs

import (
	"context"
	"errors"
	"time"

	"media-library/internal/filesystem"
	"media-library/internal/metrics"
)

// Decision is what a batch of filesystem events asks for.
type Decision struct {
	Scan    bool
	Cleanup bool
}

// Policy maps filesystem events to job triggers. Events arriving within
// Debounce of the first one in a window are handled together.
type Policy struct {
	Debounce time.Duration
}

// Decide is pure: created files want an incremental scan, deleted files want
// a cleanup. A move reports the old path, so it wants both: the scan picks up
// the new name and the cleanup drops the old row.
func (Policy) Decide(batch []filesystem.Event) Decision {
	var d Decision
	for _, ev := range batch {
		switch ev.Op {
		case filesystem.OpCreate:
			d.Scan = true
		case filesystem.OpMove:
			d.Scan = true
			d.Cleanup = true
		case filesystem.OpDelete:
			d.Cleanup = true
		}
	}
	return d
}

// HandleEvents consumes events until ctx is done or the channel closes,
// starting at most one scan and one cleanup per debounce window. Triggers
// that find their job already running are dropped.
func (c *Coordinator) HandleEvents(ctx context.Context, events <-chan filesystem.Event) {
	policy := Policy{Debounce: c.cfg.Debounce}

	var (
		pending []filesystem.Event
		timer   *time.Timer
		fire    <-chan time.Time
	)
	flush := func() {
		if len(pending) > 0 {
			c.apply(policy.Decide(pending))
			pending = pending[:0]
		}
		fire = nil
	}
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				flush()
				return
			}
			metrics.JobEventsTotal.WithLabelValues(ev.Op.String()).Inc()
			c.log.Debug("file event: %s %s", ev.Op, ev.Path)
			pending = append(pending, ev)

			if policy.Debounce <= 0 {
				flush()
				continue
			}
			if fire == nil {
				if timer == nil {
					timer = time.NewTimer(policy.Debounce)
				} else {
					timer.Reset(policy.Debounce)
				}
				fire = timer.C
			}
		case <-fire:
			flush()
		}
	}
}

func (c *Coordinator) apply(d Decision) {
	if d.Scan {
		if _, err := c.StartScan(false, true); errors.Is(err, ErrAlreadyRunning) {
			c.log.Info("watch: scan already in progress, skipping trigger")
		} else if err != nil {
			c.log.Error("watch: failed to start scan: %v", err)
		} else {
			c.log.Info("watch: new files detected, scan started")
		}
	}
	if d.Cleanup {
		if _, err := c.StartCleanup(); errors.Is(err, ErrAlreadyRunning) {
			c.log.Info("watch: cleanup already in progress, skipping trigger")
		} else if err != nil {
			c.log.Error("watch: failed to start cleanup: %v", err)
		} else {
			c.log.Info("watch: files removed or moved, cleanup started")
		}
	}
}
