package jobs

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"media-library/internal/logging"
	"media-library/internal/metrics"
)

// Body is the work of one run. The returned message becomes the terminal
// status message on success; a non-nil error puts the kind in PhaseError.
type Body func(ctx context.Context, run *Run) (string, error)

type slot struct {
	mu     sync.Mutex // held for the lifetime of a run
	status atomic.Pointer[Status]
}

// Registry admits at most one run per kind and publishes status snapshots.
// Start never blocks: a busy kind is rejected, not queued.
type Registry struct {
	ctx   context.Context
	slots map[Kind]*slot
	wg    sync.WaitGroup
	log   *logging.Logger
}

// NewRegistry returns a registry whose runs are cancelled with ctx.
func NewRegistry(ctx context.Context) *Registry {
	r := &Registry{
		ctx:   ctx,
		slots: make(map[Kind]*slot, len(Kinds)),
		log:   logging.New("jobs"),
	}
	for _, k := range Kinds {
		s := &slot{}
		s.status.Store(&Status{Kind: k, Phase: PhaseIdle})
		r.slots[k] = s
	}
	return r
}

// Status returns the latest snapshot for kind.
func (r *Registry) Status(kind Kind) Status {
	s, ok := r.slots[kind]
	if !ok {
		return Status{Kind: kind, Phase: PhaseIdle}
	}
	return *s.status.Load()
}

// Busy reports whether a run of kind currently holds the lock.
func (r *Registry) Busy(kind Kind) bool {
	s := r.slots[kind]
	if s.mu.TryLock() {
		s.mu.Unlock()
		return false
	}
	return true
}

// Start launches body on its own goroutine if no run of kind is active.
func (r *Registry) Start(kind Kind, message string, body Body) (Status, error) {
	return r.start(Status{Kind: kind, Message: message}, body)
}

func (r *Registry) start(initial Status, body Body) (Status, error) {
	s, ok := r.slots[initial.Kind]
	if !ok {
		return Status{}, fmt.Errorf("unknown job kind %q", initial.Kind)
	}
	if !s.mu.TryLock() {
		metrics.JobRejectedTotal.WithLabelValues(string(initial.Kind)).Inc()
		return r.Status(initial.Kind), ErrAlreadyRunning
	}

	now := time.Now()
	initial.Phase = initial.Kind.runningPhase()
	initial.RunID = uuid.NewString()
	initial.StartedAt = &now
	s.status.Store(&initial)

	run := &Run{kind: initial.Kind, slot: s}
	metrics.JobRunning.WithLabelValues(string(initial.Kind)).Set(1)

	r.wg.Add(1)
	go r.execute(run, body)
	return initial, nil
}

func (r *Registry) execute(run *Run, body Body) {
	defer r.wg.Done()

	var (
		message string
		err     error
	)
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
		r.finish(run, message, err)
	}()

	message, err = body(r.ctx, run)
}

// finish publishes the terminal snapshot and releases the kind's lock.
func (r *Registry) finish(run *Run, message string, err error) {
	kind := string(run.kind)
	prev := run.slot.status.Load()
	now := time.Now()

	final := *prev
	final.FinishedAt = &now
	if err != nil {
		final.Phase = PhaseError
		final.Error = err.Error()
		if message == "" {
			message = err.Error()
		}
		final.Message = message
		r.log.Error("%s run %s failed: %v", kind, prev.RunID, err)
		metrics.JobRunsTotal.WithLabelValues(kind, "error").Inc()
	} else {
		final.Phase = PhaseIdle
		final.Message = message
		final.ItemID = 0
		r.log.Info("%s run %s finished: %s", kind, prev.RunID, message)
		metrics.JobRunsTotal.WithLabelValues(kind, "success").Inc()
	}
	if prev.StartedAt != nil {
		metrics.JobLastDuration.WithLabelValues(kind).Set(now.Sub(*prev.StartedAt).Seconds())
	}
	metrics.JobRunning.WithLabelValues(kind).Set(0)

	run.slot.status.Store(&final)
	run.slot.mu.Unlock()
}

// Wait blocks until every started run has finished.
func (r *Registry) Wait() {
	r.wg.Wait()
}

// Run is the handle a Body uses to publish progress.
type Run struct {
	kind Kind
	slot *slot
}

// Kind returns the run's job kind.
func (run *Run) Kind() Kind {
	return run.kind
}

// Report replaces the running snapshot's message and counters.
func (run *Run) Report(message string, progress, total int) {
	next := *run.slot.status.Load()
	next.Message = message
	next.Progress = progress
	next.Total = total
	run.slot.status.Store(&next)
}
