package jobs

import (
	"errors"
	"time"
)

// ErrAlreadyRunning is returned when a job of the same kind holds its lock.
var ErrAlreadyRunning = errors.New("job already running")

// Kind names a background job. Each kind runs at most once at a time.
type Kind string

const (
	KindScan       Kind = "scan"
	KindThumbnails Kind = "thumbnails"
	KindTranscode  Kind = "transcode"
	KindCleanup    Kind = "cleanup"
)

// Kinds lists every job kind in display order.
var Kinds = []Kind{KindScan, KindThumbnails, KindTranscode, KindCleanup}

// Phase is the coarse state shown to clients.
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseError       Phase = "error"
	PhaseScanning    Phase = "scanning"
	PhaseGenerating  Phase = "generating"
	PhaseTranscoding Phase = "transcoding"
	PhaseCleaning    Phase = "cleaning"
)

// runningPhase is the phase a kind reports while its body executes.
func (k Kind) runningPhase() Phase {
	switch k {
	case KindScan:
		return PhaseScanning
	case KindThumbnails:
		return PhaseGenerating
	case KindTranscode:
		return PhaseTranscoding
	default:
		return PhaseCleaning
	}
}

// Status is a point-in-time snapshot of one job kind. Snapshots are never
// mutated after they are published; updates replace the whole value.
type Status struct {
	Kind       Kind       `json:"kind"`
	Phase      Phase      `json:"status"`
	Message    string     `json:"message"`
	Progress   int        `json:"progress"`
	Total      int        `json:"total"`
	ItemID     int64      `json:"video_id,omitempty"`
	RunID      string     `json:"run_id,omitempty"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// Running reports whether the snapshot belongs to an active run.
func (s Status) Running() bool {
	return s.Phase != PhaseIdle && s.Phase != PhaseError
}
