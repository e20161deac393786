package transcoder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"media-library/internal/logging"
	"media-library/internal/metrics"
)

// ErrNoOutput is returned when frame extraction exits cleanly without image data.
var ErrNoOutput = errors.New("ffmpeg ran but produced no image data")

// ToolError is a failed external tool invocation. Error returns the tool's
// stderr verbatim when there is any, so callers can surface it unchanged.
type ToolError struct {
	Tool   string
	Err    error
	Stderr string
}

func (e *ToolError) Error() string {
	if s := strings.TrimSpace(e.Stderr); s != "" {
		return s
	}
	return fmt.Sprintf("%s: %v", e.Tool, e.Err)
}

func (e *ToolError) Unwrap() error { return e.Err }

// Hardware acceleration modes. "qsv" and "vaapi" both select the VAAPI
// encode path; anything else uses software x264.
const (
	ProfileSoftware = "software"
	ProfileHardware = "hardware"
)

// Config configures the external tool adapter.
type Config struct {
	FFmpegPath   string
	FFprobePath  string
	ProbeTimeout time.Duration
	HWAccel      string
	VAAPIDevice  string
}

// DefaultConfig returns a config using binaries from PATH.
func DefaultConfig() Config {
	return Config{
		FFmpegPath:   "ffmpeg",
		FFprobePath:  "ffprobe",
		ProbeTimeout: 30 * time.Second,
		HWAccel:      "none",
		VAAPIDevice:  "/dev/dri/renderD128",
	}
}

// Transcoder runs ffprobe and ffmpeg. Running ffmpeg processes are tracked
// so Cleanup can stop them at shutdown.
type Transcoder struct {
	cfg       Config
	processes map[*exec.Cmd]string
	processMu sync.Mutex
}

// New creates a new Transcoder instance.
func New(cfg Config) *Transcoder {
	def := DefaultConfig()
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = def.FFmpegPath
	}
	if cfg.FFprobePath == "" {
		cfg.FFprobePath = def.FFprobePath
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = def.ProbeTimeout
	}
	if cfg.VAAPIDevice == "" {
		cfg.VAAPIDevice = def.VAAPIDevice
	}
	return &Transcoder{
		cfg:       cfg,
		processes: make(map[*exec.Cmd]string),
	}
}

// Profile returns the encode profile selected by the hardware-acceleration mode.
func (t *Transcoder) Profile() string {
	switch strings.ToLower(t.cfg.HWAccel) {
	case "qsv", "vaapi":
		return ProfileHardware
	default:
		return ProfileSoftware
	}
}

// Probe reads technical metadata for a video, bounded by the probe timeout.
func (t *Transcoder) Probe(ctx context.Context, path string) (*ProbeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, t.cfg.ProbeTimeout)
	defer cancel()

	start := time.Now()
	out, err := t.run(ctx, t.cfg.FFprobePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,duration,codec_name:stream_tags=rotate:stream_side_data=rotation:stream_disposition=rotate",
		"-of", "json",
		path,
	)
	metrics.ScannerProbeDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ScannerProbeFailures.Inc()
		return nil, err
	}

	res, err := ParseProbe(out)
	if err != nil {
		metrics.ScannerProbeFailures.Inc()
		return nil, err
	}
	return res, nil
}

// ExtractFrame returns a single JPEG frame at offset, read from ffmpeg's
// stdout. Seeking happens before the input for speed. The call is bounded by
// the probe timeout.
func (t *Transcoder) ExtractFrame(ctx context.Context, path string, offset time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, t.cfg.ProbeTimeout)
	defer cancel()

	out, err := t.run(ctx, t.cfg.FFmpegPath,
		"-ss", FormatTimestamp(offset),
		"-i", path,
		"-vframes", "1",
		"-q:v", "2",
		"-f", "image2pipe",
		"pipe:1",
	)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNoOutput
	}
	return out, nil
}

// Transcode writes an optimized MP4 of src to dst using the configured
// profile, scaled to fit 1920x1080. Output goes to a temporary file that is
// renamed into place only after ffmpeg exits successfully, so dst never
// holds a partial file.
func (t *Transcoder) Transcode(ctx context.Context, src, dst string) error {
	profile := t.Profile()
	tmp := dst + ".part"
	defer func() {
		if _, err := os.Stat(tmp); err == nil {
			if rmErr := os.Remove(tmp); rmErr != nil {
				logging.Warn("failed to remove partial transcode %s: %v", tmp, rmErr)
			}
		}
	}()

	start := time.Now()
	_, err := t.run(ctx, t.cfg.FFmpegPath, t.transcodeArgs(profile, src, tmp)...)
	metrics.TranscodeDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.TranscodeJobsTotal.WithLabelValues(profile, "error").Inc()
		return err
	}

	if err := os.Rename(tmp, dst); err != nil {
		metrics.TranscodeJobsTotal.WithLabelValues(profile, "error").Inc()
		return fmt.Errorf("failed to move transcode into place: %w", err)
	}
	metrics.TranscodeJobsTotal.WithLabelValues(profile, "success").Inc()
	return nil
}

func (t *Transcoder) transcodeArgs(profile, src, out string) []string {
	const maxBox = "w='min(iw,1920)':h='min(ih,1080)'"

	var args []string
	if profile == ProfileHardware {
		args = []string{
			"-y",
			"-vaapi_device", t.cfg.VAAPIDevice,
			"-i", src,
			"-vf", "format=nv12,hwupload,scale_vaapi=" + maxBox,
			"-c:v", "h264_vaapi",
		}
	} else {
		args = []string{
			"-y",
			"-i", src,
			"-c:v", "libx264",
			"-preset", "fast",
			"-crf", "23",
			"-vf", "scale=" + maxBox + ":force_original_aspect_ratio=decrease:force_divisible_by=2",
		}
	}
	return append(args,
		"-c:a", "aac",
		"-b:a", "128k",
		"-movflags", "+faststart",
		"-f", "mp4",
		out,
	)
}

// run executes a tool, tracking the process for Cleanup, and returns stdout.
func (t *Transcoder) run(ctx context.Context, tool string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, tool, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, &ToolError{Tool: tool, Err: err}
	}

	t.processMu.Lock()
	t.processes[cmd] = tool
	t.processMu.Unlock()

	err := cmd.Wait()

	t.processMu.Lock()
	delete(t.processes, cmd)
	t.processMu.Unlock()

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, &ToolError{Tool: tool, Err: ctxErr, Stderr: fmt.Sprintf("%s timed out", tool)}
		}
		return nil, &ToolError{Tool: tool, Err: err, Stderr: stderr.String()}
	}
	return stdout.Bytes(), nil
}

// Cleanup kills all running ffmpeg/ffprobe processes.
func (t *Transcoder) Cleanup() {
	t.processMu.Lock()
	defer t.processMu.Unlock()

	for cmd, tool := range t.processes {
		if cmd.Process != nil {
			logging.Info("Killing %s process %d", tool, cmd.Process.Pid)
			if err := cmd.Process.Kill(); err != nil {
				logging.Warn("failed to kill %s process: %v", tool, err)
			}
		}
	}
}

// FormatTimestamp renders an offset as H:MM:SS.mmm for ffmpeg's -ss.
func FormatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	d -= s * time.Second
	ms := d / time.Millisecond
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}
