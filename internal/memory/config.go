package memory

import (
	"fmt"
	"os"
	"runtime/debug"
	"strings"

	"github.com/spf13/cast"

	"media-library/internal/logging"
)

// DefaultMemoryRatio is the share of the container limit given to the Go
// heap. The rest is left for ffmpeg and ffprobe children.
const DefaultMemoryRatio = 0.75

// cgroupMemoryMax is the cgroup v2 limit file.
const cgroupMemoryMax = "/sys/fs/cgroup/memory.max"

// ConfigResult reports what ConfigureFromEnv decided.
type ConfigResult struct {
	Configured     bool
	Source         string // "GOMEMLIMIT", "MEMORY_LIMIT", "cgroup" or "none"
	ContainerLimit int64
	GoMemLimit     int64
	Ratio          float64
}

// ConfigureFromEnv sets GOMEMLIMIT unless the environment already does.
// Call it early in main.
func ConfigureFromEnv() ConfigResult {
	res := configure(os.Getenv, cgroupMemoryMax)
	if res.Configured && res.Source != "GOMEMLIMIT" {
		debug.SetMemoryLimit(res.GoMemLimit)
		logging.Info("Configured GOMEMLIMIT: %s (%.0f%% of %s from %s)",
			formatBytes(res.GoMemLimit), res.Ratio*100, formatBytes(res.ContainerLimit), res.Source)
	}
	return res
}

// configure computes the limit without applying it.
func configure(getenv func(string) string, cgroupPath string) ConfigResult {
	if v := getenv("GOMEMLIMIT"); v != "" {
		logging.Info("GOMEMLIMIT set via environment: %s", v)
		return ConfigResult{Configured: true, Source: "GOMEMLIMIT", GoMemLimit: debug.SetMemoryLimit(-1)}
	}

	limit, source := int64(0), ""
	if v := getenv("MEMORY_LIMIT"); v != "" {
		n, err := cast.ToInt64E(strings.TrimSpace(v))
		if err != nil || n <= 0 {
			logging.Warn("Ignoring MEMORY_LIMIT %q: not a positive byte count", v)
		} else {
			limit, source = n, "MEMORY_LIMIT"
		}
	}
	if limit == 0 {
		if n := readCgroupLimit(cgroupPath); n > 0 {
			limit, source = n, "cgroup"
		}
	}
	if limit == 0 {
		logging.Debug("No container memory limit found, GOMEMLIMIT left unset")
		return ConfigResult{Source: "none"}
	}

	ratio := DefaultMemoryRatio
	if v := getenv("MEMORY_RATIO"); v != "" {
		r, err := cast.ToFloat64E(strings.TrimSpace(v))
		if err != nil || r <= 0 || r > 1 {
			logging.Warn("MEMORY_RATIO %q out of range (0-1], using %.2f", v, DefaultMemoryRatio)
		} else {
			ratio = r
		}
	}

	return ConfigResult{
		Configured:     true,
		Source:         source,
		ContainerLimit: limit,
		GoMemLimit:     int64(float64(limit) * ratio),
		Ratio:          ratio,
	}
}

// readCgroupLimit returns the cgroup v2 memory limit, or 0 when the file is
// absent or says "max".
func readCgroupLimit(path string) int64 {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	n, err := cast.ToInt64E(strings.TrimSpace(string(b)))
	if err != nil {
		return 0
	}
	return n
}

func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
