package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func envFrom(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func TestConfigure(t *testing.T) {
	dir := t.TempDir()
	cgroup := filepath.Join(dir, "memory.max")
	if err := os.WriteFile(cgroup, []byte("2147483648\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	unlimited := filepath.Join(dir, "unlimited")
	if err := os.WriteFile(unlimited, []byte("max\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	missing := filepath.Join(dir, "missing")

	tests := []struct {
		name       string
		env        map[string]string
		cgroup     string
		source     string
		configured bool
		goLimit    int64
	}{
		{"nothing set", nil, missing, "none", false, 0},
		{"memory limit", map[string]string{"MEMORY_LIMIT": "1000000000"}, missing, "MEMORY_LIMIT", true, 750000000},
		{"custom ratio", map[string]string{"MEMORY_LIMIT": "1000000000", "MEMORY_RATIO": "0.5"}, missing, "MEMORY_LIMIT", true, 500000000},
		{"ratio out of range", map[string]string{"MEMORY_LIMIT": "1000000000", "MEMORY_RATIO": "1.5"}, missing, "MEMORY_LIMIT", true, 750000000},
		{"bad limit falls back to cgroup", map[string]string{"MEMORY_LIMIT": "lots"}, cgroup, "cgroup", true, 1610612736},
		{"cgroup limit", nil, cgroup, "cgroup", true, 1610612736},
		{"cgroup unlimited", nil, unlimited, "none", false, 0},
		{"explicit GOMEMLIMIT wins", map[string]string{"GOMEMLIMIT": "1GiB", "MEMORY_LIMIT": "1000"}, cgroup, "GOMEMLIMIT", true, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := configure(envFrom(tt.env), tt.cgroup)
			if got.Source != tt.source || got.Configured != tt.configured {
				t.Errorf("configure() = %+v, want source %q configured %v", got, tt.source, tt.configured)
			}
			if tt.goLimit >= 0 && got.GoMemLimit != tt.goLimit {
				t.Errorf("GoMemLimit = %d, want %d", got.GoMemLimit, tt.goLimit)
			}
		})
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{512, "512 B"},
		{1536, "1.5 KiB"},
		{750 * 1024 * 1024, "750.0 MiB"},
		{2 << 30, "2.0 GiB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.in); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func newTestMonitor(heap *uint64) *Monitor {
	cfg := DefaultConfig()
	cfg.Limit = 1000
	m := NewMonitor(cfg)
	m.sample = func() uint64 { return *heap }
	return m
}

func TestMonitorPauseAndResume(t *testing.T) {
	heap := uint64(500)
	m := newTestMonitor(&heap)
	defer m.Stop()

	m.check()
	if m.Paused() {
		t.Fatal("Expected running at 50% usage")
	}
	if err := m.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() = %v while running", err)
	}

	heap = 900
	m.check()
	if !m.Paused() || m.Usage() != 0.9 {
		t.Fatalf("Expected paused at 90%%, usage %v", m.Usage())
	}

	released := make(chan error, 1)
	go func() { released <- m.Wait(context.Background()) }()

	// Between the marks the state holds.
	heap = 800
	m.check()
	select {
	case <-released:
		t.Fatal("Wait returned before usage dropped below the high water mark")
	case <-time.After(50 * time.Millisecond):
	}

	heap = 600
	m.check()
	select {
	case err := <-released:
		if err != nil {
			t.Errorf("Wait() = %v after resume", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after resume")
	}
}

func TestMonitorWaitHonorsContext(t *testing.T) {
	heap := uint64(950)
	m := newTestMonitor(&heap)
	defer m.Stop()
	m.check()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := m.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() = %v, want deadline exceeded", err)
	}
}

func TestMonitorStopReleasesWaiters(t *testing.T) {
	heap := uint64(950)
	m := newTestMonitor(&heap)
	m.check()

	done := make(chan error, 1)
	go func() { done <- m.Wait(context.Background()) }()
	m.Stop()
	m.Stop()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Wait() = %v after Stop", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Stop did not release waiter")
	}
}
