package middleware

import (
	"bytes"
	"compress/gzip"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"media-library/internal/metrics"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	orig := log.Writer()
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(orig) })
	return &buf
}

func okHandler(body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	})
}

func TestStatusRecorder(t *testing.T) {
	w := httptest.NewRecorder()
	rec := newStatusRecorder(w)

	if rec.status != http.StatusOK {
		t.Errorf("Expected default status 200, got %d", rec.status)
	}

	rec.WriteHeader(http.StatusAccepted)
	rec.WriteHeader(http.StatusInternalServerError)
	if _, err := rec.Write([]byte("hello")); err != nil {
		t.Fatal(err)
	}

	if rec.status != http.StatusAccepted || w.Code != http.StatusAccepted {
		t.Errorf("Expected first status to stick, got %d / %d", rec.status, w.Code)
	}
	if rec.bytes != 5 {
		t.Errorf("Expected 5 bytes, got %d", rec.bytes)
	}
}

func TestLoggingSkip(t *testing.T) {
	tests := []struct {
		name   string
		config LoggingConfig
		path   string
		skip   bool
	}{
		{"api call", DefaultLoggingConfig(), "/api/videos", false},
		{"health logged by default", DefaultLoggingConfig(), "/healthz", false},
		{"health disabled", LoggingConfig{}, "/livez", true},
		{"status poll", DefaultLoggingConfig(), "/api/scan/status", true},
		{"cleanup status poll", DefaultLoggingConfig(), "/api/library/cleanup/status", true},
		{"jobs poll", DefaultLoggingConfig(), "/api/jobs", true},
		{"status polls enabled", LoggingConfig{LogStatusPolls: true}, "/api/transcode/status", false},
		{"thumbnail", DefaultLoggingConfig(), "/api/thumbnail/12", true},
		{"poster", DefaultLoggingConfig(), "/api/show_poster/12", true},
		{"static asset", DefaultLoggingConfig(), "/static/App.JS", true},
		{"static enabled", LoggingConfig{LogStaticFiles: true}, "/api/thumbnail/12", false},
		{"video stream", DefaultLoggingConfig(), "/api/video/12", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.config.skip(tt.path); got != tt.skip {
				t.Errorf("skip(%q) = %v, want %v", tt.path, got, tt.skip)
			}
		})
	}
}

func TestLoggerMiddleware(t *testing.T) {
	buf := captureLog(t)

	handler := Logger(DefaultLoggingConfig())(okHandler(`{"ok":true}`))
	req := httptest.NewRequest("GET", "/api/videos?page=2", nil)
	req.RemoteAddr = "192.0.2.7:51234"
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11)")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	line := buf.String()
	for _, want := range []string{"192.0.2.7 GET /api/videos page=2 200 11 ", `"Mozilla/5.0 (X11)"`} {
		if !strings.Contains(line, want) {
			t.Errorf("Expected %q in log line %q", want, line)
		}
	}

	buf.Reset()
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/scan/status", nil))
	if buf.Len() != 0 {
		t.Errorf("Expected status poll to be skipped, got %q", buf.String())
	}
}

func TestFormatW3CSanitizes(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/videos", nil)
	req.Header.Set("User-Agent", "evil\r\n2024-01-01 00:00:00 forged\x1b[31m")
	req.Header.Set("Range", "bytes=0-")
	rec := newStatusRecorder(httptest.NewRecorder())

	line := formatW3C(time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC), req, rec, 1500*time.Millisecond)

	if strings.ContainsAny(line, "\r\n\x1b") {
		t.Errorf("Expected control characters stripped, got %q", line)
	}
	if !strings.HasPrefix(line, "2024-05-06 07:08:09 ") {
		t.Errorf("Unexpected timestamp in %q", line)
	}
	if !strings.Contains(line, " 200 0 1500 bytes=0- ") {
		t.Errorf("Expected status, size, time and range in %q", line)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded chain", map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.1"}, "10.0.0.1:80", "203.0.113.5"},
		{"real ip", map[string]string{"X-Real-IP": "203.0.113.9"}, "10.0.0.1:80", "203.0.113.9"},
		{"remote addr", nil, "198.51.100.2:4444", "198.51.100.2"},
		{"ipv6 remote", nil, "[2001:db8::1]:4444", "2001:db8::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := clientIP(r); got != tt.want {
				t.Errorf("clientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	r := mux.NewRouter()
	r.Use(Metrics(DefaultMetricsConfig()))
	r.Handle("/api/video/{id:[0-9]+}/progress", okHandler("{}")).Methods("POST")
	r.Handle("/healthz", okHandler("{}"))

	counter := metrics.HTTPRequestsTotal.WithLabelValues("POST", "/api/video/{id:[0-9]+}/progress", "200")
	before := testutil.ToFloat64(counter)

	for _, id := range []string{"1", "2", "3"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/api/video/"+id+"/progress", nil))
	}

	if got := testutil.ToFloat64(counter) - before; got != 3 {
		t.Errorf("Expected 3 requests under one route label, got %v", got)
	}

	health := metrics.HTTPRequestsTotal.WithLabelValues("GET", "/healthz", "200")
	before = testutil.ToFloat64(health)
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/healthz", nil))
	if got := testutil.ToFloat64(health) - before; got != 0 {
		t.Errorf("Expected health checks to be skipped, got %v", got)
	}
}

func TestCompress(t *testing.T) {
	large := `{"articles":[` + strings.Repeat(`{"title":"episode"},`, 200) + `{}]}`

	tests := []struct {
		name     string
		handler  http.Handler
		accept   string
		rangeHdr string
		gzipped  bool
	}{
		{"large json", okHandler(large), "gzip, deflate", "", true},
		{"client without gzip", okHandler(large), "", "", false},
		{"range request", okHandler(large), "gzip", "bytes=0-10", false},
		{
			name: "video",
			handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "video/mp4")
				_, _ = io.WriteString(w, large)
			}),
			accept: "gzip",
		},
		{
			name: "small declared length",
			handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Content-Length", "2")
				_, _ = io.WriteString(w, "{}")
			}),
			accept: "gzip",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/videos_all", nil)
			if tt.accept != "" {
				req.Header.Set("Accept-Encoding", tt.accept)
			}
			if tt.rangeHdr != "" {
				req.Header.Set("Range", tt.rangeHdr)
			}
			w := httptest.NewRecorder()
			Compress(DefaultCompressionConfig())(tt.handler).ServeHTTP(w, req)

			gotGzip := w.Header().Get("Content-Encoding") == "gzip"
			if gotGzip != tt.gzipped {
				t.Fatalf("Content-Encoding gzip = %v, want %v", gotGzip, tt.gzipped)
			}
			if !gotGzip {
				return
			}

			zr, err := gzip.NewReader(w.Body)
			if err != nil {
				t.Fatal(err)
			}
			body, err := io.ReadAll(zr)
			if err != nil {
				t.Fatal(err)
			}
			if string(body) != large {
				t.Error("Decompressed body does not match")
			}
		})
	}
}

func TestCompressPreservesStatus(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_, _ = io.WriteString(w, `{"message":"Scan started in background."}`)
	})

	req := httptest.NewRequest("POST", "/api/scan_videos", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	Compress(DefaultCompressionConfig())(handler).ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Errorf("Expected 202, got %d", w.Code)
	}
}
