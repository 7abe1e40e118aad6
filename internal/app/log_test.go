package app

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestZimpHandler_Handle(t *testing.T) {
	ts := time.Date(2024, 6, 15, 14, 30, 45, 0, time.UTC)

	tests := []struct {
		name    string
		opID    string
		level   slog.Level
		message string
		attrs   []slog.Attr
		want    string
	}{
		{
			name:    "basic info message",
			opID:    "op-123",
			level:   slog.LevelInfo,
			message: "import finished",
			want:    "2024-06-15T14:30:45Z\tINFO\top-123\timport finished\n",
		},
		{
			name:    "debug level",
			opID:    "op-456",
			level:   slog.LevelDebug,
			message: "archive staged",
			want:    "2024-06-15T14:30:45Z\tDEBUG\top-456\tarchive staged\n",
		},
		{
			name:    "with record attrs",
			opID:    "op-789",
			level:   slog.LevelWarn,
			message: "failed to write file to vault",
			attrs:   []slog.Attr{slog.String("path", "/a/b/file2.txt"), slog.Int("size", 20)},
			want:    "2024-06-15T14:30:45Z\tWARN\top-789\tfailed to write file to vault\tpath=/a/b/file2.txt\tsize=20\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := &zimpHandler{sinks: []logSink{{w: &buf, min: slog.LevelDebug}}, opID: tt.opID}

			r := slog.NewRecord(ts, tt.level, tt.message, 0)
			r.AddAttrs(tt.attrs...)

			if err := h.Handle(context.Background(), r); err != nil {
				t.Fatalf("Handle() error = %v", err)
			}
			if got := buf.String(); got != tt.want {
				t.Errorf("Handle() output =\n%q\nwant:\n%q", got, tt.want)
			}
		})
	}
}

func TestZimpHandler_SinkLevels(t *testing.T) {
	var file, stderr bytes.Buffer
	h := &zimpHandler{sinks: []logSink{
		{w: &file, min: slog.LevelDebug},
		{w: &stderr, min: slog.LevelWarn},
	}}
	logger := slog.New(h)

	logger.Debug("quiet")
	logger.Warn("loud")

	if got := strings.Count(file.String(), "\n"); got != 2 {
		t.Errorf("file sink got %d lines, want 2", got)
	}
	if strings.Contains(stderr.String(), "quiet") || !strings.Contains(stderr.String(), "loud") {
		t.Errorf("stderr sink = %q", stderr.String())
	}

	errOnly := &zimpHandler{sinks: []logSink{{w: &stderr, min: slog.LevelError}}}
	if errOnly.Enabled(context.Background(), slog.LevelWarn) {
		t.Error("Enabled(Warn) = true for an error-only handler")
	}
}

func TestZimpHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := &zimpHandler{sinks: []logSink{{w: &buf}}, opID: "op-1", attrs: []slog.Attr{slog.String("a", "1")}}

	h2 := h.WithAttrs([]slog.Attr{slog.String("component", "vault")}).(*zimpHandler)
	if len(h.attrs) != 1 {
		t.Errorf("original handler attrs modified: got %d, want 1", len(h.attrs))
	}

	r := slog.NewRecord(time.Now(), slog.LevelInfo, "upload", 0)
	r.AddAttrs(slog.String("key", "abc"))
	if err := h2.Handle(context.Background(), r); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	got := buf.String()
	for _, want := range []string{"a=1", "component=vault", "key=abc"} {
		if !strings.Contains(got, want) {
			t.Errorf("output %q missing %s", got, want)
		}
	}
}

func TestNewLogger(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "log")

	logger, f, err := newLogger(dir, "test-op")
	if err != nil {
		t.Fatalf("newLogger() error = %v", err)
	}
	defer f.Close()

	logger.Debug("written to file only", "k", "v")

	data, err := os.ReadFile(filepath.Join(dir, LogFileName))
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "test-op\twritten to file only\tk=v") {
		t.Errorf("log file = %q", data)
	}
}
