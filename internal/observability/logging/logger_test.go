package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNewJSONIncludesService(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "medscan-api", "info", "json")
	logger.Info("document_processed", "document_id", "doc-1")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if entry["service"] != "medscan-api" || entry["document_id"] != "doc-1" {
		t.Fatalf("unexpected entry %v", entry)
	}
}

func TestNewTextFormatAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "medscan-worker", "warn", "text")
	logger.Info("hidden")
	logger.Warn("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "msg=visible") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
