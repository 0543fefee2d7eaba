package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewJSONCarriesServiceAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "listing-api", "warn", "json")
	logger.Info("hidden")
	logger.Warn("stream_frame_dropped", "bytes", 12)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected only the warn record, got %q", buf.String())
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &record); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if record["service"] != "listing-api" || record["msg"] != "stream_frame_dropped" {
		t.Fatalf("unexpected record: %v", record)
	}
}

func TestNewTextFormat(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "listing-cli", "debug", "TEXT").Debug("dial")
	if !strings.Contains(buf.String(), "msg=dial") || !strings.Contains(buf.String(), "service=listing-cli") {
		t.Fatalf("unexpected text output %q", buf.String())
	}
}
