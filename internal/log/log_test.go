package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func capture(t *testing.T, level, format string) *bytes.Buffer {
	t.Helper()
	Configure(level, format)
	t.Cleanup(func() { Configure("info", "console") })
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	return &buf
}

func TestInfoWithFields(t *testing.T) {
	buf := capture(t, "info", "console")

	Info("Inventory built", "groups", 3, "hosts", 12)

	out := buf.String()
	if !strings.Contains(out, "Inventory built") {
		t.Errorf("Output %q missing the message", out)
	}
	if !strings.Contains(out, "groups=3") || !strings.Contains(out, "hosts=12") {
		t.Errorf("Output %q missing the key/value fields", out)
	}
}

func TestLevelFiltering(t *testing.T) {
	buf := capture(t, "warn", "console")

	Debug("hidden")
	Info("also hidden")
	Warn("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("Output %q contains messages below the configured level", out)
	}
	if !strings.Contains(out, "visible") {
		t.Errorf("Output %q missing the warning", out)
	}
}

func TestJSONFormat(t *testing.T) {
	buf := capture(t, "info", "json")

	Error("Refresh failed", "error", "timeout")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Output %q is not JSON: %v", buf.String(), err)
	}
	if entry["msg"] != "Refresh failed" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["error"] != "timeout" {
		t.Errorf("error = %v", entry["error"])
	}
	if entry["level"] != "error" {
		t.Errorf("level = %v", entry["level"])
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"trace", "trace"},
		{"debug", "debug"},
		{"INFO", "info"},
		{"warn", "warning"},
		{"warning", "warning"},
		{"error", "error"},
		{"bogus", "info"},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in).String(); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestOddFieldCountDropsTrailingKey(t *testing.T) {
	buf := capture(t, "info", "console")

	Info("msg", "key", "value", "dangling")

	out := buf.String()
	if !strings.Contains(out, "key=value") {
		t.Errorf("Output %q missing the complete pair", out)
	}
	if strings.Contains(out, "dangling") {
		t.Errorf("Output %q contains the dangling key", out)
	}
}
