package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestHasFmtVerb(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"plain message", false},
		{"value is %d", true},
		{"state %s -> %s", true},
		{"100%% done", false},
		{"trailing %", false},
		{"%v", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := hasFmtVerb(tt.in); got != tt.want {
				t.Errorf("hasFmtVerb(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]int{
		"debug":   LevelDebug,
		"DEBUG":   LevelDebug,
		" warn ":  LevelWarn,
		"warning": LevelWarn,
		"error":   LevelError,
		"trace":   LevelTrace,
		"":        LevelInfo,
		"bogus":   LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestTraceOnlyAtTraceLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(LogConfig{Level: LevelDebug, Output: &buf})
	emit(l, traceLevel, "hidden")
	emit(l, log.DebugLevel, "shown")
	if strings.Contains(buf.String(), "hidden") {
		t.Errorf("trace line printed at debug level: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("debug line missing: %q", buf.String())
	}

	buf.Reset()
	l = NewLogger(LogConfig{Level: LevelTrace, Output: &buf})
	emit(l, traceLevel, "visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Errorf("trace line missing at trace level: %q", buf.String())
	}
}

func TestEmitCallForms(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(LogConfig{Level: LevelInfo, Format: FormatJSON, Output: &buf})

	emit(l, log.InfoLevel, "retry %d of %d", 2, 5)
	emit(l, log.InfoLevel, "job done", "id", "abc")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines: %q", len(lines), buf.String())
	}

	var first, second map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("line 1 not JSON: %v", err)
	}
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("line 2 not JSON: %v", err)
	}
	if first["msg"] != "retry 2 of 5" {
		t.Errorf("printf form: %v", first)
	}
	if second["msg"] != "job done" || second["id"] != "abc" {
		t.Errorf("key/value form: %v", second)
	}
}
