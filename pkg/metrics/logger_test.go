package metrics

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func fixedTime() time.Time {
	return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(WithOutput(&buf), WithLevel(LevelWarn))

	l.Debug("debug msg")
	l.Info("info msg")
	l.Warn("warn msg")
	l.Error("error msg")

	out := buf.String()
	if strings.Contains(out, "debug msg") || strings.Contains(out, "info msg") {
		t.Error("messages below the level were emitted")
	}
	if !strings.Contains(out, "warn msg") || !strings.Contains(out, "error msg") {
		t.Error("messages at or above the level were suppressed")
	}
}

func TestLoggerJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(
		WithOutput(&buf),
		WithFormat(FormatJSON),
		WithName("link"),
		WithTimeFunc(fixedTime),
	)

	l.Info("paired", Fields{"channel": 2})

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry["msg"] != "paired" || entry["level"] != "INFO" || entry["logger"] != "link" {
		t.Errorf("unexpected entry: %v", entry)
	}
	if entry["channel"] != float64(2) {
		t.Errorf("field lost: %v", entry["channel"])
	}
}

func TestLoggerNamedAndWith(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(WithOutput(&buf), WithName("link")).Named("pairing").With(Fields{"id": "AAAA"})

	l.Info("started")
	out := buf.String()
	if !strings.Contains(out, "[link.pairing]") {
		t.Errorf("derived name missing: %q", out)
	}
	if !strings.Contains(out, "id=AAAA") {
		t.Errorf("default field missing: %q", out)
	}
}

func TestLoggerFieldsSorted(t *testing.T) {
	got := formatFields(Fields{"zeta": 1, "alpha": 2, "mid": 3})
	if got != "alpha=2 mid=3 zeta=1" {
		t.Errorf("fields not sorted: %q", got)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		"Warning": LevelWarn,
		"error":   LevelError,
		"off":     LevelSilent,
		"bogus":   LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNopLoggerSilent(t *testing.T) {
	// Must not panic or write anywhere.
	l := NopLogger()
	l.Error("nothing")
}
