package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

type stubConfig struct{ level string }

func (s stubConfig) GetLogLevel() string { return s.level }

func TestParseLevelFallsBackToInfo(t *testing.T) {
	cases := map[string]zerolog.Level{
		"DEBUG":   zerolog.DebugLevel,
		"warning": zerolog.WarnLevel,
		"ERROR":   zerolog.ErrorLevel,
		"bogus":   zerolog.InfoLevel,
		"":        zerolog.InfoLevel,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q): expected %v, got %v", in, want, got)
		}
	}
}

func TestLoggerRespectsLevelAndTagsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerTo(&buf, stubConfig{level: "WARNING"}, "engine")

	l.Info("dropped %d", 1)
	if buf.Len() != 0 {
		t.Fatalf("expected info to be filtered, got %q", buf.String())
	}

	l.Warning("kept %s", "this")
	line := strings.TrimSpace(buf.String())
	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("expected json log line, got %q: %v", line, err)
	}
	if entry["component"] != "engine" || entry["message"] != "kept this" || entry["level"] != "warn" {
		t.Fatalf("unexpected entry %v", entry)
	}
}

func TestNamedSharesSink(t *testing.T) {
	var buf bytes.Buffer
	root := NewLoggerTo(&buf, nil, "root")
	root.Named("child").Error("boom")
	if !strings.Contains(buf.String(), `"component":"child"`) {
		t.Fatalf("expected child component, got %q", buf.String())
	}
}
