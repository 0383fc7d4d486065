package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", DebugLevel},
		{"INFO", InfoLevel},
		{"warn", WarnLevel},
		{"warning", WarnLevel},
		{"error", ErrorLevel},
		{"fatal", FatalLevel},
		{"", InfoLevel},
		{"verbose", InfoLevel},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestComponentPrefixAndLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&Config{Level: "warn", Output: &buf})

	c := l.Component("broker")
	c.Info("hidden")
	c.Warn("Link request cancelled", "token", "abc")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line written at warn level: %q", out)
	}
	if !strings.Contains(out, "broker") || !strings.Contains(out, "Link request cancelled") {
		t.Errorf("missing prefix or message: %q", out)
	}
	if !strings.Contains(out, "token=abc") {
		t.Errorf("missing key/value pair: %q", out)
	}
}

func TestSetDefault(t *testing.T) {
	prev := GetDefault()
	t.Cleanup(func() { SetDefault(prev) })

	var buf bytes.Buffer
	SetDefault(New(&Config{Level: "debug", Output: &buf}))

	GetDefault().Component("poller").Debug("tick", "attempt", 3)
	if !strings.Contains(buf.String(), "attempt=3") {
		t.Errorf("default logger did not write: %q", buf.String())
	}
}

func TestDiscard(t *testing.T) {
	l := Discard()
	l.Error("dropped")
	if l.GetLevel() != FatalLevel {
		t.Errorf("Discard level = %v, want fatal", l.GetLevel())
	}
}
