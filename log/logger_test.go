package log

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	specs := []struct {
		in     string
		exp    Level
		expErr bool
	}{
		{"debug", Debug, false},
		{"INFO", Info, false},
		{"", Notice, false},
		{"warn", Warning, false},
		{"error", Error, false},
		{"trace", Notice, true},
	}

	for _, s := range specs {
		got, err := ParseLevel(s.in)
		if (err != nil) != s.expErr {
			t.Fatalf("[%q] expected error to be %t; got %v", s.in, s.expErr, err)
		}
		if got != s.exp {
			t.Fatalf("[%q] expected level %s; got %s", s.in, s.exp, got)
		}
	}
}

func TestSetLevelFiltersMessages(t *testing.T) {
	var buf bytes.Buffer
	SetSink(&buf)
	defer SetLevel(Notice)

	logger := New("test")
	SetLevel(Warning)
	logger.Noticef("hidden")
	logger.Warningf("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("expected notice message to be filtered; got %q", out)
	}
	if !strings.Contains(out, "visible") {
		t.Fatalf("expected warning message to be logged; got %q", out)
	}
}
