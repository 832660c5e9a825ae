package logger

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestVerboseGating(t *testing.T) {
	tests := []struct {
		name      string
		verbose   bool
		wantDebug bool
	}{
		{"quiet", false, false},
		{"verbose", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l := NewWithWriter("spool", &buf, func() bool { return tt.verbose })

			l.Debug("debug %d", 1)
			l.Info("info")
			l.Warn("warn")
			l.Error("error")

			out := buf.String()
			if got := strings.Contains(out, "DEBUG [spool] debug 1"); got != tt.wantDebug {
				t.Errorf("debug shown = %v, want %v:\n%s", got, tt.wantDebug, out)
			}
			if got := strings.Contains(out, "INFO [spool] info"); got != tt.wantDebug {
				t.Errorf("info shown = %v, want %v:\n%s", got, tt.wantDebug, out)
			}
			if !strings.Contains(out, "WARN [spool] warn") || !strings.Contains(out, "ERROR [spool] error") {
				t.Errorf("warn and error must always be shown:\n%s", out)
			}
		})
	}
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("follow", &buf, func() bool { return true })

	l.DebugWithFields("batch produced", []Field{
		File("app.log"),
		Offset("83"),
		Count(2),
		Duration(1500 * time.Millisecond),
	})
	l.WarnWithFields("read failed", []Field{Error(errors.New("boom"))})

	out := buf.String()
	for _, want := range []string{
		"[file=app.log offset=83 count=2 duration=1.5s]",
		"WARN [follow] read failed [error=boom]",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	base := NewWithWriter("", &buf, nil)
	base.Warn("no component")
	base.WithComponent("checkpoint").Warn("scoped")

	out := buf.String()
	if !strings.Contains(out, "[main] no component") {
		t.Errorf("empty component should log as main:\n%s", out)
	}
	if !strings.Contains(out, "[checkpoint] scoped") {
		t.Errorf("derived logger should share the writer:\n%s", out)
	}
}

type staticChecker bool

func (s staticChecker) IsVerbose() bool { return bool(s) }

func TestNewWithChecker(t *testing.T) {
	l := New("cli", staticChecker(true))
	if l.verboseChecker == nil || !l.verboseChecker.IsVerbose() {
		t.Errorf("checker not installed")
	}
}
