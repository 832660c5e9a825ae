package record

import (
	"encoding/json"
	"testing"
)

func TestBuilderOrdering(t *testing.T) {
	rec := NewBuilder("/var/log/a.log", 83, "raw line").
		Set("remoteHost", "127.0.0.1").
		Set("/status", "200").
		Set("remoteHost", "127.0.0.2").
		Build()

	want := []string{"/originalLine", "/remoteHost", "/status", "/truncated"}
	got := rec.Paths()
	if len(got) != len(want) {
		t.Fatalf("want %d paths, got %d (%v)", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("path %d: want %s, got %s", i, want[i], got[i])
		}
	}

	if rec.GetString("/remoteHost") != "127.0.0.2" {
		t.Errorf("want replaced value 127.0.0.2, got %s", rec.GetString("/remoteHost"))
	}
	if rec.OriginalLine() != "raw line" {
		t.Errorf("want original line 'raw line', got %q", rec.OriginalLine())
	}
	if rec.Truncated() {
		t.Error("record should not be truncated")
	}
	if rec.Header().SourceID != "/var/log/a.log::83" {
		t.Errorf("unexpected source id %s", rec.Header().SourceID)
	}
}

func TestBuilderReservedPaths(t *testing.T) {
	rec := NewBuilder("f", 0, "line").
		Set("originalLine", "spoofed").
		Set("/truncated", "yes").
		Truncated(true).
		Build()

	if rec.OriginalLine() != "line" {
		t.Errorf("original line overwritten: %q", rec.OriginalLine())
	}
	if !rec.Truncated() {
		t.Error("want truncated=true")
	}
	if rec.Len() != 2 {
		t.Errorf("want 2 fields, got %d", rec.Len())
	}
}

func TestHasAndGet(t *testing.T) {
	rec := NewBuilder("f", 0, "line").Set("a", "1").Build()

	if !rec.Has("a") || !rec.Has("/a") {
		t.Error("Has should accept paths with and without leading slash")
	}
	if rec.Has("/b") {
		t.Error("unexpected field /b")
	}
	if _, ok := rec.Get("/b"); ok {
		t.Error("Get should report missing field")
	}
	if rec.GetString("/b") != "" {
		t.Error("GetString of a missing field should be empty")
	}
}

func TestMarshalJSONKeepsOrder(t *testing.T) {
	rec := NewBuilder("f", 0, `say "hi"`).
		Set("zeta", "z").
		Set("alpha", "a").
		Build()

	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	want := `{"originalLine":"say \"hi\"","zeta":"z","alpha":"a","truncated":false}`
	if string(data) != want {
		t.Errorf("want %s, got %s", want, data)
	}
}

func TestNormalizePath(t *testing.T) {
	tests := map[string]string{
		"remoteHost":  "/remoteHost",
		"/remoteHost": "/remoteHost",
		"//nested/a":  "/nested/a",
		" spaced ":    "/spaced",
		"/":           "/",
	}
	for in, want := range tests {
		if got := NormalizePath(in); got != want {
			t.Errorf("NormalizePath(%q) = %q, want %q", in, got, want)
		}
	}
}
