package spool

import (
	"errors"
	"testing"
)

func TestParseOffset(t *testing.T) {
	tests := []struct {
		input   string
		want    int64
		wantErr bool
	}{
		{input: "", want: 0},
		{input: "0", want: 0},
		{input: " 165 ", want: 165},
		{input: "-1", want: -1},
		{input: "-2", wantErr: true},
		{input: "x", wantErr: true},
		{input: "99999999999999999999", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseOffset(tt.input)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidOffset) {
				t.Errorf("ParseOffset(%q): want ErrInvalidOffset, got %v", tt.input, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseOffset(%q) error = %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseOffset(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}

	if FormatOffset(83) != "83" || FormatOffset(-1) != Sentinel {
		t.Errorf("FormatOffset mismatch")
	}
	if !IsConsumed(" -1") || IsConsumed("0") {
		t.Errorf("IsConsumed mismatch")
	}
}

func TestParsePolicy(t *testing.T) {
	tests := map[string]OnParseError{
		"":              PolicyError,
		"ERROR":         PolicyError,
		"ignore":        PolicyIgnore,
		"include":       PolicyInclude,
		"include_as_is": PolicyInclude,
	}
	for input, want := range tests {
		got, err := ParsePolicy(input)
		if err != nil {
			t.Errorf("ParsePolicy(%q) error = %v", input, err)
			continue
		}
		if got != want {
			t.Errorf("ParsePolicy(%q) = %s, want %s", input, got, want)
		}
	}

	if _, err := ParsePolicy("drop"); err == nil {
		t.Errorf("expected error for unknown policy")
	}
	if len(Policies()) != 3 {
		t.Errorf("want 3 policies")
	}
}
