package parser

import (
	"strings"
)

// Mode selects how lines are matched
type Mode string

const (
	ModeCommonLogFormat       Mode = "common_log_format"
	ModeCombinedLogFormat     Mode = "combined_log_format"
	ModeApacheErrorLogFormat  Mode = "apache_error_log_format"
	ModeApacheCustomLogFormat Mode = "apache_custom_log_format"
	ModeRegex                 Mode = "regex"
	ModeGrok                  Mode = "grok"
	ModeStructured            Mode = "structured"
)

// ParseMode normalizes a mode name as found in config files or flags
func ParseMode(s string) Mode {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "-", "_")
	return Mode(s)
}

// Strategy describes the parsing strategy to compile
type Strategy struct {
	Mode Mode `yaml:"log_mode" json:"log_mode"`

	// CustomFormat is the Apache LogFormat template for apache_custom_log_format
	CustomFormat string `yaml:"custom_log_format,omitempty" json:"custom_log_format,omitempty"`

	// Regex is the RE2 pattern for regex mode
	Regex string `yaml:"regex,omitempty" json:"regex,omitempty"`

	// GrokPattern is the %{NAME:field} pattern for grok mode
	GrokPattern string `yaml:"grok_pattern,omitempty" json:"grok_pattern,omitempty"`

	// GrokDefinitions adds or overrides named grok patterns
	GrokDefinitions map[string]string `yaml:"grok_definitions,omitempty" json:"grok_definitions,omitempty"`
}

// GroupMapping binds a field path to a 1-based capture group
type GroupMapping struct {
	FieldPath string `yaml:"field_path" json:"field_path"`
	Group     int    `yaml:"group" json:"group"`
}

// FieldMapping is the ordered list of fields to extract
type FieldMapping []GroupMapping

// OutcomeKind tags the result of matching one line
type OutcomeKind int

const (
	Matched OutcomeKind = iota
	Unmatched
	Malformed
)

// String methods for OutcomeKind
func (k OutcomeKind) String() string {
	switch k {
	case Matched:
		return "matched"
	case Unmatched:
		return "unmatched"
	case Malformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Value is one extracted field
type Value struct {
	Path  string
	Value string
}

// Outcome is the result of applying a matcher to one line
type Outcome struct {
	Kind   OutcomeKind
	Values []Value // set when Kind is Matched, in mapping order
	Cause  error   // set when Kind is Malformed
}
