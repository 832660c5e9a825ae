package parser

import (
	"fmt"
	"strings"
)

// ConfigErrorKind categorizes a compile-time failure
type ConfigErrorKind string

const (
	// KindInvalidPattern indicates a pattern, template or grok expression that does not compile
	KindInvalidPattern ConfigErrorKind = "invalid_pattern"

	// KindGroupOutOfRange indicates a mapping entry outside [1, group count]
	KindGroupOutOfRange ConfigErrorKind = "group_out_of_range"

	// KindDuplicateField indicates two mapping entries with the same path
	KindDuplicateField ConfigErrorKind = "duplicate_field"

	// KindInvalidField indicates an empty or reserved field path
	KindInvalidField ConfigErrorKind = "invalid_field"

	// KindUnknownMode indicates a mode with no registered compiler
	KindUnknownMode ConfigErrorKind = "unknown_mode"
)

// ConfigError reports a parsing configuration that cannot be compiled.
// It is returned only while building a matcher, never per line.
type ConfigError struct {
	Kind   ConfigErrorKind
	Mode   Mode
	Detail string
	Cause  error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	parts := []string{"config error", fmt.Sprintf("type=%s", e.Kind)}
	if e.Mode != "" {
		parts = append(parts, fmt.Sprintf("mode=%s", e.Mode))
	}
	if e.Detail != "" {
		parts = append(parts, e.Detail)
	}
	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause=%s", e.Cause.Error()))
	}
	return strings.Join(parts, ": ")
}

// Unwrap returns the underlying error
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// Is matches another ConfigError of the same kind
func (e *ConfigError) Is(target error) bool {
	if ce, ok := target.(*ConfigError); ok {
		return ce.Kind == "" || ce.Kind == e.Kind
	}
	return false
}

// Sentinel targets for errors.Is
var (
	ErrConfig          = &ConfigError{}
	ErrInvalidPattern  = &ConfigError{Kind: KindInvalidPattern}
	ErrGroupOutOfRange = &ConfigError{Kind: KindGroupOutOfRange}
	ErrDuplicateField  = &ConfigError{Kind: KindDuplicateField}
	ErrInvalidField    = &ConfigError{Kind: KindInvalidField}
	ErrUnknownMode     = &ConfigError{Kind: KindUnknownMode}
)

func invalidPattern(mode Mode, detail string, cause error) *ConfigError {
	return &ConfigError{Kind: KindInvalidPattern, Mode: mode, Detail: detail, Cause: cause}
}
