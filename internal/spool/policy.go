package spool

import (
	"fmt"
	"strings"
)

// OnParseError decides what happens to a line the matcher cannot parse
type OnParseError string

const (
	// PolicyError aborts the batch with a *BatchError
	PolicyError OnParseError = "error"

	// PolicyIgnore drops the line and keeps going
	PolicyIgnore OnParseError = "ignore"

	// PolicyInclude emits a record carrying only the raw line
	PolicyInclude OnParseError = "include"
)

// Policies lists the accepted policy names
func Policies() []OnParseError {
	return []OnParseError{PolicyError, PolicyIgnore, PolicyInclude}
}

// ParsePolicy decodes a policy name. The empty string selects PolicyError.
func ParsePolicy(s string) (OnParseError, error) {
	switch p := OnParseError(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyError, nil
	case PolicyError, PolicyIgnore, PolicyInclude:
		return p, nil
	case "include_as_is", "include-as-is":
		return PolicyInclude, nil
	default:
		return "", fmt.Errorf("unknown on_parse_error policy %q (want error, ignore or include)", s)
	}
}

func (p OnParseError) String() string {
	return string(p)
}
