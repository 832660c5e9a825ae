package spool

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/zhuj/datacollector/internal/parser"
)

// ErrParseFailure matches every *BatchError
var ErrParseFailure = errors.New("parse failure")

// BatchError aborts a Produce call under the error policy. No records of the
// failed call are handed out; the caller retries from its previous offset.
type BatchError struct {
	File    string
	Offset  int64 // start of the offending line
	Line    string
	Outcome parser.OutcomeKind
	Cause   error
}

// Error implements the error interface
func (e *BatchError) Error() string {
	msg := fmt.Sprintf("cannot parse line at %s offset %d (%s): %q", e.File, e.Offset, e.Outcome, preview(e.Line))
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error
func (e *BatchError) Unwrap() error {
	return e.Cause
}

// Is matches ErrParseFailure
func (e *BatchError) Is(target error) bool {
	return target == ErrParseFailure
}

const previewLen = 120

func preview(s string) string {
	if len(s) <= previewLen {
		return s
	}
	n := previewLen
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
