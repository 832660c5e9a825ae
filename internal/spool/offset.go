package spool

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Sentinel is the offset returned once a file has been fully consumed.
// Passing it back to Produce yields an empty batch.
const Sentinel = "-1"

// ErrInvalidOffset is returned for offsets that are neither a non-negative
// integer nor the sentinel
var ErrInvalidOffset = errors.New("invalid offset")

// ParseOffset decodes a caller-owned offset string. The empty string is the
// start of the file. The sentinel decodes to -1.
func ParseOffset(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if s == Sentinel {
		return -1, nil
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w %q: %v", ErrInvalidOffset, s, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("%w %q: negative", ErrInvalidOffset, s)
	}
	return n, nil
}

// FormatOffset encodes a byte position as an offset string
func FormatOffset(n int64) string {
	if n < 0 {
		return Sentinel
	}
	return strconv.FormatInt(n, 10)
}

// IsConsumed reports whether offset is the sentinel
func IsConsumed(offset string) bool {
	return strings.TrimSpace(offset) == Sentinel
}
