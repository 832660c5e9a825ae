package parser

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/yildizm/go-logparser"
)

// structuredFields are the positional groups exposed by the structured mode
var structuredFields = []string{"timestamp", "level", "message"}

// timestampKeys are the keys go-logparser reads a timestamp from, in its
// lookup order
var timestampKeys = []string{"timestamp", "time", "@timestamp", "ts"}

// timestampLayouts are the layouts go-logparser accepts for timestamp text
var timestampLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000Z",
	"2006-01-02 15:04:05",
	"Jan 02 15:04:05",
}

// structuredEngine decodes JSON, logfmt and plain text lines with
// go-logparser and exposes timestamp, level and message as groups 1-3.
// The timestamp group is the timestamp text as written in the line, or
// empty when the line has none.
type structuredEngine struct{}

func compileStructured(Strategy) (*Compiled, error) {
	return &Compiled{
		Engine:   structuredEngine{},
		Pattern:  "auto(json|logfmt|text)",
		Defaults: positional(structuredFields),
	}, nil
}

func (structuredEngine) Match(line string) ([]string, error) {
	if strings.TrimSpace(line) == "" {
		return nil, nil
	}

	entries, err := logparser.New().ParseString(line)
	if err != nil {
		return nil, fmt.Errorf("structured decode: %w", err)
	}
	if len(entries) == 0 {
		return nil, nil
	}

	entry := entries[0]
	return []string{line, rawTimestamp(strings.TrimSpace(line), entry.Timestamp), entry.Level, entry.Message}, nil
}

func (structuredEngine) NumGroups() int {
	return len(structuredFields)
}

// rawTimestamp finds the text in line that decodes to ts. A line without
// one gets a decoder supplied wall clock time, which never matches.
func rawTimestamp(line string, ts time.Time) string {
	for _, candidate := range timestampCandidates(line) {
		if t, ok := decodeTimestamp(candidate); ok && t.Equal(ts) {
			return candidate
		}
	}
	return ""
}

func timestampCandidates(line string) []string {
	var out []string

	if strings.HasPrefix(line, "{") {
		var raw map[string]json.RawMessage
		if json.Unmarshal([]byte(line), &raw) == nil {
			for _, key := range timestampKeys {
				v, ok := raw[key]
				if !ok {
					continue
				}
				var s string
				if json.Unmarshal(v, &s) == nil {
					out = append(out, s)
				} else {
					out = append(out, string(v))
				}
			}
		}
	}

	for _, key := range timestampKeys {
		if v, ok := logfmtValue(line, key); ok {
			out = append(out, v)
		}
	}

	// plain text lines lead with the timestamp
	for _, n := range []int{len("Jan 02 15:04:05"), len("2006-01-02 15:04:05")} {
		if len(line) >= n {
			out = append(out, line[:n])
		}
	}
	if i := strings.IndexByte(line, ' '); i > 0 {
		out = append(out, line[:i])
	}
	return out
}

// logfmtValue returns the value of key=value in line, unquoting it
func logfmtValue(line, key string) (string, bool) {
	prefix := key + "="
	pos := 0
	for {
		i := strings.Index(line[pos:], prefix)
		if i < 0 {
			return "", false
		}
		i += pos
		if i == 0 || line[i-1] == ' ' {
			rest := line[i+len(prefix):]
			if strings.HasPrefix(rest, `"`) {
				if end := strings.IndexByte(rest[1:], '"'); end >= 0 {
					return rest[1 : end+1], true
				}
				return rest[1:], true
			}
			if end := strings.IndexByte(rest, ' '); end >= 0 {
				return rest[:end], true
			}
			return rest, true
		}
		pos = i + len(prefix)
	}
}

func decodeTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Unix(int64(f), 0), true
	}
	return time.Time{}, false
}
