package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Reserved field paths present on every record
const (
	OriginalLinePath = "/originalLine"
	TruncatedPath    = "/truncated"
)

// Header carries where a record came from
type Header struct {
	SourceID string `json:"sourceId"`
	File     string `json:"file,omitempty"`
	Offset   int64  `json:"offset"`
}

// Field is a single path/value pair of a record
type Field struct {
	Path  string
	Value interface{}
}

// Record is an ordered mapping from field path to scalar value.
// A Record is immutable once returned by Builder.Build.
type Record struct {
	header Header
	fields []Field
	index  map[string]int
}

// NormalizePath returns the path with a single leading slash
func NormalizePath(path string) string {
	path = strings.TrimSpace(path)
	return "/" + strings.TrimLeft(path, "/")
}

// SourceID formats the record source identifier for a file and line offset
func SourceID(file string, offset int64) string {
	return fmt.Sprintf("%s::%d", file, offset)
}

// Header returns the record header
func (r *Record) Header() Header {
	return r.header
}

// Has reports whether the record has a field at path
func (r *Record) Has(path string) bool {
	_, ok := r.index[NormalizePath(path)]
	return ok
}

// Get returns the value stored at path
func (r *Record) Get(path string) (interface{}, bool) {
	i, ok := r.index[NormalizePath(path)]
	if !ok {
		return nil, false
	}
	return r.fields[i].Value, true
}

// GetString returns the value at path formatted as a string
func (r *Record) GetString(path string) string {
	v, ok := r.Get(path)
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// OriginalLine returns the raw line text
func (r *Record) OriginalLine() string {
	return r.GetString(OriginalLinePath)
}

// Truncated reports whether the raw line was cut at the max line length
func (r *Record) Truncated() bool {
	v, _ := r.Get(TruncatedPath)
	b, _ := v.(bool)
	return b
}

// Fields returns a copy of the fields in insertion order
func (r *Record) Fields() []Field {
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	return out
}

// Paths returns the field paths in insertion order
func (r *Record) Paths() []string {
	paths := make([]string, len(r.fields))
	for i, f := range r.fields {
		paths[i] = f.Path
	}
	return paths
}

// Len returns the number of fields
func (r *Record) Len() int {
	return len(r.fields)
}

// MarshalJSON writes the record as an ordered JSON object keyed by field
// name without the leading slash
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(strings.TrimPrefix(f.Path, "/"))
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Path, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
