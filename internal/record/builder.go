package record

// Builder assembles a Record. The original line is always the first
// field and the truncated flag the last.
type Builder struct {
	rec       *Record
	truncated bool
}

// NewBuilder starts a record for a raw line read at offset in file
func NewBuilder(file string, offset int64, originalLine string) *Builder {
	b := &Builder{
		rec: &Record{
			header: Header{
				SourceID: SourceID(file, offset),
				File:     file,
				Offset:   offset,
			},
			index: make(map[string]int),
		},
	}
	b.set(OriginalLinePath, originalLine)
	return b
}

// Set adds or replaces a field. Replacing keeps the original position.
func (b *Builder) Set(path string, value interface{}) *Builder {
	path = NormalizePath(path)
	if path == OriginalLinePath || path == TruncatedPath {
		return b
	}
	b.set(path, value)
	return b
}

// Truncated marks the record as cut at the max line length
func (b *Builder) Truncated(truncated bool) *Builder {
	b.truncated = truncated
	return b
}

// Build finalizes the record. The builder must not be reused.
func (b *Builder) Build() *Record {
	b.set(TruncatedPath, b.truncated)
	rec := b.rec
	b.rec = nil
	return rec
}

func (b *Builder) set(path string, value interface{}) {
	if i, ok := b.rec.index[path]; ok {
		b.rec.fields[i].Value = value
		return
	}
	b.rec.index[path] = len(b.rec.fields)
	b.rec.fields = append(b.rec.fields, Field{Path: path, Value: value})
}
