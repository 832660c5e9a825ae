package reader

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf8"
)

const defaultBufferSize = 64 * 1024

// ErrIncompleteLine is returned at end of input when the final line has no
// terminator and Options.EmitPartial is false. The bytes of that line are
// not consumed.
var ErrIncompleteLine = errors.New("incomplete line at end of input")

// Options controls line splitting
type Options struct {
	// MaxLineLength truncates line text to this many bytes. Zero or
	// negative means unlimited.
	MaxLineLength int

	// EmitPartial returns an unterminated final line as data instead of
	// withholding it until a terminator is written.
	EmitPartial bool

	// BufferSize is the read buffer size
	BufferSize int
}

// Line is one raw line of input
type Line struct {
	// Text is the line without its terminator, cut to MaxLineLength
	Text string

	// Start is the byte offset of the first byte of the line
	Start int64

	// End is the byte offset right after the terminator. Reading again
	// from End yields the next line.
	End int64

	// Truncated is set when Text was cut to MaxLineLength
	Truncated bool
}

// Reader yields lines from a byte stream together with their offsets.
// A Reader is not safe for concurrent use.
type Reader struct {
	br     *bufio.Reader
	closer io.Closer
	opts   Options
	pos    int64
	err    error
}

// New creates a reader over r. start is the offset of the first byte r
// will return and is used only to compute line offsets.
func New(r io.Reader, start int64, opts Options) *Reader {
	size := opts.BufferSize
	if size <= 0 {
		size = defaultBufferSize
	}
	return &Reader{
		br:   bufio.NewReaderSize(r, size),
		opts: opts,
		pos:  start,
	}
}

// Open opens path and positions a reader at start. The caller must Close
// the returned reader.
func Open(path string, start int64, opts Options) (*Reader, error) {
	if start < 0 {
		return nil, fmt.Errorf("negative start offset %d", start)
	}

	// #nosec G304 - path is chosen by the caller
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	r, err := NewSeeker(file, start, opts)
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	r.closer = file
	return r, nil
}

// NewSeeker seeks rs to start and creates a reader over it
func NewSeeker(rs io.ReadSeeker, start int64, opts Options) (*Reader, error) {
	if _, err := rs.Seek(start, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to seek to offset %d: %w", start, err)
	}
	return New(rs, start, opts), nil
}

// Offset returns the offset of the next unread line
func (r *Reader) Offset() int64 {
	return r.pos
}

// Close releases the underlying file when the reader was created by Open
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	err := r.closer.Close()
	r.closer = nil
	return err
}

// Next returns the next complete line. It returns io.EOF when no bytes
// remain and ErrIncompleteLine when only an unterminated tail remains.
// Once Next returns an error every later call returns the same error.
func (r *Reader) Next() (Line, error) {
	if r.err != nil {
		return Line{}, r.err
	}

	limit := -1
	if r.opts.MaxLineLength > 0 {
		// one extra byte so a trailing \r can be recognized after a cut
		limit = r.opts.MaxLineLength + 1
	}

	var (
		text       []byte
		n          int64
		last       byte
		terminated bool
	)

	for {
		chunk, err := r.br.ReadSlice('\n')
		n += int64(len(chunk))

		body := chunk
		if err == nil {
			terminated = true
			body = chunk[:len(chunk)-1]
		}
		if len(body) > 0 {
			last = body[len(body)-1]
			text = appendBounded(text, body, limit)
		}

		if err == nil {
			break
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if errors.Is(err, io.EOF) {
			if n == 0 {
				r.err = io.EOF
				return Line{}, io.EOF
			}
			if !r.opts.EmitPartial {
				r.err = ErrIncompleteLine
				return Line{}, ErrIncompleteLine
			}
			r.err = io.EOF
			break
		}
		r.err = err
		return Line{}, fmt.Errorf("failed to read line at offset %d: %w", r.pos, err)
	}

	contentLen := n
	if terminated {
		contentLen--
		if contentLen > 0 && last == '\r' {
			contentLen--
		}
	}

	line := Line{Start: r.pos, End: r.pos + n}
	maxLen := r.opts.MaxLineLength
	if maxLen > 0 && contentLen > int64(maxLen) {
		cut := maxLen
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		line.Text = string(text[:cut])
		line.Truncated = true
	} else {
		line.Text = string(text[:contentLen])
	}

	r.pos = line.End
	return line, nil
}

// appendBounded appends b to dst without letting dst grow past limit
// bytes. A negative limit means unbounded.
func appendBounded(dst, b []byte, limit int) []byte {
	if limit < 0 {
		return append(dst, b...)
	}
	room := limit - len(dst)
	if room <= 0 {
		return dst
	}
	if len(b) > room {
		b = b[:room]
	}
	return append(dst, b...)
}
