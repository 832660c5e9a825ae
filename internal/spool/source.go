package spool

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/zhuj/datacollector/internal/logger"
	"github.com/zhuj/datacollector/internal/monitor"
	"github.com/zhuj/datacollector/internal/parser"
	"github.com/zhuj/datacollector/internal/reader"
	"github.com/zhuj/datacollector/internal/record"
)

// DefaultMaxBatchSize is used when neither the call nor the config sets one
const DefaultMaxBatchSize = 1000

// Config holds everything needed to build a Source
type Config struct {
	Strategy parser.Strategy
	Mapping  parser.FieldMapping

	// MaxLineLength truncates longer lines; zero means unlimited
	MaxLineLength int

	OnParseError OnParseError

	// MaxBatchSize applies when Produce is called with maxRecords <= 0
	MaxBatchSize int

	// EmitPartial treats an unterminated last line as data
	EmitPartial bool
}

// Batch is the result of one Produce call
type Batch struct {
	// ID correlates log lines of one call
	ID string

	File string

	// StartOffset is where reading began
	StartOffset int64

	Records []*record.Record

	// Offset is the resume offset, or Sentinel once the file is consumed
	Offset string

	// LinesRead counts lines pulled, including ignored ones
	LinesRead int

	// BytesRead is the number of file bytes consumed by this call
	BytesRead int64
}

// Done reports whether the batch ended at end of file
func (b *Batch) Done() bool {
	return b.Offset == Sentinel
}

// Position is the byte offset reached by the call even when Offset is the
// sentinel. Tailing callers persist this to pick up bytes appended later.
func (b *Batch) Position() int64 {
	if b.StartOffset < 0 {
		return -1
	}
	return b.StartOffset + b.BytesRead
}

// Option configures a Source
type Option func(*Source)

// WithLogger sets the logger
func WithLogger(l *logger.Logger) Option {
	return func(s *Source) {
		if l != nil {
			s.log = l.WithComponent("spool")
		}
	}
}

// WithCollector sets the metrics collector
func WithCollector(c monitor.Collector) Option {
	return func(s *Source) {
		if c != nil {
			s.collector = c
		}
	}
}

// Source turns a log file into batches of records. It holds no per-file
// state: every call opens, reads and closes the file, so the offset string
// is the only thing a caller has to persist. A Source is safe for concurrent
// use on different files.
type Source struct {
	matcher   *parser.Matcher
	policy    OnParseError
	maxBatch  int
	readOpts  reader.Options
	log       *logger.Logger
	collector monitor.Collector
}

// NewSource validates cfg and compiles its parsing strategy. A returned
// error is a *parser.ConfigError or a plain validation error; neither is
// ever produced per line.
func NewSource(cfg Config, opts ...Option) (*Source, error) {
	policy, err := ParsePolicy(string(cfg.OnParseError))
	if err != nil {
		return nil, err
	}
	if cfg.MaxLineLength < 0 {
		return nil, fmt.Errorf("max line length cannot be negative: %d", cfg.MaxLineLength)
	}

	matcher, err := parser.Compile(cfg.Strategy, cfg.Mapping)
	if err != nil {
		return nil, err
	}

	maxBatch := cfg.MaxBatchSize
	if maxBatch <= 0 {
		maxBatch = DefaultMaxBatchSize
	}

	s := &Source{
		matcher:  matcher,
		policy:   policy,
		maxBatch: maxBatch,
		readOpts: reader.Options{
			MaxLineLength: cfg.MaxLineLength,
			EmitPartial:   cfg.EmitPartial,
		},
		log:       logger.New("spool", nil),
		collector: monitor.Nop,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.log.DebugWithFields("source ready", []logger.Field{
		logger.F("mode", matcher.Mode()),
		logger.F("groups", matcher.NumGroups()),
		logger.F("fields", len(matcher.Mapping())),
		logger.F("on_parse_error", policy),
	})
	return s, nil
}

// Matcher returns the compiled matcher
func (s *Source) Matcher() *parser.Matcher {
	return s.matcher
}

// Policy returns the effective parse error policy
func (s *Source) Policy() OnParseError {
	return s.policy
}

// Produce reads up to maxRecords lines of path starting at offset and
// returns them as records along with the offset to resume from.
func (s *Source) Produce(path, offset string, maxRecords int) (*Batch, error) {
	start, err := ParseOffset(offset)
	if err != nil {
		return nil, err
	}
	if start < 0 {
		return &Batch{ID: uuid.NewString(), File: path, StartOffset: start, Offset: Sentinel}, nil
	}

	r, err := reader.Open(path, start, s.readOpts)
	if err != nil {
		s.collector.RecordFailure()
		return nil, err
	}
	defer func() {
		if cerr := r.Close(); cerr != nil {
			s.log.Warn("failed to close %s: %v", path, cerr)
		}
	}()

	return s.run(path, start, r, maxRecords)
}

// ProduceReader is Produce over an already open stream. name is used for
// record headers and errors only.
func (s *Source) ProduceReader(name string, rs io.ReadSeeker, offset string, maxRecords int) (*Batch, error) {
	start, err := ParseOffset(offset)
	if err != nil {
		return nil, err
	}
	if start < 0 {
		return &Batch{ID: uuid.NewString(), File: name, StartOffset: start, Offset: Sentinel}, nil
	}

	r, err := reader.NewSeeker(rs, start, s.readOpts)
	if err != nil {
		s.collector.RecordFailure()
		return nil, fmt.Errorf("failed to seek %s to %d: %w", name, start, err)
	}
	return s.run(name, start, r, maxRecords)
}

func (s *Source) run(name string, start int64, r *reader.Reader, maxRecords int) (*Batch, error) {
	began := time.Now()
	if maxRecords <= 0 {
		maxRecords = s.maxBatch
	}

	batch := &Batch{
		ID:          uuid.NewString(),
		File:        name,
		StartOffset: start,
	}

	// line outcomes are reported only once the batch is handed out
	var tally []lineTally

	next := ""
	for batch.LinesRead < maxRecords {
		line, err := r.Next()
		if errors.Is(err, io.EOF) {
			next = Sentinel
			break
		}
		if errors.Is(err, reader.ErrIncompleteLine) {
			s.log.Debug("%s: unterminated line at %d withheld", name, r.Offset())
			next = FormatOffset(r.Offset())
			break
		}
		if err != nil {
			s.collector.RecordFailure()
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}

		batch.LinesRead++
		rec, outcome, err := s.assemble(name, line)
		if err != nil {
			s.collector.RecordLine(monitor.LineRejected, line.Truncated)
			s.collector.RecordFailure()
			return nil, err
		}
		tally = append(tally, lineTally{outcome: outcome, truncated: line.Truncated})
		if rec != nil {
			batch.Records = append(batch.Records, rec)
		}
	}
	if next == "" {
		next = FormatOffset(r.Offset())
	}

	batch.Offset = next
	batch.BytesRead = r.Offset() - start

	elapsed := time.Since(began)
	for _, lt := range tally {
		s.collector.RecordLine(lt.outcome, lt.truncated)
	}
	s.collector.RecordBatch(batch.LinesRead, len(batch.Records), batch.BytesRead, elapsed)
	s.log.DebugWithFields("batch produced", []logger.Field{
		logger.F("batch", batch.ID),
		logger.F("file", name),
		logger.F("from", start),
		logger.F("next", batch.Offset),
		logger.F("lines", batch.LinesRead),
		logger.Count(len(batch.Records)),
		logger.Duration(elapsed),
	})
	return batch, nil
}

type lineTally struct {
	outcome   monitor.LineOutcome
	truncated bool
}

// assemble turns one line into a record, or applies the parse error policy.
// A nil record with a nil error means the line was dropped.
func (s *Source) assemble(name string, line reader.Line) (*record.Record, monitor.LineOutcome, error) {
	outcome := s.matcher.Extract(line.Text)

	if outcome.Kind == parser.Matched {
		b := record.NewBuilder(name, line.Start, line.Text)
		for _, v := range outcome.Values {
			b.Set(v.Path, v.Value)
		}
		return b.Truncated(line.Truncated).Build(), monitor.LineParsed, nil
	}

	switch s.policy {
	case PolicyIgnore:
		s.log.Debug("%s: skipping %s line at %d", name, outcome.Kind, line.Start)
		return nil, monitor.LineSkipped, nil
	case PolicyInclude:
		s.log.Debug("%s: including %s line at %d as is", name, outcome.Kind, line.Start)
		return record.NewBuilder(name, line.Start, line.Text).Truncated(line.Truncated).Build(), monitor.LineIncluded, nil
	default:
		return nil, monitor.LineRejected, &BatchError{
			File:    name,
			Offset:  line.Start,
			Line:    line.Text,
			Outcome: outcome.Kind,
			Cause:   outcome.Cause,
		}
	}
}
