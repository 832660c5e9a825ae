package monitor

import (
	"time"
)

// Collector receives per-batch ingest events. The batch assembler calls it
// once per Produce call and once per line outcome. Line outcomes of a failed
// call are not reported, except for the rejected line itself.
type Collector interface {
	// RecordBatch records one finished Produce call
	RecordBatch(lines, records int, bytes int64, duration time.Duration)

	// RecordLine records the outcome of a single line
	RecordLine(outcome LineOutcome, truncated bool)

	// RecordFailure records a Produce call that returned an error
	RecordFailure()
}

// LineOutcome is what the assembler did with a line
type LineOutcome string

const (
	LineParsed   LineOutcome = "parsed"
	LineSkipped  LineOutcome = "skipped"
	LineIncluded LineOutcome = "included"
	LineRejected LineOutcome = "rejected"
)

// Nop is a Collector that discards everything
var Nop Collector = nopCollector{}

type nopCollector struct{}

func (nopCollector) RecordBatch(int, int, int64, time.Duration) {}

func (nopCollector) RecordLine(LineOutcome, bool) {}

func (nopCollector) RecordFailure() {}

// Counters is the default Collector. All methods are safe for concurrent use
// so one set can be shared by goroutines producing from different files.
type Counters struct {
	batches   *Counter
	failures  *Counter
	lines     *Counter
	records   *Counter
	bytes     *Counter
	parsed    *Counter
	skipped   *Counter
	included  *Counter
	rejected  *Counter
	truncated *Counter
	produce   *Timer
	startTime time.Time
}

// NewCounters creates a zeroed counter set
func NewCounters() *Counters {
	return &Counters{
		batches:   NewCounter("batches"),
		failures:  NewCounter("failed_batches"),
		lines:     NewCounter("lines_read"),
		records:   NewCounter("records"),
		bytes:     NewCounter("bytes_consumed"),
		parsed:    NewCounter("lines_parsed"),
		skipped:   NewCounter("lines_skipped"),
		included:  NewCounter("lines_included_raw"),
		rejected:  NewCounter("lines_rejected"),
		truncated: NewCounter("lines_truncated"),
		produce:   NewTimer("produce"),
		startTime: time.Now(),
	}
}

// RecordBatch implements Collector
func (c *Counters) RecordBatch(lines, records int, bytes int64, duration time.Duration) {
	c.batches.Inc()
	c.lines.Add(int64(lines))
	c.records.Add(int64(records))
	c.bytes.Add(bytes)
	c.produce.Record(duration)
}

// RecordLine implements Collector
func (c *Counters) RecordLine(outcome LineOutcome, truncated bool) {
	switch outcome {
	case LineParsed:
		c.parsed.Inc()
	case LineSkipped:
		c.skipped.Inc()
	case LineIncluded:
		c.included.Inc()
	case LineRejected:
		c.rejected.Inc()
	}
	if truncated {
		c.truncated.Inc()
	}
}

// RecordFailure implements Collector
func (c *Counters) RecordFailure() {
	c.failures.Inc()
}

// Snapshot returns the current values
func (c *Counters) Snapshot() Snapshot {
	elapsed := time.Since(c.startTime)
	lines := c.lines.Get()

	var rate float64
	if secs := elapsed.Seconds(); secs > 0 {
		rate = float64(lines) / secs
	}

	return Snapshot{
		Timestamp:      time.Now(),
		Elapsed:        elapsed,
		Batches:        c.batches.Get(),
		FailedBatches:  c.failures.Get(),
		LinesRead:      lines,
		Records:        c.records.Get(),
		BytesConsumed:  c.bytes.Get(),
		Parsed:         c.parsed.Get(),
		Skipped:        c.skipped.Get(),
		IncludedRaw:    c.included.Get(),
		Rejected:       c.rejected.Get(),
		Truncated:      c.truncated.Get(),
		LinesPerSecond: rate,
		AvgProduceTime: c.produce.AvgTime(),
		MaxProduceTime: c.produce.MaxTime(),
	}
}

// Reset zeroes every counter and restarts the rate clock
func (c *Counters) Reset() {
	for _, ctr := range []*Counter{
		c.batches, c.failures, c.lines, c.records, c.bytes,
		c.parsed, c.skipped, c.included, c.rejected, c.truncated,
	} {
		ctr.Reset()
	}
	c.produce.Reset()
	c.startTime = time.Now()
}

// Snapshot is a point-in-time copy of a Counters set
type Snapshot struct {
	Timestamp      time.Time     `json:"timestamp"`
	Elapsed        time.Duration `json:"elapsed_ns"`
	Batches        int64         `json:"batches"`
	FailedBatches  int64         `json:"failed_batches"`
	LinesRead      int64         `json:"lines_read"`
	Records        int64         `json:"records"`
	BytesConsumed  int64         `json:"bytes_consumed"`
	Parsed         int64         `json:"parsed"`
	Skipped        int64         `json:"skipped"`
	IncludedRaw    int64         `json:"included_raw"`
	Rejected       int64         `json:"rejected"`
	Truncated      int64         `json:"truncated"`
	LinesPerSecond float64       `json:"lines_per_second"`
	AvgProduceTime time.Duration `json:"avg_produce_ns"`
	MaxProduceTime time.Duration `json:"max_produce_ns"`
}
