package formatter

import (
	"fmt"
	"strings"

	"github.com/yildizm/go-termfmt"

	"github.com/zhuj/datacollector/internal/record"
	"github.com/zhuj/datacollector/internal/spool"
)

// terminalFormatter formats a batch as text for terminal display using go-termfmt
type terminalFormatter struct {
	opts *termfmt.TerminalOptions
}

// NewTerminal creates a new terminal formatter with optional color support
func NewTerminal(color bool) Formatter {
	opts := termfmt.DefaultOptions()
	opts.Color = color
	opts.Emoji = false
	return &terminalFormatter{opts: opts}
}

func (f *terminalFormatter) Format(batch *spool.Batch) ([]byte, error) {
	var b strings.Builder

	f.writeHeader(&b, batch.File)
	f.writeSummary(&b, batch)

	for _, rec := range batch.Records {
		f.writeRecord(&b, rec)
	}

	return []byte(b.String()), nil
}

func (f *terminalFormatter) writeHeader(b *strings.Builder, file string) {
	header := "Batch " + file
	headerLen := len(header)

	b.WriteString("╔" + strings.Repeat("═", headerLen+2) + "╗\n")
	b.WriteString("║ " + header + " ║\n")
	b.WriteString("╚" + strings.Repeat("═", headerLen+2) + "╝\n\n")
}

// writeSummary writes batch counters with tree-style formatting
func (f *terminalFormatter) writeSummary(b *strings.Builder, batch *spool.Batch) {
	b.WriteString("Summary\n")

	next := batch.Offset
	if batch.Done() {
		next += " (end of file)"
	}

	items := []termfmt.TreeItem{
		{Label: "Start Offset", Value: fmt.Sprintf("%d", batch.StartOffset)},
		{Label: "Lines Read", Value: formatNumber(batch.LinesRead)},
		{Label: "Records", Value: formatNumber(len(batch.Records))},
		{Label: "Bytes", Value: formatNumber(int(batch.BytesRead))},
		{Label: "Next Offset", Value: next, Last: true},
	}

	tree := termfmt.TreeViewWithOptions(items, f.opts)
	b.WriteString(tree + "\n\n")
}

func (f *terminalFormatter) writeRecord(b *strings.Builder, rec *record.Record) {
	fields := rec.Fields()
	title := fmt.Sprintf("@%d", rec.Header().Offset)
	if rec.Truncated() {
		title += " [truncated]"
	}
	b.WriteString(title + "\n")

	items := make([]termfmt.TreeItem, 0, len(fields))
	for _, fld := range fields {
		if fld.Path == record.OriginalLinePath || fld.Path == record.TruncatedPath {
			continue
		}
		items = append(items, termfmt.TreeItem{
			Label: strings.TrimPrefix(fld.Path, "/"),
			Value: fmt.Sprintf("%v", fld.Value),
		})
	}
	if len(items) == 0 {
		items = append(items, termfmt.TreeItem{Label: "line", Value: rec.OriginalLine()})
	}
	items[len(items)-1].Last = true

	b.WriteString(termfmt.TreeViewWithOptions(items, f.opts) + "\n\n")
}

// formatNumber formats numbers with thousand separators
func formatNumber(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return addCommas(fmt.Sprintf("%d", n))
}

// addCommas adds commas to number strings
func addCommas(s string) string {
	if len(s) <= 3 {
		return s
	}
	return addCommas(s[:len(s)-3]) + "," + s[len(s)-3:]
}
