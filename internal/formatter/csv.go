package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/zhuj/datacollector/internal/spool"
)

// csvFormatter writes records as CSV rows. Columns are the union of the
// batch's field paths in first-seen order, after the source id.
type csvFormatter struct{}

// NewCSV creates a new CSV formatter
func NewCSV() Formatter {
	return &csvFormatter{}
}

func (f *csvFormatter) Format(batch *spool.Batch) ([]byte, error) {
	var b bytes.Buffer
	writer := csv.NewWriter(&b)

	columns := collectColumns(batch)
	headers := make([]string, 0, len(columns)+1)
	headers = append(headers, "sourceId")
	for _, c := range columns {
		headers = append(headers, strings.TrimPrefix(c, "/"))
	}

	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, rec := range batch.Records {
		row := make([]string, 0, len(headers))
		row = append(row, rec.Header().SourceID)
		for _, c := range columns {
			row = append(row, rec.GetString(c))
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return b.Bytes(), nil
}

func collectColumns(batch *spool.Batch) []string {
	seen := make(map[string]bool)
	var columns []string
	for _, rec := range batch.Records {
		for _, p := range rec.Paths() {
			if !seen[p] {
				seen[p] = true
				columns = append(columns, p)
			}
		}
	}
	return columns
}
