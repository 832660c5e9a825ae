package monitor

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ReportFormat is the rendering of a snapshot
type ReportFormat string

const (
	ReportFormatText ReportFormat = "text"
	ReportFormatJSON ReportFormat = "json"
)

// FormatReport renders a snapshot
func FormatReport(s Snapshot, format ReportFormat) (string, error) {
	switch format {
	case ReportFormatJSON:
		data, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			return "", err
		}
		return string(data), nil
	case ReportFormatText, "":
		return formatText(s), nil
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

func formatText(s Snapshot) string {
	var sb strings.Builder

	sb.WriteString("Ingest Summary\n")
	sb.WriteString("==============\n\n")

	sb.WriteString(fmt.Sprintf("Elapsed: %s\n", s.Elapsed.Round(time.Millisecond)))
	sb.WriteString(fmt.Sprintf("Batches: %d (%d failed)\n", s.Batches, s.FailedBatches))
	sb.WriteString(fmt.Sprintf("Lines Read: %d\n", s.LinesRead))
	sb.WriteString(fmt.Sprintf("Records: %d\n", s.Records))
	sb.WriteString(fmt.Sprintf("Bytes Consumed: %d\n\n", s.BytesConsumed))

	sb.WriteString("Lines:\n")
	sb.WriteString(fmt.Sprintf("  Parsed: %d\n", s.Parsed))
	sb.WriteString(fmt.Sprintf("  Skipped: %d\n", s.Skipped))
	sb.WriteString(fmt.Sprintf("  Included Raw: %d\n", s.IncludedRaw))
	sb.WriteString(fmt.Sprintf("  Rejected: %d\n", s.Rejected))
	sb.WriteString(fmt.Sprintf("  Truncated: %d\n\n", s.Truncated))

	sb.WriteString(fmt.Sprintf("Rate: %.2f lines/sec\n", s.LinesPerSecond))
	sb.WriteString(fmt.Sprintf("Produce Time: avg %s, max %s\n", s.AvgProduceTime, s.MaxProduceTime))

	return sb.String()
}
