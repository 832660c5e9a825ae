package formatter

import (
	"fmt"

	"github.com/zhuj/datacollector/internal/spool"
)

// Formatter renders a produced batch
type Formatter interface {
	Format(batch *spool.Batch) ([]byte, error)
}

// Formats lists the accepted output format names
func Formats() []string {
	return []string{"json", "csv", "text"}
}

// New returns the formatter for format. color only affects text output.
func New(format string, color bool) (Formatter, error) {
	switch format {
	case "json", "":
		return NewJSON(), nil
	case "csv":
		return NewCSV(), nil
	case "text", "terminal":
		return NewTerminal(color), nil
	default:
		return nil, fmt.Errorf("unknown format: %s", format)
	}
}
