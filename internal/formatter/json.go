package formatter

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/zhuj/datacollector/internal/record"
	"github.com/zhuj/datacollector/internal/spool"
)

// jsonFormatter writes one JSON object per record (NDJSON)
type jsonFormatter struct{}

// NewJSON creates a new JSON formatter
func NewJSON() Formatter {
	return &jsonFormatter{}
}

// RecordOutput is the JSON envelope of a single record
type RecordOutput struct {
	Header record.Header  `json:"header"`
	Record *record.Record `json:"record"`
}

func (f *jsonFormatter) Format(batch *spool.Batch) ([]byte, error) {
	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)

	for _, rec := range batch.Records {
		out := RecordOutput{Header: rec.Header(), Record: rec}
		if err := enc.Encode(out); err != nil {
			return nil, fmt.Errorf("failed to encode record %s: %w", rec.Header().SourceID, err)
		}
	}
	return b.Bytes(), nil
}
