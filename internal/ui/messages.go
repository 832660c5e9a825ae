package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/zhuj/datacollector/internal/spool"
)

// Producer pulls batches from a file
type Producer interface {
	Produce(path, offset string, maxRecords int) (*spool.Batch, error)
}

type batchLoadedMsg struct {
	batch  *spool.Batch
	offset string
}

type batchErrorMsg struct {
	offset string
	err    error
}

// loadBatch creates a tea command that produces one batch from offset
func loadBatch(p Producer, path, offset string, max int) tea.Cmd {
	return func() tea.Msg {
		batch, err := p.Produce(path, offset, max)
		if err != nil {
			return batchErrorMsg{offset: offset, err: err}
		}
		return batchLoadedMsg{batch: batch, offset: offset}
	}
}
