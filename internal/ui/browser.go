package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/zhuj/datacollector/internal/record"
	"github.com/zhuj/datacollector/internal/spool"
)

// BrowserOptions configures a Browser
type BrowserOptions struct {
	// Offset is where the first batch starts
	Offset string

	// PageSize is the max records per batch, <= 0 uses the source default
	PageSize int

	Theme Theme
	Color bool
}

// Browser pages through a log file one batch at a time. n pulls the
// batch after the current one, r re-reads the current batch from the
// offset it started at, q quits.
type Browser struct {
	producer Producer
	file     string
	pageSize int
	styles   *Styles

	// offset the current batch was produced from
	start   string
	batch   *spool.Batch
	batches int

	selected int
	width    int
	height   int

	loading  bool
	status   string
	err      error
	quitting bool
}

// NewBrowser creates a browser over file
func NewBrowser(p Producer, file string, opts BrowserOptions) *Browser {
	offset := opts.Offset
	if offset == "" {
		offset = "0"
	}
	return &Browser{
		producer: p,
		file:     file,
		pageSize: opts.PageSize,
		styles:   NewStyles(opts.Theme, opts.Color && !IsColorDisabled()),
		start:    offset,
	}
}

// Init loads the first batch
func (m *Browser) Init() tea.Cmd {
	return m.load(m.start)
}

// Update handles messages
func (m *Browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		return m.handleKey(msg)

	case batchLoadedMsg:
		m.loading = false
		m.err = nil
		m.start = msg.offset
		m.batch = msg.batch
		m.batches++
		m.selected = 0
		m.status = m.describe(msg.batch)

	case batchErrorMsg:
		m.loading = false
		m.err = msg.err
		m.status = ""
	}

	return m, nil
}

func (m *Browser) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit

	case "n", " ", "pgdown":
		if m.loading {
			return m, nil
		}
		next, ok := m.nextOffset()
		if !ok {
			return m, nil
		}
		return m, m.load(next)

	case "r":
		if m.loading {
			return m, nil
		}
		return m, m.load(m.start)

	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}

	case "down", "j":
		if m.batch != nil && m.selected < len(m.batch.Records)-1 {
			m.selected++
		}
	}
	return m, nil
}

// nextOffset is where the following batch starts. After end of file it is
// the position reached, so lines appended since are picked up.
func (m *Browser) nextOffset() (string, bool) {
	if m.batch == nil {
		return m.start, m.err != nil
	}
	if m.batch.Done() {
		pos := m.batch.Position()
		if pos < 0 {
			return "", false
		}
		return spool.FormatOffset(pos), true
	}
	return m.batch.Offset, true
}

func (m *Browser) load(offset string) tea.Cmd {
	m.loading = true
	m.status = "reading from offset " + offset + "..."
	return loadBatch(m.producer, m.file, offset, m.pageSize)
}

func (m *Browser) describe(b *spool.Batch) string {
	if b.Done() {
		return fmt.Sprintf("%d records, end of file", len(b.Records))
	}
	return fmt.Sprintf("%d records, next offset %s", len(b.Records), b.Offset)
}

// Selected returns the highlighted record, or nil
func (m *Browser) Selected() *record.Record {
	if m.batch == nil || m.selected >= len(m.batch.Records) {
		return nil
	}
	return m.batch.Records[m.selected]
}

// Batch returns the batch on screen
func (m *Browser) Batch() *spool.Batch {
	return m.batch
}

// Start returns the offset the batch on screen was read from
func (m *Browser) Start() string {
	return m.start
}

// View renders the browser
func (m *Browser) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	title := fmt.Sprintf("%s @ %s", m.file, m.start)
	if m.batches > 0 {
		title += fmt.Sprintf("  (batch %d)", m.batches)
	}
	b.WriteString(m.styles.Title.Render(title) + "\n\n")

	if m.err != nil {
		b.WriteString(m.styles.Error.Render("error: "+m.err.Error()) + "\n\n")
	}

	if m.batch != nil {
		m.writeRecords(&b)
		if rec := m.Selected(); rec != nil {
			b.WriteString("\n" + m.styles.Panel.Render(m.renderFields(rec)) + "\n")
		}
	}

	if m.status != "" {
		b.WriteString("\n" + m.styles.Success.Render(m.status) + "\n")
	}
	b.WriteString(m.styles.Muted.Render("n next batch • r re-read • ↑/↓ select • q quit") + "\n")

	return b.String()
}

func (m *Browser) writeRecords(b *strings.Builder) {
	if len(m.batch.Records) == 0 {
		b.WriteString(m.styles.Muted.Render("no records") + "\n")
		return
	}

	first, last := m.window(len(m.batch.Records))
	for i := first; i < last; i++ {
		rec := m.batch.Records[i]
		line := fmt.Sprintf("%8d  %s", rec.Header().Offset, clip(rec.OriginalLine(), m.lineWidth()))
		if rec.Truncated() {
			line += " " + m.styles.Warning.Render("[truncated]")
		}
		if i == m.selected {
			b.WriteString(m.styles.Selected.Render(line) + "\n")
		} else {
			b.WriteString(m.styles.Item.Render(line) + "\n")
		}
	}
}

// window returns the slice of records that fits the terminal, keeping the
// selection visible
func (m *Browser) window(n int) (int, int) {
	rows := m.height - 12
	if rows < 3 {
		rows = 3
	}
	if m.height == 0 || rows >= n {
		return 0, n
	}
	first := m.selected - rows/2
	if first < 0 {
		first = 0
	}
	last := first + rows
	if last > n {
		last = n
		first = last - rows
	}
	return first, last
}

func (m *Browser) lineWidth() int {
	if m.width <= 0 {
		return 0
	}
	return m.width - 24
}

func (m *Browser) renderFields(rec *record.Record) string {
	var b strings.Builder
	b.WriteString(rec.Header().SourceID + "\n")
	for _, f := range rec.Fields() {
		if f.Path == record.OriginalLinePath {
			continue
		}
		fmt.Fprintf(&b, "%s = %v\n", strings.TrimPrefix(f.Path, "/"), f.Value)
	}
	return strings.TrimRight(b.String(), "\n")
}

func clip(s string, width int) string {
	if width <= 0 || len(s) <= width {
		return s
	}
	if width <= 3 {
		return s[:width]
	}
	return s[:width-3] + "..."
}

// Run runs the browser until the user quits
func Run(p Producer, file string, opts BrowserOptions) error {
	model := NewBrowser(p, file, opts)
	program := tea.NewProgram(model, tea.WithAltScreen())
	_, err := program.Run()
	return err
}
