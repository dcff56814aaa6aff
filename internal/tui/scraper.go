package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vvka-141/pgingest/internal/scrape"
	"github.com/vvka-141/pgingest/internal/store"
)

// Backend is what the scraper screen drives. *services.ScrapeService
// implements it.
type Backend interface {
	Scrape(ctx context.Context, progress scrape.Progress) (*scrape.Snapshot, error)
	Save(ctx context.Context, snap *scrape.Snapshot, progress store.WriteProgress) (int, error)
	Clear(ctx context.Context) error
}

// State is the screen's position in the scrape/load cycle.
type State int

const (
	StateIdle State = iota
	StateScraping
	StateScrapedReady
	StateLoading
	StateLoadedReady
	StateConfirmClear
	StateClearing
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateScraping:
		return "Scraping"
	case StateScrapedReady:
		return "ScrapedReady"
	case StateLoading:
		return "Loading"
	case StateLoadedReady:
		return "LoadedReady"
	case StateConfirmClear:
		return "ConfirmClear"
	case StateClearing:
		return "Clearing"
	case StateError:
		return "Error"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// busy reports whether a worker is running.
func (s State) busy() bool {
	return s == StateScraping || s == StateLoading || s == StateClearing
}

// Worker messages. Each worker owns its channel and closes it after the
// final done message.
type (
	progressMsg struct {
		percent int
		stage   string
	}
	scrapeDoneMsg struct {
		snap *scrape.Snapshot
		err  error
	}
	loadDoneMsg struct {
		saved int
		err   error
	}
	clearDoneMsg struct {
		err error
	}
)

const tableHeight = 15

// ScraperModel is the Bubble Tea model of the interactive scraper.
type ScraperModel struct {
	ctx     context.Context
	backend Backend
	target  string
	keys    KeyMap

	state    State
	prev     State
	snapshot *scrape.Snapshot
	events   chan tea.Msg

	grid    table.Model
	spinner spinner.Model
	stage   string
	percent int
	status  string
	err     error
}

// NewScraperModel creates the model. target names the table shown in
// prompts and status lines.
func NewScraperModel(ctx context.Context, backend Backend, target string) ScraperModel {
	grid := table.New(table.WithFocused(true), table.WithHeight(tableHeight))
	styles := table.DefaultStyles()
	styles.Header = tableHeaderStyle
	styles.Selected = tableSelectedStyle
	grid.SetStyles(styles)

	return ScraperModel{
		ctx:     ctx,
		backend: backend,
		target:  target,
		keys:    DefaultKeyMap(),
		state:   StateIdle,
		grid:    grid,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(SpinnerStyle)),
		status:  "Press s to scrape.",
	}
}

// State returns the current state.
func (m ScraperModel) State() State {
	return m.state
}

// Snapshot returns the last successful scrape, or nil.
func (m ScraperModel) Snapshot() *scrape.Snapshot {
	return m.snapshot
}

// Err returns the error that put the model in StateError.
func (m ScraperModel) Err() error {
	return m.err
}

// Init implements tea.Model.
func (m ScraperModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m ScraperModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case progressMsg:
		m.percent = msg.percent
		m.stage = msg.stage
		return m, m.listen()

	case scrapeDoneMsg:
		m.events = nil
		if msg.err != nil {
			return m.fail(msg.err), nil
		}
		m.snapshot = msg.snap
		m.setGrid(msg.snap)
		m.state = StateScrapedReady
		m.status = fmt.Sprintf("%s Scraped %d banks.", SymbolCheck, len(msg.snap.Rows))
		if msg.snap.Skipped > 0 {
			m.status += fmt.Sprintf(" %d rows skipped.", msg.snap.Skipped)
		}
		return m, nil

	case loadDoneMsg:
		m.events = nil
		if msg.err != nil {
			return m.fail(msg.err), nil
		}
		m.state = StateLoadedReady
		m.status = fmt.Sprintf("%s Saved %d banks to %s.", SymbolCheck, msg.saved, m.target)
		return m, nil

	case clearDoneMsg:
		m.events = nil
		if msg.err != nil {
			return m.fail(msg.err), nil
		}
		m.state = m.settled()
		m.status = fmt.Sprintf("%s Cleared %s.", SymbolCheck, m.target)
		return m, nil

	case spinner.TickMsg:
		if !m.state.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m ScraperModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}

	if m.state == StateConfirmClear {
		switch {
		case key.Matches(msg, m.keys.Confirm):
			m.state = StateClearing
			m.stage = "Clearing " + m.target + "..."
			m.status = ""
			work := m.start(m.clearWork)
			return m, tea.Batch(m.spinner.Tick, work)
		case key.Matches(msg, m.keys.Cancel):
			m.state = m.prev
			m.status = "Clear cancelled."
		}
		return m, nil
	}

	// a running worker cannot be interrupted
	if m.state.busy() {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Scrape):
		m.state = StateScraping
		m.err = nil
		m.percent = 0
		m.stage = "Starting..."
		m.status = ""
		work := m.start(m.scrapeWork)
		return m, tea.Batch(m.spinner.Tick, work)

	case key.Matches(msg, m.keys.Load):
		if m.snapshot == nil {
			m.status = "Nothing to load yet. Press s to scrape first."
			return m, nil
		}
		m.state = StateLoading
		m.err = nil
		m.percent = 0
		m.stage = "Saving to " + m.target + "..."
		m.status = ""
		work := m.start(m.loadWork)
		return m, tea.Batch(m.spinner.Tick, work)

	case key.Matches(msg, m.keys.Clear):
		m.prev = m.state
		m.state = StateConfirmClear
		return m, nil
	}

	var cmd tea.Cmd
	m.grid, cmd = m.grid.Update(msg)
	return m, cmd
}

// settled is the resting state after a clear or a cancelled prompt.
func (m ScraperModel) settled() State {
	if m.prev == StateError {
		if m.snapshot != nil {
			return StateScrapedReady
		}
		return StateIdle
	}
	return m.prev
}

func (m ScraperModel) fail(err error) ScraperModel {
	m.state = StateError
	m.err = err
	m.status = ""
	return m
}

// start runs work on its own goroutine and returns the command that
// delivers its first message. work sends progress and exactly one done
// message, then the channel is closed.
func (m *ScraperModel) start(work func(chan<- tea.Msg)) tea.Cmd {
	events := make(chan tea.Msg, 16)
	m.events = events
	go func() {
		defer close(events)
		work(events)
	}()
	return m.listen()
}

func (m ScraperModel) listen() tea.Cmd {
	events := m.events
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-events
		if !ok {
			return nil
		}
		return msg
	}
}

func (m ScraperModel) scrapeWork(out chan<- tea.Msg) {
	snap, err := m.backend.Scrape(m.ctx, func(percent int, stage string) {
		out <- progressMsg{percent: percent, stage: stage}
	})
	out <- scrapeDoneMsg{snap: snap, err: err}
}

func (m ScraperModel) loadWork(out chan<- tea.Msg) {
	snap := m.snapshot
	saved, err := m.backend.Save(m.ctx, snap, func(written, total int) {
		out <- progressMsg{percent: written * 100 / total, stage: fmt.Sprintf("Saved %d of %d banks...", written, total)}
	})
	out <- loadDoneMsg{saved: saved, err: err}
}

func (m ScraperModel) clearWork(out chan<- tea.Msg) {
	out <- clearDoneMsg{err: m.backend.Clear(m.ctx)}
}

func (m *ScraperModel) setGrid(snap *scrape.Snapshot) {
	headers := snap.Headers()
	records := snap.Records()

	cols := make([]table.Column, len(headers))
	for i, h := range headers {
		width := len(h)
		for _, rec := range records {
			width = max(width, len(rec[i]))
		}
		cols[i] = table.Column{Title: h, Width: width}
	}
	rows := make([]table.Row, len(records))
	for i, rec := range records {
		rows[i] = table.Row(rec)
	}

	m.grid.SetRows(nil)
	m.grid.SetColumns(cols)
	m.grid.SetRows(rows)
	m.grid.GotoTop()
}

// View implements tea.Model.
func (m ScraperModel) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("Largest Banks by Market Capitalization"))
	b.WriteString("\n")
	if m.snapshot != nil {
		b.WriteString(SubtitleStyle.Render(fmt.Sprintf("%s • scraped %s • run %s",
			m.snapshot.URL, m.snapshot.ScrapedAt.Format("2006-01-02 15:04:05"), m.snapshot.RunID.String()[:8])))
		b.WriteString("\n")
		b.WriteString(BoxStyle.Render(m.grid.View()))
		b.WriteString("\n")
	}

	switch {
	case m.state.busy():
		line := m.spinner.View() + " " + m.stage
		if m.percent > 0 {
			line += fmt.Sprintf(" (%d%%)", m.percent)
		}
		b.WriteString(line)
	case m.state == StateConfirmClear:
		b.WriteString(WarningStyle.Render(fmt.Sprintf("Delete every row of %s? This cannot be undone.", m.target)))
	case m.state == StateError:
		b.WriteString(ErrorStyle.Render(SymbolCross + " " + m.err.Error()))
	default:
		b.WriteString(SuccessStyle.Render(m.status))
	}
	b.WriteString("\n")

	help := m.keys.HelpText()
	if m.state == StateConfirmClear {
		help = m.keys.ConfirmHelpText()
	}
	b.WriteString(HelpStyle.Render(help))
	b.WriteString("\n")
	return b.String()
}
