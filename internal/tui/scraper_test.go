package tui

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/pgingest/internal/scrape"
	"github.com/vvka-141/pgingest/internal/store"
	"github.com/vvka-141/pgingest/pkg/pgingest"
)

type fakeBackend struct {
	mu        sync.Mutex
	scrapeErr error
	saveErr   error
	clearErr  error
	saved     []*scrape.Snapshot
	clears    int
}

func (f *fakeBackend) Scrape(_ context.Context, progress scrape.Progress) (*scrape.Snapshot, error) {
	for _, p := range []int{10, 30, 50, 70} {
		progress(p, "stage")
	}
	f.mu.Lock()
	err := f.scrapeErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	progress(100, "Scraping complete!")
	return testSnapshot(), nil
}

func (f *fakeBackend) Save(_ context.Context, snap *scrape.Snapshot, progress store.WriteProgress) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return 0, f.saveErr
	}
	progress(len(snap.Rows), len(snap.Rows))
	f.saved = append(f.saved, snap)
	return len(snap.Rows), nil
}

func (f *fakeBackend) Clear(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clears++
	return f.clearErr
}

func testSnapshot() *scrape.Snapshot {
	rows := []scrape.BankRow{
		{Rank: "1", Bank: "JPMorgan Chase", MarketCap: decimal.RequireFromString("432.92")},
		{Rank: "2", Bank: "Bank of America", MarketCap: decimal.RequireFromString("231.52")},
	}
	return &scrape.Snapshot{
		RunID:        uuid.New(),
		URL:          "https://example.test/banks",
		ScrapedAt:    time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		BaseCurrency: "USD",
		Currencies:   []string{"EUR", "GBP", "INR"},
		Rows:         scrape.ConvertRows(rows, pgingest.DefaultRates()),
	}
}

func keyPress(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func press(t *testing.T, m ScraperModel, r rune) (ScraperModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(keyPress(r))
	return next.(ScraperModel), cmd
}

// settle runs cmd and every command it produces, feeding messages back into
// the model until nothing is left. Spinner ticks are dropped.
func settle(t *testing.T, m ScraperModel, cmd tea.Cmd) ScraperModel {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0; steps++ {
		require.Less(t, steps, 200, "model did not settle")
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		switch msg := c().(type) {
		case nil, spinner.TickMsg:
		case tea.BatchMsg:
			queue = append(queue, msg...)
		default:
			next, nextCmd := m.Update(msg)
			m = next.(ScraperModel)
			queue = append(queue, nextCmd)
		}
	}
	return m
}

func newModel(b Backend) ScraperModel {
	return NewScraperModel(context.Background(), b, "bank_market_cap")
}

func TestScraperModel_ScrapeThenLoad(t *testing.T) {
	b := &fakeBackend{}
	m := newModel(b)
	assert.Equal(t, StateIdle, m.State())

	m, cmd := press(t, m, 's')
	assert.Equal(t, StateScraping, m.State())
	require.NotNil(t, cmd)

	m = settle(t, m, cmd)
	assert.Equal(t, StateScrapedReady, m.State())
	require.NotNil(t, m.Snapshot())
	assert.Equal(t, 100, m.percent)
	assert.Len(t, m.grid.Rows(), 2)
	assert.Contains(t, m.View(), "JPMorgan Chase")
	assert.Contains(t, m.View(), "Market Cap (EUR Billion)")

	m, cmd = press(t, m, 'l')
	assert.Equal(t, StateLoading, m.State())
	m = settle(t, m, cmd)

	assert.Equal(t, StateLoadedReady, m.State())
	require.Len(t, b.saved, 1)
	assert.Same(t, m.Snapshot(), b.saved[0])
	assert.Contains(t, m.View(), "Saved 2 banks to bank_market_cap")
}

func TestScraperModel_LoadWithoutSnapshot(t *testing.T) {
	b := &fakeBackend{}
	m, cmd := press(t, newModel(b), 'l')

	assert.Nil(t, cmd)
	assert.Equal(t, StateIdle, m.State())
	assert.Contains(t, m.View(), "Nothing to load yet")
	assert.Empty(t, b.saved)
}

func TestScraperModel_KeysIgnoredWhileBusy(t *testing.T) {
	m, _ := press(t, newModel(&fakeBackend{}), 's')
	require.Equal(t, StateScraping, m.State())
	events := m.events

	for _, r := range []rune{'s', 'l', 'c'} {
		var cmd tea.Cmd
		m, cmd = press(t, m, r)
		assert.Nil(t, cmd, "key %q", r)
		assert.Equal(t, StateScraping, m.State(), "key %q", r)
	}
	assert.Equal(t, events, m.events, "worker channel replaced")
}

func TestScraperModel_ScrapeError(t *testing.T) {
	b := &fakeBackend{scrapeErr: errors.New("GET: transport error: unexpected status 503")}
	m, cmd := press(t, newModel(b), 's')
	m = settle(t, m, cmd)

	assert.Equal(t, StateError, m.State())
	assert.Nil(t, m.Snapshot())
	assert.Contains(t, m.View(), "503")

	b.mu.Lock()
	b.scrapeErr = nil
	b.mu.Unlock()
	m, cmd = press(t, m, 's')
	m = settle(t, m, cmd)
	assert.Equal(t, StateScrapedReady, m.State())
	assert.NoError(t, m.Err())
}

func TestScraperModel_LoadErrorKeepsSnapshot(t *testing.T) {
	b := &fakeBackend{saveErr: errors.New("storage error: relation is read-only")}
	m, cmd := press(t, newModel(b), 's')
	m = settle(t, m, cmd)

	m, cmd = press(t, m, 'l')
	m = settle(t, m, cmd)
	assert.Equal(t, StateError, m.State())
	require.NotNil(t, m.Snapshot())

	b.mu.Lock()
	b.saveErr = nil
	b.mu.Unlock()
	m, cmd = press(t, m, 'l')
	m = settle(t, m, cmd)
	assert.Equal(t, StateLoadedReady, m.State())
}

func TestScraperModel_ClearNeedsConfirmation(t *testing.T) {
	b := &fakeBackend{}
	m, cmd := press(t, newModel(b), 's')
	m = settle(t, m, cmd)

	m, _ = press(t, m, 'c')
	assert.Equal(t, StateConfirmClear, m.State())
	assert.Contains(t, m.View(), "Delete every row of bank_market_cap")

	m, cmd = press(t, m, 'n')
	assert.Nil(t, cmd)
	assert.Equal(t, StateScrapedReady, m.State())
	assert.Zero(t, b.clears)

	m, _ = press(t, m, 'c')
	m, cmd = press(t, m, 'y')
	assert.Equal(t, StateClearing, m.State())
	m = settle(t, m, cmd)

	assert.Equal(t, StateScrapedReady, m.State())
	assert.Equal(t, 1, b.clears)
	assert.Contains(t, m.View(), "Cleared bank_market_cap")
}

func TestScraperModel_ClearFromErrorState(t *testing.T) {
	b := &fakeBackend{scrapeErr: errors.New("boom")}
	m, cmd := press(t, newModel(b), 's')
	m = settle(t, m, cmd)
	require.Equal(t, StateError, m.State())

	m, _ = press(t, m, 'c')
	m, cmd = press(t, m, 'y')
	m = settle(t, m, cmd)
	assert.Equal(t, StateIdle, m.State())
}

func TestScraperModel_ClearError(t *testing.T) {
	b := &fakeBackend{clearErr: errors.New("permission denied for table")}
	m, _ := press(t, newModel(b), 'c')
	m, cmd := press(t, m, 'y')
	m = settle(t, m, cmd)

	assert.Equal(t, StateError, m.State())
	assert.Contains(t, m.View(), "permission denied")
}

func TestScraperModel_Quit(t *testing.T) {
	_, cmd := press(t, newModel(&fakeBackend{}), 'q')
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "ScrapedReady", StateScrapedReady.String())
	assert.Equal(t, "Unknown(42)", State(42).String())
}
