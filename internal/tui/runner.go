package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// ErrNotInteractive is returned when the scraper UI cannot take over the terminal.
var ErrNotInteractive = errors.New("terminal UI needs an interactive terminal")

// RunScraper shows the scraper screen until the user quits or ctx is done.
func RunScraper(ctx context.Context, backend Backend, target string) error {
	if !IsInteractive() {
		return ErrNotInteractive
	}

	p := tea.NewProgram(NewScraperModel(ctx, backend, target), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("terminal UI: %w", err)
	}
	return nil
}
