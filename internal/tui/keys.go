package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings of the scraper screen.
type KeyMap struct {
	Scrape  key.Binding
	Load    key.Binding
	Clear   key.Binding
	Confirm key.Binding
	Cancel  key.Binding
	Up      key.Binding
	Down    key.Binding
	Quit    key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Scrape: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "scrape"),
		),
		Load: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "load to db"),
		),
		Clear: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "clear table"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("y", "Y"),
			key.WithHelp("y", "confirm"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("n", "N", "esc"),
			key.WithHelp("n/esc", "cancel"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// HelpText returns the help line for the main screen.
func (k KeyMap) HelpText() string {
	return "s scrape • l load to db • c clear table • ↑/↓ scroll • q quit"
}

// ConfirmHelpText returns the help line while a clear awaits confirmation.
func (k KeyMap) ConfirmHelpText() string {
	return "y confirm • n/esc cancel"
}
