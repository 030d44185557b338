package screen

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all key bindings for the search screen. Letter keys are
// never bound because the two inputs take free text.
type KeyMap struct {
	Up   key.Binding
	Down key.Binding

	// Focus cycles origin → destination → results.
	NextFocus key.Binding
	PrevFocus key.Binding

	Submit  key.Binding // Inputs: search. Results: open the flight detail.
	Dismiss key.Binding // Close the suggestion panel.
	Back    key.Binding // Detail: return to the results.

	SignOut key.Binding
	Quit    key.Binding
}

// DefaultKeyMap is the built-in key binding set.
var DefaultKeyMap = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("up"),
		key.WithHelp("↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down"),
		key.WithHelp("↓", "down"),
	),
	NextFocus: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("Tab", "next field"),
	),
	PrevFocus: key.NewBinding(
		key.WithKeys("shift+tab"),
		key.WithHelp("S-Tab", "previous field"),
	),
	Submit: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("Enter", "search/select"),
	),
	Dismiss: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("Esc", "close suggestions"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc", "backspace"),
		key.WithHelp("Esc", "back"),
	),
	SignOut: key.NewBinding(
		key.WithKeys("ctrl+l"),
		key.WithHelp("C-l", "logout"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("C-c", "quit"),
	),
}
