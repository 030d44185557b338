package screen

import "github.com/charmbracelet/lipgloss"

// Theme is the colour palette of the search screen.
type Theme struct {
	Accent   lipgloss.Color
	Text     lipgloss.Color
	Muted    lipgloss.Color
	Error    lipgloss.Color
	Warning  lipgloss.Color
	Selected lipgloss.Color
	Border   lipgloss.Color
}

// DefaultTheme is the built-in dark-terminal scheme, a deep blue accent on
// neutral text.
var DefaultTheme = Theme{
	Accent:   lipgloss.Color("#00A6FB"),
	Text:     lipgloss.Color("#E6E6E6"),
	Muted:    lipgloss.Color("#7A7A7A"),
	Error:    lipgloss.Color("#FF5F5F"),
	Warning:  lipgloss.Color("#FFAF00"),
	Selected: lipgloss.Color("#0056A4"),
	Border:   lipgloss.Color("#3A3A3A"),
}

type styles struct {
	title      lipgloss.Style
	label      lipgloss.Style
	hint       lipgloss.Style
	warning    lipgloss.Style
	suggestion lipgloss.Style
	cursor     lipgloss.Style
	row        lipgloss.Style
	rowStatus  lipgloss.Style
	card       lipgloss.Style
	help       lipgloss.Style
}

func newStyles(t Theme) styles {
	return styles{
		title:      lipgloss.NewStyle().Bold(true).Foreground(t.Accent),
		label:      lipgloss.NewStyle().Foreground(t.Muted).Width(13),
		hint:       lipgloss.NewStyle().Foreground(t.Error),
		warning:    lipgloss.NewStyle().Foreground(t.Warning),
		suggestion: lipgloss.NewStyle().Foreground(t.Text).PaddingLeft(2),
		cursor:     lipgloss.NewStyle().Foreground(t.Text).Background(t.Selected).PaddingLeft(2),
		row:        lipgloss.NewStyle().Foreground(t.Text),
		rowStatus:  lipgloss.NewStyle().Foreground(t.Muted),
		card: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Border).
			Padding(0, 1),
		help: lipgloss.NewStyle().Foreground(t.Muted),
	}
}
