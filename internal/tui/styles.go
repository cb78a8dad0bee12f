package tui

import "github.com/charmbracelet/lipgloss"

// Color palette: teal accent on the "veracity" theme, one accent color
// rather than a gradient so the TUI reads the same on a dark or light
// terminal background.
const (
	colorTeal     = "73"  // primary accent
	colorTealDim  = "66"  // dimmed accent for borders
	colorGray     = "245" // secondary text
	colorDarkGray = "238" // borders/separators
	colorRed      = "196" // errors
	colorYellow   = "220" // warnings
)

// Styles holds the lipgloss styles used by TUIRenderer and StatusRenderer.
type Styles struct {
	Header  lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Dim     lipgloss.Style
	Active  lipgloss.Style
	Label   lipgloss.Style
	Border  lipgloss.Style
}

// DefaultStyles returns the colorized style set.
func DefaultStyles() Styles {
	return Styles{
		Header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorTeal)),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color(colorTeal)),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color(colorYellow)),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color(colorRed)),
		Dim:     lipgloss.NewStyle().Foreground(lipgloss.Color(colorDarkGray)),
		Active:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorTealDim)),
		Label:   lipgloss.NewStyle().Foreground(lipgloss.Color(colorGray)),
		Border:  lipgloss.NewStyle().Foreground(lipgloss.Color(colorDarkGray)),
	}
}

// NoColorStyles returns an unstyled set, used under --no-color or NO_COLOR.
func NoColorStyles() Styles {
	return Styles{
		Header:  lipgloss.NewStyle(),
		Success: lipgloss.NewStyle(),
		Warning: lipgloss.NewStyle(),
		Error:   lipgloss.NewStyle(),
		Dim:     lipgloss.NewStyle(),
		Active:  lipgloss.NewStyle(),
		Label:   lipgloss.NewStyle(),
		Border:  lipgloss.NewStyle(),
	}
}

// GetStyles returns NoColorStyles when noColor is set, DefaultStyles otherwise.
func GetStyles(noColor bool) Styles {
	if noColor {
		return NoColorStyles()
	}
	return DefaultStyles()
}
