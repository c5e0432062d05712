package tui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// ConfigureColorProfile pins lipgloss to the terminal's capabilities before
// the program starts. NO_COLOR wins over everything; otherwise termenv's
// environment-aware guess is used (it respects CLICOLOR/CLICOLOR_FORCE).
func ConfigureColorProfile() {
	if os.Getenv("NO_COLOR") != "" {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}
	lipgloss.SetColorProfile(termenv.EnvColorProfile())
}

type styles struct {
	sidebar       lipgloss.Style
	header        lipgloss.Style
	headerCursor  lipgloss.Style
	headerDragged lipgloss.Style
	fieldLabel    lipgloss.Style
	fieldValue    lipgloss.Style
	fieldCursor   lipgloss.Style
	fieldError    lipgloss.Style
	degraded      lipgloss.Style
	canvas        lipgloss.Style
	statusBar     lipgloss.Style
	notice        lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		sidebar: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder(), false, true, false, false).
			BorderForeground(lipgloss.Color("8")).
			PaddingRight(1),
		header:        lipgloss.NewStyle().Bold(true),
		headerCursor:  lipgloss.NewStyle().Bold(true).Reverse(true),
		headerDragged: lipgloss.NewStyle().Bold(true).Faint(true),
		fieldLabel:    lipgloss.NewStyle().Foreground(lipgloss.Color("7")),
		fieldValue:    lipgloss.NewStyle().Foreground(lipgloss.Color("15")),
		fieldCursor:   lipgloss.NewStyle().Reverse(true),
		fieldError:    lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		degraded:      lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Italic(true),
		canvas:        lipgloss.NewStyle().Padding(0, 1),
		statusBar:     lipgloss.NewStyle().Faint(true),
		notice:        lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
	}
}

// accent returns a style in a module's catalog color.
func accent(color string) lipgloss.Style {
	if color == "" {
		return lipgloss.NewStyle()
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color))
}
