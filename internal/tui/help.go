package tui

import (
	_ "embed"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/glamour"
)

//go:embed help.md
var helpMarkdown string

// openHelp renders the embedded help markdown into a scrollable overlay.
// WithStandardStyle avoids the terminal queries WithAutoStyle can block on.
func (a *App) openHelp() {
	width := a.width
	if width < 20 {
		width = 20
	}
	text := helpMarkdown
	if r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width-2),
	); err == nil {
		if out, err := r.Render(helpMarkdown); err == nil {
			text = out
		}
	}
	a.helpText = text
	a.help = viewport.New(width, a.height-1)
	a.help.SetContent(text)
	a.showHelp = true
}

func (a *App) helpView() string {
	return a.help.View() + "\n" + a.styles.statusBar.Render("esc/? close · ↑/↓ scroll")
}
