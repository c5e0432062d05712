package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kverel/tonewheel/internal/canvas"
	"github.com/kverel/tonewheel/internal/module"
	"github.com/kverel/tonewheel/internal/reorder"
)

func (a *App) View() string {
	if a.width == 0 || a.height == 0 {
		return "loading..."
	}
	if a.showHelp {
		return a.helpView()
	}
	if a.tracker.InFallback() {
		return a.fallbackView()
	}

	a.coord.Flush()
	a.applyEditEcho()

	sidebar := a.sidebarView()
	canvasView := a.canvasView()
	body := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, canvasView)
	return lipgloss.JoinVertical(lipgloss.Left, body, a.statusView())
}

// sidebarView draws the module panels in display order and records each
// panel's row span so mouse events can be mapped back to modules.
func (a *App) sidebarView() string {
	rows := a.rows()
	a.bounds = a.bounds[:0]

	draggedID, dragging := a.engine.Dragging()
	var lines []string
	line := 0
	for _, id := range a.displayOrder() {
		desc, ok := a.registry.ByID(id)
		if !ok {
			continue
		}
		top := line

		header := a.styles.header
		if dragging && id == draggedID {
			header = a.styles.headerDragged
		} else if a.rowSelected(rows, rowRef{moduleID: id}) {
			header = a.styles.headerCursor
		}
		marker := "▸"
		if a.isExpanded(id) {
			marker = "▾"
		}
		lines = append(lines, header.Render(fmt.Sprintf("%s %s", marker, accent(desc.Color).Render(desc.Title))))
		line++

		if err, degraded := a.tracker.Degraded(id); degraded {
			lines = append(lines, a.styles.degraded.Render("  ✗ "+truncate(err.Error(), sidebarWidth-6)))
			line++
		}

		if a.isExpanded(id) {
			for _, f := range desc.Fields {
				lines = append(lines, a.fieldLine(rows, id, f.Name, f.Label))
				line++
			}
		}

		a.bounds = append(a.bounds, reorder.Bounds{ID: id, Top: top, Bottom: line - 1})
		lines = append(lines, "")
		line++
	}

	content := strings.Join(lines, "\n")
	return a.styles.sidebar.
		Width(sidebarWidth).
		Height(a.height - statusHeight).
		Render(content)
}

func (a *App) fieldLine(rows []rowRef, moduleID, name, label string) string {
	if label == "" {
		label = name
	}
	ref := rowRef{moduleID: moduleID, field: name}
	selected := a.rowSelected(rows, ref)
	editingThis := a.editing && a.editModule == moduleID && a.editField == name

	var value string
	switch {
	case editingThis:
		value = a.input.View()
	default:
		v, _ := a.store.Get(module.Path(moduleID, name))
		value = displayValue(v)
	}

	text := fmt.Sprintf("  %s: %s", a.styles.fieldLabel.Render(label), a.styles.fieldValue.Render(value))
	if editingThis && a.editCtl != nil {
		if msg, hasErr := a.editCtl.errorState(); hasErr {
			text += " " + a.styles.fieldError.Render("✗ "+msg)
		}
	}
	if selected && !editingThis {
		return a.styles.fieldCursor.Render(text)
	}
	return text
}

func (a *App) rowSelected(rows []rowRef, ref rowRef) bool {
	return a.cursor < len(rows) && rows[a.cursor] == ref
}

// canvasView flattens the coordinator's layer stack into a single cell
// buffer and styles it line by line, batching runs of equal color.
func (a *App) canvasView() string {
	dims := a.canvasDims()
	if dims.Width <= 0 || dims.Height <= 0 {
		return ""
	}

	var layers []*canvas.Buffer
	for _, s := range a.coord.Stack() {
		if b, ok := s.Layer.(*canvas.Buffer); ok {
			layers = append(layers, b)
		}
	}
	flat := canvas.Flatten(dims.Width, dims.Height, layers)

	var sb strings.Builder
	for y := 0; y < dims.Height; y++ {
		if y > 0 {
			sb.WriteByte('\n')
		}
		var run strings.Builder
		runColor := ""
		flush := func() {
			if run.Len() == 0 {
				return
			}
			sb.WriteString(accent(runColor).Render(run.String()))
			run.Reset()
		}
		for x := 0; x < dims.Width; x++ {
			cell := flat.At(x, y)
			ch := cell.Ch
			if ch == 0 {
				ch = ' '
			}
			if cell.Color != runColor {
				flush()
				runColor = cell.Color
			}
			run.WriteRune(ch)
		}
		flush()
	}
	return a.styles.canvas.Render(sb.String())
}

func (a *App) statusView() string {
	if notice := a.currentNotice(); notice != "" {
		return a.styles.notice.Render(truncate(notice, a.width))
	}
	hints := "↑/↓ navigate · enter expand/edit · space cycle · shift+↑/↓ move · ? help · q quit"
	if a.tracker.InFallback() {
		hints = "orchestration unavailable · q quit"
	}
	return a.styles.statusBar.Render(truncate(hints, a.width))
}

// fallbackView is the static degraded layout: the catalog's module list,
// default order, no controls wired.
func (a *App) fallbackView() string {
	var sb strings.Builder
	sb.WriteString(a.styles.header.Render("tonewheel (fallback mode)"))
	sb.WriteString("\n\n")
	if cause := a.tracker.FallbackCause(); cause != nil {
		sb.WriteString(a.styles.degraded.Render(truncate(cause.Error(), a.width-2)))
		sb.WriteString("\n\n")
	}
	if a.catalog != nil {
		for _, m := range a.catalog.Modules {
			sb.WriteString(fmt.Sprintf("  %s %s\n", "▸", accent(m.Color).Render(m.Title)))
		}
	}
	sb.WriteString("\n")
	sb.WriteString(a.styles.statusBar.Render("interactive controls are disabled; see the session log"))
	body := lipgloss.NewStyle().Padding(1, 2).Render(sb.String())
	return lipgloss.JoinVertical(lipgloss.Left, body, a.statusView())
}

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 1 {
		return string(r[:max])
	}
	return string(r[:max-1]) + "…"
}
