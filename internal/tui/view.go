package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/minhancr123/Task-Management-sub000/internal/board"
	"github.com/minhancr123/Task-Management-sub000/internal/task"
)

// --- Color palette ---
var (
	clrSubtle    = lipgloss.AdaptiveColor{Light: "#555555", Dark: "#666666"}
	clrHighlight = lipgloss.AdaptiveColor{Light: "#0F766E", Dark: "#2DD4BF"}
	clrGreen     = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	clrYellow    = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#F59E0B"}
	clrRed       = lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#F87171"}
	clrBlue      = lipgloss.AdaptiveColor{Light: "#1D4ED8", Dark: "#60A5FA"}
	clrWhite     = lipgloss.AdaptiveColor{Light: "#333333", Dark: "#DDDDDD"}
	clrDim       = lipgloss.AdaptiveColor{Light: "#999999", Dark: "#555555"}
)

// --- Styles ---
var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(clrHighlight)
	dimStyle    = lipgloss.NewStyle().Foreground(clrDim)
	subtleStyle = lipgloss.NewStyle().Foreground(clrSubtle)

	columnTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(clrWhite)
	dropTargetStyle  = lipgloss.NewStyle().Bold(true).Foreground(clrYellow).Underline(true)

	cardStyle         = lipgloss.NewStyle().Foreground(clrWhite)
	cardSelectedStyle = lipgloss.NewStyle().Foreground(clrHighlight).Bold(true)
	cardDraggedStyle  = lipgloss.NewStyle().Foreground(clrDim).Italic(true)
	overdueStyle      = lipgloss.NewStyle().Foreground(clrRed)
	pendingStyle      = lipgloss.NewStyle().Foreground(clrBlue)

	statusStyle = lipgloss.NewStyle().Foreground(clrGreen).Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(clrRed).Bold(true)

	footerKeyStyle  = lipgloss.NewStyle().Bold(true).Foreground(clrHighlight)
	footerDescStyle = lipgloss.NewStyle().Foreground(clrSubtle)
)

var priorityMarks = map[task.Priority]string{
	task.PriorityLow:      "·",
	task.PriorityMedium:   "•",
	task.PriorityHigh:     "▲",
	task.PriorityCritical: "‼",
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.viewHeader() + "\n\n")
	b.WriteString(m.viewColumns())

	// Pad the board so the footer stays at the bottom.
	lines := strings.Count(b.String(), "\n") + 1
	if m.height > 0 {
		for ; lines < m.height-footerRows+1; lines++ {
			b.WriteString("\n")
		}
	}
	b.WriteString("\n" + m.viewFooter())
	return b.String()
}

func (m Model) viewHeader() string {
	header := titleStyle.Render("taskboard")
	header += dimStyle.Render(fmt.Sprintf(" — %s · %d tasks", m.sess.Owner(), m.stats.Total))
	if m.loading {
		header += " " + m.spin.View()
	}

	var counts []string
	for _, s := range task.Statuses {
		if n := m.stats.Count(s); n > 0 {
			counts = append(counts, fmt.Sprintf("%s %d", s, n))
		}
	}
	right := subtleStyle.Render(strings.Join(counts, "  "))

	if m.width > 0 {
		pad := m.width - lipgloss.Width(header) - lipgloss.Width(right)
		if pad > 0 {
			return header + strings.Repeat(" ", pad) + right
		}
	}
	return header
}

func (m Model) viewColumns() string {
	w := m.columnWidth()
	cols := make([]string, 0, task.NumStatuses)
	for i, col := range m.view.Columns {
		cols = append(cols, m.viewColumn(i, col, w))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cols...)
}

func (m Model) viewColumn(idx int, col board.Column, w int) string {
	inner := w - 2
	var lines []string

	title := fmt.Sprintf("%s (%d)", col.Label, len(col.Cards))
	titleSt := columnTitleStyle
	if m.view.Drag != nil && m.dropStatus() == col.Status && m.hover.Kind != board.TargetNone {
		titleSt = dropTargetStyle
	}
	lines = append(lines, titleSt.Render(truncate(title, inner)))
	lines = append(lines, dimStyle.Render(strings.Repeat("─", inner)))

	for row, card := range col.Cards {
		l1, l2 := m.viewCard(idx, row, card, inner)
		lines = append(lines, l1, l2, "")
	}
	if len(col.Cards) == 0 {
		lines = append(lines, dimStyle.Render(truncate("(empty)", inner)))
	}

	return lipgloss.NewStyle().Width(w).MaxWidth(w).PaddingRight(1).Render(strings.Join(lines, "\n"))
}

func (m Model) viewCard(colIdx, row int, card board.Card, inner int) (string, string) {
	t := card.Task
	mark := priorityMarks[t.Priority]

	st := cardStyle
	switch {
	case m.view.Drag != nil && m.view.Drag.Task.ID == t.ID:
		st = cardDraggedStyle
	case colIdx == m.cursorCol && row == m.cursorRow:
		st = cardSelectedStyle
	}
	title := st.Render(truncate(mark+" "+t.Title, inner))

	var details []string
	overdue := t.Overdue(m.now())
	if t.DueDate != nil {
		due := t.DueDate.Format("Jan 2")
		if overdue {
			due = "overdue " + due
		}
		details = append(details, due)
	}
	if t.Assignee != "" {
		details = append(details, "@"+t.Assignee)
	}
	if len(details) == 0 {
		details = append(details, t.Priority.String())
	}

	detailSt := dimStyle
	if overdue {
		detailSt = overdueStyle
	}
	prefix := "  "
	if card.Pending {
		prefix = m.spin.View() + " "
	}
	line := prefix + detailSt.Render(truncate(strings.Join(details, " "), inner-2))
	return title, line
}

// dropStatus is the status the hovered target would resolve to.
func (m Model) dropStatus() task.Status {
	switch m.hover.Kind {
	case board.TargetColumn:
		return m.hover.Status
	case board.TargetCard:
		if c, r, ok := m.view.Find(m.hover.TaskID); ok {
			return m.view.Columns[c].Cards[r].Task.Status
		}
	}
	return task.Status(255)
}

func (m Model) viewFooter() string {
	var left string
	switch {
	case m.view.Drag != nil:
		left = statusStyle.Render(fmt.Sprintf("Dragging %q from %s", m.view.Drag.Task.Title, m.view.Drag.Origin.Label()))
	case m.statusMsg != "" && m.statusErr:
		left = errorStyle.Render(m.statusMsg)
	case m.statusMsg != "":
		left = statusStyle.Render(m.statusMsg)
	}

	var help []string
	for _, k := range m.keys.help() {
		h := k.Help()
		help = append(help, footerKeyStyle.Render(h.Key)+footerDescStyle.Render(" "+h.Desc))
	}
	return left + "\n" + strings.Join(help, "  ")
}

func truncate(s string, w int) string {
	if w <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= w {
		return s
	}
	if w == 1 {
		return "…"
	}
	return string(r[:w-1]) + "…"
}
