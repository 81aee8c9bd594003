package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/minhancr123/Task-Management-sub000/internal/board"
	"github.com/minhancr123/Task-Management-sub000/internal/mutation"
	"github.com/minhancr123/Task-Management-sub000/internal/stats"
)

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case loadedMsg:
		m.loading = false
		m.rebuild()
		switch {
		case msg.err != nil && msg.res.Stale:
			m.setStatus("Refresh failed, showing cached tasks: "+msg.err.Error(), true)
		case msg.err != nil:
			m.setStatus("Failed to load tasks: "+msg.err.Error(), true)
		case msg.forced && !msg.res.Superseded:
			m.setStatus(fmt.Sprintf("Loaded %d tasks", len(msg.res.Tasks)), false)
		}
		return m, nil

	case cacheChangedMsg:
		m.rebuild()
		return m, m.bridge.wait()

	case statsMsg:
		m.stats = stats.Stats(msg)
		return m, m.bridge.wait()

	case feedbackMsg:
		m.setStatus(msg.Message, msg.Kind == mutation.FeedbackFailed)
		m.rebuild()
		return m, m.bridge.wait()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tickMsg:
		// Clear old status messages.
		if m.statusMsg != "" && m.now().Sub(m.statusTime) > 5*time.Second {
			m.statusMsg = ""
		}
		return m, tickCmd()
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		m.sess.Engine().Cancel()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Cancel):
		if m.sess.Engine().Cancel() {
			m.hover = board.NoTarget
			m.rebuild()
			m.setStatus("Drag cancelled", false)
		}
		return m, nil

	case key.Matches(msg, m.keys.Left):
		m.cursorCol--
		m.clampCursor()
	case key.Matches(msg, m.keys.Right):
		m.cursorCol++
		m.clampCursor()
	case key.Matches(msg, m.keys.Up):
		m.cursorRow--
		m.clampCursor()
	case key.Matches(msg, m.keys.Down):
		m.cursorRow++
		m.clampCursor()

	case key.Matches(msg, m.keys.MoveLeft):
		return m.shiftSelected(-1)
	case key.Matches(msg, m.keys.MoveRight):
		return m.shiftSelected(1)

	case key.Matches(msg, m.keys.Refresh):
		m.loading = true
		m.setStatus("Refreshing...", false)
		return m, m.refresh()
	}
	return m, nil
}

func (m Model) shiftSelected(delta int) (tea.Model, tea.Cmd) {
	card, ok := m.selectedCard()
	if !ok {
		return m, nil
	}
	if !m.sess.Shift(card.Task.ID, delta) {
		m.setStatus(fmt.Sprintf("%q cannot move that way", card.Task.Title), true)
		return m, nil
	}
	m.rebuild()
	m.selectTask(card.Task.ID)
	return m, nil
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	eng := m.sess.Engine()
	at := board.Point{X: msg.X, Y: msg.Y}

	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return m, nil
		}
		_, id := m.hitTest(msg.X, msg.Y)
		if id != "" && m.sess.InFlight(id) {
			m.setStatus("Waiting for the previous move to finish", false)
			return m, nil
		}
		eng.PointerDown(at, id)

	case tea.MouseActionMotion:
		if eng.PointerMove(at) {
			m.hover, _ = m.hitTest(msg.X, msg.Y)
			m.rebuild()
		}

	case tea.MouseActionRelease:
		target, _ := m.hitTest(msg.X, msg.Y)
		rel := eng.PointerUp(at, target)
		m.hover = board.NoTarget
		m.rebuild()
		switch rel.Outcome {
		case board.OutcomeClick:
			m.selectTask(rel.TaskID)
		case board.OutcomeDispatched:
			m.selectTask(rel.TaskID)
		case board.OutcomeRejected:
			m.setStatus("You are not allowed to move this task", true)
		}
	}
	return m, nil
}
