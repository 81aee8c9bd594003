package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/minhancr123/Task-Management-sub000/internal/board"
	"github.com/minhancr123/Task-Management-sub000/internal/fetch"
	"github.com/minhancr123/Task-Management-sub000/internal/session"
	"github.com/minhancr123/Task-Management-sub000/internal/stats"
	"github.com/minhancr123/Task-Management-sub000/internal/task"
)

// Board geometry. Hit testing relies on these matching the rendered view.
const (
	headerRow    = 2 // column titles
	ruleRow      = 3 // separator under the titles
	firstCardRow = 4
	cardHeight   = 3 // title, details, spacer
	footerRows   = 2
)

// Model is the top-level bubbletea model.
type Model struct {
	sess   *session.Controller
	bridge *Bridge
	keys   keyMap
	spin   spinner.Model
	now    func() time.Time

	width  int
	height int

	// Board state.
	view      board.View
	stats     stats.Stats
	loading   bool
	cursorCol int
	cursorRow int
	hover     board.Target

	// Status message at the bottom.
	statusMsg  string
	statusErr  bool
	statusTime time.Time

	quitting bool
}

// New creates a TUI model over a session. The bridge must be the one whose
// callbacks were handed to the session.
func New(sess *session.Controller, bridge *Bridge) Model {
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = pendingStyle
	return Model{
		sess:    sess,
		bridge:  bridge,
		keys:    defaultKeys(),
		spin:    sp,
		now:     time.Now,
		view:    sess.View(),
		stats:   sess.Stats(),
		loading: true,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.start(), m.bridge.wait(), m.spin.Tick, tickCmd())
}

type loadedMsg struct {
	res    fetch.Result
	err    error
	forced bool
}

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) start() tea.Cmd {
	sess := m.sess
	return func() tea.Msg {
		res, err := sess.Start(context.Background())
		return loadedMsg{res: res, err: err}
	}
}

func (m Model) refresh() tea.Cmd {
	sess := m.sess
	return func() tea.Msg {
		res, err := sess.Refresh(context.Background())
		return loadedMsg{res: res, err: err, forced: true}
	}
}

func (m *Model) rebuild() {
	m.view = m.sess.View()
	m.clampCursor()
}

func (m *Model) clampCursor() {
	if m.cursorCol < 0 {
		m.cursorCol = 0
	}
	if m.cursorCol >= task.NumStatuses {
		m.cursorCol = task.NumStatuses - 1
	}
	col := m.view.Columns[m.cursorCol]
	if m.cursorRow >= len(col.Cards) {
		m.cursorRow = len(col.Cards) - 1
	}
	if m.cursorRow < 0 {
		m.cursorRow = 0
	}
}

func (m *Model) selectedCard() (board.Card, bool) {
	col := m.view.Columns[m.cursorCol]
	if m.cursorRow < len(col.Cards) {
		return col.Cards[m.cursorRow], true
	}
	return board.Card{}, false
}

func (m *Model) selectTask(id string) {
	if col, row, ok := m.view.Find(id); ok {
		m.cursorCol, m.cursorRow = col, row
	}
}

func (m *Model) setStatus(msg string, isErr bool) {
	m.statusMsg = msg
	m.statusErr = isErr
	m.statusTime = m.now()
}

func (m Model) columnWidth() int {
	if m.width <= 0 {
		return 24
	}
	return max(m.width/task.NumStatuses, 8)
}

// hitTest maps a terminal cell to what lies under it: a card, a column, or
// nothing. It returns the card's task id for card hits.
func (m Model) hitTest(x, y int) (board.Target, string) {
	if x < 0 || y < headerRow {
		return board.NoTarget, ""
	}
	if m.height > 0 && y >= m.height-footerRows {
		return board.NoTarget, ""
	}
	col := x / m.columnWidth()
	if col >= task.NumStatuses {
		return board.NoTarget, ""
	}
	column := m.view.Columns[col]
	if y < firstCardRow {
		return board.ColumnTarget(column.Status), ""
	}
	row := (y - firstCardRow) / cardHeight
	if row < len(column.Cards) {
		id := column.Cards[row].Task.ID
		return board.CardTarget(id), id
	}
	return board.ColumnTarget(column.Status), ""
}
