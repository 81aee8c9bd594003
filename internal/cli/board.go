package cli

import (
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/minhancr123/Task-Management-sub000/internal/board"
	"github.com/minhancr123/Task-Management-sub000/internal/task"
)

// ANSI color codes.
const (
	colorReset   = "\033[0m"
	colorBold    = "\033[1m"
	colorDim     = "\033[2m"
	colorRed     = "\033[31m"
	colorGreen   = "\033[32m"
	colorYellow  = "\033[33m"
	colorBlue    = "\033[34m"
	colorMagenta = "\033[35m"
	colorCyan    = "\033[36m"
	colorWhite   = "\033[37m"
)

var statusColors = [task.NumStatuses]string{
	task.StatusTodo:       colorWhite,
	task.StatusInProgress: colorBlue,
	task.StatusInReview:   colorMagenta,
	task.StatusCompleted:  colorGreen,
	task.StatusCancelled:  colorDim,
}

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Show the kanban board",
	RunE:  runBoard,
}

func runBoard(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	sess, closeAll, err := startSession(cmd.Context(), cfg, sessionOptions(cfg, log.StandardLogger()))
	if err != nil {
		return err
	}
	defer closeAll()

	v := sess.View()
	total := 0
	for _, col := range v.Columns {
		total += len(col.Cards)
	}
	if total == 0 {
		fmt.Printf("%sBoard is empty.%s Add a task: %staskboard task add \"title\"%s\n",
			colorDim, colorReset, colorCyan, colorReset)
		return nil
	}

	// Print header.
	colWidth := 24
	headerLine := ""
	sepLine := ""
	for _, col := range v.Columns {
		header := fmt.Sprintf(" %s%s%s (%d)", statusColors[col.Status]+colorBold, col.Label, colorReset, len(col.Cards))
		// padRight needs visible length, not byte length (ANSI codes add bytes).
		visibleLen := len(fmt.Sprintf(" %s (%d)", col.Label, len(col.Cards)))
		headerLine += header + strings.Repeat(" ", max(colWidth-visibleLen, 0))
		sepLine += strings.Repeat("─", colWidth)
	}
	fmt.Println(headerLine)
	fmt.Println(colorDim + sepLine + colorReset)

	maxRows := 0
	for _, col := range v.Columns {
		maxRows = max(maxRows, len(col.Cards))
	}

	now := time.Now()
	for i := 0; i < maxRows; i++ {
		// Title line.
		line := ""
		for _, col := range v.Columns {
			if i >= len(col.Cards) {
				line += strings.Repeat(" ", colWidth)
				continue
			}
			t := col.Cards[i].Task
			mark := priorityMark(t.Priority)
			titleStr := truncate(t.Title, colWidth-3)
			line += fmt.Sprintf(" %s%s%s %s", priorityColor(t.Priority), mark, colorReset, padRight(titleStr, colWidth-3))
		}
		fmt.Println(line)

		// Details line.
		detailLine := ""
		for _, col := range v.Columns {
			if i >= len(col.Cards) {
				detailLine += strings.Repeat(" ", colWidth)
				continue
			}
			t := col.Cards[i].Task
			detail := shortID(t.ID)
			if t.Assignee != "" {
				detail += " @" + t.Assignee
			}
			detail = padRight(truncate(detail, colWidth-3), colWidth-3)
			color := colorDim
			if t.Overdue(now) {
				color = colorRed
			}
			detailLine += "   " + color + detail + colorReset
		}
		fmt.Println(detailLine)
		fmt.Println() // spacing between cards
	}

	// Summary line.
	st := sess.FlushStats()
	fmt.Printf("%s%d tasks%s", colorBold, total, colorReset)
	if n := st.Count(task.StatusCompleted); n > 0 {
		fmt.Printf("  %s✓ %d completed%s", colorGreen, n, colorReset)
	}
	if n := st.Count(task.StatusInProgress); n > 0 {
		fmt.Printf("  %s● %d in progress%s", colorBlue, n, colorReset)
	}
	if n := overdueCount(v, now); n > 0 {
		fmt.Printf("  %s! %d overdue%s", colorRed, n, colorReset)
	}
	fmt.Println()

	return nil
}

func overdueCount(v board.View, now time.Time) int {
	n := 0
	for _, col := range v.Columns {
		for _, c := range col.Cards {
			if c.Task.Overdue(now) {
				n++
			}
		}
	}
	return n
}

func priorityMark(p task.Priority) string {
	switch p {
	case task.PriorityCritical:
		return "‼"
	case task.PriorityHigh:
		return "▲"
	case task.PriorityLow:
		return "▽"
	default:
		return "•"
	}
}

func priorityColor(p task.Priority) string {
	switch p {
	case task.PriorityCritical, task.PriorityHigh:
		return colorRed + colorBold
	case task.PriorityMedium:
		return colorYellow
	default:
		return colorDim
	}
}

// shortID keeps the first block of a uuid.
func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}

func padRight(s string, width int) string {
	if n := len([]rune(s)); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
