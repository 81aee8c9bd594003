package cli

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/minhancr123/Task-Management-sub000/internal/session"
	"github.com/minhancr123/Task-Management-sub000/internal/tui"
)

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Open the interactive board",
	Long:  "Opens the board in the terminal. Drag cards between columns with the mouse, or select a card and move it with < and >.",
	RunE:  runUI,
}

func runUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// The alt screen owns the terminal; logs go to a file.
	logFile, err := os.OpenFile(boardPath("taskboard.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()
	logger := log.New()
	logger.SetOutput(logFile)
	logger.SetLevel(log.GetLevel())

	b, err := openBackend(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	bridge := tui.NewBridge()
	opts := sessionOptions(cfg, logger)
	opts.OnFeedback = bridge.Feedback
	opts.OnStats = bridge.Stats
	sess := session.New(b, session.StaticIdentity(cfg.Owner), opts)
	unsubscribe := sess.Subscribe(bridge.Changed)

	p := tea.NewProgram(tui.New(sess, bridge), tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err = p.Run()

	unsubscribe()
	bridge.Close()
	// Let moves already sent to the record store resolve before closing it.
	sess.Close()

	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
