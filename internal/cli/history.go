package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history [task-id]",
	Short: "Show status history for a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	s, err := mustSQLite(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	id := args[0]
	if _, err := s.GetTask(cmd.Context(), id); err != nil {
		return err
	}
	events, err := s.GetEvents(cmd.Context(), id)
	if err != nil {
		return err
	}

	if len(events) == 0 {
		fmt.Printf("No events for task %s\n", id)
		return nil
	}

	fmt.Printf("Events for task %s:\n\n", id)
	for _, e := range events {
		fmt.Printf("  %s  %-14s %s\n", e.Timestamp.Format("2006-01-02 15:04:05"), e.Type, e.Content)
	}
	return nil
}
