package cli

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/minhancr123/Task-Management-sub000/internal/mutation"
	"github.com/minhancr123/Task-Management-sub000/internal/task"
)

var moveCmd = &cobra.Command{
	Use:   "move [id] [status]",
	Short: "Move a task to another status column",
	Long:  "Moves a task the same way a drop on the board does: the change is applied locally, sent to the record store and rolled back if the write fails.",
	Args:  cobra.ExactArgs(2),
	RunE:  runMove,
}

func runMove(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	to, ok := task.ParseStatus(args[1])
	if !ok {
		return fmt.Errorf("unknown status %q", args[1])
	}

	ctx := cmd.Context()
	sess, closeAll, err := startSession(ctx, cfg, sessionOptions(cfg, log.StandardLogger()))
	if err != nil {
		return err
	}
	defer closeAll()

	id := args[0]
	if _, _, found := sess.View().Find(id); !found {
		return fmt.Errorf("task %s not found for %s", id, sess.Owner())
	}

	out, err := sess.Move(ctx, id, to)
	switch {
	case out == mutation.Unchanged && err == nil:
		fmt.Printf("Task %s is already %s\n", shortID(id), to)
	case err != nil:
		return err
	default:
		fmt.Printf("Moved %s%s%s to %s%s%s\n", colorYellow, shortID(id), colorReset, statusColors[to], to, colorReset)
	}
	return nil
}
