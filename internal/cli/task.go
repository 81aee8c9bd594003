package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/minhancr123/Task-Management-sub000/internal/board"
	"github.com/minhancr123/Task-Management-sub000/internal/config"
	"github.com/minhancr123/Task-Management-sub000/internal/remote"
	"github.com/minhancr123/Task-Management-sub000/internal/store"
	"github.com/minhancr123/Task-Management-sub000/internal/task"
)

var (
	taskOwner    string
	taskStatus   string
	taskPriority string
	taskDue      string
	taskAssignee string
	taskPosition int
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Create or inspect tasks",
	Long:  "Seed and inspect tasks in the record store. Moves go through `taskboard move` or the board UI.",
}

var taskAddCmd = &cobra.Command{
	Use:   "add [title]",
	Short: "Create a new task",
	Long:  "Creates a task. --status is stored as given, so legacy labels such as \"in-progress\" or \"done\" can be seeded.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runTaskAdd,
}

var taskListCmd = &cobra.Command{
	Use:   "list [status]",
	Short: "List tasks, optionally filtered by status",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTaskList,
}

var taskShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show task details",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskShow,
}

func init() {
	taskAddCmd.Flags().StringVar(&taskOwner, "owner", "", "Owner of the task (default: configured owner)")
	taskAddCmd.Flags().StringVarP(&taskStatus, "status", "s", "todo", "Status label, stored verbatim")
	taskAddCmd.Flags().StringVarP(&taskPriority, "priority", "p", "medium", "Priority: low, medium, high, critical")
	taskAddCmd.Flags().StringVar(&taskDue, "due", "", "Due date (YYYY-MM-DD)")
	taskAddCmd.Flags().StringVarP(&taskAssignee, "assignee", "a", "", "Assignee")
	taskAddCmd.Flags().IntVar(&taskPosition, "position", -1, "Position within the column")

	taskListCmd.Flags().StringVar(&taskOwner, "owner", "", "Owner to list (default: configured owner)")

	taskCmd.AddCommand(taskAddCmd)
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskShowCmd)
}

func runTaskAdd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	nt := store.NewTask{
		OwnerID:  ownerFlag(cfg, taskOwner),
		Title:    strings.Join(args, " "),
		Status:   taskStatus,
		Priority: taskPriority,
		Assignee: taskAssignee,
	}
	if taskDue != "" {
		due, err := time.ParseInLocation("2006-01-02", taskDue, time.Local)
		if err != nil {
			return fmt.Errorf("invalid due date %q: want YYYY-MM-DD", taskDue)
		}
		nt.DueDate = &due
	}
	if taskPosition >= 0 {
		pos := taskPosition
		nt.Position = &pos
	}

	ctx := cmd.Context()
	var id string
	switch cfg.Backend {
	case config.BackendSQLite:
		id, err = addSQLite(ctx, cfg, nt)
	case config.BackendRedis:
		id, err = addRedis(ctx, cfg, nt)
	default:
		return fmt.Errorf("task add is not supported for the %s backend", cfg.Backend)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Created task %s%s%s: %s [%s]\n", colorYellow, id, colorReset, nt.Title, task.Canonicalize(nt.Status))
	return nil
}

func addSQLite(ctx context.Context, cfg *config.Config, nt store.NewTask) (string, error) {
	s, err := mustSQLite(cfg)
	if err != nil {
		return "", err
	}
	defer s.Close()

	rec, err := s.CreateTask(ctx, nt)
	if err != nil {
		return "", err
	}
	return rec.ID, nil
}

func addRedis(ctx context.Context, cfg *config.Config, nt store.NewTask) (string, error) {
	if nt.Title == "" {
		return "", fmt.Errorf("title is required")
	}
	r, err := remote.DialRedis(ctx, cfg.RedisURL)
	if err != nil {
		return "", err
	}
	defer r.Close()

	t := task.Task{
		ID:       uuid.NewString(),
		OwnerID:  nt.OwnerID,
		Title:    nt.Title,
		Status:   task.Canonicalize(nt.Status),
		Priority: task.ParsePriority(nt.Priority),
		DueDate:  nt.DueDate,
		Assignee: nt.Assignee,
		Position: nt.Position,
	}
	if err := r.Save(ctx, t); err != nil {
		return "", err
	}
	return t.ID, nil
}

func runTaskList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var filter *task.Status
	if len(args) > 0 {
		st, ok := task.ParseStatus(args[0])
		if !ok {
			return fmt.Errorf("unknown status %q", args[0])
		}
		filter = &st
	}

	ctx := cmd.Context()
	b, err := openBackend(ctx, cfg, log.StandardLogger())
	if err != nil {
		return err
	}
	defer b.Close()

	owner := ownerFlag(cfg, taskOwner)
	tasks, err := b.FetchTasksForOwner(ctx, owner)
	if err != nil {
		return err
	}

	n := 0
	now := time.Now()
	for _, col := range board.Group(tasks, nil) {
		if filter != nil && col.Status != *filter {
			continue
		}
		for _, c := range col.Cards {
			n++
			t := c.Task
			extra := ""
			if t.Assignee != "" {
				extra += fmt.Sprintf(" [%s]", t.Assignee)
			}
			if t.DueDate != nil {
				due := t.DueDate.Format("2006-01-02")
				if t.Overdue(now) {
					due = colorRed + due + " overdue" + colorReset
				}
				extra += " due " + due
			}
			fmt.Printf("%-36s %-12s %-8s %s%s\n", t.ID, t.Status, t.Priority, t.Title, extra)
		}
	}
	if n == 0 {
		fmt.Printf("No tasks found for %s.\n", owner)
	}
	return nil
}

func runTaskShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	s, err := mustSQLite(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	rec, err := s.GetTask(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	t := rec.Task()

	fmt.Printf("Task %s\n", rec.ID)
	fmt.Printf("  Title:    %s\n", rec.Title)
	fmt.Printf("  Owner:    %s\n", rec.OwnerID)
	if rec.RawStatus != t.Status.String() {
		fmt.Printf("  Status:   %s (stored as %q)\n", t.Status, rec.RawStatus)
	} else {
		fmt.Printf("  Status:   %s\n", t.Status)
	}
	fmt.Printf("  Priority: %s\n", t.Priority)
	if t.Assignee != "" {
		fmt.Printf("  Assignee: %s\n", t.Assignee)
	}
	if t.DueDate != nil {
		fmt.Printf("  Due:      %s\n", t.DueDate.Format("2006-01-02"))
	}
	if t.Position != nil {
		fmt.Printf("  Position: %d\n", *t.Position)
	}
	fmt.Printf("  Created:  %s\n", rec.CreatedAt.Format("2006-01-02 15:04"))
	fmt.Printf("  Updated:  %s\n", rec.UpdatedAt.Format("2006-01-02 15:04"))
	return nil
}
