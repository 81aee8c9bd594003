package cli

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/minhancr123/Task-Management-sub000/internal/task"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Quick status overview",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	sess, closeAll, err := startSession(cmd.Context(), cfg, sessionOptions(cfg, log.StandardLogger()))
	if err != nil {
		return err
	}
	defer closeAll()

	st := sess.FlushStats()
	if st.Total == 0 {
		fmt.Printf("No tasks. Run: %staskboard task add \"title\"%s\n", colorCyan, colorReset)
		return nil
	}

	fmt.Printf("%sTasks for %s: %d total%s\n", colorBold, sess.Owner(), st.Total, colorReset)
	for _, s := range task.Statuses {
		fmt.Printf("  %-14s %s%d%s\n", s.String()+":", statusColors[s], st.Count(s), colorReset)
	}

	v := sess.View()
	now := time.Now()
	if overdueCount(v, now) > 0 {
		fmt.Printf("\n%s!  Overdue:%s\n", colorRed+colorBold, colorReset)
		for _, col := range v.Columns {
			for _, c := range col.Cards {
				if c.Task.Overdue(now) {
					fmt.Printf("  %s%s%s: %s (due %s)\n", colorYellow, shortID(c.Task.ID), colorReset,
						c.Task.Title, c.Task.DueDate.Format("2006-01-02"))
				}
			}
		}
	}

	return nil
}
