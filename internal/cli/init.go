package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/minhancr123/Task-Management-sub000/internal/config"
	"github.com/minhancr123/Task-Management-sub000/internal/store"
)

var initOwner string

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize taskboard in the current directory",
	Long:  "Creates a .taskboard/ directory with default config and database.",
	RunE:  runInit,
}

func init() {
	initCmd.Flags().StringVar(&initOwner, "owner", "", "Owner the board is scoped to")
}

func runInit(cmd *cobra.Command, args []string) error {
	// Check if already initialized.
	if _, err := os.Stat(boardDirName); err == nil {
		return fmt.Errorf("taskboard already initialized in this directory (%s/ exists)", boardDirName)
	}

	if err := os.MkdirAll(boardDirName, 0755); err != nil {
		return fmt.Errorf("create %s: %w", boardDirName, err)
	}

	// Write default config.
	cfg := config.DefaultConfig()
	if initOwner != "" {
		cfg.Owner = initOwner
	}
	if err := config.Save(boardPath("config.yaml"), cfg); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	// Create database by opening store (migration runs automatically).
	s, err := store.New(boardPath(cfg.Database))
	if err != nil {
		return fmt.Errorf("create database: %w", err)
	}
	s.Close()

	fmt.Printf("Initialized taskboard in %s/ for owner %q\n", boardDirName, cfg.Owner)
	fmt.Println("")
	fmt.Println("Next steps:")
	fmt.Println("  1. Run: taskboard task add \"your task\"")
	fmt.Println("  2. Run: taskboard board")
	fmt.Println("  3. Run: taskboard ui")

	return nil
}
