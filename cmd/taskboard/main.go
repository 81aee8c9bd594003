package main

import (
	"os"

	"github.com/minhancr123/Task-Management-sub000/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
