package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"salesdash/internal/cli"
	"salesdash/internal/config"
	"salesdash/internal/log"
)

var (
	cfg    *config.Config
	logger *log.Logger
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "salesdash-cli",
		Short:         "Import sales data and print category summaries",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cli.LoadEnvFile()
			cfg = config.Load()
			logger = cli.SetupLogger(cfg.SlogLevel(), log.ComponentCLI)
		},
	}
	root.AddCommand(importCmd(), summaryCmd(), statusCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
