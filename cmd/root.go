package cmd

import (
	"fmt"
	"os"

	"membercrm/config"
	"membercrm/db"
	"membercrm/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfg    *config.Config
	appLog *zap.Logger
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "membercrm",
		Short:         "Member CRM server and admin tools",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			cfg = c
			appLog = logger.New(c.Log)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if appLog != nil {
				_ = appLog.Sync()
			}
		},
	}

	root.AddCommand(newServeCmd(), newMigrateCmd(), newUserCmd())
	return root
}

// Execute runs the CLI; with no subcommand it serves HTTP.
func Execute() {
	root := newRootCmd()
	if len(os.Args) == 1 {
		root.SetArgs([]string{"serve"})
	}
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func connectDB() error {
	if err := db.InitDB(cfg.Database); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	return nil
}
