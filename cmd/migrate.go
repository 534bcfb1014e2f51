package cmd

import (
	"fmt"

	"membercrm/db"

	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	withMigrator := func(fn func(m *db.Migrator) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			if err := connectDB(); err != nil {
				return err
			}
			defer db.GetDB().Close()

			m, err := db.NewMigrator(db.GetDB(), appLog)
			if err != nil {
				return err
			}
			return fn(m)
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE:  withMigrator(func(m *db.Migrator) error { return m.Up() }),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			RunE:  withMigrator(func(m *db.Migrator) error { return m.Down() }),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			RunE: withMigrator(func(m *db.Migrator) error {
				version, dirty, err := m.Version()
				if err != nil {
					return err
				}
				fmt.Printf("version=%d dirty=%v\n", version, dirty)
				return nil
			}),
		},
	)
	return cmd
}
