package cli

import (
	"fmt"

	"github.com/phrazzld/annotator-api/internal/platform/logger"
	"github.com/phrazzld/annotator-api/internal/platform/postgres"
	"github.com/spf13/cobra"
)

// DefaultMigrationsDir is where new migration files are created.
const DefaultMigrationsDir = "internal/platform/postgres/migrations"

func newMigrateCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database schema migrations",
	}

	for _, c := range []struct {
		use, short string
	}{
		{"up", "Apply all pending migrations"},
		{"down", "Roll back the most recent migration"},
		{"status", "Show the status of every migration"},
		{"version", "Print the current schema version"},
	} {
		command := c.use
		cmd.AddCommand(&cobra.Command{
			Use:   command,
			Short: c.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				e, err := opts.loadEnv(cmd.Context(), cmd.ErrOrStderr())
				if err != nil {
					return err
				}
				defer e.Close()

				ctx := logger.WithLogger(cmd.Context(), e.log)
				return postgres.Migrate(ctx, e.db, command, e.log)
			},
		})
	}

	cmd.AddCommand(newMigrateCreateCmd())
	return cmd
}

func newMigrateCreateCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a new timestamped SQL migration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := postgres.CreateMigration(dir, args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", DefaultMigrationsDir, "directory of the migration files")
	return cmd
}
