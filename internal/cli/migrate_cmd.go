package cli

import (
	"github.com/spf13/cobra"
)

func newMigrateCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(
		newMigrateUpCmd(app),
		newMigrateDownCmd(app),
		newMigrateVersionCmd(app),
	)
	return cmd
}

func newMigrateUpCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := app.Backend.Migrator(cmd.Context())
			if err != nil {
				return err
			}
			if err := m.Migrate(); err != nil {
				return err
			}
			return printVersion(app, m)
		},
	}
}

func newMigrateDownCmd(app *App) *cobra.Command {
	var steps int

	cmd := &cobra.Command{
		Use:   "down",
		Short: "Revert the most recent migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := app.Backend.Migrator(cmd.Context())
			if err != nil {
				return err
			}
			if err := m.Rollback(steps); err != nil {
				return err
			}
			return printVersion(app, m)
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 1, "number of migrations to revert")
	return cmd
}

func newMigrateVersionCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := app.Backend.Migrator(cmd.Context())
			if err != nil {
				return err
			}
			return printVersion(app, m)
		},
	}
}

func printVersion(app *App, m Migrator) error {
	version, dirty, err := m.MigrationVersion()
	if err != nil {
		return err
	}
	if app.jsonOutput() {
		return app.writeJSON(map[string]interface{}{"version": version, "dirty": dirty})
	}
	if dirty {
		app.printf("schema version %d (dirty)\n", version)
		return nil
	}
	app.printf("schema version %d\n", version)
	return nil
}
