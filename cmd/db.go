package cmd

import (
	migrate "github.com/rubenv/sql-migrate"
	"github.com/spf13/cobra"
	"github.com/stellar/go/support/log"

	"github.com/innovategy/innosystem/db"
	"github.com/innovategy/innosystem/db/migrations"
	"github.com/innovategy/innosystem/internal/config"
)

// dbCmd is the migration tool (spec §6 CLI): run, status, rerun-latest,
// seed. seed is a sibling top-level command (cmd/seed.go) rather than
// nested here, since it seeds domain rows rather than schema.
func dbCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Apply and inspect database schema migrations",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.Parent().PersistentPreRun(cmd.Parent(), args)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Apply every pending migration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, err := db.Migrate(config.Options.DatabaseURL, migrate.Up, 0, migrations.FS)
			if err != nil {
				return err
			}
			log.Ctx(cmd.Context()).Infof("applied %d migration(s)", n)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Report how many migrations are applied versus known",
		RunE: func(cmd *cobra.Command, _ []string) error {
			applied, total, err := db.Status(config.Options.DatabaseURL, migrations.FS)
			if err != nil {
				return err
			}
			log.Ctx(cmd.Context()).Infof("%d/%d migrations applied", applied, total)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rerun-latest",
		Short: "Revert and reapply the most recently applied migration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			dbURL := config.Options.DatabaseURL
			if _, err := db.Migrate(dbURL, migrate.Down, 1, migrations.FS); err != nil {
				return err
			}
			n, err := db.Migrate(dbURL, migrate.Up, 1, migrations.FS)
			if err != nil {
				return err
			}
			log.Ctx(cmd.Context()).Infof("reran %d migration(s)", n)
			return nil
		},
	})

	return cmd
}
